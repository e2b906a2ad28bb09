package money

import "testing"

func TestLineSubtotal(t *testing.T) {
	t.Parallel()

	if got := LineSubtotal(3, 1250); got != 3750 {
		t.Fatalf("expected 3750, got %d", got)
	}
	if got := LineSubtotal(0, 1250); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestLineTaxRoundsHalfUp(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		qty   int
		price int64
		rate  float64
		want  int64
	}{
		{"exact", 2, 1000, 18, 360},
		{"half rounds up", 1, 50, 5, 3},      // 2.5 cents -> 3
		{"below half rounds down", 1, 49, 5, 2}, // 2.45 -> 2
		{"zero rate", 10, 999, 0, 0},
		{"full rate", 1, 100, 100, 100},
	}
	for _, tc := range cases {
		if got := LineTax(tc.qty, tc.price, tc.rate); got != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, got)
		}
	}
}

func TestFormat(t *testing.T) {
	t.Parallel()

	if got := Format(120034); got != "1200.34" {
		t.Fatalf("unexpected format: %s", got)
	}
	if got := Format(5); got != "0.05" {
		t.Fatalf("unexpected format: %s", got)
	}
	if got := Format(-250); got != "-2.50" {
		t.Fatalf("unexpected format: %s", got)
	}
}
