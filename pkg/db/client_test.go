package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	pkgerrors "github.com/rverduzco/stockroom-backend/pkg/errors"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return NewFromGorm(gdb)
}

func TestRunInTxHonorsConfiguredRetries(t *testing.T) {
	client := newTestClient(t)
	client.SetRetries(5)

	retries := 0
	exhausted := 0
	client.SetTxCallbacks(TxCallbacks{
		OnRetry:     func() { retries++ },
		OnExhausted: func() { exhausted++ },
	})

	attempts := 0
	err := client.RunInTx(context.Background(), func(*gorm.DB) error {
		attempts++
		return errors.New("database is locked")
	})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeTransaction, pkgerrors.As(err).Code())
	require.Equal(t, 5, attempts)
	require.Equal(t, 4, retries)
	require.Equal(t, 1, exhausted)
}

func TestSetRetriesIgnoresNonPositiveValues(t *testing.T) {
	client := newTestClient(t)
	client.SetRetries(0)

	attempts := 0
	err := client.RunInTx(context.Background(), func(*gorm.DB) error {
		attempts++
		return errors.New("database is locked")
	})
	require.Error(t, err)
	require.Equal(t, defaultTxRetries, attempts)
}

func TestRunInTxDoesNotRetryNonRetryableErrors(t *testing.T) {
	client := newTestClient(t)
	client.SetRetries(5)

	attempts := 0
	err := client.RunInTx(context.Background(), func(*gorm.DB) error {
		attempts++
		return errors.New("boom")
	})
	require.Error(t, err)
	require.Equal(t, 1, attempts)
}
