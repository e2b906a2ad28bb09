package backup

import (
	"context"
	"fmt"
	"sync"

	"github.com/rverduzco/stockroom-backend/internal/settings"
	pkgerrors "github.com/rverduzco/stockroom-backend/pkg/errors"
)

// Guard protects the datastore around file-level backup and restore. It
// remembers the install stamp seen at boot; if a restore swaps the file
// underneath a running process, the stamp no longer matches and every
// guarded operation fails until the process reconnects.
type Guard struct {
	settings settings.Service

	mu       sync.RWMutex
	stamp    string
	quiesced bool
}

// NewGuard returns an unprimed guard.
func NewGuard(settingsSvc settings.Service) (*Guard, error) {
	if settingsSvc == nil {
		return nil, fmt.Errorf("settings service required")
	}
	return &Guard{settings: settingsSvc}, nil
}

// Prime caches the current install stamp. Called once at boot, after
// EnsureDefaults has seeded it.
func (g *Guard) Prime(ctx context.Context) error {
	stamp, err := g.settings.InstallID(ctx)
	if err != nil {
		return err
	}
	g.mu.Lock()
	g.stamp = stamp
	g.mu.Unlock()
	return nil
}

// Verify re-reads the install stamp and compares it against the boot-time
// value.
func (g *Guard) Verify(ctx context.Context) error {
	g.mu.RLock()
	expected := g.stamp
	g.mu.RUnlock()
	if expected == "" {
		return pkgerrors.New(pkgerrors.CodeInternal, "backup guard not primed")
	}

	current, err := g.settings.InstallID(ctx)
	if err != nil {
		return err
	}
	if current != expected {
		return pkgerrors.New(pkgerrors.CodeStaleConnection, "datastore was replaced underneath this process")
	}
	return nil
}

// Quiesce pauses guarded writes so the datastore file can be copied while
// no transaction is mid-flight.
func (g *Guard) Quiesce() {
	g.mu.Lock()
	g.quiesced = true
	g.mu.Unlock()
}

// Resume re-enables guarded writes.
func (g *Guard) Resume() {
	g.mu.Lock()
	g.quiesced = false
	g.mu.Unlock()
}

// Quiesced reports whether a backup is in progress.
func (g *Guard) Quiesced() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.quiesced
}

// CheckWritable gates mutating operations: rejected with a retryable error
// while a backup is running, and with a stale-connection error after a
// restore.
func (g *Guard) CheckWritable(ctx context.Context) error {
	if g.Quiesced() {
		return pkgerrors.New(pkgerrors.CodeTransaction, "backup in progress, retry shortly")
	}
	return g.Verify(ctx)
}
