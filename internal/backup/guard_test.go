package backup

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rverduzco/stockroom-backend/internal/settings"
	"github.com/rverduzco/stockroom-backend/pkg/config"
	"github.com/rverduzco/stockroom-backend/pkg/db/models"
	pkgerrors "github.com/rverduzco/stockroom-backend/pkg/errors"
)

func newTestGuard(t *testing.T) (*Guard, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, gdb.AutoMigrate(&models.Setting{}))

	settingsSvc, err := settings.NewService(settings.NewRepository(gdb), config.PasswordConfig{
		ArgonMemoryKB:    8,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     8,
		ArgonKeyLen:      16,
		DefaultAdmin:     "admin123",
	})
	require.NoError(t, err)
	require.NoError(t, settingsSvc.EnsureDefaults(context.Background()))

	guard, err := NewGuard(settingsSvc)
	require.NoError(t, err)
	return guard, gdb
}

func TestGuardVerifiesInstallStamp(t *testing.T) {
	guard, gdb := newTestGuard(t)
	ctx := context.Background()

	require.NoError(t, guard.Prime(ctx))
	require.NoError(t, guard.Verify(ctx))

	// Simulate a restore swapping in a datastore from another install.
	require.NoError(t, gdb.Model(&models.Setting{}).
		Where("key = ?", models.SettingInstallID).
		Update("value", "some-other-install").Error)

	err := guard.Verify(ctx)
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeStaleConnection, pkgerrors.As(err).Code())
}

func TestGuardRejectsUnprimedVerify(t *testing.T) {
	guard, _ := newTestGuard(t)

	err := guard.Verify(context.Background())
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeInternal, pkgerrors.As(err).Code())
}

func TestGuardQuiesceBlocksWrites(t *testing.T) {
	guard, _ := newTestGuard(t)
	ctx := context.Background()
	require.NoError(t, guard.Prime(ctx))

	guard.Quiesce()
	err := guard.CheckWritable(ctx)
	require.Error(t, err)
	require.True(t, pkgerrors.IsRetryable(err))

	guard.Resume()
	require.NoError(t, guard.CheckWritable(ctx))
}
