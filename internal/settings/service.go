package settings

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/rverduzco/stockroom-backend/pkg/config"
	"github.com/rverduzco/stockroom-backend/pkg/db/models"
	pkgerrors "github.com/rverduzco/stockroom-backend/pkg/errors"
	"github.com/rverduzco/stockroom-backend/pkg/security"
)

const minPasswordLength = 6

// Service manages the single-admin credential and the install stamp.
type Service interface {
	// EnsureDefaults seeds the admin credential and the install stamp on a
	// fresh datastore. Safe to call on every boot.
	EnsureDefaults(ctx context.Context) error
	VerifyAdminPassword(ctx context.Context, password string) (bool, error)
	ChangeAdminPassword(ctx context.Context, current, next string) error
	InstallID(ctx context.Context) (string, error)
}

type service struct {
	repo Repository
	cfg  config.PasswordConfig
}

// NewService wires a settings service with the provided repository.
func NewService(repo Repository, cfg config.PasswordConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("settings repository required")
	}
	return &service{repo: repo, cfg: cfg}, nil
}

func (s *service) EnsureDefaults(ctx context.Context) error {
	existing, err := s.repo.Get(ctx, models.SettingAdminPasswordHash)
	if err != nil {
		return err
	}
	if existing == nil {
		hash, err := security.HashPassword(s.cfg.DefaultAdmin, s.cfg)
		if err != nil {
			return fmt.Errorf("hashing default admin password: %w", err)
		}
		if err := s.repo.Upsert(ctx, models.SettingAdminPasswordHash, hash); err != nil {
			return err
		}
	}

	stamp, err := s.repo.Get(ctx, models.SettingInstallID)
	if err != nil {
		return err
	}
	if stamp == nil {
		if err := s.repo.Upsert(ctx, models.SettingInstallID, uuid.NewString()); err != nil {
			return err
		}
	}
	return nil
}

func (s *service) VerifyAdminPassword(ctx context.Context, password string) (bool, error) {
	setting, err := s.repo.Get(ctx, models.SettingAdminPasswordHash)
	if err != nil {
		return false, err
	}
	if setting == nil {
		return false, pkgerrors.New(pkgerrors.CodeInternal, "admin credential not provisioned")
	}
	return security.VerifyPassword(password, setting.Value)
}

func (s *service) ChangeAdminPassword(ctx context.Context, current, next string) error {
	ok, err := s.VerifyAdminPassword(ctx, current)
	if err != nil {
		return err
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "current password is incorrect")
	}
	if len(next) < minPasswordLength {
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	hash, err := security.HashPassword(next, s.cfg)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	return s.repo.Upsert(ctx, models.SettingAdminPasswordHash, hash)
}

func (s *service) InstallID(ctx context.Context) (string, error) {
	setting, err := s.repo.Get(ctx, models.SettingInstallID)
	if err != nil {
		return "", err
	}
	if setting == nil {
		return "", pkgerrors.New(pkgerrors.CodeInternal, "install stamp missing")
	}
	return setting.Value, nil
}
