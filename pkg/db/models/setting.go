package models

import "time"

// Setting is a key/value configuration row. The admin credential and the
// install stamp live here; both are mutated only through explicit replace
// operations under the same transactional discipline as ledger writes.
type Setting struct {
	Key       string    `gorm:"column:key;primaryKey"`
	Value     string    `gorm:"column:value;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// Well-known setting keys.
const (
	SettingAdminPasswordHash = "admin_password_hash"
	SettingInstallID         = "install_id"
)
