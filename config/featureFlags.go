package config

import (
	"os"
	"strings"
)

// NotificationsDisabled silences all outbound notification dispatch, e.g.
// while a tenant is being migrated.
//
// Set via env:
// - NOTIFY_DISABLED=true
func NotificationsDisabled() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("NOTIFY_DISABLED")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

// SkipMigrations skips AutoMigrate on startup. AutoMigrate can run DDL that
// blocks tables; on shared environments migrations run out of band.
//
// Set via env:
// - SKIP_MIGRATIONS=true
func SkipMigrations() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}
