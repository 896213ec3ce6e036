package db

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"eventping/internal/config"
	"eventping/internal/plan"
)

// ErrNotFound is returned by Store lookups when no row matches.
var ErrNotFound = errors.New("record not found")

// Connect opens a GORM database connection using APP_DATABASE_URL (PostgreSQL URL).
func Connect(cfg *config.Config) (*gorm.DB, error) {
	dsn := strings.TrimSpace(cfg.DatabaseURL)
	if dsn == "" {
		return nil, errors.New("APP_DATABASE_URL is required (PostgreSQL URL)")
	}
	if !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") {
		return nil, errors.New("APP_DATABASE_URL must be a postgres:// or postgresql:// URL")
	}

	// PrepareStmt: true prevents the GORM postgres migrator from forcing simple protocol
	// for "SELECT * FROM table LIMIT 1", which would otherwise trigger "insufficient arguments".
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{PrepareStmt: true})
	if err != nil {
		return nil, err
	}

	// Auto-migrate the core tables.
	if err := db.AutoMigrate(
		&User{}, &EventType{}, &Event{},
		&Quota{}, &VerificationToken{}, &DeliveryBucket{},
	); err != nil {
		return nil, err
	}

	return db, nil
}

// EnsureBootstrapTenant makes sure a fresh deployment has one tenant
// that can ingest immediately, keyed by the bootstrap API key from
// config. If a tenant with that email already exists, it is left as-is.
func EnsureBootstrapTenant(db *gorm.DB, cfg *config.Config) error {
	if cfg.BootstrapTenantEmail == "" || cfg.BootstrapAPIKey == "" {
		return nil
	}

	var count int64
	if err := db.Model(&User{}).Where("email = ?", cfg.BootstrapTenantEmail).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.BootstrapAPIKey), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	tenant := &User{
		Email:      cfg.BootstrapTenantEmail,
		Plan:       plan.Free,
		APIKeyHash: string(hash),
	}

	return db.Create(tenant).Error
}
