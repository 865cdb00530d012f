// Package db opens the PostgreSQL connection and applies the schema.
package db

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	migrate "github.com/golang-migrate/migrate/v4"
	// register the postgres driver and file source for golang-migrate
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/diewo77/faktura/internal/config"
	"github.com/diewo77/faktura/internal/models"
)

const (
	connectAttempts = 10
	connectDelay    = 2 * time.Second
)

// MigrationsSource is where the SQL migrations live relative to the
// working directory.
const MigrationsSource = "file://migrations"

// RequiredTables must exist once the schema is applied.
var RequiredTables = []string{"profiles", "clients", "company_settings", "invoices", "invoice_items", "payments", "webhook_events"}

var (
	kvPassword  = regexp.MustCompile(`(password=)(\S+)`)
	urlPassword = regexp.MustCompile(`(://[^:/@]+:)([^@/]+)@`)
)

// MaskDSN hides the password of a key=value or URL DSN.
func MaskDSN(dsn string) string {
	dsn = kvPassword.ReplaceAllString(dsn, `${1}***`)
	return urlPassword.ReplaceAllString(dsn, `${1}***@`)
}

// NormalizeDSN trims quotes and whitespace. A key=value DSN without sslmode
// gets sslmode=disable; URL DSNs are returned as is.
func NormalizeDSN(raw string) string {
	s := strings.Trim(strings.TrimSpace(raw), `"'`)
	lower := strings.ToLower(s)
	if s == "" || strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return s
	}
	s = strings.Join(strings.Fields(s), " ")
	if !strings.Contains(strings.ToLower(s), "sslmode=") {
		s += " sslmode=disable"
	}
	return s
}

// Connect opens the database, retrying while PostgreSQL starts up.
func Connect(ctx context.Context, cfg config.DatabaseConfig, log zerolog.Logger) (*gorm.DB, error) {
	dsn := NormalizeDSN(cfg.DSN())
	level := logger.Silent
	if cfg.Debug {
		level = logger.Info
	}
	gcfg := &gorm.Config{Logger: logger.Default.LogMode(level)}

	var db *gorm.DB
	var err error
	for i := 1; i <= connectAttempts; i++ {
		db, err = gorm.Open(postgres.Open(dsn), gcfg)
		if err == nil {
			break
		}
		log.Warn().Err(err).Int("attempt", i).Msg("database not reachable, retrying")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(connectDelay):
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect database after %d attempts: %w", connectAttempts, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	log.Info().Str("dsn", MaskDSN(dsn)).Msg("database connected")
	return db, nil
}

// Migrate applies the schema: the SQL migrations (with row level security)
// when sqlMigrations is set, gorm's AutoMigrate otherwise.
func Migrate(db *gorm.DB, cfg config.DatabaseConfig, sqlMigrations bool, log zerolog.Logger) error {
	if sqlMigrations {
		log.Info().Msg("running sql migrations")
		if err := RunSQLMigrations(MigrationsSource, cfg.URL()); err != nil {
			return fmt.Errorf("sql migrations: %w", err)
		}
	} else if err := AutoMigrate(db); err != nil {
		return err
	}
	for _, table := range RequiredTables {
		if !db.Migrator().HasTable(table) {
			return errors.New("missing table after migration: " + table)
		}
	}
	return nil
}

// AutoMigrate creates or updates the tables from the models.
func AutoMigrate(db *gorm.DB) error {
	for _, m := range models.All() {
		if err := db.AutoMigrate(m); err != nil {
			return fmt.Errorf("automigrate %T: %w", m, err)
		}
	}
	return nil
}

// RunSQLMigrations applies the migrations found at source to the database
// at url.
func RunSQLMigrations(source, url string) error {
	m, err := migrate.New(source, url)
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
