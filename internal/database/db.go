package database

import (
	"fmt"
	"time"

	"comexiger-backend/internal/config"
	"comexiger-backend/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open connects to the configured database. The handle is passed to every
// component explicitly, there is no package-level connection.
func Open(cfg *config.Config, l zerolog.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DatabaseDSN)
	default:
		dialector = postgres.Open(cfg.DatabaseDSN)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         NewGormLogger(l),
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("no se pudo conectar a la base de datos: %w", err)
	}

	if IsSQLite(db) {
		if err := tuneSQLite(db); err != nil {
			return nil, err
		}
	}
	return db, nil
}

// tuneSQLite serializes writers on a single connection; sqlite has no row locks.
func tuneSQLite(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxOpenConns(1)
	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")
	db.Exec("PRAGMA foreign_keys=ON")
	return nil
}

// Migrate creates or updates every table plus the indexes AutoMigrate cannot express.
func Migrate(db *gorm.DB, l zerolog.Logger) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Mesa{},
		&models.Variety{},
		&models.StockLot{},
		&models.ScanRecord{},
		&models.Shift{},
		&models.AuditLog{},
	)
	if err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}

	// One open shift per mesa, enforced by storage as well as by the ledger.
	if err := db.Exec(
		"CREATE UNIQUE INDEX IF NOT EXISTS uq_shifts_open_table ON shifts (table_number) WHERE ended_at IS NULL",
	).Error; err != nil {
		return fmt.Errorf("índice de jornada abierta: %w", err)
	}

	l.Info().Str("driver", db.Dialector.Name()).Msg("migración completada")
	return nil
}

func IsPostgres(db *gorm.DB) bool {
	return db.Dialector.Name() == "postgres"
}

func IsSQLite(db *gorm.DB) bool {
	return db.Dialector.Name() == "sqlite"
}

type gormWriter struct {
	log zerolog.Logger
}

func (w gormWriter) Printf(format string, args ...interface{}) {
	w.log.Warn().Msgf(format, args...)
}

// NewGormLogger routes slow queries and SQL errors through zerolog.
func NewGormLogger(l zerolog.Logger) gormlogger.Interface {
	return gormlogger.New(gormWriter{log: l.With().Str("component", "gorm").Logger()}, gormlogger.Config{
		SlowThreshold:             300 * time.Millisecond,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}
