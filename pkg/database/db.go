// Package database persists a log of processed VGM files via GORM over the
// pure-Go SQLite driver.
package database

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	// Use modernc.org/sqlite (pure Go, no CGO)
	"gorm.io/driver/sqlite"
	_ "modernc.org/sqlite"

	"github.com/dan-rodrigues/ym2610-pcb/pkg/logger"
)

// DB wraps the GORM database connection
type DB struct {
	db  *gorm.DB
	log *logger.Logger
}

// Config holds database configuration
type Config struct {
	Path string // Path to SQLite database file
}

// NewDB opens (creating if needed) the conversion log database
func NewDB(cfg Config, log *logger.Logger) (*DB, error) {
	if cfg.Path == "" {
		cfg.Path = "conversions.db"
	}

	if dir := filepath.Dir(cfg.Path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	gormLog := gormlogger.New(
		&gormLogAdapter{log: log},
		gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	// The Dialector form selects the pure-Go driver by name.
	dialector := sqlite.Dialector{
		DriverName: "sqlite",
		DSN:        cfg.Path,
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&Conversion{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &DB{db: db, log: log}, nil
}

// GetDB returns the underlying GORM handle
func (d *DB) GetDB() *gorm.DB {
	return d.db
}

// Close closes the database connection
func (d *DB) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// gormLogAdapter routes GORM log output to our logger
type gormLogAdapter struct {
	log *logger.Logger
}

func (a *gormLogAdapter) Printf(format string, args ...interface{}) {
	a.log.Debug(fmt.Sprintf(format, args...))
}
