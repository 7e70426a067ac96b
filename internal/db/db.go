package db

import (
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/rmcmillan34/edge-journal/internal/config"
)

type DB struct {
	Gorm    *gorm.DB
	SQL     *sql.DB
	Dialect string
}

func Open(cfg config.DBConfig) (*DB, error) {
	gcfg := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		NowFunc:        NowUTC,
		TranslateError: true,
	}

	var dialector gorm.Dialector
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "", "postgres", "postgresql":
		driver = "postgres"
		dialector = postgres.Open(cfg.DSN)
	case "sqlite", "sqlite3":
		driver = "sqlite"
		dsn := cfg.DSN
		if dsn == "" {
			dsn = "file::memory:?cache=shared"
		}
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported db driver %q", cfg.Driver)
	}

	gdb, err := gorm.Open(dialector, gcfg)
	if err != nil {
		return nil, err
	}

	sqldb, err := gdb.DB()
	if err != nil {
		return nil, err
	}

	if driver == "sqlite" {
		// one writer keeps in-memory databases shared and avoids SQLITE_BUSY
		sqldb.SetMaxOpenConns(1)
	} else {
		sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
		sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
		sqldb.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		sqldb.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	return &DB{Gorm: gdb, SQL: sqldb, Dialect: driver}, nil
}

func Close(db *DB) error {
	if db == nil || db.SQL == nil {
		return nil
	}
	return db.SQL.Close()
}

func Ping(db *DB) error {
	if db == nil || db.SQL == nil {
		return nil
	}
	return db.SQL.Ping()
}

var tzPattern = regexp.MustCompile(`^[A-Za-z0-9_/+\-]+$`)

// SetTimezone applies the session timezone on postgres; sqlite has none.
func SetTimezone(db *DB, tz string) error {
	if tz == "" || db == nil || db.Dialect != "postgres" {
		return nil
	}
	if !tzPattern.MatchString(tz) {
		return fmt.Errorf("invalid timezone %q", tz)
	}
	_, err := db.SQL.Exec("SET TIME ZONE '" + tz + "'")
	return err
}

func NowUTC() time.Time {
	return time.Now().UTC()
}
