package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"eventarb/internal/config"
)

// ErrDisabled is returned by Open when no DSN is configured.
var ErrDisabled = errors.New("database disabled: db.dsn is empty")

type DB struct {
	Gorm *gorm.DB
	SQL  *sql.DB
}

func Open(cfg config.DBConfig) (*DB, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, ErrDisabled
	}
	gdb, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	sqldb, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqldb.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	out := &DB{Gorm: gdb, SQL: sqldb}
	if err := SetTimezone(out, cfg.Timezone); err != nil {
		_ = sqldb.Close()
		return nil, err
	}
	return out, nil
}

func Close(db *DB) error {
	if db == nil || db.SQL == nil {
		return nil
	}
	return db.SQL.Close()
}

// Ping reports readiness; a disabled database counts as ready.
func Ping(ctx context.Context, db *DB) error {
	if db == nil || db.SQL == nil {
		return nil
	}
	return db.SQL.PingContext(ctx)
}

func SetTimezone(db *DB, tz string) error {
	tz = strings.TrimSpace(tz)
	if tz == "" || db == nil || db.SQL == nil {
		return nil
	}
	_, err := db.SQL.Exec("SET TIME ZONE '" + strings.ReplaceAll(tz, "'", "") + "'")
	return err
}
