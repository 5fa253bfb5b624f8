package db

import (
	"database/sql"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"cityvibe/internal/config"
)

// DB bundles the gorm handle with the underlying pool so callers can
// reach either without reopening.
type DB struct {
	Gorm *gorm.DB
	SQL  *sql.DB
}

// Open connects to Postgres, applies the pool limits and pins the
// session timezone. Timestamps are stored and compared in UTC; the
// session setting keeps ad-hoc queries consistent with that.
func Open(cfg config.DBConfig) (*DB, error) {
	gcfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	gdb, err := gorm.Open(postgres.Open(cfg.DSN), gcfg)
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

	if cfg.Timezone != "" {
		if _, err := sqldb.Exec("SET TIME ZONE '" + cfg.Timezone + "'"); err != nil {
			return nil, fmt.Errorf("set session timezone: %w", err)
		}
	}

	return &DB{Gorm: gdb, SQL: sqldb}, nil
}

func Close(db *DB) error {
	if db == nil || db.SQL == nil {
		return nil
	}
	return db.SQL.Close()
}
