package db

import (
	"github.com/smallbiznis/invoicepadi/internal/config"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Dialect opens postgres or sqlite. The schema relies on partial unique
// indexes and ON CONFLICT inserts, so other engines are rejected by DSN.
func Dialect(cfg config.Config) (gorm.Dialector, error) {
	dbCfg := fromAppConfig(cfg)
	dsn, err := dbCfg.DSN()
	if err != nil {
		return nil, err
	}

	switch dbCfg.Type {
	case TypeSQLite:
		return sqlite.Open(dsn), nil
	default:
		return postgres.Open(dsn), nil
	}
}
