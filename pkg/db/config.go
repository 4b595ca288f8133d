package db

import (
	"fmt"
	"strings"
	"time"

	"github.com/smallbiznis/invoicepadi/internal/config"
)

const (
	TypePostgres = "postgres"
	TypeSQLite   = "sqlite"
)

type Config struct {
	Type            string
	Host            string
	Port            string
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxIdleConn     int
	MaxOpenConn     int
	ConnMaxLifetime int
	ConnMaxIdleTime int
}

func fromAppConfig(cfg config.Config) Config {
	return Config{
		Type:            strings.ToLower(strings.TrimSpace(cfg.DBType)),
		Host:            cfg.DBHost,
		Port:            cfg.DBPort,
		Name:            cfg.DBName,
		User:            cfg.DBUser,
		Password:        cfg.DBPassword,
		SSLMode:         cfg.DBSSLMode,
		MaxIdleConn:     cfg.DBMaxIdleConn,
		MaxOpenConn:     cfg.DBMaxOpenConn,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
	}
}

// DSN renders the driver connection string. Timestamps are stored in UTC;
// Lagos time is applied at the presentation layer only.
func (c Config) DSN() (string, error) {
	switch c.Type {
	case TypePostgres:
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
			pgValue(c.Host),
			pgValue(c.Port),
			pgValue(c.User),
			pgValue(c.Password),
			pgValue(c.Name),
			pgValue(orDefault(c.SSLMode, "disable")),
		), nil
	case TypeSQLite:
		return orDefault(c.Name, "invoicepadi.db"), nil
	default:
		return "", fmt.Errorf("unsupported database type %q", c.Type)
	}
}

func (c Config) lifetime() time.Duration {
	return time.Duration(c.ConnMaxLifetime) * time.Second
}

func (c Config) idleTime() time.Duration {
	return time.Duration(c.ConnMaxIdleTime) * time.Second
}

// pgValue quotes a libpq keyword value when it is empty or contains
// whitespace, quotes or backslashes.
func pgValue(v string) string {
	if v != "" && !strings.ContainsAny(v, " '\\\t") {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
