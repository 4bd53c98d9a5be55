package config

import (
	"fmt"
	"strings"
	"time"
)

// DatabaseConfig is the Postgres connection used for subscriptions,
// onboarding state and the processed-event ledger.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	LogLevel string `yaml:"log_level"`

	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`

	// Startup only. The gateway keeps retrying while Postgres comes up.
	ConnectAttempts   int           `yaml:"connect_attempts"`
	ConnectRetryDelay time.Duration `yaml:"connect_retry_delay"`
}

// DSN renders a libpq keyword/value string. Values are quoted so that
// passwords with spaces or quotes survive.
func (c *DatabaseConfig) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	pairs := []string{
		"host=" + dsnQuote(c.Host),
		fmt.Sprintf("port=%d", c.Port),
		"user=" + dsnQuote(c.User),
		"password=" + dsnQuote(c.Password),
		"dbname=" + dsnQuote(c.Name),
		"sslmode=" + sslMode,
	}
	return strings.Join(pairs, " ")
}

func (c *DatabaseConfig) validate() error {
	if c.Host == "" || c.Name == "" {
		return fmt.Errorf("database.host and database.name are required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("database.port %d is out of range", c.Port)
	}
	if c.MaxOpenConns > 0 && c.MaxIdleConns > c.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) exceeds max_open_conns (%d)", c.MaxIdleConns, c.MaxOpenConns)
	}
	return nil
}

func dsnQuote(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}
