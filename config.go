package loam

import (
	"time"
)

// Config consolidates engine settings.
type Config struct {
	Database DatabaseConfig `json:"database"`
	Query    QueryConfig    `json:"query"`
	Logging  LoggingConfig  `json:"logging"`
}

// DatabaseConfig contains connection settings for whichever dialect the
// engine runs against. Connection lifecycle stays with the caller; the
// engine only consumes an already-opened handle.
type DatabaseConfig struct {
	Dialect         Dialect       `json:"dialect"`
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	Database        string        `json:"database"`
	Username        string        `json:"username"`
	Password        string        `json:"password"`
	SSLMode         string        `json:"sslMode"`
	MaxConnections  int           `json:"maxConnections"`
	ConnMaxLifetime time.Duration `json:"connMaxLifetime"`
	Timeout         time.Duration `json:"timeout"`
	TableNames      TableNames    `json:"tableNames"`
}

// TableNames holds the physical table names the engine touches.
type TableNames struct {
	ContentItems string `json:"contentItems"`
	Users        string `json:"users"`
	Routes       string `json:"routes"`
	WebTemplates string `json:"webTemplates"`
}

// QueryConfig contains query execution settings.
type QueryConfig struct {
	DefaultPageSize int           `json:"defaultPageSize"`
	MaxPageSize     int           `json:"maxPageSize"`
	DefaultTimeout  time.Duration `json:"defaultTimeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Dialect:         DialectPostgres,
			Host:            "localhost",
			Port:            5432,
			SSLMode:         "prefer",
			MaxConnections:  10,
			ConnMaxLifetime: time.Hour,
			Timeout:         30 * time.Second,
			TableNames:      DefaultTableNames(),
		},
		Query: QueryConfig{
			DefaultPageSize: 50,
			MaxPageSize:     1000,
			DefaultTimeout:  30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// DefaultTableNames returns the default physical table names.
func DefaultTableNames() TableNames {
	return TableNames{
		ContentItems: "ContentItems",
		Users:        "Users",
		Routes:       "Routes",
		WebTemplates: "WebTemplates",
	}
}

// Normalize fills zero values with defaults.
func (c *Config) Normalize() {
	defaults := DefaultConfig()
	if c.Database.Dialect == "" {
		c.Database.Dialect = defaults.Database.Dialect
	}
	if c.Database.TableNames == (TableNames{}) {
		c.Database.TableNames = defaults.Database.TableNames
	}
	if c.Query.DefaultPageSize <= 0 {
		c.Query.DefaultPageSize = defaults.Query.DefaultPageSize
	}
	if c.Query.MaxPageSize <= 0 {
		c.Query.MaxPageSize = defaults.Query.MaxPageSize
	}
	if c.Query.DefaultTimeout <= 0 {
		c.Query.DefaultTimeout = defaults.Query.DefaultTimeout
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaults.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = defaults.Logging.Format
	}
}
