package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`

	// IdentityHeader carries the acting participant name. It is a presence
	// claim only and is not verified.
	IdentityHeader string   `mapstructure:"identity_header" yaml:"identity_header"`
	CORSOrigins    []string `mapstructure:"cors_origins" yaml:"cors_origins"`

	Presence PresenceConfig `mapstructure:"presence" yaml:"presence"`
	Store    StoreConfig    `mapstructure:"store" yaml:"store"`
}

// PresenceConfig controls the inactivity sweep.
type PresenceConfig struct {
	SweepInterval time.Duration `mapstructure:"sweep_interval" yaml:"sweep_interval"`
	StaleAfter    time.Duration `mapstructure:"stale_after" yaml:"stale_after"`
}

// StoreConfig selects and configures the persistence backend.
type StoreConfig struct {
	Driver        string `mapstructure:"driver" yaml:"driver"`
	SQLitePath    string `mapstructure:"sqlite_path" yaml:"sqlite_path"`
	MongoURI      string `mapstructure:"mongo_uri" yaml:"mongo_uri"`
	MongoDatabase string `mapstructure:"mongo_database" yaml:"mongo_database"`
}

const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":5000",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",
		IdentityHeader:    "User",
		CORSOrigins:       []string{"*"},
		Presence: PresenceConfig{
			SweepInterval: 15 * time.Second,
			StaleAfter:    10 * time.Second,
		},
		Store: StoreConfig{
			Driver:        DriverSQLite,
			SQLitePath:    "batepapo.db",
			MongoURI:      "mongodb://localhost:27017",
			MongoDatabase: "batepapo",
		},
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.IdentityHeader != "" {
		c.IdentityHeader = other.IdentityHeader
	}
	if len(other.CORSOrigins) > 0 {
		c.CORSOrigins = other.CORSOrigins
	}
	if other.Presence.SweepInterval != 0 {
		c.Presence.SweepInterval = other.Presence.SweepInterval
	}
	if other.Presence.StaleAfter != 0 {
		c.Presence.StaleAfter = other.Presence.StaleAfter
	}
	if other.Store.Driver != "" {
		c.Store.Driver = other.Store.Driver
	}
	if other.Store.SQLitePath != "" {
		c.Store.SQLitePath = other.Store.SQLitePath
	}
	if other.Store.MongoURI != "" {
		c.Store.MongoURI = other.Store.MongoURI
	}
	if other.Store.MongoDatabase != "" {
		c.Store.MongoDatabase = other.Store.MongoDatabase
	}
}
