package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Auth      AuthConfig      `yaml:"auth"`
	Storage   StorageConfig   `yaml:"storage"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Session   SessionConfig   `yaml:"session"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

// Primary store backends.
const (
	PrimaryPostgres = "postgres"
	PrimaryHTTP     = "http"
	PrimaryNone     = "none"
)

type StorageConfig struct {
	// Primary is postgres, http or none. The local store is always the
	// fallback.
	Primary     string         `yaml:"primary"`
	Database    DatabaseConfig `yaml:"database"`
	HTTP        HTTPConfig     `yaml:"http"`
	LocalDir    string         `yaml:"local_dir"`
	ChunkSize   int            `yaml:"chunk_size"`
	Compression string         `yaml:"compression"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

// HTTPConfig points at another instance's storage API.
type HTTPConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
}

type CatalogConfig struct {
	// File is a YAML catalog. Empty uses the stored catalog, then the
	// built-in one.
	File            string `yaml:"file"`
	AlwaysAvailable string `yaml:"always_available"`
}

type SessionConfig struct {
	AdvanceDelay time.Duration `yaml:"advance_delay"`
	DefaultRest  int           `yaml:"default_rest"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

func defaults() *Config {
	return &Config{
		Server:  ServerConfig{Host: "0.0.0.0", Port: 8080},
		Storage: StorageConfig{Primary: PrimaryNone, LocalDir: "data", ChunkSize: 4096, Compression: "none"},
		Catalog: CatalogConfig{AlwaysAvailable: "daily_fitness"},
		Session: SessionConfig{AdvanceDelay: 800 * time.Millisecond, DefaultRest: 60},
		Tailscale: TailscaleConfig{
			Hostname: "repflow",
			StateDir: "tsnet-state",
		},
	}
}

// Load reads config from a YAML file over the defaults, then applies
// environment variable overrides. Env vars use the prefix REPFLOW_ and
// underscore-separated paths:
//
//	REPFLOW_SERVER_HOST, REPFLOW_SERVER_PORT, REPFLOW_AUTH_API_KEY,
//	REPFLOW_STORAGE_PRIMARY, REPFLOW_STORAGE_LOCAL_DIR,
//	REPFLOW_STORAGE_CHUNK_SIZE, REPFLOW_STORAGE_COMPRESSION,
//	REPFLOW_DB_HOST, REPFLOW_DB_PORT, REPFLOW_DB_NAME,
//	REPFLOW_DB_USER, REPFLOW_DB_PASSWORD, REPFLOW_DB_SSLMODE,
//	REPFLOW_HTTP_URL, REPFLOW_HTTP_API_KEY,
//	REPFLOW_CATALOG_FILE, REPFLOW_TAILSCALE_ENABLED
func Load(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	setString := func(name string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	setInt := func(name string, dst *int) {
		if v := os.Getenv(name); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	setString("REPFLOW_SERVER_HOST", &cfg.Server.Host)
	setInt("REPFLOW_SERVER_PORT", &cfg.Server.Port)
	setString("REPFLOW_AUTH_API_KEY", &cfg.Auth.APIKey)

	setString("REPFLOW_STORAGE_PRIMARY", &cfg.Storage.Primary)
	setString("REPFLOW_STORAGE_LOCAL_DIR", &cfg.Storage.LocalDir)
	setInt("REPFLOW_STORAGE_CHUNK_SIZE", &cfg.Storage.ChunkSize)
	setString("REPFLOW_STORAGE_COMPRESSION", &cfg.Storage.Compression)

	setString("REPFLOW_DB_HOST", &cfg.Storage.Database.Host)
	setInt("REPFLOW_DB_PORT", &cfg.Storage.Database.Port)
	setString("REPFLOW_DB_NAME", &cfg.Storage.Database.Name)
	setString("REPFLOW_DB_USER", &cfg.Storage.Database.User)
	setString("REPFLOW_DB_PASSWORD", &cfg.Storage.Database.Password)
	setString("REPFLOW_DB_SSLMODE", &cfg.Storage.Database.SSLMode)

	setString("REPFLOW_HTTP_URL", &cfg.Storage.HTTP.URL)
	setString("REPFLOW_HTTP_API_KEY", &cfg.Storage.HTTP.APIKey)

	setString("REPFLOW_CATALOG_FILE", &cfg.Catalog.File)

	if v := os.Getenv("REPFLOW_TAILSCALE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Tailscale.Enabled = b
		}
	}
}

func (c *Config) validate() error {
	if c.Server.Port == 0 && !c.Tailscale.Enabled {
		return fmt.Errorf("server.port is required")
	}
	if c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key is required")
	}

	switch c.Storage.Primary {
	case PrimaryPostgres:
		db := c.Storage.Database
		if db.Host == "" {
			return fmt.Errorf("storage.database.host is required")
		}
		if db.Port == 0 {
			return fmt.Errorf("storage.database.port is required")
		}
		if db.Name == "" {
			return fmt.Errorf("storage.database.name is required")
		}
		if db.User == "" {
			return fmt.Errorf("storage.database.user is required")
		}
	case PrimaryHTTP:
		if c.Storage.HTTP.URL == "" {
			return fmt.Errorf("storage.http.url is required")
		}
	case PrimaryNone:
	default:
		return fmt.Errorf("storage.primary must be postgres, http or none, got %q", c.Storage.Primary)
	}

	switch c.Storage.Compression {
	case "", "none", "zstd", "lz4":
	default:
		return fmt.Errorf("storage.compression must be none, zstd or lz4, got %q", c.Storage.Compression)
	}
	if c.Storage.ChunkSize < 0 {
		return fmt.Errorf("storage.chunk_size must not be negative")
	}
	if c.Session.AdvanceDelay < 0 {
		return fmt.Errorf("session.advance_delay must not be negative")
	}
	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}
	return nil
}
