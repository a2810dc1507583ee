package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration decodes YAML duration strings such as "30s" or "168h".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config holds application configuration.
type Config struct {
	DBPath      string        `yaml:"db_path"`
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"`
	HTTPTimeout Duration      `yaml:"http_timeout"`
	CacheMaxAge Duration      `yaml:"cache_max_age"`
	Logging     LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Format string `yaml:"format"`
	Level  string `yaml:"level"`
}

// DefaultConfig returns configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		DBPath:      "gameshelf.db",
		BaseURL:     "https://api.thegamesdb.net/",
		HTTPTimeout: Duration(30 * time.Second),
		CacheMaxAge: Duration(7 * 24 * time.Hour),
		Logging: LoggingConfig{
			Format: "text",
			Level:  "info",
		},
	}
}

// configPaths returns the list of paths to search for config file.
func configPaths() []string {
	paths := []string{
		".gameshelf.yaml",
		".gameshelf.yml",
	}

	// Check home config dir
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".config", "gameshelf", "config.yaml"),
			filepath.Join(home, ".config", "gameshelf", "config.yml"),
			filepath.Join(home, ".gameshelf.yaml"),
		)
	}

	return paths
}

// Load loads configuration from file or returns defaults.
// Priority: env GAMESHELF_CONFIG > search paths > defaults
func Load() (*Config, error) {
	cfg := DefaultConfig()

	// Check env for explicit config path
	if envPath := os.Getenv("GAMESHELF_CONFIG"); envPath != "" {
		if err := cfg.loadFromFile(envPath); err != nil {
			return nil, err
		}
		cfg.applyEnvOverrides()
		return cfg, cfg.validate()
	}

	// Search for config file
	for _, path := range configPaths() {
		if _, err := os.Stat(path); err == nil {
			if err := cfg.loadFromFile(path); err != nil {
				return nil, err
			}
			break
		}
	}

	cfg.applyEnvOverrides()
	return cfg, cfg.validate()
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) applyEnvOverrides() {
	if dbPath := os.Getenv("GAMESHELF_DB"); dbPath != "" {
		c.DBPath = dbPath
	}
	if key := os.Getenv("GAMESDB_API_KEY"); key != "" {
		c.APIKey = key
	}
	if base := os.Getenv("GAMESDB_BASE_URL"); base != "" {
		c.BaseURL = base
	}
}

func (c *Config) validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base_url must not be empty")
	}
	if c.CacheMaxAge < 0 {
		return fmt.Errorf("cache_max_age must not be negative")
	}
	return nil
}

// GetDBPath returns the database path, applying defaults.
func (c *Config) GetDBPath() string {
	if c.DBPath != "" {
		return c.DBPath
	}
	return "gameshelf.db"
}

// GetHTTPTimeout returns the HTTP client timeout, applying defaults.
func (c *Config) GetHTTPTimeout() time.Duration {
	if c.HTTPTimeout > 0 {
		return time.Duration(c.HTTPTimeout)
	}
	return 30 * time.Second
}

// GetCacheMaxAge returns the cache retention threshold, applying defaults.
func (c *Config) GetCacheMaxAge() time.Duration {
	if c.CacheMaxAge > 0 {
		return time.Duration(c.CacheMaxAge)
	}
	return 7 * 24 * time.Hour
}
