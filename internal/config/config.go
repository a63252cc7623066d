// ABOUTME: Configuration loading and parsing for charla-gateway
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/charlabot/charla/internal/dialog"
)

// Config represents the complete charla-gateway configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	NATS     NATSConfig     `yaml:"nats"`
	Bot      BotConfig      `yaml:"bot"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig holds authentication configuration. An empty secret disables the
// operator-endpoint token check.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// NATSConfig holds the optional message-bus bridge configuration. The bridge
// is disabled unless a URL is set.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`

	Timeout time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	TimeoutRaw string `yaml:"timeout"`
}

// BotConfig holds the dialogue engine thresholds. Zero values fall back to
// the engine defaults.
type BotConfig struct {
	LowConfidenceThreshold float64 `yaml:"low_confidence_threshold"`
	MaxLowConfStreak       int     `yaml:"max_low_conf_streak"`
	MaxUnresolvedStreak    int     `yaml:"max_unresolved_streak"`
	MisunderstandLimit     int     `yaml:"misunderstand_limit"`
	SemanticThreshold      float64 `yaml:"semantic_threshold"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if cfg.NATS.TimeoutRaw != "" {
		cfg.NATS.Timeout, err = time.ParseDuration(cfg.NATS.TimeoutRaw)
		if err != nil {
			return nil, fmt.Errorf("parsing nats.timeout %q: %w", cfg.NATS.TimeoutRaw, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.NATS.URL != "" && c.NATS.Subject == "" {
		return fmt.Errorf("nats.subject is required when nats.url is set")
	}
	if c.Bot.LowConfidenceThreshold < 0 || c.Bot.LowConfidenceThreshold > 1 {
		return fmt.Errorf("bot.low_confidence_threshold must be within [0, 1]")
	}
	if c.Bot.SemanticThreshold < 0 || c.Bot.SemanticThreshold > 1 {
		return fmt.Errorf("bot.semantic_threshold must be within [0, 1]")
	}
	return nil
}

// RouterConfig translates the bot section into the dialogue engine's config,
// falling back to the engine defaults for unset fields.
func (c *Config) RouterConfig() dialog.Config {
	rc := dialog.DefaultConfig()
	if c.Bot.LowConfidenceThreshold > 0 {
		rc.LowConfidenceThreshold = c.Bot.LowConfidenceThreshold
	}
	if c.Bot.MaxLowConfStreak > 0 {
		rc.MaxLowConfStreak = c.Bot.MaxLowConfStreak
	}
	if c.Bot.MaxUnresolvedStreak > 0 {
		rc.MaxUnresolvedStreak = c.Bot.MaxUnresolvedStreak
	}
	if c.Bot.MisunderstandLimit > 0 {
		rc.MisunderstandLimit = c.Bot.MisunderstandLimit
	}
	if c.Bot.SemanticThreshold > 0 {
		rc.SemanticThreshold = c.Bot.SemanticThreshold
	}
	return rc
}
