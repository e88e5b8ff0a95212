package domain

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds the complete Iris configuration.
type Config struct {
	// Server settings
	Server ServerConfig `yaml:"server"`

	// Classifier artifact source
	Model ModelConfig `yaml:"model"`

	// Feature engineering and explanation settings
	Features FeaturesConfig `yaml:"features"`
	Explain  ExplainConfig  `yaml:"explain"`

	// Component configurations
	Repository RepositoryConfig `yaml:"repository"`
	EventBus   EventBusConfig   `yaml:"eventBus"`
	WebSocket  WebSocketConfig  `yaml:"webSocket"`

	// Observability
	Logging LoggingConfig `yaml:"logging"`
	Tracing TracingConfig `yaml:"tracing"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port" validate:"min=1,max=65535"`
	ReadTimeout  int    `yaml:"readTimeout"`  // seconds
	WriteTimeout int    `yaml:"writeTimeout"` // seconds
}

// Model sources.
const (
	ModelSourceFile       = "file"
	ModelSourceRepository = "repository"
)

// ModelConfig selects the classifier artifact loaded at startup.
type ModelConfig struct {
	// Source is "file" or "repository"
	Source string `yaml:"source" validate:"oneof=file repository"`

	// Path is the artifact file for the file source.
	Path string `yaml:"path" validate:"required_if=Source file"`

	// Name and optional Version for the repository source; an empty
	// version selects the latest stored one.
	Name    string `yaml:"name" validate:"required_if=Source repository"`
	Version string `yaml:"version"`
}

// FeaturesConfig declares additional engineered features.
type FeaturesConfig struct {
	Derivations []DerivationConfig `yaml:"derivations" validate:"dive"`
}

// DerivationConfig is a named CEL expression over normalized fields.
type DerivationConfig struct {
	Name       string `yaml:"name" validate:"required"`
	Expression string `yaml:"expression" validate:"required"`
}

// ExplainConfig controls risk factor ranking.
type ExplainConfig struct {
	TopK int `yaml:"topK" validate:"min=1,max=28"`
}

// WebSocketConfig holds per-connection limits for the /ws transport.
type WebSocketConfig struct {
	MessagesPerSecond float64 `yaml:"messagesPerSecond" validate:"gt=0"`
	Burst             int     `yaml:"burst" validate:"min=1"`
	MaxMessageBytes   int64   `yaml:"maxMessageBytes" validate:"min=512"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json text"`
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled      bool   `yaml:"enabled"`
	ServiceName  string `yaml:"serviceName"`
	ExporterType string `yaml:"exporterType" validate:"omitempty,oneof=stdout otlp"`
	Endpoint     string `yaml:"endpoint"`
}

// DefaultConfig returns the configuration used when no file is given:
// a local artifact file, SQLite for the artifact repository and the
// in-process channel bus (disabled).
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         9000,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Model: ModelConfig{
			Source: ModelSourceFile,
			Path:   "./models/dry-eye-sample.json",
			Name:   "dry-eye",
		},
		Explain: ExplainConfig{
			TopK: 5,
		},
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./iris.db",
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		WebSocket: WebSocketConfig{
			MessagesPerSecond: 5,
			Burst:             10,
			MaxMessageBytes:   64 * 1024,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "iris",
		},
	}
}

// LoadConfig builds the configuration from defaults, an optional YAML file and
// IRIS_* environment overrides, then validates it.
func LoadConfig(path string, getenv func(string) string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, NewConfigurationError("config", fmt.Errorf("read %s: %w", path, err))
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, NewConfigurationError("config", fmt.Errorf("parse %s: %w", path, err))
		}
	}

	if getenv != nil {
		if err := cfg.applyEnv(getenv); err != nil {
			return nil, NewConfigurationError("config", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var configValidate = validator.New()

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if err := configValidate.Struct(c); err != nil {
		return NewConfigurationError("config", err)
	}
	if c.Model.Source == ModelSourceRepository && c.Repository.Driver == "" {
		return NewConfigurationError("config", fmt.Errorf("model source %q requires a repository driver", c.Model.Source))
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v := getenv(key)
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}

	str("IRIS_HOST", &c.Server.Host)
	if err := num("IRIS_PORT", &c.Server.Port); err != nil {
		return err
	}

	str("IRIS_MODEL_SOURCE", &c.Model.Source)
	str("IRIS_MODEL_PATH", &c.Model.Path)
	str("IRIS_MODEL_NAME", &c.Model.Name)
	str("IRIS_MODEL_VERSION", &c.Model.Version)

	str("IRIS_DB_DRIVER", &c.Repository.Driver)
	str("IRIS_SQLITE_PATH", &c.Repository.SQLitePath)
	str("IRIS_POSTGRES_HOST", &c.Repository.PostgresHost)
	if err := num("IRIS_POSTGRES_PORT", &c.Repository.PostgresPort); err != nil {
		return err
	}
	str("IRIS_POSTGRES_USER", &c.Repository.PostgresUser)
	str("IRIS_POSTGRES_PASSWORD", &c.Repository.PostgresPassword)
	str("IRIS_POSTGRES_DB", &c.Repository.PostgresDB)

	if v := getenv("IRIS_BUS"); v != "" {
		c.EventBus.Enabled = true
		c.EventBus.Type = v
	}
	str("IRIS_NATS_URL", &c.EventBus.NATSUrl)
	str("IRIS_NATS_TOKEN", &c.EventBus.NATSToken)

	str("IRIS_LOG_LEVEL", &c.Logging.Level)
	str("IRIS_LOG_FORMAT", &c.Logging.Format)
	if getenv("IRIS_DEBUG") == "true" {
		c.Logging.Level = "debug"
	}

	if v := getenv("IRIS_TRACING"); v != "" {
		c.Tracing.Enabled = true
		c.Tracing.ExporterType = v
	}
	str("IRIS_OTLP_ENDPOINT", &c.Tracing.Endpoint)

	return nil
}
