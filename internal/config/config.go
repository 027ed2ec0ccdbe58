package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	SkipTrace   SkipTraceConfig   `yaml:"skiptrace" mapstructure:"skiptrace"`
	PhoneLookup PhoneLookupConfig `yaml:"phonelookup" mapstructure:"phonelookup"`
	Validation  ValidationConfig  `yaml:"validation" mapstructure:"validation"`
	Batch       BatchConfig       `yaml:"batch" mapstructure:"batch"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// SkipTraceConfig holds search-provider API settings.
type SkipTraceConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// PhoneLookupConfig holds phone-intelligence API settings.
type PhoneLookupConfig struct {
	Key         string  `yaml:"key" mapstructure:"key"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RPS         float64 `yaml:"rps" mapstructure:"rps"`
}

// ValidationConfig configures the phone validation policy. A standalone
// policy file takes precedence over the inline knobs when set.
type ValidationConfig struct {
	PolicyFile           string `yaml:"policy_file" mapstructure:"policy_file"`
	MaxAttempts          int    `yaml:"max_attempts" mapstructure:"max_attempts"`
	BaseDelayMs          int    `yaml:"base_delay_ms" mapstructure:"base_delay_ms"`
	InterCallDelayMs     int    `yaml:"inter_call_delay_ms" mapstructure:"inter_call_delay_ms"`
	MaxPrimaryPhones     int    `yaml:"max_primary_phones" mapstructure:"max_primary_phones"`
	MaxSecondOwnerPhones int    `yaml:"max_second_owner_phones" mapstructure:"max_second_owner_phones"`
	MaxPersistedPhones   int    `yaml:"max_persisted_phones" mapstructure:"max_persisted_phones"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	MaxConcurrentRecords int `yaml:"max_concurrent_records" mapstructure:"max_concurrent_records"`
	RecordLimit          int `yaml:"record_limit" mapstructure:"record_limit"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SKIPTRACE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("batch.max_concurrent_records", 5)
	v.SetDefault("batch.record_limit", 100)
	v.SetDefault("skiptrace.base_url", "https://api.skipengine.io/v2")
	v.SetDefault("skiptrace.timeout_secs", 30)
	v.SetDefault("phonelookup.base_url", "https://api.numintel.com/v1")
	v.SetDefault("phonelookup.timeout_secs", 15)
	v.SetDefault("phonelookup.rps", 1.0)
	v.SetDefault("validation.max_attempts", 4)
	v.SetDefault("validation.base_delay_ms", 2000)
	v.SetDefault("validation.inter_call_delay_ms", 1000)
	v.SetDefault("validation.max_primary_phones", 3)
	v.SetDefault("validation.max_second_owner_phones", 2)
	v.SetDefault("validation.max_persisted_phones", 3)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the configuration carries what the given command
// mode needs. Collected problems are reported together.
func (c *Config) Validate(mode string) error {
	var problems []string

	needDB := func() {
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required")
		}
	}

	switch mode {
	case "process":
		needDB()
		if c.SkipTrace.Key == "" {
			problems = append(problems, "skiptrace.key is required")
		}
		if c.PhoneLookup.Key == "" {
			problems = append(problems, "phonelookup.key is required")
		}
		if c.Batch.MaxConcurrentRecords < 1 || c.Batch.MaxConcurrentRecords > 50 {
			problems = append(problems, "batch.max_concurrent_records must be between 1 and 50")
		}
	case "lookup":
		needDB()
		if c.PhoneLookup.Key == "" {
			problems = append(problems, "phonelookup.key is required")
		}
	case "migrate", "status":
		needDB()
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
