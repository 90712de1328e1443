// Package config loads server settings from defaults, an optional
// config.yaml and NOTECARDS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port     string         `mapstructure:"port"`
	Store    string         `mapstructure:"store"` // mongo | memory
	Mongo    MongoConfig    `mapstructure:"mongodb"`
	Speech   SpeechConfig   `mapstructure:"speech"`
	Composer ComposerConfig `mapstructure:"composer"`
}

type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type SpeechConfig struct {
	Provider        string `mapstructure:"provider"` // browser | fake | none
	Language        string `mapstructure:"language"`
	Continuous      bool   `mapstructure:"continuous"`
	MaxAlternatives int    `mapstructure:"max_alternatives"`
	InterimResults  bool   `mapstructure:"interim_results"`
	ErrorPolicy     string `mapstructure:"error_policy"` // log | stop
}

type ComposerConfig struct {
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
}

// New returns a viper instance with defaults and environment bindings set.
func New() *viper.Viper {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("port", "7521")
	v.SetDefault("store", "mongo")
	v.SetDefault("mongodb.uri", "mongodb://localhost:27017")
	v.SetDefault("mongodb.database", "notecards")
	v.SetDefault("speech.provider", "browser")
	v.SetDefault("speech.language", "pt-BR")
	v.SetDefault("speech.continuous", true)
	v.SetDefault("speech.max_alternatives", 1)
	v.SetDefault("speech.interim_results", true)
	v.SetDefault("speech.error_policy", "log")
	v.SetDefault("composer.idle_timeout", 30*time.Minute)

	v.SetEnvPrefix("NOTECARDS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Unprefixed names kept from earlier deployments.
	_ = v.BindEnv("port", "NOTECARDS_PORT", "PORT")
	_ = v.BindEnv("mongodb.uri", "NOTECARDS_MONGODB_URI", "MONGODB_URI")
	return v
}

// Load reads the config file, if any, and decodes v into a Config.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// MinIdleTimeout is the shortest accepted composer.idle_timeout.
const MinIdleTimeout = time.Second

func (c *Config) Validate() error {
	switch c.Store {
	case "mongo", "memory":
	default:
		return fmt.Errorf("store must be mongo or memory, got %q", c.Store)
	}
	switch c.Speech.Provider {
	case "browser", "fake", "none":
	default:
		return fmt.Errorf("speech.provider must be browser, fake or none, got %q", c.Speech.Provider)
	}
	switch c.Speech.ErrorPolicy {
	case "log", "stop":
	default:
		return fmt.Errorf("speech.error_policy must be log or stop, got %q", c.Speech.ErrorPolicy)
	}
	if c.Speech.MaxAlternatives < 1 {
		return fmt.Errorf("speech.max_alternatives must be at least 1")
	}
	if c.Composer.IdleTimeout < MinIdleTimeout {
		return fmt.Errorf("composer.idle_timeout must be at least %s, got %s", MinIdleTimeout, c.Composer.IdleTimeout)
	}
	return nil
}
