package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds deployment-level settings for hosts of the token lifecycle
// engine: the state signing secret, store backend selection, and logging.
// Tags use mapstructure for Viper unmarshalling.
type Config struct {
	// StateSecret signs callback state tokens. Every instance behind the
	// same callback URL must share it.
	StateSecret     string `mapstructure:"STATE_SECRET"`
	StateMaxAgeMin  int    `mapstructure:"STATE_MAX_AGE_MIN"`
	ExpiryBufferSec int    `mapstructure:"EXPIRY_BUFFER_SEC"`

	CallbackBaseURL string `mapstructure:"CALLBACK_BASE_URL"`

	// StoreBackend selects the token record store: memory, redis, or mongo.
	StoreBackend string `mapstructure:"STORE_BACKEND"`
	RedisAddr    string `mapstructure:"REDIS_ADDR"`
	RedisPrefix  string `mapstructure:"REDIS_PREFIX"`
	MongoURI     string `mapstructure:"MONGO_URI"`
	MongoDBName  string `mapstructure:"MONGO_DB_NAME"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogPretty bool   `mapstructure:"LOG_PRETTY"`
}

// Load reads configuration from file, environment variables, and defaults.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("oauthkit")
	v.SetConfigType("yaml")

	v.AddConfigPath("/etc/oauthkit/")
	v.AddConfigPath("$HOME/.oauthkit")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("STATE_SECRET", "")
	v.SetDefault("CALLBACK_BASE_URL", "")
	v.SetDefault("STATE_MAX_AGE_MIN", 10)
	v.SetDefault("EXPIRY_BUFFER_SEC", 30)
	v.SetDefault("STORE_BACKEND", "memory")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PREFIX", "oauthkit")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017/oauthkit")
	v.SetDefault("MONGO_DB_NAME", "oauthkit")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", true)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is acceptable: defaults and env vars apply.
		// Anything else (permissions, malformed file) is a real error.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	return &cfg, nil
}
