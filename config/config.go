package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig holds all configuration for the hashfleet server.
// Tags use mapstructure for Viper unmarshalling and env binding.
type ServerConfig struct {
	HTTPPort string `mapstructure:"HTTP_PORT"`

	// StorageBackend selects the user/project/hashlist store: "memory" or "mongodb".
	StorageBackend string `mapstructure:"STORAGE_BACKEND"`
	MongoURI       string `mapstructure:"MONGO_URI"`
	MongoDBName    string `mapstructure:"MONGO_DB_NAME"`

	// SessionBackend selects the session store: "memory" or "redis".
	SessionBackend string `mapstructure:"SESSION_BACKEND"`
	RedisAddr      string `mapstructure:"REDIS_ADDR"`
	RedisPassword  string `mapstructure:"REDIS_PASSWORD"`
	RedisKeyPrefix string `mapstructure:"REDIS_KEY_PREFIX"`

	// SessionSecret signs the session cookie token. Must be set to a strong
	// random value in production.
	SessionSecret      string `mapstructure:"SESSION_SECRET"`
	SessionLifetimeMin int    `mapstructure:"SESSION_LIFETIME_MIN"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogPretty bool   `mapstructure:"LOG_PRETTY"`

	// MFARequired forces TOTP enrollment for every user not carrying the
	// mfa_exempt role.
	MFARequired bool `mapstructure:"MFA_REQUIRED"`

	// LoginMinDelayMS pads credential login responses to a minimum duration
	// so failures are not distinguishable by timing.
	LoginMinDelayMS int `mapstructure:"LOGIN_MIN_DELAY_MS"`

	OIDCIssuer       string `mapstructure:"OIDC_ISSUER"`
	OIDCClientID     string `mapstructure:"OIDC_CLIENT_ID"`
	OIDCClientSecret string `mapstructure:"OIDC_CLIENT_SECRET"`
	OIDCRedirectURL  string `mapstructure:"OIDC_REDIRECT_URL"`
	// OIDCAutoProvision creates a local account on first OIDC login.
	OIDCAutoProvision bool `mapstructure:"OIDC_AUTO_PROVISION"`
}

func (c *ServerConfig) SessionLifetime() time.Duration {
	return time.Duration(c.SessionLifetimeMin) * time.Minute
}

func (c *ServerConfig) LoginMinDelay() time.Duration {
	return time.Duration(c.LoginMinDelayMS) * time.Millisecond
}

func (c *ServerConfig) OIDCEnabled() bool {
	return c.OIDCIssuer != ""
}

// LoadConfig reads configuration from file, environment variables, and defaults.
func LoadConfig() (*ServerConfig, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("/etc/hashfleet/")
	v.AddConfigPath("$HOME/.hashfleet")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("STORAGE_BACKEND", "mongodb")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017/hashfleet")
	v.SetDefault("MONGO_DB_NAME", "hashfleet")
	v.SetDefault("SESSION_BACKEND", "memory")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_KEY_PREFIX", "hashfleet")
	v.SetDefault("SESSION_SECRET", "change_me_before_deploying")
	v.SetDefault("SESSION_LIFETIME_MIN", 60)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", true)
	v.SetDefault("MFA_REQUIRED", false)
	v.SetDefault("LOGIN_MIN_DELAY_MS", 250)
	v.SetDefault("OIDC_AUTO_PROVISION", false)

	if err := v.ReadInConfig(); err != nil {
		// a missing config file is fine, defaults and env vars carry it
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	return &cfg, nil
}
