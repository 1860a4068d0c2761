package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	DB      DBConfig      `mapstructure:"db"`
	JWT     JWTConfig     `mapstructure:"jwt"`
	Session SessionConfig `mapstructure:"session"`
	AppHost string        `mapstructure:"host"`
}

type DBConfig struct {
	Source string `mapstructure:"source"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

type SessionConfig struct {
	// Secret authenticates the transport-session cookie.
	Secret string `mapstructure:"secret"`
	// LifetimeSeconds is how long a non-persistent login session counts as
	// active after its last access.
	LifetimeSeconds int `mapstructure:"lifetime_seconds"`
	// TransportTimeoutSeconds, when non-zero, overrides LifetimeSeconds with
	// the transport-level session timeout.
	TransportTimeoutSeconds int `mapstructure:"transport_timeout_seconds"`
}

// Lifetime returns the effective active-session window.
func (c SessionConfig) Lifetime() time.Duration {
	if c.TransportTimeoutSeconds > 0 {
		return time.Duration(c.TransportTimeoutSeconds) * time.Second
	}
	return time.Duration(c.LifetimeSeconds) * time.Second
}

func Load() (*Config, error) {
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("/configs")
	viper.SetConfigName("settings")
	viper.SetConfigType("yml")

	viper.SetDefault("session.lifetime_seconds", 3600)
	viper.SetDefault("session.transport_timeout_seconds", 0)

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
