package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

type Config struct {
	Mode   string `mapstructure:"mode"`
	Server struct {
		HTTPPort    string        `mapstructure:"HTTPPort"`
		MetricsPort string        `mapstructure:"metricsPort"`
		Timeout     time.Duration `mapstructure:"HTTPTimeout"`
	} `mapstructure:"server"`
	Repositories struct {
		Postgres struct {
			Host     string `mapstructure:"host"`
			Password string `mapstructure:"password"`
			Port     string `mapstructure:"port"`
			Username string `mapstructure:"username"`
			DB       string `mapstructure:"db"`
			SSLMode  string `mapstructure:"sslmode"`
		} `mapstructure:"postgres"`
	} `mapstructure:"repositories"`
	JWT  JWTConfig  `mapstructure:"jwt"`
	Auth AuthConfig `mapstructure:"auth"`
	// Retention governs the deletion grace period and the sweep job.
	Retention RetentionConfig `mapstructure:"retention"`
	SMTP      SMTPConfig      `mapstructure:"smtp"`
}

type JWTConfig struct {
	SecretKey       string        `mapstructure:"secretKey"`
	Issuer          string        `mapstructure:"issuer"`
	Audience        string        `mapstructure:"audience"`
	AccessTokenTTL  time.Duration `mapstructure:"accessTokenTTL"`
	RefreshTokenTTL time.Duration `mapstructure:"refreshTokenTTL"`
}

type AuthConfig struct {
	// RequireEmailVerification gates login on a confirmed email address.
	RequireEmailVerification bool          `mapstructure:"requireEmailVerification"`
	LoginAttemptWindow       time.Duration `mapstructure:"loginAttemptWindow"`
	LoginMaxAttempts         int           `mapstructure:"loginMaxAttempts"`
	SessionSecret            string        `mapstructure:"sessionSecret"`
}

type RetentionConfig struct {
	GraceDays     int           `mapstructure:"graceDays"`
	SweepInterval time.Duration `mapstructure:"sweepInterval"`
	// BatchLimit caps how many expired accounts a single sweep run touches;
	// the remainder is deferred to the next run.
	BatchLimit  int    `mapstructure:"batchLimit"`
	Concurrency int    `mapstructure:"concurrency"`
	APIKey      string `mapstructure:"apiKey"`
}

type SMTPConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	From     string `mapstructure:"from"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// GracePeriod returns the configured deletion grace period as a duration.
func (r RetentionConfig) GracePeriod() time.Duration {
	days := r.GraceDays
	if days <= 0 {
		days = 30
	}
	return time.Duration(days) * 24 * time.Hour
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	// Add file-based config paths
	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	// Try to load file-based config
	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %s", err)
		}
	}

	// Unmarshal the config into the Config struct
	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %s", err)
	}
	return config, nil
}
