// Package config loads service configuration with viper. Precedence:
// defaults < optional config file < environment variables prefixed BELENS_
// (dots replaced by underscores, e.g. BELENS_IDENTITY_REQUIRED).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all runtime configuration for the service.
type Config struct {
	Server struct {
		Listen         string        `mapstructure:"listen"`
		ReadTimeout    time.Duration `mapstructure:"read_timeout"`
		WriteTimeout   time.Duration `mapstructure:"write_timeout"`
		MaxUploadBytes int64         `mapstructure:"max_upload_bytes"`
	} `mapstructure:"server"`

	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`

	GCP struct {
		ProjectID       string `mapstructure:"project_id"`
		CredentialsFile string `mapstructure:"credentials_file"`
	} `mapstructure:"gcp"`

	Storage struct {
		Bucket  string        `mapstructure:"bucket"`
		Timeout time.Duration `mapstructure:"timeout"`
	} `mapstructure:"storage"`

	Firestore struct {
		Collection string        `mapstructure:"collection"`
		Timeout    time.Duration `mapstructure:"timeout"`
	} `mapstructure:"firestore"`

	Identity struct {
		Required bool          `mapstructure:"required"`
		Timeout  time.Duration `mapstructure:"timeout"`
	} `mapstructure:"identity"`

	Model struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"model"`

	Nutrition struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"nutrition"`

	RateLimit struct {
		PerHour int `mapstructure:"per_hour"`
		PerDay  int `mapstructure:"per_day"`
	} `mapstructure:"rate_limit"`
}

// Load reads configuration. configPath may be empty; a missing file is not
// an error because everything has a default or an env override.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.listen", ":8080")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.max_upload_bytes", int64(16<<20))
	v.SetDefault("log.level", "info")
	v.SetDefault("gcp.project_id", "")
	v.SetDefault("gcp.credentials_file", "")
	v.SetDefault("storage.bucket", "image_upload_prediction_belens")
	v.SetDefault("storage.timeout", 15*time.Second)
	v.SetDefault("firestore.collection", "predictions")
	v.SetDefault("firestore.timeout", 10*time.Second)
	v.SetDefault("identity.required", true)
	v.SetDefault("identity.timeout", 5*time.Second)
	v.SetDefault("model.path", "models/beverage_classifier.onnx")
	v.SetDefault("nutrition.path", "data/nutrisi.csv")
	v.SetDefault("rate_limit.per_hour", 30)
	v.SetDefault("rate_limit.per_day", 100)

	v.SetEnvPrefix("BELENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Server.MaxUploadBytes <= 0 {
		return nil, fmt.Errorf("server.max_upload_bytes must be positive")
	}
	if cfg.RateLimit.PerHour <= 0 || cfg.RateLimit.PerDay <= 0 {
		return nil, fmt.Errorf("rate limits must be positive")
	}

	return &cfg, nil
}
