package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all rmesg configuration.
type Config struct {
	Backend      string // "auto", "klog" or "kmsg"
	Follow       bool
	Raw          bool
	PollInterval time.Duration
	KmsgPath     string
	Output       OutputConfig
	LogLevel     string
}

// OutputConfig holds output destination settings.
type OutputConfig struct {
	Format     string // "text" or "json"
	WebhookURL string // empty disables webhook shipping
}

// Load reads configuration from RMESG_* environment variables layered over
// an optional rmesg.yml (working directory or /etc/rmesg), with defaults
// below both.
func Load() (Config, error) {
	v := viper.New()

	v.SetDefault("backend", "auto")
	v.SetDefault("follow", false)
	v.SetDefault("raw", false)
	v.SetDefault("poll_interval", "1s")
	v.SetDefault("kmsg_path", "")
	v.SetDefault("output.format", "text")
	v.SetDefault("output.webhook_url", "")
	v.SetDefault("log_level", "info")

	v.SetEnvPrefix("RMESG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("rmesg")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/rmesg")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("config: %w", err)
		}
	}

	cfg := Config{
		Backend:      v.GetString("backend"),
		Follow:       v.GetBool("follow"),
		Raw:          v.GetBool("raw"),
		PollInterval: v.GetDuration("poll_interval"),
		KmsgPath:     v.GetString("kmsg_path"),
		Output: OutputConfig{
			Format:     v.GetString("output.format"),
			WebhookURL: v.GetString("output.webhook_url"),
		},
		LogLevel: v.GetString("log_level"),
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	return cfg, nil
}
