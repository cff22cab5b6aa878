package app

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	coreconfig "github.com/m3rciful/refbot/core/config"
	coredatabase "github.com/m3rciful/refbot/core/database"
)

// BotConfig carries the product-level knobs on top of the core transport.
type BotConfig struct {
	// Username builds invite deep-links (t.me/<username>?start=<id>).
	Username string `yaml:"username" envconfig:"BOT_USERNAME"`
	// SupportLink is shown to users as the payment confirmation contact.
	SupportLink string `yaml:"support_link" envconfig:"BOT_SUPPORT_LINK"`

	TopUpMin int64 `yaml:"topup_min" envconfig:"BOT_TOPUP_MIN"`
	TopUpMax int64 `yaml:"topup_max" envconfig:"BOT_TOPUP_MAX"`

	BroadcastPaceMS int `yaml:"broadcast_pace_ms" envconfig:"BOT_BROADCAST_PACE_MS"`
}

// Config is the full application configuration file.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database coredatabase.Config `yaml:"database"`
	Bot      BotConfig           `yaml:"bot"`
}

// CoreConfig exposes the embedded core section to the runner.
func (c *Config) CoreConfig() *coreconfig.Config {
	return &c.Config
}

// Load reads the YAML file, applies environment overrides and validates.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return nil, err
	}
	if err := normalizeBot(&cfg.Bot); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func normalizeBot(cfg *BotConfig) error {
	if cfg.TopUpMin <= 0 {
		cfg.TopUpMin = 10
	}
	if cfg.TopUpMax <= 0 {
		cfg.TopUpMax = 500
	}
	if cfg.TopUpMin > cfg.TopUpMax {
		return fmt.Errorf("bot.topup_min (%d) must not exceed bot.topup_max (%d)", cfg.TopUpMin, cfg.TopUpMax)
	}
	if cfg.BroadcastPaceMS <= 0 {
		cfg.BroadcastPaceMS = 100
	}
	return nil
}
