// Package app assembles the translation bot from its parts.
package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	coreconfig "github.com/m3rciful/translatebot/core/config"
	coredatabase "github.com/m3rciful/translatebot/core/database"
	"gopkg.in/yaml.v3"
)

// PricingConfig sets the translation tariff.
type PricingConfig struct {
	BaseRatePerMillionChars float64 `yaml:"base_rate_per_million_chars" envconfig:"PRICING_BASE_RATE_PER_MILLION_CHARS"`
	ConversionRate          float64 `yaml:"conversion_rate" envconfig:"PRICING_CONVERSION_RATE"`
}

// DeepLConfig configures the translation provider.
type DeepLConfig struct {
	APIKey string `yaml:"api_key" envconfig:"DEEPL_API_KEY"`
	// DocumentMode uploads whole files to DeepL instead of
	// extract-translate-author.
	DocumentMode bool `yaml:"document_mode" envconfig:"DEEPL_DOCUMENT_MODE"`
}

// PaymentsConfig configures Telegram Payments top-ups.
type PaymentsConfig struct {
	ProviderToken string `yaml:"provider_token" envconfig:"PAYMENTS_PROVIDER_TOKEN"`
	TopUpAmounts  []int  `yaml:"topup_amounts" envconfig:"PAYMENTS_TOPUP_AMOUNTS"`
}

// TranslationConfig configures document handling.
type TranslationConfig struct {
	TmpDir string `yaml:"tmp_dir" envconfig:"TRANSLATION_TMP_DIR"`
}

// Config is the full application configuration: the reusable core sections
// plus the bot's own.
type Config struct {
	Core        coreconfig.Config  `yaml:",inline"`
	Database    coredatabase.Config `yaml:"database"`
	Pricing     PricingConfig      `yaml:"pricing"`
	DeepL       DeepLConfig        `yaml:"deepl"`
	Payments    PaymentsConfig     `yaml:"payments"`
	Translation TranslationConfig  `yaml:"translation"`
}

// CoreConfig exposes the embedded core configuration.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Core
}

// Load reads the YAML config, applies environment overrides, and validates.
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

	if err := coreconfig.Normalize(&cfg.Core); err != nil {
		return nil, err
	}
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	if strings.TrimSpace(cfg.DeepL.APIKey) == "" {
		return fmt.Errorf("deepl.api_key is required")
	}
	if cfg.Pricing.BaseRatePerMillionChars < 0 {
		return fmt.Errorf("pricing.base_rate_per_million_chars must be >= 0")
	}
	if cfg.Pricing.ConversionRate < 0 {
		return fmt.Errorf("pricing.conversion_rate must be >= 0")
	}
	for _, a := range cfg.Payments.TopUpAmounts {
		if a <= 0 {
			return fmt.Errorf("payments.topup_amounts entries must be > 0, got %d", a)
		}
	}
	return nil
}
