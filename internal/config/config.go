// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/rovshanmuradov/curvelaunch/internal/fees"
	"github.com/rovshanmuradov/curvelaunch/internal/logger"
)

// Config is the application configuration. It is loaded once and passed
// explicitly to whatever assembles engine calls; nothing reads a global.
type Config struct {
	Network              string        `mapstructure:"network"`
	PlatformFeeBps       uint16        `mapstructure:"platform_fee_bps"`
	DefaultSlippageBps   uint32        `mapstructure:"default_slippage_bps"`
	HighImpactBps        uint32        `mapstructure:"high_impact_bps"`
	ExponentialIncrement uint64        `mapstructure:"exponential_increment"`
	EventBuffer          int           `mapstructure:"event_buffer"`
	SeriesPoints         uint64        `mapstructure:"series_points"`
	Log                  logger.Config `mapstructure:"log"`
}

const (
	DefaultNetwork              = "devnet"
	DefaultPlatformFeeBps       = 100
	DefaultSlippageBps          = 100
	DefaultHighImpactBps        = 500
	DefaultExponentialIncrement = 1000
	DefaultEventBuffer          = 256
	DefaultSeriesPoints         = 20
)

// Networks lists the accepted network names.
var Networks = []string{"mainnet-beta", "devnet", "testnet", "localnet"}

func defaults() map[string]interface{} {
	log := logger.DefaultConfig()
	return map[string]interface{}{
		"network":               DefaultNetwork,
		"platform_fee_bps":      DefaultPlatformFeeBps,
		"default_slippage_bps":  DefaultSlippageBps,
		"high_impact_bps":       DefaultHighImpactBps,
		"exponential_increment": DefaultExponentialIncrement,
		"event_buffer":          DefaultEventBuffer,
		"series_points":         DefaultSeriesPoints,
		"log.file":              log.LogFile,
		"log.max_size_mb":       log.MaxSize,
		"log.max_age_days":      log.MaxAge,
		"log.max_backups":       log.MaxBackups,
		"log.compress":          log.Compress,
		"log.debug":             log.Development,
		"log.console":           log.Console,
	}
}

// LoadConfig reads the config file at path (any format viper knows). An
// empty path loads defaults only. CURVELAUNCH_* environment variables
// override both, e.g. CURVELAUNCH_NETWORK or CURVELAUNCH_LOG_DEBUG.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults() {
		v.SetDefault(key, value)
	}
	loadEnvironmentVariables(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Network = strings.ToLower(strings.TrimSpace(cfg.Network))

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg, err := LoadConfig("")
	if err != nil {
		// defaults always validate; only a bad environment override gets here
		panic(err)
	}
	return cfg
}

// FeeRates combines the platform rate with a launch's creator rate.
func (c *Config) FeeRates(creatorFeeBps uint16) fees.Rates {
	return fees.Rates{PlatformFeeBps: c.PlatformFeeBps, CreatorFeeBps: creatorFeeBps}
}

func validateConfig(cfg *Config) error {
	if !validNetwork(cfg.Network) {
		return fmt.Errorf("invalid network %q, expected one of %s", cfg.Network, strings.Join(Networks, ", "))
	}
	if cfg.PlatformFeeBps > 1000 {
		return fmt.Errorf("%w: platform_fee_bps %d exceeds 1000", fees.ErrInvalidFeeRate, cfg.PlatformFeeBps)
	}
	if cfg.DefaultSlippageBps > fees.BpsDenominator {
		return errors.New("invalid default_slippage_bps")
	}
	if cfg.HighImpactBps == 0 {
		return errors.New("invalid high_impact_bps")
	}
	if cfg.ExponentialIncrement == 0 {
		return errors.New("invalid exponential_increment")
	}
	if cfg.EventBuffer <= 0 {
		return errors.New("invalid event_buffer")
	}
	if cfg.SeriesPoints == 0 {
		return errors.New("invalid series_points")
	}
	return nil
}

func validNetwork(n string) bool {
	for _, known := range Networks {
		if n == known {
			return true
		}
	}
	return false
}

func loadEnvironmentVariables(v *viper.Viper) {
	v.SetEnvPrefix("CURVELAUNCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}
