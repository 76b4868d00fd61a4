package config

import (
	"termpool/core"
	"termpool/internal/termpool"

	configUtil "github.com/fox-one/pkg/config"
)

// Load load config file
func Load(configFile string, config *core.Config) error {
	configUtil.AutomaticLoadEnv("TERMPOOL")
	if err := configUtil.LoadYaml(configFile, config); err != nil {
		return err
	}

	defaults(config)
	return nil
}

func defaults(config *core.Config) {
	if config.App.PoolInterval <= 0 {
		config.App.PoolInterval = termpool.DefaultInterval
	}
	if config.App.MaxFuturePools <= 0 {
		config.App.MaxFuturePools = termpool.DefaultMaxFuturePools
	}
}
