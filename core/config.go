package core

import (
	"github.com/fox-one/pkg/store/db"
)

// Config termpool config
type Config struct {
	App         App         `json:"app"`
	DB          db.Config   `json:"db"`
	PriceOracle PriceOracle `json:"price_oracle"`
	Admins      []string    `json:"admins"`
}

// IsAdmin check if the user is admin
func (c *Config) IsAdmin(userID string) bool {
	if len(c.Admins) <= 0 {
		return false
	}

	for _, a := range c.Admins {
		if a == userID {
			return true
		}
	}

	return false
}

// App app config
type App struct {
	// maturity pool interval in seconds, default one week
	PoolInterval int64 `json:"pool_interval"`
	// farthest future pools open for new positions
	MaxFuturePools int    `json:"max_future_pools"`
	Location       string `json:"location"`
}

// PriceOracle price oracle config
type PriceOracle struct {
	EndPoint string `json:"end_point"`
}
