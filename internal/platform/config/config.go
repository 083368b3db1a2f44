package config

import (
	"encoding/json"
	"os"
	"sync"
)

type Config struct {
	Exchange map[string]struct {
		Enabled   bool
		ApiKey    string
		ApiSecret string
		Password  string
	}

	Redis struct {
		Addr     string
		DB       int
		Password string
	}

	Catalog struct {
		DSN string
	}

	Spread struct {
		IntervalSeconds int
		AlertThreshold  float64 //fraction, e.g. 0.005 = 0.5%
	}

	Feed struct {
		IntervalSeconds int
	}

	Discord struct {
		WebhookUrl string
	}

	Metrics struct {
		Addr string
	}

	Port int
}

var once sync.Once
var config *Config

func GetConfig() *Config {
	once.Do(func() {
		configBytes, err := os.ReadFile("config.json")
		if err != nil {
			panic(err)
		}
		json.Unmarshal(configBytes, &config)
	})

	return config
}
