package config

import (
	"fmt"
	"github.com/joho/godotenv"
	"os"
	"strconv"
	"time"
)

type Config struct {
	ApiBaseUrl      string
	ListenAddress   string
	DefaultLocation string
	HttpTimeout     time.Duration
	RedisAddress    string
	DisableRedis    bool
	LogLevel        string
}

// Load reads an optional .env file and then the environment. Variables already
// set in the environment win over the file.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}
	return FromEnv()
}

func FromEnv() (*Config, error) {
	c := &Config{
		ApiBaseUrl:      os.Getenv("api_baseurl"),
		ListenAddress:   getEnv("listen_address", ":8080"),
		DefaultLocation: getEnv("default_location", "Vitoria,Espirito Santo,BRA"),
		RedisAddress:    os.Getenv("redis_address"),
		LogLevel:        getEnv("log_level", "info"),
	}
	if c.ApiBaseUrl == "" {
		return nil, fmt.Errorf("api_baseurl is required")
	}

	if v := os.Getenv("http_timeout"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid http_timeout %q: %w", v, err)
		}
		c.HttpTimeout = d
	}

	disableRedis, err := strconv.ParseBool(os.Getenv("disable_redis"))
	if err == nil {
		c.DisableRedis = disableRedis
	}
	if c.RedisAddress == "" {
		c.DisableRedis = true
	}
	return c, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
