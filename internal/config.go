package internal

import (
	"fmt"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

type Config struct {
	BadgerFilepath    string `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath     string `env:"BLUGE_FILEPATH,required=true"`
	LogLevel          string `env:"LOG_LEVEL,default=INFO"`
	ResolverCacheSize int    `env:"RESOLVER_CACHE_SIZE,default=1024"`
	LimitUpdates      *int   `env:"LIMIT_UPDATES"`
	Locale            string `env:"LOCALE,default=en"`
	DebugPort         int    `env:"DEBUG_PORT,default=6060"`
}

// LoadConfig reads the environment, after loading a .env file when one exists.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	if config.ResolverCacheSize <= 0 {
		return Config{}, fmt.Errorf("RESOLVER_CACHE_SIZE must be positive, got %d", config.ResolverCacheSize)
	}
	if config.LimitUpdates != nil && *config.LimitUpdates <= 0 {
		return Config{}, fmt.Errorf("LIMIT_UPDATES must be positive, got %d", *config.LimitUpdates)
	}
	return config, nil
}
