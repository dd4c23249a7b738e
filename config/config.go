package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	DatabaseURL       string `mapstructure:"DATABASE_URL"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// Redis configuration.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB  int    `mapstructure:"REDIS_CACHE_DB"`
	RedisHoldsDB  int    `mapstructure:"REDIS_HOLDS_DB"`
	RedisSweepDB  int    `mapstructure:"REDIS_SWEEP_DB"`

	// Reservation gate.
	PendingHoldMinutes int `mapstructure:"PENDING_HOLD_MINUTES"` // pending bookings auto-release after this

	// Slot generation.
	SlotGranularityMinutes int `mapstructure:"SLOT_GRANULARITY_MINUTES"` // 0 = service duration

	// Wait-time estimator.
	SampleWindowSize      int `mapstructure:"SAMPLE_WINDOW_SIZE"`      // recent completions considered
	MinSampleCount        int `mapstructure:"MIN_SAMPLE_COUNT"`        // below this, fall back to shop default
	DefaultServiceMinutes int `mapstructure:"DEFAULT_SERVICE_MINUTES"` // global fallback when shop has none

	// Availability snapshot cache.
	AvailabilityCacheTTLSeconds int `mapstructure:"AVAILABILITY_CACHE_TTL_SECONDS"`

	// Background sweeps.
	SweepIntervalMinutes int `mapstructure:"SWEEP_INTERVAL_MINUTES"`

	// WaitFactors is the time-of-day/day-of-week adjustment curve, keyed
	// "weekday:hour" (e.g. "Sat:10"). Missing keys default to 1.0. Policy
	// input supplied via config, never hard-coded.
	WaitFactors map[string]float64 `mapstructure:"WAIT_FACTORS"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_CACHE_DB", 0)
	viper.SetDefault("REDIS_HOLDS_DB", 1)
	viper.SetDefault("REDIS_SWEEP_DB", 2)
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("PENDING_HOLD_MINUTES", 5)
	viper.SetDefault("SLOT_GRANULARITY_MINUTES", 0)
	viper.SetDefault("SAMPLE_WINDOW_SIZE", 20)
	viper.SetDefault("MIN_SAMPLE_COUNT", 3)
	viper.SetDefault("DEFAULT_SERVICE_MINUTES", 20)
	viper.SetDefault("AVAILABILITY_CACHE_TTL_SECONDS", 30)
	viper.SetDefault("SWEEP_INTERVAL_MINUTES", 1)

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
