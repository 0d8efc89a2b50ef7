package config

import "os"

// Config holds all service configuration loaded from environment variables.
type Config struct {
	Port          string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	SecretKey     string

	WeatherAPIKey string
	WeatherCity   string

	PagesFile string
}

func Load() *Config {
	return &Config{
		Port:          getenv("PORT", "8080"),
		DatabaseURL:   getenv("DATABASE_URL", ""),
		RedisAddr:     getenv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getenv("REDIS_PASSWORD", ""),
		SecretKey:     getenv("SECRET_KEY", ""),
		WeatherAPIKey: getenv("WEATHER_API_KEY", ""),
		WeatherCity:   getenv("WEATHER_CITY", "Copenhagen"),
		PagesFile:     getenv("PAGES_FILE", "pages.json"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
