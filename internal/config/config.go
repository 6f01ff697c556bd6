package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Nearby    NearbyConfig
	Presence  PresenceConfig
	Map       MapConfig
}

type ServerConfig struct {
	Port string
	Env  string
	Host string
}

type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type RateLimitConfig struct {
	RefreshPerMin     int
	LocationPerMin    int
	RequestsPerMinute int
}

type NearbyConfig struct {
	PageSize            int
	DetailLimit         int
	DetailTTL           time.Duration
	ThrottleWindow      time.Duration
	ThrottleConstrained time.Duration
}

type PresenceConfig struct {
	DebounceWindow    time.Duration
	WriteCooldown     time.Duration
	RecomputeInterval time.Duration
	ClosestCount      int
	PartnerCount      int
}

type MapConfig struct {
	MinRadiusKm          float64
	MaxRadiusKm          float64
	DefaultRadiusKm      float64
	ClusterResolution    float64
	PrivacyCircleKm      float64
	ObfuscationMaxMeters float64
	PulseMinOpacity      float64
	PulseMaxOpacity      float64
	PulseInterval        time.Duration
}

func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Env:  getEnv("ENV", "development"),
			Host: getEnv("HOST", "0.0.0.0"),
		},
		Postgres: PostgresConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnv("POSTGRES_PORT", "5432"),
			User:     getEnv("POSTGRES_USER", "meetnearby"),
			Password: getEnv("POSTGRES_PASSWORD", ""),
			Database: getEnv("POSTGRES_DB", "meetnearby"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		RateLimit: RateLimitConfig{
			RefreshPerMin:     getEnvAsInt("RATE_LIMIT_REFRESH_PER_MIN", 6),
			LocationPerMin:    getEnvAsInt("RATE_LIMIT_LOCATION_PER_MIN", 6),
			RequestsPerMinute: getEnvAsInt("RATE_LIMIT_REQUESTS_PER_MIN", 120),
		},
		Nearby: NearbyConfig{
			PageSize:            getEnvAsInt("NEARBY_PAGE_SIZE", 50),
			DetailLimit:         getEnvAsInt("NEARBY_DETAIL_LIMIT", 5),
			DetailTTL:           getEnvAsDuration("NEARBY_DETAIL_TTL", 10*time.Minute),
			ThrottleWindow:      getEnvAsDuration("NEARBY_THROTTLE_WINDOW", 60*time.Second),
			ThrottleConstrained: getEnvAsDuration("NEARBY_THROTTLE_CONSTRAINED", 15*time.Second),
		},
		Presence: PresenceConfig{
			DebounceWindow:    getEnvAsDuration("PRESENCE_DEBOUNCE_WINDOW", 500*time.Millisecond),
			WriteCooldown:     getEnvAsDuration("PRESENCE_WRITE_COOLDOWN", 30*time.Second),
			RecomputeInterval: getEnvAsDuration("PRESENCE_RECOMPUTE_INTERVAL", 60*time.Second),
			ClosestCount:      getEnvAsInt("PRESENCE_CLOSEST_COUNT", 5),
			PartnerCount:      getEnvAsInt("PRESENCE_PARTNER_COUNT", 5),
		},
		Map: MapConfig{
			MinRadiusKm:          getEnvAsFloat("MAP_MIN_RADIUS_KM", 1),
			MaxRadiusKm:          getEnvAsFloat("MAP_MAX_RADIUS_KM", 10),
			DefaultRadiusKm:      getEnvAsFloat("MAP_DEFAULT_RADIUS_KM", 5),
			ClusterResolution:    getEnvAsFloat("MAP_CLUSTER_RESOLUTION", 40),
			PrivacyCircleKm:      getEnvAsFloat("MAP_PRIVACY_CIRCLE_KM", 5),
			ObfuscationMaxMeters: getEnvAsFloat("MAP_OBFUSCATION_MAX_METERS", 50),
			PulseMinOpacity:      getEnvAsFloat("MAP_PULSE_MIN_OPACITY", 0.05),
			PulseMaxOpacity:      getEnvAsFloat("MAP_PULSE_MAX_OPACITY", 0.25),
			PulseInterval:        getEnvAsDuration("MAP_PULSE_INTERVAL", 50*time.Millisecond),
		},
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Postgres.Host, c.Postgres.Port, c.Postgres.User,
		c.Postgres.Password, c.Postgres.Database, c.Postgres.SSLMode,
	)
}
