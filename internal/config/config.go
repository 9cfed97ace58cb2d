package config

import (
	"fmt"
	"time"

	"github.com/b0ho/glimpse-sub008/internal/domain"
	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	Auth         AuthConfig
	Quota        QuotaConfig
	Logging      LoggingConfig
	GeminiAPIKey string
}

type ServerConfig struct {
	Host         string
	Port         int
	Env          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// AuthConfig selects the auth strategy once at startup. Strategy "jwt" is the
// production path; "dev" bypasses token verification and is refused outside
// the development environment.
type AuthConfig struct {
	Strategy       string
	JWTSecret      string
	TokenExpiryMin int
}

// TierLimits are the numeric quota parameters for one subscription tier.
// A negative cap means uncapped.
type TierLimits struct {
	MaxConcurrentInterests int
	LikesPerDay            int
	SuperLikesPerDay       int
}

// QuotaConfig carries tier economics. These change independently of the
// matching logic, so everything here is externally tunable.
type QuotaConfig struct {
	Tiers            map[domain.SubscriptionTier]TierLimits
	CooldownHours    int
	ResetTimezone    string
	InstantTTLHours  int
	SweepIntervalMin int
}

func (q *QuotaConfig) Limits(tier domain.SubscriptionTier) TierLimits {
	if limits, ok := q.Tiers[tier]; ok {
		return limits
	}
	return q.Tiers[domain.TierBasic]
}

func (q *QuotaConfig) Cooldown() time.Duration {
	return time.Duration(q.CooldownHours) * time.Hour
}

func (q *QuotaConfig) InstantTTL() time.Duration {
	return time.Duration(q.InstantTTLHours) * time.Hour
}

type LoggingConfig struct {
	Level string
}

// Load loads configuration from environment variables or .env file
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	// Try to read from .env file, but don't fail if it doesn't exist
	_ = viper.ReadInConfig()

	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_PORT", 8080)
	viper.SetDefault("ENV", "development")
	viper.SetDefault("DB_SSL_MODE", "disable")
	viper.SetDefault("AUTH_STRATEGY", "jwt")
	viper.SetDefault("AUTH_TOKEN_EXPIRY_MIN", 60*24*7)

	viper.SetDefault("QUOTA_COOLDOWN_HOURS", 24)
	viper.SetDefault("QUOTA_RESET_TZ", "Asia/Seoul")
	viper.SetDefault("QUOTA_INSTANT_TTL_HOURS", 24)
	viper.SetDefault("QUOTA_SWEEP_INTERVAL_MIN", 10)

	viper.SetDefault("QUOTA_BASIC_MAX_INTERESTS", 5)
	viper.SetDefault("QUOTA_BASIC_LIKES_PER_DAY", 20)
	viper.SetDefault("QUOTA_BASIC_SUPER_PER_DAY", 0)
	viper.SetDefault("QUOTA_ADVANCED_MAX_INTERESTS", 20)
	viper.SetDefault("QUOTA_ADVANCED_LIKES_PER_DAY", 50)
	viper.SetDefault("QUOTA_ADVANCED_SUPER_PER_DAY", 3)
	viper.SetDefault("QUOTA_PREMIUM_MAX_INTERESTS", -1)
	viper.SetDefault("QUOTA_PREMIUM_LIKES_PER_DAY", -1)
	viper.SetDefault("QUOTA_PREMIUM_SUPER_PER_DAY", 10)

	config := &Config{
		Server: ServerConfig{
			Host:         viper.GetString("SERVER_HOST"),
			Port:         viper.GetInt("SERVER_PORT"),
			Env:          viper.GetString("ENV"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetInt("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			DBName:   viper.GetString("DB_NAME"),
			SSLMode:  viper.GetString("DB_SSL_MODE"),
		},
		Redis: RedisConfig{
			Enabled:  viper.GetBool("REDIS_ENABLED"),
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetInt("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Auth: AuthConfig{
			Strategy:       viper.GetString("AUTH_STRATEGY"),
			JWTSecret:      viper.GetString("JWT_SECRET"),
			TokenExpiryMin: viper.GetInt("AUTH_TOKEN_EXPIRY_MIN"),
		},
		Quota: QuotaConfig{
			Tiers: map[domain.SubscriptionTier]TierLimits{
				domain.TierBasic: {
					MaxConcurrentInterests: viper.GetInt("QUOTA_BASIC_MAX_INTERESTS"),
					LikesPerDay:            viper.GetInt("QUOTA_BASIC_LIKES_PER_DAY"),
					SuperLikesPerDay:       viper.GetInt("QUOTA_BASIC_SUPER_PER_DAY"),
				},
				domain.TierAdvanced: {
					MaxConcurrentInterests: viper.GetInt("QUOTA_ADVANCED_MAX_INTERESTS"),
					LikesPerDay:            viper.GetInt("QUOTA_ADVANCED_LIKES_PER_DAY"),
					SuperLikesPerDay:       viper.GetInt("QUOTA_ADVANCED_SUPER_PER_DAY"),
				},
				domain.TierPremium: {
					MaxConcurrentInterests: viper.GetInt("QUOTA_PREMIUM_MAX_INTERESTS"),
					LikesPerDay:            viper.GetInt("QUOTA_PREMIUM_LIKES_PER_DAY"),
					SuperLikesPerDay:       viper.GetInt("QUOTA_PREMIUM_SUPER_PER_DAY"),
				},
			},
			CooldownHours:    viper.GetInt("QUOTA_COOLDOWN_HOURS"),
			ResetTimezone:    viper.GetString("QUOTA_RESET_TZ"),
			InstantTTLHours:  viper.GetInt("QUOTA_INSTANT_TTL_HOURS"),
			SweepIntervalMin: viper.GetInt("QUOTA_SWEEP_INTERVAL_MIN"),
		},
		Logging: LoggingConfig{
			Level: viper.GetString("LOG_LEVEL"),
		},
		GeminiAPIKey: viper.GetString("GEMINI_API_KEY"),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates critical configuration values
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}
	if c.Database.DBName == "" {
		return fmt.Errorf("database name is required")
	}
	switch c.Auth.Strategy {
	case "jwt":
		if c.Auth.JWTSecret == "" {
			return fmt.Errorf("JWT secret is required")
		}
		if len(c.Auth.JWTSecret) < 32 {
			return fmt.Errorf("JWT secret must be at least 32 characters")
		}
	case "dev":
		if c.Server.Env != "development" {
			return fmt.Errorf("dev auth strategy is only allowed in development")
		}
	default:
		return fmt.Errorf("unknown auth strategy %q", c.Auth.Strategy)
	}
	if c.Quota.CooldownHours <= 0 {
		return fmt.Errorf("cooldown hours must be positive")
	}
	if _, err := time.LoadLocation(c.Quota.ResetTimezone); err != nil {
		return fmt.Errorf("invalid quota reset timezone: %w", err)
	}
	return nil
}

// GetDSN returns PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// GetAddr returns Redis address
func (c *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
