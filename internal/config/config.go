package config

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	Order     OrderConfig
	Pricing   PricingConfig
	Scheduler SchedulerConfig
}

type ServerConfig struct {
	Port int
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	MigrateOnStart  bool
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

type LogConfig struct {
	Level  string
	Format string
}

type OrderConfig struct {
	DispatchDelay        time.Duration
	TxTimeout            time.Duration
	MaxRetryAttempts     int
	WaitingRetryInterval time.Duration
	RestaurantPostalCode string
}

type PricingConfig struct {
	ProfitMargin decimal.Decimal
	VAT          decimal.Decimal
}

type SchedulerConfig struct {
	JobTimeout time.Duration
	KeyTTL     time.Duration
}

func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 3306)
	v.SetDefault("DB_USER", "pizzeria")
	v.SetDefault("DB_PASSWORD", "secret")
	v.SetDefault("DB_NAME", "pizzeria")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "5m")
	v.SetDefault("DB_MIGRATE_ON_START", true)
	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("ORDER_DISPATCH_DELAY", "10m")
	v.SetDefault("ORDER_TX_TIMEOUT", "5s")
	v.SetDefault("ORDER_MAX_RETRY_ATTEMPTS", 3)
	v.SetDefault("ORDER_WAITING_RETRY_INTERVAL", "1m")
	v.SetDefault("RESTAURANT_POSTAL_CODE", "6211")
	v.SetDefault("PRICING_PROFIT_MARGIN", "0.40")
	v.SetDefault("PRICING_VAT", "0.09")
	v.SetDefault("SCHEDULER_JOB_TIMEOUT", "30s")
	v.SetDefault("SCHEDULER_KEY_TTL", "24h")

	connMaxLifetime, err := duration(v, "DB_CONN_MAX_LIFETIME")
	if err != nil {
		return nil, err
	}
	dispatchDelay, err := duration(v, "ORDER_DISPATCH_DELAY")
	if err != nil {
		return nil, err
	}
	txTimeout, err := duration(v, "ORDER_TX_TIMEOUT")
	if err != nil {
		return nil, err
	}
	waitingRetry, err := duration(v, "ORDER_WAITING_RETRY_INTERVAL")
	if err != nil {
		return nil, err
	}
	jobTimeout, err := duration(v, "SCHEDULER_JOB_TIMEOUT")
	if err != nil {
		return nil, err
	}
	keyTTL, err := duration(v, "SCHEDULER_KEY_TTL")
	if err != nil {
		return nil, err
	}

	margin, err := decimal.NewFromString(v.GetString("PRICING_PROFIT_MARGIN"))
	if err != nil {
		return nil, fmt.Errorf("parsing PRICING_PROFIT_MARGIN: %w", err)
	}
	vat, err := decimal.NewFromString(v.GetString("PRICING_VAT"))
	if err != nil {
		return nil, fmt.Errorf("parsing PRICING_VAT: %w", err)
	}

	maxRetryAttempts := v.GetInt("ORDER_MAX_RETRY_ATTEMPTS")
	if maxRetryAttempts < 1 {
		maxRetryAttempts = 1
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: v.GetInt("SERVER_PORT"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("DB_HOST"),
			Port:            v.GetInt("DB_PORT"),
			User:            v.GetString("DB_USER"),
			Password:        v.GetString("DB_PASSWORD"),
			Name:            v.GetString("DB_NAME"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: connMaxLifetime,
			MigrateOnStart:  v.GetBool("DB_MIGRATE_ON_START"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("REDIS_ENABLED"),
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Order: OrderConfig{
			DispatchDelay:        dispatchDelay,
			TxTimeout:            txTimeout,
			MaxRetryAttempts:     maxRetryAttempts,
			WaitingRetryInterval: waitingRetry,
			RestaurantPostalCode: v.GetString("RESTAURANT_POSTAL_CODE"),
		},
		Pricing: PricingConfig{
			ProfitMargin: margin,
			VAT:          vat,
		},
		Scheduler: SchedulerConfig{
			JobTimeout: jobTimeout,
			KeyTTL:     keyTTL,
		},
	}

	return cfg, nil
}

func duration(v *viper.Viper, key string) (time.Duration, error) {
	d, err := time.ParseDuration(v.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return d, nil
}
