package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"stockflow/backend/internal/domain"
)

type Config struct {
	Env                    string
	LogLevel               string
	Port                   string
	AllowedOrigin          string
	DatabaseURL            string
	AutoMigrate            bool
	RedisAddr              string
	RedisPassword          string
	RedisDB                int
	ReorderCacheTTLSeconds int
	ReorderRefreshMinutes  int
	AuthSecret             string
	AccessTokenTTLMinutes  int
	SaleStockPolicy        string
	AllowOversell          bool
	SeedTenantID           string
	SeedAdminPassword      string
	SeedCashierPassword    string
}

// Load reads the environment, optionally layered over a .env file in the
// working directory. Environment variables win.
func Load() (Config, error) {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := Config{
		Env:                    strings.ToLower(strings.TrimSpace(v.GetString("APP_ENV"))),
		LogLevel:               v.GetString("LOG_LEVEL"),
		Port:                   v.GetString("PORT"),
		AllowedOrigin:          v.GetString("ALLOWED_ORIGIN"),
		DatabaseURL:            strings.TrimSpace(v.GetString("DATABASE_URL")),
		AutoMigrate:            v.GetBool("DB_AUTO_MIGRATE"),
		RedisAddr:              strings.TrimSpace(v.GetString("REDIS_ADDR")),
		RedisPassword:          v.GetString("REDIS_PASSWORD"),
		RedisDB:                v.GetInt("REDIS_DB"),
		ReorderCacheTTLSeconds: positiveOr(v.GetInt("REORDER_CACHE_TTL_SECONDS"), 300),
		ReorderRefreshMinutes:  positiveOr(v.GetInt("REORDER_REFRESH_MINUTES"), 10),
		AuthSecret:             strings.TrimSpace(v.GetString("AUTH_SECRET")),
		AccessTokenTTLMinutes:  positiveOr(v.GetInt("ACCESS_TOKEN_TTL_MINUTES"), 480),
		SaleStockPolicy:        strings.ToLower(strings.TrimSpace(v.GetString("SALE_STOCK_POLICY"))),
		AllowOversell:          v.GetBool("ALLOW_OVERSELL"),
		SeedTenantID:           strings.TrimSpace(v.GetString("SEED_TENANT_ID")),
		SeedAdminPassword:      v.GetString("SEED_ADMIN_PASSWORD"),
		SeedCashierPassword:    v.GetString("SEED_CASHIER_PASSWORD"),
	}

	switch cfg.SaleStockPolicy {
	case domain.StockPolicyDecrement, domain.StockPolicyNone:
	default:
		return Config{}, fmt.Errorf("SALE_STOCK_POLICY must be %q or %q, got %q", domain.StockPolicyDecrement, domain.StockPolicyNone, cfg.SaleStockPolicy)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("PORT", "8080")
	v.SetDefault("ALLOWED_ORIGIN", "http://127.0.0.1:3000")
	v.SetDefault("DB_AUTO_MIGRATE", true)
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REORDER_CACHE_TTL_SECONDS", 300)
	v.SetDefault("REORDER_REFRESH_MINUTES", 10)
	v.SetDefault("ACCESS_TOKEN_TTL_MINUTES", 480)
	v.SetDefault("SALE_STOCK_POLICY", domain.StockPolicyDecrement)
	v.SetDefault("ALLOW_OVERSELL", false)
	v.SetDefault("SEED_TENANT_ID", "demo")
}

func positiveOr(value int, fallback int) int {
	if value < 1 {
		return fallback
	}
	return value
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}
