package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/sangkips/pos-engine/internal/domain/enum"
	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
	Log       LogConfig
	Store     StoreConfig
	Printer   PrinterConfig
}

type AppConfig struct {
	Name  string
	Env   string
	Port  string
	Debug bool
}

type DatabaseConfig struct {
	Driver        string // sqlite or postgres
	Path          string // sqlite file, ":memory:" for an in-memory database
	Host          string
	Port          string
	Name          string
	User          string
	Password      string
	SSLMode       string
	Timezone      string
	MaxOpenConns  int
	SlowThreshold time.Duration
}

type JWTConfig struct {
	Secret      string
	Issuer      string
	ExpiryHours time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

type RateLimitConfig struct {
	Requests int
	Duration int
}

type LogConfig struct {
	Level string
}

type StoreConfig struct {
	Timezone       string
	DayStart       string // HH:MM local time at which the business day opens
	WeightScale    int32
	CurrencyCode   string
	CurrencySymbol string
	PaymentMethods []string
	CartTTL        time.Duration
}

type PrinterConfig struct {
	Type       string // network, usb or none
	Address    string
	PaperWidth int
}

func Load() *Config {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables: %v", err)
	}

	// Set defaults
	viper.SetDefault("APP_NAME", "pos-engine")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("APP_DEBUG", true)
	viper.SetDefault("DB_DRIVER", "sqlite")
	viper.SetDefault("DB_PATH", "./storage/pos.db")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_NAME", "pos")
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_PASSWORD", "")
	viper.SetDefault("DB_SSL_MODE", "disable")
	viper.SetDefault("DB_TIMEZONE", "UTC")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 20)
	viper.SetDefault("DB_SLOW_QUERY_MS", 200)
	viper.SetDefault("JWT_SECRET", "change-this-secret-in-production")
	viper.SetDefault("JWT_ISSUER", "pos-auth")
	viper.SetDefault("JWT_EXPIRY_HOURS", 12)
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	viper.SetDefault("CORS_ALLOWED_HEADERS", "")
	viper.SetDefault("RATE_LIMIT_REQUESTS", 100)
	viper.SetDefault("RATE_LIMIT_DURATION", 60)
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("STORE_TIMEZONE", "UTC")
	viper.SetDefault("STORE_DAY_START", "00:00")
	viper.SetDefault("STORE_WEIGHT_SCALE", 3)
	viper.SetDefault("STORE_CURRENCY_CODE", "MXN")
	viper.SetDefault("STORE_CURRENCY_SYMBOL", "$")
	viper.SetDefault("STORE_PAYMENT_METHODS", "cash,card,transfer,voucher")
	viper.SetDefault("STORE_CART_TTL_MINUTES", 120)
	viper.SetDefault("PRINTER_TYPE", "none")
	viper.SetDefault("PRINTER_ADDRESS", "")
	viper.SetDefault("PRINTER_PAPER_WIDTH", 48)

	return &Config{
		App: AppConfig{
			Name:  viper.GetString("APP_NAME"),
			Env:   viper.GetString("APP_ENV"),
			Port:  viper.GetString("APP_PORT"),
			Debug: viper.GetBool("APP_DEBUG"),
		},
		Database: DatabaseConfig{
			Driver:        strings.ToLower(viper.GetString("DB_DRIVER")),
			Path:          viper.GetString("DB_PATH"),
			Host:          viper.GetString("DB_HOST"),
			Port:          viper.GetString("DB_PORT"),
			Name:          viper.GetString("DB_NAME"),
			User:          viper.GetString("DB_USER"),
			Password:      viper.GetString("DB_PASSWORD"),
			SSLMode:       viper.GetString("DB_SSL_MODE"),
			Timezone:      viper.GetString("DB_TIMEZONE"),
			MaxOpenConns:  viper.GetInt("DB_MAX_OPEN_CONNS"),
			SlowThreshold: time.Duration(viper.GetInt("DB_SLOW_QUERY_MS")) * time.Millisecond,
		},
		JWT: JWTConfig{
			Secret:      viper.GetString("JWT_SECRET"),
			Issuer:      viper.GetString("JWT_ISSUER"),
			ExpiryHours: time.Duration(viper.GetInt("JWT_EXPIRY_HOURS")) * time.Hour,
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(viper.GetString("CORS_ALLOWED_ORIGINS")),
			AllowedMethods: splitList(viper.GetString("CORS_ALLOWED_METHODS")),
			AllowedHeaders: splitList(viper.GetString("CORS_ALLOWED_HEADERS")),
		},
		RateLimit: RateLimitConfig{
			Requests: viper.GetInt("RATE_LIMIT_REQUESTS"),
			Duration: viper.GetInt("RATE_LIMIT_DURATION"),
		},
		Log: LogConfig{
			Level: viper.GetString("LOG_LEVEL"),
		},
		Store: StoreConfig{
			Timezone:       viper.GetString("STORE_TIMEZONE"),
			DayStart:       viper.GetString("STORE_DAY_START"),
			WeightScale:    viper.GetInt32("STORE_WEIGHT_SCALE"),
			CurrencyCode:   viper.GetString("STORE_CURRENCY_CODE"),
			CurrencySymbol: viper.GetString("STORE_CURRENCY_SYMBOL"),
			PaymentMethods: splitList(viper.GetString("STORE_PAYMENT_METHODS")),
			CartTTL:        time.Duration(viper.GetInt("STORE_CART_TTL_MINUTES")) * time.Minute,
		},
		Printer: PrinterConfig{
			Type:       viper.GetString("PRINTER_TYPE"),
			Address:    viper.GetString("PRINTER_ADDRESS"),
			PaperWidth: viper.GetInt("PRINTER_PAPER_WIDTH"),
		},
	}
}

func (c *DatabaseConfig) DSN() string {
	return "host=" + c.Host +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.Name +
		" port=" + c.Port +
		" sslmode=" + c.SSLMode +
		" TimeZone=" + c.Timezone
}

// Location loads the store timezone
func (c *StoreConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid STORE_TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// DayStartOffset parses DayStart as an offset from local midnight
func (c *StoreConfig) DayStartOffset() (time.Duration, error) {
	if c.DayStart == "" {
		return 0, nil
	}
	t, err := time.Parse("15:04", c.DayStart)
	if err != nil {
		return 0, fmt.Errorf("invalid STORE_DAY_START %q: %w", c.DayStart, err)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// AllowedPaymentMethods returns the configured whitelist, ignoring unknown
// names. An empty or fully invalid list falls back to every method.
func (c *StoreConfig) AllowedPaymentMethods() []enum.PaymentMethod {
	var methods []enum.PaymentMethod
	for _, name := range c.PaymentMethods {
		m := enum.PaymentMethod(strings.ToLower(name))
		if m.IsValid() {
			methods = append(methods, m)
		}
	}
	if len(methods) == 0 {
		return append([]enum.PaymentMethod(nil), enum.PaymentMethods...)
	}
	return methods
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
