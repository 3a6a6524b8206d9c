package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"

	defaultDatabaseDSN = "host=localhost user=postgres password=postgres dbname=restoran port=5432 sslmode=disable"
	defaultCORSOrigins = "http://localhost:5173"
)

type Config struct {
	HTTPPort    string
	AppEnv      string
	CORSOrigins []string

	StoreDriver string
	DatabaseDSN string
	MongoURI    string
	MongoDB     string

	// Sipariş ve iptal transaction'ları için süre ve tekrar limiti
	TxTimeout     time.Duration
	TxMaxAttempts int

	JWTSecret         string
	AccessTokenTTL    time.Duration
	RefreshTokenTTL   time.Duration
	RefreshCookieName string

	LogLevel    string
	LogEncoding string

	NATSURL string

	ReportDir      string
	ReportTimezone string
	ReportAt       string
}

func Load() *Config {
	return &Config{
		HTTPPort:    getEnv("HTTP_PORT", "8080"),
		AppEnv:      getEnv("APP_ENV", "development"),
		CORSOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS", []string{defaultCORSOrigins}),

		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", DriverPostgres)),
		DatabaseDSN: getEnv("DATABASE_DSN", defaultDatabaseDSN),
		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017/?replicaSet=rs0"),
		MongoDB:     getEnv("MONGO_DB", "restoran"),

		TxTimeout:     getEnvDuration("TX_TIMEOUT", 10*time.Second),
		TxMaxAttempts: getEnvInt("TX_MAX_ATTEMPTS", 5),

		JWTSecret:         getEnv("JWT_SECRET", ""),
		AccessTokenTTL:    getEnvDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL:   getEnvDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),
		RefreshCookieName: getEnv("REFRESH_TOKEN_COOKIE_NAME", "refreshToken"),

		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogEncoding: getEnv("LOG_ENCODING", "json"),

		NATSURL: getEnv("NATS_URL", ""),

		ReportDir:      getEnv("REPORT_DIR", ""),
		ReportTimezone: getEnv("REPORT_TIMEZONE", "UTC"),
		ReportAt:       getEnv("REPORT_AT", "01:00"),
	}
}

// Validate - production için zorunlu kontroller. Hata varsa sunucu açılmamalı.
func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET tanımlanmamış"))
	} else if len(c.JWTSecret) < 32 {
		errs = append(errs, errors.New("JWT_SECRET en az 32 karakter olmalı"))
	}
	switch c.StoreDriver {
	case DriverPostgres, DriverMongo, DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("bilinmeyen STORE_DRIVER: %q", c.StoreDriver))
	}
	if c.TxTimeout <= 0 {
		errs = append(errs, errors.New("TX_TIMEOUT pozitif olmalı"))
	}
	if c.TxMaxAttempts < 1 {
		errs = append(errs, errors.New("TX_MAX_ATTEMPTS en az 1 olmalı"))
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		errs = append(errs, errors.New("token süreleri pozitif olmalı"))
	}
	if _, err := time.Parse("15:04", c.ReportAt); err != nil {
		errs = append(errs, fmt.Errorf("REPORT_AT HH:MM formatında olmalı: %w", err))
	}
	return errors.Join(errs...)
}

// Warnings - güvensiz varsayılan değerler
func (c *Config) Warnings() []string {
	var out []string
	if c.StoreDriver == DriverPostgres && c.DatabaseDSN == defaultDatabaseDSN {
		out = append(out, "DATABASE_DSN varsayılan değer kullanılıyor, production için kendi Postgres bağlantı bilgini tanımla")
	}
	if len(c.CORSOrigins) == 1 && c.CORSOrigins[0] == defaultCORSOrigins {
		out = append(out, "CORS_ALLOWED_ORIGINS varsayılan değer kullanılıyor, production için kendi domain'ini tanımla")
	}
	if c.StoreDriver == DriverMemory && c.IsProduction() {
		out = append(out, "STORE_DRIVER=memory production ortamında veri kalıcı değil")
	}
	return out
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return i
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			return d
		}
	}
	return def
}

func getEnvSlice(key string, def []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
