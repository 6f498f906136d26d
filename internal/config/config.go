package config // package config loads application configuration from environment variables

import (
	"fmt"     // fmt formats configuration errors
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types

	"github.com/joho/godotenv"      // godotenv loads a local .env file when present
	"github.com/shopspring/decimal" // decimal parses the sales tax rate
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Required values are validated by Load; optional
// ones fall back to defaults.
type Config struct {
	Env            string          // application environment (e.g. "dev", "production")
	Port           string          // HTTP port to listen on
	LogLevel       string          // zap level: debug, info, warn, error
	DBUser         string          // database username
	DBPass         string          // database password (optional)
	DBHost         string          // database host address
	DBPort         string          // database port number
	DBName         string          // database name
	JWTSecret      string          // secret used to sign JWTs
	AccessTTLMin   int             // access token time-to-live in minutes
	RefreshTTLDays int             // refresh token time-to-live in days
	BcryptCost     int             // bcrypt cost for password hashing
	TaxRate        decimal.Decimal // sales tax applied to every transaction subtotal
	Allocation     AllocationPolicy
}

// AllocationPolicy toggles the two corrective stock flows.  Both default to
// false, which forfeits stock on removal and treats updates as absolute sets
// that never touch the master stock.
type AllocationPolicy struct {
	ReturnOnRemove    bool // ALLOCATION_RETURN_ON_REMOVE
	ReconcileOnUpdate bool // ALLOCATION_RECONCILE_ON_UPDATE
}

// DefaultTaxRate is the 10% sales tax applied when TAX_RATE is unset.
var DefaultTaxRate = decimal.New(1, -1)

// Load reads a .env file if one exists and then builds a Config from the
// environment.  Unlike the handlers, configuration problems are reported as
// an error so the caller decides how to exit.
func Load() (Config, error) {
	_ = godotenv.Load() // missing .env is fine; real env vars win

	var errs []string
	must := func(key string) string {
		v, ok := os.LookupEnv(key)
		if !ok || v == "" {
			errs = append(errs, "missing required env var: "+key)
		}
		return v
	}
	mustInt := func(key string) int {
		s := must(key)
		if s == "" {
			return 0
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			errs = append(errs, fmt.Sprintf("invalid int for %s: %q", key, s))
		}
		return n
	}

	cfg := Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		LogLevel:       envStr("LOG_LEVEL", "info"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"),
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:     envInt("BCRYPT_COST", 10),
		TaxRate:        DefaultTaxRate,
		Allocation: AllocationPolicy{
			ReturnOnRemove:    envBool("ALLOCATION_RETURN_ON_REMOVE", false),
			ReconcileOnUpdate: envBool("ALLOCATION_RECONCILE_ON_UPDATE", false),
		},
	}

	if raw := os.Getenv("TAX_RATE"); raw != "" {
		rate, err := decimal.NewFromString(raw)
		if err != nil || rate.IsNegative() {
			errs = append(errs, fmt.Sprintf("invalid TAX_RATE: %q", raw))
		} else {
			cfg.TaxRate = rate
		}
	}

	if len(errs) > 0 {
		return Config{}, fmt.Errorf("config: %v", errs)
	}
	return cfg, nil
}
