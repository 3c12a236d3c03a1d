package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds runtime configuration sourced from env vars.
type Config struct {
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBHost      string `mapstructure:"DB_HOST"`
	DBPort      string `mapstructure:"DB_PORT"`
	DBUser      string `mapstructure:"DB_USER"`
	DBPassword  string `mapstructure:"DB_PASSWORD"`
	DBName      string `mapstructure:"DB_NAME"`
	DBSSLMode   string `mapstructure:"DB_SSLMODE"`

	SourceDialect    string `mapstructure:"SOURCE_DIALECT"`
	SourceDSN        string `mapstructure:"SOURCE_DSN"`
	AccessDBPath     string `mapstructure:"ACCESS_DB_PATH"`
	AccessODBCDriver string `mapstructure:"ACCESS_ODBC_DRIVER"`

	StatusScheduleCSV string `mapstructure:"STATUS_SCHEDULES"`
	StatusTimezone    string `mapstructure:"STATUS_TIMEZONE"`
	OpsPort           string `mapstructure:"OPS_PORT"`
	CORSOriginCSV     string `mapstructure:"CORS_ALLOWED_ORIGINS"`

	JWTSecret     string `mapstructure:"JWT_SECRET"`
	JWTIssuer     string `mapstructure:"JWT_ISSUER"`
	JWTTTLMinutes int    `mapstructure:"JWT_TTL_MINUTES"`
	BcryptCost    int    `mapstructure:"BCRYPT_COST"`

	AdminUsername string `mapstructure:"ADMIN_USERNAME"`
	AdminEmail    string `mapstructure:"ADMIN_EMAIL"`
	AdminPassword string `mapstructure:"ADMIN_PASSWORD"`
	PatchUserID   int64  `mapstructure:"PATCH_USER_ID"`
	PatchEmail    string `mapstructure:"PATCH_EMAIL"`
	PatchPassword string `mapstructure:"PATCH_PASSWORD"`

	LogLevel string `mapstructure:"LOG_LEVEL"`

	JWTTTL          time.Duration `mapstructure:"-"`
	StatusSchedules []string      `mapstructure:"-"`
	CORSOrigins     []string      `mapstructure:"-"`
}

var keys = []string{
	"DATABASE_URL", "DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SSLMODE",
	"SOURCE_DIALECT", "SOURCE_DSN", "ACCESS_DB_PATH", "ACCESS_ODBC_DRIVER",
	"STATUS_SCHEDULES", "STATUS_TIMEZONE", "OPS_PORT", "CORS_ALLOWED_ORIGINS",
	"JWT_SECRET", "JWT_ISSUER", "JWT_TTL_MINUTES", "BCRYPT_COST",
	"ADMIN_USERNAME", "ADMIN_EMAIL", "ADMIN_PASSWORD",
	"PATCH_USER_ID", "PATCH_EMAIL", "PATCH_PASSWORD",
	"LOG_LEVEL",
}

// Load reads configuration from the environment, applying the hard-coded fallbacks
// the legacy scripts relied on.
func Load() (Config, error) {
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_PASSWORD", "")
	viper.SetDefault("DB_NAME", "coreq_loans")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("SOURCE_DIALECT", "access")
	viper.SetDefault("ACCESS_DB_PATH", `D:\coreq capital WORKING.accdb`)
	viper.SetDefault("ACCESS_ODBC_DRIVER", "Microsoft Access Driver (*.mdb, *.accdb)")
	viper.SetDefault("STATUS_SCHEDULES", "0 0 * * *,0 12 * * *") // midnight and noon
	viper.SetDefault("STATUS_TIMEZONE", "Africa/Nairobi")
	viper.SetDefault("OPS_PORT", "8090")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	viper.SetDefault("JWT_ISSUER", "coreq-loans")
	viper.SetDefault("JWT_TTL_MINUTES", 60)
	viper.SetDefault("BCRYPT_COST", 8)
	viper.SetDefault("ADMIN_USERNAME", "admin")
	viper.SetDefault("ADMIN_EMAIL", "admin@coreqcapital.com")
	viper.SetDefault("PATCH_USER_ID", 1)
	viper.SetDefault("PATCH_EMAIL", "admin@coreqcapital.com")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.AutomaticEnv()

	for _, key := range keys {
		_ = viper.BindEnv(key)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	cfg.DatabaseURL = strings.TrimSpace(cfg.DatabaseURL)
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = cfg.buildDatabaseURL()
	}
	cfg.SourceDialect = strings.ToLower(strings.TrimSpace(cfg.SourceDialect))
	if cfg.JWTTTLMinutes > 0 {
		cfg.JWTTTL = time.Duration(cfg.JWTTTLMinutes) * time.Minute
	} else {
		cfg.JWTTTL = 60 * time.Minute
	}
	if cfg.BcryptCost <= 0 {
		cfg.BcryptCost = 8
	}
	cfg.StatusSchedules = parseCSV(cfg.StatusScheduleCSV)
	cfg.CORSOrigins = parseCSV(cfg.CORSOriginCSV)
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}
	return cfg, nil
}

// SourceConnString returns the DSN for the legacy store. SOURCE_DSN wins; otherwise an
// ODBC connection string is assembled from the driver name and file path.
func (c Config) SourceConnString() string {
	if dsn := strings.TrimSpace(c.SourceDSN); dsn != "" {
		return dsn
	}
	if c.SourceDialect == "sqlite" {
		return c.AccessDBPath
	}
	return fmt.Sprintf("Driver={%s};DBQ=%s;", c.AccessODBCDriver, c.AccessDBPath)
}

// Location resolves STATUS_TIMEZONE. Only the status binary needs it, so Load does not.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(fallback(c.StatusTimezone, "UTC"))
	if err != nil {
		return nil, fmt.Errorf("invalid STATUS_TIMEZONE %q: %w", c.StatusTimezone, err)
	}
	return loc, nil
}

// OpsAddress returns the host:port pair for the ops HTTP server to bind to.
func (c Config) OpsAddress() string {
	return fmt.Sprintf(":%s", c.OpsPort)
}

// RequireJWT validates the settings needed to mint or verify tokens.
func (c Config) RequireJWT() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return errors.New("JWT_SECRET is required")
	}
	return nil
}

// RequirePatchPassword validates that a replacement password was supplied.
func (c Config) RequirePatchPassword() error {
	if strings.TrimSpace(c.PatchPassword) == "" {
		return errors.New("PATCH_PASSWORD is required")
	}
	return nil
}

// RequireAdminPassword validates that an admin password was supplied.
func (c Config) RequireAdminPassword() error {
	if strings.TrimSpace(c.AdminPassword) == "" {
		return errors.New("ADMIN_PASSWORD is required")
	}
	return nil
}

func (c Config) buildDatabaseURL() string {
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(fallback(c.DBHost, "localhost"), fallback(c.DBPort, "5432")),
		Path:   "/" + fallback(c.DBName, "coreq_loans"),
	}
	if c.DBPassword != "" {
		u.User = url.UserPassword(fallback(c.DBUser, "postgres"), c.DBPassword)
	} else {
		u.User = url.User(fallback(c.DBUser, "postgres"))
	}
	q := url.Values{}
	q.Set("sslmode", fallback(c.DBSSLMode, "disable"))
	u.RawQuery = q.Encode()
	return u.String()
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return strings.TrimSpace(value)
}

func parseCSV(input string) []string {
	parts := strings.Split(input, ",")
	var out []string
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
