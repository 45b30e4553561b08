package config

import (
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-errors"
	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// MinSecretKeyLength matches the minimum HMAC key the token service accepts
const MinSecretKeyLength = 32

// Logger is the logger LogConfiguration reports to
type Logger interface {
	Info(msg string, args ...any)
}

// Config holds the service settings read from the environment
type Config struct {
	DatabaseURL              string   `env:"DATABASE_URL,required"`
	SecretKey                string   `env:"SECRET_KEY,required"`
	PreviousSecretKeys       []string `env:"PREVIOUS_SECRET_KEYS" envSeparator:","`
	Algorithm                string   `env:"ALGORITHM" envDefault:"HS256"`
	AccessTokenExpireMinutes int      `env:"ACCESS_TOKEN_EXPIRE_MINUTES" envDefault:"30"`
	TokenIssuer              string   `env:"TOKEN_ISSUER" envDefault:"leadnest"`
	RedisURL                 string   `env:"REDIS_URL"`
	RateLimitEnabled         bool     `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RateLimitFailOpen        bool     `env:"RATE_LIMIT_FAIL_OPEN" envDefault:"false"`
	Environment              string   `env:"ENVIRONMENT" envDefault:"development"`
	FrontendURL              string   `env:"FRONTEND_URL" envDefault:"https://useleadnest.com"`
	ExtraCORSOrigins         []string `env:"CORS_ORIGINS" envSeparator:","`
	Port                     int      `env:"PORT" envDefault:"8000"`
	RoutePrefix              string   `env:"AUTH_ROUTE_PREFIX" envDefault:"/api/auth"`
	TrialDays                int      `env:"TRIAL_DAYS" envDefault:"14"`
	ServiceName              string   `env:"SERVICE_NAME" envDefault:"leadnest-backend"`
}

// Load reads the optional dotenv files and then the environment. With no
// files given it looks for ".env" in the working directory.
func Load(files ...string) (*Config, error) {
	if err := loadDotEnv(files...); err != nil {
		return nil, err
	}
	return parse(env.Options{})
}

// FromMap builds a Config from vars instead of the process environment
func FromMap(vars map[string]string) (*Config, error) {
	return parse(env.Options{Environment: vars})
}

func loadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}

	existing := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}

	if len(existing) == 0 {
		return nil
	}

	if err := godotenv.Load(existing...); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to load dotenv file").
			WithMetadata(map[string]any{"files": existing})
	}
	return nil
}

func parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, "missing or invalid environment variables").
			WithTextCode("CONFIG_ERROR")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the settings the service cannot start without
func (c *Config) Validate() error {
	verr := errors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(c,
			validation.Field(&c.DatabaseURL, validation.Required),
			validation.Field(&c.SecretKey,
				validation.Required,
				validation.Length(MinSecretKeyLength, 0).Error("SECRET_KEY must be at least 32 characters long"),
			),
			validation.Field(&c.PreviousSecretKeys, validation.By(minKeyLengths)),
			validation.Field(&c.Algorithm, validation.In("HS256").Error("only HS256 is supported")),
			validation.Field(&c.AccessTokenExpireMinutes, validation.Required, validation.Min(1)),
			validation.Field(&c.Environment, validation.In(EnvDevelopment, EnvProduction, EnvTest)),
			validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
			validation.Field(&c.TrialDays, validation.Min(0)),
		)
	}, "configuration validation failed")
	if verr != nil {
		return verr.WithTextCode("CONFIG_ERROR")
	}
	return nil
}

func minKeyLengths(value any) error {
	keys, _ := value.([]string)
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" && len(k) < MinSecretKeyLength {
			return errors.New("previous secret keys must be at least 32 characters long", errors.CategoryValidation)
		}
	}
	return nil
}

// PreviousKeys returns the retired signing keys still accepted for validation
func (c *Config) PreviousKeys() [][]byte {
	keys := make([][]byte, 0, len(c.PreviousSecretKeys))
	for _, k := range c.PreviousSecretKeys {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, []byte(k))
		}
	}
	return keys
}

// AccessTokenTTL is the lifetime of login tokens
func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenExpireMinutes) * time.Minute
}

// TrialPeriod is the length of the free trial for new accounts
func (c *Config) TrialPeriod() time.Duration {
	return time.Duration(c.TrialDays) * 24 * time.Hour
}

func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == EnvDevelopment
}

// Addr is the listen address
func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

// CORSOrigins returns the allowed origins for the current environment plus
// any CORS_ORIGINS extras, without duplicates.
func (c *Config) CORSOrigins() []string {
	var origins []string
	if c.IsProduction() {
		origins = []string{
			c.FrontendURL,
			"https://*.vercel.app",
			"https://*.onrender.com",
		}
	} else {
		origins = []string{
			"http://localhost:3000",
			"http://localhost:5173",
			"http://127.0.0.1:3000",
			c.FrontendURL,
		}
	}

	out := make([]string, 0, len(origins)+len(c.ExtraCORSOrigins))
	for _, o := range append(origins, c.ExtraCORSOrigins...) {
		o = strings.TrimSpace(o)
		if o == "" || slices.Contains(out, o) {
			continue
		}
		out = append(out, o)
	}
	return out
}

// LogConfiguration reports the configuration status. Secrets are never
// included, only whether they are set.
func (c *Config) LogConfiguration(logger Logger) {
	logger.Info("configuration status",
		"environment", c.Environment,
		"database", status(c.DatabaseURL != ""),
		"secret_key", status(c.SecretKey != ""),
		"previous_secret_keys", len(c.PreviousKeys()),
		"redis", status(c.RedisURL != ""),
		"rate_limit", c.RateLimitEnabled,
		"frontend_url", c.FrontendURL,
		"token_ttl", c.AccessTokenTTL().String(),
	)
}

func status(ok bool) string {
	if ok {
		return "configured"
	}
	return "missing"
}
