package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix is the envconfig namespace for every variable below.
	EnvPrefix = "SCANMYSCALE"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App        AppConfig
	DB         DBConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Stripe     StripeConfig
	RevenueCat RevenueCatConfig
	Billing    BillingConfig
	Markets    MarketsConfig
	Webhooks   WebhooksConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SCANMYSCALE_APP_ENV" required:"true"`
	Port         string `envconfig:"SCANMYSCALE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SCANMYSCALE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SCANMYSCALE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"SCANMYSCALE_DB_DSN"`
	Driver string `envconfig:"SCANMYSCALE_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"SCANMYSCALE_DB_HOST"`
	Port     int    `envconfig:"SCANMYSCALE_DB_PORT" default:"5432"`
	User     string `envconfig:"SCANMYSCALE_DB_USER"`
	Password string `envconfig:"SCANMYSCALE_DB_PASSWORD"`
	Name     string `envconfig:"SCANMYSCALE_DB_NAME"`
	SSLMode  string `envconfig:"SCANMYSCALE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SCANMYSCALE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SCANMYSCALE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SCANMYSCALE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SCANMYSCALE_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	UseSQLite  bool   `envconfig:"SCANMYSCALE_DB_USE_SQLITE" default:"false"`
	SQLitePath string `envconfig:"SCANMYSCALE_DB_SQLITE_PATH" default:"scanmyscale.db"`

	AutoMigrate bool `envconfig:"SCANMYSCALE_DB_AUTO_MIGRATE" default:"false"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SCANMYSCALE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SCANMYSCALE_REDIS_ADDR"`
	Password     string        `envconfig:"SCANMYSCALE_REDIS_PASSWORD"`
	DB           int           `envconfig:"SCANMYSCALE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SCANMYSCALE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SCANMYSCALE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SCANMYSCALE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SCANMYSCALE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SCANMYSCALE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SCANMYSCALE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SCANMYSCALE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"SCANMYSCALE_JWT_EXPIRATION_MINUTES" default:"60"`
}

type StripeConfig struct {
	APIKey        string `envconfig:"SCANMYSCALE_STRIPE_API_KEY"`
	WebhookSecret string `envconfig:"SCANMYSCALE_STRIPE_WEBHOOK_SECRET"`
	Env           string `envconfig:"SCANMYSCALE_STRIPE_ENV" default:"test"`

	// PriceTableJSON maps (tier, interval, currency) tuples to Stripe price
	// ids: [{"tier":"premium","interval":"month","currency":"usd","price_id":"price_x"}].
	PriceTableJSON string `envconfig:"SCANMYSCALE_STRIPE_PRICE_TABLE"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type RevenueCatConfig struct {
	APIKey        string        `envconfig:"SCANMYSCALE_REVENUECAT_API_KEY"`
	WebhookSecret string        `envconfig:"SCANMYSCALE_REVENUECAT_WEBHOOK_SECRET"`
	BaseURL       string        `envconfig:"SCANMYSCALE_REVENUECAT_BASE_URL" default:"https://api.revenuecat.com/v1"`
	Timeout       time.Duration `envconfig:"SCANMYSCALE_REVENUECAT_TIMEOUT" default:"30s"`
	MaxRetries    int           `envconfig:"SCANMYSCALE_REVENUECAT_MAX_RETRIES" default:"3"`
}

type BillingConfig struct {
	TrialDays       int           `envconfig:"SCANMYSCALE_BILLING_TRIAL_DAYS" default:"0"`
	PlanCacheTTL    time.Duration `envconfig:"SCANMYSCALE_BILLING_PLAN_CACHE_TTL" default:"10m"`
	WebhookGuardTTL time.Duration `envconfig:"SCANMYSCALE_BILLING_WEBHOOK_GUARD_TTL" default:"72h"`

	CheckoutSuccessURL string `envconfig:"SCANMYSCALE_BILLING_CHECKOUT_SUCCESS_URL" default:"https://scanmyscale.com/billing/success?session_id={CHECKOUT_SESSION_ID}"`
	CheckoutCancelURL  string `envconfig:"SCANMYSCALE_BILLING_CHECKOUT_CANCEL_URL" default:"https://scanmyscale.com/billing/cancel"`
	PortalReturnURL    string `envconfig:"SCANMYSCALE_BILLING_PORTAL_RETURN_URL" default:"https://scanmyscale.com/account"`

	// PixPricesJSON maps prepaid variants to minor-unit amounts:
	// [{"tier":"premium","interval":"semiannual","currency":"brl","amount":14940}].
	PixPricesJSON string `envconfig:"SCANMYSCALE_BILLING_PIX_PRICES"`
}

type MarketsConfig struct {
	DefaultMarket string `envconfig:"SCANMYSCALE_DEFAULT_MARKET" default:"us"`
}

type WebhooksConfig struct {
	// RevenueCatAuth overrides RevenueCat.WebhookSecret when set; kept for
	// parity with dashboards that configure the Authorization header directly.
	RevenueCatAuth string `envconfig:"SCANMYSCALE_WEBHOOK_REVENUECAT_AUTH"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" || db.UseSQLite {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		"SCANMYSCALE_DB_HOST": db.Host,
		"SCANMYSCALE_DB_USER": db.User,
		"SCANMYSCALE_DB_NAME": db.Name,
	}
	for _, env := range []string{"SCANMYSCALE_DB_HOST", "SCANMYSCALE_DB_USER", "SCANMYSCALE_DB_NAME"} {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either SCANMYSCALE_DB_DSN or %s are required", strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
