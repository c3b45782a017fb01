package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	goalert "github.com/MrEthical07/goAlert"
	"github.com/MrEthical07/goAlert/authority"
	"github.com/MrEthical07/goAlert/channel"
	"github.com/MrEthical07/goAlert/jwt"
	"github.com/MrEthical07/goAlert/store/postgres"
)

// serverConfig is the process configuration. Priority: env > yaml > defaults.
type serverConfig struct {
	Server    httpConfig      `yaml:"server"`
	Log       logConfig       `yaml:"log"`
	Telemetry telemetryConfig `yaml:"telemetry"`
	Redis     redisConfig     `yaml:"redis"`
	Database  databaseConfig  `yaml:"database"`
	JWT       jwtConfig       `yaml:"jwt"`
	Authority authorityConfig `yaml:"authority"`
	SMS       smsConfig       `yaml:"sms"`
	Email     emailConfig     `yaml:"email"`
	Alert     alertConfig     `yaml:"alert"`
	Audit     auditConfig     `yaml:"audit"`
	CORS      corsConfig      `yaml:"cors"`
}

type httpConfig struct {
	Addr            string        `yaml:"addr"             env:"SERVER_ADDR"             env-default:":8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"10s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     env:"SERVER_IDLE_TIMEOUT"     env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"15s"`
	TrustProxy      bool          `yaml:"trust_proxy"      env:"SERVER_TRUST_PROXY"      env-default:"false"`
}

type logConfig struct {
	Level   string `yaml:"level"   env:"LOG_LEVEL"   env-default:"info"`
	Format  string `yaml:"format"  env:"LOG_FORMAT"  env-default:"json"`
	Service string `yaml:"service" env:"SERVICE_NAME" env-default:"goalert"`
}

type telemetryConfig struct {
	Endpoint    string  `yaml:"endpoint"     env:"OTEL_ENDPOINT"`
	SampleRatio float64 `yaml:"sample_ratio" env:"OTEL_SAMPLE_RATIO" env-default:"1"`
}

type redisConfig struct {
	Addr     string `yaml:"addr"     env:"REDIS_ADDR"     env-default:"127.0.0.1:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db"       env:"REDIS_DB"       env-default:"0"`

	// NotifyRelay fans notification events out through Redis pub/sub so
	// streams on every instance receive them.
	NotifyRelay bool   `yaml:"notify_relay" env:"NOTIFY_RELAY"        env-default:"false"`
	RelayPrefix string `yaml:"relay_prefix" env:"NOTIFY_RELAY_PREFIX" env-default:"notify:"`
}

type databaseConfig struct {
	DSN             string        `yaml:"dsn"                env:"DATABASE_DSN"`
	MaxConns        int32         `yaml:"max_conns"          env:"DATABASE_MAX_CONNS"          env-default:"20"`
	MinConns        int32         `yaml:"min_conns"          env:"DATABASE_MIN_CONNS"          env-default:"2"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"DATABASE_MAX_CONN_LIFETIME"  env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
	Migrate         bool          `yaml:"migrate"            env:"DATABASE_MIGRATE"            env-default:"true"`
}

type jwtConfig struct {
	Secret    string        `yaml:"secret"     env:"JWT_SECRET" env-required:"true"`
	Issuer    string        `yaml:"issuer"     env:"JWT_ISSUER"`
	Audience  string        `yaml:"audience"   env:"JWT_AUDIENCE"`
	AccessTTL time.Duration `yaml:"access_ttl" env:"JWT_ACCESS_TTL" env-default:"15m"`
	Leeway    time.Duration `yaml:"leeway"     env:"JWT_LEEWAY"     env-default:"30s"`
}

type authorityConfig struct {
	URL        string        `yaml:"url"         env:"AUTHORITY_URL"`
	ServiceKey string        `yaml:"service_key" env:"AUTHORITY_SERVICE_KEY"`
	Timeout    time.Duration `yaml:"timeout"     env:"AUTHORITY_TIMEOUT" env-default:"5s"`
	RetryCount int           `yaml:"retry_count" env:"AUTHORITY_RETRY_COUNT" env-default:"0"`
}

type smsConfig struct {
	BaseURL    string        `yaml:"base_url"    env:"TWILIO_BASE_URL"`
	AccountSID string        `yaml:"account_sid" env:"TWILIO_ACCOUNT_SID"`
	AuthToken  string        `yaml:"auth_token"  env:"TWILIO_AUTH_TOKEN"`
	From       string        `yaml:"from"        env:"TWILIO_PHONE_NUMBER"`
	Timeout    time.Duration `yaml:"timeout"     env:"TWILIO_TIMEOUT" env-default:"10s"`
}

type emailConfig struct {
	BaseURL   string        `yaml:"base_url"   env:"EMAIL_BASE_URL"`
	APIKey    string        `yaml:"api_key"    env:"EMAIL_API_KEY"`
	FromEmail string        `yaml:"from_email" env:"EMAIL_FROM"`
	FromName  string        `yaml:"from_name"  env:"EMAIL_FROM_NAME" env-default:"Support Network"`
	Timeout   time.Duration `yaml:"timeout"    env:"EMAIL_TIMEOUT"   env-default:"10s"`
}

type alertConfig struct {
	Preset               string        `yaml:"preset"                 env:"ALERT_PRESET" env-default:"default"`
	MaxContacts          int           `yaml:"max_contacts"           env:"ALERT_MAX_CONTACTS"`
	Workers              int           `yaml:"workers"                env:"ALERT_WORKERS"`
	CrisisAlertMax       int           `yaml:"crisis_alert_max"       env:"CRISIS_ALERT_MAX"`
	CrisisAlertWindow    time.Duration `yaml:"crisis_alert_window"    env:"CRISIS_ALERT_WINDOW"`
	SupportMessageMax    int           `yaml:"support_message_max"    env:"SUPPORT_MESSAGE_MAX"`
	SupportMessageWindow time.Duration `yaml:"support_message_window" env:"SUPPORT_MESSAGE_WINDOW"`
	RejectSuspicious     bool          `yaml:"reject_suspicious"      env:"ALERT_REJECT_SUSPICIOUS"`
}

type auditConfig struct {
	// Key seals audit details at rest. Required with a database.
	Key string `yaml:"key" env:"AUDIT_ENCRYPTION_KEY"`
}

type corsConfig struct {
	AllowedOrigins string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-default:"*"`
	MaxAge         int    `yaml:"max_age"         env:"CORS_MAX_AGE"         env-default:"600"`
}

// loadConfig reads CONFIG_PATH (default ./config.yaml) when present, then
// the environment.
func loadConfig() (*serverConfig, error) {
	var cfg serverConfig

	path := os.Getenv("CONFIG_PATH")
	explicit := path != ""
	if !explicit {
		path = "./config.yaml"
	}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if explicit {
		return nil, fmt.Errorf("config: file %s: %w", path, err)
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

func (c *serverConfig) validate() error {
	if len(c.JWT.Secret) < 32 {
		return errors.New("JWT_SECRET must be at least 32 bytes")
	}
	if c.Database.DSN != "" && len(c.Audit.Key) < 16 {
		return errors.New("AUDIT_ENCRYPTION_KEY must be at least 16 bytes when DATABASE_DSN is set")
	}
	if (c.Authority.URL == "") != (c.Authority.ServiceKey == "") {
		return errors.New("AUTHORITY_URL and AUTHORITY_SERVICE_KEY must be set together")
	}
	switch c.Alert.Preset {
	case "default", "high_security":
	default:
		return fmt.Errorf("unknown ALERT_PRESET %q", c.Alert.Preset)
	}
	return nil
}

// engineConfig maps the preset and overrides onto goalert.Config.
func (c *serverConfig) engineConfig() goalert.Config {
	cfg := goalert.DefaultConfig()
	if c.Alert.Preset == "high_security" {
		cfg = goalert.HighSecurityConfig()
	}
	a := c.Alert
	if a.MaxContacts > 0 {
		cfg.Alert.MaxContactsPerAlert = a.MaxContacts
	}
	if a.Workers > 0 {
		cfg.Alert.Workers = a.Workers
	}
	if a.CrisisAlertMax > 0 {
		cfg.RateLimit.CrisisAlertMax = a.CrisisAlertMax
	}
	if a.CrisisAlertWindow > 0 {
		cfg.RateLimit.CrisisAlertWindow = a.CrisisAlertWindow
	}
	if a.SupportMessageMax > 0 {
		cfg.RateLimit.SupportMessageMax = a.SupportMessageMax
	}
	if a.SupportMessageWindow > 0 {
		cfg.RateLimit.SupportMessageWindow = a.SupportMessageWindow
	}
	if a.RejectSuspicious {
		cfg.Alert.RejectSuspicious = true
	}
	return cfg
}

func (c *serverConfig) jwtConfig() jwt.Config {
	return jwt.Config{
		AccessTTL:     c.JWT.AccessTTL,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    []byte(c.JWT.Secret),
		Issuer:        c.JWT.Issuer,
		Audience:      c.JWT.Audience,
		Leeway:        c.JWT.Leeway,
	}
}

func (c *serverConfig) poolConfig() postgres.PoolConfig {
	return postgres.PoolConfig{
		DSN:             c.Database.DSN,
		MaxConns:        c.Database.MaxConns,
		MinConns:        c.Database.MinConns,
		MaxConnLifetime: c.Database.MaxConnLifetime,
		MaxConnIdleTime: c.Database.MaxConnIdleTime,
	}
}

func (c *serverConfig) authorityConfig() authority.Config {
	return authority.Config{
		BaseURL:    c.Authority.URL,
		ServiceKey: c.Authority.ServiceKey,
		Timeout:    c.Authority.Timeout,
		RetryCount: c.Authority.RetryCount,
	}
}

func (c *serverConfig) smsConfig() channel.SMSConfig {
	return channel.SMSConfig{
		BaseURL:    c.SMS.BaseURL,
		AccountSID: c.SMS.AccountSID,
		AuthToken:  c.SMS.AuthToken,
		From:       c.SMS.From,
		Timeout:    c.SMS.Timeout,
	}
}

func (c *serverConfig) emailConfig() channel.EmailConfig {
	return channel.EmailConfig{
		BaseURL:   c.Email.BaseURL,
		APIKey:    c.Email.APIKey,
		FromEmail: c.Email.FromEmail,
		FromName:  c.Email.FromName,
		Timeout:   c.Email.Timeout,
	}
}

func (c *serverConfig) corsOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORS.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
