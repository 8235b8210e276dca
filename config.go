package inkwell

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/eringen/inkwell/ai"
)

// SiteConfig holds all configuration for an inkwell site.
type SiteConfig struct {
	Name        string `mapstructure:"name"`        // Site name (default "Inkwell")
	URL         string `mapstructure:"url"`         // Canonical URL (default "http://localhost:3000")
	Description string `mapstructure:"description"` // Site description for RSS and meta tags
	Author      string `mapstructure:"author"`      // Publisher name for JSON-LD
	Env         string `mapstructure:"env"`         // "development" or "production"

	Addr     string         `mapstructure:"addr"` // Listen address (default ":3000")
	Database DatabaseConfig `mapstructure:"database"`
	RedisURL string         `mapstructure:"redis_url"` // Listing cache; empty disables it

	SessionSecret string        `mapstructure:"session_secret"` // Required: cookie and token signing secret
	CookieSecure  bool          `mapstructure:"cookie_secure"`  // Set true for HTTPS
	SessionTTL    time.Duration `mapstructure:"session_ttl"`    // default 12h
	AdminEmails   []string      `mapstructure:"admin_emails"`   // promoted to ADMIN on sign-in

	OAuth OAuthConfig `mapstructure:"oauth"`
	AI    AIConfig    `mapstructure:"ai"`

	TaxonomyCacheTTL time.Duration `mapstructure:"taxonomy_cache_ttl"` // default 5m
	ListingCacheTTL  time.Duration `mapstructure:"listing_cache_ttl"`  // default 1m
	AIRateLimit      int           `mapstructure:"ai_rate_limit"`      // generations per IP per minute (default 10)
}

// DatabaseConfig selects the gorm dialect and its connection string.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // "sqlite" (default) or "postgres"
	DSN    string `mapstructure:"dsn"`    // file path for sqlite, DSN for postgres
}

// OAuthConfig holds client credentials per identity provider. Providers
// without a client id are disabled.
type OAuthConfig struct {
	Google   OAuthCredentials `mapstructure:"google"`
	GitHub   OAuthCredentials `mapstructure:"github"`
	Facebook OAuthCredentials `mapstructure:"facebook"`
}

type OAuthCredentials struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
}

// AIConfig configures the content generator. An empty APIKey disables it.
type AIConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

func (d DatabaseConfig) validate() error {
	switch d.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database driver %q", d.Driver)
	}
	if d.DSN == "" {
		return errors.New("database.dsn is required")
	}
	return nil
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Inkwell"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Env == "" {
		c.Env = "development"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.DSN == "" && c.Database.Driver == "sqlite" {
		c.Database.DSN = "data/inkwell.db"
	}
	if c.SessionTTL == 0 {
		c.SessionTTL = 12 * time.Hour
	}
	if c.TaxonomyCacheTTL == 0 {
		c.TaxonomyCacheTTL = 5 * time.Minute
	}
	if c.ListingCacheTTL == 0 {
		c.ListingCacheTTL = time.Minute
	}
	if c.AIRateLimit == 0 {
		c.AIRateLimit = 10
	}
}

// IsProduction reports whether the site runs with production checks.
func (c SiteConfig) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// Validate reports configuration that the server cannot start with.
func (c SiteConfig) Validate() error {
	if c.SessionSecret == "" {
		return errors.New("session_secret is required")
	}
	if c.IsProduction() && len(c.SessionSecret) < 32 {
		return errors.New("session_secret must be at least 32 characters in production")
	}
	if err := c.Database.validate(); err != nil {
		return err
	}
	if u, err := url.Parse(c.URL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("url %q must be absolute", c.URL)
	}
	return nil
}

// LoadConfig reads configuration from path (or ./inkwell.yml when path is
// empty and the file exists) and from INKWELL_* environment variables.
// Nested keys use underscores: INKWELL_DATABASE_DSN, INKWELL_OAUTH_GITHUB_CLIENT_ID.
func LoadConfig(path string) (SiteConfig, error) {
	cfg, err := readConfig(path)
	if err != nil {
		return SiteConfig{}, err
	}
	if err := cfg.Validate(); err != nil {
		return SiteConfig{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadMaintenanceConfig reads the same sources as LoadConfig but only
// checks the database section, so migrate, seed and import run without a
// session secret.
func LoadMaintenanceConfig(path string) (SiteConfig, error) {
	cfg, err := readConfig(path)
	if err != nil {
		return SiteConfig{}, err
	}
	if err := cfg.Database.validate(); err != nil {
		return SiteConfig{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func readConfig(path string) (SiteConfig, error) {
	v := viper.New()
	v.SetEnvPrefix("inkwell")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, val := range map[string]any{
		"name":                         "Inkwell",
		"url":                          "http://localhost:3000",
		"description":                  "",
		"author":                       "",
		"env":                          "development",
		"addr":                         ":3000",
		"database.driver":              "sqlite",
		"database.dsn":                 "",
		"redis_url":                    "",
		"session_secret":               "",
		"cookie_secure":                false,
		"session_ttl":                  "12h",
		"admin_emails":                 []string{},
		"oauth.google.client_id":       "",
		"oauth.google.client_secret":   "",
		"oauth.github.client_id":       "",
		"oauth.github.client_secret":   "",
		"oauth.facebook.client_id":     "",
		"oauth.facebook.client_secret": "",
		"ai.api_key":                   "",
		"ai.model":                     "",
		"taxonomy_cache_ttl":           "5m",
		"listing_cache_ttl":            "1m",
		"ai_rate_limit":                10,
	} {
		v.SetDefault(key, val)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return SiteConfig{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("inkwell")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return SiteConfig{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg SiteConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return SiteConfig{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.setDefaults()
	return cfg, nil
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App after the built-in routes are registered.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStaticDir sets the directory for user-owned static assets (default "public").
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.staticDir = dir
	}
}

// WithLogger sets the structured logger (default no-op).
func WithLogger(l *zap.Logger) Option {
	return func(a *App) {
		a.Log = l
	}
}

// WithStore uses an already opened store instead of opening Config.Database.
func WithStore(s *Store) Option {
	return func(a *App) {
		a.Store = s
	}
}

// WithGenerator sets the AI content generator instead of building one from
// Config.AI.
func WithGenerator(g ai.Generator) Option {
	return func(a *App) {
		a.Generator = g
	}
}

// WithRedis uses client for the listing cache instead of dialing Config.RedisURL.
func WithRedis(client *redis.Client) Option {
	return func(a *App) {
		a.redis = client
	}
}

// WithSessionProvider replaces how the current caller is resolved.
func WithSessionProvider(p SessionProvider) Option {
	return func(a *App) {
		a.identity = p
	}
}

// WithProvider registers an additional or replacement identity provider.
func WithProvider(p *Provider) Option {
	return func(a *App) {
		a.extraProviders = append(a.extraProviders, p)
	}
}
