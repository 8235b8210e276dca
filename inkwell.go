// Package inkwell is a blog platform with AI-assisted authoring built with
// Go, Echo, gorm and templ. It provides OAuth sign-in, post authoring, a
// filtered and paginated public listing, RSS, sitemap and a JSON API.
//
// Sites provide their templ templates via the ViewFuncs struct (the views
// package has a complete default set) and inkwell handles the handler
// logic, middleware and database operations.
package inkwell

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/eringen/inkwell/ai"
)

// App is the central inkwell application. It wires together the store,
// caches, handlers, middleware and templates.
type App struct {
	Config       SiteConfig
	Echo         *echo.Echo
	Store        *Store
	Taxonomy     *TaxonomyCache
	ListingCache *ListingCache
	Listings     *ListingService
	Generator    ai.Generator
	Metrics      *Metrics
	Log          *zap.Logger
	Views        ViewFuncs

	sessions       *Sessions
	identity       SessionProvider
	providers      map[string]*Provider
	extraProviders []*Provider
	aiLimiter      *RateLimiter
	redis          *redis.Client
	ownsStore      bool
	ownsRedis      bool
	customRoutes   []func(*App)
	staticDir      string
	background     sync.WaitGroup
	ready          bool
}

// New creates an App with the given configuration and views. Nothing is
// opened until Setup or Start.
func New(cfg SiteConfig, views ViewFuncs, opts ...Option) *App {
	cfg.setDefaults()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	a := &App{
		Config:    cfg,
		Echo:      e,
		Views:     views,
		Metrics:   NewMetrics(),
		Log:       zap.NewNop(),
		staticDir: "public",
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Setup opens the store and caches and registers middleware and routes.
// It is called by Start; tests call it directly and drive a.Echo.
func (a *App) Setup(ctx context.Context) error {
	if a.ready {
		return nil
	}
	if err := a.Config.Validate(); err != nil {
		return fmt.Errorf("inkwell: %w", err)
	}

	if a.Store == nil {
		store, err := OpenStore(a.Config.Database, a.Log)
		if err != nil {
			return fmt.Errorf("inkwell: init store: %w", err)
		}
		a.Store = store
		a.ownsStore = true
	}
	if err := a.Store.AutoMigrate(); err != nil {
		return fmt.Errorf("inkwell: %w", err)
	}

	if a.redis == nil && a.Config.RedisURL != "" {
		a.connectRedis(ctx)
	}
	a.ListingCache = NewListingCache(a.redis, a.Config.ListingCacheTTL, a.Metrics, a.Log)
	a.Taxonomy = NewTaxonomyCache(a.Store, a.Config.TaxonomyCacheTTL)
	a.Listings = NewListingService(a.Store.Posts(), a.ListingCache, a.Taxonomy, a.Metrics, a.Log)

	a.sessions = NewSessions(a.Config.SessionSecret, a.Config.SessionTTL)
	if a.identity == nil {
		a.identity = a.sessions
	}
	a.providers = configuredProviders(a.Config, a.extraProviders)

	if a.Generator == nil && a.Config.AI.APIKey != "" {
		g, err := ai.NewGenAIClient(ctx, ai.Config{APIKey: a.Config.AI.APIKey, Model: a.Config.AI.Model})
		if err != nil {
			return fmt.Errorf("inkwell: init ai: %w", err)
		}
		a.Generator = g
	}
	a.aiLimiter = NewRateLimiter(a.Config.AIRateLimit, time.Minute)

	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}
	a.ready = true
	return nil
}

func (a *App) connectRedis(ctx context.Context) {
	client, err := NewRedisClient(a.Config.RedisURL)
	if err != nil {
		a.Log.Warn("redis disabled", zap.Error(err))
		return
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		a.Log.Warn("redis unreachable, continuing without listing cache", zap.Error(err))
		_ = client.Close()
		return
	}
	a.redis = client
	a.ownsRedis = true
}

// Start sets the app up and serves HTTP until the server is shut down.
func (a *App) Start() error {
	if err := a.Setup(context.Background()); err != nil {
		return err
	}
	a.Log.Info("listening", zap.String("addr", a.Config.Addr), zap.String("url", a.Config.URL))
	if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (a *App) Shutdown(ctx context.Context) error {
	return a.Echo.Shutdown(ctx)
}

func (a *App) setupRoutes() {
	e := a.Echo

	// Framework assets are served under /public/ ahead of the site's static dir.
	embeddedFS, _ := fs.Sub(EmbeddedAssets, "embedded")
	embeddedHandler := http.StripPrefix("/public/", http.FileServer(http.FS(embeddedFS)))
	e.GET("/public/inkwell.css", echo.WrapHandler(embeddedHandler))
	e.GET("/public/inkwell.js", echo.WrapHandler(embeddedHandler))

	e.Static("/public", a.staticDir)
	e.GET("/favicon.svg", a.handleFavicon)
	e.GET("/robots.txt", a.handleRobots)
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: a.Metrics.Registry}))

	// Public blog
	e.GET("/", handleRootRedirect)
	e.GET("/blog/", a.handleBlog)
	e.GET("/blog/category/:slug/", a.handleBlogCategory)
	e.GET("/blog/tag/:slug/", a.handleBlogTag)
	e.GET("/blog/:slug/", a.handlePost)

	// Sign-in
	e.GET("/auth/signin/", a.handleSignIn)
	e.GET("/auth/:provider/login/", a.handleOAuthLogin)
	e.GET("/auth/:provider/callback/", a.handleOAuthCallback)
	e.POST("/auth/signout/", a.handleSignOut)
	e.GET("/auth/error/", a.handleAuthError)

	// Authoring
	dash := e.Group("/dashboard", a.requireUser)
	dash.GET("/", a.handleDashboard)
	dash.GET("/create/", a.handleDashboardCreate)
	dash.GET("/post/:id/", a.handleDashboardPost)
	dash.POST("/save/", a.handleDashboardSave)
	dash.DELETE("/post/:id/", a.handleDashboardDelete)
	dash.POST("/ai/", a.handleDashboardAI)
	dash.GET("/images/", a.handleImageList)
	dash.POST("/images/", a.handleImageUpload)
	dash.DELETE("/images/:filename/", a.handleImageDelete)

	// JSON API
	api := e.Group("/api")
	api.GET("/posts", a.handleAPIListPosts)
	api.POST("/posts", a.handleAPICreatePost, a.requireAPIUser)
	api.GET("/posts/:id", a.handleAPIGetPost)
	api.PATCH("/posts/:id", a.handleAPIUpdatePost, a.requireAPIUser)
	api.DELETE("/posts/:id", a.handleAPIDeletePost, a.requireAPIUser)
	api.POST("/ai/generate", a.handleAPIGenerate)
	api.POST("/token", a.handleAPIToken, a.requireAPIUser)
}

// Close waits for background work and releases what the App opened.
func (a *App) Close() error {
	a.background.Wait()
	if a.aiLimiter != nil {
		a.aiLimiter.Stop()
	}
	var errs []error
	if a.redis != nil && a.ownsRedis {
		errs = append(errs, a.redis.Close())
	}
	if a.Store != nil && a.ownsStore {
		errs = append(errs, a.Store.Close())
	}
	return errors.Join(errs...)
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
