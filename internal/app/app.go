package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/relay/internal/catalog"
	"github.com/MrSnakeDoc/relay/internal/config"
	"github.com/MrSnakeDoc/relay/internal/discovery"
	"github.com/MrSnakeDoc/relay/internal/executor"
	"github.com/MrSnakeDoc/relay/internal/facade"
	"github.com/MrSnakeDoc/relay/internal/httpserver"
	"github.com/MrSnakeDoc/relay/internal/httpserver/deps"
	"github.com/MrSnakeDoc/relay/internal/logger"
	"github.com/MrSnakeDoc/relay/internal/redis"
	"github.com/MrSnakeDoc/relay/internal/session"
	redisstore "github.com/MrSnakeDoc/relay/internal/store/redis"
	"github.com/MrSnakeDoc/relay/internal/utils"
	"github.com/MrSnakeDoc/relay/internal/version"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	resolver    *discovery.Resolver
	facades     *facade.Set
	session     *session.Manager
	redisClient *goredis.Client
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	cat, err := buildCatalog(cfg)
	if err != nil {
		loggerClient.Errorf("Failed to load service catalogue: %v", err)
		os.Exit(1)
	}
	for _, svc := range cat.All() {
		loggerClient.Debug("service registered", logger.String("service", svc.String()))
	}

	// Fail fast: no call may leave without a real credential.
	exec, err := executor.New(executor.Options{
		Credential: executor.Credential{Scheme: cfg.AuthScheme, Token: cfg.AuthToken},
		Timeout:    cfg.RequestTimeout,
		Logger:     loggerClient.Named("executor"),
	})
	if err != nil {
		loggerClient.Errorf("Failed to build request executor: %v", err)
		os.Exit(1)
	}

	sources, err := discovery.ParseSources(cfg.RegistryURLs, exec)
	if err != nil {
		loggerClient.Errorf("Failed to configure registries: %v", err)
		os.Exit(1)
	}
	resolver := discovery.NewResolver(discovery.ResolverOptions{
		Sources: sources,
		Cache:   discovery.NewCache(cfg.CacheTTL, time.Now),
		Timeout: cfg.RegistryTimeout,
		Logger:  loggerClient.Named("discovery"),
	})
	loggerClient.Info("discovery initialized",
		logger.Strings("registries", resolver.Sources()),
		logger.Duration("cache_ttl", cfg.CacheTTL))

	facades := facade.NewSet(facade.Deps{
		Resolver: resolver,
		Selector: discovery.NewRandomSelector(nil),
		Doer:     exec,
		Attempts: cfg.ReplicaAttempts,
		Logger:   loggerClient.Named("facade"),
	}, cat)

	var (
		store       session.Store
		redisClient *goredis.Client
	)
	switch cfg.SessionBackend {
	case "redis":
		// Initialize Redis early - fail fast if unavailable
		loggerClient.Infof("Connecting to Redis at %s", cfg.RedisAddr)
		redisClient, err = redis.New(redis.ConnectOptions{
			Addr:           cfg.RedisAddr,
			User:           cfg.RedisUser,
			Password:       cfg.RedisPassword,
			RedisDB:        cfg.RedisDB,
			DialTimeout:    cfg.RedisDT,
			ReadTimeout:    cfg.RedisRT,
			WriteTimeout:   cfg.RedisWT,
			PoolSize:       cfg.RedisPoolSize,
			ConnectTimeout: cfg.RedisConnectTimeout,
			RetryInterval:  cfg.RedisRetryInterval,
			MaxWait:        cfg.RedisMaxWait,
			PingTimeout:    cfg.RedisPingTimeout,
			WarnThreshold:  cfg.RedisWarnThreshold,
		}, loggerClient)
		if err != nil {
			loggerClient.Errorf("Failed to connect to Redis: %v", err)
			os.Exit(1)
		}
		store = redisstore.NewSessionStore(redisClient, cfg.SessionID, 0)
		loggerClient.Info("Redis session store initialized",
			logger.String("session_id", cfg.SessionID))
	default:
		store = session.NewMemoryStore()
	}

	manager := session.NewManager(session.Options{
		Auth:           facades.Auth,
		Profile:        facades.Profile,
		OTP:            facades.OTP,
		Store:          store,
		Replicas:       resolver,
		VerifyInterval: cfg.VerifyInterval,
		Logger:         loggerClient.Named("session"),
	})

	// Dependencies passed to routes (extend as needed).
	d := deps.Deps{
		Logger:         loggerClient,
		StartTime:      time.Now(),
		Version:        version.Version,
		Commit:         version.Commit,
		BuildDate:      version.BuildDate,
		GoVersion:      version.GoVersion,
		TimeNow:        time.Now,
		AllowedHosts:   cfg.AllowedHosts,
		AllowedCIDRS:   cfg.AllowedCIDRS,
		TrustProxy:     cfg.TrustProxy,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		ReadyTimeout:   cfg.ReadyTimeout,
		Catalog:        cat,
		Resolver:       resolver,
		Session:        manager,
		SessionBackend: cfg.SessionBackend,
		RedisClient:    redisClient,
	}

	server := httpserver.New(cfg, loggerClient, d)

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      server,
		resolver:    resolver,
		facades:     facades,
		session:     manager,
		redisClient: redisClient,
	}
}

// buildCatalog layers the catalogue file and per-service app id overrides on
// top of the built-in defaults.
func buildCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	cat := catalog.Defaults()
	if cfg.CatalogFile != "" {
		if err := cat.Merge(cfg.CatalogFile); err != nil {
			return nil, err
		}
	}
	for key, id := range cfg.AppIDs {
		cat.SetAppID(key, id)
	}
	return cat, nil
}

// Facades exposes the service façades to embedding code.
func (a *App) Facades() *facade.Set { return a.facades }

// Session exposes the session state machine to embedding code.
func (a *App) Session() *session.Manager { return a.session }

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting Relay v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("Relay %s (commit=%s, built=%s, go=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := a.session.Restore(ctx)
	if err != nil {
		// A broken session store degrades to anonymous, it does not stop the process.
		a.logger.Warn("failed to restore session, starting anonymous", logger.Error(err))
	} else {
		a.logger.Info("session restored", logger.String("state", st.Kind().String()))
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	utils.CloseLogged(a.resolver, "registry sources", a.logger)
	if a.redisClient != nil {
		utils.CloseLogged(a.redisClient, "redis", a.logger)
	}

	a.logger.Info("✅ Relay stopped cleanly")
	return nil
}
