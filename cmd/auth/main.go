package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	ecM "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/Skotchmaster/auth_service/internal/config"
	"github.com/Skotchmaster/auth_service/internal/db"
	"github.com/Skotchmaster/auth_service/internal/directory"
	"github.com/Skotchmaster/auth_service/internal/events"
	"github.com/Skotchmaster/auth_service/internal/hash"
	"github.com/Skotchmaster/auth_service/internal/httpserver"
	"github.com/Skotchmaster/auth_service/internal/logging"
	"github.com/Skotchmaster/auth_service/internal/middleware"
	"github.com/Skotchmaster/auth_service/internal/rbac"
	"github.com/Skotchmaster/auth_service/internal/repo"
	"github.com/Skotchmaster/auth_service/internal/revocation"
	"github.com/Skotchmaster/auth_service/internal/seed"
	"github.com/Skotchmaster/auth_service/internal/service"
	"github.com/Skotchmaster/auth_service/internal/tokens"
)

func main() {
	cfg := config.Load()
	config.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	config.MustMinBytes(cfg.JWTSecret, 32, "JWT_SECRET_KEY")

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	ctx := logging.IntoContext(context.Background(), logger)

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	gdb, err := db.Open(initCtx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}
	defer db.Close(gdb)
	if err := repo.Migrate(gdb); err != nil {
		log.Fatalf("db migrate error: %v", err)
	}

	initCtx, cancel = context.WithTimeout(ctx, 10*time.Second)
	rdb, err := revocation.NewRedisClient(initCtx, cfg.RedisURL)
	cancel()
	if err != nil {
		log.Fatalf("redis init error: %v", err)
	}
	defer rdb.Close()

	store := repo.New(gdb)
	catalog := rbac.DefaultCatalog()
	graph := rbac.NewGraph(catalog, store)
	users := directory.New(store, graph)
	hasher := hash.NewBcrypt(cfg.BcryptCost)

	if cfg.SeedOnStart {
		if err := seed.Catalog(ctx, store, catalog, rbac.BuiltinRoles()); err != nil {
			log.Fatalf("seed error: %v", err)
		}
		if cfg.SeedAdminEmail != "" {
			if _, err := seed.Admin(ctx, users, hasher, cfg.SeedAdminEmail, cfg.SeedAdminPassword, ""); err != nil {
				log.Fatalf("seed admin error: %v", err)
			}
		}
	}

	kv := revocation.NewRedisKV(rdb)
	revoked := revocation.New(kv)
	resetRevoked := revocation.New(kv, revocation.WithPrefix(revocation.ResetPrefix))

	tok, err := tokens.New(cfg.JWTSecret, revoked,
		tokens.WithAccessTTL(cfg.AccessTTL),
		tokens.WithRefreshTTL(cfg.RefreshTTL),
		tokens.WithResetTTL(cfg.ResetTTL),
		tokens.WithIssuer(cfg.JWTIssuer),
		tokens.WithResetRevocations(resetRevoked),
	)
	if err != nil {
		log.Fatalf("token service error: %v", err)
	}

	publisher, closePublishers := buildPublishers(ctx, cfg)
	defer closePublishers()

	svc := &service.AuthService{
		Users:             users,
		RBAC:              store,
		Hasher:            hasher,
		Tokens:            tok,
		Revoked:           revoked,
		ResetRevoked:      resetRevoked,
		Events:            publisher,
		DefaultRole:       cfg.DefaultRole,
		MinPasswordLength: cfg.PasswordMinLength,
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := middleware.NewMetrics(reg)

	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second
	e.Pre(ecM.RemoveTrailingSlash())
	e.Use(metrics.Instrument())
	for _, m := range middleware.Common(logger) {
		e.Use(m)
	}

	httpserver.Register(e, &httpserver.Deps{
		AuthHandler:   &httpserver.AuthHTTP{Svc: svc, Metrics: metrics, SecureCookie: cfg.CookieSecure},
		Authenticator: svc,
		Metrics:       metrics,
		RateLimit:     middleware.RateLimit(cfg.RateLimit, rdb),
		CSRF:          middleware.CSRF(middleware.CSRFConfig{Secure: cfg.CookieSecure}),
		Ready: map[string]httpserver.Pinger{
			"postgres": func(ctx context.Context) error { return db.Ping(ctx, gdb) },
			"redis":    redisPinger(rdb),
		},
	})

	go func() {
		logger.Info("listening", "addr", cfg.Addr)
		if err := e.Start(cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("echo start: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("echo shutdown", "error", err)
	}
}

// buildPublishers wires Kafka and the Elasticsearch audit trail when configured.
func buildPublishers(ctx context.Context, cfg config.Config) (events.Publisher, func()) {
	l := logging.FromContext(ctx)
	var fan events.Fanout
	var closers []func() error

	if len(cfg.KafkaBrokers) > 0 {
		p, err := events.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopicPrefix)
		if err != nil {
			log.Fatalf("kafka producer error: %v", err)
		}
		fan = append(fan, p)
		closers = append(closers, p.Close)
		l.Info("kafka events enabled", "brokers", cfg.KafkaBrokers)
	}

	if cfg.ESURL != "" {
		esCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		es, err := events.NewESClient(esCtx, cfg.ESURL, cfg.ESUser, cfg.ESPassword)
		cancel()
		if err != nil {
			l.Warn("audit indexing disabled", "error", err)
		} else {
			fan = append(fan, events.NewAuditIndexer(es, cfg.ESIndex))
			l.Info("audit indexing enabled", "index", cfg.ESIndex)
		}
	}

	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				l.Warn("publisher close", "error", err)
			}
		}
	}
	if len(fan) == 0 {
		return events.Nop{}, closeAll
	}
	return fan, closeAll
}

func redisPinger(rdb redis.UniversalClient) httpserver.Pinger {
	return func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
}
