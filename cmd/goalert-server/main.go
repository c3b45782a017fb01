// Command goalert-server serves the crisis-alert and notification API.
//
// Configuration comes from CONFIG_PATH (YAML, default ./config.yaml) and
// the environment; see config.go. Without DATABASE_DSN contacts and
// notifications are held in memory.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	goalert "github.com/MrEthical07/goAlert"
	"github.com/MrEthical07/goAlert/authority"
	"github.com/MrEthical07/goAlert/channel"
	"github.com/MrEthical07/goAlert/httpapi"
	"github.com/MrEthical07/goAlert/internal/logger"
	"github.com/MrEthical07/goAlert/internal/telemetry"
	"github.com/MrEthical07/goAlert/jwt"
	"github.com/MrEthical07/goAlert/metrics/export/prometheus"
	"github.com/MrEthical07/goAlert/middleware"
	"github.com/MrEthical07/goAlert/notify"
	"github.com/MrEthical07/goAlert/phi"
	"github.com/MrEthical07/goAlert/store/memory"
	"github.com/MrEthical07/goAlert/store/postgres"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "goalert-server: %v\n", err)
		os.Exit(1)
	}
}

// stores groups the persistence backends chosen at startup.
type stores struct {
	contacts      httpapi.ContactManager
	notifications notify.Store
	audit         goalert.AuditStore
	security      goalert.SecurityEventWriter
	ping          func(context.Context) error
	close         func()
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, cfg.Log.Service)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracer, shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		Endpoint:    cfg.Telemetry.Endpoint,
		ServiceName: cfg.Log.Service,
		SampleRatio: cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn("tracer shutdown", zap.Error(err))
		}
	}()

	engineCfg := cfg.engineConfig()
	for _, w := range engineCfg.Lint() {
		log.Warn("config lint", zap.String("code", w.Code), zap.String("severity", string(w.Severity)), zap.String("message", w.Message))
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() { _ = rdb.Close() }()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	st, err := openStores(ctx, cfg, engineCfg, log)
	if err != nil {
		return err
	}
	defer st.close()

	hub := notify.NewHub(engineCfg.Notify.SubscriberBuffer)
	defer hub.Close()
	// With the relay on, events go through Redis so every instance's hub
	// sees them exactly once.
	var pub notify.Publisher = hub
	if cfg.Redis.NotifyRelay {
		relay := notify.NewRedisRelay(rdb, cfg.Redis.RelayPrefix, log.Named("relay"))
		pub = relay
		go func() {
			if err := relay.Run(ctx, hub, nil); err != nil {
				log.Error("notification relay stopped", zap.Error(err))
			}
		}()
	}
	notifier := notify.NewService(st.notifications, notify.ServiceConfig{Logger: log.Named("notify")}, pub)

	b := goalert.New().
		WithConfig(engineCfg).
		WithRedis(rdb).
		WithContactProvider(st.contacts).
		WithNotifier(notifier).
		WithHub(hub).
		WithAuditSink(goalert.NewStoreSink(st.audit, log.Named("audit"))).
		WithSecurityEventWriter(st.security).
		WithLogger(log).
		WithTracer(tracer)

	if err := wireChannels(b, cfg, log); err != nil {
		return err
	}
	if cfg.Authority.URL != "" {
		auth, err := authority.New(cfg.authorityConfig(), log.Named("authority"))
		if err != nil {
			return fmt.Errorf("authority: %w", err)
		}
		b = b.WithAuthority(auth)
	}

	engine, err := b.Build()
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	defer engine.Close()

	tokens, err := jwt.NewManager(cfg.jwtConfig())
	if err != nil {
		return fmt.Errorf("jwt: %w", err)
	}

	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.corsOrigins()
	cors.MaxAge = cfg.CORS.MaxAge

	router := httpapi.NewRouter(httpapi.Config{
		Service:  engine,
		Verifier: tokens,
		Contacts: st.contacts,
		Metrics:  prometheus.NewPrometheusExporter(engine).Handler(),
		Health: func(ctx context.Context) error {
			if err := rdb.Ping(ctx).Err(); err != nil {
				return err
			}
			return st.ping(ctx)
		},
		Logger:     log.Named("http"),
		CORS:       cors,
		TrustProxy: cfg.Server.TrustProxy,
	})

	// No WriteTimeout: the notification stream is long-lived.
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		log.Info("shutting down")
	}

	sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	hub.Close()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}

	report := engine.SecurityReport()
	log.Info("stopped",
		zap.Uint64("audit_dropped", engine.AuditDropped()),
		zap.Uint64("security_events_dropped", engine.SecurityEventsDropped()),
		zap.Any("security_report", report),
	)
	return nil
}

func openStores(ctx context.Context, cfg *serverConfig, engineCfg goalert.Config, log *zap.Logger) (*stores, error) {
	if cfg.Database.DSN == "" {
		log.Warn("DATABASE_DSN not set, using in-memory stores")
		return &stores{
			contacts:      memory.NewContacts(),
			notifications: memory.NewNotifications(),
			audit:         memory.NewAuditLog(),
			security:      memory.NewSecurityEvents(),
			ping:          func(context.Context) error { return nil },
			close:         func() {},
		}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.poolConfig())
	if err != nil {
		return nil, err
	}
	if cfg.Database.Migrate {
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	sealer, err := phi.NewSealer(phi.NewCipher(phi.CipherConfig{Iterations: engineCfg.PHI.Iterations}), phi.SecretFromString(cfg.Audit.Key))
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("audit sealer: %w", err)
	}
	auditLog, err := postgres.NewAuditLog(pool, sealer)
	if err != nil {
		pool.Close()
		return nil, err
	}

	return &stores{
		contacts:      postgres.NewContacts(pool),
		notifications: postgres.NewNotifications(pool),
		audit:         auditLog,
		security:      postgres.NewSecurityEvents(pool),
		ping:          pool.Ping,
		close:         pool.Close,
	}, nil
}

// wireChannels attaches the configured gateways. A missing gateway is not
// fatal: recipients on that channel get a per-recipient failure.
func wireChannels(b *goalert.Builder, cfg *serverConfig, log *zap.Logger) error {
	sms, err := channel.NewSMS(cfg.smsConfig(), log.Named("sms"))
	switch {
	case err == nil:
		b.WithSMSSender(sms)
	case errors.Is(err, channel.ErrNotConfigured):
		log.Warn("SMS gateway not configured")
	default:
		return fmt.Errorf("sms: %w", err)
	}

	email, err := channel.NewEmail(cfg.emailConfig(), log.Named("email"))
	switch {
	case err == nil:
		b.WithEmailSender(email)
	case errors.Is(err, channel.ErrNotConfigured):
		log.Info("email gateway not configured")
	default:
		return fmt.Errorf("email: %w", err)
	}
	return nil
}
