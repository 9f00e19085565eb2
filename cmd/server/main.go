package main

import (
	"context"
	"errors"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tazhibayda/smartfarm-api/internal/config"
	api "github.com/tazhibayda/smartfarm-api/internal/http"
	"github.com/tazhibayda/smartfarm-api/internal/identity"
	"github.com/tazhibayda/smartfarm-api/internal/log"
	"github.com/tazhibayda/smartfarm-api/internal/oauth"
	"github.com/tazhibayda/smartfarm-api/internal/queue"
	"github.com/tazhibayda/smartfarm-api/internal/repo"
	"github.com/tazhibayda/smartfarm-api/internal/repo/memory"
	"github.com/tazhibayda/smartfarm-api/internal/security"
	"github.com/tazhibayda/smartfarm-api/internal/session"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		stdlog.Fatalf("config: %v", err)
	}
	l, err := log.Init(cfg.Production())
	if err != nil {
		stdlog.Fatalf("logger: %v", err)
	}
	defer func() { _ = l.Sync() }()

	if err := run(cfg, l); err != nil {
		l.Fatal("server stopped", zap.Error(err))
	}
}

type backends struct {
	users    identity.Users
	sensors  api.SensorStore
	sessions session.Store
	health   []api.Pinger
	closers  []func()
}

func openBackends(ctx context.Context, cfg config.Server, l *zap.Logger) (*backends, error) {
	b := &backends{}

	var store *repo.Store
	if cfg.StoreBackend == "memory" {
		users := memory.NewUsers()
		b.users, b.sensors = users, memory.NewSensors()
		b.health = append(b.health, users)
		l.Warn("using in-memory store, data is lost on restart")
	} else {
		cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		var err error
		store, err = repo.NewStore(cctx, cfg.MongoURI, cfg.MongoDB, cfg.StoreTimeout)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, func() { _ = store.Close(context.Background()) })
		if err := store.EnsureIndexes(cctx); err != nil {
			b.close()
			return nil, err
		}
		b.users, b.sensors = store.Users(), store.Sensors()
		b.health = append(b.health, store)
	}

	switch {
	case cfg.SessionBackend == "redis":
		r := repo.NewRedis(cfg.RedisAddr)
		if err := r.Ping(ctx); err != nil {
			b.close()
			return nil, err
		}
		b.closers = append(b.closers, func() { _ = r.Close() })
		b.sessions = repo.NewRedisSessions(r, cfg.StoreTimeout)
		b.health = append(b.health, r)
	case cfg.SessionBackend == "memory" || store == nil:
		b.sessions = memory.NewSessions()
	default:
		b.sessions = store.Sessions()
	}
	return b, nil
}

func (b *backends) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func openPublisher(cfg config.Server) (queue.Publisher, error) {
	switch cfg.EventsBackend {
	case "rabbit":
		return queue.NewRabbit(cfg.RabbitURL, cfg.RabbitExchange)
	case "nats":
		return queue.NewNATS(cfg.NatsURL, cfg.RabbitExchange)
	}
	return queue.NewNoop(), nil
}

func providers(cfg config.Server) oauth.Registry {
	var ps []oauth.Provider
	if cfg.GitHub.Enabled() {
		ps = append(ps, oauth.NewGitHub(cfg.GitHub.ClientID, cfg.GitHub.ClientSecret, cfg.GitHub.CallbackURL))
	}
	if cfg.Google.Enabled() {
		ps = append(ps, oauth.NewGoogle(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.CallbackURL))
	}
	return oauth.NewRegistry(ps...)
}

func run(cfg config.Server, l *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var traceService string
	if cfg.TraceEnabled {
		tracer.Start(tracer.WithService(cfg.ServiceName), tracer.WithEnv(cfg.AppEnv))
		defer tracer.Stop()
		traceService = cfg.ServiceName
	}

	b, err := openBackends(ctx, cfg, l)
	if err != nil {
		return err
	}
	defer b.close()

	pub, err := openPublisher(cfg)
	if err != nil {
		l.Warn("events disabled", zap.String("backend", cfg.EventsBackend), zap.Error(err))
		pub = queue.NewNoop()
	}
	defer func() { _ = pub.Close() }()

	if cfg.Production() && cfg.StateSecret == "dev_state_secret" {
		l.Warn("OAUTH_STATE_SECRET is the development default")
	}
	reg := providers(cfg)

	ids := identity.NewPublicIDs(cfg.PublicIDPrefix, cfg.PublicIDWidth, cfg.PublicIDAttempts)
	h := api.NewHandler(api.Deps{
		Resolver:  identity.NewResolver(b.users, security.NewHasher(cfg.BcryptCost), ids),
		Directory: identity.NewDirectory(b.users),
		Auth:      session.NewAuthenticator(b.sessions, b.users, cfg.SessionTTL),
		Sensors:   b.sensors,
		Providers: reg,
		State:     security.NewStateSigner(cfg.StateSecret),
		Events:    pub,
		Health:    b.health,
		Cookie: api.CookieConfig{
			Name:     cfg.SessionCookie,
			Secure:   cfg.Production(),
			SameSite: cfg.SameSite(),
		},
		SuccessRedirect: cfg.SuccessRedirect,
		FailureRedirect: cfg.FailureRedirect,
	})
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewRouter(h, api.RouterOptions{TraceService: traceService}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		l.Info("smartfarm-api listening",
			zap.String("addr", srv.Addr),
			zap.String("store", cfg.StoreBackend),
			zap.String("sessions", cfg.SessionBackend),
			zap.String("events", cfg.EventsBackend),
			zap.Int("oauth_providers", len(reg)))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		l.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}
