package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/associahq/associa/internal/assistant"
	"github.com/associahq/associa/internal/audit"
	"github.com/associahq/associa/internal/config"
	"github.com/associahq/associa/internal/db"
	"github.com/associahq/associa/internal/eligibility"
	"github.com/associahq/associa/internal/handlers"
	"github.com/associahq/associa/internal/identity"
	"github.com/associahq/associa/internal/logger"
	"github.com/associahq/associa/internal/messaging"
	"github.com/associahq/associa/internal/registry"
	"github.com/associahq/associa/internal/server"
	"github.com/associahq/associa/internal/session"
)

func runServe() {
	fx.New(
		fx.Provide(
			provideConfig,
			provideLogger,
			provideDBConn,
			audit.NewRecorder,
			provideRegistryStore,
			provideResolver,
			providePolicy,
			provideAssistantClient,
			provideSessionStore,
			provideDispatcher,
			provideEngine,
			provideUpdater,
			provideServerHandler(providePingHandler),
			provideServerHandler(provideWebhookHandler),
			provideServerHandler(provideMembersHandler),
			provideServer,
		),
		fx.Invoke(startServer),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
		}),
	).Run()
}

func provideServerHandler(fn any) any {
	return fx.Annotate(
		fn,
		fx.As(new(server.Handler)),
		fx.ResultTags(`group:"server_handlers"`),
	)
}

func provideConfig() (config.Config, error) {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	return logger.Init(cfg.Log.Level, cfg.Log.Format)
}

func provideDBConn(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	conn, err := db.Open(context.Background(), cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	lc.Append(fx.Hook{OnStop: func(ctx context.Context) error { conn.Close(); return nil }})
	return conn, nil
}

func provideRegistryStore(log *slog.Logger, pool *pgxpool.Pool, recorder *audit.Recorder) *registry.Store {
	return registry.NewStore(log, pool, recorder)
}

func provideResolver(log *slog.Logger, store *registry.Store) *identity.Resolver {
	return identity.NewResolver(log, store)
}

func providePolicy(log *slog.Logger, store *registry.Store) *eligibility.Policy {
	return eligibility.NewPolicy(log, store)
}

func provideAssistantClient(log *slog.Logger, cfg config.Config) *assistant.Client {
	timeout := time.Duration(cfg.Assistant.TimeoutSeconds) * time.Second
	return assistant.NewClient(log, cfg.Assistant.BaseURL, cfg.Assistant.APIKey, cfg.Assistant.AssistantID, timeout)
}

func provideSessionStore(log *slog.Logger, pool *pgxpool.Pool, client *assistant.Client) *session.Store {
	return session.NewStore(log, pool, client)
}

func provideDispatcher(log *slog.Logger, cfg config.Config) *messaging.WhatsAppDispatcher {
	return messaging.NewWhatsAppDispatcher(log, cfg.WhatsApp)
}

func provideEngine(
	log *slog.Logger,
	cfg config.Config,
	resolver *identity.Resolver,
	policy *eligibility.Policy,
	sessions *session.Store,
	client *assistant.Client,
	dispatcher *messaging.WhatsAppDispatcher,
) *messaging.Engine {
	return messaging.NewEngine(
		log, resolver, policy, sessions, client, dispatcher,
		cfg.Messaging.ResetCommand, cfg.Messaging.ResetConfirmation,
	)
}

func provideUpdater(log *slog.Logger, resolver *identity.Resolver, store *registry.Store) *messaging.Updater {
	return messaging.NewUpdater(log, resolver, store)
}

func providePingHandler() *handlers.PingHandler {
	return handlers.NewPingHandler()
}

func provideWebhookHandler(log *slog.Logger, cfg config.Config, engine *messaging.Engine, updater *messaging.Updater) *handlers.WebhookHandler {
	return handlers.NewWebhookHandler(log, engine, updater, cfg.Auth.APIKey)
}

func provideMembersHandler(log *slog.Logger, store *registry.Store) *handlers.MembersHandler {
	return handlers.NewMembersHandler(log, store)
}

type serverParams struct {
	fx.In

	Logger   *slog.Logger
	Config   config.Config
	Handlers []server.Handler `group:"server_handlers"`
}

func provideServer(p serverParams) *server.Server {
	return server.NewServer(p.Logger, p.Config.Server.Addr, p.Config.Auth.JWTSecret, p.Handlers)
}

func startServer(lc fx.Lifecycle, log *slog.Logger, srv *server.Server, shutdowner fx.Shutdowner) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.Start(); err != nil && err != http.ErrServerClosed {
					log.Error("http server stopped", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
