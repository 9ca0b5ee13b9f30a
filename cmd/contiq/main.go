package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/django/v3"
	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/contiq/contiq/config"
	"github.com/contiq/contiq/content"
	"github.com/contiq/contiq/generate"
	"github.com/contiq/contiq/provider/hosted"
	"github.com/contiq/contiq/provider/local"
	"github.com/contiq/contiq/session"
	"github.com/contiq/contiq/web"
)

func main() {
	logger := session.DefaultLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.DatabaseDSN)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer sqldb.Close()

	db := bun.NewDB(sqldb, sqlitedialect.New())

	repo := content.NewRepo(db)
	if err := repo.CreateSchema(ctx); err != nil {
		logger.Error("failed to create content schema", "error", err)
		os.Exit(1)
	}
	if err := repo.Seed(ctx); err != nil {
		logger.Error("failed to seed dashboard data", "error", err)
		os.Exit(1)
	}

	factory, err := providerFactory(ctx, cfg, db, logger)
	if err != nil {
		logger.Error("failed to configure identity provider", "error", err)
		os.Exit(1)
	}

	registry := session.NewRegistry(factory).
		WithLogger(logger).
		WithTTL(cfg.SessionTTL)
	defer registry.Close()

	generator, err := generate.New(cfg.WebhookURL)
	if err != nil {
		logger.Error("failed to configure generation client", "error", err)
		os.Exit(1)
	}
	generator.WithLogger(logger)

	engine := django.New("./web/views", ".html")
	app := fiber.New(fiber.Config{
		Views:             engine,
		PassLocalsToViews: true,
	})

	web.RegisterRoutes(app, web.Deps{
		Registry:   registry,
		Validator:  hosted.NewTokenValidator(cfg.SigningSecret).WithLogger(logger),
		Repo:       repo,
		Generator:  generator,
		CookieName: cfg.CookieName,
		SessionTTL: cfg.SessionTTL,
		CSRFKey:    []byte(cfg.SigningSecret),
		Logger:     logger,
	})

	go func() {
		if err := app.Listen(cfg.Addr); err != nil {
			logger.Error("server stopped", "error", err)
			os.Exit(1)
		}
	}()

	logger.Info("contiq listening", "addr", cfg.Addr, "provider", cfg.Provider)

	WaitExitSignal()

	logger.Info("shutting down")
	if err := app.Shutdown(); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
}

// providerFactory builds the per-browser-session identity provider
// constructor for the configured backend.
func providerFactory(ctx context.Context, cfg *config.Config, db *bun.DB, logger session.Logger) (session.ProviderFactory, error) {
	switch cfg.Provider {
	case config.ProviderHosted:
		hostedCfg := hosted.Config{
			BaseURL:       cfg.ProviderURL,
			APIKey:        cfg.ProviderKey,
			SigningSecret: cfg.SigningSecret,
			Logger:        logger,
		}
		if err := hostedCfg.Validate(); err != nil {
			return nil, err
		}
		return func() session.IdentityProvider {
			// cfg is validated above, New cannot fail here
			provider, _ := hosted.New(hostedCfg)
			return provider
		}, nil

	case config.ProviderLocal:
		store := local.NewStore(db)
		if err := store.CreateSchema(ctx); err != nil {
			return nil, err
		}
		return func() session.IdentityProvider {
			return local.New(store, cfg.SigningSecret).
				WithLogger(logger).
				WithAutoConfirm(cfg.AutoConfirm)
		}, nil

	default:
		return nil, goerrors.New("unknown identity provider", goerrors.CategoryBadInput).
			WithMetadata(map[string]any{"provider": cfg.Provider})
	}
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
