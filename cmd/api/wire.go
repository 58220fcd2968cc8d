package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"cloud.google.com/go/pubsub"
	commercialadapters "github.com/dejobratic/centralcompras/internal/commercial/adapters"
	commercialhttp "github.com/dejobratic/centralcompras/internal/commercial/adapters/http"
	commercialmemory "github.com/dejobratic/centralcompras/internal/commercial/adapters/memory"
	commercialpostgres "github.com/dejobratic/centralcompras/internal/commercial/adapters/postgres"
	commercialapp "github.com/dejobratic/centralcompras/internal/commercial/app"
	commercialmetrics "github.com/dejobratic/centralcompras/internal/commercial/metrics"
	commercialports "github.com/dejobratic/centralcompras/internal/commercial/ports"
	"github.com/dejobratic/centralcompras/internal/config"
	"github.com/dejobratic/centralcompras/internal/database"
	"github.com/dejobratic/centralcompras/internal/events"
	idemmemory "github.com/dejobratic/centralcompras/internal/idempotency/memory"
	idempostgres "github.com/dejobratic/centralcompras/internal/idempotency/postgres"
	idemredis "github.com/dejobratic/centralcompras/internal/idempotency/redis"
	ordersadapters "github.com/dejobratic/centralcompras/internal/orders/adapters"
	ordershttp "github.com/dejobratic/centralcompras/internal/orders/adapters/http"
	ordersmemory "github.com/dejobratic/centralcompras/internal/orders/adapters/memory"
	orderspostgres "github.com/dejobratic/centralcompras/internal/orders/adapters/postgres"
	ordersapp "github.com/dejobratic/centralcompras/internal/orders/app"
	"github.com/dejobratic/centralcompras/internal/orders/domain"
	ordersmetrics "github.com/dejobratic/centralcompras/internal/orders/metrics"
	ordersports "github.com/dejobratic/centralcompras/internal/orders/ports"
	"github.com/dejobratic/centralcompras/migrations"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/metric"
)

// application holds the wired handlers and the resources closed on exit.
type application struct {
	pool              *pgxpool.Pool
	commercialHandler *commercialhttp.Handler
	ordersHandler     *ordershttp.Handler
	closers           []func()
}

func (a *application) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func buildApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, meter metric.Meter) (*application, error) {
	app := &application{}
	ok := false
	defer func() {
		if !ok {
			app.close()
		}
	}()

	dbMetrics, err := database.NewMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("create database metrics: %w", err)
	}

	if cfg.Database.Backend == "postgres" {
		if err := openDatabase(ctx, cfg.Database, app, logger); err != nil {
			return nil, err
		}
	}

	conditions, campaigns, orderRepo, stores := repositories(app.pool)

	commercialMetrics, err := commercialmetrics.NewMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("create commercial metrics: %w", err)
	}
	pricing := commercialapp.NewService(
		commercialadapters.NewObservableConditionRepository(conditions, dbMetrics),
		commercialadapters.NewObservableCampaignRepository(campaigns, dbMetrics),
		logger.With("component", "commercial"),
		commercialMetrics,
	)

	idemStore, locker, err := idempotency(ctx, cfg, app)
	if err != nil {
		return nil, err
	}

	bus, err := eventBus(ctx, cfg.Events, app, logger)
	if err != nil {
		return nil, err
	}
	eventMetrics, err := events.NewMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("create event metrics: %w", err)
	}

	orderMetrics, err := ordersmetrics.NewMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("create order metrics: %w", err)
	}

	orders := ordersapp.NewService(ordersapp.Dependencies{
		Repo:        ordersadapters.NewObservableRepository(orderRepo, dbMetrics),
		Events:      ordersadapters.NewObservableEventBus(bus, eventMetrics),
		Idempotency: idemStore,
		Pricing:     pricing,
		Stores:      ordersadapters.NewObservableStoreDirectory(stores, dbMetrics),
		Policy:      domain.PolicyFor(cfg.Orders.StrictTransitions),
	}, logger.With("component", "orders"), orderMetrics)

	app.commercialHandler = commercialhttp.NewHandler(pricing)
	app.ordersHandler = ordershttp.NewHandler(orders, locker, logger.With("component", "orders_http"))

	ok = true
	return app, nil
}

func openDatabase(ctx context.Context, cfg config.DatabaseConfig, app *application, logger *slog.Logger) error {
	pool, err := database.NewPool(ctx, cfg.URL)
	if err != nil {
		return fmt.Errorf("create database pool: %w", err)
	}
	app.pool = pool
	app.closers = append(app.closers, pool.Close)

	if !cfg.AutoMigrate {
		return nil
	}

	var source fs.FS = migrations.FS
	if cfg.MigrationsPath != "" {
		source = os.DirFS(cfg.MigrationsPath)
	}

	logger.Info("running database migrations", "path", cfg.MigrationsPath)
	if err := database.RunMigrations(cfg.URL, source); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("migrations completed successfully")
	return nil
}

func repositories(pool *pgxpool.Pool) (
	commercialports.ConditionRepository,
	commercialports.CampaignRepository,
	ordersports.OrderRepository,
	ordersports.StoreDirectory,
) {
	if pool == nil {
		return commercialmemory.NewConditionRepository(),
			commercialmemory.NewCampaignRepository(),
			ordersmemory.NewRepository(),
			ordersmemory.NewStoreDirectory()
	}
	return commercialpostgres.NewConditionRepository(pool),
		commercialpostgres.NewCampaignRepository(pool),
		orderspostgres.NewRepository(pool),
		orderspostgres.NewStoreDirectory(pool)
}

func idempotency(ctx context.Context, cfg *config.Config, app *application) (ordersports.IdempotencyStore, ordersports.KeyLocker, error) {
	switch cfg.Idempotency.Backend {
	case "redis":
		client, err := idemredis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		app.closers = append(app.closers, func() { _ = client.Close() })
		return idemredis.NewStore(client, cfg.Idempotency.TTL), idemredis.NewLocker(client, cfg.Idempotency.LockTTL), nil
	case "postgres":
		if app.pool == nil {
			return nil, nil, fmt.Errorf("IDEMPOTENCY_BACKEND=postgres requires STORAGE_BACKEND=postgres")
		}
		return idempostgres.NewStore(app.pool, cfg.Idempotency.TTL), idemmemory.NewLocker(), nil
	default:
		return idemmemory.NewStore(cfg.Idempotency.TTL), idemmemory.NewLocker(), nil
	}
}

func eventBus(ctx context.Context, cfg config.EventsConfig, app *application, logger *slog.Logger) (ordersports.EventBus, error) {
	if cfg.Backend != "pubsub" {
		return events.NewLogEventBus(logger.With("component", "events")), nil
	}

	client, err := pubsub.NewClient(ctx, cfg.PubSubProject)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	created := client.Topic(cfg.CreatedTopic)
	statusChanged := client.Topic(cfg.StatusChangedTopic)
	app.closers = append(app.closers, func() {
		created.Stop()
		statusChanged.Stop()
		_ = client.Close()
	})

	return events.NewPubSubEventBus(created, statusChanged)
}
