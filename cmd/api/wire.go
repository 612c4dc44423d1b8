package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/Traslados-api/internal/application/financial"
	"github.com/jhoicas/Traslados-api/internal/application/inventory"
	"github.com/jhoicas/Traslados-api/internal/application/transfer"
	"github.com/jhoicas/Traslados-api/internal/application/usecase"
	"github.com/jhoicas/Traslados-api/internal/domain/policy"
	"github.com/jhoicas/Traslados-api/internal/domain/repository"
	"github.com/jhoicas/Traslados-api/internal/domain/variance"
	"github.com/jhoicas/Traslados-api/internal/infrastructure/events"
	"github.com/jhoicas/Traslados-api/internal/infrastructure/lock"
	"github.com/jhoicas/Traslados-api/internal/infrastructure/memory"
	infrapdf "github.com/jhoicas/Traslados-api/internal/infrastructure/pdf"
	"github.com/jhoicas/Traslados-api/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/Traslados-api/internal/interfaces/http"
	"github.com/jhoicas/Traslados-api/pkg/config"
	"github.com/jhoicas/Traslados-api/pkg/logger"
)

type txRunner interface {
	Run(ctx context.Context, fn func(repos repository.Repositories) error) error
}

// container dependencias armadas para serve y sweep.
type container struct {
	cfg       *config.Config
	log       *logger.Logger
	transfers *transfer.Service
	financial *financial.Service
	router    httpRouter.RouterDeps
	closers   []func()
}

// Close libera en orden inverso lo abierto por build.
func (c *container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

func loadConfig() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("cargar configuración: %w", err)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Service: cfg.App.Name})
	return cfg, log, nil
}

func build(ctx context.Context, cfg *config.Config, log *logger.Logger) (*container, error) {
	c := &container{cfg: cfg, log: log}

	fallback, err := staticTolerance(cfg.Tolerance)
	if err != nil {
		return nil, err
	}

	var (
		tx        txRunner
		repos     repository.Repositories
		tolerance transfer.ToleranceProvider
	)
	switch cfg.Store.Driver {
	case "memory":
		log.Warn().Msg("almacén en memoria: los datos se pierden al reiniciar")
		store := memory.NewStore()
		tx, repos = store, store.Repositories()
		tolerance = fallback
	case "postgres", "":
		if cfg.Store.MigrationsAuto {
			if err := postgres.Migrate(cfg.DB.ConnectionString(), log); err != nil {
				return nil, err
			}
		}
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
		}
		c.closers = append(c.closers, pool.Close)
		tx, repos = postgres.NewTxRunner(pool), postgres.NewRepositories(pool)
		tolerance = postgres.NewToleranceProvider(postgres.NewToleranceRuleRepository(pool), fallback)
	default:
		return nil, fmt.Errorf("STORE_DRIVER desconocido: %q", cfg.Store.Driver)
	}

	var rdb redis.UniversalClient
	if cfg.Redis.Enabled() {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("conexión a Redis: %w", err)
		}
		rdb = client
		c.closers = append(c.closers, func() { _ = client.Close() })
	}

	var locker transfer.Locker
	switch cfg.Lock.Driver {
	case "redis":
		if rdb == nil {
			return nil, fmt.Errorf("LOCK_DRIVER=redis requiere REDIS_ADDR")
		}
		locker = lock.NewRedis(rdb, cfg.Lock.Expiry, log.Component("lock").Zerolog())
	case "local", "":
		locker = lock.NewLocal()
	default:
		return nil, fmt.Errorf("LOCK_DRIVER desconocido: %q", cfg.Lock.Driver)
	}

	sinks := []events.Sink{events.NewLogSink(log.Component("events").Zerolog())}
	if cfg.Events.Stream != "" {
		if rdb == nil {
			return nil, fmt.Errorf("EVENTS_STREAM requiere REDIS_ADDR")
		}
		sinks = append(sinks, events.NewRedisStreamSink(rdb, cfg.Events.Stream, cfg.Events.MaxLen))
	}
	publisher := events.NewAsyncPublisher(log.Component("events"), cfg.Events.Buffer, sinks...)
	c.closers = append(c.closers, publisher.Close)

	c.financial = financial.NewService(tx, repos.Impacts, log.Component("financial"))
	c.transfers = transfer.NewService(transfer.Deps{
		Tx:        tx,
		Repos:     repos,
		Tolerance: tolerance,
		Publisher: publisher,
		Locker:    locker,
		Impacts:   c.financial,
		Documents: infrapdf.NewDispatchNoteGenerator(cfg.App.Name),
		Log:       log.Component("transfer"),
	}, transfer.Config{
		Severity: variance.SeverityThresholds{
			HighMultiplier:     cfg.Tolerance.HighMultiplier,
			CriticalMultiplier: cfg.Tolerance.CriticalMultiplier,
		},
		RequireAllLines:    cfg.Receipt.RequireAllLines,
		AutoReconcileClean: cfg.Receipt.AutoReconcileClean,
	})

	c.router = httpRouter.RouterDeps{
		LocationUC:       usecase.NewLocationUseCase(repos.Locations),
		Transfers:        c.transfers,
		Financial:        c.financial,
		RegisterMovement: inventory.NewRegisterMovementUseCase(tx, repos.Locations),
		Balance:          inventory.NewBalanceQuery(repos.Stock, repos.Ledger),
		JWTSecret:        cfg.JWT.Secret,
	}
	return c, nil
}

func staticTolerance(cfg config.ToleranceConfig) (*policy.StaticProvider, error) {
	byLocation, err := policy.ParseLocationOverrides(cfg.LocationOverrides)
	if err != nil {
		return nil, fmt.Errorf("TOLERANCE_LOCATION_OVERRIDES: %w", err)
	}
	byCategory, err := policy.ParseCategoryOverrides(cfg.CategoryOverrides)
	if err != nil {
		return nil, fmt.Errorf("TOLERANCE_CATEGORY_OVERRIDES: %w", err)
	}
	return policy.NewStaticProvider(cfg.DefaultPercent, byLocation, byCategory), nil
}

func (c *container) sweeper() *transfer.Sweeper {
	a := c.cfg.AutoApprove
	return transfer.NewSweeper(c.transfers, variance.AutoApprovalRule{
		MaxVariancePercent: a.MaxVariancePercent,
		MaxAbsQuantity:     a.MaxAbsQuantity,
		MaxValue:           a.MaxValue,
	}, a.SystemActorID, c.log.Component("sweep"))
}
