package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/jenkinph/procedure-passport/cache"
	"github.com/jenkinph/procedure-passport/config"
	"github.com/jenkinph/procedure-passport/controllers"
	"github.com/jenkinph/procedure-passport/database"
	"github.com/jenkinph/procedure-passport/logger"
	"github.com/jenkinph/procedure-passport/middlewares"
	"github.com/jenkinph/procedure-passport/routes"
	"github.com/jenkinph/procedure-passport/services"
	"github.com/jenkinph/procedure-passport/store"
	"github.com/jenkinph/procedure-passport/views"
)

// backend is an opened store plus whatever must be closed on exit.
type backend struct {
	store store.Store
	db    *gorm.DB
}

func (b backend) close(log *logger.Logger) {
	if b.db != nil {
		database.Close(b.db, log)
	}
}

func setup() (config.Config, *logger.Logger, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return cfg, nil, fmt.Errorf("config: %w", err)
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return cfg, nil, fmt.Errorf("logger: %w", err)
	}
	return cfg, log, nil
}

func openStore(cfg config.Config, log *logger.Logger) (backend, error) {
	if cfg.StoreDriver == config.DriverSheet {
		table, err := store.NewFileTable(cfg.SheetDir)
		if err != nil {
			return backend{}, err
		}
		log.Info("sheet store opened", "dir", cfg.SheetDir)
		return backend{store: store.NewSheetStore(table, log)}, nil
	}
	db, err := database.Connect(cfg, log)
	if err != nil {
		return backend{}, err
	}
	return backend{store: store.NewGormStore(db, log), db: db}, nil
}

func openCache(ctx context.Context, cfg config.Config, log *logger.Logger) (cache.Cache, error) {
	if cfg.CacheBackend != config.CacheRedis {
		return cache.NewMemory(cfg.CacheTTL), nil
	}
	rdb, err := cache.NewRedisClient(ctx, cfg.RedisAddr)
	if err != nil {
		return nil, err
	}
	log.Info("redis cache connected", "addr", cfg.RedisAddr)
	return cache.NewRedis(rdb, cfg.RedisPrefix, cfg.CacheTTL), nil
}

// seedCatalog ensures every row of the catalog file exists.
func seedCatalog(ctx context.Context, st store.CatalogStore, path string, log *logger.Logger) error {
	seed, err := database.LoadCatalogSeed(path)
	if err != nil {
		return err
	}
	if _, err := database.Seed(ctx, st, seed, log); err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}
	return nil
}

// bootstrapCatalog seeds the catalog only into an empty store.
func bootstrapCatalog(ctx context.Context, st store.CatalogStore, path string, log *logger.Logger) error {
	seed, err := database.LoadCatalogSeed(path)
	if err != nil {
		return err
	}
	if _, err := database.Bootstrap(ctx, st, seed, log); err != nil {
		return fmt.Errorf("bootstrap catalog: %w", err)
	}
	return nil
}

// newApp builds the fiber app with views, middleware and routes.
func newApp(cfg config.Config, svc *services.Services, log *logger.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		Views:        services.NewEngine(views.FS()),
		JSONEncoder:  sonic.Marshal,
		JSONDecoder:  sonic.Unmarshal,
		ErrorHandler: controllers.ErrorHandler,
		BodyLimit:    4 * 1024 * 1024,
	})
	middlewares.Setup(app, cfg.RequestTimeout)

	controllers.SessionStore = session.New(session.Config{
		Expiration:     12 * time.Hour,
		CookieHTTPOnly: true,
		CookieSameSite: "Lax",
	})
	controllers.Svc = svc
	controllers.Log = log.With("component", "http")

	routes.Register(app, svc)
	return app
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	be, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer be.close(log)

	c, err := openCache(ctx, cfg, log)
	if err != nil {
		return err
	}
	st := cache.NewCachedStore(be.store, c, log)
	if err := bootstrapCatalog(ctx, st, cfg.CatalogSeed, log); err != nil {
		return err
	}

	app := newApp(cfg, services.New(cfg, st, log), log)

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.ServerPort, "store", cfg.StoreDriver, "cache", cfg.CacheBackend)
		errCh <- app.Listen(cfg.ServerPort)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	path := cfg.CatalogSeed
	if len(args) == 1 {
		path = args[0]
	}
	be, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer be.close(log)
	return seedCatalog(cmd.Context(), be.store, path, log)
}
