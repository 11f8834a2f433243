package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront-backend/api/routes"
	"github.com/angelmondragon/storefront-backend/internal/auth"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	product "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/internal/profiles"
	"github.com/angelmondragon/storefront-backend/internal/storefront"
	"github.com/angelmondragon/storefront-backend/internal/users"
	"github.com/angelmondragon/storefront-backend/internal/wishlist"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	bootCtx := context.Background()

	dbClient, err := db.New(bootCtx, cfg.DB, logg)
	if err != nil {
		return err
	}
	if err := migrate.MaybeRunDev(bootCtx, cfg, logg, dbClient); err != nil {
		return multierr.Append(err, dbClient.Close())
	}

	redisClient, err := redis.New(bootCtx, cfg.Redis, logg)
	if err != nil {
		return multierr.Append(err, dbClient.Close())
	}
	defer func() {
		err = multierr.Combine(err, redisClient.Close(), dbClient.Close())
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return err
	}

	conn := dbClient.DB()
	productService, err := product.NewService(product.ServiceParams{
		Repo:   product.NewRepository(conn),
		Logger: logg,
	})
	if err != nil {
		return err
	}

	store, err := storefront.NewDBStore(storefront.DBStoreParams{
		Cart:     cart.NewRepository(conn),
		Wishlist: wishlist.NewRepository(conn),
		Catalog:  productService,
		Logger:   logg,
	})
	if err != nil {
		return err
	}
	storefrontMetrics := metrics.NewStorefrontMetrics(prometheus.DefaultRegisterer)
	registry, err := storefront.NewRegistry(storefront.RegistryParams{
		Store:    store,
		Notifier: storefront.NewLogNotifier(logg),
		Metrics:  storefrontMetrics,
		Logger:   logg,
		MaxAge:   cfg.Storefront.StateMaxAge,
		IdleTTL:  cfg.Storefront.IdleTTL,
	})
	if err != nil {
		return err
	}

	outboxService := outbox.NewService(outbox.NewRepository(conn), logg)
	profileRepo := profiles.NewRepository(conn)

	authService, err := auth.NewService(auth.ServiceParams{
		DB:             dbClient,
		UserRepo:       users.NewRepository(conn),
		ProfileRepo:    profileRepo,
		SessionManager: sessionManager,
		Outbox:         outboxService,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	})
	if err != nil {
		return err
	}
	authService.Subscribe(func(ctx context.Context, change auth.IdentityChange) {
		if !change.SignedIn {
			registry.SignedOut(ctx, change.UserID)
			return
		}
		if err := registry.SignedIn(ctx, change.UserID); err != nil {
			logg.Warn(logg.WithUserID(ctx, change.UserID.String()), "storefront state not loaded on sign-in")
		}
	})

	ordersRepo := orders.NewRepository(conn)
	ordersService, err := orders.NewService(ordersRepo)
	if err != nil {
		return err
	}

	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		DB:       dbClient,
		Orders:   ordersRepo,
		Outbox:   outboxService,
		Managers: registry,
		Metrics:  storefrontMetrics,
		Logger:   logg,
	})
	if err != nil {
		return err
	}

	profileService, err := profiles.NewService(profileRepo)
	if err != nil {
		return err
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			sessionManager,
			authService,
			productService,
			registry,
			checkoutService,
			ordersService,
			profileService,
			prometheus.DefaultGatherer,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go registry.Run(ctx, cfg.Storefront.SweepInterval)

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logg.Info(ctx, "api server shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
