package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/rl1809/storefront/internal/adapter/catalog"
	"github.com/rl1809/storefront/internal/adapter/handler"
	"github.com/rl1809/storefront/internal/adapter/remote"
	"github.com/rl1809/storefront/internal/adapter/storage"
	"github.com/rl1809/storefront/internal/config"
	"github.com/rl1809/storefront/internal/core/service"
	"github.com/rl1809/storefront/internal/logger"
	"github.com/rl1809/storefront/internal/port"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	// A missing .env is fine; the environment and config file still apply.
	_ = godotenv.Load()

	// Startup failures are reported through the default stdout logger.
	bootLog, err := logger.New(logger.DefaultConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog.Fatal("failed to load config", zap.Error(err))
	}

	log, err := logger.New(&logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output})
	if err != nil {
		bootLog.Fatal("failed to build logger", zap.String("output", cfg.Log.Output), zap.Error(err))
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped with error", zap.Error(err))
	}
}

// repositories is the storage selected by configuration.
type repositories struct {
	inventory port.InventoryRepository
	carts     port.CartRepository
	orders    port.OrderRepository
	closers   []io.Closer
}

func (r *repositories) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i].Close()
	}
}

func openRepositories(ctx context.Context, cfg *config.Config, log *zap.Logger) (*repositories, error) {
	repos := &repositories{}

	switch cfg.Database.Driver {
	case "memory":
		mem := storage.NewMemoryAdapter()
		repos.inventory, repos.carts, repos.orders = mem, mem, mem
		log.Warn("using in-memory storage, state is lost on exit")

	case "sqlite", "mysql":
		var (
			db      *sql.DB
			dialect storage.Dialect
			err     error
		)
		if cfg.Database.Driver == "sqlite" {
			dialect = storage.DialectSQLite
			db, err = storage.OpenSQLite(cfg.Database.DSN)
		} else {
			dialect = storage.DialectMySQL
			db, err = storage.OpenMySQL(ctx, cfg.Database.DSN, storage.MySQLPool{
				MaxOpenConns:    cfg.Database.MaxOpenConns,
				MaxIdleConns:    cfg.Database.MaxIdleConns,
				ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			})
		}
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", cfg.Database.Driver, err)
		}
		repos.closers = append(repos.closers, db)

		if err := storage.Migrate(ctx, db, dialect); err != nil {
			repos.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		sqlAdapter := storage.NewSQLAdapter(db, dialect)
		repos.inventory, repos.carts, repos.orders = sqlAdapter, sqlAdapter, sqlAdapter
		log.Info("connected to database", zap.String("driver", cfg.Database.Driver))
	}

	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			repos.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		repos.closers = append(repos.closers, rdb)

		redisAdapter := storage.NewRedisAdapter(rdb)
		repos.inventory, repos.carts = redisAdapter, redisAdapter
		log.Info("connected to redis", zap.String("addr", cfg.Redis.Addr))
	}

	return repos, nil
}

func openGateway(cfg *config.Config, log *zap.Logger) (port.CheckoutGateway, io.Closer, error) {
	if cfg.Checkout.RemoteAddr == "" {
		log.Info("no checkout backend configured, accepting orders locally")
		return remote.LocalGateway{}, nil, nil
	}
	conn, err := remote.Dial(cfg.Checkout.RemoteAddr)
	if err != nil {
		return nil, nil, err
	}
	log.Info("checkout backend", zap.String("addr", cfg.Checkout.RemoteAddr))
	return remote.NewGRPCGateway(conn, cfg.Checkout.Timeout, log), conn, nil
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	products, err := cfg.Products()
	if err != nil {
		return err
	}
	cat, err := catalog.NewStaticCatalog(products)
	if err != nil {
		return fmt.Errorf("catalog: %w", err)
	}

	repos, err := openRepositories(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer repos.Close()

	gateway, gatewayConn, err := openGateway(cfg, log)
	if err != nil {
		return err
	}
	if gatewayConn != nil {
		defer gatewayConn.Close()
	}

	// Initialize services
	policy := cfg.Policy()
	ledger := service.NewInventoryLedger(repos.inventory, cat, log)
	carts := service.NewCartService(repos.carts, ledger, cat, policy, log)
	orders := service.NewOrderService(ledger, carts, repos.orders, gateway, policy, log)
	front := service.NewStorefront(ledger, carts, orders)

	if err := ledger.ReconcileCatalog(ctx, products); err != nil {
		return fmt.Errorf("reconcile catalog: %w", err)
	}
	log.Info("catalog reconciled", zap.Int("products", len(products)))

	// Start cart request workers
	requests := service.NewCartRequests(cfg.CartRequests.QueueSize)
	workerLog := log.Named("cart_requests")
	var wg sync.WaitGroup
	for i := 0; i < cfg.CartRequests.Workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			front.ServeCartRequests(id, requests.Requests(), workerLog)
		}(i)
	}
	log.Info("started cart request workers", zap.Int("workers", cfg.CartRequests.Workers))

	// gRPC server
	grpcServer := grpc.NewServer()
	handler.RegisterStorefrontServer(grpcServer, handler.NewGRPCHandler(front, requests, cat, log))
	lis, err := net.Listen("tcp", cfg.GRPC.Addr)
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}

	// HTTP server
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(requestLogger(log.Named("access")))
	handler.NewHTTPHandler(front, requests, cat, log).RegisterRoutes(router)

	httpServer := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("gRPC server listening", zap.String("addr", cfg.GRPC.Addr))
		return grpcServer.Serve(lis)
	})
	g.Go(func() error {
		log.Info("HTTP server listening", zap.String("addr", cfg.HTTP.Addr))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Warn("HTTP shutdown", zap.Error(err))
		}
		log.Info("HTTP server stopped")

		grpcServer.GracefulStop()
		log.Info("gRPC server stopped")
		return nil
	})

	err = g.Wait()

	// Close the request queue and wait for workers
	requests.Close()
	wg.Wait()
	log.Info("workers stopped")

	return err
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
