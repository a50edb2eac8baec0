// Command mongosvcd is the storage orchestrator daemon: it binds the
// framed-BSON listener, wires the ambient stack (logging, metrics, cache,
// archive, audit ledger, admin RPC), and blocks until SIGINT/SIGTERM.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/oriys/mongosvc/internal/adminrpc"
	"github.com/oriys/mongosvc/internal/archive"
	"github.com/oriys/mongosvc/internal/auditlog"
	"github.com/oriys/mongosvc/internal/config"
	"github.com/oriys/mongosvc/internal/logging"
	"github.com/oriys/mongosvc/internal/metrics"
	"github.com/oriys/mongosvc/internal/readcache"
	"github.com/oriys/mongosvc/internal/storage"
	"github.com/oriys/mongosvc/internal/tracing"

	"github.com/oriys/mongosvc/client/pool"
	"github.com/oriys/mongosvc/client/transport"
)

func main() {
	configPath := flag.String("config", "", "path to a JSON or YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Op().Error("failed to load config", "err", err)
		os.Exit(1)
	}
	config.InitGlobal(cfg)
	logging.InitStructured(cfg.Logging.Format, cfg.Logging.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		logging.Op().Error("failed to initialize tracing", "err", err)
		os.Exit(1)
	}

	db, err := storage.NewDBPool(ctx, cfg)
	if err != nil {
		logging.Op().Error("failed to connect to mongo", "err", err)
		os.Exit(1)
	}
	defer db.Close(context.Background())

	collector := metrics.New(cfg.Metrics.Namespace, cfg.Metrics.HistogramBuckets)
	cache := readcache.New(readcache.Config{
		Addr:    cfg.Cache.Addr,
		DB:      cfg.Cache.DB,
		TTL:     cfg.Cache.TTL,
		Enabled: cfg.Cache.Enabled,
	})

	archiver, err := archive.New(ctx, cfg.Archive, db.HistoryCollection())
	if err != nil {
		logging.Op().Error("failed to initialize archiver", "err", err)
		os.Exit(1)
	}
	go archiver.Run(ctx)

	ledger, err := auditlog.New(ctx, cfg.AuditLog)
	if err != nil {
		logging.Op().Error("failed to initialize audit ledger", "err", err)
		os.Exit(1)
	}
	defer ledger.Close()

	orchestrator := storage.New(db, cfg, collector, cache, archiver, ledger)

	listener := storage.NewListener(orchestrator, cfg.Server.Host+":"+strconv.Itoa(cfg.Server.Port))
	if err := listener.Start(ctx); err != nil {
		logging.Op().Error("failed to start storage listener", "err", err)
		os.Exit(1)
	}
	defer listener.Stop()

	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", collector.Handler())
		mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
		metricsSrv = &http.Server{Addr: ":9191", Handler: mux}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logging.Op().Error("metrics server error", "err", err)
			}
		}()
		logging.Op().Info("metrics server started", "addr", metricsSrv.Addr)
	}

	connPool, err := pool.New(func() (*transport.Connection, error) {
		return transport.Dial(transport.Config{
			Host:        cfg.Server.Host,
			Port:        strconv.Itoa(cfg.Server.Port),
			DialTimeout: 5 * time.Second,
		})
	}, pool.Config{
		InitialSize:    cfg.Pool.InitialSize,
		MaxPoolSize:    cfg.Pool.MaxPoolSize,
		MaxConnections: cfg.Pool.MaxConnections,
		MaxIdleTime:    cfg.Pool.MaxIdleTime,
		AcquireTimeout: cfg.Pool.AcquireTimeout,
	})
	if err != nil {
		logging.Op().Error("failed to build admin connection pool", "err", err)
		os.Exit(1)
	}
	defer connPool.Close()

	var adminSrv *adminrpc.Server
	if cfg.AdminRPC.Enabled {
		adminSrv = adminrpc.NewServer(connPool, db)
		if err := adminSrv.Start(cfg.AdminRPC.Addr); err != nil {
			logging.Op().Error("failed to start admin rpc", "err", err)
			os.Exit(1)
		}
		defer adminSrv.Stop()
	}

	logging.Op().Info("mongosvcd started", "addr", cfg.Server.Host, "port", cfg.Server.Port)
	<-ctx.Done()
	logging.Op().Info("shutdown signal received, draining")

	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = metricsSrv.Shutdown(shutdownCtx)
		cancel()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := shutdownTracing(shutdownCtx); err != nil {
		logging.Op().Error("tracing shutdown error", "err", err)
	}
	cancel()
}
