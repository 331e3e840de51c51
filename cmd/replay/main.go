package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"guidance-replay/internal/api"
	"guidance-replay/internal/config"
	"guidance-replay/internal/db"
	"guidance-replay/internal/metrics"
	"guidance-replay/internal/publisher"
	"guidance-replay/internal/route"
	"guidance-replay/internal/sim"
)

func main() {
	// Load configuration from .env and environment
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	log, err := cfg.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	// Root context with cancellation on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	builder, err := route.NewBuilder(cfg.Spacing, cfg.AccelRate)
	if err != nil {
		log.Fatal("trajectory builder", zap.Error(err))
	}

	// Metrics setup
	var mcol *metrics.Collector
	var metricsSrv *http.Server
	if cfg.MetricsAddr != "" {
		mcol = metrics.NewCollector(cfg.SpeedMultiplier, cfg.TickInterval, cfg.RoutesRefreshInterval)
		metricsSrv = mcol.Serve(cfg.MetricsAddr, log)
	}

	pub, err := publisher.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubjectPrefix, cfg.LogNATSSubjects, mcol, log)
	if err != nil {
		log.Fatal("nats error", zap.Error(err))
	}
	defer pub.Close()

	mgr := sim.NewManager(pub, cfg.TickInterval, cfg.SpeedMultiplier, cfg.LoopReplay, mcol, log)

	if cfg.RouteFile != "" {
		r, err := fileReplay(cfg.RouteFile, builder)
		if err != nil {
			mcol.BuildErrorInc("file")
			log.Fatal("route file", zap.String("path", cfg.RouteFile), zap.Error(err))
		}
		mgr.Start(ctx, []sim.Replay{r})
	}

	var sqlDB *sql.DB
	if cfg.DatabaseURL != "" {
		sqlDB, err = db.Open(cfg.DatabaseURL)
		if err != nil {
			log.Fatal("db open error", zap.Error(err))
		}
		defer sqlDB.Close()
		if err := db.Ping(ctx, sqlDB); err != nil {
			log.Fatal("db ping error", zap.Error(err))
		}
		if err := db.EnsureSchema(ctx, sqlDB); err != nil {
			log.Fatal("db schema error", zap.Error(err))
		}
		src := &db.RouteSource{DB: sqlDB, Builder: builder, RouteID: cfg.RouteID, Metrics: mcol, Log: log}
		if err := mgr.Refresh(ctx, src); err != nil {
			log.Error("initial routes fetch", zap.Error(err))
		}
		// Pick up new and updated routes as they are stored
		mgr.StartRefresher(ctx, src, cfg.RoutesRefreshInterval)
	}

	var apiSrv *http.Server
	if cfg.APIAddr != "" {
		var store api.RouteStore
		if sqlDB != nil {
			store = db.Store{DB: sqlDB}
		}
		var mh http.Handler
		if mcol != nil {
			mh = mcol.Handler()
		}
		h := api.NewHandler(cfg.Spacing, cfg.AccelRate, cfg.MaxEvents, store, mgr, log)
		apiSrv = &http.Server{Addr: cfg.APIAddr, Handler: api.NewRouter(h, mh)}
		go func() {
			if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("api server error", zap.Error(err))
			}
		}()
		log.Info("api listening", zap.String("addr", cfg.APIAddr))
	}

	// A single file replay without anything else to serve ends the process.
	if cfg.DatabaseURL == "" && cfg.APIAddr == "" && !cfg.LoopReplay {
		go func() {
			mgr.Wait()
			cancel()
		}()
	}

	// Block until context cancelled
	<-ctx.Done()
	mgr.Stop()
	shutdownCtx, scancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer scancel()
	for _, srv := range []*http.Server{apiSrv, metricsSrv} {
		if srv != nil {
			_ = srv.Shutdown(shutdownCtx)
		}
	}
	log.Info("shutdown complete")
}

// fileReplay builds the replay for a directions response on disk. Each run
// gets a fresh replay ID.
func fileReplay(path string, b *route.Builder) (sim.Replay, error) {
	f, err := os.Open(path)
	if err != nil {
		return sim.Replay{}, err
	}
	defer f.Close()
	d, err := route.Decode(f)
	if err != nil {
		return sim.Replay{}, err
	}
	tr, err := b.Build(d)
	if err != nil {
		return sim.Replay{}, err
	}
	return sim.Replay{ID: uuid.NewString(), Trajectory: tr}, nil
}
