package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"beltworks.dev/internal/logging"
	"beltworks.dev/internal/metrics"
	"beltworks.dev/internal/persistence/indexdb"
	persistlog "beltworks.dev/internal/persistence/log"
	"beltworks.dev/internal/sim/world"
	"beltworks.dev/internal/transport/observer"
)

func main() {
	var (
		addr      = flag.String("addr", ":8080", "http listen address")
		worldID   = flag.String("world", "world_1", "world id")
		configDir = flag.String("configs", "./configs", "config directory")
		dataDir   = flag.String("data", "./data", "runtime data directory")
		disableDB = flag.Bool("disable_db", false, "disable the sqlite index (tick reports, runs, catalogs)")

		logLevel = flag.String("log_level", "info", "log level: debug, info, warn, error")
		logFile  = flag.String("log_file", "", "also write JSON logs to this rotating file")

		remoteObservers = flag.Bool("remote_observers", false, "serve observer endpoints to non-loopback clients")
	)
	flag.Parse()

	logger, err := logging.New(logging.Config{Level: *logLevel, File: *logFile})
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(serverConfig{
		Addr:            *addr,
		WorldID:         *worldID,
		ConfigDir:       *configDir,
		DataDir:         *dataDir,
		DisableDB:       *disableDB,
		RemoteObservers: *remoteObservers,
	}, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

type serverConfig struct {
	Addr            string
	WorldID         string
	ConfigDir       string
	DataDir         string
	DisableDB       bool
	RemoteObservers bool
}

func run(cfg serverConfig, logger *zap.Logger) error {
	w, tune, problems, err := world.Load(cfg.ConfigDir, cfg.WorldID, logger)
	if err != nil {
		return err
	}
	for _, p := range problems {
		logger.Warn("config problem", zap.Stringer("problem", p))
	}
	logger.Info("world loaded",
		zap.String("world", cfg.WorldID),
		zap.String("run", w.RunID()),
		zap.Int("buildings", w.Metrics().Buildings),
		zap.Int("problems", len(problems)),
		zap.String("catalogs_digest", w.Catalogs().Digest()),
	)

	worldDir := filepath.Join(cfg.DataDir, "worlds", cfg.WorldID)
	if err := os.MkdirAll(worldDir, 0o755); err != nil {
		return err
	}

	tickLog := persistlog.NewTickLogger(worldDir)
	defer tickLog.Close()
	w.AddSink(tickLog)

	problemLog := persistlog.NewProblemLogger(worldDir)
	for _, p := range problems {
		if err := problemLog.WriteProblem(persistlog.ProblemEntry{RunID: w.RunID(), WorldID: cfg.WorldID, Problem: p}); err != nil {
			logger.Warn("problem log", zap.Error(err))
		}
	}
	_ = problemLog.Close()

	// Optional: read-model index (does not affect sim determinism).
	idx, err := openRuntimeIndex(worldDir, cfg.DisableDB)
	if err != nil {
		return err
	}
	if idx != nil {
		defer idx.Close()
		if err := idx.UpsertCatalogs(cfg.ConfigDir, w.Catalogs(), tune); err != nil {
			logger.Warn("index: upsert catalogs", zap.Error(err))
		}
		idx.RecordRun(w.RunID(), cfg.WorldID, w.Catalogs().Digest())
		idx.RecordProblems(w.RunID(), problems)
		w.AddSink(idx)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	col, err := metrics.New(prometheus.WrapRegistererWith(prometheus.Labels{"world": cfg.WorldID}, reg), "beltworks")
	if err != nil {
		return err
	}
	w.AddStepObserver(col)

	ctx, cancel := signalContext()
	defer cancel()

	worldDone := make(chan struct{})
	go func() {
		defer close(worldDone)
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("world stopped", zap.Error(err))
		}
	}()
	go func() {
		t := time.NewTicker(time.Second)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				col.SetObservers(w.Metrics().Observers)
			}
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/v1/state", stateHandler(cfg.WorldID, w, idx, logger))

	obsSrv := observer.NewServer(w, logger)
	obsSrv.AllowRemote = cfg.RemoteObservers
	mux.HandleFunc("/observer/bootstrap", obsSrv.BootstrapHandler())
	mux.HandleFunc("/observer/ws", obsSrv.WSHandler())

	if envBool("BW_ENABLE_PPROF_HTTP", false) {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Info("listening", zap.String("addr", cfg.Addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		cancel()
		<-worldDone
		return err
	}
	<-worldDone
	return nil
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

type stateResponse struct {
	WorldID string             `json:"world_id"`
	RunID   string             `json:"run_id"`
	Tick    uint64             `json:"tick"`
	Metrics world.WorldMetrics `json:"metrics"`
	// Index totals lag the live tick by whatever the index queue holds.
	Index *indexdb.RunTotals `json:"index,omitempty"`
}

// stateHandler reports live world metrics and, when the sqlite index is
// enabled, the indexed totals of the current run.
func stateHandler(worldID string, w *world.World, idx *indexdb.SQLiteIndex, logger *zap.Logger) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		resp := stateResponse{
			WorldID: worldID,
			RunID:   w.RunID(),
			Tick:    w.CurrentTick(),
			Metrics: w.Metrics(),
		}
		if idx != nil {
			tot, err := idx.RunTotals(r.Context(), w.RunID())
			if err != nil {
				logger.Warn("index: run totals", zap.Error(err))
			} else {
				resp.Index = &tot
			}
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
