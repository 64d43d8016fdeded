package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"signal-core/internal/api"
	"signal-core/internal/engine"
	"signal-core/internal/events"
	"signal-core/internal/journal"
	"signal-core/internal/market"
	"signal-core/internal/monitor"
	"signal-core/internal/rpc"
	"signal-core/internal/sim"
	"signal-core/internal/state"
	"signal-core/internal/strategy"
	"signal-core/pkg/auth"
	"signal-core/pkg/cache"
	"signal-core/pkg/config"
	"signal-core/pkg/db"
	"signal-core/pkg/i18n"
	"signal-core/pkg/node"
)

var buildVersion = "dev"

// signalMaxAge bounds how long /api/v1/signals reports a product that left the book.
const signalMaxAge = 10 * time.Minute

func main() {
	simulate := flag.Int("simulate", 0, "run N local simulator steps, print the report and exit")
	seed := flag.Int64("seed", 1, "random seed for -simulate")
	issueToken := flag.String("issue-token", "", "print an API token for SUBJECT and exit")
	tokenTTL := flag.Duration("token-ttl", 30*24*time.Hour, "lifetime of tokens issued with -issue-token")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, i18n.Get("ConfigLoadFailed")+"\n", err)
		os.Exit(1)
	}
	i18n.SetLanguage(i18n.Language(cfg.Language))

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, i18n.Get("ConfigLoadFailed")+"\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	nodeID := node.ID()

	if *issueToken != "" {
		tok, err := auth.CreateToken(cfg.JWTSecret, *issueToken, nodeID, *tokenTTL)
		if err != nil {
			logger.Fatal(fmt.Sprintf(i18n.Get("TokenIssueFailed"), err))
		}
		logger.Info(fmt.Sprintf(i18n.Get("TokenIssued"), *issueToken))
		fmt.Println(tok)
		return
	}

	logger.Info(i18n.Get("Starting"), zap.String("version", buildVersion))
	logger.Info(fmt.Sprintf(i18n.Get("ConfigLoaded"), cfg.Port, cfg.GRPCPort))
	logger.Info(fmt.Sprintf(i18n.Get("NodeIdentified"), nodeID))

	stratCfg, err := loadStrategy(cfg)
	if err != nil {
		logger.Fatal(fmt.Sprintf(i18n.Get("StrategyConfigLoadFailed"), err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bus := events.NewBus()
	defer bus.Close()
	sysMetrics := monitor.NewSystemMetrics()
	prom := monitor.NewPrometheus()
	logger.Info(i18n.Get("SystemMetricsInit"))

	if *simulate > 0 {
		code := runSimulation(ctx, logger, stratCfg, *simulate, *seed, sysMetrics, bus)
		stop()
		_ = logger.Sync()
		os.Exit(code)
	}

	signals := cache.NewSignalCache()
	signals.StartJanitor(ctx, time.Minute, signalMaxAge)
	observers := []engine.Observer{sysMetrics, prom, events.DecisionPublisher(bus), monitor.SignalTracker(signals)}

	// Decision journal
	var (
		database *db.Database
		jrnl     *journal.Journal
	)
	if cfg.JournalEnabled {
		database, err = db.Open(cfg.DBDriver, cfg.DSN())
		if err != nil {
			logger.Fatal(fmt.Sprintf(i18n.Get("DBInitFailed"), err))
		}
		if err := db.ApplyMigrations(database); err != nil {
			logger.Fatal(fmt.Sprintf(i18n.Get("DBMigrationsFailed"), err))
		}
		logger.Info(fmt.Sprintf(i18n.Get("UsingDBPath"), cfg.DBDriver, redactDSN(cfg)))

		jrnl = journal.New(database, nodeID, logger, journal.Options{
			OnFlush: func(_ int, elapsed time.Duration, _ error) {
				sysMetrics.JournalLatency.RecordDuration(elapsed)
			},
		})
		observers = append(observers, jrnl)
		logger.Info(i18n.Get("JournalEnabled"))
	} else {
		logger.Info(i18n.Get("JournalDisabled"))
	}

	eng, err := engine.New(stratCfg, engine.WithLogger(logger), engine.WithObserver(observers...))
	if err != nil {
		logger.Fatal(fmt.Sprintf(i18n.Get("EngineInitFailed"), err))
	}
	logger.Info(fmt.Sprintf(i18n.Get("StrategyLoaded"), eng.StrategyName()))

	mon := &monitor.Monitor{Bus: bus, Sink: monitor.LogSink{Logger: logger}, Logger: logger}
	mon.Start(ctx)

	if cfg.JWTSecret != "" {
		logger.Info(i18n.Get("AuthEnabled"))
	} else {
		logger.Warn(i18n.Get("AuthDisabled"))
	}

	// HTTP API
	deps := api.Deps{
		Engine:     eng,
		Bus:        bus,
		Metrics:    sysMetrics,
		Prometheus: prom,
		Signals:    signals,
		Logger:     logger,
	}
	if jrnl != nil {
		deps.Journal = jrnl
	}
	server := api.NewServer(deps, api.Options{
		JWTSecret:      cfg.JWTSecret,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		Meta:           api.SystemMeta{NodeID: nodeID, Version: buildVersion},
	})
	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info(fmt.Sprintf(i18n.Get("ServerListening"), cfg.Port))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(fmt.Sprintf(i18n.Get("APIServerError"), err))
			stop()
		}
	}()

	// gRPC
	grpcSrv := rpc.NewServer(eng, cfg.JWTSecret, logger)
	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		logger.Fatal(fmt.Sprintf(i18n.Get("GRPCServerError"), err))
	}
	go func() {
		logger.Info(fmt.Sprintf(i18n.Get("GRPCListening"), cfg.GRPCPort))
		if err := grpcSrv.Serve(lis); err != nil {
			logger.Error(fmt.Sprintf(i18n.Get("GRPCServerError"), err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info(i18n.Get("ShuttingDown"))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	grpcSrv.GracefulStop()
	if jrnl != nil {
		if err := jrnl.Close(); err != nil {
			logger.Warn("journal close", zap.Error(err))
		}
	}
	if err := database.Close(); err != nil {
		logger.Warn("database close", zap.Error(err))
	}
	logger.Info(i18n.Get("ShutdownComplete"))
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if cfg.LogFormat == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = level
	return zc.Build()
}

func loadStrategy(cfg *config.Config) (strategy.Config, error) {
	kind := state.Kind(cfg.Strategy)
	if cfg.StrategyFile != "" {
		return strategy.LoadConfig(cfg.StrategyFile, kind)
	}
	sc := strategy.DefaultConfig(kind)
	return sc, sc.Validate()
}

func runSimulation(ctx context.Context, logger *zap.Logger, sc strategy.Config, steps int, seed int64, metrics *monitor.SystemMetrics, bus *events.Bus) int {
	eng, err := engine.New(sc, engine.WithLogger(logger), engine.WithObserver(metrics, events.DecisionPublisher(bus)))
	if err != nil {
		logger.Error(fmt.Sprintf(i18n.Get("EngineInitFailed"), err))
		return 1
	}
	logger.Info(fmt.Sprintf(i18n.Get("SimulationStarted"), steps), zap.String("strategy", eng.StrategyName()))

	symbols := make([]string, 0, len(sc.Products))
	for p := range sc.Products {
		symbols = append(symbols, p)
	}
	feed := market.NewMockFeed(seed, sortedStrings(symbols))

	mon := &monitor.Monitor{Bus: bus, Sink: monitor.LogSink{Logger: logger}, Logger: logger}
	mon.Start(ctx)

	rep, err := sim.New(eng, feed, sc.Limits, sim.WithLogger(logger), sim.WithBus(bus)).Run(ctx, steps)
	if err != nil {
		logger.Error("simulation stopped", zap.Error(err))
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(struct {
		sim.Report
		Latency monitor.LatencyStats `json:"run_latency_ms"`
	}{rep, metrics.GetSnapshot().RunLatency})

	logger.Info(i18n.Get("SimulationFinished"))
	if err != nil {
		return 1
	}
	return 0
}
