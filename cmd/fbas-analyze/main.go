package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rachitkumar205/fbas-analyzer/internal/config"
	"github.com/rachitkumar205/fbas-analyzer/internal/limits"
	"github.com/rachitkumar205/fbas-analyzer/internal/metrics"
	"github.com/rachitkumar205/fbas-analyzer/pkg/analyzer"
	"go.uber.org/zap"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage:")
		fmt.Println("	fbas-analyze <quorum-map.json>")
		os.Exit(1)
	}
	path := os.Args[1]

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	var logger *zap.Logger
	if cfg.Debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting fbas analysis",
		zap.String("path", path),
		zap.Duration("time_limit", cfg.TimeLimit),
		zap.Uint64("memory_limit_bytes", cfg.MemoryLimitBytes))

	m := metrics.NewMetrics("fbas")

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		http.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{Addr: cfg.MetricsAddr}

		go func() {
			logger.Info("metrics server listening", zap.String("addr", cfg.MetricsAddr))
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Fatal("metrics server failed", zap.Error(err))
			}
		}()
	}

	var lim *limits.Limiter
	if cfg.Unlimited() {
		lim = limits.Unlimited(logger)
	} else {
		timeLimit, memLimit := cfg.EffectiveLimits()
		lim = limits.NewLimiter(timeLimit, memLimit, logger)
	}

	encodeStart := time.Now()
	an, err := analyzer.FromJSONPath(path, lim, logger)
	if err != nil {
		exitOnError(logger, m, err)
	}
	m.EncodeLatency.Observe(time.Since(encodeStart).Seconds())

	stats := an.FormulaStats()
	m.Vertices.Set(float64(an.NumVertices()))
	m.ValidatorsTotal.Set(float64(an.NumValidators()))
	m.Clauses.Set(float64(stats.Clauses))
	m.AuxVars.Set(float64(stats.AuxVars))
	logger.Info("formula ready",
		zap.Int("vertices", an.NumVertices()),
		zap.Int("validators", an.NumValidators()),
		zap.Uint64("clauses", stats.Clauses),
		zap.Uint64("num_vars", stats.NumVars))

	solveStart := time.Now()
	status, err := an.Solve()
	if err != nil {
		exitOnError(logger, m, err)
	}
	m.SolveLatency.Observe(time.Since(solveStart).Seconds())
	m.RecordResult(status.String())

	switch status {
	case analyzer.StatusUNSAT:
		fmt.Println("quorum intersection holds (UNSAT)")
	case analyzer.StatusSAT:
		qa, qb, err := an.PotentialSplit()
		if err != nil {
			exitOnError(logger, m, err)
		}
		m.SplitSize.WithLabelValues("a").Set(float64(len(qa)))
		m.SplitSize.WithLabelValues("b").Set(float64(len(qb)))

		fmt.Println("quorum intersection violated (SAT)")
		fmt.Printf("quorum a: %v\n", qa)
		fmt.Printf("quorum b: %v\n", qb)
	default:
		fmt.Println("result unknown")
	}

	if metricsServer != nil {
		// keep serving until interrupted so the final gauges can be scraped
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh

		logger.Info("shutting down")
		metricsServer.Close()
	}
}

func exitOnError(logger *zap.Logger, m *metrics.Metrics, err error) {
	var limitErr *limits.LimitError
	if errors.As(err, &limitErr) {
		m.RecordLimitExceeded()
		logger.Error("analysis aborted on resource limit",
			zap.Duration("time_used", limitErr.Usage.Time),
			zap.Uint64("mem_bytes", limitErr.Usage.MemBytes))
	} else {
		logger.Error("analysis failed", zap.Error(err))
	}
	logger.Sync()
	os.Exit(1)
}
