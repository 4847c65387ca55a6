package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"stakepool/config"
	"stakepool/native/bank"
	"stakepool/native/rewards"
	"stakepool/observability/logging"
	telemetry "stakepool/observability/otel"
	"stakepool/rpc"
	"stakepool/storage/pooldb"
)

func main() {
	configPath := flag.String("config", "stakepool.toml", "path to the daemon configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "stakepoold: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := logging.Setup(logging.Options{
		Service: "stakepoold",
		Env:     cfg.Environment,
		File:    cfg.LogFile,
	})

	if endpoint := strings.TrimSpace(cfg.OTLPEndpoint); endpoint != "" {
		shutdown, err := telemetry.Init(context.Background(), telemetry.Config{
			ServiceName: "stakepoold",
			Environment: cfg.Environment,
			Endpoint:    endpoint,
			Insecure:    true,
			Headers:     telemetry.ParseHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS")),
			Traces:      true,
			Metrics:     true,
		})
		if err != nil {
			return fmt.Errorf("init telemetry: %w", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(ctx)
		}()
	}

	program, err := cfg.BuildProgram()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	store, err := pooldb.Open(filepath.Join(cfg.DataDir, "pool.db"))
	if err != nil {
		return err
	}
	defer store.Close()

	ledger := bank.NewLedger()
	allocations, err := cfg.ParseAllocations()
	if err != nil {
		return err
	}
	for _, alloc := range allocations {
		if err := ledger.Credit(alloc.Address, alloc.Asset, alloc.Amount); err != nil {
			return fmt.Errorf("seed allocation: %w", err)
		}
	}
	// The full reward pool is escrowed in custody up front so every claim
	// through the program lifetime can be honoured.
	if err := ledger.CreditCustody(program.RewardAsset, program.TotalRewards); err != nil {
		return fmt.Errorf("fund reward custody: %w", err)
	}

	engine, err := rewards.NewEngine(program)
	if err != nil {
		return err
	}
	engine.SetState(store)
	engine.SetVault(ledger)
	hub := rpc.NewHub()
	engine.SetEmitter(hub)

	server := rpc.NewServer(engine, hub, logger, cfg.RateLimitRPS, cfg.RateLimitBurst)
	httpServer := &http.Server{
		Addr:         cfg.ListenAddress,
		Handler:      otelhttp.NewHandler(server.Router(), "stakepoold"),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.ListenAddress,
			"stakeAsset", program.StakeAsset, "rewardAsset", program.RewardAsset,
			"start", program.Start, "end", program.End)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(ctx)
}
