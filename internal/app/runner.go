// =============================
// File: internal/app/runner.go
// =============================

// Package app wires the protocol engines, their ledger, storage and the HTTP
// API into a runnable service.
package app

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/streetsync/launchpad-engine/internal/api"
	"github.com/streetsync/launchpad-engine/internal/config"
	"github.com/streetsync/launchpad-engine/internal/curve"
	"github.com/streetsync/launchpad-engine/internal/events"
	"github.com/streetsync/launchpad-engine/internal/history"
	"github.com/streetsync/launchpad-engine/internal/ledger"
	"github.com/streetsync/launchpad-engine/internal/logger"
	"github.com/streetsync/launchpad-engine/internal/market"
	"github.com/streetsync/launchpad-engine/internal/pda"
	"github.com/streetsync/launchpad-engine/internal/storage"
	"github.com/streetsync/launchpad-engine/internal/storage/postgres"
)

const shutdownTimeout = 30 * time.Second

type Runner struct {
	log      *logger.Logger
	cfg      *config.Config
	bus      *events.Bus
	ledger   *ledger.Ledger
	curves   *curve.Engine
	recorder *history.Recorder
	server   *api.Server
}

// NewRunner builds the full service from a config file path.
func NewRunner(configPath string) (*Runner, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logCfg := logger.DefaultConfig()
	logCfg.Development = cfg.DebugLogging
	log, err := logger.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	bus := events.NewBus(log.Logger, cfg.EventBufferSize)
	l := ledger.New(log.Logger)

	curveEngine := curve.NewEngine(l, bus, log.Logger)
	marketEngine := market.NewEngine(l, market.Params{
		Treasury:           cfg.TreasuryKey(),
		ListingFeeLamports: cfg.ListingFeeLamports,
		FeeBasisPoints:     cfg.MarketFeeBps,
	}, bus, log.Logger)

	var store storage.Storage
	var recorder *history.Recorder
	if cfg.PostgresURL != "" {
		store, err = postgres.NewStorage(cfg.PostgresURL, log.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open storage: %w", err)
		}
		if err := store.RunMigrations(); err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		recorder = history.NewRecorder(bus, store, log.Logger)
	} else {
		log.Warn("No postgres_url configured, transition history disabled")
	}

	server := api.NewServer(cfg.ListenAddr, curveEngine, marketEngine, store, log.Logger)

	return &Runner{
		log:      log,
		cfg:      cfg,
		bus:      bus,
		ledger:   l,
		curves:   curveEngine,
		recorder: recorder,
		server:   server,
	}, nil
}

// SeedDemo funds a demo wallet and launches a curve with the reference
// reserve values, so a fresh instance has something to trade against.
func (r *Runner) SeedDemo(ctx context.Context) error {
	const (
		virtualSol   = 30_000_000_000
		virtualToken = 1_073_000_000_000_000
		realToken    = 800_000_000_000_000
	)

	creator := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()

	if err := r.ledger.Airdrop(creator, 10_000_000_000); err != nil {
		return fmt.Errorf("failed to fund demo creator: %w", err)
	}
	holding, err := pda.HoldingAccount(creator, mint)
	if err != nil {
		return err
	}
	if err := r.ledger.MintTo(holding, mint, creator, realToken); err != nil {
		return fmt.Errorf("failed to mint demo supply: %w", err)
	}

	res, err := r.curves.Initialize(ctx, creator, mint, virtualSol, virtualToken, realToken)
	if err != nil {
		return fmt.Errorf("failed to initialize demo curve: %w", err)
	}

	r.log.Info("Demo curve seeded",
		zap.String("mint", mint.String()),
		zap.String("creator", creator.String()),
		zap.String("curve", res.Curve.String()))
	return nil
}

// Run serves until the context is cancelled or a signal arrives, then shuts
// everything down in order.
func (r *Runner) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(r.server.Run)
	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := r.server.Shutdown(shutdownCtx); err != nil {
			r.log.Warn("HTTP shutdown error", zap.Error(err))
		}
		if r.recorder != nil {
			_ = r.recorder.Close()
		}
		if err := r.bus.Shutdown(shutdownCtx); err != nil {
			r.log.Warn("Event bus shutdown error", zap.Error(err))
		}
		return nil
	})

	err := g.Wait()
	_ = r.log.Sync()
	return err
}
