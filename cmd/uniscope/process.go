package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"uniscope/internal/aggregate"
	"uniscope/internal/chain"
	"uniscope/internal/config"
	"uniscope/internal/extract"
	"uniscope/internal/indexer"
	"uniscope/internal/pricing"
	"uniscope/internal/storage"
	"uniscope/internal/storage/postgres"
	"uniscope/internal/store"
)

func runProcess(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadProcess(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Input == "" {
		return fmt.Errorf("input path is required")
	}

	market, err := config.LoadMarket(cfg.MarketFile)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var chainClient *chain.Client
	var tokens extract.TokenResolver = extract.StaticTokenResolver{}
	if cfg.RPCURL != "" {
		chainClient, err = chain.NewClient(ctx, cfg.RPCURL)
		if err != nil {
			return fmt.Errorf("connect rpc: %w", err)
		}
		defer chainClient.Close()
		tokens = extract.NewChainTokenResolver(chainClient, logger)
	} else {
		logger.Warn("no rpc url: token metadata resolution and flash fee-growth fallback disabled")
	}

	// With Postgres the checkpoint lives next to the data it guards, in the
	// pipeline_state table; otherwise it falls back to the checkpoint file.
	var sink storage.ChangeSink
	var checkpoint indexer.Checkpointer = indexer.NewCheckpointStore(cfg.Checkpoint, cfg.CheckpointEnabled)
	if cfg.PGDSN != "" {
		pgStore, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		sink = postgres.NewSink(ctx, pgStore)
		if cfg.CheckpointEnabled {
			checkpoint = postgres.NewStateCheckpoint(ctx, pgStore, "process")
		}
	} else {
		sink = storage.NewJsonlChangeSink(cfg.OutDir)
	}
	defer sink.Close()

	state := store.NewMemStore()
	extractor, err := extract.NewExtractor(state, market, extract.MainnetContracts(), tokens, chainClient, logger)
	if err != nil {
		return err
	}
	engine := pricing.NewEngine(market, state, logger)
	aggregator := aggregate.NewAggregator(state, engine, logger)

	runner := indexer.NewProcessRunner(state, extractor, aggregator, sink, checkpoint, logger)

	source, err := storage.OpenBlockReader(cfg.Input)
	if err != nil {
		return err
	}
	defer source.Close()

	logger.Info("process start",
		zap.String("in", cfg.Input),
		zap.String("out_dir", cfg.OutDir),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.String("market", cfg.MarketFile),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
		zap.String("checkpoint", cfg.Checkpoint),
	)

	return runner.Run(ctx, source)
}
