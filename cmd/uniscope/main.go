package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "uniscope",
		Short:        "Uniswap V3 trace capture and financial derivation",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	captureCmd := &cobra.Command{
		Use:   "capture",
		Short: "Capture protocol logs into block traces",
		RunE:  runCapture,
	}

	captureCmd.Flags().String("rpc", "", "Ethereum RPC URL")
	captureCmd.Flags().Uint64("from", 0, "start block (inclusive)")
	captureCmd.Flags().Uint64("to", 0, "end block (inclusive), 0 means latest")
	captureCmd.Flags().StringSlice("address", nil, "restrict capture to these contracts (comma-separated)")
	captureCmd.Flags().StringSlice("topic0", nil, "override the topic0 filter (comma-separated)")
	captureCmd.Flags().Uint64("batch-size", 2000, "blocks per batch")
	captureCmd.Flags().String("out", "./data/blocks.jsonl", "output block traces JSONL path")
	captureCmd.Flags().String("checkpoint", "./data/capture.checkpoint.json", "checkpoint file path")
	captureCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	captureCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	captureCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	captureCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(captureCmd)

	processCmd := &cobra.Command{
		Use:   "process",
		Short: "Derive entity changes from captured block traces",
		RunE:  runProcess,
	}

	processCmd.Flags().String("rpc", "", "Ethereum RPC URL (optional; enables token metadata and flash fee-growth fallback)")
	processCmd.Flags().String("in", "./data/blocks.jsonl", "input block traces JSONL")
	processCmd.Flags().String("out-dir", "./data", "output directory for JSONL sinks")
	processCmd.Flags().String("pg-dsn", "", "Postgres DSN (replaces the JSONL sink when set)")
	processCmd.Flags().String("market", "", "market tables config file (defaults to mainnet)")
	processCmd.Flags().String("checkpoint", "./data/process.checkpoint.json", "checkpoint file path")
	processCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	processCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(processCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
