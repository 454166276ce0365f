package config

import (
	"github.com/spf13/pflag"
)

// ProcessConfig holds configuration for the process command. The RPC URL is
// optional; without it flash fee-growth falls back to storage diffs only.
type ProcessConfig struct {
	RPCURL            string
	Input             string
	OutDir            string
	PGDSN             string
	MarketFile        string
	Checkpoint        string
	CheckpointEnabled bool
	LogLevel          string
}

// LoadProcess merges config file, environment variables, and flags.
func LoadProcess(cfgFile string, flags *pflag.FlagSet) (ProcessConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"in":                 "./data/blocks.jsonl",
		"out-dir":            "./data",
		"checkpoint":         "./data/process.checkpoint.json",
		"checkpoint-enabled": true,
		"log-level":          "info",
	})
	if err != nil {
		return ProcessConfig{}, err
	}

	return ProcessConfig{
		RPCURL:            v.GetString("rpc"),
		Input:             v.GetString("in"),
		OutDir:            v.GetString("out-dir"),
		PGDSN:             v.GetString("pg-dsn"),
		MarketFile:        v.GetString("market"),
		Checkpoint:        v.GetString("checkpoint"),
		CheckpointEnabled: v.GetBool("checkpoint-enabled"),
		LogLevel:          v.GetString("log-level"),
	}, nil
}
