package main

import (
	"github.com/BurntSushi/toml"
)

// Config is the stress scenario, loaded from a TOML file. Flags override
// individual fields.
type Config struct {
	// Entities is the initial population.
	Entities int `toml:"entities"`
	// Ticks is how many scheduler ticks to run.
	Ticks int `toml:"ticks"`
	// Workers is the number of goroutines feeding the command buffer.
	Workers int `toml:"workers"`
	// CommandsPerWorkerTick is how many deferred mutations each worker
	// records per tick.
	CommandsPerWorkerTick int `toml:"commands_per_worker_tick"`
	// ChurnRatio is the fraction of entities removed and respawned each
	// tick, exercising host create/release paths.
	ChurnRatio float64 `toml:"churn_ratio"`
	// SparseStorage backs hosts with paged storage instead of arrays.
	SparseStorage bool `toml:"sparse_storage"`
	// GCPauseMetrics enables detailed GC metrics in the report.
	GCPauseMetrics bool `toml:"gc_pause_metrics"`
}

func defaultConfig() Config {
	return Config{
		Entities:              10000,
		Ticks:                 1000,
		Workers:               4,
		CommandsPerWorkerTick: 100,
		ChurnRatio:            0.01,
	}
}

func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
