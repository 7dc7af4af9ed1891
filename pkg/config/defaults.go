package config

import (
	"time"

	"github.com/nlavidas/diachronic-valency/pkg/morph"
	"github.com/nlavidas/diachronic-valency/pkg/treebank"
)

// DefaultPeriods is the chronology used when none is configured.
var DefaultPeriods = []Period{
	{Name: "archaic", Start: -800, End: -480},
	{Name: "classical", Start: -479, End: -323},
	{Name: "hellenistic", Start: -322, End: -31},
	{Name: "koine", Start: -30, End: 300},
	{Name: "late-antique", Start: 301, End: 600},
	{Name: "medieval", Start: 601, End: 1453},
	{Name: "early-modern", Start: 1454, End: 1700},
	{Name: "modern", Start: 1701, End: 2100},
}

// ApplyDefaults sets default values for any zero or unusable values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Database.Path == "" {
		cfg.Database.Path = "valency.db"
	}
	if cfg.Ingest.Workers <= 0 {
		cfg.Ingest.Workers = 4
	}
	if cfg.Ingest.BatchSize <= 0 {
		cfg.Ingest.BatchSize = 50
	}
	if cfg.Ingest.FlushInterval <= 0 {
		cfg.Ingest.FlushInterval = 100 * time.Millisecond
	}
	if cfg.Ingest.TextConcurrency <= 0 {
		cfg.Ingest.TextConcurrency = 2
	}
	if cfg.Aggregator.Shards <= 0 {
		cfg.Aggregator.Shards = 32
	}
	if cfg.Aggregator.ExampleCapacity < 0 {
		cfg.Aggregator.ExampleCapacity = 10
	}
	if cfg.Morphology.Table == "" {
		cfg.Morphology.Table = morph.DefaultTableName
	}
	if cfg.Morphology.Column == "" {
		cfg.Morphology.Column = string(treebank.ColumnXPOS)
	}
	if cfg.Analysis.MinFrequency == 0 {
		cfg.Analysis.MinFrequency = 5
	}
	if len(cfg.Analysis.Periods) == 0 {
		cfg.Analysis.Periods = append([]Period(nil), DefaultPeriods...)
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	return &cfg
}
