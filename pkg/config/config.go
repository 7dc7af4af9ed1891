// Package config loads engine configuration from YAML and the environment.
package config

import (
	"fmt"
	"time"

	"github.com/nlavidas/diachronic-valency/pkg/morph"
	"github.com/nlavidas/diachronic-valency/pkg/treebank"
)

// Config is the root configuration.
type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Aggregator AggregatorConfig `yaml:"aggregator"`
	Morphology MorphologyConfig `yaml:"morphology"`
	Analysis   AnalysisConfig   `yaml:"analysis"`
	Lexicon    LexiconConfig    `yaml:"lexicon"`
	Log        LogConfig        `yaml:"log"`
}

// DatabaseConfig holds the SQLite store location.
type DatabaseConfig struct {
	Path string `yaml:"path" env:"VALENCY_DB_PATH" env-default:"valency.db"`
}

// IngestConfig tunes the ingestion pipeline.
type IngestConfig struct {
	Workers         int           `yaml:"workers"          env:"VALENCY_WORKERS"          env-default:"4"`
	BatchSize       int           `yaml:"batch_size"       env:"VALENCY_BATCH_SIZE"       env-default:"50"`
	FlushInterval   time.Duration `yaml:"flush_interval"   env:"VALENCY_FLUSH_INTERVAL"   env-default:"100ms"`
	TextConcurrency int           `yaml:"text_concurrency" env:"VALENCY_TEXT_CONCURRENCY" env-default:"2"`
}

// AggregatorConfig sizes the in-memory frame store.
type AggregatorConfig struct {
	Shards          int `yaml:"shards"           env:"VALENCY_SHARDS"           env-default:"32"`
	ExampleCapacity int `yaml:"example_capacity" env:"VALENCY_EXAMPLE_CAPACITY" env-default:"10"`
}

// MorphologyConfig selects the position table and the CoNLL-U column the
// code is read from. A Custom table with a name takes precedence over the
// built-in one named by Table.
type MorphologyConfig struct {
	Table  string      `yaml:"table"            env:"VALENCY_MORPHOLOGY_TABLE"  env-default:"canonical-v1"`
	Column string      `yaml:"column"           env:"VALENCY_MORPHOLOGY_COLUMN" env-default:"xpos"`
	Custom morph.Table `yaml:"custom,omitempty"`
}

// AnalysisConfig holds change detection settings.
type AnalysisConfig struct {
	MinFrequency int      `yaml:"min_frequency" env:"VALENCY_MIN_FREQUENCY" env-default:"5"`
	Periods      []Period `yaml:"periods"`
}

// LexiconConfig points at an optional lemma lexicon.
type LexiconConfig struct {
	Path string `yaml:"path" env:"VALENCY_LEXICON_PATH"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level" env:"VALENCY_LOG_LEVEL" env-default:"info"`
	Debug bool   `yaml:"debug" env:"VALENCY_LOG_DEBUG" env-default:"false"`
}

// Validate checks values that defaults cannot repair.
func (c *Config) Validate() error {
	if c.Analysis.MinFrequency < 1 {
		return fmt.Errorf("analysis.min_frequency must be at least 1, got %d", c.Analysis.MinFrequency)
	}
	if _, err := c.MorphologyTable(); err != nil {
		return err
	}
	if _, err := c.MorphologyColumn(); err != nil {
		return fmt.Errorf("morphology.column: %w", err)
	}
	if _, err := c.Chronology(); err != nil {
		return err
	}
	return nil
}

// MorphologyTable resolves the configured position table.
func (c *Config) MorphologyTable() (morph.Table, error) {
	if c.Morphology.Custom.Name != "" {
		if err := c.Morphology.Custom.Validate(); err != nil {
			return morph.Table{}, fmt.Errorf("morphology.custom: %w", err)
		}
		return c.Morphology.Custom, nil
	}
	return morph.LookupTable(c.Morphology.Table)
}

// MorphologyColumn resolves the CoNLL-U column holding the morphology code.
func (c *Config) MorphologyColumn() (treebank.MorphologyColumn, error) {
	return treebank.ParseMorphologyColumn(c.Morphology.Column)
}

// Chronology builds the configured period chronology.
func (c *Config) Chronology() (*Chronology, error) {
	return NewChronology(c.Analysis.Periods)
}
