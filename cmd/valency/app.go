package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/nlavidas/diachronic-valency/pkg/aggregate"
	"github.com/nlavidas/diachronic-valency/pkg/config"
	"github.com/nlavidas/diachronic-valency/pkg/db"
	"github.com/nlavidas/diachronic-valency/pkg/ingest"
	"github.com/nlavidas/diachronic-valency/pkg/logging"
	"github.com/nlavidas/diachronic-valency/pkg/report"
	"github.com/nlavidas/diachronic-valency/pkg/treebank"
)

// app holds what every command shares: configuration, the store and output.
type app struct {
	cfg    *config.Config
	conn   *sql.DB
	logger *zap.Logger
	stdout io.Writer
	stderr io.Writer
}

func newApp(configPath, dbPath string, stdout, stderr io.Writer) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Debug)
	if err != nil {
		return nil, err
	}
	conn, err := db.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	logger.Debug("database opened", zap.String("path", cfg.Database.Path))
	return &app{cfg: cfg, conn: conn, logger: logger, stdout: stdout, stderr: stderr}, nil
}

func (a *app) Close() {
	_ = a.logger.Sync()
	a.conn.Close()
}

func (a *app) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

func (a *app) newAggregator() *aggregate.Aggregator {
	return aggregate.New(
		aggregate.WithShards(a.cfg.Aggregator.Shards),
		aggregate.WithExampleCapacity(a.cfg.Aggregator.ExampleCapacity),
	)
}

// reporter restores every persisted frame into a fresh aggregator.
func (a *app) reporter(ctx context.Context) (*report.Reporter, error) {
	agg := a.newAggregator()
	n, err := agg.Restore(ctx, db.NewStore(a.conn))
	if err != nil {
		return nil, err
	}
	a.logger.Debug("frames restored", zap.Int("frames", n))
	return report.New(agg), nil
}

// readTexts reads CoNLL-U files and groups their sentences by source text.
// Sentences without a text id take the file name.
func readTexts(paths []string, period string, column treebank.MorphologyColumn) ([]ingest.Text, error) {
	var texts []ingest.Text
	index := make(map[string]int)
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		sentences, err := treebank.ReadCoNLLU(f, treebank.ReadOptions{
			SourceTextID:     strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
			Period:           period,
			MorphologyColumn: column,
		})
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		for _, s := range sentences {
			i, ok := index[s.SourceTextID]
			if !ok {
				i = len(texts)
				index[s.SourceTextID] = i
				texts = append(texts, ingest.Text{ID: s.SourceTextID})
			}
			texts[i].Sentences = append(texts[i].Sentences, s)
		}
	}
	return texts, nil
}
