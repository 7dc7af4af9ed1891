package ingest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nlavidas/diachronic-valency/pkg/db"
)

// IngestAll ingests texts concurrently, at most TextConcurrency at a time.
// A failing text does not stop the others: frames recorded from them are
// kept and the failure is listed in Summary.FailedTexts. The returned error
// is reserved for run-level problems such as cancellation or a database
// that cannot record the run.
func (ig *Ingester) IngestAll(ctx context.Context, texts []Text) (Summary, error) {
	sum := Summary{
		RunID:           uuid.NewString(),
		MorphologyTable: ig.Extractor.Decoder().Table().Name,
		StartedAt:       time.Now().UTC(),
	}
	logger := ig.Logger.With(zap.String("run", sum.RunID))
	noiseBefore := ig.Extractor.Noise()

	if ig.DB != nil {
		if err := db.StartRun(ig.DB, sum.RunID, sum.MorphologyTable, sum.StartedAt); err != nil {
			return sum, fmt.Errorf("start run: %w", err)
		}
	}
	logger.Info("ingestion started", zap.Int("texts", len(texts)), zap.String("table", sum.MorphologyTable))

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(ig.TextConcurrency)
	for _, text := range texts {
		text := text
		g.Go(func() error {
			res, err := ig.Ingest(ctx, text)
			mu.Lock()
			defer mu.Unlock()
			sum.add(res)
			if err != nil {
				sum.FailedTexts = append(sum.FailedTexts, TextError{TextID: text.ID, Err: err})
				logger.Error("text failed", zap.String("text", text.ID), zap.Error(err))
				return nil
			}
			logger.Info("text ingested",
				zap.String("text", text.ID),
				zap.Int("sentences", res.Sentences),
				zap.Int("resumed", res.Resumed),
				zap.Int("verbs", res.VerbOccurrences),
				zap.Int("skipped", res.Skipped))
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(sum.FailedTexts, func(i, j int) bool { return sum.FailedTexts[i].TextID < sum.FailedTexts[j].TextID })
	sum.Noise = ig.Extractor.Noise() - noiseBefore
	sum.Decoder = ig.Extractor.Decoder().Stats()
	sum.FinishedAt = time.Now().UTC()

	if ig.DB != nil {
		err := db.FinishRun(ig.DB, db.IngestRun{
			ID:               sum.RunID,
			FinishedAt:       sum.FinishedAt,
			Texts:            sum.Texts,
			Sentences:        sum.Sentences,
			SkippedSentences: sum.SkippedSentences,
			VerbOccurrences:  sum.VerbOccurrences,
			Noise:            sum.Noise,
			FailedTexts:      len(sum.FailedTexts),
		})
		if err != nil {
			return sum, fmt.Errorf("finish run: %w", err)
		}
	}
	logger.Info("ingestion finished",
		zap.Int("sentences", sum.Sentences),
		zap.Int("verbs", sum.VerbOccurrences),
		zap.Int("skipped", sum.SkippedSentences),
		zap.Int64("noise", sum.Noise),
		zap.Int("failed_texts", len(sum.FailedTexts)),
		zap.Duration("elapsed", sum.FinishedAt.Sub(sum.StartedAt)))

	if err := ctx.Err(); err != nil {
		return sum, err
	}
	return sum, nil
}
