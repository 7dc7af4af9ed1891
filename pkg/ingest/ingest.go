package ingest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nlavidas/diachronic-valency/pkg/aggregate"
	"github.com/nlavidas/diachronic-valency/pkg/db"
	"github.com/nlavidas/diachronic-valency/pkg/morph"
	"github.com/nlavidas/diachronic-valency/pkg/treebank"
	"github.com/nlavidas/diachronic-valency/pkg/valency"
)

// UnknownPeriod labels sentences that carry neither a period nor a year the
// chronology can place.
const UnknownPeriod = "unknown"

// WorkerPoolInterface abstracts the worker pool so tests can inject failing implementations.
type WorkerPoolInterface interface {
	Start(ctx context.Context)
	// SubmitCtx enqueues a job but returns promptly if ctx is canceled.
	SubmitCtx(ctx context.Context, job Job) error
	Close()
}

// PeriodResolver places a year in a named period.
type PeriodResolver interface {
	PeriodFor(year int) string
}

// Text is one source text to ingest. Its ID keys the resume checkpoint.
type Text struct {
	ID        string
	Sentences []treebank.Sentence
}

// Ingester folds treebank texts into an Aggregator and, when a database is
// configured, persists the frames with a per-text resume checkpoint.
type Ingester struct {
	DB         *sql.DB
	Aggregator *aggregate.Aggregator
	Extractor  *valency.Extractor
	Periods    PeriodResolver

	BatchSize       int
	FlushInterval   time.Duration
	Workers         int
	TextConcurrency int
	ExampleCapacity int

	Logger *zap.Logger
	// OnProgress is called periodically with the number of processed sentences and total sentences.
	OnProgress func(textID string, current, total int)

	// PoolFactory allows tests to inject custom worker pool implementations.
	PoolFactory func(workers, queue int) WorkerPoolInterface
}

// Option configures an Ingester.
type Option func(*Ingester)

// WithLogger sets the logger. nil keeps the no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(ig *Ingester) {
		if l != nil {
			ig.Logger = l
		}
	}
}

// WithWorkers sets the number of sentence workers per text.
func WithWorkers(n int) Option { return func(ig *Ingester) { ig.Workers = n } }

// WithBatchSize sets how many sentences are committed per transaction.
func WithBatchSize(n int) Option { return func(ig *Ingester) { ig.BatchSize = n } }

// WithFlushInterval sets the maximum delay before a partial batch is committed.
func WithFlushInterval(d time.Duration) Option { return func(ig *Ingester) { ig.FlushInterval = d } }

// WithTextConcurrency sets how many texts IngestAll processes at once.
func WithTextConcurrency(n int) Option { return func(ig *Ingester) { ig.TextConcurrency = n } }

// WithExampleCapacity sets how many examples are kept per persisted frame.
func WithExampleCapacity(n int) Option { return func(ig *Ingester) { ig.ExampleCapacity = n } }

// WithPeriods sets the resolver used for sentences without a period label.
func WithPeriods(p PeriodResolver) Option { return func(ig *Ingester) { ig.Periods = p } }

// NewIngester creates a new Ingester. conn may be nil for in-memory runs.
func NewIngester(conn *sql.DB, agg *aggregate.Aggregator, ex *valency.Extractor, opts ...Option) *Ingester {
	ig := &Ingester{
		DB:              conn,
		Aggregator:      agg,
		Extractor:       ex,
		BatchSize:       50,
		FlushInterval:   100 * time.Millisecond,
		Workers:         4, // Default worker count
		TextConcurrency: 2,
		ExampleCapacity: aggregate.DefaultExampleCapacity,
		Logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(ig)
	}
	if ig.Workers <= 0 {
		ig.Workers = 1
	}
	if ig.BatchSize <= 0 {
		ig.BatchSize = 1
	}
	if ig.TextConcurrency <= 0 {
		ig.TextConcurrency = 1
	}
	return ig
}

// TextResult reports what ingesting one text did.
type TextResult struct {
	TextID          string
	Sentences       int // sentences handled in this call, resumed ones excluded
	Resumed         int // sentences skipped because an earlier run committed them
	Tokens          int
	Skipped         int // sentences left out of extraction for structural errors
	VerbOccurrences int
	Warnings        []string
}

// processedSentence holds the result of processing a sentence before it is recorded.
type processedSentence struct {
	Index       int
	SentenceID  string
	Tokens      int
	Occurrences []valency.Occurrence
	Warning     error
}

// Ingest processes one text with concurrent workers. Results are recorded
// into the Aggregator in sentence order and persisted through a BatchWriter,
// each sentence's frames together with its checkpoint, so an interrupted or
// failed text resumes after the last committed sentence.
func (ig *Ingester) Ingest(ctx context.Context, text Text) (TextResult, error) {
	res := TextResult{TextID: text.ID}
	if text.ID == "" {
		return res, fmt.Errorf("text has no id")
	}
	logger := ig.Logger.With(zap.String("text", text.ID))

	lastProcessed := -1
	if ig.DB != nil {
		var err error
		lastProcessed, err = db.GetTextProgress(ig.DB, text.ID)
		if err != nil {
			logger.Warn("failed to retrieve progress", zap.Error(err))
			lastProcessed = -1
		}
	}
	startIdx := lastProcessed + 1
	total := len(text.Sentences)
	if startIdx > 0 {
		res.Resumed = min(startIdx, total)
		logger.Info("resuming text", zap.Int("from_sentence", startIdx), zap.Int("sentences", total))
	}
	if startIdx >= total {
		return res, nil
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	var wp WorkerPoolInterface
	if ig.PoolFactory != nil {
		wp = ig.PoolFactory(ig.Workers, ig.Workers*2)
	} else {
		wp = NewWorkerPool(ig.Workers, ig.Workers*2)
	}
	resultCh := make(chan processedSentence, ig.Workers*2)

	var bw *BatchWriter
	if ig.DB != nil {
		bw = NewBatchWriter(ig.DB, ig.BatchSize, ig.FlushInterval)
		bw.SetLogger(logger)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	wp.Start(ctx)

	consumerDone := make(chan error, 1)
	go func() {
		consumerDone <- ig.consume(cancel, text, startIdx, resultCh, bw, &res)
	}()

	var submitErr error
Loop:
	for i := startIdx; i < total; i++ {
		select {
		case <-ctx.Done():
			break Loop
		default:
		}

		idx := i
		sent := text.Sentences[i]
		job := func(ctx context.Context) error {
			out := ig.processSentence(idx, sent)
			select {
			case resultCh <- out:
			case <-ctx.Done():
			}
			return nil
		}

		if err := wp.SubmitCtx(ctx, job); err != nil {
			if errors.Is(err, ctx.Err()) || errors.Is(err, ErrPoolClosed) {
				break Loop
			}
			submitErr = fmt.Errorf("submit sentence %d: %w", idx, err)
			cancel()
			break Loop
		}
	}

	// Closing the pool waits for every worker, after which nothing sends on resultCh.
	wp.Close()
	close(resultCh)
	consumerErr := <-consumerDone

	if bw != nil {
		if err := bw.Close(); err != nil && consumerErr == nil {
			consumerErr = err
		}
		if n := bw.Discarded(); n > 0 {
			logger.Warn("sentences left for the next run", zap.Int64("sentences", n))
		}
	}

	switch {
	case submitErr != nil:
		return res, submitErr
	case consumerErr != nil:
		return res, consumerErr
	}
	if err := ctx.Err(); err != nil && res.Sentences < total-startIdx {
		return res, err
	}
	return res, nil
}

// consume records results in sentence order. It keeps draining resultCh
// after a failure so that workers never block.
func (ig *Ingester) consume(cancel context.CancelFunc, text Text, startIdx int,
	resultCh <-chan processedSentence, bw *BatchWriter, res *TextResult) error {
	buffer := make(map[int]processedSentence)
	nextIdx := startIdx
	total := len(text.Sentences)
	var firstErr error

	for item := range resultCh {
		if firstErr != nil {
			continue
		}
		buffer[item.Index] = item
		for {
			cur, ok := buffer[nextIdx]
			if !ok {
				break
			}
			delete(buffer, nextIdx)
			if err := ig.record(text.ID, cur, bw, res); err != nil {
				firstErr = err
				cancel()
				break
			}
			nextIdx++
			if ig.OnProgress != nil && (nextIdx%ig.BatchSize == 0 || nextIdx == total) {
				ig.OnProgress(text.ID, nextIdx, total)
			}
		}
	}
	return firstErr
}

func (ig *Ingester) record(textID string, item processedSentence, bw *BatchWriter, res *TextResult) error {
	res.Sentences++
	res.Tokens += item.Tokens
	if item.Warning != nil {
		res.Skipped++
		res.Warnings = append(res.Warnings, item.Warning.Error())
		ig.Logger.Warn("skipping sentence", zap.String("text", textID), zap.String("sentence", item.SentenceID), zap.Error(item.Warning))
	}
	for _, occ := range item.Occurrences {
		ig.Aggregator.Record(occ.Lemma, occ.Voice.String(), string(occ.Pattern), occ.Period, occ.Example)
	}
	res.VerbOccurrences += len(item.Occurrences)

	if bw == nil {
		return nil
	}
	keep := ig.ExampleCapacity
	return bw.Submit(func(ctx context.Context, tx *sql.Tx) error {
		for _, occ := range item.Occurrences {
			frameID, err := db.UpsertFrame(tx, occ.Lemma, occ.Voice.String(), string(occ.Pattern), occ.Period, 1)
			if err != nil {
				return fmt.Errorf("persist frame %s: %w", occ.Lemma, err)
			}
			if err := db.AddFrameExample(tx, frameID, occ.Example, occ.SentenceID, keep); err != nil {
				return fmt.Errorf("persist example for %s: %w", occ.Lemma, err)
			}
		}
		// Checkpoint progress for this sentence
		if err := db.UpdateTextProgress(tx, textID, item.Index); err != nil {
			return fmt.Errorf("failed to save progress: %w", err)
		}
		return nil
	})
}

// processSentence performs the CPU-bound decoding and canonicalization.
func (ig *Ingester) processSentence(index int, s treebank.Sentence) processedSentence {
	if s.Period == "" {
		if ig.Periods != nil && s.Year != 0 {
			s.Period = ig.Periods.PeriodFor(s.Year)
		}
		if s.Period == "" {
			s.Period = UnknownPeriod
		}
	}
	out := processedSentence{Index: index, SentenceID: s.ID, Tokens: len(s.Tokens)}
	occs, err := ig.Extractor.Extract(s)
	if err != nil {
		out.Warning = err
		return out
	}
	out.Occurrences = occs
	return out
}

// Summary reports a whole ingestion run.
type Summary struct {
	RunID            string
	MorphologyTable  string
	StartedAt        time.Time
	FinishedAt       time.Time
	Texts            int
	Sentences        int
	Resumed          int
	Tokens           int
	SkippedSentences int
	VerbOccurrences  int
	Noise            int64
	Warnings         []string
	FailedTexts      []TextError
	Decoder          morph.StatsSnapshot // cumulative for the decoder, not just this run
}

// TextError pairs a failed text with its error.
type TextError struct {
	TextID string
	Err    error
}

func (e TextError) Error() string { return fmt.Sprintf("text %s: %v", e.TextID, e.Err) }

func (e TextError) Unwrap() error { return e.Err }

// maxWarnings bounds Summary.Warnings; SkippedSentences still counts all.
const maxWarnings = 200

func (s *Summary) add(r TextResult) {
	s.Texts++
	s.Sentences += r.Sentences
	s.Resumed += r.Resumed
	s.Tokens += r.Tokens
	s.SkippedSentences += r.Skipped
	s.VerbOccurrences += r.VerbOccurrences
	for _, w := range r.Warnings {
		if len(s.Warnings) >= maxWarnings {
			break
		}
		s.Warnings = append(s.Warnings, w)
	}
}
