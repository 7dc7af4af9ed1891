package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// WriteFunc performs the writes of one sentence inside a transaction.
type WriteFunc func(ctx context.Context, tx *sql.Tx) error

// batch is a run of writes committed in one transaction. seq grows with
// submission order.
type batch struct {
	seq    uint64
	writes []WriteFunc
}

// BatchWriter commits sentence writes in transactions, in submission order.
// Each write carries the frames of one sentence together with its progress
// checkpoint. Once a batch fails, no batch submitted after it is committed,
// so the stored checkpoint never moves past a sentence whose frames were
// lost.
type BatchWriter struct {
	conn   *sql.DB
	logger *zap.Logger
	size   int

	mu      sync.Mutex
	pending []WriteFunc
	seq     uint64
	closed  bool
	ticker  *time.Ticker

	queue  chan batch
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// OnError is called for every failed or dropped batch.
	OnError func(error)

	committed atomic.Int64
	discarded atomic.Int64

	// failedAt is the seq of the first batch that did not reach the
	// database, 0 while every batch has.
	failedAt atomic.Uint64
	errMu    sync.Mutex
	firstErr error
}

// NewBatchWriter starts a writer that commits every size writes, and also
// every flushInterval when it is positive.
func NewBatchWriter(conn *sql.DB, size int, flushInterval time.Duration) *BatchWriter {
	if size <= 0 {
		size = 10
	}
	ctx, cancel := context.WithCancel(context.Background())
	bw := &BatchWriter{
		conn:    conn,
		logger:  zap.NewNop(),
		size:    size,
		pending: make([]WriteFunc, 0, size),
		queue:   make(chan batch, 2),
		ctx:     ctx,
		cancel:  cancel,
	}
	bw.wg.Add(1)
	go bw.commitLoop()
	if flushInterval > 0 {
		bw.ticker = time.NewTicker(flushInterval)
		bw.wg.Add(1)
		go bw.tickLoop()
	}
	return bw
}

// SetLogger replaces the writer's logger. nil restores the no-op logger.
func (bw *BatchWriter) SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	bw.logger = l
}

// Committed returns how many writes have been committed.
func (bw *BatchWriter) Committed() int64 { return bw.committed.Load() }

// Discarded returns how many writes were thrown away because an earlier
// batch failed.
func (bw *BatchWriter) Discarded() int64 { return bw.discarded.Load() }

// Submit queues w. It fails once the writer is closed or a batch has failed;
// a write accepted before the failure became known is discarded instead.
func (bw *BatchWriter) Submit(w WriteFunc) error {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	if bw.closed {
		return ErrBatchWriterClosed
	}
	if err := bw.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBatchWriterFailed, err)
	}
	bw.pending = append(bw.pending, w)
	if len(bw.pending) >= bw.size {
		bw.flushLocked()
	}
	return nil
}

// Err returns the first batch failure, if any.
func (bw *BatchWriter) Err() error {
	bw.errMu.Lock()
	defer bw.errMu.Unlock()
	return bw.firstErr
}

// flushLocked hands the pending writes to the committer. bw.mu must be held.
// A full queue blocks, which throttles Submit.
func (bw *BatchWriter) flushLocked() {
	if len(bw.pending) == 0 {
		return
	}
	bw.seq++
	b := batch{seq: bw.seq, writes: bw.pending}
	bw.pending = make([]WriteFunc, 0, bw.size)

	select {
	case bw.queue <- b:
	case <-bw.ctx.Done():
		bw.discarded.Add(int64(len(b.writes)))
		bw.fail(b.seq, fmt.Errorf("batch writer: dropping batch of %d items due to context cancellation", len(b.writes)))
	}
}

// fail records err for the batch seq. Only the first failure stops later
// batches; every failure is logged and reported.
func (bw *BatchWriter) fail(seq uint64, err error) {
	bw.errMu.Lock()
	if bw.firstErr == nil {
		bw.firstErr = err
		bw.failedAt.Store(seq)
	}
	bw.errMu.Unlock()
	bw.logger.Error("batch write failed", zap.Uint64("batch", seq), zap.Error(err))
	if bw.OnError != nil {
		bw.OnError(err)
	}
}

func (bw *BatchWriter) commitLoop() {
	defer bw.wg.Done()
	for b := range bw.queue {
		if failed := bw.failedAt.Load(); failed != 0 && b.seq > failed {
			bw.discarded.Add(int64(len(b.writes)))
			bw.logger.Warn("discarding batch after earlier failure",
				zap.Uint64("batch", b.seq), zap.Uint64("failed_batch", failed), zap.Int("items", len(b.writes)))
			continue
		}
		if err := bw.commit(b.writes); err != nil {
			bw.fail(b.seq, err)
			continue
		}
		bw.committed.Add(int64(len(b.writes)))
		bw.logger.Debug("batch committed", zap.Uint64("batch", b.seq), zap.Int("items", len(b.writes)))
	}
}

func (bw *BatchWriter) commit(writes []WriteFunc) error {
	// Background context: a closing writer still commits what it accepted.
	ctx := context.Background()
	if bw.conn == nil {
		for _, w := range writes {
			if err := w(ctx, nil); err != nil {
				return err
			}
		}
		return nil
	}

	tx, err := bw.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // no-op after Commit
	}()
	for _, w := range writes {
		if err := w(ctx, tx); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch of %d items: %w", len(writes), err)
	}
	return nil
}

func (bw *BatchWriter) tickLoop() {
	defer bw.wg.Done()
	for {
		select {
		case <-bw.ctx.Done():
			return
		case <-bw.ticker.C:
			bw.mu.Lock()
			bw.flushLocked()
			bw.mu.Unlock()
		}
	}
}

// Close flushes what is pending, waits for the committer and returns the
// first batch failure.
func (bw *BatchWriter) Close() error {
	bw.mu.Lock()
	if bw.closed {
		bw.mu.Unlock()
		return ErrBatchWriterClosed
	}
	bw.closed = true
	if bw.ticker != nil {
		bw.ticker.Stop()
	}
	bw.flushLocked()
	bw.mu.Unlock()

	bw.cancel()
	close(bw.queue)
	bw.wg.Wait()
	return bw.Err()
}

var (
	// ErrBatchWriterClosed is returned by Submit and Close after Close.
	ErrBatchWriterClosed = &BatchWriterError{"batch writer closed"}
	// ErrBatchWriterFailed wraps the Submit error once a batch has failed.
	ErrBatchWriterFailed = &BatchWriterError{"batch writer stopped after a failed batch"}
)

// BatchWriterError is the typed error of batch writer operations.
type BatchWriterError struct{ msg string }

func (e *BatchWriterError) Error() string { return e.msg }
