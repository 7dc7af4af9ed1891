package ingest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/nlavidas/diachronic-valency/pkg/db"
)

// sentenceWrite persists one δίδωμι frame and the checkpoint of sentence idx,
// the way Ingest does for every sentence.
func sentenceWrite(textID string, idx int, fail bool) WriteFunc {
	return func(ctx context.Context, tx *sql.Tx) error {
		if _, err := db.UpsertFrame(tx, "δίδωμι", "active", "NOM-ACC-DAT", "classical", 1); err != nil {
			return err
		}
		if fail {
			return fmt.Errorf("sentence %d: disk full", idx)
		}
		return db.UpdateTextProgress(tx, textID, idx)
	}
}

func persistedFrequency(t *testing.T, conn *sql.DB) int64 {
	t.Helper()
	frames, err := db.GetFramesByLemma(conn, "δίδωμι")
	if err != nil {
		t.Fatalf("query frames: %v", err)
	}
	var n int64
	for _, f := range frames {
		n += f.Frequency
	}
	return n
}

func checkpoint(t *testing.T, conn *sql.DB, textID string) int {
	t.Helper()
	idx, err := db.GetTextProgress(conn, textID)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	return idx
}

func TestBatchWriterCommitsFramesWithCheckpoint(t *testing.T) {
	conn := setupDB(t)
	defer conn.Close()

	bw := NewBatchWriter(conn, 2, 0)
	for i := 0; i < 5; i++ {
		if err := bw.Submit(sentenceWrite("herodotus", i, false)); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}

	closed := make(chan error, 1)
	go func() { closed <- bw.Close() }()
	select {
	case err := <-closed:
		if err != nil {
			t.Fatalf("close: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Close did not return")
	}

	if bw.Committed() != 5 || bw.Discarded() != 0 {
		t.Fatalf("expected 5 committed and 0 discarded, got %d and %d", bw.Committed(), bw.Discarded())
	}
	if got := persistedFrequency(t, conn); got != 5 {
		t.Fatalf("expected frequency 5, got %d", got)
	}
	if got := checkpoint(t, conn, "herodotus"); got != 4 {
		t.Fatalf("expected checkpoint 4, got %d", got)
	}
}

func TestBatchWriterStopsAfterFailedBatch(t *testing.T) {
	conn := setupDB(t)
	defer conn.Close()

	bw := NewBatchWriter(conn, 2, 0)
	var mu sync.Mutex
	var reported []error
	bw.OnError = func(err error) {
		mu.Lock()
		reported = append(reported, err)
		mu.Unlock()
	}

	// Batches {0,1} {2,3} {4,5}; sentence 2 fails and takes sentence 3 with it.
	rejected := 0
	for i := 0; i < 6; i++ {
		err := bw.Submit(sentenceWrite("thucydides", i, i == 2))
		switch {
		case err == nil:
		case errors.Is(err, ErrBatchWriterFailed):
			rejected++
		default:
			t.Fatalf("submit %d: %v", i, err)
		}
	}

	err := bw.Close()
	if err == nil || !strings.Contains(err.Error(), "sentence 2: disk full") {
		t.Fatalf("expected Close to report the failed batch, got %v", err)
	}
	if bw.Committed() != 2 {
		t.Fatalf("expected only the first batch committed, got %d", bw.Committed())
	}
	if got := bw.Discarded() + int64(rejected); got != 2 {
		t.Fatalf("expected sentences 4 and 5 discarded or rejected, got %d", got)
	}
	if got := checkpoint(t, conn, "thucydides"); got != 1 {
		t.Fatalf("checkpoint moved past the failed sentence: %d", got)
	}
	if got := persistedFrequency(t, conn); got != 2 {
		t.Fatalf("expected frequency 2, got %d", got)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(reported) != 1 {
		t.Fatalf("expected one reported failure, got %v", reported)
	}
}

func TestBatchWriterKeepsSubmissionOrder(t *testing.T) {
	bw := NewBatchWriter(nil, 5, 0)
	var order []int
	for i := 0; i < 12; i++ {
		i := i
		if err := bw.Submit(func(ctx context.Context, tx *sql.Tx) error {
			order = append(order, i)
			return nil
		}); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}
	if err := bw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if len(order) != 12 {
		t.Fatalf("expected 12 writes, got %d", len(order))
	}
	for i, got := range order {
		if got != i {
			t.Fatalf("write %d ran at position %d: %v", got, i, order)
		}
	}
	if err := bw.Submit(func(ctx context.Context, tx *sql.Tx) error { return nil }); err != ErrBatchWriterClosed {
		t.Fatalf("expected ErrBatchWriterClosed, got %v", err)
	}
}

func TestBatchWriterFlushesOnInterval(t *testing.T) {
	bw := NewBatchWriter(nil, 10, 20*time.Millisecond)
	defer bw.Close()

	flushed := make(chan struct{})
	if err := bw.Submit(func(ctx context.Context, tx *sql.Tx) error {
		close(flushed)
		return nil
	}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	select {
	case <-flushed:
	case <-time.After(time.Second):
		t.Fatal("a partial batch was not flushed by the ticker")
	}
}

func TestBatchWriterCancelKeepsEarlierBatches(t *testing.T) {
	bw := NewBatchWriter(nil, 1, 0)
	noop := func(ctx context.Context, tx *sql.Tx) error { return nil }

	started := make(chan struct{})
	release := make(chan struct{})
	if err := bw.Submit(func(ctx context.Context, tx *sql.Tx) error {
		close(started)
		<-release
		return nil
	}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	<-started

	// Two batches fill the queue behind the blocked one.
	for i := 0; i < 2; i++ {
		if err := bw.Submit(noop); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}
	bw.cancel()

	// The queue is full and the writer cancelled: this batch is dropped and
	// the writer refuses anything after it.
	if err := bw.Submit(noop); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := bw.Submit(noop); !errors.Is(err, ErrBatchWriterFailed) {
		t.Fatalf("expected ErrBatchWriterFailed after the drop, got %v", err)
	}

	close(release)
	err := bw.Close()
	if err == nil || !strings.Contains(err.Error(), "dropping batch") {
		t.Fatalf("expected the dropped batch from Close, got %v", err)
	}
	if bw.Committed() != 3 || bw.Discarded() != 1 {
		t.Fatalf("expected 3 committed and 1 discarded, got %d and %d", bw.Committed(), bw.Discarded())
	}
}
