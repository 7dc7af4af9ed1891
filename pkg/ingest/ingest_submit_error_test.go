package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nlavidas/diachronic-valency/pkg/aggregate"
	"github.com/nlavidas/diachronic-valency/pkg/db"
)

// failingPool always returns an error on Submit to simulate producer error.
type failingPool struct{}

func (f *failingPool) Start(ctx context.Context) {}
func (f *failingPool) SubmitCtx(ctx context.Context, job Job) error {
	return errors.New("submit failed")
}
func (f *failingPool) Close() {}

func TestIngestHandlesSubmitErrorClosesResultCh(t *testing.T) {
	conn := setupDB(t)
	defer conn.Close()

	agg := aggregate.New()
	ingester := NewIngester(conn, agg, newExtractor(t))
	// Inject failing pool so the first SubmitCtx returns an error
	ingester.PoolFactory = func(workers, queue int) WorkerPoolInterface { return &failingPool{} }

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	res, err := ingester.Ingest(ctx, makeText("submit-error", 10))
	if err == nil {
		t.Fatalf("expected submit error, got nil")
	}
	if res.Sentences != 0 || agg.Len() != 0 {
		t.Fatalf("expected nothing recorded, got %+v", res)
	}
	idx, err := db.GetTextProgress(conn, "submit-error")
	if err != nil {
		t.Fatal(err)
	}
	if idx != -1 {
		t.Fatalf("expected no checkpoint, got %d", idx)
	}
}
