package aggregate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAndSnapshot(t *testing.T) {
	a := New()
	a.Record("λέγω", "active", "NOM-DAT", "classical", "ex1")
	a.Record("λέγω", "active", "NOM-DAT", "classical", "ex2")
	a.Record("λέγω", "active", "NOM-ACC", "koine", "ex3")
	a.Record("δίδωμι", "active", "NOM-ACC-DAT", "classical", "")

	snap := a.Snapshot()
	require.Equal(t, 3, snap.Len())
	assert.Equal(t, []string{"δίδωμι", "λέγω"}, snap.Lemmas())
	assert.Equal(t, int64(4), snap.Total())
	assert.Equal(t, []string{"classical", "koine"}, snap.Periods())

	frames := snap.FramesForLemma("λέγω")
	require.Len(t, frames, 2)
	assert.Equal(t, "classical", frames[0].Period)
	assert.Equal(t, int64(2), frames[0].Frequency)
	assert.Equal(t, []string{"ex1", "ex2"}, frames[0].Examples)

	top := a.TopPatterns(1)
	require.Len(t, top, 1)
	assert.Equal(t, "NOM-DAT", top[0].Pattern)

	assert.Empty(t, a.FramesForLemma("unknown"))
	assert.Len(t, snap.FramesForLemmaPeriod("λέγω", "koine"), 1)
	assert.Empty(t, snap.Frames()[0].Examples, "empty examples are not stored")
}

func TestSnapshotIsImmutable(t *testing.T) {
	a := New()
	a.Record("ἄγω", "active", "NOM-ACC", "archaic", "a")
	snap := a.Snapshot()
	a.Record("ἄγω", "active", "NOM-ACC", "archaic", "b")

	assert.Equal(t, int64(1), snap.Frames()[0].Frequency)
	assert.Equal(t, []string{"a"}, snap.Frames()[0].Examples)
	assert.Equal(t, int64(2), a.Snapshot().Frames()[0].Frequency)
}

func TestExampleRingIsFIFO(t *testing.T) {
	a := New(WithExampleCapacity(3))
	for i := 0; i < 7; i++ {
		a.Record("φέρω", "active", "NOM-ACC", "classical", fmt.Sprintf("e%d", i))
	}
	f := a.Snapshot().Frames()[0]
	assert.Equal(t, int64(7), f.Frequency)
	assert.Equal(t, []string{"e4", "e5", "e6"}, f.Examples)
}

func TestZeroCapacityKeepsNoExamples(t *testing.T) {
	a := New(WithExampleCapacity(0))
	a.Record("φέρω", "active", "NOM-ACC", "classical", "e")
	f := a.Snapshot().Frames()[0]
	assert.Equal(t, int64(1), f.Frequency)
	assert.Empty(t, f.Examples)
}

func TestConcurrentRecordLosesNothing(t *testing.T) {
	a := New(WithShards(4))
	const workers, perWorker = 16, 1000
	lemmas := []string{"λέγω", "δίδωμι", "ἄγω"}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				a.Record(lemmas[i%len(lemmas)], "active", "NOM-ACC", "koine", fmt.Sprintf("w%d-%d", w, i))
				if i%250 == 0 {
					a.Snapshot()
				}
			}
		}(w)
	}
	wg.Wait()

	snap := a.Snapshot()
	assert.Equal(t, int64(workers*perWorker), snap.Total())
	for _, f := range snap.Frames() {
		assert.LessOrEqual(t, len(f.Examples), DefaultExampleCapacity)
	}
}

func TestFrequencyIsMonotonic(t *testing.T) {
	a := New()
	k := Key{Lemma: "τίθημι", Voice: "middle", Pattern: "NOM-ACC", Period: "koine"}
	var last int64
	for i := 0; i < 50; i++ {
		a.Record(k.Lemma, k.Voice, k.Pattern, k.Period, "")
		frames := a.FramesForLemma(k.Lemma)
		require.Len(t, frames, 1)
		got := frames[0].Frequency
		require.Greater(t, got, last)
		last = got
	}
}

func TestTopFramesTiesInKeyOrder(t *testing.T) {
	snap := NewSnapshot([]Frame{
		{Key: Key{Lemma: "b", Pattern: "NOM"}, Frequency: 3},
		{Key: Key{Lemma: "a", Pattern: "NOM"}, Frequency: 3},
		{Key: Key{Lemma: "c", Pattern: "NOM"}, Frequency: 9},
	})
	top := snap.TopFrames(0)
	require.Len(t, top, 3)
	assert.Equal(t, []string{"c", "a", "b"}, []string{top[0].Lemma, top[1].Lemma, top[2].Lemma})
}

type staticSource struct {
	frames []Frame
	err    error
}

func (s staticSource) LoadFrames(ctx context.Context, fn func(Frame) error) error {
	for _, f := range s.frames {
		if err := fn(f); err != nil {
			return err
		}
	}
	return s.err
}

func TestRestore(t *testing.T) {
	src := staticSource{frames: []Frame{
		{Key: Key{Lemma: "λέγω", Voice: "active", Pattern: "NOM-DAT", Period: "classical"}, Frequency: 12, Examples: []string{"old"}},
		{Key: Key{Lemma: "λέγω", Voice: "active", Pattern: "NOM-ACC", Period: "koine"}, Frequency: 9},
	}}
	a := New()
	n, err := a.Restore(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	a.Record("λέγω", "active", "NOM-DAT", "classical", "new")
	f := a.FramesForLemma("λέγω")[0]
	assert.Equal(t, int64(13), f.Frequency)
	assert.Equal(t, []string{"old", "new"}, f.Examples)
}

func TestRestoreError(t *testing.T) {
	boom := errors.New("boom")
	_, err := New().Restore(context.Background(), staticSource{err: boom})
	assert.ErrorIs(t, err, boom)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = New().Restore(ctx, staticSource{frames: []Frame{{Key: Key{Lemma: "x"}, Frequency: 1}}})
	assert.ErrorIs(t, err, context.Canceled)
}
