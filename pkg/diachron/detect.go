package diachron

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/nlavidas/diachronic-valency/pkg/aggregate"
	"github.com/nlavidas/diachronic-valency/pkg/valency"
)

// ChangeRecord describes how a lemma's dominant pattern differs between two
// periods.
type ChangeRecord struct {
	Lemma        string          `json:"lemma"`
	OldPattern   valency.Pattern `json:"old_pattern"`
	NewPattern   valency.Pattern `json:"new_pattern"`
	OldPeriod    string          `json:"old_period"`
	NewPeriod    string          `json:"new_period"`
	ChangeType   string          `json:"change_type"`
	OldFrequency int64           `json:"old_frequency"`
	NewFrequency int64           `json:"new_frequency"`
}

// DetectStats counts the outcome of every lemma comparison.
type DetectStats struct {
	Compared     int `json:"compared"`
	Changed      int `json:"changed"`
	Unchanged    int `json:"unchanged"`
	Insufficient int `json:"insufficient"`
}

func (s *DetectStats) add(o DetectStats) {
	s.Compared += o.Compared
	s.Changed += o.Changed
	s.Unchanged += o.Unchanged
	s.Insufficient += o.Insufficient
}

type outcome int

const (
	outcomeInsufficient outcome = iota
	outcomeUnchanged
	outcomeChanged
)

// Dominant returns the most frequent frame of lemma in period across
// voices. Ties go to the smaller pattern, then the smaller voice. ok is
// false when no frame reaches minFreq.
func Dominant(snap *aggregate.Snapshot, lemma, period string, minFreq int64) (best aggregate.Frame, ok bool) {
	for _, f := range snap.FramesForLemma(lemma) {
		if f.Period != period || f.Frequency < minFreq {
			continue
		}
		if !ok || better(f, best) {
			best, ok = f, true
		}
	}
	return best, ok
}

func better(a, b aggregate.Frame) bool {
	if a.Frequency != b.Frequency {
		return a.Frequency > b.Frequency
	}
	if a.Pattern != b.Pattern {
		return a.Pattern < b.Pattern
	}
	return a.Voice < b.Voice
}

func compare(snap *aggregate.Snapshot, lemma, periodA, periodB string, minFreq int64) (ChangeRecord, outcome) {
	older, ok := Dominant(snap, lemma, periodA, minFreq)
	if !ok {
		return ChangeRecord{}, outcomeInsufficient
	}
	newer, ok := Dominant(snap, lemma, periodB, minFreq)
	if !ok {
		return ChangeRecord{}, outcomeInsufficient
	}
	if older.Pattern == newer.Pattern {
		return ChangeRecord{}, outcomeUnchanged
	}
	oldPattern := valency.Pattern(older.Pattern)
	newPattern := valency.Pattern(newer.Pattern)
	return ChangeRecord{
		Lemma:        lemma,
		OldPattern:   oldPattern,
		NewPattern:   newPattern,
		OldPeriod:    periodA,
		NewPeriod:    periodB,
		ChangeType:   Classify(oldPattern, newPattern),
		OldFrequency: older.Frequency,
		NewFrequency: newer.Frequency,
	}, outcomeChanged
}

// DetectChanges compares lemma's dominant pattern in periodA with the one
// in periodB. It returns no record when either period lacks a frame of at
// least minFreq or when the dominant patterns are the same.
func DetectChanges(snap *aggregate.Snapshot, lemma, periodA, periodB string, minFreq int64) []ChangeRecord {
	rec, out := compare(snap, lemma, periodA, periodB, minFreq)
	if out != outcomeChanged {
		return nil
	}
	return []ChangeRecord{rec}
}

// DetectAll runs DetectChanges for every lemma of snap in parallel.
// Records are returned in lemma order, so the same snapshot always yields
// the same result.
func DetectAll(ctx context.Context, snap *aggregate.Snapshot, periodA, periodB string, minFreq int64) ([]ChangeRecord, DetectStats, error) {
	lemmas := snap.Lemmas()
	results := make([]*ChangeRecord, len(lemmas))

	var (
		mu    sync.Mutex
		stats DetectStats
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, lemma := range lemmas {
		i, lemma := i, lemma
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rec, out := compare(snap, lemma, periodA, periodB, minFreq)
			local := DetectStats{Compared: 1}
			switch out {
			case outcomeInsufficient:
				local.Insufficient++
			case outcomeUnchanged:
				local.Unchanged++
			case outcomeChanged:
				local.Changed++
				results[i] = &rec
			}
			mu.Lock()
			stats.add(local)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, stats, err
	}

	var records []ChangeRecord
	for _, r := range results {
		if r != nil {
			records = append(records, *r)
		}
	}
	return records, stats, nil
}

// DetectTimeline compares every pair of consecutive periods. periods must
// be in chronological order; records are grouped by period pair.
func DetectTimeline(ctx context.Context, snap *aggregate.Snapshot, periods []string, minFreq int64) ([]ChangeRecord, DetectStats, error) {
	var (
		records []ChangeRecord
		total   DetectStats
	)
	for i := 1; i < len(periods); i++ {
		recs, stats, err := DetectAll(ctx, snap, periods[i-1], periods[i], minFreq)
		if err != nil {
			return nil, total, err
		}
		records = append(records, recs...)
		total.add(stats)
	}
	return records, total, nil
}
