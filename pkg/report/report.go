// Package report provides read-only views over aggregated valency frames.
//
// Every Reporter method takes a fresh snapshot of its source, so a result
// reflects the frames recorded at the moment of the call and is not updated
// by later ingestion.
package report

import (
	"context"
	"sort"

	"github.com/nlavidas/diachronic-valency/pkg/aggregate"
	"github.com/nlavidas/diachronic-valency/pkg/diachron"
	"github.com/nlavidas/diachronic-valency/pkg/valency"
)

// SnapshotSource is anything that can produce a point-in-time snapshot,
// typically an *aggregate.Aggregator.
type SnapshotSource interface {
	Snapshot() *aggregate.Snapshot
}

// Reporter answers queries over a SnapshotSource.
type Reporter struct {
	src SnapshotSource
}

// New returns a Reporter reading from src.
func New(src SnapshotSource) *Reporter {
	return &Reporter{src: src}
}

// PatternCount is a pattern with its frequency summed over voices and
// periods. Lemma is empty for corpus-wide counts.
type PatternCount struct {
	Lemma     string          `json:"lemma,omitempty"`
	Pattern   valency.Pattern `json:"pattern"`
	Frequency int64           `json:"frequency"`
	Lemmas    int             `json:"lemmas,omitempty"`
}

// TopPatterns ranks patterns by summed frequency, for one lemma or, when
// lemma is "", for the whole corpus. Ties go to the smaller pattern. n <= 0
// returns every pattern.
func (r *Reporter) TopPatterns(n int, lemma string) []PatternCount {
	snap := r.src.Snapshot()
	frames := snap.Frames()
	if lemma != "" {
		frames = snap.FramesForLemma(lemma)
	}

	counts := make(map[valency.Pattern]*PatternCount)
	seen := make(map[valency.Pattern]map[string]bool)
	for _, f := range frames {
		p := valency.Pattern(f.Pattern)
		c, ok := counts[p]
		if !ok {
			c = &PatternCount{Lemma: lemma, Pattern: p}
			counts[p] = c
			seen[p] = make(map[string]bool)
		}
		c.Frequency += f.Frequency
		if !seen[p][f.Lemma] {
			seen[p][f.Lemma] = true
			c.Lemmas++
		}
	}

	out := make([]PatternCount, 0, len(counts))
	for _, c := range counts {
		if lemma != "" {
			c.Lemmas = 0
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Frequency != out[j].Frequency {
			return out[i].Frequency > out[j].Frequency
		}
		return out[i].Pattern < out[j].Pattern
	})
	if n > 0 && n < len(out) {
		out = out[:n]
	}
	return out
}

// VariableVerb is a lemma with the number of distinct patterns it shows.
type VariableVerb struct {
	Lemma     string            `json:"lemma"`
	Distinct  int               `json:"distinct_patterns"`
	Frequency int64             `json:"frequency"`
	Patterns  []valency.Pattern `json:"patterns"`
}

// MostVariableVerbs ranks lemmas by distinct pattern count, across voices
// and periods. Ties go to the lemma that sorts first. n <= 0 returns all.
func (r *Reporter) MostVariableVerbs(n int) []VariableVerb {
	snap := r.src.Snapshot()
	out := make([]VariableVerb, 0, len(snap.Lemmas()))
	for _, lemma := range snap.Lemmas() {
		v := VariableVerb{Lemma: lemma}
		patterns := make(map[valency.Pattern]bool)
		for _, f := range snap.FramesForLemma(lemma) {
			v.Frequency += f.Frequency
			patterns[valency.Pattern(f.Pattern)] = true
		}
		for p := range patterns {
			v.Patterns = append(v.Patterns, p)
		}
		sort.Slice(v.Patterns, func(i, j int) bool { return v.Patterns[i] < v.Patterns[j] })
		v.Distinct = len(v.Patterns)
		out = append(out, v)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Distinct > out[j].Distinct })
	if n > 0 && n < len(out) {
		out = out[:n]
	}
	return out
}

// Changes lists every lemma whose dominant pattern differs between periods a
// and b.
func (r *Reporter) Changes(ctx context.Context, a, b string, minFreq int64) ([]diachron.ChangeRecord, diachron.DetectStats, error) {
	return diachron.DetectAll(ctx, r.src.Snapshot(), a, b, minFreq)
}

// Timeline compares each consecutive pair of periods.
func (r *Reporter) Timeline(ctx context.Context, periods []string, minFreq int64) ([]diachron.ChangeRecord, diachron.DetectStats, error) {
	return diachron.DetectTimeline(ctx, r.src.Snapshot(), periods, minFreq)
}

// Alternations lists lemmas attested in more than one voice.
func (r *Reporter) Alternations(minFreq int64) []diachron.Alternation {
	return diachron.FindAlternations(r.src.Snapshot(), minFreq)
}

// AlternationsIn is Alternations restricted to one period.
func (r *Reporter) AlternationsIn(period string, minFreq int64) []diachron.Alternation {
	return diachron.FindAlternationsInPeriod(r.src.Snapshot(), period, minFreq)
}

// Periods lists the periods that have frames, in sorted order.
func (r *Reporter) Periods() []string {
	return r.src.Snapshot().Periods()
}

// Summary holds corpus-wide totals.
type Summary struct {
	UniqueVerbs    int      `json:"unique_verbs"`
	UniquePatterns int      `json:"unique_patterns"`
	Frames         int      `json:"frames"`
	TotalInstances int64    `json:"total_instances"`
	Periods        []string `json:"periods"`
}

// Summary counts verbs, patterns and recorded occurrences.
func (r *Reporter) Summary() Summary {
	snap := r.src.Snapshot()
	patterns := make(map[string]bool)
	for _, f := range snap.Frames() {
		patterns[f.Pattern] = true
	}
	return Summary{
		UniqueVerbs:    len(snap.Lemmas()),
		UniquePatterns: len(patterns),
		Frames:         snap.Len(),
		TotalInstances: snap.Total(),
		Periods:        snap.Periods(),
	}
}
