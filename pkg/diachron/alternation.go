package diachron

import (
	"sort"

	"github.com/nlavidas/diachronic-valency/pkg/aggregate"
	"github.com/nlavidas/diachronic-valency/pkg/morph"
	"github.com/nlavidas/diachronic-valency/pkg/valency"
)

// Alternation is a lemma attested with more than one voice, with the most
// frequent pattern of each.
type Alternation struct {
	Lemma            string                     `json:"lemma"`
	Period           string                     `json:"period,omitempty"`
	Voices           []string                   `json:"voices"`
	PatternByVoice   map[string]valency.Pattern `json:"pattern_by_voice"`
	FrequencyByVoice map[string]int64           `json:"frequency_by_voice"`
}

// FindAlternations pools each lemma's frames across periods and keeps the
// lemmas with at least two voices whose best pattern reaches minFreq. An
// unspecified voice never counts.
func FindAlternations(snap *aggregate.Snapshot, minFreq int64) []Alternation {
	return findAlternations(snap, "", minFreq)
}

// FindAlternationsInPeriod is FindAlternations restricted to one period.
func FindAlternationsInPeriod(snap *aggregate.Snapshot, period string, minFreq int64) []Alternation {
	return findAlternations(snap, period, minFreq)
}

type voicePattern struct {
	voice   string
	pattern string
}

func findAlternations(snap *aggregate.Snapshot, period string, minFreq int64) []Alternation {
	var out []Alternation
	for _, lemma := range snap.Lemmas() {
		pooled := make(map[voicePattern]int64)
		for _, f := range snap.FramesForLemma(lemma) {
			if period != "" && f.Period != period {
				continue
			}
			if f.Voice == "" || f.Voice == morph.Unspecified {
				continue
			}
			pooled[voicePattern{f.Voice, f.Pattern}] += f.Frequency
		}

		best := make(map[string]voicePattern)
		bestFreq := make(map[string]int64)
		for vp, n := range pooled {
			cur, seen := best[vp.voice]
			if !seen || n > bestFreq[vp.voice] || (n == bestFreq[vp.voice] && vp.pattern < cur.pattern) {
				best[vp.voice] = vp
				bestFreq[vp.voice] = n
			}
		}

		alt := Alternation{
			Lemma:            lemma,
			Period:           period,
			PatternByVoice:   make(map[string]valency.Pattern),
			FrequencyByVoice: make(map[string]int64),
		}
		for voice, vp := range best {
			if bestFreq[voice] < minFreq {
				continue
			}
			alt.Voices = append(alt.Voices, voice)
			alt.PatternByVoice[voice] = valency.Pattern(vp.pattern)
			alt.FrequencyByVoice[voice] = bestFreq[voice]
		}
		if len(alt.Voices) < 2 {
			continue
		}
		sort.Strings(alt.Voices)
		out = append(out, alt)
	}
	return out
}
