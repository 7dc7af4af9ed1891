package aggregate

import "sort"

// Snapshot is a point-in-time, read-only view of the aggregator. Frames are
// ordered by lemma, period, voice and pattern.
type Snapshot struct {
	frames  []Frame
	byLemma map[string][]Frame
	lemmas  []string
}

func newSnapshot(frames []Frame) *Snapshot {
	s := &Snapshot{frames: frames, byLemma: make(map[string][]Frame)}
	// frames is sorted by lemma, so each lemma is a contiguous run
	start := 0
	for i := range frames {
		if i+1 < len(frames) && frames[i+1].Lemma == frames[i].Lemma {
			continue
		}
		lemma := frames[i].Lemma
		s.lemmas = append(s.lemmas, lemma)
		s.byLemma[lemma] = frames[start : i+1 : i+1]
		start = i + 1
	}
	return s
}

// NewSnapshot builds a snapshot from frames in any order.
func NewSnapshot(frames []Frame) *Snapshot {
	sorted := append([]Frame(nil), frames...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key.less(sorted[j].Key) })
	return newSnapshot(sorted)
}

// Frames returns every frame. Callers must not modify the result.
func (s *Snapshot) Frames() []Frame { return s.frames }

// Len returns the number of frames.
func (s *Snapshot) Len() int { return len(s.frames) }

// Lemmas returns the distinct lemmas in sorted order.
func (s *Snapshot) Lemmas() []string { return s.lemmas }

// FramesForLemma returns the frames of lemma across periods and voices.
func (s *Snapshot) FramesForLemma(lemma string) []Frame { return s.byLemma[lemma] }

// FramesForLemmaPeriod narrows FramesForLemma to one period.
func (s *Snapshot) FramesForLemmaPeriod(lemma, period string) []Frame {
	var out []Frame
	for _, f := range s.byLemma[lemma] {
		if f.Period == period {
			out = append(out, f)
		}
	}
	return out
}

// Periods returns the distinct period labels in sorted order.
func (s *Snapshot) Periods() []string {
	seen := make(map[string]bool)
	var out []string
	for _, f := range s.frames {
		if !seen[f.Period] {
			seen[f.Period] = true
			out = append(out, f.Period)
		}
	}
	sort.Strings(out)
	return out
}

// Total sums the frequency of every frame.
func (s *Snapshot) Total() int64 {
	var n int64
	for _, f := range s.frames {
		n += f.Frequency
	}
	return n
}

// TopFrames returns the n most frequent frames, ties in key order. n <= 0
// returns all of them.
func (s *Snapshot) TopFrames(n int) []Frame {
	out := append([]Frame(nil), s.frames...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Frequency > out[j].Frequency })
	if n > 0 && n < len(out) {
		out = out[:n]
	}
	return out
}
