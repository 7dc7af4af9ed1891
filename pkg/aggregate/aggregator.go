package aggregate

import (
	"context"
	"fmt"
	"hash/fnv"
	"sort"
	"sync"
)

const (
	DefaultShards          = 32
	DefaultExampleCapacity = 10
)

// Key identifies one valency frame.
type Key struct {
	Lemma   string `json:"lemma"`
	Voice   string `json:"voice"`
	Pattern string `json:"pattern"`
	Period  string `json:"period"`
}

func (k Key) less(o Key) bool {
	if k.Lemma != o.Lemma {
		return k.Lemma < o.Lemma
	}
	if k.Period != o.Period {
		return k.Period < o.Period
	}
	if k.Voice != o.Voice {
		return k.Voice < o.Voice
	}
	return k.Pattern < o.Pattern
}

// Frame is a frequency count with its most recent examples, oldest first.
type Frame struct {
	Key
	Frequency int64    `json:"frequency"`
	Examples  []string `json:"examples"`
}

type frame struct {
	frequency int64
	examples  *ring
}

type shard struct {
	mu     sync.Mutex
	frames map[Key]*frame
}

// Aggregator accumulates frames. Keys are spread over independently locked
// shards so that writers to different keys rarely contend.
type Aggregator struct {
	shards   []*shard
	capacity int
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithShards sets the number of shards.
func WithShards(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.shards = make([]*shard, n)
		}
	}
}

// WithExampleCapacity sets how many examples each frame keeps.
func WithExampleCapacity(n int) Option {
	return func(a *Aggregator) {
		if n >= 0 {
			a.capacity = n
		}
	}
}

// New returns an empty Aggregator.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{
		shards:   make([]*shard, DefaultShards),
		capacity: DefaultExampleCapacity,
	}
	for _, opt := range opts {
		opt(a)
	}
	for i := range a.shards {
		a.shards[i] = &shard{frames: make(map[Key]*frame)}
	}
	return a
}

func (a *Aggregator) shardFor(k Key) *shard {
	h := fnv.New32a()
	for _, s := range [...]string{k.Lemma, k.Voice, k.Pattern, k.Period} {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}
	return a.shards[h.Sum32()%uint32(len(a.shards))]
}

// Record adds one attestation of the frame (lemma, voice, pattern, period).
// An empty example is counted but not stored.
func (a *Aggregator) Record(lemma, voice, pattern, period, example string) {
	a.add(Key{Lemma: lemma, Voice: voice, Pattern: pattern, Period: period}, 1, example)
}

// Add folds an already counted frame into the aggregator. It is used when
// seeding from durable storage.
func (a *Aggregator) Add(f Frame) {
	if f.Frequency <= 0 {
		return
	}
	s := a.shardFor(f.Key)
	s.mu.Lock()
	defer s.mu.Unlock()
	fr := s.lookup(f.Key, a.capacity)
	fr.frequency += f.Frequency
	for _, ex := range f.Examples {
		fr.examples.push(ex)
	}
}

func (a *Aggregator) add(k Key, n int64, example string) {
	s := a.shardFor(k)
	s.mu.Lock()
	defer s.mu.Unlock()
	fr := s.lookup(k, a.capacity)
	fr.frequency += n
	if example != "" {
		fr.examples.push(example)
	}
}

func (s *shard) lookup(k Key, capacity int) *frame {
	fr, ok := s.frames[k]
	if !ok {
		fr = &frame{examples: newRing(capacity)}
		s.frames[k] = fr
	}
	return fr
}

// Len returns the number of distinct frames.
func (a *Aggregator) Len() int {
	n := 0
	for _, s := range a.shards {
		s.mu.Lock()
		n += len(s.frames)
		s.mu.Unlock()
	}
	return n
}

// Snapshot copies every shard, one at a time, into an immutable value.
// Frames recorded while the copy is in progress may or may not be included.
func (a *Aggregator) Snapshot() *Snapshot {
	var frames []Frame
	for _, s := range a.shards {
		s.mu.Lock()
		for k, fr := range s.frames {
			frames = append(frames, Frame{Key: k, Frequency: fr.frequency, Examples: fr.examples.items()})
		}
		s.mu.Unlock()
	}
	sort.Slice(frames, func(i, j int) bool { return frames[i].Key.less(frames[j].Key) })
	return newSnapshot(frames)
}

// TopPatterns returns the n most frequent frames of a fresh snapshot.
func (a *Aggregator) TopPatterns(n int) []Frame {
	return a.Snapshot().TopFrames(n)
}

// FramesForLemma returns the frames of lemma from a fresh snapshot.
func (a *Aggregator) FramesForLemma(lemma string) []Frame {
	return a.Snapshot().FramesForLemma(lemma)
}

// FrameSource streams persisted frames.
type FrameSource interface {
	LoadFrames(ctx context.Context, fn func(Frame) error) error
}

// Restore seeds the aggregator from src so that counting resumes where a
// previous run stopped. It returns the number of frames loaded.
func (a *Aggregator) Restore(ctx context.Context, src FrameSource) (int, error) {
	n := 0
	err := src.LoadFrames(ctx, func(f Frame) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		a.Add(f)
		n++
		return nil
	})
	if err != nil {
		return n, fmt.Errorf("restore frames: %w", err)
	}
	return n, nil
}
