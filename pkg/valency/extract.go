package valency

import (
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/nlavidas/diachronic-valency/pkg/morph"
	"github.com/nlavidas/diachronic-valency/pkg/treebank"
)

// Examples longer than this many runes are cut at a word boundary.
const maxExampleRunes = 160

// LemmaMapper folds orthographic variants onto one citation lemma.
type LemmaMapper interface {
	Canonical(lemma string) string
}

// Occurrence is one verb token reduced to its frame key and an example.
type Occurrence struct {
	Lemma      string      `json:"lemma"`
	Voice      morph.Voice `json:"voice"`
	Pattern    Pattern     `json:"pattern"`
	Period     string      `json:"period"`
	Example    string      `json:"example"`
	SentenceID string      `json:"sentence_id"`
}

// Extractor turns sentences into verb occurrences. It is safe for
// concurrent use.
type Extractor struct {
	decoder *morph.Decoder
	lemmas  LemmaMapper

	noise atomic.Int64
}

// NewExtractor returns an extractor over dec. lemmas may be nil.
func NewExtractor(dec *morph.Decoder, lemmas LemmaMapper) *Extractor {
	return &Extractor{decoder: dec, lemmas: lemmas}
}

// Decoder returns the decoder used for verbs and their dependents.
func (e *Extractor) Decoder() *morph.Decoder { return e.decoder }

// Noise returns how many dependents with unknown relation labels and verbs
// without a lemma have been seen.
func (e *Extractor) Noise() int64 { return e.noise.Load() }

// Extract returns one occurrence per verb token, in sentence order. A
// structurally broken sentence yields its *treebank.StructureError and no
// occurrences.
func (e *Extractor) Extract(s treebank.Sentence) ([]Occurrence, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	var out []Occurrence
	var example string
	for _, tok := range s.Tokens {
		if morph.Categorize(tok.POS) != morph.CategoryVerb {
			continue
		}
		if n := unknownRelations(s, tok); n > 0 {
			e.noise.Add(int64(n))
		}
		lemma := e.lemma(tok.Lemma)
		if lemma == "" {
			e.noise.Add(1)
			continue
		}
		if example == "" {
			example = trimExample(s.Text())
		}
		feats := e.decoder.Decode(tok.POS, tok.Morphology)
		out = append(out, Occurrence{
			Lemma:      lemma,
			Voice:      feats.Voice,
			Pattern:    Canonicalize(CollectArguments(e.decoder, s, tok)),
			Period:     s.Period,
			Example:    example,
			SentenceID: s.ID,
		})
	}
	return out, nil
}

// lemma returns the citation form of raw, or "" when there is none.
func (e *Extractor) lemma(raw string) string {
	l := strings.TrimSpace(norm.NFC.String(raw))
	if l != "" && e.lemmas != nil {
		l = strings.TrimSpace(e.lemmas.Canonical(l))
	}
	return l
}

func trimExample(text string) string {
	if utf8.RuneCountInString(text) <= maxExampleRunes {
		return text
	}
	runes := []rune(text)[:maxExampleRunes]
	cut := len(runes)
	for i := len(runes) - 1; i > maxExampleRunes/2; i-- {
		if runes[i] == ' ' {
			cut = i
			break
		}
	}
	return string(runes[:cut]) + "…"
}
