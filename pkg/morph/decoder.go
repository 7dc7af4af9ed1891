package morph

import (
	"strings"
	"sync/atomic"
	"unicode"
	"unicode/utf8"
)

// Category is the coarse part of speech that selects a position map.
type Category int

const (
	CategoryOther Category = iota
	CategoryVerb
	CategoryNominal
)

func (c Category) String() string {
	switch c {
	case CategoryVerb:
		return "verb"
	case CategoryNominal:
		return "nominal"
	default:
		return "other"
	}
}

var udCategories = map[string]Category{
	"VERB":  CategoryVerb,
	"AUX":   CategoryVerb,
	"NOUN":  CategoryNominal,
	"PROPN": CategoryNominal,
	"PRON":  CategoryNominal,
	"ADJ":   CategoryNominal,
	"DET":   CategoryNominal,
	"ADP":   CategoryOther,
	"ADV":   CategoryOther,
	"CCONJ": CategoryOther,
	"INTJ":  CategoryOther,
	"NUM":   CategoryOther,
	"PART":  CategoryOther,
	"PUNCT": CategoryOther,
	"SCONJ": CategoryOther,
	"SYM":   CategoryOther,
	"X":     CategoryOther,
}

// Categorize maps a UD, PROIEL or AGDT part-of-speech tag to a category.
// UD names are matched whole; otherwise the first letter decides:
// v is a verb, and n, p, a, s or l a nominal.
func Categorize(pos string) Category {
	if c, ok := udCategories[strings.ToUpper(pos)]; ok {
		return c
	}
	r, _ := utf8.DecodeRuneInString(pos)
	switch unicode.ToLower(r) {
	case 'v':
		return CategoryVerb
	case 'n', 'p', 'a', 's', 'l':
		return CategoryNominal
	}
	return CategoryOther
}

var (
	personAlphabet = map[rune]Person{'1': PersonFirst, '2': PersonSecond, '3': PersonThird}
	numberAlphabet = map[rune]Number{'s': NumberSingular, 'p': NumberPlural, 'd': NumberDual}
	tenseAlphabet  = map[rune]Tense{
		'p': TensePresent, 'i': TenseImperfect, 'r': TensePerfect, 'l': TensePluperfect,
		't': TenseFuturePerfect, 'f': TenseFuture, 'a': TenseAorist,
	}
	moodAlphabet = map[rune]Mood{
		'i': MoodIndicative, 's': MoodSubjunctive, 'o': MoodOptative, 'n': MoodInfinitive,
		'm': MoodImperative, 'p': MoodParticiple, 'g': MoodGerundive, 'd': MoodGerund, 'u': MoodSupine,
	}
	voiceAlphabet = map[rune]Voice{
		'a': VoiceActive, 'p': VoicePassive, 'm': VoiceMiddle, 'e': VoiceMedioPassive, 'd': VoiceDeponent,
	}
	genderAlphabet = map[rune]Gender{'m': GenderMasculine, 'f': GenderFeminine, 'n': GenderNeuter}
	caseAlphabet   = map[rune]Case{
		'n': CaseNominative, 'g': CaseGenitive, 'd': CaseDative, 'a': CaseAccusative,
		'v': CaseVocative, 'b': CaseAblative, 'l': CaseLocative, 'i': CaseInstrumental,
	}
	degreeAlphabet = map[rune]Degree{'p': DegreePositive, 'c': DegreeComparative, 's': DegreeSuperlative}
)

// Feature indexes into Stats.
const (
	featPerson = iota
	featNumber
	featTense
	featMood
	featVoice
	featGender
	featCase
	featDegree
	numFeatures
)

var featureNames = [numFeatures]string{"person", "number", "tense", "mood", "voice", "gender", "case", "degree"}

// Decoder turns positional morphology codes into Features. It is safe for
// concurrent use; only its statistics change after construction.
type Decoder struct {
	table        Table
	unrecognized [numFeatures]atomic.Int64
	truncated    [numFeatures]atomic.Int64
	decoded      atomic.Int64
}

// NewDecoder returns a decoder over t.
func NewDecoder(t Table) *Decoder {
	return &Decoder{table: t}
}

// Table returns the position table the decoder was built with.
func (d *Decoder) Table() Table { return d.table }

// Decode never fails. Positions past the end of code and characters outside
// a feature's alphabet decode to unspecified and are counted.
func (d *Decoder) Decode(pos, code string) Features {
	d.decoded.Add(1)
	var f Features
	cat := Categorize(pos)
	if cat == CategoryOther {
		return f
	}
	runes := []rune(strings.ToLower(code))
	switch cat {
	case CategoryVerb:
		p := d.table.Verb
		f.Person = lookup(d, runes, p.Person, featPerson, personAlphabet)
		f.Number = lookup(d, runes, p.Number, featNumber, numberAlphabet)
		f.Tense = lookup(d, runes, p.Tense, featTense, tenseAlphabet)
		f.Mood = lookup(d, runes, p.Mood, featMood, moodAlphabet)
		f.Voice = lookup(d, runes, p.Voice, featVoice, voiceAlphabet)
	case CategoryNominal:
		p := d.table.Nominal
		f.Person = lookup(d, runes, p.Person, featPerson, personAlphabet)
		f.Number = lookup(d, runes, p.Number, featNumber, numberAlphabet)
		f.Gender = lookup(d, runes, p.Gender, featGender, genderAlphabet)
		f.Case = lookup(d, runes, p.Case, featCase, caseAlphabet)
		f.Degree = lookup(d, runes, p.Degree, featDegree, degreeAlphabet)
	}
	return f
}

func lookup[T ~string](d *Decoder, code []rune, at, feature int, alphabet map[rune]T) T {
	var zero T
	if at < 0 {
		return zero
	}
	if at >= len(code) {
		d.truncated[feature].Add(1)
		return zero
	}
	r := code[at]
	if r == '-' {
		return zero
	}
	v, ok := alphabet[r]
	if !ok {
		d.unrecognized[feature].Add(1)
		return zero
	}
	return v
}

// FeatureStats counts decoding anomalies for one feature.
type FeatureStats struct {
	Unrecognized int64 `json:"unrecognized"`
	Truncated    int64 `json:"truncated"`
}

// StatsSnapshot is a point-in-time copy of decoder statistics.
type StatsSnapshot struct {
	Table    string                  `json:"table"`
	Decoded  int64                   `json:"decoded"`
	Features map[string]FeatureStats `json:"features"`
}

// Anomalies sums unrecognized characters and truncated positions.
func (s StatsSnapshot) Anomalies() int64 {
	var n int64
	for _, f := range s.Features {
		n += f.Unrecognized + f.Truncated
	}
	return n
}

// Stats returns the counters accumulated so far.
func (d *Decoder) Stats() StatsSnapshot {
	s := StatsSnapshot{
		Table:    d.table.Name,
		Decoded:  d.decoded.Load(),
		Features: make(map[string]FeatureStats, numFeatures),
	}
	for i, name := range featureNames {
		s.Features[name] = FeatureStats{
			Unrecognized: d.unrecognized[i].Load(),
			Truncated:    d.truncated[i].Load(),
		}
	}
	return s
}
