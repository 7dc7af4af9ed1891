package valency

import (
	"github.com/nlavidas/diachronic-valency/pkg/morph"
	"github.com/nlavidas/diachronic-valency/pkg/treebank"
)

// FeatureDecoder is the part of morph.Decoder the collector needs.
type FeatureDecoder interface {
	Decode(pos, code string) morph.Features
}

// Argument is one core dependent of a verb.
type Argument struct {
	Relation Relation   `json:"relation"`
	Case     morph.Case `json:"case"`
	Lemma    string     `json:"lemma"`
	Form     string     `json:"form"`
}

// CollectArguments returns the core-argument dependents of verb in sentence
// order. Case-bearing dependents carry their decoded case, which may be
// unspecified; everything else has no case.
func CollectArguments(dec FeatureDecoder, s treebank.Sentence, verb treebank.Token) []Argument {
	var args []Argument
	for _, dep := range s.Dependents(verb.ID) {
		rel, _ := NormalizeRelation(dep.Relation)
		if !rel.IsCore() {
			continue
		}
		arg := Argument{Relation: rel, Lemma: dep.Lemma, Form: dep.Form}
		if morph.Categorize(dep.POS) == morph.CategoryNominal {
			arg.Case = dec.Decode(dep.POS, dep.Morphology).Case
		}
		args = append(args, arg)
	}
	return args
}

// unknownRelations counts dependents of verb whose label no scheme defines.
func unknownRelations(s treebank.Sentence, verb treebank.Token) int {
	n := 0
	for _, dep := range s.Dependents(verb.ID) {
		if _, known := NormalizeRelation(dep.Relation); !known {
			n++
		}
	}
	return n
}
