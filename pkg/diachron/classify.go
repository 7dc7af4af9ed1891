package diachron

import (
	"fmt"
	"sort"

	"github.com/nlavidas/diachronic-valency/pkg/morph"
	"github.com/nlavidas/diachronic-valency/pkg/valency"
)

// Shapes of change between two dominant patterns. A single-case swap is
// labelled "<OLD>_to_<NEW>" instead, e.g. "ACC_to_DAT".
const (
	ChangeReordering   = "reordering"
	ChangeExpansion    = "expansion"
	ChangeReduction    = "reduction"
	ChangeSubstitution = "substitution"
)

// Classify labels the change from older to newer by comparing their case sets.
// It only describes the shape of the change. Identical patterns have no
// label.
func Classify(older, newer valency.Pattern) string {
	if older == newer {
		return ""
	}
	oldSet := caseSet(older)
	newSet := caseSet(newer)
	removed := difference(oldSet, newSet)
	added := difference(newSet, oldSet)

	switch {
	case len(removed) == 0 && len(added) == 0:
		return ChangeReordering
	case len(removed) == 0:
		return ChangeExpansion
	case len(added) == 0:
		return ChangeReduction
	case len(removed) == 1 && len(added) == 1:
		return SwapLabel(removed[0], added[0])
	default:
		return ChangeSubstitution
	}
}

// SwapLabel names the replacement of one case by another.
func SwapLabel(from, to morph.Case) string {
	return fmt.Sprintf("%s_to_%s", from, to)
}

func caseSet(p valency.Pattern) map[morph.Case]bool {
	set := make(map[morph.Case]bool)
	for _, c := range p.Cases() {
		set[c] = true
	}
	return set
}

// difference returns a \ b in sorted order.
func difference(a, b map[morph.Case]bool) []morph.Case {
	var out []morph.Case
	for c := range a {
		if !b[c] {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
