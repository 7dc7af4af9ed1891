package valency

import (
	"sort"
	"strings"

	"github.com/nlavidas/diachronic-valency/pkg/morph"
)

// Pattern is the canonical rendering of a verb's argument structure,
// e.g. "NOM-ACC-DAT".
type Pattern string

const (
	// Intransitive is the pattern of a verb with no case-bearing argument.
	Intransitive Pattern = "INTR"
	// ClausalMarker stands for a caseless clausal complement.
	ClausalMarker = "COMP"

	separator = "-"
)

type entry struct {
	tier  Relation
	token string
}

// Canonicalize builds the pattern for args. Arguments without a case are
// dropped unless they are clausal complements, the rest are ordered by
// relation tier and then by rendered token. The result depends only on the
// multiset of (relation, case) pairs, never on input order.
func Canonicalize(args []Argument) Pattern {
	entries := make([]entry, 0, len(args))
	for _, a := range args {
		switch {
		case a.Case.Specified():
			entries = append(entries, entry{tier: a.Relation, token: string(a.Case)})
		case a.Relation == RelationClausalComplement:
			entries = append(entries, entry{tier: a.Relation, token: ClausalMarker})
		}
	}
	if len(entries) == 0 {
		return Intransitive
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].tier != entries[j].tier {
			return entries[i].tier < entries[j].tier
		}
		return entries[i].token < entries[j].token
	})
	tokens := make([]string, len(entries))
	for i, e := range entries {
		tokens[i] = e.token
	}
	return Pattern(strings.Join(tokens, separator))
}

// Cases returns the distinct case names in p, sorted, without the INTR and
// COMP markers.
func (p Pattern) Cases() []morph.Case {
	if p == Intransitive || p == "" {
		return nil
	}
	seen := make(map[morph.Case]bool)
	var out []morph.Case
	for _, tok := range strings.Split(string(p), separator) {
		if tok == "" || tok == ClausalMarker || tok == string(Intransitive) || seen[morph.Case(tok)] {
			continue
		}
		seen[morph.Case(tok)] = true
		out = append(out, morph.Case(tok))
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (p Pattern) String() string { return string(p) }
