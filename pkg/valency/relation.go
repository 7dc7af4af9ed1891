package valency

import "strings"

// Relation is a normalized core-argument relation. Its value is the
// canonical ordering tier used when building patterns.
type Relation int

const (
	RelationNone Relation = iota
	RelationSubject
	RelationObject
	RelationSecondaryObject
	RelationOblique
	RelationPredicateComplement
	RelationClausalComplement
)

var relationNames = [...]string{
	RelationNone:                "none",
	RelationSubject:             "subject",
	RelationObject:              "object",
	RelationSecondaryObject:     "secondary-object",
	RelationOblique:             "oblique",
	RelationPredicateComplement: "predicate-complement",
	RelationClausalComplement:   "clausal-complement",
}

func (r Relation) String() string {
	if r < 0 || int(r) >= len(relationNames) {
		return "none"
	}
	return relationNames[r]
}

func (r Relation) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// IsCore reports whether r takes part in valency patterns.
func (r Relation) IsCore() bool { return r > RelationNone && r <= RelationClausalComplement }

// Labels are matched lowercased, so UD "obj" and AGDT "OBJ" share an entry.
var coreLabels = map[string]Relation{
	// UD
	"nsubj": RelationSubject,
	"obj":   RelationObject,
	"dobj":  RelationObject,
	"iobj":  RelationSecondaryObject,
	"obl":   RelationOblique,
	"ccomp": RelationClausalComplement,
	"xcomp": RelationClausalComplement,
	"csubj": RelationClausalComplement,
	// PROIEL
	"sub":  RelationSubject,
	"ag":   RelationOblique,
	"xobj": RelationPredicateComplement,
	"xsub": RelationPredicateComplement,
	"comp": RelationClausalComplement,
	// AGDT
	"sbj":   RelationSubject,
	"pnom":  RelationPredicateComplement,
	"ocomp": RelationPredicateComplement,
}

// Known labels that are simply not arguments. Anything outside both sets is
// annotation noise.
var nonCoreLabels = map[string]struct{}{}

func init() {
	for _, l := range strings.Fields(`
		acl advcl advmod amod appos aux case cc clf compound conj cop dep det
		discourse dislocated expl fixed flat goeswith list mark nmod nummod
		orphan parataxis punct reparandum root vocative
		adnom adv apos arg atr narg nonsub part per pid pred rel voc parpred xadv
		atv atvv auxc auxp auxv auxx auxy auxz auxk auxg auxr coord exd`) {
		nonCoreLabels[l] = struct{}{}
	}
}

// NormalizeRelation maps a UD, PROIEL or AGDT dependency label to a
// Relation. UD subtypes ("nsubj:pass", "obl:arg") and AGDT coordination
// suffixes ("OBJ_CO") are reduced to their base label first. known is false
// for labels none of the schemes define.
func NormalizeRelation(label string) (rel Relation, known bool) {
	base := strings.ToLower(strings.TrimSpace(label))
	if i := strings.IndexAny(base, ":_"); i > 0 {
		base = base[:i]
	}
	if r, ok := coreLabels[base]; ok {
		return r, true
	}
	_, known = nonCoreLabels[base]
	return RelationNone, known
}
