package morph

import (
	"fmt"
	"sort"
)

// Positions are zero-based rune offsets into a morphology code. A negative
// offset means the scheme does not encode that feature.
type VerbPositions struct {
	Person int `yaml:"person" json:"person"`
	Number int `yaml:"number" json:"number"`
	Tense  int `yaml:"tense" json:"tense"`
	Mood   int `yaml:"mood" json:"mood"`
	Voice  int `yaml:"voice" json:"voice"`
}

type NominalPositions struct {
	Person int `yaml:"person" json:"person"`
	Number int `yaml:"number" json:"number"`
	Gender int `yaml:"gender" json:"gender"`
	Case   int `yaml:"case" json:"case"`
	Degree int `yaml:"degree" json:"degree"`
}

// Table is a named, versioned position map. The name is recorded with every
// run so that frequency keys built under different tables are never mixed.
type Table struct {
	Name    string           `yaml:"name" json:"name"`
	Verb    VerbPositions    `yaml:"verb" json:"verb"`
	Nominal NominalPositions `yaml:"nominal" json:"nominal"`
}

const DefaultTableName = "canonical-v1"

var builtinTables = map[string]Table{
	"canonical-v1": {
		Name:    "canonical-v1",
		Verb:    VerbPositions{Person: 0, Number: 1, Tense: 2, Voice: 3, Mood: 4},
		Nominal: NominalPositions{Person: 0, Number: 1, Gender: 2, Case: 3, Degree: 4},
	},
	// Perseus AGDT 9-character tags: pos, person, number, tense, mood,
	// voice, gender, case, degree.
	"agdt-v1": {
		Name:    "agdt-v1",
		Verb:    VerbPositions{Person: 1, Number: 2, Tense: 3, Mood: 4, Voice: 5},
		Nominal: NominalPositions{Person: 1, Number: 2, Gender: 6, Case: 7, Degree: 8},
	},
	// PROIEL 10-character morphology without the part of speech: person,
	// number, tense, mood, voice, gender, case, degree, strength, inflection.
	"proiel-v1": {
		Name:    "proiel-v1",
		Verb:    VerbPositions{Person: 0, Number: 1, Tense: 2, Mood: 3, Voice: 4},
		Nominal: NominalPositions{Person: 0, Number: 1, Gender: 5, Case: 6, Degree: 7},
	},
}

// LookupTable returns a built-in table by name.
func LookupTable(name string) (Table, error) {
	if name == "" {
		name = DefaultTableName
	}
	t, ok := builtinTables[name]
	if !ok {
		return Table{}, fmt.Errorf("unknown morphology table %q", name)
	}
	return t, nil
}

// TableNames lists the built-in tables in sorted order.
func TableNames() []string {
	names := make([]string, 0, len(builtinTables))
	for n := range builtinTables {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Validate rejects custom tables that reuse one offset for two features of
// the same category.
func (t Table) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("morphology table has no name")
	}
	verb := []int{t.Verb.Person, t.Verb.Number, t.Verb.Tense, t.Verb.Mood, t.Verb.Voice}
	if err := distinct(verb); err != nil {
		return fmt.Errorf("table %s verb positions: %w", t.Name, err)
	}
	nominal := []int{t.Nominal.Person, t.Nominal.Number, t.Nominal.Gender, t.Nominal.Case, t.Nominal.Degree}
	if err := distinct(nominal); err != nil {
		return fmt.Errorf("table %s nominal positions: %w", t.Name, err)
	}
	return nil
}

func distinct(positions []int) error {
	seen := make(map[int]bool, len(positions))
	for _, p := range positions {
		if p < 0 {
			continue
		}
		if seen[p] {
			return fmt.Errorf("position %d used twice", p)
		}
		seen[p] = true
	}
	return nil
}
