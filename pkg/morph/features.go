package morph

// Unspecified is how an absent feature is rendered and serialized.
const Unspecified = "unspecified"

// Each feature is a typed string; the zero value means unspecified.
type (
	Person string
	Number string
	Tense  string
	Mood   string
	Voice  string
	Gender string
	Case   string
	Degree string
)

const (
	PersonFirst  Person = "1"
	PersonSecond Person = "2"
	PersonThird  Person = "3"

	NumberSingular Number = "singular"
	NumberPlural   Number = "plural"
	NumberDual     Number = "dual"

	TensePresent       Tense = "present"
	TenseImperfect     Tense = "imperfect"
	TensePerfect       Tense = "perfect"
	TensePluperfect    Tense = "pluperfect"
	TenseFuturePerfect Tense = "future-perfect"
	TenseFuture        Tense = "future"
	TenseAorist        Tense = "aorist"

	MoodIndicative  Mood = "indicative"
	MoodSubjunctive Mood = "subjunctive"
	MoodOptative    Mood = "optative"
	MoodInfinitive  Mood = "infinitive"
	MoodImperative  Mood = "imperative"
	MoodParticiple  Mood = "participle"
	MoodGerundive   Mood = "gerundive"
	MoodGerund      Mood = "gerund"
	MoodSupine      Mood = "supine"

	VoiceActive       Voice = "active"
	VoicePassive      Voice = "passive"
	VoiceMiddle       Voice = "middle"
	VoiceMedioPassive Voice = "medio-passive"
	VoiceDeponent     Voice = "deponent"

	GenderMasculine Gender = "masculine"
	GenderFeminine  Gender = "feminine"
	GenderNeuter    Gender = "neuter"

	CaseNominative   Case = "NOM"
	CaseGenitive     Case = "GEN"
	CaseDative       Case = "DAT"
	CaseAccusative   Case = "ACC"
	CaseVocative     Case = "VOC"
	CaseAblative     Case = "ABL"
	CaseLocative     Case = "LOC"
	CaseInstrumental Case = "INS"

	DegreePositive    Degree = "positive"
	DegreeComparative Degree = "comparative"
	DegreeSuperlative Degree = "superlative"
)

func render(s string) string {
	if s == "" {
		return Unspecified
	}
	return s
}

func parse(text []byte) string {
	if s := string(text); s != Unspecified {
		return s
	}
	return ""
}

func (v Person) Specified() bool { return v != "" }
func (v Number) Specified() bool { return v != "" }
func (v Tense) Specified() bool  { return v != "" }
func (v Mood) Specified() bool   { return v != "" }
func (v Voice) Specified() bool  { return v != "" }
func (v Gender) Specified() bool { return v != "" }
func (v Case) Specified() bool   { return v != "" }
func (v Degree) Specified() bool { return v != "" }

func (v Person) String() string { return render(string(v)) }
func (v Number) String() string { return render(string(v)) }
func (v Tense) String() string  { return render(string(v)) }
func (v Mood) String() string   { return render(string(v)) }
func (v Voice) String() string  { return render(string(v)) }
func (v Gender) String() string { return render(string(v)) }
func (v Case) String() string   { return render(string(v)) }
func (v Degree) String() string { return render(string(v)) }

func (v Person) MarshalText() ([]byte, error) { return []byte(v.String()), nil }
func (v Number) MarshalText() ([]byte, error) { return []byte(v.String()), nil }
func (v Tense) MarshalText() ([]byte, error)  { return []byte(v.String()), nil }
func (v Mood) MarshalText() ([]byte, error)   { return []byte(v.String()), nil }
func (v Voice) MarshalText() ([]byte, error)  { return []byte(v.String()), nil }
func (v Gender) MarshalText() ([]byte, error) { return []byte(v.String()), nil }
func (v Case) MarshalText() ([]byte, error)   { return []byte(v.String()), nil }
func (v Degree) MarshalText() ([]byte, error) { return []byte(v.String()), nil }

func (v *Person) UnmarshalText(b []byte) error { *v = Person(parse(b)); return nil }
func (v *Number) UnmarshalText(b []byte) error { *v = Number(parse(b)); return nil }
func (v *Tense) UnmarshalText(b []byte) error  { *v = Tense(parse(b)); return nil }
func (v *Mood) UnmarshalText(b []byte) error   { *v = Mood(parse(b)); return nil }
func (v *Voice) UnmarshalText(b []byte) error  { *v = Voice(parse(b)); return nil }
func (v *Gender) UnmarshalText(b []byte) error { *v = Gender(parse(b)); return nil }
func (v *Case) UnmarshalText(b []byte) error   { *v = Case(parse(b)); return nil }
func (v *Degree) UnmarshalText(b []byte) error { *v = Degree(parse(b)); return nil }

// Features is the decoded form of one positional morphology code.
type Features struct {
	Person Person `json:"person"`
	Number Number `json:"number"`
	Tense  Tense  `json:"tense"`
	Mood   Mood   `json:"mood"`
	Voice  Voice  `json:"voice"`
	Gender Gender `json:"gender"`
	Case   Case   `json:"case"`
	Degree Degree `json:"degree"`
}

// IsZero reports whether no feature was decoded.
func (f Features) IsZero() bool { return f == Features{} }
