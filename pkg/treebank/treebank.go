package treebank

import (
	"errors"
	"fmt"
)

// Token represents a single annotated word of a treebank sentence.
type Token struct {
	ID         int    // Position within the sentence, unique, 1-based
	Form       string // The text as it appears (e.g. "λέγει")
	Lemma      string // The citation form (e.g. "λέγω")
	POS        string // Part-of-speech tag (UD "VERB", PROIEL "V-", AGDT "v")
	Morphology string // Raw positional morphology code (e.g. "3spia----")
	Head       int    // ID of the syntactic head; 0 means root
	Relation   string // Dependency label (e.g. "nsubj", "sub", "OBJ")
}

// IsRoot reports whether the token has no syntactic head.
func (t Token) IsRoot() bool { return t.Head == 0 }

// Sentence is an ordered, read-only sequence of tokens with its provenance.
type Sentence struct {
	ID           string
	SourceTextID string
	Period       string // e.g. "archaic", "classical", "koine"
	Year         int    // approximate; negative means BCE
	Tokens       []Token
}

var (
	// ErrDanglingHead marks a token whose head does not exist in the sentence.
	ErrDanglingHead = errors.New("head references a missing token")
	// ErrDuplicateToken marks two tokens sharing an id.
	ErrDuplicateToken = errors.New("duplicate token id")
)

// StructureError describes a structural inconsistency inside one sentence.
type StructureError struct {
	SentenceID string
	TokenID    int
	HeadID     int
	Err        error
}

func (e *StructureError) Error() string {
	if errors.Is(e.Err, ErrDanglingHead) {
		return fmt.Sprintf("sentence %s: token %d: %v (head %d)", e.SentenceID, e.TokenID, e.Err, e.HeadID)
	}
	return fmt.Sprintf("sentence %s: token %d: %v", e.SentenceID, e.TokenID, e.Err)
}

func (e *StructureError) Unwrap() error { return e.Err }

// Validate checks that token ids are unique and every non-root head points
// to a token of the same sentence. It returns the first problem found.
func (s Sentence) Validate() error {
	ids := make(map[int]struct{}, len(s.Tokens))
	for _, t := range s.Tokens {
		if _, dup := ids[t.ID]; dup {
			return &StructureError{SentenceID: s.ID, TokenID: t.ID, Err: ErrDuplicateToken}
		}
		ids[t.ID] = struct{}{}
	}
	for _, t := range s.Tokens {
		if t.IsRoot() {
			continue
		}
		if _, ok := ids[t.Head]; !ok {
			return &StructureError{SentenceID: s.ID, TokenID: t.ID, HeadID: t.Head, Err: ErrDanglingHead}
		}
	}
	return nil
}

// Dependents returns the tokens headed by id, in sentence order.
func (s Sentence) Dependents(id int) []Token {
	var out []Token
	for _, t := range s.Tokens {
		if t.Head == id && t.ID != id {
			out = append(out, t)
		}
	}
	return out
}

// Text joins the surface forms with single spaces.
func (s Sentence) Text() string {
	n := 0
	for _, t := range s.Tokens {
		n += len(t.Form) + 1
	}
	buf := make([]byte, 0, n)
	for i, t := range s.Tokens {
		if i > 0 {
			buf = append(buf, ' ')
		}
		buf = append(buf, t.Form...)
	}
	return string(buf)
}
