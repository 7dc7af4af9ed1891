// Package lexicon maps orthographic lemma variants to citation lemmas.
package lexicon

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Entry is one citation lemma and the spellings that stand for it.
type Entry struct {
	Lemma    string   `json:"lemma"`
	Variants []string `json:"variants"`
	POS      string   `json:"pos,omitempty"`
}

// Lexicon resolves lemmas to their citation form. Lookups try the exact NFC
// form first, then a lowercased form, then a folded form with diacritics
// removed and Latin j/v spelled i/u. Folded keys shared by two citation
// lemmas are dropped rather than resolved arbitrarily.
type Lexicon struct {
	mu     sync.RWMutex
	exact  map[string]string
	lower  map[string]string
	folded map[string]string
	// ambiguous holds folded keys claimed by more than one lemma.
	ambiguous map[string]bool
	entries   int
}

// New builds a lexicon from entries. A variant listed under two lemmas keeps
// the first.
func New(entries []Entry) *Lexicon {
	lx := &Lexicon{
		exact:     make(map[string]string),
		lower:     make(map[string]string),
		folded:    make(map[string]string),
		ambiguous: make(map[string]bool),
	}
	for _, e := range entries {
		lx.Add(e)
	}
	return lx
}

// Add registers an entry. Entries without a lemma are ignored.
func (lx *Lexicon) Add(e Entry) {
	lemma := norm.NFC.String(strings.TrimSpace(e.Lemma))
	if lemma == "" {
		return
	}
	lx.mu.Lock()
	defer lx.mu.Unlock()
	lx.entries++
	for _, v := range append([]string{lemma}, e.Variants...) {
		v = norm.NFC.String(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if _, ok := lx.exact[v]; !ok {
			lx.exact[v] = lemma
		}
		if l := strings.ToLower(v); lx.lower[l] == "" {
			lx.lower[l] = lemma
		}
		f := Fold(v)
		if lx.ambiguous[f] {
			continue
		}
		switch prev, ok := lx.folded[f]; {
		case !ok:
			lx.folded[f] = lemma
		case prev != lemma:
			delete(lx.folded, f)
			lx.ambiguous[f] = true
		}
	}
}

// Len returns the number of registered entries.
func (lx *Lexicon) Len() int {
	lx.mu.RLock()
	defer lx.mu.RUnlock()
	return lx.entries
}

// Lookup returns the citation lemma for a spelling and whether one was found.
func (lx *Lexicon) Lookup(lemma string) (string, bool) {
	s := norm.NFC.String(strings.TrimSpace(lemma))
	if s == "" {
		return "", false
	}
	lx.mu.RLock()
	defer lx.mu.RUnlock()
	if c, ok := lx.exact[s]; ok {
		return c, true
	}
	if c, ok := lx.lower[strings.ToLower(s)]; ok {
		return c, true
	}
	if c, ok := lx.folded[Fold(s)]; ok {
		return c, true
	}
	return "", false
}

// Canonical returns the citation lemma, or the NFC form of lemma when the
// lexicon does not know it.
func (lx *Lexicon) Canonical(lemma string) string {
	if c, ok := lx.Lookup(lemma); ok {
		return c
	}
	return norm.NFC.String(lemma)
}

// Ambiguous lists folded keys that could not be resolved to one lemma.
func (lx *Lexicon) Ambiguous() []string {
	lx.mu.RLock()
	defer lx.mu.RUnlock()
	out := make([]string, 0, len(lx.ambiguous))
	for k := range lx.ambiguous {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

var spellingReplacer = strings.NewReplacer(
	"j", "i",
	"v", "u",
	"æ", "ae",
	"œ", "oe",
	"ς", "σ",
)

// Fold lowercases s and strips combining marks (accents, breathings,
// macrons, breves). Final sigma becomes σ; Latin j/v and ligatures are
// normalized.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return spellingReplacer.Replace(strings.ToLower(out))
}

// Parse reads entries from JSON, either an object {"lemmas": [...]} or a
// bare array.
func Parse(r io.Reader) ([]Entry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var wrapped struct {
		Lemmas []Entry `json:"lemmas"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && len(wrapped.Lemmas) > 0 {
		return wrapped.Lemmas, nil
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse lexicon as object or array: %w", err)
	}
	return entries, nil
}

// Load reads a lexicon file.
func Load(path string) (*Lexicon, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	entries, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("lexicon %s: %w", path, err)
	}
	return New(entries), nil
}
