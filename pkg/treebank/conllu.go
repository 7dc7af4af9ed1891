package treebank

// CoNLL-U reading. For a description of the format see
// https://universaldependencies.org/format.html
//
// UPOS is taken as the part-of-speech tag. The positional morphology code is
// read from XPOS by default, where AGDT conversions keep it; treebanks that
// store it in FEATS select ColumnFeats. UD conversions of PROIEL carry only a
// two-letter tag in XPOS and UD features in FEATS, so the proiel-v1 table
// needs a treebank exported with the native ten-position PROIEL code.

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	fieldSeparator = "\t"
	numFields      = 10
	maxLineSize    = 1024 * 1024
)

// MorphologyColumn names the CoNLL-U column holding the positional code.
type MorphologyColumn string

const (
	ColumnXPOS  MorphologyColumn = "xpos"
	ColumnFeats MorphologyColumn = "feats"
)

// ParseMorphologyColumn accepts "xpos" or "feats" in any case. An empty name
// means ColumnXPOS.
func ParseMorphologyColumn(name string) (MorphologyColumn, error) {
	switch c := MorphologyColumn(strings.ToLower(strings.TrimSpace(name))); c {
	case "":
		return ColumnXPOS, nil
	case ColumnXPOS, ColumnFeats:
		return c, nil
	default:
		return "", fmt.Errorf("unknown morphology column %q (want xpos or feats)", name)
	}
}

func (c MorphologyColumn) index() int {
	if c == ColumnFeats {
		return 5
	}
	return 4
}

// ReadOptions supplies provenance for sentences whose comments do not carry
// it, and the column to take morphology from.
type ReadOptions struct {
	SourceTextID     string
	Period           string
	Year             int
	MorphologyColumn MorphologyColumn
}

// ReadCoNLLU parses every sentence in r. Multiword-token ranges ("1-2") and
// empty nodes ("1.1") are skipped. A row with the wrong number of fields
// aborts the read, since the rest of the text cannot be trusted.
func ReadCoNLLU(r io.Reader, opts ReadOptions) ([]Sentence, error) {
	morphIdx := opts.MorphologyColumn.index()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var (
		out     []Sentence
		current = newSentence(opts)
		lineNo  int
		seq     int
	)
	flush := func() {
		if len(current.Tokens) == 0 {
			return
		}
		seq++
		if current.ID == "" {
			current.ID = fmt.Sprintf("%s#%d", current.SourceTextID, seq)
		}
		out = append(out, current)
		next := newSentence(opts)
		// document-level metadata carries over to following sentences
		next.SourceTextID = current.SourceTextID
		next.Period = current.Period
		next.Year = current.Year
		current = next
	}

	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		switch {
		case strings.TrimSpace(line) == "":
			flush()
		case strings.HasPrefix(line, "#"):
			applyComment(&current, line)
		default:
			tok, skip, err := parseRow(line, morphIdx)
			if err != nil {
				return out, fmt.Errorf("line %d: %w", lineNo, err)
			}
			if !skip {
				current.Tokens = append(current.Tokens, tok)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return out, fmt.Errorf("read conllu: %w", err)
	}
	flush()
	return out, nil
}

func newSentence(opts ReadOptions) Sentence {
	return Sentence{SourceTextID: opts.SourceTextID, Period: opts.Period, Year: opts.Year}
}

func applyComment(s *Sentence, line string) {
	body := strings.TrimSpace(strings.TrimPrefix(line, "#"))
	key, value, ok := strings.Cut(body, "=")
	if !ok {
		return
	}
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	switch key {
	case "sent_id":
		s.ID = value
	case "text_id", "newdoc id":
		s.SourceTextID = value
	case "period":
		s.Period = value
	case "year":
		if y, err := strconv.Atoi(value); err == nil {
			s.Year = y
		}
	}
}

func parseRow(line string, morphIdx int) (Token, bool, error) {
	fields := strings.Split(line, fieldSeparator)
	if len(fields) != numFields {
		return Token{}, false, fmt.Errorf("expected %d fields, got %d", numFields, len(fields))
	}
	if strings.ContainsAny(fields[0], "-.") {
		return Token{}, true, nil
	}
	id, err := strconv.Atoi(fields[0])
	if err != nil {
		return Token{}, false, fmt.Errorf("bad ID field %q: %w", fields[0], err)
	}
	tok := Token{
		ID:         id,
		Form:       fields[1],
		Lemma:      parseString(fields[2]),
		POS:        parseString(fields[3]),
		Morphology: parseString(fields[morphIdx]),
		Relation:   parseString(fields[7]),
	}
	// A broken head is annotation damage, not a read failure: it is kept as
	// an impossible id so Validate reports the sentence.
	head := parseString(fields[6])
	if head == "" {
		tok.Head = 0
	} else if h, err := strconv.Atoi(head); err == nil {
		tok.Head = h
	} else {
		tok.Head = -1
	}
	return tok, false, nil
}

func parseString(value string) string {
	if value == "_" {
		return ""
	}
	return value
}
