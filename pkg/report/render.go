package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/nlavidas/diachronic-valency/pkg/diachron"
)

// Table is a header and rows of already formatted cells.
type Table struct {
	Header []string
	Rows   [][]string
}

// WriteTable writes t as aligned columns.
func WriteTable(w io.Writer, t Table) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if len(t.Header) > 0 {
		if _, err := fmt.Fprintln(tw, strings.Join(t.Header, "\t")); err != nil {
			return err
		}
	}
	for _, row := range t.Rows {
		if _, err := fmt.Fprintln(tw, strings.Join(row, "\t")); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// WriteJSON writes one JSON object per line.
func WriteJSON[T any](w io.Writer, items []T) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, it := range items {
		if err := enc.Encode(it); err != nil {
			return err
		}
	}
	return nil
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }

// PatternTable formats TopPatterns results.
func PatternTable(rows []PatternCount) Table {
	t := Table{Header: []string{"RANK", "PATTERN", "FREQUENCY", "LEMMAS"}}
	for i, r := range rows {
		lemmas := strconv.Itoa(r.Lemmas)
		if r.Lemma != "" {
			lemmas = r.Lemma
		}
		t.Rows = append(t.Rows, []string{strconv.Itoa(i + 1), string(r.Pattern), itoa(r.Frequency), lemmas})
	}
	return t
}

// VariableTable formats MostVariableVerbs results.
func VariableTable(rows []VariableVerb) Table {
	t := Table{Header: []string{"LEMMA", "DISTINCT", "FREQUENCY", "PATTERNS"}}
	for _, r := range rows {
		patterns := make([]string, len(r.Patterns))
		for i, p := range r.Patterns {
			patterns[i] = string(p)
		}
		t.Rows = append(t.Rows, []string{r.Lemma, strconv.Itoa(r.Distinct), itoa(r.Frequency), strings.Join(patterns, " ")})
	}
	return t
}

// ChangeTable formats change records.
func ChangeTable(rows []diachron.ChangeRecord) Table {
	t := Table{Header: []string{"LEMMA", "FROM", "TO", "OLD", "NEW", "CHANGE", "OLD_FREQ", "NEW_FREQ"}}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			r.Lemma, r.OldPeriod, r.NewPeriod, string(r.OldPattern), string(r.NewPattern),
			r.ChangeType, itoa(r.OldFrequency), itoa(r.NewFrequency),
		})
	}
	return t
}

// AlternationTable formats alternations, one voice per column cell.
func AlternationTable(rows []diachron.Alternation) Table {
	t := Table{Header: []string{"LEMMA", "VOICES", "PATTERNS"}}
	for _, r := range rows {
		voices := append([]string(nil), r.Voices...)
		sort.Strings(voices)
		cells := make([]string, len(voices))
		for i, v := range voices {
			cells[i] = fmt.Sprintf("%s=%s(%d)", v, r.PatternByVoice[v], r.FrequencyByVoice[v])
		}
		t.Rows = append(t.Rows, []string{r.Lemma, strings.Join(voices, ","), strings.Join(cells, " ")})
	}
	return t
}

// SummaryTable formats a Summary together with change statistics, if any.
func SummaryTable(s Summary, stats *diachron.DetectStats) Table {
	t := Table{Rows: [][]string{
		{"unique verbs", strconv.Itoa(s.UniqueVerbs)},
		{"unique patterns", strconv.Itoa(s.UniquePatterns)},
		{"frames", strconv.Itoa(s.Frames)},
		{"total instances", itoa(s.TotalInstances)},
		{"periods", strings.Join(s.Periods, ", ")},
	}}
	if stats != nil {
		t.Rows = append(t.Rows,
			[]string{"compared", strconv.Itoa(stats.Compared)},
			[]string{"changed", strconv.Itoa(stats.Changed)},
			[]string{"unchanged", strconv.Itoa(stats.Unchanged)},
			[]string{"insufficient evidence", strconv.Itoa(stats.Insufficient)},
		)
	}
	return t
}
