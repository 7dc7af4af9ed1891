package report

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nlavidas/diachronic-valency/pkg/aggregate"
	"github.com/nlavidas/diachronic-valency/pkg/diachron"
	"github.com/nlavidas/diachronic-valency/pkg/valency"
)

func frame(lemma, voice, pattern, period string, freq int64) aggregate.Frame {
	return aggregate.Frame{
		Key:       aggregate.Key{Lemma: lemma, Voice: voice, Pattern: pattern, Period: period},
		Frequency: freq,
	}
}

func fixture() *aggregate.Aggregator {
	agg := aggregate.New()
	for _, f := range []aggregate.Frame{
		frame("λέγω", "active", "NOM-DAT", "classical", 12),
		frame("λέγω", "active", "NOM-ACC", "koine", 9),
		frame("λέγω", "middle", "NOM", "koine", 2),
		frame("δίδωμι", "active", "NOM-ACC-DAT", "classical", 7),
		frame("δίδωμι", "active", "NOM-ACC-DAT", "koine", 6),
		frame("φέρω", "active", "NOM-ACC", "classical", 8),
		frame("φέρω", "middle", "NOM", "classical", 6),
	} {
		agg.Add(f)
	}
	return agg
}

func TestTopPatterns(t *testing.T) {
	r := New(fixture())

	all := r.TopPatterns(0, "")
	require.Len(t, all, 4)
	assert.Equal(t, PatternCount{Pattern: "NOM-ACC", Frequency: 17, Lemmas: 2}, all[0])
	assert.Equal(t, PatternCount{Pattern: "NOM-ACC-DAT", Frequency: 13, Lemmas: 1}, all[1])
	assert.Equal(t, PatternCount{Pattern: "NOM-DAT", Frequency: 12, Lemmas: 1}, all[2])
	assert.Equal(t, PatternCount{Pattern: "NOM", Frequency: 8, Lemmas: 2}, all[3])

	perLemma := r.TopPatterns(2, "λέγω")
	assert.Equal(t, []PatternCount{
		{Lemma: "λέγω", Pattern: "NOM-DAT", Frequency: 12},
		{Lemma: "λέγω", Pattern: "NOM-ACC", Frequency: 9},
	}, perLemma)

	assert.Empty(t, r.TopPatterns(5, "ἄγω"))
}

func TestMostVariableVerbs(t *testing.T) {
	got := New(fixture()).MostVariableVerbs(0)
	require.Len(t, got, 3)
	assert.Equal(t, "λέγω", got[0].Lemma)
	assert.Equal(t, 3, got[0].Distinct)
	assert.Equal(t, []valency.Pattern{"NOM", "NOM-ACC", "NOM-DAT"}, got[0].Patterns)
	assert.Equal(t, int64(23), got[0].Frequency)
	assert.Equal(t, "φέρω", got[1].Lemma)
	assert.Equal(t, "δίδωμι", got[2].Lemma)

	assert.Len(t, New(fixture()).MostVariableVerbs(1), 1)
}

func TestMostVariableVerbsTiesByLemma(t *testing.T) {
	agg := aggregate.New()
	agg.Add(frame("b", "active", "NOM", "p", 1))
	agg.Add(frame("a", "active", "NOM-ACC", "p", 1))
	got := New(agg).MostVariableVerbs(0)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Lemma)
	assert.Equal(t, "b", got[1].Lemma)
}

func TestChangesAndTimeline(t *testing.T) {
	r := New(fixture())

	changes, stats, err := r.Changes(context.Background(), "classical", "koine", 5)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, "λέγω", changes[0].Lemma)
	assert.Equal(t, "DAT_to_ACC", changes[0].ChangeType)
	assert.Equal(t, diachron.DetectStats{Compared: 3, Changed: 1, Unchanged: 1, Insufficient: 1}, stats)

	timeline, _, err := r.Timeline(context.Background(), []string{"classical", "koine"}, 5)
	require.NoError(t, err)
	assert.Equal(t, changes, timeline)
}

func TestAlternations(t *testing.T) {
	alts := New(fixture()).Alternations(5)
	require.Len(t, alts, 1)
	assert.Equal(t, "φέρω", alts[0].Lemma)
	assert.Equal(t, []string{"active", "middle"}, alts[0].Voices)
	assert.Equal(t, valency.Pattern("NOM"), alts[0].PatternByVoice["middle"])
}

func TestSummary(t *testing.T) {
	s := New(fixture()).Summary()
	assert.Equal(t, Summary{
		UniqueVerbs:    3,
		UniquePatterns: 4,
		Frames:         7,
		TotalInstances: 50,
		Periods:        []string{"classical", "koine"},
	}, s)
}

func TestReporterReadsSnapshotsDuringIngestion(t *testing.T) {
	agg := fixture()
	r := New(agg)
	before := r.Summary()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			agg.Record("ἄγω", "active", "NOM-ACC", "koine", "")
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			_ = r.TopPatterns(3, "")
			_ = r.MostVariableVerbs(3)
		}
	}()
	wg.Wait()

	assert.Equal(t, int64(50), before.TotalInstances)
	assert.Equal(t, int64(550), r.Summary().TotalInstances)
}

func TestWriteTable(t *testing.T) {
	changes, _, err := New(fixture()).Changes(context.Background(), "classical", "koine", 5)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, ChangeTable(changes)))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "LEMMA"))
	assert.Contains(t, lines[1], "DAT_to_ACC")
	assert.Equal(t, column(lines[0], "FROM"), column(lines[1], "classical"))
}

// column is the rune offset of s in line; tabwriter aligns by runes.
func column(line, s string) int {
	return utf8.RuneCountInString(line[:strings.Index(line, s)])
}

func TestOtherTables(t *testing.T) {
	r := New(fixture())

	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, AlternationTable(r.Alternations(5))))
	assert.Contains(t, buf.String(), "active=NOM-ACC(8) middle=NOM(6)")

	buf.Reset()
	require.NoError(t, WriteTable(&buf, VariableTable(r.MostVariableVerbs(1))))
	assert.Contains(t, buf.String(), "NOM NOM-ACC NOM-DAT")

	buf.Reset()
	require.NoError(t, WriteTable(&buf, PatternTable(r.TopPatterns(1, ""))))
	assert.Contains(t, buf.String(), "NOM-ACC")

	buf.Reset()
	stats := diachron.DetectStats{Compared: 3, Insufficient: 1}
	require.NoError(t, WriteTable(&buf, SummaryTable(r.Summary(), &stats)))
	assert.Contains(t, buf.String(), "insufficient evidence")
	assert.Contains(t, buf.String(), "classical, koine")
}

func TestWriteJSONLines(t *testing.T) {
	agg := aggregate.New()
	agg.Record("εἰμί", "unspecified", "INTR", "koine", "ἦν <ἀνήρ>")

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, agg.Snapshot().Frames()))
	require.NoError(t, WriteJSON(&buf, New(fixture()).Alternations(5)))

	sc := bufio.NewScanner(&buf)
	var lines []string
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"voice":"unspecified"`)
	assert.Contains(t, lines[0], `ἦν <ἀνήρ>`)

	var alt diachron.Alternation
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &alt))
	assert.Equal(t, "φέρω", alt.Lemma)
	assert.Equal(t, int64(8), alt.FrequencyByVoice["active"])
}

func TestAlternationsInPeriod(t *testing.T) {
	r := New(fixture())
	assert.Len(t, r.AlternationsIn("classical", 5), 1)
	assert.Len(t, r.AlternationsIn("koine", 1), 1)
	assert.Empty(t, r.AlternationsIn("koine", 5), "λέγω middle is below the threshold")
	assert.Equal(t, []string{"classical", "koine"}, r.Periods())
}
