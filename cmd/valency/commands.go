package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nlavidas/diachronic-valency/pkg/config"
	"github.com/nlavidas/diachronic-valency/pkg/db"
	"github.com/nlavidas/diachronic-valency/pkg/diachron"
	"github.com/nlavidas/diachronic-valency/pkg/ingest"
	"github.com/nlavidas/diachronic-valency/pkg/lexicon"
	"github.com/nlavidas/diachronic-valency/pkg/morph"
	"github.com/nlavidas/diachronic-valency/pkg/report"
	"github.com/nlavidas/diachronic-valency/pkg/treebank"
	"github.com/nlavidas/diachronic-valency/pkg/valency"
)

func (a *app) ingest(ctx context.Context, args []string) error {
	fs := a.flags("ingest")
	tableFlag := fs.String("table", "", "Morphology table ("+strings.Join(morph.TableNames(), ", ")+"); default from config")
	periodFlag := fs.String("period", "", "Period for sentences that carry neither a period nor a year")
	lexiconFlag := fs.String("lexicon", a.cfg.Lexicon.Path, "Path to a JSON lemma lexicon")
	columnFlag := fs.String("column", a.cfg.Morphology.Column, "CoNLL-U column holding the morphology code (xpos or feats)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("ingest: no CoNLL-U files given")
	}

	table, err := a.cfg.MorphologyTable()
	if *tableFlag != "" {
		table, err = morph.LookupTable(*tableFlag)
	}
	if err != nil {
		return err
	}
	column, err := treebank.ParseMorphologyColumn(*columnFlag)
	if err != nil {
		return err
	}

	var lemmas valency.LemmaMapper
	if *lexiconFlag != "" {
		lx, err := lexicon.Load(*lexiconFlag)
		if err != nil {
			return err
		}
		a.logger.Info("lexicon loaded", zap.String("path", *lexiconFlag), zap.Int("entries", lx.Len()))
		if amb := lx.Ambiguous(); len(amb) > 0 {
			a.logger.Warn("lexicon keys shared by several lemmas are matched exactly only",
				zap.Int("keys", len(amb)), zap.Strings("sample", amb[:min(len(amb), 10)]))
		}
		lemmas = lx
	}

	chron, err := a.cfg.Chronology()
	if err != nil {
		return err
	}

	texts, err := readTexts(fs.Args(), *periodFlag, column)
	if err != nil {
		return err
	}

	ig := ingest.NewIngester(a.conn, a.newAggregator(), valency.NewExtractor(morph.NewDecoder(table), lemmas),
		ingest.WithLogger(a.logger),
		ingest.WithWorkers(a.cfg.Ingest.Workers),
		ingest.WithBatchSize(a.cfg.Ingest.BatchSize),
		ingest.WithFlushInterval(a.cfg.Ingest.FlushInterval),
		ingest.WithTextConcurrency(a.cfg.Ingest.TextConcurrency),
		ingest.WithExampleCapacity(a.cfg.Aggregator.ExampleCapacity),
		ingest.WithPeriods(chron),
	)
	sum, err := ig.IngestAll(ctx, texts)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	t := report.Table{Rows: [][]string{
		{"run", sum.RunID},
		{"morphology table", sum.MorphologyTable},
		{"texts", strconv.Itoa(sum.Texts)},
		{"sentences", strconv.Itoa(sum.Sentences)},
		{"resumed sentences", strconv.Itoa(sum.Resumed)},
		{"skipped sentences", strconv.Itoa(sum.SkippedSentences)},
		{"verb occurrences", strconv.Itoa(sum.VerbOccurrences)},
		{"annotation noise", strconv.FormatInt(sum.Noise, 10)},
		{"decoder anomalies", strconv.FormatInt(sum.Decoder.Anomalies(), 10)},
		{"failed texts", strconv.Itoa(len(sum.FailedTexts))},
	}}
	for _, f := range sum.FailedTexts {
		t.Rows = append(t.Rows, []string{"  " + f.TextID, f.Err.Error()})
	}
	return report.WriteTable(a.stdout, t)
}

func (a *app) top(ctx context.Context, args []string) error {
	fs := a.flags("top")
	n := fs.Int("n", 10, "Number of patterns")
	lemma := fs.String("lemma", "", "Restrict to one lemma")
	jsonOut := fs.Bool("json", false, "Write JSON lines")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	r, err := a.reporter(ctx)
	if err != nil {
		return err
	}
	rows := r.TopPatterns(*n, *lemma)
	if *jsonOut {
		return report.WriteJSON(a.stdout, rows)
	}
	return report.WriteTable(a.stdout, report.PatternTable(rows))
}

func (a *app) variable(ctx context.Context, args []string) error {
	fs := a.flags("variable")
	n := fs.Int("n", 10, "Number of lemmas")
	jsonOut := fs.Bool("json", false, "Write JSON lines")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	r, err := a.reporter(ctx)
	if err != nil {
		return err
	}
	rows := r.MostVariableVerbs(*n)
	if *jsonOut {
		return report.WriteJSON(a.stdout, rows)
	}
	return report.WriteTable(a.stdout, report.VariableTable(rows))
}

func (a *app) changes(ctx context.Context, args []string) error {
	fs := a.flags("changes")
	from := fs.String("from", "", "Older period")
	to := fs.String("to", "", "Newer period")
	minFreq := fs.Int("min", a.cfg.Analysis.MinFrequency, "Minimum frequency of a dominant pattern")
	jsonOut := fs.Bool("json", false, "Write JSON lines")
	save := fs.Bool("save", false, "Store the records in the database")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *from == "" || *to == "" {
		return fmt.Errorf("changes: -from and -to are required")
	}
	r, err := a.reporter(ctx)
	if err != nil {
		return err
	}
	records, stats, err := r.Changes(ctx, *from, *to, int64(*minFreq))
	if err != nil {
		return err
	}
	return a.writeChanges(ctx, records, stats, *jsonOut, *save)
}

func (a *app) timeline(ctx context.Context, args []string) error {
	fs := a.flags("timeline")
	periodsFlag := fs.String("periods", "", "Comma-separated periods in order (default: recorded periods in configured order)")
	minFreq := fs.Int("min", a.cfg.Analysis.MinFrequency, "Minimum frequency of a dominant pattern")
	jsonOut := fs.Bool("json", false, "Write JSON lines")
	save := fs.Bool("save", false, "Store the records in the database")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	r, err := a.reporter(ctx)
	if err != nil {
		return err
	}
	var periods []string
	if *periodsFlag != "" {
		for _, p := range strings.Split(*periodsFlag, ",") {
			if p = strings.TrimSpace(p); p != "" {
				periods = append(periods, p)
			}
		}
	} else {
		chron, err := a.cfg.Chronology()
		if err != nil {
			return err
		}
		periods = knownPeriods(chron, r.Periods())
	}
	a.logger.Debug("timeline", zap.Strings("periods", periods))

	records, stats, err := r.Timeline(ctx, periods, int64(*minFreq))
	if err != nil {
		return err
	}
	return a.writeChanges(ctx, records, stats, *jsonOut, *save)
}

// knownPeriods orders recorded periods by the chronology and drops the ones
// it cannot place.
func knownPeriods(chron *config.Chronology, recorded []string) []string {
	var out []string
	for _, p := range chron.Order(recorded) {
		if _, ok := chron.Lookup(p); ok {
			out = append(out, p)
		}
	}
	return out
}

func (a *app) writeChanges(ctx context.Context, records []diachron.ChangeRecord, stats diachron.DetectStats, jsonOut, save bool) error {
	if save {
		now := time.Now().UTC()
		rows := make([]db.ChangeRow, len(records))
		for i, rec := range records {
			rows[i] = db.ChangeRow{
				Lemma:        rec.Lemma,
				OldPeriod:    rec.OldPeriod,
				NewPeriod:    rec.NewPeriod,
				OldPattern:   string(rec.OldPattern),
				NewPattern:   string(rec.NewPattern),
				ChangeType:   rec.ChangeType,
				OldFrequency: rec.OldFrequency,
				NewFrequency: rec.NewFrequency,
				DetectedAt:   now,
			}
		}
		added, err := db.NewStore(a.conn).SaveChanges(ctx, rows)
		if err != nil {
			return err
		}
		a.logger.Info("change records saved", zap.Int("records", len(rows)), zap.Int("new", added))
	}
	a.logger.Info("change detection finished",
		zap.Int("compared", stats.Compared),
		zap.Int("changed", stats.Changed),
		zap.Int("unchanged", stats.Unchanged),
		zap.Int("insufficient", stats.Insufficient))

	if jsonOut {
		return report.WriteJSON(a.stdout, records)
	}
	if err := report.WriteTable(a.stdout, report.ChangeTable(records)); err != nil {
		return err
	}
	_, err := fmt.Fprintf(a.stdout, "\ncompared %d, changed %d, unchanged %d, insufficient evidence %d\n",
		stats.Compared, stats.Changed, stats.Unchanged, stats.Insufficient)
	return err
}

func (a *app) alternations(ctx context.Context, args []string) error {
	fs := a.flags("alternations")
	minFreq := fs.Int("min", a.cfg.Analysis.MinFrequency, "Minimum frequency per voice")
	period := fs.String("period", "", "Restrict to one period")
	jsonOut := fs.Bool("json", false, "Write JSON lines")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	r, err := a.reporter(ctx)
	if err != nil {
		return err
	}
	rows := r.Alternations(int64(*minFreq))
	if *period != "" {
		rows = r.AlternationsIn(*period, int64(*minFreq))
	}
	if *jsonOut {
		return report.WriteJSON(a.stdout, rows)
	}
	return report.WriteTable(a.stdout, report.AlternationTable(rows))
}

func (a *app) summary(ctx context.Context, args []string) error {
	fs := a.flags("summary")
	runID := fs.String("run", "", "Show the counters of one ingestion run instead")
	jsonOut := fs.Bool("json", false, "Write JSON lines")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *runID != "" {
		return a.runSummary(*runID, *jsonOut)
	}
	r, err := a.reporter(ctx)
	if err != nil {
		return err
	}
	s := r.Summary()
	if *jsonOut {
		return report.WriteJSON(a.stdout, []report.Summary{s})
	}
	return report.WriteTable(a.stdout, report.SummaryTable(s, nil))
}

func (a *app) runSummary(id string, jsonOut bool) error {
	run, err := db.GetRun(a.conn, id)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("summary: no ingestion run %q", id)
	}
	if err != nil {
		return err
	}
	if jsonOut {
		return report.WriteJSON(a.stdout, []db.IngestRun{run})
	}
	finished := "unfinished"
	if !run.FinishedAt.IsZero() {
		finished = run.FinishedAt.Format(time.RFC3339)
	}
	return report.WriteTable(a.stdout, report.Table{Rows: [][]string{
		{"run", run.ID},
		{"morphology table", run.MorphologyTable},
		{"started", run.StartedAt.Format(time.RFC3339)},
		{"finished", finished},
		{"texts", strconv.Itoa(run.Texts)},
		{"sentences", strconv.Itoa(run.Sentences)},
		{"skipped sentences", strconv.Itoa(run.SkippedSentences)},
		{"verb occurrences", strconv.Itoa(run.VerbOccurrences)},
		{"annotation noise", strconv.FormatInt(run.Noise, 10)},
		{"failed texts", strconv.Itoa(run.FailedTexts)},
	}})
}

// examples lists the stored frames of one lemma with their kept examples.
func (a *app) examples(ctx context.Context, args []string) error {
	fs := a.flags("examples")
	lemma := fs.String("lemma", "", "Lemma to show")
	jsonOut := fs.Bool("json", false, "Write JSON lines")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *lemma == "" {
		return fmt.Errorf("examples: -lemma is required")
	}
	frames, err := db.GetFramesByLemma(a.conn, *lemma)
	if err != nil {
		return err
	}
	if *jsonOut {
		return report.WriteJSON(a.stdout, frames)
	}
	t := report.Table{Header: []string{"PERIOD", "VOICE", "PATTERN", "FREQUENCY", "EXAMPLE"}}
	for _, f := range frames {
		first := []string{f.Period, f.Voice, f.Pattern, strconv.FormatInt(f.Frequency, 10), ""}
		if len(f.Examples) > 0 {
			first[4] = f.Examples[len(f.Examples)-1]
		}
		t.Rows = append(t.Rows, first)
		for i := len(f.Examples) - 2; i >= 0; i-- {
			t.Rows = append(t.Rows, []string{"", "", "", "", f.Examples[i]})
		}
	}
	return report.WriteTable(a.stdout, t)
}
