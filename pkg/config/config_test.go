package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nlavidas/diachronic-valency/pkg/treebank"
)

func writeYAML(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "valency.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	return path
}

const validYAML = `
database:
  path: "/tmp/frames.db"

ingest:
  workers: 8
  batch_size: 200
  flush_interval: "250ms"

aggregator:
  example_capacity: 3

morphology:
  table: "agdt-v1"
  column: "feats"

analysis:
  min_frequency: 3
  periods:
    - {name: classical, start: -479, end: -323}
    - {name: koine, start: -322, end: 300}

log:
  level: "debug"
`

func TestLoad_ValidYAML(t *testing.T) {
	path := writeYAML(t, t.TempDir(), validYAML)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/frames.db", cfg.Database.Path)
	assert.Equal(t, 8, cfg.Ingest.Workers)
	assert.Equal(t, 200, cfg.Ingest.BatchSize)
	assert.Equal(t, 250*time.Millisecond, cfg.Ingest.FlushInterval)
	assert.Equal(t, 2, cfg.Ingest.TextConcurrency)
	assert.Equal(t, 32, cfg.Aggregator.Shards)
	assert.Equal(t, 3, cfg.Aggregator.ExampleCapacity)
	assert.Equal(t, 3, cfg.Analysis.MinFrequency)
	assert.Equal(t, "debug", cfg.Log.Level)

	table, err := cfg.MorphologyTable()
	require.NoError(t, err)
	assert.Equal(t, "agdt-v1", table.Name)

	col, err := cfg.MorphologyColumn()
	require.NoError(t, err)
	assert.Equal(t, treebank.ColumnFeats, col)

	chron, err := cfg.Chronology()
	require.NoError(t, err)
	assert.Equal(t, []string{"classical", "koine"}, chron.Names())
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	path := writeYAML(t, t.TempDir(), validYAML)
	t.Setenv("VALENCY_WORKERS", "2")
	t.Setenv("VALENCY_MIN_FREQUENCY", "7")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Ingest.Workers)
	assert.Equal(t, 7, cfg.Analysis.MinFrequency)
}

func TestLoad_ConfigPathEnv(t *testing.T) {
	path := writeYAML(t, t.TempDir(), validYAML)
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/frames.db", cfg.Database.Path)
}

func TestLoad_EnvOnlyWhenNoFile(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("VALENCY_DB_PATH", "env.db")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "env.db", cfg.Database.Path)
	assert.Equal(t, 4, cfg.Ingest.Workers)
	assert.Equal(t, 100*time.Millisecond, cfg.Ingest.FlushInterval)
	assert.Equal(t, "canonical-v1", cfg.Morphology.Table)
	assert.Equal(t, "xpos", cfg.Morphology.Column)
	assert.Equal(t, 5, cfg.Analysis.MinFrequency)
	assert.Equal(t, DefaultPeriods, cfg.Analysis.Periods)
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name, yaml string
	}{
		{"negative min frequency", "analysis:\n  min_frequency: -1\n"},
		{"unknown table", "morphology:\n  table: \"nope\"\n"},
		{"unknown column", "morphology:\n  column: \"misc\"\n"},
		{"reversed period", "analysis:\n  periods:\n    - {name: a, start: 10, end: 0}\n"},
		{"bad custom table", "morphology:\n  custom:\n    name: mine\n    verb: {person: 1, number: 1, tense: 2, mood: 3, voice: 4}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeYAML(t, t.TempDir(), tt.yaml)
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestCustomMorphologyTable(t *testing.T) {
	yml := `
morphology:
  custom:
    name: "local-v2"
    verb: {person: 0, number: 1, tense: 2, mood: 3, voice: 4}
    nominal: {person: -1, number: 0, gender: 1, case: 2, degree: -1}
`
	cfg, err := Load(writeYAML(t, t.TempDir(), yml))
	require.NoError(t, err)
	table, err := cfg.MorphologyTable()
	require.NoError(t, err)
	assert.Equal(t, "local-v2", table.Name)
	assert.Equal(t, 2, table.Nominal.Case)
	assert.Equal(t, -1, table.Nominal.Person)
}

func TestSaveRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Database.Path = "saved.db"
	cfg.Analysis.MinFrequency = 9

	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Database, loaded.Database)
	assert.Equal(t, cfg.Analysis, loaded.Analysis)
	assert.Equal(t, cfg.Ingest, loaded.Ingest)
}

func TestChronology(t *testing.T) {
	chron, err := NewChronology(DefaultPeriods)
	require.NoError(t, err)

	assert.Equal(t, "classical", chron.PeriodFor(-400))
	assert.Equal(t, "koine", chron.PeriodFor(50))
	assert.Equal(t, "", chron.PeriodFor(-2000))

	p, ok := chron.Lookup("hellenistic")
	require.True(t, ok)
	assert.True(t, p.Contains(-100))

	got := chron.Order([]string{"koine", "unknown", "archaic", "koine", "classical"})
	assert.Equal(t, []string{"archaic", "classical", "koine", "unknown"}, got)
}

func TestChronologyOverlapGoesToEarlierPeriod(t *testing.T) {
	chron, err := NewChronology([]Period{
		{Name: "ancient", Start: -800, End: 600},
		{Name: "classical", Start: -100, End: 200},
	})
	require.NoError(t, err)
	assert.Equal(t, "ancient", chron.PeriodFor(0))
}

func TestChronologyRejects(t *testing.T) {
	_, err := NewChronology([]Period{{Name: "", Start: 0, End: 1}})
	assert.Error(t, err)
	_, err = NewChronology([]Period{{Name: "a", Start: 0, End: 1}, {Name: "a", Start: 2, End: 3}})
	assert.Error(t, err)
	_, err = NewChronology([]Period{{Name: "a", Start: 10, End: 20}, {Name: "b", Start: 0, End: 5}})
	assert.Error(t, err)
}

// chdir changes the working directory for the duration of the test,
// restoring it on cleanup (equivalent of testing.T.Chdir, Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
