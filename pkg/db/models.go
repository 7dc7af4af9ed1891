package db

import "time"

// FrameRow is a persisted valency frame.
type FrameRow struct {
	ID        int64
	Lemma     string
	Voice     string
	Pattern   string
	Period    string
	Frequency int64
	Examples  []string // oldest first
}

// ChangeRow is a persisted diachronic change record.
type ChangeRow struct {
	ID           int64
	Lemma        string
	OldPeriod    string
	NewPeriod    string
	OldPattern   string
	NewPattern   string
	ChangeType   string
	OldFrequency int64
	NewFrequency int64
	DetectedAt   time.Time
}

// IngestRun summarises one ingestion run.
type IngestRun struct {
	ID               string
	MorphologyTable  string
	StartedAt        time.Time
	FinishedAt       time.Time
	Texts            int
	Sentences        int
	SkippedSentences int
	VerbOccurrences  int
	Noise            int64
	FailedTexts      int
}
