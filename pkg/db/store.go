package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/nlavidas/diachronic-valency/pkg/aggregate"
)

// DBExecutor is an interface that allows methods to accept either *sql.DB or *sql.Tx
type DBExecutor interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// UpsertFrame adds increment to the frequency of a frame, creating it if
// needed, and returns its id.
func UpsertFrame(db DBExecutor, lemma, voice, pattern, period string, increment int64) (int64, error) {
	if strings.TrimSpace(lemma) == "" {
		return 0, fmt.Errorf("lemma must be non-empty")
	}
	if increment < 1 {
		return 0, fmt.Errorf("increment must be positive, got %d", increment)
	}
	var id int64
	err := db.QueryRow(`INSERT INTO valency_frames (lemma, voice, pattern, period, frequency)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(lemma, voice, pattern, period) DO UPDATE SET
	  frequency = valency_frames.frequency + excluded.frequency,
	  updated_at = CURRENT_TIMESTAMP
	RETURNING id`, lemma, voice, pattern, period, increment).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert frame: %w", err)
	}
	return id, nil
}

// AddFrameExample appends an example to a frame and drops the oldest ones
// beyond keep.
func AddFrameExample(db DBExecutor, frameID int64, example, sentenceID string, keep int) error {
	if frameID <= 0 {
		return fmt.Errorf("frameID must be positive")
	}
	if keep <= 0 || strings.TrimSpace(example) == "" {
		return nil
	}
	if _, err := db.Exec(`INSERT INTO frame_examples (frame_id, example, sentence_id) VALUES (?, ?, ?)`,
		frameID, example, nullableString(sentenceID)); err != nil {
		return fmt.Errorf("insert example: %w", err)
	}
	_, err := db.Exec(`DELETE FROM frame_examples
	WHERE frame_id = ? AND id NOT IN (
	  SELECT id FROM frame_examples WHERE frame_id = ? ORDER BY id DESC LIMIT ?
	)`, frameID, frameID, keep)
	if err != nil {
		return fmt.Errorf("trim examples: %w", err)
	}
	return nil
}

// nullableString returns nil for "" else the value.
func nullableString(v string) interface{} {
	if v == "" {
		return nil
	}
	return v
}

// GetFramesByLemma returns the frames of lemma with their examples.
func GetFramesByLemma(db DBExecutor, lemma string) ([]FrameRow, error) {
	rows, err := db.Query(`SELECT id, lemma, voice, pattern, period, frequency FROM valency_frames
	WHERE lemma = ? ORDER BY period, voice, pattern`, lemma)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []FrameRow
	for rows.Next() {
		var f FrameRow
		if err := rows.Scan(&f.ID, &f.Lemma, &f.Voice, &f.Pattern, &f.Period, &f.Frequency); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		ex, err := getFrameExamples(db, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Examples = ex
	}
	return out, nil
}

func getFrameExamples(db DBExecutor, frameID int64) ([]string, error) {
	rows, err := db.Query(`SELECT example FROM frame_examples WHERE frame_id = ? ORDER BY id`, frameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var ex string
		if err := rows.Scan(&ex); err != nil {
			return nil, err
		}
		out = append(out, ex)
	}
	return out, rows.Err()
}

// InsertChange stores a change record. Records are never rewritten: when
// the same change (lemma, periods and patterns) is already stored, the
// existing row is kept and inserted is false.
func InsertChange(db DBExecutor, c ChangeRow) (inserted bool, err error) {
	if strings.TrimSpace(c.Lemma) == "" {
		return false, fmt.Errorf("lemma must be non-empty")
	}
	res, err := db.Exec(`INSERT INTO change_records
	  (lemma, old_period, new_period, old_pattern, new_pattern, change_type, old_frequency, new_frequency)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(lemma, old_period, new_period, old_pattern, new_pattern) DO NOTHING`,
		c.Lemma, c.OldPeriod, c.NewPeriod, c.OldPattern, c.NewPattern, c.ChangeType, c.OldFrequency, c.NewFrequency)
	if err != nil {
		return false, fmt.Errorf("insert change %s: %w", c.Lemma, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListChanges returns stored change records ordered by lemma and periods.
// An empty lemma returns all of them.
func ListChanges(db DBExecutor, lemma string) ([]ChangeRow, error) {
	q := `SELECT id, lemma, old_period, new_period, old_pattern, new_pattern, change_type,
	  old_frequency, new_frequency, detected_at FROM change_records`
	var args []interface{}
	if lemma != "" {
		q += ` WHERE lemma = ?`
		args = append(args, lemma)
	}
	q += ` ORDER BY lemma, old_period, new_period`
	rows, err := db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ChangeRow
	for rows.Next() {
		var c ChangeRow
		var detected sql.NullTime
		if err := rows.Scan(&c.ID, &c.Lemma, &c.OldPeriod, &c.NewPeriod, &c.OldPattern, &c.NewPattern,
			&c.ChangeType, &c.OldFrequency, &c.NewFrequency, &detected); err != nil {
			return nil, err
		}
		if detected.Valid {
			c.DetectedAt = detected.Time
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetTextProgress returns the last processed sentence index for a text, or
// -1 if the text has not been started.
func GetTextProgress(db DBExecutor, textID string) (int, error) {
	var index int
	err := db.QueryRow("SELECT last_processed_sentence FROM text_progress WHERE text_id = ?", textID).Scan(&index)
	if err == sql.ErrNoRows {
		return -1, nil
	}
	if err != nil {
		return 0, err
	}
	return index, nil
}

// UpdateTextProgress records the last processed sentence index.
func UpdateTextProgress(db DBExecutor, textID string, index int) error {
	_, err := db.Exec(`INSERT INTO text_progress (text_id, last_processed_sentence) VALUES (?, ?)
	ON CONFLICT(text_id) DO UPDATE SET
	  last_processed_sentence = excluded.last_processed_sentence,
	  updated_at = CURRENT_TIMESTAMP`, textID, index)
	return err
}

// StartRun records the beginning of an ingestion run.
func StartRun(db DBExecutor, id, table string, startedAt time.Time) error {
	if id == "" {
		return fmt.Errorf("run id must be non-empty")
	}
	_, err := db.Exec(`INSERT INTO ingest_runs (id, morphology_table, started_at) VALUES (?, ?, ?)`, id, table, startedAt)
	return err
}

// FinishRun stores the final counters of a run.
func FinishRun(db DBExecutor, r IngestRun) error {
	res, err := db.Exec(`UPDATE ingest_runs SET finished_at = ?, texts = ?, sentences = ?, skipped_sentences = ?,
	  verb_occurrences = ?, noise = ?, failed_texts = ? WHERE id = ?`,
		r.FinishedAt, r.Texts, r.Sentences, r.SkippedSentences, r.VerbOccurrences, r.Noise, r.FailedTexts, r.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run %s not found", r.ID)
	}
	return nil
}

// GetRun loads a run by id.
func GetRun(db DBExecutor, id string) (IngestRun, error) {
	var r IngestRun
	var finished sql.NullTime
	err := db.QueryRow(`SELECT id, morphology_table, started_at, finished_at, texts, sentences, skipped_sentences,
	  verb_occurrences, noise, failed_texts FROM ingest_runs WHERE id = ?`, id).Scan(
		&r.ID, &r.MorphologyTable, &r.StartedAt, &finished, &r.Texts, &r.Sentences, &r.SkippedSentences,
		&r.VerbOccurrences, &r.Noise, &r.FailedTexts)
	if err != nil {
		return IngestRun{}, err
	}
	if finished.Valid {
		r.FinishedAt = finished.Time
	}
	return r, nil
}

// Store bundles the connection for callers that work with contexts.
type Store struct {
	DB *sql.DB
}

// NewStore wraps conn.
func NewStore(conn *sql.DB) *Store {
	return &Store{DB: conn}
}

// LoadFrames streams every persisted frame, with its examples, to fn.
func (s *Store) LoadFrames(ctx context.Context, fn func(aggregate.Frame) error) error {
	examples := make(map[int64][]string)
	exRows, err := s.DB.QueryContext(ctx, `SELECT frame_id, example FROM frame_examples ORDER BY frame_id, id`)
	if err != nil {
		return fmt.Errorf("query examples: %w", err)
	}
	for exRows.Next() {
		var id int64
		var ex string
		if err := exRows.Scan(&id, &ex); err != nil {
			exRows.Close()
			return err
		}
		examples[id] = append(examples[id], ex)
	}
	exRows.Close()
	if err := exRows.Err(); err != nil {
		return err
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT id, lemma, voice, pattern, period, frequency FROM valency_frames ORDER BY id`)
	if err != nil {
		return fmt.Errorf("query frames: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		var f aggregate.Frame
		if err := rows.Scan(&id, &f.Lemma, &f.Voice, &f.Pattern, &f.Period, &f.Frequency); err != nil {
			return err
		}
		f.Examples = examples[id]
		if err := fn(f); err != nil {
			return err
		}
	}
	return rows.Err()
}

// SaveChanges stores records in one transaction and returns how many were
// new. Records already stored are left untouched.
func (s *Store) SaveChanges(ctx context.Context, records []ChangeRow) (int, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // ignored if committed
	}()
	added := 0
	for _, c := range records {
		inserted, err := InsertChange(tx, c)
		if err != nil {
			return 0, err
		}
		if inserted {
			added++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return added, nil
}
