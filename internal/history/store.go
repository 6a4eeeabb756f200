package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"visiontune/internal/config"
)

// ErrRunNotFound reports an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const runColumns = "id, status, started_at, finished_at, base_model, output_dir, skip_download, train_images, train_labels, valid_images, valid_labels, weights_path, export_path, error_message"

// Store manages run history backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// OpenFromConfig opens the history database inside the configured output directory.
func OpenFromConfig(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return Open(cfg.HistoryPath())
}

// Open initializes or connects to the history database and applies migrations.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path, now: time.Now}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// StartRun inserts run with status running. StartedAt defaults to now.
func (s *Store) StartRun(ctx context.Context, run Run) (*Run, error) {
	if strings.TrimSpace(run.ID) == "" {
		return nil, errors.New("run id required")
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = s.now()
	}
	run.StartedAt = run.StartedAt.UTC()
	run.Status = StatusRunning

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, status, started_at, base_model, output_dir, skip_download)
         VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.Status,
		run.StartedAt.Format(timeLayout),
		nullableString(run.BaseModel),
		run.OutputDir,
		boolToInt(run.SkipDownload),
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return &run, nil
}

// RecordDatasets replaces the dataset rows of a run.
func (s *Store) RecordDatasets(ctx context.Context, runID string, datasets []Dataset) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin dataset tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, "DELETE FROM run_datasets WHERE run_id = ?", runID); err != nil {
		return fmt.Errorf("clear datasets: %w", err)
	}
	for i, ds := range datasets {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO run_datasets (
                run_id, position, name, train_images, train_labels, valid_images, valid_labels,
                annotations_kept, annotations_dropped, skipped, skip_reason
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, i, ds.Name,
			ds.TrainImages, ds.TrainLabels, ds.ValidImages, ds.ValidLabels,
			ds.AnnotationsKept, ds.AnnotationsDropped,
			boolToInt(ds.Skipped), nullableString(ds.SkipReason),
		)
		if err != nil {
			return fmt.Errorf("insert dataset %s: %w", ds.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit datasets: %w", err)
	}
	return nil
}

// FinishRun stores the outcome of a run.
func (s *Store) FinishRun(ctx context.Context, runID string, outcome Outcome) error {
	status := outcome.Status
	if status == "" {
		status = StatusSucceeded
		if outcome.Err != nil {
			status = StatusFailed
		}
	}
	var errMsg string
	if outcome.Err != nil {
		errMsg = outcome.Err.Error()
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs
         SET status = ?, finished_at = ?, train_images = ?, train_labels = ?,
             valid_images = ?, valid_labels = ?, weights_path = ?, export_path = ?, error_message = ?
         WHERE id = ?`,
		status,
		s.now().UTC().Format(timeLayout),
		outcome.TrainImages, outcome.TrainLabels, outcome.ValidImages, outcome.ValidLabels,
		nullableString(outcome.WeightsPath),
		nullableString(outcome.ExportPath),
		nullableString(errMsg),
		runID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run %s: %w", runID, ErrRunNotFound)
	}
	return nil
}

// GetRun returns a run with its dataset rows.
func (s *Store) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get run %s: %w", runID, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	datasets, err := s.datasets(ctx, runID)
	if err != nil {
		return nil, err
	}
	run.Datasets = datasets
	return run, nil
}

// ListRuns returns the most recent runs, newest first. A limit of zero or
// less returns every run. Dataset rows are not loaded.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// MarkInterrupted fails runs left in the running state by a process that
// exited without finishing them. It returns the number of runs updated.
func (s *Store) MarkInterrupted(ctx context.Context, reason string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, finished_at = ?, error_message = ? WHERE status = ?`,
		StatusFailed,
		s.now().UTC().Format(timeLayout),
		reason,
		StatusRunning,
	)
	if err != nil {
		return 0, fmt.Errorf("mark interrupted runs: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) datasets(ctx context.Context, runID string) ([]Dataset, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, train_images, train_labels, valid_images, valid_labels,
                annotations_kept, annotations_dropped, skipped, skip_reason
         FROM run_datasets WHERE run_id = ? ORDER BY position`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	defer rows.Close()

	var out []Dataset
	for rows.Next() {
		var (
			ds      Dataset
			skipped int
			reason  sql.NullString
		)
		if err := rows.Scan(&ds.Name, &ds.TrainImages, &ds.TrainLabels, &ds.ValidImages, &ds.ValidLabels,
			&ds.AnnotationsKept, &ds.AnnotationsDropped, &skipped, &reason); err != nil {
			return nil, fmt.Errorf("scan dataset: %w", err)
		}
		ds.Skipped = skipped != 0
		ds.SkipReason = reason.String
		out = append(out, ds)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate datasets: %w", err)
	}
	return out, nil
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		run          Run
		status       string
		startedRaw   string
		finishedRaw  sql.NullString
		baseModel    sql.NullString
		skipDownload int
		weightsPath  sql.NullString
		exportPath   sql.NullString
		errorMessage sql.NullString
	)
	if err := scanner.Scan(
		&run.ID,
		&status,
		&startedRaw,
		&finishedRaw,
		&baseModel,
		&run.OutputDir,
		&skipDownload,
		&run.TrainImages,
		&run.TrainLabels,
		&run.ValidImages,
		&run.ValidLabels,
		&weightsPath,
		&exportPath,
		&errorMessage,
	); err != nil {
		return nil, err
	}
	run.Status = Status(status)
	run.StartedAt = parseTime(startedRaw)
	if finishedRaw.Valid {
		finished := parseTime(finishedRaw.String)
		run.FinishedAt = &finished
	}
	run.BaseModel = baseModel.String
	run.SkipDownload = skipDownload != 0
	run.WeightsPath = weightsPath.String
	run.ExportPath = exportPath.String
	run.ErrorMessage = errorMessage.String
	return &run, nil
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
