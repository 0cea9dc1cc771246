package db

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3" // SQLite driver registration

	"spatiotemporal/models"
	"spatiotemporal/utils"
)

type SQLiteClient struct {
	db *sql.DB
}

func NewSQLiteClient(dataSourceName string) (*SQLiteClient, error) {
	// Extract the file path before query parameters
	dbPath := dataSourceName
	if idx := strings.Index(dataSourceName, "?"); idx != -1 {
		dbPath = dataSourceName[:idx]
	}

	dbDir := filepath.Dir(dbPath)
	if dbDir != "." && dbDir != "" {
		if err := utils.CreateFolder(dbDir); err != nil {
			return nil, fmt.Errorf("error creating database directory: %s", err)
		}
	}

	// Workers record results concurrently; wait on the lock instead of failing.
	if !strings.Contains(dataSourceName, "_busy_timeout") {
		if strings.Contains(dataSourceName, "?") {
			dataSourceName += "&_busy_timeout=5000"
		} else {
			dataSourceName += "?_busy_timeout=5000"
		}
	}

	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("error connecting to SQLite: %s", err)
	}
	db.SetMaxOpenConns(1)

	err = createTables(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("error creating tables: %s", err)
	}

	return &SQLiteClient{db: db}, nil
}

// createTables creates the required tables if they don't exist
func createTables(db *sql.DB) error {
	createRunsTable := `
    CREATE TABLE IF NOT EXISTS runs (
        id INTEGER PRIMARY KEY,
        input_root TEXT NOT NULL,
        output_root TEXT NOT NULL,
        config TEXT NOT NULL,
        started_at DATETIME NOT NULL,
        finished_at DATETIME,
        processed INTEGER NOT NULL DEFAULT 0,
        failed INTEGER NOT NULL DEFAULT 0
    );
    `

	createResultsTable := `
    CREATE TABLE IF NOT EXISTS file_results (
        run_id INTEGER NOT NULL,
        input_path TEXT NOT NULL,
        output_path TEXT,
        combined_path TEXT,
        split TEXT NOT NULL,
        class TEXT NOT NULL,
        duration REAL NOT NULL DEFAULT 0,
        width INTEGER NOT NULL DEFAULT 0,
        height INTEGER NOT NULL DEFAULT 0,
        events INTEGER NOT NULL DEFAULT 0,
        raster_events INTEGER NOT NULL DEFAULT 0,
        plotted INTEGER NOT NULL DEFAULT 0,
        status TEXT NOT NULL,
        error_kind TEXT,
        error TEXT,
        output_sha256 TEXT,
        latency_ms REAL NOT NULL DEFAULT 0,
        timestamp DATETIME NOT NULL,
        PRIMARY KEY (run_id, input_path)
    );
    CREATE INDEX IF NOT EXISTS idx_file_results_status ON file_results(run_id, status);
    `

	_, err := db.Exec(createRunsTable)
	if err != nil {
		return fmt.Errorf("error creating runs table: %s", err)
	}

	_, err = db.Exec(createResultsTable)
	if err != nil {
		return fmt.Errorf("error creating file_results table: %s", err)
	}

	return nil
}

func (db *SQLiteClient) Close() error {
	if db.db != nil {
		return db.db.Close()
	}
	return nil
}

// StartRun inserts a run row; run.ID must be set by the caller.
func (db *SQLiteClient) StartRun(ctx context.Context, run models.Run) error {
	_, err := db.db.ExecContext(ctx, `
		INSERT INTO runs (id, input_root, output_root, config, started_at)
		VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.InputRoot, run.OutputRoot, run.Config, run.StartedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("error storing run: %s", err)
	}
	return nil
}

// FinishRun records the end time and counters of a run.
func (db *SQLiteClient) FinishRun(ctx context.Context, run models.Run) error {
	res, err := db.db.ExecContext(ctx, `
		UPDATE runs SET finished_at = ?, processed = ?, failed = ? WHERE id = ?`,
		run.FinishedAt.UTC(), run.Processed, run.Failed, run.ID,
	)
	if err != nil {
		return fmt.Errorf("error finishing run: %s", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %d not found", run.ID)
	}
	return nil
}

// SaveResult upserts the outcome of one file.
func (db *SQLiteClient) SaveResult(ctx context.Context, r models.FileResult) error {
	_, err := db.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO file_results (
			run_id, input_path, output_path, combined_path, split, class,
			duration, width, height, events, raster_events, plotted,
			status, error_kind, error, output_sha256, latency_ms, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.InputPath, r.OutputPath, r.CombinedPath, r.Split, r.Class,
		r.Duration, r.Width, r.Height, r.Events, r.RasterEvents, r.Plotted,
		r.Status, r.ErrorKind, r.Error, r.OutputSHA256, r.LatencyMs, r.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("error storing file result: %s", err)
	}
	return nil
}

const runColumns = `id, input_root, output_root, config, started_at, finished_at, processed, failed`

func scanRun(scan func(dest ...any) error) (models.Run, error) {
	var run models.Run
	var finished sql.NullTime
	err := scan(&run.ID, &run.InputRoot, &run.OutputRoot, &run.Config, &run.StartedAt, &finished, &run.Processed, &run.Failed)
	if finished.Valid {
		run.FinishedAt = finished.Time
	}
	return run, err
}

// GetRun retrieves a run by ID.
func (db *SQLiteClient) GetRun(ctx context.Context, id int64) (models.Run, bool, error) {
	row := db.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", id)
	run, err := scanRun(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.Run{}, false, nil
		}
		return models.Run{}, false, fmt.Errorf("failed to retrieve run: %s", err)
	}
	return run, true, nil
}

// ListRuns returns every run, newest first.
func (db *SQLiteClient) ListRuns(ctx context.Context) ([]models.Run, error) {
	rows, err := db.db.QueryContext(ctx, "SELECT "+runColumns+" FROM runs ORDER BY started_at DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("error querying runs: %s", err)
	}
	defer rows.Close()

	var runs []models.Run
	for rows.Next() {
		run, err := scanRun(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("error scanning run: %s", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetResults returns the file results of a run ordered by input path.
func (db *SQLiteClient) GetResults(ctx context.Context, runID int64) ([]models.FileResult, error) {
	rows, err := db.db.QueryContext(ctx, `
		SELECT run_id, input_path, output_path, combined_path, split, class,
		       duration, width, height, events, raster_events, plotted,
		       status, error_kind, error, output_sha256, latency_ms, timestamp
		FROM file_results
		WHERE run_id = ?
		ORDER BY input_path`, runID)
	if err != nil {
		return nil, fmt.Errorf("error querying file results: %s", err)
	}
	defer rows.Close()

	var results []models.FileResult
	for rows.Next() {
		var r models.FileResult
		var outputPath, combinedPath, errorKind, errMsg, sha sql.NullString
		err := rows.Scan(
			&r.RunID, &r.InputPath, &outputPath, &combinedPath, &r.Split, &r.Class,
			&r.Duration, &r.Width, &r.Height, &r.Events, &r.RasterEvents, &r.Plotted,
			&r.Status, &errorKind, &errMsg, &sha, &r.LatencyMs, &r.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning file result: %s", err)
		}
		r.OutputPath = outputPath.String
		r.CombinedPath = combinedPath.String
		r.ErrorKind = errorKind.String
		r.Error = errMsg.String
		r.OutputSHA256 = sha.String
		results = append(results, r)
	}

	return results, rows.Err()
}
