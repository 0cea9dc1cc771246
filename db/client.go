package db

import (
	"context"
	"fmt"

	"spatiotemporal/models"
	"spatiotemporal/utils"
)

// Client stores batch runs and their per-file results.
type Client interface {
	StartRun(ctx context.Context, run models.Run) error
	FinishRun(ctx context.Context, run models.Run) error
	SaveResult(ctx context.Context, result models.FileResult) error
	GetRun(ctx context.Context, id int64) (models.Run, bool, error)
	ListRuns(ctx context.Context) ([]models.Run, error)
	GetResults(ctx context.Context, runID int64) ([]models.FileResult, error)
	Close() error
}

// NewClient picks the manifest backend from DB_TYPE (sqlite, mongo, json or none).
// With none it returns a nil client and no error.
func NewClient(ctx context.Context) (Client, error) {
	dbType := utils.GetEnv("DB_TYPE", "sqlite")

	switch dbType {
	case "sqlite":
		client, err := NewSQLiteClient(utils.GetEnv("SQLITE_PATH", "db/spatiotemporal.sqlite3"))
		if err != nil {
			return nil, err
		}
		return client, nil
	case "mongo":
		client, err := NewMongoClient(ctx, utils.GetEnv("MONGO_URI", "mongodb://localhost:27017"), utils.GetEnv("MONGO_DB", "spatiotemporal"))
		if err != nil {
			return nil, err
		}
		return client, nil
	case "json":
		client, err := NewJSONClient(utils.GetEnv("JSON_MANIFEST_PATH", "db/spatiotemporal_runs.json"))
		if err != nil {
			return nil, err
		}
		return client, nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", dbType)
	}
}
