package db

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"spatiotemporal/models"
	"spatiotemporal/utils"
)

type jsonManifest struct {
	Runs    []models.Run        `json:"runs"`
	Results []models.FileResult `json:"results"`
}

// JSONClient keeps the whole manifest in one JSON file and rewrites it on
// every change. Meant for small runs and machines without sqlite.
type JSONClient struct {
	path string
	mu   sync.RWMutex
}

func NewJSONClient(path string) (*JSONClient, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := utils.CreateFolder(dir); err != nil {
			return nil, fmt.Errorf("error creating directory: %v", err)
		}
	}
	return &JSONClient{path: path}, nil
}

func (c *JSONClient) Close() error { return nil }

// load reads the manifest file; callers hold the lock.
func (c *JSONClient) load() (jsonManifest, error) {
	var m jsonManifest

	data, err := os.ReadFile(c.path)
	if os.IsNotExist(err) {
		return m, nil
	}
	if err != nil {
		return m, fmt.Errorf("error reading manifest file: %v", err)
	}
	if len(data) == 0 {
		return m, nil
	}

	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("error unmarshaling manifest: %v", err)
	}
	return m, nil
}

func (c *JSONClient) save(m jsonManifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("error marshaling manifest: %v", err)
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("error writing manifest file: %v", err)
	}
	return os.Rename(tmp, c.path)
}

func (c *JSONClient) update(fn func(m *jsonManifest) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	m, err := c.load()
	if err != nil {
		return err
	}
	if err := fn(&m); err != nil {
		return err
	}
	return c.save(m)
}

func (c *JSONClient) StartRun(_ context.Context, run models.Run) error {
	return c.update(func(m *jsonManifest) error {
		for _, r := range m.Runs {
			if r.ID == run.ID {
				return fmt.Errorf("run %d already exists", run.ID)
			}
		}
		m.Runs = append(m.Runs, run)
		return nil
	})
}

func (c *JSONClient) FinishRun(_ context.Context, run models.Run) error {
	return c.update(func(m *jsonManifest) error {
		for i := range m.Runs {
			if m.Runs[i].ID == run.ID {
				m.Runs[i].FinishedAt = run.FinishedAt
				m.Runs[i].Processed = run.Processed
				m.Runs[i].Failed = run.Failed
				return nil
			}
		}
		return fmt.Errorf("run %d not found", run.ID)
	})
}

// SaveResult replaces any earlier result for the same run and input path.
func (c *JSONClient) SaveResult(_ context.Context, result models.FileResult) error {
	return c.update(func(m *jsonManifest) error {
		for i := range m.Results {
			if m.Results[i].RunID == result.RunID && m.Results[i].InputPath == result.InputPath {
				m.Results[i] = result
				return nil
			}
		}
		m.Results = append(m.Results, result)
		return nil
	})
}

func (c *JSONClient) GetRun(_ context.Context, id int64) (models.Run, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	m, err := c.load()
	if err != nil {
		return models.Run{}, false, err
	}
	for _, r := range m.Runs {
		if r.ID == id {
			return r, true, nil
		}
	}
	return models.Run{}, false, nil
}

func (c *JSONClient) ListRuns(_ context.Context) ([]models.Run, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	m, err := c.load()
	if err != nil {
		return nil, err
	}
	runs := m.Runs
	sort.SliceStable(runs, func(a, b int) bool {
		if !runs[a].StartedAt.Equal(runs[b].StartedAt) {
			return runs[a].StartedAt.After(runs[b].StartedAt)
		}
		return runs[a].ID > runs[b].ID
	})
	return runs, nil
}

func (c *JSONClient) GetResults(_ context.Context, runID int64) ([]models.FileResult, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	m, err := c.load()
	if err != nil {
		return nil, err
	}
	var results []models.FileResult
	for _, r := range m.Results {
		if r.RunID == runID {
			results = append(results, r)
		}
	}
	sort.Slice(results, func(a, b int) bool { return results[a].InputPath < results[b].InputPath })
	return results, nil
}
