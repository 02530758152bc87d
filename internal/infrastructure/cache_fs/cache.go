package cache_fs

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/jeremiehuchet/chatops-bot/internal/domain"
)

// FSCache writes the current watch list to a JSON file so external
// status surfaces can display the in-flight pipelines.
type FSCache struct {
	path string
}

func New(path string) *FSCache { return &FSCache{path: path} }

func (c *FSCache) Write(_ context.Context, s domain.WatchSnapshot) error {
	if c.path == "" {
		return errors.New("cache path is empty")
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(c.path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	type entry struct {
		PipelineID   int64  `json:"pipeline_id"`
		ProjectID    int64  `json:"project_id"`
		Ref          string `json:"ref"`
		Status       string `json:"status"`
		WatchedSince int64  `json:"watched_since"`
	}
	type out struct {
		Pipelines []entry `json:"pipelines"`
		Retrieved int64   `json:"retrieved"`
	}

	o := out{Pipelines: make([]entry, 0, len(s.Pipelines)), Retrieved: s.Retrieved}
	for _, p := range s.Pipelines {
		o.Pipelines = append(o.Pipelines, entry{
			PipelineID:   p.ID,
			ProjectID:    p.ProjectID,
			Ref:          p.Ref,
			Status:       string(p.Status),
			WatchedSince: p.CreatedAt.Unix(),
		})
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")

	return enc.Encode(o)
}
