package cache_fs

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/jeremiehuchet/chatops-bot/internal/domain"
)

func TestCache_WriteCreatesFile(t *testing.T) {
	tmp := t.TempDir()
	path := tmp + "/watchlist.json"

	c := New(path)
	s := domain.WatchSnapshot{
		Pipelines: []domain.WatchedPipeline{
			{ID: 1, ProjectID: 42, Ref: "main", Status: domain.StatusRunning, CreatedAt: time.Unix(1000, 0)},
		},
		Retrieved: 123,
	}
	if err := c.Write(context.Background(), s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("file not created: %v", err)
	}

	var out struct {
		Pipelines []struct {
			PipelineID int64  `json:"pipeline_id"`
			Ref        string `json:"ref"`
		} `json:"pipelines"`
		Retrieved int64 `json:"retrieved"`
	}
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(out.Pipelines) != 1 || out.Pipelines[0].PipelineID != 1 {
		t.Errorf("unexpected snapshot content: %+v", out)
	}
	if out.Retrieved != 123 {
		t.Errorf("expected retrieved 123, got %d", out.Retrieved)
	}
}

func TestCache_EmptyPathFails(t *testing.T) {
	c := New("")
	if err := c.Write(context.Background(), domain.WatchSnapshot{}); err == nil {
		t.Fatal("expected error for empty path")
	}
}
