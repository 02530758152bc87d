package application

import (
	"testing"
	"time"

	"github.com/jeremiehuchet/chatops-bot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryHoldsOneRecordPerPipeline(t *testing.T) {
	reg := NewRegistry()

	reg.Put(domain.WatchedPipeline{ID: 1, Status: domain.StatusRunning})
	reg.Put(domain.WatchedPipeline{ID: 1, Status: domain.StatusSuccess})

	assert.Equal(t, 1, reg.Len())
	p, ok := reg.Get(1)
	require.True(t, ok)
	assert.Equal(t, domain.StatusSuccess, p.Status)
}

func TestRegistryDelete(t *testing.T) {
	reg := NewRegistry()
	reg.Put(domain.WatchedPipeline{ID: 1})
	reg.Delete(1)

	_, ok := reg.Get(1)
	assert.False(t, ok)
	assert.Equal(t, 0, reg.Len())
}

func TestSweepRemovesOnlyExpiredRecords(t *testing.T) {
	reg := NewRegistry()
	now := time.Now()

	reg.Put(domain.WatchedPipeline{ID: 1, CreatedAt: now.Add(-3 * time.Hour)})
	reg.Put(domain.WatchedPipeline{ID: 2, CreatedAt: now.Add(-time.Minute)})

	removed := reg.Sweep(now, 2*time.Hour)

	assert.Equal(t, 1, removed)
	_, ok := reg.Get(1)
	assert.False(t, ok)
	_, ok = reg.Get(2)
	assert.True(t, ok)
}

func TestSweepIgnoresStatus(t *testing.T) {
	reg := NewRegistry()
	now := time.Now()

	reg.Put(domain.WatchedPipeline{ID: 1, Status: domain.StatusRunning, CreatedAt: now.Add(-3 * time.Hour)})

	assert.Equal(t, 1, reg.Sweep(now, 2*time.Hour))
	assert.Equal(t, 0, reg.Len())
}

func TestSnapshotCopiesEntries(t *testing.T) {
	reg := NewRegistry()
	reg.Put(domain.WatchedPipeline{ID: 1, Ref: "main"})

	snap := reg.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "main", snap[0].Ref)
}
