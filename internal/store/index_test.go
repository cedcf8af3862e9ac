package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rfenaux/ctm/internal/models"
)

func TestIndexAddAndQuery(t *testing.T) {
	layout := NewLayout(t.TempDir())
	agents := NewAgentStore(layout)
	index := NewIndexStore(layout)
	now := time.Now().UTC()

	a, err := agents.Create("t1", "g1", "/repo/x", models.PriorityHigh, now)
	require.NoError(t, err)
	require.NoError(t, index.Add(a))

	byStatus, err := index.GetByStatus(models.StatusPaused)
	require.NoError(t, err)
	require.Contains(t, byStatus, a.ID)

	byProject, err := index.GetByProject("/repo/x")
	require.NoError(t, err)
	require.Contains(t, byProject, a.ID)

	info, ok, err := index.GetInfo(a.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, a.Title, info.Title)
}

func TestIndexUpdateMovesBetweenStatusBuckets(t *testing.T) {
	layout := NewLayout(t.TempDir())
	agents := NewAgentStore(layout)
	index := NewIndexStore(layout)
	now := time.Now().UTC()

	a, err := agents.Create("t", "g", "", models.PriorityNormal, now)
	require.NoError(t, err)
	require.NoError(t, index.Add(a))

	a.Status = models.StatusActive
	require.NoError(t, index.Update(a))

	paused, err := index.GetByStatus(models.StatusPaused)
	require.NoError(t, err)
	require.NotContains(t, paused, a.ID)

	active, err := index.GetByStatus(models.StatusActive)
	require.NoError(t, err)
	require.Contains(t, active, a.ID)
}

func TestIndexGetAllActiveExcludesTerminal(t *testing.T) {
	layout := NewLayout(t.TempDir())
	agents := NewAgentStore(layout)
	index := NewIndexStore(layout)
	now := time.Now().UTC()

	active, err := agents.Create("active", "g", "", models.PriorityNormal, now)
	require.NoError(t, err)
	active.Status = models.StatusActive
	require.NoError(t, agents.Save(active))
	require.NoError(t, index.Add(active))

	done, err := agents.Create("done", "g", "", models.PriorityNormal, now)
	require.NoError(t, err)
	done.Status = models.StatusCompleted
	require.NoError(t, agents.Save(done))
	require.NoError(t, index.Add(done))

	ids, err := index.GetAllActive()
	require.NoError(t, err)
	require.Contains(t, ids, active.ID)
	require.NotContains(t, ids, done.ID)
}

func TestIndexRebuildFromDisk(t *testing.T) {
	layout := NewLayout(t.TempDir())
	agents := NewAgentStore(layout)
	index := NewIndexStore(layout)
	now := time.Now().UTC()

	a, err := agents.Create("t", "g", "proj", models.PriorityNormal, now)
	require.NoError(t, err)

	// Corrupt the on-disk index directly; Rebuild should recover from the
	// agent files alone.
	require.NoError(t, index.Save(models.NewIndex()))

	idx, err := index.Rebuild(agents)
	require.NoError(t, err)
	require.Contains(t, idx.Agents, a.ID)
}

func TestIndexRemove(t *testing.T) {
	layout := NewLayout(t.TempDir())
	agents := NewAgentStore(layout)
	index := NewIndexStore(layout)
	now := time.Now().UTC()

	a, err := agents.Create("t", "g", "proj", models.PriorityNormal, now)
	require.NoError(t, err)
	require.NoError(t, index.Add(a))

	require.NoError(t, index.Remove(a.ID))

	_, ok, err := index.GetInfo(a.ID)
	require.NoError(t, err)
	require.False(t, ok)

	byProject, err := index.GetByProject("proj")
	require.NoError(t, err)
	require.NotContains(t, byProject, a.ID)
}
