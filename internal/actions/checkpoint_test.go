package actions

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rfenaux/ctm/internal/models"
)

func TestCheckpointSnapshotsNonTerminalAgents(t *testing.T) {
	svc := newTestService(t)
	now := time.Now().UTC()

	active, err := svc.Spawn("active", SpawnOptions{}, now)
	require.NoError(t, err)
	done, err := svc.Spawn("done", SpawnOptions{}, now)
	require.NoError(t, err)
	require.NoError(t, svc.Complete(done.ID, false, now))

	result, err := svc.Checkpoint("", now)
	require.NoError(t, err)
	require.NotEmpty(t, result.Name)

	_, err = svc.Agents.Load(active.ID)
	require.NoError(t, err)
}

func TestCheckpointDiffDetectsStatusChange(t *testing.T) {
	svc := newTestService(t)
	now := time.Now().UTC()

	a, err := svc.Spawn("a", SpawnOptions{}, now)
	require.NoError(t, err)

	_, err = svc.Checkpoint("", now)
	require.NoError(t, err)

	require.NoError(t, svc.Complete(a.ID, false, now.Add(time.Minute)))

	second, err := svc.Checkpoint("", now.Add(2*time.Minute))
	require.NoError(t, err)
	require.NotNil(t, second.Diff)
	require.Contains(t, second.Diff.NewlyCompleted, a.ID)
}

func TestRestoreBringsBackOverwrittenAgent(t *testing.T) {
	svc := newTestService(t)
	now := time.Now().UTC()

	a, err := svc.Spawn("a", SpawnOptions{}, now)
	require.NoError(t, err)
	_, err = svc.Checkpoint("", now)
	require.NoError(t, err)

	a.Title = "mutated after checkpoint"
	require.NoError(t, svc.Agents.Save(a))

	require.NoError(t, svc.Restore(""))

	reloaded, err := svc.Agents.Load(a.ID)
	require.NoError(t, err)
	require.Equal(t, "a", reloaded.Title)
}

func TestRestoreUnknownNameReturnsNotFound(t *testing.T) {
	svc := newTestService(t)
	err := svc.Restore("does-not-exist")
	var nf *models.NotFoundError
	require.ErrorAs(t, err, &nf)
}
