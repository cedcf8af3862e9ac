package scheduler

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rfenaux/ctm/internal/config"
	"github.com/rfenaux/ctm/internal/deps"
	"github.com/rfenaux/ctm/internal/models"
	"github.com/rfenaux/ctm/internal/store"
)

func newTestScheduler(t *testing.T) (*Scheduler, *store.AgentStore) {
	t.Helper()
	layout := store.NewLayout(t.TempDir())
	agents := store.NewAgentStore(layout)
	index := store.NewIndexStore(layout)
	depsEngine := deps.New(agents)
	return New(layout, agents, index, depsEngine, config.Defaults().Priority), agents
}

func TestRebuildQueueOrdersByScoreDescending(t *testing.T) {
	sched, agents := newTestScheduler(t)
	now := time.Now().UTC()

	low, err := agents.Create("low", "g", "", models.PriorityBackground, now)
	require.NoError(t, err)
	low.Priority.UserSignal = -1
	low.CreatedAt = now.Add(-30 * 24 * time.Hour)
	low.LastActive = now.Add(-30 * 24 * time.Hour)
	require.NoError(t, agents.Save(low))
	require.NoError(t, sched.index.Add(low))

	high, err := agents.Create("high", "g", "", models.PriorityCritical, now)
	require.NoError(t, err)
	high.Priority.UserSignal = 1
	high.Priority.Urgency = 1
	high.Priority.Value = 1
	require.NoError(t, agents.Save(high))
	require.NoError(t, sched.index.Add(high))

	st, err := sched.RebuildQueue("", now)
	require.NoError(t, err)
	require.Len(t, st.PriorityQueue, 2)
	require.Equal(t, high.ID, st.PriorityQueue[0].ID)
	require.Equal(t, low.ID, st.PriorityQueue[1].ID)
}

func TestRebuildQueueMarksBlockedAgents(t *testing.T) {
	sched, agents := newTestScheduler(t)
	now := time.Now().UTC()

	blocked, err := agents.Create("blocked", "g", "", models.PriorityNormal, now)
	require.NoError(t, err)
	blocker, err := agents.Create("blocker", "g", "", models.PriorityNormal, now)
	require.NoError(t, err)

	require.NoError(t, sched.deps.AddBlocker(blocked.ID, blocker.ID))
	require.NoError(t, sched.index.Add(blocker))

	st, err := sched.RebuildQueue("", now)
	require.NoError(t, err)

	var inQueue bool
	for _, e := range st.PriorityQueue {
		if e.ID == blocked.ID {
			inQueue = true
		}
	}
	require.False(t, inQueue, "blocked agent should not appear in the priority queue")

	reloaded, err := agents.Load(blocked.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusBlocked, reloaded.Status)
}

func TestSetActiveAccountsSessionTime(t *testing.T) {
	sched, agents := newTestScheduler(t)
	start := time.Now().UTC()

	a, err := agents.Create("a", "g", "", models.PriorityNormal, start)
	require.NoError(t, err)
	require.NoError(t, sched.index.Add(a))

	_, err = sched.SetActive(a.ID, start)
	require.NoError(t, err)

	later := start.Add(90 * time.Minute)
	prev, err := sched.SetActive("", later)
	require.NoError(t, err)
	require.Equal(t, a.ID, prev)

	reloaded, err := agents.Load(a.ID)
	require.NoError(t, err)
	require.Nil(t, reloaded.SessionStart)
	require.InDelta(t, 90*60, reloaded.TotalActiveSeconds, 1)
	require.Equal(t, models.StatusPaused, reloaded.Status)
	require.Equal(t, 1, reloaded.SessionCount)
}

func TestSetActiveRejectsBlockedAgent(t *testing.T) {
	sched, agents := newTestScheduler(t)
	now := time.Now().UTC()

	blocked, err := agents.Create("blocked", "g", "", models.PriorityNormal, now)
	require.NoError(t, err)
	blocker, err := agents.Create("blocker", "g", "", models.PriorityNormal, now)
	require.NoError(t, err)
	require.NoError(t, sched.deps.AddBlocker(blocked.ID, blocker.ID))

	_, err = sched.SetActive(blocked.ID, now)
	var be *models.BlockedTransitionError
	require.ErrorAs(t, err, &be)
}

func TestPreemptCheckThreshold(t *testing.T) {
	sched, agents := newTestScheduler(t)
	now := time.Now().UTC()

	current, err := agents.Create("current", "g", "", models.PriorityNormal, now)
	require.NoError(t, err)
	require.NoError(t, sched.index.Add(current))
	_, err = sched.SetActive(current.ID, now)
	require.NoError(t, err)

	contender, err := agents.Create("contender", "g", "", models.PriorityCritical, now)
	require.NoError(t, err)
	contender.Priority.Urgency = 1
	contender.Priority.Value = 1
	contender.Priority.UserSignal = 1
	require.NoError(t, agents.Save(contender))
	require.NoError(t, sched.index.Add(contender))

	winnerID, shouldPreempt, err := sched.PreemptCheck(current.ID, now)
	require.NoError(t, err)
	require.True(t, shouldPreempt)
	require.Equal(t, contender.ID, winnerID)
}

func TestDetectProjectContextWalksUpward(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0o755))
	nested := filepath.Join(root, "a", "b", "c")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	require.Equal(t, root, DetectProjectContext(nested))
}

func TestDetectProjectContextFallsBackToCwd(t *testing.T) {
	dir := t.TempDir()
	require.Equal(t, dir, DetectProjectContext(dir))
}

func TestSchedulerLoadReturnsIndependentCopies(t *testing.T) {
	sched, _ := newTestScheduler(t)
	now := time.Now().UTC()

	st, err := sched.Load(now)
	require.NoError(t, err)
	st.ProjectContext = "/repo/a"
	require.NoError(t, sched.Save(st))

	first, err := sched.Load(now)
	require.NoError(t, err)
	require.Equal(t, "/repo/a", first.ProjectContext)
	first.ProjectContext = "mutated-only-locally"

	second, err := sched.Load(now)
	require.NoError(t, err)
	require.Equal(t, "/repo/a", second.ProjectContext, "cached Load must return a copy, not a shared pointer")
}
