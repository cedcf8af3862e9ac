package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rfenaux/ctm/internal/config"
	"github.com/rfenaux/ctm/internal/models"
	"github.com/rfenaux/ctm/internal/store"
)

func newTestWorkingPool(t *testing.T) (*WorkingPool, *store.AgentStore) {
	t.Helper()
	layout := store.NewLayout(t.TempDir())
	agents := store.NewAgentStore(layout)
	tiers := NewTiers(layout, agents, config.Defaults().MemoryTiers)
	return NewWorkingPool(layout, agents, tiers, config.Defaults().WorkingMemory), agents
}

func TestLoadAgentAddsToHotPool(t *testing.T) {
	pool, agents := newTestWorkingPool(t)
	now := time.Now().UTC()

	a, err := agents.Create("t", "g", "", models.PriorityNormal, now)
	require.NoError(t, err)

	ok, err := pool.LoadAgent(a.ID, now)
	require.NoError(t, err)
	require.True(t, ok)

	st, err := pool.Load()
	require.NoError(t, err)
	require.Contains(t, st.HotAgents, a.ID)
}

func TestLoadAgentTouchesExisting(t *testing.T) {
	pool, agents := newTestWorkingPool(t)
	now := time.Now().UTC()
	a, err := agents.Create("t", "g", "", models.PriorityNormal, now)
	require.NoError(t, err)

	_, err = pool.LoadAgent(a.ID, now)
	require.NoError(t, err)

	later := now.Add(time.Hour)
	_, err = pool.LoadAgent(a.ID, later)
	require.NoError(t, err)

	st, err := pool.Load()
	require.NoError(t, err)
	require.Equal(t, 2, st.HotAgents[a.ID].AccessCount)
	require.Equal(t, later, st.HotAgents[a.ID].LastAccessed)
}

func TestLoadAgentEvictsOnPressure(t *testing.T) {
	pool, agents := newTestWorkingPool(t)
	now := time.Now().UTC()

	var ids []string
	for i := 0; i < config.Defaults().WorkingMemory.MaxHotAgents; i++ {
		a, err := agents.Create("t", "g", "", models.PriorityNormal, now)
		require.NoError(t, err)
		_, err = pool.LoadAgent(a.ID, now)
		require.NoError(t, err)
		ids = append(ids, a.ID)
	}

	extra, err := agents.Create("extra", "g", "", models.PriorityNormal, now)
	require.NoError(t, err)
	_, err = pool.LoadAgent(extra.ID, now.Add(2*time.Hour))
	require.NoError(t, err)

	st, err := pool.Load()
	require.NoError(t, err)
	require.LessOrEqual(t, len(st.HotAgents), config.Defaults().WorkingMemory.MaxHotAgents)
	require.Contains(t, st.HotAgents, extra.ID)
	require.Equal(t, 1, st.EvictionCount)
}

func TestUnloadRemovesAndAccountsTokens(t *testing.T) {
	pool, agents := newTestWorkingPool(t)
	now := time.Now().UTC()
	a, err := agents.Create("t", "g", "", models.PriorityNormal, now)
	require.NoError(t, err)
	_, err = pool.LoadAgent(a.ID, now)
	require.NoError(t, err)

	require.NoError(t, pool.Unload(a.ID))

	st, err := pool.Load()
	require.NoError(t, err)
	require.NotContains(t, st.HotAgents, a.ID)
	require.Equal(t, 0, st.TokenUsage)
}

func TestCheckAndManagePressureEvictsUntilBelowThreshold(t *testing.T) {
	pool, agents := newTestWorkingPool(t)
	now := time.Now().UTC()

	for i := 0; i < config.Defaults().WorkingMemory.MaxHotAgents; i++ {
		a, err := agents.Create("t", "g", "", models.PriorityNormal, now)
		require.NoError(t, err)
		_, err = pool.LoadAgent(a.ID, now)
		require.NoError(t, err)
	}

	actions, err := pool.CheckAndManagePressure(now, 0.5)
	require.NoError(t, err)
	require.NotEmpty(t, actions)

	st, err := pool.Load()
	require.NoError(t, err)
	require.Less(t, float64(len(st.HotAgents)), float64(config.Defaults().WorkingMemory.MaxHotAgents)*0.5+1)
}
