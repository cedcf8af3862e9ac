package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rfenaux/ctm/internal/config"
	"github.com/rfenaux/ctm/internal/models"
	"github.com/rfenaux/ctm/internal/store"
)

func newTestTiers(t *testing.T) (*Tiers, *store.AgentStore, store.Layout) {
	t.Helper()
	layout := store.NewLayout(t.TempDir())
	agents := store.NewAgentStore(layout)
	return NewTiers(layout, agents, config.Defaults().MemoryTiers), agents, layout
}

func TestCheckPressureRatio(t *testing.T) {
	tiers, agents, _ := newTestTiers(t)
	now := time.Now().UTC()

	st, err := tiers.Load()
	require.NoError(t, err)

	a, err := agents.Create("t", "g", "", models.PriorityNormal, now)
	require.NoError(t, err)
	st.L1[a.ID] = models.TierSlot{AgentID: a.ID, LoadedAt: now, LastAccessed: now, AccessCount: 1, TokenEstimate: 100}

	pressured, ratio := tiers.CheckPressure(st, TierActive)
	require.False(t, pressured)
	require.InDelta(t, 0.5, ratio, 0.01) // 1/2 max agents at default config

	st.L1[a.ID+"2"] = models.TierSlot{AgentID: a.ID + "2", LoadedAt: now, LastAccessed: now, AccessCount: 1, TokenEstimate: 100}
	pressured, ratio = tiers.CheckPressure(st, TierActive)
	require.True(t, pressured)
	require.InDelta(t, 1.0, ratio, 0.01)
}

func TestSelectForDemotionPrefersStaleLowFrequency(t *testing.T) {
	tiers, _, _ := newTestTiers(t)
	now := time.Now().UTC()
	st, err := tiers.Load()
	require.NoError(t, err)

	st.L1["fresh"] = models.TierSlot{AgentID: "fresh", LastAccessed: now, AccessCount: 50}
	st.L1["stale"] = models.TierSlot{AgentID: "stale", LastAccessed: now.Add(-48 * time.Hour), AccessCount: 1}

	victim := tiers.SelectForDemotion(st, TierActive, now)
	require.Equal(t, "stale", victim)
}

func TestSelectForDemotionDeterministicTiebreak(t *testing.T) {
	tiers, _, _ := newTestTiers(t)
	now := time.Now().UTC()
	st, err := tiers.Load()
	require.NoError(t, err)

	st.L1["bbbb"] = models.TierSlot{AgentID: "bbbb", LastAccessed: now, AccessCount: 1}
	st.L1["aaaa"] = models.TierSlot{AgentID: "aaaa", LastAccessed: now, AccessCount: 1}

	require.Equal(t, "aaaa", tiers.SelectForDemotion(st, TierActive, now))
}

func TestDemoteOneStepsL1ToL2(t *testing.T) {
	tiers, agents, _ := newTestTiers(t)
	now := time.Now().UTC()
	a, err := agents.Create("t", "g", "", models.PriorityNormal, now)
	require.NoError(t, err)

	st, err := tiers.Load()
	require.NoError(t, err)
	st.L1[a.ID] = models.TierSlot{AgentID: a.ID, LastAccessed: now, AccessCount: 1}

	require.NoError(t, tiers.DemoteOne(st, a.ID, now))
	_, inL1 := st.L1[a.ID]
	_, inL2 := st.L2[a.ID]
	require.False(t, inL1)
	require.True(t, inL2)
}

func TestDemoteOneL2ToL3Compresses(t *testing.T) {
	tiers, agents, layout := newTestTiers(t)
	now := time.Now().UTC()

	a, err := agents.Create("ship the release", "get v2 out the door", "", models.PriorityNormal, now)
	require.NoError(t, err)
	a.Decisions = append(a.Decisions, models.TimestampEntry{Text: "use postgres", Timestamp: now})
	a.ProgressPct = 60
	require.NoError(t, agents.Save(a))

	st, err := tiers.Load()
	require.NoError(t, err)
	st.L2[a.ID] = models.TierSlot{AgentID: a.ID, LastAccessed: now, AccessCount: 1}

	require.NoError(t, tiers.DemoteOne(st, a.ID, now))
	_, inL2 := st.L2[a.ID]
	require.False(t, inL2)
	require.Len(t, st.L3, 1)
	require.Equal(t, a.ID, st.L3[0].AgentID)
	require.Contains(t, st.L3[0].Summary, "ship the release")
	require.Equal(t, 1, st.Stats.TotalCompressions)

	_ = layout
}

func TestDemoteToSemanticWritesMarkdownAndIndexes(t *testing.T) {
	tiers, agents, layout := newTestTiers(t)
	now := time.Now().UTC()
	a, err := agents.Create("archive me", "done", "", models.PriorityNormal, now)
	require.NoError(t, err)

	st, err := tiers.Load()
	require.NoError(t, err)
	st.L3 = append(st.L3, models.EpisodicEntry{AgentID: a.ID, Timestamp: now})

	require.NoError(t, tiers.DemoteOne(st, a.ID, now))
	require.Empty(t, st.L3)
	require.Contains(t, st.Indexed, a.ID)

	statErr := store.ReadJSON(layout.SemanticPath(a.ID), &struct{}{})
	// Semantic files are markdown, not JSON; ReadJSON will fail to parse but
	// must first succeed in opening the file (proves it was written).
	require.Error(t, statErr)
	require.NotContains(t, statErr.Error(), "no such file")
}

func TestCompressTruncatesLongFields(t *testing.T) {
	a := &models.Agent{Title: "t", Goal: string(make([]byte, 500))}
	result := Compress(a)
	require.LessOrEqual(t, len(result.Summary), 1000)
	require.Greater(t, result.OriginalTokens, 0)
}

func TestCheckAndManagePressureDemotesUntilClear(t *testing.T) {
	tiers, agents, _ := newTestTiers(t)
	now := time.Now().UTC()

	for i := 0; i < 3; i++ {
		a, err := agents.Create("t", "g", "", models.PriorityNormal, now)
		require.NoError(t, err)
		st, err := tiers.Load()
		require.NoError(t, err)
		st.L1[a.ID] = models.TierSlot{AgentID: a.ID, LastAccessed: now, AccessCount: 1, TokenEstimate: 100}
		require.NoError(t, tiers.Save(st))
	}

	actions, err := tiers.CheckAndManagePressure(now)
	require.NoError(t, err)
	require.NotEmpty(t, actions)

	st, err := tiers.Load()
	require.NoError(t, err)
	pressured, _ := tiers.CheckPressure(st, TierActive)
	require.False(t, pressured)
}
