package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rfenaux/ctm/internal/models"
	"github.com/rfenaux/ctm/internal/store"
)

func newTestCognitiveLoad(t *testing.T) *CognitiveLoad {
	t.Helper()
	layout := store.NewLayout(t.TempDir())
	return NewCognitiveLoad(layout)
}

func TestRecordInterruptionAccumulatesResidue(t *testing.T) {
	cl := newTestCognitiveLoad(t)
	now := time.Now().UTC()

	departing := &models.Agent{ID: "a1", ProgressPct: 50, Status: models.StatusPaused, Priority: models.PriorityInputs{}}
	require.NoError(t, cl.RecordInterruption(departing, now))

	st, err := cl.Load()
	require.NoError(t, err)
	require.Greater(t, st.Residue["a1"], 0.0)
	require.LessOrEqual(t, st.Residue["a1"], 1.0)
}

func TestRecordInterruptionHigherForUnfinishedHighPriority(t *testing.T) {
	cl := newTestCognitiveLoad(t)
	now := time.Now().UTC()

	low := &models.Agent{ID: "low", ProgressPct: 50, Status: models.StatusPaused}
	require.NoError(t, cl.RecordInterruption(low, now))

	cl2 := newTestCognitiveLoad(t)
	high := &models.Agent{ID: "high", ProgressPct: 50, Status: models.StatusPaused, Priority: models.PriorityInputs{Level: models.PriorityCritical}}
	require.NoError(t, cl2.RecordInterruption(high, now))

	st1, err := cl.Load()
	require.NoError(t, err)
	st2, err := cl2.Load()
	require.NoError(t, err)
	require.Greater(t, st2.Residue["high"], st1.Residue["low"])
}

func TestDecayedResidueHalvesAfterHalflife(t *testing.T) {
	cl := newTestCognitiveLoad(t)
	now := time.Now().UTC()

	a := &models.Agent{ID: "a1", ProgressPct: 50, Status: models.StatusPaused, Priority: models.PriorityInputs{Level: models.PriorityHigh}}
	require.NoError(t, cl.RecordInterruption(a, now))

	st, err := cl.Load()
	require.NoError(t, err)
	initial := st.Residue["a1"]

	later := now.Add(HalflifeHours * time.Hour)
	decayed := cl.decayedResidue(st, "a1", later)
	require.InDelta(t, initial/2, decayed, 0.01)
}

func TestFocusRecommendationsSortedDescendingAndFiltersNoise(t *testing.T) {
	cl := newTestCognitiveLoad(t)
	now := time.Now().UTC()

	low := &models.Agent{ID: "low", ProgressPct: 95, Status: models.StatusCompleted}
	high := &models.Agent{ID: "high", ProgressPct: 50, Status: models.StatusPaused, Priority: models.PriorityInputs{Level: models.PriorityCritical}}
	require.NoError(t, cl.RecordInterruption(low, now))
	require.NoError(t, cl.RecordInterruption(high, now))

	recs, err := cl.FocusRecommendations(now)
	require.NoError(t, err)
	require.NotEmpty(t, recs)
	require.Equal(t, "high", recs[0].AgentID)
}
