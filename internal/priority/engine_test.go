package priority

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rfenaux/ctm/internal/config"
	"github.com/rfenaux/ctm/internal/models"
)

func testAgent(now time.Time) *models.Agent {
	return &models.Agent{
		ID:         "a1",
		CreatedAt:  now,
		LastActive: now,
		Priority: models.PriorityInputs{
			Urgency:    0.0,
			Value:      0.0,
			UserSignal: 0.0,
		},
	}
}

func TestComputeIsBoundedTo01(t *testing.T) {
	now := time.Now().UTC()
	a := testAgent(now)
	a.Priority.Urgency = 1
	a.Priority.Value = 1
	a.Priority.UserSignal = 1
	a.LastError = "boom"

	score := Compute(a, now, config.Defaults().Priority, "")
	assert.LessOrEqual(t, score, 1.0)
	assert.GreaterOrEqual(t, score, 0.0)
}

func TestComputeDecaysWithStaleness(t *testing.T) {
	now := time.Now().UTC()
	cfg := config.Defaults().Priority

	fresh := testAgent(now)
	stale := testAgent(now)
	stale.LastActive = now.Add(-72 * time.Hour)

	require.Greater(t, Compute(fresh, now, cfg, ""), Compute(stale, now, cfg, ""))
}

func TestComputeRewardsProjectContextMatch(t *testing.T) {
	now := time.Now().UTC()
	cfg := config.Defaults().Priority

	a := testAgent(now)
	a.Project = "/repo/service/subpkg"

	withoutMatch := Compute(a, now, cfg, "")
	withMatch := Compute(a, now, cfg, "/repo/service")
	require.Greater(t, withMatch, withoutMatch)
	require.InDelta(t, ProjectContextBoost, withMatch-withoutMatch, 0.001)
}

func TestComputeDeadlineUrgencyTiers(t *testing.T) {
	now := time.Now().UTC()
	cfg := config.Defaults().Priority

	overdue := testAgent(now)
	deadline := now.Add(-time.Hour)
	overdue.Deadline = &deadline

	farOut := testAgent(now)
	farDeadline := now.Add(60 * 24 * time.Hour)
	farOut.Deadline = &farDeadline

	require.Greater(t, Compute(overdue, now, cfg, ""), Compute(farOut, now, cfg, ""))
}

func TestIsProjectMatchDescendant(t *testing.T) {
	assert.True(t, isProjectMatch("/repo/a/b", "/repo/a"))
	assert.True(t, isProjectMatch("/repo/a", "/repo/a"))
	assert.False(t, isProjectMatch("/repo/b", "/repo/a"))
	assert.False(t, isProjectMatch("", "/repo/a"))
	assert.False(t, isProjectMatch("/repo/a", ""))
}
