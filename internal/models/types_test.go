package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgentIsBlocked(t *testing.T) {
	statusOf := func(id string) (Status, bool) {
		switch id {
		case "done":
			return StatusCompleted, true
		case "open":
			return StatusPaused, true
		default:
			return "", false
		}
	}

	t.Run("no blockers", func(t *testing.T) {
		a := &Agent{}
		assert.False(t, a.IsBlocked(statusOf))
	})

	t.Run("all blockers terminal", func(t *testing.T) {
		a := &Agent{Blockers: []string{"done"}}
		assert.False(t, a.IsBlocked(statusOf))
	})

	t.Run("one blocker still open", func(t *testing.T) {
		a := &Agent{Blockers: []string{"done", "open"}}
		assert.True(t, a.IsBlocked(statusOf))
	})

	t.Run("blocker id with no backing file is ignored", func(t *testing.T) {
		a := &Agent{Blockers: []string{"ghost"}}
		assert.False(t, a.IsBlocked(statusOf))
	})
}

func TestAgentClampProgress(t *testing.T) {
	a := &Agent{ProgressPct: -5}
	a.ClampProgress()
	require.Equal(t, 0, a.ProgressPct)

	a.ProgressPct = 150
	a.ClampProgress()
	require.Equal(t, 100, a.ProgressPct)

	a.ProgressPct = 42
	a.ClampProgress()
	require.Equal(t, 42, a.ProgressPct)
}

func TestNewIndexHasEveryStatusBucket(t *testing.T) {
	idx := NewIndex()
	for _, s := range []Status{StatusActive, StatusPaused, StatusBlocked, StatusCompleted, StatusCancelled} {
		_, ok := idx.ByStatus[s]
		assert.True(t, ok, "missing bucket for %s", s)
	}
}

func TestStatusIsTerminal(t *testing.T) {
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.False(t, StatusActive.IsTerminal())
	assert.False(t, StatusPaused.IsTerminal())
	assert.False(t, StatusBlocked.IsTerminal())
}
