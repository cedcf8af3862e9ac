// Package priority implements the Priority Engine (C4): a pure, deterministic
// scoring function over an agent's state and the clock. Grounded on
// _examples/original_source/ctm/lib/scheduler.py's calculate_priority, the
// canonical source this formula was distilled from.
package priority

import (
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/rfenaux/ctm/internal/config"
	"github.com/rfenaux/ctm/internal/models"
)

// ProjectContextBoost is added when the agent's project is the scheduler's
// current project context or a descendant of it.
const ProjectContextBoost = 0.20

// Compute returns computed_score ∈ [0,1] for agent a at time now, given the
// configured weights/half-life and the scheduler's current project context
// (empty string if none set). The engine never mutates a; callers persist
// the result themselves (spec §4.4: "The engine never mutates").
func Compute(a *models.Agent, now time.Time, cfg config.PriorityConfig, projectContext string) float64 {
	w := cfg.Weights

	recency := recencyFactor(a.LastActive, now, cfg.RecencyHalflifeHours)
	novelty := noveltyFactor(a.CreatedAt, now)
	errorBoost := 0.0
	if a.LastError != "" {
		errorBoost = 0.3
	}
	urgency := urgencyFactor(a, now)
	userSignalNorm := (clampSignal(a.Priority.UserSignal) + 1) / 2
	value := clampSignal(a.Priority.Value)

	score := w.Urgency*urgency +
		w.Recency*recency +
		w.Value*value +
		w.Novelty*novelty +
		w.UserSignal*userSignalNorm +
		w.ErrorBoost*errorBoost

	if isProjectMatch(a.Project, projectContext) {
		score += ProjectContextBoost
	}

	return clamp01(score)
}

func recencyFactor(lastActive, now time.Time, halflifeHours float64) float64 {
	if halflifeHours <= 0 {
		halflifeHours = 24
	}
	hours := now.Sub(lastActive).Hours()
	if hours < 0 {
		hours = 0
	}
	return math.Pow(2, -hours/halflifeHours)
}

func noveltyFactor(createdAt, now time.Time) float64 {
	days := now.Sub(createdAt).Hours() / 24
	if days < 0 {
		days = 0
	}
	return math.Max(0.1, math.Pow(2, -days/7))
}

// urgencyFactor prefers the deadline-aware tiers from spec §4.4 whenever a
// deadline is set; otherwise it falls back to the agent's stored urgency
// input, clamped to [-1,1] (not rescaled to [0,1] the way user_signal is).
func urgencyFactor(a *models.Agent, now time.Time) float64 {
	if a.Deadline == nil {
		return clampSignal(a.Priority.Urgency)
	}

	hoursLeft := a.Deadline.Sub(now).Hours()
	daysLeft := hoursLeft / 24

	switch {
	case hoursLeft <= 0:
		return 1.0
	case daysLeft <= 1:
		return 0.95
	case daysLeft <= 3:
		return 0.85
	case daysLeft <= 7:
		return 0.70
	case daysLeft <= 14:
		return 0.55
	default:
		return math.Max(0.3, 0.5*30/math.Max(30, daysLeft))
	}
}

// isProjectMatch reports whether project, canonicalized, equals context or
// is a descendant of it.
func isProjectMatch(project, context string) bool {
	if context == "" || project == "" {
		return false
	}
	project = filepath.Clean(project)
	context = filepath.Clean(context)
	if project == context {
		return true
	}
	rel, err := filepath.Rel(context, project)
	if err != nil {
		return false
	}
	return !strings.HasPrefix(rel, "..")
}

func clampSignal(v float64) float64 {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
