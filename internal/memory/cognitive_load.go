package memory

import (
	"math"
	"os"
	"time"

	"github.com/rfenaux/ctm/internal/models"
	"github.com/rfenaux/ctm/internal/store"
)

// HalflifeHours is the attention-residue decay half-life, fixed at 4 hours
// per spec §4's cognitive-load bookkeeping section.
const HalflifeHours = 4.0

// CognitiveLoad owns cognitive-load.json: read-only from the scheduler's
// perspective, updated only by RecordInterruption on each set_active.
type CognitiveLoad struct {
	layout store.Layout
}

func NewCognitiveLoad(layout store.Layout) *CognitiveLoad {
	return &CognitiveLoad{layout: layout}
}

func (c *CognitiveLoad) Load() (*models.CognitiveLoadState, error) {
	st := models.NewCognitiveLoadState()
	err := store.ReadJSON(c.layout.CognitiveLoadPath(), st)
	if err != nil {
		if os.IsNotExist(err) {
			return models.NewCognitiveLoadState(), nil
		}
		return nil, err
	}
	return st, nil
}

func (c *CognitiveLoad) Save(st *models.CognitiveLoadState) error {
	return store.WriteAtomicJSON(c.layout.CognitiveLoadPath(), st, nil)
}

// reasonFactor maps a departure reason to the weight in spec §4's formula.
func reasonFactor(a *models.Agent) float64 {
	switch {
	case a.Status == models.StatusBlocked:
		return 0.3
	case a.Status.IsTerminal():
		return 0.1
	case a.Priority.Level == models.PriorityCritical || a.Priority.Level == models.PriorityHigh:
		return 0.7
	default:
		return 0.5
	}
}

// RecordInterruption is called on every set_active a→b: it logs the switch
// away from a and bumps a's attention residue by
// progress_factor × reason_factor, bounded to [0,1] after the add.
func (c *CognitiveLoad) RecordInterruption(departing *models.Agent, now time.Time) error {
	st, err := c.Load()
	if err != nil {
		return err
	}

	progressFactor := 1 - math.Abs(float64(departing.ProgressPct)-50)/50
	add := progressFactor * reasonFactor(departing)

	current := c.decayedResidue(st, departing.ID, now)
	residue := current + add
	if residue < 0 {
		residue = 0
	}
	if residue > 1 {
		residue = 1
	}

	st.Residue[departing.ID] = residue
	st.LastUpdated[departing.ID] = now
	st.Interruptions = append(st.Interruptions, models.InterruptionEvent{
		AgentID:   departing.ID,
		Timestamp: now,
		Reason:    string(departing.Status),
	})

	return c.Save(st)
}

// decayedResidue applies the half-life decay to the stored residue for id as
// of now, without persisting the result — used both internally and by
// FocusRecommendations so queries never need a write.
func (c *CognitiveLoad) decayedResidue(st *models.CognitiveLoadState, id string, now time.Time) float64 {
	residue, ok := st.Residue[id]
	if !ok {
		return 0
	}
	last, ok := st.LastUpdated[id]
	if !ok {
		return residue
	}
	hours := now.Sub(last).Hours()
	if hours <= 0 {
		return residue
	}
	return residue * math.Pow(0.5, hours/HalflifeHours)
}

// FocusRecommendation pairs an agent id with its current (decayed) residue,
// highest first: agents the scheduler carried unfinished attention for.
type FocusRecommendation struct {
	AgentID string
	Residue float64
}

// FocusRecommendations reads cognitive-load.json and returns every agent
// with nonzero decayed residue, sorted descending.
func (c *CognitiveLoad) FocusRecommendations(now time.Time) ([]FocusRecommendation, error) {
	st, err := c.Load()
	if err != nil {
		return nil, err
	}
	var recs []FocusRecommendation
	for id := range st.Residue {
		r := c.decayedResidue(st, id, now)
		if r > 0.01 {
			recs = append(recs, FocusRecommendation{AgentID: id, Residue: r})
		}
	}
	for i := 0; i < len(recs); i++ {
		for j := i + 1; j < len(recs); j++ {
			if recs[j].Residue > recs[i].Residue {
				recs[i], recs[j] = recs[j], recs[i]
			}
		}
	}
	return recs, nil
}
