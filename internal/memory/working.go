package memory

import (
	"math"
	"os"
	"time"

	"github.com/rfenaux/ctm/internal/config"
	"github.com/rfenaux/ctm/internal/models"
	"github.com/rfenaux/ctm/internal/store"
)

// WorkingPool owns working-memory.json: the hot-slot cache described in
// spec §4.8. Grounded on _examples/original_source/ctm/lib/memory.py's
// WorkingMemory class, the canonical source this was distilled from.
type WorkingPool struct {
	layout store.Layout
	agents *store.AgentStore
	tiers  *Tiers
	cfg    config.WorkingMemoryConfig
}

func NewWorkingPool(layout store.Layout, agents *store.AgentStore, tiers *Tiers, cfg config.WorkingMemoryConfig) *WorkingPool {
	return &WorkingPool{layout: layout, agents: agents, tiers: tiers, cfg: cfg}
}

func (p *WorkingPool) Load() (*models.WorkingMemoryState, error) {
	st := models.NewWorkingMemoryState()
	err := store.ReadJSON(p.layout.WorkingMemoryPath(), st)
	if err != nil {
		if os.IsNotExist(err) {
			return models.NewWorkingMemoryState(), nil
		}
		return nil, err
	}
	return st, nil
}

func (p *WorkingPool) Save(st *models.WorkingMemoryState) error {
	return store.WriteAtomicJSON(p.layout.WorkingMemoryPath(), st, nil)
}

// LoadAgent loads agent id into the hot pool: touching it if already present,
// evicting by decay rule until there's room otherwise. Returns false only
// when eviction was needed but the pool could not be reduced (i.e. it is
// empty yet still over budget for a single new entry — never happens in
// practice, but mirrors the canonical implementation's return contract).
func (p *WorkingPool) LoadAgent(id string, now time.Time) (bool, error) {
	st, err := p.Load()
	if err != nil {
		return false, err
	}

	if slot, ok := st.HotAgents[id]; ok {
		slot.LastAccessed = now
		slot.AccessCount++
		st.HotAgents[id] = slot
		return true, p.Save(st)
	}

	a, err := p.agents.Load(id)
	if err != nil {
		return false, err
	}
	tokenEstimate := EstimateTokens(a)

	maxHot := p.cfg.MaxHotAgents
	if maxHot <= 0 {
		maxHot = 5
	}
	budget := p.cfg.TokenBudget
	if budget <= 0 {
		budget = 8000
	}

	for len(st.HotAgents) >= maxHot || st.TokenUsage+tokenEstimate > budget {
		evictedID := p.evictOne(st, now)
		if evictedID == "" {
			return false, p.Save(st)
		}
	}

	st.HotAgents[id] = models.TierSlot{
		AgentID:       id,
		LoadedAt:      now,
		LastAccessed:  now,
		AccessCount:   1,
		TokenEstimate: tokenEstimate,
	}
	st.TokenUsage += tokenEstimate
	return true, p.Save(st)
}

// decay computes the eviction-priority score from spec §4.8: exponential
// 1-hour-halflife time decay, frequency dampening, cost penalty.
func (p *WorkingPool) decay(slot models.TierSlot, now time.Time, budget int) float64 {
	hours := now.Sub(slot.LastAccessed).Hours()
	if hours < 0 {
		hours = 0
	}
	timeDecay := math.Pow(2, hours)
	freqFactor := 1 / (1 + math.Log(1+float64(slot.AccessCount)))
	tokenFactor := 0.0
	if budget > 0 {
		tokenFactor = float64(slot.TokenEstimate) / float64(budget)
	}
	return timeDecay * freqFactor * (1 + tokenFactor)
}

func (p *WorkingPool) evictOne(st *models.WorkingMemoryState, now time.Time) string {
	if len(st.HotAgents) == 0 {
		return ""
	}
	budget := p.cfg.TokenBudget
	if budget <= 0 {
		budget = 8000
	}

	maxDecay := -1.0
	evictID := ""
	for id, slot := range st.HotAgents {
		d := p.decay(slot, now, budget)
		if d > maxDecay || (d == maxDecay && id < evictID) {
			maxDecay = d
			evictID = id
		}
	}
	p.evict(st, evictID, now)
	return evictID
}

func (p *WorkingPool) evict(st *models.WorkingMemoryState, id string, now time.Time) {
	slot, ok := st.HotAgents[id]
	if !ok {
		return
	}
	st.TokenUsage -= slot.TokenEstimate
	if st.TokenUsage < 0 {
		st.TokenUsage = 0
	}
	delete(st.HotAgents, id)
	st.EvictionCount++
	st.LastEviction = &now
}

// Unload explicitly evicts id (a no-op if it isn't loaded).
func (p *WorkingPool) Unload(id string) error {
	st, err := p.Load()
	if err != nil {
		return err
	}
	p.evict(st, id, time.Now().UTC())
	return p.Save(st)
}

// CheckAndManagePressure evicts agents while the pool's slot/token usage is
// at or above the configured threshold, per spec §4.8. When a tiers manager
// is wired in, each evicted id is stepped down one tier from wherever it sits
// in tiered memory (L1→L2, L2→L3 or L3→L4); it is not taken straight to L3,
// and an id absent from L1–L3 is not moved.
func (p *WorkingPool) CheckAndManagePressure(now time.Time, threshold float64) ([]string, error) {
	if threshold <= 0 {
		threshold = 0.70
	}
	st, err := p.Load()
	if err != nil {
		return nil, err
	}

	maxHot := p.cfg.MaxHotAgents
	if maxHot <= 0 {
		maxHot = 5
	}
	budget := p.cfg.TokenBudget
	if budget <= 0 {
		budget = 8000
	}

	var actions []string
	pressure := math.Max(float64(len(st.HotAgents))/float64(maxHot), float64(st.TokenUsage)/float64(budget))
	for pressure >= threshold && len(st.HotAgents) > 0 {
		evictedID := p.evictOne(st, now)
		if evictedID == "" {
			break
		}
		actions = append(actions, "evicted "+evictedID)

		if p.tiers != nil {
			tiersState, err := p.tiers.Load()
			if err == nil {
				if err := p.tiers.DemoteOne(tiersState, evictedID, now); err == nil {
					_ = p.tiers.Save(tiersState)
					actions = append(actions, "demoted "+evictedID+" toward episodic memory")
				}
			}
		}

		pressure = math.Max(float64(len(st.HotAgents))/float64(maxHot), float64(st.TokenUsage)/float64(budget))
	}

	if err := p.Save(st); err != nil {
		return nil, err
	}
	return actions, nil
}
