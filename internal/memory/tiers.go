// Package memory implements the Tiered Memory (C7) and Working-Memory Pool
// (C8) components, plus the orthogonal cognitive-load bookkeeping layer.
// Grounded on _examples/original_source/ctm/lib/memory_tiers.py, the
// canonical MemGPT-style tier manager this was distilled from.
package memory

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/rfenaux/ctm/internal/config"
	"github.com/rfenaux/ctm/internal/models"
	"github.com/rfenaux/ctm/internal/store"
)

// Tier numbers match spec §4.7's L1..L4 ordering.
const (
	TierActive   = 1
	TierWorking  = 2
	TierEpisodic = 3
	TierSemantic = 4
)

// Tiers owns tiered-memory.json and the episodic/semantic directories
// beneath the store root.
type Tiers struct {
	layout store.Layout
	agents *store.AgentStore
	cfg    config.MemoryTiersConfig
}

func NewTiers(layout store.Layout, agents *store.AgentStore, cfg config.MemoryTiersConfig) *Tiers {
	return &Tiers{layout: layout, agents: agents, cfg: cfg}
}

func (t *Tiers) Load() (*models.TieredMemoryState, error) {
	st := models.NewTieredMemoryState()
	err := store.ReadJSON(t.layout.TieredMemoryPath(), st)
	if err != nil {
		if os.IsNotExist(err) {
			return models.NewTieredMemoryState(), nil
		}
		return nil, err
	}
	return st, nil
}

func (t *Tiers) Save(st *models.TieredMemoryState) error {
	return store.WriteAtomicJSON(t.layout.TieredMemoryPath(), st, nil)
}

// tierBudget returns (maxAgents, tokenBudget) for L1/L2; L3/L4 are unbounded
// by slot count, so maxAgents is 0 (meaning "not applicable").
func (t *Tiers) tierBudget(tier int) (int, int) {
	switch tier {
	case TierActive:
		return t.cfg.L1MaxAgents, t.cfg.L1TokenBudget
	case TierWorking:
		return t.cfg.L2MaxAgents, t.cfg.L2TokenBudget
	default:
		return 0, 50000
	}
}

func (t *Tiers) threshold() float64 {
	if t.cfg.PressureThreshold <= 0 {
		return 0.70
	}
	return t.cfg.PressureThreshold
}

// CheckPressure reports whether tier (L1 or L2 only) is under pressure and
// its current usage ratio, per spec §4.7.
func (t *Tiers) CheckPressure(st *models.TieredMemoryState, tier int) (bool, float64) {
	maxAgents, tokenBudget := t.tierBudget(tier)
	var slots map[string]models.TierSlot
	if tier == TierActive {
		slots = st.L1
	} else {
		slots = st.L2
	}

	slotRatio := 0.0
	if maxAgents > 0 {
		slotRatio = float64(len(slots)) / float64(maxAgents)
	}

	tokenUsage := 0
	for _, s := range slots {
		tokenUsage += s.TokenEstimate
	}
	tokenRatio := 0.0
	if tokenBudget > 0 {
		tokenRatio = float64(tokenUsage) / float64(tokenBudget)
	}

	ratio := math.Max(slotRatio, tokenRatio)
	return ratio >= t.threshold(), ratio
}

// SelectForDemotion returns the id of the slot in tier with the highest
// demotion score, per spec §4.7's weighted formula. Returns "" if the tier
// is empty.
func (t *Tiers) SelectForDemotion(st *models.TieredMemoryState, tier int, now time.Time) string {
	var slots map[string]models.TierSlot
	if tier == TierActive {
		slots = st.L1
	} else {
		slots = st.L2
	}
	if len(slots) == 0 {
		return ""
	}

	_, tokenBudget := t.tierBudget(tier)

	type scored struct {
		id    string
		score float64
	}
	var candidates []scored
	for id, slot := range slots {
		hours := now.Sub(slot.LastAccessed).Hours()
		if hours < 0 {
			hours = 0
		}
		timeScore := math.Log(1 + hours)
		freqScore := 1 / (1 + math.Log(1+float64(slot.AccessCount)))
		tokenScore := 0.0
		if tokenBudget > 0 {
			tokenScore = float64(slot.TokenEstimate) / float64(tokenBudget)
		}
		d := 0.5*timeScore + 0.3*freqScore + 0.2*tokenScore
		candidates = append(candidates, scored{id, d})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].id < candidates[j].id // deterministic tiebreak
	})
	return candidates[0].id
}

// EstimateTokens approximates token cost via character counts / 4 plus
// structural overhead, matching spec §4.7's "exact value is unimportant".
func EstimateTokens(a *models.Agent) int {
	tokens := 200
	tokens += len(a.Title) / 4
	tokens += len(a.Goal) / 4
	for _, d := range a.Decisions {
		tokens += len(d.Text) / 4
	}
	for _, l := range a.Learnings {
		tokens += len(l.Text) / 4
	}
	tokens += len(a.KeyFiles) * 20
	if tokens < 100 {
		tokens = 100
	}
	return tokens
}

// Compress produces the demotion-time summary described in spec §4.7.
func Compress(a *models.Agent) models.CompressionResult {
	var parts []string
	parts = append(parts, fmt.Sprintf("Task: %s", a.Title))
	parts = append(parts, fmt.Sprintf("Goal: %s", truncate(a.Goal, 100)))
	parts = append(parts, fmt.Sprintf("Status: %s (%d%%)", a.Status, a.ProgressPct))

	var keyFacts []string
	keyFacts = append(keyFacts, parts...)

	decisionsPreserved := 0
	for i, d := range a.Decisions {
		if i >= 3 {
			break
		}
		keyFacts = append(keyFacts, fmt.Sprintf("Decision: %s", truncate(d.Text, 80)))
		decisionsPreserved++
	}
	learningsPreserved := 0
	for i, l := range a.Learnings {
		if i >= 3 {
			break
		}
		keyFacts = append(keyFacts, fmt.Sprintf("Learning: %s", truncate(l.Text, 80)))
		learningsPreserved++
	}

	summary := strings.Join(keyFacts, " | ")
	originalText := strings.Join(parts, "\n")
	originalTokens := len(originalText) / 4
	if originalTokens < 1 {
		originalTokens = 1
	}
	compressedTokens := len(summary) / 4

	return models.CompressionResult{
		Summary:            summary,
		KeyFacts:           keyFacts,
		DecisionsPreserved: decisionsPreserved,
		LearningsPreserved: learningsPreserved,
		OriginalTokens:     originalTokens,
		CompressedTokens:   compressedTokens,
		CompressionRatio:   float64(compressedTokens) / float64(originalTokens),
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// Promote moves id toward L1, demoting one occupant of the destination
// tier first if it is under pressure (recursion bounded to one level per
// spec §4.7).
func (t *Tiers) Promote(st *models.TieredMemoryState, id string, toTier int, now time.Time) error {
	if toTier == TierActive || toTier == TierWorking {
		if pressured, _ := t.CheckPressure(st, toTier); pressured {
			victim := t.SelectForDemotion(st, toTier, now)
			if victim != "" {
				if err := t.demoteOne(st, victim, toTier, now); err != nil {
					return err
				}
			}
		}
	}

	delete(st.L1, id)
	delete(st.L2, id)

	a, err := t.agents.Load(id)
	if err != nil {
		return err
	}
	slot := models.TierSlot{
		AgentID:       id,
		LoadedAt:      now,
		LastAccessed:  now,
		AccessCount:   1,
		TokenEstimate: EstimateTokens(a),
	}
	switch toTier {
	case TierActive:
		st.L1[id] = slot
	case TierWorking:
		st.L2[id] = slot
	}
	return nil
}

// DemoteOne steps id down exactly one tier from its current location in
// st.L1/st.L2, or from L3 to L4 if present there. Unknown ids are a no-op.
func (t *Tiers) DemoteOne(st *models.TieredMemoryState, id string, now time.Time) error {
	if _, ok := st.L1[id]; ok {
		return t.demoteOne(st, id, TierActive, now)
	}
	if _, ok := st.L2[id]; ok {
		return t.demoteOne(st, id, TierWorking, now)
	}
	for _, e := range st.L3 {
		if e.AgentID == id {
			return t.demoteOne(st, id, TierEpisodic, now)
		}
	}
	return nil
}

func (t *Tiers) demoteOne(st *models.TieredMemoryState, id string, fromTier int, now time.Time) error {
	a, err := t.agents.Load(id)
	if err != nil {
		return err
	}

	switch fromTier {
	case TierActive:
		delete(st.L1, id)
		st.L2[id] = models.TierSlot{AgentID: id, LoadedAt: now, LastAccessed: now, AccessCount: 1, TokenEstimate: EstimateTokens(a)}
		t.recordPressureEvent(st, TierActive, id, "demoted L1->L2", now)
	case TierWorking:
		delete(st.L2, id)
		if err := t.demoteToEpisodic(st, a, now); err != nil {
			return err
		}
		t.recordPressureEvent(st, TierWorking, id, "demoted L2->L3", now)
	case TierEpisodic:
		st.L3 = removeEpisodic(st.L3, id)
		if err := t.demoteToSemantic(st, a); err != nil {
			return err
		}
		t.recordPressureEvent(st, TierEpisodic, id, "consolidated L3->L4", now)
	}
	return nil
}

func (t *Tiers) demoteToEpisodic(st *models.TieredMemoryState, a *models.Agent, now time.Time) error {
	result := Compress(a)
	t.recordCompression(st, result)

	entry := models.EpisodicEntry{
		AgentID:       a.ID,
		SessionID:     a.SessionCount,
		Timestamp:     now,
		Summary:       result.Summary,
		TokenEstimate: result.CompressedTokens + 100,
	}
	for _, d := range a.Decisions {
		entry.Decisions = append(entry.Decisions, d.Text)
	}
	for _, l := range a.Learnings {
		entry.Learnings = append(entry.Learnings, l.Text)
	}
	if len(entry.Decisions) > 5 {
		entry.Decisions = entry.Decisions[:5]
	}
	if len(entry.Learnings) > 5 {
		entry.Learnings = entry.Learnings[:5]
	}
	entry.KeyContext = fmt.Sprintf("%s (%d%%)", a.Status, a.ProgressPct)

	st.L3 = append(st.L3, entry)

	return t.appendEpisodicFile(a.ID, entry)
}

func (t *Tiers) appendEpisodicFile(id string, entry models.EpisodicEntry) error {
	path := t.layout.EpisodicPath(id)
	var entries []models.EpisodicEntry
	_ = store.ReadJSON(path, &entries) // missing/corrupt file starts a fresh history
	entries = append(entries, entry)
	return store.WriteAtomicJSON(path, entries, nil)
}

// demoteToSemantic writes the permanent markdown summary into semantic/<id>.md
// and marks the agent indexed, matching spec §4.7's L3→L4 step.
func (t *Tiers) demoteToSemantic(st *models.TieredMemoryState, a *models.Agent) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# Agent: %s\n", a.ID)
	fmt.Fprintf(&b, "## Task: %s\n", a.Title)
	fmt.Fprintf(&b, "Goal: %s\n", a.Goal)
	fmt.Fprintf(&b, "Status: %s\n", a.Status)
	if len(a.Decisions) > 0 {
		b.WriteString("## Decisions\n")
		for _, d := range a.Decisions {
			fmt.Fprintf(&b, "- %s\n", d.Text)
		}
	}
	if len(a.Learnings) > 0 {
		b.WriteString("## Learnings\n")
		for _, l := range a.Learnings {
			fmt.Fprintf(&b, "- %s\n", l.Text)
		}
	}

	if err := os.MkdirAll(t.layout.SemanticDir(), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(t.layout.SemanticPath(a.ID), []byte(b.String()), 0o644); err != nil {
		return err
	}

	for _, existing := range st.Indexed {
		if existing == a.ID {
			return nil
		}
	}
	st.Indexed = append(st.Indexed, a.ID)
	return nil
}

func (t *Tiers) recordCompression(st *models.TieredMemoryState, result models.CompressionResult) {
	stats := &st.Stats
	stats.TotalCompressions++
	stats.TokensSaved += result.OriginalTokens - result.CompressedTokens
	n := float64(stats.TotalCompressions)
	stats.AverageRatio = (stats.AverageRatio*(n-1) + result.CompressionRatio) / n
}

func (t *Tiers) recordPressureEvent(st *models.TieredMemoryState, tier int, id, action string, now time.Time) {
	st.Pressure = append(st.Pressure, models.PressureEvent{Timestamp: now, Tier: tier, AgentID: id, Action: action})
	if len(st.Pressure) > 100 {
		st.Pressure = st.Pressure[len(st.Pressure)-100:]
	}
}

// CheckAndManagePressure loops L1 then L2 demoting until each is under the
// threshold, then sweeps L3 for entries older than the retention window and
// consolidates each to L4. Returns the human-readable action list.
func (t *Tiers) CheckAndManagePressure(now time.Time) ([]string, error) {
	st, err := t.Load()
	if err != nil {
		return nil, err
	}

	var actions []string
	for _, tier := range []int{TierActive, TierWorking} {
		for {
			pressured, ratio := t.CheckPressure(st, tier)
			if !pressured {
				break
			}
			victim := t.SelectForDemotion(st, tier, now)
			if victim == "" {
				break
			}
			if err := t.demoteOne(st, victim, tier, now); err != nil {
				return nil, err
			}
			actions = append(actions, fmt.Sprintf("demoted %s from L%d (pressure %.0f%%)", victim, tier, ratio*100))
		}
	}

	retentionDays := t.cfg.L3RetentionDays
	if retentionDays <= 0 {
		retentionDays = 30
	}
	cutoff := now.AddDate(0, 0, -retentionDays)

	var keep []models.EpisodicEntry
	for _, entry := range st.L3 {
		if entry.Timestamp.Before(cutoff) {
			a, err := t.agents.Load(entry.AgentID)
			if err == nil {
				if err := t.demoteToSemantic(st, a); err != nil {
					return nil, err
				}
				actions = append(actions, fmt.Sprintf("consolidated %s from L3 to L4 (last touched %s, retention %dd)", entry.AgentID, humanize.Time(entry.Timestamp), retentionDays))
			}
			continue
		}
		keep = append(keep, entry)
	}
	st.L3 = keep

	if err := t.Save(st); err != nil {
		return nil, err
	}
	return actions, nil
}

func removeEpisodic(entries []models.EpisodicEntry, id string) []models.EpisodicEntry {
	out := entries[:0]
	for _, e := range entries {
		if e.AgentID != id {
			out = append(out, e)
		}
	}
	return out
}
