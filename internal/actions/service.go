// Package actions is the orchestration layer: it composes
// internal/store, internal/deps, internal/priority, internal/scheduler, and
// internal/memory into the operations the CLI surface (spec §6) calls.
// Grounded on the teacher's internal/actions package, which plays the same
// role between internal/commands and internal/store.
package actions

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/rfenaux/ctm/internal/config"
	"github.com/rfenaux/ctm/internal/deps"
	"github.com/rfenaux/ctm/internal/memory"
	"github.com/rfenaux/ctm/internal/models"
	"github.com/rfenaux/ctm/internal/scheduler"
	"github.com/rfenaux/ctm/internal/store"
)

// Service is the single entry point the CLI commands call into.
type Service struct {
	Layout  store.Layout
	Agents  *store.AgentStore
	Index   *store.IndexStore
	Deps    *deps.Engine
	Sched   *scheduler.Scheduler
	Tiers   *memory.Tiers
	Working *memory.WorkingPool
	Load    *memory.CognitiveLoad
	Cfg     config.Config
}

// New wires every component over a single store root. If the configured
// priority weights are missing or don't sum close to 1 (spec §7's
// ConfigMissing, which is never fatal), it falls back to the documented
// default weights for this session and logs a warning rather than erroring.
func New(root string, cfg config.Config) *Service {
	priorityCfg, usedFallback := EffectivePriorityConfig(cfg)
	if usedFallback {
		slog.Warn("priority weights missing or invalid, using documented defaults",
			"error_code", (&models.ConfigMissingError{Key: "priority.weights"}).ErrorCode())
	}

	layout := store.NewLayout(root)
	agents := store.NewAgentStore(layout)
	index := store.NewIndexStore(layout)
	depsEngine := deps.New(agents)
	sched := scheduler.New(layout, agents, index, depsEngine, priorityCfg)
	tiers := memory.NewTiers(layout, agents, cfg.MemoryTiers)
	working := memory.NewWorkingPool(layout, agents, tiers, cfg.WorkingMemory)
	load := memory.NewCognitiveLoad(layout)

	return &Service{
		Layout:  layout,
		Agents:  agents,
		Index:   index,
		Deps:    depsEngine,
		Sched:   sched,
		Tiers:   tiers,
		Working: working,
		Load:    load,
		Cfg:     cfg,
	}
}

// ResolveID resolves a possibly-partial agent id.
func (s *Service) ResolveID(prefix string) (string, error) {
	return s.Agents.ResolveIDPrefix(prefix)
}

// SpawnOptions carries every optional field spec §6's `spawn` accepts.
type SpawnOptions struct {
	Goal       string
	Project    string
	Priority   models.Priority
	Tags       []string
	Triggers   []string
	BlockedBy  []string
	SourceType string
	Deadline   *time.Time
}

// Spawn creates a new agent, wiring any --blocked-by ids through the
// dependency engine (cycle-checked the same as a post-hoc `block`).
func (s *Service) Spawn(title string, opts SpawnOptions, now time.Time) (*models.Agent, error) {
	level := opts.Priority
	if level == "" {
		level = models.PriorityNormal
	}
	a, err := s.Agents.Create(title, opts.Goal, opts.Project, level, now)
	if err != nil {
		return nil, err
	}
	a.Tags = opts.Tags
	a.Triggers = opts.Triggers
	a.Deadline = opts.Deadline
	if opts.SourceType != "" {
		a.Source.Type = opts.SourceType
	}
	if err := s.Agents.Save(a); err != nil {
		return nil, err
	}
	if err := s.Index.Add(a); err != nil {
		return nil, err
	}

	for _, blockerID := range opts.BlockedBy {
		if err := s.Deps.AddBlocker(a.ID, blockerID); err != nil {
			return nil, err
		}
	}
	if len(opts.BlockedBy) > 0 {
		a, err = s.Agents.Load(a.ID)
		if err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Switch makes id the active agent, recording an interruption event for
// whichever agent was active before (spec §4's cognitive-load bookkeeping,
// invariant 7's session-time conservation).
func (s *Service) Switch(id string, now time.Time) (*models.Agent, error) {
	previousID, err := s.Sched.SetActive(id, now)
	if err != nil {
		return nil, err
	}
	if previousID != "" && previousID != id {
		if departing, err := s.Agents.Load(previousID); err == nil {
			_ = s.Load.RecordInterruption(departing, now)
		}
	}
	return s.Agents.Load(id)
}

// Pause clears the active agent without selecting a new one. An id that is
// not the active agent is left as it is.
func (s *Service) Pause(id string, now time.Time) error {
	st, err := s.Sched.Load(now)
	if err != nil {
		return err
	}
	if id == "" {
		id = st.ActiveAgent
	}
	if id == "" || id != st.ActiveAgent {
		return nil
	}
	_, err = s.Sched.SetActive("", now)
	if err != nil {
		return err
	}
	if departing, err := s.Agents.Load(id); err == nil {
		return s.Load.RecordInterruption(departing, now)
	}
	return nil
}

// Resume reactivates a paused (or blocked-but-now-clear) agent; it is
// `switch` under another name, matching the teacher's resume/switch split
// at the CLI layer rather than in the domain logic.
func (s *Service) Resume(id string, now time.Time) (*models.Agent, error) {
	return s.Switch(id, now)
}

// Complete marks id Completed, finalizing session-time accounting and
// cascading any dependents' blockers per spec invariant 9.
func (s *Service) Complete(id string, force bool, now time.Time) error {
	a, err := s.Agents.Load(id)
	if err != nil {
		return err
	}
	if a.Status.IsTerminal() {
		return nil
	}
	if a.SessionStart != nil {
		a.TotalActiveSeconds += now.Sub(*a.SessionStart).Seconds()
		a.SessionStart = nil
	}
	a.Status = models.StatusCompleted
	if !force || a.ProgressPct < 100 {
		a.ProgressPct = 100
	}
	a.LastActive = now
	if err := s.Agents.Save(a); err != nil {
		return err
	}
	if err := s.Index.Update(a); err != nil {
		return err
	}

	if err := s.clearIfActive(id, now); err != nil {
		return err
	}

	_, err = s.Deps.CascadeUnblock(id)
	return err
}

// Cancel marks id Cancelled and cascades the same as Complete.
func (s *Service) Cancel(id string, now time.Time) error {
	a, err := s.Agents.Load(id)
	if err != nil {
		return err
	}
	if a.Status.IsTerminal() {
		return nil
	}
	if a.SessionStart != nil {
		a.TotalActiveSeconds += now.Sub(*a.SessionStart).Seconds()
		a.SessionStart = nil
	}
	a.Status = models.StatusCancelled
	a.LastActive = now
	if err := s.Agents.Save(a); err != nil {
		return err
	}
	if err := s.Index.Update(a); err != nil {
		return err
	}
	if err := s.clearIfActive(id, now); err != nil {
		return err
	}
	_, err = s.Deps.CascadeUnblock(id)
	return err
}

func (s *Service) clearIfActive(id string, now time.Time) error {
	st, err := s.Sched.Load(now)
	if err != nil {
		return err
	}
	if st.ActiveAgent != id {
		return nil
	}
	st.ActiveAgent = ""
	st.LastSwitch = &now
	return s.Sched.Save(st)
}

// priorityLadder orders levels from lowest to highest so +/- can step
// through them.
var priorityLadder = []models.Priority{
	models.PriorityBackground,
	models.PriorityLow,
	models.PriorityNormal,
	models.PriorityHigh,
	models.PriorityCritical,
}

// AdjustPriority steps an agent's priority level one rung up ("+") or down
// ("-") the ladder, and nudges user_signal in the same direction. The
// priority engine reads user_signal but not the level, so the nudge shows in
// the weighted score the next time the queue is rebuilt.
func (s *Service) AdjustPriority(id, direction string, now time.Time) (*models.Agent, error) {
	a, err := s.Agents.Load(id)
	if err != nil {
		return nil, err
	}

	idx := 2 // normal, if level is unrecognized
	for i, level := range priorityLadder {
		if level == a.Priority.Level {
			idx = i
			break
		}
	}

	delta := 0.2
	switch direction {
	case "+":
		if idx < len(priorityLadder)-1 {
			idx++
		}
	case "-":
		delta = -delta
		if idx > 0 {
			idx--
		}
	default:
		return nil, fmt.Errorf("priority direction must be + or -, got %q", direction)
	}

	a.Priority.Level = priorityLadder[idx]
	a.Priority.UserSignal = clampSignal(a.Priority.UserSignal + delta)
	a.LastActive = now
	if err := s.Agents.Save(a); err != nil {
		return nil, err
	}
	return a, s.Index.Update(a)
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

// SetDeadline sets or clears id's deadline.
func (s *Service) SetDeadline(id string, deadline *time.Time, now time.Time) (*models.Agent, error) {
	a, err := s.Agents.Load(id)
	if err != nil {
		return nil, err
	}
	a.Deadline = deadline
	a.LastActive = now
	if err := s.Agents.Save(a); err != nil {
		return nil, err
	}
	return a, s.Index.Update(a)
}

// Deadlines returns every non-terminal agent carrying a deadline, soonest
// first.
func (s *Service) Deadlines() ([]*models.Agent, error) {
	ids, err := s.Agents.ListIDs()
	if err != nil {
		return nil, err
	}
	var out []*models.Agent
	for _, id := range ids {
		a, err := s.Agents.Load(id)
		if err != nil || a.Status.IsTerminal() || a.Deadline == nil {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Deadline.Before(*out[j].Deadline) })
	return out, nil
}

// Block inserts blockerID as a blocker of id.
func (s *Service) Block(id, blockerID string) error {
	return s.Deps.AddBlocker(id, blockerID)
}

// Unblock removes fromID as a blocker of id; if fromID is empty, every
// blocker is removed.
func (s *Service) Unblock(id, fromID string) error {
	if fromID != "" {
		return s.Deps.RemoveBlocker(id, fromID)
	}
	a, err := s.Agents.Load(id)
	if err != nil {
		return err
	}
	for _, b := range append([]string(nil), a.Blockers...) {
		if err := s.Deps.RemoveBlocker(id, b); err != nil {
			return err
		}
	}
	return nil
}

// Queue rebuilds and returns the priority queue, optionally pinning the
// scheduler's project context first.
func (s *Service) Queue(project string, now time.Time) (*models.SchedulerState, error) {
	return s.Sched.RebuildQueue(project, now)
}

// priorityConfigWeightsOK is a defensive check the service runs once at
// startup: if the configured weights don't sum close to 1, spec §7's
// ConfigMissing fallback logs a warning and the documented default weights
// are used for that session instead of the merged config's.
func priorityConfigWeightsOK(w config.Weights) bool {
	sum := w.Urgency + w.Recency + w.Value + w.Novelty + w.UserSignal + w.ErrorBoost
	return sum > 0.99 && sum < 1.01
}

// EffectivePriorityConfig returns cfg.Priority, or the documented defaults
// (with a caller-visible flag) if the weights are missing/invalid.
func EffectivePriorityConfig(cfg config.Config) (config.PriorityConfig, bool) {
	if priorityConfigWeightsOK(cfg.Priority.Weights) {
		return cfg.Priority, false
	}
	return config.Defaults().Priority, true
}
