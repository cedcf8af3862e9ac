// Package scheduler implements the Scheduler (C6): active-agent selection,
// priority-queue rebuild, session timing, preemption, and project-context
// detection. Grounded on _examples/original_source/ctm/lib/scheduler.py,
// the canonical source this component was distilled from.
package scheduler

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rfenaux/ctm/internal/config"
	"github.com/rfenaux/ctm/internal/deps"
	"github.com/rfenaux/ctm/internal/models"
	"github.com/rfenaux/ctm/internal/priority"
	"github.com/rfenaux/ctm/internal/store"
)

// projectMarkers are the files/directories detect_project_context walks
// upward looking for, matching spec §4.6 verbatim.
var projectMarkers = []string{".git", ".claude", "package.json", "pyproject.toml", "Cargo.toml"}

// Scheduler owns scheduler.json and orchestrates the agent/index/deps layers
// beneath it.
type Scheduler struct {
	layout store.Layout
	agents *store.AgentStore
	index  *store.IndexStore
	deps   *deps.Engine
	cfg    config.PriorityConfig

	// cacheMu guards cached/cacheMtime: the module-level scheduler value
	// cached with the mtime of scheduler.json, per spec §4.6. Re-read only
	// happens when the on-disk mtime has moved or Save invalidated it.
	cacheMu    sync.Mutex
	cached     *models.SchedulerState
	cacheMtime time.Time
}

func New(layout store.Layout, agents *store.AgentStore, index *store.IndexStore, depsEngine *deps.Engine, cfg config.PriorityConfig) *Scheduler {
	return &Scheduler{layout: layout, agents: agents, index: index, deps: depsEngine, cfg: cfg}
}

// Load reads scheduler.json, returning a fresh document (session clock
// started now) if none exists yet. The result is cached keyed by the state
// file's mtime (spec §4.6): a second Load with no intervening Save from any
// process returns the cached value without touching disk.
func (s *Scheduler) Load(now time.Time) (*models.SchedulerState, error) {
	path := s.layout.SchedulerPath()

	fi, statErr := os.Stat(path)
	if statErr == nil {
		s.cacheMu.Lock()
		if s.cached != nil && s.cacheMtime.Equal(fi.ModTime()) {
			cp := *s.cached
			s.cacheMu.Unlock()
			return &cp, nil
		}
		s.cacheMu.Unlock()
	} else if !os.IsNotExist(statErr) {
		return nil, statErr
	}

	st := models.NewSchedulerState(now)
	err := store.ReadJSON(path, st)
	if err != nil {
		if os.IsNotExist(err) {
			return models.NewSchedulerState(now), nil
		}
		return nil, err
	}

	if fi, statErr := os.Stat(path); statErr == nil {
		s.cacheMu.Lock()
		cp := *st
		s.cached = &cp
		s.cacheMtime = fi.ModTime()
		s.cacheMu.Unlock()
	}
	return st, nil
}

// Save persists st atomically and refreshes the mtime-keyed cache so the
// next Load in this process sees it without a re-read.
func (s *Scheduler) Save(st *models.SchedulerState) error {
	if err := store.WriteAtomicJSON(s.layout.SchedulerPath(), st, nil); err != nil {
		s.invalidateCache()
		return err
	}
	if fi, err := os.Stat(s.layout.SchedulerPath()); err == nil {
		s.cacheMu.Lock()
		cp := *st
		s.cached = &cp
		s.cacheMtime = fi.ModTime()
		s.cacheMu.Unlock()
	}
	return nil
}

func (s *Scheduler) invalidateCache() {
	s.cacheMu.Lock()
	s.cached = nil
	s.cacheMu.Unlock()
}

// DetectProjectContext walks upward from cwd looking for one of the
// documented project markers and returns the first hit, else cwd itself.
func DetectProjectContext(cwd string) string {
	dir := cwd
	for {
		for _, marker := range projectMarkers {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return cwd
		}
		dir = parent
	}
}

// RebuildQueue enumerates every non-terminal agent, resolves Blocked status
// against the dependency graph, computes each one's priority score, and
// persists both the sorted queue and each agent's new computed_score.
// If project is non-empty, project_context is updated first.
func (s *Scheduler) RebuildQueue(project string, now time.Time) (*models.SchedulerState, error) {
	st, err := s.Load(now)
	if err != nil {
		return nil, err
	}
	if project != "" {
		st.ProjectContext = project
	}

	ids, err := s.index.GetAllActive()
	if err != nil {
		return nil, err
	}

	var entries []models.QueueEntry
	for _, id := range ids {
		a, err := s.agents.Load(id)
		if err != nil {
			continue
		}
		if a.Status.IsTerminal() {
			continue
		}

		blocked, err := s.deps.IsBlocked(a)
		if err != nil {
			return nil, err
		}

		if blocked {
			if a.Status != models.StatusBlocked {
				a.Status = models.StatusBlocked
				if err := s.persistAgent(a); err != nil {
					return nil, err
				}
			}
			continue
		}

		if a.Status == models.StatusBlocked {
			a.Status = models.StatusPaused
		}

		score := priority.Compute(a, now, s.cfg, st.ProjectContext)
		a.Priority.ComputedScore = score
		if err := s.persistAgent(a); err != nil {
			return nil, err
		}

		entries = append(entries, models.QueueEntry{ID: a.ID, Score: score})
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Score > entries[j].Score })
	st.PriorityQueue = entries

	if err := s.Save(st); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *Scheduler) persistAgent(a *models.Agent) error {
	if err := s.agents.Save(a); err != nil {
		return err
	}
	return s.index.Update(a)
}

// SetActive switches the active agent from the scheduler's current
// active_agent to newID (which may be empty to just pause the current
// agent). Returns the previous active id so callers (internal/actions) can
// fold in cognitive-load bookkeeping.
func (s *Scheduler) SetActive(newID string, now time.Time) (previousID string, err error) {
	st, err := s.Load(now)
	if err != nil {
		return "", err
	}
	previousID = st.ActiveAgent

	if previousID != "" && previousID != newID {
		old, err := s.agents.Load(previousID)
		if err == nil {
			if old.SessionStart != nil {
				old.TotalActiveSeconds += now.Sub(*old.SessionStart).Seconds()
				old.SessionStart = nil
			}
			old.Status = models.StatusPaused
			old.LastActive = now
			if err := s.persistAgent(old); err != nil {
				return "", err
			}
		}
	}

	if newID != "" {
		a, err := s.agents.Load(newID)
		if err != nil {
			return "", err
		}
		if a.Status.IsTerminal() {
			return "", fmt.Errorf("agent %s is %s and cannot become active", newID, a.Status)
		}
		blocked, err := s.deps.IsBlocked(a)
		if err != nil {
			return "", err
		}
		if blocked {
			return "", &models.BlockedTransitionError{ID: newID, Blockers: a.Blockers}
		}
		a.Status = models.StatusActive
		a.SessionStart = &now
		a.SessionCount++
		a.LastActive = now
		if err := s.persistAgent(a); err != nil {
			return "", err
		}
	}

	st.ActiveAgent = newID
	st.LastSwitch = &now
	st.Session.Switches++
	if err := s.Save(st); err != nil {
		return "", err
	}
	return previousID, nil
}

// PreemptCheck rebuilds the queue, then reports the id of a higher-priority
// agent if one exists whose score exceeds current's by more than 0.20.
func (s *Scheduler) PreemptCheck(currentID string, now time.Time) (string, bool, error) {
	st, err := s.RebuildQueue("", now)
	if err != nil {
		return "", false, err
	}
	if len(st.PriorityQueue) == 0 {
		return "", false, nil
	}

	top := st.PriorityQueue[0]
	if top.ID == currentID {
		return "", false, nil
	}

	current, err := s.agents.Load(currentID)
	if err != nil {
		return top.ID, top.Score > 0.20, nil
	}
	if top.Score > current.Priority.ComputedScore+0.20 {
		return top.ID, true, nil
	}
	return "", false, nil
}
