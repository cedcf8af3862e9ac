// Package deps implements the Dependency Engine (C5): the blocker graph
// formed by each agent's Blockers list, cycle prevention, and cascade
// unblocking on completion. Grounded stylistically on the teacher's
// SQL-based BFS cycle check (internal/store/task_deps.go in the source
// retrieval pack), translated here to an in-memory adjacency walk since
// there is no database — every agent owns its own Blockers list per spec §9.
package deps

import (
	"github.com/rfenaux/ctm/internal/models"
	"github.com/rfenaux/ctm/internal/store"
)

const maxCycleNodes = 1000

// Engine operates the dependency graph over an AgentStore.
type Engine struct {
	agents *store.AgentStore
}

func New(agents *store.AgentStore) *Engine { return &Engine{agents: agents} }

// AddBlocker inserts the edge blocked ← blocker: blocked now waits on
// blocker. Rejects with *models.WouldCycleError if blocker already
// (transitively) depends on blocked — i.e. inserting the edge would close a
// cycle — checked by BFS before any mutation.
func (e *Engine) AddBlocker(blockedID, blockerID string) error {
	if blockedID == blockerID {
		return &models.WouldCycleError{Blocked: blockedID, Blocker: blockerID}
	}

	cyclic, err := e.reaches(blockerID, blockedID)
	if err != nil {
		return err
	}
	if cyclic {
		return &models.WouldCycleError{Blocked: blockedID, Blocker: blockerID}
	}

	blocked, err := e.agents.Load(blockedID)
	if err != nil {
		return err
	}
	if _, err := e.agents.Load(blockerID); err != nil {
		return err
	}

	for _, b := range blocked.Blockers {
		if b == blockerID {
			return nil // already present
		}
	}
	blocked.Blockers = append(blocked.Blockers, blockerID)

	unresolved, err := e.IsBlocked(blocked)
	if err != nil {
		return err
	}
	if unresolved && !blocked.Status.IsTerminal() {
		blocked.Status = models.StatusBlocked
	}

	return e.agents.Save(blocked)
}

// RemoveBlocker drops the edge blocked ← blocker.
func (e *Engine) RemoveBlocker(blockedID, blockerID string) error {
	blocked, err := e.agents.Load(blockedID)
	if err != nil {
		return err
	}
	blocked.Blockers = removeString(blocked.Blockers, blockerID)
	return e.agents.Save(blocked)
}

// IsBlocked reports whether any of a's blockers is still non-terminal.
func (e *Engine) IsBlocked(a *models.Agent) (bool, error) {
	for _, b := range a.Blockers {
		blocker, err := e.agents.Load(b)
		if err != nil {
			if _, ok := err.(*models.NotFoundError); ok {
				continue // a blocker id with no file behind it can't block anything
			}
			return false, err
		}
		if !blocker.Status.IsTerminal() {
			return true, nil
		}
	}
	return false, nil
}

// FindDependents returns the ids of every agent whose Blockers list contains id.
func (e *Engine) FindDependents(id string) ([]string, error) {
	ids, err := e.agents.ListIDs()
	if err != nil {
		return nil, err
	}
	var dependents []string
	for _, candidateID := range ids {
		a, err := e.agents.Load(candidateID)
		if err != nil {
			continue
		}
		for _, b := range a.Blockers {
			if b == id {
				dependents = append(dependents, candidateID)
				break
			}
		}
	}
	return dependents, nil
}

// HighImpactCount is one agent's id paired with its dependent count.
type HighImpactCount struct {
	ID    string
	Count int
}

// HighImpactBlockers returns, for each non-terminal agent, its dependent
// count, filtered to count ≥ min.
func (e *Engine) HighImpactBlockers(min int) ([]HighImpactCount, error) {
	ids, err := e.agents.ListIDs()
	if err != nil {
		return nil, err
	}
	var results []HighImpactCount
	for _, id := range ids {
		a, err := e.agents.Load(id)
		if err != nil || a.Status.IsTerminal() {
			continue
		}
		dependents, err := e.FindDependents(id)
		if err != nil {
			return nil, err
		}
		if len(dependents) >= min {
			results = append(results, HighImpactCount{ID: id, Count: len(dependents)})
		}
	}
	return results, nil
}

// CascadeUnblock is called when an agent transitions to Completed or
// Cancelled. For every dependent, it removes the completed agent from the
// dependent's blockers and, if no blockers remain and the dependent was
// Blocked, transitions it to Paused. Returns the ids actually unblocked.
func (e *Engine) CascadeUnblock(completedID string) ([]string, error) {
	dependents, err := e.FindDependents(completedID)
	if err != nil {
		return nil, err
	}

	var unblocked []string
	for _, depID := range dependents {
		dep, err := e.agents.Load(depID)
		if err != nil {
			continue
		}
		dep.Blockers = removeString(dep.Blockers, completedID)

		stillBlocked, err := e.IsBlocked(dep)
		if err != nil {
			return nil, err
		}
		if !stillBlocked && dep.Status == models.StatusBlocked {
			dep.Status = models.StatusPaused
			unblocked = append(unblocked, depID)
		}
		if err := e.agents.Save(dep); err != nil {
			return nil, err
		}
	}
	return unblocked, nil
}

// reaches performs a bounded BFS over the blocker graph starting at fromID,
// following each visited agent's Blockers edges, and reports whether toID is
// reachable. A true result when called as reaches(blockerID, blockedID)
// means blockerID already depends (transitively) on blockedID, so adding
// blockedID ← blockerID would close a cycle.
func (e *Engine) reaches(fromID, toID string) (bool, error) {
	visited := map[string]bool{fromID: true}
	queue := []string{fromID}
	examined := 0

	for len(queue) > 0 && examined < maxCycleNodes {
		current := queue[0]
		queue = queue[1:]
		examined++

		a, err := e.agents.Load(current)
		if err != nil {
			if _, ok := err.(*models.NotFoundError); ok {
				continue
			}
			return false, err
		}

		for _, next := range a.Blockers {
			if next == toID {
				return true, nil
			}
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}
	return false, nil
}

func removeString(ids []string, target string) []string {
	out := ids[:0]
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}
