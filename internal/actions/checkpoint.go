package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/rfenaux/ctm/internal/models"
	"github.com/rfenaux/ctm/internal/store"
)

// CheckpointDiff summarizes what changed since the previous checkpoint,
// mirroring the teacher's CheckpointDiff shape.
type CheckpointDiff struct {
	StatusChanges    map[string]string `json:"status_changes,omitempty"` // id -> "old->new"
	ScoreDeltas      map[string]float64 `json:"score_deltas,omitempty"`
	NewlyCompleted   []string          `json:"newly_completed,omitempty"`
}

// CheckpointResult is returned by Checkpoint, named after the teacher's
// CheckpointResult{EventID, Snapshot, Diff} with EventID replaced by Name.
type CheckpointResult struct {
	Name string          `json:"name"`
	Diff *CheckpointDiff `json:"diff,omitempty"`
}

type checkpointSnapshot struct {
	Agents map[string]models.AgentSummary `json:"agents"`
}

// Checkpoint snapshots every non-terminal agent (or just id, if given), the
// scheduler state, and the index into checkpoints/<timestamp>/, per
// SPEC_FULL §4.9.
func (s *Service) Checkpoint(id string, now time.Time) (*CheckpointResult, error) {
	name := now.UTC().Format("20060102T150405Z")
	dir := filepath.Join(s.Layout.CheckpointsDir(), name)
	if err := os.MkdirAll(filepath.Join(dir, "agents"), 0o755); err != nil {
		return nil, err
	}

	var ids []string
	if id != "" {
		ids = []string{id}
	} else {
		all, err := s.Agents.ListIDs()
		if err != nil {
			return nil, err
		}
		for _, candidateID := range all {
			a, err := s.Agents.Load(candidateID)
			if err == nil && !a.Status.IsTerminal() {
				ids = append(ids, candidateID)
			}
		}
	}

	snapshot := checkpointSnapshot{Agents: make(map[string]models.AgentSummary)}
	for _, agentID := range ids {
		a, err := s.Agents.Load(agentID)
		if err != nil {
			continue
		}
		raw, err := os.ReadFile(s.Layout.AgentPath(agentID))
		if err != nil {
			continue
		}
		if err := os.WriteFile(filepath.Join(dir, "agents", agentID+".json"), raw, 0o644); err != nil {
			return nil, err
		}
		snapshot.Agents[agentID] = models.AgentSummary{
			ID: a.ID, Title: a.Title, Project: a.Project, Status: a.Status,
			PriorityScore: a.Priority.ComputedScore, LastActive: a.LastActive, Tags: a.Tags,
		}
	}

	if err := copyIfExists(s.Layout.SchedulerPath(), filepath.Join(dir, "scheduler.json")); err != nil {
		return nil, err
	}
	if err := copyIfExists(s.Layout.IndexPath(), filepath.Join(dir, "index.json")); err != nil {
		return nil, err
	}

	snapPath := filepath.Join(dir, "snapshot.json")
	snapBytes, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(snapPath, snapBytes, 0o644); err != nil {
		return nil, err
	}

	diff := s.diffAgainstPreviousCheckpoint(name, snapshot)

	return &CheckpointResult{Name: name, Diff: diff}, nil
}

func copyIfExists(src, dst string) error {
	raw, err := os.ReadFile(src)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return os.WriteFile(dst, raw, 0o644)
}

// diffAgainstPreviousCheckpoint compares the new snapshot against the most
// recent prior checkpoint directory, if any.
func (s *Service) diffAgainstPreviousCheckpoint(newName string, newSnap checkpointSnapshot) *CheckpointDiff {
	names, err := listCheckpoints(s.Layout.CheckpointsDir())
	if err != nil || len(names) < 2 {
		return nil
	}
	// names is sorted ascending; the second-to-last is the previous one.
	prevName := names[len(names)-2]
	if prevName == newName {
		return nil
	}
	prevPath := filepath.Join(s.Layout.CheckpointsDir(), prevName, "snapshot.json")
	raw, err := os.ReadFile(prevPath)
	if err != nil {
		return nil
	}
	var prevSnap checkpointSnapshot
	if err := json.Unmarshal(raw, &prevSnap); err != nil {
		return nil
	}

	diff := &CheckpointDiff{
		StatusChanges: make(map[string]string),
		ScoreDeltas:   make(map[string]float64),
	}
	for id, cur := range newSnap.Agents {
		if prev, ok := prevSnap.Agents[id]; ok {
			if prev.Status != cur.Status {
				diff.StatusChanges[id] = fmt.Sprintf("%s->%s", prev.Status, cur.Status)
				if cur.Status == models.StatusCompleted {
					diff.NewlyCompleted = append(diff.NewlyCompleted, id)
				}
			}
			if delta := cur.PriorityScore - prev.PriorityScore; delta != 0 {
				diff.ScoreDeltas[id] = delta
			}
		}
	}
	// Agents that reached a terminal status drop out of a full snapshot, so
	// compare the previous snapshot's missing ids against their current state.
	for id, prev := range prevSnap.Agents {
		if _, ok := newSnap.Agents[id]; ok {
			continue
		}
		a, err := s.Agents.Load(id)
		if err != nil || a.Status == prev.Status {
			continue
		}
		diff.StatusChanges[id] = fmt.Sprintf("%s->%s", prev.Status, a.Status)
		if a.Status == models.StatusCompleted {
			diff.NewlyCompleted = append(diff.NewlyCompleted, id)
		}
	}
	return diff
}

func listCheckpoints(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Restore copies a checkpoint's snapshotted files back over agents/,
// scheduler.json, and index.json, using the same atomic-write discipline as
// every other write in this system. With name empty, the most recent
// checkpoint is used.
func (s *Service) Restore(name string) error {
	dir := s.Layout.CheckpointsDir()
	if name == "" {
		names, err := listCheckpoints(dir)
		if err != nil {
			return err
		}
		if len(names) == 0 {
			return &models.NotFoundError{Kind: "checkpoint", ID: "<latest>"}
		}
		name = names[len(names)-1]
	}

	cpDir := filepath.Join(dir, name)
	if _, err := os.Stat(cpDir); err != nil {
		if os.IsNotExist(err) {
			return &models.NotFoundError{Kind: "checkpoint", ID: name}
		}
		return err
	}

	agentFiles, err := os.ReadDir(filepath.Join(cpDir, "agents"))
	if err == nil {
		for _, f := range agentFiles {
			raw, err := os.ReadFile(filepath.Join(cpDir, "agents", f.Name()))
			if err != nil {
				continue
			}
			if err := atomicRestore(filepath.Join(s.Layout.AgentsDir(), f.Name()), raw); err != nil {
				return err
			}
		}
	}

	if raw, err := os.ReadFile(filepath.Join(cpDir, "scheduler.json")); err == nil {
		if err := atomicRestore(s.Layout.SchedulerPath(), raw); err != nil {
			return err
		}
	}
	if raw, err := os.ReadFile(filepath.Join(cpDir, "index.json")); err == nil {
		if err := atomicRestore(s.Layout.IndexPath(), raw); err != nil {
			return err
		}
	}
	return nil
}

// atomicRestore writes data to dest via temp-write+rename inside
// store.RetryWithBackoff, which retries only EWOULDBLOCK/EAGAIN errors; a
// failed temp write or any other rename error ends the attempt at once.
func atomicRestore(dest string, data []byte) error {
	if dir := filepath.Dir(dest); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := dest + ".restore-tmp"

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return store.RetryWithBackoff(ctx, func() error {
		if err := os.WriteFile(tmp, data, 0o644); err != nil {
			return backoff.Permanent(err)
		}
		return os.Rename(tmp, dest)
	})
}
