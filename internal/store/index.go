package store

import (
	"os"
	"sort"

	"github.com/rfenaux/ctm/internal/models"
)

// IndexStore persists the secondary index (C3) described in spec §4.3.
type IndexStore struct {
	layout Layout
}

func NewIndexStore(layout Layout) *IndexStore { return &IndexStore{layout: layout} }

// Load reads index.json, returning a fresh empty index if the file is
// missing (a brand-new store has no index yet).
func (s *IndexStore) Load() (*models.Index, error) {
	idx := models.NewIndex()
	err := ReadJSON(s.layout.IndexPath(), idx)
	if err != nil {
		if os.IsNotExist(err) {
			return models.NewIndex(), nil
		}
		return nil, err
	}
	if idx.Agents == nil {
		idx.Agents = make(map[string]models.AgentSummary)
	}
	if idx.ByStatus == nil {
		idx.ByStatus = make(map[models.Status][]string)
	}
	if idx.ByProject == nil {
		idx.ByProject = make(map[string][]string)
	}
	return idx, nil
}

// Save writes idx atomically. The index carries no identity field to
// cross-check on round-trip, so no validator is passed.
func (s *IndexStore) Save(idx *models.Index) error {
	return WriteAtomicJSON(s.layout.IndexPath(), idx, nil)
}

// Add inserts or overwrites the summary projection for agent a and persists.
func (s *IndexStore) Add(a *models.Agent) error {
	idx, err := s.Load()
	if err != nil {
		return err
	}
	applySummary(idx, a)
	return s.Save(idx)
}

// Update is an alias for Add: both add(agent) and update(agent) rewrite the
// index atomically per spec §4.3.
func (s *IndexStore) Update(a *models.Agent) error {
	return s.Add(a)
}

// Remove drops id from every bucket and persists.
func (s *IndexStore) Remove(id string) error {
	idx, err := s.Load()
	if err != nil {
		return err
	}
	removeFromIndex(idx, id)
	return s.Save(idx)
}

func applySummary(idx *models.Index, a *models.Agent) {
	removeFromIndex(idx, a.ID)

	idx.Agents[a.ID] = models.AgentSummary{
		ID:            a.ID,
		Title:         a.Title,
		Project:       a.Project,
		Status:        a.Status,
		PriorityScore: a.Priority.ComputedScore,
		LastActive:    a.LastActive,
		Tags:          a.Tags,
	}
	idx.ByStatus[a.Status] = append(idx.ByStatus[a.Status], a.ID)
	if a.Project != "" {
		idx.ByProject[a.Project] = append(idx.ByProject[a.Project], a.ID)
	}
}

func removeFromIndex(idx *models.Index, id string) {
	if existing, ok := idx.Agents[id]; ok {
		idx.ByStatus[existing.Status] = removeID(idx.ByStatus[existing.Status], id)
		if existing.Project != "" {
			idx.ByProject[existing.Project] = removeID(idx.ByProject[existing.Project], id)
			if len(idx.ByProject[existing.Project]) == 0 {
				delete(idx.ByProject, existing.Project)
			}
		}
	}
	delete(idx.Agents, id)
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}

// GetByStatus returns the id list for status s.
func (s *IndexStore) GetByStatus(status models.Status) ([]string, error) {
	idx, err := s.Load()
	if err != nil {
		return nil, err
	}
	return idx.ByStatus[status], nil
}

// GetByProject returns the id list for project path p.
func (s *IndexStore) GetByProject(project string) ([]string, error) {
	idx, err := s.Load()
	if err != nil {
		return nil, err
	}
	return idx.ByProject[project], nil
}

// GetAllActive returns the union Active ∪ Paused ∪ Blocked.
func (s *IndexStore) GetAllActive() ([]string, error) {
	idx, err := s.Load()
	if err != nil {
		return nil, err
	}
	var all []string
	for _, st := range []models.Status{models.StatusActive, models.StatusPaused, models.StatusBlocked} {
		all = append(all, idx.ByStatus[st]...)
	}
	return all, nil
}

// GetInfo returns the summary projection for id.
func (s *IndexStore) GetInfo(id string) (models.AgentSummary, bool, error) {
	idx, err := s.Load()
	if err != nil {
		return models.AgentSummary{}, false, err
	}
	info, ok := idx.Agents[id]
	return info, ok, nil
}

// Rebuild scans the agents directory from scratch and reconstructs the
// index, matching spec §4.3's repair mode: orphans (indexed ids without a
// file) are dropped implicitly because the index is rebuilt from nothing,
// and every file on disk is re-added with its current status.
func (s *IndexStore) Rebuild(agents *AgentStore) (*models.Index, error) {
	ids, err := agents.ListIDs()
	if err != nil {
		return nil, err
	}
	idx := models.NewIndex()
	for _, id := range ids {
		a, err := agents.Load(id)
		if err != nil {
			continue // unparseable agent files are quarantined by repair, not indexed
		}
		applySummary(idx, a)
	}
	for status := range idx.ByStatus {
		sort.Strings(idx.ByStatus[status])
	}
	if err := s.Save(idx); err != nil {
		return nil, err
	}
	return idx, nil
}
