package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/rfenaux/ctm/internal/models"
)

// AgentStore is the Persistent Store (C1) for Agent entities: atomic
// per-file JSON with an mtime-keyed LRU cache, matching spec §4.1.
type AgentStore struct {
	layout Layout
	cache  *agentCache
}

// NewAgentStore returns a store rooted at layout, with the default cache
// capacity of 20 agents.
func NewAgentStore(layout Layout) *AgentStore {
	return &AgentStore{layout: layout, cache: newAgentCache(20)}
}

// Create builds a new agent with the documented defaults (spec §3/§4.2) and
// persists it.
func (s *AgentStore) Create(title, goal, project string, priority models.Priority, now time.Time) (*models.Agent, error) {
	a := &models.Agent{
		ID:      NewAgentID(),
		Version: 1,
		Title:   title,
		Goal:    goal,
		Project:  project,
		Status:   models.StatusPaused,
		Priority: models.PriorityInputs{
			Level:         priority,
			Urgency:       0.5,
			Value:         0.5,
			Novelty:       1.0,
			UserSignal:    0.0,
			ComputedScore: 0.5,
		},
		CreatedAt:  now,
		LastActive: now,
		Source: models.Source{
			Type:      "cli",
			Timestamp: now,
		},
	}
	if err := s.Save(a); err != nil {
		return nil, err
	}
	return a, nil
}

// Save atomically writes a to disk, validating the round-tripped bytes
// decode to the same id before committing, then refreshes the cache.
func (s *AgentStore) Save(a *models.Agent) error {
	a.ClampProgress()
	path := s.layout.AgentPath(a.ID)

	err := WriteAtomicJSON(path, a, func(roundTripped []byte) error {
		var check models.Agent
		if err := json.Unmarshal(roundTripped, &check); err != nil {
			return err
		}
		if check.ID != a.ID {
			return fmt.Errorf("round-trip id mismatch: wrote %q, read back %q", a.ID, check.ID)
		}
		return nil
	})
	if err != nil {
		s.cache.invalidate(a.ID)
		return err
	}

	if fi, statErr := os.Stat(path); statErr == nil {
		s.cache.put(a.ID, a, fi.ModTime())
	}
	return nil
}

// Load reads the agent with the given id, applying v0→v1 schema migration
// if the on-disk document is in the legacy flat shape. Returns
// *models.NotFoundError if no file exists.
func (s *AgentStore) Load(id string) (*models.Agent, error) {
	path := s.layout.AgentPath(id)

	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &models.NotFoundError{Kind: "agent", ID: id}
		}
		return nil, err
	}

	if cached, mtime, ok := s.cache.get(id); ok && mtime.Equal(fi.ModTime()) {
		cp := *cached
		return &cp, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	agent, migrated, err := decodeAgent(raw)
	if err != nil {
		return nil, &models.CorruptStoreError{Path: path, Err: err}
	}
	if agent.ID == "" {
		agent.ID = id
	}

	if migrated {
		if err := s.Save(agent); err != nil {
			return nil, err
		}
	} else {
		s.cache.put(id, agent, fi.ModTime())
	}

	cp := *agent
	return &cp, nil
}

// Delete removes the agent's file and invalidates its cache entry.
func (s *AgentStore) Delete(id string) error {
	s.cache.invalidate(id)
	path := s.layout.AgentPath(id)
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return &models.NotFoundError{Kind: "agent", ID: id}
		}
		return err
	}
	return nil
}

// ListIDs scans the agents directory and returns every agent id present on
// disk, sorted for deterministic iteration.
func (s *AgentStore) ListIDs() ([]string, error) {
	entries, err := os.ReadDir(s.layout.AgentsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}

// ResolveIDPrefix resolves a possibly-partial id against the agents
// directory, returning *models.AmbiguousError when more than one id
// matches and *models.NotFoundError when none do. An exact match always
// wins even if it is also a prefix of other ids.
func (s *AgentStore) ResolveIDPrefix(prefix string) (string, error) {
	ids, err := s.ListIDs()
	if err != nil {
		return "", err
	}
	var matches []string
	for _, id := range ids {
		if id == prefix {
			return id, nil
		}
		if strings.HasPrefix(id, prefix) {
			matches = append(matches, id)
		}
	}
	switch len(matches) {
	case 0:
		return "", &models.NotFoundError{Kind: "agent", ID: prefix}
	case 1:
		return matches[0], nil
	default:
		return "", &models.AmbiguousError{Prefix: prefix, Candidates: matches}
	}
}

// v0Markers are the top-level keys present only in the legacy flat schema;
// their presence without the v1 "priority" object triggers migration.
var v0Markers = []string{"title", "status", "progress"}

// decodeAgent parses raw JSON into an Agent, detecting and migrating the
// legacy v0 flat schema per spec §4.1. Returns migrated=true when the v0
// path was taken, so the caller can persist the upgraded document.
func decodeAgent(raw []byte) (*models.Agent, bool, error) {
	var generic map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, false, err
	}

	if isV0Schema(generic) {
		agent := migrateV0ToV1(generic)
		return agent, true, nil
	}

	var agent models.Agent
	if err := json.Unmarshal(raw, &agent); err != nil {
		return nil, false, err
	}
	return &agent, false, nil
}

func isV0Schema(doc map[string]any) bool {
	if _, hasPriorityObj := doc["priority"].(map[string]any); hasPriorityObj {
		return false
	}
	for _, marker := range v0Markers {
		if _, ok := doc[marker]; !ok {
			return false
		}
	}
	return true
}

// migrateV0ToV1 rewrites a legacy flat document into the current nested
// Agent shape, preserving recognizable fields and recording migration audit
// metadata. Unrecognized fields are dropped with a warning, matching spec
// §4.1 ("Unknown fields are dropped with a warning to stderr").
func migrateV0ToV1(doc map[string]any) *models.Agent {
	now := time.Now().UTC()

	known := map[string]bool{
		"id": true, "title": true, "goal": true, "status": true, "progress": true,
		"project": true, "created_at": true, "last_active": true, "priority": true,
		"priority_level": true, "tags": true,
	}
	for k := range doc {
		if !known[k] {
			slog.Warn("dropping unrecognized field during v0->v1 agent migration", "field", k)
		}
	}

	a := &models.Agent{
		ID:         str(doc["id"]),
		Version:    1,
		Title:      str(doc["title"]),
		Goal:       str(doc["goal"]),
		Project:    str(doc["project"]),
		Status:     models.Status(str(doc["status"])),
		CreatedAt:  now,
		LastActive: now,
		Priority: models.PriorityInputs{
			Level:         models.Priority(str(doc["priority_level"])),
			Urgency:       0.5,
			Value:         0.5,
			Novelty:       1.0,
			ComputedScore: 0.5,
		},
		Migration: &models.Migration{
			MigratedFrom: "v0",
			MigrationAt:  now,
			Legacy:       doc,
		},
	}
	if t, err := time.Parse(time.RFC3339, str(doc["created_at"])); err == nil {
		a.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, str(doc["last_active"])); err == nil {
		a.LastActive = t
	}
	if a.Priority.Level == "" {
		a.Priority.Level = models.Priority(str(doc["priority"]))
	}
	if p, ok := doc["progress"].(float64); ok {
		a.ProgressPct = int(p)
	}
	a.ClampProgress()
	if a.Status == "" {
		a.Status = models.StatusPaused
	}
	if tags, ok := doc["tags"].([]any); ok {
		for _, t := range tags {
			a.Tags = append(a.Tags, str(t))
		}
	}
	return a
}

func str(v any) string {
	s, _ := v.(string)
	return s
}
