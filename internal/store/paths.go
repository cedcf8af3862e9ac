package store

import "path/filepath"

// Layout resolves the fixed on-disk paths described in spec §6, rooted at
// the directory returned by app.RootDir().
type Layout struct {
	Root string
}

func NewLayout(root string) Layout { return Layout{Root: root} }

func (l Layout) ConfigPath() string         { return filepath.Join(l.Root, "config.json") }
func (l Layout) IndexPath() string          { return filepath.Join(l.Root, "index.json") }
func (l Layout) SchedulerPath() string      { return filepath.Join(l.Root, "scheduler.json") }
func (l Layout) WorkingMemoryPath() string  { return filepath.Join(l.Root, "working-memory.json") }
func (l Layout) TieredMemoryPath() string   { return filepath.Join(l.Root, "tiered-memory.json") }
func (l Layout) CognitiveLoadPath() string  { return filepath.Join(l.Root, "cognitive-load.json") }
func (l Layout) AgentsDir() string          { return filepath.Join(l.Root, "agents") }
func (l Layout) EpisodicDir() string        { return filepath.Join(l.Root, "episodic") }
func (l Layout) SemanticDir() string        { return filepath.Join(l.Root, "semantic") }
func (l Layout) CheckpointsDir() string     { return filepath.Join(l.Root, "checkpoints") }
func (l Layout) CorruptBackupDir() string   { return filepath.Join(l.Root, "corrupt-backup") }

func (l Layout) AgentPath(id string) string    { return filepath.Join(l.AgentsDir(), id+".json") }
func (l Layout) EpisodicPath(id string) string { return filepath.Join(l.EpisodicDir(), id+".json") }
func (l Layout) SemanticPath(id string) string { return filepath.Join(l.SemanticDir(), id+".md") }
