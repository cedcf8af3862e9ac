package models

import "time"

// ID strategy: agents use an 8 hex character opaque token generated from a
// UUID source (see internal/store/id.go). Episodic and semantic records are
// keyed by the owning agent's id, so no separate id space is needed there.

// Status represents the lifecycle state of an agent.
type Status string

// Agent lifecycle states. Completed and Cancelled are terminal: once set,
// no further transition is legal.
const (
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusBlocked   Status = "blocked"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// IsTerminal returns true for Completed and Cancelled.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Priority is the user-facing priority level. The priority engine does not
// read it; its score comes from the raw floats in PriorityInputs.
type Priority string

// Priority levels, highest first.
const (
	PriorityCritical   Priority = "critical"
	PriorityHigh       Priority = "high"
	PriorityNormal     Priority = "normal"
	PriorityLow        Priority = "low"
	PriorityBackground Priority = "background"
)

// TimestampEntry is a freeform note attached at a point in time: a decision
// or a learning captured while working an agent.
type TimestampEntry struct {
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Source records provenance when an agent was extracted from some external
// signal (a transcript, a ticket, a prior agent split in two).
type Source struct {
	Type        string    `json:"type"`
	ReferenceID string    `json:"reference_id,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	ExtractedBy string    `json:"extracted_by,omitempty"`
}

// PriorityInputs holds the priority level and raw signals; urgency, value,
// novelty and user_signal live in [-1,1]. The priority engine reads Urgency,
// Value and UserSignal; its novelty factor comes from CreatedAt, not Novelty.
type PriorityInputs struct {
	Level         Priority `json:"level"`
	Urgency       float64  `json:"urgency"`
	Value         float64  `json:"value"`
	Novelty       float64  `json:"novelty"`
	UserSignal    float64  `json:"user_signal"`
	ComputedScore float64  `json:"computed_score"`
}

// Migration records how and when an agent was upgraded from a legacy schema.
type Migration struct {
	MigratedFrom string    `json:"migrated_from"`
	MigrationAt  time.Time `json:"migration_date"`
	Legacy       any       `json:"legacy,omitempty"`
}

// Agent is the unit of persistence: an opaque in-progress task context.
type Agent struct {
	// Identity
	ID      string `json:"id"`
	Version int    `json:"version"`

	// Task
	Title              string   `json:"title"`
	Goal               string   `json:"goal"`
	AcceptanceCriteria []string `json:"acceptance_criteria,omitempty"`
	Blockers           []string `json:"blockers,omitempty"`
	// Triggers are plain substring-match phrases that a surrounding hook
	// layer can use to suggest switching to this agent (spec §6's `--triggers`
	// flag); the semantic/embedding-based variant is out of scope (Non-goals).
	Triggers []string `json:"triggers,omitempty"`

	// Context
	Project   string           `json:"project,omitempty"`
	KeyFiles  []string         `json:"key_files,omitempty"`
	Decisions []TimestampEntry `json:"decisions,omitempty"`
	Learnings []TimestampEntry `json:"learnings,omitempty"`

	// State
	Status         Status   `json:"status"`
	ProgressPct    int      `json:"progress_pct"`
	CurrentStep    string   `json:"current_step,omitempty"`
	PendingActions []string `json:"pending_actions,omitempty"`
	LastError      string   `json:"last_error,omitempty"`

	// Priority inputs
	Priority PriorityInputs `json:"priority"`

	// Timing
	CreatedAt          time.Time  `json:"created_at"`
	LastActive         time.Time  `json:"last_active"`
	SessionCount       int        `json:"session_count"`
	TotalActiveSeconds float64    `json:"total_active_seconds"`
	SessionStart       *time.Time `json:"session_start,omitempty"`
	Deadline           *time.Time `json:"deadline,omitempty"`

	// Metadata
	Tags         []string   `json:"tags,omitempty"`
	ParentAgent  string     `json:"parent_agent,omitempty"`
	ChildAgents  []string   `json:"child_agents,omitempty"`
	Source       Source     `json:"source"`
	Migration    *Migration `json:"migration,omitempty"`
}

// IsBlocked reports whether the agent currently carries an unresolved blocker.
// Callers pass a lookup so this package stays free of a store dependency.
func (a *Agent) IsBlocked(statusOf func(id string) (Status, bool)) bool {
	for _, b := range a.Blockers {
		if st, ok := statusOf(b); ok && !st.IsTerminal() {
			return true
		}
	}
	return false
}

// ClampProgress enforces the [0,100] invariant on ProgressPct.
func (a *Agent) ClampProgress() {
	if a.ProgressPct < 0 {
		a.ProgressPct = 0
	}
	if a.ProgressPct > 100 {
		a.ProgressPct = 100
	}
}

// AgentSummary is the denormalized per-agent projection carried in the index.
type AgentSummary struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Project       string    `json:"project,omitempty"`
	Status        Status    `json:"status"`
	PriorityScore float64   `json:"priority_score"`
	LastActive    time.Time `json:"last_active"`
	Tags          []string  `json:"tags,omitempty"`
}

// Index is the secondary-index document persisted at index.json.
type Index struct {
	Agents    map[string]AgentSummary `json:"agents"`
	ByStatus  map[Status][]string     `json:"by_status"`
	ByProject map[string][]string     `json:"by_project"`
}

// NewIndex returns an empty index with every status bucket present.
func NewIndex() *Index {
	idx := &Index{
		Agents:    make(map[string]AgentSummary),
		ByStatus:  make(map[Status][]string),
		ByProject: make(map[string][]string),
	}
	for _, s := range []Status{StatusActive, StatusPaused, StatusBlocked, StatusCompleted, StatusCancelled} {
		idx.ByStatus[s] = []string{}
	}
	return idx
}

// TierSlot is the per-agent bookkeeping record for L1/L2 residency.
type TierSlot struct {
	AgentID       string    `json:"agent_id"`
	LoadedAt      time.Time `json:"loaded_at"`
	LastAccessed  time.Time `json:"last_accessed"`
	AccessCount   int       `json:"access_count"`
	TokenEstimate int       `json:"token_estimate"`
}

// EpisodicEntry is the compressed post-demotion record stored in L3.
type EpisodicEntry struct {
	AgentID       string    `json:"agent_id"`
	SessionID     int       `json:"session_id"`
	Timestamp     time.Time `json:"timestamp"`
	Summary       string    `json:"summary"`
	Decisions     []string  `json:"decisions"`
	Learnings     []string  `json:"learnings"`
	KeyContext    string    `json:"key_context,omitempty"`
	TokenEstimate int       `json:"token_estimate"`
}

// CompressionResult is returned by a demotion-triggered compression pass.
type CompressionResult struct {
	Summary             string   `json:"summary"`
	KeyFacts            []string `json:"key_facts"`
	DecisionsPreserved  int      `json:"decisions_preserved"`
	LearningsPreserved  int      `json:"learnings_preserved"`
	OriginalTokens      int      `json:"original_tokens"`
	CompressedTokens    int      `json:"compressed_tokens"`
	CompressionRatio    float64  `json:"compression_ratio"`
}

// CompressionStats accumulates running totals across all compressions.
type CompressionStats struct {
	TotalCompressions int     `json:"total_compressions"`
	TokensSaved       int     `json:"tokens_saved"`
	AverageRatio      float64 `json:"average_ratio"`
}

// PressureEvent records one demotion/consolidation action taken while
// relieving tier pressure, for the bounded pressure_events history.
type PressureEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Tier      int       `json:"tier"`
	AgentID   string    `json:"agent_id"`
	Action    string    `json:"action"`
}

// TieredMemoryState is the persisted document at tiered-memory.json.
type TieredMemoryState struct {
	L1       map[string]TierSlot      `json:"l1"`
	L2       map[string]TierSlot      `json:"l2"`
	L3       []EpisodicEntry          `json:"l3"`
	Indexed  []string                 `json:"indexed"`
	Stats    CompressionStats         `json:"compression_stats"`
	Pressure []PressureEvent          `json:"pressure_events"`
}

// NewTieredMemoryState returns an empty tiered-memory document.
func NewTieredMemoryState() *TieredMemoryState {
	return &TieredMemoryState{
		L1: make(map[string]TierSlot),
		L2: make(map[string]TierSlot),
	}
}

// WorkingMemoryState is the persisted document at working-memory.json.
type WorkingMemoryState struct {
	HotAgents     map[string]TierSlot `json:"hot_agents"`
	TokenUsage    int                 `json:"token_usage"`
	EvictionCount int                 `json:"eviction_count"`
	LastEviction  *time.Time          `json:"last_eviction,omitempty"`
}

// NewWorkingMemoryState returns an empty working-memory document.
func NewWorkingMemoryState() *WorkingMemoryState {
	return &WorkingMemoryState{HotAgents: make(map[string]TierSlot)}
}

// SessionStats tracks scheduler-wide session bookkeeping.
type SessionStats struct {
	StartedAt     time.Time `json:"started_at"`
	Switches      int       `json:"switches"`
	Checkpoints   int       `json:"checkpoints"`
	Consolidations int      `json:"consolidations"`
}

// SchedulerState is the persisted document at scheduler.json.
type SchedulerState struct {
	ActiveAgent    string          `json:"active_agent,omitempty"`
	PriorityQueue  []QueueEntry    `json:"priority_queue"`
	LastSwitch     *time.Time      `json:"last_switch,omitempty"`
	ProjectContext string          `json:"project_context,omitempty"`
	Session        SessionStats    `json:"session"`
}

// QueueEntry is one (id, score) pair in the priority queue.
type QueueEntry struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// NewSchedulerState returns a fresh scheduler document with the session
// clock started now.
func NewSchedulerState(now time.Time) *SchedulerState {
	return &SchedulerState{
		Session: SessionStats{StartedAt: now},
	}
}

// InterruptionEvent records one set_active switch-away for cognitive-load
// bookkeeping.
type InterruptionEvent struct {
	AgentID   string    `json:"agent_id"`
	Timestamp time.Time `json:"timestamp"`
	Reason    string    `json:"reason"`
}

// CognitiveLoadState is the persisted document at cognitive-load.json.
type CognitiveLoadState struct {
	Residue       map[string]float64  `json:"residue"`
	LastUpdated   map[string]time.Time `json:"last_updated"`
	Interruptions []InterruptionEvent `json:"interruptions"`
}

// NewCognitiveLoadState returns an empty cognitive-load document.
func NewCognitiveLoadState() *CognitiveLoadState {
	return &CognitiveLoadState{
		Residue:     make(map[string]float64),
		LastUpdated: make(map[string]time.Time),
	}
}
