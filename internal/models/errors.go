package models

import "fmt"

// RecoverableError is implemented by enriched errors that carry structured
// context and remediation hints. The output package matches it through a
// locally declared copy of this interface rather than importing it.
type RecoverableError interface {
	error
	ErrorCode() string
	Context() map[string]string
	SuggestedAction() string
}

// NotFoundError is returned when an entity id does not resolve to a file.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s %q not found", e.Kind, e.ID) }
func (e *NotFoundError) ErrorCode() string { return "NOT_FOUND" }
func (e *NotFoundError) Context() map[string]string {
	return map[string]string{"kind": e.Kind, "id": e.ID}
}
func (e *NotFoundError) SuggestedAction() string { return "check the id with `ctm list --all`" }

// AmbiguousError is returned when a partial id prefix matches more than one agent.
type AmbiguousError struct {
	Prefix     string
	Candidates []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("prefix %q matches %d agents", e.Prefix, len(e.Candidates))
}
func (e *AmbiguousError) ErrorCode() string { return "AMBIGUOUS" }
func (e *AmbiguousError) Context() map[string]string {
	ctx := map[string]string{"prefix": e.Prefix}
	for i, c := range e.Candidates {
		ctx[fmt.Sprintf("candidate_%d", i)] = c
	}
	return ctx
}
func (e *AmbiguousError) SuggestedAction() string { return "use more characters of the id to disambiguate" }

// WouldCycleError is returned when a dependency insertion would create a cycle.
type WouldCycleError struct {
	Blocked string
	Blocker string
}

func (e *WouldCycleError) Error() string {
	return fmt.Sprintf("blocking %s on %s would create a dependency cycle", e.Blocked, e.Blocker)
}
func (e *WouldCycleError) ErrorCode() string { return "WOULD_CYCLE" }
func (e *WouldCycleError) Context() map[string]string {
	return map[string]string{"blocked": e.Blocked, "blocker": e.Blocker}
}
func (e *WouldCycleError) SuggestedAction() string { return "choose a blocker that does not already depend on this agent" }

// BlockedTransitionError is returned when an agent with unresolved blockers
// is asked to become Active.
type BlockedTransitionError struct {
	ID       string
	Blockers []string
}

func (e *BlockedTransitionError) Error() string {
	return fmt.Sprintf("agent %s has unresolved blockers and cannot become active", e.ID)
}
func (e *BlockedTransitionError) ErrorCode() string { return "BLOCKED_TRANSITION" }
func (e *BlockedTransitionError) Context() map[string]string {
	ctx := map[string]string{"id": e.ID}
	for i, b := range e.Blockers {
		ctx[fmt.Sprintf("blocker_%d", i)] = b
	}
	return ctx
}
func (e *BlockedTransitionError) SuggestedAction() string {
	return "resolve or remove the blockers first (`ctm unblock`)"
}

// CorruptStoreError is returned when a successfully-read file fails to parse.
type CorruptStoreError struct {
	Path string
	Err  error
}

func (e *CorruptStoreError) Error() string { return fmt.Sprintf("corrupt store file %s: %v", e.Path, e.Err) }
func (e *CorruptStoreError) Unwrap() error { return e.Err }
func (e *CorruptStoreError) ErrorCode() string { return "CORRUPT_STORE" }
func (e *CorruptStoreError) Context() map[string]string {
	return map[string]string{"path": e.Path}
}
func (e *CorruptStoreError) SuggestedAction() string { return "run `ctm repair` to rebuild the index and quarantine unparseable files" }

// WriteFailedError is returned when an atomic write could not commit.
type WriteFailedError struct {
	Path string
	Err  error
}

func (e *WriteFailedError) Error() string { return fmt.Sprintf("write failed for %s: %v", e.Path, e.Err) }
func (e *WriteFailedError) Unwrap() error { return e.Err }
func (e *WriteFailedError) ErrorCode() string { return "WRITE_FAILED" }
func (e *WriteFailedError) Context() map[string]string {
	return map[string]string{"path": e.Path}
}
func (e *WriteFailedError) SuggestedAction() string { return "check disk space and directory permissions, then retry" }

// ConfigMissingError documents a missing config value that fell back to a
// default; never fatal, carried so callers can log it at their discretion.
type ConfigMissingError struct {
	Key     string
	Default string
}

func (e *ConfigMissingError) Error() string {
	return fmt.Sprintf("config key %q missing, using default %q", e.Key, e.Default)
}
func (e *ConfigMissingError) ErrorCode() string { return "CONFIG_MISSING" }
func (e *ConfigMissingError) Context() map[string]string {
	return map[string]string{"key": e.Key, "default": e.Default}
}
func (e *ConfigMissingError) SuggestedAction() string { return "set the key explicitly in config.json to silence this" }
