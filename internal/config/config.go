// Package config loads the domain configuration document (config.json) that
// the priority engine, tiered memory, and working-memory pool read their
// tunables from. It is distinct from internal/app, which holds operational
// CLI settings — config.json is part of the on-disk contract in spec §6,
// settings.yaml is not.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Weights are the priority-engine factor weights; they should sum to 1.
type Weights struct {
	Urgency    float64 `json:"urgency"`
	Recency    float64 `json:"recency"`
	Value      float64 `json:"value"`
	Novelty    float64 `json:"novelty"`
	UserSignal float64 `json:"user_signal"`
	ErrorBoost float64 `json:"error_boost"`
}

// PriorityConfig groups §4.4's tunables.
type PriorityConfig struct {
	Weights              Weights `json:"weights"`
	RecencyHalflifeHours float64 `json:"recency_halflife_hours"`
	MinPriorityThreshold float64 `json:"min_priority_threshold"`
}

// WorkingMemoryConfig groups §4.8's tunables.
type WorkingMemoryConfig struct {
	MaxHotAgents int     `json:"max_hot_agents"`
	TokenBudget  int     `json:"token_budget"`
	DecayRate    float64 `json:"decay_rate"`
}

// MemoryTiersConfig groups §4.7's tunables.
type MemoryTiersConfig struct {
	Enabled           bool    `json:"enabled"`
	L1MaxAgents       int     `json:"l1_max_agents"`
	L1TokenBudget     int     `json:"l1_token_budget"`
	L2MaxAgents       int     `json:"l2_max_agents"`
	L2TokenBudget     int     `json:"l2_token_budget"`
	L3RetentionDays   int     `json:"l3_retention_days"`
	PressureThreshold float64 `json:"pressure_threshold"`
}

// SelfManagementConfig groups the auto-management toggle from §6.
type SelfManagementConfig struct {
	Enabled           bool    `json:"enabled"`
	PressureThreshold float64 `json:"pressure_threshold"`
}

// Config is the fully merged domain configuration document.
type Config struct {
	Priority       PriorityConfig       `json:"priority"`
	WorkingMemory  WorkingMemoryConfig  `json:"working_memory"`
	MemoryTiers    MemoryTiersConfig    `json:"memory_tiers"`
	SelfManagement SelfManagementConfig `json:"self_management"`
}

// Defaults returns the documented default configuration. Every field here
// has a concrete value from spec §4/§6 so a missing config.json is never
// fatal — ConfigMissing per spec §7 is recoverable by definition.
func Defaults() Config {
	return Config{
		Priority: PriorityConfig{
			Weights: Weights{
				Urgency:    0.25,
				Recency:    0.20,
				Value:      0.20,
				Novelty:    0.15,
				UserSignal: 0.15,
				ErrorBoost: 0.05,
			},
			RecencyHalflifeHours: 24,
			MinPriorityThreshold: 0.1,
		},
		WorkingMemory: WorkingMemoryConfig{
			MaxHotAgents: 5,
			TokenBudget:  8000,
			DecayRate:    0.1,
		},
		MemoryTiers: MemoryTiersConfig{
			Enabled:           true,
			L1MaxAgents:       2,
			L1TokenBudget:     4000,
			L2MaxAgents:       5,
			L2TokenBudget:     8000,
			L3RetentionDays:   30,
			PressureThreshold: 0.70,
		},
		SelfManagement: SelfManagementConfig{
			Enabled:           true,
			PressureThreshold: 0.70,
		},
	}
}

// Load reads config.json at globalPath, deep-merges a project overlay at
// projectPath if given and present, and fills any still-missing leaf with
// the documented default. Both files are optional: a missing global config
// is not an error, matching spec §7's ConfigMissing being non-fatal.
func Load(globalPath, projectPath string) (Config, error) {
	merged := asMap(Defaults())

	if globalPath != "" {
		if raw, err := readJSONMap(globalPath); err != nil {
			return Config{}, err
		} else if raw != nil {
			deepMerge(merged, raw)
		}
	}

	if projectPath != "" {
		if raw, err := readJSONMap(projectPath); err != nil {
			return Config{}, err
		} else if raw != nil {
			deepMerge(merged, raw)
		}
	}

	return fromMap(merged)
}

// Save writes cfg to a temp file beside path and renames it over path. Unlike
// internal/store.WriteAtomicJSON it does not fsync, read the temp file back,
// or remove the temp file when the rename fails.
func Save(path string, cfg Config) error {
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func readJSONMap(path string) (map[string]any, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// deepMerge recursively merges src into dst, overwriting scalars and slices
// but descending into nested objects, matching the original implementation's
// _deep_merge semantics.
func deepMerge(dst, src map[string]any) {
	for k, v := range src {
		if srcMap, ok := v.(map[string]any); ok {
			if dstMap, ok := dst[k].(map[string]any); ok {
				deepMerge(dstMap, srcMap)
				continue
			}
		}
		dst[k] = v
	}
}

func asMap(cfg Config) map[string]any {
	b, _ := json.Marshal(cfg)
	var m map[string]any
	_ = json.Unmarshal(b, &m)
	return m
}

func fromMap(m map[string]any) (Config, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return Config{}, err
	}
	cfg := Defaults()
	if err := json.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
