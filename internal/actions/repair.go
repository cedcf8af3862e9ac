package actions

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/rfenaux/ctm/internal/models"
)

// RepairResult reports what Repair did, for the CLI to print.
type RepairResult struct {
	BackupDir      string
	QuarantinedIDs []string
	RebuiltCount   int
}

// Repair resolves spec §7's CorruptStore recovery path (SPEC_FULL §4.10):
// move index.json/scheduler.json aside, quarantine any agent file that
// fails to parse, and rebuild the index from whatever remains.
func (s *Service) Repair(now time.Time) (*RepairResult, error) {
	backupDir := filepath.Join(s.Layout.CorruptBackupDir(), now.UTC().Format("20060102T150405Z"))
	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		return nil, err
	}

	moveAside(s.Layout.IndexPath(), filepath.Join(backupDir, "index.json"))
	moveAside(s.Layout.SchedulerPath(), filepath.Join(backupDir, "scheduler.json"))

	entries, err := os.ReadDir(s.Layout.AgentsDir())
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	var quarantined []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(s.Layout.AgentsDir(), e.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var a models.Agent
		if err := json.Unmarshal(raw, &a); err != nil {
			quarantineDir := filepath.Join(backupDir, "agents")
			if err := os.MkdirAll(quarantineDir, 0o755); err != nil {
				return nil, err
			}
			if err := os.Rename(path, filepath.Join(quarantineDir, e.Name())); err == nil {
				quarantined = append(quarantined, e.Name())
			}
			continue
		}
	}

	idx, err := s.Index.Rebuild(s.Agents)
	if err != nil {
		return nil, err
	}

	emptyScheduler := models.NewSchedulerState(now)
	if err := s.Sched.Save(emptyScheduler); err != nil {
		return nil, err
	}

	return &RepairResult{
		BackupDir:      backupDir,
		QuarantinedIDs: quarantined,
		RebuiltCount:   len(idx.Agents),
	}, nil
}

func moveAside(src, dst string) {
	if _, err := os.Stat(src); err != nil {
		return
	}
	_ = os.Rename(src, dst)
}
