package actions

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRepairQuarantinesCorruptAgentFiles(t *testing.T) {
	svc := newTestService(t)
	now := time.Now().UTC()

	good, err := svc.Spawn("good", SpawnOptions{}, now)
	require.NoError(t, err)

	corruptPath := filepath.Join(svc.Layout.AgentsDir(), "corrupt.json")
	require.NoError(t, os.WriteFile(corruptPath, []byte("{not valid json"), 0o644))

	result, err := svc.Repair(now)
	require.NoError(t, err)
	require.Contains(t, result.QuarantinedIDs, "corrupt.json")
	require.Equal(t, 1, result.RebuiltCount)

	_, err = svc.Agents.Load(good.ID)
	require.NoError(t, err)

	_, statErr := os.Stat(corruptPath)
	require.True(t, os.IsNotExist(statErr), "corrupt file should have been moved aside")
}

func TestRepairResetsSchedulerState(t *testing.T) {
	svc := newTestService(t)
	now := time.Now().UTC()

	a, err := svc.Spawn("a", SpawnOptions{}, now)
	require.NoError(t, err)
	require.NoError(t, svc.Index.Add(a))
	_, err = svc.Switch(a.ID, now)
	require.NoError(t, err)

	_, err = svc.Repair(now.Add(time.Minute))
	require.NoError(t, err)

	st, err := svc.Sched.Load(now.Add(time.Minute))
	require.NoError(t, err)
	require.Empty(t, st.ActiveAgent)
}
