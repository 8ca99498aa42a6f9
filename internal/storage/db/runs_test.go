package db

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	d, err := New(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func sampleRun(profile, command string, exit int, finished time.Time) *Run {
	return &Run{
		Profile:    profile,
		Command:    command,
		Args:       "--repo=/backup /home",
		ExitCode:   exit,
		StartedAt:  finished.Add(-time.Minute),
		FinishedAt: finished,
	}
}

func TestRecordAndListRuns(t *testing.T) {
	d := testDB(t)
	now := time.Now().UTC().Truncate(time.Second)

	first := sampleRun("main", "backup", 0, now.Add(-time.Hour))
	second := sampleRun("main", "check", 1, now)
	require.NoError(t, d.RecordRun(first))
	require.NoError(t, d.RecordRun(second))
	assert.NotZero(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID)

	runs, err := d.ListRuns(0)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	// Newest first.
	assert.Equal(t, "check", runs[0].Command)
	assert.Equal(t, 1, runs[0].ExitCode)
	assert.Equal(t, "backup", runs[1].Command)
	assert.Equal(t, "--repo=/backup /home", runs[1].Args)
}

func TestListRunsLimit(t *testing.T) {
	d := testDB(t)
	now := time.Now()
	for i := 0; i < 5; i++ {
		require.NoError(t, d.RecordRun(sampleRun("main", "backup", 0, now)))
	}

	runs, err := d.ListRuns(2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestListRunsEmpty(t *testing.T) {
	d := testDB(t)
	runs, err := d.ListRuns(10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestPruneRuns(t *testing.T) {
	d := testDB(t)
	now := time.Now()
	require.NoError(t, d.RecordRun(sampleRun("main", "backup", 0, now.Add(-48*time.Hour))))
	require.NoError(t, d.RecordRun(sampleRun("main", "backup", 0, now)))

	pruned, err := d.PruneRuns(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), pruned)

	runs, err := d.ListRuns(0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.WithinDuration(t, now, runs[0].FinishedAt, time.Minute)
}

func TestDryRunFlagPersisted(t *testing.T) {
	d := testDB(t)
	run := sampleRun("main", "backup", 0, time.Now())
	run.DryRun = true
	require.NoError(t, d.RecordRun(run))

	runs, err := d.ListRuns(1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.True(t, runs[0].DryRun)
}
