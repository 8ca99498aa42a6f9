package core

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRestic builds a shell script standing in for restic: it records its
// argument vector and exits with the given code.
func fakeRestic(t *testing.T, exit int) (bin, argvFile string) {
	t.Helper()
	dir := t.TempDir()
	argvFile = filepath.Join(dir, "argv")
	bin = filepath.Join(dir, "restic")
	script := fmt.Sprintf("#!/bin/sh\necho \"$@\" > %s\nexit %d\n", argvFile, exit)
	require.NoError(t, os.WriteFile(bin, []byte(script), 0755))
	return bin, argvFile
}

func writeProfileDir(t *testing.T, root, name string, files map[string]string) string {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0755))
	for fname, content := range files {
		mode := os.FileMode(0644)
		if strings.Contains(fname, "pre") || strings.Contains(fname, "post") {
			mode = 0755
		}
		require.NoError(t, os.WriteFile(filepath.Join(dir, fname), []byte(content), mode))
	}
	return dir
}

func newTestService(t *testing.T, cfg ServiceConfig) *Service {
	t.Helper()
	if cfg.SystemDir == "" {
		cfg.SystemDir = t.TempDir()
	}
	s, err := NewService(cfg)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func recordedArgs(t *testing.T, argvFile string) string {
	t.Helper()
	data, err := os.ReadFile(argvFile)
	require.NoError(t, err)
	return strings.TrimSpace(string(data))
}

func TestServiceRun_InvokesRestic(t *testing.T) {
	bin, argvFile := fakeRestic(t, 0)
	root := t.TempDir()
	writeProfileDir(t, root, "main", map[string]string{
		"repo":     "/backup\n",
		"tag_auto": "",
	})

	s := newTestService(t, ServiceConfig{ConfigDir: root, Restic: bin})
	exit, err := s.Run(context.Background(), Invocation{Profile: "main", Command: "backup"})
	require.NoError(t, err)
	assert.Equal(t, 0, exit)
	assert.Equal(t, "backup --repo=/backup --tag auto", recordedArgs(t, argvFile))
}

func TestServiceRun_ResticExitPropagates(t *testing.T) {
	bin, _ := fakeRestic(t, 3)
	root := t.TempDir()
	writeProfileDir(t, root, "main", nil)

	s := newTestService(t, ServiceConfig{ConfigDir: root, Restic: bin})
	exit, err := s.Run(context.Background(), Invocation{Profile: "main", Command: "snapshots"})
	require.NoError(t, err)
	assert.Equal(t, 3, exit)
}

func TestServiceRun_ToolArgsAppended(t *testing.T) {
	bin, argvFile := fakeRestic(t, 0)
	root := t.TempDir()
	writeProfileDir(t, root, "main", map[string]string{"repo": "/backup\n"})

	s := newTestService(t, ServiceConfig{ConfigDir: root, Restic: bin})
	exit, err := s.Run(context.Background(), Invocation{
		Profile:  "main",
		Command:  "backup",
		ToolArgs: []string{"--tag=extra", "/home"},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, exit)
	assert.Equal(t, "backup --repo=/backup --tag extra /home", recordedArgs(t, argvFile))
}

func TestServiceRun_PreFailureAborts(t *testing.T) {
	bin, argvFile := fakeRestic(t, 0)
	root := t.TempDir()
	postMarker := filepath.Join(t.TempDir(), "post-ran")
	writeProfileDir(t, root, "main", map[string]string{
		"pre":  "#!/bin/sh\nexit 3\n",
		"post": fmt.Sprintf("#!/bin/sh\ntouch %s\n", postMarker),
	})

	s := newTestService(t, ServiceConfig{ConfigDir: root, Restic: bin})
	exit, err := s.Run(context.Background(), Invocation{Profile: "main", Command: "backup"})
	require.NoError(t, err)

	// The failing script's status verbatim, restic never called, post
	// scripts skipped.
	assert.Equal(t, 3, exit)
	assert.NoFileExists(t, argvFile)
	assert.NoFileExists(t, postMarker)
}

func TestServiceRun_PostAlwaysRuns(t *testing.T) {
	bin, _ := fakeRestic(t, 2)
	root := t.TempDir()
	seenExit := filepath.Join(t.TempDir(), "seen-exit")
	writeProfileDir(t, root, "main", map[string]string{
		"post": fmt.Sprintf("#!/bin/sh\necho $RESTAROUND_RESTIC_EXIT > %s\n", seenExit),
	})

	s := newTestService(t, ServiceConfig{ConfigDir: root, Restic: bin})
	exit, err := s.Run(context.Background(), Invocation{Profile: "main", Command: "backup"})
	require.NoError(t, err)
	assert.Equal(t, 2, exit)

	data, err := os.ReadFile(seenExit)
	require.NoError(t, err)
	assert.Equal(t, "2", strings.TrimSpace(string(data)))
}

func TestServiceRun_PreCreatedFlagFileObserved(t *testing.T) {
	// A pre script drops a new flag file into the profile directory; the
	// pipeline re-resolves after the script, so restic sees the flag.
	bin, argvFile := fakeRestic(t, 0)
	root := t.TempDir()
	dir := writeProfileDir(t, root, "main", nil)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pre"),
		[]byte(fmt.Sprintf("#!/bin/sh\ntouch %s\n", filepath.Join(dir, "with-atime"))), 0755))

	s := newTestService(t, ServiceConfig{ConfigDir: root, Restic: bin})
	exit, err := s.Run(context.Background(), Invocation{Profile: "main", Command: "backup"})
	require.NoError(t, err)
	assert.Equal(t, 0, exit)
	assert.Contains(t, recordedArgs(t, argvFile), "--with-atime")
}

func TestServiceRun_ScriptExportReachesRestic(t *testing.T) {
	dir := t.TempDir()
	seenPassword := filepath.Join(dir, "seen-password")
	bin := filepath.Join(dir, "restic")
	require.NoError(t, os.WriteFile(bin,
		[]byte(fmt.Sprintf("#!/bin/sh\necho \"$RESTIC_PASSWORD\" > %s\n", seenPassword)), 0755))

	root := t.TempDir()
	writeProfileDir(t, root, "main", map[string]string{
		"pre": "#!/bin/sh\necho RESTIC_PASSWORD=sekrit\n",
	})

	s := newTestService(t, ServiceConfig{ConfigDir: root, Restic: bin})
	exit, err := s.Run(context.Background(), Invocation{Profile: "main", Command: "backup"})
	require.NoError(t, err)
	assert.Equal(t, 0, exit)

	data, err := os.ReadFile(seenPassword)
	require.NoError(t, err)
	assert.Equal(t, "sekrit", strings.TrimSpace(string(data)))
}

func TestServiceRun_DryRunSkipsResticButRunsHooks(t *testing.T) {
	bin, argvFile := fakeRestic(t, 0)
	root := t.TempDir()
	seenDryRun := filepath.Join(t.TempDir(), "seen-dry-run")
	writeProfileDir(t, root, "main", map[string]string{
		"pre": fmt.Sprintf("#!/bin/sh\necho $RESTAROUND_DRY_RUN > %s\n", seenDryRun),
	})

	s := newTestService(t, ServiceConfig{ConfigDir: root, Restic: bin, DryRun: true})
	exit, err := s.Run(context.Background(), Invocation{Profile: "main", Command: "backup"})
	require.NoError(t, err)
	assert.Equal(t, 0, exit)
	assert.NoFileExists(t, argvFile)

	data, err := os.ReadFile(seenDryRun)
	require.NoError(t, err)
	assert.Equal(t, "1", strings.TrimSpace(string(data)))
}

func TestServiceRun_UnknownCommand(t *testing.T) {
	root := t.TempDir()
	writeProfileDir(t, root, "main", nil)

	s := newTestService(t, ServiceConfig{ConfigDir: root, Restic: "/bin/true"})
	_, err := s.Run(context.Background(), Invocation{Profile: "main", Command: "explode"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")
}

func TestServiceRun_MissingProfile(t *testing.T) {
	root := t.TempDir()
	s := newTestService(t, ServiceConfig{ConfigDir: root, Restic: "/bin/true"})
	_, err := s.Run(context.Background(), Invocation{Profile: "nosuch", Command: "backup"})
	require.Error(t, err)
}

func TestServiceRun_RecordsHistory(t *testing.T) {
	bin, _ := fakeRestic(t, 1)
	root := t.TempDir()
	writeProfileDir(t, root, "main", map[string]string{"repo": "/backup\n"})

	s := newTestService(t, ServiceConfig{
		ConfigDir: root,
		DataDir:   t.TempDir(),
		Restic:    bin,
	})
	exit, err := s.Run(context.Background(), Invocation{Profile: "main", Command: "check"})
	require.NoError(t, err)
	assert.Equal(t, 1, exit)

	require.NotNil(t, s.DB())
	runs, err := s.DB().ListRuns(0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "main", runs[0].Profile)
	assert.Equal(t, "check", runs[0].Command)
	assert.Equal(t, 1, runs[0].ExitCode)
	assert.Contains(t, runs[0].Args, "--repo=/backup")
}

func TestServiceRun_NoHistoryDisablesRecording(t *testing.T) {
	bin, _ := fakeRestic(t, 0)
	root := t.TempDir()
	writeProfileDir(t, root, "main", nil)

	s := newTestService(t, ServiceConfig{
		ConfigDir: root,
		DataDir:   t.TempDir(),
		Restic:    bin,
		NoHistory: true,
	})
	assert.Nil(t, s.DB())
}

func TestNewService_ConfigDefaults(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "config.yaml"),
		[]byte("restic: /opt/restic\npass_unknown_flags: true\n"), 0644))

	s := newTestService(t, ServiceConfig{ConfigDir: root})
	assert.Equal(t, "/opt/restic", s.Restic())
	assert.True(t, s.cfg.PassUnknown)
}
