package core

import (
	"context"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeRepo lays out a minimal restic-shaped repository tree.
func makeRepo(t *testing.T) string {
	t.Helper()
	repo := filepath.Join(t.TempDir(), "repo")
	require.NoError(t, os.MkdirAll(filepath.Join(repo, "data", "4f"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(repo, "snapshots"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(repo, "config"), []byte("cfg"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(repo, "data", "4f", "pack1"), []byte("pack"), 0644))
	return repo
}

func inode(t *testing.T, path string) uint64 {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)
	return info.Sys().(*syscall.Stat_t).Ino
}

func TestRepoCopyPath(t *testing.T) {
	assert.Equal(t, "/backup/repo.restaround_cpal", RepoCopyPath("/backup/repo"))
	assert.Equal(t, "/backup/repo.restaround_cpal", RepoCopyPath("/backup/repo/"))
}

func TestCloneTree(t *testing.T) {
	repo := makeRepo(t)
	dst := RepoCopyPath(repo)

	require.NoError(t, CloneTree(repo, dst))

	// The tree is mirrored and the files share inodes with the originals.
	assert.DirExists(t, filepath.Join(dst, "snapshots"))
	content, err := os.ReadFile(filepath.Join(dst, "data", "4f", "pack1"))
	require.NoError(t, err)
	assert.Equal(t, "pack", string(content))
	assert.Equal(t,
		inode(t, filepath.Join(repo, "config")),
		inode(t, filepath.Join(dst, "config")))
}

func TestCloneTreeRefusesExistingDestination(t *testing.T) {
	repo := makeRepo(t)
	dst := RepoCopyPath(repo)
	require.NoError(t, os.MkdirAll(dst, 0755))

	err := CloneTree(repo, dst)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestCloneTreeMissingSource(t *testing.T) {
	dir := t.TempDir()
	err := CloneTree(filepath.Join(dir, "nosuch"), RepoCopyPath(filepath.Join(dir, "nosuch")))
	require.Error(t, err)
}

func TestCloneTreeSourceNotADirectory(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0644))

	err := CloneTree(src, RepoCopyPath(src))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestRemoveTree(t *testing.T) {
	repo := makeRepo(t)
	dst := RepoCopyPath(repo)
	require.NoError(t, CloneTree(repo, dst))

	require.NoError(t, RemoveTree(dst))
	assert.NoDirExists(t, dst)
	// The original repository is untouched.
	assert.FileExists(t, filepath.Join(repo, "config"))
}

func TestRemoveTreeRefusesNonCopy(t *testing.T) {
	repo := makeRepo(t)
	err := RemoveTree(repo)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refusing")
	assert.DirExists(t, repo)
}

func TestRemoveTreeMissingCopy(t *testing.T) {
	err := RemoveTree(filepath.Join(t.TempDir(), "gone.restaround_cpal"))
	require.Error(t, err)
}

func TestServiceRun_CopyAndRemoveRepo(t *testing.T) {
	repo := makeRepo(t)
	root := t.TempDir()
	writeProfileDir(t, root, "main", map[string]string{"repo": repo + "\n"})

	s := newTestService(t, ServiceConfig{ConfigDir: root, Restic: "/bin/false"})

	exit, err := s.Run(context.Background(), Invocation{Profile: "main", Command: "cprepo"})
	require.NoError(t, err)
	assert.Equal(t, 0, exit)
	assert.FileExists(t, filepath.Join(RepoCopyPath(repo), "config"))

	exit, err = s.Run(context.Background(), Invocation{Profile: "main", Command: "rmrepo"})
	require.NoError(t, err)
	assert.Equal(t, 0, exit)
	assert.NoDirExists(t, RepoCopyPath(repo))
}

func TestServiceRun_CopyRepoDryRun(t *testing.T) {
	repo := makeRepo(t)
	root := t.TempDir()
	writeProfileDir(t, root, "main", map[string]string{"repo": repo + "\n"})

	s := newTestService(t, ServiceConfig{ConfigDir: root, Restic: "/bin/false", DryRun: true})
	exit, err := s.Run(context.Background(), Invocation{Profile: "main", Command: "cprepo"})
	require.NoError(t, err)
	assert.Equal(t, 0, exit)
	assert.NoDirExists(t, RepoCopyPath(repo))
}

func TestServiceRun_CopyRepoWithoutRepoFlag(t *testing.T) {
	root := t.TempDir()
	writeProfileDir(t, root, "main", nil)

	s := newTestService(t, ServiceConfig{ConfigDir: root, Restic: "/bin/false"})
	_, err := s.Run(context.Background(), Invocation{Profile: "main", Command: "cprepo"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no repo flag")
}
