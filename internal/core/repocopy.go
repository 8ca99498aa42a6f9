package core

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/wrohdewald/restaround/internal/linker"
	"github.com/wrohdewald/restaround/internal/profile"
	"github.com/wrohdewald/restaround/internal/schema"
	"github.com/wrohdewald/restaround/internal/ui"
)

// copySuffix is appended to the repository path to derive the copy
// location. The dot keeps the copy sorting next to the repository and the
// tool name marks it as safe to delete.
const copySuffix = ".restaround_cpal"

// RepoCopyPath derives the location of a repository's hard-linked copy.
func RepoCopyPath(repo string) string {
	return strings.TrimRight(repo, string(os.PathSeparator)) + copySuffix
}

// runSpecial handles the cprepo/rmrepo pseudo commands. Both went through
// the full resolution and the pre chain already; restic is never invoked.
func (s *Service) runSpecial(inv Invocation, comp *profile.Composition) (int, error) {
	repo := comp.FlagValue("repo")
	if repo == "" {
		return 0, fmt.Errorf("%s: no repo flag resolved from the profile", inv.Command)
	}
	dst := RepoCopyPath(repo)

	if s.cfg.DryRun {
		ui.Infof("would %s %s", inv.Command, dst)
		return 0, nil
	}

	if inv.Command == schema.CmdCopyRepo {
		if err := CloneTree(repo, dst); err != nil {
			return 0, err
		}
		ui.Infof("copied %s to %s", repo, dst)
	} else {
		if err := RemoveTree(dst); err != nil {
			return 0, err
		}
		ui.Infof("removed %s", dst)
	}
	return 0, nil
}

// CloneTree mirrors the directory tree at src into dst. Files are hard
// linked; when linking fails, for instance across filesystems, the file is
// copied instead. dst must not exist yet.
func CloneTree(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("repository %s: %w", src, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("repository %s is not a directory", src)
	}
	if _, err := os.Stat(dst); err == nil {
		return fmt.Errorf("%s already exists", dst)
	}

	hard := linker.New(linker.MethodHardlink)
	copier := linker.New(linker.MethodCopy)

	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if d.IsDir() {
			info, err := d.Info()
			if err != nil {
				return err
			}
			return os.MkdirAll(target, info.Mode().Perm())
		}
		if !d.Type().IsRegular() {
			ui.Warnf("skipping non-regular file %s", path)
			return nil
		}
		if err := hard.Deploy(path, target); err != nil {
			// Hard links fail across filesystems; clean up any partial
			// link and fall back to a byte copy.
			ui.Debugf("%s failed for %s, falling back to %s", hard.Method(), path, copier.Method())
			if err := hard.Undeploy(target); err != nil {
				return err
			}
			return copier.Deploy(path, target)
		}
		return nil
	})
}

// RemoveTree deletes a repository copy made by CloneTree. As a guard
// against deleting the repository itself it insists on the copy suffix.
func RemoveTree(dst string) error {
	if !strings.HasSuffix(dst, copySuffix) {
		return fmt.Errorf("refusing to remove %s: not a repository copy", dst)
	}
	if _, err := os.Stat(dst); err != nil {
		return fmt.Errorf("repository copy %s: %w", dst, err)
	}
	return os.RemoveAll(dst)
}
