package linker

import (
	"fmt"
	"os"
	"path/filepath"
)

// HardlinkLinker mirrors files using hard links
type HardlinkLinker struct{}

// NewHardlink creates a new hardlink linker
func NewHardlink() *HardlinkLinker {
	return &HardlinkLinker{}
}

// Deploy creates a hard link from src to dst
func (l *HardlinkLinker) Deploy(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("creating destination dir: %w", err)
	}

	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing existing file: %w", err)
	}

	if err := os.Link(src, dst); err != nil {
		return fmt.Errorf("creating hardlink: %w", err)
	}

	return nil
}

// Undeploy removes the file at dst
func (l *HardlinkLinker) Undeploy(dst string) error {
	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing file: %w", err)
	}
	return nil
}

// Method returns the link method
func (l *HardlinkLinker) Method() Method {
	return MethodHardlink
}
