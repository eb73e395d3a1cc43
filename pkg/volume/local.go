// Package volume lays out the host directories that back workspace volumes
// when a provisioned environment is rendered for an OCI runtime.
package volume

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// DefaultVolumesPath is the base directory for local volumes
	DefaultVolumesPath = "/var/lib/burrow/volumes"
)

// LocalDriver maps pod volumes onto directories below a base path:
//
//	<base>/claims/<claim>/<subPath>       persistent volume claims
//	<base>/pods/<pod>/<volume>/<subPath>  emptyDir volumes
type LocalDriver struct {
	basePath string
}

// NewLocalDriver creates a local driver rooted at basePath. Nothing is
// created on disk until Create is called.
func NewLocalDriver(basePath string) *LocalDriver {
	if basePath == "" {
		basePath = DefaultVolumesPath
	}
	return &LocalDriver{basePath: filepath.Clean(basePath)}
}

// BasePath returns the driver's root directory
func (d *LocalDriver) BasePath() string {
	return d.basePath
}

// ClaimPath returns the host path of a claim sub path
func (d *LocalDriver) ClaimPath(claim, subPath string) string {
	return filepath.Join(d.basePath, "claims", claim, subPath)
}

// EmptyDirPath returns the host path of a pod-scoped emptyDir volume
func (d *LocalDriver) EmptyDirPath(pod, volume, subPath string) string {
	return filepath.Join(d.basePath, "pods", pod, volume, subPath)
}

// Create makes sure the volume directory exists
func (d *LocalDriver) Create(path string) error {
	if err := d.contains(path); err != nil {
		return err
	}
	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("failed to create volume directory: %w", err)
	}
	return nil
}

// Delete removes a volume directory and its contents. Deleting a missing
// directory is not an error.
func (d *LocalDriver) Delete(path string) error {
	if err := d.contains(path); err != nil {
		return err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("failed to delete volume directory: %w", err)
	}
	return nil
}

// Exists reports whether the volume directory is present
func (d *LocalDriver) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// contains rejects paths that escape the base directory, e.g. through a
// sub path containing "..".
func (d *LocalDriver) contains(path string) error {
	rel, err := filepath.Rel(d.basePath, filepath.Clean(path))
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("volume path %s is outside %s", path, d.basePath)
	}
	return nil
}
