// ABOUTME: Agent bundle syncing, versioning, and packaging.
// ABOUTME: Copies agent directories into a bundle tree and builds tar.gz archives.

package bundle

import (
	"archive/tar"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// manifestFilename marks a directory as an agent bundle source.
const manifestFilename = "manifest.yaml"

// versionLine matches the version entry inside a manifest file.
var versionLine = regexp.MustCompile(`^\s*version:\s*"?([0-9]+(?:\.[0-9]+)*)"?\s*$`)

// Syncer copies agent directories from the platform tree into the bundle
// tree and keeps manifest versions aligned between the two.
type Syncer struct {
	platformDir string
	bundleDir   string
	logger      *slog.Logger
}

// NewSyncer creates a syncer between the given platform and bundle agent
// roots.
func NewSyncer(platformDir, bundleDir string) *Syncer {
	return &Syncer{
		platformDir: platformDir,
		bundleDir:   bundleDir,
		logger:      slog.Default().With("component", "bundle"),
	}
}

// DiscoverAgents enumerates agent directories under the platform root that
// contain a manifest, sorted lexicographically.
func (s *Syncer) DiscoverAgents() ([]string, error) {
	entries, err := os.ReadDir(s.platformDir)
	if err != nil {
		return nil, fmt.Errorf("reading platform agents directory: %w", err)
	}

	var keys []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		manifest := filepath.Join(s.platformDir, entry.Name(), manifestFilename)
		if _, err := os.Stat(manifest); err != nil {
			continue
		}
		keys = append(keys, entry.Name())
	}
	sort.Strings(keys)
	return keys, nil
}

// SyncAgent copies one agent directory from the platform tree into the
// bundle tree, replacing any previous copy.
func (s *Syncer) SyncAgent(agentKey string) error {
	sourceDir := filepath.Join(s.platformDir, agentKey)
	targetDir := filepath.Join(s.bundleDir, agentKey)

	info, err := os.Stat(sourceDir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("source agent directory not found: %s", sourceDir)
	}

	if err := os.RemoveAll(targetDir); err != nil {
		return fmt.Errorf("removing previous bundle copy: %w", err)
	}
	if err := copyTree(sourceDir, targetDir); err != nil {
		return fmt.Errorf("copying agent %s: %w", agentKey, err)
	}

	s.logger.Info("agent synced", "agent", agentKey, "target", targetDir)
	return nil
}

// SetVersion writes the given version into both the platform and bundle
// manifests of an agent.
func (s *Syncer) SetVersion(agentKey, version string) error {
	for _, root := range []string{s.platformDir, s.bundleDir} {
		manifest := filepath.Join(root, agentKey, manifestFilename)
		if err := SetManifestVersion(manifest, version); err != nil {
			return err
		}
	}
	s.logger.Info("manifest version updated", "agent", agentKey, "version", version)
	return nil
}

// PlatformManifest returns the path of an agent's platform manifest.
func (s *Syncer) PlatformManifest(agentKey string) string {
	return filepath.Join(s.platformDir, agentKey, manifestFilename)
}

// BundleDir returns the path of an agent's bundle directory.
func (s *Syncer) BundleDir(agentKey string) string {
	return filepath.Join(s.bundleDir, agentKey)
}

// ReadManifestVersion extracts the version string from a manifest file.
func ReadManifestVersion(manifestPath string) (string, error) {
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return "", fmt.Errorf("reading manifest: %w", err)
	}
	for _, line := range strings.Split(string(data), "\n") {
		if m := versionLine.FindStringSubmatch(line); m != nil {
			return m[1], nil
		}
	}
	return "", fmt.Errorf("version key not found in %s", manifestPath)
}

// SetManifestVersion rewrites the version line of a manifest in place. The
// manifest is edited textually so comments and key order survive.
func SetManifestVersion(manifestPath, version string) error {
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return fmt.Errorf("reading manifest: %w", err)
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "version:") {
			lines[i] = fmt.Sprintf("version: %q", version)
			out := strings.Join(lines, "\n") + "\n"
			return os.WriteFile(manifestPath, []byte(out), 0644)
		}
	}
	return fmt.Errorf("version key not found in %s", manifestPath)
}

// BumpVersion increments a semantic version string by one major, minor, or
// patch step.
func BumpVersion(version, step string) (string, error) {
	parts := strings.Split(version, ".")
	if len(parts) != 3 {
		return "", fmt.Errorf("unsupported version format (expected x.y.z): %s", version)
	}

	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return "", fmt.Errorf("unsupported version format (expected x.y.z): %s", version)
		}
		nums[i] = n
	}

	switch step {
	case "major":
		nums[0]++
		nums[1] = 0
		nums[2] = 0
	case "minor":
		nums[1]++
		nums[2] = 0
	case "patch":
		nums[2]++
	default:
		return "", fmt.Errorf("unknown bump step: %s", step)
	}

	return fmt.Sprintf("%d.%d.%d", nums[0], nums[1], nums[2]), nil
}

// Package builds a tar.gz archive of an agent's bundle directory at
// outputPath and returns the archive's hex-encoded SHA-256 checksum.
// Entries are stored relative to the agent directory.
func Package(agentDir, outputPath string) (string, error) {
	outFile, err := os.Create(outputPath)
	if err != nil {
		return "", fmt.Errorf("creating archive: %w", err)
	}
	defer outFile.Close()

	hash := sha256.New()
	gzWriter := gzip.NewWriter(io.MultiWriter(outFile, hash))
	tarWriter := tar.NewWriter(gzWriter)

	err = filepath.WalkDir(agentDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(agentDir, path)
		if err != nil {
			return err
		}
		return addFileToTar(tarWriter, path, filepath.ToSlash(rel))
	})
	if err != nil {
		tarWriter.Close()
		gzWriter.Close()
		return "", fmt.Errorf("packaging %s: %w", agentDir, err)
	}

	if err := tarWriter.Close(); err != nil {
		return "", fmt.Errorf("closing tar writer: %w", err)
	}
	if err := gzWriter.Close(); err != nil {
		return "", fmt.Errorf("closing gzip writer: %w", err)
	}

	return hex.EncodeToString(hash.Sum(nil)), nil
}

// addFileToTar writes a single file into the archive under name.
func addFileToTar(tw *tar.Writer, path, name string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	header.Name = name

	if err := tw.WriteHeader(header); err != nil {
		return err
	}

	_, err = io.Copy(tw, file)
	return err
}

// copyTree recursively copies a directory tree.
func copyTree(src, dst string) error {
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
			return os.MkdirAll(target, 0755)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, 0644)
	})
}
