// ABOUTME: Minimal local dataset implementation
// ABOUTME: Plain-directory datasets with a JSON identity config

package dataset

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

const (
	configDirName  = ".metatree"
	configFileName = "config.json"
)

// ErrNoDataset indicates that a directory is not a metatree dataset.
var ErrNoDataset = errors.New("dataset: no dataset found")

type localConfig struct {
	DatasetID      string `json:"dataset_id"`
	DatasetVersion string `json:"dataset_version"`
	AgentName      string `json:"agent_name"`
	AgentEmail     string `json:"agent_email"`
}

// Local is a plain-directory dataset. Identity and agent configuration
// live in ".metatree/config.json"; content is always locally present, so
// Get is trivially satisfied. Version-controlled datasets are expected to
// provide their own Dataset implementation.
type Local struct {
	root   string
	config localConfig
}

// OpenLocal opens the dataset rooted at the given directory. Returns
// ErrNoDataset when no identity config is present.
func OpenLocal(root string) (*Local, error) {
	absolute, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	blob, err := os.ReadFile(filepath.Join(absolute, configDirName, configFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNoDataset, absolute)
		}
		return nil, err
	}

	var config localConfig
	if err := json.Unmarshal(blob, &config); err != nil {
		return nil, fmt.Errorf("decoding dataset config: %w", err)
	}

	return &Local{root: absolute, config: config}, nil
}

// InitLocal writes the identity config of a new local dataset.
func InitLocal(root string, id uuid.UUID, version, agentName, agentEmail string) (*Local, error) {
	absolute, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(absolute, configDirName), 0o755); err != nil {
		return nil, err
	}

	config := localConfig{
		DatasetID:      id.String(),
		DatasetVersion: version,
		AgentName:      agentName,
		AgentEmail:     agentEmail,
	}
	blob, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return nil, err
	}
	path := filepath.Join(absolute, configDirName, configFileName)
	if err := os.WriteFile(path, blob, 0o644); err != nil {
		return nil, err
	}
	return &Local{root: absolute, config: config}, nil
}

// ID returns the dataset identifier from the config.
func (l *Local) ID() (uuid.UUID, error) {
	id, err := uuid.Parse(l.config.DatasetID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("bad dataset id in config: %w", err)
	}
	return id, nil
}

// Path returns the dataset root directory.
func (l *Local) Path() string {
	return l.root
}

// Version returns the configured dataset version.
func (l *Local) Version() (string, error) {
	if l.config.DatasetVersion == "" {
		return "", fmt.Errorf("dataset at %s has no version configured", l.root)
	}
	return l.config.DatasetVersion, nil
}

// Status reports the filesystem status of a path inside the dataset.
func (l *Local) Status(path string) (*FileStatus, error) {
	absolute := path
	if !filepath.IsAbs(path) {
		absolute = filepath.Join(l.root, path)
	}

	info, err := os.Lstat(absolute)
	if err != nil {
		return nil, err
	}

	fileType := "file"
	switch {
	case info.IsDir():
		fileType = "directory"
	case info.Mode()&os.ModeSymlink != 0:
		fileType = "symlink"
	}

	status := &FileStatus{
		Type:     fileType,
		State:    "clean",
		ByteSize: info.Size(),
		Path:     absolute,
	}
	if fileType == "file" {
		if status.GitShaSum, err = hashFile(absolute); err != nil {
			return nil, err
		}
	}
	return status, nil
}

// Get reports content as available; local datasets hold all their
// content on disk.
func (l *Local) Get(path string, _ bool, fn func(GetResult) bool) error {
	absolute := path
	if !filepath.IsAbs(path) {
		absolute = filepath.Join(l.root, path)
	}
	if _, err := os.Lstat(absolute); err != nil {
		fn(GetResult{Status: "error", Path: absolute, Message: err.Error()})
		return nil
	}
	fn(GetResult{Status: "ok", Path: absolute})
	return nil
}

// AgentName returns the configured user name.
func (l *Local) AgentName() string {
	return l.config.AgentName
}

// AgentEmail returns the configured user email.
func (l *Local) AgentEmail() string {
	return l.config.AgentEmail
}

// Submodules returns no entries; local datasets do not nest.
func (l *Local) Submodules() ([]*FileStatus, error) {
	return nil, nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	digest := sha256.New()
	if _, err := io.Copy(digest, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(digest.Sum(nil)), nil
}
