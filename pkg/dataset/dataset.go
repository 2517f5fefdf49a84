// ABOUTME: Host dataset collaborator interface
// ABOUTME: Identity, version, working-tree status and content retrieval

package dataset

import (
	"github.com/google/uuid"
)

// FileStatus describes one path in a dataset's working tree.
type FileStatus struct {
	// Type is "file", "symlink" or "directory".
	Type string

	// State is the version-control state, e.g. "clean" or "untracked".
	State string

	// GitShaSum is the content hash recorded for the path.
	GitShaSum string

	// ByteSize is the content size in bytes.
	ByteSize int64

	// Path is the absolute filesystem path.
	Path string
}

// GetResult is one progress result of a content retrieval.
type GetResult struct {
	Status  string
	Path    string
	Message string
}

// Dataset is the narrow interface the extraction pipeline consumes from
// the host dataset/version-control abstraction. Implementations wrap
// whatever system actually versions the data.
type Dataset interface {
	// ID returns the dataset's global identifier.
	ID() (uuid.UUID, error)

	// Path returns the dataset's root directory.
	Path() string

	// Version returns the current dataset version (e.g. a commit hash).
	Version() (string, error)

	// Status reports the working-tree status of one path, relative to
	// the dataset root or absolute.
	Status(path string) (*FileStatus, error)

	// Get makes the content of a path locally available. Results are
	// streamed to fn; fn returning false stops retrieval. Retrieval may
	// be slow but is synchronous.
	Get(path string, getData bool, fn func(GetResult) bool) error

	// AgentName returns the configured user name.
	AgentName() string

	// AgentEmail returns the configured user email.
	AgentEmail() string

	// Submodules lists the dataset's registered sub-datasets.
	Submodules() ([]*FileStatus, error)
}
