// ABOUTME: Location string parsing for metadata queries
// ABOUTME: Supports tree-addressed and UUID-addressed element locations

package locator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/nainya/metatree/pkg/metapath"
)

const (
	treePrefix = "tree:"
	uuidPrefix = "uuid:"
)

var (
	// ErrInvalidLocator indicates a malformed location string
	ErrInvalidLocator = errors.New("locator: invalid location string")
)

// Locator identifies a set of metadata elements, either by walking the
// dataset tree (TreeLocator) or by global dataset identifier (UUIDLocator).
// Exactly one of the two address spaces is active per query.
type Locator interface {
	fmt.Stringer

	// LocalPattern is the sub-pattern matched inside each located dataset.
	LocalPattern() metapath.Path

	// RequestedVersion is the store version to query, or "" for all versions.
	RequestedVersion() string

	isLocator()
}

// TreeLocator addresses datasets by their path in the dataset tree.
type TreeLocator struct {
	DatasetPath metapath.Path
	Version     string
	LocalPath   metapath.Path
}

func (l TreeLocator) isLocator() {}

// LocalPattern returns the intra-dataset search pattern.
func (l TreeLocator) LocalPattern() metapath.Path { return l.LocalPath }

// RequestedVersion returns the requested tree version, "" for all.
func (l TreeLocator) RequestedVersion() string { return l.Version }

func (l TreeLocator) String() string {
	var b strings.Builder
	// A dataset path that happens to start with the UUID prefix needs
	// the explicit tree prefix to parse back into the same locator.
	if strings.HasPrefix(l.DatasetPath.String(), uuidPrefix) {
		b.WriteString(treePrefix)
	}
	b.WriteString(l.DatasetPath.String())
	if l.Version != "" {
		b.WriteString("@")
		b.WriteString(l.Version)
	}
	if !l.LocalPath.IsEmpty() {
		b.WriteString(":")
		b.WriteString(l.LocalPath.String())
	}
	return b.String()
}

// UUIDLocator addresses one dataset by its global identifier.
type UUIDLocator struct {
	UUID      uuid.UUID
	Version   string
	LocalPath metapath.Path
}

func (l UUIDLocator) isLocator() {}

// LocalPattern returns the intra-dataset search pattern.
func (l UUIDLocator) LocalPattern() metapath.Path { return l.LocalPath }

// RequestedVersion returns the requested dataset version, "" for all.
func (l UUIDLocator) RequestedVersion() string { return l.Version }

func (l UUIDLocator) String() string {
	var b strings.Builder
	b.WriteString(uuidPrefix)
	b.WriteString(l.UUID.String())
	if l.Version != "" {
		b.WriteString("@")
		b.WriteString(l.Version)
	}
	if !l.LocalPath.IsEmpty() {
		b.WriteString(":")
		b.WriteString(l.LocalPath.String())
	}
	return b.String()
}

// Parse turns a location string into a Locator. The grammar is:
//
//	["tree:"] [DATASET_PATH] ["@" VERSION] [":" [LOCAL_PATH]]
//	"uuid:" UUID ["@" VERSION] [":" [LOCAL_PATH]]
//
// An empty string locates the root dataset at all known versions. Pattern
// wildcards in DATASET_PATH and LOCAL_PATH are preserved verbatim for the
// tree search engine.
func Parse(location string) (Locator, error) {
	if strings.HasPrefix(location, uuidPrefix) {
		return parseUUIDLocation(strings.TrimPrefix(location, uuidPrefix))
	}
	return parseTreeLocation(strings.TrimPrefix(location, treePrefix))
}

func parseUUIDLocation(rest string) (Locator, error) {
	head, local := splitLocal(rest)

	idText, version, err := splitVersion(head)
	if err != nil {
		return nil, err
	}

	id, err := uuid.Parse(idText)
	if err != nil {
		return nil, fmt.Errorf("%w: bad dataset UUID %q: %v",
			ErrInvalidLocator, idText, err)
	}

	return UUIDLocator{
		UUID:      id,
		Version:   version,
		LocalPath: metapath.New(local),
	}, nil
}

func parseTreeLocation(rest string) (Locator, error) {
	head, local := splitLocal(rest)

	datasetPath, version, err := splitVersion(head)
	if err != nil {
		return nil, err
	}

	return TreeLocator{
		DatasetPath: metapath.New(datasetPath),
		Version:     version,
		LocalPath:   metapath.New(local),
	}, nil
}

// splitLocal separates the optional ":"-introduced local path.
func splitLocal(s string) (head, local string) {
	if idx := strings.IndexByte(s, ':'); idx >= 0 {
		return s[:idx], s[idx+1:]
	}
	return s, ""
}

// splitVersion separates the optional "@"-introduced version string.
func splitVersion(s string) (head, version string, err error) {
	switch strings.Count(s, "@") {
	case 0:
		return s, "", nil
	case 1:
		idx := strings.IndexByte(s, '@')
		head, version = s[:idx], s[idx+1:]
		if version == "" {
			return "", "", fmt.Errorf(
				"%w: empty version after '@' in %q", ErrInvalidLocator, s)
		}
		return head, version, nil
	default:
		return "", "", fmt.Errorf(
			"%w: ambiguous version separators in %q", ErrInvalidLocator, s)
	}
}
