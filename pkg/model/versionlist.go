// ABOUTME: Top-level version indexes of a metadata store
// ABOUTME: Tree version list and UUID set with per-dataset version lists

package model

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/nainya/metatree/pkg/metapath"
)

// TreeVersionList maps a store version (e.g. a commit hash) to the
// dataset tree recorded for that version. The list is append-only on the
// read path described here.
type TreeVersionList struct {
	entries map[string]*versionedTree
}

type versionedTree struct {
	timeStamp float64
	tree      *MTreeNode
}

// NewTreeVersionList creates an empty tree version list.
func NewTreeVersionList() *TreeVersionList {
	return &TreeVersionList{entries: map[string]*versionedTree{}}
}

// Versions returns all known version identifiers in sorted order.
func (l *TreeVersionList) Versions() []string {
	versions := make([]string, 0, len(l.entries))
	for version := range l.entries {
		versions = append(versions, version)
	}
	sort.Strings(versions)
	return versions
}

// GetDatasetTree resolves a version to its timestamp and dataset tree.
// Returns ErrUnknownVersion on a lookup miss.
func (l *TreeVersionList) GetDatasetTree(version string) (float64, *MTreeNode, error) {
	entry, ok := l.entries[version]
	if !ok {
		return 0, nil, fmt.Errorf("%w: %q", ErrUnknownVersion, version)
	}
	return entry.timeStamp, entry.tree, nil
}

// SetDatasetTree records a dataset tree for a version.
func (l *TreeVersionList) SetDatasetTree(version string, timeStamp float64, tree *MTreeNode) {
	l.entries[version] = &versionedTree{timeStamp: timeStamp, tree: tree}
}

// VersionList maps dataset versions to the versioned element of a single
// UUID-identified dataset: its timestamp, the dataset path at that
// version, and the metadata root record.
type VersionList struct {
	entries map[string]*versionedElement
}

type versionedElement struct {
	timeStamp float64
	path      metapath.Path
	record    *MetadataRootRecord
}

// NewVersionList creates an empty version list.
func NewVersionList() *VersionList {
	return &VersionList{entries: map[string]*versionedElement{}}
}

// Versions returns all known dataset versions in sorted order.
func (l *VersionList) Versions() []string {
	versions := make([]string, 0, len(l.entries))
	for version := range l.entries {
		versions = append(versions, version)
	}
	sort.Strings(versions)
	return versions
}

// GetVersionedElement resolves a dataset version to its timestamp,
// dataset path and root record. Returns ErrUnknownVersion on a lookup
// miss.
func (l *VersionList) GetVersionedElement(
	version string,
) (float64, metapath.Path, *MetadataRootRecord, error) {
	entry, ok := l.entries[version]
	if !ok {
		return 0, "", nil, fmt.Errorf("%w: %q", ErrUnknownVersion, version)
	}
	return entry.timeStamp, entry.path, entry.record, nil
}

// SetVersionedElement records a root record for a dataset version.
func (l *VersionList) SetVersionedElement(
	version string,
	timeStamp float64,
	path metapath.Path,
	record *MetadataRootRecord,
) {
	l.entries[version] = &versionedElement{
		timeStamp: timeStamp,
		path:      path,
		record:    record,
	}
}

// UUIDSet is the global secondary index of a metadata store: it maps
// dataset UUIDs to their version lists, allowing lookup without tree
// traversal.
type UUIDSet struct {
	lists map[uuid.UUID]*VersionList
}

// NewUUIDSet creates an empty UUID set.
func NewUUIDSet() *UUIDSet {
	return &UUIDSet{lists: map[uuid.UUID]*VersionList{}}
}

// UUIDs returns all known dataset identifiers in sorted string order.
func (s *UUIDSet) UUIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(s.lists))
	for id := range s.lists {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return ids[i].String() < ids[j].String()
	})
	return ids
}

// GetVersionList resolves a dataset UUID to its version list. Returns
// ErrUnknownUUID on a lookup miss.
func (s *UUIDSet) GetVersionList(id uuid.UUID) (*VersionList, error) {
	list, ok := s.lists[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownUUID, id)
	}
	return list, nil
}

// SetVersionList records the version list for a dataset UUID.
func (s *UUIDSet) SetVersionList(id uuid.UUID, list *VersionList) {
	s.lists[id] = list
}
