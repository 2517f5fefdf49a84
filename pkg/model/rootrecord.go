// ABOUTME: Per-dataset metadata anchor
// ABOUTME: Holds dataset identity, dataset-level metadata and the file tree

package model

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// MetadataRootRecord anchors one dataset in the metadata tree. It carries
// the dataset's global identifier and version, its dataset-level metadata
// and the tree of per-file metadata. The two payloads are independently
// lazy; either may be absent.
type MetadataRootRecord struct {
	mapped
	datasetID      uuid.UUID
	datasetVersion string
	datasetLevel   *Metadata
	fileTree       *MTreeNode
}

// NewMetadataRootRecord creates an in-memory root record. datasetLevel
// and fileTree may be nil.
func NewMetadataRootRecord(
	datasetID uuid.UUID,
	datasetVersion string,
	datasetLevel *Metadata,
	fileTree *MTreeNode,
) *MetadataRootRecord {
	return &MetadataRootRecord{
		datasetID:      datasetID,
		datasetVersion: datasetVersion,
		datasetLevel:   datasetLevel,
		fileTree:       fileTree,
	}
}

// RootRecordFromRef creates an unmapped root-record shell backed by the
// store.
func RootRecordFromRef(store ObjectReader, ref Reference) *MetadataRootRecord {
	return &MetadataRootRecord{mapped: mapped{store: store, ref: ref}}
}

type rootRecordBlob struct {
	DatasetIdentifier string    `json:"dataset_identifier"`
	DatasetVersion    string    `json:"dataset_version"`
	DatasetLevelRef   Reference `json:"dataset_level_metadata,omitempty"`
	FileTreeRef       Reference `json:"file_tree,omitempty"`
}

// EnsureMapped materializes identity and payload shells from the backing
// store.
func (r *MetadataRootRecord) EnsureMapped() (bool, error) {
	if r.IsMapped() {
		return false, nil
	}
	blob, err := r.store.GetObject(r.ref)
	if err != nil {
		return false, fmt.Errorf("mapping root record %s: %w", r.ref, err)
	}
	var decoded rootRecordBlob
	if err := json.Unmarshal(blob, &decoded); err != nil {
		return false, fmt.Errorf("decoding root record %s: %w", r.ref, err)
	}
	id, err := uuid.Parse(decoded.DatasetIdentifier)
	if err != nil {
		return false, fmt.Errorf(
			"decoding root record %s: bad dataset identifier: %w", r.ref, err)
	}

	r.datasetID = id
	r.datasetVersion = decoded.DatasetVersion
	r.datasetLevel = nil
	if decoded.DatasetLevelRef != "" {
		r.datasetLevel = MetadataFromRef(r.store, decoded.DatasetLevelRef)
	}
	r.fileTree = nil
	if decoded.FileTreeRef != "" {
		r.fileTree = MTreeNodeFromRef(r.store, decoded.FileTreeRef)
	}
	r.mapped.mapped = true
	return true, nil
}

// Purge releases the mapped identity and payload shells.
func (r *MetadataRootRecord) Purge() {
	if r.inMemory() {
		return
	}
	r.datasetLevel = nil
	r.fileTree = nil
	r.mapped.mapped = false
}

// DatasetIdentifier returns the dataset's global identifier. Requires the
// record to be mapped.
func (r *MetadataRootRecord) DatasetIdentifier() uuid.UUID {
	return r.datasetID
}

// DatasetVersion returns the dataset version the record describes.
// Requires the record to be mapped.
func (r *MetadataRootRecord) DatasetVersion() string {
	return r.datasetVersion
}

// DatasetLevelMetadata returns the dataset-level metadata shell, or nil.
// Requires the record to be mapped.
func (r *MetadataRootRecord) DatasetLevelMetadata() *Metadata {
	return r.datasetLevel
}

// FileTree returns the per-file metadata tree shell, or nil. Requires the
// record to be mapped.
func (r *MetadataRootRecord) FileTree() *MTreeNode {
	return r.fileTree
}

// Write stores the record and its payloads and returns the record's
// reference.
func (r *MetadataRootRecord) Write(store ObjectWriter) (Reference, error) {
	blob := rootRecordBlob{
		DatasetIdentifier: r.datasetID.String(),
		DatasetVersion:    r.datasetVersion,
	}

	var err error
	if r.datasetLevel != nil {
		if blob.DatasetLevelRef, err = r.datasetLevel.Write(store); err != nil {
			return "", fmt.Errorf("writing dataset-level metadata: %w", err)
		}
	}
	if r.fileTree != nil {
		if blob.FileTreeRef, err = r.fileTree.Write(store); err != nil {
			return "", fmt.Errorf("writing file tree: %w", err)
		}
	}

	encoded, err := json.Marshal(blob)
	if err != nil {
		return "", fmt.Errorf("encoding root record: %w", err)
	}
	return store.PutObject(encoded)
}
