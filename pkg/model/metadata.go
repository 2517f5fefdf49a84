// ABOUTME: Per-element metadata model
// ABOUTME: Collects extractor runs and their recorded instances

package model

import (
	"encoding/json"
	"fmt"
	"sort"
)

// ExtractorConfiguration captures the extractor version and parameters
// that produced a metadata instance.
type ExtractorConfiguration struct {
	Version   string            `json:"version"`
	Parameter map[string]string `json:"parameter"`
}

// MetadataInstance is one recorded extractor run: its wall-clock time,
// authoring agent, configuration and extracted payload.
type MetadataInstance struct {
	TimeStamp     float64                `json:"time_stamp"`
	AuthorName    string                 `json:"author_name"`
	AuthorEmail   string                 `json:"author_email"`
	Configuration ExtractorConfiguration `json:"configuration"`
	Content       json.RawMessage        `json:"metadata_content"`
}

// ExtractorRun pairs an extractor name with its ordered instances,
// most recent last.
type ExtractorRun struct {
	ExtractorName string
	Instances     []*MetadataInstance
}

// Metadata is the collection of extractor runs attached to one dataset or
// file. It is lazily mapped from the backing store.
type Metadata struct {
	mapped
	runs map[string][]*MetadataInstance
}

// NewMetadata creates an empty, in-memory metadata object.
func NewMetadata() *Metadata {
	return &Metadata{runs: map[string][]*MetadataInstance{}}
}

// MetadataFromRef creates an unmapped metadata shell backed by the store.
func MetadataFromRef(store ObjectReader, ref Reference) *Metadata {
	return &Metadata{mapped: mapped{store: store, ref: ref}}
}

type metadataBlob struct {
	ExtractorRuns map[string][]*MetadataInstance `json:"extractor_runs"`
}

// EnsureMapped materializes the extractor runs from the backing store.
func (m *Metadata) EnsureMapped() (bool, error) {
	if m.IsMapped() {
		return false, nil
	}
	blob, err := m.store.GetObject(m.ref)
	if err != nil {
		return false, fmt.Errorf("mapping metadata %s: %w", m.ref, err)
	}
	var decoded metadataBlob
	if err := json.Unmarshal(blob, &decoded); err != nil {
		return false, fmt.Errorf("decoding metadata %s: %w", m.ref, err)
	}
	m.runs = decoded.ExtractorRuns
	if m.runs == nil {
		m.runs = map[string][]*MetadataInstance{}
	}
	m.mapped.mapped = true
	return true, nil
}

// Purge releases the mapped extractor runs. In-memory objects keep their
// content, there is nothing to re-materialize them from.
func (m *Metadata) Purge() {
	if m.inMemory() {
		return
	}
	m.runs = nil
	m.mapped.mapped = false
}

// ExtractorRuns returns all runs in stable extractor-name order.
func (m *Metadata) ExtractorRuns() []ExtractorRun {
	names := make([]string, 0, len(m.runs))
	for name := range m.runs {
		names = append(names, name)
	}
	sort.Strings(names)

	result := make([]ExtractorRun, 0, len(names))
	for _, name := range names {
		result = append(result, ExtractorRun{
			ExtractorName: name,
			Instances:     m.runs[name],
		})
	}
	return result
}

// AddExtractorRun appends an instance for the named extractor. With
// overwrite set, any previous instances of that extractor are dropped
// first, which is the behavior of re-running an extractor with identical
// configuration on the write side.
func (m *Metadata) AddExtractorRun(name string, instance *MetadataInstance, overwrite bool) {
	if m.runs == nil {
		m.runs = map[string][]*MetadataInstance{}
	}
	if overwrite {
		m.runs[name] = nil
	}
	m.runs[name] = append(m.runs[name], instance)
}

// Write stores the metadata object and returns its reference.
func (m *Metadata) Write(store ObjectWriter) (Reference, error) {
	blob, err := json.Marshal(metadataBlob{ExtractorRuns: m.runs})
	if err != nil {
		return "", fmt.Errorf("encoding metadata: %w", err)
	}
	return store.PutObject(blob)
}
