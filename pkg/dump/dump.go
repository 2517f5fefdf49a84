// ABOUTME: Metadata dump pipeline
// ABOUTME: Walks version trees or UUID indexes and emits normalized records

package dump

import (
	"errors"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/nainya/metatree/internal/metrics"
	"github.com/nainya/metatree/pkg/locator"
	"github.com/nainya/metatree/pkg/metapath"
	"github.com/nainya/metatree/pkg/model"
	"github.com/nainya/metatree/pkg/search"
	"github.com/nainya/metatree/pkg/store"
)

// UnknownDatasetID is reported as root dataset identifier when a tree
// version carries no root record.
const UnknownDatasetID = "<unknown>"

// Record is one normalized dump result. The CLI renders only the Metadata
// field; the envelope exists for result routing and error reporting.
type Record struct {
	Status         string         `json:"status"`
	Action         string         `json:"action"`
	Backend        string         `json:"backend"`
	MetadataSource string         `json:"metadata_source"`
	Type           string         `json:"type"`
	Metadata       map[string]any `json:"metadata"`
	Path           string         `json:"path"`
}

// EmitFunc consumes dump records; returning false stops the dump early.
// Early termination is always safe with respect to the load/purge
// discipline.
type EmitFunc func(Record) bool

// Dumper enumerates metadata records from a store's top-level indexes.
type Dumper struct {
	Backend       string
	StoreLocation string
	Log           *zerolog.Logger
	Metrics       *metrics.Metrics
}

// FromTree dumps all elements addressed by a tree locator: for every
// requested version of the tree version list, datasets matching the
// locator's dataset path, and within each, metadata matching its local
// path.
//
// Per-version lookup misses and empty search results are logged and
// skipped; they never abort the dump.
func (d *Dumper) FromTree(
	treeVersionList *model.TreeVersionList,
	loc locator.TreeLocator,
	recursive bool,
	emit EmitFunc,
) error {
	requestedVersions := treeVersionList.Versions()
	if loc.Version != "" {
		requestedVersions = []string{loc.Version}
	}

	for _, version := range requestedVersions {
		keepGoing, err := d.dumpTreeVersion(
			treeVersionList, version, loc, recursive, emit)
		if err != nil {
			return err
		}
		if !keepGoing {
			return nil
		}
	}
	return nil
}

func (d *Dumper) dumpTreeVersion(
	treeVersionList *model.TreeVersionList,
	version string,
	loc locator.TreeLocator,
	recursive bool,
	emit EmitFunc,
) (bool, error) {
	_, tree, err := treeVersionList.GetDatasetTree(version)
	if err != nil {
		if errors.Is(err, model.ErrUnknownVersion) {
			d.Log.Error().
				Str("version", version).
				Str("dataset_path", loc.DatasetPath.String()).
				Msg("could not locate metadata for version")
			d.Metrics.RecordDumpMiss("version")
			return true, nil
		}
		return false, err
	}
	d.Metrics.RecordDumpVersion()

	treeHandle, err := model.Acquire(tree)
	if err != nil {
		return false, err
	}
	defer treeHandle.Release()

	// The root record of the whole tree establishes the root dataset
	// identity used to annotate sub-dataset records.
	rootDatasetID := UnknownDatasetID
	rootDatasetVersion := version
	if rootRecord, ok := tree.Child(model.RootRecordName).(*model.MetadataRootRecord); ok {
		rootHandle, err := model.Acquire(rootRecord)
		if err != nil {
			return false, err
		}
		defer rootHandle.Release()
		rootDatasetID = rootRecord.DatasetIdentifier().String()
		rootDatasetVersion = rootRecord.DatasetVersion()
	} else {
		d.Log.Debug().
			Str("version", version).
			Msg("no root dataset record found, cannot determine root dataset id")
	}

	var (
		resultCount int
		stopped     bool
		innerErr    error
	)
	err = search.New(tree).Pattern(
		loc.DatasetPath, recursive, model.RootRecordName,
		func(result search.Result) bool {
			resultCount++

			node := result.Element.(*model.MTreeNode)
			record := node.Child(model.RootRecordName).(*model.MetadataRootRecord)

			keepGoing, err := d.showDatasetMetadata(
				rootDatasetID, rootDatasetVersion, result.Path, record, emit)
			if err == nil && keepGoing {
				keepGoing, err = d.showFileTreeMetadata(
					rootDatasetID, rootDatasetVersion, result.Path, record,
					loc.LocalPath, recursive, emit)
			}
			if err != nil {
				innerErr = err
				return false
			}
			if !keepGoing {
				stopped = true
				return false
			}
			return true
		})
	d.Metrics.RecordSearch(resultCount)
	if err != nil {
		return false, err
	}
	if innerErr != nil {
		return false, innerErr
	}
	if stopped {
		return false, nil
	}

	if resultCount == 0 {
		d.Log.Error().
			Str("pattern", loc.DatasetPath.String()).
			Str("root_dataset_id", rootDatasetID).
			Str("root_dataset_version", rootDatasetVersion).
			Msg("search pattern does not match any dataset in dataset-tree")
		d.Metrics.RecordDumpMiss("dataset-pattern")
	}
	return true, nil
}

// FromUUIDSet dumps all elements of the UUID-identified dataset addressed
// by the locator. An unknown UUID is logged and yields no records; it is
// not an error.
func (d *Dumper) FromUUIDSet(
	uuidSet *model.UUIDSet,
	loc locator.UUIDLocator,
	recursive bool,
	emit EmitFunc,
) error {
	versionList, err := uuidSet.GetVersionList(loc.UUID)
	if err != nil {
		if errors.Is(err, model.ErrUnknownUUID) {
			d.Log.Error().
				Str("uuid", loc.UUID.String()).
				Msg("could not locate metadata for dataset UUID")
			d.Metrics.RecordDumpMiss("uuid")
			return nil
		}
		return err
	}

	requestedVersions := versionList.Versions()
	if loc.Version != "" {
		requestedVersions = []string{loc.Version}
	}

	for _, version := range requestedVersions {
		_, datasetPath, record, err := versionList.GetVersionedElement(version)
		if err != nil {
			if errors.Is(err, model.ErrUnknownVersion) {
				d.Log.Error().
					Str("uuid", loc.UUID.String()).
					Str("version", version).
					Msg("could not locate metadata for version of dataset UUID")
				d.Metrics.RecordDumpMiss("version")
				continue
			}
			return err
		}
		d.Metrics.RecordDumpVersion()

		keepGoing, err := d.showDatasetMetadata(
			loc.UUID.String(), version, datasetPath, record, emit)
		if err == nil && keepGoing {
			keepGoing, err = d.showFileTreeMetadata(
				loc.UUID.String(), version, datasetPath, record,
				loc.LocalPath, recursive, emit)
		}
		if err != nil {
			return err
		}
		if !keepGoing {
			return nil
		}
	}
	return nil
}

// showDatasetMetadata emits one record per extractor instance of the
// record's dataset-level metadata.
func (d *Dumper) showDatasetMetadata(
	rootDatasetID string,
	rootDatasetVersion string,
	datasetPath metapath.Path,
	record *model.MetadataRootRecord,
	emit EmitFunc,
) (bool, error) {
	recordHandle, err := model.Acquire(record)
	if err != nil {
		return false, err
	}
	defer recordHandle.Release()

	datasetLevel := record.DatasetLevelMetadata()
	if datasetLevel == nil {
		d.Log.Warn().
			Str("dataset_id", record.DatasetIdentifier().String()).
			Str("dataset_version", record.DatasetVersion()).
			Msg("no dataset level metadata for dataset")
		return true, nil
	}

	metadataHandle, err := model.Acquire(datasetLevel)
	if err != nil {
		return false, err
	}
	defer metadataHandle.Release()

	commonProperties := d.commonProperties(
		rootDatasetID, rootDatasetVersion, record, datasetPath)

	for _, run := range datasetLevel.ExtractorRuns() {
		for _, instance := range run.Instances {
			metadataRecord := map[string]any{"type": "dataset"}
			mergeProperties(metadataRecord, commonProperties)
			mergeProperties(metadataRecord, instanceProperties(run.ExtractorName, instance))

			d.Metrics.RecordDump("dataset")
			if !emit(d.resultRecord(metadataRecord, datasetPath, "dataset")) {
				return false, nil
			}
		}
	}
	return true, nil
}

// showFileTreeMetadata searches the record's file tree with the local
// pattern and emits one record per extractor instance of every matched
// file.
func (d *Dumper) showFileTreeMetadata(
	rootDatasetID string,
	rootDatasetVersion string,
	datasetPath metapath.Path,
	record *model.MetadataRootRecord,
	searchPattern metapath.Path,
	recursive bool,
	emit EmitFunc,
) (bool, error) {
	recordHandle, err := model.Acquire(record)
	if err != nil {
		return false, err
	}
	defer recordHandle.Release()

	datasetLevel := record.DatasetLevelMetadata()
	if datasetLevel != nil {
		metadataHandle, err := model.Acquire(datasetLevel)
		if err != nil {
			return false, err
		}
		defer metadataHandle.Release()
	}

	fileTree := record.FileTree()
	if fileTree == nil {
		return true, nil
	}
	fileTreeHandle, err := model.Acquire(fileTree)
	if err != nil {
		return false, err
	}
	defer fileTreeHandle.Release()

	// Do not search anything if the file tree is empty.
	if !fileTree.HasChildren() {
		return true, nil
	}

	commonProperties := d.commonProperties(
		rootDatasetID, rootDatasetVersion, record, datasetPath)

	var (
		resultCount int
		stopped     bool
		innerErr    error
	)
	err = search.New(fileTree).Pattern(
		searchPattern, recursive, "",
		func(result search.Result) bool {
			resultCount++

			// Skip paths that describe a directory, not metadata.
			metadata, ok := result.Element.(*model.Metadata)
			if !ok {
				return true
			}

			keepGoing, err := d.showFileMetadata(
				commonProperties, datasetPath, result.Path, metadata, emit)
			if err != nil {
				innerErr = err
				return false
			}
			if !keepGoing {
				stopped = true
				return false
			}
			return true
		})
	d.Metrics.RecordSearch(resultCount)
	if err != nil {
		return false, err
	}
	if innerErr != nil {
		return false, innerErr
	}
	if stopped {
		return false, nil
	}

	if resultCount == 0 {
		d.Log.Warn().
			Str("pattern", searchPattern.String()).
			Str("dataset_id", record.DatasetIdentifier().String()).
			Str("dataset_version", record.DatasetVersion()).
			Msg("pattern does not match any element in file-tree of dataset")
		d.Metrics.RecordDumpMiss("file-pattern")
	}
	return true, nil
}

func (d *Dumper) showFileMetadata(
	commonProperties map[string]any,
	datasetPath metapath.Path,
	filePath metapath.Path,
	metadata *model.Metadata,
	emit EmitFunc,
) (bool, error) {
	metadataHandle, err := model.Acquire(metadata)
	if err != nil {
		return false, err
	}
	defer metadataHandle.Release()

	for _, run := range metadata.ExtractorRuns() {
		for _, instance := range run.Instances {
			metadataRecord := map[string]any{
				"type": "file",
				"path": filePath.String(),
			}
			mergeProperties(metadataRecord, commonProperties)
			mergeProperties(metadataRecord, instanceProperties(run.ExtractorName, instance))

			d.Metrics.RecordDump("file")
			if !emit(d.resultRecord(metadataRecord, datasetPath.Join(filePath), "file")) {
				return false, nil
			}
		}
	}
	return true, nil
}

// commonProperties builds the per-dataset record properties. The
// root-dataset annotation is added only for non-root dataset paths.
func (d *Dumper) commonProperties(
	rootDatasetID string,
	rootDatasetVersion string,
	record *model.MetadataRootRecord,
	datasetPath metapath.Path,
) map[string]any {
	properties := map[string]any{
		"dataset_id":      record.DatasetIdentifier().String(),
		"dataset_version": record.DatasetVersion(),
	}
	if !datasetPath.IsEmpty() {
		properties["root_dataset_id"] = rootDatasetID
		properties["root_dataset_version"] = rootDatasetVersion
		properties["dataset_path"] = datasetPath.String()
	}
	return properties
}

func instanceProperties(extractorName string, instance *model.MetadataInstance) map[string]any {
	return map[string]any{
		"extraction_time":      instance.TimeStamp,
		"agent_name":           instance.AuthorName,
		"agent_email":          instance.AuthorEmail,
		"extractor_name":       extractorName,
		"extractor_version":    instance.Configuration.Version,
		"extraction_parameter": instance.Configuration.Parameter,
		"extracted_metadata":   instance.Content,
	}
}

// resultRecord wraps a metadata record in the dump result envelope.
// Remote metadata stores render as "<store>:/<element_path>", local
// stores as the absolute filesystem path of the element.
func (d *Dumper) resultRecord(
	metadataRecord map[string]any,
	elementPath metapath.Path,
	reportType string,
) Record {
	var path string
	if store.IsRemote(d.StoreLocation) {
		path = d.StoreLocation + ":/" + elementPath.String()
	} else {
		absolute, err := filepath.Abs(
			filepath.Join(d.StoreLocation, filepath.FromSlash(elementPath.String())))
		if err != nil {
			absolute = filepath.Join(d.StoreLocation, filepath.FromSlash(elementPath.String()))
		}
		path = absolute
	}

	return Record{
		Status:         "ok",
		Action:         "meta_dump",
		Backend:        d.Backend,
		MetadataSource: d.StoreLocation,
		Type:           reportType,
		Metadata:       metadataRecord,
		Path:           path,
	}
}

func mergeProperties(target map[string]any, source map[string]any) {
	for key, value := range source {
		target[key] = value
	}
}
