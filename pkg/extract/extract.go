// ABOUTME: Extraction pipeline
// ABOUTME: Resolves extractors, ensures content, normalizes results

package extract

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nainya/metatree/internal/metrics"
	"github.com/nainya/metatree/pkg/dataset"
	"github.com/nainya/metatree/pkg/metapath"
)

// Parameter bundles everything one extraction run needs.
type Parameter struct {
	Dataset            dataset.Dataset
	DatasetID          uuid.UUID
	DatasetVersion     string
	LocalObjectPath    string // absolute path of the extraction target
	ExtractorName      string
	ExtractorArguments map[string]string
	FileTreePath       metapath.Path // empty for dataset-level extraction
	AgentName          string
	AgentEmail         string
}

// Result is one normalized extraction result. MetadataRecord is present
// only for successful extractions; its shape matches the records the
// dump pipeline reads back out of a store.
type Result struct {
	Status         string         `json:"status"`
	Action         string         `json:"action"`
	Type           string         `json:"type"`
	Path           string         `json:"path,omitempty"`
	Message        string         `json:"message,omitempty"`
	MetadataRecord map[string]any `json:"metadata_record,omitempty"`
}

// EmitFunc consumes extraction results; returning false stops the run.
type EmitFunc func(Result) bool

// Pipeline runs extractors and normalizes their results.
type Pipeline struct {
	Registry *Registry
	Log      *zerolog.Logger
	Metrics  *metrics.Metrics
}

// Extract dispatches on the presence of a target path: file-level
// extraction when one is given, dataset-level extraction otherwise.
func (p *Pipeline) Extract(param Parameter, emit EmitFunc) error {
	start := time.Now()

	var err error
	if param.FileTreePath.IsEmpty() {
		err = p.extractDataset(param, emit)
	} else {
		err = p.extractFile(param, emit)
	}

	status := "ok"
	if err != nil {
		status = "error"
	}
	p.Metrics.RecordExtraction(param.ExtractorName, status, time.Since(start))
	return err
}

func (p *Pipeline) extractDataset(param Parameter, emit EmitFunc) error {
	registration, err := p.Registry.Resolve(param.ExtractorName)
	if err != nil {
		return err
	}

	switch provider := registration.Provider.(type) {
	case ModernProvider:
		if provider.NewDatasetExtractor == nil {
			return fmt.Errorf(
				"%w: %q is not a dataset-level extractor",
				ErrWrongExtractorKind, param.ExtractorName)
		}
		p.Log.Debug().
			Str("dataset", param.Dataset.Path()).
			Msg("extracting dataset level metadata")
		extractor := provider.NewDatasetExtractor(
			param.Dataset, param.DatasetVersion, param.ExtractorArguments)
		return p.performDatasetExtraction(param, extractor, emit)

	case LegacyProvider:
		p.Log.Debug().
			Str("dataset", param.Dataset.Path()).
			Msg("performing legacy dataset level metadata extraction")
		return p.legacyExtractDataset(param, provider, emit)

	case LegacyClassProvider:
		p.Log.Debug().
			Str("dataset", param.Dataset.Path()).
			Msg("performing class-style legacy dataset level metadata extraction")
		return p.legacyClassExtractDataset(param, provider, emit)

	default:
		return fmt.Errorf("unknown extractor provider %T", registration.Provider)
	}
}

func (p *Pipeline) extractFile(param Parameter, emit EmitFunc) error {
	info, err := p.fileInfo(param)
	if err != nil {
		return err
	}

	registration, err := p.Registry.Resolve(param.ExtractorName)
	if err != nil {
		return err
	}

	switch provider := registration.Provider.(type) {
	case ModernProvider:
		if provider.NewFileExtractor == nil {
			return fmt.Errorf(
				"%w: %q is not a file-level extractor",
				ErrWrongExtractorKind, param.ExtractorName)
		}
		p.Log.Debug().
			Str("dataset", param.Dataset.Path()).
			Str("path", param.FileTreePath.String()).
			Msg("performing file level extraction")
		extractor := provider.NewFileExtractor(
			param.Dataset, param.DatasetVersion, *info, param.ExtractorArguments)
		if extractor.ContentRequired() {
			p.ensurePathAvailability(param, info.Path)
		}
		return p.performFileExtraction(param, extractor, emit)

	case LegacyProvider:
		p.Log.Debug().
			Str("dataset", param.Dataset.Path()).
			Str("path", param.FileTreePath.String()).
			Msg("performing legacy file level metadata extraction")
		return p.legacyExtractFile(param, provider, emit)

	case LegacyClassProvider:
		p.Log.Debug().
			Str("dataset", param.Dataset.Path()).
			Str("path", param.FileTreePath.String()).
			Msg("performing class-style legacy file level metadata extraction")
		return p.legacyClassExtractFile(param, provider, emit)

	default:
		return fmt.Errorf("unknown extractor provider %T", registration.Provider)
	}
}

// fileInfo resolves the extraction target's working-tree status and
// rejects directories and untracked paths before any extractor runs.
func (p *Pipeline) fileInfo(param Parameter) (*FileInfo, error) {
	status, err := param.Dataset.Status(param.FileTreePath.String())
	if err != nil {
		return nil, fmt.Errorf(
			"no dataset status for %s in dataset %s: %w",
			param.FileTreePath, param.Dataset.Path(), err)
	}
	if status.Type == "directory" {
		return nil, fmt.Errorf("%w: %s", ErrDirectoryTarget, status.Path)
	}
	if status.State == "untracked" {
		return nil, fmt.Errorf("%w: %s", ErrUntrackedFile, status.Path)
	}

	return &FileInfo{
		Type:             status.Type,
		GitShaSum:        status.GitShaSum,
		ByteSize:         status.ByteSize,
		State:            status.State,
		Path:             status.Path,
		IntraDatasetPath: param.FileTreePath.String(),
	}, nil
}

func (p *Pipeline) performDatasetExtraction(
	param Parameter, extractor DatasetExtractor, emit EmitFunc,
) error {
	if category := extractor.DataOutputCategory(); category != CategoryImmediate {
		return fmt.Errorf("%w: %s", ErrUnsupportedOutputCategory, category)
	}

	extracted, err := extractor.Extract()
	if err != nil {
		return err
	}

	result := Result{
		Status:  extracted.ResultStatus,
		Action:  "meta_extract",
		Type:    "dataset",
		Path:    param.LocalObjectPath,
		Message: extracted.ResultMessage,
	}
	if extracted.ExtractionSuccess {
		result.MetadataRecord = p.metadataRecord(
			"dataset", param, extractor.Version(), "", extracted.ImmediateData)
	}
	emit(result)
	return nil
}

func (p *Pipeline) performFileExtraction(
	param Parameter, extractor FileExtractor, emit EmitFunc,
) error {
	if category := extractor.DataOutputCategory(); category != CategoryImmediate {
		return fmt.Errorf("%w: %s", ErrUnsupportedOutputCategory, category)
	}

	extracted, err := extractor.Extract()
	if err != nil {
		return err
	}

	result := Result{
		Status:  extracted.ResultStatus,
		Action:  "meta_extract",
		Type:    "file",
		Path:    param.LocalObjectPath,
		Message: extracted.ResultMessage,
	}
	if extracted.ExtractionSuccess {
		result.MetadataRecord = p.metadataRecord(
			"file", param, extractor.Version(),
			param.FileTreePath.String(), extracted.ImmediateData)
	}
	emit(result)
	return nil
}

func (p *Pipeline) legacyExtractDataset(
	param Parameter, provider LegacyProvider, emit EmitFunc,
) error {
	status, err := param.Dataset.Submodules()
	if err != nil {
		return err
	}

	extractor := provider.New()
	p.ensureLegacyContentAvailability(param, extractor, "dataset", status)

	return extractor.Extract(
		param.Dataset, param.DatasetVersion, "dataset", status,
		func(legacy LegacyResult) bool {
			result := Result{
				Status:  legacy.Status,
				Action:  "meta_extract",
				Type:    "dataset",
				Path:    param.Dataset.Path(),
				Message: legacy.Message,
			}
			if legacy.Status == "ok" {
				result.MetadataRecord = p.metadataRecord(
					"dataset", param,
					legacyVersion(extractor, param.Dataset),
					"", legacy.Metadata)
			}
			return emit(result)
		})
}

func (p *Pipeline) legacyExtractFile(
	param Parameter, provider LegacyProvider, emit EmitFunc,
) error {
	status, err := param.Dataset.Status(param.FileTreePath.String())
	if err != nil {
		return err
	}

	extractor := provider.New()
	statusList := []*dataset.FileStatus{status}
	p.ensureLegacyContentAvailability(param, extractor, "content", statusList)

	return extractor.Extract(
		param.Dataset, param.DatasetVersion, "content", statusList,
		func(legacy LegacyResult) bool {
			result := Result{
				Status:  legacy.Status,
				Action:  "meta_extract",
				Type:    "file",
				Path:    param.LocalObjectPath,
				Message: legacy.Message,
			}
			if legacy.Status == "ok" {
				result.MetadataRecord = p.metadataRecord(
					"file", param,
					legacyVersion(extractor, param.Dataset),
					param.FileTreePath.String(), legacy.Metadata)
			}
			return emit(result)
		})
}

func (p *Pipeline) legacyClassExtractDataset(
	param Parameter, provider LegacyClassProvider, emit EmitFunc,
) error {
	datasetPath := param.Dataset.Path()
	if provider.NeedsContent {
		p.ensurePathAvailability(param, datasetPath)
	}

	extractor := provider.New(param.Dataset, []string{datasetPath})
	datasetResult, _, err := extractor.GetMetadata(true, false)
	if err != nil {
		return err
	}

	emit(Result{
		Status: "ok",
		Action: "meta_extract",
		Type:   "dataset",
		MetadataRecord: p.metadataRecord(
			"dataset", param, "un-versioned", "", datasetResult),
	})
	return nil
}

func (p *Pipeline) legacyClassExtractFile(
	param Parameter, provider LegacyClassProvider, emit EmitFunc,
) error {
	if provider.NeedsContent {
		p.ensurePathAvailability(param, param.LocalObjectPath)
	}

	extractor := provider.New(
		param.Dataset, []string{param.FileTreePath.String()})
	_, fileResults, err := extractor.GetMetadata(false, true)
	if err != nil {
		return err
	}

	for _, fileResult := range fileResults {
		keepGoing := emit(Result{
			Status: "ok",
			Action: "meta_extract",
			Type:   "file",
			Path:   param.LocalObjectPath,
			MetadataRecord: p.metadataRecord(
				"file", param, "un-versioned",
				fileResult.Path, fileResult.Metadata),
		})
		if !keepGoing {
			return nil
		}
	}
	return nil
}

// metadataRecord builds the common normalized record. path is included
// only for file-level records.
func (p *Pipeline) metadataRecord(
	recordType string,
	param Parameter,
	extractorVersion string,
	path string,
	extracted json.RawMessage,
) map[string]any {
	record := map[string]any{
		"type":                 recordType,
		"dataset_id":           param.DatasetID.String(),
		"dataset_version":      param.DatasetVersion,
		"extractor_name":       param.ExtractorName,
		"extractor_version":    extractorVersion,
		"extraction_parameter": param.ExtractorArguments,
		"extraction_time":      unixSeconds(time.Now()),
		"agent_name":           param.AgentName,
		"agent_email":          param.AgentEmail,
		"extracted_metadata":   extracted,
	}
	if path != "" {
		record["path"] = path
	}
	return record
}

// ensureLegacyContentAvailability fetches everything a function-style
// legacy extractor declares as required. Extractors without the
// capability declare nothing.
func (p *Pipeline) ensureLegacyContentAvailability(
	param Parameter,
	extractor LegacyExtractor,
	operation string,
	status []*dataset.FileStatus,
) {
	requirer, ok := extractor.(LegacyContentRequirer)
	if !ok {
		return
	}
	for _, path := range requirer.RequiredContent(param.Dataset, operation, status) {
		p.ensurePathAvailability(param, path)
	}
}

// ensurePathAvailability retrieves content for a path. Retrieval failure
// is logged but never fatal; the extractor decides what is fatal.
func (p *Pipeline) ensurePathAvailability(param Parameter, path string) {
	failed := false
	err := param.Dataset.Get(path, true, func(result dataset.GetResult) bool {
		if result.Status == "error" {
			failed = true
			p.Log.Error().
				Str("path", path).
				Str("dataset", param.Dataset.Path()).
				Str("message", result.Message).
				Msg("cannot make content available in dataset")
			return false
		}
		return true
	})
	if err != nil {
		p.Log.Error().
			Err(err).
			Str("path", path).
			Str("dataset", param.Dataset.Path()).
			Msg("cannot make content available in dataset")
		return
	}
	if !failed {
		p.Log.Debug().
			Str("path", path).
			Str("dataset", param.Dataset.Path()).
			Msg("requested content available")
	}
}

func legacyVersion(extractor LegacyExtractor, ds dataset.Dataset) string {
	state := extractor.State(ds)
	if version, ok := state["version"]; ok {
		return fmt.Sprint(version)
	}
	return "---"
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// ArgsToMap converts trailing KEY VALUE argument pairs into the
// extraction parameter map. An odd trailing key maps to "".
func ArgsToMap(args []string) map[string]string {
	result := map[string]string{}
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			result[args[i]] = args[i+1]
		} else {
			result[args[i]] = ""
		}
	}
	return result
}
