// ABOUTME: Extractor contracts across three generations
// ABOUTME: Modern capability interfaces plus two legacy calling conventions

package extract

import (
	"encoding/json"

	"github.com/nainya/metatree/pkg/dataset"
)

// DataOutputCategory declares how an extractor delivers its output.
// Only CategoryImmediate is supported by this pipeline.
type DataOutputCategory int

const (
	// CategoryImmediate delivers the extracted metadata inline with the
	// extractor result.
	CategoryImmediate DataOutputCategory = iota

	// CategoryFile delivers output through a result file.
	CategoryFile

	// CategoryDirectory delivers output through a result directory.
	CategoryDirectory
)

func (c DataOutputCategory) String() string {
	switch c {
	case CategoryImmediate:
		return "IMMEDIATE"
	case CategoryFile:
		return "FILE"
	case CategoryDirectory:
		return "DIRECTORY"
	default:
		return "UNKNOWN"
	}
}

// FileInfo describes the file a file-level extractor operates on.
type FileInfo struct {
	Type             string
	GitShaSum        string
	ByteSize         int64
	State            string
	Path             string // absolute, used by extractors
	IntraDatasetPath string
}

// ExtractorResult is the raw result of a modern extractor invocation,
// before normalization into the common record schema.
type ExtractorResult struct {
	ExtractorVersion    string
	ExtractionParameter map[string]string
	ExtractionSuccess   bool
	ResultStatus        string // "ok" or "error"
	ResultMessage       string
	ImmediateData       json.RawMessage
}

// DatasetExtractor is the modern contract for dataset-level extraction.
type DatasetExtractor interface {
	DataOutputCategory() DataOutputCategory
	Version() string
	Extract() (*ExtractorResult, error)
}

// FileExtractor is the modern contract for file-level extraction.
// ContentRequired extractors get their target content fetched before
// invocation.
type FileExtractor interface {
	DataOutputCategory() DataOutputCategory
	Version() string
	ContentRequired() bool
	Extract() (*ExtractorResult, error)
}

// LegacyResult is one result yielded by a function-style legacy
// extractor. A status other than "ok" propagates without a metadata
// record.
type LegacyResult struct {
	Status   string
	Message  string
	Metadata json.RawMessage
}

// LegacyExtractor is the function-style legacy contract: one callable
// invoked with the dataset, its version, the operation ("dataset" or
// "content") and a status list, yielding results.
type LegacyExtractor interface {
	Extract(
		ds dataset.Dataset,
		version string,
		operation string,
		status []*dataset.FileStatus,
		fn func(LegacyResult) bool,
	) error

	// State exposes the extractor's state map; the "version" entry, if
	// present, becomes the reported extractor version.
	State(ds dataset.Dataset) map[string]any
}

// LegacyContentRequirer is an optional capability of function-style
// legacy extractors that declare content requirements.
type LegacyContentRequirer interface {
	RequiredContent(
		ds dataset.Dataset,
		operation string,
		status []*dataset.FileStatus,
	) []string
}

// LegacyFileResult is one per-file result of a class-style legacy
// extractor.
type LegacyFileResult struct {
	Path     string
	Metadata json.RawMessage
}

// LegacyClassExtractor is the two-phase class-style legacy contract.
// Such extractors carry no version information; they are reported as
// "un-versioned".
type LegacyClassExtractor interface {
	GetMetadata(wantDataset, wantFile bool) (
		datasetResult json.RawMessage,
		fileResults []LegacyFileResult,
		err error,
	)
}

// Provider is the closed union of the three extractor generations. A
// registered provider is exactly one of ModernProvider, LegacyProvider
// or LegacyClassProvider; the pipeline dispatches on the concrete type.
type Provider interface {
	isProvider()
}

// ModernProvider registers a modern extractor. At least one of the two
// constructors must be set; a nil constructor marks the level as
// unsupported by this extractor.
type ModernProvider struct {
	NewDatasetExtractor func(
		ds dataset.Dataset, version string, parameter map[string]string,
	) DatasetExtractor

	NewFileExtractor func(
		ds dataset.Dataset, version string, info FileInfo, parameter map[string]string,
	) FileExtractor
}

func (ModernProvider) isProvider() {}

// LegacyProvider registers a function-style legacy extractor.
type LegacyProvider struct {
	New func() LegacyExtractor
}

func (LegacyProvider) isProvider() {}

// LegacyClassProvider registers a class-style legacy extractor.
type LegacyClassProvider struct {
	New func(ds dataset.Dataset, paths []string) LegacyClassExtractor

	// NeedsContent requests an unconditional content fetch of the
	// extraction target before invocation.
	NeedsContent bool
}

func (LegacyClassProvider) isProvider() {}
