// ABOUTME: Tests for the extraction pipeline
// ABOUTME: All three extractor generations, target checks and content fetching

package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nainya/metatree/pkg/dataset"
	"github.com/nainya/metatree/pkg/metapath"
)

var testDatasetID = uuid.MustParse("00000000-0000-0000-0000-000000000099")

// fakeDataset is an in-memory dataset.Dataset for pipeline tests.
type fakeDataset struct {
	root     string
	files    map[string]*dataset.FileStatus
	getCalls []string
	getFails bool
}

func newFakeDataset() *fakeDataset {
	return &fakeDataset{
		root: "/data/ds",
		files: map[string]*dataset.FileStatus{
			"f1": {Type: "file", State: "clean", GitShaSum: "abc", ByteSize: 3, Path: "/data/ds/f1"},
			"d1": {Type: "directory", State: "clean", Path: "/data/ds/d1"},
			"u1": {Type: "file", State: "untracked", Path: "/data/ds/u1"},
		},
	}
}

func (d *fakeDataset) ID() (uuid.UUID, error) { return testDatasetID, nil }
func (d *fakeDataset) Path() string           { return d.root }
func (d *fakeDataset) Version() (string, error) {
	return "v1", nil
}

func (d *fakeDataset) Status(path string) (*dataset.FileStatus, error) {
	status, ok := d.files[path]
	if !ok {
		return nil, fmt.Errorf("no status for %s", path)
	}
	return status, nil
}

func (d *fakeDataset) Get(path string, _ bool, fn func(dataset.GetResult) bool) error {
	d.getCalls = append(d.getCalls, path)
	if d.getFails {
		fn(dataset.GetResult{Status: "error", Path: path, Message: "unavailable"})
		return nil
	}
	fn(dataset.GetResult{Status: "ok", Path: path})
	return nil
}

func (d *fakeDataset) AgentName() string  { return "Test User" }
func (d *fakeDataset) AgentEmail() string { return "test@example.com" }
func (d *fakeDataset) Submodules() ([]*dataset.FileStatus, error) {
	return nil, nil
}

func setupTestPipeline(t *testing.T) (*Pipeline, *Registry) {
	t.Helper()
	log := zerolog.Nop()
	registry := NewRegistry(&log)
	return &Pipeline{Registry: registry, Log: &log}, registry
}

func testParameter(ds dataset.Dataset, extractorName, path string) Parameter {
	return Parameter{
		Dataset:            ds,
		DatasetID:          testDatasetID,
		DatasetVersion:     "v1",
		LocalObjectPath:    "/data/ds",
		ExtractorName:      extractorName,
		ExtractorArguments: map[string]string{"k": "v"},
		FileTreePath:       metapath.New(path),
		AgentName:          "Test User",
		AgentEmail:         "test@example.com",
	}
}

func runExtraction(t *testing.T, p *Pipeline, param Parameter) []Result {
	t.Helper()
	var results []Result
	err := p.Extract(param, func(result Result) bool {
		results = append(results, result)
		return true
	})
	if err != nil {
		t.Fatalf("Extraction failed: %v", err)
	}
	return results
}

// --- modern extractors ---

type fakeModernExtractor struct {
	category        DataOutputCategory
	contentRequired bool
}

func (e *fakeModernExtractor) DataOutputCategory() DataOutputCategory { return e.category }
func (e *fakeModernExtractor) Version() string                       { return "3.0.0" }
func (e *fakeModernExtractor) ContentRequired() bool                 { return e.contentRequired }
func (e *fakeModernExtractor) Extract() (*ExtractorResult, error) {
	return &ExtractorResult{
		ExtractorVersion:  "3.0.0",
		ExtractionSuccess: true,
		ResultStatus:      "ok",
		ImmediateData:     json.RawMessage(`{"found":true}`),
	}, nil
}

func registerModern(registry *Registry, name string, extractor *fakeModernExtractor, levels string) {
	provider := ModernProvider{}
	if levels == "dataset" || levels == "both" {
		provider.NewDatasetExtractor = func(
			dataset.Dataset, string, map[string]string,
		) DatasetExtractor {
			return extractor
		}
	}
	if levels == "file" || levels == "both" {
		provider.NewFileExtractor = func(
			dataset.Dataset, string, FileInfo, map[string]string,
		) FileExtractor {
			return extractor
		}
	}
	registry.Register(Registration{Name: name, Origin: "test", Provider: provider})
}

func TestModernDatasetExtraction(t *testing.T) {
	p, registry := setupTestPipeline(t)
	registerModern(registry, "modern", &fakeModernExtractor{}, "dataset")

	ds := newFakeDataset()
	results := runExtraction(t, p, testParameter(ds, "modern", ""))

	if len(results) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(results))
	}
	result := results[0]
	if result.Status != "ok" || result.Action != "meta_extract" || result.Type != "dataset" {
		t.Errorf("Unexpected envelope: %+v", result)
	}

	record := result.MetadataRecord
	if record == nil {
		t.Fatal("Expected a metadata record")
	}
	if record["extractor_name"] != "modern" {
		t.Errorf("Unexpected extractor_name: %v", record["extractor_name"])
	}
	if record["extractor_version"] != "3.0.0" {
		t.Errorf("Unexpected extractor_version: %v", record["extractor_version"])
	}
	if record["dataset_id"] != testDatasetID.String() {
		t.Errorf("Unexpected dataset_id: %v", record["dataset_id"])
	}
	if record["agent_name"] != "Test User" {
		t.Errorf("Unexpected agent_name: %v", record["agent_name"])
	}
	if extractionTime, ok := record["extraction_time"].(float64); !ok || extractionTime <= 0 {
		t.Errorf("Unexpected extraction_time: %v", record["extraction_time"])
	}
	if _, ok := record["path"]; ok {
		t.Error("Dataset record must not carry a path")
	}
}

func TestModernFileExtraction(t *testing.T) {
	p, registry := setupTestPipeline(t)
	registerModern(registry, "modern",
		&fakeModernExtractor{contentRequired: true}, "file")

	ds := newFakeDataset()
	results := runExtraction(t, p, testParameter(ds, "modern", "f1"))

	if len(results) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(results))
	}
	if results[0].Type != "file" {
		t.Errorf("Unexpected result type: %q", results[0].Type)
	}
	if results[0].MetadataRecord["path"] != "f1" {
		t.Errorf("Unexpected record path: %v", results[0].MetadataRecord["path"])
	}

	// ContentRequired triggers a fetch of the target.
	if len(ds.getCalls) != 1 || ds.getCalls[0] != "/data/ds/f1" {
		t.Errorf("Unexpected content fetches: %v", ds.getCalls)
	}
}

func TestContentFetchFailureIsSoft(t *testing.T) {
	p, registry := setupTestPipeline(t)
	registerModern(registry, "modern",
		&fakeModernExtractor{contentRequired: true}, "file")

	ds := newFakeDataset()
	ds.getFails = true
	results := runExtraction(t, p, testParameter(ds, "modern", "f1"))

	if len(results) != 1 || results[0].Status != "ok" {
		t.Errorf("Expected extraction to proceed despite fetch failure: %+v", results)
	}
}

func TestWrongExtractorKind(t *testing.T) {
	p, registry := setupTestPipeline(t)
	registerModern(registry, "file_only", &fakeModernExtractor{}, "file")

	err := p.Extract(
		testParameter(newFakeDataset(), "file_only", ""),
		func(Result) bool { return true })
	if !errors.Is(err, ErrWrongExtractorKind) {
		t.Errorf("Expected ErrWrongExtractorKind, got %v", err)
	}
}

func TestUnsupportedOutputCategory(t *testing.T) {
	p, registry := setupTestPipeline(t)
	registerModern(registry, "filecat",
		&fakeModernExtractor{category: CategoryFile}, "dataset")

	err := p.Extract(
		testParameter(newFakeDataset(), "filecat", ""),
		func(Result) bool { return true })
	if !errors.Is(err, ErrUnsupportedOutputCategory) {
		t.Errorf("Expected ErrUnsupportedOutputCategory, got %v", err)
	}
}

func TestDirectoryTargetRejectedBeforeResolution(t *testing.T) {
	p, _ := setupTestPipeline(t)

	// The extractor name is not registered; the directory check fires
	// before extractor resolution.
	err := p.Extract(
		testParameter(newFakeDataset(), "unregistered", "d1"),
		func(Result) bool { return true })
	if !errors.Is(err, ErrDirectoryTarget) {
		t.Errorf("Expected ErrDirectoryTarget, got %v", err)
	}
}

func TestUntrackedTargetRejected(t *testing.T) {
	p, registry := setupTestPipeline(t)
	registerModern(registry, "modern", &fakeModernExtractor{}, "file")

	err := p.Extract(
		testParameter(newFakeDataset(), "modern", "u1"),
		func(Result) bool { return true })
	if !errors.Is(err, ErrUntrackedFile) {
		t.Errorf("Expected ErrUntrackedFile, got %v", err)
	}
}

func TestUnknownExtractor(t *testing.T) {
	p, _ := setupTestPipeline(t)

	err := p.Extract(
		testParameter(newFakeDataset(), "ghost", ""),
		func(Result) bool { return true })
	if !errors.Is(err, ErrUnknownExtractor) {
		t.Errorf("Expected ErrUnknownExtractor, got %v", err)
	}
}

// --- function-style legacy extractors ---

type fakeLegacyExtractor struct {
	state    map[string]any
	required []string
}

func (e *fakeLegacyExtractor) Extract(
	ds dataset.Dataset,
	version string,
	operation string,
	status []*dataset.FileStatus,
	fn func(LegacyResult) bool,
) error {
	fn(LegacyResult{
		Status:   "ok",
		Metadata: json.RawMessage(fmt.Sprintf(`{"operation":%q}`, operation)),
	})
	return nil
}

func (e *fakeLegacyExtractor) State(dataset.Dataset) map[string]any {
	return e.state
}

func (e *fakeLegacyExtractor) RequiredContent(
	dataset.Dataset, string, []*dataset.FileStatus,
) []string {
	return e.required
}

func TestLegacyDatasetExtraction(t *testing.T) {
	p, registry := setupTestPipeline(t)
	extractor := &fakeLegacyExtractor{state: map[string]any{"version": "2.0"}}
	registry.Register(Registration{
		Name:     "legacy",
		Origin:   "test",
		Provider: LegacyProvider{New: func() LegacyExtractor { return extractor }},
	})

	results := runExtraction(t, p, testParameter(newFakeDataset(), "legacy", ""))

	if len(results) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(results))
	}
	record := results[0].MetadataRecord
	if record["extractor_version"] != "2.0" {
		t.Errorf("Expected version from extractor state, got %v", record["extractor_version"])
	}
	if string(record["extracted_metadata"].(json.RawMessage)) != `{"operation":"dataset"}` {
		t.Errorf("Unexpected extracted metadata: %s", record["extracted_metadata"])
	}
}

func TestLegacyFileExtractionAndContentRequirements(t *testing.T) {
	p, registry := setupTestPipeline(t)
	extractor := &fakeLegacyExtractor{required: []string{"f1"}}
	registry.Register(Registration{
		Name:     "legacy",
		Origin:   "test",
		Provider: LegacyProvider{New: func() LegacyExtractor { return extractor }},
	})

	ds := newFakeDataset()
	results := runExtraction(t, p, testParameter(ds, "legacy", "f1"))

	if len(results) != 1 || results[0].Type != "file" {
		t.Fatalf("Unexpected results: %+v", results)
	}
	record := results[0].MetadataRecord
	// No version in the extractor state.
	if record["extractor_version"] != "---" {
		t.Errorf("Expected placeholder version, got %v", record["extractor_version"])
	}
	if record["path"] != "f1" {
		t.Errorf("Unexpected record path: %v", record["path"])
	}
	if len(ds.getCalls) != 1 || ds.getCalls[0] != "f1" {
		t.Errorf("Expected declared content to be fetched, got %v", ds.getCalls)
	}
}

// --- class-style legacy extractors ---

type fakeLegacyClassExtractor struct{}

func (e *fakeLegacyClassExtractor) GetMetadata(
	wantDataset, wantFile bool,
) (json.RawMessage, []LegacyFileResult, error) {
	var datasetResult json.RawMessage
	var fileResults []LegacyFileResult
	if wantDataset {
		datasetResult = json.RawMessage(`{"kind":"dataset"}`)
	}
	if wantFile {
		fileResults = []LegacyFileResult{
			{Path: "f1", Metadata: json.RawMessage(`{"kind":"file"}`)},
		}
	}
	return datasetResult, fileResults, nil
}

func TestLegacyClassDatasetExtraction(t *testing.T) {
	p, registry := setupTestPipeline(t)
	registry.Register(Registration{
		Name:   "legacyclass",
		Origin: "test",
		Provider: LegacyClassProvider{
			New: func(dataset.Dataset, []string) LegacyClassExtractor {
				return &fakeLegacyClassExtractor{}
			},
		},
	})

	results := runExtraction(t, p, testParameter(newFakeDataset(), "legacyclass", ""))

	if len(results) != 1 || results[0].Type != "dataset" {
		t.Fatalf("Unexpected results: %+v", results)
	}
	if results[0].MetadataRecord["extractor_version"] != "un-versioned" {
		t.Errorf("Expected 'un-versioned', got %v",
			results[0].MetadataRecord["extractor_version"])
	}
}

func TestLegacyClassFileExtractionWithContent(t *testing.T) {
	p, registry := setupTestPipeline(t)
	registry.Register(Registration{
		Name:   "legacyclass",
		Origin: "test",
		Provider: LegacyClassProvider{
			New: func(dataset.Dataset, []string) LegacyClassExtractor {
				return &fakeLegacyClassExtractor{}
			},
			NeedsContent: true,
		},
	})

	ds := newFakeDataset()
	param := testParameter(ds, "legacyclass", "f1")
	param.LocalObjectPath = "/data/ds/f1"
	results := runExtraction(t, p, param)

	if len(results) != 1 || results[0].Type != "file" {
		t.Fatalf("Unexpected results: %+v", results)
	}
	if results[0].MetadataRecord["path"] != "f1" {
		t.Errorf("Unexpected record path: %v", results[0].MetadataRecord["path"])
	}
	if len(ds.getCalls) != 1 {
		t.Errorf("Expected the target to be fetched, got %v", ds.getCalls)
	}
}

// --- registry ---

func TestRegistryLastWins(t *testing.T) {
	log := zerolog.Nop()
	registry := NewRegistry(&log)
	registry.Register(Registration{
		Name: "dup", Origin: "first", Provider: LegacyProvider{},
	})
	registry.Register(Registration{
		Name: "dup", Origin: "second", Provider: ModernProvider{},
	})

	registration, err := registry.Resolve("dup")
	if err != nil {
		t.Fatalf("Failed to resolve: %v", err)
	}
	if registration.Origin != "second" {
		t.Errorf("Expected the later registration to win, got %q", registration.Origin)
	}
	if _, ok := registration.Provider.(ModernProvider); !ok {
		t.Errorf("Unexpected provider type %T", registration.Provider)
	}
}

func TestRegistryUnknownName(t *testing.T) {
	log := zerolog.Nop()
	registry := NewRegistry(&log)

	_, err := registry.Resolve("missing")
	if !errors.Is(err, ErrUnknownExtractor) {
		t.Errorf("Expected ErrUnknownExtractor, got %v", err)
	}
}

func TestArgsToMap(t *testing.T) {
	args := ArgsToMap([]string{"k1", "v1", "k2", "v2", "odd"})
	if len(args) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(args))
	}
	if args["k1"] != "v1" || args["k2"] != "v2" {
		t.Errorf("Unexpected pairs: %v", args)
	}
	if value, ok := args["odd"]; !ok || value != "" {
		t.Errorf("Expected odd trailing key to map to empty string, got %v", args)
	}
}
