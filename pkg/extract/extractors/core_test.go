// ABOUTME: Tests for the built-in core extractors
// ABOUTME: End-to-end runs against a real on-disk dataset

package extractors

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nainya/metatree/pkg/dataset"
	"github.com/nainya/metatree/pkg/extract"
	"github.com/nainya/metatree/pkg/metapath"
)

func setupTestDataset(t *testing.T) *dataset.Local {
	t.Helper()
	dir := t.TempDir()

	id := uuid.MustParse("00000000-0000-0000-0000-000000000021")
	ds, err := dataset.InitLocal(dir, id, "v1", "Test User", "test@example.com")
	if err != nil {
		t.Fatalf("Failed to init dataset: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "f1.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}
	return ds
}

func setupCorePipeline(t *testing.T) *extract.Pipeline {
	t.Helper()
	log := zerolog.Nop()
	registry := extract.NewRegistry(&log)
	Register(registry)
	return &extract.Pipeline{Registry: registry, Log: &log}
}

func runCore(t *testing.T, extractorName, path string) map[string]any {
	t.Helper()
	ds := setupTestDataset(t)
	p := setupCorePipeline(t)

	id, err := ds.ID()
	if err != nil {
		t.Fatalf("Failed to read dataset id: %v", err)
	}

	var results []extract.Result
	err = p.Extract(extract.Parameter{
		Dataset:            ds,
		DatasetID:          id,
		DatasetVersion:     "v1",
		LocalObjectPath:    filepath.Join(ds.Path(), path),
		ExtractorName:      extractorName,
		ExtractorArguments: map[string]string{},
		FileTreePath:       metapath.New(path),
		AgentName:          ds.AgentName(),
		AgentEmail:         ds.AgentEmail(),
	}, func(result extract.Result) bool {
		results = append(results, result)
		return true
	})
	if err != nil {
		t.Fatalf("Extraction failed: %v", err)
	}
	if len(results) != 1 || results[0].Status != "ok" {
		t.Fatalf("Unexpected results: %+v", results)
	}
	return results[0].MetadataRecord
}

func TestCoreFileExtractor(t *testing.T) {
	record := runCore(t, "core_file", "f1.txt")

	var payload map[string]any
	raw := record["extracted_metadata"].(json.RawMessage)
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("Failed to decode payload: %v", err)
	}

	if payload["type"] != "file" {
		t.Errorf("Unexpected type: %v", payload["type"])
	}
	if payload["path"] != "f1.txt" {
		t.Errorf("Unexpected path: %v", payload["path"])
	}
	if payload["content_byte_size"] != float64(5) {
		t.Errorf("Unexpected byte size: %v", payload["content_byte_size"])
	}
	if id, ok := payload["@id"].(string); !ok || id == "" {
		t.Errorf("Expected a stable @id, got %v", payload["@id"])
	}

	if record["extractor_version"] != "0.0.1" {
		t.Errorf("Unexpected extractor version: %v", record["extractor_version"])
	}
}

func TestCoreDatasetExtractor(t *testing.T) {
	record := runCore(t, "core_dataset", "")

	var payload map[string]any
	raw := record["extracted_metadata"].(json.RawMessage)
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("Failed to decode payload: %v", err)
	}

	if payload["type"] != "dataset" {
		t.Errorf("Unexpected type: %v", payload["type"])
	}
	if payload["version"] != "v1" {
		t.Errorf("Unexpected version: %v", payload["version"])
	}
	if payload["@id"] != "uuid:00000000-0000-0000-0000-000000000021" {
		t.Errorf("Unexpected @id: %v", payload["@id"])
	}
}

func TestCoreFileExtractorRejectsDirectories(t *testing.T) {
	ds := setupTestDataset(t)
	p := setupCorePipeline(t)

	if err := os.Mkdir(filepath.Join(ds.Path(), "subdir"), 0o755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}

	id, err := ds.ID()
	if err != nil {
		t.Fatalf("Failed to read dataset id: %v", err)
	}

	err = p.Extract(extract.Parameter{
		Dataset:         ds,
		DatasetID:       id,
		DatasetVersion:  "v1",
		LocalObjectPath: filepath.Join(ds.Path(), "subdir"),
		ExtractorName:   "core_file",
		FileTreePath:    metapath.New("subdir"),
	}, func(extract.Result) bool { return true })
	if err == nil {
		t.Fatal("Expected directory target to be rejected")
	}
}
