// ABOUTME: Built-in extractors
// ABOUTME: core_dataset and core_file produce identity and size records

package extractors

import (
	"encoding/json"
	"fmt"

	"github.com/nainya/metatree/pkg/dataset"
	"github.com/nainya/metatree/pkg/extract"
)

const (
	coreDatasetName = "core_dataset"
	coreFileName    = "core_file"
	coreVersion     = "0.0.1"
	builtinOrigin   = "builtin"
)

// Register adds the built-in extractors to a registry.
func Register(registry *extract.Registry) {
	registry.Register(extract.Registration{
		Name:   coreDatasetName,
		Origin: builtinOrigin,
		Provider: extract.ModernProvider{
			NewDatasetExtractor: newCoreDataset,
		},
	})
	registry.Register(extract.Registration{
		Name:   coreFileName,
		Origin: builtinOrigin,
		Provider: extract.ModernProvider{
			NewFileExtractor: newCoreFile,
		},
	})
}

type coreDataset struct {
	ds        dataset.Dataset
	version   string
	parameter map[string]string
}

func newCoreDataset(
	ds dataset.Dataset, version string, parameter map[string]string,
) extract.DatasetExtractor {
	return &coreDataset{ds: ds, version: version, parameter: parameter}
}

func (e *coreDataset) DataOutputCategory() extract.DataOutputCategory {
	return extract.CategoryImmediate
}

func (e *coreDataset) Version() string {
	return coreVersion
}

func (e *coreDataset) Extract() (*extract.ExtractorResult, error) {
	id, err := e.ds.ID()
	if err != nil {
		return &extract.ExtractorResult{
			ExtractorVersion:    coreVersion,
			ExtractionParameter: e.parameter,
			ResultStatus:        "error",
			ResultMessage:       err.Error(),
		}, nil
	}

	submodules, err := e.ds.Submodules()
	if err != nil {
		return nil, err
	}

	record := map[string]any{
		"@id":     "uuid:" + id.String(),
		"type":    "dataset",
		"version": e.version,
	}
	if len(submodules) > 0 {
		parts := make([]map[string]any, 0, len(submodules))
		for _, sub := range submodules {
			parts = append(parts, map[string]any{
				"@id":  "sha256:" + sub.GitShaSum,
				"path": sub.Path,
			})
		}
		record["hasPart"] = parts
	}

	blob, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}
	return &extract.ExtractorResult{
		ExtractorVersion:    coreVersion,
		ExtractionParameter: e.parameter,
		ExtractionSuccess:   true,
		ResultStatus:        "ok",
		ImmediateData:       blob,
	}, nil
}

type coreFile struct {
	info      extract.FileInfo
	parameter map[string]string
}

func newCoreFile(
	_ dataset.Dataset, _ string, info extract.FileInfo, parameter map[string]string,
) extract.FileExtractor {
	return &coreFile{info: info, parameter: parameter}
}

func (e *coreFile) DataOutputCategory() extract.DataOutputCategory {
	return extract.CategoryImmediate
}

func (e *coreFile) Version() string {
	return coreVersion
}

func (e *coreFile) ContentRequired() bool {
	return true
}

func (e *coreFile) Extract() (*extract.ExtractorResult, error) {
	record := map[string]any{
		"@id":               fileID(e.info),
		"type":              e.info.Type,
		"path":              e.info.IntraDatasetPath,
		"content_byte_size": e.info.ByteSize,
	}
	blob, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}
	return &extract.ExtractorResult{
		ExtractorVersion:    coreVersion,
		ExtractionParameter: e.parameter,
		ExtractionSuccess:   true,
		ResultStatus:        "ok",
		ImmediateData:       blob,
	}, nil
}

// fileID derives a stable identifier from the content hash, falling back
// to the path for hashless entries such as symlinks.
func fileID(info extract.FileInfo) string {
	if info.GitShaSum != "" {
		return "sha256:" + info.GitShaSum
	}
	return fmt.Sprintf("path:%s", info.IntraDatasetPath)
}
