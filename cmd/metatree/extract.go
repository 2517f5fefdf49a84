package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nainya/metatree/internal/logger"
	"github.com/nainya/metatree/internal/metrics"
	"github.com/nainya/metatree/pkg/dataset"
	"github.com/nainya/metatree/pkg/extract"
	"github.com/nainya/metatree/pkg/extract/extractors"
	"github.com/nainya/metatree/pkg/metapath"
)

var (
	extractDataset    string
	extractGetContext bool
	extractContext    string
)

var extractCmd = &cobra.Command{
	Use:   "extract EXTRACTOR_NAME [PATH] [KEY VALUE]...",
	Short: "Run a metadata extractor on a dataset or a file",
	Long: `Run the named extractor on a dataset, or on one file inside it when PATH
is given. Trailing KEY VALUE pairs become the extraction parameter map; pass
"--" as PATH to hand arguments to a dataset-level extraction. Successful
results are printed as one metadata record per line.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringVarP(&extractDataset, "dataset", "d", ".",
		"dataset directory to extract from")
	extractCmd.Flags().BoolVar(&extractGetContext, "get-context", false,
		"print the extraction context and exit")
	extractCmd.Flags().StringVarP(&extractContext, "context", "c", "",
		"JSON object with context values, e.g. a known dataset_version")
}

func runExtract(cmd *cobra.Command, args []string) error {
	extractorName := args[0]

	path := ""
	var extractorArgs []string
	if len(args) > 1 {
		path = args[1]
		extractorArgs = args[2:]
		if path == "--" {
			path = ""
		}
	}

	ds, err := dataset.OpenLocal(extractDataset)
	if err != nil {
		return err
	}

	context := map[string]string{}
	if extractContext != "" {
		if err := json.Unmarshal([]byte(extractContext), &context); err != nil {
			return fmt.Errorf("invalid context: %w", err)
		}
	}

	version := context["dataset_version"]
	if version == "" {
		if version, err = ds.Version(); err != nil {
			return err
		}
	}

	if extractGetContext {
		return json.NewEncoder(os.Stdout).Encode(
			map[string]string{"dataset_version": version})
	}

	id, err := ds.ID()
	if err != nil {
		return err
	}

	fileTreePath := metapath.New(path)
	localObjectPath := ds.Path()
	if !fileTreePath.IsEmpty() {
		localObjectPath = filepath.Join(ds.Path(), fileTreePath.String())
	}

	log := logger.GetGlobalLogger().ExtractLogger(extractorName)
	registry := extract.NewRegistry(log)
	extractors.Register(registry)

	pipeline := &extract.Pipeline{
		Registry: registry,
		Log:      log,
		Metrics:  metrics.NewMetrics(),
	}

	out := json.NewEncoder(os.Stdout)
	hadError := false
	err = pipeline.Extract(extract.Parameter{
		Dataset:            ds,
		DatasetID:          id,
		DatasetVersion:     version,
		LocalObjectPath:    localObjectPath,
		ExtractorName:      extractorName,
		ExtractorArguments: extract.ArgsToMap(extractorArgs),
		FileTreePath:       fileTreePath,
		AgentName:          ds.AgentName(),
		AgentEmail:         ds.AgentEmail(),
	}, func(result extract.Result) bool {
		if result.Status != "ok" {
			hadError = true
			log.Error().
				Str("path", result.Path).
				Str("message", result.Message).
				Msg("extraction result error")
			return true
		}
		if result.MetadataRecord != nil {
			_ = out.Encode(result.MetadataRecord)
		}
		return true
	})
	if err != nil {
		return err
	}
	if hadError {
		return fmt.Errorf("extraction reported errors")
	}
	return nil
}
