package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nainya/metatree/internal/logger"
	"github.com/nainya/metatree/internal/metrics"
	"github.com/nainya/metatree/pkg/dump"
	"github.com/nainya/metatree/pkg/locator"
	"github.com/nainya/metatree/pkg/store"
)

var (
	dumpStore     string
	dumpRecursive bool
)

var dumpCmd = &cobra.Command{
	Use:   "dump [PATTERN]",
	Short: "Dump metadata records from a metadata store",
	Long: `Dump metadata records addressed by a location pattern. Patterns address
datasets either by their position in the dataset tree ("tree:PATH@VERSION:LOCAL")
or by their UUID ("uuid:UUID@VERSION:LOCAL"). Dataset path segments may use "*"
wildcards. Without a pattern the root dataset of every tree version is dumped.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDump,
}

func init() {
	dumpCmd.Flags().StringVarP(&dumpStore, "dataset", "d", "",
		"metadata store location (overrides configuration)")
	dumpCmd.Flags().BoolVarP(&dumpRecursive, "recursive", "r", false,
		"also dump metadata of datasets below the matched ones")
}

func runDump(cmd *cobra.Command, args []string) error {
	pattern := ""
	if len(args) == 1 {
		pattern = args[0]
	}

	storeLocation := cfg.Store
	if dumpStore != "" {
		storeLocation = dumpStore
	}

	loc, err := locator.Parse(pattern)
	if err != nil {
		return err
	}

	treeVersionList, uuidSet, localStore, err := store.TopLevelObjects(storeLocation)
	if err != nil {
		return err
	}
	defer localStore.Close()

	log := logger.GetGlobalLogger().DumpLogger(cfg.Backend, storeLocation)
	dumper := &dump.Dumper{
		Backend:       cfg.Backend,
		StoreLocation: storeLocation,
		Log:           log,
		Metrics:       metrics.NewMetrics(),
	}

	out := json.NewEncoder(os.Stdout)
	hadError := false
	emit := func(record dump.Record) bool {
		if record.Status != "ok" {
			hadError = true
			log.Error().
				Str("path", record.Path).
				Msg("dump result error")
			return true
		}
		_ = out.Encode(record.Metadata)
		return true
	}

	switch l := loc.(type) {
	case locator.TreeLocator:
		err = dumper.FromTree(treeVersionList, l, dumpRecursive, emit)
	case locator.UUIDLocator:
		err = dumper.FromUUIDSet(uuidSet, l, dumpRecursive, emit)
	}
	if err != nil {
		return err
	}
	if hadError {
		return fmt.Errorf("dump reported errors")
	}
	return nil
}
