package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/urbancanopy/canopy-cli/internal/pipeline"
	"github.com/urbancanopy/canopy-cli/internal/store"
)

var batchOpts struct {
	locations   string
	output      string
	concurrency int
	noStore     bool
}

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Analyze every location in a locations file",
	Long:  "Reads a JSON or YAML locations file and analyzes each entry with bounded parallelism. One location failing does not stop the rest; the command exits non-zero if any failed.",
	RunE: func(cmd *cobra.Command, args []string) error {
		locs, err := pipeline.LoadLocations(batchOpts.locations)
		if err != nil {
			return err
		}
		zap.L().Info("batch: loaded locations",
			zap.String("file", batchOpts.locations),
			zap.Int("count", len(locs)))

		p := pipeline.New(cfg)
		satellites := newSatelliteCache()
		acquire := newAcquire(p, acquireOptions{}, satellites)

		var st *store.SQLiteStore
		if !batchOpts.noStore {
			s, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close() //nolint:errcheck
			st = s
		}

		handle := newHandle(cmd, batchOpts.output, st, satellites)
		return p.RunBatch(cmd.Context(), locs, batchOpts.concurrency, acquire, handle)
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchOpts.locations, "locations", "locations.json", "locations file (JSON or YAML)")
	batchCmd.Flags().StringVar(&batchOpts.output, "output", "output", "output directory")
	batchCmd.Flags().IntVar(&batchOpts.concurrency, "concurrency", 2, "locations processed in parallel")
	batchCmd.Flags().BoolVar(&batchOpts.noStore, "no-store", false, "skip writing to the results database")
	rootCmd.AddCommand(batchCmd)
}
