package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/urbancanopy/canopy-cli/internal/pipeline"
	"github.com/urbancanopy/canopy-cli/internal/store"
)

var analyzeOpts struct {
	name        string
	description string
	lat         float64
	lon         float64
	output      string
	noStore     bool
	acquire     acquireOptions
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a single location",
	Long:  "Fetches satellite imagery and OSM vectors for one location, runs the full analysis, and writes the summary, overlay, and database record.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if analyzeOpts.name == "" {
			return eris.New("analyze: --name is required")
		}
		loc := pipeline.Location{
			Name:        analyzeOpts.name,
			Description: analyzeOpts.description,
			Lat:         analyzeOpts.lat,
			Lon:         analyzeOpts.lon,
		}

		p := pipeline.New(cfg)
		satellites := newSatelliteCache()
		acquire := newAcquire(p, analyzeOpts.acquire, satellites)

		var st *store.SQLiteStore
		if !analyzeOpts.noStore {
			s, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close() //nolint:errcheck
			st = s
		}

		in, err := acquire(cmd.Context(), loc)
		if err != nil {
			return eris.Wrapf(err, "analyze: acquire inputs for %s", loc.Slug())
		}
		a, err := p.Run(cmd.Context(), loc, in)
		if err != nil {
			return err
		}

		handle := newHandle(cmd, analyzeOpts.output, st, satellites)
		return handle(cmd.Context(), a)
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeOpts.name, "name", "", "location name (required)")
	analyzeCmd.Flags().StringVar(&analyzeOpts.description, "description", "", "location description")
	analyzeCmd.Flags().Float64Var(&analyzeOpts.lat, "lat", 0, "center latitude")
	analyzeCmd.Flags().Float64Var(&analyzeOpts.lon, "lon", 0, "center longitude")
	analyzeCmd.Flags().StringVar(&analyzeOpts.output, "output", "output", "output directory")
	analyzeCmd.Flags().BoolVar(&analyzeOpts.noStore, "no-store", false, "skip writing to the results database")
	analyzeCmd.Flags().StringVar(&analyzeOpts.acquire.satellitePath, "satellite", "", "local satellite image instead of Static Maps")
	analyzeCmd.Flags().StringVar(&analyzeOpts.acquire.buildingsShp, "buildings-shp", "", "building shapefile instead of Overpass")
	analyzeCmd.Flags().StringVar(&analyzeOpts.acquire.streetsShp, "streets-shp", "", "street shapefile instead of Overpass")
	rootCmd.AddCommand(analyzeCmd)
}
