package main

import (
	"context"
	"encoding/json"
	"image"
	"os"
	"path/filepath"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/urbancanopy/canopy-cli/internal/fetch"
	"github.com/urbancanopy/canopy-cli/internal/pipeline"
	"github.com/urbancanopy/canopy-cli/internal/render"
	"github.com/urbancanopy/canopy-cli/internal/store"
)

// acquireOptions selects where the raw inputs come from: local files for
// offline runs, the network otherwise.
type acquireOptions struct {
	satellitePath string
	buildingsShp  string
	streetsShp    string
}

// newAcquire builds the acquisition function shared by analyze and batch.
// The satellite image is remembered so the overlay renderer can reuse it.
func newAcquire(p *pipeline.Pipeline, opts acquireOptions, satellites *satelliteCache) pipeline.Acquire {
	overpass := fetch.NewOverpass(cfg.Fetch)
	satellite := fetch.NewSatellite(cfg.Fetch)

	return func(ctx context.Context, loc pipeline.Location) (pipeline.Inputs, error) {
		var in pipeline.Inputs

		img, err := acquireSatellite(ctx, satellite, loc, opts.satellitePath)
		if err != nil {
			return in, err
		}
		in.Satellite = img
		satellites.put(loc.Slug(), img)

		if opts.buildingsShp != "" || opts.streetsShp != "" {
			return acquireShapefiles(in, opts)
		}

		grid, err := p.Grid(loc)
		if err != nil {
			return in, err
		}
		layers, err := overpass.Layers(ctx, grid.Bounds)
		if err != nil {
			return in, err
		}
		in.Buildings = layers.Buildings
		in.Streets = layers.Streets
		in.Amenities = layers.Amenities
		return in, nil
	}
}

func acquireSatellite(ctx context.Context, f *fetch.SatelliteFetcher, loc pipeline.Location, path string) (image.Image, error) {
	if path != "" {
		img, err := imaging.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "open satellite image %s", path)
		}
		return img, nil
	}
	return f.Fetch(ctx, loc.Lat, loc.Lon, cfg.Grid)
}

func acquireShapefiles(in pipeline.Inputs, opts acquireOptions) (pipeline.Inputs, error) {
	if opts.buildingsShp != "" {
		l, err := fetch.LoadShapefile(opts.buildingsShp)
		if err != nil {
			return in, err
		}
		in.Buildings = l
	}
	if opts.streetsShp != "" {
		l, err := fetch.LoadShapefile(opts.streetsShp)
		if err != nil {
			return in, err
		}
		in.Streets = l
	}
	return in, nil
}

// satelliteCache keeps the fetched imagery around for rendering. Batch runs
// access it from multiple goroutines.
type satelliteCache struct {
	mu     sync.Mutex
	images map[string]image.Image
}

func newSatelliteCache() *satelliteCache {
	return &satelliteCache{images: make(map[string]image.Image)}
}

func (c *satelliteCache) put(slug string, img image.Image) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.images[slug] = img
}

func (c *satelliteCache) get(slug string) image.Image {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.images[slug]
}

// newHandle builds the result handler: summary JSON and overlay PNG to the
// output directory, plus persistence when a store is open.
func newHandle(cmd *cobra.Command, outputDir string, st *store.SQLiteStore, satellites *satelliteCache) pipeline.Handle {
	return func(ctx context.Context, a *pipeline.Analysis) error {
		summary := pipeline.Summarize(a)
		slug := a.Location.Slug()

		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			return eris.Wrapf(err, "create output dir %s", outputDir)
		}

		summaryPath := filepath.Join(outputDir, slug+"_summary.json")
		data, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			return eris.Wrap(err, "marshal summary")
		}
		if err := os.WriteFile(summaryPath, data, 0o644); err != nil {
			return eris.Wrapf(err, "write %s", summaryPath)
		}

		if img := satellites.get(slug); img != nil {
			overlay, err := render.Overlay(img, a)
			if err != nil {
				return err
			}
			overlayPath := filepath.Join(outputDir, slug+"_priority.png")
			if err := render.SavePNG(overlayPath, overlay); err != nil {
				return err
			}
		}

		if st != nil {
			if err := st.SaveRun(ctx, a, summary); err != nil {
				return err
			}
		}

		zap.L().Info("analysis stored",
			zap.String("location", slug),
			zap.String("run_id", a.RunID),
			zap.Int("critical_spots", len(a.Spots)),
			zap.String("summary", summaryPath))
		cmd.Printf("%s: %d critical spots, summary written to %s\n", slug, len(a.Spots), summaryPath)
		return nil
	}
}
