// Package pipeline orchestrates the analysis stages for one location and
// fans out over many. Acquisition (imagery and vectors) happens outside; the
// pipeline itself is pure computation over the Inputs.
package pipeline

import (
	"context"
	"image"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/urbancanopy/canopy-cli/internal/align"
	"github.com/urbancanopy/canopy-cli/internal/config"
	"github.com/urbancanopy/canopy-cli/internal/detect"
	"github.com/urbancanopy/canopy-cli/internal/geo"
	"github.com/urbancanopy/canopy-cli/internal/layer"
	"github.com/urbancanopy/canopy-cli/internal/mask"
	"github.com/urbancanopy/canopy-cli/internal/raster"
	"github.com/urbancanopy/canopy-cli/internal/score"
	"github.com/urbancanopy/canopy-cli/internal/spots"
)

// Inputs are the acquired raw data for one location.
type Inputs struct {
	Satellite image.Image
	Buildings layer.Layer
	Streets   layer.Layer
	Amenities layer.Layer
}

// Analysis is the complete result of one pipeline run.
type Analysis struct {
	RunID     string
	Location  Location
	Grid      geo.Grid
	CreatedAt time.Time

	// Classified street network after alignment.
	Streets layer.Layer

	Detection *detect.Result

	BuildingMask *raster.Mask
	StreetMask   *raster.Mask
	SidewalkMask *raster.Mask
	Plantable    *raster.Mask

	Score *score.Result
	Spots []spots.Spot

	BuildingCount int
	AmenityCount  int
}

// Pipeline runs the full analysis for locations under one configuration.
type Pipeline struct {
	cfg     *config.Config
	aligner *align.Aligner
}

// New builds a Pipeline. The configuration must already be validated.
func New(cfg *config.Config) *Pipeline {
	return &Pipeline{
		cfg:     cfg,
		aligner: align.New(cfg.Region),
	}
}

// Grid returns the raster frame for a location center.
func (p *Pipeline) Grid(loc Location) (geo.Grid, error) {
	return geo.NewGrid(loc.Lat, loc.Lon,
		p.cfg.Grid.Width, p.cfg.Grid.Height, p.cfg.Grid.Zoom)
}

// Run executes the five analysis stages for one location.
func (p *Pipeline) Run(ctx context.Context, loc Location, in Inputs) (*Analysis, error) {
	start := time.Now()
	log := zap.L().With(zap.String("location", loc.Slug()))

	grid, err := p.Grid(loc)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: grid for %s", loc.Slug())
	}

	// Stage 1: geometry alignment and street classification.
	buildings := p.aligner.Align(in.Buildings, loc.Lat, loc.Lon)
	streets := p.aligner.Classify(p.aligner.Align(in.Streets, loc.Lat, loc.Lon))
	log.Info("pipeline: aligned vector layers",
		zap.Int("buildings", buildings.Len()),
		zap.Int("streets", streets.Len()),
		zap.Int("amenities", in.Amenities.Len()))

	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "pipeline: canceled")
	}

	// Stage 2: vegetation and shadow detection.
	detection, err := detect.Detect(in.Satellite, grid.Width, grid.Height, p.cfg.Detect)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: detect for %s", loc.Slug())
	}

	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "pipeline: canceled")
	}

	// Stage 3: rasterization, buffering, distance fields.
	gen := mask.NewGenerator(grid, loc.Lat, loc.Lon, p.cfg.Buffer)
	buildingMask := gen.Buildings(buildings)
	streetMask := gen.Streets(streets)
	sidewalkMask := gen.Sidewalks(streets)
	plantable := mask.Plantable(buildingMask, streetMask, detection.Vegetation)
	amenityPx := gen.AmenityPixels(in.Amenities)

	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "pipeline: canceled")
	}

	// Stage 4: priority scoring.
	result := score.Compute(grid, score.Inputs{
		SidewalkDistM:   mask.DistanceM(grid, sidewalkMask),
		BuildingDistM:   mask.DistanceM(grid, buildingMask),
		ShadowIntensity: detection.ShadowIntensity,
		AmenityPixels:   amenityPx,
		Plantable:       plantable,
		HasSidewalks:    sidewalkMask.Any(),
		HasBuildings:    buildingMask.Any(),
	}, p.cfg.Score)

	// Stage 5: critical spot extraction.
	criticalSpots := spots.Extract(grid, result.Composite, result.Critical, p.cfg.Spots.MinClusterPx)

	log.Info("pipeline: analysis complete",
		zap.Int("critical_spots", len(criticalSpots)),
		zap.Duration("elapsed", time.Since(start)))

	return &Analysis{
		RunID:         uuid.NewString(),
		Location:      loc,
		Grid:          grid,
		CreatedAt:     time.Now().UTC(),
		Streets:       streets,
		Detection:     detection,
		BuildingMask:  buildingMask,
		StreetMask:    streetMask,
		SidewalkMask:  sidewalkMask,
		Plantable:     plantable,
		Score:         result,
		Spots:         criticalSpots,
		BuildingCount: buildings.Len(),
		AmenityCount:  in.Amenities.Len(),
	}, nil
}
