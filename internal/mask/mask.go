// Package mask rasterizes aligned vector layers onto the location grid:
// building footprints fill directly, streets are buffered by tier-dependent
// metric radii first, and distance fields are derived for the scoring stage.
package mask

import (
	"go.uber.org/zap"

	"github.com/urbancanopy/canopy-cli/internal/config"
	"github.com/urbancanopy/canopy-cli/internal/geo"
	"github.com/urbancanopy/canopy-cli/internal/layer"
	"github.com/urbancanopy/canopy-cli/internal/raster"
)

// Generator rasterizes vector layers for one location. The grid and the
// metric projection are fixed per location so every mask shares the same
// affine frame.
type Generator struct {
	grid geo.Grid
	proj geo.Projection
	cfg  config.BufferConfig
}

// NewGenerator builds a Generator for a location centered at (lat, lon).
func NewGenerator(grid geo.Grid, centerLat, centerLon float64, cfg config.BufferConfig) *Generator {
	return &Generator{
		grid: grid,
		proj: geo.NewProjection(centerLat, centerLon),
		cfg:  cfg,
	}
}

// Buildings rasterizes building polygons with union semantics. An empty
// layer yields an all-false mask.
func (gen *Generator) Buildings(buildings layer.Layer) *raster.Mask {
	m := raster.NewMask(gen.grid.Width, gen.grid.Height)
	drawn := 0
	for _, f := range buildings.Features {
		if rasterizeGeom(gen.grid, m, f.Geom) {
			drawn++
		}
	}
	zap.L().Debug("mask: building mask",
		zap.Int("geometries", drawn),
		zap.Int("pixels", m.Count()))
	return m
}

// Streets produces the comprehensive street exclusion mask: every street is
// buffered in the metric frame by its tier radius, and all tiers are
// unioned. An empty layer yields an all-false mask.
func (gen *Generator) Streets(streets layer.Layer) *raster.Mask {
	m := raster.NewMask(gen.grid.Width, gen.grid.Height)
	for _, tier := range layer.Tiers() {
		sub := streets.ByTier(tier)
		if sub.Empty() {
			continue
		}
		radius := gen.cfg.Radius(tier)
		drawn := 0
		for _, f := range sub.Features {
			if bufferLineToMask(gen.grid, m, gen.proj, f.Geom, radius) {
				drawn++
			}
		}
		zap.L().Debug("mask: buffered street tier",
			zap.String("tier", tier.String()),
			zap.Float64("radius_m", radius),
			zap.Int("streets", drawn))
	}
	return m
}

// Sidewalks produces the pedestrian corridor mask: pedestrian and
// low-traffic streets buffered by the fixed sidewalk radius. It is
// independent of the street exclusion mask; the two serve different scoring
// components.
func (gen *Generator) Sidewalks(streets layer.Layer) *raster.Mask {
	m := raster.NewMask(gen.grid.Width, gen.grid.Height)
	sub := streets.ByTier(layer.TierPedestrian, layer.TierLow)
	for _, f := range sub.Features {
		bufferLineToMask(gen.grid, m, gen.proj, f.Geom, gen.cfg.SidewalkM)
	}
	zap.L().Debug("mask: sidewalk mask",
		zap.Int("streets", sub.Len()),
		zap.Float64("radius_m", gen.cfg.SidewalkM),
		zap.Int("pixels", m.Count()))
	return m
}

// AmenityPixels maps amenity point features to integer pixel coordinates,
// dropping points outside the grid.
func (gen *Generator) AmenityPixels(amenities layer.Layer) [][2]int {
	var out [][2]int
	for _, f := range amenities.Features {
		flat := f.Geom.FlatCoords()
		stride := f.Geom.Stride()
		if len(flat) < stride {
			continue
		}
		fx, fy := gen.grid.LatLonToPixel(flat[1], flat[0])
		x, y := int(fx), int(fy)
		if gen.grid.Contains(x, y) {
			out = append(out, [2]int{x, y})
		}
	}
	return out
}

// Plantable derives the pixels where planting is physically possible: not a
// building, not a buffered street, not existing vegetation.
func Plantable(buildings, streets, vegetation *raster.Mask) *raster.Mask {
	return raster.ExcludeAll(buildings.W, buildings.H, buildings, streets, vegetation)
}

// DistanceM converts a mask into a per-pixel Euclidean distance field in
// meters, using the grid's ground resolution.
func DistanceM(grid geo.Grid, m *raster.Mask) *raster.Field {
	d := raster.DistanceTransform(m)
	for i, v := range d.Data {
		d.Data[i] = v * grid.MetersPerPixel
	}
	return d
}
