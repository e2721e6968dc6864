// Package score combines distance and intensity fields into the four-part
// weighted priority model and classifies the composite 0-100 score.
package score

import (
	"math"

	"go.uber.org/zap"

	"github.com/urbancanopy/canopy-cli/internal/config"
	"github.com/urbancanopy/canopy-cli/internal/geo"
	"github.com/urbancanopy/canopy-cli/internal/raster"
)

// Class is the priority classification of a pixel.
type Class uint8

const (
	ClassNone Class = iota // non-plantable or zero score
	ClassLow
	ClassMedium
	ClassHigh
	ClassCritical
)

// String returns the reporting name of the class.
func (c Class) String() string {
	switch c {
	case ClassCritical:
		return "critical"
	case ClassHigh:
		return "high"
	case ClassMedium:
		return "medium"
	case ClassLow:
		return "low"
	default:
		return "none"
	}
}

// Inputs are the upstream fields the scorer consumes. Distances are in
// meters; ShadowIntensity is in [0,1].
type Inputs struct {
	SidewalkDistM   *raster.Field
	BuildingDistM   *raster.Field
	ShadowIntensity *raster.Field
	AmenityPixels   [][2]int
	Plantable       *raster.Mask

	// HasSidewalks / HasBuildings report whether the source masks were
	// non-empty; an absent layer contributes zero points rather than the
	// far-distance band.
	HasSidewalks bool
	HasBuildings bool
}

// Components holds the four scored fields plus the reserved gap-filling
// component, each bounded to its point budget.
type Components struct {
	Sidewalk *raster.Field
	Building *raster.Field
	Sun      *raster.Field
	Amenity  *raster.Field
	Gap      *raster.Field
}

// Result is the full scoring output for one location.
type Result struct {
	Components Components

	// Composite is the summed score clamped to [0,100] and zeroed outside
	// the plantable mask. The zero sentinel is the single masking policy for
	// every consumer.
	Composite *raster.Field

	// Per-class masks over plantable pixels.
	Critical *raster.Mask
	High     *raster.Mask
	Medium   *raster.Mask
	Low      *raster.Mask

	Plantable *raster.Mask
}

// Compute evaluates the four components pixel-wise and assembles the
// composite score and classification.
func Compute(grid geo.Grid, in Inputs, cfg config.ScoreConfig) *Result {
	w, h := grid.Width, grid.Height

	sidewalk := sidewalkComponent(w, h, in, cfg)
	building := buildingComponent(w, h, in, cfg)
	sun := sunComponent(w, h, in.ShadowIntensity, cfg)
	amenity := amenityComponent(grid, in.AmenityPixels, cfg)

	// Gap-filling bonus: reserved budget, always zero. Kept as an explicit
	// component so the budget accounting and downstream reporting stay
	// stable when it is activated.
	gap := raster.NewField(w, h)

	composite := raster.Add(sidewalk, building, sun, amenity, gap)
	composite.Clamp(0, cfg.TotalBudget())
	composite.MaskZero(in.Plantable)

	res := &Result{
		Components: Components{
			Sidewalk: sidewalk,
			Building: building,
			Sun:      sun,
			Amenity:  amenity,
			Gap:      gap,
		},
		Composite: composite,
		Critical:  raster.NewMask(w, h),
		High:      raster.NewMask(w, h),
		Medium:    raster.NewMask(w, h),
		Low:       raster.NewMask(w, h),
		Plantable: in.Plantable,
	}

	for i, v := range composite.Data {
		if !in.Plantable.Bits[i] {
			continue
		}
		switch ClassifyScore(v, cfg) {
		case ClassCritical:
			res.Critical.Bits[i] = true
		case ClassHigh:
			res.High.Bits[i] = true
		case ClassMedium:
			res.Medium.Bits[i] = true
		case ClassLow:
			res.Low.Bits[i] = true
		}
	}

	plantableCount := in.Plantable.Count()
	zap.L().Debug("score: priority distribution",
		zap.Int("plantable_px", plantableCount),
		zap.Int("critical_px", res.Critical.Count()),
		zap.Int("high_px", res.High.Count()),
		zap.Int("medium_px", res.Medium.Count()),
		zap.Int("low_px", res.Low.Count()))

	return res
}

// ClassifyScore maps a composite score to its class. Zero score is ClassNone;
// the same thresholds apply wherever the score is consumed.
func ClassifyScore(v float64, cfg config.ScoreConfig) Class {
	switch {
	case v >= cfg.CriticalMin:
		return ClassCritical
	case v >= cfg.HighMin:
		return ClassHigh
	case v >= cfg.MediumMin:
		return ClassMedium
	case v > 0:
		return ClassLow
	default:
		return ClassNone
	}
}

// sidewalkComponent scores proximity to the pedestrian corridor: closer is
// better, in four monotone decreasing bands.
func sidewalkComponent(w, h int, in Inputs, cfg config.ScoreConfig) *raster.Field {
	out := raster.NewField(w, h)
	if !in.HasSidewalks {
		return out
	}
	for i, d := range in.SidewalkDistM.Data {
		switch {
		case d <= cfg.SidewalkNearM:
			out.Data[i] = cfg.SidewalkNearPts
		case d <= cfg.SidewalkGoodM:
			out.Data[i] = cfg.SidewalkGoodPts
		case d <= cfg.SidewalkFairM:
			out.Data[i] = cfg.SidewalkFairPts
		case d <= cfg.SidewalkFarM:
			out.Data[i] = cfg.SidewalkFarPts
		}
	}
	return out
}

// buildingComponent scores the cooling benefit of planting near buildings:
// a dead zone against the wall, an optimal band, then decay with distance.
func buildingComponent(w, h int, in Inputs, cfg config.ScoreConfig) *raster.Field {
	out := raster.NewField(w, h)
	if !in.HasBuildings {
		return out
	}
	for i, d := range in.BuildingDistM.Data {
		switch {
		case d < cfg.BuildingTooCloseM:
			// Too close to the facade for a healthy canopy.
		case d <= cfg.BuildingOptimalM:
			out.Data[i] = cfg.BuildingOptimalPts
		case d <= cfg.BuildingGoodM:
			out.Data[i] = cfg.BuildingGoodPts
		case d <= cfg.BuildingFringeM:
			out.Data[i] = cfg.BuildingFringePts
		}
	}
	return out
}

// sunComponent scores sun exposure from shadow intensity: full sun benefits
// most from new shade.
func sunComponent(w, h int, intensity *raster.Field, cfg config.ScoreConfig) *raster.Field {
	out := raster.NewField(w, h)
	for i, v := range intensity.Data {
		switch {
		case v < cfg.SunFullMax:
			out.Data[i] = cfg.SunFullPts
		case v < cfg.SunPartialMax:
			out.Data[i] = cfg.SunPartialPts
		default:
			out.Data[i] = cfg.SunShadePts
		}
	}
	return out
}

// amenityComponent stamps a Gaussian-falloff kernel around each amenity
// point and normalizes the accumulated density to the component budget.
// All-zero amenity input yields a uniformly zero field.
func amenityComponent(grid geo.Grid, amenities [][2]int, cfg config.ScoreConfig) *raster.Field {
	w, h := grid.Width, grid.Height
	out := raster.NewField(w, h)
	if len(amenities) == 0 {
		return out
	}

	radiusPx := int(cfg.AmenityRadiusM / grid.MetersPerPixel)
	if radiusPx < 1 {
		radiusPx = 1
	}

	kernel := gaussianKernel(radiusPx)
	size := 2*radiusPx + 1

	for _, p := range amenities {
		px, py := p[0], p[1]
		for ky := 0; ky < size; ky++ {
			y := py - radiusPx + ky
			if y < 0 || y >= h {
				continue
			}
			for kx := 0; kx < size; kx++ {
				x := px - radiusPx + kx
				if x < 0 || x >= w {
					continue
				}
				out.Data[y*w+x] += kernel[ky*size+kx]
			}
		}
	}

	// Normalize the density to [0,1] before scaling to the budget.
	max := out.Max()
	if max > 0 {
		for i := range out.Data {
			out.Data[i] = out.Data[i] / max * cfg.AmenityMax
		}
	}
	return out
}

// gaussianKernel builds a (2r+1)^2 kernel with exp(-(d/r)^2) falloff inside
// radius r and zero outside.
func gaussianKernel(r int) []float64 {
	size := 2*r + 1
	k := make([]float64, size*size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			d := math.Hypot(float64(x-r), float64(y-r))
			if d <= float64(r) {
				k[y*size+x] = math.Exp(-(d / float64(r)) * (d / float64(r)))
			}
		}
	}
	return k
}
