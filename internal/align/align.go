// Package align applies the universal regional alignment correction to raw
// OSM vector layers and classifies streets into traffic tiers. The source
// vectors carry a systematic regional offset and scale mismatch against the
// imagery; a single multiplicative+additive correction applied uniformly in
// metric space removes most of it without per-location calibration.
package align

import (
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/urbancanopy/canopy-cli/internal/config"
	"github.com/urbancanopy/canopy-cli/internal/geo"
	"github.com/urbancanopy/canopy-cli/internal/layer"
)

// Aligner transforms vector geometries to line up with the satellite imagery
// and attaches street tiers.
type Aligner struct {
	cfg         config.RegionConfig
	defaultTier layer.StreetTier

	pedestrian map[string]bool
	low        map[string]bool
	medium     map[string]bool
	high       map[string]bool
}

// New builds an Aligner from a validated region configuration.
func New(cfg config.RegionConfig) *Aligner {
	tier, err := layer.ParseTier(cfg.DefaultTier)
	if err != nil {
		// Validate rejects unknown tiers before any Aligner is built.
		panic(err)
	}
	return &Aligner{
		cfg:         cfg,
		defaultTier: tier,
		pedestrian:  toSet(cfg.PedestrianTags),
		low:         toSet(cfg.LowTags),
		medium:      toSet(cfg.MediumTags),
		high:        toSet(cfg.HighTags),
	}
}

func toSet(tags []string) map[string]bool {
	s := make(map[string]bool, len(tags))
	for _, t := range tags {
		s[t] = true
	}
	return s
}

// Align applies the regional correction to every geometry in the layer:
// project to local metric coordinates around the location center, scale by
// the regional factor about that center, translate by the metric offsets,
// and project back to geographic coordinates. Buildings and streets go
// through the identical transform so their relative geometry is preserved.
// An empty layer is returned unchanged.
func (a *Aligner) Align(l layer.Layer, centerLat, centerLon float64) layer.Layer {
	if l.Empty() {
		return l
	}

	proj := geo.NewProjection(centerLat, centerLon)
	out := layer.Layer{Features: make([]layer.Feature, 0, l.Len())}

	for _, f := range l.Features {
		g := a.transformGeom(f.Geom, proj)
		if g == nil {
			zap.L().Warn("align: skipping feature with unsupported geometry",
				zap.String("region", a.cfg.Name))
			continue
		}
		out.Features = append(out.Features, layer.Feature{Geom: g, Tags: f.Tags, Tier: f.Tier})
	}

	zap.L().Debug("align: transformed layer",
		zap.Int("features", out.Len()),
		zap.Float64("scale", a.cfg.Scale),
		zap.Float64("north_offset_m", a.cfg.NorthOffsetM),
		zap.Float64("east_offset_m", a.cfg.EastOffsetM))

	return out
}

// transformGeom rebuilds a geometry with every coordinate passed through the
// metric scale+offset correction.
func (a *Aligner) transformGeom(g geom.T, proj geo.Projection) geom.T {
	switch t := g.(type) {
	case *geom.Point:
		flat := a.transformFlat(t.FlatCoords(), t.Stride(), proj)
		return geom.NewPointFlat(t.Layout(), flat)
	case *geom.LineString:
		flat := a.transformFlat(t.FlatCoords(), t.Stride(), proj)
		return geom.NewLineStringFlat(t.Layout(), flat)
	case *geom.MultiLineString:
		flat := a.transformFlat(t.FlatCoords(), t.Stride(), proj)
		return geom.NewMultiLineStringFlat(t.Layout(), flat, t.Ends())
	case *geom.Polygon:
		flat := a.transformFlat(t.FlatCoords(), t.Stride(), proj)
		return geom.NewPolygonFlat(t.Layout(), flat, t.Ends())
	case *geom.MultiPolygon:
		flat := a.transformFlat(t.FlatCoords(), t.Stride(), proj)
		return geom.NewMultiPolygonFlat(t.Layout(), flat, t.Endss())
	case *geom.MultiPoint:
		flat := a.transformFlat(t.FlatCoords(), t.Stride(), proj)
		return geom.NewMultiPointFlat(t.Layout(), flat)
	default:
		return nil
	}
}

// transformFlat applies scale-about-center then translate, in metric space,
// to a flat coordinate slice. Coordinates are (lon, lat) pairs.
func (a *Aligner) transformFlat(flat []float64, stride int, proj geo.Projection) []float64 {
	out := make([]float64, len(flat))
	copy(out, flat)
	for i := 0; i+1 < len(out); i += stride {
		east, north := proj.Forward(out[i+1], out[i])
		east = east*a.cfg.Scale + a.cfg.EastOffsetM
		north = north*a.cfg.Scale + a.cfg.NorthOffsetM
		lat, lon := proj.Inverse(east, north)
		out[i] = lon
		out[i+1] = lat
	}
	return out
}

// Classify assigns a StreetTier to every street feature based on its highway
// tag. Tags outside all four sets get the configured default tier with a
// warning; streets are never dropped from buffering.
func (a *Aligner) Classify(streets layer.Layer) layer.Layer {
	if streets.Empty() {
		return streets
	}

	out := layer.Layer{Features: make([]layer.Feature, 0, streets.Len())}
	counts := make(map[layer.StreetTier]int)
	unmatched := 0

	for _, f := range streets.Features {
		tag := f.Tag("highway")
		tier, ok := a.tierFor(tag)
		if !ok {
			tier = a.defaultTier
			unmatched++
		}
		counts[tier]++
		f.Tier = tier
		out.Features = append(out.Features, f)
	}

	if unmatched > 0 {
		zap.L().Warn("align: streets with unmatched highway tags assigned default tier",
			zap.Int("count", unmatched),
			zap.String("default_tier", a.defaultTier.String()))
	}
	zap.L().Debug("align: classified streets",
		zap.Int("pedestrian", counts[layer.TierPedestrian]),
		zap.Int("low", counts[layer.TierLow]),
		zap.Int("medium", counts[layer.TierMedium]),
		zap.Int("high", counts[layer.TierHigh]))

	return out
}

func (a *Aligner) tierFor(tag string) (layer.StreetTier, bool) {
	switch {
	case a.pedestrian[tag]:
		return layer.TierPedestrian, true
	case a.low[tag]:
		return layer.TierLow, true
	case a.medium[tag]:
		return layer.TierMedium, true
	case a.high[tag]:
		return layer.TierHigh, true
	default:
		return 0, false
	}
}
