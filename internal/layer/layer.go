// Package layer holds the vector data model shared by the alignment and
// rasterization stages: geographic features with source tags, grouped into
// ordered layers, plus the street traffic tier classification.
package layer

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// StreetTier classifies a street by traffic level. The tier determines the
// metric buffer radius applied before the street is treated as non-plantable.
type StreetTier int

const (
	TierPedestrian StreetTier = iota
	TierLow
	TierMedium
	TierHigh
)

// String returns the configuration name of the tier.
func (t StreetTier) String() string {
	switch t {
	case TierPedestrian:
		return "pedestrian"
	case TierLow:
		return "low"
	case TierMedium:
		return "medium"
	case TierHigh:
		return "high"
	default:
		return "unknown"
	}
}

// ParseTier converts a configuration name to a StreetTier.
func ParseTier(s string) (StreetTier, error) {
	switch s {
	case "pedestrian":
		return TierPedestrian, nil
	case "low":
		return TierLow, nil
	case "medium":
		return TierMedium, nil
	case "high":
		return TierHigh, nil
	default:
		return 0, eris.Errorf("layer: unknown street tier %q", s)
	}
}

// Tiers lists all tiers from lightest to heaviest traffic.
func Tiers() []StreetTier {
	return []StreetTier{TierPedestrian, TierLow, TierMedium, TierHigh}
}

// Feature is one geometry in geographic coordinates with its source
// attributes. Streets additionally carry an assigned tier after alignment.
type Feature struct {
	Geom geom.T
	Tags map[string]string
	Tier StreetTier
}

// Tag returns the value of a source attribute, or "" when absent.
func (f Feature) Tag(key string) string {
	if f.Tags == nil {
		return ""
	}
	return f.Tags[key]
}

// Layer is an ordered collection of features. A nil or empty layer is a
// valid input everywhere downstream and contributes nothing.
type Layer struct {
	Features []Feature
}

// Len returns the number of features.
func (l Layer) Len() int { return len(l.Features) }

// Empty reports whether the layer has no features.
func (l Layer) Empty() bool { return len(l.Features) == 0 }

// ByTier returns the subset of features carrying any of the given tiers,
// preserving order.
func (l Layer) ByTier(tiers ...StreetTier) Layer {
	want := make(map[StreetTier]bool, len(tiers))
	for _, t := range tiers {
		want[t] = true
	}
	var out Layer
	for _, f := range l.Features {
		if want[f.Tier] {
			out.Features = append(out.Features, f)
		}
	}
	return out
}
