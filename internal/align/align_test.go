package align

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/urbancanopy/canopy-cli/internal/config"
	"github.com/urbancanopy/canopy-cli/internal/layer"
)

func regionCfg(scale, north, east float64) config.RegionConfig {
	return config.RegionConfig{
		Name:           "test",
		Scale:          scale,
		NorthOffsetM:   north,
		EastOffsetM:    east,
		DefaultTier:    "low",
		PedestrianTags: []string{"footway", "pedestrian", "living_street", "path", "steps"},
		LowTags:        []string{"residential", "tertiary", "unclassified", "service"},
		MediumTags:     []string{"secondary", "secondary_link"},
		HighTags:       []string{"primary", "primary_link", "trunk", "trunk_link", "motorway", "motorway_link"},
	}
}

func lineLayer(coords ...float64) layer.Layer {
	return layer.Layer{Features: []layer.Feature{
		{Geom: geom.NewLineStringFlat(geom.XY, coords)},
	}}
}

func TestAlign_ScaleRoundTrip(t *testing.T) {
	centerLat, centerLon := 3.139, 101.6869
	orig := lineLayer(101.6860, 3.1385, 101.6875, 3.1392, 101.6880, 3.1380)

	forward := New(regionCfg(1.95, 0, 0))
	inverse := New(regionCfg(1/1.95, 0, 0))

	scaled := forward.Align(orig, centerLat, centerLon)
	back := inverse.Align(scaled, centerLat, centerLon)

	require.Equal(t, 1, back.Len())
	got := back.Features[0].Geom.FlatCoords()
	want := orig.Features[0].Geom.FlatCoords()
	require.Len(t, got, len(want))
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-9)
	}
}

func TestAlign_OffsetTranslates(t *testing.T) {
	centerLat, centerLon := 3.139, 101.6869
	// Scale 1 with a pure +111m north offset moves latitude by ~0.001 deg.
	a := New(regionCfg(1.0, 111.0, 0))

	pt := layer.Layer{Features: []layer.Feature{
		{Geom: geom.NewPointFlat(geom.XY, []float64{centerLon, centerLat})},
	}}
	out := a.Align(pt, centerLat, centerLon)
	require.Equal(t, 1, out.Len())

	coords := out.Features[0].Geom.FlatCoords()
	assert.InDelta(t, centerLat+0.001, coords[1], 1e-6)
	assert.InDelta(t, centerLon, coords[0], 1e-9)
}

func TestAlign_CenterIsFixedPointOfScaling(t *testing.T) {
	centerLat, centerLon := 3.139, 101.6869
	a := New(regionCfg(1.95, 0, 0))

	pt := layer.Layer{Features: []layer.Feature{
		{Geom: geom.NewPointFlat(geom.XY, []float64{centerLon, centerLat})},
	}}
	out := a.Align(pt, centerLat, centerLon)

	coords := out.Features[0].Geom.FlatCoords()
	assert.InDelta(t, centerLon, coords[0], 1e-9)
	assert.InDelta(t, centerLat, coords[1], 1e-9)
}

func TestAlign_EmptyLayer(t *testing.T) {
	a := New(regionCfg(1.95, -5, -10))
	out := a.Align(layer.Layer{}, 3.139, 101.6869)
	assert.True(t, out.Empty())
}

func TestAlign_PreservesTags(t *testing.T) {
	a := New(regionCfg(1.95, -5, -10))
	l := layer.Layer{Features: []layer.Feature{
		{
			Geom: geom.NewLineStringFlat(geom.XY, []float64{101.68, 3.13, 101.69, 3.14}),
			Tags: map[string]string{"highway": "residential"},
		},
	}}
	out := a.Align(l, 3.139, 101.6869)
	require.Equal(t, 1, out.Len())
	assert.Equal(t, "residential", out.Features[0].Tag("highway"))
}

func TestClassify(t *testing.T) {
	a := New(regionCfg(1.95, -5, -10))

	tests := []struct {
		tag  string
		want layer.StreetTier
	}{
		{"footway", layer.TierPedestrian},
		{"steps", layer.TierPedestrian},
		{"residential", layer.TierLow},
		{"service", layer.TierLow},
		{"secondary", layer.TierMedium},
		{"secondary_link", layer.TierMedium},
		{"primary", layer.TierHigh},
		{"motorway_link", layer.TierHigh},
	}

	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			l := layer.Layer{Features: []layer.Feature{
				{
					Geom: geom.NewLineStringFlat(geom.XY, []float64{0, 0, 1, 1}),
					Tags: map[string]string{"highway": tt.tag},
				},
			}}
			out := a.Classify(l)
			require.Equal(t, 1, out.Len())
			assert.Equal(t, tt.want, out.Features[0].Tier)
		})
	}
}

func TestClassify_UnmatchedTagGetsDefaultTier(t *testing.T) {
	a := New(regionCfg(1.95, -5, -10))
	l := layer.Layer{Features: []layer.Feature{
		{
			Geom: geom.NewLineStringFlat(geom.XY, []float64{0, 0, 1, 1}),
			Tags: map[string]string{"highway": "raceway"},
		},
		{
			Geom: geom.NewLineStringFlat(geom.XY, []float64{0, 0, 1, 1}),
			// No highway tag at all.
		},
	}}

	out := a.Classify(l)
	require.Equal(t, 2, out.Len(), "unmatched streets must not be dropped")
	assert.Equal(t, layer.TierLow, out.Features[0].Tier)
	assert.Equal(t, layer.TierLow, out.Features[1].Tier)
}

func TestClassify_EmptyLayer(t *testing.T) {
	a := New(regionCfg(1.95, -5, -10))
	assert.True(t, a.Classify(layer.Layer{}).Empty())
}
