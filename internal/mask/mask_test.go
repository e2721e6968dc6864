package mask

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/urbancanopy/canopy-cli/internal/config"
	geogrid "github.com/urbancanopy/canopy-cli/internal/geo"
	"github.com/urbancanopy/canopy-cli/internal/layer"
	"github.com/urbancanopy/canopy-cli/internal/raster"
)

const (
	testLat = 3.139
	testLon = 101.6869
)

func bufferCfg() config.BufferConfig {
	return config.BufferConfig{
		PedestrianM: 5,
		LowM:        10,
		MediumM:     15,
		HighM:       25,
		SidewalkM:   5,
	}
}

func testGrid(t *testing.T) geogrid.Grid {
	t.Helper()
	g, err := geogrid.NewGrid(testLat, testLon, 200, 200, 18)
	require.NoError(t, err)
	return g
}

// geoSquare builds a polygon covering the pixel rectangle [x0,x1)x[y0,y1).
func geoSquare(g geogrid.Grid, x0, y0, x1, y1 float64) *geom.Polygon {
	lat0, lon0 := g.PixelToLatLon(x0, y0)
	lat1, lon1 := g.PixelToLatLon(x1, y1)
	return geom.NewPolygonFlat(geom.XY, []float64{
		lon0, lat0,
		lon1, lat0,
		lon1, lat1,
		lon0, lat1,
		lon0, lat0,
	}, []int{10})
}

// centerLine builds a horizontal street through the grid center.
func centerLine(g geogrid.Grid, tag string) layer.Feature {
	lat, lonA := g.PixelToLatLon(40, 100)
	_, lonB := g.PixelToLatLon(160, 100)
	return layer.Feature{
		Geom: geom.NewLineStringFlat(geom.XY, []float64{lonA, lat, lonB, lat}),
		Tags: map[string]string{"highway": tag},
	}
}

func TestBuildings_FillsSquare(t *testing.T) {
	g := testGrid(t)
	gen := NewGenerator(g, testLat, testLon, bufferCfg())

	m := gen.Buildings(layer.Layer{Features: []layer.Feature{
		{Geom: geoSquare(g, 50, 50, 100, 100)},
	}})

	assert.True(t, m.At(75, 75))
	assert.False(t, m.At(10, 10))
	assert.False(t, m.At(150, 150))
	// Roughly a 50x50 block.
	assert.InDelta(t, 2500, m.Count(), 250)
}

func TestBuildings_EmptyLayer(t *testing.T) {
	g := testGrid(t)
	gen := NewGenerator(g, testLat, testLon, bufferCfg())
	assert.Equal(t, 0, gen.Buildings(layer.Layer{}).Count())
}

func TestBuildings_UnionSemantics(t *testing.T) {
	g := testGrid(t)
	gen := NewGenerator(g, testLat, testLon, bufferCfg())

	// Two overlapping squares: boolean union, no double counting possible.
	m := gen.Buildings(layer.Layer{Features: []layer.Feature{
		{Geom: geoSquare(g, 50, 50, 90, 90)},
		{Geom: geoSquare(g, 70, 70, 110, 110)},
	}})

	separate := gen.Buildings(layer.Layer{Features: []layer.Feature{
		{Geom: geoSquare(g, 50, 50, 90, 90)},
	}})
	assert.Greater(t, m.Count(), separate.Count())
	assert.Less(t, m.Count(), 2*40*40+100)
}

func TestStreets_TieredBufferMonotonicity(t *testing.T) {
	g := testGrid(t)
	gen := NewGenerator(g, testLat, testLon, bufferCfg())

	var counts []int
	for _, tag := range []string{"footway", "residential", "secondary", "primary"} {
		f := centerLine(g, tag)
		streets := layer.Layer{Features: []layer.Feature{f}}
		aligned := classify(streets, tag)
		m := gen.Streets(aligned)
		counts = append(counts, m.Count())
	}

	// pedestrian(5m) <= low(10m) <= medium(15m) <= high(25m)
	for i := 1; i < len(counts); i++ {
		assert.Greater(t, counts[i], counts[i-1],
			"higher tier buffer must cover more pixels")
	}
}

// classify assigns the tier matching the single test tag.
func classify(l layer.Layer, tag string) layer.Layer {
	tier := map[string]layer.StreetTier{
		"footway":     layer.TierPedestrian,
		"residential": layer.TierLow,
		"secondary":   layer.TierMedium,
		"primary":     layer.TierHigh,
	}[tag]
	for i := range l.Features {
		l.Features[i].Tier = tier
	}
	return l
}

func TestStreets_BufferWidthIsMetric(t *testing.T) {
	g := testGrid(t)
	gen := NewGenerator(g, testLat, testLon, bufferCfg())

	streets := layer.Layer{Features: []layer.Feature{centerLine(g, "residential")}}
	m := gen.Streets(classify(streets, "residential"))

	// A 10m radius at ~0.6 m/px is ~17px half-width. Confirm coverage right
	// above/below the center line and absence far away.
	assert.True(t, m.At(100, 100))
	assert.True(t, m.At(100, 110))
	assert.False(t, m.At(100, 140))
}

func TestSidewalks_OnlyPedestrianAndLow(t *testing.T) {
	g := testGrid(t)
	gen := NewGenerator(g, testLat, testLon, bufferCfg())

	ped := centerLine(g, "footway")
	ped.Tier = layer.TierPedestrian
	high := centerLine(g, "primary")
	high.Tier = layer.TierHigh

	m := gen.Sidewalks(layer.Layer{Features: []layer.Feature{ped, high}})
	only := gen.Sidewalks(layer.Layer{Features: []layer.Feature{ped}})

	// The high-traffic street contributes nothing to the sidewalk mask.
	assert.Equal(t, only.Count(), m.Count())
	assert.Greater(t, m.Count(), 0)
}

func TestPlantable_ComplementProperty(t *testing.T) {
	b := raster.NewMask(10, 10)
	b.Set(2, 2, true)
	s := raster.NewMask(10, 10)
	s.Set(3, 3, true)
	v := raster.NewMask(10, 10)
	v.Set(4, 4, true)

	p := Plantable(b, s, v)
	assert.False(t, p.At(2, 2))
	assert.False(t, p.At(3, 3))
	assert.False(t, p.At(4, 4))
	assert.True(t, p.At(0, 0))
	assert.Equal(t, 97, p.Count())

	// No pixel is simultaneously plantable and a building.
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			assert.False(t, p.At(x, y) && b.At(x, y))
		}
	}
}

func TestDistanceM_ScalesByResolution(t *testing.T) {
	g := testGrid(t)
	m := raster.NewMask(g.Width, g.Height)
	m.Set(100, 100, true)

	d := DistanceM(g, m)
	assert.InDelta(t, 0, d.At(100, 100), 1e-9)
	assert.InDelta(t, 10*g.MetersPerPixel, d.At(110, 100), 1e-6)
}

func TestAmenityPixels(t *testing.T) {
	g := testGrid(t)
	gen := NewGenerator(g, testLat, testLon, bufferCfg())

	lat, lon := g.PixelToLatLon(50.5, 60.5)
	inside := layer.Feature{Geom: geom.NewPointFlat(geom.XY, []float64{lon, lat})}
	outside := layer.Feature{Geom: geom.NewPointFlat(geom.XY, []float64{lon + 10, lat})}

	px := gen.AmenityPixels(layer.Layer{Features: []layer.Feature{inside, outside}})
	require.Len(t, px, 1)
	assert.Equal(t, 50, px[0][0])
	assert.Equal(t, 60, px[0][1])
}
