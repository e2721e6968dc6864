package spots

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urbancanopy/canopy-cli/internal/geo"
	"github.com/urbancanopy/canopy-cli/internal/raster"
)

func spotGrid(t *testing.T, w, h int) geo.Grid {
	t.Helper()
	g, err := geo.NewGrid(3.139, 101.6869, w, h, 18)
	require.NoError(t, err)
	return g
}

// fillRect marks a rectangle in the mask and writes score into the field.
func fillRect(m *raster.Mask, f *raster.Field, x0, y0, x1, y1 int, score float64) {
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			m.Set(x, y, true)
			f.Set(x, y, score)
		}
	}
}

func TestExtract_MinClusterFilter(t *testing.T) {
	g := spotGrid(t, 10, 10)
	m := raster.NewMask(10, 10)
	f := raster.NewField(10, 10)

	// A 5x5 cluster (25 px) and a separate 5-px strip.
	fillRect(m, f, 0, 0, 5, 5, 85)
	fillRect(m, f, 7, 7, 8, 12, 90) // clipped to 3 px by the grid
	fillRect(m, f, 7, 0, 8, 2, 90)  // 2 px, well under threshold

	spots := Extract(g, f, m, 20)

	require.Len(t, spots, 1)
	assert.Equal(t, 1, spots[0].ID)
	assert.Equal(t, 25, spots[0].SizePx)
	assert.InDelta(t, 85, spots[0].MeanScore, 1e-9)
}

func TestExtract_EmptyMask(t *testing.T) {
	g := spotGrid(t, 10, 10)
	m := raster.NewMask(10, 10)
	f := raster.NewField(10, 10)
	assert.Empty(t, Extract(g, f, m, 20))
}

func TestExtract_OrderedByMeanScore(t *testing.T) {
	g := spotGrid(t, 40, 40)
	m := raster.NewMask(40, 40)
	f := raster.NewField(40, 40)

	// Scan order produces the weaker cluster first; sorting must put the
	// stronger one at ID 1.
	fillRect(m, f, 0, 0, 6, 6, 82)
	fillRect(m, f, 20, 20, 26, 26, 95)

	spots := Extract(g, f, m, 20)

	require.Len(t, spots, 2)
	assert.Equal(t, 1, spots[0].ID)
	assert.InDelta(t, 95, spots[0].MeanScore, 1e-9)
	assert.Equal(t, 2, spots[1].ID)
	assert.InDelta(t, 82, spots[1].MeanScore, 1e-9)
}

func TestExtract_TieBrokenByScanOrder(t *testing.T) {
	g := spotGrid(t, 40, 40)
	m := raster.NewMask(40, 40)
	f := raster.NewField(40, 40)

	fillRect(m, f, 0, 0, 5, 5, 88)
	fillRect(m, f, 20, 20, 25, 25, 88)

	spots := Extract(g, f, m, 20)

	require.Len(t, spots, 2)
	// Equal means: the cluster labeled first (upper-left) wins the tie.
	lat0, lon0 := g.PixelToLatLon(2.5, 2.5)
	assert.InDelta(t, lat0, spots[0].Lat, 1e-9)
	assert.InDelta(t, lon0, spots[0].Lon, 1e-9)
}

func TestExtract_CentroidAndArea(t *testing.T) {
	g := spotGrid(t, 40, 40)
	m := raster.NewMask(40, 40)
	f := raster.NewField(40, 40)

	// 6x6 block from (10,10): centroid at pixel center (13,13).
	fillRect(m, f, 10, 10, 16, 16, 90)

	spots := Extract(g, f, m, 20)
	require.Len(t, spots, 1)

	wantLat, wantLon := g.PixelToLatLon(13, 13)
	assert.InDelta(t, wantLat, spots[0].Lat, 1e-9)
	assert.InDelta(t, wantLon, spots[0].Lon, 1e-9)
	assert.InDelta(t, 36*g.PixelAreaM2(), spots[0].AreaM2, 1e-6)
}

func TestExtract_DiagonalConnectivity(t *testing.T) {
	g := spotGrid(t, 20, 20)
	m := raster.NewMask(20, 20)
	f := raster.NewField(20, 20)

	// Two 3x4 blocks touching only at a corner: 8-connectivity merges them
	// into one 24-px cluster.
	fillRect(m, f, 0, 0, 4, 3, 85)
	fillRect(m, f, 4, 3, 8, 6, 85)

	spots := Extract(g, f, m, 20)
	require.Len(t, spots, 1)
	assert.Equal(t, 24, spots[0].SizePx)
}
