package mask

import (
	"sort"

	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/urbancanopy/canopy-cli/internal/geo"
	"github.com/urbancanopy/canopy-cli/internal/raster"
)

// ring is a closed polygon boundary in pixel coordinates.
type ring []float64 // x0,y0,x1,y1,...

// fillRings rasterizes a set of rings into the mask with even-odd scanline
// fill, so holes carve out of their outer ring. Pixels are tested at their
// centers.
func fillRings(m *raster.Mask, rings []ring) {
	if len(rings) == 0 {
		return
	}

	minY, maxY := m.H, -1
	for _, r := range rings {
		for i := 1; i < len(r); i += 2 {
			y := int(r[i])
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
		}
	}
	if minY < 0 {
		minY = 0
	}
	if maxY >= m.H {
		maxY = m.H - 1
	}

	var xs []float64
	for py := minY; py <= maxY; py++ {
		sy := float64(py) + 0.5
		xs = xs[:0]

		for _, r := range rings {
			n := len(r) / 2
			for i := 0; i < n; i++ {
				j := (i + 1) % n
				x1, y1 := r[2*i], r[2*i+1]
				x2, y2 := r[2*j], r[2*j+1]
				if y1 == y2 {
					continue
				}
				if (y1 <= sy && y2 > sy) || (y2 <= sy && y1 > sy) {
					xs = append(xs, x1+(sy-y1)/(y2-y1)*(x2-x1))
				}
			}
		}
		if len(xs) < 2 {
			continue
		}
		sort.Float64s(xs)

		for i := 0; i+1 < len(xs); i += 2 {
			x0 := int(xs[i] + 0.5)
			x1 := int(xs[i+1] - 0.5)
			if x0 < 0 {
				x0 = 0
			}
			if x1 >= m.W {
				x1 = m.W - 1
			}
			for x := x0; x <= x1; x++ {
				m.Set(x, py, true)
			}
		}
	}
}

// polygonRings converts one go-geom polygon to pixel-space rings on the grid.
func polygonRings(g geo.Grid, p *geom.Polygon) []ring {
	rings := make([]ring, 0, p.NumLinearRings())
	for i := 0; i < p.NumLinearRings(); i++ {
		lr := p.LinearRing(i)
		flat := lr.FlatCoords()
		stride := lr.Stride()
		r := make(ring, 0, len(flat)/stride*2)
		for j := 0; j+1 < len(flat); j += stride {
			x, y := g.LatLonToPixel(flat[j+1], flat[j])
			r = append(r, x, y)
		}
		if len(r) >= 6 {
			rings = append(rings, r)
		}
	}
	return rings
}

// rasterizeGeom fills one geometry into the mask. Line and point geometries
// are ignored here; streets go through the buffering path instead. Returns
// whether anything was drawn.
func rasterizeGeom(g geo.Grid, m *raster.Mask, t geom.T) bool {
	switch gt := t.(type) {
	case *geom.Polygon:
		rings := polygonRings(g, gt)
		if len(rings) == 0 {
			return false
		}
		fillRings(m, rings)
		return true
	case *geom.MultiPolygon:
		drew := false
		for i := 0; i < gt.NumPolygons(); i++ {
			if rasterizeGeom(g, m, gt.Polygon(i)) {
				drew = true
			}
		}
		return drew
	default:
		zap.L().Warn("mask: skipping non-areal geometry during polygon rasterization")
		return false
	}
}
