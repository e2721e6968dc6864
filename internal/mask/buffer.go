package mask

import (
	"math"

	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/urbancanopy/canopy-cli/internal/geo"
	"github.com/urbancanopy/canopy-cli/internal/raster"
)

// capSegments controls how finely the round end caps of a buffered segment
// are approximated.
const capSegments = 8

// bufferLineToMask buffers a line geometry by radiusM meters and rasterizes
// the result. The line is projected into the local metric frame, each segment
// is expanded into a capsule polygon (rectangle plus round caps), and the
// capsule corners are projected back to geographic coordinates before
// scanline filling. Buffering in the metric frame keeps the radius isotropic
// regardless of latitude; the raster union of the capsules equals the union
// of the buffered geometry.
func bufferLineToMask(g geo.Grid, m *raster.Mask, proj geo.Projection, t geom.T, radiusM float64) bool {
	switch lt := t.(type) {
	case *geom.LineString:
		return bufferFlatLine(g, m, proj, lt.FlatCoords(), lt.Stride(), radiusM)
	case *geom.MultiLineString:
		drew := false
		for i := 0; i < lt.NumLineStrings(); i++ {
			if bufferLineToMask(g, m, proj, lt.LineString(i), radiusM) {
				drew = true
			}
		}
		return drew
	case *geom.Polygon, *geom.MultiPolygon:
		// Areal street geometry (e.g. pedestrian plazas): rasterize directly.
		return rasterizeGeom(g, m, lt)
	default:
		zap.L().Warn("mask: skipping unsupported street geometry")
		return false
	}
}

func bufferFlatLine(g geo.Grid, m *raster.Mask, proj geo.Projection, flat []float64, stride int, radiusM float64) bool {
	n := len(flat) / stride
	if n == 0 {
		return false
	}

	// Project vertices to metric east/north.
	ex := make([]float64, n)
	ny := make([]float64, n)
	for i := 0; i < n; i++ {
		ex[i], ny[i] = proj.Forward(flat[i*stride+1], flat[i*stride])
	}

	if n == 1 {
		fillRings(m, []ring{diskRing(g, proj, ex[0], ny[0], radiusM)})
		return true
	}

	drew := false
	for i := 0; i+1 < n; i++ {
		r := capsuleRing(g, proj, ex[i], ny[i], ex[i+1], ny[i+1], radiusM)
		if r == nil {
			continue
		}
		fillRings(m, []ring{r})
		drew = true
	}
	return drew
}

// capsuleRing builds the buffered outline of one metric segment as a pixel
// ring: two offset edges joined by semicircular caps. Zero-length segments
// degenerate to a disk.
func capsuleRing(g geo.Grid, proj geo.Projection, x1, y1, x2, y2, r float64) ring {
	dx, dy := x2-x1, y2-y1
	length := math.Hypot(dx, dy)
	if length == 0 {
		return diskRing(g, proj, x1, y1, r)
	}
	dx, dy = dx/length, dy/length
	// Perpendicular angle of the left offset edge.
	base := math.Atan2(dy, dx) + math.Pi/2

	pts := make([]float64, 0, (2*capSegments+4)*2)

	// Cap around the end point, sweeping from the left edge to the right.
	for i := 0; i <= capSegments; i++ {
		a := base - float64(i)*math.Pi/capSegments
		pts = append(pts, x2+r*math.Cos(a), y2+r*math.Sin(a))
	}
	// Cap around the start point.
	for i := 0; i <= capSegments; i++ {
		a := base + math.Pi - float64(i)*math.Pi/capSegments
		pts = append(pts, x1+r*math.Cos(a), y1+r*math.Sin(a))
	}

	return metricToPixelRing(g, proj, pts)
}

func diskRing(g geo.Grid, proj geo.Projection, cx, cy, r float64) ring {
	pts := make([]float64, 0, 2*2*capSegments)
	for i := 0; i < 2*capSegments; i++ {
		a := float64(i) * math.Pi / capSegments
		pts = append(pts, cx+r*math.Cos(a), cy+r*math.Sin(a))
	}
	return metricToPixelRing(g, proj, pts)
}

// metricToPixelRing reprojects metric ring vertices back to geographic
// coordinates and on to pixel space. Note the metric y axis points north
// while pixel rows grow south; the grid affine handles the inversion.
func metricToPixelRing(g geo.Grid, proj geo.Projection, pts []float64) ring {
	out := make(ring, 0, len(pts))
	for i := 0; i+1 < len(pts); i += 2 {
		lat, lon := proj.Inverse(pts[i], pts[i+1])
		x, y := g.LatLonToPixel(lat, lon)
		out = append(out, x, y)
	}
	return out
}
