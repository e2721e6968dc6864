package fetch

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/urbancanopy/canopy-cli/internal/layer"
)

// LoadShapefile reads a shapefile into a vector layer for offline analysis.
// Every DBF attribute is carried over as a feature tag so the street
// classifier can read "highway" columns from exported OSM shapefiles.
func LoadShapefile(path string) (layer.Layer, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return layer.Layer{}, eris.Wrapf(err, "fetch: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = strings.ToLower(strings.TrimRight(f.String(), "\x00"))
	}

	var out layer.Layer
	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()
		g := shapeGeometry(shape)
		if g == nil {
			skipped++
			continue
		}

		tags := make(map[string]string, len(names))
		for i, name := range names {
			val := strings.TrimSpace(strings.TrimRight(reader.Attribute(i), "\x00"))
			if val != "" {
				tags[name] = val
			}
		}
		out.Features = append(out.Features, layer.Feature{Geom: g, Tags: tags})
	}

	if skipped > 0 {
		zap.L().Debug("fetch: skipped shapefile records",
			zap.String("path", path),
			zap.Int("skipped", skipped))
	}
	return out, nil
}

// shapeGeometry converts a go-shp shape to go-geom. Unsupported shape types
// return nil.
func shapeGeometry(shape shp.Shape) geom.T {
	switch s := shape.(type) {
	case *shp.Point:
		return geom.NewPointFlat(geom.XY, []float64{s.X, s.Y})
	case *shp.PolyLine:
		return polyLineToMultiLineString(s)
	case *shp.Polygon:
		return polygonToMultiPolygon(s)
	default:
		return nil
	}
}

func polyLineToMultiLineString(pl *shp.PolyLine) geom.T {
	if pl == nil || pl.NumParts == 0 || len(pl.Points) == 0 {
		return nil
	}

	mls := geom.NewMultiLineString(geom.XY)
	for i := int32(0); i < pl.NumParts; i++ {
		flat := partCoords(pl.Points, pl.Parts, i, pl.NumParts)
		ls := geom.NewLineStringFlat(geom.XY, flat)
		if err := mls.Push(ls); err != nil {
			zap.L().Debug("fetch: skipping malformed linestring part", zap.Int32("part", i), zap.Error(err))
		}
	}
	if mls.NumLineStrings() == 0 {
		return nil
	}
	return mls
}

func polygonToMultiPolygon(p *shp.Polygon) geom.T {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY)
	for i := int32(0); i < p.NumParts; i++ {
		flat := partCoords(p.Points, p.Parts, i, p.NumParts)
		ring := geom.NewLinearRingFlat(geom.XY, flat)
		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(ring); err != nil {
			zap.L().Debug("fetch: skipping malformed polygon ring", zap.Int32("part", i), zap.Error(err))
			continue
		}
		if err := mp.Push(poly); err != nil {
			zap.L().Debug("fetch: skipping malformed polygon part", zap.Int32("part", i), zap.Error(err))
		}
	}
	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}

// partCoords extracts the flat coordinates of one part of a multi-part shape.
func partCoords(points []shp.Point, parts []int32, i, numParts int32) []float64 {
	start := parts[i]
	end := int32(len(points))
	if i+1 < numParts {
		end = parts[i+1]
	}
	flat := make([]float64, 0, (end-start)*2)
	for j := start; j < end; j++ {
		flat = append(flat, points[j].X, points[j].Y)
	}
	return flat
}
