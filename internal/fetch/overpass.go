// Package fetch holds the external acquisition collaborators: OSM vector
// layers via Overpass, satellite imagery via the Static Maps API, offline
// shapefile import, and the locations file loader. Everything here produces
// the neutral inputs the analysis pipeline consumes; none of the analysis
// stages perform I/O themselves.
package fetch

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"github.com/serjvanilla/go-overpass"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/urbancanopy/canopy-cli/internal/config"
	geogrid "github.com/urbancanopy/canopy-cli/internal/geo"
	"github.com/urbancanopy/canopy-cli/internal/layer"
)

// Layers bundles the three vector layers one location needs.
type Layers struct {
	Buildings layer.Layer
	Streets   layer.Layer
	Amenities layer.Layer
}

// OverpassClient fetches OSM vector data for a bounding box. Requests are
// rate limited; the public Overpass instances throttle aggressively.
type OverpassClient struct {
	client  overpass.Client
	limiter *rate.Limiter
	timeout time.Duration
}

// NewOverpass builds an Overpass client from configuration.
func NewOverpass(cfg config.FetchConfig) *OverpassClient {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	httpClient := &http.Client{Timeout: timeout}
	return &OverpassClient{
		client:  overpass.NewWithSettings(cfg.OverpassEndpoint, 1, httpClient),
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1),
		timeout: timeout,
	}
}

// Layers fetches buildings, streets, and amenities inside the grid bounds.
func (c *OverpassClient) Layers(ctx context.Context, bounds geogrid.BBox) (*Layers, error) {
	bbox := fmt.Sprintf("%f,%f,%f,%f", bounds.MinLat, bounds.MinLon, bounds.MaxLat, bounds.MaxLon)

	buildings, err := c.queryWays(ctx, fmt.Sprintf(`
		[out:json][timeout:%d];
		(way["building"](%s););
		out body; >; out skel qt;`, int(c.timeout.Seconds()), bbox), wayPolygon)
	if err != nil {
		return nil, eris.Wrap(err, "fetch: building query")
	}

	streets, err := c.queryWays(ctx, fmt.Sprintf(`
		[out:json][timeout:%d];
		(way["highway"](%s););
		out body; >; out skel qt;`, int(c.timeout.Seconds()), bbox), wayLine)
	if err != nil {
		return nil, eris.Wrap(err, "fetch: street query")
	}

	amenities, err := c.queryAmenities(ctx, fmt.Sprintf(`
		[out:json][timeout:%d];
		(
			node["amenity"](%s);
			way["amenity"](%s);
		);
		out body; >; out skel qt;`, int(c.timeout.Seconds()), bbox, bbox))
	if err != nil {
		return nil, eris.Wrap(err, "fetch: amenity query")
	}

	zap.L().Info("fetch: overpass layers",
		zap.Int("buildings", buildings.Len()),
		zap.Int("streets", streets.Len()),
		zap.Int("amenities", amenities.Len()))

	return &Layers{Buildings: buildings, Streets: streets, Amenities: amenities}, nil
}

func (c *OverpassClient) query(ctx context.Context, q string) (*overpass.Result, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "fetch: rate limiter wait")
	}
	result, err := c.client.Query(q)
	if err != nil {
		return nil, eris.Wrap(err, "fetch: overpass query")
	}
	return &result, nil
}

type wayKind int

const (
	wayPolygon wayKind = iota
	wayLine
)

// queryWays executes an Overpass query and converts the result's ways into a
// layer. Ways are emitted in ascending ID order so repeated fetches of
// unchanged data produce identical layers.
func (c *OverpassClient) queryWays(ctx context.Context, q string, kind wayKind) (layer.Layer, error) {
	result, err := c.query(ctx, q)
	if err != nil {
		return layer.Layer{}, err
	}

	ids := make([]int64, 0, len(result.Ways))
	for id := range result.Ways {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var out layer.Layer
	for _, id := range ids {
		way := result.Ways[id]
		g := wayGeometry(way, kind)
		if g == nil {
			continue
		}
		out.Features = append(out.Features, layer.Feature{Geom: g, Tags: way.Tags})
	}
	return out, nil
}

// queryAmenities converts amenity nodes to points and amenity ways to their
// vertex-centroid points, in ascending ID order with nodes first.
func (c *OverpassClient) queryAmenities(ctx context.Context, q string) (layer.Layer, error) {
	result, err := c.query(ctx, q)
	if err != nil {
		return layer.Layer{}, err
	}

	nodeIDs := make([]int64, 0, len(result.Nodes))
	for id, n := range result.Nodes {
		// Skeleton nodes carry no tags; only tagged nodes are amenities.
		if len(n.Tags) > 0 {
			nodeIDs = append(nodeIDs, id)
		}
	}
	sort.Slice(nodeIDs, func(i, j int) bool { return nodeIDs[i] < nodeIDs[j] })

	wayIDs := make([]int64, 0, len(result.Ways))
	for id := range result.Ways {
		wayIDs = append(wayIDs, id)
	}
	sort.Slice(wayIDs, func(i, j int) bool { return wayIDs[i] < wayIDs[j] })

	var out layer.Layer
	for _, id := range nodeIDs {
		n := result.Nodes[id]
		out.Features = append(out.Features, layer.Feature{
			Geom: geom.NewPointFlat(geom.XY, []float64{n.Lon, n.Lat}),
			Tags: n.Tags,
		})
	}
	for _, id := range wayIDs {
		way := result.Ways[id]
		if len(way.Nodes) == 0 {
			continue
		}
		var lat, lon float64
		for _, n := range way.Nodes {
			lat += n.Lat
			lon += n.Lon
		}
		lat /= float64(len(way.Nodes))
		lon /= float64(len(way.Nodes))
		out.Features = append(out.Features, layer.Feature{
			Geom: geom.NewPointFlat(geom.XY, []float64{lon, lat}),
			Tags: way.Tags,
		})
	}
	return out, nil
}

// wayGeometry converts an Overpass way to the go-geom shape the layer
// expects: closed building outlines become polygons, streets stay lines.
func wayGeometry(way *overpass.Way, kind wayKind) geom.T {
	if len(way.Nodes) < 2 {
		return nil
	}

	flat := make([]float64, 0, len(way.Nodes)*2)
	for _, n := range way.Nodes {
		flat = append(flat, n.Lon, n.Lat)
	}

	if kind == wayLine {
		return geom.NewLineStringFlat(geom.XY, flat)
	}

	// Building outlines must close; Overpass ways repeat the first node at
	// the end for closed ways, but be tolerant of ones that do not.
	if len(way.Nodes) < 3 {
		return nil
	}
	if flat[0] != flat[len(flat)-2] || flat[1] != flat[len(flat)-1] {
		flat = append(flat, flat[0], flat[1])
	}
	return geom.NewPolygonFlat(geom.XY, flat, []int{len(flat)})
}
