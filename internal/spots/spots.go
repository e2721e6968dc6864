// Package spots extracts contiguous critical-priority clusters from the
// scored raster and turns them into geographic recommendations.
package spots

import (
	"sort"

	"go.uber.org/zap"

	"github.com/urbancanopy/canopy-cli/internal/geo"
	"github.com/urbancanopy/canopy-cli/internal/raster"
)

// Spot is one recommended planting cluster.
type Spot struct {
	ID        int     `json:"id"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	MeanScore float64 `json:"mean_score"`
	AreaM2    float64 `json:"area_m2"`
	SizePx    int     `json:"size_px"`
}

// Extract labels the critical mask into 8-connected clusters, drops clusters
// below minClusterPx, and returns the survivors ordered by descending mean
// composite score (scan-order label breaking ties). IDs are reassigned 1..n
// after sorting.
func Extract(grid geo.Grid, composite *raster.Field, critical *raster.Mask, minClusterPx int) []Spot {
	labels, n := raster.Label8(critical)
	if n == 0 {
		return nil
	}

	type cluster struct {
		label    int32
		size     int
		sumScore float64
		sumX     float64
		sumY     float64
	}
	clusters := make([]cluster, n+1)

	for i, lb := range labels {
		if lb == 0 {
			continue
		}
		c := &clusters[lb]
		c.label = lb
		c.size++
		c.sumScore += composite.Data[i]
		c.sumX += float64(i % critical.W)
		c.sumY += float64(i / critical.W)
	}

	kept := clusters[1:]
	filtered := kept[:0]
	for _, c := range kept {
		if c.size >= minClusterPx {
			filtered = append(filtered, c)
		}
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		mi := filtered[i].sumScore / float64(filtered[i].size)
		mj := filtered[j].sumScore / float64(filtered[j].size)
		if mi != mj {
			return mi > mj
		}
		return filtered[i].label < filtered[j].label
	})

	areaPerPx := grid.PixelAreaM2()
	spots := make([]Spot, 0, len(filtered))
	for idx, c := range filtered {
		// Centroid at the mean pixel center.
		cx := c.sumX/float64(c.size) + 0.5
		cy := c.sumY/float64(c.size) + 0.5
		lat, lon := grid.PixelToLatLon(cx, cy)
		spots = append(spots, Spot{
			ID:        idx + 1,
			Lat:       lat,
			Lon:       lon,
			MeanScore: c.sumScore / float64(c.size),
			AreaM2:    float64(c.size) * areaPerPx,
			SizePx:    c.size,
		})
	}

	zap.L().Info("spots: extracted critical clusters",
		zap.Int("clusters", n),
		zap.Int("kept", len(spots)),
		zap.Int("min_cluster_px", minClusterPx))

	return spots
}
