package geo

import (
	"math"

	"github.com/rotisserie/eris"
)

// MetersPerDegreeLat is the approximate length of one degree of latitude.
// Longitude degrees shrink by cos(latitude); see MetersToDegrees.
const MetersPerDegreeLat = 111000.0

// webMercatorEquator is the ground resolution constant for Web Mercator:
// meters per pixel at the equator at zoom 0.
const webMercatorEquator = 156543.03392

// BBox is a geographic bounding box in WGS84 degrees.
type BBox struct {
	MinLon float64 `json:"min_lon"`
	MinLat float64 `json:"min_lat"`
	MaxLon float64 `json:"max_lon"`
	MaxLat float64 `json:"max_lat"`
}

// Grid is the spatial frame shared by every raster produced for one location.
// It fixes the pixel dimensions, the geographic bounding box, and the affine
// mapping between pixel index and (lat, lon). All rasters for a location are
// aligned to the same Grid; it is immutable once computed.
type Grid struct {
	Width  int
	Height int
	Bounds BBox

	// MetersPerPixel is the derived ground resolution at the grid center.
	MetersPerPixel float64
}

// NewGrid computes the grid for a location center at the given Web Mercator
// zoom level. Pixel (0,0) is the top-left corner; x grows east, y grows
// south. The imagery scale factor plays no part here: it raises the
// download's pixel density, never its ground coverage, and the image is
// resampled to the grid dimensions before analysis.
func NewGrid(centerLat, centerLon float64, width, height, zoom int) (Grid, error) {
	if width <= 0 || height <= 0 {
		return Grid{}, eris.Errorf("geo: grid dimensions must be positive, got %dx%d", width, height)
	}
	if zoom <= 0 {
		return Grid{}, eris.Errorf("geo: zoom must be positive, got %d", zoom)
	}

	mpp := webMercatorEquator * math.Cos(centerLat*math.Pi/180) / math.Pow(2, float64(zoom))

	halfWidthM := float64(width) / 2 * mpp
	halfHeightM := float64(height) / 2 * mpp

	dLat, dLon := MetersToDegrees(halfHeightM, halfWidthM, centerLat)

	g := Grid{
		Width:  width,
		Height: height,
		Bounds: BBox{
			MinLon: centerLon - dLon,
			MinLat: centerLat - dLat,
			MaxLon: centerLon + dLon,
			MaxLat: centerLat + dLat,
		},
	}
	g.MetersPerPixel = 2 * halfHeightM / float64(height)
	return g, nil
}

// LatLonToPixel converts geographic coordinates to fractional pixel
// coordinates. Latitude is inverted: pixel rows grow downward while latitude
// grows upward.
func (g Grid) LatLonToPixel(lat, lon float64) (x, y float64) {
	x = (lon - g.Bounds.MinLon) / (g.Bounds.MaxLon - g.Bounds.MinLon) * float64(g.Width)
	y = (g.Bounds.MaxLat - lat) / (g.Bounds.MaxLat - g.Bounds.MinLat) * float64(g.Height)
	return x, y
}

// PixelToLatLon is the inverse affine mapping of LatLonToPixel.
func (g Grid) PixelToLatLon(x, y float64) (lat, lon float64) {
	lon = g.Bounds.MinLon + x/float64(g.Width)*(g.Bounds.MaxLon-g.Bounds.MinLon)
	lat = g.Bounds.MaxLat - y/float64(g.Height)*(g.Bounds.MaxLat-g.Bounds.MinLat)
	return lat, lon
}

// Contains reports whether the integer pixel index lies inside the grid.
func (g Grid) Contains(x, y int) bool {
	return x >= 0 && x < g.Width && y >= 0 && y < g.Height
}

// PixelAreaM2 returns the ground area covered by one pixel.
func (g Grid) PixelAreaM2() float64 {
	return g.MetersPerPixel * g.MetersPerPixel
}

// TotalAreaM2 returns the ground area covered by the whole grid.
func (g Grid) TotalAreaM2() float64 {
	return float64(g.Width*g.Height) * g.PixelAreaM2()
}

// MetersToDegrees converts metric north/east offsets to degree offsets at the
// given latitude.
func MetersToDegrees(metersNorth, metersEast, lat float64) (dLat, dLon float64) {
	dLat = metersNorth / MetersPerDegreeLat
	dLon = metersEast / (MetersPerDegreeLat * math.Cos(lat*math.Pi/180))
	return dLat, dLon
}
