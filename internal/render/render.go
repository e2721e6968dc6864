// Package render composites analysis results over the satellite image:
// priority classes as translucent tints, critical spots as ring markers.
package render

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/rotisserie/eris"

	"github.com/urbancanopy/canopy-cli/internal/pipeline"
	"github.com/urbancanopy/canopy-cli/internal/raster"
)

// Class tint colors, strongest priority first.
var (
	criticalTint = color.NRGBA{R: 214, G: 39, B: 40, A: 255}
	highTint     = color.NRGBA{R: 255, G: 127, B: 14, A: 255}
	mediumTint   = color.NRGBA{R: 255, G: 221, B: 87, A: 255}
	lowTint      = color.NRGBA{R: 44, G: 160, B: 44, A: 255}
)

const tintAlpha = 0.45

// Overlay renders the priority map for a completed analysis. The satellite
// image is resampled to the grid dimensions if needed.
func Overlay(satellite image.Image, a *pipeline.Analysis) (image.Image, error) {
	if satellite == nil {
		return nil, eris.New("render: nil satellite image")
	}
	w, h := a.Grid.Width, a.Grid.Height

	base := imaging.Clone(satellite)
	if base.Bounds().Dx() != w || base.Bounds().Dy() != h {
		base = imaging.Resize(satellite, w, h, imaging.Lanczos)
	}

	tintMask(base, a.Score.Low, lowTint)
	tintMask(base, a.Score.Medium, mediumTint)
	tintMask(base, a.Score.High, highTint)
	tintMask(base, a.Score.Critical, criticalTint)

	dc := gg.NewContextForImage(base)
	for _, sp := range a.Spots {
		x, y := a.Grid.LatLonToPixel(sp.Lat, sp.Lon)
		drawSpotMarker(dc, x, y)
	}
	return dc.Image(), nil
}

// tintMask alpha-blends a tint color into the image where the mask is set.
func tintMask(img *image.NRGBA, m *raster.Mask, tint color.NRGBA) {
	for y := 0; y < m.H; y++ {
		for x := 0; x < m.W; x++ {
			if !m.At(x, y) {
				continue
			}
			c := img.NRGBAAt(x, y)
			img.SetNRGBA(x, y, color.NRGBA{
				R: blend(c.R, tint.R),
				G: blend(c.G, tint.G),
				B: blend(c.B, tint.B),
				A: 255,
			})
		}
	}
}

func blend(base, tint uint8) uint8 {
	return uint8(float64(base)*(1-tintAlpha) + float64(tint)*tintAlpha)
}

// drawSpotMarker draws a white-ringed red marker at the spot centroid.
func drawSpotMarker(dc *gg.Context, x, y float64) {
	dc.SetRGBA255(255, 255, 255, 255)
	dc.SetLineWidth(3)
	dc.DrawCircle(x, y, 8)
	dc.Stroke()

	dc.SetRGBA255(int(criticalTint.R), int(criticalTint.G), int(criticalTint.B), 255)
	dc.SetLineWidth(2)
	dc.DrawCircle(x, y, 8)
	dc.Stroke()

	dc.DrawCircle(x, y, 2)
	dc.Fill()
}

// SavePNG writes a rendered overlay to disk.
func SavePNG(path string, img image.Image) error {
	if err := gg.SavePNG(path, img); err != nil {
		return eris.Wrapf(err, "render: save %s", path)
	}
	return nil
}
