// Package detect derives the vegetation and shadow raster fields from the
// satellite image: NDVI with a brightness gate for vegetation, HSV
// brightness/saturation analysis for shadows (vegetation-aware, since dark
// green canopy is not a shadow), and a continuous blurred shadow intensity
// field for the sun-exposure component.
package detect

import (
	"image"

	"github.com/disintegration/imaging"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/urbancanopy/canopy-cli/internal/config"
	"github.com/urbancanopy/canopy-cli/internal/raster"
)

// Result holds the detection outputs. NDVI is unclamped but lands in [-1,1]
// for 8-bit inputs; ShadowIntensity is in [0,1] and independent of the binary
// shadow mask.
type Result struct {
	NDVI            *raster.Field
	Vegetation      *raster.Mask
	Shadow          *raster.Mask
	ShadowIntensity *raster.Field
}

// Detect runs vegetation and shadow detection over the image. The image is
// resampled to w x h when its dimensions differ from the grid. A uniformly
// bright or dark image yields empty masks, not an error.
func Detect(img image.Image, w, h int, cfg config.DetectConfig) (*Result, error) {
	if img == nil {
		return nil, eris.New("detect: nil image")
	}
	if w <= 0 || h <= 0 {
		return nil, eris.Errorf("detect: invalid grid dimensions %dx%d", w, h)
	}

	rgba := imaging.Clone(img)
	if rgba.Bounds().Dx() != w || rgba.Bounds().Dy() != h {
		zap.L().Debug("detect: resampling image to grid",
			zap.Int("src_w", rgba.Bounds().Dx()), zap.Int("src_h", rgba.Bounds().Dy()),
			zap.Int("grid_w", w), zap.Int("grid_h", h))
		rgba = imaging.Resize(rgba, w, h, imaging.Lanczos)
	}

	ndvi := raster.NewField(w, h)
	vegetation := raster.NewMask(w, h)
	shadowCandidate := raster.NewMask(w, h)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := rgba.PixOffset(x, y)
			r := rgba.Pix[i]
			g := rgba.Pix[i+1]
			b := rgba.Pix[i+2]

			// NDVI from the visible bands; epsilon keeps all-black pixels
			// finite.
			n := (float64(g) - float64(r)) / (float64(g) + float64(r) + cfg.NDVIEpsilon)
			ndvi.Set(x, y, n)

			s, v := rgbToSV(r, g, b)

			isVeg := n > cfg.NDVIThreshold && v > cfg.MinVegetationBrightness
			vegetation.Set(x, y, isVeg)
			if isVeg {
				continue
			}

			// Shadows are dark and desaturated, or very dark outright.
			dark := v < cfg.ShadowBrightnessMax && s < cfg.ShadowDesaturationMax
			veryDark := v < cfg.ShadowVeryDarkMax
			shadowCandidate.Set(x, y, dark || veryDark)
		}
	}

	shadow := raster.FilterMinSize(raster.Close3x3(shadowCandidate), cfg.ShadowMinSizePx)

	intensity := shadowIntensity(rgba, w, h, cfg.ShadowBlurSigma)

	total := w * h
	zap.L().Debug("detect: vegetation and shadow detection complete",
		zap.Float64("vegetation_pct", pct(vegetation.Count(), total)),
		zap.Float64("shadow_pct", pct(shadow.Count(), total)))

	return &Result{
		NDVI:            ndvi,
		Vegetation:      vegetation,
		Shadow:          shadow,
		ShadowIntensity: intensity,
	}, nil
}

// shadowIntensity computes 1 - normalized brightness, smoothed with a
// Gaussian blur. It is a continuous gradient over the whole image, not a
// thresholded mask. Brightness is the HSV value channel, the same channel the
// shadow mask thresholds; a saturated color is bright, not mid-gray.
func shadowIntensity(rgba *image.NRGBA, w, h int, sigma float64) *raster.Field {
	gray := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := rgba.PixOffset(x, y)
			_, v := rgbToSV(rgba.Pix[i], rgba.Pix[i+1], rgba.Pix[i+2])
			o := gray.PixOffset(x, y)
			gray.Pix[o] = uint8(v)
			gray.Pix[o+1] = uint8(v)
			gray.Pix[o+2] = uint8(v)
			gray.Pix[o+3] = 0xff
		}
	}
	if sigma > 0 {
		gray = imaging.Blur(gray, sigma)
	}

	out := raster.NewField(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := gray.Pix[gray.PixOffset(x, y)]
			out.Set(x, y, 1-float64(v)/255)
		}
	}
	out.Clamp(0, 1)
	return out
}

func pct(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}
