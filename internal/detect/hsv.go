package detect

// rgbToSV returns the saturation and value channels of a pixel on the 0-255
// scale, matching the HSV convention the detection thresholds were calibrated
// against: V = max(R,G,B), S = (V - min) / V * 255.
func rgbToSV(r, g, b uint8) (s, v float64) {
	max := r
	if g > max {
		max = g
	}
	if b > max {
		max = b
	}
	min := r
	if g < min {
		min = g
	}
	if b < min {
		min = b
	}

	v = float64(max)
	if max == 0 {
		return 0, 0
	}
	s = float64(max-min) / float64(max) * 255
	return s, v
}
