package raster

// Close3x3 performs one morphological closing (dilate then erode) with a 3x3
// structuring element, filling single-pixel gaps without growing regions.
func Close3x3(m *Mask) *Mask {
	return erode3x3(dilate3x3(m))
}

func dilate3x3(m *Mask) *Mask {
	out := NewMask(m.W, m.H)
	for y := 0; y < m.H; y++ {
		for x := 0; x < m.W; x++ {
			if m.Bits[y*m.W+x] {
				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						out.Set(x+dx, y+dy, true)
					}
				}
			}
		}
	}
	return out
}

func erode3x3(m *Mask) *Mask {
	out := NewMask(m.W, m.H)
	for y := 0; y < m.H; y++ {
		for x := 0; x < m.W; x++ {
			all := true
			for dy := -1; dy <= 1 && all; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
					// Pixels beyond the border count as foreground, so
					// closing never shaves regions touching the image edge.
					if nx < 0 || nx >= m.W || ny < 0 || ny >= m.H {
						continue
					}
					if !m.Bits[ny*m.W+nx] {
						all = false
						break
					}
				}
			}
			out.Bits[y*m.W+x] = all
		}
	}
	return out
}
