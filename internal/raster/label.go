package raster

// Label8 assigns a label to every 8-connected component of true pixels.
// Returns a per-pixel label slice (0 = background, components numbered 1..n
// in scan order of their first pixel) and the component count.
func Label8(m *Mask) ([]int32, int) {
	w, h := m.W, m.H
	labels := make([]int32, w*h)
	next := int32(0)

	// Iterative flood fill; recursion depth is unbounded on large regions.
	var stack []int
	for start, b := range m.Bits {
		if !b || labels[start] != 0 {
			continue
		}
		next++
		labels[start] = next
		stack = append(stack[:0], start)
		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			x, y := i%w, i/w
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if dx == 0 && dy == 0 {
						continue
					}
					nx, ny := x+dx, y+dy
					if nx < 0 || nx >= w || ny < 0 || ny >= h {
						continue
					}
					j := ny*w + nx
					if m.Bits[j] && labels[j] == 0 {
						labels[j] = next
						stack = append(stack, j)
					}
				}
			}
		}
	}

	return labels, int(next)
}

// FilterMinSize returns a copy of the mask with every 8-connected component
// smaller than minPx removed.
func FilterMinSize(m *Mask, minPx int) *Mask {
	if minPx <= 1 {
		return m.Clone()
	}
	labels, n := Label8(m)
	if n == 0 {
		return m.Clone()
	}

	counts := make([]int, n+1)
	for _, l := range labels {
		counts[l]++
	}

	out := NewMask(m.W, m.H)
	for i, l := range labels {
		if l != 0 && counts[l] >= minPx {
			out.Bits[i] = true
		}
	}
	return out
}
