package raster

import "math"

// DistanceTransform computes the exact Euclidean distance from every pixel to
// the nearest true pixel of the mask, in pixel units. Pixels inside the mask
// have distance 0. An all-false mask yields a field uniformly set to the grid
// diagonal, which is farther than any real distance and keeps the output
// finite.
//
// Two-pass algorithm of Felzenszwalb & Huttenlocher: a 1D squared-distance
// transform over columns, then over rows.
func DistanceTransform(m *Mask) *Field {
	w, h := m.W, m.H
	out := NewField(w, h)

	if !m.Any() {
		far := math.Hypot(float64(w), float64(h))
		for i := range out.Data {
			out.Data[i] = far
		}
		return out
	}

	const inf = math.MaxFloat64 / 4

	// Squared distances, seeded from the mask.
	d := make([]float64, w*h)
	for i, b := range m.Bits {
		if b {
			d[i] = 0
		} else {
			d[i] = inf
		}
	}

	// Pass 1: columns.
	col := make([]float64, h)
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			col[y] = d[y*w+x]
		}
		dt1d(col)
		for y := 0; y < h; y++ {
			d[y*w+x] = col[y]
		}
	}

	// Pass 2: rows.
	row := make([]float64, w)
	for y := 0; y < h; y++ {
		copy(row, d[y*w:(y+1)*w])
		dt1d(row)
		for x := 0; x < w; x++ {
			out.Data[y*w+x] = math.Sqrt(row[x])
		}
	}

	return out
}

// dt1d computes the 1D squared-distance transform in place using the lower
// envelope of parabolas rooted at each sample.
func dt1d(f []float64) {
	n := len(f)
	if n == 0 {
		return
	}

	v := make([]int, n)        // locations of parabolas in the lower envelope
	z := make([]float64, n+1)  // boundaries between parabolas
	d := make([]float64, n)    // output

	k := 0
	v[0] = 0
	z[0] = math.Inf(-1)
	z[1] = math.Inf(1)

	for q := 1; q < n; q++ {
		var s float64
		for {
			p := v[k]
			s = ((f[q] + float64(q*q)) - (f[p] + float64(p*p))) / float64(2*q-2*p)
			if s > z[k] {
				break
			}
			k--
		}
		k++
		v[k] = q
		z[k] = s
		z[k+1] = math.Inf(1)
	}

	k = 0
	for q := 0; q < n; q++ {
		for z[k+1] < float64(q) {
			k++
		}
		dq := float64(q - v[k])
		d[q] = dq*dq + f[v[k]]
	}
	copy(f, d)
}
