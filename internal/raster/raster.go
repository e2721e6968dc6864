// Package raster holds the 2D grid value types shared by every analysis
// stage: boolean masks, continuous fields, and the pixel algorithms that
// operate on them (distance transform, connected-component labeling,
// morphology). All rasters for a location share the same dimensions and are
// positionally comparable pixel-for-pixel.
package raster

// Mask is a binary raster over the location grid.
type Mask struct {
	W, H int
	Bits []bool
}

// NewMask returns an all-false mask of the given dimensions.
func NewMask(w, h int) *Mask {
	return &Mask{W: w, H: h, Bits: make([]bool, w*h)}
}

// At reports the value at (x, y). Out-of-range indices read false.
func (m *Mask) At(x, y int) bool {
	if x < 0 || x >= m.W || y < 0 || y >= m.H {
		return false
	}
	return m.Bits[y*m.W+x]
}

// Set writes the value at (x, y). Out-of-range writes are dropped.
func (m *Mask) Set(x, y int, v bool) {
	if x < 0 || x >= m.W || y < 0 || y >= m.H {
		return
	}
	m.Bits[y*m.W+x] = v
}

// Count returns the number of true pixels.
func (m *Mask) Count() int {
	n := 0
	for _, b := range m.Bits {
		if b {
			n++
		}
	}
	return n
}

// Any reports whether at least one pixel is true.
func (m *Mask) Any() bool {
	for _, b := range m.Bits {
		if b {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (m *Mask) Clone() *Mask {
	out := NewMask(m.W, m.H)
	copy(out.Bits, m.Bits)
	return out
}

// Or sets m to the pixel-wise union of m and other. Dimension mismatch is a
// programmer error and panics.
func (m *Mask) Or(other *Mask) {
	checkDims(m.W, m.H, other.W, other.H)
	for i, b := range other.Bits {
		if b {
			m.Bits[i] = true
		}
	}
}

// Not returns the pixel-wise complement.
func (m *Mask) Not() *Mask {
	out := NewMask(m.W, m.H)
	for i, b := range m.Bits {
		out.Bits[i] = !b
	}
	return out
}

// And returns the pixel-wise intersection.
func (m *Mask) And(other *Mask) *Mask {
	checkDims(m.W, m.H, other.W, other.H)
	out := NewMask(m.W, m.H)
	for i := range m.Bits {
		out.Bits[i] = m.Bits[i] && other.Bits[i]
	}
	return out
}

// ExcludeAll returns the pixels that are in none of the given masks: the
// complement of their union.
func ExcludeAll(w, h int, masks ...*Mask) *Mask {
	out := NewMask(w, h)
	for i := range out.Bits {
		out.Bits[i] = true
	}
	for _, m := range masks {
		checkDims(w, h, m.W, m.H)
		for i, b := range m.Bits {
			if b {
				out.Bits[i] = false
			}
		}
	}
	return out
}

// Field is a continuous raster over the location grid.
type Field struct {
	W, H int
	Data []float64
}

// NewField returns an all-zero field of the given dimensions.
func NewField(w, h int) *Field {
	return &Field{W: w, H: h, Data: make([]float64, w*h)}
}

// At returns the value at (x, y). Out-of-range indices read zero.
func (f *Field) At(x, y int) float64 {
	if x < 0 || x >= f.W || y < 0 || y >= f.H {
		return 0
	}
	return f.Data[y*f.W+x]
}

// Set writes the value at (x, y). Out-of-range writes are dropped.
func (f *Field) Set(x, y int, v float64) {
	if x < 0 || x >= f.W || y < 0 || y >= f.H {
		return
	}
	f.Data[y*f.W+x] = v
}

// Add returns the pixel-wise sum of the given fields.
func Add(fields ...*Field) *Field {
	if len(fields) == 0 {
		return nil
	}
	out := NewField(fields[0].W, fields[0].H)
	for _, f := range fields {
		checkDims(out.W, out.H, f.W, f.H)
		for i, v := range f.Data {
			out.Data[i] += v
		}
	}
	return out
}

// Clamp bounds every value to [lo, hi] in place.
func (f *Field) Clamp(lo, hi float64) {
	for i, v := range f.Data {
		if v < lo {
			f.Data[i] = lo
		} else if v > hi {
			f.Data[i] = hi
		}
	}
}

// MaskZero zeroes every pixel where keep is false, in place.
func (f *Field) MaskZero(keep *Mask) {
	checkDims(f.W, f.H, keep.W, keep.H)
	for i := range f.Data {
		if !keep.Bits[i] {
			f.Data[i] = 0
		}
	}
}

// Max returns the maximum value, or 0 for an empty field.
func (f *Field) Max() float64 {
	max := 0.0
	for i, v := range f.Data {
		if i == 0 || v > max {
			max = v
		}
	}
	return max
}

// MeanWhere returns the mean value over the true pixels of the mask, or 0
// when the mask is empty.
func (f *Field) MeanWhere(m *Mask) float64 {
	checkDims(f.W, f.H, m.W, m.H)
	sum, n := 0.0, 0
	for i, b := range m.Bits {
		if b {
			sum += f.Data[i]
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func checkDims(w, h, ow, oh int) {
	if w != ow || h != oh {
		panic("raster: dimension mismatch")
	}
}
