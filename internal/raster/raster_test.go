package raster

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMask_SetCount(t *testing.T) {
	m := NewMask(4, 4)
	assert.False(t, m.Any())
	assert.Equal(t, 0, m.Count())

	m.Set(1, 2, true)
	m.Set(3, 3, true)
	assert.True(t, m.Any())
	assert.Equal(t, 2, m.Count())
	assert.True(t, m.At(1, 2))
	assert.False(t, m.At(0, 0))

	// Out-of-range access is safe.
	m.Set(-1, 0, true)
	m.Set(4, 0, true)
	assert.False(t, m.At(-1, 0))
	assert.Equal(t, 2, m.Count())
}

func TestExcludeAll(t *testing.T) {
	a := NewMask(3, 3)
	a.Set(0, 0, true)
	b := NewMask(3, 3)
	b.Set(2, 2, true)
	b.Set(0, 0, true)

	out := ExcludeAll(3, 3, a, b)
	assert.False(t, out.At(0, 0))
	assert.False(t, out.At(2, 2))
	assert.True(t, out.At(1, 1))
	assert.Equal(t, 7, out.Count())

	// No masks: everything survives.
	assert.Equal(t, 9, ExcludeAll(3, 3).Count())
}

func TestField_ClampAndMask(t *testing.T) {
	f := NewField(2, 2)
	f.Set(0, 0, -5)
	f.Set(1, 0, 150)
	f.Set(0, 1, 50)

	f.Clamp(0, 100)
	assert.Equal(t, 0.0, f.At(0, 0))
	assert.Equal(t, 100.0, f.At(1, 0))
	assert.Equal(t, 50.0, f.At(0, 1))

	keep := NewMask(2, 2)
	keep.Set(0, 1, true)
	f.MaskZero(keep)
	assert.Equal(t, 0.0, f.At(1, 0))
	assert.Equal(t, 50.0, f.At(0, 1))
}

func TestField_MeanWhere(t *testing.T) {
	f := NewField(2, 2)
	f.Set(0, 0, 10)
	f.Set(1, 1, 30)

	m := NewMask(2, 2)
	m.Set(0, 0, true)
	m.Set(1, 1, true)
	assert.InDelta(t, 20.0, f.MeanWhere(m), 1e-9)

	empty := NewMask(2, 2)
	assert.Equal(t, 0.0, f.MeanWhere(empty))
}

func TestDistanceTransform_SinglePoint(t *testing.T) {
	m := NewMask(5, 5)
	m.Set(2, 2, true)

	d := DistanceTransform(m)
	assert.InDelta(t, 0, d.At(2, 2), 1e-9)
	assert.InDelta(t, 1, d.At(3, 2), 1e-9)
	assert.InDelta(t, 2, d.At(4, 2), 1e-9)
	assert.InDelta(t, math.Sqrt2, d.At(3, 3), 1e-9)
	assert.InDelta(t, math.Hypot(2, 2), d.At(0, 0), 1e-9)
}

func TestDistanceTransform_InsideIsZero(t *testing.T) {
	m := NewMask(6, 6)
	for y := 1; y < 4; y++ {
		for x := 1; x < 4; x++ {
			m.Set(x, y, true)
		}
	}

	d := DistanceTransform(m)
	for y := 1; y < 4; y++ {
		for x := 1; x < 4; x++ {
			assert.Equal(t, 0.0, d.At(x, y))
		}
	}
	assert.InDelta(t, 1, d.At(4, 2), 1e-9)
}

func TestDistanceTransform_EmptyMask(t *testing.T) {
	m := NewMask(4, 4)
	d := DistanceTransform(m)

	far := math.Hypot(4, 4)
	for _, v := range d.Data {
		require.False(t, math.IsInf(v, 0))
		assert.InDelta(t, far, v, 1e-9)
	}
}

func TestLabel8_TwoComponents(t *testing.T) {
	m := NewMask(6, 3)
	m.Set(0, 0, true)
	m.Set(1, 1, true) // diagonal neighbor: same component under 8-connectivity
	m.Set(4, 0, true)
	m.Set(5, 0, true)

	labels, n := Label8(m)
	assert.Equal(t, 2, n)
	assert.Equal(t, labels[0], labels[1*6+1])
	assert.NotEqual(t, labels[0], labels[4])
	assert.Equal(t, labels[4], labels[5])
	assert.EqualValues(t, 0, labels[2])
}

func TestFilterMinSize(t *testing.T) {
	m := NewMask(8, 8)
	// 4-pixel square.
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			m.Set(x, y, true)
		}
	}
	// Lone pixel.
	m.Set(6, 6, true)

	out := FilterMinSize(m, 2)
	assert.Equal(t, 4, out.Count())
	assert.False(t, out.At(6, 6))

	// Threshold 1 keeps everything.
	assert.Equal(t, 5, FilterMinSize(m, 1).Count())
}

func TestClose3x3_FillsGap(t *testing.T) {
	m := NewMask(9, 3)
	// Two runs separated by a single-pixel gap at x=4.
	for x := 1; x < 4; x++ {
		m.Set(x, 1, true)
	}
	for x := 5; x < 8; x++ {
		m.Set(x, 1, true)
	}

	closed := Close3x3(m)
	assert.True(t, closed.At(4, 1), "closing should bridge the one-pixel gap")
}

func TestClose3x3_PreservesBorderRegions(t *testing.T) {
	m := NewMask(8, 8)
	// Solid block flush with the top-left corner.
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			m.Set(x, y, true)
		}
	}

	closed := Close3x3(m)
	assert.True(t, closed.At(0, 0), "corner pixel must survive closing")
	assert.Equal(t, 12, closed.Count())
}

func TestClose3x3_EmptyStaysEmpty(t *testing.T) {
	m := NewMask(5, 5)
	assert.Equal(t, 0, Close3x3(m).Count())
}
