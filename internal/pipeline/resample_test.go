package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCropAndResize_Identity(t *testing.T) {
	t.Parallel()

	// 2x2 RGB image: sampling the full box at the same size must
	// reproduce the input exactly.
	data := []float32{
		1, 2, 3, 4, 5, 6,
		7, 8, 9, 10, 11, 12,
	}
	out := cropAndResize(data, 2, 2, 3, roiBox{EndX: 2, EndY: 2}, 2, 2)
	assert.Equal(t, data, out)
}

func TestCropAndResize_SubregionCrop(t *testing.T) {
	t.Parallel()

	// 4x4 single-channel gradient by row
	data := make([]float32, 16)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			data[y*4+x] = float32(y * 10)
		}
	}

	out := cropAndResize(data, 4, 4, 1, roiBox{StartX: 1, StartY: 1, EndX: 3, EndY: 3}, 2, 2)
	require.Len(t, out, 4)
	assert.InDelta(t, 10, out[0], 1e-5)
	assert.InDelta(t, 10, out[1], 1e-5)
	assert.InDelta(t, 20, out[2], 1e-5)
	assert.InDelta(t, 20, out[3], 1e-5)
}

func TestCropAndResize_Interpolates(t *testing.T) {
	t.Parallel()

	// 1x2 image upsampled to 1x3: middle sample lands halfway
	data := []float32{0, 10}
	out := cropAndResize(data, 2, 1, 1, roiBox{EndX: 2, EndY: 1}, 3, 1)
	require.Len(t, out, 3)
	assert.InDelta(t, 0, out[0], 1e-5)
	assert.InDelta(t, 5, out[1], 1e-5)
	assert.InDelta(t, 10, out[2], 1e-5)
}

func TestCropAndResize_ClampsOutOfBounds(t *testing.T) {
	t.Parallel()

	data := []float32{1, 2, 3, 4}
	out := cropAndResize(data, 2, 2, 1, roiBox{StartX: -5, StartY: -5, EndX: 7, EndY: 7}, 2, 2)
	require.Len(t, out, 4)
	for _, v := range out {
		assert.GreaterOrEqual(t, v, float32(1))
		assert.LessOrEqual(t, v, float32(4))
	}
}
