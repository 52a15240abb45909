package facemesh

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dudu/facemesh/internal/pipeline"
)

func TestEstimateFaces_NilOnEmpty(t *testing.T) {
	t.Parallel()

	estimator := newTestEstimator(&fakePredictor{}, &fakeAllocator{})

	faces, err := estimator.EstimateFaces(context.Background(), testInput(), EstimateOptions{})
	require.NoError(t, err)
	assert.Nil(t, faces, "no predictions must yield a nil slice, not an empty one")
}

func TestEstimateFaces_PredictErrorPropagates(t *testing.T) {
	t.Parallel()

	alloc := &fakeAllocator{}
	estimator := newTestEstimator(&fakePredictor{err: errors.New("model exploded")}, alloc)

	_, err := estimator.EstimateFaces(context.Background(), testInput(), EstimateOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model exploded")

	// The batched input copy must not leak on the failure path
	require.Len(t, alloc.allocated, 1)
	assert.True(t, alloc.allocated[0].released)
}

func TestEstimateFaces_ConfidenceGating(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		confidence  float32
		wantCleared int
	}{
		{"below threshold clears", 0.89, 1},
		{"at threshold keeps", 0.90, 0},
		{"above threshold keeps", 0.91, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			pred := &fakePredictor{predictions: []pipeline.Prediction{testPrediction(tt.confidence)}}
			estimator := newTestEstimator(pred, &fakeAllocator{})

			_, err := estimator.EstimateFaces(context.Background(), testInput(), EstimateOptions{})
			require.NoError(t, err)
			assert.Equal(t, tt.wantCleared, pred.cleared)
		})
	}
}

func TestEstimateFaces_AnnotationCompleteness(t *testing.T) {
	t.Parallel()

	pred := &fakePredictor{predictions: []pipeline.Prediction{testPrediction(0.95)}}
	estimator := newTestEstimator(pred, &fakeAllocator{})

	faces, err := estimator.EstimateFaces(context.Background(), testInput(), EstimateOptions{})
	require.NoError(t, err)
	require.Len(t, faces, 1)

	mesh, ok := faces[0].Geometry.(*MeshArrays)
	require.True(t, ok)

	for _, group := range Annotations() {
		points, present := mesh.Annotations[group.Name]
		require.True(t, present, "missing annotation group %q", group.Name)
		assert.Len(t, points, len(group.Indices), "group %q", group.Name)
		for i, idx := range group.Indices {
			assert.Equal(t, mesh.ScaledMesh[idx], points[i])
		}
	}
}

func TestEstimateFaces_RawBuffers(t *testing.T) {
	t.Parallel()

	t.Run("omits annotations and transfers ownership", func(t *testing.T) {
		t.Parallel()
		p := testPrediction(0.95)
		pred := &fakePredictor{predictions: []pipeline.Prediction{p}}
		estimator := newTestEstimator(pred, &fakeAllocator{})

		faces, err := estimator.EstimateFaces(context.Background(), testInput(),
			EstimateOptions{ReturnRawBuffers: true})
		require.NoError(t, err)
		require.Len(t, faces, 1)

		geometry, ok := faces[0].Geometry.(*MeshBuffers)
		require.True(t, ok, "raw results must carry buffer geometry")

		// The confidence buffer is consumed; the rest stay live for the caller
		assert.True(t, p.Confidence.(*fakeBuffer).released)
		for _, b := range predictionBuffers(p)[1:] {
			assert.False(t, b.released, "caller-owned buffer released by estimator")
		}

		geometry.Release()
		for _, b := range predictionBuffers(p)[1:] {
			assert.True(t, b.released)
		}
	})

	t.Run("flip preserves buffer typing", func(t *testing.T) {
		t.Parallel()
		p := testPrediction(0.95)
		pred := &fakePredictor{predictions: []pipeline.Prediction{p}}
		alloc := &fakeAllocator{}
		estimator := newTestEstimator(pred, alloc)

		faces, err := estimator.EstimateFaces(context.Background(), testInput(),
			EstimateOptions{ReturnRawBuffers: true, FlipHorizontal: true})
		require.NoError(t, err)

		geometry, ok := faces[0].Geometry.(*MeshBuffers)
		require.True(t, ok)

		// Flip rebuilds each buffer; the originals must have been released
		for _, b := range predictionBuffers(p)[1:] {
			assert.True(t, b.released)
		}

		start, err := geometry.BoxStart.Read(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []float32{99 - 5, 5}, start)

		geometry.Release()
	})
}

func TestEstimateFaces_OrderPreservation(t *testing.T) {
	t.Parallel()

	for _, k := range []int{0, 1, 3} {
		predictions := make([]pipeline.Prediction, k)
		confidences := make([]float32, k)
		for i := range predictions {
			confidences[i] = 0.91 + float32(i)/100
			predictions[i] = testPrediction(confidences[i])
		}
		pred := &fakePredictor{predictions: predictions}
		estimator := newTestEstimator(pred, &fakeAllocator{})

		faces, err := estimator.EstimateFaces(context.Background(), testInput(), EstimateOptions{})
		require.NoError(t, err)

		if k == 0 {
			assert.Nil(t, faces)
			continue
		}
		require.Len(t, faces, k)
		for i := range faces {
			assert.Equal(t, confidences[i], faces[i].Confidence, "face %d out of order", i)
		}
	}
}

func TestEstimateFaces_ReleasesSiblingsOnReadError(t *testing.T) {
	t.Parallel()

	p := testPrediction(0.95)
	p.ScaledMesh.(*fakeBuffer).readErr = errors.New("read blew up")
	pred := &fakePredictor{predictions: []pipeline.Prediction{p}}
	estimator := newTestEstimator(pred, &fakeAllocator{})

	_, err := estimator.EstimateFaces(context.Background(), testInput(), EstimateOptions{})
	require.Error(t, err)

	for _, b := range predictionBuffers(p) {
		assert.True(t, b.released, "sibling buffer leaked after failed read")
	}
}

func TestEstimateFaces_EndToEnd(t *testing.T) {
	t.Parallel()

	pred := &fakePredictor{predictions: []pipeline.Prediction{testPrediction(0.95)}}
	estimator := newTestEstimator(pred, &fakeAllocator{})

	faces, err := estimator.EstimateFaces(context.Background(), testInput(), EstimateOptions{})
	require.NoError(t, err)
	require.Len(t, faces, 1)

	assert.InDelta(t, 0.95, faces[0].Confidence, 1e-6)

	mesh := faces[0].Geometry.(*MeshArrays)
	assert.Equal(t, Point{X: 5, Y: 5}, mesh.Box.TopLeft)
	assert.Equal(t, Point{X: 25, Y: 25}, mesh.Box.BottomRight)
	assert.NotEmpty(t, mesh.Annotations)
	assert.Equal(t, 0, pred.cleared, "high confidence must not invalidate tracking")
}

func TestEstimateFaces_InputHandling(t *testing.T) {
	t.Parallel()

	t.Run("empty input fails", func(t *testing.T) {
		t.Parallel()
		estimator := newTestEstimator(&fakePredictor{}, &fakeAllocator{})
		_, err := estimator.EstimateFaces(context.Background(), Input{}, EstimateOptions{})
		assert.Error(t, err)
	})

	t.Run("unbatched tensor gains a batch dimension", func(t *testing.T) {
		t.Parallel()
		alloc := &fakeAllocator{}
		estimator := newTestEstimator(&fakePredictor{}, alloc)

		input := Input{Tensor: &fakeBuffer{
			shape: []int64{100, 80, 3},
			data:  make([]float32, 100*80*3),
		}}
		_, err := estimator.EstimateFaces(context.Background(), input, EstimateOptions{})
		require.NoError(t, err)

		require.Len(t, alloc.allocated, 1)
		assert.Equal(t, []int64{1, 100, 80, 3}, alloc.allocated[0].shape)
		assert.True(t, alloc.allocated[0].released, "batched copy must be released")
		assert.False(t, input.Tensor.(*fakeBuffer).released, "caller's tensor must stay live")
	})
}
