package facemesh

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/dudu/facemesh/internal/inference"
	"github.com/dudu/facemesh/internal/pipeline"
)

// fakeBuffer is an in-memory inference.Buffer that records releases.
type fakeBuffer struct {
	shape    []int64
	data     []float32
	released bool
	readErr  error
}

func (b *fakeBuffer) Shape() []int64 { return b.shape }

func (b *fakeBuffer) Read(_ context.Context) ([]float32, error) {
	if b.readErr != nil {
		return nil, b.readErr
	}
	out := make([]float32, len(b.data))
	copy(out, b.data)
	return out, nil
}

func (b *fakeBuffer) Release() { b.released = true }

// fakeAllocator hands out fakeBuffers and remembers them so tests can
// check what was released.
type fakeAllocator struct {
	allocated []*fakeBuffer
	err       error
}

func (a *fakeAllocator) NewBuffer(shape []int64, data []float32) (inference.Buffer, error) {
	if a.err != nil {
		return nil, a.err
	}
	b := &fakeBuffer{shape: shape, data: append([]float32(nil), data...)}
	a.allocated = append(a.allocated, b)
	return b, nil
}

// fakePredictor stands in for the pipeline.
type fakePredictor struct {
	predictions []pipeline.Prediction
	err         error
	cleared     int
}

func (f *fakePredictor) Predict(_ context.Context, _ inference.Buffer) ([]pipeline.Prediction, error) {
	return f.predictions, f.err
}

func (f *fakePredictor) ClearTrackedROIs() { f.cleared++ }

func (f *fakePredictor) Close() error { return nil }

func newTestEstimator(pred predictor, alloc inference.Allocator) *Estimator {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return &Estimator{
		pipe:                pred,
		alloc:               alloc,
		detectionConfidence: 0.9,
		log:                 logrus.NewEntry(logger),
	}
}

// pointBuffer builds a fake [n,2] buffer from interleaved coordinates.
func pointBuffer(coords []float32) *fakeBuffer {
	return &fakeBuffer{shape: []int64{int64(len(coords) / 2), 2}, data: coords}
}

// testPrediction builds one fake prediction with a full 468-point mesh.
// Mesh points are (10,10); the scaled mesh walks from (10,10) towards
// (20,20) so annotation groups get distinguishable values.
func testPrediction(confidence float32) pipeline.Prediction {
	mesh := make([]float32, NumLandmarks*2)
	scaled := make([]float32, NumLandmarks*2)
	for i := 0; i < NumLandmarks; i++ {
		mesh[i*2] = 10
		mesh[i*2+1] = 10
		scaled[i*2] = 10 + float32(i%11)
		scaled[i*2+1] = 10 + float32(i%11)
	}
	return pipeline.Prediction{
		Confidence: &fakeBuffer{shape: []int64{1}, data: []float32{confidence}},
		Mesh:       pointBuffer(mesh),
		ScaledMesh: pointBuffer(scaled),
		BoxStart:   &fakeBuffer{shape: []int64{2}, data: []float32{5, 5}},
		BoxEnd:     &fakeBuffer{shape: []int64{2}, data: []float32{25, 25}},
	}
}

// testInput is a 100x100 RGB tensor input.
func testInput() Input {
	return Input{Tensor: &fakeBuffer{
		shape: []int64{1, 100, 100, 3},
		data:  make([]float32, 100*100*3),
	}}
}

func predictionBuffers(p pipeline.Prediction) []*fakeBuffer {
	return []*fakeBuffer{
		p.Confidence.(*fakeBuffer),
		p.Mesh.(*fakeBuffer),
		p.ScaledMesh.(*fakeBuffer),
		p.BoxStart.(*fakeBuffer),
		p.BoxEnd.(*fakeBuffer),
	}
}
