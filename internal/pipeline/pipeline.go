package pipeline

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/dudu/facemesh/internal/inference"
)

// roiExpansion pads each tracked region around the face so the mesh
// crop keeps the full head in frame.
const roiExpansion = 1.5

// Prediction carries one face's outputs as live runtime buffers. The
// caller takes ownership of all five buffers.
type Prediction struct {
	Confidence inference.Buffer // [1] face-presence score
	Mesh       inference.Buffer // [468,2] crop-space coordinates
	ScaledMesh inference.Buffer // [468,2] image-space coordinates
	BoxStart   inference.Buffer // [2] ROI top-left corner
	BoxEnd     inference.Buffer // [2] ROI bottom-right corner
}

// release frees every buffer of a prediction, tolerating nil fields
// from a partially-built one.
func (p Prediction) release() {
	for _, b := range []inference.Buffer{p.Confidence, p.Mesh, p.ScaledMesh, p.BoxStart, p.BoxEnd} {
		if b != nil {
			b.Release()
		}
	}
}

// Config holds pipeline configuration
type Config struct {
	MeshWidth           int
	MeshHeight          int
	MaxContinuousChecks int
	MaxFaces            int
	IouThreshold        float32
	ScoreThreshold      float32
}

// Pipeline chains the coarse detector and the mesh regressor, tracking
// face regions across calls so the detector only re-runs when needed.
type Pipeline struct {
	detector *Detector
	mesh     *MeshRegressor
	alloc    inference.Allocator
	config   Config
	log      *logrus.Entry

	rois                []roiBox
	runsWithoutDetector int
}

// New creates a pipeline from loaded models.
func New(detector *Detector, mesh *MeshRegressor, alloc inference.Allocator, config Config, log *logrus.Entry) *Pipeline {
	return &Pipeline{
		detector: detector,
		mesh:     mesh,
		alloc:    alloc,
		config:   config,
		log:      log,
	}
}

// Predict runs estimation over a batched NHWC float image buffer and
// returns one Prediction per tracked face. A nil slice means no faces.
func (p *Pipeline) Predict(ctx context.Context, input inference.Buffer) ([]Prediction, error) {
	shape := input.Shape()
	if len(shape) < 3 {
		return nil, fmt.Errorf("input must be HWC or NHWC, got shape %v", shape)
	}
	height := int(shape[len(shape)-3])
	width := int(shape[len(shape)-2])
	channels := int(shape[len(shape)-1])

	data, err := input.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}

	if p.shouldRefreshROIs() {
		detections, err := p.detector.Detect(ctx, data, width, height)
		if err != nil {
			return nil, fmt.Errorf("face detection failed: %w", err)
		}
		p.rois = p.rois[:0]
		for _, det := range detections {
			p.rois = append(p.rois, enlarge(squarify(det.Box), roiExpansion))
		}
		p.runsWithoutDetector = 0
		p.log.WithField("faces", len(p.rois)).Debug("refreshed tracked regions")
	} else {
		p.runsWithoutDetector++
	}

	if len(p.rois) == 0 {
		return nil, nil
	}

	predictions := make([]Prediction, 0, len(p.rois))
	for i, roi := range p.rois {
		crop := cropAndResize(data, width, height, channels, roi,
			p.config.MeshWidth, p.config.MeshHeight)

		flag, coords, err := p.mesh.Predict(ctx, crop)
		if err != nil {
			releasePredictions(predictions)
			return nil, fmt.Errorf("landmark regression failed: %w", err)
		}

		scaled := p.scaleToImage(coords, roi)

		// Track the next region from where the landmarks actually are
		p.rois[i] = enlarge(squarify(boundingBoxOf(scaled)), roiExpansion)

		pred, err := p.buildPrediction(flag, coords, scaled, roi)
		if err != nil {
			releasePredictions(predictions)
			return nil, err
		}
		predictions = append(predictions, pred)
	}

	return predictions, nil
}

// ClearTrackedROIs drops all tracked regions so the next Predict call
// runs a fresh detection pass. Idempotent.
func (p *Pipeline) ClearTrackedROIs() {
	p.rois = nil
	p.runsWithoutDetector = 0
}

func (p *Pipeline) shouldRefreshROIs() bool {
	return len(p.rois) == 0 || p.runsWithoutDetector >= p.config.MaxContinuousChecks
}

// scaleToImage maps crop-space coordinate pairs into image pixel space.
func (p *Pipeline) scaleToImage(coords []float32, roi roiBox) []float32 {
	scaleX := roi.Width() / float32(p.config.MeshWidth)
	scaleY := roi.Height() / float32(p.config.MeshHeight)

	scaled := make([]float32, len(coords))
	for i := 0; i+1 < len(coords); i += 2 {
		scaled[i] = coords[i]*scaleX + roi.StartX
		scaled[i+1] = coords[i+1]*scaleY + roi.StartY
	}
	return scaled
}

func (p *Pipeline) buildPrediction(flag float32, coords, scaled []float32, roi roiBox) (Prediction, error) {
	var pred Prediction
	var err error

	n := int64(len(coords) / 2)
	for _, field := range []struct {
		dst   *inference.Buffer
		shape []int64
		data  []float32
	}{
		{&pred.Confidence, []int64{1}, []float32{flag}},
		{&pred.Mesh, []int64{n, 2}, coords},
		{&pred.ScaledMesh, []int64{n, 2}, scaled},
		{&pred.BoxStart, []int64{2}, []float32{roi.StartX, roi.StartY}},
		{&pred.BoxEnd, []int64{2}, []float32{roi.EndX, roi.EndY}},
	} {
		*field.dst, err = p.alloc.NewBuffer(field.shape, field.data)
		if err != nil {
			pred.release()
			return Prediction{}, fmt.Errorf("failed to build prediction: %w", err)
		}
	}
	return pred, nil
}

func releasePredictions(predictions []Prediction) {
	for _, pred := range predictions {
		pred.release()
	}
}

// Close releases pipeline resources
func (p *Pipeline) Close() error {
	var errs []error

	if p.detector != nil {
		if err := p.detector.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if p.mesh != nil {
		if err := p.mesh.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("cleanup errors: %v", errs)
	}
	return nil
}
