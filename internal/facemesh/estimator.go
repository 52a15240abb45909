package facemesh

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/dudu/facemesh/internal/inference"
	"github.com/dudu/facemesh/internal/pipeline"
)

// predictor is the slice of the pipeline the estimator drives.
type predictor interface {
	Predict(ctx context.Context, input inference.Buffer) ([]pipeline.Prediction, error)
	ClearTrackedROIs()
	Close() error
}

// Estimator turns pipeline predictions into annotated per-face results,
// applying confidence-gated region invalidation, optional mirroring,
// and strict buffer lifecycle along the way.
type Estimator struct {
	pipe                predictor
	alloc               inference.Allocator
	detectionConfidence float32
	log                 *logrus.Entry
}

// Load initializes the runtime, loads both models concurrently, and
// returns a ready estimator. Both model loads must succeed.
func Load(ctx context.Context, config Config) (*Estimator, error) {
	config = config.withDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if err := inference.Initialize(); err != nil {
		return nil, err
	}

	log := logrus.WithField("component", "facemesh")

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		detector *pipeline.Detector
		mesh     *pipeline.MeshRegressor
		g        errgroup.Group
	)
	g.Go(func() error {
		var err error
		detector, err = pipeline.NewDetector(
			config.DetectorModelPath, config.MaxFaces,
			config.IouThreshold, config.ScoreThreshold)
		if err != nil {
			return fmt.Errorf("failed to load detector: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		mesh, err = pipeline.NewMeshRegressor(
			config.MeshModelPath, config.MeshWidth, config.MeshHeight)
		if err != nil {
			return fmt.Errorf("failed to load mesh model: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		if detector != nil {
			detector.Close()
		}
		if mesh != nil {
			mesh.Close()
		}
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"detector": config.DetectorModelPath,
		"mesh":     config.MeshModelPath,
	}).Info("models loaded")

	pipe := pipeline.New(detector, mesh, inference.TensorAllocator{}, pipeline.Config{
		MeshWidth:           config.MeshWidth,
		MeshHeight:          config.MeshHeight,
		MaxContinuousChecks: config.MaxContinuousChecks,
		MaxFaces:            config.MaxFaces,
		IouThreshold:        config.IouThreshold,
		ScoreThreshold:      config.ScoreThreshold,
	}, log)

	return &Estimator{
		pipe:                pipe,
		alloc:               inference.TensorAllocator{},
		detectionConfidence: config.DetectionConfidence,
		log:                 log,
	}, nil
}

// EstimateFaces estimates landmarks for every face in the input and
// returns one Face per detection, in pipeline order. A nil slice (with
// nil error) means the pipeline produced no predictions at all.
//
// With Options.ReturnRawBuffers the caller owns the buffers inside every
// returned MeshBuffers geometry and must Release them.
func (e *Estimator) EstimateFaces(ctx context.Context, input Input, opts EstimateOptions) ([]Face, error) {
	sc := &scope{}
	defer sc.release()

	width, batched, err := e.normalizeInput(ctx, sc, input)
	if err != nil {
		return nil, err
	}

	predictions, err := e.pipe.Predict(ctx, batched)
	if err != nil {
		return nil, fmt.Errorf("predict failed: %w", err)
	}
	if len(predictions) == 0 {
		return nil, nil
	}

	faces := make([]Face, 0, len(predictions))
	for _, pred := range predictions {
		face, err := e.assembleFace(ctx, sc, pred, width, opts)
		if err != nil {
			releaseRawFaces(faces)
			return nil, err
		}
		faces = append(faces, face)
	}

	e.log.WithField("faces", len(faces)).Debug("estimation complete")
	return faces, nil
}

// assembleFace shapes one prediction into a Face. All prediction
// buffers are tracked in the call scope up front so a failure anywhere
// still releases the siblings.
func (e *Estimator) assembleFace(ctx context.Context, sc *scope, pred pipeline.Prediction, width int, opts EstimateOptions) (Face, error) {
	sc.track(pred.Confidence)
	sc.track(pred.Mesh)
	sc.track(pred.ScaledMesh)
	sc.track(pred.BoxStart)
	sc.track(pred.BoxEnd)

	confData, err := pred.Confidence.Read(ctx)
	if err != nil {
		return Face{}, fmt.Errorf("failed to read confidence: %w", err)
	}
	sc.releaseNow(pred.Confidence)
	confidence := confData[0]

	// A low score means the tracked region went stale; drop the whole
	// tracking state so the next call re-runs detection.
	if confidence < e.detectionConfidence {
		e.pipe.ClearTrackedROIs()
		e.log.WithField("confidence", confidence).Debug("cleared tracked regions")
	}

	if opts.ReturnRawBuffers {
		sc.transfer(pred.Mesh)
		sc.transfer(pred.ScaledMesh)
		sc.transfer(pred.BoxStart)
		sc.transfer(pred.BoxEnd)
		geometry := &MeshBuffers{
			BoxStart:   pred.BoxStart,
			BoxEnd:     pred.BoxEnd,
			Mesh:       pred.Mesh,
			ScaledMesh: pred.ScaledMesh,
			alloc:      e.alloc,
		}
		if opts.FlipHorizontal {
			if err := flipHorizontal(ctx, geometry, width); err != nil {
				geometry.Release()
				return Face{}, err
			}
		}
		return Face{Confidence: confidence, Geometry: geometry}, nil
	}

	scaledData, err := pred.ScaledMesh.Read(ctx)
	if err != nil {
		return Face{}, fmt.Errorf("failed to read scaled mesh: %w", err)
	}
	meshData, err := pred.Mesh.Read(ctx)
	if err != nil {
		return Face{}, fmt.Errorf("failed to read mesh: %w", err)
	}
	startData, err := pred.BoxStart.Read(ctx)
	if err != nil {
		return Face{}, fmt.Errorf("failed to read box start: %w", err)
	}
	endData, err := pred.BoxEnd.Read(ctx)
	if err != nil {
		return Face{}, fmt.Errorf("failed to read box end: %w", err)
	}
	sc.releaseNow(pred.ScaledMesh)
	sc.releaseNow(pred.Mesh)
	sc.releaseNow(pred.BoxStart)
	sc.releaseNow(pred.BoxEnd)

	geometry := &MeshArrays{
		Box: BoundingBox{
			TopLeft:     Point{X: startData[0], Y: startData[1]},
			BottomRight: Point{X: endData[0], Y: endData[1]},
		},
		Mesh:       pointsFromFlat(meshData),
		ScaledMesh: pointsFromFlat(scaledData),
	}
	if opts.FlipHorizontal {
		if err := flipHorizontal(ctx, geometry, width); err != nil {
			return Face{}, err
		}
	}
	geometry.Annotations = annotate(geometry.ScaledMesh)

	return Face{Confidence: confidence, Geometry: geometry}, nil
}

// normalizeInput converts the input into a batched float NHWC buffer
// owned by the call scope, and reports the image width for flip math.
// Width comes from the shape for tensor inputs and from the pixel
// bounds for image inputs; the two layouts differ and are not unified.
func (e *Estimator) normalizeInput(ctx context.Context, sc *scope, input Input) (int, inference.Buffer, error) {
	switch {
	case input.Tensor != nil:
		shape := input.Tensor.Shape()
		if len(shape) < 3 {
			return 0, nil, fmt.Errorf("tensor input must be HWC or NHWC, got shape %v", shape)
		}
		width := int(shape[len(shape)-2])

		// Copy rather than alias so the caller's buffer stays theirs
		data, err := input.Tensor.Read(ctx)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to read input tensor: %w", err)
		}
		batched := shape
		if len(shape) == 3 {
			batched = append([]int64{1}, shape...)
		}
		buf, err := e.alloc.NewBuffer(batched, data)
		if err != nil {
			return 0, nil, err
		}
		sc.track(buf)
		return width, buf, nil

	case input.Image != nil:
		bounds := input.Image.Bounds()
		width, height := bounds.Dx(), bounds.Dy()

		data := make([]float32, height*width*3)
		i := 0
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				r, g, b, _ := input.Image.At(x, y).RGBA()
				data[i] = float32(r >> 8)
				data[i+1] = float32(g >> 8)
				data[i+2] = float32(b >> 8)
				i += 3
			}
		}
		buf, err := e.alloc.NewBuffer([]int64{1, int64(height), int64(width), 3}, data)
		if err != nil {
			return 0, nil, err
		}
		sc.track(buf)
		return width, buf, nil

	default:
		return 0, nil, errors.New("estimate input has neither image nor tensor")
	}
}

// releaseRawFaces frees raw geometries already handed out of the scope
// when a later face in the same batch fails.
func releaseRawFaces(faces []Face) {
	for _, face := range faces {
		if geometry, ok := face.Geometry.(*MeshBuffers); ok {
			geometry.Release()
		}
	}
}

// Close releases the pipeline and shuts the runtime down.
func (e *Estimator) Close() error {
	var errs []error

	if err := e.pipe.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := inference.Shutdown(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("cleanup errors: %v", errs)
	}
	return nil
}
