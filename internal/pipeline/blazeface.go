package pipeline

import (
	"context"
	"fmt"
	"math"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/dudu/facemesh/internal/inference"
)

// detectorInputSize is the BlazeFace model input resolution.
const detectorInputSize = 128

// numAnchors is the total anchor count over both feature strides:
// 16x16 grid with 2 anchors plus 8x8 grid with 6 anchors.
const numAnchors = 896

// Detection is one coarse face proposal in image pixel space.
type Detection struct {
	Box   roiBox
	Score float32
}

// Detector runs the BlazeFace single-shot face detector.
type Detector struct {
	session        *inference.Session
	anchors        []anchor
	maxFaces       int
	iouThreshold   float32
	scoreThreshold float32
}

type anchor struct {
	X, Y float32
}

// NewDetector creates a BlazeFace detector from an ONNX model.
func NewDetector(modelPath string, maxFaces int, iouThreshold, scoreThreshold float32) (*Detector, error) {
	inputNames := []string{"input"}
	outputNames := []string{"regressors", "classificators"}

	session, err := inference.NewSession(modelPath, inputNames, outputNames)
	if err != nil {
		return nil, fmt.Errorf("failed to create detector session: %w", err)
	}

	return &Detector{
		session:        session,
		anchors:        generateAnchors([]int{8, 16}, []int{2, 6}),
		maxFaces:       maxFaces,
		iouThreshold:   iouThreshold,
		scoreThreshold: scoreThreshold,
	}, nil
}

// generateAnchors places anchor centers on the feature grid of each
// stride, anchorCounts[i] anchors per cell.
func generateAnchors(strides, anchorCounts []int) []anchor {
	var anchors []anchor
	for i, stride := range strides {
		gridSize := detectorInputSize / stride
		for y := 0; y < gridSize; y++ {
			cy := (float32(y) + 0.5) * float32(stride)
			for x := 0; x < gridSize; x++ {
				cx := (float32(x) + 0.5) * float32(stride)
				for a := 0; a < anchorCounts[i]; a++ {
					anchors = append(anchors, anchor{X: cx, Y: cy})
				}
			}
		}
	}
	return anchors
}

// Detect finds faces in an HWC float image held as a flat slice.
func (d *Detector) Detect(ctx context.Context, data []float32, width, height int) ([]Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Resize to the model resolution and normalize to [-1, 1]
	resized := cropAndResize(data, width, height, 3,
		roiBox{EndX: float32(width), EndY: float32(height)},
		detectorInputSize, detectorInputSize)
	for i := range resized {
		resized[i] = resized[i]/127.5 - 1
	}

	inputTensor, err := inference.CreateTensor(
		[]int64{1, detectorInputSize, detectorInputSize, 3}, resized)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	regressors, err := inference.CreateEmptyTensor[float32]([]int64{1, numAnchors, 16})
	if err != nil {
		return nil, fmt.Errorf("failed to create regressor tensor: %w", err)
	}
	defer regressors.Destroy()

	scores, err := inference.CreateEmptyTensor[float32]([]int64{1, numAnchors, 1})
	if err != nil {
		return nil, fmt.Errorf("failed to create score tensor: %w", err)
	}
	defer scores.Destroy()

	err = d.session.Run([]ort.Value{inputTensor}, []ort.Value{regressors, scores})
	if err != nil {
		return nil, fmt.Errorf("detector inference failed: %w", err)
	}

	detections := decodeDetections(
		regressors.GetData(), scores.GetData(), d.anchors,
		d.scoreThreshold, width, height)
	detections = nonMaxSuppression(detections, d.iouThreshold)

	if len(detections) > d.maxFaces {
		detections = detections[:d.maxFaces]
	}
	return detections, nil
}

// decodeDetections turns raw anchor regressions into pixel-space boxes.
// Regression layout per anchor: center dx, dy, box w, h, then keypoint
// offsets (unused here); all in model input units.
func decodeDetections(regressors, rawScores []float32, anchors []anchor, scoreThreshold float32, origWidth, origHeight int) []Detection {
	scaleX := float32(origWidth) / detectorInputSize
	scaleY := float32(origHeight) / detectorInputSize

	var detections []Detection
	for i, a := range anchors {
		score := sigmoid(rawScores[i])
		if score < scoreThreshold {
			continue
		}

		reg := regressors[i*16:]
		cx := reg[0] + a.X
		cy := reg[1] + a.Y
		halfW := reg[2] / 2
		halfH := reg[3] / 2

		detections = append(detections, Detection{
			Box: roiBox{
				StartX: (cx - halfW) * scaleX,
				StartY: (cy - halfH) * scaleY,
				EndX:   (cx + halfW) * scaleX,
				EndY:   (cy + halfH) * scaleY,
			},
			Score: score,
		})
	}
	return detections
}

// Close releases detector resources
func (d *Detector) Close() error {
	return d.session.Destroy()
}

func sigmoid(x float32) float32 {
	return 1.0 / (1.0 + float32(math.Exp(float64(-x))))
}
