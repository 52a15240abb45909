package pipeline

import (
	"context"
	"fmt"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/dudu/facemesh/internal/inference"
)

// meshLandmarks is the number of points in the dense landmark output.
const meshLandmarks = 468

// MeshRegressor runs the dense face landmark model on a cropped face.
type MeshRegressor struct {
	session *inference.Session
	width   int
	height  int
}

// NewMeshRegressor creates the landmark regressor from an ONNX model.
// width and height are the crop resolution the model expects.
func NewMeshRegressor(modelPath string, width, height int) (*MeshRegressor, error) {
	inputNames := []string{"input_1"}
	outputNames := []string{"conv2d_21", "conv2d_31"}

	session, err := inference.NewSession(modelPath, inputNames, outputNames)
	if err != nil {
		return nil, fmt.Errorf("failed to create mesh session: %w", err)
	}

	return &MeshRegressor{
		session: session,
		width:   width,
		height:  height,
	}, nil
}

// Predict regresses landmarks for one face crop. crop is an HWC float
// patch of the regressor's resolution with values in [0, 255]. It
// returns the face-presence confidence and crop-space x,y coordinate
// pairs for all landmarks.
func (m *MeshRegressor) Predict(ctx context.Context, crop []float32) (float32, []float32, error) {
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}

	normalized := make([]float32, len(crop))
	for i, v := range crop {
		normalized[i] = v / 255
	}

	inputTensor, err := inference.CreateTensor(
		[]int64{1, int64(m.height), int64(m.width), 3}, normalized)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	// The model emits x,y,z per landmark; z is dropped below
	coords, err := inference.CreateEmptyTensor[float32]([]int64{1, meshLandmarks * 3})
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create coords tensor: %w", err)
	}
	defer coords.Destroy()

	flag, err := inference.CreateEmptyTensor[float32]([]int64{1, 1})
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create flag tensor: %w", err)
	}
	defer flag.Destroy()

	err = m.session.Run([]ort.Value{inputTensor}, []ort.Value{coords, flag})
	if err != nil {
		return 0, nil, fmt.Errorf("mesh inference failed: %w", err)
	}

	raw := coords.GetData()
	pairs := make([]float32, meshLandmarks*2)
	for i := 0; i < meshLandmarks; i++ {
		pairs[i*2] = raw[i*3]
		pairs[i*2+1] = raw[i*3+1]
	}

	return flag.GetData()[0], pairs, nil
}

// Close releases regressor resources
func (m *MeshRegressor) Close() error {
	return m.session.Destroy()
}
