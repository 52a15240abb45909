package facemesh

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Config holds estimator configuration. Zero-valued tunables take their
// defaults; model paths are required.
type Config struct {
	// DetectorModelPath is the coarse face detector ONNX model.
	DetectorModelPath string `validate:"required"`

	// MeshModelPath is the dense landmark regression ONNX model.
	MeshModelPath string `validate:"required"`

	// MeshWidth and MeshHeight are the crop resize target for the mesh
	// model (default 128x128). Forwarded to the pipeline.
	MeshWidth  int `validate:"gte=0"`
	MeshHeight int `validate:"gte=0"`

	// MaxContinuousChecks is how many predict calls may reuse tracked
	// ROIs before a fresh detection pass is forced (default 5).
	MaxContinuousChecks int `validate:"gte=0"`

	// DetectionConfidence is the per-face confidence below which the
	// tracked ROI state is invalidated (default 0.9).
	DetectionConfidence float32 `validate:"gte=0,lte=1"`

	// MaxFaces caps the number of detected faces (default 10).
	MaxFaces int `validate:"gte=0"`

	// IouThreshold is the detector NMS threshold (default 0.3).
	IouThreshold float32 `validate:"gte=0,lte=1"`

	// ScoreThreshold is the detector score cutoff (default 0.75).
	ScoreThreshold float32 `validate:"gte=0,lte=1"`
}

const (
	defaultMeshWidth           = 128
	defaultMeshHeight          = 128
	defaultMaxContinuousChecks = 5
	defaultDetectionConfidence = 0.9
	defaultMaxFaces            = 10
	defaultIouThreshold        = 0.3
	defaultScoreThreshold      = 0.75
)

// withDefaults returns a copy with zero-valued tunables filled in.
func (c Config) withDefaults() Config {
	if c.MeshWidth == 0 {
		c.MeshWidth = defaultMeshWidth
	}
	if c.MeshHeight == 0 {
		c.MeshHeight = defaultMeshHeight
	}
	if c.MaxContinuousChecks == 0 {
		c.MaxContinuousChecks = defaultMaxContinuousChecks
	}
	if c.DetectionConfidence == 0 {
		c.DetectionConfidence = defaultDetectionConfidence
	}
	if c.MaxFaces == 0 {
		c.MaxFaces = defaultMaxFaces
	}
	if c.IouThreshold == 0 {
		c.IouThreshold = defaultIouThreshold
	}
	if c.ScoreThreshold == 0 {
		c.ScoreThreshold = defaultScoreThreshold
	}
	return c
}

// Validate checks the configuration after defaults are applied.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
