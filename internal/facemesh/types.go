package facemesh

import (
	"context"
	"image"

	"github.com/dudu/facemesh/internal/inference"
)

// NumLandmarks is the number of points in the dense face mesh.
const NumLandmarks = 468

// Point represents a 2D point
type Point struct {
	X, Y float32
}

// BoundingBox represents a face bounding box by its labeled corners.
// After a horizontal flip the labels keep their per-corner mapping, so
// TopLeft may end up with the larger x; callers index by label, not by
// geometric extent.
type BoundingBox struct {
	TopLeft     Point
	BottomRight Point
}

// Width returns box width
func (b BoundingBox) Width() float32 {
	return b.BottomRight.X - b.TopLeft.X
}

// Height returns box height
func (b BoundingBox) Height() float32 {
	return b.BottomRight.Y - b.TopLeft.Y
}

// Input is the image source for an estimation call. Exactly one field is
// set: Image for a decoded pixel source, Tensor for a pre-built float
// buffer in HWC or NHWC layout.
type Input struct {
	Image  image.Image
	Tensor inference.Buffer
}

// EstimateOptions controls the output shape of one estimation call.
type EstimateOptions struct {
	// ReturnRawBuffers keeps the per-face geometry as live runtime
	// buffers instead of materialized point slices. Ownership of the
	// returned buffers transfers to the caller.
	ReturnRawBuffers bool

	// FlipHorizontal mirrors all spatial outputs about the image's
	// vertical centerline.
	FlipHorizontal bool
}

// Face is one estimated face.
type Face struct {
	Confidence float32
	Geometry   Geometry
}

// Geometry carries the spatial fields of one face, either materialized
// to plain points (*MeshArrays) or kept as live runtime buffers
// (*MeshBuffers). The variant is selected once per call.
type Geometry interface {
	// mapX replaces every x coordinate by fn(x), preserving the storage
	// kind. Unexported to keep the variant set closed.
	mapX(ctx context.Context, fn func(float32) float32) error
}

// MeshArrays is the materialized geometry variant.
type MeshArrays struct {
	Box        BoundingBox
	Mesh       []Point
	ScaledMesh []Point

	// Annotations maps each semantic region name to the ScaledMesh
	// points at that region's landmark indices, in table order.
	Annotations map[string][]Point
}

// MeshBuffers is the raw-buffer geometry variant. The caller owns all
// four buffers and must Release them.
type MeshBuffers struct {
	BoxStart   inference.Buffer
	BoxEnd     inference.Buffer
	Mesh       inference.Buffer
	ScaledMesh inference.Buffer

	alloc inference.Allocator
}

// Release frees all buffers held by the geometry.
func (g *MeshBuffers) Release() {
	for _, b := range g.buffers() {
		if b != nil {
			b.Release()
		}
	}
}

func (g *MeshBuffers) buffers() []inference.Buffer {
	return []inference.Buffer{g.BoxStart, g.BoxEnd, g.Mesh, g.ScaledMesh}
}

// pointsFromFlat converts an interleaved [x0,y0,x1,y1,...] slice to points.
func pointsFromFlat(data []float32) []Point {
	pts := make([]Point, len(data)/2)
	for i := range pts {
		pts[i] = Point{X: data[i*2], Y: data[i*2+1]}
	}
	return pts
}
