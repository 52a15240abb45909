package facemesh

import (
	"context"
	"fmt"

	"github.com/dudu/facemesh/internal/inference"
)

// flipX returns the horizontal mirror mapping for an image of the given
// width: x -> (width-1) - x, y untouched.
func flipX(width int) func(float32) float32 {
	return func(x float32) float32 {
		return float32(width-1) - x
	}
}

// flipHorizontal mirrors all spatial fields of a geometry in place.
// Corner labels are kept as-is; see BoundingBox.
func flipHorizontal(ctx context.Context, g Geometry, width int) error {
	return g.mapX(ctx, flipX(width))
}

func (g *MeshArrays) mapX(_ context.Context, fn func(float32) float32) error {
	g.Box.TopLeft.X = fn(g.Box.TopLeft.X)
	g.Box.BottomRight.X = fn(g.Box.BottomRight.X)
	mapPointsX(g.Mesh, fn)
	mapPointsX(g.ScaledMesh, fn)
	return nil
}

func mapPointsX(pts []Point, fn func(float32) float32) {
	for i := range pts {
		pts[i].X = fn(pts[i].X)
	}
}

// mapX rebuilds each buffer with remapped x coordinates, releasing the
// original. On failure the field that could not be rebuilt keeps its
// original live buffer, so Release still frees everything.
func (g *MeshBuffers) mapX(ctx context.Context, fn func(float32) float32) error {
	for _, field := range []*inference.Buffer{&g.BoxStart, &g.BoxEnd, &g.Mesh, &g.ScaledMesh} {
		remapped, err := remapBufferX(ctx, g.alloc, *field, fn)
		if err != nil {
			return err
		}
		*field = remapped
	}
	return nil
}

// remapBufferX produces a same-shape buffer whose x coordinates (even
// positions of the interleaved x,y layout) are remapped by fn. The
// source buffer is released only once the replacement exists.
func remapBufferX(ctx context.Context, alloc inference.Allocator, buf inference.Buffer, fn func(float32) float32) (inference.Buffer, error) {
	data, err := buf.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read buffer for remap: %w", err)
	}
	for i := 0; i+1 < len(data); i += 2 {
		data[i] = fn(data[i])
	}
	out, err := alloc.NewBuffer(buf.Shape(), data)
	if err != nil {
		return nil, err
	}
	buf.Release()
	return out, nil
}
