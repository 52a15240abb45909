package inference

import (
	"context"
	"fmt"

	ort "github.com/yalue/onnxruntime_go"
)

// Buffer is a live float32 tensor held by the runtime. Whoever holds the
// handle owns it and must call Release exactly once; reading does not
// release. Read copies the values out, so the returned slice stays valid
// after Release.
type Buffer interface {
	// Shape returns the tensor dimensions.
	Shape() []int64

	// Read materializes the buffer contents into a plain slice.
	Read(ctx context.Context) ([]float32, error)

	// Release frees the underlying tensor. Safe to call once only.
	Release()
}

// Allocator creates runtime buffers from plain data.
type Allocator interface {
	NewBuffer(shape []int64, data []float32) (Buffer, error)
}

// TensorAllocator allocates ONNX Runtime backed buffers.
type TensorAllocator struct{}

// NewBuffer creates a tensor buffer with the given shape and values.
func (TensorAllocator) NewBuffer(shape []int64, data []float32) (Buffer, error) {
	t, err := CreateTensor(shape, data)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate %v tensor: %w", shape, err)
	}
	return &tensorBuffer{tensor: t, shape: shape}, nil
}

type tensorBuffer struct {
	tensor *ort.Tensor[float32]
	shape  []int64
}

func (b *tensorBuffer) Shape() []int64 {
	return b.shape
}

func (b *tensorBuffer) Read(ctx context.Context) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	src := b.tensor.GetData()
	out := make([]float32, len(src))
	copy(out, src)
	return out, nil
}

func (b *tensorBuffer) Release() {
	b.tensor.Destroy()
}
