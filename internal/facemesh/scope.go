package facemesh

import "github.com/dudu/facemesh/internal/inference"

// scope tracks the buffers owned by one estimation call so they are
// released on every exit path, including mid-batch failures. Buffers
// handed to the caller are removed with transfer before return.
type scope struct {
	owned []inference.Buffer
}

// track registers a buffer for release and returns it unchanged.
func (s *scope) track(b inference.Buffer) inference.Buffer {
	s.owned = append(s.owned, b)
	return b
}

// releaseNow frees one tracked buffer immediately and stops tracking it.
func (s *scope) releaseNow(b inference.Buffer) {
	s.forget(b)
	b.Release()
}

// transfer stops tracking a buffer; its ownership moves to the caller.
func (s *scope) transfer(b inference.Buffer) {
	s.forget(b)
}

func (s *scope) forget(b inference.Buffer) {
	for i, owned := range s.owned {
		if owned == b {
			s.owned = append(s.owned[:i], s.owned[i+1:]...)
			return
		}
	}
}

// release frees every still-tracked buffer. Idempotent.
func (s *scope) release() {
	for _, b := range s.owned {
		b.Release()
	}
	s.owned = nil
}
