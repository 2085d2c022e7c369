package collab

import (
	"context"
	"fmt"
	"io"
	"sync"

	apperrors "github.com/agbru/optix/internal/errors"
)

// DataLoader hands out batches of rows until exhausted, then io.EOF.
type DataLoader interface {
	Next(ctx context.Context) ([][]float32, error)
	// Len is the number of batches a full pass yields.
	Len() int
	Reset()
}

// SliceLoader serves fixed-size batches from an in-memory dataset.
// It is safe for concurrent use; each batch is handed out once per pass.
type SliceLoader struct {
	mu    sync.Mutex
	data  [][]float32
	batch int
	pos   int
}

// NewSliceLoader returns a loader over data yielding batch rows at a time.
// The last batch may be shorter.
func NewSliceLoader(data [][]float32, batch int) (*SliceLoader, error) {
	if batch <= 0 {
		return nil, apperrors.ValidationError{Field: "batch", Message: fmt.Sprintf("batch size %d must be positive", batch)}
	}
	return &SliceLoader{data: data, batch: batch}, nil
}

// Next returns the following batch or io.EOF once the pass is complete.
func (l *SliceLoader) Next(ctx context.Context) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pos >= len(l.data) {
		return nil, io.EOF
	}
	end := min(l.pos+l.batch, len(l.data))
	out := l.data[l.pos:end:end]
	l.pos = end
	return out, nil
}

// Len returns ceil(len(data)/batch).
func (l *SliceLoader) Len() int {
	return (len(l.data) + l.batch - 1) / l.batch
}

// Reset rewinds to the first batch.
func (l *SliceLoader) Reset() {
	l.mu.Lock()
	l.pos = 0
	l.mu.Unlock()
}
