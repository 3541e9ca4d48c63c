package throttle

import (
	"context"
	"io"
)

// Writer wraps an io.Writer and throttles the bytes written through it on
// behalf of a single uid. Accounting happens after each successful write, so
// a write is never refused, only followed by a delay.
type Writer struct {
	ctx    context.Context
	w      io.Writer
	engine *Engine
	uid    int64
}

// NewWriter returns a Writer that charges writes to uid. Cancelling ctx ends
// any pending throttle sleep.
func NewWriter(ctx context.Context, w io.Writer, engine *Engine, uid int64) *Writer {
	return &Writer{ctx: ctx, w: w, engine: engine, uid: uid}
}

// Write implements io.Writer.
func (w *Writer) Write(p []byte) (int, error) {
	n, err := w.w.Write(p)
	if n > 0 {
		w.engine.Throttle(w.ctx, w.uid, int64(n))
	}
	return n, err
}
