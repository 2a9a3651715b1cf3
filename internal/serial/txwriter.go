package serial

import (
	"context"
	"errors"

	"github.com/kstaniek/go-mavcodec/internal/logging"
	"github.com/kstaniek/go-mavcodec/internal/metrics"
	"github.com/kstaniek/go-mavcodec/internal/transport"
)

// ErrTxOverflow is returned from Send, via the drop hook, when the
// outbound buffer is full; the dropped frame is counted under
// metrics.ErrSerialOverflow and not logged.
var ErrTxOverflow = errors.New("serial tx overflow")

// TXWriter funnels all serial writes through one goroutine, taking
// already-built frame bytes from internal/builder and writing them to
// the port without blocking the caller.
type TXWriter struct{ base *transport.AsyncTx }

// NewTXWriter creates a serial TXWriter with a buffered channel of size buf.
func NewTXWriter(parent context.Context, sp Port, buf int) *TXWriter {
	send := func(frame []byte) error {
		_, err := sp.Write(frame)
		return err
	}
	hooks := transport.Hooks{
		OnError: func(err error) {
			metrics.IncError(metrics.ErrSerialWrite)
			logging.L().Error("serial_write_error", "error", err)
		},
		OnAfter: func() { metrics.IncFramesBuilt() },
		OnDrop: func() error {
			metrics.IncError(metrics.ErrSerialOverflow)
			return ErrTxOverflow
		},
	}
	return &TXWriter{base: transport.NewAsyncTx(parent, buf, send, hooks)}
}

// Send queues a built frame for asynchronous write.
func (w *TXWriter) Send(frame []byte) error { return w.base.Send(frame) }

// Close stops the writer and waits for pending goroutine exit.
func (w *TXWriter) Close() { w.base.Close() }
