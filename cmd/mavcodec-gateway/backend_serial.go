package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/kstaniek/go-mavcodec/internal/builder"
	"github.com/kstaniek/go-mavcodec/internal/metrics"
	"github.com/kstaniek/go-mavcodec/internal/parser"
	"github.com/kstaniek/go-mavcodec/internal/serial"
	"github.com/kstaniek/go-mavcodec/internal/wire"
)

// sleepFn allows tests to intercept backoff sleeps.
var sleepFn = time.Sleep

// openSerialPort is a hook for tests (overridden in unit tests).
var openSerialPort = serial.Open

// initSerialBackend opens the serial port, launches the RX loop that
// feeds p, and starts the TX writer the heartbeat sender (and any
// other caller) uses to transmit built frames.
func initSerialBackend(ctx context.Context, cfg *appConfig, p *parser.Parser, l *slog.Logger, wg *sync.WaitGroup) (*serial.TXWriter, func(), error) {
	sp, err := openSerialPort(cfg.serialDev, cfg.baud, cfg.serialReadTO)
	if err != nil {
		return nil, func() {}, fmt.Errorf("open serial: %w", err)
	}
	l.Info("serial_open", "device", cfg.serialDev, "baud", cfg.baud)
	w := serial.NewTXWriter(ctx, sp, txQueueSize)
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer l.Info("serial_rx_end")
		buf := make([]byte, serialReadBufSize)
		backoff := rxBackoffMin
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			n, err := sp.Read(buf)
			if n > 0 {
				p.Feed(buf[:n])
				backoff = rxBackoffMin
			}
			if err != nil {
				if ctx.Err() != nil { // shutting down
					return
				}
				var perr *os.PathError
				if errors.As(err, &perr) {
					return // device removed or fatal
				}
				if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
					continue // ignore transient EOF
				}
				metrics.IncError(metrics.ErrSerialRead)
				l.Warn("serial_read_error", "error", err, "backoff", backoff)
				sleepFn(backoff)
				backoff *= 2
				if backoff > rxBackoffMax {
					backoff = rxBackoffMax
				}
			}
		}
	}()
	return w, func() { _ = sp.Close(); w.Close() }, nil
}

// startHeartbeat periodically builds and sends a HEARTBEAT frame if
// the catalog carries that message, paced by heartbeatInterval. It is
// a no-op for catalogs that do not define HEARTBEAT (e.g. a minimal
// definitions subset); for an unconfigured builder (system/component
// id both zero — promiscuous receive only, per §7) the sender stops at
// its first tick without sending, logging or counting an error.
func startHeartbeat(ctx context.Context, b *builder.Builder, cat *wire.Catalog, tx *serial.TXWriter, l *slog.Logger, wg *sync.WaitGroup) {
	desc, ok := cat.ByName("HEARTBEAT")
	if !ok {
		return
	}
	fields := zeroFields(desc)
	wg.Add(1)
	go func() {
		defer wg.Done()
		t := time.NewTicker(heartbeatInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				frame, err := b.Build(desc.Name, fields)
				if errors.Is(err, wire.ErrNotConfigured) {
					return
				}
				if err != nil {
					metrics.IncError(metrics.ErrBuild)
					l.Warn("heartbeat_build_error", "error", err)
					continue
				}
				if err := tx.Send(frame); err != nil {
					l.Warn("heartbeat_send_error", "error", err)
				}
			}
		}
	}()
}

// zeroFields produces a FieldMap with the zero value of every field
// in desc, suitable as a baseline the caller can overwrite selectively.
func zeroFields(desc *wire.MessageDescriptor) wire.FieldMap {
	fields := make(wire.FieldMap, len(desc.Fields))
	for _, f := range desc.Fields {
		if f.BaseType == wire.Char && f.ArrayLength > 1 {
			fields[f.Name] = ""
			continue
		}
		if f.ArrayLength <= 1 {
			fields[f.Name] = zeroScalar(f.BaseType)
			continue
		}
		arr := make([]any, f.ArrayLength)
		for i := range arr {
			arr[i] = zeroScalar(f.BaseType)
		}
		fields[f.Name] = arr
	}
	return fields
}

func zeroScalar(t wire.BaseType) any {
	switch t {
	case wire.Float:
		return float32(0)
	case wire.Double:
		return float64(0)
	case wire.Int8:
		return int8(0)
	case wire.Uint8:
		return uint8(0)
	case wire.Int16:
		return int16(0)
	case wire.Uint16:
		return uint16(0)
	case wire.Int32:
		return int32(0)
	case wire.Uint32:
		return uint32(0)
	case wire.Int64:
		return int64(0)
	case wire.Uint64:
		return uint64(0)
	default:
		return uint8(0)
	}
}
