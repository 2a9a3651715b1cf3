// Package serial is the gateway's UART transport: the byte source
// the Frame Parser reads from and the Frame Builder's output writes
// to, with no framing knowledge of its own.
package serial

import (
	"time"

	"github.com/tarm/serial"
)

// Port abstracts tarm/serial for testability: the gateway's RX loop
// (which hands read bytes to parser.Feed) and TXWriter only need
// Read/Write/Close, never the concrete
// *serial.Port type.
type Port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

// Open dials the named serial device at baud, giving up a Read call
// after readTimeout with no bytes available.
func Open(name string, baud int, readTimeout time.Duration) (Port, error) {
	cfg := &serial.Config{Name: name, Baud: baud, ReadTimeout: readTimeout}
	return serial.OpenPort(cfg)
}
