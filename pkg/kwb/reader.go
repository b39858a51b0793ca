package kwb

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"time"
)

// ByteReader is a raw transport to the controller. Implementations do not
// retry and are not safe for concurrent use.
type ByteReader interface {
	Open() error
	// Read returns at least one byte, or ErrTimeout when nothing arrived
	// within timeout.
	Read(p []byte, timeout time.Duration) (int, error)
	// Close is idempotent and never blocks.
	Close() error
}

type TCPByteReader struct {
	address     string
	dialTimeout time.Duration
	conn        net.Conn
}

func NewTCPByteReader(host string, port uint, dialTimeout time.Duration) *TCPByteReader {
	if dialTimeout <= 0 {
		dialTimeout = DefaultReadTimeout
	}
	return &TCPByteReader{
		address:     net.JoinHostPort(host, strconv.FormatUint(uint64(port), 10)),
		dialTimeout: dialTimeout,
	}
}

func (r *TCPByteReader) Address() string {
	return r.address
}

func (r *TCPByteReader) Open() error {
	// a previous cycle must never leak into this one
	_ = r.Close()

	conn, err := net.DialTimeout("tcp", r.address, r.dialTimeout)
	if err != nil {
		return fmt.Errorf("%w: dial %s: %v", ErrConnection, r.address, err)
	}
	r.conn = conn
	return nil
}

func (r *TCPByteReader) Read(p []byte, timeout time.Duration) (int, error) {
	if r.conn == nil {
		return 0, fmt.Errorf("%w: %s not open", ErrConnection, r.address)
	}
	if err := r.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrConnection, err)
	}
	n, err := r.conn.Read(p)
	if n > 0 {
		return n, nil
	}
	if err == nil {
		return 0, ErrTimeout
	}
	var netErr net.Error
	if errors.Is(err, os.ErrDeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return 0, fmt.Errorf("%w: no data from %s within %s", ErrTimeout, r.address, timeout)
	}
	if errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("%w: %s closed the connection", ErrConnection, r.address)
	}
	return 0, fmt.Errorf("%w: read %s: %v", ErrConnection, r.address, err)
}

func (r *TCPByteReader) Close() error {
	if r.conn == nil {
		return nil
	}
	err := r.conn.Close()
	r.conn = nil
	return err
}

// ensure interface compliance
var _ ByteReader = (*TCPByteReader)(nil)
