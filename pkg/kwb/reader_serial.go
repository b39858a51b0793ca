package kwb

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// SerialByteReader reads the controller bus through an RS-485 adapter.
type SerialByteReader struct {
	device string
	mode   *serial.Mode
	port   serial.Port
}

func NewSerialByteReader(device string, baudRate int) *SerialByteReader {
	if baudRate <= 0 {
		baudRate = 19200
	}
	return &SerialByteReader{
		device: device,
		mode: &serial.Mode{
			BaudRate: baudRate,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		},
	}
}

func (r *SerialByteReader) Open() error {
	_ = r.Close()

	port, err := serial.Open(r.device, r.mode)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", ErrConnection, r.device, err)
	}
	r.port = port
	return nil
}

func (r *SerialByteReader) Read(p []byte, timeout time.Duration) (int, error) {
	if r.port == nil {
		return 0, fmt.Errorf("%w: %s not open", ErrConnection, r.device)
	}
	if err := r.port.SetReadTimeout(timeout); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrConnection, err)
	}
	n, err := r.port.Read(p)
	if err != nil {
		return 0, fmt.Errorf("%w: read %s: %v", ErrConnection, r.device, err)
	}
	if n == 0 {
		return 0, fmt.Errorf("%w: no data from %s within %s", ErrTimeout, r.device, timeout)
	}
	return n, nil
}

func (r *SerialByteReader) Close() error {
	if r.port == nil {
		return nil
	}
	err := r.port.Close()
	r.port = nil
	return err
}

var _ ByteReader = (*SerialByteReader)(nil)
