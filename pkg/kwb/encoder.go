package kwb

import "fmt"

// EncodeFrame builds the wire representation of a message, including byte
// stuffing and checksum.
func EncodeFrame(id uint8, counter uint8, payload []byte) ([]byte, error) {
	if id == 0 {
		return nil, fmt.Errorf("%w: message id must be non-zero", ErrMalformedFrame)
	}
	if len(payload) > MaxPayloadSize {
		return nil, fmt.Errorf("%w: payload too large: %d (max %d)", ErrMalformedFrame, len(payload), MaxPayloadSize)
	}

	out := make([]byte, 0, 2*(headerSize+len(payload)+1)+1)
	out = append(out, StartByte)

	var sum uint8
	push := func(b byte) {
		out = append(out, b)
		if b == StartByte {
			out = append(out, StuffByte)
		}
	}

	header := []byte{id, uint8(len(payload)), counter}
	for _, b := range header {
		sum += b
		push(b)
	}
	for _, b := range payload {
		sum += b
		push(b)
	}
	push(sum)

	return out, nil
}

// Checksum returns the frame checksum of an unstuffed message.
func Checksum(msg RawMessage) uint8 {
	sum := msg.ID + uint8(len(msg.Payload)) + msg.Counter
	for _, b := range msg.Payload {
		sum += b
	}
	return sum
}
