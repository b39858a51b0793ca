package kwb

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeAll(d *Decoder, data []byte) ([]RawMessage, []error) {
	var msgs []RawMessage
	var errs []error
	for _, b := range data {
		msg, err := d.DecodeByte(b)
		if err != nil {
			errs = append(errs, err)
		}
		if msg != nil {
			msgs = append(msgs, *msg)
		}
	}
	return msgs, errs
}

func TestEncodeDecodeFrame(t *testing.T) {

	require := require.New(t)
	assert := assert.New(t)

	payload := []byte{0x10, 0x20, 0x30}
	frame, err := EncodeFrame(32, 7, payload)
	require.NoError(err)
	assert.Equal([]byte{0x02, 32, 3, 7, 0x10, 0x20, 0x30, 32 + 3 + 7 + 0x10 + 0x20 + 0x30}, frame)

	msgs, errs := decodeAll(NewDecoder(), frame)
	assert.Empty(errs)
	require.Len(msgs, 1)
	assert.Equal(uint8(32), msgs[0].ID)
	assert.Equal(uint8(7), msgs[0].Counter)
	assert.Equal(payload, msgs[0].Payload)
}

func TestFrameByteStuffing(t *testing.T) {

	require := require.New(t)
	assert := assert.New(t)

	payload := []byte{0x02, 0x00, 0x02, 0x02}
	frame, err := EncodeFrame(2, 2, payload)
	require.NoError(err)

	// id, counter and three payload bytes need stuffing
	assert.Equal(1+3+len(payload)+1+5, len(frame))

	msgs, errs := decodeAll(NewDecoder(), frame)
	assert.Empty(errs)
	require.Len(msgs, 1)
	assert.Equal(uint8(2), msgs[0].ID)
	assert.Equal(uint8(2), msgs[0].Counter)
	assert.Equal(payload, msgs[0].Payload)
}

func TestFrameChecksumMismatch(t *testing.T) {

	assert := assert.New(t)

	frame, _ := EncodeFrame(33, 1, []byte{0x01, 0x02, 0x03})
	frame[len(frame)-1] ^= 0xFF

	msgs, errs := decodeAll(NewDecoder(), frame)
	assert.Empty(msgs)
	if assert.Len(errs, 1) {
		assert.True(errors.Is(errs[0], ErrChecksum))
	}
}

func TestFrameResyncAfterInterruption(t *testing.T) {

	require := require.New(t)
	assert := assert.New(t)

	good, _ := EncodeFrame(64, 9, []byte{0xAA, 0xBB})
	// truncated frame followed by a complete one
	stream := append([]byte{0x02, 65, 10, 0x01, 0x11, 0x12}, good...)

	msgs, errs := decodeAll(NewDecoder(), stream)
	require.Len(msgs, 1)
	assert.Equal(uint8(64), msgs[0].ID)
	assert.Equal([]byte{0xAA, 0xBB}, msgs[0].Payload)
	if assert.Len(errs, 1) {
		assert.True(errors.Is(errs[0], ErrMalformedFrame))
	}
}

func TestFrameIgnoresNoiseBetweenFrames(t *testing.T) {

	assert := assert.New(t)

	a, _ := EncodeFrame(32, 1, []byte{0x01})
	b, _ := EncodeFrame(33, 2, []byte{})
	stream := []byte{0xFF, 0x00, 0x13}
	stream = append(stream, a...)
	stream = append(stream, 0x00, 0x37)
	stream = append(stream, b...)

	msgs, errs := decodeAll(NewDecoder(), stream)
	assert.Empty(errs)
	if assert.Len(msgs, 2) {
		assert.Equal(uint8(32), msgs[0].ID)
		assert.Equal(uint8(33), msgs[1].ID)
		assert.Empty(msgs[1].Payload)
	}
}

func TestFrameInvalidLength(t *testing.T) {

	assert := assert.New(t)

	msgs, errs := decodeAll(NewDecoder(), []byte{0x02, 32, 251, 0})
	assert.Empty(msgs)
	if assert.Len(errs, 1) {
		assert.True(errors.Is(errs[0], ErrMalformedFrame))
	}
}

func TestEncodeFrameRejectsInvalidInput(t *testing.T) {

	assert := assert.New(t)

	_, err := EncodeFrame(0, 0, nil)
	assert.ErrorIs(err, ErrMalformedFrame)

	_, err = EncodeFrame(1, 0, make([]byte, MaxPayloadSize+1))
	assert.ErrorIs(err, ErrMalformedFrame)
}

func TestChecksum(t *testing.T) {
	msg := RawMessage{ID: 200, Counter: 100, Payload: []byte{0x10}}
	assert.Equal(t, uint8((200+1+100+0x10)%256), Checksum(msg))
}
