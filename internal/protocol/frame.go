package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var (
	ErrBadLength     = errors.New("frame length shorter than header")
	ErrBadHeader     = errors.New("invalid frame header length")
	ErrFrameTooLarge = errors.New("frame exceeds maximum size")
)

// Frame is one length-prefixed protocol unit.
type Frame struct {
	Op       Op
	Version  uint16
	Sequence uint32
	Payload  []byte
}

// --- Encoding ---

// Encode returns the wire form of a frame with the given op and payload.
// Handshake and heartbeat frames are built once with this and reused.
func Encode(op Op, payload []byte) []byte {
	total := HeaderSize + len(payload)
	buf := make([]byte, total)
	binary.BigEndian.PutUint32(buf[0:4], uint32(total))
	binary.BigEndian.PutUint16(buf[4:6], HeaderSize)
	binary.BigEndian.PutUint16(buf[6:8], Version)
	binary.BigEndian.PutUint32(buf[8:12], uint32(op))
	binary.BigEndian.PutUint32(buf[12:16], Sequence)
	copy(buf[HeaderSize:], payload)
	return buf
}

// WriteFrame writes a framed message (header + payload) to w.
func WriteFrame(w io.Writer, op Op, payload []byte) error {
	if HeaderSize+len(payload) > MaxFrameSize {
		return ErrFrameTooLarge
	}
	_, err := w.Write(Encode(op, payload))
	return err
}

// --- Decoding ---

// ReadFrame reads one complete frame from r.
func ReadFrame(r io.Reader) (Frame, error) {
	var header [HeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Frame{}, err
	}

	total := binary.BigEndian.Uint32(header[0:4])
	if err := checkTotal(total); err != nil {
		return Frame{}, err
	}

	raw := make([]byte, total)
	copy(raw, header[:])
	if _, err := io.ReadFull(r, raw[HeaderSize:]); err != nil {
		return Frame{}, err
	}
	return parseFrame(raw)
}

// checkTotal validates the total-length field before any payload is read.
func checkTotal(total uint32) error {
	if total < HeaderSize {
		return fmt.Errorf("%w: %d", ErrBadLength, total)
	}
	if total > MaxFrameSize {
		return fmt.Errorf("%w: %d", ErrFrameTooLarge, total)
	}
	return nil
}

// parseFrame decodes one complete frame. raw must be exactly total_length
// bytes long. The returned payload does not alias raw.
func parseFrame(raw []byte) (Frame, error) {
	headerLen := int(binary.BigEndian.Uint16(raw[4:6]))
	if headerLen < HeaderSize || headerLen > len(raw) {
		return Frame{}, fmt.Errorf("%w: %d", ErrBadHeader, headerLen)
	}

	f := Frame{
		Version:  binary.BigEndian.Uint16(raw[6:8]),
		Op:       Op(binary.BigEndian.Uint32(raw[8:12])),
		Sequence: binary.BigEndian.Uint32(raw[12:16]),
	}
	if n := len(raw) - headerLen; n > 0 {
		f.Payload = make([]byte, n)
		copy(f.Payload, raw[headerLen:])
	}
	return f, nil
}
