package protocol

import "encoding/binary"

// Decoder splits an arbitrarily chunked byte stream into frames.
//
// Bytes go in through Feed in the order they were read from the socket; Next
// hands back complete frames in the same order. A frame split across reads
// stays buffered until its last byte arrives, and one read carrying several
// frames yields them one by one. After an error the decoder is poisoned: the
// stream position is unknown, so the connection must be dropped and the next
// one given a new Decoder.
//
// Not safe for concurrent use.
type Decoder struct {
	buf   []byte
	total int // expected length of the frame at buf[0]; -1 until 4 bytes are buffered
	err   error
}

// NewDecoder returns an empty decoder.
func NewDecoder() *Decoder {
	return &Decoder{total: -1}
}

// Feed appends newly read bytes.
func (d *Decoder) Feed(p []byte) {
	d.buf = append(d.buf, p...)
}

// Next returns the next complete frame. ok is false when more bytes are needed.
func (d *Decoder) Next() (f Frame, ok bool, err error) {
	if d.err != nil {
		return Frame{}, false, d.err
	}
	if d.total < 0 {
		if len(d.buf) < 4 {
			return Frame{}, false, nil
		}
		total := binary.BigEndian.Uint32(d.buf[0:4])
		if err := checkTotal(total); err != nil {
			d.err = err
			return Frame{}, false, err
		}
		d.total = int(total)
	}
	if len(d.buf) < d.total {
		return Frame{}, false, nil
	}

	f, err = parseFrame(d.buf[:d.total])
	if err != nil {
		d.err = err
		return Frame{}, false, err
	}
	d.consume(d.total)
	return f, true, nil
}

// consume drops n bytes from the front of the buffer.
func (d *Decoder) consume(n int) {
	rest := len(d.buf) - n
	if rest == 0 {
		d.buf = d.buf[:0]
	} else {
		copy(d.buf, d.buf[n:])
		d.buf = d.buf[:rest]
	}
	d.total = -1
}

// Buffered returns the number of bytes waiting for a complete frame.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}
