package protocol

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncodeHeader(t *testing.T) {
	got := Encode(OpHeartbeatAck, nil)
	want := []byte{0, 0, 0, 16, 0, 16, 0, 1, 0, 0, 0, 8, 0, 0, 0, 1}
	if !bytes.Equal(got, want) {
		t.Fatalf("header mismatch:\n got %v\nwant %v", got, want)
	}
}

func TestEncodeHandshake(t *testing.T) {
	payload := HandshakePayload(23058, 42)
	if string(payload) != `{"roomid":23058,"uid":42}` {
		t.Fatalf("handshake payload: %s", payload)
	}
	raw := Encode(OpHandshake, payload)
	if len(raw) != HeaderSize+len(payload) {
		t.Fatalf("length: got %d", len(raw))
	}
	if raw[3] != byte(len(raw)) || raw[11] != byte(OpHandshake) {
		t.Fatalf("bad header %v", raw[:16])
	}
}

func TestFrameRoundTrip(t *testing.T) {
	cases := []struct {
		op      Op
		payload []byte
	}{
		{OpHeartbeat, nil},
		{OpHeartbeatAck, nil},
		{OpHandshake, HandshakePayload(1, 2)},
		{OpNotification, []byte(`{"cmd":"NOTICE_MSG","msg_type":3}`)},
		{Op(99), []byte("opaque")},
	}
	for _, tc := range cases {
		var buf bytes.Buffer
		if err := WriteFrame(&buf, tc.op, tc.payload); err != nil {
			t.Fatal(err)
		}
		f, err := ReadFrame(&buf)
		if err != nil {
			t.Fatal(err)
		}
		if f.Op != tc.op {
			t.Fatalf("op mismatch: got %d, want %d", f.Op, tc.op)
		}
		if f.Version != Version || f.Sequence != Sequence {
			t.Fatalf("version/sequence: got %d/%d", f.Version, f.Sequence)
		}
		if !bytes.Equal(f.Payload, tc.payload) {
			t.Fatalf("payload mismatch: got %q, want %q", f.Payload, tc.payload)
		}
	}
}

func TestReadFrameBadLength(t *testing.T) {
	raw := Encode(OpHeartbeat, nil)
	raw[3] = 15
	_, err := ReadFrame(bytes.NewReader(raw))
	if !errors.Is(err, ErrBadLength) {
		t.Fatalf("expected ErrBadLength, got %v", err)
	}
}

func TestReadFrameBadHeaderLength(t *testing.T) {
	raw := Encode(OpNotification, []byte("{}"))
	raw[5] = 40 // header longer than the whole frame
	_, err := ReadFrame(bytes.NewReader(raw))
	if !errors.Is(err, ErrBadHeader) {
		t.Fatalf("expected ErrBadHeader, got %v", err)
	}
}

func TestReadFrameTooLarge(t *testing.T) {
	raw := Encode(OpNotification, nil)
	raw[0] = 0x7f
	_, err := ReadFrame(bytes.NewReader(raw))
	if !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("expected ErrFrameTooLarge, got %v", err)
	}
}

func TestWriteFrameTooLarge(t *testing.T) {
	err := WriteFrame(&bytes.Buffer{}, OpNotification, make([]byte, MaxFrameSize))
	if err != ErrFrameTooLarge {
		t.Fatalf("expected ErrFrameTooLarge, got %v", err)
	}
}

func TestLongerHeaderSkipped(t *testing.T) {
	// Header length above 16 is legal; the extra header bytes are not payload.
	raw := Encode(OpNotification, []byte("XXXX{}"))
	raw[5] = 20
	f, err := ReadFrame(bytes.NewReader(raw))
	if err != nil {
		t.Fatal(err)
	}
	if string(f.Payload) != "{}" {
		t.Fatalf("payload: %q", f.Payload)
	}
}

// --- Fuzz tests ---

func FuzzReadFrame(f *testing.F) {
	f.Add(Encode(OpHeartbeatAck, nil))
	f.Add(Encode(OpNotification, []byte(`{"cmd":"PREPARING"}`)))
	f.Fuzz(func(t *testing.T, data []byte) {
		ReadFrame(bytes.NewReader(data))
	})
}

func FuzzRoundTripFrame(f *testing.F) {
	f.Add(uint32(5), []byte(`{"cmd":"NOTICE_MSG"}`))
	f.Add(uint32(2), []byte{})
	f.Add(uint32(1<<32-1), []byte{0, 1, 2, 3})
	f.Fuzz(func(t *testing.T, op uint32, payload []byte) {
		if len(payload) > 64*1024 { // cap to keep fuzz fast
			payload = payload[:64*1024]
		}
		var buf bytes.Buffer
		if err := WriteFrame(&buf, Op(op), payload); err != nil {
			t.Fatal(err)
		}
		decoded, err := ReadFrame(&buf)
		if err != nil {
			t.Fatal(err)
		}
		if decoded.Op != Op(op) {
			t.Fatalf("op mismatch: got %d, want %d", decoded.Op, op)
		}
		if !bytes.Equal(decoded.Payload, payload) {
			t.Fatalf("payload mismatch: got %d bytes, want %d bytes", len(decoded.Payload), len(payload))
		}
	})
}
