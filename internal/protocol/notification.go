package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrNotObject = errors.New("notification payload is not a JSON object")

// Notification is a decoded OpNotification payload. Raw holds the (unwrapped)
// message object so a handler can decode the fields it needs.
type Notification struct {
	Cmd string
	Raw json.RawMessage
}

// Notice is the NOTICE_MSG shape.
type Notice struct {
	MsgType    int    `json:"msg_type"`
	RealRoomID int64  `json:"real_roomid"`
	MsgCommon  string `json:"msg_common"`
}

// Preparing is the PREPARING shape. The room goes offline or restarts.
type Preparing struct {
	RoomID json.Number `json:"roomid"`
}

// RoomChange is the ROOM_CHANGE shape.
type RoomChange struct {
	Data struct {
		Title        string `json:"title"`
		AreaID       int    `json:"area_id"`
		ParentAreaID int    `json:"parent_area_id"`
	} `json:"data"`
}

type envelope struct {
	Cmd      string          `json:"cmd"`
	SceneKey json.RawMessage `json:"scene_key"`
	Msg      json.RawMessage `json:"msg"`
}

// ParseNotification decodes a notification payload. Messages wrapped in a
// scene envelope ({"scene_key": ..., "msg": {...}}) are unwrapped first.
func ParseNotification(payload []byte) (*Notification, error) {
	raw := json.RawMessage(bytes.TrimSpace(payload))
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode notification: %w", err)
	}
	if len(raw) == 0 || raw[0] != '{' {
		return nil, ErrNotObject
	}

	if truthy(env.SceneKey) {
		raw = env.Msg
		env = envelope{}
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, fmt.Errorf("decode scene message: %w", err)
		}
		if len(raw) == 0 || raw[0] != '{' {
			return nil, ErrNotObject
		}
	}
	return &Notification{Cmd: env.Cmd, Raw: raw}, nil
}

// Decode unmarshals the notification body into v.
func (n *Notification) Decode(v any) error {
	if err := json.Unmarshal(n.Raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", n.Cmd, err)
	}
	return nil
}

// truthy reports whether a JSON value is present and not null, false, 0 or "".
func truthy(v json.RawMessage) bool {
	switch s := string(bytes.TrimSpace(v)); s {
	case "", "null", "false", "0", `""`:
		return false
	default:
		return true
	}
}

type handshake struct {
	RoomID int64 `json:"roomid"`
	UID    int64 `json:"uid"`
}

// HandshakePayload builds the OpHandshake body for a room and viewer.
func HandshakePayload(roomID, uid int64) []byte {
	b, _ := json.Marshal(handshake{RoomID: roomID, UID: uid})
	return b
}
