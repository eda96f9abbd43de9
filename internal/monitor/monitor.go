// Package monitor interprets room notifications.
//
// An Interpreter is plugged into a client.Client and sees every decoded
// NOTICE_MSG, PREPARING and ROOM_CHANGE message for that client's room. It
// can emit events to a Sink and can ask the client to shut down by
// returning ActionClose.
package monitor

import (
	"errors"
	"fmt"

	"github.com/chronologos/roomwatch/internal/events"
	"github.com/chronologos/roomwatch/internal/protocol"
)

var ErrUnknownKind = errors.New("unknown monitor kind")

// Action is an interpreter's request to the connection that called it.
type Action int

const (
	ActionNone  Action = iota
	ActionClose        // stop watching this room; no reconnect
)

// Interpreter reacts to room notifications. roomID is the room the
// connection is watching.
type Interpreter interface {
	OnNotice(roomID int64, n *protocol.Notice) Action
	OnPreparing(roomID int64, p *protocol.Preparing) Action
	OnRoomChange(roomID int64, rc *protocol.RoomChange) Action
}

// Kind names an interpreter for logs and status output.
type Kind string

const (
	KindBase   Kind = "base"
	KindGuard  Kind = "guard"
	KindRaffle Kind = "raffle"
)

// Base ignores everything. Embed it to override a subset of callbacks.
type Base struct{}

func (Base) OnNotice(int64, *protocol.Notice) Action         { return ActionNone }
func (Base) OnPreparing(int64, *protocol.Preparing) Action   { return ActionNone }
func (Base) OnRoomChange(int64, *protocol.RoomChange) Action { return ActionNone }

// Route decodes n by its embedded command and calls the matching callback.
// Commands other than NOTICE_MSG, PREPARING and ROOM_CHANGE are ignored.
func Route(it Interpreter, roomID int64, n *protocol.Notification) (Action, error) {
	switch n.Cmd {
	case protocol.CmdNotice:
		var notice protocol.Notice
		if err := n.Decode(&notice); err != nil {
			return ActionNone, err
		}
		return it.OnNotice(roomID, &notice), nil
	case protocol.CmdPreparing:
		var p protocol.Preparing
		if err := n.Decode(&p); err != nil {
			return ActionNone, err
		}
		return it.OnPreparing(roomID, &p), nil
	case protocol.CmdRoomChange:
		var rc protocol.RoomChange
		if err := n.Decode(&rc); err != nil {
			return ActionNone, err
		}
		return it.OnRoomChange(roomID, &rc), nil
	default:
		return ActionNone, nil
	}
}

// New builds an interpreter by kind. area only applies to raffle monitors.
func New(kind Kind, area int, sink events.Sink) (Interpreter, error) {
	switch kind {
	case KindBase:
		return Base{}, nil
	case KindGuard:
		return NewGuard(sink), nil
	case KindRaffle:
		return NewRaffle(area, sink), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// KindOf reports the kind of a built-in interpreter.
func KindOf(it Interpreter) Kind {
	switch it.(type) {
	case *Guard:
		return KindGuard
	case *Raffle:
		return KindRaffle
	default:
		return KindBase
	}
}
