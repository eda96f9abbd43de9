package monitor

import (
	"github.com/chronologos/roomwatch/internal/events"
	"github.com/chronologos/roomwatch/internal/protocol"
)

// AnyArea disables the category restriction of a Raffle monitor.
const AnyArea = 0

// Raffle emits a gift event for platform-wide raffle notices. Those notices
// are broadcast to many rooms, so the event carries the notice's room, not
// the watched one.
//
// With a target area set, the monitor is only useful while the watched room
// stays live in that area: it asks to close when the room goes offline or
// moves to another parent area.
type Raffle struct {
	area int
	sink events.Sink
}

func NewRaffle(area int, sink events.Sink) *Raffle {
	return &Raffle{area: area, sink: sink}
}

// Area returns the target parent area, or AnyArea.
func (r *Raffle) Area() int { return r.area }

func (r *Raffle) OnNotice(_ int64, n *protocol.Notice) Action {
	switch n.MsgType {
	case 2, 6, 8:
		if r.sink != nil {
			r.sink.Emit(events.Event{Name: events.EventGift, RoomID: n.RealRoomID, Text: n.MsgCommon})
		}
	}
	return ActionNone
}

func (r *Raffle) OnPreparing(int64, *protocol.Preparing) Action {
	if r.area != AnyArea {
		return ActionClose
	}
	return ActionNone
}

func (r *Raffle) OnRoomChange(_ int64, rc *protocol.RoomChange) Action {
	if r.area != AnyArea && rc.Data.ParentAreaID != r.area {
		return ActionClose
	}
	return ActionNone
}
