package monitor

import (
	"github.com/chronologos/roomwatch/internal/events"
	"github.com/chronologos/roomwatch/internal/protocol"
)

// NoticeGuard is the notice sub-type for a guard purchase.
const NoticeGuard = 3

// Guard emits a gift event when a guard is bought in its own room.
type Guard struct {
	Base
	sink events.Sink
}

func NewGuard(sink events.Sink) *Guard {
	return &Guard{sink: sink}
}

func (g *Guard) OnNotice(roomID int64, n *protocol.Notice) Action {
	if n.MsgType == NoticeGuard && n.RealRoomID == roomID && g.sink != nil {
		g.sink.Emit(events.Event{Name: events.EventGift, RoomID: roomID, Text: n.MsgCommon})
	}
	return ActionNone
}
