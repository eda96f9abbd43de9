package client

import (
	"context"
	"log/slog"
	"time"

	"github.com/chronologos/roomwatch/internal/monitor"
	"github.com/chronologos/roomwatch/internal/protocol"
)

// dispatch handles one decoded frame. Unknown ops are ignored.
func (c *Client) dispatch(s *session, f protocol.Frame) monitor.Action {
	c.metrics.Frame(f.Op.String())

	switch f.Op {
	case protocol.OpNotification:
		return c.handleNotification(s, f.Payload)

	case protocol.OpHeartbeatAck:
		// Heartbeats start with the first ack, not the handshake. Later acks
		// keep the running timer.
		if s.heartbeat == nil {
			s.heartbeat = time.NewTicker(c.cfg.HeartbeatInterval)
			s.log.Debug("heartbeat started", "interval", c.cfg.HeartbeatInterval)
		}
	}
	return monitor.ActionNone
}

func (c *Client) handleNotification(s *session, payload []byte) monitor.Action {
	n, err := protocol.ParseNotification(payload)
	if err != nil {
		// Frame boundaries are intact, so the stream is still usable.
		c.metrics.DecodeError("notification")
		s.log.Warn("bad notification", "err", err, "size", len(payload))
		return monitor.ActionNone
	}

	if n.Cmd == protocol.CmdNotice && s.log.Enabled(context.Background(), slog.LevelDebug) {
		var notice protocol.Notice
		if n.Decode(&notice) == nil {
			s.log.Debug("notice", "msg_type", notice.MsgType, "real_room", notice.RealRoomID, "text", notice.MsgCommon)
		}
	} else {
		s.log.Debug("notification", "cmd", n.Cmd)
	}
	act, err := monitor.Route(c.interp, c.cfg.RoomID, n)
	if err != nil {
		c.metrics.DecodeError("notification")
		s.log.Warn("bad notification body", "cmd", n.Cmd, "err", err)
		return monitor.ActionNone
	}
	if act == monitor.ActionClose {
		s.log.Info("monitor requested close", "cmd", n.Cmd)
	}
	return act
}
