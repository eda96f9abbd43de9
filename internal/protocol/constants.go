package protocol

// Wire format version carried in every header.
const Version = 1

// Header: [4B total_length][2B header_length][2B version][4B op][4B sequence],
// all big-endian. total_length includes the header.
const HeaderSize = 16

// Sequence is the fixed sequence/app-id field written on outgoing frames.
const Sequence = 1

// Maximum total frame size (16 MB).
const MaxFrameSize = 16 * 1024 * 1024

// Op identifies the kind of a frame.
type Op uint32

const (
	OpHeartbeat    Op = 2 // client -> server, empty payload
	OpNotification Op = 5 // server -> client, JSON payload
	OpHandshake    Op = 7 // client -> server, JSON {"roomid","uid"}
	OpHeartbeatAck Op = 8 // server -> client
)

func (o Op) String() string {
	switch o {
	case OpHeartbeat:
		return "heartbeat"
	case OpNotification:
		return "notification"
	case OpHandshake:
		return "handshake"
	case OpHeartbeatAck:
		return "heartbeat_ack"
	default:
		return "unknown"
	}
}

// Notification commands understood by the monitors.
const (
	CmdNotice     = "NOTICE_MSG"
	CmdPreparing  = "PREPARING"
	CmdRoomChange = "ROOM_CHANGE"
)
