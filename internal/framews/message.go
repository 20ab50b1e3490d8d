package framews

// Message is one frame on the frame host websocket, in either direction.
type Message struct {
	Type      string         `json:"type"`
	TsMs      int64          `json:"ts_ms"`
	Mount     string         `json:"mount"`
	Seq       int64          `json:"seq"`
	CommandID string         `json:"command_id,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// Commands sent to the frame host.
const (
	CmdJoin             = "join"
	CmdLeave            = "leave"
	CmdDestroy          = "destroy"
	CmdSetLocalAudio    = "set_local_audio"
	CmdSetLocalVideo    = "set_local_video"
	CmdStartScreenShare = "start_screen_share"
	CmdStopScreenShare  = "stop_screen_share"
)

// TypeAck acknowledges a command; payload.error carries a rejection.
const TypeAck = "cmd_ack"

func payloadString(p map[string]any, key string) string {
	s, _ := p[key].(string)
	return s
}

func payloadInt(p map[string]any, key string) int {
	switch v := p[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	}
	return 0
}
