package orchestrator

type Status string

const (
	StatusIdle    Status = "idle"
	StatusJoining Status = "joining"
	StatusJoined  Status = "joined"
	StatusLeaving Status = "leaving"
	StatusError   Status = "error"
)

// Session is a point-in-time copy of the orchestrator's call state.
type Session struct {
	Status           Status `json:"status"`
	Error            string `json:"error,omitempty"`
	ParticipantCount int    `json:"participantCount"`
	IsMuted          bool   `json:"isMuted"`
	IsVideoOff       bool   `json:"isVideoOff"`
	IsScreenSharing  bool   `json:"isScreenSharing"`
	RoomID           string `json:"roomId,omitempty"`
	RoomName         string `json:"roomName,omitempty"`
	RoomURL          string `json:"roomUrl,omitempty"`
	UserName         string `json:"userName,omitempty"`
}

func newSession() Session {
	return Session{Status: StatusIdle, ParticipantCount: 1}
}

// attachLocked stores the handle for a new generation. Callers hold o.mu.
func (o *Orchestrator) attachLocked(t Transport) {
	o.handle = t
	metricActiveHandles.Inc()
}

// detachLocked forgets the current handle and bumps the generation so events
// from it are ignored. The caller destroys the returned handle after
// releasing o.mu.
func (o *Orchestrator) detachLocked() Transport {
	h := o.handle
	if h != nil {
		o.handle = nil
		metricActiveHandles.Dec()
	}
	o.gen++
	return h
}

func (o *Orchestrator) resetMediaLocked() {
	o.sess.IsMuted = false
	o.sess.IsVideoOff = false
	o.sess.IsScreenSharing = false
	o.sess.ParticipantCount = 1
}
