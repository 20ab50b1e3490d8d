package orchestrator

import "context"

// EventType names an event emitted by a transport handle.
type EventType string

const (
	EventJoined            EventType = "joined-meeting"
	EventLeft              EventType = "left-meeting"
	EventError             EventType = "error"
	EventParticipantCounts EventType = "participant-counts-updated"
)

// Event is one notification from a transport handle. Message is set for
// EventError; Present is set for EventParticipantCounts.
type Event struct {
	Type    EventType
	Message string
	Present int
}

type Handler func(Event)

type JoinOptions struct {
	URL      string
	Token    string
	UserName string
}

// Transport is a live, joinable call handle owned by exactly one
// Orchestrator. Destroy must be safe to call more than once.
type Transport interface {
	Join(ctx context.Context, opts JoinOptions) error
	Leave(ctx context.Context) error
	Destroy()
	SetLocalAudio(enabled bool) error
	SetLocalVideo(enabled bool) error
	StartScreenShare(ctx context.Context) error
	StopScreenShare(ctx context.Context) error
	On(typ EventType, h Handler)
}

// Attacher constructs a transport handle bound to a mount point. It returns
// an error matching ErrMountUnavailable when nothing is mounted there.
type Attacher interface {
	Attach(ctx context.Context, mount string) (Transport, error)
}
