package framews

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	ws "nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"humming/meet/internal/logger"
	"humming/meet/internal/orchestrator"
)

const (
	commandTimeout = 30 * time.Second
	notifyTimeout  = 5 * time.Second
)

var (
	ErrHostGone = errors.New("frame host disconnected")
	ErrDetached = errors.New("frame detached")
)

// Host is one connected frame host serving a mount point. It owns at most one
// Frame at a time.
type Host struct {
	mount   string
	conn    *ws.Conn
	journal orchestrator.Journal
	log     *zap.Logger
	seq     atomic.Int64

	mu      sync.Mutex
	pending map[string]chan error
	frame   *Frame
	gone    chan struct{}
	once    sync.Once
}

func NewHost(mount string, c *ws.Conn, j orchestrator.Journal) *Host {
	return &Host{
		mount:   mount,
		conn:    c,
		journal: j,
		log:     logger.L().With(zap.String("mount", mount)),
		pending: make(map[string]chan error),
		gone:    make(chan struct{}),
	}
}

// NewFrame returns a fresh frame on this host, detaching any previous one.
func (h *Host) NewFrame() (*Frame, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	select {
	case <-h.gone:
		return nil, ErrHostGone
	default:
	}
	if h.frame != nil {
		h.frame.detach()
	}
	f := &Frame{host: h, handlers: make(map[orchestrator.EventType][]orchestrator.Handler)}
	h.frame = f
	return f, nil
}

func (h *Host) release(f *Frame) {
	h.mu.Lock()
	if h.frame == f {
		h.frame = nil
	}
	h.mu.Unlock()
}

func (h *Host) write(ctx context.Context, typ, cmdID string, payload map[string]any) error {
	msg := Message{
		Type:      typ,
		TsMs:      time.Now().UnixMilli(),
		Mount:     h.mount,
		Seq:       h.seq.Add(1),
		CommandID: cmdID,
		Payload:   payload,
	}
	if err := wsjson.Write(ctx, h.conn, msg); err != nil {
		select {
		case <-h.gone:
			return ErrHostGone
		default:
		}
		return err
	}
	return nil
}

// command sends typ and waits for the host's acknowledgement.
func (h *Host) command(ctx context.Context, typ string, payload map[string]any) error {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	id := uuid.NewString()
	ack := make(chan error, 1)
	h.mu.Lock()
	select {
	case <-h.gone:
		h.mu.Unlock()
		return ErrHostGone
	default:
	}
	h.pending[id] = ack
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		delete(h.pending, id)
		h.mu.Unlock()
	}()

	if err := h.write(ctx, typ, id, payload); err != nil {
		return err
	}
	metricCommands.WithLabelValues(typ).Inc()
	select {
	case err := <-ack:
		return err
	case <-h.gone:
		return ErrHostGone
	case <-ctx.Done():
		return ctx.Err()
	}
}

// notify sends typ without waiting for an acknowledgement.
func (h *Host) notify(typ string, payload map[string]any) error {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	if err := h.write(ctx, typ, "", payload); err != nil {
		return err
	}
	metricCommands.WithLabelValues(typ).Inc()
	return nil
}

// Serve reads from the host until the connection ends, routing
// acknowledgements to waiting commands and call events to the current frame.
func (h *Host) Serve(ctx context.Context) error {
	defer h.shutdown()
	for {
		var msg Message
		if err := wsjson.Read(ctx, h.conn, &msg); err != nil {
			if ws.CloseStatus(err) != -1 || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		h.handle(msg)
	}
}

func (h *Host) handle(msg Message) {
	payload := msg.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	switch msg.Type {
	case TypeAck:
		h.mu.Lock()
		ack := h.pending[msg.CommandID]
		h.mu.Unlock()
		if ack == nil {
			h.log.Debug("ack for unknown command", zap.String("command_id", msg.CommandID))
			return
		}
		var err error
		if s := payloadString(payload, "error"); s != "" {
			err = errors.New(s)
		}
		select {
		case ack <- err:
		default:
			h.log.Debug("duplicate ack", zap.String("command_id", msg.CommandID))
		}
		return
	case string(orchestrator.EventJoined), string(orchestrator.EventLeft):
		h.dispatch(orchestrator.Event{Type: orchestrator.EventType(msg.Type)})
	case string(orchestrator.EventError):
		h.dispatch(orchestrator.Event{Type: orchestrator.EventError, Message: payloadString(payload, "errorMsg")})
	case string(orchestrator.EventParticipantCounts):
		h.dispatch(orchestrator.Event{Type: orchestrator.EventParticipantCounts, Present: payloadInt(payload, "present")})
	default:
		h.log.Debug("unhandled frame message", zap.String("type", msg.Type))
	}
	if h.journal != nil {
		payload["seq"] = msg.Seq
		h.journal.AppendEvent(h.mount, "frame_"+msg.Type, payload)
	}
}

func (h *Host) dispatch(ev orchestrator.Event) {
	h.mu.Lock()
	f := h.frame
	h.mu.Unlock()
	metricEvents.WithLabelValues(string(ev.Type)).Inc()
	if f != nil {
		f.dispatch(ev)
	}
}

// shutdown fails pending commands and tells the current frame the host is
// gone.
func (h *Host) shutdown() {
	h.once.Do(func() {
		h.mu.Lock()
		close(h.gone)
		f := h.frame
		h.frame = nil
		h.mu.Unlock()
		if f != nil {
			f.dispatch(orchestrator.Event{Type: orchestrator.EventError, Message: ErrHostGone.Error()})
			f.detach()
		}
	})
}

// Close closes the connection with reason.
func (h *Host) Close(reason string) {
	_ = h.conn.Close(ws.StatusNormalClosure, reason)
	h.shutdown()
}
