package orchestrator

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"humming/meet/internal/daily"
	"humming/meet/internal/logger"
	"humming/meet/internal/rooms"
	"humming/meet/internal/store"
	"humming/meet/internal/tokens"
)

const defaultErrorMessage = "Connection error"

type RoomProvisioner interface {
	EnsureRoom(ctx context.Context, raw string) (*daily.Room, error)
}

type TokenIssuer interface {
	IssueToken(ctx context.Context, roomName, userName string, isOwner bool) (*tokens.AccessToken, error)
}

// Journal records session activity. It may be nil.
type Journal interface {
	AppendEvent(sessionID, typ string, payload map[string]any) store.Event
}

type Options struct {
	Rooms    RoomProvisioner
	Tokens   TokenIssuer
	Attacher Attacher
	Journal  Journal
	// Mount is the mount point the transport is attached to. It also keys
	// journal entries.
	Mount string
}

type envelope struct {
	gen uint64
	ev  Event
}

// Orchestrator drives one participant's call session: provisioning, token
// issuance, transport attachment, event relay and teardown. Transport events
// are applied on a single goroutine; events from a handle that has since been
// replaced or released are dropped.
type Orchestrator struct {
	rooms    RoomProvisioner
	tokens   TokenIssuer
	attacher Attacher
	journal  Journal
	mount    string
	log      *zap.Logger

	mu        sync.Mutex
	sess      Session
	handle    Transport
	gen       uint64
	shareBusy bool
	closed    bool
	subs      map[chan Session]struct{}

	// serializes mute/video read-modify-write
	cmdMu sync.Mutex

	events chan envelope
	done   chan struct{}
	wg     sync.WaitGroup
}

func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		rooms:    opts.Rooms,
		tokens:   opts.Tokens,
		attacher: opts.Attacher,
		journal:  opts.Journal,
		mount:    opts.Mount,
		log:      logger.L().With(zap.String("mount", opts.Mount)),
		sess:     newSession(),
		subs:     make(map[chan Session]struct{}),
		events:   make(chan envelope, 64),
		done:     make(chan struct{}),
	}
	o.wg.Add(1)
	go o.run()
	return o
}

// Snapshot returns a copy of the current session state.
func (o *Orchestrator) Snapshot() Session {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sess
}

// Subscribe returns a channel that receives the latest session state after
// every change. Slow readers only see the most recent value. The returned
// func unsubscribes.
func (o *Orchestrator) Subscribe() (<-chan Session, func()) {
	ch := make(chan Session, 1)
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	o.subs[ch] = struct{}{}
	ch <- o.sess
	o.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			o.mu.Lock()
			if _, ok := o.subs[ch]; ok {
				delete(o.subs, ch)
				close(ch)
			}
			o.mu.Unlock()
		})
	}
}

// Done is closed once the orchestrator has been closed.
func (o *Orchestrator) Done() <-chan struct{} { return o.done }

// Join provisions the room, mints a token, attaches the transport and starts
// joining. It returns once the transport accepted the join; the session turns
// Joined only when the transport reports it.
func (o *Orchestrator) Join(ctx context.Context, roomID, userName string) error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return ErrClosed
	}
	switch o.sess.Status {
	case StatusIdle, StatusError:
	case StatusJoining:
		o.mu.Unlock()
		return ErrJoinInProgress
	default:
		o.mu.Unlock()
		return ErrAlreadyJoined
	}
	stale := o.detachLocked()
	gen := o.gen
	o.resetMediaLocked()
	o.sess.RoomID = roomID
	o.sess.RoomName, o.sess.RoomURL, o.sess.UserName = "", "", userName
	o.setStatusLocked(StatusJoining, "")
	o.mu.Unlock()

	if stale != nil {
		stale.Destroy()
	}

	log := o.log.With(zap.String("room_id", roomID), zap.String("user", userName))
	log.Info("join started")

	room, err := o.rooms.EnsureRoom(ctx, roomID)
	if err != nil && !usableRoom(room) {
		return o.failJoin(gen, "room", err, nil)
	}
	if err != nil {
		log.Warn("room provisioning reported an error but returned a usable room", zap.Error(err))
	}
	if room == nil {
		return o.failJoin(gen, "room", ErrNoRoom, nil)
	}
	roomName := room.Name
	if roomName == "" {
		roomName = rooms.Normalize(roomID)
	}

	tok, err := o.tokens.IssueToken(ctx, roomName, userName, false)
	if err != nil && !errors.Is(err, tokens.ErrEmptyToken) {
		return o.failJoin(gen, "token", err, nil)
	}
	if err != nil || tok == nil || tok.Token == "" {
		return o.failJoin(gen, "token", ErrNoToken, nil)
	}
	roomURL := tok.RoomURL
	if roomURL == "" {
		roomURL = room.URL
	}

	t, err := o.attacher.Attach(ctx, o.mount)
	if err != nil {
		return o.failJoin(gen, "attach", &AttachError{Mount: o.mount, Err: err}, nil)
	}

	o.mu.Lock()
	if o.closed || o.gen != gen {
		err := o.abortErrLocked()
		o.mu.Unlock()
		t.Destroy()
		metricJoins.WithLabelValues("aborted").Inc()
		return err
	}
	o.attachLocked(t)
	o.sess.RoomName = roomName
	o.sess.RoomURL = roomURL
	o.sess.UserName = tok.UserName
	o.notifyLocked()
	o.mu.Unlock()

	// Listeners go on before Join so no early event is missed.
	h := o.listener(gen)
	for _, typ := range []EventType{EventJoined, EventLeft, EventError, EventParticipantCounts} {
		t.On(typ, h)
	}

	if err := t.Join(ctx, JoinOptions{URL: roomURL, Token: tok.Token, UserName: tok.UserName}); err != nil {
		return o.failJoin(gen, "transport", &AttachError{Mount: o.mount, Err: err}, t)
	}

	o.mu.Lock()
	var aborted error
	if o.closed || o.gen != gen {
		aborted = o.abortErrLocked()
	}
	o.mu.Unlock()
	if aborted != nil {
		metricJoins.WithLabelValues("aborted").Inc()
		return aborted
	}
	metricJoins.WithLabelValues("accepted").Inc()
	log.Info("join accepted", zap.String("room", roomName), zap.String("url", roomURL))
	return nil
}

// failJoin moves a join attempt of generation gen to Error. When t is set it
// is released and destroyed. A join that was superseded leaves state alone.
func (o *Orchestrator) failJoin(gen uint64, step string, err error, t Transport) error {
	o.mu.Lock()
	if o.closed || o.gen != gen {
		aborted := o.abortErrLocked()
		o.mu.Unlock()
		if t != nil {
			t.Destroy()
		}
		metricJoins.WithLabelValues("aborted").Inc()
		return aborted
	}
	var release Transport
	if t != nil && o.handle == t {
		release = o.detachLocked()
	}
	o.setStatusLocked(StatusError, err.Error())
	o.mu.Unlock()

	if release != nil {
		release.Destroy()
	} else if t != nil {
		t.Destroy()
	}
	metricJoins.WithLabelValues(step + "_failed").Inc()
	o.log.Warn("join failed", zap.String("step", step), zap.Error(err))
	return err
}

// abortErrLocked reports why a join attempt was superseded: the orchestrator
// was closed, or its handle was released under it.
func (o *Orchestrator) abortErrLocked() error {
	if o.closed {
		return ErrClosed
	}
	return ErrJoinAborted
}

// Leave leaves the call and releases the transport. It is a no-op without a
// handle and returns ErrNotJoined unless the session is Joined.
func (o *Orchestrator) Leave(ctx context.Context) error {
	o.mu.Lock()
	h := o.handle
	if h == nil {
		o.mu.Unlock()
		return nil
	}
	if o.sess.Status != StatusJoined {
		o.mu.Unlock()
		return ErrNotJoined
	}
	gen := o.gen
	o.setStatusLocked(StatusLeaving, "")
	o.mu.Unlock()

	if err := h.Leave(ctx); err != nil {
		o.log.Warn("transport leave failed", zap.Error(err))
	}
	h.Destroy()

	o.mu.Lock()
	if o.gen == gen {
		o.detachLocked()
		o.resetMediaLocked()
		o.setStatusLocked(StatusIdle, "")
	}
	o.mu.Unlock()
	o.log.Info("left call")
	return nil
}

// activeHandle returns the handle when the session is Joined.
func (o *Orchestrator) activeHandle() (Transport, Session, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.handle == nil || o.sess.Status != StatusJoined {
		return nil, o.sess, ErrNotJoined
	}
	return o.handle, o.sess, nil
}

// ToggleMute flips the local audio state and returns the new muted flag.
func (o *Orchestrator) ToggleMute() (bool, error) {
	o.cmdMu.Lock()
	defer o.cmdMu.Unlock()

	h, sess, err := o.activeHandle()
	if err != nil {
		return sess.IsMuted, err
	}
	// muting disables audio; unmuting enables it
	if err := h.SetLocalAudio(sess.IsMuted); err != nil {
		return sess.IsMuted, err
	}
	return o.setFlag(h, func(s *Session) *bool { return &s.IsMuted }, !sess.IsMuted), nil
}

// ToggleVideo flips the local camera state and returns the new video-off flag.
func (o *Orchestrator) ToggleVideo() (bool, error) {
	o.cmdMu.Lock()
	defer o.cmdMu.Unlock()

	h, sess, err := o.activeHandle()
	if err != nil {
		return sess.IsVideoOff, err
	}
	if err := h.SetLocalVideo(sess.IsVideoOff); err != nil {
		return sess.IsVideoOff, err
	}
	return o.setFlag(h, func(s *Session) *bool { return &s.IsVideoOff }, !sess.IsVideoOff), nil
}

// ToggleScreenShare starts or stops screen sharing. The flag changes only
// after the command succeeds, and a second toggle while one is in flight is
// rejected with ErrCommandInFlight.
func (o *Orchestrator) ToggleScreenShare(ctx context.Context) (bool, error) {
	o.mu.Lock()
	if o.handle == nil || o.sess.Status != StatusJoined {
		cur := o.sess.IsScreenSharing
		o.mu.Unlock()
		return cur, ErrNotJoined
	}
	if o.shareBusy {
		cur := o.sess.IsScreenSharing
		o.mu.Unlock()
		return cur, ErrCommandInFlight
	}
	o.shareBusy = true
	h, sharing := o.handle, o.sess.IsScreenSharing
	o.mu.Unlock()

	var err error
	if sharing {
		err = h.StopScreenShare(ctx)
	} else {
		err = h.StartScreenShare(ctx)
	}

	o.mu.Lock()
	o.shareBusy = false
	o.mu.Unlock()
	if err != nil {
		o.log.Warn("screen share command failed", zap.Bool("stop", sharing), zap.Error(err))
		return sharing, err
	}
	return o.setFlag(h, func(s *Session) *bool { return &s.IsScreenSharing }, !sharing), nil
}

// setFlag stores v if h is still the retained handle and returns the flag's
// resulting value.
func (o *Orchestrator) setFlag(h Transport, field func(*Session) *bool, v bool) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	f := field(&o.sess)
	if o.handle == h && *f != v {
		*f = v
		o.notifyLocked()
	}
	return *f
}

// Close destroys any retained transport handle synchronously and stops event
// processing. It is safe to call more than once.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	h := o.detachLocked()
	o.resetMediaLocked()
	o.setStatusLocked(StatusIdle, "")
	for ch := range o.subs {
		delete(o.subs, ch)
		close(ch)
	}
	o.mu.Unlock()

	if h != nil {
		h.Destroy()
	}
	close(o.done)
	o.wg.Wait()
	o.log.Info("session closed")
}

func (o *Orchestrator) listener(gen uint64) Handler {
	return func(ev Event) {
		select {
		case o.events <- envelope{gen: gen, ev: ev}:
		case <-o.done:
		}
	}
}

func (o *Orchestrator) run() {
	defer o.wg.Done()
	for {
		select {
		case env := <-o.events:
			o.apply(env)
		case <-o.done:
			return
		}
	}
}

func (o *Orchestrator) apply(env envelope) {
	ev := env.ev
	o.mu.Lock()
	if o.closed || env.gen != o.gen || o.handle == nil {
		o.mu.Unlock()
		metricTransportEvents.WithLabelValues(string(ev.Type), "stale").Inc()
		return
	}

	var release Transport
	switch ev.Type {
	case EventJoined:
		switch o.sess.Status {
		case StatusJoining, StatusError, StatusJoined:
			o.setStatusLocked(StatusJoined, "")
		}
	case EventLeft:
		if o.sess.Status != StatusLeaving {
			release = o.detachLocked()
			o.resetMediaLocked()
			o.setStatusLocked(StatusIdle, "")
		}
	case EventError:
		msg := ev.Message
		if msg == "" {
			msg = defaultErrorMessage
		}
		o.setStatusLocked(StatusError, msg)
	case EventParticipantCounts:
		n := ev.Present
		if n < 1 {
			n = 1
		}
		if o.sess.ParticipantCount != n {
			o.sess.ParticipantCount = n
			o.notifyLocked()
		}
	}
	o.mu.Unlock()
	metricTransportEvents.WithLabelValues(string(ev.Type), "applied").Inc()

	if release != nil {
		o.log.Info("transport left the call")
		release.Destroy()
	}
}

// setStatusLocked records a transition. Callers hold o.mu.
func (o *Orchestrator) setStatusLocked(to Status, errMsg string) {
	from := o.sess.Status
	o.sess.Status = to
	o.sess.Error = errMsg
	if from != to {
		metricStateTransitions.WithLabelValues(string(from), string(to)).Inc()
		if o.journal != nil {
			payload := map[string]any{"from": string(from), "to": string(to)}
			if errMsg != "" {
				payload["error"] = errMsg
			}
			o.journal.AppendEvent(o.mount, "status", payload)
		}
	}
	o.notifyLocked()
}

func (o *Orchestrator) notifyLocked() {
	for ch := range o.subs {
		select {
		case <-ch:
		default:
		}
		ch <- o.sess
	}
}

// usableRoom reports whether a room returned alongside an error still
// identifies a room to join.
func usableRoom(r *daily.Room) bool {
	return r != nil && (r.URL != "" || r.Name != "")
}
