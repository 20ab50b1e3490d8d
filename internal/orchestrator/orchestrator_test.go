package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"humming/meet/internal/daily"
	"humming/meet/internal/daily/dailytest"
	"humming/meet/internal/rooms"
	"humming/meet/internal/store"
	"humming/meet/internal/tokens"
)

type mockRooms struct{ mock.Mock }

func (m *mockRooms) EnsureRoom(ctx context.Context, raw string) (*daily.Room, error) {
	args := m.Called(ctx, raw)
	room, _ := args.Get(0).(*daily.Room)
	return room, args.Error(1)
}

type mockTokens struct{ mock.Mock }

func (m *mockTokens) IssueToken(ctx context.Context, roomName, userName string, isOwner bool) (*tokens.AccessToken, error) {
	args := m.Called(ctx, roomName, userName, isOwner)
	tok, _ := args.Get(0).(*tokens.AccessToken)
	return tok, args.Error(1)
}

// fakeTransport records commands and lets tests emit events.
type fakeTransport struct {
	mu          sync.Mutex
	handlers    map[EventType][]Handler
	joins       []JoinOptions
	joinErr     error
	onJoin      func(f *fakeTransport)
	handlersAtJ int
	audio       []bool
	video       []bool
	audioErr    error
	videoErr    error
	shareErr    error
	shareGate   chan struct{}
	shares      []string
	leaves      int
	destroyed   int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{handlers: make(map[EventType][]Handler)}
}

func (f *fakeTransport) Join(ctx context.Context, opts JoinOptions) error {
	f.mu.Lock()
	f.joins = append(f.joins, opts)
	f.handlersAtJ = len(f.handlers)
	hook, err := f.onJoin, f.joinErr
	f.mu.Unlock()
	if hook != nil {
		hook(f)
	}
	return err
}

func (f *fakeTransport) Leave(ctx context.Context) error {
	f.mu.Lock()
	f.leaves++
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) Destroy() {
	f.mu.Lock()
	f.destroyed++
	f.mu.Unlock()
}

func (f *fakeTransport) SetLocalAudio(enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.audioErr != nil {
		return f.audioErr
	}
	f.audio = append(f.audio, enabled)
	return nil
}

func (f *fakeTransport) SetLocalVideo(enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.videoErr != nil {
		return f.videoErr
	}
	f.video = append(f.video, enabled)
	return nil
}

func (f *fakeTransport) share(ctx context.Context, dir string) error {
	f.mu.Lock()
	gate, err := f.shareGate, f.shareErr
	f.shares = append(f.shares, dir)
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return err
}

func (f *fakeTransport) StartScreenShare(ctx context.Context) error { return f.share(ctx, "start") }
func (f *fakeTransport) StopScreenShare(ctx context.Context) error  { return f.share(ctx, "stop") }

func (f *fakeTransport) On(typ EventType, h Handler) {
	f.mu.Lock()
	f.handlers[typ] = append(f.handlers[typ], h)
	f.mu.Unlock()
}

func (f *fakeTransport) emit(ev Event) {
	f.mu.Lock()
	hs := append([]Handler(nil), f.handlers[ev.Type]...)
	f.mu.Unlock()
	for _, h := range hs {
		h(ev)
	}
}

func (f *fakeTransport) destroyCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.destroyed
}

type fakeAttacher struct {
	mu      sync.Mutex
	next    []*fakeTransport
	mounts  []string
	missing bool
}

func (a *fakeAttacher) Attach(ctx context.Context, mount string) (Transport, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.mounts = append(a.mounts, mount)
	if a.missing || len(a.next) == 0 {
		return nil, ErrMountUnavailable
	}
	t := a.next[0]
	a.next = a.next[1:]
	return t, nil
}

func (a *fakeAttacher) calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.mounts)
}

func demoRoom() *daily.Room {
	return &daily.Room{Name: "demo", URL: "https://acme.daily.co/demo"}
}

func demoToken() *tokens.AccessToken {
	return &tokens.AccessToken{Token: "tok", RoomName: "demo", RoomURL: "https://acme.daily.co/demo", UserName: "alice"}
}

func newTestOrchestrator(t *testing.T, r RoomProvisioner, tk TokenIssuer, transports ...*fakeTransport) (*Orchestrator, *fakeAttacher) {
	t.Helper()
	a := &fakeAttacher{next: transports}
	o := New(Options{Rooms: r, Tokens: tk, Attacher: a, Mount: "call-container"})
	t.Cleanup(o.Close)
	return o, a
}

func waitStatus(t *testing.T, o *Orchestrator, want Status) {
	t.Helper()
	require.Eventually(t, func() bool { return o.Snapshot().Status == want }, time.Second, 5*time.Millisecond,
		"status never became %s (is %s)", want, o.Snapshot().Status)
}

// joined returns an orchestrator whose session is Joined on ft.
func joined(t *testing.T, ft *fakeTransport) *Orchestrator {
	t.Helper()
	r := new(mockRooms)
	r.On("EnsureRoom", mock.Anything, "demo").Return(demoRoom(), nil)
	tk := new(mockTokens)
	tk.On("IssueToken", mock.Anything, "demo", "alice", false).Return(demoToken(), nil)
	ft.onJoin = func(f *fakeTransport) { f.emit(Event{Type: EventJoined}) }

	o, _ := newTestOrchestrator(t, r, tk, ft)
	require.NoError(t, o.Join(context.Background(), "demo", "alice"))
	waitStatus(t, o, StatusJoined)
	return o
}

func TestNewSessionIsIdle(t *testing.T) {
	o, _ := newTestOrchestrator(t, new(mockRooms), new(mockTokens))
	s := o.Snapshot()
	assert.Equal(t, StatusIdle, s.Status)
	assert.Equal(t, 1, s.ParticipantCount)
	assert.False(t, s.IsMuted || s.IsVideoOff || s.IsScreenSharing)
}

func TestJoinTeamSyncScenario(t *testing.T) {
	c := new(dailytest.MockClient)
	c.On("CreateRoom", mock.Anything, "team-sync", mock.Anything).
		Return(&daily.Room{Name: "team-sync", URL: "https://acme.daily.co/team-sync"}, nil)
	c.On("CreateMeetingToken", mock.Anything, mock.MatchedBy(func(p daily.TokenProperties) bool {
		return p.RoomName == "team-sync" && p.UserName == "Bob" && !p.IsOwner
	})).Return(&daily.MeetingToken{Token: "tok-bob"}, nil)

	ft := newFakeTransport()
	journal := store.New()
	a := &fakeAttacher{next: []*fakeTransport{ft}}
	o := New(Options{
		Rooms:    rooms.NewService(c, daily.DefaultPolicy()),
		Tokens:   tokens.NewService(c, daily.DefaultPolicy(), "acme"),
		Attacher: a,
		Journal:  journal,
		Mount:    "call-container",
	})
	t.Cleanup(o.Close)

	require.NoError(t, o.Join(context.Background(), "Team Sync!!", "Bob"))
	assert.Equal(t, StatusJoining, o.Snapshot().Status, "only a transport event may set Joined")

	require.Len(t, ft.joins, 1)
	assert.True(t, strings.HasSuffix(ft.joins[0].URL, "/team-sync"))
	assert.Equal(t, "tok-bob", ft.joins[0].Token)
	assert.Equal(t, "Bob", ft.joins[0].UserName)
	assert.Equal(t, 4, ft.handlersAtJ, "listeners registered before join")
	assert.Equal(t, []string{"call-container"}, a.mounts)

	ft.emit(Event{Type: EventJoined})
	waitStatus(t, o, StatusJoined)

	s := o.Snapshot()
	assert.Equal(t, "team-sync", s.RoomName)
	assert.Equal(t, "Team Sync!!", s.RoomID)
	assert.Equal(t, "Bob", s.UserName)
	assert.Empty(t, s.Error)

	var seen []string
	for _, ev := range journal.ListEvents("call-container") {
		seen = append(seen, ev.Payload["to"].(string))
	}
	assert.Equal(t, []string{"joining", "joined"}, seen)
	c.AssertExpectations(t)
}

func TestJoinWhileJoiningIsRejected(t *testing.T) {
	release := make(chan struct{})
	r := new(mockRooms)
	r.On("EnsureRoom", mock.Anything, "demo").
		Run(func(mock.Arguments) { <-release }).
		Return(demoRoom(), nil).Once()
	tk := new(mockTokens)
	tk.On("IssueToken", mock.Anything, "demo", "alice", false).Return(demoToken(), nil).Once()

	o, _ := newTestOrchestrator(t, r, tk, newFakeTransport())

	errc := make(chan error, 1)
	go func() { errc <- o.Join(context.Background(), "demo", "alice") }()
	waitStatus(t, o, StatusJoining)

	err := o.Join(context.Background(), "demo", "alice")
	assert.ErrorIs(t, err, ErrJoinInProgress)

	close(release)
	require.NoError(t, <-errc)
	r.AssertNumberOfCalls(t, "EnsureRoom", 1)
	tk.AssertNumberOfCalls(t, "IssueToken", 1)
}

func TestJoinWhileJoinedIsRejected(t *testing.T) {
	o := joined(t, newFakeTransport())
	assert.ErrorIs(t, o.Join(context.Background(), "demo", "alice"), ErrAlreadyJoined)
}

func TestJoinRoomFailure(t *testing.T) {
	r := new(mockRooms)
	r.On("EnsureRoom", mock.Anything, "demo").
		Return(nil, &rooms.ProvisioningError{Name: "demo", Err: errors.New("authorization-error")})
	tk := new(mockTokens)

	o, a := newTestOrchestrator(t, r, tk)
	err := o.Join(context.Background(), "demo", "alice")

	var pe *rooms.ProvisioningError
	require.ErrorAs(t, err, &pe)
	s := o.Snapshot()
	assert.Equal(t, StatusError, s.Status)
	assert.Equal(t, "authorization-error", s.Error)
	tk.AssertNotCalled(t, "IssueToken", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.Zero(t, a.calls())
}

func TestJoinToleratesSoftRoomError(t *testing.T) {
	r := new(mockRooms)
	r.On("EnsureRoom", mock.Anything, "demo").
		Return(&daily.Room{Name: "demo"}, errors.New("partial response"))
	tk := new(mockTokens)
	tk.On("IssueToken", mock.Anything, "demo", "alice", false).Return(demoToken(), nil)
	ft := newFakeTransport()

	o, _ := newTestOrchestrator(t, r, tk, ft)
	require.NoError(t, o.Join(context.Background(), "demo", "alice"))
	assert.Equal(t, StatusJoining, o.Snapshot().Status)
	require.Len(t, ft.joins, 1)
}

func TestJoinMissingToken(t *testing.T) {
	r := new(mockRooms)
	r.On("EnsureRoom", mock.Anything, "demo").Return(demoRoom(), nil)
	tk := new(mockTokens)
	tk.On("IssueToken", mock.Anything, "demo", "alice", false).Return(&tokens.AccessToken{}, nil)

	o, a := newTestOrchestrator(t, r, tk)
	err := o.Join(context.Background(), "demo", "alice")

	assert.ErrorIs(t, err, ErrNoToken)
	s := o.Snapshot()
	assert.Equal(t, StatusError, s.Status)
	assert.Equal(t, "no token obtained", s.Error)
	assert.Zero(t, a.calls())
}

func TestJoinEmptyProviderTokenIsNoToken(t *testing.T) {
	c := new(dailytest.MockClient)
	c.On("CreateRoom", mock.Anything, "demo", mock.Anything).Return(demoRoom(), nil)
	c.On("CreateMeetingToken", mock.Anything, mock.Anything).Return(&daily.MeetingToken{Token: ""}, nil)

	a := &fakeAttacher{}
	o := New(Options{
		Rooms:    rooms.NewService(c, daily.DefaultPolicy()),
		Tokens:   tokens.NewService(c, daily.DefaultPolicy(), "acme"),
		Attacher: a,
		Mount:    "call-container",
	})
	t.Cleanup(o.Close)

	err := o.Join(context.Background(), "demo", "alice")
	assert.ErrorIs(t, err, ErrNoToken)
	s := o.Snapshot()
	assert.Equal(t, StatusError, s.Status)
	assert.Equal(t, "no token obtained", s.Error)
	assert.Zero(t, a.calls())
}

func TestJoinTokenFailureKeepsProviderMessage(t *testing.T) {
	r := new(mockRooms)
	r.On("EnsureRoom", mock.Anything, "demo").Return(demoRoom(), nil)
	tk := new(mockTokens)
	tk.On("IssueToken", mock.Anything, "demo", "alice", false).
		Return(nil, &tokens.IssuanceError{RoomName: "demo", Err: &daily.APIError{Status: 400, Info: "room demo not found"}})

	o, _ := newTestOrchestrator(t, r, tk)
	err := o.Join(context.Background(), "demo", "alice")

	var ie *tokens.IssuanceError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "room demo not found", o.Snapshot().Error)
}

func TestJoinMountUnavailable(t *testing.T) {
	r := new(mockRooms)
	r.On("EnsureRoom", mock.Anything, "demo").Return(demoRoom(), nil)
	tk := new(mockTokens)
	tk.On("IssueToken", mock.Anything, "demo", "alice", false).Return(demoToken(), nil)

	o, _ := newTestOrchestrator(t, r, tk)
	err := o.Join(context.Background(), "demo", "alice")

	var ae *AttachError
	require.ErrorAs(t, err, &ae)
	assert.ErrorIs(t, err, ErrMountUnavailable)
	assert.Equal(t, StatusError, o.Snapshot().Status)
	assert.Contains(t, o.Snapshot().Error, "call-container")
}

func TestJoinTransportRejection(t *testing.T) {
	r := new(mockRooms)
	r.On("EnsureRoom", mock.Anything, "demo").Return(demoRoom(), nil)
	tk := new(mockTokens)
	tk.On("IssueToken", mock.Anything, "demo", "alice", false).Return(demoToken(), nil)
	ft := newFakeTransport()
	ft.joinErr = errors.New("meeting token expired")

	o, _ := newTestOrchestrator(t, r, tk, ft)
	err := o.Join(context.Background(), "demo", "alice")

	var ae *AttachError
	require.ErrorAs(t, err, &ae)
	s := o.Snapshot()
	assert.Equal(t, StatusError, s.Status)
	assert.Equal(t, "meeting token expired", s.Error)
	assert.Equal(t, 1, ft.destroyCount())

	// a late event from the rejected handle changes nothing
	ft.emit(Event{Type: EventJoined})
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, StatusError, o.Snapshot().Status)
}

func TestRetryFromErrorDestroysStaleHandle(t *testing.T) {
	r := new(mockRooms)
	r.On("EnsureRoom", mock.Anything, "demo").Return(demoRoom(), nil)
	tk := new(mockTokens)
	tk.On("IssueToken", mock.Anything, "demo", "alice", false).Return(demoToken(), nil)
	first, second := newFakeTransport(), newFakeTransport()

	o, _ := newTestOrchestrator(t, r, tk, first, second)
	require.NoError(t, o.Join(context.Background(), "demo", "alice"))
	first.emit(Event{Type: EventJoined})
	waitStatus(t, o, StatusJoined)
	first.emit(Event{Type: EventError, Message: "network lost"})
	waitStatus(t, o, StatusError)

	require.NoError(t, o.Join(context.Background(), "demo", "alice"))
	assert.Equal(t, 1, first.destroyCount())

	first.emit(Event{Type: EventJoined})
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, StatusJoining, o.Snapshot().Status, "events from the old handle are ignored")

	second.emit(Event{Type: EventJoined})
	waitStatus(t, o, StatusJoined)
}

func TestErrorEventWhileJoined(t *testing.T) {
	ft := newFakeTransport()
	o := joined(t, ft)

	ft.emit(Event{Type: EventError, Message: "Meeting ended due to ejection"})
	waitStatus(t, o, StatusError)
	assert.Equal(t, "Meeting ended due to ejection", o.Snapshot().Error)
}

func TestErrorEventWithoutMessage(t *testing.T) {
	ft := newFakeTransport()
	o := joined(t, ft)

	ft.emit(Event{Type: EventError})
	waitStatus(t, o, StatusError)
	assert.Equal(t, defaultErrorMessage, o.Snapshot().Error)
}

func TestErrorThenJoinedEvent(t *testing.T) {
	ft := newFakeTransport()
	o := joined(t, ft)

	ft.emit(Event{Type: EventError, Message: "reconnecting"})
	waitStatus(t, o, StatusError)
	ft.emit(Event{Type: EventJoined})
	waitStatus(t, o, StatusJoined)
	assert.Empty(t, o.Snapshot().Error)
}

func TestParticipantCounts(t *testing.T) {
	ft := newFakeTransport()
	o := joined(t, ft)

	ft.emit(Event{Type: EventParticipantCounts, Present: 4})
	require.Eventually(t, func() bool { return o.Snapshot().ParticipantCount == 4 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, StatusJoined, o.Snapshot().Status)

	ft.emit(Event{Type: EventParticipantCounts, Present: 0})
	require.Eventually(t, func() bool { return o.Snapshot().ParticipantCount == 1 }, time.Second, 5*time.Millisecond)
}

func TestProviderInitiatedLeft(t *testing.T) {
	ft := newFakeTransport()
	o := joined(t, ft)

	ft.emit(Event{Type: EventLeft})
	waitStatus(t, o, StatusIdle)
	require.Eventually(t, func() bool { return ft.destroyCount() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, o.Leave(context.Background()), "leave without a handle is a no-op")
}

func TestLeftWhileJoiningAbortsJoin(t *testing.T) {
	r := new(mockRooms)
	r.On("EnsureRoom", mock.Anything, "demo").Return(demoRoom(), nil)
	tk := new(mockTokens)
	tk.On("IssueToken", mock.Anything, "demo", "alice", false).Return(demoToken(), nil)
	ft := newFakeTransport()

	o, _ := newTestOrchestrator(t, r, tk, ft)
	ft.onJoin = func(f *fakeTransport) {
		f.emit(Event{Type: EventLeft})
		require.Eventually(t, func() bool { return f.destroyCount() == 1 }, time.Second, 5*time.Millisecond)
	}

	err := o.Join(context.Background(), "demo", "alice")
	assert.ErrorIs(t, err, ErrJoinAborted)
	assert.NotErrorIs(t, err, ErrClosed)
	assert.Equal(t, StatusIdle, o.Snapshot().Status)
}

func TestLeave(t *testing.T) {
	ft := newFakeTransport()
	o := joined(t, ft)
	_, err := o.ToggleMute()
	require.NoError(t, err)

	require.NoError(t, o.Leave(context.Background()))

	s := o.Snapshot()
	assert.Equal(t, StatusIdle, s.Status)
	assert.False(t, s.IsMuted)
	assert.Equal(t, 1, ft.leaves)
	assert.Equal(t, 1, ft.destroyCount())
}

func TestLeaveWhenIdleIsNoop(t *testing.T) {
	o, _ := newTestOrchestrator(t, new(mockRooms), new(mockTokens))
	require.NoError(t, o.Leave(context.Background()))
	assert.Equal(t, StatusIdle, o.Snapshot().Status)
}

func TestToggleMuteAndVideo(t *testing.T) {
	ft := newFakeTransport()
	o := joined(t, ft)

	muted, err := o.ToggleMute()
	require.NoError(t, err)
	assert.True(t, muted)
	muted, err = o.ToggleMute()
	require.NoError(t, err)
	assert.False(t, muted)
	assert.Equal(t, []bool{false, true}, ft.audio)

	off, err := o.ToggleVideo()
	require.NoError(t, err)
	assert.True(t, off)
	assert.Equal(t, []bool{false}, ft.video)
	assert.True(t, o.Snapshot().IsVideoOff)
}

func TestTogglesRequireJoined(t *testing.T) {
	o, _ := newTestOrchestrator(t, new(mockRooms), new(mockTokens))

	_, err := o.ToggleMute()
	assert.ErrorIs(t, err, ErrNotJoined)
	_, err = o.ToggleVideo()
	assert.ErrorIs(t, err, ErrNotJoined)
	_, err = o.ToggleScreenShare(context.Background())
	assert.ErrorIs(t, err, ErrNotJoined)
	assert.False(t, o.Snapshot().IsMuted)
}

func TestCommandsRejectedWhileJoining(t *testing.T) {
	r := new(mockRooms)
	r.On("EnsureRoom", mock.Anything, "demo").Return(demoRoom(), nil)
	tk := new(mockTokens)
	tk.On("IssueToken", mock.Anything, "demo", "alice", false).Return(demoToken(), nil)
	gate := make(chan struct{})
	ft := newFakeTransport()
	ft.onJoin = func(*fakeTransport) { <-gate }

	o, _ := newTestOrchestrator(t, r, tk, ft)
	errc := make(chan error, 1)
	go func() { errc <- o.Join(context.Background(), "demo", "alice") }()
	require.Eventually(t, func() bool {
		ft.mu.Lock()
		defer ft.mu.Unlock()
		return len(ft.joins) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, StatusJoining, o.Snapshot().Status)

	_, err := o.ToggleMute()
	assert.ErrorIs(t, err, ErrNotJoined)
	_, err = o.ToggleVideo()
	assert.ErrorIs(t, err, ErrNotJoined)
	_, err = o.ToggleScreenShare(context.Background())
	assert.ErrorIs(t, err, ErrNotJoined)
	assert.ErrorIs(t, o.Leave(context.Background()), ErrNotJoined)

	ft.mu.Lock()
	assert.Empty(t, ft.audio)
	assert.Empty(t, ft.video)
	assert.Empty(t, ft.shares)
	assert.Zero(t, ft.leaves)
	ft.mu.Unlock()

	close(gate)
	require.NoError(t, <-errc)
	assert.Equal(t, StatusJoining, o.Snapshot().Status)
}

func TestMediaToggleFailureKeepsFlags(t *testing.T) {
	ft := newFakeTransport()
	o := joined(t, ft)
	ft.mu.Lock()
	ft.audioErr = errors.New("audio device busy")
	ft.videoErr = errors.New("camera unavailable")
	ft.mu.Unlock()

	muted, err := o.ToggleMute()
	assert.EqualError(t, err, "audio device busy")
	assert.False(t, muted)
	off, err := o.ToggleVideo()
	assert.EqualError(t, err, "camera unavailable")
	assert.False(t, off)

	s := o.Snapshot()
	assert.False(t, s.IsMuted)
	assert.False(t, s.IsVideoOff)
	assert.Equal(t, StatusJoined, s.Status)
}

func TestToggleScreenShare(t *testing.T) {
	ft := newFakeTransport()
	o := joined(t, ft)

	on, err := o.ToggleScreenShare(context.Background())
	require.NoError(t, err)
	assert.True(t, on)
	on, err = o.ToggleScreenShare(context.Background())
	require.NoError(t, err)
	assert.False(t, on)
	assert.Equal(t, []string{"start", "stop"}, ft.shares)
}

func TestToggleScreenShareFailureKeepsFlag(t *testing.T) {
	ft := newFakeTransport()
	o := joined(t, ft)
	ft.shareErr = errors.New("permission denied")

	on, err := o.ToggleScreenShare(context.Background())
	require.Error(t, err)
	assert.False(t, on)
	assert.False(t, o.Snapshot().IsScreenSharing)
}

func TestToggleScreenShareRejectsConcurrent(t *testing.T) {
	ft := newFakeTransport()
	o := joined(t, ft)
	ft.shareGate = make(chan struct{})

	done := make(chan bool, 1)
	go func() {
		on, _ := o.ToggleScreenShare(context.Background())
		done <- on
	}()
	require.Eventually(t, func() bool {
		ft.mu.Lock()
		defer ft.mu.Unlock()
		return len(ft.shares) == 1
	}, time.Second, 5*time.Millisecond)

	_, err := o.ToggleScreenShare(context.Background())
	assert.ErrorIs(t, err, ErrCommandInFlight)
	assert.False(t, o.Snapshot().IsScreenSharing, "flag unchanged while command in flight")

	close(ft.shareGate)
	assert.True(t, <-done)
	assert.True(t, o.Snapshot().IsScreenSharing)
}

func TestCloseDestroysHandle(t *testing.T) {
	ft := newFakeTransport()
	o := joined(t, ft)

	o.Close()
	assert.Equal(t, 1, ft.destroyCount())
	assert.Equal(t, StatusIdle, o.Snapshot().Status)
	select {
	case <-o.Done():
	default:
		t.Fatal("done not closed")
	}

	o.Close()
	assert.Equal(t, 1, ft.destroyCount())
	assert.ErrorIs(t, o.Join(context.Background(), "demo", "alice"), ErrClosed)
}

func TestCloseDuringJoin(t *testing.T) {
	release := make(chan struct{})
	r := new(mockRooms)
	r.On("EnsureRoom", mock.Anything, "demo").
		Run(func(mock.Arguments) { <-release }).
		Return(demoRoom(), nil)
	tk := new(mockTokens)
	ft := newFakeTransport()

	o, a := newTestOrchestrator(t, r, tk, ft)
	errc := make(chan error, 1)
	go func() { errc <- o.Join(context.Background(), "demo", "alice") }()
	waitStatus(t, o, StatusJoining)

	o.Close()
	tk.On("IssueToken", mock.Anything, "demo", "alice", false).Return(demoToken(), nil)
	close(release)

	assert.ErrorIs(t, <-errc, ErrClosed)
	assert.Equal(t, StatusIdle, o.Snapshot().Status)
	if a.calls() > 0 {
		assert.Equal(t, 1, ft.destroyCount())
	}
}

func TestSubscribe(t *testing.T) {
	ft := newFakeTransport()
	o := joined(t, ft)

	ch, cancel := o.Subscribe()
	defer cancel()
	first := <-ch
	assert.Equal(t, StatusJoined, first.Status)

	ft.emit(Event{Type: EventParticipantCounts, Present: 3})
	require.Eventually(t, func() bool {
		select {
		case s := <-ch:
			return s.ParticipantCount == 3
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)

	o.Close()
	_, ok := <-ch
	for ok {
		_, ok = <-ch
	}
}
