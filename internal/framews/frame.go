package framews

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"humming/meet/internal/orchestrator"
)

// Frame is a transport handle backed by a frame host.
type Frame struct {
	host *Host

	mu        sync.Mutex
	handlers  map[orchestrator.EventType][]orchestrator.Handler
	detached  bool
	destroyed bool
}

var _ orchestrator.Transport = (*Frame)(nil)

func (f *Frame) On(typ orchestrator.EventType, h orchestrator.Handler) {
	f.mu.Lock()
	f.handlers[typ] = append(f.handlers[typ], h)
	f.mu.Unlock()
}

func (f *Frame) dispatch(ev orchestrator.Event) {
	f.mu.Lock()
	if f.detached {
		f.mu.Unlock()
		return
	}
	hs := append([]orchestrator.Handler(nil), f.handlers[ev.Type]...)
	f.mu.Unlock()
	for _, h := range hs {
		h(ev)
	}
}

func (f *Frame) detach() {
	f.mu.Lock()
	f.detached = true
	f.mu.Unlock()
}

func (f *Frame) usable() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.detached {
		return ErrDetached
	}
	return nil
}

func (f *Frame) Join(ctx context.Context, opts orchestrator.JoinOptions) error {
	if err := f.usable(); err != nil {
		return err
	}
	return f.host.command(ctx, CmdJoin, map[string]any{
		"url":       opts.URL,
		"token":     opts.Token,
		"user_name": opts.UserName,
	})
}

func (f *Frame) Leave(ctx context.Context) error {
	if err := f.usable(); err != nil {
		return err
	}
	return f.host.command(ctx, CmdLeave, nil)
}

// Destroy detaches the frame and asks the host to tear the call down.
func (f *Frame) Destroy() {
	f.mu.Lock()
	if f.destroyed {
		f.mu.Unlock()
		return
	}
	f.destroyed = true
	wasDetached := f.detached
	f.detached = true
	f.mu.Unlock()

	f.host.release(f)
	if wasDetached {
		return
	}
	if err := f.host.notify(CmdDestroy, nil); err != nil {
		f.host.log.Debug("destroy not delivered", zap.Error(err))
	}
}

func (f *Frame) SetLocalAudio(enabled bool) error {
	if err := f.usable(); err != nil {
		return err
	}
	return f.host.notify(CmdSetLocalAudio, map[string]any{"enabled": enabled})
}

func (f *Frame) SetLocalVideo(enabled bool) error {
	if err := f.usable(); err != nil {
		return err
	}
	return f.host.notify(CmdSetLocalVideo, map[string]any{"enabled": enabled})
}

func (f *Frame) StartScreenShare(ctx context.Context) error {
	if err := f.usable(); err != nil {
		return err
	}
	return f.host.command(ctx, CmdStartScreenShare, nil)
}

func (f *Frame) StopScreenShare(ctx context.Context) error {
	if err := f.usable(); err != nil {
		return err
	}
	return f.host.command(ctx, CmdStopScreenShare, nil)
}
