package rooms

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"humming/meet/internal/daily"
	"humming/meet/internal/logger"
)

// ErrNameRequired means a lookup name normalized to nothing.
var ErrNameRequired = errors.New("room name required")

// ProvisioningError means a room could not be created or fetched and no
// fallback applied. Its text is the provider's message.
type ProvisioningError struct {
	Name string
	Err  error
}

func (e *ProvisioningError) Error() string { return daily.ProviderMessage(e.Err) }

func (e *ProvisioningError) Unwrap() error { return e.Err }

type Service struct {
	client daily.Client
	policy daily.Policy
	now    func() time.Time
}

func NewService(client daily.Client, policy daily.Policy) *Service {
	return &Service{client: client, policy: policy, now: time.Now}
}

// EnsureRoom creates the room named by raw, or returns the existing one when
// the provider reports the name is already taken.
func (s *Service) EnsureRoom(ctx context.Context, raw string) (*daily.Room, error) {
	now := s.now()
	name := Normalize(raw)
	if name == "" {
		name = fmt.Sprintf("room-%d", now.UnixMilli())
	}
	log := logger.L().With(zap.String("room", name))

	room, err := s.client.CreateRoom(ctx, name, s.policy.RoomProperties(now))
	if err == nil {
		log.Info("room created", zap.String("url", room.URL))
		return room, nil
	}
	if !daily.IsAlreadyExists(err) {
		log.Warn("room create failed", zap.Error(err))
		return nil, &ProvisioningError{Name: name, Err: err}
	}

	room, err = s.client.GetRoom(ctx, name)
	if err != nil {
		log.Warn("existing room fetch failed", zap.Error(err))
		return nil, &ProvisioningError{Name: name, Err: err}
	}
	log.Info("room reused", zap.String("url", room.URL))
	return room, nil
}

// FindRoom fetches a room without creating it. A missing room yields an error
// matching daily.ErrNotFound.
func (s *Service) FindRoom(ctx context.Context, raw string) (*daily.Room, error) {
	name := Normalize(raw)
	if name == "" {
		return nil, ErrNameRequired
	}
	room, err := s.client.GetRoom(ctx, name)
	if err != nil {
		return nil, &ProvisioningError{Name: name, Err: err}
	}
	return room, nil
}
