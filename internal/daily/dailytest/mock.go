// Package dailytest provides a testify mock of daily.Client.
package dailytest

import (
	"context"

	"github.com/stretchr/testify/mock"

	"humming/meet/internal/daily"
)

type MockClient struct {
	mock.Mock
}

var _ daily.Client = (*MockClient)(nil)

func (m *MockClient) CreateRoom(ctx context.Context, name string, props daily.RoomProperties) (*daily.Room, error) {
	args := m.Called(ctx, name, props)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*daily.Room), args.Error(1)
}

func (m *MockClient) GetRoom(ctx context.Context, name string) (*daily.Room, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*daily.Room), args.Error(1)
}

func (m *MockClient) CreateMeetingToken(ctx context.Context, props daily.TokenProperties) (*daily.MeetingToken, error) {
	args := m.Called(ctx, props)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*daily.MeetingToken), args.Error(1)
}

// Conflict is the provider's reply to creating a room whose name is taken.
func Conflict(name string) error {
	return &daily.APIError{
		Op:     "create_room",
		Status: 400,
		Kind:   "invalid-request-error",
		Info:   "a room named " + name + " already exists",
	}
}
