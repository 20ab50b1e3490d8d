package tokens

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"humming/meet/internal/daily"
	"humming/meet/internal/logger"
)

// DefaultUserName is used when a join request names no user.
const DefaultUserName = "Guest"

// ErrEmptyToken is wrapped in an IssuanceError when the provider accepts the
// request but returns no token.
var ErrEmptyToken = errors.New("provider returned an empty token")

// Capabilities are the scope flags bound into a token.
type Capabilities struct {
	IsOwner bool `json:"isOwner"`
}

// AccessToken binds one user display name to one room.
type AccessToken struct {
	Token        string       `json:"token"`
	RoomName     string       `json:"roomName"`
	RoomURL      string       `json:"roomUrl"`
	UserName     string       `json:"userName"`
	Capabilities Capabilities `json:"capabilities"`
	ExpiresAt    time.Time    `json:"expiresAt"`
}

// InvalidRequestError reports a missing required input.
type InvalidRequestError struct {
	Field string
}

func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("%s required", e.Field)
}

// IssuanceError means the provider refused or failed to mint a token.
type IssuanceError struct {
	RoomName string
	Err      error
}

func (e *IssuanceError) Error() string { return daily.ProviderMessage(e.Err) }

func (e *IssuanceError) Unwrap() error { return e.Err }

type Service struct {
	client daily.Client
	policy daily.Policy
	domain string
	now    func() time.Time
}

// NewService returns a token service; domain is the provider account
// subdomain used to build room URLs.
func NewService(client daily.Client, policy daily.Policy, domain string) *Service {
	return &Service{client: client, policy: policy, domain: domain, now: time.Now}
}

func (s *Service) IssueToken(ctx context.Context, roomName, userName string, isOwner bool) (*AccessToken, error) {
	if roomName == "" {
		return nil, &InvalidRequestError{Field: "roomName"}
	}
	if userName == "" {
		userName = DefaultUserName
	}
	now := s.now()
	props := s.policy.TokenProperties(roomName, userName, isOwner, now)

	tok, err := s.client.CreateMeetingToken(ctx, props)
	if err == nil && tok.Token == "" {
		err = ErrEmptyToken
	}
	if err != nil {
		logger.L().Warn("token issuance failed",
			zap.String("room", roomName),
			zap.String("user", userName),
			zap.Error(err),
		)
		return nil, &IssuanceError{RoomName: roomName, Err: err}
	}

	return &AccessToken{
		Token:        tok.Token,
		RoomName:     roomName,
		RoomURL:      RoomURL(s.domain, roomName),
		UserName:     userName,
		Capabilities: Capabilities{IsOwner: isOwner},
		ExpiresAt:    time.Unix(props.Exp, 0).UTC(),
	}, nil
}

// RoomURL composes the join URL for a room. A bare subdomain becomes
// https://<domain>.daily.co/<room>; a domain containing a dot is used as the
// host as-is.
func RoomURL(domain, roomName string) string {
	host := strings.TrimSuffix(strings.TrimPrefix(domain, "https://"), "/")
	if !strings.Contains(host, ".") {
		host += ".daily.co"
	}
	return "https://" + host + "/" + roomName
}
