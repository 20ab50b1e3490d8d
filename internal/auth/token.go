package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "meet-frames"

var (
	ErrNoSecret    = errors.New("frame token secret not configured")
	ErrTokenFormat = errors.New("invalid token format")
	ErrTokenExp    = errors.New("token expired or not yet valid")
	ErrTokenMount  = errors.New("mount mismatch")
)

// Claims bind a frame host credential to one mount point.
type Claims struct {
	Mount string `json:"mount"`
	jwt.RegisteredClaims
}

// Manager mints and checks frame host credentials.
type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewManager(secret string, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Manager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Mint returns a signed token for mount and its expiry.
func (m *Manager) Mint(mount string) (string, time.Time, error) {
	if len(m.secret) == 0 {
		return "", time.Time{}, ErrNoSecret
	}
	now := m.now()
	exp := now.Add(m.ttl)
	claims := &Claims{
		Mount: mount,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   mount,
			ID:        uuid.New().String(),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign frame token: %w", err)
	}
	return s, exp, nil
}

// Validate parses token and checks it was minted for expectMount. An empty
// expectMount accepts any mount.
func (m *Manager) Validate(token, expectMount string) (*Claims, error) {
	if len(m.secret) == 0 {
		return nil, ErrNoSecret
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(m.now))
	switch {
	case errors.Is(err, jwt.ErrTokenExpired), errors.Is(err, jwt.ErrTokenNotValidYet):
		return nil, ErrTokenExp
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrTokenFormat, err)
	}
	if expectMount != "" && claims.Mount != expectMount {
		return nil, ErrTokenMount
	}
	return claims, nil
}
