package daily

import "time"

const (
	DefaultMaxParticipants = 20
	DefaultTTL             = time.Hour
)

// Policy fixes the media defaults, participant cap and expiry applied to every
// room and token this service provisions.
type Policy struct {
	MaxParticipants int
	TTL             time.Duration
}

func DefaultPolicy() Policy {
	return Policy{MaxParticipants: DefaultMaxParticipants, TTL: DefaultTTL}
}

func (p Policy) withDefaults() Policy {
	if p.MaxParticipants <= 0 {
		p.MaxParticipants = DefaultMaxParticipants
	}
	if p.TTL <= 0 {
		p.TTL = DefaultTTL
	}
	return p
}

// RoomProperties returns the properties for a room created at now.
func (p Policy) RoomProperties(now time.Time) RoomProperties {
	p = p.withDefaults()
	return RoomProperties{
		EnableScreenshare: true,
		EnableChat:        true,
		StartVideoOff:     false,
		StartAudioOff:     false,
		MaxParticipants:   p.MaxParticipants,
		Exp:               now.Add(p.TTL).Unix(),
	}
}

// TokenProperties mirrors the room media defaults and expiry.
func (p Policy) TokenProperties(roomName, userName string, isOwner bool, now time.Time) TokenProperties {
	p = p.withDefaults()
	return TokenProperties{
		RoomName:          roomName,
		UserName:          userName,
		IsOwner:           isOwner,
		EnableScreenshare: true,
		StartVideoOff:     false,
		StartAudioOff:     false,
		Exp:               now.Add(p.TTL).Unix(),
	}
}
