package daily

import "time"

// RoomProperties is the "properties" object sent with POST /rooms.
type RoomProperties struct {
	EnableScreenshare bool  `json:"enable_screenshare"`
	EnableChat        bool  `json:"enable_chat"`
	StartVideoOff     bool  `json:"start_video_off"`
	StartAudioOff     bool  `json:"start_audio_off"`
	MaxParticipants   int   `json:"max_participants,omitempty"`
	Exp               int64 `json:"exp,omitempty"`
}

// Room is a room record as returned by the provider.
type Room struct {
	ID         string     `json:"id,omitempty"`
	Name       string     `json:"name"`
	APICreated bool       `json:"api_created,omitempty"`
	Privacy    string     `json:"privacy,omitempty"`
	URL        string     `json:"url"`
	CreatedAt  string     `json:"created_at,omitempty"`
	Config     RoomConfig `json:"config"`
}

type RoomConfig struct {
	Exp               int64 `json:"exp,omitempty"`
	MaxParticipants   int   `json:"max_participants,omitempty"`
	EnableScreenshare bool  `json:"enable_screenshare,omitempty"`
	EnableChat        bool  `json:"enable_chat,omitempty"`
	StartVideoOff     bool  `json:"start_video_off,omitempty"`
	StartAudioOff     bool  `json:"start_audio_off,omitempty"`
}

// ExpiresAt is the provider-side expiry, zero when the room never expires.
func (r *Room) ExpiresAt() time.Time {
	if r == nil || r.Config.Exp == 0 {
		return time.Time{}
	}
	return time.Unix(r.Config.Exp, 0).UTC()
}

// TokenProperties is the "properties" object sent with POST /meeting-tokens.
type TokenProperties struct {
	RoomName          string `json:"room_name"`
	UserName          string `json:"user_name"`
	IsOwner           bool   `json:"is_owner"`
	EnableScreenshare bool   `json:"enable_screenshare"`
	StartVideoOff     bool   `json:"start_video_off"`
	StartAudioOff     bool   `json:"start_audio_off"`
	Exp               int64  `json:"exp,omitempty"`
}

type MeetingToken struct {
	Token string `json:"token"`
}
