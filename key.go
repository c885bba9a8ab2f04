package ttlstate

import (
	"fmt"

	"github.com/goccy/go-reflect"
	"github.com/spf13/cast"
)

// Key is the composite identity of a session.
type Key struct {
	// Channel is the identity of the channel (chat, room, thread) the session lives in.
	Channel string

	// Participant is the identity of the participant (user) of the session.
	Participant string
}

// NewKey builds a Key from raw channel and participant identities.
// Each identity may be nil, a string, an integer or a fmt.Stringer; an empty string counts as absent.
// If only one identity is given, the other is set equal to it.
// If both are absent, it returns ErrIdentity.
func NewKey(channel, participant any) (Key, error) {
	c, err := normalizeIdentity(channel)
	if err != nil {
		return Key{}, fmt.Errorf("%w: channel: %w", ErrIdentity, err)
	}
	p, err := normalizeIdentity(participant)
	if err != nil {
		return Key{}, fmt.Errorf("%w: participant: %w", ErrIdentity, err)
	}
	return Key{Channel: c, Participant: p}.Normalize()
}

// MustKey is like NewKey but panics on error.
func MustKey(channel, participant any) Key {
	key, err := NewKey(channel, participant)
	if err != nil {
		panic(err)
	}
	return key
}

// Normalize applies the single-identity fallback to the key.
// An empty identity counts as absent, like a nil one passed to NewKey.
// It returns ErrIdentity if both identities are empty.
func (k Key) Normalize() (Key, error) {
	switch {
	case k.Channel == "" && k.Participant == "":
		return Key{}, fmt.Errorf("%w: channel or participant is required", ErrIdentity)
	case k.Participant == "":
		k.Participant = k.Channel
	case k.Channel == "":
		k.Channel = k.Participant
	}
	return k, nil
}

// String returns the key as "channel:participant".
func (k Key) String() string {
	return k.Channel + ":" + k.Participant
}

func normalizeIdentity(v any) (string, error) {
	if v == nil {
		return "", nil
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Ptr && rv.IsNil() {
		return "", nil
	}
	if s, ok := v.(fmt.Stringer); ok {
		return s.String(), nil
	}
	return cast.ToStringE(v)
}
