package ttlstate

import "errors"

var (
	// ErrIdentity is returned when neither a channel nor a participant identity is given for a key.
	ErrIdentity = errors.New("session identity is required")

	// ErrConfiguration is returned when a TTL cannot be resolved or a component is misconfigured.
	ErrConfiguration = errors.New("invalid session cache configuration")
)
