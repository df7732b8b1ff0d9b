package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// SessionPayloadVersion is the current version of the serialized session
// payload.
const SessionPayloadVersion = 1

// ErrMalformedSessionPayload is returned when a stored payload cannot be
// decoded into a SessionPayload.
var ErrMalformedSessionPayload = errors.New("malformed session payload")

// Session is a server-issued login token with a fixed expiry.
type Session struct {
	// SID is the opaque session identifier handed to the client.
	SID string `json:"sid"`

	// Expires is the instant after which the session is no longer valid.
	Expires time.Time `json:"expires"`

	// Data is the decoded session payload.
	Data SessionPayload `json:"-"`
}

// SessionPayload is the data persisted alongside a session.
type SessionPayload struct {
	Version int       `json:"v"`
	User    *SafeUser `json:"user"`
}

// EncodeSessionPayload serializes the payload for storage, stamping the
// current version.
func EncodeSessionPayload(user SafeUser) (string, error) {
	data, err := json.Marshal(SessionPayload{Version: SessionPayloadVersion, User: &user})
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeSessionPayload parses a stored payload. A missing version is read
// as version 1. A payload without a user decodes successfully with a nil
// User; callers decide whether that is acceptable.
func DecodeSessionPayload(raw string) (SessionPayload, error) {
	if raw == "" {
		return SessionPayload{}, ErrMalformedSessionPayload
	}

	var payload SessionPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return SessionPayload{}, fmt.Errorf("%w: %v", ErrMalformedSessionPayload, err)
	}
	if payload.Version == 0 {
		payload.Version = SessionPayloadVersion
	}
	if payload.Version != SessionPayloadVersion {
		return SessionPayload{}, fmt.Errorf("%w: unsupported version %d", ErrMalformedSessionPayload, payload.Version)
	}
	return payload, nil
}
