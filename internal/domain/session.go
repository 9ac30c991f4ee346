// Package domain holds the pairing entities and their sentinel errors.
package domain

import (
	"errors"
	"time"
)

const PINLength = 6

var (
	ErrInvalidPIN        = errors.New("invalid pin")
	ErrDuplicatePIN      = errors.New("pin already in use")
	ErrSessionNotFound   = errors.New("session not found")
	ErrViewerPresent     = errors.New("session already has a viewer")
	ErrNotOwner          = errors.New("connection does not own session slot")
	ErrAlreadyBound      = errors.New("connection already bound")
	ErrPINSpaceExhausted = errors.New("no free pin available")
)

// PIN is the 6-digit numeric key of a session.
type PIN string

// ValidatePIN accepts exactly PINLength ASCII digits.
func ValidatePIN(s string) (PIN, error) {
	if len(s) != PINLength {
		return "", ErrInvalidPIN
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return "", ErrInvalidPIN
		}
	}
	return PIN(s), nil
}

// ConnID is the opaque per-socket identity assigned at connect time.
type ConnID string

// Session pairs at most one host and one viewer under one PIN.
// Values are snapshots; the registry owns the live record.
type Session struct {
	PIN       PIN       `json:"pin"`
	Host      ConnID    `json:"host"`
	Viewer    ConnID    `json:"viewer,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s Session) HasViewer() bool { return s.Viewer != "" }

// Counterpart returns the connection bound to the opposite slot of role.
func (s Session) Counterpart(role Role) (ConnID, bool) {
	switch role {
	case RoleHost:
		return s.Viewer, s.Viewer != ""
	case RoleViewer:
		return s.Host, s.Host != ""
	case RoleUnbound:
	}
	return "", false
}

// Holds reports whether id occupies the slot of role.
func (s Session) Holds(role Role, id ConnID) bool {
	switch role {
	case RoleHost:
		return s.Host == id
	case RoleViewer:
		return s.Viewer != "" && s.Viewer == id
	case RoleUnbound:
	}
	return false
}
