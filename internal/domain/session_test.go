package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePIN(t *testing.T) {
	tests := []struct {
		in string
		ok bool
	}{
		{"123456", true},
		{"000000", true},
		{"12345", false},
		{"1234567", false},
		{"12a456", false},
		{"", false},
		{"１２３４５６", false},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			pin, err := ValidatePIN(tc.in)
			if !tc.ok {
				require.ErrorIs(t, err, ErrInvalidPIN)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, PIN(tc.in), pin)
		})
	}
}

func TestSessionCounterpart(t *testing.T) {
	s := Session{PIN: "123456", Host: "h"}

	_, ok := s.Counterpart(RoleHost)
	assert.False(t, ok, "no viewer yet")
	host, ok := s.Counterpart(RoleViewer)
	assert.True(t, ok)
	assert.Equal(t, ConnID("h"), host)

	s.Viewer = "v"
	viewer, ok := s.Counterpart(RoleHost)
	assert.True(t, ok)
	assert.Equal(t, ConnID("v"), viewer)

	_, ok = s.Counterpart(RoleUnbound)
	assert.False(t, ok)
}

func TestSessionHolds(t *testing.T) {
	s := Session{Host: "h"}
	assert.True(t, s.Holds(RoleHost, "h"))
	assert.False(t, s.Holds(RoleViewer, ""), "empty viewer slot is held by nobody")
	assert.False(t, s.Holds(RoleUnbound, "h"))
	assert.Equal(t, "viewer", RoleViewer.String())
}
