package app

import (
	"testing"

	"github.com/dkeye/pinrelay/internal/core"
	"github.com/dkeye/pinrelay/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopSignal struct{}

func (nopSignal) TrySend(core.Frame) error { return nil }
func (nopSignal) Close()                   {}

func TestConnTableBindOnce(t *testing.T) {
	tbl := NewConnTable()
	tbl.Attach("c1", "token", nopSignal{})

	c, ok := tbl.Get("c1")
	require.True(t, ok)
	assert.False(t, c.Bound())
	assert.Equal(t, "token", c.ClientToken)

	require.NoError(t, tbl.Bind("c1", domain.RoleHost, "123456"))
	err := tbl.Bind("c1", domain.RoleViewer, "654321")
	require.ErrorIs(t, err, domain.ErrAlreadyBound)

	c, _ = tbl.Get("c1")
	assert.Equal(t, domain.RoleHost, c.Role)
	assert.Equal(t, domain.PIN("123456"), c.PIN)

	require.Error(t, tbl.Bind("missing", domain.RoleHost, "123456"))
}

func TestConnTableDetach(t *testing.T) {
	tbl := NewConnTable()
	tbl.Attach("c1", "", nopSignal{})
	assert.Equal(t, 1, tbl.Len())

	c, ok := tbl.Detach("c1")
	require.True(t, ok)
	assert.Equal(t, domain.ConnID("c1"), c.ID)
	_, ok = tbl.Detach("c1")
	assert.False(t, ok)
	assert.Zero(t, tbl.Len())
}

func TestPolicyByName(t *testing.T) {
	p, err := PolicyByName("")
	require.NoError(t, err)
	assert.Equal(t, DropMessage, p.OnBackPressure(Connection{}))

	p, err = PolicyByName("kick")
	require.NoError(t, err)
	assert.Equal(t, KickConnection, p.OnBackPressure(Connection{}))

	_, err = PolicyByName("retry")
	require.Error(t, err)
}
