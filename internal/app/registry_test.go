package app

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dkeye/pinrelay/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryCreateRejectsDuplicate(t *testing.T) {
	r := NewSessionRegistry()
	_, err := r.Create("123456", "host-a")
	require.NoError(t, err)
	_, err = r.SetViewer("123456", "viewer-a")
	require.NoError(t, err)

	_, err = r.Create("123456", "host-b")
	require.ErrorIs(t, err, domain.ErrDuplicatePIN)

	s, err := r.Get("123456")
	require.NoError(t, err)
	assert.Equal(t, domain.ConnID("host-a"), s.Host)
	assert.Equal(t, domain.ConnID("viewer-a"), s.Viewer)
}

func TestRegistryGetMissing(t *testing.T) {
	r := NewSessionRegistry()
	_, err := r.Get("654321")
	require.ErrorIs(t, err, domain.ErrSessionNotFound)

	_, err = r.SetViewer("654321", "v")
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.Zero(t, r.Count())
}

func TestRegistrySetViewerOnce(t *testing.T) {
	r := NewSessionRegistry()
	_, err := r.Create("111111", "h")
	require.NoError(t, err)

	_, err = r.SetViewer("111111", "v1")
	require.NoError(t, err)
	_, err = r.SetViewer("111111", "v2")
	require.ErrorIs(t, err, domain.ErrViewerPresent)

	s, _ := r.Get("111111")
	assert.Equal(t, domain.ConnID("v1"), s.Viewer)
}

func TestRegistryConcurrentJoinSingleWinner(t *testing.T) {
	r := NewSessionRegistry()
	_, err := r.Create("222222", "h")
	require.NoError(t, err)

	const joiners = 64
	var (
		wg       sync.WaitGroup
		wins     atomic.Int32
		conflict atomic.Int32
		start    = make(chan struct{})
	)
	for i := range joiners {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, err := r.SetViewer("222222", domain.ConnID(fmt.Sprintf("v%d", i)))
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, domain.ErrViewerPresent):
				conflict.Add(1)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(joiners-1), conflict.Load())
}

func TestRegistryClearViewerKeepsSession(t *testing.T) {
	r := NewSessionRegistry()
	_, _ = r.Create("333333", "h")
	_, _ = r.SetViewer("333333", "v1")

	require.NoError(t, r.ClearViewer("333333"))
	require.NoError(t, r.ClearViewer("333333"), "idempotent")

	s, err := r.Get("333333")
	require.NoError(t, err)
	assert.False(t, s.HasViewer())

	_, err = r.SetViewer("333333", "v2")
	require.NoError(t, err)
	_, err = r.SetViewer("333333", "v3")
	require.ErrorIs(t, err, domain.ErrViewerPresent)

	require.ErrorIs(t, r.ClearViewer("999999"), domain.ErrSessionNotFound)
}

func TestRegistryRemove(t *testing.T) {
	r := NewSessionRegistry()
	_, _ = r.Create("444444", "h")

	s, err := r.Remove("444444")
	require.NoError(t, err)
	assert.Equal(t, domain.PIN("444444"), s.PIN)
	_, err = r.Remove("444444")
	require.ErrorIs(t, err, domain.ErrSessionNotFound)

	_, err = r.Create("444444", "h2")
	require.NoError(t, err, "pin reusable after removal")
}

func TestRegistryOwnershipChecks(t *testing.T) {
	r := NewSessionRegistry()
	_, _ = r.Create("555555", "h")
	_, _ = r.SetViewer("555555", "v")

	_, err := r.RemoveHostedBy("555555", "stranger")
	require.ErrorIs(t, err, domain.ErrNotOwner)
	_, err = r.ClearViewerOf("555555", "stranger")
	require.ErrorIs(t, err, domain.ErrNotOwner)
	_, err = r.EndBy("555555", "stranger")
	require.ErrorIs(t, err, domain.ErrNotOwner)

	s, err := r.ClearViewerOf("555555", "v")
	require.NoError(t, err)
	assert.False(t, s.HasViewer())

	s, err = r.EndBy("555555", "h")
	require.NoError(t, err)
	assert.Equal(t, domain.ConnID("h"), s.Host)
	assert.Zero(t, r.Count())
}

func TestRegistryCreateRandom(t *testing.T) {
	r := NewSessionRegistry()
	seen := make(map[domain.PIN]bool)
	for range 50 {
		s, err := r.CreateRandom("h")
		require.NoError(t, err)
		_, err = domain.ValidatePIN(string(s.PIN))
		require.NoError(t, err)
		assert.False(t, seen[s.PIN])
		seen[s.PIN] = true
	}
	assert.Equal(t, 50, r.Count())
}

func TestRegistryRemoveIdle(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	r := NewSessionRegistry()
	r.now = func() time.Time { return now }

	_, _ = r.Create("100000", "h1")
	_, _ = r.Create("200000", "h2")
	_, _ = r.SetViewer("200000", "v2")

	now = now.Add(time.Minute)
	_, _ = r.Create("300000", "h3")

	removed := r.RemoveIdle(now.Add(-30 * time.Second))
	require.Len(t, removed, 1)
	assert.Equal(t, domain.PIN("100000"), removed[0].PIN)
	assert.Equal(t, []domain.PIN{"200000", "300000"}, r.PINs())
}
