package pointerlock

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLock(t *testing.T) {
	s, d := initialized(t)
	reg := d.registry

	require.NoError(t, s.Lock())

	require.Len(t, reg.constraints.requests, 1)
	req := reg.constraints.requests[0]
	assert.Equal(t, LifetimePersistent, req.lifetime)
	assert.Equal(t, uint32(100), req.surface.ID())
	assert.Same(t, reg.seat.pointers[0], req.pointer)

	require.Len(t, reg.compositor.regions, 1)
	region := reg.compositor.regions[0]
	assert.Same(t, region, req.region)
	assert.Equal(t, [][4]int32{{0, 0, math.MaxInt32, math.MaxInt32}}, region.rects)
	assert.True(t, region.destroyed, "the lock region is only needed for the request")

	st := s.Status()
	assert.True(t, st.Locked)
	assert.True(t, st.Relaying)
	assert.False(t, st.Active, "not active until the compositor says so")
	assert.True(t, s.Locked())
}

func TestLockWithOneshotLifetime(t *testing.T) {
	s, d := initialized(t, WithLifetime(LifetimeOneshot))

	require.NoError(t, s.Lock())
	assert.Equal(t, LifetimeOneshot, d.registry.constraints.requests[0].lifetime)
}

func TestLockNotReady(t *testing.T) {
	t.Run("without pointer constraints", func(t *testing.T) {
		d := newFakeDisplay(allGlobals()[:3]...)
		s := New()
		require.Error(t, s.Initialize(context.Background(), d, &fakeSurface{id: 1}))

		assert.ErrorIs(t, s.Lock(), ErrNotReady)
		st := s.Status()
		assert.False(t, st.Locked)
		assert.False(t, st.Relaying)
	})

	t.Run("without surface", func(t *testing.T) {
		d := newFakeDisplay(allGlobals()...)
		s := New()
		require.NoError(t, s.Initialize(context.Background(), d, nil))

		assert.False(t, s.Ready())
		assert.ErrorIs(t, s.Lock(), ErrNotReady)
		assert.Empty(t, d.registry.constraints.requests)
		assert.Empty(t, d.registry.compositor.regions)

		s.SetSurface(&fakeSurface{id: 7})
		require.NoError(t, s.Lock())
		assert.Equal(t, uint32(7), d.registry.constraints.requests[0].surface.ID())
	})

	t.Run("zero state", func(t *testing.T) {
		var s State
		assert.ErrorIs(t, s.Lock(), ErrNotReady)
	})
}

func TestLockTwice(t *testing.T) {
	s, d := initialized(t)
	require.NoError(t, s.Lock())

	assert.ErrorIs(t, s.Lock(), ErrAlreadyLocked)
	assert.Len(t, d.registry.constraints.requests, 1)
}

func TestLockFailure(t *testing.T) {
	s, d := initialized(t)
	d.lockErr = errFake

	err := s.Lock()
	assert.ErrorIs(t, err, ErrLockFailed)
	assert.ErrorIs(t, err, errFake)

	st := s.Status()
	assert.False(t, st.Locked)
	assert.False(t, st.Relaying)
	assert.Empty(t, d.registry.relManager.relatives)
	require.Len(t, d.registry.compositor.regions, 1)
	assert.True(t, d.registry.compositor.regions[0].destroyed)
}

func TestLockRegionFailure(t *testing.T) {
	s, d := initialized(t)
	d.regionErr = errFake

	assert.ErrorIs(t, s.Lock(), ErrLockFailed)
	assert.Empty(t, d.registry.constraints.requests)
	assert.False(t, s.Locked())
}

func TestLockWithoutCompositorUsesWholeSurface(t *testing.T) {
	s, d := initialized(t)
	s.mu.Lock()
	s.compositor = nil
	s.mu.Unlock()

	require.NoError(t, s.Lock())
	assert.Nil(t, d.registry.constraints.requests[0].region)
}

func TestLockRelativePointerFailureDegrades(t *testing.T) {
	s, d := initialized(t)
	d.relErr = errFake

	require.NoError(t, s.Lock())
	st := s.Status()
	assert.True(t, st.Locked)
	assert.False(t, st.Relaying)

	s.Unlock()
	st = s.Status()
	assert.False(t, st.Locked)
	assert.False(t, st.Relaying)
}

func TestLockWithoutRelativeManager(t *testing.T) {
	s, d := initialized(t)
	s.mu.Lock()
	s.relativeManager = nil
	s.mu.Unlock()

	calls := 0
	s.SetMotionSink(func(_, _, _, _ float64) { calls++ })

	require.NoError(t, s.Lock())
	assert.True(t, s.Locked())
	assert.False(t, s.Status().Relaying)
	assert.Empty(t, d.registry.relManager.relatives)
	assert.Zero(t, calls)
}

func TestUnlock(t *testing.T) {
	s, d := initialized(t)
	require.NoError(t, s.Lock())
	reg := d.registry

	s.Unlock()

	st := s.Status()
	assert.False(t, st.Locked)
	assert.False(t, st.Relaying)
	assert.True(t, reg.constraints.locks[0].destroyed)
	assert.True(t, reg.relManager.relatives[0].destroyed)

	// Globals stay bound.
	assert.True(t, st.Compositor)
	assert.True(t, st.Seat)
	assert.True(t, st.PointerConstraints)
	assert.True(t, st.RelativePointerManager)
	assert.False(t, reg.constraints.destroyed)

	// A fresh lock works after unlocking.
	require.NoError(t, s.Lock())
	assert.Len(t, reg.constraints.locks, 2)
}

func TestUnlockIdempotent(t *testing.T) {
	s, _ := initialized(t)
	require.NoError(t, s.Lock())

	s.Unlock()
	once := s.Status()
	s.Unlock()
	assert.Equal(t, once, s.Status())

	var zero State
	assert.NotPanics(t, zero.Unlock)
}

func TestLockedEventsTrackActive(t *testing.T) {
	s, d := initialized(t)
	require.NoError(t, s.Lock())
	locked := d.registry.constraints.locks[0]

	locked.onLocked()
	assert.True(t, s.Active())

	locked.onUnlocked()
	assert.False(t, s.Active())
	assert.True(t, s.Locked(), "a persistent lock survives deactivation")

	locked.onLocked()
	s.Unlock()
	assert.False(t, s.Active())

	// Events from a destroyed lock are ignored.
	locked.onLocked()
	assert.False(t, s.Active())
}

func TestToggle(t *testing.T) {
	s, _ := initialized(t)

	locked, err := s.Toggle()
	require.NoError(t, err)
	assert.True(t, locked)
	assert.True(t, s.Locked())

	locked, err = s.Toggle()
	require.NoError(t, err)
	assert.False(t, locked)
	assert.False(t, s.Locked())

	var zero State
	locked, err = zero.Toggle()
	assert.ErrorIs(t, err, ErrNotReady)
	assert.False(t, locked)
}

func TestLifetimeString(t *testing.T) {
	assert.Equal(t, "oneshot", LifetimeOneshot.String())
	assert.Equal(t, "persistent", LifetimePersistent.String())
	assert.Equal(t, "unknown", Lifetime(9).String())
}
