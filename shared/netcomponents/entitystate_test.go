package netcomponents

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/automoto/truckrace-mp/shared/messages"
	"github.com/automoto/truckrace-mp/shared/netconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func initial(id messages.EntityID) messages.InitialSnapshot {
	return messages.InitialSnapshot{
		KinematicSnapshot: messages.KinematicSnapshot{
			ID: id, X: 10, Y: 20, Angle: 0.5, VX: 2, VY: -4, Omega: 0.1, Flags: netconfig.FlagAlive,
		},
		CarClass: 2,
		Name:     "rusty",
	}
}

func TestNewEntityState(t *testing.T) {
	s := NewEntityState(initial(7), t0)

	assert.Equal(t, messages.EntityID(7), s.ID)
	assert.Equal(t, uint8(2), s.CarClass)
	assert.Equal(t, "rusty", s.Name)
	assert.Equal(t, 10.0, s.X)
	assert.Equal(t, -4.0, s.VY)
	assert.True(t, s.Alive)
	assert.False(t, s.Braking)
	assert.False(t, s.Boosting)
	assert.Equal(t, t0, s.LastUpdate)
}

func TestApplyUpdateReplacesKinematics(t *testing.T) {
	s := NewEntityState(initial(7), t0)
	now := t0.Add(250 * time.Millisecond)

	err := s.ApplyUpdate(messages.KinematicSnapshot{
		ID: 7, X: 1, Y: 2, Angle: 3, VX: 4, VY: 5, Omega: 6,
		Flags: netconfig.FlagAlive | netconfig.FlagBraking | 0x80,
	}, now)
	require.NoError(t, err)

	assert.Equal(t, 1.0, s.X)
	assert.Equal(t, 2.0, s.Y)
	assert.Equal(t, 3.0, s.Angle)
	assert.Equal(t, 4.0, s.VX)
	assert.Equal(t, 5.0, s.VY)
	assert.Equal(t, 6.0, s.Omega)
	assert.True(t, s.Braking)
	assert.Equal(t, uint8(0x83), s.Flags, "reserved bits are kept")
	assert.Equal(t, now, s.LastUpdate)

	assert.Equal(t, "rusty", s.Name, "identity untouched")
	assert.Equal(t, uint8(2), s.CarClass)
}

func TestApplyUpdateIdentityMismatch(t *testing.T) {
	s := NewEntityState(initial(7), t0)
	before := s

	err := s.ApplyUpdate(messages.KinematicSnapshot{ID: 8, X: 999, Flags: 0}, t0.Add(time.Second))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIdentityMismatch))

	var mismatch *IdentityMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, messages.EntityID(7), mismatch.Want)
	assert.Equal(t, messages.EntityID(8), mismatch.Got)

	assert.Equal(t, before, s, "state must be unchanged")
}

func TestReservedFlagBitsHaveNoEffect(t *testing.T) {
	a := NewEntityState(initial(1), t0)
	b := NewEntityState(initial(1), t0)
	require.NoError(t, b.ApplyUpdate(messages.KinematicSnapshot{ID: 1, X: 10, Y: 20, Angle: 0.5, VX: 2, VY: -4, Omega: 0.1, Flags: netconfig.FlagAlive | 0xf8}, t0))

	assert.Equal(t, a.Classify(), b.Classify())
	assert.Equal(t, a.Extrapolate(t0.Add(time.Second)), b.Extrapolate(t0.Add(time.Second)))
}

func TestExtrapolateIdempotent(t *testing.T) {
	s := NewEntityState(initial(1), t0)
	before := s
	now := t0.Add(1500 * time.Millisecond)

	p1 := s.Extrapolate(now)
	p2 := s.Extrapolate(now)

	assert.Equal(t, p1, p2)
	assert.Equal(t, before, s)
}

func TestExtrapolateLinear(t *testing.T) {
	s := NewEntityState(initial(1), t0)

	p1 := s.Extrapolate(t0.Add(200 * time.Millisecond))
	p2 := s.Extrapolate(t0.Add(700 * time.Millisecond))

	assert.InDelta(t, s.VX*0.5, p2.X-p1.X, 1e-9)
	assert.InDelta(t, s.VY*0.5, p2.Y-p1.Y, 1e-9)
	assert.InDelta(t, s.Omega*0.5, p2.Angle-p1.Angle, 1e-9)
}

func TestExtrapolateClampsNegativeDt(t *testing.T) {
	s := NewEntityState(initial(1), t0)

	assert.Equal(t, s.Extrapolate(t0), s.Extrapolate(t0.Add(-3*time.Second)))
	assert.Equal(t, Pose{X: s.X, Y: s.Y, Angle: s.Angle}, s.Extrapolate(t0.Add(-time.Millisecond)))
}

func TestExtrapolateAngularScenario(t *testing.T) {
	in := initial(1)
	in.Angle = 0
	in.Omega = math.Pi
	s := NewEntityState(in, t0)

	assert.InDelta(t, math.Pi, s.Extrapolate(t0.Add(time.Second)).Angle, 1e-9)
	assert.InDelta(t, 3*math.Pi, s.Extrapolate(t0.Add(3*time.Second)).Angle, 1e-9, "angle is not wrapped")
}

func TestExtrapolateReanchorsOnUpdate(t *testing.T) {
	s := NewEntityState(initial(1), t0)
	later := t0.Add(2 * time.Second)

	require.NoError(t, s.ApplyUpdate(messages.KinematicSnapshot{ID: 1, X: 100, Y: 100, VX: 1, Flags: netconfig.FlagAlive}, later))

	p := s.Extrapolate(later.Add(time.Second))
	assert.InDelta(t, 101, p.X, 1e-9)
	assert.InDelta(t, 100, p.Y, 1e-9)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		flags uint8
		want  netconfig.PresentationState
	}{
		{0, netconfig.PresentationDead},
		{netconfig.FlagBoosting | netconfig.FlagBraking, netconfig.PresentationDead},
		{netconfig.FlagAlive, netconfig.PresentationNormal},
		{netconfig.FlagAlive | netconfig.FlagBraking, netconfig.PresentationBraking},
		{netconfig.FlagAlive | netconfig.FlagBoosting, netconfig.PresentationBoosting},
		{netconfig.FlagAlive | netconfig.FlagBoosting | netconfig.FlagBraking, netconfig.PresentationBoosting},
		{netconfig.FlagAlive | 0xf0, netconfig.PresentationNormal},
	}

	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			in := initial(1)
			in.Flags = tt.flags
			assert.Equal(t, tt.want, NewEntityState(in, t0).Classify())
		})
	}
}
