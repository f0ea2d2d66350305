package netcomponents

import (
	"time"

	"github.com/automoto/truckrace-mp/shared/netconfig"
)

// Pose is where a car should be drawn.
type Pose struct {
	X, Y  float64
	Angle float64 // radians, not wrapped
}

// Extrapolate projects the last accepted snapshot forward to now with constant
// linear and angular velocity. It is always anchored at LastUpdate and never
// writes back, so any number of calls per frame give the same answer. A now
// before LastUpdate counts as no time elapsed.
func (s EntityStateData) Extrapolate(now time.Time) Pose {
	dt := now.Sub(s.LastUpdate).Seconds()
	if dt < 0 {
		dt = 0
	}
	return Pose{
		X:     s.X + s.VX*dt,
		Y:     s.Y + s.VY*dt,
		Angle: s.Angle + s.Omega*dt,
	}
}

// Classify picks the presentation state; the first match wins:
// dead, boosting, braking, normal.
func (s EntityStateData) Classify() netconfig.PresentationState {
	switch {
	case !s.Alive:
		return netconfig.PresentationDead
	case s.Boosting:
		return netconfig.PresentationBoosting
	case s.Braking:
		return netconfig.PresentationBraking
	}
	return netconfig.PresentationNormal
}
