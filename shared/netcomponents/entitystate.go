package netcomponents

import (
	"errors"
	"fmt"
	"time"

	"github.com/automoto/truckrace-mp/shared/messages"
	"github.com/automoto/truckrace-mp/shared/netconfig"
	"github.com/yohamta/donburi"
)

var ErrIdentityMismatch = errors.New("identity mismatch")

// IdentityMismatchError is returned when an update addressed to one entity is
// applied to another. The target state is left untouched.
type IdentityMismatchError struct {
	Want, Got messages.EntityID
}

func (e *IdentityMismatchError) Error() string {
	return fmt.Sprintf("entity %d received update meant for %d", e.Want, e.Got)
}

func (e *IdentityMismatchError) Is(target error) bool {
	return target == ErrIdentityMismatch
}

// EntityStateData is the client's copy of one remote car. ID, CarClass and Name
// are fixed by NewEntityState; everything else is replaced by ApplyUpdate.
type EntityStateData struct {
	ID       messages.EntityID
	CarClass uint8
	Name     string

	X, Y   float64
	Angle  float64
	VX, VY float64
	Omega  float64

	Flags                    uint8 // raw, reserved bits included
	Alive, Braking, Boosting bool

	// LastUpdate is the local time the last snapshot was accepted and the
	// origin of every extrapolation.
	LastUpdate time.Time
	// LastTick is the server tick of the last accepted update frame.
	LastTick uint32
	HasTick  bool
}

var EntityState = donburi.NewComponentType[EntityStateData]()

// NewEntityState builds the state for a newly seen entity. It never fails:
// whatever the codec accepted is kept as-is.
func NewEntityState(initial messages.InitialSnapshot, now time.Time) EntityStateData {
	s := EntityStateData{
		ID:       initial.ID,
		CarClass: initial.CarClass,
		Name:     initial.Name,
	}
	s.apply(initial.KinematicSnapshot, now)
	return s
}

// ApplyUpdate replaces the kinematic and status fields with update and
// re-anchors extrapolation at now. It is all-or-nothing.
func (s *EntityStateData) ApplyUpdate(update messages.KinematicSnapshot, now time.Time) error {
	if update.ID != s.ID {
		return &IdentityMismatchError{Want: s.ID, Got: update.ID}
	}
	s.apply(update, now)
	return nil
}

func (s *EntityStateData) apply(u messages.KinematicSnapshot, now time.Time) {
	s.X, s.Y = u.X, u.Y
	s.Angle = u.Angle
	s.VX, s.VY = u.VX, u.VY
	s.Omega = u.Omega
	s.Flags = u.Flags
	s.Alive = u.Flags&netconfig.FlagAlive != 0
	s.Braking = u.Flags&netconfig.FlagBraking != 0
	s.Boosting = u.Flags&netconfig.FlagBoosting != 0
	s.LastUpdate = now
}
