package messages

import "github.com/automoto/truckrace-mp/shared/wire"

// EntityID is assigned by the server and stable for an entity's lifetime.
type EntityID uint16

// PositionScale converts wire positions and velocities to world units.
const PositionScale = 10

// KinematicSize is the encoded length of a KinematicSnapshot.
const KinematicSize = 2 + 6*4 + 1

// KinematicSnapshot is one entity's kinematic and status state at one instant.
// Positions and velocities are in world units, already scaled.
type KinematicSnapshot struct {
	ID     EntityID
	X, Y   float64
	Angle  float64 // radians
	VX, VY float64 // world units per second
	Omega  float64 // radians per second
	Flags  uint8
}

// DecodeKinematic reads a KinematicSnapshot. On error the zero snapshot is
// returned.
func DecodeKinematic(r *wire.Reader) (KinematicSnapshot, error) {
	var s KinematicSnapshot

	id, err := r.ReadUint16()
	if err != nil {
		return KinematicSnapshot{}, err
	}
	s.ID = EntityID(id)

	var f [6]float32
	for i := range f {
		if f[i], err = r.ReadFloat32(); err != nil {
			return KinematicSnapshot{}, err
		}
	}
	s.X = float64(f[0]) * PositionScale
	s.Y = float64(f[1]) * PositionScale
	s.Angle = float64(f[2])
	s.VX = float64(f[3]) * PositionScale
	s.VY = float64(f[4]) * PositionScale
	s.Omega = float64(f[5])

	if s.Flags, err = r.ReadUint8(); err != nil {
		return KinematicSnapshot{}, err
	}
	return s, nil
}

// Encode writes s in wire layout, the inverse of DecodeKinematic.
func (s KinematicSnapshot) Encode(w *wire.Writer) {
	w.WriteUint16(uint16(s.ID))
	w.WriteFloat32(float32(s.X / PositionScale))
	w.WriteFloat32(float32(s.Y / PositionScale))
	w.WriteFloat32(float32(s.Angle))
	w.WriteFloat32(float32(s.VX / PositionScale))
	w.WriteFloat32(float32(s.VY / PositionScale))
	w.WriteFloat32(float32(s.Omega))
	w.WriteUint8(s.Flags)
}
