package messages

import "github.com/automoto/truckrace-mp/shared/wire"

// InitialSnapshot is sent once when an entity first becomes visible to a
// client. CarClass and Name never change afterwards.
type InitialSnapshot struct {
	KinematicSnapshot
	CarClass uint8
	Name     string
}

// DecodeInitial reads the shared kinematic layout followed by the car class
// and the NUL-terminated name.
func DecodeInitial(r *wire.Reader) (InitialSnapshot, error) {
	k, err := DecodeKinematic(r)
	if err != nil {
		return InitialSnapshot{}, err
	}
	class, err := r.ReadUint8()
	if err != nil {
		return InitialSnapshot{}, err
	}
	name, err := r.ReadNullTerminatedString()
	if err != nil {
		return InitialSnapshot{}, err
	}
	return InitialSnapshot{KinematicSnapshot: k, CarClass: class, Name: name}, nil
}

func (s InitialSnapshot) Encode(w *wire.Writer) {
	s.KinematicSnapshot.Encode(w)
	w.WriteUint8(s.CarClass)
	w.WriteNullTerminatedString(s.Name)
}
