package messages

import "github.com/automoto/truckrace-mp/shared/wire"

// Welcome is sent to a client right after it connects.
type Welcome struct {
	LocalID EntityID // the receiving client's own entity
	TickHz  uint8
}

func DecodeWelcome(r *wire.Reader) (Welcome, error) {
	id, err := r.ReadUint16()
	if err != nil {
		return Welcome{}, err
	}
	hz, err := r.ReadUint8()
	if err != nil {
		return Welcome{}, err
	}
	return Welcome{LocalID: EntityID(id), TickHz: hz}, nil
}

func (m Welcome) Encode(w *wire.Writer) {
	w.WriteUint16(uint16(m.LocalID))
	w.WriteUint8(m.TickHz)
}
