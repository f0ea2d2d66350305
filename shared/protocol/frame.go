// Package protocol frames messages for the transport. Every transport message
// starts with a one-byte type tag so the client never has to guess whether a
// body holds initial or update snapshots.
package protocol

import (
	"errors"
	"fmt"

	"github.com/automoto/truckrace-mp/shared/messages"
	"github.com/automoto/truckrace-mp/shared/wire"
)

// MsgType tags a frame.
type MsgType uint8

// Server -> client
const (
	MsgUpdate  MsgType = 0x10
	MsgJoin    MsgType = 0x11
	MsgLeave   MsgType = 0x12
	MsgWelcome MsgType = 0x13
)

func (t MsgType) String() string {
	switch t {
	case MsgUpdate:
		return "update"
	case MsgJoin:
		return "join"
	case MsgLeave:
		return "leave"
	case MsgWelcome:
		return "welcome"
	}
	return fmt.Sprintf("unknown(0x%02x)", uint8(t))
}

// MaxBatch is the most records a single frame can carry.
const MaxBatch = 255

var ErrUnknownMessage = errors.New("unknown message type")

type UnknownMessageError struct {
	Type MsgType
}

func (e *UnknownMessageError) Error() string {
	return fmt.Sprintf("unknown message type 0x%02x", uint8(e.Type))
}

func (e *UnknownMessageError) Is(target error) bool {
	return target == ErrUnknownMessage
}

// Frame is one decoded transport message. Only the fields matching Type are
// populated.
type Frame struct {
	Type    MsgType
	Tick    uint32 // MsgUpdate only
	Updates []messages.KinematicSnapshot
	Joins   []messages.InitialSnapshot
	Leaves  []messages.EntityID
	Welcome messages.Welcome
}

// DecodeFrame parses a whole transport message. Any truncation fails the
// frame as a whole; trailing bytes after the body are ignored.
func DecodeFrame(b []byte) (Frame, error) {
	r := wire.NewReader(b)
	t, err := r.ReadUint8()
	if err != nil {
		return Frame{}, err
	}
	f := Frame{Type: MsgType(t)}

	switch f.Type {
	case MsgUpdate:
		if f.Tick, err = r.ReadUint32(); err != nil {
			return Frame{}, err
		}
		n, err := r.ReadUint8()
		if err != nil {
			return Frame{}, err
		}
		f.Updates = make([]messages.KinematicSnapshot, 0, n)
		for i := 0; i < int(n); i++ {
			s, err := messages.DecodeKinematic(r)
			if err != nil {
				return Frame{}, fmt.Errorf("update %d: %w", i, err)
			}
			f.Updates = append(f.Updates, s)
		}
	case MsgJoin:
		n, err := r.ReadUint8()
		if err != nil {
			return Frame{}, err
		}
		f.Joins = make([]messages.InitialSnapshot, 0, n)
		for i := 0; i < int(n); i++ {
			s, err := messages.DecodeInitial(r)
			if err != nil {
				return Frame{}, fmt.Errorf("join %d: %w", i, err)
			}
			f.Joins = append(f.Joins, s)
		}
	case MsgLeave:
		n, err := r.ReadUint8()
		if err != nil {
			return Frame{}, err
		}
		f.Leaves = make([]messages.EntityID, 0, n)
		for i := 0; i < int(n); i++ {
			id, err := r.ReadUint16()
			if err != nil {
				return Frame{}, fmt.Errorf("leave %d: %w", i, err)
			}
			f.Leaves = append(f.Leaves, messages.EntityID(id))
		}
	case MsgWelcome:
		if f.Welcome, err = messages.DecodeWelcome(r); err != nil {
			return Frame{}, err
		}
	default:
		return Frame{}, &UnknownMessageError{Type: f.Type}
	}
	return f, nil
}

func checkBatch(n int) error {
	if n > MaxBatch {
		return fmt.Errorf("batch of %d exceeds %d records", n, MaxBatch)
	}
	return nil
}

func EncodeUpdate(tick uint32, updates []messages.KinematicSnapshot) ([]byte, error) {
	if err := checkBatch(len(updates)); err != nil {
		return nil, err
	}
	w := wire.NewWriter(6 + len(updates)*messages.KinematicSize)
	w.WriteUint8(uint8(MsgUpdate))
	w.WriteUint32(tick)
	w.WriteUint8(uint8(len(updates)))
	for _, u := range updates {
		u.Encode(w)
	}
	return w.Bytes(), nil
}

func EncodeJoin(joins []messages.InitialSnapshot) ([]byte, error) {
	if err := checkBatch(len(joins)); err != nil {
		return nil, err
	}
	w := wire.NewWriter(2 + len(joins)*(messages.KinematicSize+16))
	w.WriteUint8(uint8(MsgJoin))
	w.WriteUint8(uint8(len(joins)))
	for _, j := range joins {
		j.Encode(w)
	}
	return w.Bytes(), nil
}

func EncodeLeave(ids []messages.EntityID) ([]byte, error) {
	if err := checkBatch(len(ids)); err != nil {
		return nil, err
	}
	w := wire.NewWriter(2 + len(ids)*2)
	w.WriteUint8(uint8(MsgLeave))
	w.WriteUint8(uint8(len(ids)))
	for _, id := range ids {
		w.WriteUint16(uint16(id))
	}
	return w.Bytes(), nil
}

func EncodeWelcome(m messages.Welcome) []byte {
	w := wire.NewWriter(4)
	w.WriteUint8(uint8(MsgWelcome))
	m.Encode(w)
	return w.Bytes()
}
