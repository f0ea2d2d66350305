// Package netconfig defines lightweight types shared between client and server
// for network serialization. It must have zero dependencies on ebiten or any
// graphics library so the server feed binary stays headless.
package netconfig

// Status flag bits carried in every snapshot. Bits 3-7 are reserved: they are
// stored as received and never change behaviour.
const (
	FlagAlive    uint8 = 1 << 0
	FlagBraking  uint8 = 1 << 1
	FlagBoosting uint8 = 1 << 2
)

// DefaultTickHz is the update rate assumed until the server announces one.
const DefaultTickHz = 20

// PresentationState is the renderer-facing status of a remote car.
type PresentationState int

const (
	PresentationNormal PresentationState = iota
	PresentationBraking
	PresentationBoosting
	PresentationDead
)

var presentationNames = map[PresentationState]string{
	PresentationNormal:   "normal",
	PresentationBraking:  "braking",
	PresentationBoosting: "boosting",
	PresentationDead:     "dead",
}

func (p PresentationState) String() string {
	if name, ok := presentationNames[p]; ok {
		return name
	}
	return "unknown"
}
