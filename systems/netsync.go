package systems

import (
	"time"

	"github.com/automoto/truckrace-mp/network"
	"github.com/rs/zerolog/log"
	"github.com/yohamta/donburi/ecs"
)

// Clock returns the local time used to anchor and extrapolate snapshots.
type Clock func() time.Time

// NewNetSyncSystem returns an ECS system that applies every frame received
// since the previous tick to the session. It runs on the game goroutine, so
// entity state is never touched concurrently.
func NewNetSyncSystem(src network.FrameSource, session *network.Session, now Clock) func(*ecs.ECS) {
	logger := log.With().Str("component", "netsync").Logger()

	return func(_ *ecs.ECS) {
		for _, fe := range session.Pump(src, now()) {
			logger.Debug().Err(fe.Err).Stringer("frame", fe.Type).Msg("records dropped")
		}
	}
}

// NewStaleSweepSystem removes cars that stopped receiving snapshots.
func NewStaleSweepSystem(session *network.Session, now Clock) func(*ecs.ECS) {
	logger := log.With().Str("component", "netsync").Logger()

	return func(_ *ecs.ECS) {
		for _, id := range session.Sweep(now()) {
			logger.Info().Uint16("id", uint16(id)).Msg("removed stale car")
		}
	}
}
