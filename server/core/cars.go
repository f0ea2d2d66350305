package core

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/automoto/truckrace-mp/shared/messages"
	"github.com/automoto/truckrace-mp/shared/netcomponents"
	"github.com/automoto/truckrace-mp/shared/netconfig"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/filter"
)

// Motion constants for the feed. Cars drive circles so every field of the
// snapshot keeps changing.
const (
	botSpeed      = 60.0 // units/s
	botOmega      = 0.8  // rad/s
	playerSpeed   = 40.0
	playerOmega   = -0.5
	spawnSpacing  = 40.0
	flagPhaseSecs = 3
	carClasses    = 4
)

// DriverData is server-only state next to the shared EntityState.
type DriverData struct {
	Speed float64
	Bot   bool
	Age   time.Duration
	Phase int
}

var Driver = donburi.NewComponentType[DriverData]()

var carQuery = donburi.NewQuery(filter.Contains(netcomponents.EntityState, Driver))

// ErrServerFull is returned when every entity id is taken.
var ErrServerFull = errors.New("no free entity id")

// allocID returns the next id after the last one handed out that no live
// car holds. Zero is never used. The caller holds s.mu.
func (s *Server) allocID() (messages.EntityID, error) {
	id := s.nextID
	for range 1 << 16 {
		id++
		if id == 0 {
			continue
		}
		if _, taken := s.entities[id]; !taken {
			s.nextID = id
			return id, nil
		}
	}
	return 0, ErrServerFull
}

// spawnCar adds a car to the world. An empty name is replaced by one derived
// from the id. The caller holds s.mu.
func (s *Server) spawnCar(name string, bot bool) (messages.InitialSnapshot, error) {
	id, err := s.allocID()
	if err != nil {
		return messages.InitialSnapshot{}, err
	}
	if name == "" {
		name = defaultName(id, bot)
	}

	speed, omega := playerSpeed, playerOmega
	if bot {
		speed, omega = botSpeed, botOmega
	}

	slot := float64(int(id) % 16)
	state := netcomponents.EntityStateData{
		ID:       id,
		CarClass: uint8(int(id) % carClasses),
		Name:     name,
		X:        slot * spawnSpacing,
		Y:        slot * spawnSpacing / 2,
		Omega:    omega,
	}
	state.VX, state.VY = speed, 0
	setFlags(&state, netconfig.FlagAlive)

	entity := s.world.Create(netcomponents.EntityState, Driver)
	entry := s.world.Entry(entity)
	netcomponents.EntityState.SetValue(entry, state)
	Driver.SetValue(entry, DriverData{Speed: speed, Bot: bot, Phase: int(id)})
	s.entities[id] = entity

	return initialOf(&state), nil
}

func defaultName(id messages.EntityID, bot bool) string {
	if bot {
		return fmt.Sprintf("bot-%d", id)
	}
	return fmt.Sprintf("player-%d", id)
}

// removeCar deletes id from the world. The caller holds s.mu.
func (s *Server) removeCar(id messages.EntityID) bool {
	entity, ok := s.entities[id]
	if !ok {
		return false
	}
	delete(s.entities, id)
	if s.world.Valid(entity) {
		s.world.Remove(entity)
	}
	return true
}

type stepResult struct {
	tick    uint32
	leaves  []messages.EntityID
	joins   []messages.InitialSnapshot
	updates []messages.KinematicSnapshot
}

// advance moves every car forward by dt, retires bots past their lifetime
// and collects the frames the tick has to send. The caller holds s.mu.
func (s *Server) advance(dt time.Duration) stepResult {
	s.tick++
	res := stepResult{tick: s.tick}
	secs := dt.Seconds()

	var retired []messages.EntityID
	carQuery.Each(s.world, func(entry *donburi.Entry) {
		st := netcomponents.EntityState.Get(entry)
		drv := Driver.Get(entry)

		drv.Age += dt
		if drv.Bot && s.opts.BotLifetime > 0 && drv.Age >= s.opts.BotLifetime {
			retired = append(retired, st.ID)
			return
		}

		st.Angle = math.Mod(st.Angle+st.Omega*secs, 2*math.Pi)
		if st.Angle < 0 {
			st.Angle += 2 * math.Pi
		}
		st.X += st.VX * secs
		st.Y += st.VY * secs
		st.VX = drv.Speed * math.Cos(st.Angle)
		st.VY = drv.Speed * math.Sin(st.Angle)

		if drv.Bot {
			setFlags(st, botFlags(s.tick, s.opts.TickRate, drv.Phase))
		}
	})

	for _, id := range retired {
		s.removeCar(id)
		res.leaves = append(res.leaves, id)
		joined, err := s.spawnCar("", true)
		if err != nil {
			s.logger.Error().Err(err).Msg("replace retired bot")
			continue
		}
		res.joins = append(res.joins, joined)
	}

	carQuery.Each(s.world, func(entry *donburi.Entry) {
		res.updates = append(res.updates, snapshotOf(netcomponents.EntityState.Get(entry)))
	})
	slices.SortFunc(res.updates, func(a, b messages.KinematicSnapshot) int {
		return int(a.ID) - int(b.ID)
	})
	return res
}

// initials lists every car as a join record, ordered by id. The caller
// holds s.mu.
func (s *Server) initials() []messages.InitialSnapshot {
	var out []messages.InitialSnapshot
	carQuery.Each(s.world, func(entry *donburi.Entry) {
		out = append(out, initialOf(netcomponents.EntityState.Get(entry)))
	})
	slices.SortFunc(out, func(a, b messages.InitialSnapshot) int {
		return int(a.ID) - int(b.ID)
	})
	return out
}

// botFlags cycles a bot through normal, braking, boosting and dead, holding
// each for flagPhaseSecs.
func botFlags(tick uint32, tickRate, phase int) uint8 {
	if tickRate <= 0 {
		tickRate = netconfig.DefaultTickHz
	}
	step := (int(tick)/(flagPhaseSecs*tickRate) + phase) % 4
	switch step {
	case 1:
		return netconfig.FlagAlive | netconfig.FlagBraking
	case 2:
		return netconfig.FlagAlive | netconfig.FlagBoosting
	case 3:
		return 0
	default:
		return netconfig.FlagAlive
	}
}

func setFlags(st *netcomponents.EntityStateData, flags uint8) {
	st.Flags = flags
	st.Alive = flags&netconfig.FlagAlive != 0
	st.Braking = flags&netconfig.FlagBraking != 0
	st.Boosting = flags&netconfig.FlagBoosting != 0
}

func snapshotOf(st *netcomponents.EntityStateData) messages.KinematicSnapshot {
	return messages.KinematicSnapshot{
		ID:    st.ID,
		X:     st.X,
		Y:     st.Y,
		Angle: st.Angle,
		VX:    st.VX,
		VY:    st.VY,
		Omega: st.Omega,
		Flags: st.Flags,
	}
}

func initialOf(st *netcomponents.EntityStateData) messages.InitialSnapshot {
	return messages.InitialSnapshot{
		KinematicSnapshot: snapshotOf(st),
		CarClass:          st.CarClass,
		Name:              st.Name,
	}
}
