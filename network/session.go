package network

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/automoto/truckrace-mp/shared/messages"
	"github.com/automoto/truckrace-mp/shared/netcomponents"
	"github.com/automoto/truckrace-mp/shared/netconfig"
	"github.com/automoto/truckrace-mp/shared/protocol"
	"github.com/automoto/truckrace-mp/tags"
	"github.com/yohamta/donburi"
)

var (
	ErrUnknownEntity = errors.New("unknown entity")
	ErrStaleUpdate   = errors.New("stale update")
)

// SessionOptions tunes registry-level policy.
type SessionOptions struct {
	// StaleAfter removes entities that have not had an accepted snapshot for
	// this long. Zero disables the sweep. A swept entity is kept dormant and
	// comes back with its identity on its next update.
	StaleAfter time.Duration
}

// SessionStats counts what the session did with incoming frames.
type SessionStats struct {
	Frames         int
	Joins          int
	UpdatesApplied int
	UpdatesDropped int
	Leaves         int
	Swept          int
	Revived        int
}

// Session owns every remote entity of one connection. Entities live in a
// donburi world, tagged tags.Car, so the render systems can query them like
// any other component. A Session is not safe for concurrent use; feed it from the
// frame loop.
type Session struct {
	world    donburi.World
	opts     SessionOptions
	entities map[messages.EntityID]donburi.Entity
	// dormant holds the last state of swept entities. The server announces a
	// car only once, so this is the only way to rebuild it after a stall.
	dormant map[messages.EntityID]netcomponents.EntityStateData

	localID  messages.EntityID
	hasLocal bool
	tickHz   int

	stats SessionStats
}

func NewSession(world donburi.World, opts SessionOptions) *Session {
	return &Session{
		world:    world,
		opts:     opts,
		entities: make(map[messages.EntityID]donburi.Entity),
		dormant:  make(map[messages.EntityID]netcomponents.EntityStateData),
		tickHz:   netconfig.DefaultTickHz,
	}
}

func (s *Session) World() donburi.World {
	return s.world
}

// LocalID returns the id of the client's own car, once the server sent it.
func (s *Session) LocalID() (messages.EntityID, bool) {
	return s.localID, s.hasLocal
}

func (s *Session) TickHz() int {
	return s.tickHz
}

func (s *Session) Stats() SessionStats {
	return s.stats
}

func (s *Session) Len() int {
	return len(s.entities)
}

// Get returns the live state of id. The pointer stays valid until the entity
// is removed.
func (s *Session) Get(id messages.EntityID) (*netcomponents.EntityStateData, bool) {
	e, ok := s.entities[id]
	if !ok || !s.world.Valid(e) {
		return nil, false
	}
	return netcomponents.EntityState.Get(s.world.Entry(e)), true
}

// Each visits every entity in ascending id order.
func (s *Session) Each(fn func(*netcomponents.EntityStateData)) {
	ids := make([]messages.EntityID, 0, len(s.entities))
	for id := range s.entities {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		if st, ok := s.Get(id); ok {
			fn(st)
		}
	}
}

// HandleFrame applies one decoded frame. Records are applied independently:
// a bad record is skipped and reported in the joined error while the rest of
// the frame still lands.
func (s *Session) HandleFrame(f protocol.Frame, now time.Time) error {
	s.stats.Frames++

	switch f.Type {
	case protocol.MsgJoin:
		var errs []error
		for _, j := range f.Joins {
			errs = append(errs, s.join(j, now))
		}
		return errors.Join(errs...)
	case protocol.MsgUpdate:
		var errs []error
		for _, u := range f.Updates {
			if err := s.update(u, f.Tick, now); err != nil {
				s.stats.UpdatesDropped++
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	case protocol.MsgLeave:
		for _, id := range f.Leaves {
			_, wasDormant := s.dormant[id]
			if s.Remove(id) || wasDormant {
				s.stats.Leaves++
			}
		}
		return nil
	case protocol.MsgWelcome:
		s.localID = f.Welcome.LocalID
		s.hasLocal = true
		if f.Welcome.TickHz > 0 {
			s.tickHz = int(f.Welcome.TickHz)
		}
		return nil
	}
	return &protocol.UnknownMessageError{Type: f.Type}
}

func (s *Session) join(j messages.InitialSnapshot, now time.Time) error {
	if st, ok := s.Get(j.ID); ok {
		// Seen before: identity stays, kinematics re-anchor.
		return st.ApplyUpdate(j.KinematicSnapshot, now)
	}

	// A join is authoritative; any dormant copy is stale.
	delete(s.dormant, j.ID)
	s.spawn(netcomponents.NewEntityState(j, now))
	s.stats.Joins++
	return nil
}

func (s *Session) spawn(state netcomponents.EntityStateData) *netcomponents.EntityStateData {
	entity := s.world.Create(tags.Car, netcomponents.EntityState)
	entry := s.world.Entry(entity)
	netcomponents.EntityState.SetValue(entry, state)
	s.entities[state.ID] = entity
	return netcomponents.EntityState.Get(entry)
}

func (s *Session) update(u messages.KinematicSnapshot, tick uint32, now time.Time) error {
	st, ok := s.Get(u.ID)
	revive := false
	if !ok {
		dormant, wasSwept := s.dormant[u.ID]
		if !wasSwept {
			return fmt.Errorf("entity %d: %w", u.ID, ErrUnknownEntity)
		}
		st, revive = &dormant, true
	}
	if st.HasTick && tick <= st.LastTick {
		return fmt.Errorf("entity %d: tick %d after %d: %w", u.ID, tick, st.LastTick, ErrStaleUpdate)
	}
	if err := st.ApplyUpdate(u, now); err != nil {
		return err
	}
	st.LastTick = tick
	st.HasTick = true

	if revive {
		delete(s.dormant, u.ID)
		s.spawn(*st)
		s.stats.Revived++
	}
	s.stats.UpdatesApplied++
	return nil
}

// Remove destroys the entity for id and reports whether it existed. It
// also forgets a dormant copy.
func (s *Session) Remove(id messages.EntityID) bool {
	delete(s.dormant, id)
	e, ok := s.entities[id]
	if !ok {
		return false
	}
	delete(s.entities, id)
	if s.world.Valid(e) {
		s.world.Remove(e)
	}
	return true
}

// Sweep removes entities whose last accepted snapshot is older than
// StaleAfter and returns their ids in ascending order. Swept entities go
// dormant: a later update for the id brings the car back.
func (s *Session) Sweep(now time.Time) []messages.EntityID {
	if s.opts.StaleAfter <= 0 {
		return nil
	}
	var stale []messages.EntityID
	var states []netcomponents.EntityStateData
	s.Each(func(st *netcomponents.EntityStateData) {
		if now.Sub(st.LastUpdate) > s.opts.StaleAfter {
			stale = append(stale, st.ID)
			states = append(states, *st)
		}
	})
	for i, id := range stale {
		s.Remove(id)
		s.dormant[id] = states[i]
	}
	s.stats.Swept += len(stale)
	return stale
}
