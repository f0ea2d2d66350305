package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/automoto/truckrace-mp/shared/messages"
	"github.com/automoto/truckrace-mp/shared/protocol"
	"github.com/coder/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/yohamta/donburi"
)

const (
	peerQueueSize = 64
	writeTimeout  = 5 * time.Second
)

// Options configures the snapshot feed.
type Options struct {
	TickRate int
	Bots     int
	// BotLifetime retires a bot and spawns a replacement once it has been
	// driving this long. Zero keeps bots forever.
	BotLifetime time.Duration
}

// Server simulates a set of cars and streams their snapshots to every
// connected WebSocket client.
type Server struct {
	opts  Options
	world donburi.World
	loop  *GameLoop
	http  *http.Server

	// mu guards the world and everything below it.
	mu       sync.Mutex
	entities map[messages.EntityID]donburi.Entity
	peers    map[*peer]struct{}
	nextID   messages.EntityID
	tick     uint32

	logger zerolog.Logger
}

type peer struct {
	id     messages.EntityID
	send   chan []byte
	kicked chan struct{}
	once   sync.Once
}

func (p *peer) kick() {
	p.once.Do(func() { close(p.kicked) })
}

// offer queues msg without blocking. A full queue drops an update but
// disconnects the peer for anything else, since a missed join or leave
// would leave its registry wrong.
func (p *peer) offer(msg []byte, droppable bool) {
	select {
	case p.send <- msg:
	default:
		if !droppable {
			p.kick()
		}
	}
}

// NewServer creates a server with opts.Bots bots already driving.
func NewServer(opts Options) *Server {
	if opts.TickRate <= 0 {
		opts.TickRate = 20
	}

	s := &Server{
		opts:     opts,
		world:    donburi.NewWorld(),
		entities: make(map[messages.EntityID]donburi.Entity),
		peers:    make(map[*peer]struct{}),
		logger:   log.With().Str("component", "server").Logger(),
	}
	s.loop = NewGameLoop(s, opts.TickRate)

	s.mu.Lock()
	for i := 0; i < opts.Bots; i++ {
		if _, err := s.spawnCar("", true); err != nil {
			s.logger.Error().Err(err).Int("spawned", i).Msg("spawn bots")
			break
		}
	}
	s.mu.Unlock()

	return s
}

// Handler serves the feed on /ws.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.serveWS)
	return mux
}

// Start runs the game loop and blocks serving HTTP on port.
func (s *Server) Start(port uint) error {
	go s.loop.Run()

	s.http = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.Handler(),
	}
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop gracefully shuts down the server
func (s *Server) Stop() {
	s.loop.Stop()
	if s.http == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := s.http.Shutdown(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("shutdown")
	}
}

// Step advances the simulation by dt and broadcasts the result.
func (s *Server) Step(dt time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := s.advance(dt)

	if len(res.leaves) > 0 {
		s.broadcastLeave(res.leaves)
	}
	if len(res.joins) > 0 {
		s.broadcastJoin(res.joins)
	}
	for start := 0; start < len(res.updates); start += protocol.MaxBatch {
		end := min(start+protocol.MaxBatch, len(res.updates))
		msg, err := protocol.EncodeUpdate(res.tick, res.updates[start:end])
		if err != nil {
			s.logger.Error().Err(err).Msg("encode update")
			return
		}
		for p := range s.peers {
			p.offer(msg, true)
		}
	}
}

// CarCount returns the number of cars currently simulated.
func (s *Server) CarCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entities)
}

// PlayerCount returns the number of connected players
func (s *Server) PlayerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.peers)
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("accept")
		return
	}
	defer conn.CloseNow()

	// Clients never send anything; CloseRead handles control frames and
	// cancels ctx once the connection goes away.
	ctx := conn.CloseRead(r.Context())

	p, err := s.addPeer(r.URL.Query().Get("name"))
	if err != nil {
		s.logger.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("rejecting client")
		conn.Close(websocket.StatusTryAgainLater, "server full")
		return
	}
	defer s.removePeer(p)

	logger := s.logger.With().Uint16("id", uint16(p.id)).Logger()
	logger.Info().Str("remote", r.RemoteAddr).Msg("client connected")

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("client disconnected")
			return
		case <-p.kicked:
			logger.Warn().Msg("client too slow, disconnecting")
			conn.Close(websocket.StatusPolicyViolation, "too slow")
			return
		case msg := <-p.send:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Write(wctx, websocket.MessageBinary, msg)
			cancel()
			if err != nil {
				logger.Debug().Err(err).Msg("write")
				return
			}
		}
	}
}

// addPeer gives the new connection a car, queues its Welcome and the full
// roster, and announces the car to everybody else.
func (s *Server) addPeer(name string) (*peer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	joined, err := s.spawnCar(name, false)
	if err != nil {
		return nil, err
	}

	p := &peer{
		id:     joined.ID,
		send:   make(chan []byte, peerQueueSize),
		kicked: make(chan struct{}),
	}

	p.offer(protocol.EncodeWelcome(messages.Welcome{
		LocalID: p.id,
		TickHz:  uint8(min(s.opts.TickRate, 255)),
	}), false)
	s.queueJoin(p, s.initials())

	s.broadcastJoin([]messages.InitialSnapshot{joined})
	s.peers[p] = struct{}{}
	return p, nil
}

func (s *Server) removePeer(p *peer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.peers, p)
	if s.removeCar(p.id) {
		s.broadcastLeave([]messages.EntityID{p.id})
	}
}

// The broadcast and queue helpers expect s.mu to be held.

func (s *Server) broadcastJoin(joins []messages.InitialSnapshot) {
	for p := range s.peers {
		s.queueJoin(p, joins)
	}
}

func (s *Server) queueJoin(p *peer, joins []messages.InitialSnapshot) {
	for start := 0; start < len(joins); start += protocol.MaxBatch {
		end := min(start+protocol.MaxBatch, len(joins))
		msg, err := protocol.EncodeJoin(joins[start:end])
		if err != nil {
			s.logger.Error().Err(err).Msg("encode join")
			return
		}
		p.offer(msg, false)
	}
}

func (s *Server) broadcastLeave(ids []messages.EntityID) {
	for start := 0; start < len(ids); start += protocol.MaxBatch {
		end := min(start+protocol.MaxBatch, len(ids))
		msg, err := protocol.EncodeLeave(ids[start:end])
		if err != nil {
			s.logger.Error().Err(err).Msg("encode leave")
			return
		}
		for p := range s.peers {
			p.offer(msg, false)
		}
	}
}
