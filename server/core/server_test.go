package core

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/automoto/truckrace-mp/shared/messages"
	"github.com/automoto/truckrace-mp/shared/netconfig"
	"github.com/automoto/truckrace-mp/shared/protocol"
	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const stepInterval = 50 * time.Millisecond

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.CloseNow() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) protocol.Frame {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	typ, data, err := conn.Read(ctx)
	require.NoError(t, err)
	require.Equal(t, websocket.MessageBinary, typ)

	f, err := protocol.DecodeFrame(data)
	require.NoError(t, err)
	return f
}

// readUntil skips frames until one of the wanted type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, want protocol.MsgType) protocol.Frame {
	t.Helper()
	for i := 0; i < 50; i++ {
		f := readFrame(t, conn)
		if f.Type == want {
			return f
		}
	}
	t.Fatalf("no %s frame received", want)
	return protocol.Frame{}
}

func TestNewServerSpawnsBots(t *testing.T) {
	s := NewServer(Options{TickRate: 20, Bots: 3})
	assert.Equal(t, 3, s.CarCount())
	assert.Equal(t, 0, s.PlayerCount())

	s.mu.Lock()
	joins := s.initials()
	s.mu.Unlock()

	require.Len(t, joins, 3)
	for i, j := range joins {
		assert.Equal(t, messages.EntityID(i+1), j.ID)
		assert.Equal(t, defaultName(j.ID, true), j.Name)
		assert.NotZero(t, j.Flags&netconfig.FlagAlive)
	}
}

func TestSpawnSkipsLiveIDsAfterWrap(t *testing.T) {
	s := NewServer(Options{TickRate: 20, Bots: 2})

	s.mu.Lock()
	s.nextID = 0xFFFF
	a, errA := s.spawnCar("", true)
	b, errB := s.spawnCar("", true)
	res := s.advance(stepInterval)
	s.mu.Unlock()

	require.NoError(t, errA)
	require.NoError(t, errB)
	assert.Equal(t, messages.EntityID(3), a.ID, "0 is reserved and 1, 2 are live")
	assert.Equal(t, messages.EntityID(4), b.ID)
	assert.Equal(t, 4, s.CarCount())

	seen := map[messages.EntityID]bool{}
	for _, u := range res.updates {
		assert.False(t, seen[u.ID], "id %d sent twice", u.ID)
		seen[u.ID] = true
	}
	assert.Len(t, seen, 4)
}

func TestSpawnFailsWhenIDsExhausted(t *testing.T) {
	s := NewServer(Options{TickRate: 20})

	s.mu.Lock()
	defer s.mu.Unlock()
	for id := 1; id <= 0xFFFF; id++ {
		s.entities[messages.EntityID(id)] = 0
	}
	_, err := s.spawnCar("late", false)
	assert.ErrorIs(t, err, ErrServerFull)

	delete(s.entities, 42)
	joined, err := s.spawnCar("late", false)
	require.NoError(t, err)
	assert.Equal(t, messages.EntityID(42), joined.ID)
}

func TestAdvanceMovesCars(t *testing.T) {
	s := NewServer(Options{TickRate: 20, Bots: 2})

	s.mu.Lock()
	before := s.initials()
	res := s.advance(time.Second)
	s.mu.Unlock()

	assert.Equal(t, uint32(1), res.tick)
	assert.Empty(t, res.leaves)
	assert.Empty(t, res.joins)
	require.Len(t, res.updates, 2)

	for i, u := range res.updates {
		assert.Equal(t, before[i].ID, u.ID)
		assert.InDelta(t, before[i].X+botSpeed, u.X, 1e-9)
		assert.InDelta(t, botOmega, u.Angle, 1e-9)
		assert.InDelta(t, botSpeed, u.VX*u.VX/botSpeed+u.VY*u.VY/botSpeed, 1e-6)
	}
}

func TestAdvanceRetiresBots(t *testing.T) {
	s := NewServer(Options{TickRate: 20, Bots: 1, BotLifetime: time.Second})

	s.mu.Lock()
	res := s.advance(500 * time.Millisecond)
	assert.Empty(t, res.leaves)

	res = s.advance(500 * time.Millisecond)
	s.mu.Unlock()

	assert.Equal(t, []messages.EntityID{1}, res.leaves)
	require.Len(t, res.joins, 1)
	assert.Equal(t, messages.EntityID(2), res.joins[0].ID)
	assert.Equal(t, "bot-2", res.joins[0].Name)
	require.Len(t, res.updates, 1)
	assert.Equal(t, messages.EntityID(2), res.updates[0].ID)
	assert.Equal(t, 1, s.CarCount())
}

func TestBotFlagsCycle(t *testing.T) {
	period := uint32(flagPhaseSecs * 20)
	tests := []struct {
		tick uint32
		want netconfig.PresentationState
	}{
		{0, netconfig.PresentationNormal},
		{period, netconfig.PresentationBraking},
		{2 * period, netconfig.PresentationBoosting},
		{3 * period, netconfig.PresentationDead},
		{4 * period, netconfig.PresentationNormal},
	}

	for _, tt := range tests {
		flags := botFlags(tt.tick, 20, 0)
		var got netconfig.PresentationState
		switch {
		case flags&netconfig.FlagAlive == 0:
			got = netconfig.PresentationDead
		case flags&netconfig.FlagBoosting != 0:
			got = netconfig.PresentationBoosting
		case flags&netconfig.FlagBraking != 0:
			got = netconfig.PresentationBraking
		}
		assert.Equal(t, tt.want, got, "tick %d", tt.tick)
	}

	assert.Equal(t, botFlags(period, 20, 0), botFlags(0, 20, 1))
}

func TestClientReceivesWelcomeRosterAndUpdates(t *testing.T) {
	s := NewServer(Options{TickRate: 20, Bots: 2})
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn := dial(t, srv, "?name=Dusty")

	welcome := readFrame(t, conn)
	require.Equal(t, protocol.MsgWelcome, welcome.Type)
	assert.Equal(t, messages.EntityID(3), welcome.Welcome.LocalID)
	assert.Equal(t, uint8(20), welcome.Welcome.TickHz)

	roster := readFrame(t, conn)
	require.Equal(t, protocol.MsgJoin, roster.Type)
	require.Len(t, roster.Joins, 3)
	assert.Equal(t, "Dusty", roster.Joins[2].Name)

	s.Step(stepInterval)

	update := readFrame(t, conn)
	require.Equal(t, protocol.MsgUpdate, update.Type)
	assert.Equal(t, uint32(1), update.Tick)
	assert.Len(t, update.Updates, 3)
	assert.Equal(t, 1, s.PlayerCount())
}

func TestJoinAndLeaveAreBroadcast(t *testing.T) {
	s := NewServer(Options{TickRate: 20})
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	first := dial(t, srv, "")
	readUntil(t, first, protocol.MsgJoin)

	second := dial(t, srv, "?name=Second")
	welcome := readUntil(t, second, protocol.MsgWelcome)

	joined := readUntil(t, first, protocol.MsgJoin)
	require.Len(t, joined.Joins, 1)
	assert.Equal(t, welcome.Welcome.LocalID, joined.Joins[0].ID)
	assert.Equal(t, "Second", joined.Joins[0].Name)

	second.Close(websocket.StatusNormalClosure, "")

	left := readUntil(t, first, protocol.MsgLeave)
	assert.Equal(t, []messages.EntityID{welcome.Welcome.LocalID}, left.Leaves)
	assert.Eventually(t, func() bool { return s.PlayerCount() == 1 }, time.Second, 10*time.Millisecond)
}

func TestDefaultPlayerName(t *testing.T) {
	s := NewServer(Options{})
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn := dial(t, srv, "")
	readUntil(t, conn, protocol.MsgWelcome)
	roster := readUntil(t, conn, protocol.MsgJoin)
	require.Len(t, roster.Joins, 1)
	assert.Equal(t, "player-1", roster.Joins[0].Name)
}
