package scenes

import (
	"context"
	"net/url"
	"sync"
	"time"

	cfg "github.com/automoto/truckrace-mp/config"
	"github.com/automoto/truckrace-mp/network"
	"github.com/automoto/truckrace-mp/systems"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/rs/zerolog/log"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/ecs"
)

// RaceScene shows every car the server reports. Network receive and
// rendering meet only through the session, which is touched exclusively
// from Update and Draw.
type RaceScene struct {
	ecsWorld   *ecs.ECS
	session    *network.Session
	netClient  *network.Client
	serverURL  string
	playerName string
	once       sync.Once
}

func NewRaceScene(client *network.Client, serverURL, playerName string) *RaceScene {
	return &RaceScene{
		netClient:  client,
		serverURL:  serverURL,
		playerName: playerName,
	}
}

func (rs *RaceScene) Update() {
	rs.once.Do(rs.configure)
	rs.ecsWorld.Update()
}

func (rs *RaceScene) Draw(screen *ebiten.Image) {
	screen.Fill(cfg.Render.Background)

	if rs.ecsWorld == nil {
		return
	}
	rs.ecsWorld.Draw(screen)
}

func (rs *RaceScene) configure() {
	rs.ecsWorld = ecs.NewECS(donburi.NewWorld())
	rs.session = network.NewSession(rs.ecsWorld.World, network.SessionOptions{
		StaleAfter: cfg.Net.StaleAfter,
	})

	now := systems.Clock(time.Now)
	rs.ecsWorld.AddSystem(systems.NewNetSyncSystem(rs.netClient, rs.session, now))
	rs.ecsWorld.AddSystem(systems.NewStaleSweepSystem(rs.session, now))
	rs.ecsWorld.AddRenderer(cfg.Default, systems.NewCarRenderer(rs.session, now))
	rs.ecsWorld.AddRenderer(cfg.Default, systems.NewDebugRenderer(rs.session, now))
	rs.ecsWorld.AddRenderer(cfg.HUD, systems.NewNetworkHUD(rs.session, rs.netClient.State))

	target, err := dialURL(rs.serverURL, rs.playerName)
	if err != nil {
		log.Error().Err(err).Str("url", rs.serverURL).Msg("bad server url")
		return
	}
	rs.netClient.Connect(context.Background(), target)
}

// Close drops the connection.
func (rs *RaceScene) Close() {
	rs.netClient.Disconnect()
}

// dialURL adds the player name as a query parameter for the server.
func dialURL(raw, name string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if name != "" {
		q := u.Query()
		q.Set("name", name)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}
