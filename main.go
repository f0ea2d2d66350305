package main

import (
	"fmt"
	"image"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/automoto/truckrace-mp/config"
	"github.com/automoto/truckrace-mp/fonts"
	"github.com/automoto/truckrace-mp/network"
	"github.com/automoto/truckrace-mp/profile"
	"github.com/automoto/truckrace-mp/scenes"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var CLI struct {
	Config string `help:"Path to a YAML or JSON configuration file." type:"existingfile" optional:""`
	Server string `help:"WebSocket URL of the race server." placeholder:"URL"`
	Name   string `help:"Player name shown to other racers. Remembered between runs."`
	Debug  bool   `help:"Whether to enable debug logging."`
}

type Scene interface {
	Update()
	Draw(screen *ebiten.Image)
}

type Game struct {
	bounds image.Rectangle
	scene  Scene
}

func NewGame(scene Scene) *Game {
	return &Game{
		bounds: image.Rectangle{},
		scene:  scene,
	}
}

func (g *Game) Update() error {
	g.scene.Update()
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	g.scene.Draw(screen)
}

func (g *Game) Layout(width, height int) (int, int) {
	g.bounds = image.Rect(0, 0, config.C.Width, config.C.Height)
	return config.C.Width, config.C.Height
}

func writeError(err error) {
	fmt.Fprintf(os.Stderr, "%s\n", err)
	os.Exit(1)
}

func main() {
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	log.Logger = log.Output(consoleWriter)

	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	kong.Parse(&CLI,
		kong.Name("truckrace"),
		kong.Description("networked truck racing client"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}))

	if err := config.Load(CLI.Config); err != nil {
		writeError(err)
	}
	if CLI.Debug || config.Debug.Enabled {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Warn().Msg("debug logging enabled")
	}
	if CLI.Server != "" {
		config.Net.ServerURL = CLI.Server
	}

	if err := fonts.LoadDefaults(); err != nil {
		writeError(err)
	}

	// A missing save directory only costs us the remembered name.
	if err := profile.InitPersistence(); err != nil {
		log.Warn().Err(err).Msg("player name will not be remembered")
	}
	name := CLI.Name
	if name == "" {
		name = config.Player.Name
	}
	name, err := profile.ResolvePlayerName(name)
	if err != nil {
		log.Warn().Err(err).Msg("player profile")
	}

	client := network.NewClient()
	race := scenes.NewRaceScene(client, config.Net.ServerURL, name)
	defer race.Close()

	ebiten.SetWindowSize(config.C.Width, config.C.Height)
	ebiten.SetWindowTitle(config.C.Title)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	log.Info().
		Str("server", config.Net.ServerURL).
		Str("name", name).
		Msg("starting")

	if err := ebiten.RunGame(NewGame(race)); err != nil {
		log.Fatal().Err(err).Msg("game exited")
	}
}
