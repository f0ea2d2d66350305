package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/automoto/truckrace-mp/server/core"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var CLI struct {
	Port        uint          `help:"Port to listen on." default:"7373"`
	TickRate    int           `help:"Updates sent per second." default:"20" name:"tickrate"`
	Bots        int           `help:"Number of bot cars driving on the server." default:"4"`
	BotLifetime time.Duration `help:"Retire and replace each bot after this long. 0 keeps them forever." default:"0s" name:"botlife"`
	Debug       bool          `help:"Whether to enable debug logging."`
}

func main() {
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	log.Logger = log.Output(consoleWriter)

	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	kong.Parse(&CLI,
		kong.Name("truckrace-server"),
		kong.Description("snapshot feed for truckrace clients"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}))

	if CLI.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Warn().Msg("debug logging enabled")
	}
	if CLI.TickRate < 1 || CLI.TickRate > 255 {
		fmt.Fprintf(os.Stderr, "tickrate must be between 1 and 255\n")
		os.Exit(1)
	}

	server := core.NewServer(core.Options{
		TickRate:    CLI.TickRate,
		Bots:        CLI.Bots,
		BotLifetime: CLI.BotLifetime,
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info().Msg("shutting down server")
		server.Stop()
	}()

	log.Info().
		Uint("port", CLI.Port).
		Int("tickrate", CLI.TickRate).
		Int("bots", CLI.Bots).
		Msg("starting truckrace server")
	if err := server.Start(CLI.Port); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}
