package core

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

type GameLoop struct {
	server   *Server
	tickRate int
	stopChan chan struct{}
	stopOnce sync.Once
}

func NewGameLoop(server *Server, tickRate int) *GameLoop {
	return &GameLoop{
		server:   server,
		tickRate: tickRate,
		stopChan: make(chan struct{}),
	}
}

func (g *GameLoop) Run() {
	interval := time.Second / time.Duration(g.tickRate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info().Int("tickrate", g.tickRate).Msg("game loop started")

	for {
		select {
		case <-g.stopChan:
			log.Info().Msg("game loop stopped")
			return
		case <-ticker.C:
			g.server.Step(interval)
		}
	}
}

func (g *GameLoop) Stop() {
	g.stopOnce.Do(func() { close(g.stopChan) })
}
