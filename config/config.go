package config

import (
	"fmt"
	"image/color"
	"strings"
	"time"

	"github.com/automoto/truckrace-mp/shared/netconfig"
	"github.com/spf13/viper"
)

// Config holds general window configuration
type Config struct {
	Width  int
	Height int
	Title  string
}

// NetConfig contains connection and registry settings
type NetConfig struct {
	ServerURL string
	// StaleAfter drops remote cars that stopped receiving snapshots.
	// Zero keeps them until the server says they left.
	StaleAfter time.Duration
}

// PlayerConfig contains the local player's settings
type PlayerConfig struct {
	Name string
}

// RenderConfig contains how remote cars are drawn
type RenderConfig struct {
	CarLength   float32
	CarWidth    float32
	ShowNames   bool
	LocalMarker color.RGBA
	Background  color.RGBA

	// Tints maps each presentation state to its fill colour.
	Tints map[netconfig.PresentationState]color.RGBA
}

// DebugConfig contains debug/testing command-line options
type DebugConfig struct {
	Enabled bool // verbose logging and the network HUD
}

// Global configuration instances
var C *Config
var Net NetConfig
var Player PlayerConfig
var Render RenderConfig
var Debug DebugConfig

// Shared RGBA color constants
var (
	White      = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	LightGreen = color.RGBA{R: 100, G: 255, B: 100, A: 255}
	LightRed   = color.RGBA{R: 255, G: 60, B: 60, A: 255}
)

func init() {
	setDefaults(viper.New())
}

// Load applies defaults, then the optional config file at path and
// TRUCKRACE_* environment variables, and publishes the result to the
// package-level configs. An empty path skips the file.
func Load(path string) error {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("truckrace")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return apply(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("window.width", 640)
	v.SetDefault("window.height", 360)
	v.SetDefault("window.title", "truckrace")

	v.SetDefault("net.serverUrl", "ws://localhost:7373/ws")
	v.SetDefault("net.staleAfter", "5s")

	v.SetDefault("player.name", "")

	v.SetDefault("render.carLength", 10)
	v.SetDefault("render.carWidth", 10)
	v.SetDefault("render.showNames", true)
	v.SetDefault("render.localMarker", "#64ff64")
	v.SetDefault("render.background", "#202020")
	v.SetDefault("render.tints.normal", "#ffffff")
	v.SetDefault("render.tints.braking", "#000066")
	v.SetDefault("render.tints.boosting", "#ffff00")
	v.SetDefault("render.tints.dead", "#666666")

	v.SetDefault("debug", false)

	// init() has no file to read; defaults always parse.
	_ = apply(v)
}

func apply(v *viper.Viper) error {
	tints := make(map[netconfig.PresentationState]color.RGBA)
	for _, state := range []netconfig.PresentationState{
		netconfig.PresentationNormal,
		netconfig.PresentationBraking,
		netconfig.PresentationBoosting,
		netconfig.PresentationDead,
	} {
		c, err := ParseHexColor(v.GetString("render.tints." + state.String()))
		if err != nil {
			return fmt.Errorf("render.tints.%s: %w", state, err)
		}
		tints[state] = c
	}
	marker, err := ParseHexColor(v.GetString("render.localMarker"))
	if err != nil {
		return fmt.Errorf("render.localMarker: %w", err)
	}
	bg, err := ParseHexColor(v.GetString("render.background"))
	if err != nil {
		return fmt.Errorf("render.background: %w", err)
	}

	C = &Config{
		Width:  v.GetInt("window.width"),
		Height: v.GetInt("window.height"),
		Title:  v.GetString("window.title"),
	}
	Net = NetConfig{
		ServerURL:  v.GetString("net.serverUrl"),
		StaleAfter: v.GetDuration("net.staleAfter"),
	}
	Player = PlayerConfig{
		Name: v.GetString("player.name"),
	}
	Render = RenderConfig{
		CarLength:   float32(v.GetFloat64("render.carLength")),
		CarWidth:    float32(v.GetFloat64("render.carWidth")),
		ShowNames:   v.GetBool("render.showNames"),
		LocalMarker: marker,
		Background:  bg,
		Tints:       tints,
	}
	Debug = DebugConfig{
		Enabled: v.GetBool("debug"),
	}
	return nil
}

// ParseHexColor parses "#rrggbb" or "rrggbb" into an opaque colour.
func ParseHexColor(s string) (color.RGBA, error) {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid colour %q", s)
	}
	var r, g, b uint8
	if _, err := fmt.Sscanf(s, "%02x%02x%02x", &r, &g, &b); err != nil {
		return color.RGBA{}, fmt.Errorf("invalid colour %q: %w", s, err)
	}
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}
