package systems

import (
	"image/color"

	cfg "github.com/automoto/truckrace-mp/config"
	"github.com/automoto/truckrace-mp/network"
	"github.com/automoto/truckrace-mp/shared/netcomponents"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/ecs"
)

var (
	debugSnapshot = color.RGBA{0, 255, 255, 255} // Cyan
	debugVelocity = color.RGBA{255, 0, 255, 255} // Magenta
)

// NewDebugRenderer outlines where each car was last reported and draws the
// extrapolation offset from there to where it is drawn now.
func NewDebugRenderer(session *network.Session, now Clock) func(*ecs.ECS, *ebiten.Image) {
	return func(e *ecs.ECS, screen *ebiten.Image) {
		if !cfg.Debug.Enabled {
			return
		}

		t := now()
		camX, camY := cameraOrigin(session, screen)
		width, height := float64(screen.Bounds().Dx()), float64(screen.Bounds().Dy())
		half := float64(cfg.Render.CarLength) / 2

		carQuery.Each(e.World, func(entry *donburi.Entry) {
			car := netcomponents.EntityState.Get(entry)
			x := car.X - camX
			y := car.Y - camY

			// Cull cars outside the viewport
			if x+half < 0 || x-half > width || y+half < 0 || y-half > height {
				return
			}

			size := float32(2 * half)
			left, top := float32(x-half), float32(y-half)
			vector.FillRect(screen, left, top, size, 1, debugSnapshot, false)        // Top
			vector.FillRect(screen, left, top+size-1, size, 1, debugSnapshot, false) // Bottom
			vector.FillRect(screen, left, top, 1, size, debugSnapshot, false)        // Left
			vector.FillRect(screen, left+size-1, top, 1, size, debugSnapshot, false) // Right

			pose := car.Extrapolate(t)
			vector.StrokeLine(screen, float32(x), float32(y),
				float32(pose.X-camX), float32(pose.Y-camY), 1, debugVelocity, false)
		})
	}
}
