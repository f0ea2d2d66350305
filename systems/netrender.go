package systems

import (
	"fmt"
	"image/color"

	cfg "github.com/automoto/truckrace-mp/config"
	"github.com/automoto/truckrace-mp/fonts"
	"github.com/automoto/truckrace-mp/network"
	"github.com/automoto/truckrace-mp/shared/netcomponents"
	"github.com/automoto/truckrace-mp/tags"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/ecs"
	"github.com/yohamta/donburi/filter"
)

var carQuery = donburi.NewQuery(filter.Contains(tags.Car, netcomponents.EntityState))

var carImage *ebiten.Image
var carDrawOp = &ebiten.DrawImageOptions{}

// NewCarRenderer draws every car at its extrapolated pose, tinted by its
// presentation state. The camera follows the local car once it is known.
func NewCarRenderer(session *network.Session, now Clock) func(*ecs.ECS, *ebiten.Image) {
	return func(e *ecs.ECS, screen *ebiten.Image) {
		if carImage == nil {
			carImage = ebiten.NewImage(1, 1)
			carImage.Fill(color.White)
		}

		t := now()
		camX, camY := cameraOrigin(session, screen)
		localID, hasLocal := session.LocalID()
		labelFace := fonts.Label.Get()

		carQuery.Each(e.World, func(entry *donburi.Entry) {
			car := netcomponents.EntityState.Get(entry)
			pose := car.Extrapolate(t)
			sx := pose.X - camX
			sy := pose.Y - camY

			tint := cfg.Render.Tints[car.Classify()]
			drawCar(screen, sx, sy, pose.Angle, cfg.Render.CarLength, cfg.Render.CarWidth, tint)
			if hasLocal && car.ID == localID {
				drawCar(screen, sx, sy, pose.Angle, cfg.Render.CarLength/3, cfg.Render.CarWidth/3, cfg.Render.LocalMarker)
			}

			if cfg.Render.ShowNames && car.Name != "" {
				text.Draw(screen, car.Name, labelFace, int(sx)-len(car.Name)*2, int(sy)-int(cfg.Render.CarWidth), cfg.White)
			}
		})
	}
}

// cameraOrigin returns the world point drawn at the top-left corner.
func cameraOrigin(session *network.Session, screen *ebiten.Image) (float64, float64) {
	w := float64(screen.Bounds().Dx())
	h := float64(screen.Bounds().Dy())

	// Centre on the last authoritative position so the camera does not drift
	// with extrapolation error.
	if id, ok := session.LocalID(); ok {
		if car, ok := session.Get(id); ok {
			return car.X - w/2, car.Y - h/2
		}
	}
	return -w / 2, -h / 2
}

func drawCar(screen *ebiten.Image, x, y, angle float64, length, width float32, tint color.Color) {
	carDrawOp.GeoM.Reset()
	carDrawOp.ColorScale.Reset()

	carDrawOp.GeoM.Translate(-0.5, -0.5)
	carDrawOp.GeoM.Scale(float64(length), float64(width))
	carDrawOp.GeoM.Rotate(angle)
	carDrawOp.GeoM.Translate(x, y)
	carDrawOp.ColorScale.ScaleWithColor(tint)

	screen.DrawImage(carImage, carDrawOp)
}

// NewNetworkHUD draws connection and registry statistics.
func NewNetworkHUD(session *network.Session, state func() network.ClientState) func(*ecs.ECS, *ebiten.Image) {
	return func(_ *ecs.ECS, screen *ebiten.Image) {
		st := session.Stats()
		info := fmt.Sprintf("%s - cars: %d  %dHz", state(), session.Len(), session.TickHz())
		text.Draw(screen, info, fonts.HUD.Get(), 4, 12, cfg.LightGreen)

		if cfg.Debug.Enabled {
			dbg := fmt.Sprintf("frames %d  applied %d  dropped %d  swept %d  revived %d",
				st.Frames, st.UpdatesApplied, st.UpdatesDropped, st.Swept, st.Revived)
			text.Draw(screen, dbg, fonts.HUD.Get(), 4, 26, cfg.White)
		}
		if state() == network.StateError {
			text.Draw(screen, "connection lost", fonts.HUD.Get(), 4, 40, cfg.LightRed)
		}
	}
}
