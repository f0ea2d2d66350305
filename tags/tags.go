package tags

import "github.com/yohamta/donburi"

var (
	// Car marks every remote car entity created from an initial snapshot.
	Car = donburi.NewTag().SetName("Car")
)
