package config

// Render layers, drawn in order. Untyped so the package stays free of the
// ebiten import that donburi/ecs pulls in.
const (
	Default = iota
	HUD
)
