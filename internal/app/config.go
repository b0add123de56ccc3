package app

import "flag"

// Config represents the command-line parameters of the windowed editor.
type Config struct {
	Scale    int
	Seed     int64
	HUDWidth int
	Level    string
	Store    string
}

// NewConfig returns a Config populated with sensible defaults.
func NewConfig() *Config {
	return &Config{Scale: 12, HUDWidth: 240, Store: "levels.json"}
}

// Bind attaches the configuration to the provided FlagSet.
func (c *Config) Bind(fs *flag.FlagSet) {
	fs.IntVar(&c.Scale, "scale", c.Scale, "pixels per tile")
	fs.Int64Var(&c.Seed, "reset-seed", c.Seed, "seed used by the reset key (0 keeps the level seed)")
	fs.IntVar(&c.HUDWidth, "hud", c.HUDWidth, "width of the parameter panel in pixels")
	fs.StringVar(&c.Level, "level", c.Level, "stored level to open instead of generating one")
	fs.StringVar(&c.Store, "store", c.Store, "JSON file holding saved levels")
}
