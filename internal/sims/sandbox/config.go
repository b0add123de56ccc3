package sandbox

import (
	"flag"
	"strconv"
)

// Params holds the tunables of the sandbox world.
type Params struct {
	RockChance      float64
	WaterPools      int
	WaterPoolRadius int
	SeamLength      int
	SeamFuel        int

	DiffusionMillis int
	TPS             int

	BurnDamage    int
	UnitHealth    int
	SpawnInterval int
	StartingGold  int
	Bounty        int
	LeakPenalty   int
}

// Config controls the sandbox dimensions and level generation.
type Config struct {
	Width  int
	Height int

	Seed int64

	Params Params
}

// DefaultConfig returns the standard configuration.
func DefaultConfig() Config {
	return Config{
		Width:  64,
		Height: 40,
		Seed:   1337,
		Params: Params{
			RockChance:      0.08,
			WaterPools:      3,
			WaterPoolRadius: 3,
			SeamLength:      12,
			SeamFuel:        120,
			DiffusionMillis: 100,
			TPS:             60,
			BurnDamage:      2,
			UnitHealth:      40,
			SpawnInterval:   8,
			StartingGold:    100,
			Bounty:          5,
			LeakPenalty:     10,
		},
	}
}

// FromMap populates the config from a string map (flag-style key/value pairs).
func FromMap(cfg map[string]string) Config {
	c := DefaultConfig()
	if cfg == nil {
		return c
	}
	if v, ok := cfg["w"]; ok {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			c.Width = parsed
		}
	}
	if v, ok := cfg["h"]; ok {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			c.Height = parsed
		}
	}
	if v, ok := cfg["seed"]; ok {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Seed = parsed
		}
	}
	if v, ok := cfg["rock_chance"]; ok {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil && parsed >= 0 && parsed <= 1 {
			c.Params.RockChance = parsed
		}
	}
	setInt(cfg, "water_pools", 0, &c.Params.WaterPools)
	setInt(cfg, "water_pool_radius", 0, &c.Params.WaterPoolRadius)
	setInt(cfg, "seam_length", 0, &c.Params.SeamLength)
	setInt(cfg, "seam_fuel", 0, &c.Params.SeamFuel)
	setInt(cfg, "diffusion_ms", 1, &c.Params.DiffusionMillis)
	setInt(cfg, "tps", 1, &c.Params.TPS)
	setInt(cfg, "burn_damage", 0, &c.Params.BurnDamage)
	setInt(cfg, "unit_health", 1, &c.Params.UnitHealth)
	setInt(cfg, "spawn_interval", 0, &c.Params.SpawnInterval)
	setInt(cfg, "starting_gold", 0, &c.Params.StartingGold)
	setInt(cfg, "bounty", 0, &c.Params.Bounty)
	setInt(cfg, "leak_penalty", 0, &c.Params.LeakPenalty)
	return c
}

func setInt(cfg map[string]string, key string, min int, dst *int) {
	v, ok := cfg[key]
	if !ok {
		return
	}
	if parsed, err := strconv.Atoi(v); err == nil && parsed >= min {
		*dst = parsed
	}
}

// Bind attaches the configuration to the provided FlagSet.
func (c *Config) Bind(fs *flag.FlagSet) {
	fs.IntVar(&c.Width, "w", c.Width, "map width in tiles")
	fs.IntVar(&c.Height, "h", c.Height, "map height in tiles")
	fs.Int64Var(&c.Seed, "seed", c.Seed, "level generation seed")
	fs.Float64Var(&c.Params.RockChance, "rock-chance", c.Params.RockChance, "chance a tile starts as rock")
	fs.IntVar(&c.Params.WaterPools, "water-pools", c.Params.WaterPools, "number of water pools")
	fs.IntVar(&c.Params.SeamFuel, "seam-fuel", c.Params.SeamFuel, "fire charge of the burning seam")
	fs.IntVar(&c.Params.DiffusionMillis, "diffusion-ms", c.Params.DiffusionMillis, "simulated milliseconds between diffusion passes")
	fs.IntVar(&c.Params.TPS, "tps", c.Params.TPS, "simulation ticks per second")
	fs.IntVar(&c.Params.BurnDamage, "burn-damage", c.Params.BurnDamage, "damage per pass to units standing in fire")
	fs.IntVar(&c.Params.SpawnInterval, "spawn-interval", c.Params.SpawnInterval, "diffusion passes between unit spawns (0 disables)")
	fs.IntVar(&c.Params.StartingGold, "gold", c.Params.StartingGold, "starting gold")
}
