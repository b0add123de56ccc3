package sandbox

import (
	"strconv"
	"time"

	"elemental-td/internal/core"
)

// Parameters reports the current tunables grouped for the HUD.
func (w *World) Parameters() core.ParameterSnapshot {
	params := w.cfg.Params
	groups := []core.ParameterGroup{
		{
			Name: "World",
			Params: []core.Parameter{
				intParam("w", "Width", w.cfg.Width),
				intParam("h", "Height", w.cfg.Height),
				int64Param("seed", "Seed", w.cfg.Seed),
			},
		},
		{
			Name: "Level",
			Params: []core.Parameter{
				floatParam("rock_chance", "Rock chance", params.RockChance),
				intParam("water_pools", "Water pools", params.WaterPools),
				intParam("water_pool_radius", "Water pool radius", params.WaterPoolRadius),
				intParam("seam_length", "Seam length", params.SeamLength),
				intParam("seam_fuel", "Seam fuel", params.SeamFuel),
			},
		},
		{
			Name:    "Fire",
			Summary: "Diffusion runs on simulated time, independent of frame rate.",
			Params: []core.Parameter{
				intParam("diffusion_ms", "Diffusion interval (ms)", params.DiffusionMillis),
				intParam("burn_damage", "Burn damage", params.BurnDamage),
			},
		},
		{
			Name: "Waves",
			Params: []core.Parameter{
				intParam("unit_health", "Unit health", params.UnitHealth),
				intParam("spawn_interval", "Spawn interval", params.SpawnInterval),
				intParam("bounty", "Bounty", params.Bounty),
				intParam("leak_penalty", "Leak penalty", params.LeakPenalty),
				intParam("gold", "Gold", w.roster.Treasury().Gold()),
			},
		},
	}
	return core.ParameterSnapshot{Groups: groups}
}

// ParameterControls lists the values the HUD may adjust live.
func (w *World) ParameterControls() []core.ParameterControl {
	return []core.ParameterControl{
		{Key: "diffusion_ms", Label: "Diffusion ms", Type: core.ParamTypeInt, Step: 10, Min: 10, HasMin: true, Max: 2000, HasMax: true},
		{Key: "burn_damage", Label: "Burn damage", Type: core.ParamTypeInt, Step: 1, Min: 0, HasMin: true},
		{Key: "spawn_interval", Label: "Spawn interval", Type: core.ParamTypeInt, Step: 1, Min: 0, HasMin: true},
		{Key: "unit_health", Label: "Unit health", Type: core.ParamTypeInt, Step: 5, Min: 1, HasMin: true},
		{Key: "seam_fuel", Label: "Seam fuel", Type: core.ParamTypeInt, Step: 10, Min: 0, HasMin: true},
		{Key: "rock_chance", Label: "Rock chance", Type: core.ParamTypeFloat, Step: 0.01, Min: 0, HasMin: true, Max: 1, HasMax: true},
	}
}

// SetIntParameter updates an integer tunable. Level generation tunables take
// effect on the next Reset.
func (w *World) SetIntParameter(key string, value int) bool {
	p := &w.cfg.Params
	switch key {
	case "diffusion_ms":
		if value <= 0 {
			return false
		}
		w.SetDiffusionInterval(time.Duration(value) * time.Millisecond)
	case "burn_damage":
		if value < 0 {
			return false
		}
		p.BurnDamage = value
	case "spawn_interval":
		if value < 0 {
			return false
		}
		p.SpawnInterval = value
	case "unit_health":
		if value < 1 {
			return false
		}
		p.UnitHealth = value
	case "seam_fuel":
		if value < 0 {
			return false
		}
		p.SeamFuel = value
	case "water_pools":
		if value < 0 {
			return false
		}
		p.WaterPools = value
	default:
		return false
	}
	return true
}

// SetFloatParameter updates a floating point tunable.
func (w *World) SetFloatParameter(key string, value float64) bool {
	switch key {
	case "rock_chance":
		if value < 0 || value > 1 {
			return false
		}
		w.cfg.Params.RockChance = value
		return true
	default:
		return false
	}
}

func intParam(key, label string, value int) core.Parameter {
	return core.Parameter{
		Key:   key,
		Label: label,
		Type:  core.ParamTypeInt,
		Value: strconv.Itoa(value),
	}
}

func int64Param(key, label string, value int64) core.Parameter {
	return core.Parameter{
		Key:   key,
		Label: label,
		Type:  core.ParamTypeInt,
		Value: strconv.FormatInt(value, 10),
	}
}

func floatParam(key, label string, value float64) core.Parameter {
	return core.Parameter{
		Key:   key,
		Label: label,
		Type:  core.ParamTypeFloat,
		Value: strconv.FormatFloat(value, 'f', -1, 64),
	}
}

func init() {
	core.Register("sandbox", func(cfg map[string]string) core.Sim {
		return NewWithConfig(FromMap(cfg))
	})
}
