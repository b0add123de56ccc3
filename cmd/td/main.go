//go:build ebiten

package main

import (
	"context"
	"errors"
	"flag"
	"log"

	"github.com/hajimehoshi/ebiten/v2"

	"elemental-td/internal/app"
	"elemental-td/internal/sims/sandbox"
	"elemental-td/internal/store"
)

func main() {
	cfg := app.NewConfig()
	cfg.Bind(flag.CommandLine)
	worldCfg := sandbox.DefaultConfig()
	worldCfg.Bind(flag.CommandLine)
	flag.Parse()

	levels, err := store.NewJSONStore(cfg.Store)
	if err != nil {
		log.Fatal(err)
	}
	defer levels.Close()

	world := sandbox.NewWithConfig(worldCfg)
	world.Reset(0)
	if cfg.Level != "" {
		s, err := levels.LoadLevel(context.Background(), cfg.Level)
		if err != nil {
			log.Fatal(err)
		}
		if err := world.LoadSnapshot(s); err != nil {
			log.Fatal(err)
		}
	}

	save := func(name string) error {
		return levels.SaveLevel(context.Background(), world.Snapshot(name))
	}
	game := app.New(world, cfg, save)
	size := world.Size()

	ebiten.SetWindowTitle("elemental-td: " + world.Name())
	ebiten.SetTPS(worldCfg.Params.TPS)
	ebiten.SetWindowSize(size.W*cfg.Scale+cfg.HUDWidth, size.H*cfg.Scale)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	if err := ebiten.RunGame(game); err != nil && !errors.Is(err, ebiten.Termination) {
		log.Fatal(err)
	}
}
