package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"

	"elemental-td/internal/core"
	"elemental-td/internal/sims/sandbox"
)

type kvList []string

func (l *kvList) String() string {
	return strings.Join(*l, ",")
}

func (l *kvList) Set(value string) error {
	*l = append(*l, value)
	return nil
}

func main() {
	steps := flag.Int("steps", 400, "ticks to simulate per fuel level")
	workers := flag.Int("workers", runtime.NumCPU(), "parallel probes")
	width := flag.Int("width", 31, "probe map width")
	height := flag.Int("height", 31, "probe map height")
	fuelList := flag.String("fuels", "50,100,200,400,800,1600", "comma separated fuel levels to probe")
	var overrides kvList
	flag.Var(&overrides, "set", "sandbox parameter override in key=value form (repeatable)")
	list := flag.Bool("list", false, "print registered sims with their parameters and exit")
	flag.Parse()

	if *list {
		listSims(os.Stdout)
		return
	}

	values := map[string]string{
		"w": strconv.Itoa(*width),
		"h": strconv.Itoa(*height),
	}
	for _, kv := range overrides {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			log.Fatalf("override %q is not key=value", kv)
		}
		values[key] = value
	}
	cfg := sandbox.FromMap(values)

	fuels, err := parseFuels(*fuelList)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results, err := sandbox.BurnSweep(ctx, cfg, fuels, *steps, *workers)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Probe %dx%d, diffusion every %dms at %d tps, %d steps\n",
		cfg.Width, cfg.Height, cfg.Params.DiffusionMillis, cfg.Params.TPS, *steps)
	for _, r := range results {
		fmt.Printf("  fuel %5d: ignited %3d, reach %.2f, peak %3d, last burning step %d/%d, charge left %d\n",
			r.Fuel, r.Ignited, r.MaxDistance, r.PeakBurning, r.LastBurningStep, r.StepsSimulated, r.FuelRemaining)
	}
	if threshold, ok := sandbox.IgnitionThreshold(results); ok {
		fmt.Printf("\nLowest fuel that spreads: %d\n", threshold)
	} else {
		fmt.Println("\nNo probed fuel level spreads fire.")
	}
}

// listSims prints every registered sim with its default parameters, which
// double as the keys -set accepts.
func listSims(w io.Writer) {
	for _, name := range core.Names() {
		fmt.Fprintln(w, name)
		f, _ := core.Lookup(name)
		p, ok := f(nil).(core.ParameterSnapshotProvider)
		if !ok {
			continue
		}
		for _, g := range p.Parameters().Groups {
			for _, param := range g.Params {
				fmt.Fprintf(w, "  %-18s %-8s %s\n", param.Key, param.Value, param.Label)
			}
		}
	}
}

func parseFuels(list string) ([]uint32, error) {
	var fuels []uint32
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseUint(part, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("fuel %q: %w", part, err)
		}
		fuels = append(fuels, uint32(v))
	}
	if len(fuels) == 0 {
		return nil, fmt.Errorf("no fuel levels in %q", list)
	}
	return fuels, nil
}
