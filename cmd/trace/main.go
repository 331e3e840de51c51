// Command trace reads a directions response from a file argument (or stdin)
// and writes its timestamped trajectory as GeoJSON to stdout. With -events it
// writes the location events instead, with -maneuvers the maneuver timeline.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"guidance-replay/internal/locator"
	"guidance-replay/internal/route"
	"guidance-replay/internal/sim"
)

func main() {
	spacing := flag.String("spacing", "constant", "coordinate timing: constant or acceldecel")
	rate := flag.Float64("rate", route.DefaultAccelRate, "speed change rate in km/h per second (acceldecel)")
	events := flag.Bool("events", false, "print location events instead of the trajectory")
	interval := flag.Duration("interval", time.Second, "tick interval for -events")
	start := flag.Float64("start", -1, "with -events, stream from this time in ms using the cursor instead of all ticks")
	maneuvers := flag.Bool("maneuvers", false, "print maneuver times and locations")
	flag.Parse()

	var (
		data []byte
		err  error
	)
	if flag.NArg() > 0 {
		data, err = os.ReadFile(flag.Arg(0))
	} else {
		data, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		fail("error reading input", err)
	}

	out, err := run(data, *spacing, *rate, *events, *interval, *start, *maneuvers)
	if err != nil {
		fail("trace error", err)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fail("error writing output", err)
	}
}

func run(data []byte, spacing string, rate float64, events bool, interval time.Duration, start float64, maneuvers bool) (any, error) {
	d, err := route.Parse(data)
	if err != nil {
		return nil, err
	}
	sp, err := route.ParseSpacing(spacing)
	if err != nil {
		return nil, err
	}
	if maneuvers {
		l, err := locator.New(d, sp)
		if err != nil {
			return nil, err
		}
		return l.Maneuvers(), nil
	}

	b, err := route.NewBuilder(sp, rate)
	if err != nil {
		return nil, err
	}
	tr, err := b.Build(d)
	if err != nil {
		return nil, err
	}
	if !events {
		return tr.Feature(), nil
	}

	em, err := sim.NewEmitter(tr, interval)
	if err != nil {
		return nil, err
	}
	if start < 0 {
		return em.All(), nil
	}
	em.Seek(start)
	var out []sim.LocationEvent
	for ev := em.Next(); ev != nil; ev = em.Next() {
		out = append(out, *ev)
	}
	return out, nil
}

func fail(msg string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	os.Exit(1)
}
