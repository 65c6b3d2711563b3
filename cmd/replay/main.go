package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"beltworks.dev/internal/logging"
	persistlog "beltworks.dev/internal/persistence/log"
	"beltworks.dev/internal/sim/world"
)

func main() {
	var (
		dataDir   = flag.String("data", "./data", "runtime data directory")
		worldID   = flag.String("world", "world_1", "world id")
		runID     = flag.String("run", "", "run id to verify (default: the most recent run in the log)")
		configDir = flag.String("configs", "./configs", "config directory")
		toTick    = flag.Uint64("to_tick", 0, "stop at tick (inclusive, optional)")
		logLevel  = flag.String("log_level", "warn", "log level")
	)
	flag.Parse()

	logger, err := logging.New(logging.Config{Level: *logLevel})
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}

	worldDir := filepath.Join(*dataDir, "worlds", *worldID)
	entries, err := persistlog.ReadTicks(worldDir, *runID)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read ticks:", err)
		os.Exit(1)
	}
	entries = lastRun(entries, *runID)
	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, "no tick entries found in", worldDir)
		os.Exit(1)
	}

	w, _, problems, err := world.Load(*configDir, *worldID, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load world:", err)
		os.Exit(1)
	}
	if len(problems) > 0 {
		fmt.Printf("configs have %d problems; replay is only meaningful if the run saw the same ones\n", len(problems))
	}

	checked, err := verify(w, entries, *toTick)
	if err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}
	fmt.Printf("replay ok: run=%s checked=%d digests over %d ticks\n", entries[0].RunID, checked, len(entries))
}

// lastRun keeps the entries of the most recent run unless runID pinned one.
func lastRun(entries []world.TickLogEntry, runID string) []world.TickLogEntry {
	if runID != "" || len(entries) == 0 {
		return entries
	}
	last := entries[len(entries)-1].RunID
	out := entries[:0:0]
	for _, e := range entries {
		if e.RunID == last {
			out = append(out, e)
		}
	}
	return out
}

// verify steps a freshly loaded world through entries and compares every
// report and every recorded digest. It returns the number of digests checked.
func verify(w *world.World, entries []world.TickLogEntry, toTick uint64) (int, error) {
	checked := 0
	for _, want := range entries {
		if toTick != 0 && want.Tick > toTick {
			break
		}
		if want.Tick != w.CurrentTick() {
			return checked, fmt.Errorf("tick gap: want=%d got=%d", want.Tick, w.CurrentTick())
		}
		got := w.StepOnce()
		if got.Report != want.Report {
			return checked, fmt.Errorf("report mismatch at tick %d: got=%+v want=%+v", want.Tick, got.Report, want.Report)
		}
		if want.Digest == "" {
			continue
		}
		checked++
		if got.Digest != want.Digest {
			return checked, fmt.Errorf("digest mismatch at tick %d: got=%s want=%s", want.Tick, got.Digest, want.Digest)
		}
	}
	return checked, nil
}
