// Command hss-sim flies a chase scenario through the planner and reports
// how it went, optionally rendering the trajectory.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"syscall"

	"github.com/Tahakcygt/HSS-ka/internal/config"
	"github.com/Tahakcygt/HSS-ka/internal/planner"
	"github.com/Tahakcygt/HSS-ka/internal/sim"
	"github.com/Tahakcygt/HSS-ka/internal/viz"
)

// Summary is the machine-readable outcome printed with -json.
type Summary struct {
	Name      string         `json:"name"`
	Captured  bool           `json:"captured"`
	Duration  float64        `json:"duration_s"`
	Steps     int            `json:"steps"`
	Decisions int            `json:"decisions"`
	Modes     map[string]int `json:"modes"`
	// MinClearance is omitted when the scenario has no zones.
	MinClearance *float64 `json:"min_clearance_m,omitempty"`
}

func summarize(run sim.Run) Summary {
	s := Summary{
		Name:      run.Scenario.Name,
		Captured:  run.Captured,
		Duration:  run.Duration,
		Steps:     len(run.Samples),
		Decisions: len(run.Decisions),
		Modes:     make(map[string]int, len(planner.Modes)),
	}
	for mode, n := range run.ModeCounts() {
		s.Modes[mode.String()] = n
	}
	if !math.IsInf(run.MinClearance, 0) {
		c := run.MinClearance
		s.MinClearance = &c
	}
	return s
}

func printSummary(w io.Writer, s Summary) {
	outcome := "step limit reached"
	if s.Captured {
		outcome = "target captured"
	}
	fmt.Fprintf(w, "%s: %s after %.1fs (%d steps, %d decisions)\n", s.Name, outcome, s.Duration, s.Steps, s.Decisions)
	for _, m := range planner.Modes {
		fmt.Fprintf(w, "  %-9s %d\n", m, s.Modes[m.String()])
	}
	if s.MinClearance != nil {
		fmt.Fprintf(w, "  min zone clearance %.1f m\n", *s.MinClearance)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("hss-sim", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "planner tuning file (.json, .yaml)")
	pngPath := fs.String("png", "", "write the trajectory as a PNG to this path")
	htmlPath := fs.String("html", "", "write the trajectory as an HTML page to this path")
	asJSON := fs.Bool("json", false, "print the summary as JSON")
	maxSteps := fs.Int("max-steps", 0, "override the scenario step limit")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: hss-sim [flags] scenario.yaml\n\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}

	sc, err := sim.LoadScenario(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(stderr, "hss-sim: %v\n", err)
		return 2
	}
	if *maxSteps > 0 {
		sc.MaxSteps = *maxSteps
	}

	pl := planner.Default()
	if *configPath != "" {
		cfg, err := config.LoadPlannerConfig(*configPath)
		if err != nil {
			fmt.Fprintf(stderr, "hss-sim: %v\n", err)
			return 2
		}
		if pl, err = planner.New(planner.ParamsFromConfig(cfg)); err != nil {
			fmt.Fprintf(stderr, "hss-sim: %v\n", err)
			return 2
		}
	}

	result, err := sim.Simulate(ctx, pl, sc)
	if err != nil {
		fmt.Fprintf(stderr, "hss-sim: %v\n", err)
		return 1
	}

	summary := summarize(result)
	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			fmt.Fprintf(stderr, "hss-sim: %v\n", err)
			return 1
		}
	} else {
		printSummary(stdout, summary)
	}

	scene := result.Scene()
	if *pngPath != "" {
		if err := viz.SavePNG(*pngPath, scene); err != nil {
			fmt.Fprintf(stderr, "hss-sim: failed to write %s: %v\n", *pngPath, err)
			return 1
		}
	}
	if *htmlPath != "" {
		f, err := os.Create(*htmlPath)
		if err != nil {
			fmt.Fprintf(stderr, "hss-sim: %v\n", err)
			return 1
		}
		err = viz.RenderHTML(f, scene)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			fmt.Fprintf(stderr, "hss-sim: failed to write %s: %v\n", *htmlPath, err)
			return 1
		}
	}

	if !result.Captured {
		return 3
	}
	return 0
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
