// Command hss-plan answers one planning request read from a file or stdin,
// either locally or against a running hss-planner, and can render the
// resulting scene.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Tahakcygt/HSS-ka/internal/config"
	"github.com/Tahakcygt/HSS-ka/internal/httputil"
	"github.com/Tahakcygt/HSS-ka/internal/planner"
	"github.com/Tahakcygt/HSS-ka/internal/service"
	"github.com/Tahakcygt/HSS-ka/internal/version"
	"github.com/Tahakcygt/HSS-ka/internal/viz"
	"github.com/Tahakcygt/HSS-ka/internal/wire"
)

// Exit codes.
const (
	exitOK       = 0
	exitRejected = 1 // the planner rejected the request
	exitUsage    = 2
)

const maxInputBytes = 1 << 20

type options struct {
	in         string
	geo        bool
	server     string
	configPath string
	png        string
	html       string
	pretty     bool
	timeout    time.Duration
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("hss-plan", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.in, "in", "-", "request file (- for stdin)")
	fs.BoolVar(&o.geo, "geo", false, "treat the request as geodetic (default: detect from its keys)")
	fs.StringVar(&o.server, "server", "", "plan against a running hss-planner API, e.g. http://localhost:8080/api")
	fs.StringVar(&o.configPath, "config", "", "planner tuning file for local planning")
	fs.StringVar(&o.png, "png", "", "write the scene as a PNG to this path")
	fs.StringVar(&o.html, "html", "", "write the scene as an interactive HTML page to this path")
	fs.BoolVar(&o.pretty, "pretty", false, "indent the JSON response")
	fs.DurationVar(&o.timeout, "timeout", 10*time.Second, "HTTP timeout with -server")
	showVersion := fs.Bool("version", false, "print version and exit")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: hss-plan [flags] [request.json]\n\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if *showVersion {
		fmt.Fprintln(stderr, "hss-plan", version.String())
		return o, flag.ErrHelp
	}
	if fs.NArg() > 1 {
		return o, fmt.Errorf("expected at most one request file, got %d", fs.NArg())
	}
	if fs.NArg() == 1 {
		o.in = fs.Arg(0)
	}
	if o.server != "" && (o.png != "" || o.html != "") {
		return o, errors.New("-png and -html need local planning; drop -server")
	}
	return o, nil
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	data, err := io.ReadAll(io.LimitReader(r, maxInputBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxInputBytes {
		return nil, fmt.Errorf("request larger than %d bytes", maxInputBytes)
	}
	return bytes.TrimSpace(data), nil
}

func writeJSON(w io.Writer, raw []byte, pretty bool) error {
	if pretty {
		var buf bytes.Buffer
		if err := json.Indent(&buf, raw, "", "  "); err == nil {
			raw = buf.Bytes()
		}
	}
	_, err := fmt.Fprintln(w, strings.TrimSpace(string(raw)))
	return err
}

func planRemote(o options, payload []byte, stdout io.Writer) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()

	geo := o.geo || wire.Classify(payload) == wire.FormatGeo
	body, status, err := httputil.NewPlanClient(o.server, nil).Plan(ctx, payload, geo)
	if err != nil {
		return exitUsage, err
	}
	if err := writeJSON(stdout, body, o.pretty); err != nil {
		return exitUsage, err
	}
	if status >= 400 {
		return exitRejected, nil
	}
	return exitOK, nil
}

func planLocal(o options, payload []byte, stdout io.Writer) (int, error) {
	pl := planner.Default()
	if o.configPath != "" {
		cfg, err := config.LoadPlannerConfig(o.configPath)
		if err != nil {
			return exitUsage, err
		}
		if pl, err = planner.New(planner.ParamsFromConfig(cfg)); err != nil {
			return exitUsage, err
		}
	}
	svc := service.New(service.Config{Planner: pl})

	var (
		resp wire.Response
		err  error
	)
	if o.geo || wire.Classify(payload) == wire.FormatGeo {
		resp, err = svc.PlanGeo(service.SourceCLI, payload)
	} else {
		resp, err = svc.PlanLocal(service.SourceCLI, payload)
	}

	var out any = resp
	code := exitOK
	if err != nil {
		out, code = wire.NewErrorResponse(err), exitRejected
	}
	raw, merr := json.Marshal(out)
	if merr != nil {
		return exitUsage, merr
	}
	if err := writeJSON(stdout, raw, o.pretty); err != nil {
		return exitUsage, err
	}
	if code != exitOK {
		return code, nil
	}

	snap, ok := svc.Last()
	if !ok {
		return exitOK, nil
	}
	scene := viz.FromPlan(snap.Input, snap.Result)
	if o.png != "" {
		if err := viz.SavePNG(o.png, scene); err != nil {
			return exitUsage, fmt.Errorf("failed to write %s: %w", o.png, err)
		}
	}
	if o.html != "" {
		if err := writeHTML(o.html, scene); err != nil {
			return exitUsage, err
		}
	}
	return exitOK, nil
}

func writeHTML(path string, scene viz.Scene) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := viz.RenderHTML(f, scene); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	o, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintf(stderr, "hss-plan: %v\n", err)
		return exitUsage
	}

	payload, err := readInput(o.in, stdin)
	if err != nil {
		fmt.Fprintf(stderr, "hss-plan: read request: %v\n", err)
		return exitUsage
	}

	var code int
	if o.server != "" {
		code, err = planRemote(o, payload, stdout)
	} else {
		code, err = planLocal(o, payload, stdout)
	}
	if err != nil {
		fmt.Fprintf(stderr, "hss-plan: %v\n", err)
	}
	return code
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
