package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/Tahakcygt/HSS-ka/internal/api"
	"github.com/Tahakcygt/HSS-ka/internal/config"
	"github.com/Tahakcygt/HSS-ka/internal/db"
	"github.com/Tahakcygt/HSS-ka/internal/monitoring"
	"github.com/Tahakcygt/HSS-ka/internal/planner"
	"github.com/Tahakcygt/HSS-ka/internal/serialmux"
	"github.com/Tahakcygt/HSS-ka/internal/service"
	"github.com/Tahakcygt/HSS-ka/internal/version"
)

var (
	listen        = flag.String("listen", ":8080", "HTTP listen address")
	port          = flag.String("port", "/dev/ttyACM0", "Serial port of the flight controller link")
	baud          = flag.Int("baud", serialmux.DefaultBaudRate, "Serial baud rate")
	framing       = flag.String("framing", "8N1", "Serial framing: data bits, parity (N/E/O), stop bits")
	devMode       = flag.Bool("dev", false, "Replay request lines from -fixtures instead of opening the serial port")
	fixtures      = flag.String("fixtures", "fixtures.jsonl", "Request lines replayed in dev mode")
	disableSerial = flag.Bool("disable-serial", false, "Run without a serial link (HTTP only)")
	dbPath        = flag.String("db", "hss_journal.db", "Path to the decision journal (empty disables journalling)")
	configPath    = flag.String("config", "", "Planner tuning file (.json, .yaml), e.g. "+config.DefaultConfigPath+"; defaults are built in")
	showVersion   = flag.Bool("version", false, "Print version and exit")
)

// fixtureInterval paces dev-mode replays.
const fixtureInterval = 2 * time.Second

func loadPlanner(path string) (*planner.Planner, error) {
	if path == "" {
		return planner.Default(), nil
	}
	cfg, err := config.LoadPlannerConfig(path)
	if err != nil {
		return nil, err
	}
	return planner.New(planner.ParamsFromConfig(cfg))
}

func readFixtures(path string) ([][]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open fixtures file: %w", err)
	}
	defer f.Close()

	var lines [][]byte
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), serialmux.MaxLineBytes)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, []byte(line))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read fixtures file: %w", err)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("fixtures file %s has no request lines", path)
	}
	return lines, nil
}

func openSerial() (serialmux.SerialMuxInterface, api.SerialInfo, error) {
	if *disableSerial {
		return serialmux.NewDisabledSerialMux(), api.SerialInfo{}, nil
	}
	if *devMode {
		lines, err := readFixtures(*fixtures)
		if err != nil {
			return nil, api.SerialInfo{}, err
		}
		info := api.SerialInfo{Port: "fixtures:" + *fixtures, Options: "mock", Enabled: true}
		return serialmux.NewMockSerialMux(lines, fixtureInterval), info, nil
	}

	opts, err := serialmux.PortOptions{BaudRate: *baud}.ParseFraming(*framing)
	if err != nil {
		return nil, api.SerialInfo{}, err
	}
	m, err := serialmux.NewRealSerialMux(*port, opts)
	if err != nil {
		return nil, api.SerialInfo{}, err
	}
	return m, api.SerialInfo{Port: *port, Options: opts.String(), Enabled: true}, nil
}

// newRootMux mounts the API under /api/ next to /metrics and the admin
// debug routes.
func newRootMux(srv *api.Server, metrics *monitoring.Metrics) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/api/", http.StripPrefix("/api", srv.ServeMux()))
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintln(w, "ok")
	})
	return mux
}

// Main
func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println("hss-planner", version.String())
		return
	}

	if flag.NArg() > 0 && flag.Arg(0) == "migrate" {
		if err := db.RunMigrateCommand(flag.Args()[1:], *dbPath, os.Stdout); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		return
	}
	if flag.NArg() > 0 {
		log.Fatalf("unknown command %q", flag.Arg(0))
	}

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	pl, err := loadPlanner(*configPath)
	if err != nil {
		log.Fatalf("failed to load planner config: %v", err)
	}

	var journal *db.DB
	if *dbPath != "" {
		journal, err = db.NewDB(*dbPath)
		if err != nil {
			log.Fatalf("Failed to open decision journal: %v", err)
		}
		defer journal.Close()
	}

	link, serialInfo, err := openSerial()
	if err != nil {
		log.Fatalf("failed to open serial link: %v", err)
	}
	defer link.Close()

	metrics := monitoring.NewMetrics()
	metrics.WatchSerialDrops(link.Dropped)
	svcCfg := service.Config{Planner: pl, Metrics: metrics}
	apiCfg := api.Config{Serial: serialInfo}
	if journal != nil {
		svcCfg.Journal = journal
		apiCfg.Store = journal
	}
	svc := service.New(svcCfg)
	apiCfg.Service = svc

	log.Printf("hss-planner %s: serial=%s journal=%q", version.String(), serialInfo.Port, *dbPath)

	// Create a wait group for the HTTP server, serial monitor, and request handler routines
	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// subscribe before the monitor starts so the first request line is answered
	requestsID, requests := link.Subscribe()

	// run the monitor routine to manage IO on the serial port
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := link.Monitor(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("failed to monitor serial port: %v", err)
		}
		log.Print("monitor routine terminated")
	}()

	// answer every planning request line on the link
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := serialmux.ServeLines(ctx, link, requestsID, requests, svc.HandleLine); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("serial request handler stopped: %v", err)
		}
		log.Print("request routine terminated")
	}()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := newRootMux(api.NewServer(apiCfg), metrics)
		link.AttachAdminRoutes(mux)
		if journal != nil {
			journal.AttachAdminRoutes(mux)
		}

		server := &http.Server{
			Addr:              *listen,
			Handler:           api.LoggingMiddleware(mux),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Start server in a goroutine so it doesn't block
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		// Wait for context cancellation to shut down server
		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
