// Command ls-meteors is a terminal meteor-shower simulation that streams
// region occupancy to an analytics process and charts its forecasts.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/term"

	"github.com/litescript/ls-meteors/internal/analytics"
	"github.com/litescript/ls-meteors/internal/config"
	"github.com/litescript/ls-meteors/internal/engine"
	"github.com/litescript/ls-meteors/internal/headless"
	"github.com/litescript/ls-meteors/internal/logging"
	"github.com/litescript/ls-meteors/internal/metrics"
	"github.com/litescript/ls-meteors/internal/sim"
	"github.com/litescript/ls-meteors/internal/socket"
	"github.com/litescript/ls-meteors/internal/state"
	"github.com/litescript/ls-meteors/internal/telemetry"
	"github.com/litescript/ls-meteors/internal/ui"
	"github.com/litescript/ls-meteors/internal/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Flags override the environment
	flag.StringVar(&cfg.AnalyticsURL, "url", cfg.AnalyticsURL, "Analytics WebSocket URL")
	flag.IntVar(&cfg.FPS, "fps", cfg.FPS, "Render ticks per second (1-120)")
	flag.IntVar(&cfg.Cadence, "cadence", cfg.Cadence, "Ticks per meteor_in_region window")
	flag.DurationVar(&cfg.PollInterval, "poll", cfg.PollInterval, "Wall-clock graph data poll interval")
	flag.Int64Var(&cfg.Seed, "seed", cfg.Seed, "Random seed (0 = clock)")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	flag.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "Write logs to file (TUI mode discards logs otherwise)")
	flag.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Serve Prometheus metrics on addr (e.g. :9102)")
	flag.BoolVar(&cfg.Headless, "headless", cfg.Headless, "Run without the TUI")
	jsonOut := flag.Bool("json", false, "Headless: write chart updates as JSON lines")
	quiet := flag.Bool("quiet", false, "Headless: do not print closed windows")
	maxTicks := flag.Uint64("ticks", 0, "Headless: stop after N ticks (0 = run until interrupted)")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("ls-meteors v%s\n", version.Version)
		return nil
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Without a terminal there is nothing to draw on
	runHeadless := cfg.Headless || !term.IsTerminal(int(os.Stdout.Fd()))

	// Set up logging
	logger := logging.New(cfg.Level())
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		logger.SetOutput(f)
	} else if !runHeadless {
		// The TUI owns the terminal
		logger.SetOutput(io.Discard)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector, err := metrics.NewCollector(reg)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	if cfg.MetricsAddr != "" {
		go func() {
			logger.Info("metrics listening", "addr", cfg.MetricsAddr)
			if err := collector.ListenAndServe(ctx, cfg.MetricsAddr); err != nil {
				logger.Error("metrics server stopped", "error", err)
			}
		}()
	}

	// Initialize components
	stateMgr := state.NewManager(state.DefaultConfig())

	var program *tea.Program
	client := socket.NewClient(cfg.AnalyticsURL,
		socket.WithLogger(logger.With("component", "socket")),
		socket.WithMetrics(collector),
		socket.WithStatus(func(connected bool, err error) {
			stateMgr.SetConnected(connected, err)
			if program != nil {
				program.Send(ui.ConnStatusMsg{Connected: connected, Err: err})
			}
		}),
	)

	scheduler, err := telemetry.NewScheduler(cfg.Cadence, client)
	if err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	poller := telemetry.NewPoller(cfg.PollInterval, client)

	world := sim.NewWorld(cfg.World())
	eng, err := engine.New(world, scheduler, stateMgr, collector, logger.With("component", "engine"))
	if err != nil {
		return err
	}

	logger.Info("starting",
		"version", version.Version,
		"url", cfg.AnalyticsURL,
		"fps", cfg.FPS,
		"cadence", cfg.Cadence,
		"poll", cfg.PollInterval,
		"headless", runHeadless,
	)

	// Headless mode: no TUI
	if runHeadless {
		client.Start(ctx)
		go poller.Run(ctx)

		runner := &headless.Runner{
			Engine:        eng,
			Payloads:      client.Payloads(),
			FrameInterval: cfg.FrameInterval(),
			Out:           os.Stdout,
			JSON:          *jsonOut,
			Quiet:         *quiet,
			Logger:        logger,
			MaxTicks:      *maxTicks,
		}
		err := runner.Run(ctx)
		cancel()
		_ = client.Close()
		return err
	}

	// Create Bubble Tea program
	model := ui.New(eng, client, cfg.FrameInterval())
	program = tea.NewProgram(model, tea.WithAltScreen())

	client.Start(ctx)
	go poller.Run(ctx)
	go forwardPayloads(client.Payloads(), program)
	go func() {
		<-ctx.Done()
		program.Quit()
	}()

	// Run TUI (blocks until quit)
	_, err = program.Run()
	cancel()
	_ = client.Close()
	if err != nil {
		return fmt.Errorf("run TUI: %w", err)
	}
	return nil
}

// forwardPayloads hands inbound payloads to the UI goroutine until the
// channel is closed.
func forwardPayloads(payloads <-chan analytics.Payload, p *tea.Program) {
	for payload := range payloads {
		p.Send(ui.GraphDataMsg{Payload: payload})
	}
}
