// Command tablepose reads marker detections, calibrates the table from its
// corner markers and forwards the resolved poses to the robot link and the
// pose history store.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/banshee-data/tablepose/internal/config"
	"github.com/banshee-data/tablepose/internal/monitoring"
	"github.com/banshee-data/tablepose/internal/robotlink"
	"github.com/banshee-data/tablepose/internal/storage/sqlite"
	"github.com/banshee-data/tablepose/internal/timeutil"
	"github.com/banshee-data/tablepose/internal/version"
	"github.com/banshee-data/tablepose/internal/vision/l1markers"
	"github.com/banshee-data/tablepose/internal/vision/pipeline"
)

var (
	configPath  = flag.String("config", config.DefaultConfigPath, "Path to the JSON configuration file")
	detections  = flag.String("detections", "-", "JSON Lines detection stream to read ('-' for stdin); lines over 1 MiB are skipped")
	target      = flag.String("target", "", "Initial target station key (empty for none)")
	logLevel    = flag.String("log-level", "ops", "Log level: off, ops, diag, trace")
	noLink      = flag.Bool("no-link", false, "Do not send packets to the robot")
	noStore     = flag.Bool("no-store", false, "Do not record poses to the database")
	statsEvery  = flag.Int("stats-every", pipeline.DefaultStatsEvery, "Log pipeline stats every N frames (negative disables)")
	showVersion = flag.Bool("version", false, "Print version information and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(versionString())
		return
	}

	level, err := monitoring.ParseLevel(*logLevel)
	if err != nil {
		log.Fatalf("invalid -log-level: %v", err)
	}
	if level == monitoring.LevelOff {
		monitoring.SetLogger(nil)
	}
	monitoring.ConfigureStreams(monitoring.StreamsForLevel(level, os.Stderr),
		pipeline.SetLogWriters,
		robotlink.SetLogWriters,
		sqlite.SetLogWriters,
	)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	monitoring.Logf("tablepose %s: config %s, table %gx%g %s, stations %v",
		version.Version, *configPath, cfg.Table.Width, cfg.Table.Height, cfg.GetUnits(), cfg.StationKeys())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("pipeline stopped: %v", err)
	}
}

// run wires the pipeline sinks and processes detections until EOF or
// cancellation. Cancellation is not an error.
func run(ctx context.Context, cfg *config.Config) error {
	in, err := openDetections(*detections)
	if err != nil {
		return fmt.Errorf("open detections: %w", err)
	}
	defer in.Close()

	clock := timeutil.RealClock{}
	dispatcher := pipeline.NewDispatcher()

	var controller *robotlink.Controller
	if !*noLink && cfg.GetTransport() != config.TransportNone {
		sender, name, err := openLink(cfg, clock)
		if err != nil {
			return fmt.Errorf("open robot link: %w", err)
		}
		defer func() {
			if err := sender.Close(); err != nil {
				monitoring.Logf("closing robot link: %v", err)
			}
			st := sender.Stats()
			monitoring.Logf("robot link %s: sent=%d dropped=%d write_errors=%d", name, st.Sent, st.Dropped, st.WriteErrors)
		}()
		sender.Start(ctx)

		t := cfg.GetTableMetres()
		controller = robotlink.NewController(sender,
			robotlink.Table{Width: t.Width, Height: t.Height, OffsetInside: t.OffsetInside},
			stationLabels(cfg), clock)
		if *target != "" {
			if err := controller.SetTarget(*target); err != nil {
				return fmt.Errorf("invalid -target: %w", err)
			}
		}
		monitoring.Logf("robot link: %s, target %q", name, controller.Target())
		dispatcher.Register("robotlink", controller)
	} else if *target != "" {
		monitoring.Logf("ignoring -target %q: robot link disabled", *target)
	}

	var (
		store     *sqlite.Store
		sessionID string
	)
	if !*noStore && cfg.GetStorageEnabled() {
		store, err = sqlite.Open(cfg.GetStoragePath())
		if err != nil {
			return fmt.Errorf("open pose store: %w", err)
		}
		defer store.Close()

		sess, err := newSession(cfg, clock.Now())
		if err != nil {
			return err
		}
		if err := store.StartSession(sess); err != nil {
			return err
		}
		sessionID = sess.ID
		monitoring.Logf("recording session %s to %s", sessionID, store.Path())
		dispatcher.Register("store", store.Recorder(sessionID))
	}

	processor, err := pipeline.NewProcessor(cfg.PipelineConfig(), dispatcher)
	if err != nil {
		return fmt.Errorf("create pipeline: %w", err)
	}

	source := l1markers.NewJSONLSource(in, clock)
	defer source.Close()

	runner := &pipeline.Runner{
		Source:     source,
		Processor:  processor,
		StatsEvery: *statsEvery,
	}
	runErr := runner.Run(ctx)

	snap := processor.Stats().Snapshot()
	if store != nil {
		if err := store.SaveStats(sessionID, sessionStats(snap), clock.Now()); err != nil {
			monitoring.Logf("failed to save session stats: %v", err)
		}
		if err := store.EndSession(sessionID, clock.Now()); err != nil {
			monitoring.Logf("failed to end session: %v", err)
		}
	}
	if controller != nil {
		monitoring.Logf("%s", controller.Status())
	}
	monitoring.Logf("done: %s", snap)

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}

func versionString() string {
	return fmt.Sprintf("tablepose %s (git %s, built %s)", version.Version, version.GitSHA, version.BuildTime)
}

// openDetections opens the detection stream; "-" or "" is stdin.
func openDetections(path string) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// openLink dials the configured transport and wraps it in an async sender.
func openLink(cfg *config.Config, clock timeutil.Clock) (*robotlink.AsyncSender, string, error) {
	var (
		conn io.WriteCloser
		name string
		err  error
	)
	switch cfg.GetTransport() {
	case config.TransportUDP:
		conn, name, err = robotlink.DialUDP(cfg.Link.Address, cfg.Link.Port)
	case config.TransportSerial:
		sc := cfg.GetSerial()
		conn, name, err = robotlink.OpenSerial(cfg.Link.SerialPort, robotlink.PortOptions{
			BaudRate: sc.BaudRate,
			DataBits: sc.DataBits,
			StopBits: sc.StopBits,
			Parity:   sc.Parity,
		}, nil)
	default:
		return nil, "", fmt.Errorf("unsupported transport %q", cfg.GetTransport())
	}
	if err != nil {
		return nil, "", err
	}
	return robotlink.NewAsyncSender(name, conn, cfg.GetQueueSize(), cfg.GetDropLogInterval(), clock), name, nil
}

// stationLabels maps every station key to its display text, falling back
// to the key itself.
func stationLabels(cfg *config.Config) map[string]string {
	out := make(map[string]string, len(cfg.Stations))
	for key, sc := range cfg.Stations {
		label := sc.Text
		if label == "" {
			label = key
		}
		out[key] = label
	}
	return out
}

func newSession(cfg *config.Config, now time.Time) (*sqlite.Session, error) {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	t := cfg.GetTableMetres()
	return &sqlite.Session{
		StartedAt:   now,
		CameraIndex: cfg.GetCameraIndex(),
		TableWidth:  t.Width,
		TableHeight: t.Height,
		ConfigJSON:  raw,
	}, nil
}

func sessionStats(s pipeline.StatsSnapshot) sqlite.SessionStats {
	return sqlite.SessionStats{
		Frames:            s.Frames,
		Dispatches:        s.Dispatches,
		SkippedIncomplete: s.SkippedIncomplete,
		SkippedDegenerate: s.SkippedDegenerate,
		MarkerFailures:    s.MarkerFailures,
		SinkErrors:        s.SinkErrors,
	}
}
