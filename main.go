// Command collision-report runs the accident-detection pipeline over a
// detection log and serves the results over HTTP. Detections come from a
// JSONL log (a file, stdin, or a built-in synthetic scenario); events and
// speed telemetry are persisted to sqlite for the API and report surfaces.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/collision.report/internal/accident"
	"github.com/banshee-data/collision.report/internal/api"
	"github.com/banshee-data/collision.report/internal/config"
	"github.com/banshee-data/collision.report/internal/db"
	"github.com/banshee-data/collision.report/internal/pipeline"
	"github.com/banshee-data/collision.report/internal/replay"
	"github.com/banshee-data/collision.report/internal/report"
	"github.com/banshee-data/collision.report/internal/units"
	"github.com/banshee-data/collision.report/internal/version"
)

var (
	input      = flag.String("input", "", "Detection log path, or '-' for stdin")
	scenario   = flag.String("scenario", "", "Built-in synthetic scenario to run instead of -input")
	dbFile     = flag.String("db", "collision_data.db", "Sqlite database path")
	listen     = flag.String("listen", ":8080", "Listen address")
	configPath = flag.String("config", "", "Tuning config JSON path (defaults apply when omitted)")
	unitsFlag  = flag.String("units", units.KPH, "Display units: "+units.GetValidUnitsString())
	realtime   = flag.Bool("realtime", false, "Pace replay at the configured frame rate")
	reportPath = flag.String("report", "", "Write a session report HTML to this path on exit")
)

// speedSampleInterval controls how often per-vehicle speeds are persisted.
// Every frame is far more telemetry than the percentile stats need.
const speedSampleInterval = 5

// dbSink records confirmed events against the active session.
type dbSink struct {
	db        *db.DB
	sessionID int64
}

func (s *dbSink) RecordEvent(ev accident.Event) error {
	return s.db.RecordEvent(s.sessionID, ev)
}

func loadTuning() (*config.TuningConfig, error) {
	if *configPath != "" {
		return config.LoadTuningConfig(*configPath)
	}
	cfg, err := config.LoadTuningConfig(config.DefaultConfigPath)
	if err != nil {
		// Running outside the repo tree; accessor defaults cover every field.
		log.Printf("no defaults file found, using built-in defaults: %v", err)
		return config.EmptyTuningConfig(), nil
	}
	return cfg, nil
}

func openInput() (io.ReadCloser, string, error) {
	if *scenario != "" {
		records, err := replay.Scenario(*scenario)
		if err != nil {
			return nil, "", err
		}
		pr, pw := io.Pipe()
		go func() {
			pw.CloseWithError(replay.WriteAll(pw, records))
		}()
		return pr, "scenario:" + *scenario, nil
	}
	if *input == "-" {
		return io.NopCloser(os.Stdin), "stdin", nil
	}
	if *input == "" {
		return nil, "", fmt.Errorf("one of -input or -scenario is required")
	}
	f, err := os.Open(*input)
	if err != nil {
		return nil, "", err
	}
	return f, *input, nil
}

// runReplay feeds the detection log through the pipeline until the log ends
// or ctx is cancelled. Speed samples are persisted at a fixed frame interval.
func runReplay(ctx context.Context, p *pipeline.Pipeline, database *db.DB, sessionID int64, src io.Reader, fps float64) error {
	reader := replay.NewReader(src)

	var ticker *time.Ticker
	if *realtime && fps > 0 {
		ticker = time.NewTicker(time.Duration(float64(time.Second) / fps))
		defer ticker.Stop()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		rec, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		if ticker != nil {
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		result, err := p.ProcessFrame(rec.Detections, rec.FrameIndex)
		if err != nil {
			return fmt.Errorf("frame %d: %w", rec.FrameIndex, err)
		}

		for _, ev := range result.Events {
			log.Printf("confirmed %s", ev)
		}

		if rec.FrameIndex%speedSampleInterval == 0 {
			for id, state := range result.States {
				if !state.IsMoving {
					continue
				}
				if err := database.RecordSpeedSample(sessionID, rec.FrameIndex, id, state.SpeedKMH); err != nil {
					log.Printf("failed to record speed sample: %v", err)
				}
			}
		}
	}
}

func main() {
	flag.Parse()

	if *listen == "" {
		log.Fatal("Listen address is required")
	}
	if !units.IsValid(*unitsFlag) {
		log.Fatalf("invalid units %q (valid: %s)", *unitsFlag, units.GetValidUnitsString())
	}

	tuning, err := loadTuning()
	if err != nil {
		log.Fatalf("failed to load tuning config: %v", err)
	}

	src, sourceName, err := openInput()
	if err != nil {
		log.Fatalf("failed to open input: %v", err)
	}
	defer src.Close()

	database, err := db.NewDB(*dbFile)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer database.Close()

	sessionID, err := database.CreateSession(sourceName)
	if err != nil {
		log.Fatalf("failed to create session: %v", err)
	}
	log.Printf("collision-report %s (%s) session=%d source=%s", version.Version, version.GitSHA, sessionID, sourceName)

	p := pipeline.New(pipeline.ConfigFromTuning(tuning), &dbSink{db: database, sessionID: sessionID})

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Replay feeder. The API keeps serving after the log ends so stats and
	// events remain queryable; shutdown is signal-driven.
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := runReplay(ctx, p, database, sessionID, src, tuning.GetFPS()); err != nil && err != context.Canceled {
			log.Printf("replay stopped: %v", err)
		}
		stats := p.Stats()
		if err := database.CloseSession(sessionID, stats.FramesProcessed, stats.EventsEmitted); err != nil {
			log.Printf("failed to close session: %v", err)
		}
		log.Printf("replay finished: frames=%d events=%d", stats.FramesProcessed, stats.EventsEmitted)
	}()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := api.NewServer(p, database, sessionID, tuning, *unitsFlag).ServeMux()
		server := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(mux),
		}

		go func() {
			log.Printf("listening on %s", *listen)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
	}()

	wg.Wait()

	if *reportPath != "" {
		if err := report.RenderToFile(*reportPath, database, sessionID); err != nil {
			log.Printf("failed to write report: %v", err)
		} else {
			log.Printf("report written to %s", *reportPath)
		}
	}
	log.Printf("Graceful shutdown complete")
}
