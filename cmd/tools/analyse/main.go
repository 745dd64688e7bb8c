// Command analyse runs the detection pipeline over a recorded detection log
// offline, prints a summary of confirmed events, and optionally writes a
// per-session HTML report.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/banshee-data/collision.report/internal/accident"
	"github.com/banshee-data/collision.report/internal/config"
	"github.com/banshee-data/collision.report/internal/db"
	"github.com/banshee-data/collision.report/internal/pipeline"
	"github.com/banshee-data/collision.report/internal/replay"
	"github.com/banshee-data/collision.report/internal/report"
)

func main() {
	input := flag.String("i", "", "detection log path, or '-' for stdin")
	configPath := flag.String("config", "", "tuning config JSON path")
	reportPath := flag.String("report", "", "write a session report HTML to this path")
	flag.Parse()

	if *input == "" {
		flag.Usage()
		os.Exit(2)
	}

	var src io.Reader = os.Stdin
	if *input != "-" {
		f, err := os.Open(*input)
		if err != nil {
			log.Fatalf("failed to open log: %v", err)
		}
		defer f.Close()
		src = f
	}

	tuning := config.EmptyTuningConfig()
	if *configPath != "" {
		var err error
		tuning, err = config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("failed to load tuning config: %v", err)
		}
	}

	// The report path needs persisted samples, so an in-memory-style scratch
	// database backs the run either way.
	tmpDir, err := os.MkdirTemp("", "analyse-*")
	if err != nil {
		log.Fatalf("failed to create scratch dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	database, err := db.NewDB(filepath.Join(tmpDir, "analyse.db"))
	if err != nil {
		log.Fatalf("failed to open scratch database: %v", err)
	}
	defer database.Close()

	sessionID, err := database.CreateSession(*input)
	if err != nil {
		log.Fatalf("failed to create session: %v", err)
	}

	p := pipeline.New(pipeline.ConfigFromTuning(tuning), nil)

	reader := replay.NewReader(src)
	var events []accident.Event
	frames := 0
	for {
		rec, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Fatalf("failed to read log: %v", err)
		}

		result, err := p.ProcessFrame(rec.Detections, rec.FrameIndex)
		if err != nil {
			log.Fatalf("frame %d: %v", rec.FrameIndex, err)
		}
		frames++

		for _, ev := range result.Events {
			events = append(events, ev)
			if err := database.RecordEvent(sessionID, ev); err != nil {
				log.Printf("failed to record event: %v", err)
			}
		}
		for id, state := range result.States {
			if !state.IsMoving {
				continue
			}
			if err := database.RecordSpeedSample(sessionID, rec.FrameIndex, id, state.SpeedKMH); err != nil {
				log.Printf("failed to record speed sample: %v", err)
			}
		}
	}

	fmt.Printf("frames: %d\n", frames)
	fmt.Printf("events: %d\n", len(events))
	for _, ev := range events {
		fmt.Printf("  %s vehicles=%v score=%.2f\n", ev, ev.InvolvedIDs, ev.ConfidenceScore)
	}

	if *reportPath != "" {
		if err := report.RenderToFile(*reportPath, database, sessionID); err != nil {
			log.Fatalf("failed to write report: %v", err)
		}
		log.Printf("✓ Report written: %s", *reportPath)
	}
}
