// Command gen-detlog generates synthetic JSONL detection logs for testing
// replay and the detection pipeline.
package main

import (
	"flag"
	"log"
	"os"

	"github.com/banshee-data/collision.report/internal/replay"
)

func main() {
	output := flag.String("o", "sample.detlog", "output path, or '-' for stdout")
	name := flag.String("scenario", "head-on", "scenario name, one of "+replay.ScenarioNames())
	flag.Parse()

	records, err := replay.Scenario(*name)
	if err != nil {
		log.Fatal(err)
	}

	out := os.Stdout
	if *output != "-" {
		f, err := os.Create(*output)
		if err != nil {
			log.Fatalf("failed to create output: %v", err)
		}
		defer f.Close()
		out = f
	}

	if err := replay.WriteAll(out, records); err != nil {
		log.Fatalf("failed to write log: %v", err)
	}
	if *output != "-" {
		log.Printf("✓ Created: %s (%d frames)", *output, len(records))
	}
}
