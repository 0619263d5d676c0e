// rt-align computes per-run retention-time alignment transforms
// (§4.5) from a JSON-described set of identification runs and writes
// the resulting per-run control points as a JSON stream on stdout,
// adapted from the teacher's cmd/cmpint (JSON-in, JSON-summary-out,
// flag-selected comparison parameters).
//
// usage: rt-align -in runs.json [-minRunOccur N] [-maxRTShift S] >transforms.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/pslpcore/pslp/align"
	"github.com/pslpcore/pslp/diag"
)

// runsInput is the JSON document rt-align reads: one list of
// observations per run.
type runsInput struct {
	Runs      [][]align.Observation `json:"runs"`
	Reference map[string]float64    `json:"reference,omitempty"`
}

func main() {
	in := flag.String("in", "", "specify input runs JSON file (required)")
	minRunOccur := flag.Int("minRunOccur", 2, "specify minimum run occurrence for a molecule to be used")
	maxRTShift := flag.Float64("maxRTShift", 0, "specify max RT shift (seconds if >1, fraction of RT range if <=1; 0 disables)")
	lowerBetter := flag.Bool("lowerScoreBetter", false, "specify that a lower identification score is preferred")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), `Usage of %[1]s:
  $ %[1]s -in runs.json [options] >transforms.json

Options:
`, os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *in == "" {
		flag.Usage()
		os.Exit(2)
	}

	f, err := os.Open(*in)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	var input runsInput
	if err := json.NewDecoder(f).Decode(&input); err != nil {
		log.Fatalf("failed to decode %s: %v", *in, err)
	}

	cfg := align.Config{
		MinRunOccur: *minRunOccur,
		MaxRTShift:  *maxRTShift,
	}
	if *lowerBetter {
		cfg.Direction = align.LowerScoreBetter
	}
	if len(input.Reference) > 0 {
		cfg.Reference = make(map[align.Molecule]float64, len(input.Reference))
		for k, v := range input.Reference {
			cfg.Reference[align.Molecule(k)] = v
		}
	}

	logger := diag.NewStdLogger(log.Writer())
	log.Printf("aligning %d runs", len(input.Runs))
	result := align.BuildTransforms(input.Runs, cfg, logger)

	enc := json.NewEncoder(os.Stdout)
	for i, t := range result.Transforms {
		log.Printf("run %d: %d control points, %d outliers", i, result.NumDataPoints[i], result.Outliers[i])
		if err := enc.Encode(t); err != nil {
			log.Fatalf("failed to write transform: %v", err)
		}
	}
}
