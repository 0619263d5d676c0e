// pslp-solve builds and solves the precursor-selection ILP (§4.8) from
// a JSON-described feature set and writes the selected
// (feature, scan, charge) variables on stdout as a JSON stream, one
// IndexTriple per line.
//
// usage: pslp-solve -in features.json [-backend greedy|gonum] [-step N] >selected.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/pslpcore/pslp/idmodel"
	"github.com/pslpcore/pslp/kvstore"
	"github.com/pslpcore/pslp/lp"
	"github.com/pslpcore/pslp/pslp"
)

// runInput is the JSON document pslp-solve reads: a feature list plus
// the scalar inputs Build's three callback parameters need, flattened
// into maps since JSON has no notion of a Go func value.
type runInput struct {
	Features      []idmodel.Feature  `json:"features"`
	Intensities   map[string]float64 `json:"intensities"`   // "scan:mzIdx" -> intensity
	RTProbability map[string]float64 `json:"rtProbability"` // "feature" -> probability
	ScorePrior    map[string]float64 `json:"scorePrior"`    // "feature:charge" -> prior
	Config        pslp.Config        `json:"config"`
}

func main() {
	in := flag.String("in", "", "specify input feature JSON file (required)")
	backend := flag.String("backend", "gonum", "specify solve backend: gonum or greedy")
	step := flag.Int("step", 0, "specify sequential step size (0 disables sequential mode)")
	snapshot := flag.String("snapshot", "", "specify a modernc.org/kv file to persist the solved variables to")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), `Usage of %[1]s:
  $ %[1]s -in features.json [options] >selected.json

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

	var run runInput
	if err := json.NewDecoder(f).Decode(&run); err != nil {
		log.Fatalf("failed to decode %s: %v", *in, err)
	}

	intensity := func(scan, mzIdx int) float64 {
		return run.Intensities[fmt.Sprintf("%d:%d", scan, mzIdx)]
	}
	rtProbability := func(feat idmodel.Feature) float64 {
		return run.RTProbability[fmt.Sprintf("%d", feat.ID)]
	}
	scorePrior := func(feat idmodel.Feature, charge int8) float64 {
		return run.ScorePrior[fmt.Sprintf("%d:%d", feat.ID, charge)]
	}

	log.Printf("building PSLP model over %d features", len(run.Features))
	model, err := pslp.Build(run.Features, intensity, rtProbability, scorePrior, run.Config)
	if err != nil {
		log.Fatal(err)
	}

	var be lp.Backend
	switch *backend {
	case "gonum":
		be = &lp.GonumBackend{}
	case "greedy":
		be = lp.GreedyBackend{}
	default:
		log.Fatalf("unknown backend: %q", *backend)
	}

	var selected []pslp.IndexTriple
	if *step > 0 {
		log.Printf("solving sequentially with step size %d", *step)
		results, err := model.SolveSequential(be, *step, nil)
		if err != nil {
			log.Fatal(err)
		}
		for i, r := range results {
			log.Printf("round %d: %d newly solved, status %v", i, len(r.NewlySolved), r.Status)
			selected = append(selected, r.NewlySolved...)
		}
	} else {
		if err := model.Solve(be); err != nil {
			log.Fatal(err)
		}
		log.Printf("solve status: %v, objective: %v", model.Status(), model.ObjectiveValue())
		for _, feat := range run.Features {
			for _, mr := range feat.MassRange {
				for _, z := range run.Config.Charges {
					t := pslp.IndexTriple{Feature: feat.ID, Scan: mr.Scan, Charge: z}
					v, err := model.Value(t)
					if err != nil {
						continue
					}
					if v >= 0.5 {
						selected = append(selected, t)
					}
				}
			}
		}
	}

	if *snapshot != "" {
		records := make(map[kvstore.VariableKey]kvstore.VariableRecord, len(selected))
		featByID := make(map[idmodel.FeatureID]idmodel.Feature, len(run.Features))
		for _, feat := range run.Features {
			featByID[feat.ID] = feat
		}
		for _, t := range selected {
			v, _ := model.Value(t)
			feat := featByID[t.Feature]
			w := pslp.XICWeights(feat, intensity, run.Config.NormalizeXIC)[t.Scan] * rtProbability(feat) * scorePrior(feat, t.Charge)
			records[kvstore.VariableKey{Feature: uint64(t.Feature), Scan: int32(t.Scan), Charge: int8(t.Charge)}] = kvstore.VariableRecord{Value: v, Weight: w}
		}
		db, err := openOrCreate(*snapshot)
		if err != nil {
			log.Fatal(err)
		}
		defer db.Close()
		if err := kvstore.WriteSnapshot(db, records); err != nil {
			log.Fatal(err)
		}
		log.Printf("wrote %d variables to %s", len(records), *snapshot)
	}

	enc := json.NewEncoder(os.Stdout)
	for _, t := range selected {
		if err := enc.Encode(t); err != nil {
			log.Fatalf("failed to write selection: %v", err)
		}
	}
}
