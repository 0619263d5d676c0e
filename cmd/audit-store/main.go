// audit-store allows a modernc.org/kv snapshot written by pslp-solve to
// be inspected outside of a solve run. Output is a JSON stream of
// (key, record) pairs on stdout, one per persisted decision variable,
// adapted from the teacher's cmd/audit-ins-db.
//
// usage: audit-store -db variables.db
package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"sort"

	"modernc.org/kv"

	"github.com/pslpcore/pslp/kvstore"
)

// record is the flattened (key, value) pair audit-store emits; kept
// separate from kvstore.VariableKey/VariableRecord so the JSON field
// names are stable independent of the internal store encoding.
type record struct {
	Feature uint64  `json:"feature"`
	Scan    int32   `json:"scan"`
	Charge  int8    `json:"charge"`
	Value   float64 `json:"value"`
	Weight  float64 `json:"weight"`
}

func main() {
	path := flag.String("db", "", "specify snapshot db file to audit (required)")
	flag.Parse()
	if *path == "" {
		flag.Usage()
		os.Exit(2)
	}

	db, err := kv.Open(*path, kvstore.Options())
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	snapshot, err := kvstore.ReadSnapshot(db)
	if err != nil {
		log.Fatal(err)
	}

	keys := make([]kvstore.VariableKey, 0, len(snapshot))
	for k := range snapshot {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.Feature != b.Feature {
			return a.Feature < b.Feature
		}
		if a.Scan != b.Scan {
			return a.Scan < b.Scan
		}
		return a.Charge < b.Charge
	})

	enc := json.NewEncoder(os.Stdout)
	for _, k := range keys {
		v := snapshot[k]
		rec := record{Feature: k.Feature, Scan: k.Scan, Charge: k.Charge, Value: v.Value, Weight: v.Weight}
		if err := enc.Encode(rec); err != nil {
			log.Fatalf("failed to write record: %v", err)
		}
	}
}
