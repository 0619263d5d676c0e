// cull-windows reads a JSON stream of inclusion/exclusion-list windows
// on stdin, single-linkage clusters them by RT overlap and m/z
// tolerance (§4.10), and writes the merged target list on stdout,
// adapted from the teacher's cull (which single-linkage-culls GFF
// features by interval containment rather than clustering by
// distance, but shares the same "read all, build one interval tree,
// emit a reduced set" shape).
//
// usage: cull-windows [-rtTol seconds] [-mzTol ppm-or-Da] [-mzTolPPM] [-minutes] <in.json >out.tsv
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"io"
	"log"
	"os"

	"github.com/pslpcore/pslp/iel"
)

func main() {
	rtTol := flag.Float64("rtTol", 5, "specify RT overlap tolerance in seconds")
	mzTol := flag.Float64("mzTol", 10, "specify m/z tolerance (Da, or ppm if -mzTolPPM)")
	mzTolPPM := flag.Bool("mzTolPPM", true, "specify that -mzTol is given in ppm rather than Da")
	minutes := flag.Bool("minutes", false, "specify to write RT columns in minutes instead of seconds")
	flag.Parse()

	dec := json.NewDecoder(os.Stdin)
	var windows []iel.Window
	for {
		var w iel.Window
		if err := dec.Decode(&w); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			log.Fatal(err)
		}
		windows = append(windows, w)
	}

	log.Printf("clustering %d windows", len(windows))
	result := iel.Cluster(windows, iel.ClusterConfig{RTTol: *rtTol, MZTol: *mzTol, MZTolPPM: *mzTolPPM})
	for size, count := range result.ClusterSizes {
		log.Printf("cluster size %d: %d occurrences", size, count)
	}

	unit := iel.Seconds
	if *minutes {
		unit = iel.Minutes
	}
	if err := iel.WriteTargetList(os.Stdout, result.Windows, unit); err != nil {
		log.Fatal(err)
	}
}
