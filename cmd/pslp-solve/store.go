package main

import (
	"os"

	"modernc.org/kv"

	"github.com/pslpcore/pslp/kvstore"
)

// openOrCreate opens path as a variable snapshot store, creating it if
// it does not already exist, following the teacher's own kv.Create
// (first write) vs kv.Open (re-read) split between cmd/ins and
// cmd/audit-ins-db.
func openOrCreate(path string) (*kv.DB, error) {
	if _, err := os.Stat(path); err == nil {
		return kv.Open(path, kvstore.Options())
	}
	return kv.Create(path, kvstore.Options())
}
