// Package kvstore persists a solved PSLP model's decision variables to
// an ordered `modernc.org/kv` store, adapted from the teacher's own
// `internal/store` (which marshals BLAST-hit coordinates into
// big-endian ordered keys so the store's default byte order matches
// numeric order). Here the ordered key is (feature, scan, charge)
// instead of (subject, position), so a full-table scan visits variables
// in ascending feature/scan/charge order without a secondary sort.
package kvstore

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"

	"modernc.org/kv"
)

var order = binary.BigEndian

// VariableKey is one decoded (feature, scan, charge) record key.
type VariableKey struct {
	Feature uint64
	Scan    int32
	Charge  int8
}

const keyLen = 8 + 4 + 1

// MarshalVariableKey encodes k as a fixed-width big-endian byte key.
// Scan is assumed non-negative, matching the teacher's own
// direct-uint64-cast treatment of BLAST coordinates in
// MarshalBlastRecordKey — neither store attempts the sign-bit flip a
// fully general signed-integer ordered key would need.
func MarshalVariableKey(k VariableKey) []byte {
	buf := make([]byte, keyLen)
	order.PutUint64(buf[0:8], k.Feature)
	order.PutUint32(buf[8:12], uint32(k.Scan))
	buf[12] = byte(k.Charge)
	return buf
}

// UnmarshalVariableKey decodes a key produced by MarshalVariableKey.
func UnmarshalVariableKey(data []byte) VariableKey {
	return VariableKey{
		Feature: order.Uint64(data[0:8]),
		Scan:    int32(order.Uint32(data[8:12])),
		Charge:  int8(data[12]),
	}
}

// VariableRecord is one solved decision variable's persisted value:
// its solution value (0, 1, or a fractional relaxation value when a
// branch-and-bound depth cap left the status at Feasible) and the
// objective weight it carried,
// so a snapshot can be audited without re-solving.
type VariableRecord struct {
	Value  float64
	Weight float64
}

const recordLen = 16

// MarshalVariableRecord encodes r as a fixed-width byte value.
func MarshalVariableRecord(r VariableRecord) []byte {
	buf := make([]byte, recordLen)
	order.PutUint64(buf[0:8], math.Float64bits(r.Value))
	order.PutUint64(buf[8:16], math.Float64bits(r.Weight))
	return buf
}

// UnmarshalVariableRecord decodes a value produced by
// MarshalVariableRecord.
func UnmarshalVariableRecord(data []byte) VariableRecord {
	return VariableRecord{
		Value:  math.Float64frombits(order.Uint64(data[0:8])),
		Weight: math.Float64frombits(order.Uint64(data[8:16])),
	}
}

// CompareVariableKeys is a kv compare function ordering records
// ascending by (feature, scan, charge). MarshalVariableKey already
// produces byte-lexicographic-equals-numeric ordering, so this is
// plain bytes.Compare, exposed under the store's own named-Compare
// convention (see the teacher's GroupByQueryOrderSubjectLeft).
func CompareVariableKeys(x, y []byte) int { return bytes.Compare(x, y) }

// Options returns the kv.Options a PSLP snapshot store should be
// opened or created with.
func Options() *kv.Options {
	return &kv.Options{Compare: CompareVariableKeys}
}

// WriteSnapshot writes one record per (key, record) pair into db in a
// single transaction, following the teacher's batch-commit idiom in
// cmd/ins/fragment.go's merge (BeginTransaction before a batch of Set
// calls, Commit once the batch completes).
func WriteSnapshot(db *kv.DB, records map[VariableKey]VariableRecord) error {
	if err := db.BeginTransaction(); err != nil {
		return err
	}
	for k, r := range records {
		if err := db.Set(MarshalVariableKey(k), MarshalVariableRecord(r)); err != nil {
			return err
		}
	}
	return db.Commit()
}

// ReadSnapshot scans db in ascending key order and returns every
// stored record, mirroring the teacher's SeekFirst/Next enumeration
// idiom in cmd/ins/fragment.go's merge.
func ReadSnapshot(db *kv.DB) (map[VariableKey]VariableRecord, error) {
	out := make(map[VariableKey]VariableRecord)
	it, err := db.SeekFirst()
	if err == io.EOF {
		return out, nil
	}
	if err != nil {
		return nil, err
	}
	for {
		k, v, err := it.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out[UnmarshalVariableKey(k)] = UnmarshalVariableRecord(v)
	}
}
