// Package intern implements the content-addressed string and data tables
// described in spec.md §4.4: two hash-keyed tables that deduplicate byte
// content and assign dense, monotonic 16-bit IDs. IDs never change once
// assigned, and the tables never hold more than 65535 entries each —
// beyond that, Tables.String/Tables.Data report overflow via the ok
// return rather than silently wrapping or panicking.
package intern

import "github.com/gogpu/pngine/internal/logging"

// MaxID is the largest representable dense ID: one less than the 0xFFFF
// sentinel, which is reserved to mean "none / context-current".
const MaxID = 0xFFFE

// NoneID is the reserved sentinel for "no string/data" in the PNGB format.
const NoneID = 0xFFFF

// StringID and DataID are dense indices into their respective tables.
type StringID uint16
type DataID uint16

// Tables holds the analyzer/assembler's shared string and data interners.
// The zero value is not ready to use; call NewTables.
type Tables struct {
	strings   []string
	stringIdx map[string]StringID

	data    [][]byte
	dataIdx map[string]DataID
}

// NewTables returns an empty pair of interning tables.
func NewTables() *Tables {
	return &Tables{
		stringIdx: make(map[string]StringID),
		dataIdx:   make(map[string]DataID),
	}
}

// String interns s, returning its dense ID. Repeated calls with equal
// content return the same ID. ok is false once the table would exceed
// MaxID entries; callers must treat that as a compile error.
func (t *Tables) String(s string) (id StringID, ok bool) {
	if existing, found := t.stringIdx[s]; found {
		return existing, true
	}
	if len(t.strings) > MaxID {
		return 0, false
	}
	id = StringID(len(t.strings))
	t.strings = append(t.strings, s)
	t.stringIdx[s] = id
	return id, true
}

// Data interns b by content hash key, returning its dense ID. Identical
// byte content (e.g. two macros sharing one shader body) always maps to
// the same ID, which is how shader deduplication (spec.md §4.3 phase 4)
// is implemented on top of this table.
func (t *Tables) Data(b []byte) DataID {
	key := string(b)
	if existing, found := t.dataIdx[key]; found {
		return existing
	}
	id := DataID(len(t.data))
	if int(id) > MaxID {
		logging.Logger().Warn("data interner overflow", "count", len(t.data))
	}
	t.data = append(t.data, append([]byte(nil), b...))
	t.dataIdx[key] = id
	return id
}

// Strings returns the table's contents in ID order, ready for PNGB
// string-table serialization.
func (t *Tables) Strings() []string {
	return t.strings
}

// Blobs returns the data table's contents in ID order, ready for PNGB
// data-section serialization.
func (t *Tables) Blobs() [][]byte {
	return t.data
}

// StringCount and DataCount report how many entries each table holds.
func (t *Tables) StringCount() int { return len(t.strings) }
func (t *Tables) DataCount() int   { return len(t.data) }
