package syncdiff

import (
	"log"
	"time"
)

// Diff holds the three disjoint id sets produced by comparing remote and
// local document states. An id appears in at most one of the sets.
type Diff struct {
	ToAdd    []string
	ToUpdate []string
	ToDelete []string
}

// timestampLayouts are tried in order when normalizing a source timestamp.
// The wiki API serves RFC3339 with varying sub-second precision, so the
// comparison parses both sides to an instant instead of comparing raw strings.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// ParseTimestamp normalizes a source-provided timestamp string to an instant.
// Returns false when no known layout matches.
func ParseTimestamp(raw string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Compute compares the remote corpus listing against the local index.
// Both maps are document id -> source updated_at string.
//
// A remote document unknown locally is added even when its timestamp cannot
// be parsed; the indexer stores the raw remote string, and if it stays
// unparsable the local side fails to parse on the next cycle and forces a
// re-index, so the document keeps reconciling instead of being dropped
// forever. A known document with an unparsable remote timestamp is logged
// and excluded from the update classification for this cycle.
func Compute(remote, local map[string]string) Diff {
	var diff Diff

	for id, remoteTs := range remote {
		localTs, known := local[id]
		if !known {
			diff.ToAdd = append(diff.ToAdd, id)
			continue
		}

		remoteInstant, ok := ParseTimestamp(remoteTs)
		if !ok {
			log.Printf("[WARN] syncdiff: unparsable remote timestamp %q for document %s, skipping update check", remoteTs, id)
			continue
		}

		localInstant, ok := ParseTimestamp(localTs)
		if !ok {
			// Local timestamp was stored by us; if it is unreadable the safe
			// move is to re-index the document.
			diff.ToUpdate = append(diff.ToUpdate, id)
			continue
		}

		if !remoteInstant.Equal(localInstant) {
			diff.ToUpdate = append(diff.ToUpdate, id)
		}
	}

	for id := range local {
		if _, exists := remote[id]; !exists {
			diff.ToDelete = append(diff.ToDelete, id)
		}
	}

	return diff
}

// Total returns the number of documents that need indexing work (adds and
// updates). Deletes are processed inline before the queue is filled.
func (d Diff) Total() int {
	return len(d.ToAdd) + len(d.ToUpdate)
}
