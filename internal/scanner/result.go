package scanner

// Outcome is what happened to a matched entry
type Outcome int

const (
	// OutcomeMatched means the entry matched and was only reported
	OutcomeMatched Outcome = iota
	// OutcomeActed means the action succeeded
	OutcomeActed
	// OutcomeFailed means the action was attempted and failed
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeActed:
		return "acted-on"
	case OutcomeFailed:
		return "action-failed"
	default:
		return "matched-only"
	}
}

// Record pairs a matched entry with its outcome
type Record struct {
	Entry   FileEntry
	Outcome Outcome
	Err     error
}

// ScanResult is the ordered outcome of one scan
type ScanResult struct {
	Records []Record
	Skipped []Skip
}

// Add appends a record
func (r *ScanResult) Add(entry FileEntry, outcome Outcome, err error) {
	r.Records = append(r.Records, Record{Entry: entry, Outcome: outcome, Err: err})
}

// Skip appends a skipped entry
func (r *ScanResult) Skip(s Skip) {
	r.Skipped = append(r.Skipped, s)
}

// Count returns the number of records with the given outcome
func (r *ScanResult) Count(outcome Outcome) int {
	n := 0
	for _, rec := range r.Records {
		if rec.Outcome == outcome {
			n++
		}
	}
	return n
}

// Size sums the sizes of records with the given outcome
func (r *ScanResult) Size(outcome Outcome) uint64 {
	var total uint64
	for _, rec := range r.Records {
		if rec.Outcome == outcome {
			total += rec.Entry.Size
		}
	}
	return total
}

// Files returns the entries with the given outcome, in scan order
func (r *ScanResult) Files(outcome Outcome) []FileEntry {
	var out []FileEntry
	for _, rec := range r.Records {
		if rec.Outcome == outcome {
			out = append(out, rec.Entry)
		}
	}
	return out
}

// Merge appends other's records and skips
func (r *ScanResult) Merge(other *ScanResult) {
	if other == nil {
		return
	}
	r.Records = append(r.Records, other.Records...)
	r.Skipped = append(r.Skipped, other.Skipped...)
}
