package scanner

import (
	"strings"
	"time"
)

// Predicate decides whether an entry matches. Predicates are pure.
type Predicate func(FileEntry) bool

// OlderThan matches entries modified strictly before cutoff
func OlderThan(cutoff time.Time) Predicate {
	return func(e FileEntry) bool {
		return e.ModTime.Before(cutoff)
	}
}

// AgeExceeds matches entries with mtime < now - threshold
func AgeExceeds(now time.Time, threshold time.Duration) Predicate {
	return OlderThan(now.Add(-threshold))
}

// HasSuffix matches entries whose path ends with any of suffixes
func HasSuffix(suffixes ...string) Predicate {
	return func(e FileEntry) bool {
		for _, s := range suffixes {
			if strings.HasSuffix(e.Path, s) {
				return true
			}
		}
		return false
	}
}

// MinSize matches entries of at least size bytes
func MinSize(size uint64) Predicate {
	return func(e FileEntry) bool {
		return e.Size >= size
	}
}

// WorldWritable matches mode & 0o002
func WorldWritable() Predicate {
	return func(e FileEntry) bool {
		return e.Perm()&0o002 != 0
	}
}

// WorldWritableDirNoSticky matches world-writable directories lacking the
// sticky bit (0o1000)
func WorldWritableDirNoSticky() Predicate {
	return func(e FileEntry) bool {
		perm := e.Perm()
		return e.IsDir() && perm&0o002 != 0 && perm&0o1000 == 0
	}
}

// PrivilegeEscalation matches setuid (0o4000) or setgid (0o2000) entries
func PrivilegeEscalation() Predicate {
	return func(e FileEntry) bool {
		perm := e.Perm()
		return perm&0o4000 != 0 || perm&0o2000 != 0
	}
}

// IsRegular matches regular files
func IsRegular() Predicate {
	return FileEntry.IsRegular
}

// IsDir matches directories
func IsDir() Predicate {
	return FileEntry.IsDir
}

// All matches when every predicate does. No predicates match everything.
func All(preds ...Predicate) Predicate {
	return func(e FileEntry) bool {
		for _, p := range preds {
			if !p(e) {
				return false
			}
		}
		return true
	}
}

// Any matches when at least one predicate does
func Any(preds ...Predicate) Predicate {
	return func(e FileEntry) bool {
		for _, p := range preds {
			if p(e) {
				return true
			}
		}
		return false
	}
}

// Not inverts p
func Not(p Predicate) Predicate {
	return func(e FileEntry) bool {
		return !p(e)
	}
}
