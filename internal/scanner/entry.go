package scanner

import (
	"fmt"
	"io/fs"
	"time"
)

// FileEntry describes one filesystem object at scan time
type FileEntry struct {
	Path    string
	Size    uint64
	ModTime time.Time
	Mode    fs.FileMode
	UID     uint32
	GID     uint32
}

// IsDir reports whether the entry is a directory
func (e FileEntry) IsDir() bool {
	return e.Mode.IsDir()
}

// IsRegular reports whether the entry is a regular file
func (e FileEntry) IsRegular() bool {
	return e.Mode.IsRegular()
}

// Perm returns the traditional octal permission word, e.g. 0o4755.
func (e FileEntry) Perm() uint32 {
	return UnixPerm(e.Mode)
}

// UnixPerm converts an fs.FileMode into octal permission bits with setuid at
// 0o4000, setgid at 0o2000 and sticky at 0o1000.
func UnixPerm(m fs.FileMode) uint32 {
	perm := uint32(m.Perm())
	if m&fs.ModeSetuid != 0 {
		perm |= 0o4000
	}
	if m&fs.ModeSetgid != 0 {
		perm |= 0o2000
	}
	if m&fs.ModeSticky != 0 {
		perm |= 0o1000
	}
	return perm
}

// FileMode is the inverse of UnixPerm for the permission bits.
func FileMode(perm uint32) fs.FileMode {
	m := fs.FileMode(perm & 0o777)
	if perm&0o4000 != 0 {
		m |= fs.ModeSetuid
	}
	if perm&0o2000 != 0 {
		m |= fs.ModeSetgid
	}
	if perm&0o1000 != 0 {
		m |= fs.ModeSticky
	}
	return m
}

// ModeString renders the mode the way ls does, e.g. "-rwsr-xr-x" or
// "drwxrwxrwt".
func ModeString(m fs.FileMode) string {
	buf := []byte("----------")

	switch {
	case m.IsDir():
		buf[0] = 'd'
	case m&fs.ModeSymlink != 0:
		buf[0] = 'l'
	case m&fs.ModeNamedPipe != 0:
		buf[0] = 'p'
	case m&fs.ModeSocket != 0:
		buf[0] = 's'
	case m&fs.ModeCharDevice != 0:
		buf[0] = 'c'
	case m&fs.ModeDevice != 0:
		buf[0] = 'b'
	}

	const rwx = "rwxrwxrwx"
	for i := 0; i < 9; i++ {
		if m&(1<<uint(8-i)) != 0 {
			buf[i+1] = rwx[i]
		}
	}

	special := func(pos int, set bool, lower, upper byte) {
		if !set {
			return
		}
		if buf[pos] == '-' {
			buf[pos] = upper
		} else {
			buf[pos] = lower
		}
	}
	special(3, m&fs.ModeSetuid != 0, 's', 'S')
	special(6, m&fs.ModeSetgid != 0, 's', 'S')
	special(9, m&fs.ModeSticky != 0, 't', 'T')

	return string(buf)
}

// SkipReason says why the walker could not produce an entry
type SkipReason int

const (
	SkipStat SkipReason = iota
	SkipReadDir
)

func (r SkipReason) String() string {
	switch r {
	case SkipReadDir:
		return "unreadable directory"
	default:
		return "stat failed"
	}
}

// Skip records an entry the walker passed over
type Skip struct {
	Path   string
	Reason SkipReason
	Err    error
}

func (s Skip) Error() string {
	return fmt.Sprintf("%s: %s: %v", s.Path, s.Reason, s.Err)
}

// Entry is one walker result: either a FileEntry or a Skip.
type Entry struct {
	File FileEntry
	Skip *Skip
}

// Skipped reports whether the walker could not read this entry
func (e Entry) Skipped() bool {
	return e.Skip != nil
}
