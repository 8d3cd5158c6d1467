package scanner

import (
	"io/fs"
	"iter"
	"path/filepath"
)

// Walker lazily enumerates a directory tree.
//
// Entries come in lexical depth-first order. Symlinks and special files are
// neither yielded nor followed. Errors on individual entries are yielded as
// skips and never stop the walk.
type Walker struct {
	Exclude *ExclusionSet
	// IncludeDirs also yields every directory below the root
	IncludeDirs bool
}

// NewWalker returns a walker that yields regular files outside exclude
func NewWalker(exclude *ExclusionSet) *Walker {
	return &Walker{Exclude: exclude}
}

// Walk returns the entries beneath root. Breaking out of the range loop stops
// the walk without reading any further directories.
func (w *Walker) Walk(root string) iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		root = filepath.Clean(root)
		if w.Exclude.Excludes(root) {
			return
		}

		filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				reason := SkipStat
				if d != nil && d.IsDir() {
					reason = SkipReadDir
				}
				if !yield(Entry{Skip: &Skip{Path: path, Reason: reason, Err: err}}) {
					return fs.SkipAll
				}
				return nil
			}

			switch {
			case d.IsDir():
				if path == root {
					return nil
				}
				if w.Exclude.Excludes(path) {
					return filepath.SkipDir
				}
				if !w.IncludeDirs {
					return nil
				}
			case !d.Type().IsRegular():
				return nil
			case w.Exclude.Excludes(path):
				return nil
			}

			info, err := d.Info()
			if err != nil {
				if !yield(Entry{Skip: &Skip{Path: path, Reason: SkipStat, Err: err}}) {
					return fs.SkipAll
				}
				return nil
			}

			if !yield(Entry{File: newFileEntry(path, info)}) {
				return fs.SkipAll
			}
			return nil
		})
	}
}

func newFileEntry(path string, info fs.FileInfo) FileEntry {
	size := info.Size()
	if size < 0 {
		size = 0
	}
	uid, gid := owner(info)
	return FileEntry{
		Path:    path,
		Size:    uint64(size),
		ModTime: info.ModTime(),
		Mode:    info.Mode(),
		UID:     uid,
		GID:     gid,
	}
}

// Files drops skipped entries, handing each one to onSkip when it is set.
func Files(seq iter.Seq[Entry], onSkip func(Skip)) iter.Seq[FileEntry] {
	return func(yield func(FileEntry) bool) {
		for e := range seq {
			if e.Skipped() {
				if onSkip != nil {
					onSkip(*e.Skip)
				}
				continue
			}
			if !yield(e.File) {
				return
			}
		}
	}
}

// Filter yields the entries of seq that satisfy p
func Filter(seq iter.Seq[FileEntry], p Predicate) iter.Seq[FileEntry] {
	return func(yield func(FileEntry) bool) {
		for e := range seq {
			if p(e) && !yield(e) {
				return
			}
		}
	}
}
