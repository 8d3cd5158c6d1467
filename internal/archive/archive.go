// Package archive creates and extracts gzip-compressed tar backups.
package archive

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	gzip "github.com/klauspost/pgzip"
	"github.com/sirupsen/logrus"

	"github.com/fenilsonani/adminkit/pkg/utils"
)

// ErrUnsafeEntry is returned for archive members that would land outside the
// extraction target
var ErrUnsafeEntry = errors.New("unsafe archive entry")

// Name returns the archive file name for a backup of src taken at now
func Name(src string, now time.Time) string {
	return fmt.Sprintf("%s-backup-%s.tar.gz", baseName(src), now.Format("20060102"))
}

func baseName(src string) string {
	abs, err := filepath.Abs(src)
	if err != nil {
		abs = filepath.Clean(src)
	}
	return filepath.Base(abs)
}

// Archiver writes and reads backups
type Archiver struct {
	log logrus.FieldLogger
	now func() time.Time
}

// New creates an Archiver dating its archives with now; nil means time.Now
func New(log logrus.FieldLogger, now func() time.Time) *Archiver {
	if now == nil {
		now = time.Now
	}
	return &Archiver{log: log, now: now}
}

// Create archives src into destDir and writes a checksum sidecar. Members are
// stored under the base name of src. A failed archive is removed.
func (a *Archiver) Create(ctx context.Context, src, destDir string) (string, error) {
	info, err := os.Stat(src)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("source directory '%s' not found", src)
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create destination directory '%s': %w", destDir, err)
	}

	archivePath := filepath.Join(destDir, Name(src, a.now()))
	if err := a.write(ctx, src, archivePath); err != nil {
		os.Remove(archivePath)
		return "", fmt.Errorf("backup failed for %s: %w", src, err)
	}

	if _, err := utils.WriteChecksum(archivePath); err != nil {
		a.log.WithError(err).Warn("Failed to write checksum")
	}
	return archivePath, nil
}

func (a *Archiver) write(ctx context.Context, src, archivePath string) (err error) {
	out, err := os.Create(archivePath)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()

	gz := gzip.NewWriter(out)
	tw := tar.NewWriter(gz)

	root, err := filepath.Abs(src)
	if err != nil {
		return err
	}
	prefix := filepath.Base(root)
	// the archive may live inside the tree being archived
	self, _ := filepath.Abs(archivePath)

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path == self {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(filepath.Join(prefix, rel))
		return a.addEntry(tw, path, name, d)
	})
	if err != nil {
		return err
	}

	if err := tw.Close(); err != nil {
		return err
	}
	if err := gz.Close(); err != nil {
		return err
	}
	return out.Sync()
}

func (a *Archiver) addEntry(tw *tar.Writer, path, name string, d fs.DirEntry) error {
	info, err := d.Info()
	if err != nil {
		return err
	}

	var link string
	if info.Mode()&fs.ModeSymlink != 0 {
		if link, err = os.Readlink(path); err != nil {
			return err
		}
	} else if !info.Mode().IsRegular() && !info.IsDir() {
		a.log.Debugf("Skipping special file %s", path)
		return nil
	}

	hdr, err := tar.FileInfoHeader(info, link)
	if err != nil {
		return err
	}
	hdr.Name = name
	if info.IsDir() {
		hdr.Name += "/"
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}

	if !info.Mode().IsRegular() {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(tw, f)
	return err
}

// Extract unpacks archivePath into target, verifying the checksum sidecar
// first when there is one. Members escaping target are rejected.
func (a *Archiver) Extract(ctx context.Context, archivePath, target string) error {
	info, err := os.Stat(archivePath)
	if err != nil || !info.Mode().IsRegular() {
		return fmt.Errorf("backup archive '%s' not found", archivePath)
	}
	if target == "" {
		target = "."
	}
	if err := os.MkdirAll(target, 0o755); err != nil {
		return fmt.Errorf("failed to create target directory '%s': %w", target, err)
	}

	verified, err := utils.VerifyChecksum(archivePath)
	if err != nil {
		return err
	}
	if verified {
		a.log.Debugf("Checksum verified for %s", archivePath)
	}

	if err := a.extract(ctx, archivePath, target); err != nil {
		return fmt.Errorf("restore failed: %w", err)
	}
	return nil
}

type dirTime struct {
	path    string
	modTime time.Time
}

func (a *Archiver) extract(ctx context.Context, archivePath, target string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return err
	}
	defer gz.Close()

	root, err := filepath.Abs(target)
	if err != nil {
		return err
	}
	if root, err = filepath.EvalSymlinks(root); err != nil {
		return err
	}

	// directory mtimes are set last, once their contents are written
	var dirs []dirTime
	tr := tar.NewReader(gz)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		dest, err := memberPath(root, hdr.Name)
		if err != nil {
			return err
		}
		// symlinks written by earlier members must not carry this one out
		if err := checkResolved(root, filepath.Dir(dest), hdr.Name); err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := checkResolved(root, dest, hdr.Name); err != nil {
				return err
			}
			if err := os.MkdirAll(dest, hdr.FileInfo().Mode().Perm()|0o700); err != nil {
				return err
			}
			if err := os.Chmod(dest, hdr.FileInfo().Mode().Perm()); err != nil {
				return err
			}
			dirs = append(dirs, dirTime{dest, hdr.ModTime})
		case tar.TypeReg:
			if err := writeFile(dest, tr, hdr); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if err := checkLink(root, dest, hdr.Linkname); err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
				return err
			}
			os.Remove(dest)
			if err := os.Symlink(hdr.Linkname, dest); err != nil {
				return err
			}
		case tar.TypeLink:
			src, err := memberPath(root, hdr.Linkname)
			if err != nil {
				return err
			}
			if err := checkResolved(root, filepath.Dir(src), hdr.Linkname); err != nil {
				return err
			}
			os.Remove(dest)
			if err := os.Link(src, dest); err != nil {
				return err
			}
		default:
			a.log.Debugf("Skipping unsupported member %s", hdr.Name)
		}
	}

	for i := len(dirs) - 1; i >= 0; i-- {
		os.Chtimes(dirs[i].path, dirs[i].modTime, dirs[i].modTime)
	}
	return nil
}

func writeFile(dest string, r io.Reader, hdr *tar.Header) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	os.Remove(dest)

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_EXCL, hdr.FileInfo().Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	if err := os.Chmod(dest, hdr.FileInfo().Mode().Perm()); err != nil {
		return err
	}
	return os.Chtimes(dest, hdr.ModTime, hdr.ModTime)
}

// memberPath resolves an archive member name beneath root
func memberPath(root, name string) (string, error) {
	if filepath.IsAbs(name) || strings.HasPrefix(name, "/") {
		return "", fmt.Errorf("%w: absolute path %s", ErrUnsafeEntry, name)
	}
	dest := filepath.Join(root, filepath.FromSlash(name))
	if !within(root, dest) {
		return "", fmt.Errorf("%w: %s escapes the target", ErrUnsafeEntry, name)
	}
	return dest, nil
}

// checkLink rejects symlinks whose target resolves outside root. Relative
// targets are taken from the real location of the link's directory.
func checkLink(root, dest, linkname string) error {
	target := linkname
	if !filepath.IsAbs(target) {
		dir, err := resolve(filepath.Dir(dest))
		if err != nil {
			return err
		}
		// no Join: ".." must apply after the symlinks before it
		target = dir + string(filepath.Separator) + linkname
	}
	resolved, err := resolve(target)
	if err != nil {
		return err
	}
	if !within(root, resolved) {
		return fmt.Errorf("%w: symlink %s -> %s escapes the target", ErrUnsafeEntry, dest, linkname)
	}
	return nil
}

// checkResolved rejects path when following the symlinks already on disk
// leads outside root
func checkResolved(root, path, name string) error {
	resolved, err := resolve(path)
	if err != nil {
		return err
	}
	if !within(root, resolved) {
		return fmt.Errorf("%w: %s escapes the target through a symlink", ErrUnsafeEntry, name)
	}
	return nil
}

// resolve walks the absolute path one component at a time, following the
// symlinks that exist on disk. Components that do not exist yet are appended
// as they are. A dangling symlink on the way is refused.
func resolve(path string) (string, error) {
	sep := string(filepath.Separator)
	parts := strings.Split(path, sep)
	resolved := sep
	for i, part := range parts {
		switch part {
		case "", ".":
			continue
		case "..":
			resolved = filepath.Dir(resolved)
			continue
		}

		next := filepath.Join(resolved, part)
		info, err := os.Lstat(next)
		if errors.Is(err, fs.ErrNotExist) {
			return filepath.Join(append([]string{next}, parts[i+1:]...)...), nil
		}
		if err != nil {
			return "", err
		}
		if info.Mode()&fs.ModeSymlink != 0 {
			target, err := filepath.EvalSymlinks(next)
			if errors.Is(err, fs.ErrNotExist) {
				return "", fmt.Errorf("%w: dangling symlink %s", ErrUnsafeEntry, next)
			}
			if err != nil {
				return "", err
			}
			next = target
		}
		resolved = next
	}
	return resolved, nil
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
