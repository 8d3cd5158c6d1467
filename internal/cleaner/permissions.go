package cleaner

import (
	"fmt"
	"io"
	"os"
)

// IsSpecialFile checks if a path is a device, socket, pipe or symlink.
// Symlinks are never followed.
func IsSpecialFile(path string) (bool, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return false, err
	}

	mode := info.Mode()

	switch {
	case mode&os.ModeDevice != 0:
		return true, fmt.Errorf("is a device file")
	case mode&os.ModeCharDevice != 0:
		return true, fmt.Errorf("is a character device")
	case mode&os.ModeSocket != 0:
		return true, fmt.Errorf("is a socket")
	case mode&os.ModeNamedPipe != 0:
		return true, fmt.Errorf("is a named pipe (FIFO)")
	case mode&os.ModeSymlink != 0:
		return true, fmt.Errorf("is a symlink")
	}

	return false, nil
}

// IsSafeToRemove verifies path still exists and is an ordinary file or
// directory
func IsSafeToRemove(path string) error {
	isSpecial, err := IsSpecialFile(path)
	if isSpecial {
		return fmt.Errorf("refusing to touch special file: %w", err)
	}
	return err
}

// isEmptyDir reports whether dir has no entries
func isEmptyDir(dir string) (bool, error) {
	f, err := os.Open(dir)
	if err != nil {
		return false, err
	}
	defer f.Close()

	_, err = f.Readdirnames(1)
	if err == io.EOF {
		return true, nil
	}
	return false, err
}
