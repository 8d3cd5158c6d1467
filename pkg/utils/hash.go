package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ChecksumSuffix is appended to a file name to form its checksum sidecar
const ChecksumSuffix = ".sha256"

// ErrChecksumMismatch is returned when a file does not match its sidecar
var ErrChecksumMismatch = errors.New("checksum mismatch")

// HashFile computes SHA256 hash of a file
func HashFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}

	return hex.EncodeToString(hash.Sum(nil)), nil
}

// WriteChecksum writes "<hash>  <name>" next to path in sha256sum format and
// returns the sidecar path.
func WriteChecksum(path string) (string, error) {
	sum, err := HashFile(path)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}

	sidecar := path + ChecksumSuffix
	line := fmt.Sprintf("%s  %s\n", sum, filepath.Base(path))
	if err := os.WriteFile(sidecar, []byte(line), 0644); err != nil {
		return "", fmt.Errorf("write checksum: %w", err)
	}
	return sidecar, nil
}

// VerifyChecksum checks path against its sidecar. It reports false without
// error when no sidecar exists.
func VerifyChecksum(path string) (bool, error) {
	data, err := os.ReadFile(path + ChecksumSuffix)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read checksum: %w", err)
	}

	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return false, fmt.Errorf("empty checksum file for %s", path)
	}

	sum, err := HashFile(path)
	if err != nil {
		return false, fmt.Errorf("hash %s: %w", path, err)
	}
	if !strings.EqualFold(sum, fields[0]) {
		return true, fmt.Errorf("%w: %s", ErrChecksumMismatch, path)
	}
	return true, nil
}
