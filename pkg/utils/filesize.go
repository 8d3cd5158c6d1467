package utils

import (
	"fmt"
	"strings"

	"github.com/docker/go-units"
)

const (
	B  = 1
	KB = 1024 * B
	MB = 1024 * KB
	GB = 1024 * MB
)

// FormatBytes converts bytes to a human-readable binary size such as "1.5MiB"
func FormatBytes(bytes uint64) string {
	return units.BytesSize(float64(bytes))
}

// Megabytes returns size expressed in MiB, the unit used by the large-file report
func Megabytes(bytes uint64) float64 {
	return float64(bytes) / MB
}

// ParseSize converts a human-readable size ("512k", "10MB", "1g") to bytes.
// Units are binary.
func ParseSize(size string) (uint64, error) {
	size = strings.TrimSpace(size)
	if size == "" {
		return 0, nil
	}

	n, err := units.RAMInBytes(size)
	if err != nil {
		return 0, fmt.Errorf("invalid size format %q: %w", size, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("size must not be negative: %s", size)
	}
	return uint64(n), nil
}
