package platform

import (
	"os"
	"os/user"
	"runtime"
)

// Platform represents the operating system platform
type Platform string

const (
	Linux   Platform = "linux"
	Unknown Platform = "unknown"
)

// Info contains host paths the admin commands operate on
type Info struct {
	OS       Platform
	Hostname string
	Username string
	HomeDir  string

	// VirtualFS are pseudo filesystems a full-disk walk must never enter
	VirtualFS      []string
	TempDirs       []string
	LogDir         string
	SystemLogs     []string
	ProtectedPaths []string
}

// Detect returns the current platform
func Detect() Platform {
	if runtime.GOOS == "linux" {
		return Linux
	}
	return Unknown
}

// GetInfo returns information about the running host
func GetInfo() (*Info, error) {
	if Detect() != Linux {
		return nil, ErrUnsupportedPlatform
	}

	info := Defaults()
	if host, err := os.Hostname(); err == nil {
		info.Hostname = host
	}
	if u, err := user.Current(); err == nil {
		info.Username = u.Username
		info.HomeDir = u.HomeDir
	}
	return info, nil
}

// Tools resolves executables on the host.
type Tools interface {
	LookPath(name string) (string, bool)
}

// Errors
var (
	ErrUnsupportedPlatform = &PlatformError{"unsupported platform"}
)

// PlatformError represents a platform-related error
type PlatformError struct {
	Message string
}

func (e *PlatformError) Error() string {
	return e.Message
}
