package platform

import (
	"errors"
	"os"

	"github.com/sirupsen/logrus"
)

// Privilege is the answer of a PrivilegeOracle
type Privilege int

const (
	// PrivilegeUnknown means the host has no notion of an effective user id.
	PrivilegeUnknown Privilege = iota
	PrivilegeRoot
	PrivilegeUser
)

func (p Privilege) String() string {
	switch p {
	case PrivilegeRoot:
		return "root"
	case PrivilegeUser:
		return "user"
	default:
		return "unknown"
	}
}

// ErrNotRoot is returned by RequireRoot when the process is unprivileged
var ErrNotRoot = errors.New("this operation must be run as root")

// PrivilegeOracle reports whether the process runs with root privileges
type PrivilegeOracle interface {
	Privilege() Privilege
}

// EUIDOracle asks the kernel for the effective user id
type EUIDOracle struct{}

func (EUIDOracle) Privilege() Privilege {
	switch euid := os.Geteuid(); {
	case euid < 0:
		return PrivilegeUnknown
	case euid == 0:
		return PrivilegeRoot
	default:
		return PrivilegeUser
	}
}

// StaticOracle always reports the same privilege
type StaticOracle Privilege

func (o StaticOracle) Privilege() Privilege {
	return Privilege(o)
}

// RequireRoot fails only when the oracle positively reports a non-root user.
func RequireRoot(o PrivilegeOracle) error {
	if o.Privilege() == PrivilegeUser {
		return ErrNotRoot
	}
	return nil
}

// WarnIfNotRoot logs a warning when the oracle reports a non-root user.
func WarnIfNotRoot(o PrivilegeOracle, log logrus.FieldLogger) {
	if o.Privilege() == PrivilegeUser {
		log.Warn("Not running as root. Some operations may fail due to insufficient permissions.")
	}
}
