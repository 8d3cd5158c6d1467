package platform

// PackageManager describes how to clean and upgrade with one package tool
type PackageManager struct {
	Name string
	// Clean removes downloaded package archives
	Clean []string
	// Update runs in order; each step is an argv
	Update [][]string
}

// PackageManagers lists the supported tools in detection order
var PackageManagers = []PackageManager{
	{
		Name:  "apt-get",
		Clean: []string{"apt-get", "clean"},
		Update: [][]string{
			{"apt-get", "update"},
			{"apt-get", "-y", "upgrade"},
		},
	},
	{
		Name:   "dnf",
		Clean:  []string{"dnf", "clean", "all"},
		Update: [][]string{{"dnf", "-y", "upgrade"}},
	},
	{
		Name:   "yum",
		Clean:  []string{"yum", "clean", "all"},
		Update: [][]string{{"yum", "-y", "update"}},
	},
	{
		Name:  "zypper",
		Clean: []string{"zypper", "--non-interactive", "clean", "--all"},
		Update: [][]string{
			{"zypper", "--non-interactive", "refresh"},
			{"zypper", "--non-interactive", "update"},
		},
	},
	{
		Name:   "pacman",
		Clean:  []string{"pacman", "-Scc", "--noconfirm"},
		Update: [][]string{{"pacman", "-Syu", "--noconfirm"}},
	},
}

// DetectPackageManager returns the first supported package tool on the host
func DetectPackageManager(tools Tools) (PackageManager, bool) {
	for _, pm := range PackageManagers {
		if _, ok := tools.LookPath(pm.Name); ok {
			return pm, true
		}
	}
	return PackageManager{}, false
}

// ServiceManager identifies the service control tool on the host
type ServiceManager string

const (
	Systemd     ServiceManager = "systemctl"
	SysVService ServiceManager = "service"
	NoService   ServiceManager = ""
)

// DetectServiceManager prefers systemctl and falls back to service.
func DetectServiceManager(tools Tools) ServiceManager {
	if _, ok := tools.LookPath(string(Systemd)); ok {
		return Systemd
	}
	if _, ok := tools.LookPath(string(SysVService)); ok {
		return SysVService
	}
	return NoService
}
