package platform

// Defaults returns the standard Linux locations used by the admin commands.
func Defaults() *Info {
	return &Info{
		OS: Linux,
		VirtualFS: []string{
			"/proc",
			"/run",
			"/sys",
			"/dev",
		},
		TempDirs: []string{
			"/tmp",
			"/var/tmp",
		},
		LogDir: "/var/log",
		SystemLogs: []string{
			"/var/log/syslog",
			"/var/log/messages",
		},
		ProtectedPaths: []string{
			"/",
			"/bin",
			"/boot",
			"/dev",
			"/etc",
			"/home",
			"/lib",
			"/lib64",
			"/opt",
			"/proc",
			"/root",
			"/run",
			"/sbin",
			"/srv",
			"/sys",
			"/usr",
			"/var",
		},
	}
}
