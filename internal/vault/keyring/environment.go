package keyring

import (
	"os"
	"runtime"
)

// Environment describes whether the OS keyring can be used from this
// process.
type Environment struct {
	Platform  string
	Available bool
	Headless  bool
}

// DetectEnvironment inspects the platform and session variables.
func DetectEnvironment() Environment {
	return detect(runtime.GOOS, os.Getenv)
}

func detect(goos string, getenv func(string) string) Environment {
	env := Environment{Platform: goos}

	hasDisplay := getenv("DISPLAY") != "" || getenv("WAYLAND_DISPLAY") != ""
	switch goos {
	case "darwin", "windows":
		env.Available = true
	case "linux", "freebsd", "openbsd", "netbsd", "dragonfly":
		// Secret Service needs a session bus, which in practice means a
		// desktop session.
		env.Available = hasDisplay || getenv("DBUS_SESSION_BUS_ADDRESS") != ""
	}

	env.Headless = getenv("SSH_TTY") != "" || getenv("CI") != ""
	if goos != "darwin" && goos != "windows" && !hasDisplay {
		env.Headless = true
	}
	return env
}
