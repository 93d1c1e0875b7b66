// Package pkgmgr abstracts the system package manager behind a small
// adapter: detect which manager is present, refresh its index, install a
// package by trying a list of candidate names, and check whether an
// executable is already on PATH.
package pkgmgr

// Kind identifies a supported package manager. It is resolved exactly once
// per run and never changes afterwards.
type Kind string

const (
	Apt    Kind = "apt"
	Dnf    Kind = "dnf"
	Yum    Kind = "yum"
	Pacman Kind = "pacman"
	Zypper Kind = "zypper"
	Apk    Kind = "apk"
	Brew   Kind = "brew"
	Winget Kind = "winget"
	Choco  Kind = "choco"
	Scoop  Kind = "scoop"
	None   Kind = "none"
)

// Executable returns the binary probed for during detection.
func (k Kind) Executable() string {
	if k == Apt {
		return "apt-get"
	}
	return string(k)
}

// OS maps a kind to the GOOS it runs on.
func (k Kind) OS() string {
	switch k {
	case Apt, Dnf, Yum, Pacman, Zypper, Apk:
		return "linux"
	case Brew:
		return "darwin"
	case Winget, Choco, Scoop:
		return "windows"
	default:
		return ""
	}
}

// NeedsElevation reports whether installs via this manager write to
// system-wide locations and therefore require root.
func (k Kind) NeedsElevation() bool {
	switch k {
	case Apt, Dnf, Yum, Pacman, Zypper, Apk:
		return true
	default:
		// brew runs as the owning user; the Windows managers handle UAC
		// elevation themselves.
		return false
	}
}

// detectionOrder returns the probe order for a GOOS, native manager first.
func detectionOrder(goos string) []Kind {
	switch goos {
	case "linux":
		return []Kind{Apt, Dnf, Yum, Pacman, Zypper, Apk}
	case "darwin":
		return []Kind{Brew}
	case "windows":
		return []Kind{Winget, Choco, Scoop}
	default:
		return nil
	}
}

// Detect probes for manager executables in the platform's preference order
// and returns the first one found, or None. lookPath is exec.LookPath in
// production; tests substitute a synthetic environment.
func Detect(goos string, lookPath func(string) (string, error)) Kind {
	for _, k := range detectionOrder(goos) {
		if _, err := lookPath(k.Executable()); err == nil {
			return k
		}
	}
	return None
}
