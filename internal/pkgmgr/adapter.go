package pkgmgr

import (
	"context"
	"fmt"
	"os"
	"os/exec"
)

// Adapter wraps one detected package manager behind uniform operations.
// All invocations are strictly sequential; the adapter never runs two
// manager processes at once and never retries a failed candidate.
type Adapter struct {
	Kind     Kind
	Elevated bool // process already runs as root / administrator

	// Exec runs a command, streaming its output to the user's terminal.
	// LookPath resolves an executable on PATH. Both default to os/exec and
	// exist as fields so tests can substitute fakes.
	Exec     func(ctx context.Context, argv []string) error
	LookPath func(name string) (string, error)
}

// New returns an Adapter for kind backed by os/exec.
func New(kind Kind, elevated bool) *Adapter {
	return &Adapter{
		Kind:     kind,
		Elevated: elevated,
		Exec:     runCommand,
		LookPath: exec.LookPath,
	}
}

// IsInstalled reports whether an executable resolves on PATH. It never
// invokes the package manager.
func (a *Adapter) IsInstalled(executable string) bool {
	_, err := a.LookPath(executable)
	return err == nil
}

// Refresh re-syncs the manager's package index. Callers treat a failure as
// a warning: installs frequently succeed against a stale cache.
func (a *Adapter) Refresh(ctx context.Context) error {
	argv, err := refreshArgs(a.Kind)
	if err != nil {
		return err
	}
	if argv == nil {
		return nil // manager has no separate index refresh
	}
	argv, err = a.elevate(argv)
	if err != nil {
		return err
	}
	if err := a.Exec(ctx, argv); err != nil {
		return fmt.Errorf("refresh %s index: %w", a.Kind, err)
	}
	return nil
}

// Install tries each candidate package name in order and returns the first
// one that installs. A failed candidate is never retried; the next one is
// tried instead. Only when every candidate fails does Install return a
// NoCandidateError.
func (a *Adapter) Install(ctx context.Context, candidates []string) (string, error) {
	if len(candidates) == 0 {
		return "", &NoCandidateError{Last: fmt.Errorf("empty candidate list")}
	}
	var last error
	for _, name := range candidates {
		argv, err := installArgs(a.Kind, name)
		if err != nil {
			return "", err
		}
		argv, err = a.elevate(argv)
		if err != nil {
			return "", err
		}
		if err := a.Exec(ctx, argv); err != nil {
			last = fmt.Errorf("install %s via %s: %w", name, a.Kind, err)
			continue
		}
		return name, nil
	}
	return "", &NoCandidateError{Attempts: candidates, Last: last}
}

// elevate prepends sudo when the manager needs root and the process is not
// already elevated. Returns ErrPrivilegeRequired when elevation is needed
// but sudo is not available.
func (a *Adapter) elevate(argv []string) ([]string, error) {
	if !a.Kind.NeedsElevation() || a.Elevated {
		return argv, nil
	}
	if _, err := a.LookPath("sudo"); err != nil {
		return nil, ErrPrivilegeRequired
	}
	return append([]string{"sudo"}, argv...), nil
}

// installArgs returns the command + arguments needed to install pkg with the
// given manager, without any elevation prefix.
func installArgs(kind Kind, pkg string) ([]string, error) {
	switch kind {
	case Apt:
		return []string{"apt-get", "install", "-y", pkg}, nil
	case Dnf:
		return []string{"dnf", "install", "-y", pkg}, nil
	case Yum:
		return []string{"yum", "install", "-y", pkg}, nil
	case Pacman:
		return []string{"pacman", "-S", "--noconfirm", "--needed", pkg}, nil
	case Zypper:
		return []string{"zypper", "--non-interactive", "install", pkg}, nil
	case Apk:
		return []string{"apk", "add", pkg}, nil
	case Brew:
		return []string{"brew", "install", pkg}, nil
	case Winget:
		return []string{"winget", "install", "--id", pkg, "-e",
			"--accept-source-agreements", "--accept-package-agreements"}, nil
	case Choco:
		return []string{"choco", "install", pkg, "-y"}, nil
	case Scoop:
		return []string{"scoop", "install", pkg}, nil
	default:
		return nil, fmt.Errorf("unknown package manager: %q", kind)
	}
}

// refreshArgs returns the index re-sync command for the manager, or nil when
// the manager has none.
func refreshArgs(kind Kind) ([]string, error) {
	switch kind {
	case Apt:
		return []string{"apt-get", "update"}, nil
	case Dnf:
		return []string{"dnf", "makecache"}, nil
	case Yum:
		return []string{"yum", "makecache"}, nil
	case Pacman:
		return []string{"pacman", "-Sy"}, nil
	case Zypper:
		return []string{"zypper", "refresh"}, nil
	case Apk:
		return []string{"apk", "update"}, nil
	case Brew:
		return []string{"brew", "update"}, nil
	case Winget:
		return []string{"winget", "source", "update"}, nil
	case Choco:
		return nil, nil // choco consults its feed on every install
	case Scoop:
		return []string{"scoop", "update"}, nil
	default:
		return nil, fmt.Errorf("unknown package manager: %q", kind)
	}
}

func runCommand(ctx context.Context, argv []string) error {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin
	return cmd.Run()
}
