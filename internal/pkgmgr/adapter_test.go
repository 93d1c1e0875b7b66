package pkgmgr

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// fakeExec records every invocation and fails those whose joined argv
// contains a string from failOn.
type fakeExec struct {
	calls  [][]string
	failOn []string
}

func (f *fakeExec) run(_ context.Context, argv []string) error {
	f.calls = append(f.calls, argv)
	joined := strings.Join(argv, " ")
	for _, s := range f.failOn {
		if strings.Contains(joined, s) {
			return errors.New("exit status 100")
		}
	}
	return nil
}

func newTestAdapter(kind Kind, fe *fakeExec, pathHas ...string) *Adapter {
	a := New(kind, false)
	a.Exec = fe.run
	a.LookPath = lookPathWith(pathHas...)
	return a
}

func TestInstallArgs(t *testing.T) {
	tests := []struct {
		kind  Kind
		first string
	}{
		{Apt, "apt-get"},
		{Dnf, "dnf"},
		{Yum, "yum"},
		{Pacman, "pacman"},
		{Zypper, "zypper"},
		{Apk, "apk"},
		{Brew, "brew"},
		{Winget, "winget"},
		{Choco, "choco"},
		{Scoop, "scoop"},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			argv, err := installArgs(tt.kind, "git")
			if err != nil {
				t.Fatal(err)
			}
			if argv[0] != tt.first {
				t.Errorf("first arg = %q, want %q", argv[0], tt.first)
			}
			if !strings.Contains(strings.Join(argv, " "), "git") {
				t.Errorf("argv %v does not mention the package", argv)
			}
		})
	}
	if _, err := installArgs(Kind("nala"), "git"); err == nil {
		t.Error("unknown manager should error")
	}
}

func TestRefreshArgs(t *testing.T) {
	argv, err := refreshArgs(Apt)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(argv, " "); got != "apt-get update" {
		t.Errorf("apt refresh = %q", got)
	}
	// choco has no separate index refresh.
	argv, err = refreshArgs(Choco)
	if err != nil {
		t.Fatal(err)
	}
	if argv != nil {
		t.Errorf("choco refresh = %v, want nil", argv)
	}
}

func TestRefreshNoopKind(t *testing.T) {
	fe := &fakeExec{}
	a := newTestAdapter(Choco, fe)
	if err := a.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(fe.calls) != 0 {
		t.Errorf("choco refresh ran %d commands, want 0", len(fe.calls))
	}
}

func TestInstallFirstCandidateWins(t *testing.T) {
	fe := &fakeExec{}
	a := newTestAdapter(Brew, fe)
	name, err := a.Install(context.Background(), []string{"python@3.11", "python@3"})
	if err != nil {
		t.Fatal(err)
	}
	if name != "python@3.11" {
		t.Errorf("installed %q, want python@3.11", name)
	}
	if len(fe.calls) != 1 {
		t.Errorf("ran %d commands, want 1", len(fe.calls))
	}
}

func TestInstallFallsBackInOrder(t *testing.T) {
	fe := &fakeExec{failOn: []string{"alpha", "gamma"}}
	a := newTestAdapter(Brew, fe)

	name, err := a.Install(context.Background(), []string{"alpha", "beta", "gamma"})
	if err != nil {
		t.Fatal(err)
	}
	if name != "beta" {
		t.Errorf("installed %q, want beta", name)
	}
	// alpha failed, beta succeeded, gamma was never attempted.
	if len(fe.calls) != 2 {
		t.Fatalf("ran %d commands, want 2: %v", len(fe.calls), fe.calls)
	}
	if !strings.Contains(strings.Join(fe.calls[1], " "), "beta") {
		t.Errorf("second attempt was %v, want beta", fe.calls[1])
	}
}

func TestInstallAllCandidatesFail(t *testing.T) {
	fe := &fakeExec{failOn: []string{"install"}}
	a := newTestAdapter(Brew, fe)

	_, err := a.Install(context.Background(), []string{"a", "b"})
	var ncErr *NoCandidateError
	if !errors.As(err, &ncErr) {
		t.Fatalf("err = %v, want NoCandidateError", err)
	}
	if len(ncErr.Attempts) != 2 {
		t.Errorf("attempts = %v, want [a b]", ncErr.Attempts)
	}
	if ncErr.Last == nil {
		t.Error("Last error should be preserved")
	}
}

func TestInstallEmptyCandidates(t *testing.T) {
	a := newTestAdapter(Brew, &fakeExec{})
	_, err := a.Install(context.Background(), nil)
	var ncErr *NoCandidateError
	if !errors.As(err, &ncErr) {
		t.Fatalf("err = %v, want NoCandidateError", err)
	}
}

func TestElevatePrefixesSudo(t *testing.T) {
	fe := &fakeExec{}
	a := newTestAdapter(Apt, fe, "sudo")

	if _, err := a.Install(context.Background(), []string{"git"}); err != nil {
		t.Fatal(err)
	}
	if fe.calls[0][0] != "sudo" {
		t.Errorf("argv = %v, want sudo prefix", fe.calls[0])
	}
}

func TestElevateSkippedWhenElevated(t *testing.T) {
	fe := &fakeExec{}
	a := newTestAdapter(Apt, fe)
	a.Elevated = true

	if _, err := a.Install(context.Background(), []string{"git"}); err != nil {
		t.Fatal(err)
	}
	if fe.calls[0][0] != "apt-get" {
		t.Errorf("argv = %v, want no sudo prefix when already root", fe.calls[0])
	}
}

func TestElevateWithoutSudo(t *testing.T) {
	fe := &fakeExec{}
	a := newTestAdapter(Apt, fe) // PATH has no sudo

	_, err := a.Install(context.Background(), []string{"git"})
	if !errors.Is(err, ErrPrivilegeRequired) {
		t.Errorf("err = %v, want ErrPrivilegeRequired", err)
	}
	if len(fe.calls) != 0 {
		t.Error("no command should run without elevation")
	}
}

func TestElevateUnprivilegedManager(t *testing.T) {
	fe := &fakeExec{}
	a := newTestAdapter(Brew, fe) // brew never takes sudo

	if _, err := a.Install(context.Background(), []string{"git"}); err != nil {
		t.Fatal(err)
	}
	if fe.calls[0][0] != "brew" {
		t.Errorf("argv = %v, want plain brew", fe.calls[0])
	}
}

func TestIsInstalled(t *testing.T) {
	a := newTestAdapter(Brew, &fakeExec{}, "git")
	if !a.IsInstalled("git") {
		t.Error("git should resolve")
	}
	if a.IsInstalled("op") {
		t.Error("op should not resolve")
	}
}
