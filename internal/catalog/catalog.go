// Package catalog declares the fixed toolset rig provisions: a pinned
// Python runtime, Git, and the 1Password app/CLI. Adding a manager means
// adding entries to these candidate tables, not new branches elsewhere.
package catalog

import (
	"github.com/atomikpanda/rig/internal/pkgmgr"
	"github.com/atomikpanda/rig/internal/sequence"
)

// Exit codes reserved for the catalog's required steps.
const (
	ExitPython      = 11
	ExitGit         = 12
	ExitOnePassword = 13
)

// PythonSeries is the Python minor version the python step pins to.
const PythonSeries = "3.11"

// DefaultSteps returns the provisioning sequence in install order. Candidate
// names diverge per manager because the same logical package carries
// different identifiers across distros and OS releases; each list falls back
// from the exact pin to the distro's closest equivalent.
func DefaultSteps() []sequence.Step {
	return []sequence.Step{
		{
			Name:       "python",
			Executable: "python3",
			Required:   true,
			ExitCode:   ExitPython,
			Candidates: map[pkgmgr.Kind][]string{
				pkgmgr.Apt:    {"python3.11", "python3"},
				pkgmgr.Dnf:    {"python3.11", "python311", "python3"},
				pkgmgr.Yum:    {"python3.11", "python311", "python3"},
				pkgmgr.Pacman: {"python"},
				pkgmgr.Zypper: {"python311", "python3"},
				pkgmgr.Apk:    {"python3"},
				pkgmgr.Brew:   {"python@3.11", "python@3"},
				pkgmgr.Winget: {"Python.Python.3.11"},
				pkgmgr.Choco:  {"python311", "python3"},
				pkgmgr.Scoop:  {"python311", "python"},
			},
		},
		{
			Name:       "git",
			Executable: "git",
			Required:   true,
			ExitCode:   ExitGit,
			Candidates: map[pkgmgr.Kind][]string{
				pkgmgr.Apt:    {"git"},
				pkgmgr.Dnf:    {"git"},
				pkgmgr.Yum:    {"git"},
				pkgmgr.Pacman: {"git"},
				pkgmgr.Zypper: {"git"},
				pkgmgr.Apk:    {"git"},
				pkgmgr.Brew:   {"git"},
				pkgmgr.Winget: {"Git.Git"},
				pkgmgr.Choco:  {"git"},
				pkgmgr.Scoop:  {"git"},
			},
		},
		{
			Name:       "1password",
			Executable: "op",
			Required:   true,
			ExitCode:   ExitOnePassword,
			Repo:       onePasswordRepo(),
			Candidates: map[pkgmgr.Kind][]string{
				// Managers without an entry (pacman, zypper, apk) have no
				// first-party 1Password package; the step is skipped there.
				pkgmgr.Apt:    {"1password-cli", "1password"},
				pkgmgr.Brew:   {"1password-cli", "1password"},
				pkgmgr.Winget: {"AgileBits.1Password.CLI", "AgileBits.1Password"},
				pkgmgr.Choco:  {"1password-cli", "1password"},
				pkgmgr.Scoop:  {"1password-cli"},
			},
		},
	}
}

// onePasswordRepo is the vendor package source 1Password is distributed
// from on managers whose default feeds do not carry it.
func onePasswordRepo() *pkgmgr.Repo {
	return &pkgmgr.Repo{
		Name:      "1password-archive",
		AptKeyURL: "https://downloads.1password.com/linux/keys/1password.asc",
		AptSourceLine: "deb [arch=amd64 signed-by=/usr/share/keyrings/1password-archive.gpg] " +
			"https://downloads.1password.com/linux/debian/amd64 stable main",
		BrewTap:     "1password/tap",
		ScoopBucket: "extras",
	}
}
