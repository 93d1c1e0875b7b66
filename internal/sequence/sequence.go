// Package sequence runs the fixed, ordered list of provisioning steps
// against the detected package manager: check idempotence, install from a
// candidate list, verify, and map failures to stable process exit codes.
package sequence

import (
	"context"
	"fmt"
	"strings"

	"github.com/atomikpanda/rig/internal/logbook"
	"github.com/atomikpanda/rig/internal/pkgmgr"
	"github.com/atomikpanda/rig/internal/shell"
)

// Process exit codes shared by every run. Step-specific codes live with the
// step definitions.
const (
	ExitOK        = 0
	ExitFailure   = 1 // generic unhandled error
	ExitNoManager = 10
)

// Outcome is the terminal state of one step. Every step starts Pending and
// ends in exactly one of the other four states.
type Outcome string

const (
	Pending        Outcome = "pending"
	AlreadyPresent Outcome = "already-present"
	Installed      Outcome = "installed"
	Skipped        Outcome = "skipped"
	Failed         Outcome = "failed"
)

// Step is one provisioning unit: a tool that must end up on PATH, reachable
// through per-manager candidate package names tried in order.
type Step struct {
	Name       string
	Executable string // idempotence check: does this binary resolve on PATH?

	// Candidates maps each manager to the package names that may provide
	// the tool on that manager, in preference order.
	Candidates map[pkgmgr.Kind][]string

	// Required aborts the whole run on failure with ExitCode; an optional
	// step's failure is logged and skipped.
	Required bool
	ExitCode int

	// Repo, when set, is registered with the manager before the first
	// install attempt (apt source, brew tap, scoop bucket).
	Repo *pkgmgr.Repo

	// Verify, when non-empty, replaces the PATH lookup with a shell command
	// that must exit 0 (e.g. a version pin check).
	Verify string
}

// Result records the outcome of one step, with enough context to make a
// failed run reproducible: which packages were attempted and the last error.
type Result struct {
	Step      string
	Outcome   Outcome
	Package   string // canonical package that satisfied the step, if any
	Attempted []string
	Err       error
}

// RunContext carries everything a run needs. It is built once at process
// start and read-only afterwards; only the log sink is appended to.
type RunContext struct {
	Manager        pkgmgr.Kind
	NonInteractive bool
	Elevated       bool
	RefreshIndex   bool
	DryRun         bool
	Verbose        bool
	Steps          []Step
	Log            *logbook.Logger
}

// AbortError terminates a run: a required step failed, or no manager was
// found. Code is the process exit code documented for the failure.
type AbortError struct {
	Step string
	Code int
	Err  error
}

func (e *AbortError) Error() string {
	if e.Step == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("step %s: %v", e.Step, e.Err)
}

func (e *AbortError) Unwrap() error { return e.Err }

// Installer is the adapter surface the sequencer drives. *pkgmgr.Adapter
// implements it; tests substitute fakes.
type Installer interface {
	Refresh(ctx context.Context) error
	Install(ctx context.Context, candidates []string) (string, error)
	AddRepo(ctx context.Context, repo pkgmgr.Repo) error
	IsInstalled(executable string) bool
}

// Sequencer executes steps strictly in order, one adapter call in flight at
// a time. There is deliberately no parallelism: package managers serialize
// on a shared package database and concurrent invocations corrupt it.
type Sequencer struct {
	Adapter Installer

	// Confirm, when set, is consulted once before the first privileged
	// install of an interactive run. Returning false aborts the run.
	Confirm func(step string) (bool, error)

	// Eval evaluates a step's custom verify command. Defaults to shell.Eval.
	Eval func(ctx context.Context, command string) (bool, error)

	confirmed bool
}

// New returns a Sequencer driving adapter.
func New(adapter Installer) *Sequencer {
	return &Sequencer{Adapter: adapter, Eval: shell.Eval}
}

// Run executes every step in order. It returns the results accumulated so
// far plus an *AbortError when a required step failed; subsequent steps are
// never attempted after an abort.
func (s *Sequencer) Run(ctx context.Context, rc *RunContext) ([]Result, error) {
	if rc.Manager == pkgmgr.None {
		rc.Log.Errorf("no supported package manager found on this system")
		return nil, &AbortError{Code: ExitNoManager, Err: pkgmgr.ErrNoManager}
	}
	rc.Log.Infof("package manager: %s", rc.Manager)

	if rc.RefreshIndex && !rc.DryRun {
		if err := s.Adapter.Refresh(ctx); err != nil {
			// Best-effort: installs frequently succeed against a stale index.
			rc.Log.Warnf("index refresh failed, continuing: %v", err)
		}
	}

	var results []Result
	for _, step := range rc.Steps {
		res := s.runStep(ctx, rc, step)
		results = append(results, res)
		s.report(rc, step, res)

		if res.Outcome == Failed {
			code := step.ExitCode
			if code == 0 {
				code = ExitFailure
			}
			return results, &AbortError{Step: step.Name, Code: code, Err: res.Err}
		}
	}
	return results, nil
}

// Status checks every step's idempotence condition without installing
// anything. Outcomes are AlreadyPresent or Pending.
func (s *Sequencer) Status(ctx context.Context, rc *RunContext) []Result {
	var results []Result
	for _, step := range rc.Steps {
		out := Pending
		if s.satisfied(ctx, step) {
			out = AlreadyPresent
		}
		results = append(results, Result{Step: step.Name, Outcome: out})
	}
	return results
}

func (s *Sequencer) runStep(ctx context.Context, rc *RunContext, step Step) Result {
	res := Result{Step: step.Name, Outcome: Pending}

	if s.satisfied(ctx, step) {
		res.Outcome = AlreadyPresent
		return res
	}

	candidates := step.Candidates[rc.Manager]
	if len(candidates) == 0 {
		res.Outcome = Skipped
		res.Err = fmt.Errorf("no %s candidate for %s", step.Name, rc.Manager)
		return res
	}
	res.Attempted = candidates

	if rc.DryRun {
		res.Outcome = Skipped
		rc.Log.Infof("[dry-run] would install %s (candidates: %s)",
			step.Name, strings.Join(candidates, ", "))
		return res
	}

	if rc.Verbose {
		rc.Log.Infof("%s: trying candidates on %s: %s",
			step.Name, rc.Manager, strings.Join(candidates, ", "))
	}

	if err := s.confirmElevation(rc, step); err != nil {
		return s.fail(step, res, err)
	}

	if step.Repo != nil {
		if err := s.Adapter.AddRepo(ctx, *step.Repo); err != nil {
			return s.fail(step, res, fmt.Errorf("register package source: %w", err))
		}
	}

	name, err := s.Adapter.Install(ctx, candidates)
	if err != nil {
		return s.fail(step, res, err)
	}
	res.Package = name

	// The manager reported success; distrust it until the executable
	// actually resolves.
	if !s.satisfied(ctx, step) {
		return s.fail(step, res, fmt.Errorf("verification mismatch: %s installed but %q not found",
			name, step.Executable))
	}

	res.Outcome = Installed
	return res
}

// satisfied runs the step's idempotence check: its custom verify command
// when configured, a plain PATH lookup otherwise.
func (s *Sequencer) satisfied(ctx context.Context, step Step) bool {
	if step.Verify != "" {
		ok, err := s.Eval(ctx, step.Verify)
		return err == nil && ok
	}
	return s.Adapter.IsInstalled(step.Executable)
}

// confirmElevation asks the user once per run before the first privileged
// install. Non-interactive runs never prompt.
func (s *Sequencer) confirmElevation(rc *RunContext, step Step) error {
	if s.confirmed || s.Confirm == nil || rc.NonInteractive {
		return nil
	}
	if !rc.Manager.NeedsElevation() || rc.Elevated {
		return nil
	}
	ok, err := s.Confirm(step.Name)
	if err != nil {
		return fmt.Errorf("confirm elevation: %w", err)
	}
	if !ok {
		return fmt.Errorf("privileged install declined")
	}
	s.confirmed = true
	return nil
}

// fail finalises a step that could not complete. Required steps become
// Failed and abort the run; optional steps degrade to Skipped and the run
// continues.
func (s *Sequencer) fail(step Step, res Result, err error) Result {
	res.Err = err
	if step.Required {
		res.Outcome = Failed
	} else {
		res.Outcome = Skipped
	}
	return res
}

// report writes one log line per step outcome.
func (s *Sequencer) report(rc *RunContext, step Step, res Result) {
	switch res.Outcome {
	case AlreadyPresent:
		rc.Log.Infof("%s: already present", step.Name)
	case Installed:
		rc.Log.Infof("%s: installed (%s via %s)", step.Name, res.Package, rc.Manager)
	case Skipped:
		if res.Err != nil {
			rc.Log.Warnf("%s: skipped: %v", step.Name, res.Err)
		} else {
			rc.Log.Infof("%s: skipped", step.Name)
		}
	case Failed:
		rc.Log.Errorf("%s: failed: %v", step.Name, res.Err)
	}
}
