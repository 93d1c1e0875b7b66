// Package postinit runs the personal setup that follows a completed
// provisioning sequence: decrypting secrets into place, cloning workspace
// repositories, and rendering dotfile templates. The sequencer's only
// contract with this package is that Run executes after Completed, never
// after an abort.
package postinit

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"text/template"

	"github.com/atomikpanda/rig/internal/config"
	"github.com/atomikpanda/rig/internal/logbook"
	"github.com/atomikpanda/rig/internal/platform"
	"github.com/atomikpanda/rig/internal/shell"
)

// Runner applies one Post section. Exec and Hook exist as fields so tests
// can record git and hook invocations instead of spawning them.
type Runner struct {
	Post config.Post
	Log  *logbook.Logger
	Exec func(ctx context.Context, argv []string) error
	Hook func(ctx context.Context, command string) error
}

// New returns a Runner backed by os/exec and the user's shell.
func New(post config.Post, log *logbook.Logger) *Runner {
	return &Runner{Post: post, Log: log, Exec: runCommand, Hook: shell.Run}
}

// Run applies secrets, clones, templates, and hooks in that order: secrets
// first because a clone may need the SSH key that was just decrypted, hooks
// last so they see the fully provisioned tree. The first failure stops the
// remaining post actions.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.applySecrets(); err != nil {
		return err
	}
	if err := r.cloneRepos(ctx); err != nil {
		return err
	}
	if err := r.renderTemplates(); err != nil {
		return err
	}
	return r.runHooks(ctx)
}

func (r *Runner) applySecrets() error {
	sec := r.Post.Secrets
	if len(sec.Files) == 0 {
		return nil
	}
	key := &Key{
		IdentityFile: platform.ExpandPath(sec.Identity),
		Passphrase:   sec.Passphrase,
	}
	if key.Passphrase == "" {
		key.Passphrase = os.Getenv("RIG_AGE_PASSPHRASE")
	}
	for _, f := range sec.Files {
		src := platform.ExpandPath(f.Source)
		dst := platform.ExpandPath(f.Dest)
		if err := os.MkdirAll(filepath.Dir(dst), 0o700); err != nil {
			return fmt.Errorf("create %s: %w", filepath.Dir(dst), err)
		}
		if err := key.DecryptFile(src, dst, os.FileMode(f.Mode)); err != nil {
			return fmt.Errorf("decrypt %s: %w", src, err)
		}
		r.Log.Infof("secret %s -> %s", f.Source, dst)
	}
	return nil
}

// cloneRepos clones each configured repository, skipping destinations that
// already exist so a re-run stays idempotent.
func (r *Runner) cloneRepos(ctx context.Context) error {
	for _, repo := range r.Post.Repos {
		dest := platform.ExpandPath(repo.Dest)
		if _, err := os.Stat(dest); err == nil {
			r.Log.Infof("repo %s: already cloned", repo.URL)
			continue
		}
		if err := r.Exec(ctx, []string{"git", "clone", repo.URL, dest}); err != nil {
			return fmt.Errorf("clone %s: %w", repo.URL, err)
		}
		r.Log.Infof("repo %s -> %s", repo.URL, dest)
	}
	return nil
}

func (r *Runner) renderTemplates() error {
	for _, t := range r.Post.Templates {
		src := platform.ExpandPath(t.Source)
		dst := platform.ExpandPath(t.Dest)
		rendered, err := renderFile(src, t.Params)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return fmt.Errorf("create %s: %w", filepath.Dir(dst), err)
		}
		if err := os.WriteFile(dst, rendered, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", dst, err)
		}
		r.Log.Infof("template %s -> %s", t.Source, dst)
	}
	return nil
}

func (r *Runner) runHooks(ctx context.Context) error {
	for _, hook := range r.Post.Hooks {
		if err := r.Hook(ctx, hook); err != nil {
			return fmt.Errorf("hook %q: %w", hook, err)
		}
		r.Log.Infof("hook %q: ok", hook)
	}
	return nil
}

// renderFile executes the Go template at path with params as the data object.
func renderFile(path string, params map[string]any) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template: %w", err)
	}
	tmpl, err := template.New(filepath.Base(path)).Option("missingkey=zero").Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("parse template %s: %w", path, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, params); err != nil {
		return nil, fmt.Errorf("execute template %s: %w", path, err)
	}
	return buf.Bytes(), nil
}

func runCommand(ctx context.Context, argv []string) error {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
