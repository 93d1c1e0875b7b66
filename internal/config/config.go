// Package config parses the optional rig.yaml file: per-step overrides for
// candidate package names, skips and verify commands, the log location, and
// the post-provisioning section. A missing file means defaults everywhere.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/atomikpanda/rig/internal/pkgmgr"
	"github.com/atomikpanda/rig/internal/sequence"
)

// Config is the top-level schema of rig.yaml.
type Config struct {
	LogFile string         `yaml:"log_file,omitempty"`
	Steps   []StepOverride `yaml:"steps,omitempty"`
	Post    Post           `yaml:"post,omitempty"`
}

// StepOverride adjusts one catalog step by name.
type StepOverride struct {
	Name string `yaml:"name"`
	Skip bool   `yaml:"skip,omitempty"`

	// Required overrides the step's abort-on-failure flag when present.
	Required *bool `yaml:"required,omitempty"`

	// Verify replaces the PATH idempotence check with a shell command that
	// must exit 0 (e.g. "python3 --version | grep -q ' 3.11'").
	Verify string `yaml:"verify,omitempty"`

	// Candidates replaces the candidate list for the named managers only.
	Candidates map[string][]string `yaml:"candidates,omitempty"`
}

// Post configures the post-provisioning actions that run only after every
// step completed.
type Post struct {
	Secrets   Secrets    `yaml:"secrets,omitempty"`
	Repos     []Repo     `yaml:"repos,omitempty"`
	Templates []Template `yaml:"templates,omitempty"`

	// Hooks are shell commands run last, in order (e.g. "pip install pipx").
	Hooks []string `yaml:"hooks,omitempty"`
}

// Secrets points at age-encrypted files to decrypt into place.
type Secrets struct {
	// Identity is the path to the age identity (secret key) file.
	Identity string `yaml:"identity,omitempty"`
	// Passphrase decrypts scrypt-protected files when Identity is empty.
	// Usually supplied via RIG_AGE_PASSPHRASE rather than the file.
	Passphrase string       `yaml:"passphrase,omitempty"`
	Files      []SecretFile `yaml:"files,omitempty"`
}

// SecretFile is one encrypted source and its plaintext destination.
type SecretFile struct {
	Source string `yaml:"source"`
	Dest   string `yaml:"dest"`
	Mode   uint32 `yaml:"mode,omitempty"` // default 0600
}

// Repo is a repository to clone after provisioning.
type Repo struct {
	URL  string `yaml:"url"`
	Dest string `yaml:"dest"`
}

// Template renders a dotfile template to its destination.
type Template struct {
	Source string         `yaml:"source"`
	Dest   string         `yaml:"dest"`
	Params map[string]any `yaml:"params,omitempty"`
}

// Load reads and parses a YAML config file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Apply merges the config's step overrides into steps, preserving order.
// Steps marked skip are removed; unknown override names are ignored.
func (c Config) Apply(steps []sequence.Step) []sequence.Step {
	out := make([]sequence.Step, 0, len(steps))
	for _, step := range steps {
		ov := c.override(step.Name)
		if ov == nil {
			out = append(out, step)
			continue
		}
		if ov.Skip {
			continue
		}
		if ov.Required != nil {
			step.Required = *ov.Required
		}
		if ov.Verify != "" {
			step.Verify = ov.Verify
		}
		if len(ov.Candidates) > 0 {
			merged := make(map[pkgmgr.Kind][]string, len(step.Candidates))
			for k, v := range step.Candidates {
				merged[k] = v
			}
			for manager, names := range ov.Candidates {
				merged[pkgmgr.Kind(manager)] = names
			}
			step.Candidates = merged
		}
		out = append(out, step)
	}
	return out
}

func (c Config) override(name string) *StepOverride {
	for i := range c.Steps {
		if c.Steps[i].Name == name {
			return &c.Steps[i]
		}
	}
	return nil
}
