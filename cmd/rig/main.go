package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/atomikpanda/rig/internal/catalog"
	"github.com/atomikpanda/rig/internal/color"
	"github.com/atomikpanda/rig/internal/config"
	"github.com/atomikpanda/rig/internal/logbook"
	"github.com/atomikpanda/rig/internal/pkgmgr"
	"github.com/atomikpanda/rig/internal/platform"
	"github.com/atomikpanda/rig/internal/postinit"
	"github.com/atomikpanda/rig/internal/sequence"
	"github.com/atomikpanda/rig/internal/shell"
)

const defaultConfig = "rig.yaml"

var (
	configFile string
	assumeYes  bool
	verbose    bool
	noRefresh  bool
	dryRun     bool
	skipSteps  []string
)

func main() {
	color.Init()
	root := buildRoot()
	if err := root.Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

// exitCode maps an error to the documented process exit code: 10 when no
// package manager was found, a step-specific code on a required failure,
// 1 otherwise.
func exitCode(err error) int {
	var abort *sequence.AbortError
	if errors.As(err, &abort) {
		return abort.Code
	}
	if errors.Is(err, pkgmgr.ErrNoManager) {
		return sequence.ExitNoManager
	}
	return sequence.ExitFailure
}

func buildRoot() *cobra.Command {
	root := &cobra.Command{
		Use:   "rig",
		Short: "Bootstrap a fresh workstation",
		Long: `rig detects the local package manager and installs a fixed toolset —
a pinned Python, Git, and 1Password — then runs the configured
post-provisioning steps (secrets, repositories, dotfiles).`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&configFile, "config", "c", defaultConfig, "path to config file")
	root.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false, "non-interactive: assume yes, never prompt")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "show attempted candidates and extra output")

	root.AddCommand(
		upCmd(),
		detectCmd(),
		statusCmd(),
		logCmd(),
	)

	return root
}

// loadConfig parses the config file. A missing file at the default location
// is not an error; every setting has a default.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configFile)
	if os.IsNotExist(err) && configFile == defaultConfig {
		return config.Config{}, nil
	}
	if err != nil {
		return config.Config{}, fmt.Errorf("load config %q: %w", configFile, err)
	}
	return cfg, nil
}

// buildSteps resolves the effective step list: catalog defaults, config
// overrides, then --skip flags.
func buildSteps(cfg config.Config) []sequence.Step {
	steps := cfg.Apply(catalog.DefaultSteps())
	if len(skipSteps) == 0 {
		return steps
	}
	out := steps[:0]
	for _, step := range steps {
		if !slices.Contains(skipSteps, step.Name) {
			out = append(out, step)
		}
	}
	return out
}

// --- up ----------------------------------------------------------------------

func upCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "up",
		Short: "Detect the package manager and install the toolset",
		Example: `  rig up
  rig up --yes
  rig up --skip 1password --no-refresh
  rig up --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			log := logbook.Open(platform.ExpandPath(cfg.LogFile))
			defer log.Close()

			rc := &sequence.RunContext{
				Manager:        pkgmgr.Detect(platform.Current(), exec.LookPath),
				NonInteractive: assumeYes,
				Elevated:       platform.Elevated(),
				RefreshIndex:   !noRefresh,
				DryRun:         dryRun,
				Verbose:        verbose,
				Steps:          buildSteps(cfg),
				Log:            log,
			}

			seq := sequence.New(pkgmgr.New(rc.Manager, rc.Elevated))
			if !assumeYes {
				seq.Confirm = confirmElevation
			}

			if _, err := seq.Run(ctx, rc); err != nil {
				return err
			}

			if !dryRun {
				if err := postinit.New(cfg.Post, log).Run(ctx); err != nil {
					log.Errorf("post-provisioning: %v", err)
					return err
				}
			}
			log.Infof("provisioning complete")
			return nil
		},
	}

	cmd.Flags().BoolVar(&noRefresh, "no-refresh", false, "skip the package index refresh")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print what would be installed without installing")
	cmd.Flags().StringArrayVar(&skipSteps, "skip", nil, "skip a step by name (repeatable)")
	return cmd
}

// confirmElevation prompts before the first privileged install of an
// interactive run.
func confirmElevation(step string) (bool, error) {
	ok := true
	prompt := huh.NewConfirm().
		Title(fmt.Sprintf("Installing %s needs administrator rights (sudo). Continue?", step)).
		Value(&ok)
	if err := huh.NewForm(huh.NewGroup(prompt)).Run(); err != nil {
		return false, err
	}
	return ok, nil
}

// --- detect ------------------------------------------------------------------

func detectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detect",
		Short: "Print the detected package manager",
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := pkgmgr.Detect(platform.Current(), exec.LookPath)
			if kind == pkgmgr.None {
				return pkgmgr.ErrNoManager
			}
			fmt.Fprintf(os.Stdout, "os: %s\nmanager: %s\n", platform.Current(), kind)
			if verbose {
				if out, err := shell.Output(context.Background(), kind.Executable()+" --version"); err == nil {
					fmt.Fprintf(os.Stdout, "version: %s\n", out)
				}
			}
			return nil
		},
	}
}

// --- status ------------------------------------------------------------------

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which steps are already satisfied, without installing",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			kind := pkgmgr.Detect(platform.Current(), exec.LookPath)
			adapter := pkgmgr.New(kind, platform.Elevated())
			seq := sequence.New(adapter)

			rc := &sequence.RunContext{Manager: kind, Steps: buildSteps(cfg)}
			fmt.Fprintln(os.Stdout, color.Bold(fmt.Sprintf("%-12s  %s", "STEP", "STATE")))
			for _, res := range seq.Status(ctx, rc) {
				state := color.Yellow("missing")
				if res.Outcome == sequence.AlreadyPresent {
					state = color.BoldGreen("present")
				}
				fmt.Fprintf(os.Stdout, "%-12s  %s\n", res.Step, state)
			}
			if kind == pkgmgr.None {
				fmt.Fprintln(os.Stdout, color.BoldRed("\nno supported package manager found"))
			} else {
				fmt.Fprintf(os.Stdout, "\nmanager: %s\n", kind)
			}
			return nil
		},
	}
}

// --- log ---------------------------------------------------------------------

func logCmd() *cobra.Command {
	var limit int
	var level string

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show the provisioning log",
		Example: `  rig log
  rig log --limit 20
  rig log --level ERROR`,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := parseLevel(level)
			if err != nil {
				return err
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			path := platform.ExpandPath(cfg.LogFile)
			entries, err := logbook.Read(path, filter, limit)
			if err != nil {
				return fmt.Errorf("read log: %w", err)
			}
			if len(entries) == 0 {
				fmt.Println("(no log entries)")
				return nil
			}
			for _, e := range entries {
				ts := e.Time.Format(time.DateTime)
				lvl := fmt.Sprintf("%-5s", e.Level)
				switch e.Level {
				case logbook.Warn:
					lvl = color.BoldYellow(lvl)
				case logbook.Error:
					lvl = color.BoldRed(lvl)
				default:
					lvl = color.Dim(lvl)
				}
				fmt.Printf("%s %s %s\n", color.Dim(ts), lvl, e.Message)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of entries to show")
	cmd.Flags().StringVar(&level, "level", "", "filter by level (INFO, WARN, ERROR)")
	return cmd
}

// parseLevel validates the --level flag. An empty value means no filter.
func parseLevel(s string) (logbook.Level, error) {
	if s == "" {
		return "", nil
	}
	switch l := logbook.Level(strings.ToUpper(s)); l {
	case logbook.Info, logbook.Warn, logbook.Error:
		return l, nil
	default:
		return "", fmt.Errorf("unknown level %q (expected INFO, WARN, or ERROR)", s)
	}
}
