// Package main provides CLI command definitions for gitmon.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/chmouel/gitmon/internal/buildinfo"
	"github.com/chmouel/gitmon/internal/config"
	"github.com/chmouel/gitmon/internal/git"
	"github.com/chmouel/gitmon/internal/log"
	"github.com/chmouel/gitmon/internal/monitor"
	"github.com/chmouel/gitmon/internal/status"
	"github.com/chmouel/gitmon/internal/watch"
	urfavecli "github.com/urfave/cli/v2"
)

// setup resolves the configuration and builds the facade for the
// repository named by --repo. Flags override config values.
func setup(c *urfavecli.Context) (*config.Config, *git.Service, error) {
	if debugLog := c.String("debug-log"); debugLog != "" {
		if err := log.SetFile(debugLog); err != nil {
			fmt.Fprintf(os.Stderr, "Error opening debug log file %q: %v\n", debugLog, err)
		}
	}

	cfg, err := config.LoadConfig(c.String("config-file"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		cfg = config.DefaultConfig()
	}

	// If debug log wasn't set via flag, check if it's in the config
	if c.String("debug-log") == "" {
		if cfg.DebugLog != "" {
			if err := log.SetFile(cfg.DebugLog); err != nil {
				fmt.Fprintf(os.Stderr, "Error opening debug log file from config %q: %v\n", cfg.DebugLog, err)
			}
		} else {
			_ = log.SetFile("")
		}
	}

	if binary := c.String("git-binary"); binary != "" {
		cfg.GitBinary = binary
	}
	if c.IsSet("timeout") {
		cfg.CommandTimeoutSeconds = c.Int("timeout")
	}

	root, err := filepath.Abs(c.String("repo"))
	if err != nil {
		return nil, nil, fmt.Errorf("resolving repository root: %w", err)
	}

	return cfg, newService(cfg, root, nil), nil
}

func newService(cfg *config.Config, root string, gate *git.WriteGate) *git.Service {
	runner := git.NewRunner(cfg.GitBinary, root)
	runner.Timeout = cfg.CommandTimeout()
	runner.MaxOutput = cfg.OutputLimitBytes
	return git.NewService(root, runner, gate)
}

func statusCommand() *urfavecli.Command {
	return &urfavecli.Command{
		Name:  "status",
		Usage: "Show staged, unstaged and untracked files",
		Flags: []urfavecli.Flag{
			&urfavecli.BoolFlag{
				Name:  "ignored",
				Usage: "Also list ignored files",
			},
		},
		Action: runStatus,
	}
}

func runStatus(c *urfavecli.Context) error {
	defer func() { _ = log.Close() }()
	_, svc, err := setup(c)
	if err != nil {
		return err
	}
	ctx := c.Context

	cached, err := svc.CachedFiles(ctx)
	if err != nil {
		return err
	}
	uncached, err := svc.UncachedFiles(ctx)
	if err != nil {
		return err
	}
	other, err := svc.OtherFiles(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, tf := range cached {
		fmt.Fprintf(w, "staged\t%s\t%s\n", tf.Status, tf.Path)
	}
	for _, f := range uncached {
		fmt.Fprintf(w, "unstaged\tmodified\t%s\n", f)
	}
	for _, f := range other {
		fmt.Fprintf(w, "untracked\t-\t%s\n", f)
	}
	if c.Bool("ignored") {
		ignored, err := svc.IgnoredFiles(ctx)
		if err != nil {
			return err
		}
		for _, f := range ignored {
			fmt.Fprintf(w, "ignored\t-\t%s\n", f)
		}
	}
	return w.Flush()
}

func branchesCommand() *urfavecli.Command {
	return &urfavecli.Command{
		Name:  "branches",
		Usage: "List branches",
		Flags: []urfavecli.Flag{
			&urfavecli.BoolFlag{
				Name:  "remote",
				Usage: "List remote branches only",
			},
		},
		Action: func(c *urfavecli.Context) error {
			defer func() { _ = log.Close() }()
			_, svc, err := setup(c)
			if err != nil {
				return err
			}
			branches, err := svc.BranchList(c.Context, c.Bool("remote"))
			if err != nil {
				return err
			}
			for _, b := range branches {
				marker := " "
				if b.Active {
					marker = "*"
				}
				fmt.Printf("%s %s\n", marker, b.Name)
			}
			return nil
		},
	}
}

func logCommand() *urfavecli.Command {
	return &urfavecli.Command{
		Name:      "log",
		Usage:     "Show the revision history of a path",
		ArgsUsage: "[path]",
		Action: func(c *urfavecli.Context) error {
			defer func() { _ = log.Close() }()
			_, svc, err := setup(c)
			if err != nil {
				return err
			}
			revisions, err := svc.Log(c.Context, c.Args().First())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			for _, rev := range revisions {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					shortID(rev.ID), rev.Time.Format("2006-01-02 15:04"), rev.Author, rev.Subject)
			}
			return w.Flush()
		},
	}
}

func annotateCommand() *urfavecli.Command {
	return &urfavecli.Command{
		Name:      "annotate",
		Usage:     "Show per-line authorship of a file",
		ArgsUsage: "<path>",
		Action: func(c *urfavecli.Context) error {
			defer func() { _ = log.Close() }()
			if c.NArg() == 0 {
				return fmt.Errorf("annotate requires a path argument")
			}
			_, svc, err := setup(c)
			if err != nil {
				return err
			}
			lines, err := svc.Annotate(c.Context, c.Args().First())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 1, ' ', 0)
			for _, line := range lines {
				fmt.Fprintf(w, "%s\t%s\t%s\t%4d)\t%s\n",
					shortID(line.Revision), line.Author,
					line.Time.Format("2006-01-02"), line.Line, line.Content)
			}
			return w.Flush()
		},
	}
}

func changesCommand() *urfavecli.Command {
	return &urfavecli.Command{
		Name:      "changes",
		Usage:     "Show the files changed by a commit",
		ArgsUsage: "<commit>",
		Action: func(c *urfavecli.Context) error {
			defer func() { _ = log.Close() }()
			if c.NArg() == 0 {
				return fmt.Errorf("changes requires a commit argument")
			}
			_, svc, err := setup(c)
			if err != nil {
				return err
			}
			set, err := svc.ChangesForCommit(c.Context, c.Args().First())
			if err != nil {
				return err
			}
			if set.Parent == "" {
				fmt.Printf("%s (initial commit)\n", shortID(set.Commit))
			} else {
				fmt.Printf("%s (parent %s)\n", shortID(set.Commit), shortID(set.Parent))
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			for _, ch := range set.Changes {
				path := ch.AfterPath
				if path == "" {
					path = ch.BeforePath
				}
				if ch.Status.String() == "rename" && ch.BeforePath != "" {
					path = ch.BeforePath + " -> " + ch.AfterPath
				}
				fmt.Fprintf(w, "%s\t%s\n", ch.Status, path)
			}
			return w.Flush()
		},
	}
}

func stashesCommand() *urfavecli.Command {
	return &urfavecli.Command{
		Name:  "stashes",
		Usage: "List stashes",
		Action: func(c *urfavecli.Context) error {
			defer func() { _ = log.Close() }()
			_, svc, err := setup(c)
			if err != nil {
				return err
			}
			stashes, err := svc.StashList(c.Context)
			if err != nil {
				return err
			}
			for _, s := range stashes {
				fmt.Println(s)
			}
			return nil
		},
	}
}

func versionCommand() *urfavecli.Command {
	return &urfavecli.Command{
		Name:  "version",
		Usage: "Show gitmon and git version information",
		Action: func(c *urfavecli.Context) error {
			defer func() { _ = log.Close() }()
			fmt.Println(buildinfo.Summary())
			_, svc, err := setup(c)
			if err != nil {
				return err
			}
			gitVersion, err := svc.Version(c.Context)
			if err != nil {
				return err
			}
			fmt.Println(strings.TrimSpace(gitVersion))
			return nil
		},
	}
}

func monitorCommand() *urfavecli.Command {
	return &urfavecli.Command{
		Name:   "monitor",
		Usage:  "Watch repositories and report working-tree changes",
		Action: runMonitor,
	}
}

// runMonitor polls every content root (the --repo root when none are
// configured) and prints an updated snapshot whenever one changes.
// With auto_watch enabled a filesystem watcher wakes the scanners
// early and keeps the status cache invalidated.
func runMonitor(c *urfavecli.Context) error {
	defer func() { _ = log.Close() }()
	cfg, svc, err := setup(c)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	roots := cfg.ContentRoots
	if len(roots) == 0 {
		roots = []string{svc.Root()}
	}

	// All mutating operations across roots share one gate; the monitor
	// itself only reads, but the services it hands out must serialize
	// writes should a host reuse them.
	gate := git.NewWriteGate()
	services := make(map[string]*git.Service, len(roots))
	order := make([]string, 0, len(roots))
	for _, r := range roots {
		abs, err := filepath.Abs(r)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error resolving root %q: %v\n", r, err)
			continue
		}
		if _, ok := services[abs]; ok {
			continue
		}
		services[abs] = newService(cfg, abs, gate)
		order = append(order, abs)
	}
	if len(order) == 0 {
		return fmt.Errorf("no usable content roots")
	}

	cache := status.NewCache(func(path string) status.Queryer {
		for _, root := range order {
			if path == root || strings.HasPrefix(path, root+string(filepath.Separator)) {
				return services[root]
			}
		}
		return nil
	}, log.Printf)

	registry := monitor.NewRegistry(cfg.PollInterval(), cfg.Settle())
	defer registry.Close()

	events := make(chan monitor.Invalidation)
	scanners := make(map[string]*monitor.Scanner, len(order))
	for _, root := range order {
		sc := registry.Get(services[root])
		scanners[root] = sc
		go forward(ctx, sc, events)

		if cfg.AutoWatch {
			w := watch.New(root, cache, sc)
			if err := w.Start(); err != nil {
				fmt.Fprintf(os.Stderr, "Error watching %s: %v\n", root, err)
			} else {
				defer w.Stop()
			}
		}
	}

	fmt.Printf("monitoring %d root(s), poll interval %s\n", len(order), cfg.PollInterval())
	for {
		select {
		case <-ctx.Done():
			return nil
		case inv := <-events:
			sc := scanners[inv.Root]
			if sc == nil {
				continue
			}
			fmt.Printf("%s changed\n", inv.Root)
			for _, f := range sc.UncachedSnapshot() {
				fmt.Printf("  unstaged   %s\n", f)
			}
			for _, f := range sc.OtherSnapshot() {
				fmt.Printf("  untracked  %s\n", f)
			}
		}
	}
}

// forward copies one scanner's invalidations onto the shared channel.
func forward(ctx context.Context, sc *monitor.Scanner, events chan<- monitor.Invalidation) {
	for {
		select {
		case <-ctx.Done():
			return
		case inv := <-sc.Events():
			select {
			case <-ctx.Done():
				return
			case events <- inv:
			}
		}
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
