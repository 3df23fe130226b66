// Package main is the entry point for the gitmon command.
package main

import (
	"fmt"
	"os"

	"github.com/chmouel/gitmon/internal/buildinfo"
	urfavecli "github.com/urfave/cli/v2"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
	builtBy = "unknown"
)

func main() {
	buildinfo.Set(version, commit, date, builtBy)
	buildinfo.Enrich()

	cliApp := &urfavecli.App{
		Name:                 "gitmon",
		Usage:                "Inspect and monitor git working trees",
		Version:              buildinfo.Version(),
		EnableBashCompletion: true,

		Flags: globalFlags(),

		Commands: []*urfavecli.Command{
			statusCommand(),
			branchesCommand(),
			logCommand(),
			annotateCommand(),
			changesCommand(),
			stashesCommand(),
			monitorCommand(),
			versionCommand(),
		},

		BashComplete: completeGlobalFlags,
	}

	if err := cliApp.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}
