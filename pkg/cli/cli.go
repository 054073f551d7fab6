// Package cli provides the command-line interface for screen-crawler.
package cli

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

// Version is set at build time.
var Version = "dev"

// GlobalFlags are available to all commands.
var GlobalFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Config file (default: crawler.yaml in the home directory)",
		EnvVars: []string{"CRAWLER_CONFIG"},
	},
	&cli.StringFlag{
		Name:    "db",
		Usage:   "SQLite database holding screens and transitions",
		EnvVars: []string{"CRAWLER_DB"},
	},
	&cli.StringFlag{
		Name:    "screenshots",
		Usage:   "Directory for screen screenshots",
		EnvVars: []string{"CRAWLER_SCREENSHOTS"},
	},
	&cli.IntFlag{
		Name:    "threshold",
		Usage:   "Similarity threshold in bits (negative disables)",
		EnvVars: []string{"CRAWLER_THRESHOLD"},
	},
	&cli.BoolFlag{
		Name:    "verbose",
		Usage:   "Enable verbose logging",
		EnvVars: []string{"CRAWLER_VERBOSE"},
	},
}

// NewApp builds the CLI application.
func NewApp() *cli.App {
	return &cli.App{
		Name:    "screen-crawler",
		Usage:   "Screen graph and resilient actions for exploring Android apps",
		Version: Version,
		Description: `screen-crawler deduplicates observed app screens into a persistent
graph and executes actions against a device with tiered fallbacks.

Examples:
  screen-crawler observe --screenshot shot.png --xml window.xml
  screen-crawler record --from <hash> --action "click \"Login\"" --to <hash>
  screen-crawler act --port 6790 --action '{"type":"scroll_down"}'
  screen-crawler stats`,
		Flags: GlobalFlags,
		Commands: []*cli.Command{
			observeCommand,
			recordCommand,
			statsCommand,
			historyCommand,
			resetCommand,
			actCommand,
		},
	}
}

// Execute runs the CLI.
func Execute() {
	if err := NewApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
