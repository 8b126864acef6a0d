// Package cli provides the command-line interface for appcheck.
package cli

import (
	"fmt"
	"io"
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
		Usage:   "Path to appcheck.yaml (default: ./appcheck.yaml when present)",
		EnvVars: []string{"APPCHECK_CONFIG"},
	},
	&cli.StringFlag{
		Name:    "env-file",
		Usage:   "Dotenv file with credentials (default: ./.env when present)",
		EnvVars: []string{"APPCHECK_ENV_FILE"},
	},
	&cli.StringFlag{
		Name:    "appium-url",
		Usage:   "Appium server URL",
		EnvVars: []string{"APPIUM_URL"},
	},
	&cli.StringFlag{
		Name:    "device",
		Aliases: []string{"udid"},
		Usage:   "Device name or serial",
		EnvVars: []string{"APPCHECK_DEVICE"},
	},
	&cli.BoolFlag{
		Name:  "verbose",
		Usage: "Log DEBUG to the console",
	},
}

// NewApp builds the appcheck application writing to out.
func NewApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:    "appcheck",
		Usage:   "UI checks for the Woongjin Market Android app over Appium",
		Version: Version,
		Description: `appcheck drives the Woongjin Market app through an Appium server and runs
its UI scenarios, each on a fresh session.

Examples:
  appcheck list
  appcheck run
  appcheck run --tag smoke
  appcheck run --scenario login --scenario my_tab_after_login
  appcheck scan-images --scroll --max-scrolls 5
  appcheck dump --gnb`,
		Writer:    out,
		ErrWriter: out,
		Flags:     GlobalFlags,
		// exit codes are applied by Execute
		ExitErrHandler: func(*cli.Context, error) {},
		Commands: []*cli.Command{
			runCommand,
			listCommand,
			scanImagesCommand,
			dismissBannerCommand,
			dumpCommand,
		},
	}
}

// Execute runs the CLI.
func Execute() {
	if err := NewApp(os.Stdout).Run(os.Args); err != nil {
		if exit, ok := err.(cli.ExitCoder); ok {
			if msg := exit.Error(); msg != "" {
				fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
			}
			os.Exit(exit.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
