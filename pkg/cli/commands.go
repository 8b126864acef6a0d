package cli

import (
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/devicelab-dev/appcheck/pkg/core"
	"github.com/devicelab-dev/appcheck/pkg/pages"
	"github.com/devicelab-dev/appcheck/pkg/suite"
	"github.com/devicelab-dev/appcheck/pkg/uitree"
)

var runCommand = &cli.Command{
	Name:  "run",
	Usage: "Run scenarios, each on a fresh Appium session",
	Description: `Run every scenario, or the ones selected by name or tag.

A scenario passes, fails (an expectation did not hold), errors (the device or
a lookup failed) or is skipped (for example, missing credentials). Failures
save a screenshot and the UI tree to the output directories.

Examples:
  appcheck run
  appcheck run --tag smoke
  appcheck run --scenario login_wrong_password`,
	Flags: []cli.Flag{
		&cli.StringSliceFlag{
			Name:    "scenario",
			Aliases: []string{"s"},
			Usage:   "Scenario name to run (repeatable)",
		},
		&cli.StringSliceFlag{
			Name:    "tag",
			Aliases: []string{"t"},
			Usage:   "Only run scenarios with this tag (repeatable)",
		},
	},
	Action: withEnvironment(runRun),
}

func runRun(c *cli.Context, env *environment) error {
	scenarios, err := suite.Filter(suite.All(), c.StringSlice("scenario"), c.StringSlice("tag"))
	if err != nil {
		return err
	}
	if len(scenarios) == 0 {
		return fmt.Errorf("no scenario matches")
	}
	return env.runAll(scenarios)
}

var listCommand = &cli.Command{
	Name:  "list",
	Usage: "List the scenarios",
	Flags: []cli.Flag{
		&cli.StringSliceFlag{
			Name:    "tag",
			Aliases: []string{"t"},
			Usage:   "Only list scenarios with this tag",
		},
	},
	Action: runList,
}

func runList(c *cli.Context) error {
	scenarios, err := suite.Filter(suite.All(), nil, c.StringSlice("tag"))
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(c.App.Writer)
	table.SetHeader([]string{"Scenario", "Tags", "Description"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)
	for _, sc := range scenarios {
		table.Append([]string{sc.Name, strings.Join(sc.Tags, ","), sc.Description})
	}
	table.Render()
	return nil
}

var scanImagesCommand = &cli.Command{
	Name:  "scan-images",
	Usage: "Report broken images on the current screen",
	Description: `Open a session, clear the launch popups and scan the home screen for
images that did not render. With --scroll the page is scrolled until it stops
changing or --max-scrolls is reached.

Exits 1 when a broken image is found.`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "name",
			Usage: "Report file name (without .txt)",
			Value: "broken_images_report",
		},
		&cli.BoolFlag{
			Name:  "scroll",
			Usage: "Scroll through the page while scanning",
		},
		&cli.IntFlag{
			Name:  "max-scrolls",
			Usage: "Scroll limit with --scroll",
			Value: 10,
		},
	},
	Action: withEnvironment(runScanImages),
}

func runScanImages(c *cli.Context, env *environment) error {
	if c.Int("max-scrolls") < 0 {
		return fmt.Errorf("--max-scrolls must not be negative")
	}
	name := c.String("name")
	opts := pages.ScanOptions{
		WaitForLoad: !c.Bool("scroll"),
		Scroll:      c.Bool("scroll"),
		MaxScrolls:  c.Int("max-scrolls"),
	}

	return env.runAll([]suite.Scenario{{
		Name:        "scan_images",
		Description: "ad hoc broken image scan",
		Tags:        []string{"images"},
		Run: func(sc *suite.Context) error {
			rep, err := sc.BrokenImages(name, opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(sc.Out, "%d images checked, %d broken\n", rep.Images, len(rep.Records))
			return suite.Assert(len(rep.Records) == 0, "%d broken images", len(rep.Records))
		},
	}})
}

var dismissBannerCommand = &cli.Command{
	Name:  "dismiss-banner",
	Usage: "Run the launch popup and banner heuristic once",
	Description: `Open a session and run only the popup handling that precedes every
scenario. Useful when a new campaign banner appears and the heuristic table
needs tuning (see banner_table in appcheck.yaml).

Exits 1 when the banner is still visible afterwards.`,
	Action: withEnvironment(runDismissBanner),
}

func runDismissBanner(c *cli.Context, env *environment) error {
	return env.runAll([]suite.Scenario{{
		Name:        "dismiss_banner",
		Description: "launch popup handling only",
		Tags:        []string{"debug"},
		Run: func(sc *suite.Context) error {
			b := sc.Banner
			fields := []zap.Field{
				zap.String("table", b.Table),
				zap.Stringer("outcome", b.Outcome),
				zap.Int("permissions", len(b.Permissions)),
				zap.Int("taps", b.Taps),
				zap.Duration("elapsed", b.Elapsed),
			}
			if b.Closer.Value != "" {
				fields = append(fields, zap.Stringer("closer", b.Closer))
			}
			if b.Position != nil {
				fields = append(fields, zap.Float64("x", b.Position.X), zap.Float64("y", b.Position.Y))
			}
			sc.Log().Info("banner handled", fields...)
			return suite.Assert(b.Outcome.Dismissed(), "banner still visible after %d taps", b.Taps)
		},
	}})
}

var dumpCommand = &cli.Command{
	Name:  "dump",
	Usage: "Save the UI tree of the current screen",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "gnb",
			Usage: "Save only the bottom navigation bar",
		},
		&cli.StringFlag{
			Name:  "name",
			Usage: "Output file name (without .xml)",
		},
	},
	Action: withEnvironment(runDump),
}

func runDump(c *cli.Context, env *environment) error {
	gnb := c.Bool("gnb")
	name := c.String("name")
	if name == "" {
		name = "current_screen"
		if gnb {
			name = "gnb_only"
		}
	}

	return env.runAll([]suite.Scenario{{
		Name:        "dump",
		Description: "UI tree dump",
		Tags:        []string{"debug"},
		Run: func(sc *suite.Context) error {
			if gnb {
				return dumpGNB(sc, name)
			}
			return dumpScreen(sc, name)
		},
	}})
}

func dumpScreen(sc *suite.Context, name string) error {
	path, source, err := sc.Store.SavePageSource(sc.Session, name)
	if err != nil {
		return err
	}
	sc.Attach(core.NewHierarchyAttachment(path))

	tree, err := uitree.Parse(source)
	if err != nil {
		return err
	}
	uitree.WriteTable(sc.Out, tree.Labeled(), 0)
	return nil
}

func dumpGNB(sc *suite.Context, name string) error {
	path, ext, err := sc.Store.SaveGNBSource(sc.Session, name)
	if err != nil {
		return err
	}
	sc.Attach(core.NewHierarchyAttachment(path))
	if !ext.Found {
		return suite.Assert(false, "navigation bar not found, full tree saved to %s", path)
	}
	fmt.Fprintf(sc.Out, "navigation bar matched %q\n", ext.Pattern)
	return nil
}
