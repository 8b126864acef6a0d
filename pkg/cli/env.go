package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/devicelab-dev/appcheck/pkg/config"
	"github.com/devicelab-dev/appcheck/pkg/core"
	"github.com/devicelab-dev/appcheck/pkg/driver/appium"
	"github.com/devicelab-dev/appcheck/pkg/logger"
	"github.com/devicelab-dev/appcheck/pkg/metrics"
	"github.com/devicelab-dev/appcheck/pkg/popup"
	"github.com/devicelab-dev/appcheck/pkg/report"
	"github.com/devicelab-dev/appcheck/pkg/suite"
)

// openSession connects to Appium. Tests replace it with a scripted session.
var openSession = func(cfg *config.Config, log *zap.Logger) (core.Session, error) {
	client := appium.NewClient(cfg.Appium.ServerURL, log)
	if err := client.Connect(cfg.Capabilities()); err != nil {
		return nil, err
	}
	return client, nil
}

// sleep and pollInterval are replaced in tests.
var (
	sleep        = time.Sleep
	pollInterval time.Duration
)

// environment is everything a command needs, built from the global flags.
type environment struct {
	cfg     *config.Config
	log     *zap.Logger
	logs    logger.Files
	table   *popup.Table
	metrics *metrics.Metrics
	out     io.Writer
	close   func()
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if c.String("config") == "" && c.String("env-file") == "" {
		cfg, err = config.LoadFromDir(".")
	} else {
		cfg, err = config.Load(config.Options{
			ConfigFile: c.String("config"),
			EnvFile:    c.String("env-file"),
		})
	}
	if err != nil {
		return nil, err
	}

	// flags win over every other source
	if url := c.String("appium-url"); url != "" {
		cfg.Appium.ServerURL = url
	}
	if device := c.String("device"); device != "" {
		cfg.App.DeviceName = device
	}
	if c.Bool("verbose") {
		cfg.Verbose = true
	}
	return cfg, nil
}

func newEnvironment(c *cli.Context) (*environment, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	log, files, closeLog, err := logger.New(logger.Options{
		Dir:     cfg.Output.LogDir,
		Console: c.App.ErrWriter,
		Verbose: cfg.Verbose,
	})
	if err != nil {
		return nil, err
	}

	table, err := popup.LoadTable(cfg.BannerTable)
	if err != nil {
		closeLog()
		return nil, err
	}
	table = table.WithBannerWait(cfg.Waits.Banner)

	log.Info("configuration loaded",
		zap.String("appium", cfg.Appium.ServerURL),
		zap.String("device", cfg.App.DeviceName),
		zap.String("package", cfg.App.Package),
		zap.String("banner_table", fmt.Sprintf("%s v%d", table.Name, table.Version)),
		zap.String("log", files.Full))

	return &environment{
		cfg:     cfg,
		log:     log,
		logs:    files,
		table:   table,
		metrics: metrics.New(),
		out:     c.App.Writer,
		close:   closeLog,
	}, nil
}

func (e *environment) runner() *suite.Runner {
	return suite.NewRunner(suite.Options{
		Config: e.cfg,
		Factory: func() (core.Session, error) {
			return openSession(e.cfg, e.log)
		},
		Table:        e.table,
		Metrics:      e.metrics,
		Log:          e.log,
		Out:          e.out,
		Sleep:        sleep,
		PollInterval: pollInterval,
	})
}

// runAll executes scenarios, prints the summary and flushes metrics. Any
// failed or errored scenario turns into exit code 1.
func (e *environment) runAll(scenarios []suite.Scenario) error {
	res := e.runner().Run(scenarios)

	fmt.Fprintln(e.out)
	suite.WriteSummary(e.out, res)
	for _, sc := range res.Scenarios {
		for _, a := range sc.Attachments {
			fmt.Fprintf(e.out, "  %s: %s\n", sc.Name, a.Path)
		}
	}
	if e.logs.Full != "" {
		fmt.Fprintf(e.out, "\nLog: %s\n", e.logs.Full)
	}
	if path, err := report.Write(e.cfg.Output.LogDir, report.Build(res, e.cfg)); err != nil {
		e.log.Warn("report not written", zap.Error(err))
	} else {
		fmt.Fprintf(e.out, "Report: %s\n", path)
	}

	if err := e.metrics.WriteTextfile(e.cfg.Output.MetricsFile); err != nil {
		e.log.Warn("metrics not written", zap.Error(err))
	}
	if !res.Success() {
		return cli.Exit("", 1)
	}
	return nil
}

// withEnvironment wraps a command action that needs the loaded environment.
func withEnvironment(action func(*cli.Context, *environment) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		env, err := newEnvironment(c)
		if err != nil {
			return err
		}
		defer env.close()
		return action(c, env)
	}
}
