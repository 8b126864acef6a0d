// Package suite holds the app scenarios and runs them one session at a time.
package suite

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"go.uber.org/zap"

	"github.com/devicelab-dev/appcheck/pkg/artifacts"
	"github.com/devicelab-dev/appcheck/pkg/config"
	"github.com/devicelab-dev/appcheck/pkg/core"
	"github.com/devicelab-dev/appcheck/pkg/locator"
	"github.com/devicelab-dev/appcheck/pkg/metrics"
	"github.com/devicelab-dev/appcheck/pkg/pages"
	"github.com/devicelab-dev/appcheck/pkg/popup"
)

// SessionFactory opens a fresh automation session.
type SessionFactory func() (core.Session, error)

// Options configures a Runner.
type Options struct {
	Config  *config.Config
	Factory SessionFactory
	Table   *popup.Table     // banner heuristic; nil uses the embedded table
	Metrics *metrics.Metrics // optional
	Log     *zap.Logger
	Out     io.Writer // console dumps; nil discards

	// Sleep and PollInterval exist for tests.
	Sleep        func(time.Duration)
	PollInterval time.Duration
}

// Runner executes scenarios sequentially, each on its own session.
type Runner struct {
	opts  Options
	store *artifacts.Store
	log   *zap.Logger
}

// NewRunner creates a runner.
func NewRunner(opts Options) *Runner {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.Table == nil {
		opts.Table = popup.DefaultTable()
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	if opts.Sleep == nil {
		opts.Sleep = time.Sleep
	}
	if opts.PollInterval == 0 {
		opts.PollInterval = locator.DefaultInterval
	}
	return &Runner{
		opts:  opts,
		store: artifacts.NewStore(opts.Config.Output.ScreenshotDir, opts.Config.Output.PageSourceDir, opts.Log),
		log:   opts.Log.Named("suite"),
	}
}

// Run executes scenarios in order and aggregates their results.
func (r *Runner) Run(scenarios []Scenario) *core.SuiteResult {
	start := time.Now()
	suite := &core.SuiteResult{
		Name:      "appcheck",
		RunID:     start.Format("20060102_150405"),
		StartTime: start,
	}

	r.log.Info("suite started", zap.Int("scenarios", len(scenarios)), zap.String("run_id", suite.RunID))
	for i, sc := range scenarios {
		r.log.Info("scenario", zap.Int("n", i+1), zap.Int("of", len(scenarios)), zap.String("name", sc.Name))
		suite.Scenarios = append(suite.Scenarios, r.RunScenario(sc))
	}
	suite.Duration = time.Since(start)
	suite.ComputeSummary()

	if r.opts.Metrics != nil {
		r.opts.Metrics.ObserveSuite(suite)
	}
	r.log.Info("suite finished",
		zap.Int("passed", suite.Passed),
		zap.Int("failed", suite.Failed),
		zap.Int("errored", suite.Errored),
		zap.Int("skipped", suite.Skipped),
		zap.Duration("duration", suite.Duration))
	return suite
}

// RunScenario opens a session, clears the launch popups, runs the scenario
// and always closes the session. Failures get a diagnostic bundle.
func (r *Runner) RunScenario(sc Scenario) (res core.ScenarioResult) {
	log := r.log.With(zap.String("scenario", sc.Name))
	res = core.ScenarioResult{Name: sc.Name, Tags: sc.Tags, StartTime: time.Now(), Status: core.StatusRunning}
	defer func() {
		res.Duration = time.Since(res.StartTime)
		if r.opts.Metrics != nil {
			r.opts.Metrics.ObserveScenario(res)
		}
		log.Info("scenario finished",
			zap.Stringer("status", res.Status),
			zap.Duration("duration", res.Duration),
			zap.String("error", res.Error))
	}()

	session, err := r.opts.Factory()
	if err != nil {
		r.finish(&res, err)
		return res
	}
	defer func() {
		if err := session.Close(); err != nil {
			log.Warn("session close failed", zap.Error(err))
		}
	}()

	ctx := r.newContext(sc.Name, session, log)
	ctx.Banner = popup.NewHandler(ctx.Resolver, r.opts.Table, log).WithSleep(r.opts.Sleep).Run()
	res.Banner = ctx.Banner.Outcome.String()
	if r.opts.Metrics != nil {
		r.opts.Metrics.ObserveBanner(res.Banner)
	}

	err = r.execute(sc, ctx)
	res.Attachments = ctx.attachments
	r.finish(&res, err)

	if r.opts.Config.Artifacts.ShouldCapture(res.Status) {
		label := "PASSED"
		if res.Status != core.StatusPassed {
			label = "FAILED"
		}
		bundle := r.store.Capture(session, label, sc.Name, r.opts.Config.Artifacts)
		res.Attachments = append(res.Attachments, bundle.Attachments...)
		res.Screen = bundle.Screen
	}
	return res
}

// execute runs the scenario body, turning a panic into an error.
func (r *Runner) execute(sc Scenario, ctx *Context) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("scenario panicked: %v", p)
		}
	}()
	return sc.Run(ctx)
}

func (r *Runner) finish(res *core.ScenarioResult, err error) {
	switch {
	case err == nil:
		res.Status = core.StatusPassed
	case IsSkip(err):
		res.Status = core.StatusSkipped
		res.Message = err.Error()
	default:
		res.Status = core.StatusFor(err)
		res.Category = core.CategoryOf(err)
		res.Error = err.Error()
	}
}

func (r *Runner) newContext(name string, session core.Session, log *zap.Logger) *Context {
	resolver := locator.New(session, log).WithInterval(r.opts.PollInterval)
	env := pages.Env{
		Resolver:  resolver,
		Artifacts: r.store,
		Timeouts:  r.opts.Config.Timeouts,
		ReportDir: r.opts.Config.Output.ScreenshotDir,
		Log:       log,
		Sleep:     r.opts.Sleep,
	}
	return &Context{
		Name:     name,
		Session:  session,
		Resolver: resolver,
		Store:    r.store,
		Config:   r.opts.Config,
		Home:     pages.NewHomePage(env),
		Search:   pages.NewSearchPage(env),
		Category: pages.NewCategoryPage(env),
		Like:     pages.NewLikePage(env),
		Login:    pages.NewLoginPage(env),
		MyTab:    pages.NewMyTabPage(env),
		Out:      r.opts.Out,
		log:      log,
		sleep:    r.opts.Sleep,
		metrics:  r.opts.Metrics,
	}
}

// Filter keeps the scenarios matching any of names and carrying any of tags.
// Empty names or tags match everything.
func Filter(scenarios []Scenario, names, tags []string) ([]Scenario, error) {
	known := make(map[string]bool, len(scenarios))
	for _, sc := range scenarios {
		known[sc.Name] = true
	}
	for _, n := range names {
		if !known[n] {
			return nil, core.ErrInvalidConfig.WithMessage(fmt.Sprintf("unknown scenario %q", n))
		}
	}

	var out []Scenario
	for _, sc := range scenarios {
		if len(names) > 0 && !contains(names, sc.Name) {
			continue
		}
		if len(tags) > 0 && !anyTag(sc, tags) {
			continue
		}
		out = append(out, sc)
	}
	return out, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func anyTag(sc Scenario, tags []string) bool {
	for _, t := range tags {
		if sc.HasTag(t) {
			return true
		}
	}
	return false
}

// WriteSummary renders one row per scenario and the status totals.
func WriteSummary(w io.Writer, res *core.SuiteResult) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Scenario", "Status", "Banner", "Duration", "Detail"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)

	for _, sc := range res.Scenarios {
		detail := sc.Error
		if detail == "" {
			detail = sc.Message
		}
		table.Append([]string{sc.Name, sc.Status.String(), sc.Banner, sc.Duration.Round(time.Millisecond).String(), detail})
	}

	table.SetFooter([]string{
		"Total " + strconv.Itoa(res.Total),
		fmt.Sprintf("%d passed", res.Passed),
		fmt.Sprintf("%d failed", res.Failed),
		fmt.Sprintf("%d errored", res.Errored),
		fmt.Sprintf("%d skipped", res.Skipped),
	})
	table.Render()
}
