// Package pages wraps each app screen in a page object over a borrowed
// session.
package pages

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/devicelab-dev/appcheck/pkg/artifacts"
	"github.com/devicelab-dev/appcheck/pkg/config"
	"github.com/devicelab-dev/appcheck/pkg/core"
	"github.com/devicelab-dev/appcheck/pkg/imagescan"
	"github.com/devicelab-dev/appcheck/pkg/locator"
)

// Page is a single app screen.
type Page interface {
	Name() string
	IsVisible() bool
}

var (
	_ Page = (*HomePage)(nil)
	_ Page = (*SearchPage)(nil)
	_ Page = (*CategoryPage)(nil)
	_ Page = (*LikePage)(nil)
	_ Page = (*LoginPage)(nil)
	_ Page = (*MyTabPage)(nil)
)

// Env is what every page borrows from the running scenario.
type Env struct {
	Resolver  *locator.Resolver
	Artifacts *artifacts.Store
	Timeouts  config.Timeouts
	ReportDir string // broken image reports and annotated screenshots
	Log       *zap.Logger
	Sleep     func(time.Duration)
}

// Base holds the helpers shared by all pages.
type Base struct {
	name     string
	resolver *locator.Resolver
	session  core.Session
	store    *artifacts.Store
	timeouts config.Timeouts
	reports  string
	scanner  *imagescan.Scanner
	log      *zap.Logger
	sleep    func(time.Duration)

	// scrollProbe bounds each lookup made by ScrollToElement.
	scrollProbe time.Duration
}

func newBase(name string, env Env) Base {
	log := env.Log
	if log == nil {
		log = zap.NewNop()
	}
	sleep := env.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	t := env.Timeouts
	if t.Short == 0 {
		t.Short = 5 * time.Second
	}
	if t.Default == 0 {
		t.Default = 10 * time.Second
	}
	if t.Long == 0 {
		t.Long = 30 * time.Second
	}

	session := env.Resolver.Session()
	return Base{
		name:        name,
		resolver:    env.Resolver,
		session:     session,
		store:       env.Artifacts,
		timeouts:    t,
		reports:     env.ReportDir,
		scanner:     imagescan.NewScanner(session, log).WithSleep(sleep),
		log:         log.Named("pages").With(zap.String("page", name)),
		sleep:       sleep,
		scrollProbe: 2 * time.Second,
	}
}

// Name returns the page name.
func (b *Base) Name() string { return b.name }

// Session returns the borrowed session.
func (b *Base) Session() core.Session { return b.session }

// Scanner returns the image scanner used by the report helpers.
func (b *Base) Scanner() *imagescan.Scanner { return b.scanner }

// IsElementVisible reports whether sel is displayed within the short timeout.
func (b *Base) IsElementVisible(sel core.Selector) bool {
	ok := b.resolver.IsVisible(sel, b.timeouts.Short)
	b.log.Info("visibility probe", zap.Stringer("selector", sel), zap.Bool("visible", ok))
	return ok
}

// IsElementClickable reports whether sel is clickable within the default timeout.
func (b *Base) IsElementClickable(sel core.Selector) bool {
	ok := b.resolver.IsClickable(sel, b.timeouts.Default)
	b.log.Info("clickability probe", zap.Stringer("selector", sel), zap.Bool("clickable", ok))
	return ok
}

// Click waits for sel to be clickable and clicks it.
func (b *Base) Click(sel core.Selector) error {
	id, err := b.resolver.Find(sel, b.timeouts.Default, locator.Clickable)
	if err == nil {
		err = b.session.ClickElement(id)
	}
	if err != nil {
		b.log.Error("click failed", zap.Stringer("selector", sel), zap.Error(err))
		return fmt.Errorf("click %s: %w", sel, err)
	}
	b.log.Info("clicked", zap.Stringer("selector", sel))
	return nil
}

// InputText replaces the content of sel with text.
func (b *Base) InputText(sel core.Selector, text string) error {
	id, err := b.resolver.Find(sel, b.timeouts.Default, locator.Present)
	if err == nil {
		err = b.session.ClearElement(id)
	}
	if err == nil {
		err = b.session.SendKeysToElement(id, text)
	}
	if err != nil {
		b.log.Error("input failed", zap.Stringer("selector", sel), zap.Error(err))
		return fmt.Errorf("input into %s: %w", sel, err)
	}
	b.log.Info("text entered", zap.Stringer("selector", sel), zap.Int("length", len(text)))
	return nil
}

// GetText returns the text of sel.
func (b *Base) GetText(sel core.Selector) (string, error) {
	id, err := b.resolver.Find(sel, b.timeouts.Default, locator.Present)
	if err != nil {
		b.log.Error("text read failed", zap.Stringer("selector", sel), zap.Error(err))
		return "", fmt.Errorf("read text of %s: %w", sel, err)
	}
	text, err := b.session.GetElementText(id)
	if err != nil {
		return "", fmt.Errorf("read text of %s: %w", sel, err)
	}
	return text, nil
}

// SwipeUp scrolls the content down by one screen.
func (b *Base) SwipeUp() error {
	return b.swipe(500, 1500, 500, 500)
}

// SwipeDown scrolls the content up by one screen.
func (b *Base) SwipeDown() error {
	return b.swipe(500, 500, 500, 1500)
}

func (b *Base) swipe(startX, startY, endX, endY int) error {
	b.log.Debug("swipe",
		zap.Int("start_x", startX), zap.Int("start_y", startY),
		zap.Int("end_x", endX), zap.Int("end_y", endY))
	if err := b.session.Swipe(startX, startY, endX, endY, 500); err != nil {
		return fmt.Errorf("swipe: %w", err)
	}
	b.sleep(500 * time.Millisecond)
	return nil
}

// ScrollToElement swipes up until sel is present, at most maxScrolls times.
func (b *Base) ScrollToElement(sel core.Selector, maxScrolls int) (string, error) {
	for i := 0; i < maxScrolls; i++ {
		m := b.resolver.Resolve([]core.Selector{sel}, b.scrollProbe, locator.Present)
		if m.Found {
			b.log.Info("element found while scrolling", zap.Stringer("selector", sel), zap.Int("scrolls", i))
			return m.ElementID, nil
		}
		b.log.Info("scrolling", zap.Int("step", i+1), zap.Int("max", maxScrolls))
		if err := b.SwipeUp(); err != nil {
			return "", err
		}
	}
	b.log.Error("element not found after scrolling", zap.Stringer("selector", sel), zap.Int("scrolls", maxScrolls))
	return "", fmt.Errorf("after %d scrolls: %w", maxScrolls,
		&locator.NotFoundError{Attempted: []core.Selector{sel}})
}

// TakeScreenshot saves a screenshot named name and returns its path, or ""
// when the capture failed.
func (b *Base) TakeScreenshot(name string) string {
	if b.store == nil {
		return ""
	}
	path, err := b.store.SaveScreenshot(b.session, name)
	if err != nil {
		b.log.Error("screenshot failed", zap.String("name", name), zap.Error(err))
		return ""
	}
	return path
}

// CheckImageLoaded reports whether the image at sel rendered.
func (b *Base) CheckImageLoaded(sel core.Selector) bool {
	id, err := b.resolver.Find(sel, b.timeouts.Default, locator.Present)
	if err != nil {
		b.log.Error("image check failed", zap.Stringer("selector", sel), zap.Error(err))
		return false
	}
	_, _, w, h, err := b.session.GetElementRect(id)
	if err != nil {
		b.log.Error("image check failed", zap.Stringer("selector", sel), zap.Error(err))
		return false
	}
	displayed, err := b.session.IsElementDisplayed(id)
	if err != nil {
		b.log.Error("image check failed", zap.Stringer("selector", sel), zap.Error(err))
		return false
	}
	if broken, reason := imagescan.Classify(w, h, displayed); broken {
		b.log.Warn("image not loaded", zap.Stringer("selector", sel), zap.String("reason", reason))
		return false
	}
	b.log.Info("image loaded", zap.Stringer("selector", sel))
	return true
}

// ScanOptions selects how SaveBrokenImagesReport scans.
type ScanOptions struct {
	WaitForLoad bool
	Scroll      bool
	MaxScrolls  int
}

// ImageReport is a written broken image report.
type ImageReport struct {
	imagescan.Report
	Path      string
	Annotated string // annotated screenshot of the last screen; empty when none
}

// SaveBrokenImagesReport scans the screen and writes <ReportDir>/<name>.txt.
// Findings on the final screen are also drawn onto a screenshot.
func (b *Base) SaveBrokenImagesReport(name string, opts ScanOptions) (ImageReport, error) {
	var (
		report imagescan.Report
		err    error
	)
	if opts.Scroll {
		b.log.Info("scroll scan", zap.Int("max_scrolls", opts.MaxScrolls))
		report, err = b.scanner.ScanWithScroll(opts.MaxScrolls)
	} else {
		report, err = b.scanner.ScanScreen(opts.WaitForLoad)
	}
	if err != nil {
		return ImageReport{Report: report}, err
	}

	out := ImageReport{Report: report}
	if out.Path, err = report.Write(b.reports, name); err != nil {
		return out, err
	}
	b.log.Info("broken image report saved", zap.String("path", out.Path), zap.Int("broken", len(report.Records)))

	out.Annotated = b.annotate(name, report)
	return out, nil
}

func (b *Base) annotate(name string, report imagescan.Report) string {
	var current []imagescan.Record
	for _, rec := range report.Records {
		if rec.Scroll == report.ScrollCount && rec.HasSize {
			current = append(current, rec)
		}
	}
	if len(current) == 0 {
		return ""
	}

	shot, err := b.session.Screenshot()
	if err != nil {
		b.log.Warn("annotation skipped", zap.Error(err))
		return ""
	}
	w, h, err := b.session.WindowSize()
	if err != nil {
		b.log.Warn("annotation skipped", zap.Error(err))
		return ""
	}
	path, err := imagescan.WriteAnnotated(b.reports, strings.TrimSuffix(name, ".txt"), shot, current, w, h)
	if err != nil {
		b.log.Warn("annotation failed", zap.Error(err))
		return ""
	}
	return path
}
