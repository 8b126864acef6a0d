package suite

import (
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/devicelab-dev/appcheck/pkg/artifacts"
	"github.com/devicelab-dev/appcheck/pkg/config"
	"github.com/devicelab-dev/appcheck/pkg/core"
	"github.com/devicelab-dev/appcheck/pkg/locator"
	"github.com/devicelab-dev/appcheck/pkg/metrics"
	"github.com/devicelab-dev/appcheck/pkg/pages"
	"github.com/devicelab-dev/appcheck/pkg/popup"
)

// SkipError ends a scenario as skipped.
type SkipError struct {
	Reason string
}

func (e *SkipError) Error() string { return "skipped: " + e.Reason }

// Skip returns an error that marks the scenario skipped.
func Skip(format string, args ...interface{}) error {
	return &SkipError{Reason: fmt.Sprintf(format, args...)}
}

// IsSkip reports whether err asks for the scenario to be skipped.
func IsSkip(err error) bool {
	var skip *SkipError
	return errors.As(err, &skip)
}

// Assert returns an assertion failure when cond is false.
func Assert(cond bool, format string, args ...interface{}) error {
	if cond {
		return nil
	}
	return core.Assertf(format, args...)
}

// Context is what a scenario sees: the pages of its own session and the
// suite configuration.
type Context struct {
	Name     string
	Session  core.Session
	Resolver *locator.Resolver
	Store    *artifacts.Store
	Config   *config.Config
	Banner   popup.Result

	Home     *pages.HomePage
	Search   *pages.SearchPage
	Category *pages.CategoryPage
	Like     *pages.LikePage
	Login    *pages.LoginPage
	MyTab    *pages.MyTabPage

	// Out receives console dumps such as element tables.
	Out io.Writer

	log         *zap.Logger
	sleep       func(time.Duration)
	metrics     *metrics.Metrics
	attachments []core.Attachment
}

// Log returns the scenario logger.
func (c *Context) Log() *zap.Logger { return c.log }

// Pause blocks for d.
func (c *Context) Pause(d time.Duration) { c.sleep(d) }

// Settle waits the configured popup pause after a screen change.
func (c *Context) Settle() { c.sleep(c.Config.Waits.Popup) }

// WaitForLoading waits the configured app loading pause, used after login.
func (c *Context) WaitForLoading() { c.sleep(c.Config.Waits.AppLoading) }

// Attach adds a file to the scenario result.
func (c *Context) Attach(a core.Attachment) {
	c.attachments = append(c.attachments, a)
}

// Screenshot captures the screen under name and attaches it.
func (c *Context) Screenshot(name string) {
	if path := c.Home.TakeScreenshot(name); path != "" {
		c.Attach(core.NewScreenshotAttachment(path))
	}
}

// BrokenImages writes a broken image report for the current screen and
// attaches it.
func (c *Context) BrokenImages(name string, opts pages.ScanOptions) (pages.ImageReport, error) {
	rep, err := c.Home.SaveBrokenImagesReport(name, opts)
	if err != nil {
		return rep, err
	}
	c.Attach(core.NewReportAttachment(rep.Path))
	if rep.Annotated != "" {
		c.Attach(core.NewScreenshotAttachment(rep.Annotated))
	}
	if c.metrics != nil {
		c.metrics.AddBrokenImages(string(rep.Mode), len(rep.Records))
	}
	for i, rec := range rep.Records {
		if i == 10 {
			break
		}
		c.log.Warn("broken image",
			zap.Int("index", rec.Index),
			zap.String("resource_id", rec.ResourceID),
			zap.String("reason", rec.Reason))
	}
	return rep, nil
}

// ValidAccount returns the login account, or a skip when it is not configured.
func (c *Context) ValidAccount() (config.Account, error) {
	acc := c.Config.Credentials.Valid
	if acc.UserID == "" || acc.Password == "" {
		return acc, Skip("%s and %s are not set", config.EnvUserID, config.EnvUserPassword)
	}
	return acc, nil
}

// InvalidAccount returns the intentionally wrong account, or a skip when it
// is not configured.
func (c *Context) InvalidAccount() (config.Account, error) {
	acc := c.Config.Credentials.Invalid
	if acc.UserID == "" || acc.Password == "" {
		return acc, Skip("%s and %s are not set", config.EnvWrongUserID, config.EnvWrongUserPassword)
	}
	return acc, nil
}

// Step runs one named step of a scenario. A failing step's error is prefixed
// with the step name.
func (c *Context) Step(name string, fn func() error) error {
	c.log.Info("step", zap.String("name", name))
	if err := fn(); err != nil {
		if !IsSkip(err) {
			c.log.Error("step failed", zap.String("name", name), zap.Error(err))
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
