// Package popup dismisses the system permission popups and the promotional
// launch banner.
package popup

import (
	"time"

	"go.uber.org/zap"

	"github.com/devicelab-dev/appcheck/pkg/core"
	"github.com/devicelab-dev/appcheck/pkg/locator"
)

// Outcome is how the banner heuristic ended.
type Outcome int

const (
	Skipped             Outcome = iota // no banner appeared
	DismissedBySelector                // a close button was clicked
	DismissedByPosition                // a positional tap removed the banner
	NotDismissed                       // every strategy was exhausted
)

func (o Outcome) String() string {
	switch o {
	case Skipped:
		return "skipped"
	case DismissedBySelector:
		return "dismissed_by_selector"
	case DismissedByPosition:
		return "dismissed_by_position"
	case NotDismissed:
		return "not_dismissed"
	default:
		return "unknown"
	}
}

// Dismissed reports whether the banner is gone or never appeared.
func (o Outcome) Dismissed() bool {
	return o != NotDismissed
}

// Result describes one run of the heuristic.
type Result struct {
	Outcome     Outcome
	Table       string
	Permissions []core.Selector // permission buttons that were clicked
	Indicator   core.Selector   // indicator that revealed the banner
	Closer      core.Selector   // close selector that was clicked
	Position    *Position       // position whose tap dismissed the banner
	Taps        int
	Elapsed     time.Duration
}

// Handler runs the heuristic on a borrowed session.
type Handler struct {
	resolver *locator.Resolver
	table    *Table
	log      *zap.Logger
	sleep    func(time.Duration)
}

// NewHandler creates a handler. A nil table uses the embedded default.
func NewHandler(resolver *locator.Resolver, table *Table, log *zap.Logger) *Handler {
	if table == nil {
		table = DefaultTable()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		resolver: resolver,
		table:    table,
		log:      log.Named("popup"),
		sleep:    time.Sleep,
	}
}

// WithSleep replaces the pause function.
func (h *Handler) WithSleep(sleep func(time.Duration)) *Handler {
	h.sleep = sleep
	return h
}

// Table returns the heuristic table in use.
func (h *Handler) Table() *Table {
	return h.table
}

// Run acknowledges permission popups and then dismisses the banner.
// It never fails; a banner that stays up is logged and reported as NotDismissed.
func (h *Handler) Run() Result {
	start := time.Now()
	h.sleep(h.table.InitialSettle)

	permissions := h.HandlePermissions()
	res := h.DismissBanner()
	res.Permissions = permissions
	res.Elapsed = time.Since(start)
	return res
}

// HandlePermissions clicks each permission button that becomes clickable.
func (h *Handler) HandlePermissions() []core.Selector {
	var clicked []core.Selector
	for _, sel := range h.table.Permissions.Buttons {
		id, err := h.resolver.Find(sel, h.table.Permissions.Timeout, locator.Clickable)
		if err != nil {
			h.log.Debug("no permission popup", zap.Stringer("selector", sel))
			continue
		}
		if err := h.resolver.Session().ClickElement(id); err != nil {
			h.log.Warn("permission popup click failed", zap.Stringer("selector", sel), zap.Error(err))
			continue
		}
		h.log.Info("permission popup acknowledged", zap.Stringer("selector", sel))
		clicked = append(clicked, sel)
	}
	return clicked
}

// WaitForBanner reports whether any indicator appears within the table timeout.
func (h *Handler) WaitForBanner() (core.Selector, bool) {
	m := h.resolver.WaitAny(h.table.Indicators.Selectors, h.table.Indicators.Timeout, locator.Present)
	if !m.Found {
		return core.Selector{}, false
	}
	h.sleep(h.table.Indicators.Settle)
	return m.Selector, true
}

// DismissBanner runs wait-for-load, selector close and position fallback.
func (h *Handler) DismissBanner() (res Result) {
	start := time.Now()
	res.Table = h.table.Name
	defer func() { res.Elapsed = time.Since(start) }()

	indicator, ok := h.WaitForBanner()
	if !ok {
		h.log.Info("no banner within timeout", zap.Duration("timeout", h.table.Indicators.Timeout))
		res.Outcome = Skipped
		return res
	}
	res.Indicator = indicator
	h.log.Info("banner detected", zap.Stringer("indicator", indicator))

	if sel, ok := h.closeBySelector(); ok {
		res.Outcome = DismissedBySelector
		res.Closer = sel
		h.log.Info("banner closed", zap.Stringer("selector", sel))
		return res
	}

	pos, taps, ok := h.closeByPosition()
	res.Taps = taps
	if ok {
		res.Outcome = DismissedByPosition
		res.Position = &pos
		h.log.Info("banner closed by position", zap.Float64("x", pos.X), zap.Float64("y", pos.Y), zap.Int("taps", taps))
		return res
	}

	res.Outcome = NotDismissed
	h.log.Warn("banner still visible", zap.Error(core.ErrBannerNotDismissed), zap.Int("taps", res.Taps))
	return res
}

func (h *Handler) closeBySelector() (core.Selector, bool) {
	stage := h.table.Close
	for i, sel := range stage.Selectors {
		id, err := h.resolver.Find(sel, stage.Timeout, locator.Clickable)
		if err != nil {
			h.log.Debug("close selector missed", zap.Int("rank", i+1), zap.Stringer("selector", sel))
			continue
		}
		if err := h.resolver.Session().ClickElement(id); err != nil {
			h.log.Debug("close click failed", zap.Stringer("selector", sel), zap.Error(err))
			continue
		}
		h.sleep(stage.Settle)
		return sel, true
	}
	return core.Selector{}, false
}

// closeByPosition taps each candidate position, re-checking the indicators
// after every tap. Screen size is read per attempt.
func (h *Handler) closeByPosition() (Position, int, bool) {
	stage := h.table.Positions
	session := h.resolver.Session()
	taps := 0

	for attempt := 1; attempt <= stage.Attempts; attempt++ {
		h.sleep(stage.BeforeAttempt)

		width, height, err := session.WindowSize()
		if err != nil {
			h.log.Warn("screen size unavailable", zap.Int("attempt", attempt), zap.Error(err))
			h.sleep(stage.BetweenAttempts)
			continue
		}

		for _, pos := range stage.Points {
			x, y := pos.Resolve(width, height)
			if err := session.Tap(x, y); err != nil {
				h.log.Debug("tap failed", zap.Int("x", x), zap.Int("y", y), zap.Error(err))
				continue
			}
			taps++
			h.sleep(stage.AfterTap)

			if !h.bannerPresent() {
				return pos, taps, true
			}
		}
		h.sleep(stage.BetweenAttempts)
	}
	return Position{}, taps, false
}

func (h *Handler) bannerPresent() bool {
	return h.resolver.WaitAny(h.table.Indicators.Selectors, 0, locator.Present).Found
}
