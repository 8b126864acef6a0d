// Package locator resolves elements from an ordered list of selectors.
package locator

import (
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/devicelab-dev/appcheck/pkg/core"
)

// DefaultInterval is the pause between polls within one attempt.
const DefaultInterval = 200 * time.Millisecond

// Condition is what a found element must satisfy to count as a match.
type Condition int

const (
	Present   Condition = iota // exists in the tree
	Visible                    // exists and is displayed
	Clickable                  // displayed and enabled
)

func (c Condition) String() string {
	switch c {
	case Visible:
		return "visible"
	case Clickable:
		return "clickable"
	default:
		return "present"
	}
}

// Match is the outcome of a resolution. A miss is a normal outcome, not an error.
type Match struct {
	Found     bool
	ElementID string
	Selector  core.Selector // the selector that matched
	Index     int           // its position in the attempted list; -1 on a miss
	Attempted []core.Selector
	Elapsed   time.Duration
	LastErr   error // last non-not-found error seen while polling
}

// Err returns nil for a hit and a *NotFoundError for a miss.
func (m Match) Err() error {
	if m.Found {
		return nil
	}
	return &NotFoundError{Attempted: m.Attempted, Cause: m.LastErr}
}

// NotFoundError lists every selector tried. It unwraps to core.ErrElementNotFound.
type NotFoundError struct {
	Attempted []core.Selector
	Cause     error
}

func (e *NotFoundError) Error() string {
	parts := make([]string, len(e.Attempted))
	for i, s := range e.Attempted {
		parts[i] = s.String()
	}
	msg := "element not found (tried: " + strings.Join(parts, ", ") + ")"
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *NotFoundError) Unwrap() error {
	return core.ErrElementNotFound
}

// Resolver finds elements on a borrowed session.
type Resolver struct {
	session  core.Session
	interval time.Duration
	log      *zap.Logger
}

// New creates a resolver polling at DefaultInterval.
func New(session core.Session, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{session: session, interval: DefaultInterval, log: log.Named("locator")}
}

// WithInterval returns a copy polling at d.
func (r *Resolver) WithInterval(d time.Duration) *Resolver {
	cp := *r
	cp.interval = d
	return &cp
}

// Session returns the borrowed session.
func (r *Resolver) Session() core.Session {
	return r.session
}

// Resolve tries each selector in order, each with its own timeout, and stops at
// the first one whose element satisfies cond. Every attempt probes at least once.
func (r *Resolver) Resolve(selectors []core.Selector, perAttempt time.Duration, cond Condition) Match {
	start := time.Now()
	m := Match{Index: -1}

	for i, sel := range selectors {
		m.Attempted = append(m.Attempted, sel)

		id, err := r.attempt(sel, perAttempt, cond)
		if err == nil {
			m.Found = true
			m.ElementID = id
			m.Selector = sel
			m.Index = i
			m.Elapsed = time.Since(start)
			r.log.Debug("resolved",
				zap.Stringer("selector", sel),
				zap.Int("index", i),
				zap.Stringer("condition", cond),
				zap.Duration("took", m.Elapsed))
			return m
		}
		if !errors.Is(err, core.ErrElementNotFound) {
			m.LastErr = err
		}
	}

	m.Elapsed = time.Since(start)
	r.log.Debug("not resolved",
		zap.Int("attempted", len(m.Attempted)),
		zap.Stringer("condition", cond),
		zap.Duration("took", m.Elapsed))
	return m
}

// attempt polls one selector until the deadline.
func (r *Resolver) attempt(sel core.Selector, timeout time.Duration, cond Condition) (string, error) {
	deadline := time.Now().Add(timeout)

	for {
		id, err := r.session.FindElement(sel.Strategy, sel.Value)
		if err == nil && id != "" {
			ok, cerr := r.satisfies(id, cond)
			if ok {
				return id, nil
			}
			err = cerr
		}
		if err == nil {
			err = core.ErrElementNotFound
		}

		if !time.Now().Add(r.interval).Before(deadline) {
			return "", err
		}
		time.Sleep(r.interval)
	}
}

func (r *Resolver) satisfies(id string, cond Condition) (bool, error) {
	if cond == Present {
		return true, nil
	}
	displayed, err := r.session.IsElementDisplayed(id)
	if err != nil || !displayed {
		return false, err
	}
	if cond == Visible {
		return true, nil
	}
	return r.session.IsElementEnabled(id)
}

// Find resolves a single selector.
func (r *Resolver) Find(sel core.Selector, timeout time.Duration, cond Condition) (string, error) {
	m := r.Resolve([]core.Selector{sel}, timeout, cond)
	return m.ElementID, m.Err()
}

// Exists reports whether sel is present within timeout.
func (r *Resolver) Exists(sel core.Selector, timeout time.Duration) bool {
	return r.Resolve([]core.Selector{sel}, timeout, Present).Found
}

// IsVisible reports whether sel is displayed within timeout.
func (r *Resolver) IsVisible(sel core.Selector, timeout time.Duration) bool {
	return r.Resolve([]core.Selector{sel}, timeout, Visible).Found
}

// IsClickable reports whether sel is displayed and enabled within timeout.
func (r *Resolver) IsClickable(sel core.Selector, timeout time.Duration) bool {
	return r.Resolve([]core.Selector{sel}, timeout, Clickable).Found
}

// WaitAny polls every selector in rounds until one satisfies cond or the
// shared timeout expires. Unlike Resolve, later selectors do not wait for
// earlier ones to time out.
func (r *Resolver) WaitAny(selectors []core.Selector, timeout time.Duration, cond Condition) Match {
	start := time.Now()
	deadline := start.Add(timeout)
	m := Match{Index: -1, Attempted: selectors}

	for {
		for i, sel := range selectors {
			id, err := r.session.FindElement(sel.Strategy, sel.Value)
			if err == nil && id != "" {
				ok, cerr := r.satisfies(id, cond)
				if ok {
					m.Found = true
					m.ElementID = id
					m.Selector = sel
					m.Index = i
					m.Elapsed = time.Since(start)
					return m
				}
				err = cerr
			}
			if err != nil && !errors.Is(err, core.ErrElementNotFound) {
				m.LastErr = err
			}
		}

		if !time.Now().Add(r.interval).Before(deadline) {
			m.Elapsed = time.Since(start)
			return m
		}
		time.Sleep(r.interval)
	}
}
