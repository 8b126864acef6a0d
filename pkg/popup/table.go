package popup

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/devicelab-dev/appcheck/pkg/core"
)

//go:embed default.yaml
var defaultTable []byte

// Table drives the banner heuristic. Bump Version when a campaign layout changes.
type Table struct {
	Version       int           `yaml:"version"`
	Name          string        `yaml:"name"`
	InitialSettle time.Duration `yaml:"initial_settle"`

	Permissions PermissionStage `yaml:"permissions"`
	Indicators  IndicatorStage  `yaml:"indicators"`
	Close       CloseStage      `yaml:"close"`
	Positions   PositionStage   `yaml:"positions"`
}

// PermissionStage lists system popups acknowledged before the banner.
type PermissionStage struct {
	Timeout time.Duration   `yaml:"timeout"`
	Buttons []core.Selector `yaml:"buttons"`
}

// IndicatorStage detects that a banner is on screen.
type IndicatorStage struct {
	Timeout   time.Duration   `yaml:"timeout"`
	Settle    time.Duration   `yaml:"settle"`
	Selectors []core.Selector `yaml:"selectors"`
}

// CloseStage lists close buttons in priority order.
type CloseStage struct {
	Timeout   time.Duration   `yaml:"timeout"` // per selector
	Settle    time.Duration   `yaml:"settle"`  // after a click
	Selectors []core.Selector `yaml:"selectors"`
}

// PositionStage is the geometric fallback.
type PositionStage struct {
	Attempts        int           `yaml:"attempts"`
	BeforeAttempt   time.Duration `yaml:"before_attempt"`
	AfterTap        time.Duration `yaml:"after_tap"`
	BetweenAttempts time.Duration `yaml:"between_attempts"`
	Points          []Position    `yaml:"points"`
}

// Position is a fractional screen coordinate.
type Position struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// Resolve converts the position to pixels for a width x height screen.
func (p Position) Resolve(width, height int) (int, int) {
	return int(float64(width) * p.X), int(float64(height) * p.Y)
}

// DefaultTable returns the embedded table.
func DefaultTable() *Table {
	t, err := ParseTable(defaultTable)
	if err != nil {
		panic(fmt.Sprintf("embedded banner table: %v", err))
	}
	return t
}

// LoadTable reads a table from path, or returns the embedded one when path is empty.
func LoadTable(path string) (*Table, error) {
	if path == "" {
		return DefaultTable(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, core.ErrInvalidConfig.WithCause(fmt.Errorf("read banner table: %w", err))
	}
	return ParseTable(data)
}

// ParseTable decodes and validates a YAML table.
func ParseTable(data []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, core.ErrInvalidConfig.WithCause(fmt.Errorf("parse banner table: %w", err))
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Validate checks the table is usable.
func (t *Table) Validate() error {
	invalid := func(format string, args ...interface{}) error {
		return core.ErrInvalidConfig.WithMessage("banner table: " + fmt.Sprintf(format, args...))
	}

	if t.Version < 1 {
		return invalid("version must be >= 1")
	}
	if len(t.Indicators.Selectors) == 0 {
		return invalid("at least one indicator selector is required")
	}
	if t.Positions.Attempts < 0 {
		return invalid("positions.attempts must not be negative")
	}
	for i, p := range t.Positions.Points {
		if p.X < 0 || p.X > 1 || p.Y < 0 || p.Y > 1 {
			return invalid("position %d (%.3f, %.3f) is outside the screen", i, p.X, p.Y)
		}
	}
	for _, group := range [][]core.Selector{t.Permissions.Buttons, t.Indicators.Selectors, t.Close.Selectors} {
		for _, sel := range group {
			if sel.Strategy == "" || sel.Value == "" {
				return invalid("selector %q is incomplete", sel.String())
			}
		}
	}
	return nil
}

// WithBannerWait returns a copy of the table whose indicator wait is d.
// A zero d keeps the table's own timeout.
func (t *Table) WithBannerWait(d time.Duration) *Table {
	cp := *t
	if d > 0 {
		cp.Indicators.Timeout = d
	}
	return &cp
}
