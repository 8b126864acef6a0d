package core

import "fmt"

// Locator strategies understood by the Appium UiAutomator2 driver.
const (
	ByID                 = "id"
	ByXPath              = "xpath"
	ByAccessibilityID    = "accessibility id"
	ByAndroidUIAutomator = "-android uiautomator"
	ByClassName          = "class name"
)

// Android key codes used by the suite.
const (
	KeyCodeBack  = 4
	KeyCodeEnter = 66
)

// Selector identifies a UI node by a (strategy, value) pair.
// Selectors are immutable; when several are given, slice order is priority order.
type Selector struct {
	Strategy string `yaml:"by" json:"by"`
	Value    string `yaml:"value" json:"value"`
}

// ID returns a resource-id selector.
func ID(value string) Selector { return Selector{Strategy: ByID, Value: value} }

// XPath returns an xpath selector.
func XPath(value string) Selector { return Selector{Strategy: ByXPath, Value: value} }

// AccessibilityID returns an accessibility-label (content-desc) selector.
func AccessibilityID(value string) Selector {
	return Selector{Strategy: ByAccessibilityID, Value: value}
}

// String returns a compact description used in logs and errors.
func (s Selector) String() string {
	return s.Strategy + "=" + s.Value
}

// IsZero reports whether the selector is unset.
func (s Selector) IsZero() bool {
	return s.Strategy == "" && s.Value == ""
}

// Session is the remote automation session a test borrows for its duration.
// Implementations: appium.Client (real device), mock.Session (tests).
type Session interface {
	// Element queries. Element handles are opaque server-side ids.
	FindElement(strategy, value string) (string, error)
	FindElements(strategy, value string) ([]string, error)

	// Element reads
	GetElementText(elementID string) (string, error)
	GetElementAttribute(elementID, name string) (string, error)
	GetElementRect(elementID string) (x, y, w, h int, err error)
	IsElementDisplayed(elementID string) (bool, error)
	IsElementEnabled(elementID string) (bool, error)

	// Element actions
	ClickElement(elementID string) error
	ClearElement(elementID string) error
	SendKeysToElement(elementID, text string) error

	// Gestures and keys
	Tap(x, y int) error
	Swipe(startX, startY, endX, endY, durationMs int) error
	HideKeyboard() error
	PressKeyCode(keycode int) error

	// Screen
	WindowSize() (int, int, error)
	Screenshot() ([]byte, error)
	Source() (string, error)
	CurrentPackage() (string, error)
	CurrentActivity() (string, error)

	// Close ends the remote session.
	Close() error
}

// Bounds represents element position and size
type Bounds struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Center returns the center point of the bounds
func (b Bounds) Center() (int, int) {
	return b.X + b.Width/2, b.Y + b.Height/2
}

// Contains checks if a point is within the bounds
func (b Bounds) Contains(x, y int) bool {
	return x >= b.X && x < b.X+b.Width && y >= b.Y && y < b.Y+b.Height
}

// AndroidString formats bounds the way UiAutomator2 page source does: "[x1,y1][x2,y2]".
func (b Bounds) AndroidString() string {
	return fmt.Sprintf("[%d,%d][%d,%d]", b.X, b.Y, b.X+b.Width, b.Y+b.Height)
}

// ScreenIdentity names the foreground app screen.
type ScreenIdentity struct {
	Package  string `json:"package"`
	Activity string `json:"activity"`
}

// String returns "package/activity".
func (s ScreenIdentity) String() string {
	return s.Package + "/" + s.Activity
}
