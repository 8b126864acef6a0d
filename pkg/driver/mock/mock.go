// Package mock provides a scripted in-memory core.Session for testing without
// a real device.
package mock

import (
	"fmt"
	"sync"

	"github.com/devicelab-dev/appcheck/pkg/core"
)

// Element is a scripted UI node.
type Element struct {
	ID         string
	Text       string
	Attributes map[string]string
	Rect       core.Bounds
	Displayed  bool
	Enabled    bool

	// AppearAfter hides the element for the first N lookups of its selector.
	AppearAfter int
	// RectErr makes GetElementRect fail for this element.
	RectErr error
	// OnClick runs after the element is clicked.
	OnClick func()
}

// Point is a recorded tap.
type Point struct{ X, Y int }

// SwipeCall is a recorded swipe.
type SwipeCall struct {
	StartX, StartY, EndX, EndY, DurationMs int
}

// Session is a scripted implementation of core.Session.
type Session struct {
	mu sync.Mutex

	elements map[core.Selector][]*Element
	byID     map[string]*Element
	lookups  map[core.Selector]int
	nextID   int

	// Screen
	Width, Height int
	Package       string
	Activity      string
	PNG           []byte
	ScreenshotErr error

	// Sources are returned in order; the last one repeats.
	Sources   []string
	SourceErr error

	// Err, when set, fails every call (a lost session).
	Err error

	// OnTap runs after each tap.
	OnTap func(x, y int)
	// OnSwipe runs after each swipe.
	OnSwipe func()

	// Recorded calls
	Finds         []core.Selector
	Clicks        []string
	Cleared       []string
	Typed         map[string]string
	Taps          []Point
	Swipes        []SwipeCall
	Keys          []int
	KeyboardHides int
	SourceCalls   int
	SizeCalls     int
	Closed        bool
}

var _ core.Session = (*Session)(nil)

// New creates an empty session with a 1080x1920 screen.
func New() *Session {
	return &Session{
		elements: make(map[core.Selector][]*Element),
		byID:     make(map[string]*Element),
		lookups:  make(map[core.Selector]int),
		Width:    1080,
		Height:   1920,
		Package:  "com.wjthinkbig.woongjinbooks",
		Activity: ".view.MainActivity",
		PNG:      minimalPNG(),
		Typed:    make(map[string]string),
	}
}

// Add registers an element under a selector. Zero-valued elements default to
// displayed and enabled with a 100x100 rect.
func (s *Session) Add(sel core.Selector, el *Element) *Element {
	s.mu.Lock()
	defer s.mu.Unlock()

	if el.ID == "" {
		s.nextID++
		el.ID = fmt.Sprintf("el-%d", s.nextID)
	}
	if el.Attributes == nil {
		el.Attributes = map[string]string{}
	}
	s.elements[sel] = append(s.elements[sel], el)
	s.byID[el.ID] = el
	return el
}

// Visible registers a displayed, enabled element under a selector.
func (s *Session) Visible(sel core.Selector) *Element {
	return s.Add(sel, &Element{
		Displayed: true,
		Enabled:   true,
		Rect:      core.Bounds{X: 100, Y: 100, Width: 100, Height: 100},
	})
}

// Remove drops every element registered under a selector.
func (s *Session) Remove(sel core.Selector) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, el := range s.elements[sel] {
		delete(s.byID, el.ID)
	}
	delete(s.elements, sel)
}

// Lookups returns how many times a selector was searched for.
func (s *Session) Lookups(sel core.Selector) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookups[sel]
}

func (s *Session) find(strategy, value string) []*Element {
	sel := core.Selector{Strategy: strategy, Value: value}
	s.Finds = append(s.Finds, sel)
	s.lookups[sel]++
	n := s.lookups[sel]

	var found []*Element
	for _, el := range s.elements[sel] {
		if n > el.AppearAfter {
			found = append(found, el)
		}
	}
	return found
}

func (s *Session) element(id string) (*Element, error) {
	el, ok := s.byID[id]
	if !ok {
		return nil, core.ErrElementNotFound.WithMessage("stale element " + id)
	}
	return el, nil
}

// FindElement returns the first element registered under the selector.
func (s *Session) FindElement(strategy, value string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return "", s.Err
	}
	found := s.find(strategy, value)
	if len(found) == 0 {
		return "", core.ErrElementNotFound
	}
	return found[0].ID, nil
}

// FindElements returns every element registered under the selector.
func (s *Session) FindElements(strategy, value string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var ids []string
	for _, el := range s.find(strategy, value) {
		ids = append(ids, el.ID)
	}
	return ids, nil
}

func (s *Session) GetElementText(elementID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return "", s.Err
	}
	el, err := s.element(elementID)
	if err != nil {
		return "", err
	}
	return el.Text, nil
}

func (s *Session) GetElementAttribute(elementID, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return "", s.Err
	}
	el, err := s.element(elementID)
	if err != nil {
		return "", err
	}
	return el.Attributes[name], nil
}

func (s *Session) GetElementRect(elementID string) (x, y, w, h int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, 0, 0, 0, s.Err
	}
	el, err := s.element(elementID)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	if el.RectErr != nil {
		return 0, 0, 0, 0, el.RectErr
	}
	return el.Rect.X, el.Rect.Y, el.Rect.Width, el.Rect.Height, nil
}

func (s *Session) IsElementDisplayed(elementID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	el, err := s.element(elementID)
	if err != nil {
		return false, err
	}
	return el.Displayed, nil
}

func (s *Session) IsElementEnabled(elementID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	el, err := s.element(elementID)
	if err != nil {
		return false, err
	}
	return el.Enabled, nil
}

// ClickElement records the click and runs the element's OnClick hook.
func (s *Session) ClickElement(elementID string) error {
	s.mu.Lock()
	if s.Err != nil {
		s.mu.Unlock()
		return s.Err
	}
	el, err := s.element(elementID)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.Clicks = append(s.Clicks, elementID)
	hook := el.OnClick
	s.mu.Unlock()

	if hook != nil {
		hook()
	}
	return nil
}

func (s *Session) ClearElement(elementID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, err := s.element(elementID); err != nil {
		return err
	}
	s.Cleared = append(s.Cleared, elementID)
	delete(s.Typed, elementID)
	return nil
}

func (s *Session) SendKeysToElement(elementID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, err := s.element(elementID); err != nil {
		return err
	}
	s.Typed[elementID] += text
	return nil
}

// Tap records the tap and runs OnTap.
func (s *Session) Tap(x, y int) error {
	s.mu.Lock()
	if s.Err != nil {
		s.mu.Unlock()
		return s.Err
	}
	s.Taps = append(s.Taps, Point{X: x, Y: y})
	hook := s.OnTap
	s.mu.Unlock()

	if hook != nil {
		hook(x, y)
	}
	return nil
}

// Swipe records the swipe and runs OnSwipe.
func (s *Session) Swipe(startX, startY, endX, endY, durationMs int) error {
	s.mu.Lock()
	if s.Err != nil {
		s.mu.Unlock()
		return s.Err
	}
	s.Swipes = append(s.Swipes, SwipeCall{startX, startY, endX, endY, durationMs})
	hook := s.OnSwipe
	s.mu.Unlock()

	if hook != nil {
		hook()
	}
	return nil
}

func (s *Session) HideKeyboard() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.KeyboardHides++
	return nil
}

func (s *Session) PressKeyCode(keycode int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.Keys = append(s.Keys, keycode)
	return nil
}

func (s *Session) WindowSize() (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, 0, s.Err
	}
	s.SizeCalls++
	return s.Width, s.Height, nil
}

func (s *Session) Screenshot() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	if s.ScreenshotErr != nil {
		return nil, s.ScreenshotErr
	}
	return s.PNG, nil
}

// Source returns the next scripted UI tree.
func (s *Session) Source() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return "", s.Err
	}
	if s.SourceErr != nil {
		return "", s.SourceErr
	}
	s.SourceCalls++
	if len(s.Sources) == 0 {
		return `<?xml version="1.0" encoding="UTF-8"?><hierarchy rotation="0"/>`, nil
	}
	i := s.SourceCalls - 1
	if i >= len(s.Sources) {
		i = len(s.Sources) - 1
	}
	return s.Sources[i], nil
}

func (s *Session) CurrentPackage() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return "", s.Err
	}
	return s.Package, nil
}

func (s *Session) CurrentActivity() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return "", s.Err
	}
	return s.Activity, nil
}

// Close marks the session closed.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Closed = true
	return nil
}

// minimalPNG is a 1x1 transparent pixel.
func minimalPNG() []byte {
	return []byte{
		0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, // PNG signature
		0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52, // IHDR chunk
		0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
		0x08, 0x06, 0x00, 0x00, 0x00, 0x1F, 0x15, 0xC4,
		0x89, 0x00, 0x00, 0x00, 0x0A, 0x49, 0x44, 0x41,
		0x54, 0x78, 0x9C, 0x63, 0x00, 0x01, 0x00, 0x00,
		0x05, 0x00, 0x01, 0x0D, 0x0A, 0x2D, 0xB4, 0x00,
		0x00, 0x00, 0x00, 0x49, 0x45, 0x4E, 0x44, 0xAE,
		0x42, 0x60, 0x82,
	}
}
