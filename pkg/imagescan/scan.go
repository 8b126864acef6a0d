// Package imagescan finds image nodes that failed to render.
//
// The check is structural only: an image is broken when its rendered size is
// at most one pixel on either axis or when it reports not displayed. Pixel
// content is never inspected.
package imagescan

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/devicelab-dev/appcheck/pkg/core"
)

// Reasons recorded for broken images.
const (
	ReasonInvalidSize  = "Invalid size (width or height <= 1)"
	ReasonNotDisplayed = "Not displayed"
	reasonErrorPrefix  = "Error checking image: "
)

// ImageSelector matches every image node on Android.
var ImageSelector = core.XPath("//android.widget.ImageView")

// Classify reports whether an image with the given size and visibility is broken.
func Classify(width, height int, displayed bool) (bool, string) {
	if width <= 1 || height <= 1 {
		return true, ReasonInvalidSize
	}
	if !displayed {
		return true, ReasonNotDisplayed
	}
	return false, ""
}

// Record is one broken image. Records are never modified after creation.
type Record struct {
	Index       int // position among the images of its screen
	Scroll      int // scroll step the image was seen at
	ResourceID  string
	ContentDesc string
	Bounds      string // raw bounds attribute
	Rect        core.Bounds
	HasSize     bool // false when the element could not be read
	Reason      string
}

// Size formats the rendered size, or N/A when unknown.
func (r Record) Size() string {
	if !r.HasSize {
		return "N/A"
	}
	return fmt.Sprintf("%dx%d", r.Rect.Width, r.Rect.Height)
}

// Scanner checks the images on the current screen.
type Scanner struct {
	session core.Session
	log     *zap.Logger
	sleep   func(time.Duration)

	// LoadWait is paused before a single-screen scan that waits for loading.
	LoadWait time.Duration
	// ScrollPause is paused after each scroll.
	ScrollPause time.Duration
	// Scroll advances the screen; defaults to a fixed upward swipe.
	Scroll func() error
}

// NewScanner creates a scanner with the default waits.
func NewScanner(session core.Session, log *zap.Logger) *Scanner {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Scanner{
		session:     session,
		log:         log.Named("imagescan"),
		sleep:       time.Sleep,
		LoadWait:    3 * time.Second,
		ScrollPause: time.Second,
	}
	s.Scroll = func() error { return session.Swipe(500, 1500, 500, 500, 500) }
	return s
}

// WithSleep replaces the pause function.
func (s *Scanner) WithSleep(sleep func(time.Duration)) *Scanner {
	s.sleep = sleep
	return s
}

// ScanResult is one single-screen scan.
type ScanResult struct {
	Images int
	Broken []Record
}

// Scan checks every image on the current screen. Per-element read failures
// become records; only a failed image lookup is returned as an error.
func (s *Scanner) Scan(waitForLoad bool) (ScanResult, error) {
	if waitForLoad {
		s.log.Debug("waiting for images to load", zap.Duration("wait", s.LoadWait))
		s.sleep(s.LoadWait)
	}

	ids, err := s.session.FindElements(ImageSelector.Strategy, ImageSelector.Value)
	if err != nil {
		return ScanResult{}, fmt.Errorf("find images: %w", err)
	}

	res := ScanResult{Images: len(ids)}
	if len(ids) == 0 {
		s.log.Warn("no images on screen")
		return res, nil
	}

	for i, id := range ids {
		rec, broken := s.check(i, id)
		if broken {
			s.log.Warn("broken image",
				zap.Int("index", i),
				zap.String("resource_id", rec.ResourceID),
				zap.String("size", rec.Size()),
				zap.String("reason", rec.Reason))
			res.Broken = append(res.Broken, rec)
		}
	}

	s.log.Info("image scan complete",
		zap.Int("images", res.Images),
		zap.Int("broken", len(res.Broken)),
		zap.Int("valid", res.Images-len(res.Broken)))
	return res, nil
}

func (s *Scanner) check(index int, id string) (Record, bool) {
	rec := Record{Index: index}
	fail := func(err error) (Record, bool) {
		scanErr := core.ErrImageCheck.WithCause(err)
		s.log.Error("image check failed", zap.Int("index", index), zap.Error(scanErr))
		rec.Reason = reasonErrorPrefix + err.Error()
		return rec, true
	}

	x, y, w, h, err := s.session.GetElementRect(id)
	if err != nil {
		return fail(err)
	}
	rec.Rect = core.Bounds{X: x, Y: y, Width: w, Height: h}
	rec.HasSize = true

	if rec.Bounds, err = s.session.GetElementAttribute(id, "bounds"); err != nil {
		return fail(err)
	}
	if rec.ResourceID, err = s.session.GetElementAttribute(id, "resource-id"); err != nil {
		return fail(err)
	}
	if rec.ResourceID == "" {
		rec.ResourceID = "Unknown"
	}
	if rec.ContentDesc, err = s.session.GetElementAttribute(id, "content-desc"); err != nil {
		return fail(err)
	}
	displayed, err := s.session.IsElementDisplayed(id)
	if err != nil {
		return fail(err)
	}

	broken, reason := Classify(w, h, displayed)
	rec.Reason = reason
	return rec, broken
}

// ScanWithScroll scans, scrolls and repeats until a scroll leaves the UI tree
// unchanged or maxScrolls scrolls were made. Findings are accumulated without
// de-duplication, so an image visible in two overlapping windows is reported
// twice. At most maxScrolls+1 snapshots are fetched.
func (s *Scanner) ScanWithScroll(maxScrolls int) (Report, error) {
	report := Report{Mode: ModeScroll, MaxScrolls: maxScrolls, Timestamp: time.Now()}
	var previous string

	for step := 0; step <= maxScrolls; step++ {
		res, err := s.Scan(false)
		if err != nil {
			return report, err
		}
		report.Images += res.Images
		for _, rec := range res.Broken {
			rec.Scroll = step
			report.Records = append(report.Records, rec)
		}

		current, err := s.session.Source()
		if err != nil {
			return report, fmt.Errorf("fetch ui tree: %w", err)
		}
		report.Snapshots++
		if step > 0 && current == previous {
			s.log.Info("reached end of page", zap.Int("scrolls", report.ScrollCount))
			break
		}
		previous = current

		if step < maxScrolls {
			if err := s.Scroll(); err != nil {
				return report, fmt.Errorf("scroll: %w", err)
			}
			s.sleep(s.ScrollPause)
			report.ScrollCount++
		}
	}

	s.log.Info("scroll scan complete",
		zap.Int("scrolls", report.ScrollCount),
		zap.Int("broken", len(report.Records)))
	return report, nil
}

// ScanScreen runs a single-screen scan and wraps it in a report.
func (s *Scanner) ScanScreen(waitForLoad bool) (Report, error) {
	res, err := s.Scan(waitForLoad)
	if err != nil {
		return Report{}, err
	}
	return Report{
		Mode:      ModeSingle,
		Records:   res.Broken,
		Images:    res.Images,
		Timestamp: time.Now(),
	}, nil
}
