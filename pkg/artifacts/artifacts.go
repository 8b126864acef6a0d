// Package artifacts writes screenshots, UI tree dumps and failure bundles.
package artifacts

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/devicelab-dev/appcheck/pkg/core"
	"github.com/devicelab-dev/appcheck/pkg/uitree"
)

// Store writes artifacts under the configured output directories.
type Store struct {
	ScreenshotDir string
	PageSourceDir string

	log *zap.Logger
	now func() time.Time
}

// NewStore creates a store.
func NewStore(screenshotDir, pageSourceDir string, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		ScreenshotDir: screenshotDir,
		PageSourceDir: pageSourceDir,
		log:           log.Named("artifacts"),
		now:           time.Now,
	}
}

// SaveScreenshot captures the screen to <ScreenshotDir>/<name>.png.
func (s *Store) SaveScreenshot(session core.Session, name string) (string, error) {
	data, err := session.Screenshot()
	if err != nil {
		return "", fmt.Errorf("capture screenshot: %w", err)
	}
	path, err := s.write(s.ScreenshotDir, name, ".png", data)
	if err != nil {
		return "", err
	}
	s.log.Info("screenshot saved", zap.String("path", path))
	return path, nil
}

// SavePageSource dumps the full UI tree to <PageSourceDir>/<name>.xml.
func (s *Store) SavePageSource(session core.Session, name string) (string, string, error) {
	source, err := session.Source()
	if err != nil {
		return "", "", fmt.Errorf("fetch ui tree: %w", err)
	}
	path, err := s.write(s.PageSourceDir, name, ".xml", []byte(source))
	if err != nil {
		return "", "", err
	}
	s.log.Info("page source saved", zap.String("path", path))
	return path, source, nil
}

// SaveGNBSource dumps only the navigation bar subtree, or the full tree when
// no navigation bar is found.
func (s *Store) SaveGNBSource(session core.Session, name string) (string, uitree.Extraction, error) {
	source, err := session.Source()
	if err != nil {
		return "", uitree.Extraction{}, fmt.Errorf("fetch ui tree: %w", err)
	}

	ext := uitree.ExtractGNB(source)
	if ext.Found {
		s.log.Info("navigation bar found", zap.String("pattern", ext.Pattern))
	} else {
		s.log.Warn("navigation bar not found, saving full source")
	}

	path, err := s.write(s.PageSourceDir, name, ".xml", []byte(ext.XML))
	if err != nil {
		return "", ext, err
	}
	return path, ext, nil
}

func (s *Store) write(dir, name, ext string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	path := filepath.Join(dir, strings.TrimSuffix(name, ext)+ext)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// Screen reads the foreground package and activity.
func Screen(session core.Session) (core.ScreenIdentity, error) {
	pkg, err := session.CurrentPackage()
	if err != nil {
		return core.ScreenIdentity{}, err
	}
	activity, err := session.CurrentActivity()
	if err != nil {
		return core.ScreenIdentity{}, err
	}
	return core.ScreenIdentity{Package: pkg, Activity: activity}, nil
}

// Bundle is the diagnostic capture for one failed scenario.
type Bundle struct {
	Attachments []core.Attachment
	Screen      *core.ScreenIdentity
	Errors      []error // capture steps that failed
}

// CaptureFailure captures a bundle named FAILED_<test>_<timestamp>.
func (s *Store) CaptureFailure(session core.Session, test string, cfg core.ArtifactConfig) Bundle {
	return s.Capture(session, "FAILED", test, cfg)
}

// Capture saves a screenshot, a UI tree dump and the current screen identity
// named <label>_<test>_<timestamp>. It never fails: errors and panics inside
// the capture are logged and collected in the bundle.
func (s *Store) Capture(session core.Session, label, test string, cfg core.ArtifactConfig) (bundle Bundle) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("capture panicked: %v", r)
			s.log.Error("failure capture aborted", zap.Error(err))
			bundle.Errors = append(bundle.Errors, err)
		}
	}()

	name := fmt.Sprintf("%s_%s_%s", label, sanitize(test), s.now().Format("20060102_150405"))

	if cfg.Screenshot {
		if path, err := s.SaveScreenshot(session, name); err != nil {
			s.log.Error("failure screenshot not saved", zap.Error(err))
			bundle.Errors = append(bundle.Errors, err)
		} else {
			bundle.Attachments = append(bundle.Attachments, core.NewScreenshotAttachment(path))
		}
	}

	if cfg.UIHierarchy {
		if path, _, err := s.SavePageSource(session, name); err != nil {
			s.log.Error("failure page source not saved", zap.Error(err))
			bundle.Errors = append(bundle.Errors, err)
		} else {
			bundle.Attachments = append(bundle.Attachments, core.NewHierarchyAttachment(path))
		}
	}

	if screen, err := Screen(session); err != nil {
		s.log.Error("current screen unknown", zap.Error(err))
		bundle.Errors = append(bundle.Errors, err)
	} else {
		bundle.Screen = &screen
		s.log.Info("current screen", zap.String("label", label), zap.Stringer("screen", screen))
	}
	return bundle
}

// sanitize makes a scenario name safe for a file name.
func sanitize(name string) string {
	r := strings.NewReplacer("::", "_", "/", "_", "\\", "_", " ", "_", ":", "_")
	return r.Replace(name)
}
