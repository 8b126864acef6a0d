package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/devicelab-dev/appcheck/pkg/config"
	"github.com/devicelab-dev/appcheck/pkg/core"
	"github.com/devicelab-dev/appcheck/pkg/driver/mock"
	"github.com/devicelab-dev/appcheck/pkg/imagescan"
	"github.com/devicelab-dev/appcheck/pkg/pages"
)

const testTable = `version: 1
name: test-table
indicators:
  selectors:
    - {by: id, value: "groobeeWrap"}
`

type workspace struct {
	dir      string
	config   string
	sessions []*mock.Session
	configs  []*config.Config
}

// newWorkspace writes a config with fast timeouts and temp output dirs and
// replaces the Appium connection with scripted sessions.
func newWorkspace(t *testing.T, setup func(*mock.Session)) *workspace {
	t.Helper()
	w := &workspace{dir: t.TempDir()}

	table := filepath.Join(w.dir, "banner.yaml")
	if err := os.WriteFile(table, []byte(testTable), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := `timeouts:
  short: 20ms
  default: 20ms
  long: 20ms
waits:
  popup: 0s
  app_loading: 0s
  banner: 0s
output:
  screenshot_dir: ` + filepath.Join(w.dir, "screenshots") + `
  page_source_dir: ` + filepath.Join(w.dir, "page_sources") + `
  log_dir: ` + filepath.Join(w.dir, "logs") + `
  metrics_file: ` + filepath.Join(w.dir, "appcheck.prom") + `
banner_table: ` + table + `
`
	w.config = filepath.Join(w.dir, "appcheck.yaml")
	if err := os.WriteFile(w.config, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}

	origOpen, origSleep, origPoll := openSession, sleep, pollInterval
	t.Cleanup(func() { openSession, sleep, pollInterval = origOpen, origSleep, origPoll })
	sleep = func(time.Duration) {}
	pollInterval = time.Millisecond
	openSession = func(cfg *config.Config, _ *zap.Logger) (core.Session, error) {
		w.configs = append(w.configs, cfg)
		s := mock.New()
		if setup != nil {
			setup(s)
		}
		w.sessions = append(w.sessions, s)
		return s, nil
	}
	return w
}

func (w *workspace) run(args ...string) (string, error) {
	var out bytes.Buffer
	full := append([]string{"appcheck", "--config", w.config}, args...)
	err := NewApp(&out).Run(full)
	return out.String(), err
}

func (w *workspace) path(parts ...string) string {
	return filepath.Join(append([]string{w.dir}, parts...)...)
}

func exitCode(err error) int {
	var exit cli.ExitCoder
	if errors.As(err, &exit) {
		return exit.ExitCode()
	}
	return -1
}

func TestList(t *testing.T) {
	w := newWorkspace(t, nil)

	out, err := w.run("list")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, name := range []string{"home_page_loaded", "login_empty_fields", "extract_gnb_source"} {
		if !strings.Contains(out, name) {
			t.Errorf("expected %s in output:\n%s", name, out)
		}
	}
	if len(w.sessions) != 0 {
		t.Errorf("list should not open a session, opened %d", len(w.sessions))
	}
}

func TestList_Tag(t *testing.T) {
	w := newWorkspace(t, nil)

	out, err := w.run("list", "--tag", "negative")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "login_wrong_password") {
		t.Errorf("expected login_wrong_password in output:\n%s", out)
	}
	if strings.Contains(out, "home_page_loaded") {
		t.Errorf("home_page_loaded is not tagged negative:\n%s", out)
	}
}

func TestRun_Passed(t *testing.T) {
	w := newWorkspace(t, func(s *mock.Session) { s.Visible(pages.HomeLogo) })

	out, err := w.run("run", "--scenario", "home_page_loaded")
	if err != nil {
		t.Fatalf("unexpected error: %v\n%s", err, out)
	}
	if !strings.Contains(out, "passed") {
		t.Errorf("expected passed in summary:\n%s", out)
	}
	if len(w.sessions) != 1 || !w.sessions[0].Closed {
		t.Errorf("expected one closed session")
	}
	if _, err := os.Stat(w.path("screenshots", "home_page_loaded.png")); err != nil {
		t.Errorf("screenshot not saved: %v", err)
	}
	data, err := os.ReadFile(w.path("appcheck.prom"))
	if err != nil {
		t.Fatalf("metrics not written: %v", err)
	}
	if !strings.Contains(string(data), `appcheck_scenarios_total{scenario="home_page_loaded",status="passed"} 1`) {
		t.Errorf("unexpected metrics:\n%s", data)
	}
	logs, _ := filepath.Glob(w.path("logs", "test_*.log"))
	if len(logs) != 1 {
		t.Errorf("expected one log file, got %v", logs)
	}
	reports, _ := filepath.Glob(w.path("logs", "report_*.json"))
	if len(reports) != 1 {
		t.Errorf("expected one run report, got %v", reports)
	}
}

func TestRun_FailedExitsOne(t *testing.T) {
	w := newWorkspace(t, nil)

	out, err := w.run("run", "--scenario", "home_page_loaded")
	if code := exitCode(err); code != 1 {
		t.Fatalf("expected exit code 1, got %d (%v)", code, err)
	}
	if !strings.Contains(out, "home page did not load") {
		t.Errorf("expected failure detail in summary:\n%s", out)
	}
	shots, _ := filepath.Glob(w.path("screenshots", "FAILED_home_page_loaded_*.png"))
	if len(shots) != 1 {
		t.Errorf("expected failure screenshot, got %v", shots)
	}
}

func TestRun_UnknownScenario(t *testing.T) {
	w := newWorkspace(t, nil)

	_, err := w.run("run", "--scenario", "nope")
	if err == nil || !strings.Contains(err.Error(), "unknown scenario") {
		t.Fatalf("expected unknown scenario error, got %v", err)
	}
	if len(w.sessions) != 0 {
		t.Errorf("no session should be opened")
	}
}

func TestRun_SessionUnavailable(t *testing.T) {
	w := newWorkspace(t, nil)
	openSession = func(*config.Config, *zap.Logger) (core.Session, error) {
		return nil, core.ErrSessionUnavailable.WithCause(errors.New("connection refused"))
	}

	out, err := w.run("run", "--scenario", "home_page_loaded")
	if code := exitCode(err); code != 1 {
		t.Fatalf("expected exit code 1, got %d (%v)", code, err)
	}
	if !strings.Contains(out, "errored") {
		t.Errorf("expected errored in summary:\n%s", out)
	}
}

func TestRun_FlagsOverrideConfig(t *testing.T) {
	w := newWorkspace(t, func(s *mock.Session) { s.Visible(pages.HomeLogo) })

	_, err := w.run("--appium-url", "http://grid:4444", "--device", "emulator-5554",
		"run", "--scenario", "home_page_loaded")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(w.configs) != 1 {
		t.Fatalf("expected one session, got %d", len(w.configs))
	}
	cfg := w.configs[0]
	if cfg.Appium.ServerURL != "http://grid:4444" {
		t.Errorf("expected flag appium url, got %s", cfg.Appium.ServerURL)
	}
	if cfg.Capabilities()["appium:deviceName"] != "emulator-5554" {
		t.Errorf("expected flag device, got %v", cfg.Capabilities()["appium:deviceName"])
	}
	if cfg.Timeouts.Short != 20*time.Millisecond {
		t.Errorf("expected config file timeout, got %v", cfg.Timeouts.Short)
	}
}

func TestScanImages_Broken(t *testing.T) {
	w := newWorkspace(t, func(s *mock.Session) {
		s.Add(imagescan.ImageSelector, &mock.Element{Displayed: true, Rect: core.Bounds{X: 0, Y: 0, Width: 1, Height: 50}})
		s.Visible(imagescan.ImageSelector)
	})

	out, err := w.run("scan-images", "--name", "adhoc")
	if code := exitCode(err); code != 1 {
		t.Fatalf("expected exit code 1, got %d (%v)", code, err)
	}
	if !strings.Contains(out, "2 images checked, 1 broken") {
		t.Errorf("unexpected output:\n%s", out)
	}
	if _, err := os.Stat(w.path("screenshots", "adhoc.txt")); err != nil {
		t.Errorf("report not saved: %v", err)
	}
}

func TestScanImages_Clean(t *testing.T) {
	w := newWorkspace(t, func(s *mock.Session) { s.Visible(imagescan.ImageSelector) })

	out, err := w.run("scan-images", "--scroll", "--max-scrolls", "2")
	if err != nil {
		t.Fatalf("unexpected error: %v\n%s", err, out)
	}
	if _, err := os.Stat(w.path("screenshots", "broken_images_report.txt")); err != nil {
		t.Errorf("report not saved: %v", err)
	}
}

func TestDismissBanner_NoBanner(t *testing.T) {
	w := newWorkspace(t, nil)

	out, err := w.run("dismiss-banner")
	if err != nil {
		t.Fatalf("unexpected error: %v\n%s", err, out)
	}
	if !strings.Contains(out, "skipped") {
		t.Errorf("expected banner outcome in summary:\n%s", out)
	}
}

func TestDismissBanner_StillVisible(t *testing.T) {
	w := newWorkspace(t, func(s *mock.Session) {
		s.Visible(core.ID("groobeeWrap"))
	})

	_, err := w.run("dismiss-banner")
	if code := exitCode(err); code != 1 {
		t.Fatalf("expected exit code 1, got %d (%v)", code, err)
	}
}

const gnbSource = `<hierarchy>
  <android.widget.LinearLayout resource-id="com.wjthinkbig.woongjinbooks:id/ll_gnb">
    <android.widget.Button content-desc="홈" clickable="true"/>
  </android.widget.LinearLayout>
</hierarchy>`

func TestDump_GNB(t *testing.T) {
	w := newWorkspace(t, func(s *mock.Session) { s.Sources = []string{gnbSource} })

	out, err := w.run("dump", "--gnb")
	if err != nil {
		t.Fatalf("unexpected error: %v\n%s", err, out)
	}
	data, err := os.ReadFile(w.path("page_sources", "gnb_only.xml"))
	if err != nil {
		t.Fatalf("gnb source not saved: %v", err)
	}
	if strings.Contains(string(data), "<hierarchy") {
		t.Errorf("expected only the navigation bar subtree:\n%s", data)
	}
}

func TestDump_GNBMissing(t *testing.T) {
	w := newWorkspace(t, nil)

	_, err := w.run("dump", "--gnb")
	if code := exitCode(err); code != 1 {
		t.Fatalf("expected exit code 1, got %d (%v)", code, err)
	}
}

func TestDump_Screen(t *testing.T) {
	w := newWorkspace(t, func(s *mock.Session) { s.Sources = []string{gnbSource} })

	out, err := w.run("dump", "--name", "mine")
	if err != nil {
		t.Fatalf("unexpected error: %v\n%s", err, out)
	}
	if _, err := os.Stat(w.path("page_sources", "mine.xml")); err != nil {
		t.Errorf("source not saved: %v", err)
	}
	if !strings.Contains(out, "홈") {
		t.Errorf("expected labeled elements in output:\n%s", out)
	}
}

func TestBadConfig(t *testing.T) {
	var out bytes.Buffer
	err := NewApp(&out).Run([]string{"appcheck", "--config", filepath.Join(t.TempDir(), "missing.yaml"), "list"})
	if err != nil {
		t.Fatalf("list does not load config, got %v", err)
	}

	err = NewApp(&out).Run([]string{"appcheck", "--config", filepath.Join(t.TempDir(), "missing.yaml"), "run"})
	if !errors.Is(err, core.ErrInvalidConfig) {
		t.Fatalf("expected invalid config error, got %v", err)
	}
}
