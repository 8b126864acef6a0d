// Package report writes the machine-readable index of a suite run.
//
// One report_<run id>.json is written per run next to the logs. It carries
// the device and app under test, the status totals and one entry per
// scenario with its attachments, so a CI job can pick up failures without
// parsing console output.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/devicelab-dev/appcheck/pkg/config"
	"github.com/devicelab-dev/appcheck/pkg/core"
)

// Version is the report schema version.
const Version = "1.0.0"

// Index is the report file.
type Index struct {
	Version   string          `json:"version"`
	RunID     string          `json:"runId"`
	Status    string          `json:"status"`
	StartTime time.Time       `json:"startTime"`
	EndTime   time.Time       `json:"endTime"`
	Device    Device          `json:"device"`
	App       App             `json:"app"`
	Summary   Summary         `json:"summary"`
	Scenarios []ScenarioEntry `json:"scenarios"`
}

// Device identifies the device the run targeted.
type Device struct {
	Name     string `json:"name"`
	Platform string `json:"platform"`
	Appium   string `json:"appium"`
}

// App identifies the app under test.
type App struct {
	Package  string `json:"package"`
	Activity string `json:"activity"`
}

// Summary holds the status totals.
type Summary struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Errored int `json:"errored"`
	Skipped int `json:"skipped"`
}

// ScenarioEntry is one scenario of the run.
type ScenarioEntry struct {
	Name        string               `json:"name"`
	Tags        []string             `json:"tags,omitempty"`
	Status      string               `json:"status"`
	Category    string               `json:"errorCategory,omitempty"`
	Banner      string               `json:"banner,omitempty"`
	StartTime   time.Time            `json:"startTime"`
	DurationMs  int64                `json:"durationMs"`
	Message     string               `json:"message,omitempty"`
	Error       string               `json:"error,omitempty"`
	Screen      *core.ScreenIdentity `json:"screen,omitempty"`
	Attachments []core.Attachment    `json:"attachments,omitempty"`
}

// Build converts a finished suite into a report index.
func Build(res *core.SuiteResult, cfg *config.Config) *Index {
	idx := &Index{
		Version:   Version,
		RunID:     res.RunID,
		Status:    core.StatusPassed.String(),
		StartTime: res.StartTime,
		EndTime:   res.StartTime.Add(res.Duration),
		Device: Device{
			Name:     cfg.App.DeviceName,
			Platform: cfg.App.PlatformName,
			Appium:   cfg.Appium.ServerURL,
		},
		App: App{Package: cfg.App.Package, Activity: cfg.App.Activity},
		Summary: Summary{
			Total:   res.Total,
			Passed:  res.Passed,
			Failed:  res.Failed,
			Errored: res.Errored,
			Skipped: res.Skipped,
		},
	}
	if !res.Success() {
		idx.Status = core.StatusFailed.String()
	}

	for _, sc := range res.Scenarios {
		entry := ScenarioEntry{
			Name:        sc.Name,
			Tags:        sc.Tags,
			Status:      sc.Status.String(),
			Banner:      sc.Banner,
			StartTime:   sc.StartTime,
			DurationMs:  sc.Duration.Milliseconds(),
			Message:     sc.Message,
			Error:       sc.Error,
			Screen:      sc.Screen,
			Attachments: sc.Attachments,
		}
		if sc.Category != core.ErrCategoryNone {
			entry.Category = sc.Category.String()
		}
		idx.Scenarios = append(idx.Scenarios, entry)
	}
	return idx
}

// Write stores the index as report_<run id>.json in dir and returns the path.
func Write(dir string, idx *Index) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	path := filepath.Join(dir, "report_"+idx.RunID+".json")
	if err := atomicWriteJSON(path, idx); err != nil {
		return "", err
	}
	return path, nil
}

// atomicWriteJSON writes through a temp file so readers never see a partial report.
func atomicWriteJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
