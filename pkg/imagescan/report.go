package imagescan

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Mode is how a report was produced.
type Mode string

const (
	ModeSingle Mode = "single"
	ModeScroll Mode = "scroll"
)

func (m Mode) label() string {
	if m == ModeScroll {
		return "scroll (full page)"
	}
	return "current screen only"
}

// Report aggregates the broken images of one scan.
type Report struct {
	Records     []Record
	Mode        Mode
	MaxScrolls  int
	ScrollCount int
	Snapshots   int // UI tree fetches made to detect the end of the page
	Images      int // image nodes checked, counting repeats across scrolls
	Timestamp   time.Time
}

const (
	headerRule = "======================================================================"
	recordRule = "----------------------------------------------------------------------"
)

// Format renders the report text: a fixed header then one block per record.
func (r Report) Format() string {
	var b strings.Builder

	b.WriteString("=== Broken Images Report ===\n")
	fmt.Fprintf(&b, "Generated: %s\n", r.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Mode: %s\n", r.Mode.label())
	if r.Mode == ModeScroll {
		fmt.Fprintf(&b, "Max scrolls: %d\n", r.MaxScrolls)
	}
	fmt.Fprintf(&b, "Broken images found: %d\n", len(r.Records))
	b.WriteString(headerRule + "\n\n")

	if len(r.Records) == 0 {
		b.WriteString("No broken images found.\n")
		return b.String()
	}

	for _, rec := range r.Records {
		fmt.Fprintf(&b, "Index: %d\n", rec.Index)
		fmt.Fprintf(&b, "Resource ID: %s\n", orNA(rec.ResourceID))
		fmt.Fprintf(&b, "Content-Desc: %s\n", orNA(rec.ContentDesc))
		fmt.Fprintf(&b, "Bounds: %s\n", orNA(rec.Bounds))
		fmt.Fprintf(&b, "Size: %s\n", rec.Size())
		fmt.Fprintf(&b, "Reason: %s\n", rec.Reason)
		b.WriteString(recordRule + "\n")
	}
	return b.String()
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// Write saves the report to <dir>/<name>.txt and returns the path.
func (r Report) Write(dir, name string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	path := filepath.Join(dir, strings.TrimSuffix(name, ".txt")+".txt")
	if err := os.WriteFile(path, []byte(r.Format()), 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}
