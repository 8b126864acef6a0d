package imagescan

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devicelab-dev/appcheck/pkg/core"
)

var reportTime = time.Date(2026, 3, 1, 14, 5, 9, 0, time.Local)

func TestFormatEmpty(t *testing.T) {
	r := Report{Mode: ModeSingle, Timestamp: reportTime}

	want := "=== Broken Images Report ===\n" +
		"Generated: 2026-03-01 14:05:09\n" +
		"Mode: current screen only\n" +
		"Broken images found: 0\n" +
		headerRule + "\n\n" +
		"No broken images found.\n"
	assert.Equal(t, want, r.Format())
}

func TestFormatScrollRecords(t *testing.T) {
	r := Report{
		Mode:       ModeScroll,
		MaxScrolls: 5,
		Timestamp:  reportTime,
		Records: []Record{
			{
				Index:      3,
				ResourceID: "product_img",
				Bounds:     "[0,0][0,200]",
				Rect:       core.Bounds{Width: 0, Height: 200},
				HasSize:    true,
				Reason:     ReasonInvalidSize,
			},
			{Index: 4, Reason: "Error checking image: stale"},
		},
	}

	out := r.Format()
	assert.Contains(t, out, "Mode: scroll (full page)\nMax scrolls: 5\nBroken images found: 2\n")
	assert.Contains(t, out, "Index: 3\nResource ID: product_img\nContent-Desc: N/A\nBounds: [0,0][0,200]\nSize: 0x200\nReason: Invalid size (width or height <= 1)\n"+recordRule+"\n")
	assert.Contains(t, out, "Index: 4\nResource ID: N/A\nContent-Desc: N/A\nBounds: N/A\nSize: N/A\nReason: Error checking image: stale\n")
	assert.Equal(t, 2, strings.Count(out, recordRule))
	assert.Len(t, headerRule, 70)
	assert.Len(t, recordRule, 70)
}

func TestFormatSingleOmitsMaxScrolls(t *testing.T) {
	r := Report{Mode: ModeSingle, MaxScrolls: 9, Timestamp: reportTime}
	assert.NotContains(t, r.Format(), "Max scrolls")
}

func TestWrite(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "screenshots")
	r := Report{Mode: ModeSingle, Timestamp: reportTime}

	path, err := r.Write(dir, "home_broken_images")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "home_broken_images.txt"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, r.Format(), string(data))

	path, err = r.Write(dir, "report.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "report.txt"), path)
}
