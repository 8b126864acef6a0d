package imagescan

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// minMarker is the smallest box drawn, so collapsed images stay visible.
const minMarker = 24

var (
	boxColor     = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	textColor    = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	outlineColor = color.RGBA{R: 0, G: 0, B: 0, A: 200}
)

// Annotate draws a box and index label over each record with a known
// position. screenW and screenH are the session's window size; the
// screenshot may be captured at a different resolution.
func Annotate(screenshot []byte, records []Record, screenW, screenH int) ([]byte, error) {
	src, err := png.Decode(bytes.NewReader(screenshot))
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}

	bounds := src.Bounds()
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, src, bounds.Min, draw.Src)

	scaleX, scaleY := 1.0, 1.0
	if screenW > 0 {
		scaleX = float64(bounds.Dx()) / float64(screenW)
	}
	if screenH > 0 {
		scaleY = float64(bounds.Dy()) / float64(screenH)
	}

	for _, rec := range records {
		if !rec.HasSize {
			continue
		}
		x := int(float64(rec.Rect.X) * scaleX)
		y := int(float64(rec.Rect.Y) * scaleY)
		w := max(int(float64(rec.Rect.Width)*scaleX), minMarker)
		h := max(int(float64(rec.Rect.Height)*scaleY), minMarker)

		drawRectangle(rgba, x, y, x+w, y+h, boxColor)
		drawLabel(rgba, fmt.Sprintf("#%d", rec.Index), x+2, y+h/2)
	}

	var out bytes.Buffer
	if err := png.Encode(&out, rgba); err != nil {
		return nil, fmt.Errorf("encode screenshot: %w", err)
	}
	return out.Bytes(), nil
}

// WriteAnnotated saves an annotated screenshot as <dir>/<name>_annotated.png.
func WriteAnnotated(dir, name string, screenshot []byte, records []Record, screenW, screenH int) (string, error) {
	data, err := Annotate(screenshot, records, screenW, screenH)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, name+"_annotated.png")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func drawRectangle(img *image.RGBA, x1, y1, x2, y2 int, c color.Color) {
	b := img.Bounds()
	x1, y1 = max(x1, b.Min.X), max(y1, b.Min.Y)
	x2, y2 = min(x2, b.Max.X), min(y2, b.Max.Y)
	if x2 <= x1 || y2 <= y1 {
		return
	}

	// two pixel border
	for t := 0; t < 2; t++ {
		for x := x1; x < x2; x++ {
			img.Set(x, min(y1+t, y2-1), c)
			img.Set(x, max(y2-1-t, y1), c)
		}
		for y := y1; y < y2; y++ {
			img.Set(min(x1+t, x2-1), y, c)
			img.Set(max(x2-1-t, x1), y, c)
		}
	}
}

func drawLabel(img *image.RGBA, text string, x, y int) {
	stamp := func(dx, dy int, c color.Color) {
		d := &font.Drawer{
			Dst:  img,
			Src:  image.NewUniform(c),
			Face: basicfont.Face7x13,
			Dot:  fixed.P(x+dx, y+dy),
		}
		d.DrawString(text)
	}
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			if dx != 0 || dy != 0 {
				stamp(dx, dy, outlineColor)
			}
		}
	}
	stamp(0, 0, textColor)
}
