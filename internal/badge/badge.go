// Package badge draws the red star icon with the due count on it.
package badge

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const Size = 64

var (
	starRed = color.RGBA{R: 0xff, A: 0xff}
	white   = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
)

// maxShown is the largest count drawn as digits; anything above reads "999+".
const maxShown = 999

// Label is the text form used in terminal views. It caps the same way as
// the icon.
func Label(count int) string {
	if count <= 0 {
		return "☆"
	}
	return "★ " + countText(count)
}

func countText(count int) string {
	if count > maxShown {
		return fmt.Sprintf("%d+", maxShown)
	}
	return strconv.Itoa(count)
}

// Render draws the star. Counts above 999 are drawn as "999+"; zero draws an
// empty star.
func Render(count int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, Size, Size))
	star := starPolygon(Size/2, Size/2, Size/2-1, float64(Size)*0.2)

	for y := 0; y < Size; y++ {
		for x := 0; x < Size; x++ {
			if inside(star, float64(x)+0.5, float64(y)+0.5) {
				img.SetRGBA(x, y, starRed)
			}
		}
	}

	if count > 0 {
		text := countText(count)
		face := basicfont.Face7x13
		width := font.MeasureString(face, text).Ceil()
		d := &font.Drawer{
			Dst:  img,
			Src:  image.NewUniform(white),
			Face: face,
			Dot:  fixed.P((Size-width)/2, Size/2+5),
		}
		d.DrawString(text)
	}
	return img
}

// Encode returns the PNG bytes of Render(count).
func Encode(count int) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, Render(count)); err != nil {
		return nil, fmt.Errorf("encoding badge: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteIcon caches the badge for count under dir and returns its path.
func WriteIcon(dir string, count int) (string, error) {
	if count > 999 {
		count = 1000
	}
	path := filepath.Join(dir, fmt.Sprintf("star-%d.png", max(count, 0)))
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	data, err := Encode(count)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating icon directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing badge: %w", err)
	}
	return path, nil
}

type point struct{ x, y float64 }

func starPolygon(cx, cy int, outer, inner float64) []point {
	pts := make([]point, 0, 10)
	for i := 0; i < 10; i++ {
		r := outer
		if i%2 == 1 {
			r = inner
		}
		angle := float64(i)*math.Pi/5 - math.Pi/2
		pts = append(pts, point{
			x: float64(cx) + r*math.Cos(angle),
			y: float64(cy) + r*math.Sin(angle),
		})
	}
	return pts
}

// inside is the even-odd ray casting test.
func inside(poly []point, x, y float64) bool {
	in := false
	for i, j := 0, len(poly)-1; i < len(poly); j, i = i, i+1 {
		a, b := poly[i], poly[j]
		if (a.y > y) != (b.y > y) && x < (b.x-a.x)*(y-a.y)/(b.y-a.y)+a.x {
			in = !in
		}
	}
	return in
}
