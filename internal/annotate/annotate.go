package annotate

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/dustin/go-humanize"
	"github.com/golang/freetype"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/roman-kulish/drone-geofusion/internal/geo"
)

const (
	dpi     float64 = 72
	size    float64 = 14
	spacing float64 = 1.1

	armLength = 10 // crosshair arm in pixels

	hueLow  = 0.0   // red, no confidence
	hueHigh = 120.0 // green, full confidence
)

// Mark is a detection to draw on a frame
type Mark struct {
	X, Y       int
	Label      string
	Location   geo.Location
	Confidence float64 // Detection confidence in [0, 1]
}

// Annotator draws detection marks and captions onto frames. It is not safe
// for concurrent use.
type Annotator struct {
	context *freetype.Context
}

func NewAnnotator() (*Annotator, error) {
	parsedFont, err := freetype.ParseFont(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}

	context := freetype.NewContext()
	context.SetDPI(dpi)
	context.SetFont(parsedFont)
	context.SetFontSize(size)
	context.SetHinting(font.HintingFull)
	context.SetSrc(image.White)

	return &Annotator{context: context}, nil
}

// Annotate draws a crosshair and a location label for every mark
func (a *Annotator) Annotate(img *image.RGBA, marks []Mark) error {
	a.context.SetClip(img.Bounds())
	a.context.SetDst(img)

	for _, m := range marks {
		c := MarkerColor(m.Confidence)
		drawCrosshair(img, m.X, m.Y, c)

		a.context.SetSrc(image.NewUniform(c))
		pt := freetype.Pt(m.X+armLength+3, m.Y-3)
		if _, err := a.context.DrawString(Label(m), pt); err != nil {
			return fmt.Errorf("drawing label of '%s': %w", m.Label, err)
		}
	}

	return nil
}

// Caption writes lines of text in the bottom left corner of the frame
func (a *Annotator) Caption(img *image.RGBA, lines []string) error {
	a.context.SetClip(img.Bounds())
	a.context.SetDst(img)
	a.context.SetSrc(image.White)

	lineHeight := a.context.PointToFixed(size * spacing)
	top := img.Bounds().Max.Y - 3 - int(lineHeight.Ceil())*(len(lines)-1)

	pt := freetype.Pt(img.Bounds().Min.X+3, top)
	for _, s := range lines {
		if _, err := a.context.DrawString(s, pt); err != nil {
			return fmt.Errorf("drawing caption: %w", err)
		}
		pt.Y += lineHeight
	}

	return nil
}

// Label formats the text drawn next to a mark
func Label(m Mark) string {
	return fmt.Sprintf("%s %.5f, %.5f ±%s", m.Label, m.Location.Latitude, m.Location.Longitude,
		humanize.SIWithDigits(m.Location.AccuracyMeters, 1, "m"))
}

// MarkerColor maps a confidence onto a red to green hue
func MarkerColor(confidence float64) color.Color {
	if math.IsNaN(confidence) {
		confidence = 0
	}
	c := math.Max(0, math.Min(1, confidence))

	return colorful.Hsv(hueLow+(hueHigh-hueLow)*c, 1, 0.90)
}

func drawCrosshair(img *image.RGBA, x, y int, c color.Color) {
	for i := -armLength; i <= armLength; i++ {
		img.Set(x+i, y, c)
		img.Set(x, y+i, c)
	}
}
