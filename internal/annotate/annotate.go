package annotate

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/andresmejia3/facemark/internal/types"
)

// Style controls how boxes are drawn.
type Style struct {
	Color     color.Color
	Width     float64
	Margin    int     // pixels added on every side of a box
	LabelSize float64 // points
}

// DefaultStyle is a green 4px outline with no margin.
func DefaultStyle() Style {
	return Style{
		Color:     color.NRGBA{G: 255, A: 255},
		Width:     4,
		LabelSize: 18,
	}
}

// Box is one region to outline. Label is optional.
type Box struct {
	Loc   types.Location
	Label string
}

var (
	fontOnce sync.Once
	fontTTF  *truetype.Font
	fontErr  error
)

func labelFace(size float64) (font.Face, error) {
	fontOnce.Do(func() {
		fontTTF, fontErr = truetype.Parse(goregular.TTF)
	})
	if fontErr != nil {
		return nil, fmt.Errorf("failed to parse label font: %w", fontErr)
	}
	return truetype.NewFace(fontTTF, &truetype.Options{Size: size}), nil
}

// Draw returns a copy of img with every box outlined. img itself is left untouched and the
// result has the same bounds.
func Draw(img image.Image, boxes []Box, style Style) (image.Image, error) {
	if style.Color == nil {
		style.Color = DefaultStyle().Color
	}
	if style.Width <= 0 {
		style.Width = DefaultStyle().Width
	}

	dc := gg.NewContextForImage(img)
	// gg works in a 0-based coordinate space
	origin := img.Bounds().Min

	hasLabels := false
	for _, b := range boxes {
		if b.Label != "" {
			hasLabels = true
			break
		}
	}
	if hasLabels {
		size := style.LabelSize
		if size <= 0 {
			size = DefaultStyle().LabelSize
		}
		face, err := labelFace(size)
		if err != nil {
			return nil, err
		}
		dc.SetFontFace(face)
	}

	dc.SetLineWidth(style.Width)
	dc.SetStrokeStyle(gg.NewSolidPattern(style.Color))
	dc.SetColor(style.Color)

	for _, b := range boxes {
		loc := b.Loc.Expand(style.Margin)
		x := float64(loc.Left - origin.X)
		y := float64(loc.Top - origin.Y)

		dc.DrawRectangle(x, y, float64(loc.Width()), float64(loc.Height()))
		dc.Stroke()

		if b.Label != "" {
			_, h := dc.MeasureString(b.Label)
			dc.DrawString(b.Label, x, y+float64(loc.Height())+style.Width+h)
		}
	}

	return dc.Image(), nil
}
