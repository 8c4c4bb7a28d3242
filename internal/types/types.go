package types

import (
	"fmt"
	"image"
	"strings"
)

// EncodingDim is the length of a dlib face descriptor.
const EncodingDim = 128

// Location is a face bounding box in pixel coordinates, ordered [top, right, bottom, left]
// like the face_recognition convention.
type Location struct {
	Top, Right, Bottom, Left int
}

// LocationFromRect converts an image.Rectangle into a Location.
func LocationFromRect(r image.Rectangle) Location {
	return Location{Top: r.Min.Y, Right: r.Max.X, Bottom: r.Max.Y, Left: r.Min.X}
}

// Rect returns the box as an image.Rectangle (Min inclusive, Max exclusive).
func (l Location) Rect() image.Rectangle {
	return image.Rect(l.Left, l.Top, l.Right, l.Bottom)
}

func (l Location) Width() int  { return l.Right - l.Left }
func (l Location) Height() int { return l.Bottom - l.Top }

// Area is zero for degenerate boxes.
func (l Location) Area() int {
	if l.Width() <= 0 || l.Height() <= 0 {
		return 0
	}
	return l.Width() * l.Height()
}

// Expand grows the box by margin pixels on every side.
func (l Location) Expand(margin int) Location {
	return Location{
		Top:    l.Top - margin,
		Right:  l.Right + margin,
		Bottom: l.Bottom + margin,
		Left:   l.Left - margin,
	}
}

func (l Location) String() string {
	return fmt.Sprintf("(%d, %d, %d, %d)", l.Top, l.Right, l.Bottom, l.Left)
}

// Encoding is the 128-d identity signature of a single face.
type Encoding [EncodingDim]float32

// Face pairs a detected location with its encoding.
type Face struct {
	Loc Location
	Vec Encoding
}

// Model selects the detection backend.
type Model int

const (
	HOG Model = iota + 1
	CNN
)

// ParseModel accepts "hog" or "cnn" (case-insensitive).
func ParseModel(s string) (Model, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hog":
		return HOG, nil
	case "cnn":
		return CNN, nil
	}
	return 0, fmt.Errorf("%w: unknown model %q (use hog or cnn)", ErrModel, s)
}

func (m Model) String() string {
	switch m {
	case HOG:
		return "hog"
	case CNN:
		return "cnn"
	}
	return fmt.Sprintf("Model(%d)", int(m))
}

// Valid reports whether m is one of the supported backends.
func (m Model) Valid() bool {
	return m == HOG || m == CNN
}

// Set implements pflag.Value so --model is validated while flags are parsed.
func (m *Model) Set(s string) error {
	v, err := ParseModel(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Type implements pflag.Value.
func (m *Model) Type() string {
	return "hog|cnn"
}
