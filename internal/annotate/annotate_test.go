package annotate

import (
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/andresmejia3/facemark/internal/imageio"
	"github.com/andresmejia3/facemark/internal/types"
	"github.com/andresmejia3/facemark/internal/utils"
)

func blank(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	return img
}

func isGreen(c color.Color) bool {
	r, g, b, _ := c.RGBA()
	return r < 0x2000 && g > 0xe000 && b < 0x2000
}

func TestDrawOutlinesBoxes(t *testing.T) {
	src := blank(120, 80)
	loc := types.Location{Top: 20, Right: 70, Bottom: 60, Left: 30}

	out, err := Draw(src, []Box{{Loc: loc}}, DefaultStyle())
	if err != nil {
		t.Fatalf("Draw failed: %v", err)
	}

	if out.Bounds() != src.Bounds() {
		t.Errorf("bounds changed: got %v, want %v", out.Bounds(), src.Bounds())
	}
	// Edges are painted
	if !isGreen(out.At(30, 40)) || !isGreen(out.At(70, 40)) || !isGreen(out.At(50, 20)) || !isGreen(out.At(50, 60)) {
		t.Error("expected green pixels on the box edges")
	}
	// Interior and exterior are not
	if isGreen(out.At(50, 40)) {
		t.Error("box interior should not be filled")
	}
	if isGreen(out.At(5, 5)) {
		t.Error("pixels away from the box should be untouched")
	}
	// Source is not mutated
	if isGreen(src.At(30, 40)) {
		t.Error("Draw mutated its input")
	}
}

func TestDrawMargin(t *testing.T) {
	src := blank(120, 80)
	loc := types.Location{Top: 20, Right: 70, Bottom: 60, Left: 30}
	style := DefaultStyle()
	style.Margin = 10

	out, err := Draw(src, []Box{{Loc: loc}}, style)
	if err != nil {
		t.Fatal(err)
	}
	if !isGreen(out.At(20, 40)) {
		t.Error("expected the outline to move out by the margin")
	}
	if isGreen(out.At(30, 40)) {
		t.Error("unexpanded edge should be inside the expanded box")
	}
}

func TestDrawLabelsAndEmpty(t *testing.T) {
	src := blank(200, 150)

	out, err := Draw(src, nil, DefaultStyle())
	if err != nil {
		t.Fatal(err)
	}
	for y := 0; y < 150; y += 10 {
		for x := 0; x < 200; x += 10 {
			if isGreen(out.At(x, y)) {
				t.Fatalf("no boxes should leave the image unchanged, found green at (%d, %d)", x, y)
			}
		}
	}

	loc := types.Location{Top: 10, Right: 90, Bottom: 60, Left: 10}
	out, err = Draw(src, []Box{{Loc: loc, Label: "alice 0.31"}}, DefaultStyle())
	if err != nil {
		t.Fatalf("Draw with label failed: %v", err)
	}
	found := false
	for y := 64; y < 110 && !found; y++ {
		for x := 10; x < 120; x++ {
			if isGreen(out.At(x, y)) {
				found = true
				break
			}
		}
	}
	if !found {
		t.Error("expected label text below the box")
	}
}

func TestDrawSaveReloadKeepsDimensions(t *testing.T) {
	src := blank(64, 48)
	out, err := Draw(src, []Box{{Loc: types.Location{Top: 5, Right: 40, Bottom: 30, Left: 10}}}, DefaultStyle())
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "annotated.png")
	if err := imageio.Save(out, path, imageio.DefaultSaveOptions()); err != nil {
		t.Fatal(err)
	}
	img, err := imageio.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if img.Width() != 64 || img.Height() != 48 {
		t.Errorf("reloaded size = %dx%d, want 64x48", img.Width(), img.Height())
	}
}

func TestViewerShow(t *testing.T) {
	var gotArgs []string
	var gotWait bool
	orig := run
	defer func() { run = orig }()
	run = func(s *utils.SafeCommand, wait bool) error {
		gotArgs = s.Args
		gotWait = wait
		return nil
	}

	v := Viewer{Command: "feh --scale-down", Wait: true}
	path, err := v.Show(blank(10, 10))
	if err != nil {
		t.Fatalf("Show failed: %v", err)
	}
	defer os.Remove(path)

	if !strings.HasPrefix(filepath.Base(path), "facemark-") || filepath.Ext(path) != ".png" {
		t.Errorf("unexpected temp file name %q", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("temp file not written: %v", err)
	}
	want := []string{"feh", "--scale-down", path}
	if strings.Join(gotArgs, " ") != strings.Join(want, " ") {
		t.Errorf("args = %v, want %v", gotArgs, want)
	}
	if !gotWait {
		t.Error("expected Wait to be passed through")
	}
}

func TestViewerShowFailure(t *testing.T) {
	orig := run
	defer func() { run = orig }()
	boom := errors.New("no display")
	run = func(s *utils.SafeCommand, wait bool) error {
		return &utils.CommandError{Name: s.Path, Err: boom, Stderr: "cannot open display"}
	}

	path, err := Viewer{Command: "feh"}.Show(blank(4, 4))
	defer os.Remove(path)
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped viewer error, got %v", err)
	}
	var cerr *utils.CommandError
	if !errors.As(err, &cerr) || cerr.Stderr != "cannot open display" {
		t.Errorf("captured stderr lost: %v", err)
	}
}

func TestDefaultCommand(t *testing.T) {
	tests := []struct {
		goos string
		want string
	}{
		{"linux", "xdg-open /tmp/x.png"},
		{"darwin", "open /tmp/x.png"},
		{"windows", "rundll32 url.dll,FileProtocolHandler /tmp/x.png"},
		{"plan9", ""},
	}

	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			name, args := defaultCommand(tt.goos, "/tmp/x.png")
			got := strings.TrimSpace(name + " " + strings.Join(args, " "))
			if got != tt.want {
				t.Errorf("defaultCommand(%q) = %q, want %q", tt.goos, got, tt.want)
			}
		})
	}
}
