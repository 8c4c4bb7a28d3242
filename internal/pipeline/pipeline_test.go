package pipeline

import (
	"bytes"
	"errors"
	"image"
	"path/filepath"
	"strings"
	"testing"

	"github.com/andresmejia3/facemark/internal/imageio"
	"github.com/andresmejia3/facemark/internal/match"
	"github.com/andresmejia3/facemark/internal/types"
)

type fakeFace struct {
	loc types.Location
	enc types.Encoding
}

// fakeEngine returns canned faces keyed by the image file name.
type fakeEngine struct {
	faces     map[string][]fakeFace
	detectErr error
	encodeErr error
	short     bool // drop the last encoding
}

func (f *fakeEngine) Detect(img *imageio.Image, model types.Model, upsample int) ([]types.Location, error) {
	if f.detectErr != nil {
		return nil, f.detectErr
	}
	var locs []types.Location
	for _, ff := range f.faces[filepath.Base(img.Path)] {
		locs = append(locs, ff.loc)
	}
	return locs, nil
}

func (f *fakeEngine) Encode(img *imageio.Image, locs []types.Location) ([]types.Encoding, error) {
	if f.encodeErr != nil {
		return nil, f.encodeErr
	}
	var out []types.Encoding
	for _, l := range locs {
		for _, ff := range f.faces[filepath.Base(img.Path)] {
			if ff.loc == l {
				out = append(out, ff.enc)
			}
		}
	}
	if f.short && len(out) > 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (f *fakeEngine) Close() {}

func enc(v float32) types.Encoding {
	var e types.Encoding
	e[0] = v
	return e
}

func box(left, size int) types.Location {
	return types.Location{Top: 10, Right: left + size, Bottom: 10 + size, Left: left}
}

// writeImages creates blank PNGs in a temp dir and returns their paths by name.
func writeImages(t *testing.T, names ...string) map[string]string {
	t.Helper()
	dir := t.TempDir()
	paths := make(map[string]string)
	for _, n := range names {
		p := filepath.Join(dir, n)
		if err := imageio.Save(image.NewNRGBA(image.Rect(0, 0, 100, 60)), p, imageio.DefaultSaveOptions()); err != nil {
			t.Fatal(err)
		}
		paths[n] = p
	}
	return paths
}

func TestDetect(t *testing.T) {
	paths := writeImages(t, "group.png")
	eng := &fakeEngine{faces: map[string][]fakeFace{
		"group.png": {{loc: box(0, 20)}, {loc: box(40, 20)}},
	}}

	var stages []string
	p := &Pipeline{Engine: eng, OnStage: func(stage, path string) { stages = append(stages, stage) }}

	img, locs, err := p.Detect(paths["group.png"], types.HOG, 0)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if img.Width() != 100 || img.Height() != 60 {
		t.Errorf("image size = %dx%d", img.Width(), img.Height())
	}
	if len(locs) != 2 {
		t.Errorf("got %d faces, want 2", len(locs))
	}
	if strings.Join(stages, ",") != "Loading,Detecting" {
		t.Errorf("stages = %v", stages)
	}
}

func TestDetectErrors(t *testing.T) {
	paths := writeImages(t, "a.png")
	p := &Pipeline{Engine: &fakeEngine{}}

	if _, _, err := p.Detect(filepath.Join(t.TempDir(), "nope.png"), types.HOG, 0); !errors.Is(err, types.ErrFile) {
		t.Errorf("missing file: got %v, want ErrFile", err)
	}

	p.Engine = &fakeEngine{detectErr: types.ErrModel}
	if _, _, err := p.Detect(paths["a.png"], types.HOG, 0); !errors.Is(err, types.ErrModel) {
		t.Errorf("engine error: got %v, want ErrModel", err)
	}
}

func TestRecognize(t *testing.T) {
	paths := writeImages(t, "alice.png", "bob.png", "crowd.png")
	eng := &fakeEngine{faces: map[string][]fakeFace{
		"alice.png": {{loc: box(0, 30), enc: enc(0)}},
		"bob.png":   {{loc: box(0, 30), enc: enc(1)}},
		"crowd.png": {
			{loc: box(0, 20), enc: enc(0.1)},   // alice
			{loc: box(25, 20), enc: enc(5)},    // decoy
			{loc: box(50, 20), enc: enc(0.55)}, // within tolerance of both, closer to bob
			{loc: box(75, 20), enc: enc(-9)},   // decoy
		},
	}}
	p := &Pipeline{Engine: eng}

	tests := []struct {
		name     string
		strategy match.Strategy
		want     []int // KnownIndex per match
	}{
		{"Compare picks first within tolerance", match.StrategyCompare, []int{0, 0}},
		{"Nearest picks closest", match.StrategyNearest, []int{0, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := p.Recognize(
				[]string{paths["alice.png"], paths["bob.png"]},
				paths["crowd.png"],
				RecognizeOptions{Model: types.HOG, Strategy: tt.strategy},
			)
			if err != nil {
				t.Fatalf("Recognize failed: %v", err)
			}
			if len(res.Faces) != 4 {
				t.Errorf("got %d faces, want 4", len(res.Faces))
			}
			if len(res.Matches) < 1 || len(res.Matches) > len(res.Faces) {
				t.Fatalf("match count %d out of range", len(res.Matches))
			}
			var got []int
			for _, m := range res.Matches {
				got = append(got, m.KnownIndex)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("matches = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("matches = %v, want %v", got, tt.want)
				}
			}
			if res.Matches[0].Loc != box(0, 20) {
				t.Errorf("first match at %v", res.Matches[0].Loc)
			}
			if res.Known[1].Name() != "bob" {
				t.Errorf("reference name = %q", res.Known[1].Name())
			}
		})
	}
}

func TestRecognizeNoMatch(t *testing.T) {
	paths := writeImages(t, "alice.png", "strangers.png")
	eng := &fakeEngine{faces: map[string][]fakeFace{
		"alice.png":     {{loc: box(0, 30), enc: enc(0)}},
		"strangers.png": {{loc: box(0, 20), enc: enc(3)}, {loc: box(30, 20), enc: enc(4)}},
	}}
	p := &Pipeline{Engine: eng}

	res, err := p.Recognize([]string{paths["alice.png"]}, paths["strangers.png"], RecognizeOptions{Model: types.HOG})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Matches) != 0 {
		t.Errorf("expected no matches, got %v", res.Matches)
	}
}

func TestRecognizeKnownPreconditions(t *testing.T) {
	paths := writeImages(t, "empty.png", "pair.png", "target.png")
	eng := &fakeEngine{faces: map[string][]fakeFace{
		"pair.png": {
			{loc: box(0, 10), enc: enc(7)},
			{loc: box(20, 40), enc: enc(0)}, // largest
		},
		"target.png": {{loc: box(0, 20), enc: enc(0.2)}},
	}}

	var status bytes.Buffer
	p := &Pipeline{Engine: eng, Status: &status}

	_, err := p.Recognize([]string{paths["empty.png"]}, paths["target.png"], RecognizeOptions{Model: types.HOG})
	if !errors.Is(err, types.ErrPrecondition) {
		t.Errorf("known image without faces: got %v, want ErrPrecondition", err)
	}

	res, err := p.Recognize([]string{paths["pair.png"]}, paths["target.png"], RecognizeOptions{Model: types.HOG})
	if err != nil {
		t.Fatalf("Recognize failed: %v", err)
	}
	if res.Known[0].Loc != box(20, 40) {
		t.Errorf("expected the largest face to be used, got %v", res.Known[0].Loc)
	}
	if len(res.Matches) != 1 {
		t.Errorf("expected 1 match against the largest face, got %d", len(res.Matches))
	}
	if !strings.Contains(status.String(), "Multiple faces detected") {
		t.Errorf("expected a warning, got %q", status.String())
	}
}

func TestRecognizeErrors(t *testing.T) {
	paths := writeImages(t, "alice.png", "crowd.png")
	faces := map[string][]fakeFace{
		"alice.png": {{loc: box(0, 30), enc: enc(0)}},
		"crowd.png": {{loc: box(0, 20), enc: enc(0)}, {loc: box(30, 20), enc: enc(0)}},
	}

	tests := []struct {
		name  string
		eng   *fakeEngine
		known []string
		want  error
	}{
		{"No known images", &fakeEngine{faces: faces}, nil, types.ErrArgument},
		{"Encoding failure", &fakeEngine{faces: faces, encodeErr: types.ErrEncoding}, []string{paths["alice.png"]}, types.ErrEncoding},
		{"Short encoding result", &fakeEngine{faces: faces, short: true}, []string{paths["alice.png"]}, types.ErrEncoding},
		{"Missing known file", &fakeEngine{faces: faces}, []string{paths["alice.png"] + ".missing"}, types.ErrFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Pipeline{Engine: tt.eng}
			_, err := p.Recognize(tt.known, paths["crowd.png"], RecognizeOptions{Model: types.HOG})
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}
