// Package dlib implements faces.Engine on top of the dlib models through go-face.
package dlib

import (
	"fmt"
	"image"
	"os"

	"github.com/Kagami/go-face"

	"github.com/andresmejia3/facemark/internal/faces"
	"github.com/andresmejia3/facemark/internal/imageio"
	"github.com/andresmejia3/facemark/internal/types"
)

// ModelFiles lists the dlib model files expected in the models directory.
var ModelFiles = []string{
	"shape_predictor_5_face_landmarks.dat",
	"dlib_face_recognition_resnet_model_v1.dat",
	"mmod_human_face_detector.dat",
}

// recognizer is the subset of *face.Recognizer the engine uses.
type recognizer interface {
	Recognize(imgData []byte) ([]face.Face, error)
	RecognizeCNN(imgData []byte) ([]face.Face, error)
	Close()
}

// recognition is the cached result of one detection pass.
type recognition struct {
	img      *imageio.Image
	model    types.Model
	upsample int
	faces    []types.Face
}

// Engine runs detection and encoding with a single go-face recognizer.
type Engine struct {
	rec  recognizer
	last *recognition
}

// New loads the dlib models from modelsDir.
func New(modelsDir string) (*Engine, error) {
	info, err := os.Stat(modelsDir)
	if err != nil {
		return nil, fmt.Errorf("%w: models directory %s: %w", types.ErrFile, modelsDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: models path %s is not a directory", types.ErrFile, modelsDir)
	}

	rec, err := face.NewRecognizer(modelsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load face models from %s: %w", modelsDir, err)
	}
	return &Engine{rec: rec}, nil
}

// Close frees the recognizer. Safe to call more than once.
func (e *Engine) Close() {
	if e.rec != nil {
		e.rec.Close()
		e.rec = nil
	}
	e.last = nil
}

// Detect implements faces.Engine.
func (e *Engine) Detect(img *imageio.Image, model types.Model, upsample int) ([]types.Location, error) {
	found, err := e.recognize(img, model, upsample)
	if err != nil {
		return nil, err
	}
	locs := make([]types.Location, len(found))
	for i, f := range found {
		locs[i] = f.Loc
	}
	return locs, nil
}

// Encode implements faces.Engine. go-face computes descriptors during detection, so the
// requested locations are matched against the faces of the latest pass over img.
// Images that were never detected get a HOG pass.
func (e *Engine) Encode(img *imageio.Image, locs []types.Location) ([]types.Encoding, error) {
	if len(locs) == 0 {
		return []types.Encoding{}, nil
	}

	var found []types.Face
	if e.last != nil && e.last.img == img {
		found = e.last.faces
	} else {
		var err error
		if found, err = e.recognize(img, types.HOG, 0); err != nil {
			return nil, err
		}
	}

	foundLocs := make([]types.Location, len(found))
	for i, f := range found {
		foundLocs[i] = f.Loc
	}
	idx, err := faces.Align(locs, foundLocs)
	if err != nil {
		return nil, err
	}

	out := make([]types.Encoding, len(locs))
	for i, j := range idx {
		out[i] = found[j].Vec
	}
	return out, nil
}

func (e *Engine) recognize(img *imageio.Image, model types.Model, upsample int) ([]types.Face, error) {
	if e.rec == nil {
		return nil, fmt.Errorf("face engine is closed")
	}
	if !model.Valid() {
		return nil, fmt.Errorf("%w: unsupported model %s", types.ErrModel, model)
	}
	if model == types.HOG {
		upsample = 0
	}
	if err := faces.CheckUpsample(upsample); err != nil {
		return nil, err
	}
	if l := e.last; l != nil && l.img == img && l.model == model && l.upsample == upsample {
		return l.faces, nil
	}

	scale := 1 << upsample
	src := img.Upscale(scale)
	data, err := src.JPEG()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", types.ErrDecode, img.Path, err)
	}

	var raw []face.Face
	if model == types.CNN {
		raw, err = e.rec.RecognizeCNN(data)
	} else {
		raw, err = e.rec.Recognize(data)
	}
	if err != nil {
		return nil, fmt.Errorf("%s detection failed on %s: %w", model, img.Path, err)
	}

	found := make([]types.Face, 0, len(raw))
	for _, f := range raw {
		loc := faces.Clamp(types.LocationFromRect(scaleDown(f.Rectangle, scale)), img)
		if loc.Area() == 0 {
			continue
		}
		found = append(found, types.Face{Loc: loc, Vec: types.Encoding(f.Descriptor)})
	}

	e.last = &recognition{img: img, model: model, upsample: upsample, faces: found}
	return found, nil
}

func scaleDown(r image.Rectangle, scale int) image.Rectangle {
	if scale <= 1 {
		return r
	}
	return image.Rect(r.Min.X/scale, r.Min.Y/scale, r.Max.X/scale, r.Max.Y/scale)
}
