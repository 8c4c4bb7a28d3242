// Package pipeline strings loading, detection, encoding and matching together for one run.
package pipeline

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/andresmejia3/facemark/internal/faces"
	"github.com/andresmejia3/facemark/internal/imageio"
	"github.com/andresmejia3/facemark/internal/match"
	"github.com/andresmejia3/facemark/internal/types"
)

// Stage names reported through OnStage.
const (
	StageLoading   = "Loading"
	StageDetecting = "Detecting"
	StageEncoding  = "Encoding"
	StageMatching  = "Matching"
)

type Pipeline struct {
	Engine faces.Engine
	// Status receives warnings. nil discards them.
	Status io.Writer
	// OnStage is called before each step, with the stage name and the file it applies to.
	OnStage func(stage, path string)
}

// Reference is the single face taken from a known image.
type Reference struct {
	Path     string
	Loc      types.Location
	Encoding types.Encoding
}

// Name is the file name without its extension, used for labels.
func (r Reference) Name() string {
	base := filepath.Base(r.Path)
	return base[:len(base)-len(filepath.Ext(base))]
}

// Match is a face of the unknown image that resembles a known reference.
type Match struct {
	Loc        types.Location
	KnownIndex int
	Distance   float64
}

type RecognizeOptions struct {
	Model    types.Model
	Upsample int
	Strategy match.Strategy
}

// Result of a recognize run. Faces holds every face found in the unknown image; Matches
// only the accepted ones.
type Result struct {
	Image   *imageio.Image
	Known   []Reference
	Faces   []types.Location
	Matches []Match
}

func (p *Pipeline) stage(name, path string) {
	if p.OnStage != nil {
		p.OnStage(name, path)
	}
}

func (p *Pipeline) warnf(format string, args ...any) {
	if p.Status != nil {
		fmt.Fprintf(p.Status, format, args...)
	}
}

// Detect loads the image at path and returns it with its face locations.
func (p *Pipeline) Detect(path string, model types.Model, upsample int) (*imageio.Image, []types.Location, error) {
	p.stage(StageLoading, path)
	img, err := imageio.Load(path)
	if err != nil {
		return nil, nil, err
	}

	p.stage(StageDetecting, path)
	locs, err := p.Engine.Detect(img, model, upsample)
	if err != nil {
		return nil, nil, err
	}
	return img, locs, nil
}

// Reference detects the face in a known image and encodes it. An image without a face is
// rejected; with several faces the largest one wins.
func (p *Pipeline) Reference(path string, model types.Model, upsample int) (Reference, error) {
	img, locs, err := p.Detect(path, model, upsample)
	if err != nil {
		return Reference{}, err
	}

	if len(locs) == 0 {
		return Reference{}, fmt.Errorf("%w: no face detected in %s", types.ErrPrecondition, path)
	}
	best := locs[0]
	if len(locs) > 1 {
		p.warnf("⚠️  Multiple faces detected in %s (%d). Using the largest face.\n", filepath.Base(path), len(locs))
		best = locs[faces.Largest(locs)]
	}

	p.stage(StageEncoding, path)
	encs, err := p.Engine.Encode(img, []types.Location{best})
	if err != nil {
		return Reference{}, err
	}
	if len(encs) != 1 {
		return Reference{}, fmt.Errorf("%w: expected 1 encoding for %s, got %d", types.ErrEncoding, path, len(encs))
	}
	return Reference{Path: path, Loc: best, Encoding: encs[0]}, nil
}

// Recognize encodes every known image, then reports which faces of the unknown image match
// one of them.
func (p *Pipeline) Recognize(knownPaths []string, unknownPath string, opts RecognizeOptions) (*Result, error) {
	if len(knownPaths) == 0 {
		return nil, fmt.Errorf("%w: at least one known image is required", types.ErrArgument)
	}

	res := &Result{}
	known := make([]types.Encoding, 0, len(knownPaths))
	for _, path := range knownPaths {
		ref, err := p.Reference(path, opts.Model, opts.Upsample)
		if err != nil {
			return nil, err
		}
		res.Known = append(res.Known, ref)
		known = append(known, ref.Encoding)
	}

	img, locs, err := p.Detect(unknownPath, opts.Model, opts.Upsample)
	if err != nil {
		return nil, err
	}
	res.Image = img
	res.Faces = locs
	if len(locs) == 0 {
		return res, nil
	}

	p.stage(StageEncoding, unknownPath)
	encs, err := p.Engine.Encode(img, locs)
	if err != nil {
		return nil, err
	}
	if len(encs) != len(locs) {
		return nil, fmt.Errorf("%w: got %d encodings for %d faces", types.ErrEncoding, len(encs), len(locs))
	}

	p.stage(StageMatching, unknownPath)
	for i, enc := range encs {
		idx, dist, ok := opts.Strategy.Match(known, enc)
		if !ok {
			continue
		}
		res.Matches = append(res.Matches, Match{Loc: locs[i], KnownIndex: idx, Distance: dist})
	}
	return res, nil
}
