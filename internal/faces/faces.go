// Package faces defines the face-analysis capability used by the pipeline and the
// geometry helpers shared by its implementations.
package faces

import (
	"fmt"

	"github.com/andresmejia3/facemark/internal/imageio"
	"github.com/andresmejia3/facemark/internal/types"
)

// MaxUpsample bounds the CNN upsample factor. Each step doubles both image sides.
const MaxUpsample = 3

// MinAlignIoU is the overlap needed to pair a requested location with a detected face.
const MinAlignIoU = 0.5

// Engine locates faces and computes their encodings. Calls block until the
// underlying library returns.
type Engine interface {
	// Detect returns the face boxes found in img. upsample only applies to CNN.
	Detect(img *imageio.Image, model types.Model, upsample int) ([]types.Location, error)
	// Encode returns one encoding per location, index-aligned with locs.
	Encode(img *imageio.Image, locs []types.Location) ([]types.Encoding, error)
	Close()
}

// CheckUpsample validates a CNN upsample factor.
func CheckUpsample(n int) error {
	if n < 0 || n > MaxUpsample {
		return fmt.Errorf("%w: upsample must be between 0 and %d, got %d", types.ErrArgument, MaxUpsample, n)
	}
	return nil
}

// ComputeIoU calculates Intersection over Union between two boxes.
func ComputeIoU(a, b types.Location) float64 {
	inter := a.Rect().Intersect(b.Rect())
	if inter.Empty() {
		return 0
	}
	i := float64(inter.Dx() * inter.Dy())
	union := float64(a.Area()+b.Area()) - i
	if union <= 0 {
		return 0
	}
	return i / union
}

// Align maps each wanted location to the index of the found location it overlaps most.
// It fails with ErrEncoding when a wanted location has no partner above MinAlignIoU.
func Align(want, found []types.Location) ([]int, error) {
	idx := make([]int, len(want))
	for i, w := range want {
		best, bestIoU := -1, 0.0
		for j, f := range found {
			if iou := ComputeIoU(w, f); iou > bestIoU {
				best, bestIoU = j, iou
			}
		}
		if best < 0 || bestIoU < MinAlignIoU {
			return nil, fmt.Errorf("%w: no face could be encoded at %s", types.ErrEncoding, w)
		}
		idx[i] = best
	}
	return idx, nil
}

// Largest returns the index of the location with the biggest area, or -1 for an empty slice.
func Largest(locs []types.Location) int {
	best := -1
	for i, l := range locs {
		if best < 0 || l.Area() > locs[best].Area() {
			best = i
		}
	}
	return best
}

// Clamp limits loc to the pixel bounds of img.
func Clamp(loc types.Location, img *imageio.Image) types.Location {
	return types.LocationFromRect(loc.Rect().Intersect(img.Bounds()))
}
