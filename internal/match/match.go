// Package match decides whether face encodings belong to the same person.
package match

import (
	"fmt"
	"math"
	"strings"

	"github.com/Kagami/go-face"

	"github.com/andresmejia3/facemark/internal/types"
)

// Tolerance is the largest Euclidean distance at which two dlib encodings still match.
const Tolerance = 0.6

// Distance returns the Euclidean distance between two encodings.
func Distance(a, b types.Encoding) float64 {
	return math.Sqrt(face.SquaredEuclideanDistance(face.Descriptor(a), face.Descriptor(b)))
}

// Distances returns the distance from candidate to every known encoding, in order.
func Distances(known []types.Encoding, candidate types.Encoding) []float64 {
	out := make([]float64, len(known))
	for i, k := range known {
		out[i] = Distance(k, candidate)
	}
	return out
}

// Compare reports, per known encoding, whether candidate is within Tolerance.
func Compare(known []types.Encoding, candidate types.Encoding) []bool {
	dists := Distances(known, candidate)
	out := make([]bool, len(dists))
	for i, d := range dists {
		out[i] = d <= Tolerance
	}
	return out
}

// Strategy picks which known reference, if any, a candidate matches.
type Strategy int

const (
	// StrategyCompare accepts the first known encoding within Tolerance.
	StrategyCompare Strategy = iota + 1
	// StrategyNearest takes the closest known encoding and accepts it only if it is within Tolerance.
	StrategyNearest
)

// ParseStrategy accepts "compare" or "nearest".
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "compare":
		return StrategyCompare, nil
	case "nearest":
		return StrategyNearest, nil
	}
	return 0, fmt.Errorf("%w: unknown match strategy %q (use compare or nearest)", types.ErrArgument, s)
}

func (s Strategy) String() string {
	switch s {
	case StrategyCompare:
		return "compare"
	case StrategyNearest:
		return "nearest"
	}
	return fmt.Sprintf("Strategy(%d)", int(s))
}

// Set implements pflag.Value.
func (s *Strategy) Set(v string) error {
	p, err := ParseStrategy(v)
	if err != nil {
		return err
	}
	*s = p
	return nil
}

// Type implements pflag.Value.
func (s *Strategy) Type() string {
	return "compare|nearest"
}

// Match returns the index of the matched known encoding and its distance.
// ok is false when nothing matched or known is empty.
func (s Strategy) Match(known []types.Encoding, candidate types.Encoding) (index int, distance float64, ok bool) {
	if len(known) == 0 {
		return -1, 0, false
	}
	dists := Distances(known, candidate)

	switch s {
	case StrategyNearest:
		best := 0
		for i, d := range dists {
			if d < dists[best] {
				best = i
			}
		}
		if dists[best] > Tolerance {
			return -1, 0, false
		}
		return best, dists[best], true
	default:
		for i, d := range dists {
			if d <= Tolerance {
				return i, d, true
			}
		}
		return -1, 0, false
	}
}
