// Package subspace models the named, weighted, contiguous slices of a
// fixed-width embedding that subspace resonance is computed over.
package subspace

import (
	"fmt"
	"math"

	"github.com/kindred-labs/resonance/internal/domain"
)

// weightSumTolerance bounds the allowed deviation of subspace weights from 1.0.
const weightSumTolerance = 0.01

// Subspace is a named index range [start, end) within an embedding, with a weight.
type Subspace struct {
	name   string
	start  int
	end    int
	weight float64
}

// New creates a subspace. Range and weight validity is checked by NewPartition,
// which is the only way a subspace becomes usable.
func New(name string, start, end int, weight float64) Subspace {
	return Subspace{name: name, start: start, end: end, weight: weight}
}

// Name returns the subspace name.
func (s *Subspace) Name() string { return s.name }

// Start returns the inclusive start index.
func (s *Subspace) Start() int { return s.start }

// End returns the exclusive end index.
func (s *Subspace) End() int { return s.end }

// Weight returns the subspace weight.
func (s *Subspace) Weight() float64 { return s.weight }

// Slice returns the sub-vector of vec covered by this subspace.
func (s *Subspace) Slice(vec []float32) []float32 { return vec[s.start:s.end] }

// Partition is a validated set of non-overlapping subspaces over a fixed embedding width.
// Immutable after construction.
type Partition struct {
	width     int
	subspaces []Subspace
	byName    map[string]int
}

// NewPartition validates and builds a partition. All ranges must be contiguous
// within themselves (start < end), stay inside [0, width), not overlap each
// other, and the weights must sum to 1.0 within tolerance.
func NewPartition(width int, subspaces []Subspace) (Partition, error) {
	if width <= 0 {
		return Partition{}, fmt.Errorf("%w: width must be positive, got %d", domain.ErrInvalidSubspaces, width)
	}
	if len(subspaces) == 0 {
		return Partition{}, fmt.Errorf("%w: at least one subspace is required", domain.ErrInvalidSubspaces)
	}

	byName := make(map[string]int, len(subspaces))
	covered := make([]bool, width)
	var weightSum float64

	for i, s := range subspaces {
		if s.name == "" {
			return Partition{}, fmt.Errorf("%w: subspace %d has no name", domain.ErrInvalidSubspaces, i)
		}
		if _, dup := byName[s.name]; dup {
			return Partition{}, fmt.Errorf("%w: duplicate subspace %q", domain.ErrInvalidSubspaces, s.name)
		}
		if s.start >= s.end {
			return Partition{}, fmt.Errorf(
				"%w: subspace %q has start %d >= end %d", domain.ErrInvalidSubspaces, s.name, s.start, s.end)
		}
		if s.start < 0 || s.end > width {
			return Partition{}, fmt.Errorf(
				"%w: subspace %q range [%d,%d) outside [0,%d)", domain.ErrInvalidSubspaces, s.name, s.start, s.end, width)
		}
		if s.weight <= 0 || math.IsNaN(s.weight) || math.IsInf(s.weight, 0) {
			return Partition{}, fmt.Errorf(
				"%w: subspace %q weight must be positive and finite", domain.ErrInvalidSubspaces, s.name)
		}
		for idx := s.start; idx < s.end; idx++ {
			if covered[idx] {
				return Partition{}, fmt.Errorf(
					"%w: subspace %q overlaps at index %d", domain.ErrInvalidSubspaces, s.name, idx)
			}
			covered[idx] = true
		}
		byName[s.name] = i
		weightSum += s.weight
	}

	if math.Abs(weightSum-1.0) > weightSumTolerance {
		return Partition{}, fmt.Errorf(
			"%w: weights sum to %.4f, want 1.0 ±%.2f", domain.ErrInvalidSubspaces, weightSum, weightSumTolerance)
	}

	subs := make([]Subspace, len(subspaces))
	copy(subs, subspaces)
	return Partition{width: width, subspaces: subs, byName: byName}, nil
}

// Width returns the total embedding width the partition was validated against.
func (p *Partition) Width() int { return p.width }

// Subspaces returns the subspaces in declaration order.
func (p *Partition) Subspaces() []Subspace { return p.subspaces }

// ByName looks up a subspace by name.
func (p *Partition) ByName(name string) (Subspace, bool) {
	i, ok := p.byName[name]
	if !ok {
		return Subspace{}, false
	}
	return p.subspaces[i], true
}
