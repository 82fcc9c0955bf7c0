package crop

import (
	"errors"
	"fmt"
	"math"
)

// ErrNoRatios is returned when a selector is built with an empty
// ratio list. The non-empty invariant is enforced here, at
// construction, never per call.
var ErrNoRatios = errors.New("ratio list must not be empty")

// Fraction reduction scans denominators in order and accepts the
// first one within ratioTolerance, so 1.7778 labels as "16:9" rather
// than an exact but unreadable fraction.
const (
	ratioTolerance      = 1e-3
	ratioMaxDenominator = 1000
)

// RatioSelector tracks which aspect ratio from a fixed ordered list
// is active. The index is observable; Advance notifies subscribers
// synchronously.
type RatioSelector struct {
	ratios []float64
	index  *Observable[int]
}

// NewRatioSelector builds a selector over a non-empty ratio list,
// starting at startIndex.
func NewRatioSelector(ratios []float64, startIndex int) (*RatioSelector, error) {
	if len(ratios) == 0 {
		return nil, ErrNoRatios
	}
	if startIndex < 0 || startIndex >= len(ratios) {
		return nil, fmt.Errorf("start index %d out of range for %d ratios", startIndex, len(ratios))
	}
	for _, r := range ratios {
		if r <= 0 {
			return nil, fmt.Errorf("ratio must be positive, got %v", r)
		}
	}
	owned := make([]float64, len(ratios))
	copy(owned, ratios)
	return &RatioSelector{ratios: owned, index: NewObservable(startIndex)}, nil
}

// Current returns the active ratio.
func (s *RatioSelector) Current() float64 {
	return s.ratios[s.index.Get()]
}

// Index returns the observable index cell, for UI subscription.
func (s *RatioSelector) Index() *Observable[int] {
	return s.index
}

// Ratios returns the candidate list.
func (s *RatioSelector) Ratios() []float64 {
	out := make([]float64, len(s.ratios))
	copy(out, s.ratios)
	return out
}

// Advance cycles to the next ratio, wrapping past the end back to 0.
func (s *RatioSelector) Advance() {
	s.index.Set((s.index.Get() + 1) % len(s.ratios))
}

// Label renders the active ratio as "1:1" for unity or a
// lowest-terms integer fraction such as "16:9" otherwise.
func (s *RatioSelector) Label() string {
	return RatioLabel(s.Current())
}

// Close releases the index observable.
func (s *RatioSelector) Close() {
	s.index.Close()
}

// RatioLabel formats an aspect ratio as an "a:b" fraction label.
func RatioLabel(ratio float64) string {
	if ratio == 1 {
		return "1:1"
	}
	a, b := ratioFraction(ratio)
	return fmt.Sprintf("%d:%d", a, b)
}

// ratioFraction reduces a float ratio to the integer fraction with
// the smallest denominator within tolerance. Falls back to the best
// candidate seen when nothing converges.
func ratioFraction(ratio float64) (int, int) {
	bestNum, bestDen := int(math.Round(ratio * ratioMaxDenominator)), ratioMaxDenominator
	bestDiff := math.Inf(1)

	for den := 1; den <= ratioMaxDenominator; den++ {
		num := int(math.Round(ratio * float64(den)))
		if num == 0 {
			continue
		}
		diff := math.Abs(ratio - float64(num)/float64(den))
		if diff < ratioTolerance {
			return num, den
		}
		if diff < bestDiff {
			bestNum, bestDen, bestDiff = num, den, diff
		}
	}
	return bestNum, bestDen
}
