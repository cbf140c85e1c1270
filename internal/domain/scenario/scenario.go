// Package scenario edits caller-owned what-if override maps. Every function
// returns a new map; inputs are never modified.
package scenario

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/nmgenxys/starcalc/internal/domain/model"
)

// Bounds of a proportion and of a boost.
const (
	MaxProportion = 1.0
	MaxBoost      = 100.0
	upliftPlaces  = 4
)

var (
	// ErrOutOfRange is returned for an override outside [0,1].
	ErrOutOfRange = errors.New("override outside [0,1]")
	// ErrInvalidBoost is returned for a boost outside [0,100] points.
	ErrInvalidBoost = errors.New("boost outside [0,100] points")
)

// Overrides maps measure codes to replacement proportions.
type Overrides map[model.MeasureCode]float64

// Clone returns an independent copy.
func (o Overrides) Clone() Overrides {
	out := make(Overrides, len(o))
	for k, v := range o {
		out[k] = v
	}
	return out
}

// Codes returns the overridden codes sorted lexically.
func (o Overrides) Codes() []model.MeasureCode {
	codes := make([]model.MeasureCode, 0, len(o))
	for k := range o {
		codes = append(codes, k)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

// Validate checks that every override is a proportion.
func (o Overrides) Validate() error {
	for _, code := range o.Codes() {
		if err := checkProportion(code, o[code]); err != nil {
			return err
		}
	}
	return nil
}

func checkProportion(code model.MeasureCode, v float64) error {
	if math.IsNaN(v) || v < 0 || v > MaxProportion {
		return fmt.Errorf("%w: %q=%v", ErrOutOfRange, code, v)
	}
	return nil
}

// Set returns a copy of o with code set to v.
func Set(o Overrides, code model.MeasureCode, v float64) (Overrides, error) {
	if err := checkProportion(code, v); err != nil {
		return nil, err
	}
	out := o.Clone()
	out[code] = v
	return out, nil
}

// FromBaseline seeds overrides with the baseline proportions of codes.
// Codes whose baseline is missing or a marker are left out.
func FromBaseline(baseline model.Measures, codes []model.MeasureCode) Overrides {
	out := make(Overrides, len(codes))
	for _, code := range codes {
		if v, ok := baseline.Get(code).Float(); ok {
			out[code] = v
		}
	}
	return out
}

// Boost adds points percentage points to every override, capped at 100%.
func Boost(o Overrides, points float64) (Overrides, error) {
	if math.IsNaN(points) || points < 0 || points > MaxBoost {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBoost, points)
	}
	out := make(Overrides, len(o))
	for code, v := range o {
		out[code] = model.Round(math.Min(v+points/100, MaxProportion), upliftPlaces)
	}
	return out, nil
}

// Uplift builds overrides of baseline+delta, capped at 1 and rounded to four
// places, for each code with a numeric baseline.
func Uplift(baseline model.Measures, codes []model.MeasureCode, delta float64) Overrides {
	out := make(Overrides, len(codes))
	for _, code := range codes {
		v, ok := baseline.Get(code).Float()
		if !ok {
			continue
		}
		out[code] = model.Round(math.Min(v+delta, MaxProportion), upliftPlaces)
	}
	return out
}

// Apply returns baseline with overrides laid over it. Override codes absent
// from the baseline are added.
func Apply(baseline model.Measures, o Overrides) model.Measures {
	out := baseline.Clone()
	for code, v := range o {
		out[code] = model.Numeric(v)
	}
	return out
}
