package model

import (
	"encoding/json"
	"math"
	"strconv"
)

// StarRating is 1..5, or NotRated when no rating applies.
type StarRating int

// NotRated marks a measure without a rating (missing value or rule).
const NotRated StarRating = 0

// Bounds of a rating.
const (
	MinStars StarRating = 1
	MaxStars StarRating = 5
)

// IsRated reports whether r is a 1..5 rating.
func (r StarRating) IsRated() bool { return r >= MinStars && r <= MaxStars }

func (r StarRating) String() string {
	if !r.IsRated() {
		return NotApplicableText
	}
	return strconv.Itoa(int(r))
}

// MarshalJSON renders NotRated as "N/A".
func (r StarRating) MarshalJSON() ([]byte, error) {
	if !r.IsRated() {
		return json.Marshal(NotApplicableText)
	}
	return json.Marshal(int(r))
}

// Average is a rounded mean, or not applicable when nothing contributed.
type Average struct {
	value float64
	valid bool
}

// NewAverage wraps an already rounded value.
func NewAverage(v float64) Average { return Average{value: v, valid: true} }

// NoAverage is the not-applicable average.
func NoAverage() Average { return Average{} }

// Value returns the average and whether it is applicable.
func (a Average) Value() (float64, bool) { return a.value, a.valid }

// IsApplicable reports whether a carries a value.
func (a Average) IsApplicable() bool { return a.valid }

// Sub returns a - b rounded to two places; not applicable if either side is.
func (a Average) Sub(b Average) Average {
	if !a.valid || !b.valid {
		return NoAverage()
	}
	return NewAverage(Round(a.value-b.value, 2))
}

// Format renders the value with the given precision, or "N/A".
func (a Average) Format(precision int) string {
	if !a.valid {
		return NotApplicableText
	}
	return strconv.FormatFloat(a.value, 'f', precision, 64)
}

func (a Average) String() string { return a.Format(2) }

// MarshalJSON renders a not-applicable average as "N/A".
func (a Average) MarshalJSON() ([]byte, error) {
	if !a.valid {
		return json.Marshal(NotApplicableText)
	}
	return json.Marshal(a.value)
}

// UnmarshalJSON accepts a number or any string marker.
func (a *Average) UnmarshalJSON(data []byte) error {
	var v MeasureValue
	if err := v.UnmarshalJSON(data); err != nil {
		return err
	}
	if f, ok := v.Float(); ok {
		*a = NewAverage(f)
		return nil
	}
	*a = NoAverage()
	return nil
}

// SummaryAverages holds the three independent averages of a contract.
type SummaryAverages struct {
	PartC   Average `json:"part_c"`
	PartD   Average `json:"part_d"`
	Overall Average `json:"overall"`
}

// Sub returns the per-field difference s - base.
func (s SummaryAverages) Sub(base SummaryAverages) SummaryAverages {
	return SummaryAverages{
		PartC:   s.PartC.Sub(base.PartC),
		PartD:   s.PartD.Sub(base.PartD),
		Overall: s.Overall.Sub(base.Overall),
	}
}

// PercentChange is a whole-point change between two proportions.
type PercentChange struct {
	points int
	valid  bool
}

// ChangeBetween returns round((after-before)*100) with ties to even, or a
// not-applicable change when either side is a marker.
func ChangeBetween(before, after MeasureValue) PercentChange {
	b, okB := before.Float()
	a, okA := after.Float()
	if !okB || !okA {
		return PercentChange{}
	}
	return PercentChange{points: int(math.RoundToEven((a - b) * 100)), valid: true}
}

// Points returns the change and whether it applies.
func (p PercentChange) Points() (int, bool) { return p.points, p.valid }

func (p PercentChange) String() string {
	if !p.valid {
		return NotApplicableText
	}
	return strconv.Itoa(p.points) + "%"
}

// MarshalJSON renders an inapplicable change as "N/A".
func (p PercentChange) MarshalJSON() ([]byte, error) {
	if !p.valid {
		return json.Marshal(NotApplicableText)
	}
	return json.Marshal(p.points)
}

// Round rounds v to places decimals with ties to even on the exact binary
// value.
func Round(v float64, places int) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', places, 64), 64)
	if err != nil {
		return v
	}
	return r
}
