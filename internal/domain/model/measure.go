// Package model contains domain models passed between layers.
package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// NotApplicableText is the display marker for a missing or non-numeric value.
const NotApplicableText = "N/A"

// codeSeparator splits a measure code into base code and label.
const codeSeparator = ":"

// ErrUnknownPlanType is returned when a plan type is neither MA-PD nor PDP.
var ErrUnknownPlanType = errors.New("unknown plan type")

// Part identifies the Medicare measure category.
type Part string

const (
	PartC Part = "C"
	PartD Part = "D"
)

// PlanType selects the Part D threshold sub-table.
type PlanType string

const (
	PlanMAPD PlanType = "MA-PD"
	PlanPDP  PlanType = "PDP"
)

// DefaultPlanType is used when a caller does not name a plan type.
const DefaultPlanType = PlanMAPD

// ParsePlanType normalizes s into a PlanType. An empty string yields
// DefaultPlanType.
func ParsePlanType(s string) (PlanType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "":
		return DefaultPlanType, nil
	case "MA-PD", "MAPD":
		return PlanMAPD, nil
	case "PDP":
		return PlanPDP, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPlanType, s)
	}
}

// MeasureCode is a full measure identifier such as
// "C14: Medication Reconciliation Post-Discharge".
type MeasureCode string

// BaseCode returns the portion before the first ":" or the whole code when
// there is no separator.
func (c MeasureCode) BaseCode() string {
	s := string(c)
	if i := strings.Index(s, codeSeparator); i >= 0 {
		return s[:i]
	}
	return s
}

// Label returns the descriptive suffix, trimmed. Empty when absent.
func (c MeasureCode) Label() string {
	s := string(c)
	if i := strings.Index(s, codeSeparator); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return ""
}

// Part reports the category by naming convention: base codes starting with
// "D" are Part D, everything else is Part C.
func (c MeasureCode) Part() Part {
	if strings.HasPrefix(c.BaseCode(), "D") {
		return PartD
	}
	return PartC
}

// IsPartD is shorthand for c.Part() == PartD.
func (c MeasureCode) IsPartD() bool { return c.Part() == PartD }

// MeasureValue is either a numeric proportion or a not-applicable marker.
// The zero value is not applicable.
type MeasureValue struct {
	value   float64
	numeric bool
	note    string
}

// Numeric wraps a proportion. NaN and infinities are treated as markers.
func Numeric(v float64) MeasureValue {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NotApplicable("")
	}
	return MeasureValue{value: v, numeric: true}
}

// NotApplicable returns a marker value carrying note as its display text.
func NotApplicable(note string) MeasureValue {
	return MeasureValue{note: note}
}

// ParseValue reads command-line or tool text: a number becomes a proportion and
// any other text is kept as a marker.
func ParseValue(s string) MeasureValue {
	if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		return Numeric(f)
	}
	return NotApplicable(s)
}

// FromAny converts a decoded JSON or YAML scalar into a MeasureValue.
// Numbers become numeric; strings, nil, booleans and anything else become
// markers.
func FromAny(v any) MeasureValue {
	switch x := v.(type) {
	case float64:
		return Numeric(x)
	case float32:
		return Numeric(float64(x))
	case int:
		return Numeric(float64(x))
	case int64:
		return Numeric(float64(x))
	case uint64:
		return Numeric(float64(x))
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return NotApplicable(x.String())
		}
		return Numeric(f)
	case string:
		return NotApplicable(x)
	default:
		return NotApplicable("")
	}
}

// Float returns the proportion and true, or 0 and false for a marker.
func (v MeasureValue) Float() (float64, bool) {
	return v.value, v.numeric
}

// IsNumeric reports whether v carries a proportion.
func (v MeasureValue) IsNumeric() bool { return v.numeric }

// Note is the marker text of a not-applicable value.
func (v MeasureValue) Note() string {
	if v.numeric {
		return ""
	}
	if v.note == "" {
		return NotApplicableText
	}
	return v.note
}

func (v MeasureValue) String() string {
	if !v.numeric {
		return v.Note()
	}
	return strconv.FormatFloat(v.value, 'f', -1, 64)
}

// Percent renders a proportion as whole percentage points, truncated the same
// way the dashboard shows baselines ("83%").
func (v MeasureValue) Percent() string {
	if !v.numeric {
		return NotApplicableText
	}
	return strconv.Itoa(int(v.value*100)) + "%"
}

// MarshalJSON writes numbers as numbers and markers as their text.
func (v MeasureValue) MarshalJSON() ([]byte, error) {
	if !v.numeric {
		return json.Marshal(v.Note())
	}
	return json.Marshal(v.value)
}

// UnmarshalJSON accepts numbers, strings, booleans and null.
func (v *MeasureValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*v = NotApplicable("")
		return nil
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = NotApplicable(s)
		return nil
	case bytes.Equal(data, []byte("true")) || bytes.Equal(data, []byte("false")):
		*v = NotApplicable("")
		return nil
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	*v = Numeric(f)
	return nil
}

// Measures maps full measure codes to values.
type Measures map[MeasureCode]MeasureValue

// Get returns the value for code, or a marker when the code is absent.
func (m Measures) Get(code MeasureCode) MeasureValue {
	if v, ok := m[code]; ok {
		return v
	}
	return NotApplicable("")
}

// Clone returns a shallow copy; MeasureValue is a value type.
func (m Measures) Clone() Measures {
	out := make(Measures, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Codes returns the measure codes sorted lexically.
func (m Measures) Codes() []MeasureCode {
	codes := make([]MeasureCode, 0, len(m))
	for k := range m {
		codes = append(codes, k)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}
