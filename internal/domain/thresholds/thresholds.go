// Package thresholds holds the immutable cutoff rules used to classify
// measure values into star tiers.
package thresholds

import (
	"sort"

	"github.com/nmgenxys/starcalc/internal/domain/model"
)

// TierCount is the number of star tiers, and so the number of cutoffs per rule.
const TierCount = 5

// Cutoffs are ordered tier boundaries: index 0 is the 1-star boundary and
// index 4 the 5-star boundary.
type Cutoffs [TierCount]float64

// Rule is the rating rule for one base code. Part C rules use Cutoffs; Part D
// rules key their cutoffs by plan type in PlanCutoffs.
type Rule struct {
	Cutoffs     Cutoffs
	PlanCutoffs map[model.PlanType]Cutoffs
	Reverse     bool
}

// Table is the resolved view of a rule for one part and plan type.
type Table struct {
	Cutoffs Cutoffs
	Reverse bool
}

// Repository maps base codes to rules for both parts. It is never mutated
// after New returns, so concurrent readers need no locking.
type Repository struct {
	partC map[string]Rule
	partD map[string]Rule
}

// New builds a repository from the Part C and Part D rule sets. The inputs are
// copied.
func New(partC, partD map[string]Rule) *Repository {
	return &Repository{
		partC: copyRules(partC),
		partD: copyRules(partD),
	}
}

func copyRules(in map[string]Rule) map[string]Rule {
	out := make(map[string]Rule, len(in))
	for code, r := range in {
		cp := Rule{Cutoffs: r.Cutoffs, Reverse: r.Reverse}
		if len(r.PlanCutoffs) > 0 {
			cp.PlanCutoffs = make(map[model.PlanType]Cutoffs, len(r.PlanCutoffs))
			for pt, c := range r.PlanCutoffs {
				cp.PlanCutoffs[pt] = c
			}
		}
		out[code] = cp
	}
	return out
}

func (r *Repository) rules(part model.Part) map[string]Rule {
	if part == model.PartD {
		return r.partD
	}
	return r.partC
}

// Lookup resolves the cutoffs for baseCode. Part D selects the plan type
// sub-table; a Part D rule without that plan type is treated as unknown.
func (r *Repository) Lookup(baseCode string, part model.Part, plan model.PlanType) (Table, bool) {
	rule, ok := r.rules(part)[baseCode]
	if !ok {
		return Table{}, false
	}
	if part != model.PartD {
		return Table{Cutoffs: rule.Cutoffs, Reverse: rule.Reverse}, true
	}
	c, ok := rule.PlanCutoffs[plan]
	if !ok {
		return Table{}, false
	}
	return Table{Cutoffs: c, Reverse: rule.Reverse}, true
}

// Has reports whether a rule exists for baseCode in part.
func (r *Repository) Has(baseCode string, part model.Part) bool {
	_, ok := r.rules(part)[baseCode]
	return ok
}

// Rule returns a copy of the stored rule.
func (r *Repository) Rule(baseCode string, part model.Part) (Rule, bool) {
	rule, ok := r.rules(part)[baseCode]
	if !ok {
		return Rule{}, false
	}
	return copyRules(map[string]Rule{baseCode: rule})[baseCode], true
}

// Codes lists the base codes of part in lexical order.
func (r *Repository) Codes(part model.Part) []string {
	rules := r.rules(part)
	codes := make([]string, 0, len(rules))
	for code := range rules {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Len returns the number of rules for part.
func (r *Repository) Len(part model.Part) int {
	return len(r.rules(part))
}
