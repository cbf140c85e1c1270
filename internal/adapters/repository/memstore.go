package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nmgenxys/starcalc/internal/domain/model"
	"github.com/nmgenxys/starcalc/pkg/logger"
	"github.com/nmgenxys/starcalc/pkg/metrics"
)

// ranking is an immutable leaderboard for one plan type.
type ranking struct {
	entries []Entry
	byID    map[string]int
}

// MemoryStore is a read-only Store over a fixed set of contracts.
//
// Rankings are computed on first use for each plan type and reused after that.
// The contracts themselves never change, so a computed ranking never goes stale.
type MemoryStore struct {
	byID       map[string]model.Contract
	refs       []model.ContractRef
	summarizer Summarizer
	log        logger.Logger

	mu       sync.RWMutex
	rankings map[model.PlanType]*ranking
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore indexes contracts by ID. A later contract with the same ID
// replaces an earlier one.
func NewMemoryStore(contracts []model.Contract, summarizer Summarizer, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		byID:       make(map[string]model.Contract, len(contracts)),
		summarizer: summarizer,
		rankings:   make(map[model.PlanType]*ranking),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Get().Named("repository")
	}

	for _, c := range contracts {
		c.Measures = c.Measures.Clone()
		s.byID[c.ID] = c
	}
	s.refs = make([]model.ContractRef, 0, len(s.byID))
	for _, c := range s.byID {
		s.refs = append(s.refs, c.Ref())
	}
	sort.Slice(s.refs, func(i, j int) bool { return s.refs[i].ID < s.refs[j].ID })
	return s
}

// Get returns a copy of the contract so callers cannot mutate the store.
func (s *MemoryStore) Get(ctx context.Context, id string) (model.Contract, error) {
	c, ok := s.byID[id]
	if !ok {
		return model.Contract{}, ErrNotFound
	}
	c.Measures = c.Measures.Clone()
	return c, nil
}

// List returns every contract reference ordered by ID.
func (s *MemoryStore) List(ctx context.Context) []model.ContractRef {
	return append([]model.ContractRef(nil), s.refs...)
}

// FindByName matches a case-insensitive substring of the contract name.
// An empty query matches everything.
func (s *MemoryStore) FindByName(ctx context.Context, query string) []model.ContractRef {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]model.ContractRef, 0)
	for _, r := range s.refs {
		if strings.Contains(strings.ToLower(r.Name), q) {
			out = append(out, r)
		}
	}
	return out
}

// Count returns the total number of contracts.
func (s *MemoryStore) Count(ctx context.Context) int {
	return len(s.byID)
}

// Rank returns the current rank and summary for one contract.
func (s *MemoryStore) Rank(ctx context.Context, id string, plan model.PlanType) (Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	r := s.ranking(ctx, plan)
	i, ok := r.byID[id]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return r.entries[i], nil
}

// TopN returns the top N entries ordered by overall average desc. Contracts
// without an overall average come last. Ties are broken by contract ID.
func (s *MemoryStore) TopN(ctx context.Context, n int, plan model.PlanType) ([]Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	if n < 1 {
		return nil, ErrInvalidLimit
	}
	r := s.ranking(ctx, plan)
	if n > len(r.entries) {
		n = len(r.entries)
	}
	return append([]Entry(nil), r.entries[:n]...), nil
}

// ranking returns the memoised ranking for plan, building it on first use.
func (s *MemoryStore) ranking(ctx context.Context, plan model.PlanType) *ranking {
	if plan == "" {
		plan = s.summarizer.DefaultPlanType()
	}

	s.mu.RLock()
	r, ok := s.rankings[plan]
	s.mu.RUnlock()
	if ok {
		return r
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.rankings[plan]; ok {
		return r
	}
	r = s.build(plan)
	s.rankings[plan] = r
	s.log.Debug(ctx, "ranking built",
		logger.String("plan_type", string(plan)),
		logger.Int("contracts", len(r.entries)))
	return r
}

func (s *MemoryStore) build(plan model.PlanType) *ranking {
	entries := make([]Entry, 0, len(s.refs))
	for _, ref := range s.refs {
		c := s.byID[ref.ID]
		entries = append(entries, Entry{
			ContractID: c.ID,
			Name:       c.Name,
			Summary:    s.summarizer.Aggregate(c.Measures, plan),
		})
	}
	sortEntries(entries)
	assignRanksWithTies(entries)

	byID := make(map[string]int, len(entries))
	for i, e := range entries {
		byID[e.ContractID] = i
	}
	return &ranking{entries: entries, byID: byID}
}

// sortEntries orders by overall average desc, NA last, then contract ID asc.
func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		a, aok := entries[i].Summary.Overall.Value()
		b, bok := entries[j].Summary.Overall.Value()
		if aok != bok {
			return aok
		}
		if aok && a != b {
			return a > b
		}
		return entries[i].ContractID < entries[j].ContractID
	})
}

// sameScore reports whether two sorted entries share a rank.
func sameScore(a, b Entry) bool {
	av, aok := a.Summary.Overall.Value()
	bv, bok := b.Summary.Overall.Value()
	return aok == bok && (!aok || av == bv)
}

// assignRanksWithTies gives equal averages the same rank. Ranks are
// consecutive: 1, 1, 2, not 1, 1, 3.
func assignRanksWithTies(entries []Entry) {
	rank := 0
	for i := range entries {
		if i == 0 || !sameScore(entries[i-1], entries[i]) {
			rank++
		}
		entries[i].Rank = rank
	}
}
