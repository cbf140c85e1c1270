// Package service provides the core business service that implements
// the dependencies required by the HTTP API, the CLI and the MCP server.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nmgenxys/starcalc/internal/adapters/loader"
	repository "github.com/nmgenxys/starcalc/internal/adapters/repository"
	"github.com/nmgenxys/starcalc/internal/config"
	"github.com/nmgenxys/starcalc/internal/domain/model"
	"github.com/nmgenxys/starcalc/internal/domain/scenario"
	"github.com/nmgenxys/starcalc/internal/domain/scoring"
	"github.com/nmgenxys/starcalc/internal/domain/thresholds"
	"github.com/nmgenxys/starcalc/internal/domain/types"
	"github.com/nmgenxys/starcalc/pkg/logger"
	"github.com/nmgenxys/starcalc/pkg/metrics"
)

// ErrNotStarted is returned by queries issued before Start.
var ErrNotStarted = errors.New("service not started")

// Not-applicable reasons reported to metrics.
const (
	reasonMarker = "marker"
	reasonNoRule = "no_rule"
)

// Service owns the loaded rules and contracts and runs the rating engine over
// them.
type Service struct {
	mu sync.RWMutex

	// Core components
	rules  *thresholds.Repository
	engine *scoring.Engine
	store  *repository.MemoryStore

	// Configuration
	partCPath        string
	partDPath        string
	contractsPattern string
	planType         model.PlanType
	measures         []model.MeasureCode
	uplift           float64
	workers          int

	// Preloaded data, used instead of the files when set.
	presetRules     *thresholds.Repository
	presetContracts []model.Contract

	// State
	started   bool
	startedAt time.Time

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithThresholdFiles sets the Part C and Part D rule files.
func WithThresholdFiles(partC, partD string) Option {
	return func(s *Service) {
		s.partCPath = partC
		s.partDPath = partD
	}
}

// WithContractSource sets the contract file path or glob.
func WithContractSource(pattern string) Option {
	return func(s *Service) {
		s.contractsPattern = pattern
	}
}

// WithRules uses an in-memory rule set instead of the threshold files.
func WithRules(rules *thresholds.Repository) Option {
	return func(s *Service) {
		s.presetRules = rules
	}
}

// WithContracts uses in-memory contracts instead of the contract source.
func WithContracts(contracts []model.Contract) Option {
	return func(s *Service) {
		s.presetContracts = contracts
	}
}

// WithPlanType sets the plan type used when a request names none.
func WithPlanType(pt model.PlanType) Option {
	return func(s *Service) {
		if pt != "" {
			s.planType = pt
		}
	}
}

// WithMeasuresOfInterest sets the measures shown in detail rows and uplifted by
// simulations.
func WithMeasuresOfInterest(codes []model.MeasureCode) Option {
	return func(s *Service) {
		if len(codes) > 0 {
			s.measures = append([]model.MeasureCode(nil), codes...)
		}
	}
}

// WithUplift sets the proportion added by simulations.
func WithUplift(delta float64) Option {
	return func(s *Service) {
		if delta >= 0 && delta <= scenario.MaxProportion {
			s.uplift = delta
		}
	}
}

// WithWorkers bounds the simulation fan-out.
func WithWorkers(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workers = count
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// OptionsFromConfig maps a loaded configuration onto service options.
func OptionsFromConfig(cfg *config.Config) []Option {
	return []Option{
		WithThresholdFiles(cfg.PartCThresholds, cfg.PartDThresholds),
		WithContractSource(cfg.ContractScores),
		WithPlanType(cfg.Plan()),
		WithMeasuresOfInterest(cfg.Measures()),
		WithUplift(cfg.Uplift),
		WithWorkers(cfg.Workers),
	}
}

// MetricsOptionsFromConfig maps the metrics section of cfg to manager options.
func MetricsOptionsFromConfig(cfg *config.Config) []metrics.Option {
	return []metrics.Option{
		metrics.WithMetricsEnabled(cfg.MetricsEnabled),
		metrics.WithNamespace(cfg.MetricsNamespace),
		metrics.WithSubsystem(cfg.MetricsSubsystem),
		metrics.WithMetricPrefix(cfg.MetricsPrefix),
		metrics.WithHistogramBuckets(cfg.MetricsBuckets),
		metrics.WithCustomLabels(cfg.MetricsLabels),
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	def := config.New()
	s := &Service{
		partCPath:        def.PartCThresholds,
		partDPath:        def.PartDThresholds,
		contractsPattern: def.ContractScores,
		planType:         model.DefaultPlanType,
		measures:         def.Measures(),
		uplift:           def.Uplift,
		workers:          runtime.NumCPU(),
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start loads rules and contracts and builds the engine.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	// Initialize logger if not already set
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting rating service...")

	var ld *loader.Loader
	if s.presetRules == nil || s.presetContracts == nil {
		l, err := loader.New()
		if err != nil {
			return fmt.Errorf("create loader: %w", err)
		}
		ld = l
	}

	rules := s.presetRules
	if rules == nil {
		r, err := ld.LoadThresholds(s.partCPath, s.partDPath)
		if err != nil {
			metrics.RecordLoadError("thresholds")
			return err
		}
		rules = r
	}

	contracts := s.presetContracts
	if contracts == nil {
		c, err := ld.LoadContracts(s.contractsPattern)
		if err != nil {
			metrics.RecordLoadError("contracts")
			return err
		}
		contracts = c
	}

	s.rules = rules
	s.engine = scoring.NewEngine(rules, scoring.WithDefaultPlanType(s.planType))
	s.store = repository.NewMemoryStore(contracts, s.engine)

	metrics.UpdateRulesLoaded(string(model.PartC), rules.Len(model.PartC))
	metrics.UpdateRulesLoaded(string(model.PartD), rules.Len(model.PartD))
	metrics.UpdateContractsLoaded(s.store.Count(ctx))

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "rating service started",
		logger.Int("partCRules", rules.Len(model.PartC)),
		logger.Int("partDRules", rules.Len(model.PartD)),
		logger.Int("contracts", s.store.Count(ctx)),
		logger.String("planType", string(s.planType)),
		logger.Int("workers", s.workers),
	)

	return nil
}

// Stop releases the loaded data.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.rules, s.engine, s.store = nil, nil, nil
	s.started = false
	s.logger.Info(context.Background(), "rating service stopped")
}

// snapshot returns the running components or ErrNotStarted.
func (s *Service) snapshot() (*thresholds.Repository, *scoring.Engine, *repository.MemoryStore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, nil, nil, ErrNotStarted
	}
	return s.rules, s.engine, s.store, nil
}

// ResolvePlan parses a plan type, falling back to the configured default for
// an empty string.
func (s *Service) ResolvePlan(raw string) (model.PlanType, error) {
	if raw == "" {
		return s.planType, nil
	}
	return model.ParsePlanType(raw)
}

// MeasuresOfInterest returns the configured detail measures.
func (s *Service) MeasuresOfInterest() []model.MeasureCode {
	return append([]model.MeasureCode(nil), s.measures...)
}

// Classify rates a single value for the given measure.
func (s *Service) Classify(ctx context.Context, code model.MeasureCode, value model.MeasureValue, plan string) (types.Rating, error) {
	_, engine, _, err := s.snapshot()
	if err != nil {
		return types.Rating{}, err
	}
	pt, err := s.ResolvePlan(plan)
	if err != nil {
		return types.Rating{}, err
	}

	part := code.Part()
	star := engine.Classify(value, code, code.IsPartD(), pt)
	switch {
	case !value.IsNumeric():
		metrics.RecordNotApplicable(string(part), reasonMarker)
	case !star.IsRated():
		metrics.RecordNotApplicable(string(part), reasonNoRule)
	default:
		metrics.RecordClassification(string(part), star.String())
	}

	return types.Rating{
		Measure:  code,
		BaseCode: code.BaseCode(),
		Part:     part,
		PlanType: pt,
		Value:    value,
		Star:     star,
	}, nil
}

// Summarize aggregates an ad-hoc measure mapping.
func (s *Service) Summarize(ctx context.Context, measures model.Measures, plan string) (model.SummaryAverages, error) {
	_, engine, _, err := s.snapshot()
	if err != nil {
		return model.SummaryAverages{}, err
	}
	pt, err := s.ResolvePlan(plan)
	if err != nil {
		return model.SummaryAverages{}, err
	}
	metrics.RecordAggregation()
	return engine.Aggregate(measures, pt), nil
}

// Contracts lists contract references, optionally filtered by name.
func (s *Service) Contracts(ctx context.Context, query string) ([]model.ContractRef, error) {
	_, _, store, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	if query == "" {
		return store.List(ctx), nil
	}
	return store.FindByName(ctx, query), nil
}

// Contract returns the baseline report for one contract.
func (s *Service) Contract(ctx context.Context, id, plan string) (types.ContractReport, error) {
	_, engine, store, err := s.snapshot()
	if err != nil {
		return types.ContractReport{}, err
	}
	pt, err := s.ResolvePlan(plan)
	if err != nil {
		return types.ContractReport{}, err
	}
	c, err := store.Get(ctx, id)
	if err != nil {
		return types.ContractReport{}, fmt.Errorf("%w: %s", err, id)
	}
	metrics.RecordAggregation()
	return types.ContractReport{
		Contract: c,
		PlanType: pt,
		Summary:  engine.Aggregate(c.Measures, pt),
		Rows:     engine.Detail(c.Measures, c.Measures, s.measures, pt),
	}, nil
}

// Scenario builds the override map a request describes.
func (s *Service) Scenario(baseline model.Measures, req types.ProjectionRequest) (scenario.Overrides, error) {
	o := scenario.Overrides{}
	if req.Reset {
		o = scenario.FromBaseline(baseline, s.measures)
	}
	codes := make([]model.MeasureCode, 0, len(req.Overrides))
	for code := range req.Overrides {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	for _, code := range codes {
		next, err := scenario.Set(o, code, req.Overrides[code])
		if err != nil {
			return nil, err
		}
		o = next
	}
	if req.Boost != 0 {
		// Boost lifts every measure of interest from its current value.
		for code, v := range scenario.FromBaseline(baseline, s.measures) {
			if _, ok := o[code]; !ok {
				o[code] = v
			}
		}
		boosted, err := scenario.Boost(o, req.Boost)
		if err != nil {
			return nil, err
		}
		o = boosted
	}
	return o, nil
}

// rowCodes returns the measures of interest followed by any other overridden
// codes in lexical order.
func (s *Service) rowCodes(o scenario.Overrides) []model.MeasureCode {
	seen := make(map[model.MeasureCode]struct{}, len(s.measures))
	codes := make([]model.MeasureCode, 0, len(s.measures)+len(o))
	for _, c := range s.measures {
		seen[c] = struct{}{}
		codes = append(codes, c)
	}
	for _, c := range o.Codes() {
		if _, ok := seen[c]; !ok {
			codes = append(codes, c)
		}
	}
	return codes
}

// Project runs a what-if scenario against a stored contract.
func (s *Service) Project(ctx context.Context, id string, req types.ProjectionRequest) (scoring.Projection, error) {
	_, engine, store, err := s.snapshot()
	if err != nil {
		return scoring.Projection{}, err
	}
	pt, err := s.ResolvePlan(req.PlanType)
	if err != nil {
		return scoring.Projection{}, err
	}
	c, err := store.Get(ctx, id)
	if err != nil {
		return scoring.Projection{}, fmt.Errorf("%w: %s", err, id)
	}
	o, err := s.Scenario(c.Measures, req)
	if err != nil {
		return scoring.Projection{}, err
	}

	metrics.RecordProjection()
	p := engine.ProjectCodes(c.Measures, o, s.rowCodes(o), pt)
	s.logger.Debug(ctx, "projection computed",
		logger.String("contract", id),
		logger.String("planType", string(pt)),
		logger.Int("overrides", len(o)),
		logger.String("overall", p.Projected.Overall.String()),
	)
	return p, nil
}

// Leaderboard returns the top n contracts by baseline overall average.
func (s *Service) Leaderboard(ctx context.Context, n int, plan string) ([]types.Entry, error) {
	_, _, store, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	pt, err := s.ResolvePlan(plan)
	if err != nil {
		return nil, err
	}
	entries, err := store.TopN(ctx, n, pt)
	if err != nil {
		return nil, err
	}

	// Convert to API format
	out := make([]types.Entry, len(entries))
	for i, e := range entries {
		out[i] = toEntry(e)
	}
	return out, nil
}

// Rank returns the leaderboard row of one contract.
func (s *Service) Rank(ctx context.Context, id, plan string) (types.Entry, error) {
	_, _, store, err := s.snapshot()
	if err != nil {
		return types.Entry{}, err
	}
	pt, err := s.ResolvePlan(plan)
	if err != nil {
		return types.Entry{}, err
	}
	e, err := store.Rank(ctx, id, pt)
	if err != nil {
		return types.Entry{}, fmt.Errorf("%w: %s", err, id)
	}
	return toEntry(e), nil
}

func toEntry(e repository.Entry) types.Entry {
	return types.Entry{
		Rank:       e.Rank,
		ContractID: e.ContractID,
		Name:       e.Name,
		Summary:    e.Summary,
	}
}

// Thresholds lists the rules of one part, or of both parts when part is empty.
func (s *Service) Thresholds(ctx context.Context, part model.Part) ([]types.RuleView, error) {
	rules, _, _, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	parts := []model.Part{model.PartC, model.PartD}
	if part != "" {
		parts = []model.Part{part}
	}
	var out []types.RuleView
	for _, p := range parts {
		for _, code := range rules.Codes(p) {
			r, _ := rules.Rule(code, p)
			v := types.RuleView{Code: code, Part: p, Reverse: r.Reverse}
			if p == model.PartD {
				v.PlanCutoffs = r.PlanCutoffs
			} else {
				c := r.Cutoffs
				v.Cutoffs = &c
			}
			out = append(out, v)
		}
	}
	return out, nil
}

// Simulate projects every contract with the configured uplift applied to the
// measures of interest. Contracts are processed in parallel; results keep
// contract ID order.
func (s *Service) Simulate(ctx context.Context, plan string) (types.SimulationReport, error) {
	_, engine, store, err := s.snapshot()
	if err != nil {
		return types.SimulationReport{}, err
	}
	pt, err := s.ResolvePlan(plan)
	if err != nil {
		return types.SimulationReport{}, err
	}

	start := time.Now()
	runID := uuid.NewString()
	refs := store.List(ctx)
	results := make([]types.SimulationResult, len(refs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, ref := range refs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			c, err := store.Get(gctx, ref.ID)
			if err != nil {
				return err
			}
			o := scenario.Uplift(c.Measures, s.measures, s.uplift)
			results[i] = types.SimulationResult{
				Contract:   ref,
				Projection: engine.ProjectCodes(c.Measures, o, s.measures, pt),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return types.SimulationReport{}, fmt.Errorf("simulate %s: %w", runID, err)
	}

	elapsed := time.Since(start)
	metrics.RecordSimulation(len(results), float64(elapsed.Milliseconds()))
	s.logger.Info(ctx, "simulation finished",
		logger.String("runID", runID),
		logger.Int("contracts", len(results)),
		logger.Float64("uplift", s.uplift),
		logger.Duration("elapsed", elapsed),
	)

	return types.SimulationReport{
		RunID:    runID,
		PlanType: pt,
		Uplift:   s.uplift,
		Measures: s.MeasuresOfInterest(),
		Results:  results,
	}, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":  s.started,
		"planType": string(s.planType),
		"workers":  s.workers,
		"uplift":   s.uplift,
		"measures": len(s.measures),
	}

	if s.started {
		contracts := s.store.Count(context.Background())
		stats["contracts"] = contracts
		stats["partCRules"] = s.rules.Len(model.PartC)
		stats["partDRules"] = s.rules.Len(model.PartD)
		stats["uptimeSeconds"] = int64(time.Since(s.startedAt).Seconds())

		metrics.UpdateContractsLoaded(contracts)
	}

	return stats
}
