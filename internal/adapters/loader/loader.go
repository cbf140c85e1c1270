// Package loader reads threshold rules and contract scores from JSON or YAML
// files and validates their shape against an embedded CUE schema.
package loader

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/bmatcuk/doublestar/v4"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/nmgenxys/starcalc/internal/domain/model"
	"github.com/nmgenxys/starcalc/internal/domain/thresholds"
	"github.com/nmgenxys/starcalc/pkg/logger"
)

//go:embed schemas/starcalc.cue
var schemaFS embed.FS

const schemaFile = "schemas/starcalc.cue"

// Schema definitions inside schemaFile.
const (
	defPartC     = "#PartC"
	defPartD     = "#PartD"
	defContracts = "#Contracts"
)

// Sentinel errors.
var (
	ErrInvalidRules      = errors.New("invalid threshold rules")
	ErrInvalidContracts  = errors.New("invalid contract scores")
	ErrDuplicateContract = errors.New("duplicate contract id")
	ErrNoSources         = errors.New("no files match")
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// Loader reads and validates data files. It is safe for sequential use; the
// CUE context is not shared across goroutines.
type Loader struct {
	ctx    *cue.Context
	schema cue.Value
	log    logger.Logger
}

// Option applies a configuration option to the Loader.
type Option func(*Loader)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(ld *Loader) {
		if l != nil {
			ld.log = l
		}
	}
}

// New compiles the embedded schema.
func New(opts ...Option) (*Loader, error) {
	content, err := schemaFS.ReadFile(schemaFile)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	ctx := cuecontext.New()
	schema := ctx.CompileBytes(content, cue.Filename(filepath.Base(schemaFile)))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	l := &Loader{ctx: ctx, schema: schema}
	for _, opt := range opts {
		opt(l)
	}
	if l.log == nil {
		l.log = logger.Get().Named("loader")
	}
	return l, nil
}

// validate unifies data with the named definition and requires a concrete result.
func (l *Loader) validate(def string, data any) error {
	v := l.ctx.Encode(data)
	if err := v.Err(); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	d := l.schema.LookupPath(cue.ParsePath(def))
	if !d.Exists() {
		return fmt.Errorf("schema definition %s not found", def)
	}
	unified := d.Unify(v)
	if err := unified.Err(); err != nil {
		return err
	}
	return unified.Validate(cue.Concrete(true))
}

// readDocument decodes a JSON or YAML file into a generic map. The format is
// chosen by extension.
func readDocument(path string) (map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yamlv3.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return doc, nil
}

// decode re-encodes a validated generic document into typed values.
func decode(doc map[string]any, out any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	return dec.Decode(out)
}

type partCEntry struct {
	Thresholds thresholds.Cutoffs `json:"thresholds"`
	Reverse    bool               `json:"reverse"`
}

type partDEntry struct {
	Thresholds map[string]thresholds.Cutoffs `json:"thresholds"`
	Reverse    bool                          `json:"reverse"`
}

type contractEntry struct {
	Name     string         `json:"contract_name"`
	Measures model.Measures `json:"measures"`
}

// LoadPartC reads flat Part C rules keyed by base code.
func (l *Loader) LoadPartC(path string) (map[string]thresholds.Rule, error) {
	doc, err := readDocument(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRules, err)
	}
	if err := l.validate(defPartC, doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidRules, path, err)
	}
	var entries map[string]partCEntry
	if err := decode(doc, &entries); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidRules, path, err)
	}
	rules := make(map[string]thresholds.Rule, len(entries))
	for code, e := range entries {
		l.checkOrder(code, "", e.Thresholds, e.Reverse)
		rules[code] = thresholds.Rule{Cutoffs: e.Thresholds, Reverse: e.Reverse}
	}
	return rules, nil
}

// LoadPartD reads Part D rules whose cutoffs are keyed by plan type.
func (l *Loader) LoadPartD(path string) (map[string]thresholds.Rule, error) {
	doc, err := readDocument(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRules, err)
	}
	if err := l.validate(defPartD, doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidRules, path, err)
	}
	var entries map[string]partDEntry
	if err := decode(doc, &entries); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidRules, path, err)
	}
	rules := make(map[string]thresholds.Rule, len(entries))
	for code, e := range entries {
		keys := make([]string, 0, len(e.Thresholds))
		for key := range e.Thresholds {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		plans := make(map[model.PlanType]thresholds.Cutoffs, len(e.Thresholds))
		seen := make(map[model.PlanType]string, len(e.Thresholds))
		for _, key := range keys {
			pt, err := model.ParsePlanType(key)
			if err != nil || key == "" {
				return nil, fmt.Errorf("%w: %s: %s: plan type %q", ErrInvalidRules, path, code, key)
			}
			if prev, ok := seen[pt]; ok {
				return nil, fmt.Errorf("%w: %s: %s: plan types %q and %q both name %s", ErrInvalidRules, path, code, prev, key, pt)
			}
			seen[pt] = key
			c := e.Thresholds[key]
			l.checkOrder(code, pt, c, e.Reverse)
			plans[pt] = c
		}
		rules[code] = thresholds.Rule{PlanCutoffs: plans, Reverse: e.Reverse}
	}
	return rules, nil
}

// checkOrder warns when cutoffs are not monotonic in the rule's direction.
// The engine still uses them as given.
func (l *Loader) checkOrder(code string, plan model.PlanType, c thresholds.Cutoffs, reverse bool) {
	for i := 1; i < thresholds.TierCount; i++ {
		if (!reverse && c[i] < c[i-1]) || (reverse && c[i] > c[i-1]) {
			l.log.Warn(context.Background(), "cutoffs out of order",
				logger.String("code", code),
				logger.String("plan_type", string(plan)),
				logger.Bool("reverse", reverse),
				logger.Any("cutoffs", c))
			return
		}
	}
}

// LoadThresholds builds a repository from the two rule files.
func (l *Loader) LoadThresholds(partCPath, partDPath string) (*thresholds.Repository, error) {
	partC, err := l.LoadPartC(partCPath)
	if err != nil {
		return nil, err
	}
	partD, err := l.LoadPartD(partDPath)
	if err != nil {
		return nil, err
	}
	l.log.Info(context.Background(), "threshold rules loaded",
		logger.Int("part_c", len(partC)),
		logger.Int("part_d", len(partD)))
	return thresholds.New(partC, partD), nil
}

// Expand resolves pattern to a sorted list of files. A pattern without glob
// metacharacters is returned as is.
func Expand(pattern string) ([]string, error) {
	if !strings.ContainsAny(pattern, "*?[{") {
		return []string{pattern}, nil
	}
	matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("error evaluating pattern %s: %w", pattern, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoSources, pattern)
	}
	sort.Strings(matches)
	return matches, nil
}

// LoadContracts reads every file matched by pattern and merges the contracts.
// A contract ID found in more than one file is an error. The result is sorted
// by contract ID.
func (l *Loader) LoadContracts(pattern string) ([]model.Contract, error) {
	files, err := Expand(pattern)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]string)
	var out []model.Contract
	for _, path := range files {
		contracts, err := l.loadContractFile(path)
		if err != nil {
			return nil, err
		}
		for _, c := range contracts {
			if prev, dup := seen[c.ID]; dup {
				return nil, fmt.Errorf("%w: %s in %s and %s", ErrDuplicateContract, c.ID, prev, path)
			}
			seen[c.ID] = path
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	l.log.Info(context.Background(), "contracts loaded",
		logger.Int("files", len(files)),
		logger.Int("contracts", len(out)))
	return out, nil
}

func (l *Loader) loadContractFile(path string) ([]model.Contract, error) {
	doc, err := readDocument(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidContracts, err)
	}
	if err := l.validate(defContracts, doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidContracts, path, err)
	}
	var entries map[string]contractEntry
	if err := decode(doc, &entries); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidContracts, path, err)
	}
	out := make([]model.Contract, 0, len(entries))
	for id, e := range entries {
		name := e.Name
		if name == "" {
			name = id
		}
		measures := e.Measures
		if measures == nil {
			measures = model.Measures{}
		}
		out = append(out, model.Contract{ID: id, Name: name, Measures: measures})
	}
	return out, nil
}
