package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nmgenxys/starcalc/internal/domain/model"
	"github.com/nmgenxys/starcalc/internal/domain/types"
)

// errUsage marks invalid command arguments.
var errUsage = errors.New("invalid arguments")

func newRateCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "rate MEASURE VALUE",
		Short: "Rate one measure value.",
		Long: `Classify a measure value into a 1-5 star rating using the loaded cutoffs.

VALUE is a proportion in [0,1]. Any other text is treated as a
not-applicable marker and rates as N/A.

Examples:
  starcalc rate "C14: Medication Reconciliation Post-Discharge" 0.82
  starcalc rate "D08: Medication Adherence for Diabetes Medications" 0.9 --plan-type PDP`,
		Args: cobra.ExactArgs(2),
		RunE: run(flags, func(s *session, args []string) error {
			r, err := s.svc.Classify(s.context(), model.MeasureCode(args[0]), model.ParseValue(args[1]), flags.planType)
			if err != nil {
				return err
			}
			return s.render(r)
		}),
	}
}

func newSummaryCommand(flags *globalFlags) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "summary [CONTRACT_ID]",
		Short: "Show Part C, Part D and overall star averages.",
		Long: `Summarize a loaded contract, or an ad-hoc measure mapping read from a
JSON file with --file.

Examples:
  starcalc summary H1234
  starcalc summary --file measures.json --output json`,
		Args: cobra.MaximumNArgs(1),
		RunE: run(flags, func(s *session, args []string) error {
			switch {
			case file != "" && len(args) == 0:
				measures, err := readMeasures(file)
				if err != nil {
					return err
				}
				sum, err := s.svc.Summarize(s.context(), measures, flags.planType)
				if err != nil {
					return err
				}
				return s.render(sum)
			case file == "" && len(args) == 1:
				rep, err := s.svc.Contract(s.context(), args[0], flags.planType)
				if err != nil {
					return err
				}
				return s.render(rep)
			default:
				return fmt.Errorf("%w: give either a contract ID or --file", errUsage)
			}
		}),
	}
	cmd.Flags().StringVar(&file, "file", "", "JSON object mapping full measure codes to values")
	return cmd
}

func readMeasures(path string) (model.Measures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read measures: %w", err)
	}
	var m model.Measures
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode measures %s: %w", path, err)
	}
	return m, nil
}

// parseOverrides turns "CODE=VALUE" pairs into a proportion map. The split is
// on the last '=' so codes may contain one.
func parseOverrides(pairs []string) (map[model.MeasureCode]float64, error) {
	out := make(map[model.MeasureCode]float64, len(pairs))
	for _, p := range pairs {
		i := strings.LastIndex(p, "=")
		if i <= 0 {
			return nil, fmt.Errorf("%w: override %q is not CODE=VALUE", errUsage, p)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(p[i+1:]), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: override %q: %w", errUsage, p, err)
		}
		out[model.MeasureCode(strings.TrimSpace(p[:i]))] = v
	}
	return out, nil
}

func newProjectCommand(flags *globalFlags) *cobra.Command {
	var (
		sets  []string
		boost float64
		reset bool
	)
	cmd := &cobra.Command{
		Use:   "project CONTRACT_ID",
		Short: "Project a contract's averages under what-if values.",
		Long: `Lay new measure values over a contract's baseline and compare the
averages before and after.

--reset seeds the scenario with the baseline values of the measures of
interest, --set overrides single measures and --boost adds percentage
points to every measure of interest and override, capped at 100%.

Examples:
  starcalc project H1234 --set "C14: Medication Reconciliation Post-Discharge=0.9"
  starcalc project H1234 --boost 5`,
		Args: cobra.ExactArgs(1),
		RunE: run(flags, func(s *session, args []string) error {
			overrides, err := parseOverrides(sets)
			if err != nil {
				return err
			}
			p, err := s.svc.Project(s.context(), args[0], types.ProjectionRequest{
				PlanType:  flags.planType,
				Overrides: overrides,
				Boost:     boost,
				Reset:     reset,
			})
			if err != nil {
				return err
			}
			return s.render(p)
		}),
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, "Override as CODE=VALUE (repeatable)")
	cmd.Flags().Float64Var(&boost, "boost", 0, "Percentage points added to every measure of interest and override")
	cmd.Flags().BoolVar(&reset, "reset", false, "Start from the baseline values of the measures of interest")
	return cmd
}

func newSimulateCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "simulate",
		Short: "Project every contract with the configured uplift.",
		Long: `Add the configured uplift to each measure of interest of every loaded
contract and report the change in overall average. Contracts are
processed in parallel by the configured number of workers.

Examples:
  starcalc simulate
  starcalc simulate --output parquet --output-file simulation.parquet`,
		Args: cobra.NoArgs,
		RunE: run(flags, func(s *session, _ []string) error {
			rep, err := s.svc.Simulate(s.context(), flags.planType)
			if err != nil {
				return err
			}
			return s.render(rep)
		}),
	}
}
