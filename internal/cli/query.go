package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nmgenxys/starcalc/internal/adapters/mcp"
	"github.com/nmgenxys/starcalc/internal/domain/model"
)

func newContractsCommand(flags *globalFlags) *cobra.Command {
	var query string
	cmd := &cobra.Command{
		Use:   "contracts",
		Short: "List loaded contracts.",
		Args:  cobra.NoArgs,
		RunE: run(flags, func(s *session, _ []string) error {
			refs, err := s.svc.Contracts(s.context(), query)
			if err != nil {
				return err
			}
			return s.render(refs)
		}),
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "Case-insensitive substring of the contract name")
	return cmd
}

func newLeaderboardCommand(flags *globalFlags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Rank contracts by overall star average.",
		Long: `Rank loaded contracts by baseline overall average, highest first.
Contracts without an overall average are listed last and equal
averages share a rank.`,
		Args: cobra.NoArgs,
		RunE: run(flags, func(s *session, _ []string) error {
			entries, err := s.svc.Leaderboard(s.context(), limit, flags.planType)
			if err != nil {
				return err
			}
			return s.render(entries)
		}),
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of contracts to show")
	return cmd
}

func newThresholdsCommand(flags *globalFlags) *cobra.Command {
	var part string
	cmd := &cobra.Command{
		Use:   "thresholds",
		Short: "Show the loaded cutoff rules.",
		Args:  cobra.NoArgs,
		RunE: run(flags, func(s *session, _ []string) error {
			p := model.Part(strings.ToUpper(strings.TrimSpace(part)))
			if p != "" && p != model.PartC && p != model.PartD {
				return fmt.Errorf("%w: part must be C or D, got %q", errUsage, part)
			}
			rules, err := s.svc.Thresholds(s.context(), p)
			if err != nil {
				return err
			}
			return s.render(rules)
		}),
	}
	cmd.Flags().StringVar(&part, "part", "", "Limit to part C or D")
	return cmd
}

func newMCPCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the rating tools over MCP on stdio.",
		Long: `Launch a Model Context Protocol server on stdin/stdout exposing
rate_measure, contract_summary, project_contract, list_contracts and
leaderboard. Logs go to stderr.`,
		Args: cobra.NoArgs,
		RunE: run(flags, func(s *session, _ []string) error {
			return mcp.ServeStdio(s.svc)
		}),
	}
}
