package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/procureiq/deepresearch/internal/intent"
	"github.com/procureiq/deepresearch/internal/model"
)

var scoreJSON bool

// scoreCmd represents the score command
var scoreCmd = &cobra.Command{
	Use:   "score <query>",
	Short: "Score a query's deep-research intent",
	Long: `Score runs the intent scorer over a query without starting a job:
how strongly does the phrasing suggest the user wants a full research
report rather than a quick answer?

Scores at or above 0.75 would trigger deep research automatically;
scores in [0.45, 0.75) would surface a suggestion.

Example:
  deepresearch score "comprehensive market analysis of lithium in APAC"
  deepresearch score "what is steel" --json`,
	Args: cobra.ExactArgs(1),
	RunE: runScore,
}

func init() {
	rootCmd.AddCommand(scoreCmd)
	scoreCmd.Flags().BoolVar(&scoreJSON, "json", false, "emit the result as JSON")
}

func runScore(cmd *cobra.Command, args []string) error {
	scorer := intent.NewScorer(model.DefaultConfig().Estimates)
	result := scorer.Score(args[0], nil)

	if scoreJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Printf("Score:       %.2f\n", result.Score)
	fmt.Printf("Study type:  %s\n", result.StudyType)
	fmt.Printf("Trigger:     %v\n", result.ShouldTrigger)
	fmt.Printf("Suggest:     %v\n", result.ShouldSuggest)
	fmt.Printf("Reason:      %s\n", result.Reason)
	if result.EstimatedCredits > 0 {
		fmt.Printf("Estimate:    %d credits, ~%d min\n", result.EstimatedCredits, result.EstimatedMinutes)
	}
	if len(result.Signals) > 0 {
		fmt.Println("Signals:")
		for _, sig := range result.Signals {
			fmt.Printf("  %-8s %+.2f  %s\n", sig.Class, sig.Weight, sig.Label)
		}
	}
	return nil
}
