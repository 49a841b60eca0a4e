package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/procureiq/deepresearch/internal/llm"
	"github.com/procureiq/deepresearch/internal/model"
	"github.com/procureiq/deepresearch/internal/pipeline"
	"github.com/procureiq/deepresearch/internal/report"
	"github.com/procureiq/deepresearch/internal/template"
)

var (
	outJSON      string
	outMD        string
	researchWait time.Duration
	studyType    string
	category     string
	regions      []string
	timeframe    string
	templateDir  string
	noCache      bool
)

// researchCmd represents the research command
var researchCmd = &cobra.Command{
	Use:   "research <query>",
	Short: "Run a deep research job and write the report",
	Long: `Research decomposes a procurement question into research agents,
consolidates their sources into a cited pool, synthesises a templated
report, and extracts data visuals from the prose.

Intake questions are answered from flags and defaults; the job starts
immediately.

Example:
  deepresearch research "lithium carbonate price outlook" --region APAC
  deepresearch research "packaging supplier risk in Mexico" --study-type risk_assessment --md report.md`,
	Args: cobra.ExactArgs(1),
	RunE: runResearch,
}

func init() {
	rootCmd.AddCommand(researchCmd)

	// Output flags
	researchCmd.Flags().StringVar(&outJSON, "json", "report.json", "output JSON path")
	researchCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path (optional)")

	// Job flags
	researchCmd.Flags().DurationVar(&researchWait, "timeout", 10*time.Minute, "overall job timeout")
	researchCmd.Flags().StringVar(&studyType, "study-type", "", "study type (market_analysis, sourcing_study, cost_model, supplier_assessment, risk_assessment, custom)")
	researchCmd.Flags().StringVar(&category, "category", "", "procurement category hint")
	researchCmd.Flags().StringSliceVar(&regions, "region", nil, "region(s) of interest")
	researchCmd.Flags().StringVar(&timeframe, "timeframe", "", "timeframe of interest (e.g. 2023-2026)")
	researchCmd.Flags().StringVar(&templateDir, "templates", "", "directory of additional report templates (YAML)")
	researchCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the schema response cache")
}

func runResearch(cmd *cobra.Command, args []string) error {
	query := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := zap.NewNop()
	if verbose {
		logger, err = zap.NewDevelopment()
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		defer func() { _ = logger.Sync() }()
	}

	clients, err := llm.NewClients(cfg, logger)
	if err != nil {
		return err
	}

	registry := template.NewRegistry()
	if templateDir != "" {
		if err := registry.LoadDir(templateDir); err != nil {
			return fmt.Errorf("load templates: %w", err)
		}
	}

	controller := pipeline.NewController(cfg, clients, registry, nil, logger)

	st := model.StudyType(studyType)
	answers := model.IntakeAnswers{}
	if len(regions) > 0 {
		answers[model.IntakeRegions] = regions
	}
	if timeframe != "" {
		answers.Set(model.IntakeTimeframe, timeframe)
	}

	jobID, _ := controller.StartDeepResearch(pipeline.StartRequest{
		Query:      query,
		StudyType:  st,
		Category:   category,
		Answers:    answers,
		SkipIntake: true,
	})

	events, stop, err := controller.Subscribe(jobID)
	if err != nil {
		return err
	}
	defer stop()

	// Cancel the job on interrupt so it lands in a clean error state.
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	deadline := time.NewTimer(researchWait)
	defer deadline.Stop()

	for {
		select {
		case <-interrupt:
			fmt.Fprintln(os.Stderr, "Cancelling...")
			_ = controller.Cancel(jobID)

		case <-deadline.C:
			_ = controller.Cancel(jobID)
			return fmt.Errorf("job did not finish within %v", researchWait)

		case ev, ok := <-events:
			if !ok {
				return fmt.Errorf("event stream closed unexpectedly")
			}
			if verbose {
				printEvent(ev)
			}
			switch ev.Type {
			case model.EventReportReady:
				return writeReport(ev.Data.Report)
			case model.EventError:
				if ev.Data.Error != nil {
					return fmt.Errorf("research failed: %s", ev.Data.Error.Message)
				}
				return fmt.Errorf("research failed")
			}
		}
	}
}

func printEvent(ev model.ProgressEvent) {
	if ev.Data.Progress == nil {
		return
	}
	p := ev.Data.Progress
	switch ev.Type {
	case model.EventPhaseChange:
		fmt.Fprintf(os.Stderr, "→ stage: %s\n", p.Stage)
	case model.EventSourceFound:
		fmt.Fprintf(os.Stderr, "  sources: %d unique\n", p.TotalSources)
	case model.EventFindingEmerged:
		if n := len(p.InsightStream); n > 0 {
			fmt.Fprintf(os.Stderr, "  finding: %s\n", p.InsightStream[n-1])
		}
	}
}

func writeReport(rep *model.Report) error {
	if rep == nil {
		return fmt.Errorf("job completed without a report")
	}
	renderer := report.NewRenderer(verbose)
	if outJSON != "" {
		if err := renderer.RenderJSON(rep, outJSON); err != nil {
			return err
		}
	}
	if outMD != "" {
		if err := renderer.RenderMarkdown(rep, outMD); err != nil {
			return err
		}
	}
	renderer.RenderSummary(rep)
	return nil
}

// loadConfig resolves configuration: defaults, then the config file read by
// viper, then provider key environment variables, then flags.
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()

	if v := viper.GetString("reasoner.base_url"); v != "" {
		cfg.Reasoner.BaseURL = v
	}
	if v := viper.GetString("reasoner.api_key"); v != "" {
		cfg.Reasoner.APIKey = v
	}
	if v := viper.GetString("reasoner.reasoner_model"); v != "" {
		cfg.Reasoner.ReasonerModel = v
	}
	if v := viper.GetString("reasoner.chat_model"); v != "" {
		cfg.Reasoner.ChatModel = v
	}
	if v := viper.GetString("schema.base_url"); v != "" {
		cfg.Schema.BaseURL = v
	}
	if v := viper.GetString("schema.api_key"); v != "" {
		cfg.Schema.APIKey = v
	}
	if v := viper.GetString("schema.model"); v != "" {
		cfg.Schema.Model = v
	}

	// Provider keys fall back to the conventional environment variables.
	if cfg.Reasoner.APIKey == "" {
		cfg.Reasoner.APIKey = os.Getenv("DEEPSEEK_API_KEY")
	}
	if cfg.Reasoner.APIKey == "" {
		cfg.Reasoner.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Schema.APIKey == "" {
		cfg.Schema.APIKey = os.Getenv("GEMINI_API_KEY")
	}

	if cfg.Reasoner.APIKey == "" {
		return nil, fmt.Errorf("no reasoner API key: set DEEPSEEK_API_KEY or reasoner.api_key in config")
	}

	cfg.Cache.Enabled = cfg.Cache.Enabled && !noCache
	cfg.Output.Verbose = verbose
	return cfg, nil
}
