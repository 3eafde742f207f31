package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/thumbnail-reviewer/internal/agent"
	"github.com/fpang/thumbnail-reviewer/internal/auth"
	"github.com/fpang/thumbnail-reviewer/internal/config"
	"github.com/fpang/thumbnail-reviewer/internal/imaging"
	"github.com/fpang/thumbnail-reviewer/internal/logging"
	"github.com/fpang/thumbnail-reviewer/internal/memory"
	"github.com/fpang/thumbnail-reviewer/internal/orchestrator"
)

// CLI flags
var (
	fileFlag    string
	titleFlag   string
	descFlag    string
	sessionFlag string
	deepFlag    bool
	jsonFlag    bool
	configFlag  string
	modelFlag   string
)

var rootCmd = &cobra.Command{
	Use:   "reviewer-cli",
	Short: "AI thumbnail review from the command line",
	Long: `Reviewer CLI scores a single thumbnail without running the server.
The image runs through pixel metrics plus three AI analysis passes
(vision, coaching, engagement) and the fused verdict is printed as a
readable review or as JSON.

Pass --session to accumulate history across runs; the coach then
tailors its critique to your recent style.

Examples:
  reviewer-cli --file thumb.png
  reviewer-cli -f thumb.png --title "I built a boat" --deep
  reviewer-cli -f thumb.png --session my-channel --json`,
	Run: runMain,
}

func init() {
	rootCmd.Flags().StringVarP(&fileFlag, "file", "f", "", "Thumbnail image to review (required)")
	rootCmd.Flags().StringVarP(&titleFlag, "title", "t", "", "Video title shown with the thumbnail")
	rootCmd.Flags().StringVar(&descFlag, "description", "", "Video description")
	rootCmd.Flags().StringVarP(&sessionFlag, "session", "s", "", "Session ID for cross-run history (empty = no history)")
	rootCmd.Flags().BoolVar(&deepFlag, "deep", false, "Deep mode: wider time budgets for the AI passes")
	rootCmd.Flags().BoolVar(&jsonFlag, "json", false, "Print the full result as JSON")
	rootCmd.Flags().StringVarP(&configFlag, "config", "c", "", "Path to YAML config file")
	rootCmd.Flags().StringVarP(&modelFlag, "model", "m", "", "Gemini model to use (overrides config)")
	rootCmd.MarkFlagRequired("file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMain(cmd *cobra.Command, args []string) {
	_ = godotenv.Load()
	logging.Init()

	cfg, err := config.Load(configFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if modelFlag != "" {
		cfg.Gemini.Model = modelFlag
	}

	data, err := os.ReadFile(fileFlag)
	if err != nil {
		log.Fatal().Err(err).Str("file", fileFlag).Msg("Failed to read image")
	}
	sample, err := imaging.NewSample(data, cfg.Server.MaxUploadBytes)
	if err != nil {
		log.Fatal().Err(err).Str("file", fileFlag).Msg("Not a reviewable image")
	}

	apiKey, err := auth.GetAPIKey()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to get API key")
	}

	ctx := context.Background()
	invoker, err := agent.NewGeminiInvoker(ctx, apiKey, cfg.Gemini.Model)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Gemini client")
	}

	store, err := memory.NewSQLiteStore(cfg.Memory.DBPath, cfg.Memory.HistoryCap, cfg.Memory.SummaryWindow)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Memory.DBPath).Msg("Failed to open session store")
	}
	defer store.Close()

	result, err := orchestrator.New(invoker, cfg, store).Review(ctx, orchestrator.Request{
		Sample:      sample,
		SessionID:   sessionFlag,
		Title:       titleFlag,
		Description: descFlag,
		Deep:        deepFlag,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Review failed")
	}

	if jsonFlag {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(result)
		return
	}

	fmt.Printf("\nScore: %.1f/10\n\n", result.CombinedScore)
	for _, line := range result.Narrative {
		fmt.Println("  " + line)
	}
	if len(result.AgentErrors) > 0 {
		fmt.Println()
		for name, msg := range result.AgentErrors {
			fmt.Printf("  note: %s analysis unavailable (%s)\n", name, msg)
		}
	}
	fmt.Println()
}
