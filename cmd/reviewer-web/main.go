package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/thumbnail-reviewer/internal/agent"
	"github.com/fpang/thumbnail-reviewer/internal/auth"
	"github.com/fpang/thumbnail-reviewer/internal/config"
	"github.com/fpang/thumbnail-reviewer/internal/logging"
	"github.com/fpang/thumbnail-reviewer/internal/memory"
	"github.com/fpang/thumbnail-reviewer/internal/orchestrator"
	"github.com/fpang/thumbnail-reviewer/internal/server"
)

// CLI flags
var (
	configFlag string
	portFlag   int
	modelFlag  string
)

var rootCmd = &cobra.Command{
	Use:   "reviewer-web",
	Short: "AI thumbnail review server",
	Long: `Reviewer Web starts an HTTP server that scores video thumbnails.
Each upload runs through deterministic pixel metrics plus three AI
analysis passes (vision, coaching, engagement) and gets fused into a
single 0-10 verdict with concrete improvement suggestions.

Examples:
  reviewer-web
  reviewer-web --port 9090
  reviewer-web --config reviewer.yaml --model gemini-2.5-pro`,
	Run: runMain,
}

func init() {
	rootCmd.Flags().StringVarP(&configFlag, "config", "c", "", "Path to YAML config file")
	rootCmd.Flags().IntVar(&portFlag, "port", 0, "Port to listen on (overrides config)")
	rootCmd.Flags().StringVarP(&modelFlag, "model", "m", "", "Gemini model to use (overrides config)")
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
	if portFlag != 0 {
		cfg.Server.Port = portFlag
	}
	if modelFlag != "" {
		cfg.Gemini.Model = modelFlag
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
	log.Info().Str("model", cfg.Gemini.Model).Msg("Gemini client initialized")

	store, err := memory.NewSQLiteStore(cfg.Memory.DBPath, cfg.Memory.HistoryCap, cfg.Memory.SummaryWindow)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Memory.DBPath).Msg("Failed to open session store")
	}
	defer store.Close()

	orch := orchestrator.New(invoker, cfg, store)

	if err := server.New(cfg, orch, store).Start(); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}
