package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"voicecart/internal/agent"
	"voicecart/internal/config"
	"voicecart/internal/logging"
	"voicecart/internal/transcribe"
)

var (
	// Global flags
	verbose   bool
	homePath  string
	contextID string
	timeout   time.Duration

	// Logger for non-interactive commands
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "voicecart",
	Short: "voicecart - voice-driven shopping assistant",
	Long: `voicecart is a natural-language command interpreter for an
e-commerce storefront. Spoken or typed utterances are classified into
shopping intents (add to cart, navigate, search, view product, modify
cart) and executed against a stock-aware cart.

Run without arguments to start the interactive chat interface.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if homePath == "" {
			homePath = config.DefaultHomePath()
		}
		if err := logging.Initialize(homePath); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: debug logging unavailable: %v\n", err)
		}

		// Skip the zap logger for interactive mode (it has its own UI)
		if cmd.Use == "voicecart" && cmd.CalledAs() == "voicecart" {
			return nil
		}

		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInteractiveChat()
	},
}

// runCmd executes a single utterance and prints the reply
var runCmd = &cobra.Command{
	Use:   "run [utterance]",
	Short: "Process one utterance and print the confirmation",
	Long: `Runs a single utterance through the full pipeline (classify,
resolve, dispatch) without the interactive UI.

Example:
  voicecart run "add 2 of product ID 3 to cart"
  voicecart run --product-context 3 "add this to cart"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runUtterance,
}

// transcribeCmd sends an audio file through the transcription gateway
var transcribeCmd = &cobra.Command{
	Use:   "transcribe [file]",
	Short: "Transcribe an audio file and print the text",
	Args:  cobra.ExactArgs(1),
	RunE:  runTranscribe,
}

// configCmd manages .voicecart/config.json
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage voicecart configuration",
}

var configSetKeyCmd = &cobra.Command{
	Use:   "set-key [provider] [key]",
	Short: "Set the API key for a provider (groq, gemini)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		provider, key := args[0], args[1]
		path := filepath.Join(homePath, "config.json")
		cfg, err := config.LoadUserConfig(path)
		if err != nil {
			return err
		}
		switch provider {
		case "groq":
			cfg.GroqAPIKey = key
		case "gemini":
			cfg.GeminiAPIKey = key
		default:
			return fmt.Errorf("unknown provider: %s (valid: groq, gemini)", provider)
		}
		if err := cfg.Save(path); err != nil {
			return err
		}
		fmt.Printf("Saved %s API key to %s\n", provider, path)
		return nil
	},
}

var configSetThemeCmd = &cobra.Command{
	Use:   "set-theme [light|dark]",
	Short: "Set the TUI theme",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		theme := args[0]
		if theme != "light" && theme != "dark" {
			return fmt.Errorf("unknown theme: %s (valid: light, dark)", theme)
		}
		path := filepath.Join(homePath, "config.json")
		cfg, err := config.LoadUserConfig(path)
		if err != nil {
			return err
		}
		cfg.Theme = theme
		if err := cfg.Save(path); err != nil {
			return err
		}
		fmt.Printf("Theme set to %s\n", theme)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&homePath, "home", "", "voicecart home directory (default: ~/.voicecart)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Operation timeout")

	runCmd.Flags().StringVar(&contextID, "product-context", "", "Ambient product id, as if viewing that product page")

	configCmd.AddCommand(configSetKeyCmd)
	configCmd.AddCommand(configSetThemeCmd)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(transcribeCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// printNav writes navigation directives to stdout for one-shot runs.
type printNav struct{}

func (printNav) GoTo(path string) {
	fmt.Printf("→ navigate %s\n", path)
}

func (printNav) GoToSearch(path, query string) {
	fmt.Printf("→ navigate %s?search=%s\n", path, query)
}

// runUtterance processes a single typed utterance end to end
func runUtterance(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	utterance := strings.Join(args, " ")
	logger.Info("Processing utterance", zap.String("input", utterance))

	app, err := buildApp(printNav{})
	if err != nil {
		return err
	}
	defer app.Close()

	reply, err := app.Pipeline.ProcessText(ctx, utterance, agent.PageContext{CurrentProductID: contextID})
	if err != nil {
		logger.Error("Pipeline failed", zap.Error(err))
	}
	fmt.Println(reply.Message)
	return nil
}

// runTranscribe sends one audio file through the transcription gateway
func runTranscribe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cfg, err := config.LoadUserConfig(filepath.Join(homePath, "config.json"))
	if err != nil {
		return err
	}
	if cfg.GroqAPIKey == "" {
		return fmt.Errorf("transcription requires a Groq API key; run 'voicecart config set-key groq <key>' or set GROQ_API_KEY")
	}

	audio, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("could not read audio file: %w", err)
	}

	client := transcribe.NewGroqWhisperClient(cfg.GroqAPIKey)
	if cfg.TranscriptionModel != "" {
		client.SetModel(cfg.TranscriptionModel)
	}

	logger.Info("Transcribing", zap.String("file", args[0]), zap.Int("bytes", len(audio)))
	text, err := client.Transcribe(ctx, audio, filepath.Base(args[0]), "")
	if err != nil {
		return err
	}
	fmt.Println(text)
	return nil
}
