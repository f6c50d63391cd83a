package cli

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"tradelog/internal/ai"
	"tradelog/internal/config"
	"tradelog/internal/logging"
	"tradelog/internal/session"
	"tradelog/internal/store"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2025-08-01"
)

// App holds the application dependencies.
type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Local    *store.LocalStore
	Session  *session.Manager
	Analyzer *ai.Client
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	local, err := store.OpenLocalStore(cfg.Store.Path, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to open local store, journal commands may be unavailable")
	} else {
		app.Local = local
		logger.Debug().Str("path", cfg.Store.Path).Msg("Local store opened")
	}

	timeout := time.Duration(cfg.Client.TimeoutSeconds) * time.Second
	vault := session.NewVault(config.DefaultConfigDir(), logger)
	app.Session = session.NewManager(cfg.Client.APIBaseURL, timeout, vault, logger)
	app.Analyzer = ai.NewClient(cfg.Client.APIBaseURL, timeout, logger)

	rootCmd := &cobra.Command{
		Use:   "tradelog",
		Short: "Tradelog - trading journal and analytics CLI",
		Long: `Tradelog is a trading journal for discretionary traders.

It records trades locally, computes performance analytics (win rate,
profit factor, streaks), and requests AI trade-strategy analyses with a
deterministic offline fallback.

Use 'tradelog help <command>' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/tradelog)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	addCoreCommands(rootCmd, app)
	addJournalCommands(rootCmd, app)
	addAnalyticsCommands(rootCmd, app)
	addAICommands(rootCmd, app)
	addAuthCommands(rootCmd, app)
	addServeCommand(rootCmd, app)

	return rootCmd
}

// addCoreCommands adds core utility commands.
func addCoreCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("Tradelog v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and manage application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": config.DefaultConfigDir()})
			} else {
				output.Println(config.DefaultConfigDir())
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("✓ Configuration is valid")
			}
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("Server Configuration")
	output.Printf("  Port:         %d\n", cfg.Server.Port)
	output.Printf("  Frontend URL: %s\n", cfg.Server.FrontendURL)
	output.Printf("  Database:     %s\n", cfg.Server.DBPath)
	output.Println()

	output.Bold("Client Configuration")
	output.Printf("  API Base URL: %s\n", cfg.Client.APIBaseURL)
	output.Printf("  Timeout:      %ds\n", cfg.Client.TimeoutSeconds)
	output.Println()

	output.Bold("Local Store")
	output.Printf("  Path:         %s\n", cfg.Store.Path)
	output.Println()

	output.Bold("AI Providers")
	output.Printf("  OpenRouter:   %v\n", cfg.Credentials.OpenRouterKey != "")
	output.Printf("  Kimi:         %v\n", cfg.Credentials.KimiAPIKey != "")
	output.Printf("  Google AI:    %v\n", cfg.Credentials.GoogleAIKey != "")
}
