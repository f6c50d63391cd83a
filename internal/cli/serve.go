package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"tradelog/internal/ai"
	apperrors "tradelog/internal/errors"
	"tradelog/internal/server"
	"tradelog/internal/store"
)

// addServeCommand adds the backend API server command.
func addServeCommand(rootCmd *cobra.Command, app *App) {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the backend API server",
		Long:  "Start the HTTP API: auth, trades, analytics, saved analyses, and AI strategy endpoints.",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			log := app.Logger.With().Str("component", "serve").Logger()

			if port == 0 {
				port = app.Config.Server.Port
			}

			st, err := store.NewSQLiteStore(app.Config.Server.DBPath)
			if err != nil {
				return apperrors.Wrap(err, "opening database")
			}
			defer st.Close()

			providers := ai.FromCredentials(app.Config.Credentials)
			if len(providers) == 0 {
				log.Warn().Msg("No AI provider keys configured, analyses will be synthesized locally")
			}

			srv := server.New(server.Config{
				Port:        port,
				FrontendURL: app.Config.Server.FrontendURL,
				Store:       st,
				Providers:   providers,
				Log:         app.Logger,
			})

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start()
			}()

			output.Info("Listening on port %d", port)

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return apperrors.Wrap(err, "server stopped")
			case sig := <-quit:
				log.Info().Str("signal", sig.String()).Msg("Shutting down")
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				return apperrors.Wrap(err, "graceful shutdown failed")
			}
			output.Success("✓ Server stopped")
			return nil
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "listen port (default from config / PORT env)")
	rootCmd.AddCommand(cmd)
}
