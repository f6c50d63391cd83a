package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	apperrors "tradelog/internal/errors"
	"tradelog/internal/session"
)

// addAuthCommands adds the authentication command group.
func addAuthCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Account and session management",
		Long:  "Register, log in, and inspect the current session against the backend.",
	}

	cmd.AddCommand(newAuthRegisterCmd(app))
	cmd.AddCommand(newAuthLoginCmd(app))
	cmd.AddCommand(newAuthLogoutCmd(app))
	cmd.AddCommand(newAuthStatusCmd(app))

	rootCmd.AddCommand(cmd)
}

func newAuthRegisterCmd(app *App) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "register <email>",
		Short: "Create an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			password, err := promptPassword("Password: ")
			if err != nil {
				return err
			}
			confirm, err := promptPassword("Confirm password: ")
			if err != nil {
				return err
			}
			if password != confirm {
				return apperrors.NewValidationError("password", "", "passwords do not match")
			}

			message, err := app.Session.Register(cmd.Context(), args[0], password, name)
			if err != nil {
				if apperrors.Is(err, apperrors.ErrEmailTaken) {
					output.Error("That email is already registered.")
				}
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]string{"message": message})
			}
			output.Success("✓ %s", message)
			output.Info("Log in with 'tradelog auth login %s'", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name")
	return cmd
}

func newAuthLoginCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "login <email>",
		Short: "Log in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			password, err := promptPassword("Password: ")
			if err != nil {
				return err
			}

			if err := app.Session.Login(cmd.Context(), args[0], password); err != nil {
				if apperrors.Is(err, apperrors.ErrInvalidCredentials) {
					output.Error("Invalid email or password.")
				}
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]string{"state": string(app.Session.State())})
			}
			output.Success("✓ Logged in as %s", args[0])
			return nil
		},
	}
}

func newAuthLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out and clear the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			if err := app.Session.Logout(cmd.Context()); err != nil {
				if apperrors.Is(err, apperrors.ErrNotAuthenticated) {
					output.Info("Not logged in.")
					return nil
				}
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]string{"state": string(app.Session.State())})
			}
			output.Success("✓ Logged out")
			return nil
		},
	}
}

func newAuthStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show session status",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			state := app.Session.State()
			if state != session.StateAuthenticated {
				if output.IsJSON() {
					return output.JSON(map[string]string{"state": string(state)})
				}
				output.Info("Not logged in.")
				return nil
			}

			user, err := app.Session.CurrentUser(cmd.Context())
			if err != nil {
				if apperrors.Is(err, apperrors.ErrSessionExpired) {
					output.Warning("Session expired, log in again.")
					return nil
				}
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"state": string(app.Session.State()),
					"user":  user,
				})
			}
			output.Success("✓ Logged in as %s", user.Email)
			if user.Name != "" {
				output.Printf("  Name: %s\n", user.Name)
			}
			return nil
		},
	}
}

// promptPassword reads a password without echo, falling back to a
// plain line read when stdin is not a terminal (tests, pipes).
func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	if term.IsTerminal(int(syscall.Stdin)) {
		raw, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", apperrors.Wrap(err, "reading password")
		}
		return string(raw), nil
	}

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", apperrors.Wrap(err, "reading password")
	}
	return strings.TrimSpace(line), nil
}
