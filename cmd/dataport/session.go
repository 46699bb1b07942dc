package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/brizzai/dataport-cli/internal/session"
	"github.com/brizzai/dataport-cli/internal/tokens"
	"github.com/brizzai/dataport-cli/internal/tui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var errLoginCancelled = errors.New("login cancelled")

// notifySessionEnd tells the user when a refresh failure logged them out.
func notifySessionEnd(cmd *cobra.Command, m *session.Manager) (unsubscribe func()) {
	return m.Subscribe(func(e session.SessionEnded) {
		if e.Reason != session.ReasonRefreshFailed {
			return
		}
		pterm.Warning.WithWriter(cmd.ErrOrStderr()).Println("Your DataPort session has ended. Run `dataport login` to sign in again.")
	})
}

// withSession is withApp for commands that talk to the API as the logged in user.
func withSession(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		defer notifySessionEnd(cmd, a.Manager)()
		err := fn(ctx, a)
		if errors.Is(err, session.ErrNoAccessToken) {
			return errors.New("not logged in, run `dataport login` first")
		}
		return err
	})
}

func newLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to DataPort with email and password",
		Long: `Sign in to DataPort. In a terminal an interactive form is shown; otherwise the
email comes from --email and the password is read from the first line of stdin.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			passwordStdin, _ := cmd.Flags().GetBool("password-stdin")

			return withApp(cmd, func(ctx context.Context, a *app) error {
				var (
					user *tokens.UserData
					err  error
				)
				if !passwordStdin && isInteractive(cmd) {
					user, err = loginInteractive(ctx, a.Manager, email)
				} else {
					user, err = loginPrompt(ctx, cmd, a.Manager, email)
				}
				if err != nil {
					return err
				}

				w := cmd.OutOrStdout()
				return render(w, formatOf(cmd), user, func(w io.Writer) error {
					pterm.Success.WithWriter(w).Println("Logged in to DataPort")
					return printUser(w, user)
				})
			})
		},
	}
	cmd.Flags().String("email", "", "Account email")
	cmd.Flags().Bool("password-stdin", false, "Read the password from stdin")
	return cmd
}

func isInteractive(cmd *cobra.Command) bool {
	_, in := terminalFd(cmd.InOrStdin())
	_, out := terminalFd(cmd.OutOrStdout())
	return in && out
}

func loginInteractive(ctx context.Context, m *session.Manager, email string) (*tokens.UserData, error) {
	var user *tokens.UserData
	model := tui.NewLoginModel(ctx, func(ctx context.Context, email, password string) error {
		u, err := m.Login(ctx, email, password)
		if err != nil {
			return err
		}
		user = u
		return nil
	}, email)

	final, err := tea.NewProgram(model, tea.WithContext(ctx)).Run()
	if err != nil {
		return nil, fmt.Errorf("error running login form: %w", err)
	}
	result, ok := final.(tui.LoginModel)
	if !ok || !result.Done {
		return nil, errLoginCancelled
	}
	return user, nil
}

func loginPrompt(ctx context.Context, cmd *cobra.Command, m *session.Manager, email string) (*tokens.UserData, error) {
	in := cmd.InOrStdin()
	reader := bufio.NewReader(in)
	w := cmd.ErrOrStderr()

	var err error
	if email == "" {
		if _, isTTY := terminalFd(in); !isTTY {
			return nil, errors.New("--email is required when stdin is not a terminal")
		}
		if email, err = promptLine(reader, w, "Email: "); err != nil {
			return nil, err
		}
	}
	password, err := promptPassword(in, reader, w)
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}
	return m.Login(ctx, email, password)
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the session and forget the stored credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if a.Manager.State() == session.StateAnonymous {
					pterm.Info.WithWriter(cmd.OutOrStdout()).Println("Not logged in")
					return nil
				}
				a.Manager.Logout(ctx)
				pterm.Success.WithWriter(cmd.OutOrStdout()).Println("Logged out")
				return nil
			})
		},
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the profile of the logged in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, a *app) error {
				user, err := a.Manager.CurrentUser(ctx)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), formatOf(cmd), user, func(w io.Writer) error {
					return printUser(w, user)
				})
			})
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the local session state without contacting the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				status := a.Manager.Status()
				return render(cmd.OutOrStdout(), formatOf(cmd), status, func(w io.Writer) error {
					return printStatus(w, status)
				})
			})
		},
	}
}

func newRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Exchange the refresh token for a new access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, a *app) error {
				if _, ok := a.Manager.Store().RefreshToken(); !ok {
					return session.ErrNoAccessToken
				}
				if _, ok := a.Manager.Refresh(ctx); !ok {
					if a.Manager.State() == session.StateAnonymous {
						a.Manager.EndSession(session.ReasonRefreshFailed)
						return session.ErrSessionExpired
					}
					return errors.New("token refresh failed, see the log for details")
				}

				status := a.Manager.Status()
				return render(cmd.OutOrStdout(), formatOf(cmd), status, func(w io.Writer) error {
					pterm.Success.WithWriter(w).Println("Access token refreshed")
					return printStatus(w, status)
				})
			})
		},
	}
}
