package cli

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sipico/covid-counter-client/internal/auth"
	"github.com/sipico/covid-counter-client/internal/guard"
	"github.com/sipico/covid-counter-client/internal/storage"
)

func newLoginCommand(rt *runtime) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session credential",
		Long: `Sign in with email and password. Missing values are prompted for.

Accounts with a one-time passcode enabled are left awaiting the code: finish
with "covid-counter verify".`,
		Args: cobra.NoArgs,
		RunE: rt.withApp(func(cmd *cobra.Command, _ []string, app *App) error {
			p := rt.prompter(cmd)
			var err error
			if email == "" {
				if email, err = p.Line("Email"); err != nil {
					return err
				}
			}
			if password == "" {
				if password, err = p.Secret("Password"); err != nil {
					return err
				}
			}

			if err := app.Auth.Login(cmd.Context(), email, password); err != nil {
				return explain(err, auth.LoginFailed)
			}

			out := cmd.OutOrStdout()
			if app.Auth.State() == auth.StateAwaitingOTP {
				printNotice(cmd, app.Auth.Notice())
				//nolint:errcheck
				fmt.Fprintf(out, "A one-time passcode was sent to %s.\nRun `covid-counter verify` to enter it.\n", app.Auth.PendingEmail())
				return nil
			}
			//nolint:errcheck
			fmt.Fprintln(out, "Logged in.")
			return nil
		}),
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (prompted when omitted)")
	return cmd
}

func newVerifyCommand(rt *runtime) *cobra.Command {
	var code, email string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Enter the one-time passcode for a pending login",
		Args:  cobra.NoArgs,
		RunE: rt.withApp(func(cmd *cobra.Command, _ []string, app *App) error {
			if d := guard.Resolve(string(guard.RouteOTP), app.Session); d.Redirected {
				return errors.New("no login is waiting for a passcode; run `covid-counter login` first")
			}

			if code == "" {
				var err error
				if code, err = rt.prompter(cmd).Line("Code for " + app.Auth.PendingEmail()); err != nil {
					return err
				}
			}

			if err := app.Auth.VerifyOTP(cmd.Context(), email, code); err != nil {
				return explain(err, auth.OTPFailed)
			}
			//nolint:errcheck
			fmt.Fprintln(cmd.OutOrStdout(), "Verified. Logged in.")
			return nil
		}),
	}

	cmd.Flags().StringVar(&code, "code", "", "one-time passcode (prompted when omitted)")
	cmd.Flags().StringVar(&email, "email", "", "email the code was sent to (defaults to the pending login)")
	return cmd
}

func newResetCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Abandon a pending one-time passcode login",
		Args:  cobra.NoArgs,
		RunE: rt.withApp(func(cmd *cobra.Command, _ []string, app *App) error {
			if err := app.Auth.Reset(cmd.Context()); err != nil {
				if errors.Is(err, auth.ErrInvalidTransition) {
					return errors.New("no login is waiting for a passcode")
				}
				return err
			}
			//nolint:errcheck
			fmt.Fprintln(cmd.OutOrStdout(), "Pending login cleared.")
			return nil
		}),
	}
}

func newRegisterCommand(rt *runtime) *cobra.Command {
	var name, email, password string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Long: `Create an account. Registration never signs you in: run
"covid-counter login" afterwards.`,
		Args: cobra.NoArgs,
		RunE: rt.withApp(func(cmd *cobra.Command, _ []string, app *App) error {
			p := rt.prompter(cmd)
			var err error
			if name == "" {
				if name, err = p.Line("Name"); err != nil {
					return err
				}
			}
			if email == "" {
				if email, err = p.Line("Email"); err != nil {
					return err
				}
			}
			if password == "" {
				if password, err = p.Secret("Password"); err != nil {
					return err
				}
			}

			if err := app.Auth.Register(cmd.Context(), name, email, password); err != nil {
				return explain(err, auth.RegisterFailed)
			}
			//nolint:errcheck
			fmt.Fprintln(cmd.OutOrStdout(), "Account created. Run `covid-counter login` to sign in.")
			return nil
		}),
	}

	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (prompted when omitted)")
	return cmd
}

func newLogoutCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: rt.withApp(func(cmd *cobra.Command, _ []string, app *App) error {
			if err := app.Auth.Logout(cmd.Context()); err != nil {
				return err
			}
			//nolint:errcheck
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		}),
	}
}

func newStatusCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the session state and configuration",
		Args:  cobra.NoArgs,
		RunE: rt.withApp(func(cmd *cobra.Command, _ []string, app *App) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)

			row := func(k, v string) {
				//nolint:errcheck
				fmt.Fprintf(w, "%s:\t%s\n", k, v)
			}

			row("State", app.Auth.State().String())
			if pending := app.Auth.PendingEmail(); pending != "" {
				row("Pending email", pending)
			}
			if token := app.Session.Credential(); token != "" {
				// Claims are read without verifying the signature.
				if info, err := auth.InspectToken(token); err == nil {
					if info.Email != "" {
						row("Signed in as", info.Email)
					}
					if !info.ExpiresAt.IsZero() {
						exp := info.ExpiresAt.Local().Format(time.RFC3339)
						if info.Expired(time.Now()) {
							exp += " (expired)"
						}
						row("Token expires", exp)
					}
				}
			}
			row("API", app.Config.APIURL)
			where := app.Config.StorageBackend
			if app.Config.StorageBackend != storage.BackendMemory {
				where += " (" + app.Config.StoragePath + ")"
			}
			if app.Config.StorageEncryptionKey != "" {
				where += ", encrypted"
			}
			row("Storage", where)
			return w.Flush()
		}),
	}
}

func printNotice(cmd *cobra.Command, n auth.Notice) {
	var parts []string
	if n.Message != "" {
		parts = append(parts, n.Message)
	}
	if n.ExpiresAt != "" {
		parts = append(parts, "Expires: "+n.ExpiresAt)
	}
	if len(parts) > 0 {
		//nolint:errcheck
		fmt.Fprintln(cmd.OutOrStdout(), strings.Join(parts, " "))
	}
}
