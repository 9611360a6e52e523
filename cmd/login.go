package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/iksnae/dietchat/internal"
	"github.com/iksnae/dietchat/internal/api"
)

var (
	loginEmail        string
	passwordFromStdin bool
	registerName      string
	registerDiet      []string
	registerGoals     []string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and store the access token",
	Long: `Sign in with your email and password. The access token is kept in the
configured credential store and sent with every later request.

The password is read from the terminal without echo, or from standard input
with --password-stdin.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app) error {
			in := bufio.NewReader(cmd.InOrStdin())
			email, err := promptValue(cmd, in, "Email: ", loginEmail)
			if err != nil {
				return err
			}
			password, err := readPassword(cmd, in)
			if err != nil {
				return err
			}

			a.quietExpiry = true
			var user *api.User
			err = internal.ShowProgress(cmd.Context(), a.errOut, "Signing in...", func() error {
				var loginErr error
				user, loginErr = a.auth.Login(cmd.Context(), email, password)
				return loginErr
			})
			if err != nil {
				if errors.Is(err, internal.ErrUnauthorized) {
					return internal.WithUserMessage(err, "invalid email or password")
				}
				return err
			}

			internal.PrintSuccess(a.out, fmt.Sprintf("Logged in as %s (%s)", user.Name, user.Email))
			if exp, ok := a.auth.TokenExpiry(); ok {
				internal.LogInfo("Token valid until %s", exp.Local().Format(time.RFC1123))
			}
			return nil
		})
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored access token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app) error {
			a.auth.Logout()
			internal.PrintSuccess(a.out, "Logged out")
			return nil
		})
	},
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account",
	Long: `Create an account. Registration does not sign you in; run
'dietchat login' afterwards.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app) error {
			in := bufio.NewReader(cmd.InOrStdin())
			email, err := promptValue(cmd, in, "Email: ", loginEmail)
			if err != nil {
				return err
			}
			name, err := promptValue(cmd, in, "Name: ", registerName)
			if err != nil {
				return err
			}
			password, err := readPassword(cmd, in)
			if err != nil {
				return err
			}

			resp, err := a.auth.Register(cmd.Context(), api.RegisterRequest{
				Email:              email,
				Password:           password,
				Name:               name,
				DietaryPreferences: registerDiet,
				HealthGoals:        registerGoals,
			})
			if err != nil {
				return err
			}
			msg := resp.Message
			if msg == "" {
				msg = "Account created"
			}
			internal.PrintSuccess(a.out, msg+". Run `dietchat login` to sign in.")
			return nil
		})
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLogin(cmd, func(a *app, user *api.User) error {
			fmt.Fprintf(a.out, "%s <%s>\n", user.Name, user.Email)
			if exp, ok := a.auth.TokenExpiry(); ok {
				fmt.Fprintf(a.out, "Token expires %s\n", exp.Local().Format(time.RFC1123))
			}
			return nil
		})
	},
}

// promptValue returns value, or asks for it when empty
func promptValue(cmd *cobra.Command, in *bufio.Reader, prompt, value string) (string, error) {
	if value = strings.TrimSpace(value); value != "" {
		return value, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), prompt)
	line, err := readLine(in)
	if err != nil {
		return "", err
	}
	if line == "" {
		return "", fmt.Errorf("%s is required", strings.ToLower(strings.TrimSuffix(prompt, ": ")))
	}
	return line, nil
}

// readPassword reads the password without echo from a terminal, or as one
// line from standard input
func readPassword(cmd *cobra.Command, in *bufio.Reader) (string, error) {
	if !passwordFromStdin {
		if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
			raw, err := term.ReadPassword(int(f.Fd()))
			fmt.Fprintln(cmd.ErrOrStderr())
			if err != nil {
				return "", fmt.Errorf("failed to read password: %w", err)
			}
			return string(raw), nil
		}
	}
	password, err := readLine(in)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	if password == "" {
		return "", errors.New("password is required")
	}
	return password, nil
}

func readLine(in *bufio.Reader) (string, error) {
	line, err := in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(whoamiCmd)

	loginCmd.Flags().StringVar(&loginEmail, "email", "", "Account email (prompted when omitted)")
	loginCmd.Flags().BoolVar(&passwordFromStdin, "password-stdin", false, "Read the password from standard input")

	registerCmd.Flags().StringVar(&loginEmail, "email", "", "Account email (prompted when omitted)")
	registerCmd.Flags().StringVar(&registerName, "name", "", "Display name (prompted when omitted)")
	registerCmd.Flags().StringSliceVar(&registerDiet, "diet", nil, "Dietary preference (repeatable)")
	registerCmd.Flags().StringSliceVar(&registerGoals, "goal", nil, "Health goal (repeatable)")
	registerCmd.Flags().BoolVar(&passwordFromStdin, "password-stdin", false, "Read the password from standard input")
}
