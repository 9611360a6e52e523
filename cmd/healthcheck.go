package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/iksnae/dietchat/internal"
	"github.com/iksnae/dietchat/internal/auth"
)

var healthcheckDetails bool

// healthcheckCmd represents the healthcheck command
var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Check that dietchat can reach the backend and use its credentials",
	Long: `Check the health of dietchat by verifying:
  • Configuration loading and validation
  • Credential store access
  • Backend reachability
  • Stored token validity

This command is useful for debugging connection issues, especially in CI/CD environments.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p := newPrinter(cmd.OutOrStdout(), false)
		ok := func(msg string) { p.Line("%s", p.style(successStyle, "✅ "+msg)) }
		warn := func(msg string) { p.Line("%s", p.style(warningStyle, "⚠️  "+msg)) }
		fail := func(msg string, err error) { p.Line("%s %v", p.style(errorStyle, "❌ "+msg), err) }
		step := func(msg string) { p.Line("%s", p.style(infoStyle, msg)) }

		p.Section("🔍 Diet Chat Health Check")
		p.Line("")

		// Step 1: configuration and credential store
		step("Step 1: Loading configuration...")
		a, err := newApp(cmd)
		if err != nil {
			fail("Failed to load configuration:", err)
			return fmt.Errorf("health check failed: %w", err)
		}
		defer a.Close()
		ok("Configuration loaded")
		if healthcheckDetails {
			p.Line("   API URL: %s", a.cfg.APIURL)
			p.Line("   Timeout: %s", a.cfg.Timeout)
			p.Line("   State directory: %s", a.cfg.StateDir)
		}
		p.Line("")

		step("Step 2: Checking credential store...")
		token, err := a.store.Token()
		if err != nil {
			fail("Failed to read credential store:", err)
			return fmt.Errorf("health check failed: %w", err)
		}
		ok(fmt.Sprintf("Credential store readable (%s)", a.cfg.CredentialStore))
		if token == "" {
			warn("No stored token")
		}
		p.Line("")

		// Step 3: backend
		step("Step 3: Contacting backend...")
		start := time.Now()
		health, err := a.client.Health(cmd.Context())
		if err != nil {
			fail("Backend unreachable:", err)
			return fmt.Errorf("health check failed: backend unreachable")
		}
		ok(fmt.Sprintf("Backend reachable (%s)", time.Since(start).Round(time.Millisecond)))
		if healthcheckDetails {
			if health.Message != "" {
				p.Line("   Message: %s", health.Message)
			}
			if health.Version != "" {
				p.Line("   Version: %s", health.Version)
			}
			if health.Status != "" {
				p.Line("   Status: %s", health.Status)
			}
		}
		p.Line("")

		// Step 4: token
		step("Step 4: Verifying stored token...")
		a.quietExpiry = true
		loggedIn := false
		switch err := a.auth.Init(cmd.Context()); {
		case errors.Is(err, auth.ErrTokenExpired):
			warn("Stored token has expired, run `dietchat login`")
		case errors.Is(err, internal.ErrUnauthorized):
			warn("Stored token was rejected, run `dietchat login`")
		case err != nil:
			fail("Token check failed:", err)
			return fmt.Errorf("health check failed: %w", err)
		case a.auth.IsAuthenticated():
			loggedIn = true
			user := a.auth.User()
			ok(fmt.Sprintf("Signed in as %s (%s)", user.Name, user.Email))
			if exp, found := a.auth.TokenExpiry(); found && healthcheckDetails {
				p.Line("   Expires: %s", exp.Local().Format(time.RFC1123))
			}
		default:
			warn("Not signed in, run `dietchat login`")
		}
		p.Line("")

		// Summary
		if loggedIn {
			ok("Health check passed!")
			return nil
		}
		warn("Backend reachable but not signed in")
		internal.LogDebug("Health check finished without a valid session")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthcheckCmd)
	healthcheckCmd.Flags().BoolVarP(&healthcheckDetails, "details", "d", false, "Show detailed diagnostic information")
}
