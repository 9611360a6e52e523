package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/iksnae/dietchat/internal"
	"github.com/iksnae/dietchat/testutil"
)

// cli runs the root command against a fake backend with an isolated state
// directory and config file
type cli struct {
	t       *testing.T
	backend *testutil.Backend
	dir     string
	config  string
	stdin   string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	testutil.ClearEnv(t)
	dir := t.TempDir()
	config := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(config, []byte("render_markdown: false\ntimeout: 5s\n"), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return &cli{t: t, backend: testutil.NewBackend(t), dir: dir, config: config}
}

func (c *cli) store() *internal.FileStore {
	return internal.NewFileStore(filepath.Join(c.dir, "credentials.yaml"))
}

// login stores a valid token for the default account
func (c *cli) login() {
	c.t.Helper()
	if err := c.store().SetToken(c.backend.IssueToken(testutil.DefaultEmail, time.Hour)); err != nil {
		c.t.Fatalf("failed to store token: %v", err)
	}
}

func (c *cli) token() string {
	c.t.Helper()
	token, err := c.store().Token()
	if err != nil {
		c.t.Fatalf("failed to read token: %v", err)
	}
	return token
}

// run executes dietchat with args and returns what it wrote
func (c *cli) run(args ...string) (stdout, stderr string, err error) {
	c.t.Helper()
	return runRoot(c.stdin, append([]string{"--config", c.config, "--api-url", c.backend.URL(), "--state-dir", c.dir}, args...)...)
}

func runRoot(stdin string, args ...string) (string, string, error) {
	resetFlags(rootCmd)
	var stdout, stderr bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetIn(strings.NewReader(stdin))
	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

// resetFlags restores every flag of cmd and its children to its default, so
// one test's flags do not leak into the next
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, child := range cmd.Commands() {
		resetFlags(child)
	}
}
