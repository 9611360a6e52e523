package cmd

import (
	"context"
	"errors"
	"io"

	"github.com/spf13/cobra"

	"github.com/iksnae/dietchat/internal"
	"github.com/iksnae/dietchat/internal/api"
	"github.com/iksnae/dietchat/internal/auth"
	"github.com/iksnae/dietchat/internal/chat"
)

const expiredNotice = "Your session has expired or was rejected. Run `dietchat login` to sign in again."

// app bundles the services used by one command invocation
type app struct {
	cfg    *internal.Config
	store  internal.CredentialStore
	client *api.Client
	auth   *auth.Context
	out    io.Writer
	errOut io.Writer

	// quietExpiry suppresses the expiry notice, for commands that expect a 401
	// as an ordinary answer (login with a wrong password)
	quietExpiry bool
	expired     bool
}

// loadConfig loads the configuration and applies the global flag overrides
func loadConfig(cmd *cobra.Command) (*internal.Config, error) {
	cfg, err := internal.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("api-url") {
		cfg.APIURL = apiURL
	}
	if flags.Changed("state-dir") {
		cfg.StateDir = stateDir
	}
	if flags.Changed("credential-store") {
		cfg.CredentialStore = credentialStore
	}
	if flags.Changed("timeout") {
		cfg.Timeout = timeout
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newApp loads the configuration, applies flag overrides and wires the
// credential store, the API client and the authentication context.
func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	store, err := cfg.OpenCredentialStore()
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:    cfg,
		store:  store,
		out:    cmd.OutOrStdout(),
		errOut: cmd.ErrOrStderr(),
	}
	a.client = api.NewClient(cfg.APIURL, store).WithTimeout(cfg.Timeout)
	a.auth = auth.New(a.client, store)
	a.client.WithNavigator(a.auth.Navigator(api.NavigatorFunc(a.navigate)))

	internal.LogDebug("Using %s (timeout %s, %s credential store in %s)", cfg.APIURL, cfg.Timeout, cfg.CredentialStore, cfg.StateDir)
	return a, nil
}

// navigate is the terminal's login redirect: tell the user once
func (a *app) navigate(path string) {
	internal.LogDebug("Redirecting to %s", path)
	if !a.expired && !a.quietExpiry {
		internal.PrintWarning(a.errOut, expiredNotice)
	}
	a.expired = true
}

func (a *app) Close() {
	if closer, ok := a.store.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			internal.LogWarn("Failed to close credential store: %v", err)
		}
	}
}

// requireLogin restores the stored session or explains why there is none
func (a *app) requireLogin(ctx context.Context) (*api.User, error) {
	if err := a.auth.Init(ctx); err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return nil, internal.WithUserMessage(err, "your session has expired, run `dietchat login`")
		}
		return nil, err
	}
	if !a.auth.IsAuthenticated() {
		return nil, &internal.UserError{Message: "not logged in, run `dietchat login`", Err: internal.ErrNotLoggedIn}
	}
	return a.auth.User(), nil
}

// withApp runs fn with a wired app and releases it afterwards
func withApp(cmd *cobra.Command, fn func(a *app) error) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

// withLogin runs fn with a wired app holding a restored session
func withLogin(cmd *cobra.Command, fn func(a *app, user *api.User) error) error {
	return withApp(cmd, func(a *app) error {
		user, err := a.requireLogin(cmd.Context())
		if err != nil {
			return err
		}
		return fn(a, user)
	})
}

// controller returns a chat controller over the API client. Notices go to
// stderr; error notices are printed only when showErrors is set, since
// one-shot commands report the returned error instead.
func (a *app) controller(showErrors bool) *chat.Controller {
	return chat.NewController(a.client, chat.NotifierFunc(func(level chat.NoticeLevel, message string) {
		switch level {
		case chat.NoticeInfo:
			internal.PrintInfo(a.errOut, message)
		case chat.NoticeWarning:
			internal.PrintWarning(a.errOut, message)
		case chat.NoticeError:
			if showErrors {
				internal.PrintError(a.errOut, message)
			}
		}
	}))
}

// errorText is the message printed for a failed command
func errorText(err error) string {
	var userErr *internal.UserError
	if errors.As(err, &userErr) && userErr.Message != "" {
		return userErr.Message
	}
	return err.Error()
}
