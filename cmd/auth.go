package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/botanica/internal/server"
	"github.com/desertthunder/botanica/internal/shared"
	"github.com/urfave/cli/v3"
)

// AuthLogin exchanges a Google id_token for a backend session.
//
// The token comes from --id-token when given, otherwise from the browser sign-in flow.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	credential := strings.TrimSpace(cmd.String("id-token"))

	if credential == "" {
		signIn := r.signIn
		if signIn == nil {
			signIn = r.browserSignIn(!cmd.Bool("no-browser"), true)
		}

		token, err := signIn(ctx)
		if err != nil {
			return err
		}
		credential = token
	}

	r.logger.Info("exchanging credential with the backend")
	if err := r.ctrl.HandleCredential(ctx, credential); err != nil {
		return r.failed(err)
	}

	view := r.ctrl.Snapshot()
	r.writePlain("✓ Signed in as %s\n", view.Session.DisplayName)
	r.writePlain("Jobs: %d\n", len(view.Jobs))
	return nil
}

// AuthLogout ends the session locally and on the backend.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if !r.ctrl.LoggedIn() {
		return r.writePlain("Not signed in\n")
	}

	if err := r.ctrl.SignOut(ctx); err != nil {
		return err
	}
	return r.writeStatus()
}

// AuthStatus prints the saved session. With --verify the session is checked by loading the job list.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	session := r.ctrl.Session()
	if session == nil {
		return r.writePlain("✗ Not signed in\n")
	}

	r.writePlain("✓ Signed in as %s\n", session.DisplayName)
	if avatar := session.Avatar(); avatar != "" {
		r.writePlain("Avatar: %s\n", avatar)
	}
	r.writePlain("Since: %s\n", session.CreatedAt.Local().Format("2006-01-02 15:04"))

	if !cmd.Bool("verify") {
		return nil
	}

	if err := r.ctrl.LoadSubcategories(ctx, false); err != nil {
		return r.failed(err)
	}
	return r.writePlain("Session: ✓ Accepted by %s\n", r.api.BaseURL())
}

// browserSignIn returns a sign-in function that runs the Google authorization-code flow
// against a temporary callback server. printURL writes the authorization URL to the output.
func (r *Runner) browserSignIn(openBrowser, printURL bool) SignInFunc {
	return func(ctx context.Context) (string, error) {
		if r.identity == nil {
			return "", fmt.Errorf("%w: set identity.client_id and identity.client_secret or pass --id-token", shared.ErrMissingCredentials)
		}

		opts := server.SignInOptions{
			Addr:     r.config.Server.Addr(),
			Identity: r.identity,
			Logger:   r.logger,
		}
		if openBrowser {
			opts.Open = shared.OpenBrowser
		}
		if printURL {
			opts.OnURL = func(url string) {
				r.writePlain("Open this URL to sign in:\n%s\n", url)
			}
		} else {
			opts.OnURL = func(url string) {
				r.logger.Info("sign-in URL", "url", url)
			}
		}

		r.logger.Info("waiting for sign-in callback", "addr", opts.Addr)
		return server.SignIn(ctx, opts)
	}
}
