package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/odyssey-erp/erp-console/internal/erpapi"
	"github.com/odyssey-erp/erp-console/internal/locations"
)

// Authenticator signs the CLI in with the service account.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (erpapi.TokenPair, error)
}

// LocationsOptions defines the flags for the locations list command.
type LocationsOptions struct {
	Source      locations.Source
	Auth        Authenticator
	Email       string
	Password    string
	Concurrency int
	JSONOutput  bool
	Stdout      io.Writer
	Stderr      io.Writer
}

// LocationsCommand prints the putaway location catalog straight from the API,
// bypassing the cache.
func LocationsCommand(ctx context.Context, opts LocationsOptions) int {
	opts.Stdout, opts.Stderr = outputs(opts.Stdout, opts.Stderr)
	ctx, ok := signIn(ctx, opts.Auth, opts.Email, opts.Password, opts.Stderr, "locations list")
	if !ok {
		return 1
	}
	options, err := locations.Build(ctx, opts.Source, opts.Concurrency)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "locations list: %s\n", erpapi.ExtractMessage(err, err.Error()))
		return 1
	}
	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(options); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "locations list: encode json: %v\n", err)
			return 1
		}
		return 0
	}
	for _, opt := range options {
		_, _ = fmt.Fprintf(opts.Stdout, "%s\t%s\n", opt.ID, opt.Label)
	}
	_, _ = fmt.Fprintf(opts.Stderr, "%d locations\n", len(options))
	return 0
}

// signIn attaches a service token when credentials are configured.
func signIn(ctx context.Context, auth Authenticator, email, password string, stderr io.Writer, name string) (context.Context, bool) {
	if auth == nil || email == "" {
		return ctx, true
	}
	pair, err := auth.Login(ctx, email, password)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "%s: login: %s\n", name, erpapi.ExtractMessage(err, "Login failed"))
		return ctx, false
	}
	return erpapi.ContextWithToken(ctx, pair.AccessToken), true
}

func outputs(stdout, stderr io.Writer) (io.Writer, io.Writer) {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return stdout, stderr
}
