package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/botanica/internal/client"
	"github.com/desertthunder/botanica/internal/models"
	"github.com/desertthunder/botanica/internal/services"
	"github.com/desertthunder/botanica/internal/shared"
	"github.com/urfave/cli/v3"
)

// jobCache is the local job list snapshot; the controller writes it and `jobs list --cached` reads it.
type jobCache interface {
	client.ListCache
	List() ([]models.Subcategory, time.Time, error)
}

// SignInFunc obtains an identity credential interactively.
type SignInFunc func(ctx context.Context) (string, error)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	api        *services.APIService
	backend    *services.BackendService
	ctrl       *client.Controller
	identity   services.IdentityProvider
	cache      jobCache
	signIn     SignInFunc
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	input      io.Reader
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	API        *services.APIService
	Identity   services.IdentityProvider
	Sessions   client.SessionStore
	Cache      jobCache
	// SignIn replaces the browser flow used by `auth login`.
	SignIn     SignInFunc
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Input      io.Reader
}

// NewRunner creates a new Runner with the provided configuration.
//
// The controller is wired to the API service and adopts a saved session when the session store has one.
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.API == nil {
		opts.API = services.NewAPIServiceFromConfig(opts.Config.Backend, opts.HTTPClient, opts.Logger)
	}

	copts := client.Options{
		Sessions:        opts.Sessions,
		DropdownOptions: opts.Config.MainData.DropdownOptions,
		Logger:          opts.Logger,
	}
	if opts.Cache != nil {
		copts.Cache = opts.Cache
	}

	backend := services.NewBackendService(opts.API, opts.Config.Backend.Paths)
	ctrl := client.New(backend, copts)
	ctrl.Attach(opts.API)
	ctrl.RestoreSaved()

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		api:        opts.API,
		backend:    backend,
		ctrl:       ctrl,
		identity:   opts.Identity,
		cache:      opts.Cache,
		signIn:     opts.SignIn,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		input:      opts.Input,
	}
}

// SetLogger swaps the logger used by the runner, the controller and the API service.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
	r.ctrl.SetLogger(l)
	r.api.SetLogger(l)
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, dataCommand, jobsCommand, apiCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// app builds the root command.
func (r *Runner) app() *cli.Command {
	return &cli.Command{
		Name:                      "botanica",
		Usage:                     "Sign in with Google and keep your company data and jobs in sync",
		Version:                   "0.3.0",
		Writer:                    r.output,
		DisableSliceFlagSeparator: true,
		Commands:                  r.register(),
	}
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// writeStatus prints the controller's current status line, if any.
func (r *Runner) writeStatus() error {
	status := r.ctrl.Snapshot().Status
	if status == "" {
		return nil
	}
	return r.writePlain("%s\n", status)
}

// confirmDelete asks on the runner's input before a job is deleted. Anything but y or yes declines,
// and so does a prompt that could not be shown.
func (r *Runner) confirmDelete(id models.ID) bool {
	name := id.String()
	if d := r.ctrl.Snapshot().Detail; d != nil && d.ID == id {
		name = fmt.Sprintf("%q (%s)", d.Name, id)
	}
	if err := r.writePlain("Delete job %s? [y/N]: ", name); err != nil {
		r.logger.Error("failed to show delete prompt", "id", id, "error", err)
		return false
	}

	line, err := bufio.NewReader(r.input).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// statusError reports a failed controller operation by its status message.
type statusError struct {
	msg string
	err error
}

func (e *statusError) Error() string { return e.msg }

func (e *statusError) Unwrap() error { return e.err }

// failed wraps err with the status message the controller set for it.
func (r *Runner) failed(err error) error {
	msg := r.ctrl.Snapshot().Status
	if msg == "" {
		return err
	}
	return &statusError{msg: msg, err: err}
}
