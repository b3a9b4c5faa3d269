package cli

import (
	"context"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/backpack/internal/buildinfo"
	"github.com/dmitrijs2005/backpack/internal/client/config"
)

// closeTimeout bounds the final snapshot write on exit.
const closeTimeout = 10 * time.Second

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// AppFactory builds the App of one invocation. Tests replace it.
type AppFactory func(ctx context.Context, cfg *config.Config, opts *RootOptions, cmd *cobra.Command) (*App, error)

// DefaultAppFactory wires the real cache, API client and services.
func DefaultAppFactory(ctx context.Context, cfg *config.Config, opts *RootOptions, cmd *cobra.Command) (*App, error) {
	return NewApp(ctx, cfg, opts, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// RootOptions holds global flags and the App shared by all commands.
type RootOptions struct {
	ConfigFile    string
	DotEnv        string
	Format        string // "json" | "text"
	Verbose       bool
	AssumeOffline bool

	overrides *config.Overrides
	factory   AppFactory
	app       *App
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// skipApp marks commands that run without an App.
const skipApp = "skip-app"

// NewRootCommand creates the root command of the backpack CLI bound to
// opts. The App is built lazily by the first command that needs it.
func NewRootCommand(opts *RootOptions) *cobra.Command {
	if opts.factory == nil {
		opts.factory = DefaultAppFactory
	}

	cmd := &cobra.Command{
		Use:           "backpack",
		Short:         "Offline-capable client for your badge backpack",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			if opts.app != nil || cmd.Annotations[skipApp] == "true" {
				return nil
			}
			return opts.init(cmd)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigFile, "config", "c", "", "config file (JSON or YAML)")
	cmd.PersistentFlags().StringVar(&opts.DotEnv, "env-file", ".env", "dotenv file with BACKPACK_* variables")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().BoolVarP(&opts.AssumeOffline, "yes-offline", "y", false, "switch to offline mode without asking when the server is unreachable")
	opts.overrides = config.RegisterFlags(cmd.PersistentFlags())

	addCommands(cmd, opts)
	cmd.AddCommand(newShellCommand(opts))
	return cmd
}

// addCommands registers every command usable from both the shell and the
// command line.
func addCommands(cmd *cobra.Command, opts *RootOptions) {
	cmd.AddCommand(
		newVersionCommand(),
		newLoginCommand(opts),
		newLogoutCommand(opts),
		newStatusCommand(opts),
		newLoadCommand(opts),
		newAwardsCommand(opts),
		newEntriesCommand(opts),
		newSharesCommand(opts),
		newAccountCommand(opts),
		newOfflineCommand(opts),
		newSyncCommand(opts),
		newWatchCommand(opts),
	)
}

func (o *RootOptions) init(cmd *cobra.Command) error {
	cfg, err := config.Load(config.Sources{File: o.ConfigFile, DotEnv: o.DotEnv, Flags: o.overrides})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	app, err := o.factory(cmd.Context(), cfg, o, cmd)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to start", err)
	}
	o.app = app
	return nil
}

// Execute runs the CLI with args and closes the App it created.
func Execute(ctx context.Context, factory AppFactory, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	opts := &RootOptions{factory: factory}
	root := NewRootCommand(opts)
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)

	if opts.app != nil {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
		defer cancel()
		if cerr := opts.app.Close(closeCtx); cerr != nil && err == nil {
			err = WrapExitError(ExitFailure, "failed to save state", cerr)
		}
		opts.app = nil
	}
	return err
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print build information",
		Annotations: map[string]string{skipApp: "true"},
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			buildinfo.PrintBuildData(cmd.OutOrStdout())
			return nil
		},
	}
}

// runWith executes fn with the App, writing failures through the formatter
// in JSON mode so scripts always get an envelope.
func runWith(opts *RootOptions, fn func(ctx context.Context, a *App, f *OutputFormatter, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		f := opts.formatter(cmd)
		err := fn(cmd.Context(), opts.app, f, cmd, args)
		if err != nil && f.Format == "json" {
			_ = f.Error(err)
		}
		return err
	}
}
