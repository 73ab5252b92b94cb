package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vk/deskshell/internal/app"
	"github.com/vk/deskshell/internal/buildmode"
	"github.com/vk/deskshell/internal/config"
	"github.com/vk/deskshell/internal/hcl_adapter"
	"github.com/vk/deskshell/internal/headless"
	"github.com/vk/deskshell/internal/webview"
)

// Version is the binary version, set with -ldflags at release time.
var Version = "dev"

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// Environment holds the collaborators the commands use. Tests replace them.
type Environment struct {
	Out        io.Writer
	Loader     config.Loader
	Profile    buildmode.Profile
	NewRuntime func(m *config.Model) (app.Runtime, error)
	Bootstrap  func(ctx context.Context, outW io.Writer, cfg *app.Config, rt app.Runtime) error
}

// DefaultEnvironment wires the real loader, runtimes and bootstrapper.
func DefaultEnvironment(out io.Writer) *Environment {
	return &Environment{
		Out:        out,
		Loader:     hcl_adapter.NewLoader(),
		Profile:    buildmode.Current(),
		NewRuntime: newRuntime,
		Bootstrap:  app.Bootstrap,
	}
}

func newRuntime(m *config.Model) (app.Runtime, error) {
	switch m.Runtime.Kind {
	case config.RuntimeWebview:
		return webview.New(webview.Options{BrowserBin: m.Runtime.BrowserBin, Headless: m.Runtime.Headless}), nil
	case config.RuntimeHeadless:
		return headless.New(headless.Options{Open: m.Runtime.Open}), nil
	default:
		return nil, fmt.Errorf("unknown runtime '%s'", m.Runtime.Kind)
	}
}

// flags are the options shared by every command.
type flags struct {
	configPath string
	runtime    string
	logLevel   string
	logFormat  string
	bridgeAddr string
	browserBin string
	open       bool
}

// NewRootCommand builds the command tree. Running the root command without
// a subcommand is the same as "run".
func NewRootCommand(env *Environment) *cobra.Command {
	f := &flags{}

	root := &cobra.Command{
		Use:   "deskshell",
		Short: "Native backend shell for a webview desktop application",
		Long: `deskshell bootstraps a desktop application whose user interface runs in a
webview. It serves the frontend on a loopback bridge, exposes native
commands the UI invokes by name, and runs the window event loop until the
main window closes.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runApp(cmd, env, f)
		},
	}
	root.SetOut(env.Out)
	root.SetErr(env.Out)

	pf := root.PersistentFlags()
	pf.StringVarP(&f.configPath, "config", "c", "", "Path to the HCL application config file.")
	pf.StringVar(&f.logLevel, "log-level", "info", "Logging level: 'debug', 'info', 'warn' or 'error'.")
	pf.StringVar(&f.logFormat, "log-format", "text", "Log output format: 'text' or 'json'.")

	runFlags := func(cmd *cobra.Command) {
		fs := cmd.Flags()
		fs.StringVar(&f.runtime, "runtime", "", "UI runtime: 'webview' or 'headless'. Overrides the config file.")
		fs.StringVar(&f.bridgeAddr, "bridge-addr", "", "Address the bridge listens on. Overrides the config file.")
		fs.StringVar(&f.browserBin, "browser-bin", "", "Chromium executable for the webview runtime.")
		fs.BoolVar(&f.open, "open", false, "Open the main window in the system browser (headless runtime).")
	}
	runFlags(root)

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Bootstrap the application and run until the main window closes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runApp(cmd, env, f)
		},
	}
	runFlags(runCmd)

	commandsCmd := &cobra.Command{
		Use:   "commands",
		Short: "List the commands the UI can invoke",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return listCommands(cmd, env, f)
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version number of deskshell",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "deskshell version %s (%s build)\n", Version, env.Profile)
		},
	}

	root.AddCommand(runCmd, commandsCmd, versionCmd)
	return root
}

// Execute runs the command line. Usage errors come back as *ExitError with
// code 2, bootstrap failures as *ExitError with code 1.
func Execute(ctx context.Context, env *Environment, args []string) error {
	slog.Debug("CLI parser started.")
	root := NewRootCommand(env)
	if args == nil {
		// cobra falls back to os.Args on nil.
		args = []string{}
	}
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr
	}
	// Everything cobra reports itself is a usage problem.
	return &ExitError{Code: 2, Message: err.Error(), Err: err}
}

// resolve merges the config file, the environment and the flags, in that
// order of precedence, into a validated app.Config.
func resolve(ctx context.Context, cmd *cobra.Command, env *Environment, f *flags) (*app.Config, error) {
	model := config.Default()
	if f.configPath != "" {
		loaded, err := env.Loader.Load(ctx, f.configPath)
		if err != nil {
			return nil, &ExitError{Code: 1, Message: fmt.Sprintf("failed to load configuration: %v", err), Err: err}
		}
		model = loaded
	}

	overrides, err := config.ParseEnv()
	if err != nil {
		return nil, &ExitError{Code: 2, Message: err.Error(), Err: err}
	}
	overrides.Apply(model)

	logLevel, logFormat := f.logLevel, f.logFormat
	if !cmd.Flags().Changed("log-level") && overrides.LogLevel != "" {
		logLevel = overrides.LogLevel
	}
	if !cmd.Flags().Changed("log-format") && overrides.LogFormat != "" {
		logFormat = overrides.LogFormat
	}

	fs := cmd.Flags()
	if fs.Lookup("runtime") != nil {
		if fs.Changed("runtime") {
			model.Runtime.Kind = f.runtime
		}
		if fs.Changed("bridge-addr") {
			model.Bridge.Address = f.bridgeAddr
		}
		if fs.Changed("browser-bin") {
			model.Runtime.BrowserBin = f.browserBin
		}
		if fs.Changed("open") {
			model.Runtime.Open = f.open
		}
	}

	cfg, err := app.NewConfig(app.Config{
		LogLevel:  strings.ToLower(logLevel),
		LogFormat: strings.ToLower(logFormat),
		Profile:   env.Profile,
		Model:     model,
	})
	if err != nil {
		return nil, &ExitError{Code: 2, Message: err.Error(), Err: err}
	}
	slog.Debug("CLI configuration resolved.", "runtime", model.Runtime.Kind, "profile", env.Profile.String())
	return cfg, nil
}

func runApp(cmd *cobra.Command, env *Environment, f *flags) error {
	ctx := cmd.Context()
	cfg, err := resolve(ctx, cmd, env, f)
	if err != nil {
		return err
	}
	rt, err := env.NewRuntime(cfg.Model)
	if err != nil {
		return &ExitError{Code: 2, Message: err.Error(), Err: err}
	}
	if err := env.Bootstrap(ctx, env.Out, cfg, rt); err != nil {
		return &ExitError{Code: 1, Message: err.Error(), Err: err}
	}
	return nil
}

func listCommands(cmd *cobra.Command, env *Environment, f *flags) error {
	cfg, err := resolve(cmd.Context(), cmd, env, f)
	if err != nil {
		return err
	}
	b := app.NewBuilder(io.Discard, cfg).Plugins(app.CorePlugins()...).Commands(app.CoreModules...)
	if err := b.Err(); err != nil {
		return &ExitError{Code: 1, Message: err.Error(), Err: err}
	}
	for _, name := range b.App().Registry().Commands() {
		fmt.Fprintln(cmd.OutOrStdout(), name)
	}
	return nil
}
