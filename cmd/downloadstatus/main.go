// Package main provides the downloadstatus command-line tool.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/inodb/downloadstatus/internal/status"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitUsage   = 2
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	return execute(os.Args[1:], os.Stdout, os.Stderr, afero.NewOsFs())
}

// app carries the state shared by the commands of one invocation.
type app struct {
	fs       afero.Fs
	v        *viper.Viper
	logger   *zap.Logger
	stderr   io.Writer
	cfgFile  string
	exitCode int
}

// usageError marks errors caused by bad command-line input to cmd.
type usageError struct {
	cmd *cobra.Command
	err error
}

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

// usageArgs wraps a positional-args validator so failures exit with ExitUsage.
func usageArgs(fn cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := fn(cmd, args); err != nil {
			return usageError{cmd: cmd, err: err}
		}
		return nil
	}
}

func execute(args []string, stdout, stderr io.Writer, fsys afero.Fs) int {
	a := &app{
		fs:     fsys,
		v:      viper.New(),
		logger: zap.NewNop(),
		stderr: stderr,
	}

	defer func() { _ = a.logger.Sync() }()

	root := a.newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		var ue usageError
		if errors.As(err, &ue) {
			fmt.Fprint(stderr, "\n"+ue.cmd.UsageString())
			return ExitUsage
		}
		return ExitError
	}
	return a.exitCode
}

func (a *app) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "downloadstatus",
		Short: "Report size and modification time of a downloaded file",
		Long: `Check that the file produced by the download step exists and print its
size in bytes and last-modified time (seconds since the epoch).

The exit code is 0 when the file exists and the OS error number otherwise.`,
		Example: `  downloadstatus                           # check /tmp/covid-data.csv
  downloadstatus --path /data/covid.csv    # check another file
  downloadstatus --verbose                 # log details to stderr`,
		Version:       fmt.Sprintf("%s (%s) built %s", version, commit, date),
		Args:          usageArgs(cobra.NoArgs),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initConfig(a.v, a.cfgFile); err != nil {
				return err
			}
			a.logger = newLogger(a.stderr, a.v.GetBool("log.verbose"))
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCheck(cmd.OutOrStdout())
		},
	}
	cmd.SetVersionTemplate("downloadstatus version {{.Version}}\n")
	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return usageError{cmd: c, err: err}
	})

	cmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "Config file (default: ~/.downloadstatus.yaml)")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Log debug details to stderr")
	cmd.Flags().StringP("path", "p", status.DefaultPath, "File to check")

	_ = a.v.BindPFlag("log.verbose", cmd.PersistentFlags().Lookup("verbose"))
	_ = a.v.BindPFlag("check.path", cmd.Flags().Lookup("path"))

	cmd.AddCommand(a.newConfigCmd())

	return cmd
}

func (a *app) runCheck(out io.Writer) error {
	checker := status.NewChecker(a.fs)
	checker.SetLogger(a.logger)

	code, err := checker.Report(out, a.v.GetString("check.path"))
	if err != nil {
		return err
	}
	a.exitCode = code
	return nil
}

// newLogger builds a console logger on w. Only warnings and errors are
// shown unless verbose is set.
func newLogger(w io.Writer, verbose bool) *zap.Logger {
	level := zapcore.WarnLevel
	if verbose {
		level = zapcore.DebugLevel
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.TimeKey = ""
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), level)
	return zap.New(core)
}
