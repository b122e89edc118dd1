package cli

import (
	stderrors "errors"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mrz1836/taskclock/internal/constants"
	"github.com/mrz1836/taskclock/internal/errors"
)

// Exit codes for the CLI.
const (
	// ExitSuccess indicates successful execution.
	ExitSuccess = 0
	// ExitError indicates a general error.
	ExitError = 1
	// ExitInvalidInput indicates invalid user input or configuration.
	ExitInvalidInput = 2
)

// Output format constants.
const (
	// OutputText is the default human-readable output format.
	OutputText = "text"
	// OutputJSON is the machine-readable JSON output format.
	OutputJSON = "json"
)

// GlobalFlags holds flags available to all commands.
type GlobalFlags struct {
	// Output specifies the output format (text or json).
	Output string
	// Verbose enables debug-level logging.
	Verbose bool
	// Quiet suppresses non-essential output (warn level only).
	Quiet bool
}

// AddGlobalFlags adds the global flags to cmd.
//
// They are registered as persistent flags, so serve, list and config show
// all accept them after the subcommand name:
//
//	taskclock list -o json
//	taskclock serve --verbose
//
// --verbose and --quiet are mutually exclusive; Cobra rejects the pair
// before any command runs.
func AddGlobalFlags(cmd *cobra.Command, flags *GlobalFlags) {
	cmd.PersistentFlags().StringVarP(&flags.Output, "output", "o", OutputText, "output format (text|json)")
	cmd.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false, "enable verbose output")
	cmd.PersistentFlags().BoolVarP(&flags.Quiet, "quiet", "q", false, "suppress non-essential output")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")
}

// BindGlobalFlags binds the global flags to Viper for environment variable
// support. The TASKCLOCK_ prefix is used, so TASKCLOCK_OUTPUT=json has the
// same effect as -o json.
//
// An explicit flag always beats the environment. It must run from
// PersistentPreRunE, after Cobra has parsed the command line, because the
// lookup goes through cmd.Root() to reach flags declared on the root.
func BindGlobalFlags(v *viper.Viper, cmd *cobra.Command) error {
	// Root().PersistentFlags() finds the flags even from a subcommand.
	rootFlags := cmd.Root().PersistentFlags()

	for _, name := range []string{"output", "verbose", "quiet"} {
		if err := v.BindPFlag(name, rootFlags.Lookup(name)); err != nil {
			return err
		}
	}

	v.SetEnvPrefix(constants.EnvPrefix)
	v.AutomaticEnv()

	return nil
}

// ValidOutputFormats returns the list of valid output format values.
func ValidOutputFormats() []string {
	return []string{OutputText, OutputJSON}
}

// IsValidOutputFormat checks if the given format is a valid output format.
func IsValidOutputFormat(format string) bool {
	return slices.Contains(ValidOutputFormats(), format)
}

// invalidInputErrors are sentinels that map to ExitInvalidInput.
//
//nolint:gochecknoglobals // fixed lookup table
var invalidInputErrors = []error{
	errors.ErrInvalidOutputFormat,
	errors.ErrConfigNil,
	errors.ErrConfigInvalidServer,
	errors.ErrConfigInvalidStore,
	errors.ErrConfigInvalidTimer,
	errors.ErrConfigInvalidBoard,
	errors.ErrConfigInvalidAI,
}

// ExitCodeForError returns the process exit code for err.
//
// It returns ExitSuccess (0) for nil and ExitInvalidInput (2) when err wraps
// one of the configuration or output-format sentinels, or carries one of
// Cobra's flag and argument messages. Every other error, including storage
// and serial failures at startup, maps to ExitError (1).
//
// main passes the result of Execute straight through:
//
//	os.Exit(cli.ExitCodeForError(cli.Execute(ctx, info)))
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	for _, sentinel := range invalidInputErrors {
		if stderrors.Is(err, sentinel) {
			return ExitInvalidInput
		}
	}

	// Cobra reports flag parsing problems as plain errors.
	if isInvalidInputError(err.Error()) {
		return ExitInvalidInput
	}

	return ExitError
}

// isInvalidInputError checks if an error message is one of Cobra's
// flag or argument validation errors.
func isInvalidInputError(errMsg string) bool {
	invalidInputPatterns := []string{
		"unknown flag",
		"unknown shorthand flag",
		"flag needs an argument",
		"invalid argument",
		"if any flags in the group",
		"required flag",
		"unknown command",
		"accepts ",
	}

	for _, pattern := range invalidInputPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}
	return false
}
