// Package app assembles the service binary: a Cobra command wired to
// Viper so configuration merges from config file, environment, and
// command line flags in ascending precedence. The options struct plugs
// in through CliOptions and is completed and validated before the run
// function starts.
package app

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kart-io/version"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// RunFunc carries the service main loop. It runs after configuration
// has been merged into the options and validated.
type RunFunc func() error

// App is a built command line application.
type App struct {
	name        string
	description string
	options     CliOptions
	runFunc     RunFunc
	cmd         *cobra.Command
}

// Option configures an App during construction.
type Option func(*App)

// WithName sets the binary name. It doubles as the config file search
// name and the environment variable prefix.
func WithName(name string) Option {
	return func(a *App) { a.name = name }
}

// WithDescription sets the command description shown by --help.
func WithDescription(desc string) Option {
	return func(a *App) { a.description = desc }
}

// WithOptions plugs in the options struct that receives the merged
// configuration.
func WithOptions(opts CliOptions) Option {
	return func(a *App) { a.options = opts }
}

// WithRunFunc sets the service main loop.
func WithRunFunc(run RunFunc) Option {
	return func(a *App) { a.runFunc = run }
}

// NewApp builds the application and its underlying cobra command.
func NewApp(opts ...Option) *App {
	a := &App{name: filepath.Base(os.Args[0])}
	for _, opt := range opts {
		opt(a)
	}
	a.cmd = a.buildCommand()
	return a
}

// Run executes the command and exits nonzero on error.
func (a *App) Run() {
	if err := a.cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func (a *App) buildCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:  a.name,
		Long: a.description,
		RunE: a.runCommand,
		// Errors already explain themselves; --help shows usage.
		SilenceUsage: true,
	}
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)
	cmd.Flags().SortFlags = true

	cmd.PersistentFlags().StringP("config", "c", "", "Path to config file")
	cmd.PersistentFlags().BoolP("help", "h", false, "Help for "+a.name)
	version.AddFlags(cmd.PersistentFlags())

	if a.options != nil {
		fss := a.options.Flags()
		for _, name := range fss.Order {
			cmd.Flags().AddFlagSet(fss.FlagSets[name])
		}
	}

	return cmd
}

func (a *App) runCommand(cmd *cobra.Command, _ []string) error {
	version.PrintAndExitIfRequested()

	if err := a.loadConfig(cmd); err != nil {
		return err
	}

	if a.options != nil {
		if err := a.options.Complete(); err != nil {
			return err
		}
		if err := a.options.Validate(); err != nil {
			return err
		}
	}

	if a.runFunc != nil {
		return a.runFunc()
	}
	return nil
}

// loadConfig merges configuration into the options. Without --config it
// searches the working directory, ./configs, ~/.<name>, and /etc/<name>
// for <name>.yaml; a missing file is fine, flags and environment alone
// can carry a deployment.
func (a *App) loadConfig(cmd *cobra.Command) error {
	if configFile, _ := cmd.Flags().GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName(a.name)
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(filepath.Join(os.Getenv("HOME"), "."+a.name))
		viper.AddConfigPath("/etc/" + a.name)
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	expandEnvVars()

	viper.SetEnvPrefix(strings.ToUpper(strings.ReplaceAll(a.name, "-", "_")))
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if a.options == nil {
		return nil
	}

	// Unmarshal overwrites every bound field, including ones set on the
	// command line. Snapshot changed flags and re-apply them afterwards
	// so flags keep the highest precedence.
	changed := make(map[string]string)
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			changed[f.Name] = f.Value.String()
		}
	})

	if err := viper.Unmarshal(a.options); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	for name, val := range changed {
		if err := cmd.Flags().Set(name, val); err != nil {
			return fmt.Errorf("failed to re-apply flag %s: %w", name, err)
		}
	}

	return nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// expandEnvVars substitutes ${VAR} and $VAR references in string config
// values, keeping secrets like api_key: ${GEMINI_API_KEY} out of the
// config file itself. Unset variables are left as written.
func expandEnvVars() {
	for _, key := range viper.AllKeys() {
		strVal, ok := viper.Get(key).(string)
		if !ok {
			continue
		}
		expanded := envVarPattern.ReplaceAllStringFunc(strVal, func(match string) string {
			name := match[1:]
			if strings.HasPrefix(match, "${") {
				name = match[2 : len(match)-1]
			}
			if v := os.Getenv(name); v != "" {
				return v
			}
			return match
		})
		if expanded != strVal {
			viper.Set(key, expanded)
		}
	}
}
