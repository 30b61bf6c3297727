// Package logger exposes the service logging configuration as a pflag
// option group around kart-io/logger.
package logger

import (
	"time"

	"github.com/kart-io/logger"
	"github.com/kart-io/logger/option"
	"github.com/spf13/pflag"
)

// Options wraps the logger option.LogOption for flag and config binding.
type Options struct {
	*option.LogOption
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		LogOption: option.DefaultLogOption(),
	}
}

// AddFlags adds flags for logger options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Engine, "log.engine", o.Engine, "Logging engine (zap|slog)")
	fs.StringVar(&o.Level, "log.level", o.Level, "Log level (DEBUG|INFO|WARN|ERROR|FATAL)")
	fs.StringVar(&o.Format, "log.format", o.Format, "Log format (json|console)")
	fs.StringSliceVar(&o.OutputPaths, "log.output-paths", o.OutputPaths, "Output paths for logs")
	fs.BoolVar(&o.Development, "log.development", o.Development, "Enable development mode")
	fs.BoolVar(&o.DisableCaller, "log.disable-caller", o.DisableCaller, "Disable caller detection")
	fs.BoolVar(&o.DisableStacktrace, "log.disable-stacktrace", o.DisableStacktrace, "Disable stacktrace capture")

	o.addOTLPFlags(fs)
	o.addRotationFlags(fs)
}

// addOTLPFlags registers flags for shipping logs to an OTLP collector.
func (o *Options) addOTLPFlags(fs *pflag.FlagSet) {
	if o.OTLP == nil {
		o.OTLP = &option.OTLPOption{}
	}

	fs.StringVar(&o.OTLPEndpoint, "log.otlp-endpoint", o.OTLPEndpoint, "OTLP endpoint URL")
	fs.StringVar(&o.OTLP.Protocol, "log.otlp.protocol", "grpc", "OTLP protocol (grpc|http)")
	fs.DurationVar(&o.OTLP.Timeout, "log.otlp.timeout", 10*time.Second, "OTLP export timeout")
	fs.BoolVar(&o.OTLP.Insecure, "log.otlp.insecure", o.OTLP.Insecure, "Skip TLS verification for the OTLP endpoint")
}

// addRotationFlags registers flags for file output rotation. They take
// effect only when a file path appears in log.output-paths.
func (o *Options) addRotationFlags(fs *pflag.FlagSet) {
	if o.Rotation == nil {
		o.Rotation = &option.RotationOption{}
	}

	fs.IntVar(&o.Rotation.MaxSize, "log.rotation.max-size", 100, "Maximum size in MB of the log file before rotation")
	fs.IntVar(&o.Rotation.MaxAge, "log.rotation.max-age", 15, "Maximum number of days to retain old log files")
	fs.IntVar(&o.Rotation.MaxBackups, "log.rotation.max-backups", 30, "Maximum number of old log files to retain")
	fs.BoolVar(&o.Rotation.Compress, "log.rotation.compress", true, "Compress rotated log files using gzip")
}

// Validate validates the logger options.
func (o *Options) Validate() error {
	return o.LogOption.Validate()
}

// Complete fills derived defaults. Nothing to derive today.
func (o *Options) Complete() error {
	return nil
}

// Init builds a logger from the options and installs it as the process
// global.
func (o *Options) Init() error {
	log, err := logger.New(o.LogOption)
	if err != nil {
		return err
	}
	logger.SetGlobal(log)
	return nil
}
