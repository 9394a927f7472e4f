// Package commands implements the embermug CLI commands.
package commands

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/embermug/embermug-go/pkg/ble"
	emberlog "github.com/embermug/embermug-go/pkg/log"
)

// Exit codes shared by all commands.
const (
	exitSuccess      = 0
	exitCommandError = 1
	exitValidation   = 2
)

// newTransport builds the BLE transport commands talk through. Tests
// swap this out for a mock.
var newTransport = func(config ble.Config, trace emberlog.Logger) (ble.Transport, error) {
	b, err := ble.NewBlueZ(config)
	if err != nil {
		return nil, err
	}
	// Only set the trace when non-nil to avoid the typed-nil interface
	// issue.
	if trace != nil {
		b.SetTrace(trace)
	}
	return b, nil
}

// commonOptions holds the flags every command accepts. Defaults stay
// empty so explicit flags can be told apart from config file values.
type commonOptions struct {
	Adapter    string
	ConfigFile string
	TraceFile  string
	LogLevel   string
}

func registerCommonFlags(fs *flag.FlagSet, opts *commonOptions) {
	fs.StringVar(&opts.Adapter, "adapter", "", "Bluetooth adapter to use (default hci0)")
	fs.StringVar(&opts.ConfigFile, "config", "", "Path to a YAML config file")
	fs.StringVar(&opts.TraceFile, "trace", "", "Write a trace of all mug traffic to this file")
	fs.StringVar(&opts.LogLevel, "log-level", "", "Log level: debug, info, warn or error (default info)")
}

// settings is the effective configuration after merging defaults, the
// config file and explicit flags, in ascending precedence.
type settings struct {
	Adapter   string
	ScanTime  int
	TraceFile string
	LogLevel  string
}

func defaultSettings() settings {
	return settings{
		Adapter:  "hci0",
		ScanTime: 5,
		LogLevel: "info",
	}
}

func resolveSettings(fs *flag.FlagSet, opts commonOptions) (settings, error) {
	s := defaultSettings()

	if opts.ConfigFile != "" {
		file, err := LoadConfigFile(opts.ConfigFile)
		if err != nil {
			return s, err
		}
		if file.Adapter != "" {
			s.Adapter = file.Adapter
		}
		if file.ScanTime > 0 {
			s.ScanTime = file.ScanTime
		}
		if file.TraceFile != "" {
			s.TraceFile = file.TraceFile
		}
		if file.LogLevel != "" {
			s.LogLevel = file.LogLevel
		}
	}

	if flagWasSet(fs, "adapter") {
		s.Adapter = opts.Adapter
	}
	if flagWasSet(fs, "trace") {
		s.TraceFile = opts.TraceFile
	}
	if flagWasSet(fs, "log-level") {
		s.LogLevel = opts.LogLevel
	}

	return s, nil
}

// flagWasSet reports whether the flag was given explicitly on the
// command line.
func flagWasSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

// setupLogging configures the stdlib log flags and installs the default
// slog handler at the requested level. Package loggers pick the handler
// up through slog.Default, so this runs before the transport is built.
func setupLogging(level string) error {
	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
		log.SetFlags(log.Ltime | log.Lmicroseconds | log.Lshortfile)
	case "info":
		slogLevel = slog.LevelInfo
		log.SetFlags(log.Ltime | log.Lmicroseconds)
	case "warn":
		slogLevel = slog.LevelWarn
		log.SetFlags(log.Ltime)
	case "error":
		slogLevel = slog.LevelError
		log.SetFlags(log.Ltime)
	default:
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", level)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slogLevel,
	})))
	return nil
}

// buildTrace assembles the trace logger from the effective settings: a
// file logger when -trace is set, an slog bridge at debug level so mug
// traffic shows up in the console, both at once when both apply. The
// returned cleanup is safe to call unconditionally. Runs after
// setupLogging so the bridge picks up the configured handler.
func buildTrace(s settings) (emberlog.Logger, func(), error) {
	var loggers []emberlog.Logger
	cleanup := func() {}

	if s.TraceFile != "" {
		fl, err := emberlog.NewFileLogger(s.TraceFile)
		if err != nil {
			return nil, cleanup, fmt.Errorf("failed to create trace logger: %w", err)
		}
		loggers = append(loggers, fl)
		cleanup = func() { fl.Close() }
	}
	if s.LogLevel == "debug" {
		loggers = append(loggers, emberlog.NewSlogAdapter(slog.Default()))
	}

	switch len(loggers) {
	case 0:
		return nil, cleanup, nil
	case 1:
		return loggers[0], cleanup, nil
	default:
		return emberlog.NewMultiLogger(loggers...), cleanup, nil
	}
}
