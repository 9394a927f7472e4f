package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"

	"github.com/embermug/embermug-go/pkg/ble"
	emberlog "github.com/embermug/embermug-go/pkg/log"
	"github.com/embermug/embermug-go/pkg/protocol"
	"github.com/embermug/embermug-go/pkg/session"
)

// mugOps runs single mug operations over the transport's connector.
// Both the connect command and the interactive menu go through it.
type mugOps struct {
	connector ble.Connector
	trace     emberlog.Logger
	address   string
}

func (o mugOps) newSession() *session.Session {
	sess := session.New(o.connector, o.address)
	if o.trace != nil {
		sess.SetTrace(o.trace)
	}
	return sess
}

// run executes fn inside a full open, pair, operate, close sequence.
func (o mugOps) run(ctx context.Context, fn func(*session.Session) error) error {
	return o.newSession().Run(ctx, fn)
}

// readUnit fetches the active display unit over a short read-only
// session. Reads need no bond, so this skips pairing entirely.
func (o mugOps) readUnit(ctx context.Context) (protocol.TemperatureUnit, error) {
	sess := o.newSession()
	if err := sess.Open(ctx); err != nil {
		return protocol.UnitCelsius, err
	}
	defer sess.Close()
	return sess.Unit(ctx)
}

// status prints the composite snapshot.
func (o mugOps) status(ctx context.Context, w io.Writer) error {
	return o.run(ctx, func(sess *session.Session) error {
		status, err := sess.Status(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "Mug Name: %s | Status: %s\n", status.Name, status.LiquidState)
		fmt.Fprintf(w, "Battery: %.1f%% | State: %s\n", status.Battery.Percent, status.Battery.StateLabel())
		fmt.Fprintf(w, "Current Temp: %.2f deg %s | Target: %.2f deg %s\n",
			status.CurrentTemp, status.Unit, status.TargetTemp, status.Unit)
		return nil
	})
}

// setName renames the mug.
func (o mugOps) setName(ctx context.Context, w io.Writer, name string) error {
	fmt.Fprintf(w, "Setting the name of your mug to %s...\n", name)
	return o.run(ctx, func(sess *session.Session) error {
		if _, err := sess.SetName(ctx, name); err != nil {
			return err
		}
		fmt.Fprintln(w, "Successfully set the name.")
		return nil
	})
}

// setTargetTemp sets the hold temperature. The value is interpreted in
// the unit currently active on the device.
func (o mugOps) setTargetTemp(ctx context.Context, w io.Writer, value float64) error {
	return o.run(ctx, func(sess *session.Session) error {
		unit, err := sess.Unit(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "Setting the target temperature of your mug to %v deg %s...\n", value, unit)
		if _, _, err := sess.SetTargetTemperature(ctx, value); err != nil {
			return err
		}
		fmt.Fprintln(w, "Successfully set the target temperature.")
		return nil
	})
}

// setTempUnit switches the display unit.
func (o mugOps) setTempUnit(ctx context.Context, w io.Writer, unit protocol.TemperatureUnit) error {
	fmt.Fprintf(w, "Setting the temperature unit of your mug to %s\n", unit)
	return o.run(ctx, func(sess *session.Session) error {
		if _, err := sess.SetTemperatureUnit(ctx, unit); err != nil {
			return err
		}
		fmt.Fprintln(w, "Successfully set the temperature unit.")
		return nil
	})
}

// RunConnect runs the connect command: one mug operation against a
// fixed address.
func RunConnect(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("connect", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { printConnectUsage(stderr) }

	var common commonOptions
	registerCommonFlags(fs, &common)
	id := fs.String("id", "", "The MAC address of the mug to connect to (required)")

	if err := fs.Parse(args); err != nil {
		return exitCommandError
	}

	if *id == "" {
		fmt.Fprintln(stderr, "Error: mug address (-id) required")
		printConnectUsage(stderr)
		return exitCommandError
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(stderr, "Error: mug command required")
		printConnectUsage(stderr)
		return exitCommandError
	}

	settings, err := resolveSettings(fs, common)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitCommandError
	}
	if err := setupLogging(settings.LogLevel); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitCommandError
	}

	trace, closeTrace, err := buildTrace(settings)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitCommandError
	}
	defer closeTrace()

	transport, err := newTransport(ble.Config{Adapter: settings.Adapter}, trace)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitCommandError
	}
	defer transport.Close()

	ops := mugOps{connector: transport, trace: trace, address: *id}
	return runMugCommand(ops, fs.Arg(0), fs.Args()[1:], stdout, stderr)
}

// runMugCommand dispatches one mug subcommand.
func runMugCommand(ops mugOps, name string, args []string, stdout, stderr io.Writer) int {
	ctx := context.Background()

	var opErr error
	switch name {
	case "status":
		opErr = ops.status(ctx, stdout)

	case "set-name":
		fs := flag.NewFlagSet("set-name", flag.ContinueOnError)
		fs.SetOutput(stderr)
		fs.Usage = func() { printConnectUsage(stderr) }
		setName := fs.String("name", "", "Name to set (required)")
		if err := fs.Parse(args); err != nil {
			return exitCommandError
		}
		if *setName == "" {
			fmt.Fprintln(stderr, "Error: name (-name) required")
			return exitCommandError
		}
		opErr = ops.setName(ctx, stdout, *setName)

	case "set-target-temp":
		fs := flag.NewFlagSet("set-target-temp", flag.ContinueOnError)
		fs.SetOutput(stderr)
		fs.Usage = func() { printConnectUsage(stderr) }
		temp := fs.String("temp", "", "Target temperature to set (required)")
		if err := fs.Parse(args); err != nil {
			return exitCommandError
		}
		if *temp == "" {
			fmt.Fprintln(stderr, "Error: temperature (-temp) required")
			return exitCommandError
		}
		value, err := strconv.ParseFloat(*temp, 64)
		if err != nil {
			fmt.Fprintf(stderr, "Error: invalid temperature: %s\n", *temp)
			return exitValidation
		}
		opErr = ops.setTargetTemp(ctx, stdout, value)

	case "set-temp-unit":
		fs := flag.NewFlagSet("set-temp-unit", flag.ContinueOnError)
		fs.SetOutput(stderr)
		fs.Usage = func() { printConnectUsage(stderr) }
		unitArg := fs.String("unit", "", "Unit of temperature to set, C or F (required)")
		if err := fs.Parse(args); err != nil {
			return exitCommandError
		}
		if *unitArg == "" {
			fmt.Fprintln(stderr, "Error: unit (-unit) required")
			return exitCommandError
		}
		unit, err := protocol.ParseTemperatureUnit(*unitArg)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitValidation
		}
		opErr = ops.setTempUnit(ctx, stdout, unit)

	default:
		fmt.Fprintf(stderr, "Unknown mug command: %s\n", name)
		printConnectUsage(stderr)
		return exitCommandError
	}

	if opErr == nil {
		return exitSuccess
	}
	if errors.Is(opErr, ble.ErrDeviceNotFound) {
		fmt.Fprintf(stderr, "Unable to find Ember Mug with address %s\n", ops.address)
		return exitCommandError
	}
	fmt.Fprintf(stderr, "Error: %v\n", opErr)
	if isValidationError(opErr) {
		return exitValidation
	}
	return exitCommandError
}

// isValidationError reports whether the failure stems from rejected
// user input rather than the transport.
func isValidationError(err error) bool {
	return errors.Is(err, protocol.ErrNameTooLong) ||
		errors.Is(err, protocol.ErrNameHasSpaces) ||
		errors.Is(err, protocol.ErrNameNotASCII) ||
		errors.Is(err, protocol.ErrTargetOutOfRange) ||
		errors.Is(err, protocol.ErrInvalidUnit)
}

func printConnectUsage(w io.Writer) {
	fmt.Fprintln(w, `
Usage: embermug connect [options] -id <address> <mug command>

Mug commands:
  status                     Display status of the Ember Mug
  set-name -name <s>         Set the name of the mug
  set-target-temp -temp <n>  Set the target temperature of the mug
  set-temp-unit -unit <C|F>  Set the temperature unit of the mug

Options:
  -id string         The MAC address of the mug to connect to (required)
  -adapter string    Bluetooth adapter to use (default hci0)
  -config string     Path to a YAML config file
  -trace string      Write a trace of all mug traffic to this file
  -log-level string  Log level: debug, info, warn or error (default info)

Examples:
  embermug connect -id C9:75:11:22:33:44 status
  embermug connect -id C9:75:11:22:33:44 set-target-temp -temp 57.5`)
}
