package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/embermug/embermug-go/pkg/ble"
	"github.com/embermug/embermug-go/pkg/discovery"
)

// RunScan runs the scan command: discover nearby mugs, let the user
// pick one and drop into the interactive menu for it.
func RunScan(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("scan", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { printScanUsage(stderr) }

	var common commonOptions
	registerCommonFlags(fs, &common)
	scanTime := fs.Int("time", 0, "Number of seconds to poll for devices (default 5)")

	if err := fs.Parse(args); err != nil {
		return exitCommandError
	}

	settings, err := resolveSettings(fs, common)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitCommandError
	}
	if flagWasSet(fs, "time") {
		settings.ScanTime = *scanTime
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

	ctx := context.Background()

	fmt.Fprintf(stdout, "Scanning for Ember Mug devices for %d seconds...\n", settings.ScanTime)

	config := discovery.DefaultScanConfig()
	config.Duration = time.Duration(settings.ScanTime) * time.Second
	config.OnFound = func(index int, device discovery.DiscoveredDevice) {
		fmt.Fprintf(stdout, "[%d]: %s\n", index, device)
	}

	devices, err := discovery.Scan(ctx, transport, config)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitCommandError
	}

	if len(devices) == 0 {
		fmt.Fprintln(stdout, "No Ember Mug devices found.")
		return exitSuccess
	}

	menu, err := newMenu(transport, trace, stdout)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitCommandError
	}
	defer menu.Close()

	device, ok := menu.selectDevice(devices)
	if !ok {
		return exitSuccess
	}
	fmt.Fprintf(stdout, "You've selected: %s\n", device.Address)

	menu.run(ctx, device.Address)
	return exitSuccess
}

func printScanUsage(w io.Writer) {
	fmt.Fprintln(w, `
Usage: embermug scan [options]

Scans for Ember mugs, then offers to control a found mug through an
interactive menu.

Options:
  -time int          Number of seconds to poll for devices (default 5)
  -adapter string    Bluetooth adapter to use (default hci0)
  -config string     Path to a YAML config file
  -trace string      Write a trace of all mug traffic to this file
  -log-level string  Log level: debug, info, warn or error (default info)

Examples:
  embermug scan
  embermug scan -time 30 -trace session.emlog`)
}
