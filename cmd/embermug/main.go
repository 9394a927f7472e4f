// embermug is a CLI tool for finding and controlling Ember smart mugs
// over Bluetooth LE.
package main

import (
	"fmt"
	"os"

	"github.com/embermug/embermug-go/cmd/embermug/commands"
)

const (
	exitSuccess      = 0
	exitCommandError = 1
	exitValidation   = 2
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(exitCommandError)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var exitCode int
	switch cmd {
	case "scan":
		exitCode = commands.RunScan(args, os.Stdout, os.Stderr)
	case "connect":
		exitCode = commands.RunConnect(args, os.Stdout, os.Stderr)
	case "help", "-h", "--help":
		printUsage()
		exitCode = exitSuccess
	case "version", "-v", "--version":
		fmt.Println("embermug version 0.1.0")
		exitCode = exitSuccess
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		exitCode = exitCommandError
	}

	os.Exit(exitCode)
}

func printUsage() {
	fmt.Println(`embermug - Ember smart mug controller

Usage:
  embermug <command> [options]

Commands:
  scan       Scan for nearby Ember mugs and pick one to control interactively
  connect    Connect to a mug by address and run a single command

Options:
  -h, --help     Show this help message
  -v, --version  Show version information

Examples:
  embermug scan -time 30
  embermug scan -trace session.emlog
  embermug connect -id C9:75:11:22:33:44 status
  embermug connect -id C9:75:11:22:33:44 set-name -name Kettle
  embermug connect -id C9:75:11:22:33:44 set-target-temp -temp 57.5
  embermug connect -id C9:75:11:22:33:44 set-temp-unit -unit F

For command-specific help, run:
  embermug <command> -help`)
}
