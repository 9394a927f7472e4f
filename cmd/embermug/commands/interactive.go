package commands

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/embermug/embermug-go/pkg/ble"
	"github.com/embermug/embermug-go/pkg/discovery"
	emberlog "github.com/embermug/embermug-go/pkg/log"
	"github.com/embermug/embermug-go/pkg/protocol"
)

// stdinSource is where interactive prompts read from. Tests point it at
// a scripted reader; nil means the process stdin.
var stdinSource io.ReadCloser

// menu is the interactive mug control loop reached from the scan
// command.
type menu struct {
	rl        *readline.Instance
	connector ble.Connector
	trace     emberlog.Logger
}

// newMenu creates the interactive handler writing to stdout.
func newMenu(connector ble.Connector, trace emberlog.Logger, stdout io.Writer) (*menu, error) {
	cfg := &readline.Config{
		Prompt:          "Your choice? ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		Stdin:           stdinSource,
		Stdout:          stdout,
	}
	if stdinSource != nil {
		// Scripted input is never a terminal.
		cfg.FuncIsTerminal = func() bool { return false }
		cfg.FuncMakeRaw = func() error { return nil }
		cfg.FuncExitRaw = func() error { return nil }
	}

	rl, err := readline.NewEx(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &menu{rl: rl, connector: connector, trace: trace}, nil
}

// Close releases the readline instance.
func (m *menu) Close() error {
	return m.rl.Close()
}

// selectDevice prompts for a 1-based pick from the scan results. ok is
// false when the user declines with 0 or enters anything unusable.
func (m *menu) selectDevice(devices []discovery.DiscoveredDevice) (discovery.DiscoveredDevice, bool) {
	reply, err := m.prompt("Find your mug? Enter the number for it here, or 0 for no match: ")
	if err != nil {
		return discovery.DiscoveredDevice{}, false
	}
	choice, err := strconv.Atoi(reply)
	if err != nil {
		return discovery.DiscoveredDevice{}, false
	}
	return discovery.Select(devices, choice)
}

// run drives the menu loop for the selected mug until the user exits.
// Every choice is one full connect, pair, operate, release sequence, so
// a failed operation never leaves a half-open connection behind.
func (m *menu) run(ctx context.Context, address string) {
	ops := mugOps{connector: m.connector, trace: m.trace, address: address}
	out := m.rl.Stdout()

	m.printMenu()

	for {
		m.rl.SetPrompt("Your choice? ")
		line, err := m.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(out, "Exiting...")
			return
		}

		choice := strings.TrimSpace(line)
		if choice == "" {
			continue
		}

		switch strings.ToLower(choice) {
		case "1", "status":
			if err := ops.status(ctx, out); err != nil {
				fmt.Fprintf(out, "Error: %v\n", err)
			}

		case "2", "set-name":
			m.cmdSetName(ctx, ops)

		case "3", "set-target-temp":
			m.cmdSetTargetTemp(ctx, ops)

		case "4", "set-temp-unit":
			m.cmdSetTempUnit(ctx, ops)

		case "5", "exit", "quit", "q":
			fmt.Fprintln(out, "Exiting...")
			return

		case "help", "menu", "?":
			m.printMenu()

		default:
			fmt.Fprintln(out, "You've selected an invalid option, please try again.")
		}
	}
}

// printMenu shows the fixed option list.
func (m *menu) printMenu() {
	fmt.Fprintln(m.rl.Stdout(), `
Now that you've selected the mug you'd like to interact with, what do you want to do?
  1) Check status
  2) Set mug name
  3) Set the target temperature
  4) Set the temperature unit
  5) Exit`)
}

// prompt asks a one-off question and returns the trimmed reply.
func (m *menu) prompt(question string) (string, error) {
	m.rl.SetPrompt(question)
	line, err := m.rl.Readline()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (m *menu) cmdSetName(ctx context.Context, ops mugOps) {
	out := m.rl.Stdout()
	fmt.Fprintln(out, "Please enter your mug's name. It cannot contain spaces and must be shorter than 14 bytes/characters.")

	name, err := m.prompt("Name: ")
	if err != nil || name == "" {
		return
	}
	if err := ops.setName(ctx, out, name); err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
	}
}

func (m *menu) cmdSetTargetTemp(ctx context.Context, ops mugOps) {
	out := m.rl.Stdout()

	// Read the active unit first so the prompt can name it.
	unit, err := ops.readUnit(ctx)
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return
	}

	reply, err := m.prompt(fmt.Sprintf("What is the temperature (in %s) you would like to target? ", unit))
	if err != nil || reply == "" {
		return
	}
	value, err := strconv.ParseFloat(reply, 64)
	if err != nil {
		fmt.Fprintf(out, "Error: invalid temperature: %s\n", reply)
		return
	}
	if err := ops.setTargetTemp(ctx, out, value); err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
	}
}

func (m *menu) cmdSetTempUnit(ctx context.Context, ops mugOps) {
	out := m.rl.Stdout()

	reply, err := m.prompt("What is the temperature unit you would like to use? (Select C or F) ")
	if err != nil || reply == "" {
		return
	}
	unit, err := protocol.ParseTemperatureUnit(reply)
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return
	}
	if err := ops.setTempUnit(ctx, out, unit); err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
	}
}
