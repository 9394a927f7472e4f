package commands

import (
	"bytes"
	"flag"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/embermug/embermug-go/internal/embertest"
	"github.com/embermug/embermug-go/pkg/ble"
	"github.com/embermug/embermug-go/pkg/log"
	"github.com/embermug/embermug-go/pkg/protocol"
)

const testAddr = "C9:75:11:22:33:44"

// withMockTransport swaps the transport constructor for the given mock
// for the duration of the test.
func withMockTransport(t *testing.T, transport ble.Transport) {
	t.Helper()
	orig := newTransport
	newTransport = func(config ble.Config, trace log.Logger) (ble.Transport, error) {
		return transport, nil
	}
	t.Cleanup(func() { newTransport = orig })
}

// setStdin scripts the interactive input for the duration of the test.
func setStdin(t *testing.T, input string) {
	t.Helper()
	orig := stdinSource
	stdinSource = io.NopCloser(strings.NewReader(input))
	t.Cleanup(func() { stdinSource = orig })
}

func newTestMug(t *testing.T) (*embertest.Transport, *embertest.Device) {
	t.Helper()
	transport := embertest.NewTransport()
	mug := embertest.NewMug(testAddr)
	transport.AddDevice(mug, "EMBER")
	return transport, mug
}

func TestRunConnect_Status(t *testing.T) {
	transport, _ := newTestMug(t)
	withMockTransport(t, transport)

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	exitCode := RunConnect([]string{"-id", testAddr, "status"}, stdout, stderr)

	if exitCode != exitSuccess {
		t.Errorf("expected exit code %d, got %d", exitSuccess, exitCode)
		t.Logf("stderr: %s", stderr.String())
	}

	want := []string{
		"Mug Name: EMBER | Status: Empty",
		"Battery: 80.0% | State: Not Charging",
		"Current Temp: 23.50 deg C | Target: 55.00 deg C",
	}
	for _, line := range want {
		if !strings.Contains(stdout.String(), line) {
			t.Errorf("expected %q in output, got: %s", line, stdout.String())
		}
	}
}

func TestRunConnect_SetName(t *testing.T) {
	transport, mug := newTestMug(t)
	withMockTransport(t, transport)

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	exitCode := RunConnect([]string{"-id", testAddr, "set-name", "-name", "Kettle"}, stdout, stderr)

	if exitCode != exitSuccess {
		t.Errorf("expected exit code %d, got %d", exitSuccess, exitCode)
		t.Logf("stderr: %s", stderr.String())
	}
	if !strings.Contains(stdout.String(), "Successfully set the name.") {
		t.Errorf("expected success message, got: %s", stdout.String())
	}

	value, ok := mug.Value(protocol.ChannelName)
	if !ok || string(value) != "Kettle" {
		t.Errorf("expected name Kettle on device, got %q", value)
	}
}

func TestRunConnect_SetNameWithSpaces(t *testing.T) {
	transport, mug := newTestMug(t)
	withMockTransport(t, transport)

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	exitCode := RunConnect([]string{"-id", testAddr, "set-name", "-name", "My Mug"}, stdout, stderr)

	if exitCode != exitValidation {
		t.Errorf("expected exit code %d, got %d", exitValidation, exitCode)
	}
	if !strings.Contains(stderr.String(), "contains spaces") {
		t.Errorf("expected space validation error, got: %s", stderr.String())
	}
	if calls := mug.ChannelCalls("write", protocol.ChannelName); len(calls) != 0 {
		t.Errorf("expected no write for a rejected name, got %d", len(calls))
	}
}

func TestRunConnect_SetTargetTemp(t *testing.T) {
	transport, mug := newTestMug(t)
	withMockTransport(t, transport)

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	exitCode := RunConnect([]string{"-id", testAddr, "set-target-temp", "-temp", "56.5"}, stdout, stderr)

	if exitCode != exitSuccess {
		t.Errorf("expected exit code %d, got %d", exitSuccess, exitCode)
		t.Logf("stderr: %s", stderr.String())
	}
	if !strings.Contains(stdout.String(), "Setting the target temperature of your mug to 56.5 deg C...") {
		t.Errorf("expected progress message with the unit, got: %s", stdout.String())
	}
	if !strings.Contains(stdout.String(), "Successfully set the target temperature.") {
		t.Errorf("expected success message, got: %s", stdout.String())
	}

	value, _ := mug.Value(protocol.ChannelTargetTemp)
	if !bytes.Equal(value, embertest.TempBytes(56.5)) {
		t.Errorf("expected target temp bytes %x, got %x", embertest.TempBytes(56.5), value)
	}
}

func TestRunConnect_SetTargetTempOutOfRange(t *testing.T) {
	transport, _ := newTestMug(t)
	withMockTransport(t, transport)

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	exitCode := RunConnect([]string{"-id", testAddr, "set-target-temp", "-temp", "20"}, stdout, stderr)

	if exitCode != exitValidation {
		t.Errorf("expected exit code %d, got %d", exitValidation, exitCode)
	}
	if !strings.Contains(stderr.String(), "target temperature out of range") {
		t.Errorf("expected out of range error, got: %s", stderr.String())
	}
}

func TestRunConnect_SetTargetTempNotANumber(t *testing.T) {
	transport, _ := newTestMug(t)
	withMockTransport(t, transport)

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	exitCode := RunConnect([]string{"-id", testAddr, "set-target-temp", "-temp", "warm"}, stdout, stderr)

	if exitCode != exitValidation {
		t.Errorf("expected exit code %d, got %d", exitValidation, exitCode)
	}
	if !strings.Contains(stderr.String(), "invalid temperature") {
		t.Errorf("expected invalid temperature error, got: %s", stderr.String())
	}
}

func TestRunConnect_SetTempUnit(t *testing.T) {
	transport, mug := newTestMug(t)
	withMockTransport(t, transport)

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	exitCode := RunConnect([]string{"-id", testAddr, "set-temp-unit", "-unit", "F"}, stdout, stderr)

	if exitCode != exitSuccess {
		t.Errorf("expected exit code %d, got %d", exitSuccess, exitCode)
		t.Logf("stderr: %s", stderr.String())
	}
	if !strings.Contains(stdout.String(), "Successfully set the temperature unit.") {
		t.Errorf("expected success message, got: %s", stdout.String())
	}

	value, _ := mug.Value(protocol.ChannelTempUnit)
	if !bytes.Equal(value, []byte{0x01}) {
		t.Errorf("expected unit byte 01, got %x", value)
	}
}

func TestRunConnect_SetTempUnitInvalid(t *testing.T) {
	transport, _ := newTestMug(t)
	withMockTransport(t, transport)

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	exitCode := RunConnect([]string{"-id", testAddr, "set-temp-unit", "-unit", "K"}, stdout, stderr)

	if exitCode != exitValidation {
		t.Errorf("expected exit code %d, got %d", exitValidation, exitCode)
	}
	if !strings.Contains(stderr.String(), "invalid temperature unit") {
		t.Errorf("expected invalid unit error, got: %s", stderr.String())
	}
}

func TestRunConnect_DeviceNotFound(t *testing.T) {
	withMockTransport(t, embertest.NewTransport())

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	exitCode := RunConnect([]string{"-id", "AA:BB:CC:00:11:22", "status"}, stdout, stderr)

	if exitCode != exitCommandError {
		t.Errorf("expected exit code %d, got %d", exitCommandError, exitCode)
	}
	if !strings.Contains(stderr.String(), "Unable to find Ember Mug with address AA:BB:CC:00:11:22") {
		t.Errorf("expected not-found message, got: %s", stderr.String())
	}
}

func TestRunConnect_MissingID(t *testing.T) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	exitCode := RunConnect([]string{"status"}, stdout, stderr)

	if exitCode != exitCommandError {
		t.Errorf("expected exit code %d, got %d", exitCommandError, exitCode)
	}
	if !strings.Contains(stderr.String(), "mug address (-id) required") {
		t.Errorf("expected missing id error, got: %s", stderr.String())
	}
}

func TestRunConnect_MissingSubcommand(t *testing.T) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	exitCode := RunConnect([]string{"-id", testAddr}, stdout, stderr)

	if exitCode != exitCommandError {
		t.Errorf("expected exit code %d, got %d", exitCommandError, exitCode)
	}
	if !strings.Contains(stderr.String(), "mug command required") {
		t.Errorf("expected missing command error, got: %s", stderr.String())
	}
}

func TestRunConnect_UnknownSubcommand(t *testing.T) {
	transport, _ := newTestMug(t)
	withMockTransport(t, transport)

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	exitCode := RunConnect([]string{"-id", testAddr, "explode"}, stdout, stderr)

	if exitCode != exitCommandError {
		t.Errorf("expected exit code %d, got %d", exitCommandError, exitCode)
	}
	if !strings.Contains(stderr.String(), "Unknown mug command: explode") {
		t.Errorf("expected unknown command error, got: %s", stderr.String())
	}
}

func TestRunConnect_WritesTrace(t *testing.T) {
	transport, _ := newTestMug(t)
	withMockTransport(t, transport)

	tracePath := filepath.Join(t.TempDir(), "trace.emlog")
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	exitCode := RunConnect([]string{"-id", testAddr, "-trace", tracePath, "status"}, stdout, stderr)
	if exitCode != exitSuccess {
		t.Fatalf("expected exit code %d, got %d (stderr: %s)", exitSuccess, exitCode, stderr.String())
	}

	reader, err := log.NewReader(tracePath)
	if err != nil {
		t.Fatalf("failed to open trace: %v", err)
	}
	defer reader.Close()

	paired := false
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("failed to read trace: %v", err)
		}
		if event.Device != testAddr || event.Category != log.CategoryState {
			continue
		}
		if event.StateChange != nil && event.StateChange.NewState == "PAIRED" {
			paired = true
		}
	}
	if !paired {
		t.Error("expected a PAIRED state change in the trace")
	}
}

func TestRunConnect_ReleasesDeviceAfterFailure(t *testing.T) {
	transport, mug := newTestMug(t)
	mug.Handlers.OnWrite = func(ch protocol.Channel, data []byte) error {
		return embertest.ErrDeviceDisconnected
	}
	withMockTransport(t, transport)

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	exitCode := RunConnect([]string{"-id", testAddr, "set-name", "-name", "Kettle"}, stdout, stderr)

	if exitCode != exitCommandError {
		t.Errorf("expected exit code %d, got %d", exitCommandError, exitCode)
	}
	if mug.Paired {
		t.Error("expected unpair to run during cleanup")
	}
	if !mug.Disconnected {
		t.Error("expected disconnect to run during cleanup")
	}
}

func TestRunScan_NoDevices(t *testing.T) {
	withMockTransport(t, embertest.NewTransport())

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	exitCode := RunScan([]string{"-time", "1"}, stdout, stderr)

	if exitCode != exitSuccess {
		t.Errorf("expected exit code %d, got %d", exitSuccess, exitCode)
		t.Logf("stderr: %s", stderr.String())
	}
	if !strings.Contains(stdout.String(), "No Ember Mug devices found.") {
		t.Errorf("expected no-devices message, got: %s", stdout.String())
	}
}

func TestRunScan_ListsDevices(t *testing.T) {
	transport, _ := newTestMug(t)
	withMockTransport(t, transport)
	setStdin(t, "0\n")

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	exitCode := RunScan([]string{"-time", "1"}, stdout, stderr)

	if exitCode != exitSuccess {
		t.Errorf("expected exit code %d, got %d", exitSuccess, exitCode)
		t.Logf("stderr: %s", stderr.String())
	}
	if !strings.Contains(stdout.String(), "[1]: C9:75:11:22:33:44: EMBER") {
		t.Errorf("expected device listing, got: %s", stdout.String())
	}
	// Declining with 0 ends the command before any selection.
	if strings.Contains(stdout.String(), "You've selected:") {
		t.Errorf("expected no selection, got: %s", stdout.String())
	}
}

func TestRunScan_BadFlag(t *testing.T) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	exitCode := RunScan([]string{"-bogus"}, stdout, stderr)

	if exitCode != exitCommandError {
		t.Errorf("expected exit code %d, got %d", exitCommandError, exitCode)
	}
}

func TestResolveSettings_Defaults(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	var common commonOptions
	registerCommonFlags(fs, &common)
	if err := fs.Parse(nil); err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	settings, err := resolveSettings(fs, common)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	if settings.Adapter != "hci0" {
		t.Errorf("expected adapter hci0, got %s", settings.Adapter)
	}
	if settings.ScanTime != 5 {
		t.Errorf("expected scan time 5, got %d", settings.ScanTime)
	}
	if settings.LogLevel != "info" {
		t.Errorf("expected log level info, got %s", settings.LogLevel)
	}
	if settings.TraceFile != "" {
		t.Errorf("expected no trace file, got %s", settings.TraceFile)
	}
}

func TestResolveSettings_Precedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "adapter: hci1\nscan_time: 9\nlog_level: warn\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	var common commonOptions
	registerCommonFlags(fs, &common)
	if err := fs.Parse([]string{"-config", path, "-adapter", "hci2"}); err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	settings, err := resolveSettings(fs, common)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	// Explicit flag beats the file, the file beats the default.
	if settings.Adapter != "hci2" {
		t.Errorf("expected adapter hci2, got %s", settings.Adapter)
	}
	if settings.ScanTime != 9 {
		t.Errorf("expected scan time 9, got %d", settings.ScanTime)
	}
	if settings.LogLevel != "warn" {
		t.Errorf("expected log level warn, got %s", settings.LogLevel)
	}
}

func TestLoadConfigFile_Missing(t *testing.T) {
	_, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil || !strings.Contains(err.Error(), "failed to read config file") {
		t.Errorf("expected read error, got %v", err)
	}
}

func TestLoadConfigFile_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("adapter: [unclosed"), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	_, err := LoadConfigFile(path)
	if err == nil || !strings.Contains(err.Error(), "failed to parse config file") {
		t.Errorf("expected parse error, got %v", err)
	}
}

func TestSetupLogging_InvalidLevel(t *testing.T) {
	err := setupLogging("loud")
	if err == nil || !strings.Contains(err.Error(), "invalid log level") {
		t.Errorf("expected invalid level error, got %v", err)
	}
}

func TestBuildTrace(t *testing.T) {
	tracePath := filepath.Join(t.TempDir(), "trace.emlog")

	tests := []struct {
		name     string
		settings settings
		want     string
	}{
		{"disabled", settings{LogLevel: "info"}, "nil"},
		{"file only", settings{LogLevel: "info", TraceFile: tracePath}, "file"},
		{"debug only", settings{LogLevel: "debug"}, "slog"},
		{"file and debug", settings{LogLevel: "debug", TraceFile: tracePath}, "multi"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trace, cleanup, err := buildTrace(tt.settings)
			defer cleanup()
			if err != nil {
				t.Fatalf("buildTrace failed: %v", err)
			}

			switch tt.want {
			case "nil":
				if trace != nil {
					t.Errorf("expected no trace logger, got %T", trace)
				}
			case "file":
				if _, ok := trace.(*log.FileLogger); !ok {
					t.Errorf("expected *log.FileLogger, got %T", trace)
				}
			case "slog":
				if _, ok := trace.(*log.SlogAdapter); !ok {
					t.Errorf("expected *log.SlogAdapter, got %T", trace)
				}
			case "multi":
				if _, ok := trace.(*log.MultiLogger); !ok {
					t.Errorf("expected *log.MultiLogger, got %T", trace)
				}
			}
		})
	}
}

func TestFlagWasSet(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.String("set", "", "")
	fs.String("unset", "", "")
	if err := fs.Parse([]string{"-set", "value"}); err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if !flagWasSet(fs, "set") {
		t.Error("expected set flag to register as set")
	}
	if flagWasSet(fs, "unset") {
		t.Error("expected unset flag to register as unset")
	}
}
