package commands

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FileConfig is the YAML config file format. Every field is optional;
// zero values defer to the defaults.
type FileConfig struct {
	// Adapter is the Bluetooth adapter name, like hci0.
	Adapter string `yaml:"adapter"`

	// ScanTime is the scan duration in seconds.
	ScanTime int `yaml:"scan_time"`

	// TraceFile is where to write the binary trace log.
	TraceFile string `yaml:"trace_file"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// LoadConfigFile reads and parses a YAML config file.
func LoadConfigFile(path string) (FileConfig, error) {
	var config FileConfig

	data, err := os.ReadFile(path)
	if err != nil {
		return config, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return config, fmt.Errorf("failed to parse config file: %w", err)
	}
	return config, nil
}
