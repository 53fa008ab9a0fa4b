package hwval

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/ethereum-optimism/infra/op-hwval/flags"
	"github.com/ethereum-optimism/infra/op-hwval/types"
	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"
)

// Config holds the run configuration. It is read once at start and not
// modified afterwards.
type Config struct {
	TestDir          string
	ConfigFile       string          // Global INI configuration
	LogDir           string          // Directory for run logs and reports
	TimestampReport  bool            // Name reports report_<timestamp>.* instead of report.*
	ExecutionType    string          // Passed through into the result document
	ExternalData     json.RawMessage // Opaque JSON passed through into the result document
	ReservedSuffix   string          // Directories ending with this suffix are not test modules
	TestLogLevel     slog.Level      // Level of the per-test-case log files
	ShowProgress     bool
	ProgressInterval time.Duration
	SSHDialTimeout   time.Duration
	PollInterval     time.Duration // Interval between POST readiness polls
	Metrics          opmetrics.CLIConfig
	Log              log.Logger
}

// NewConfig creates a new Config from cli context
func NewConfig(ctx *cli.Context, log log.Logger) (*Config, error) {
	if err := flags.CheckRequired(ctx); err != nil {
		return nil, fmt.Errorf("missing required flags: %w", err)
	}

	testDir := ctx.String(flags.TestDir.Name)
	if testDir == "" {
		return nil, errors.New("test directory is required")
	}
	absTestDir, err := filepath.Abs(testDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for test directory '%s': %w", testDir, err)
	}

	configFile := ctx.String(flags.ConfigFile.Name)
	if configFile == "" {
		return nil, errors.New("configuration file is required")
	}
	absConfigFile, err := filepath.Abs(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for config file '%s': %w", configFile, err)
	}

	logDir := ctx.String(flags.LogDir.Name)
	if logDir == "" {
		logDir = "logs"
	}
	logDir, err = filepath.Abs(logDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for log directory '%s': %w", logDir, err)
	}

	var externalData json.RawMessage
	if path := ctx.String(flags.ExternalData.Name); path != "" {
		externalData, err = readExternalData(path)
		if err != nil {
			return nil, err
		}
	}

	testLogLevel, err := parseLevel(ctx.String(flags.TestLogLevel.Name))
	if err != nil {
		return nil, err
	}

	executionType := ctx.String(flags.ExecutionType.Name)
	if executionType == "" {
		executionType = flags.DefaultExecutionType
	}

	return &Config{
		TestDir:          absTestDir,
		ConfigFile:       absConfigFile,
		LogDir:           logDir,
		TimestampReport:  ctx.Bool(flags.TimestampReport.Name),
		ExecutionType:    executionType,
		ExternalData:     externalData,
		ReservedSuffix:   ctx.String(flags.ReservedSuffix.Name),
		TestLogLevel:     testLogLevel,
		ShowProgress:     ctx.Bool(flags.ShowProgress.Name),
		ProgressInterval: ctx.Duration(flags.ProgressInterval.Name),
		SSHDialTimeout:   ctx.Duration(flags.SSHDialTimeout.Name),
		PollInterval:     ctx.Duration(flags.PollInterval.Name),
		Metrics:          opmetrics.ReadCLIConfig(ctx),
		Log:              log,
	}, nil
}

// Snapshot returns the parts of the configuration recorded in the result document
func (c *Config) Snapshot() *types.RunConfigSnapshot {
	return &types.RunConfigSnapshot{
		TestDir:         c.TestDir,
		ConfigFile:      c.ConfigFile,
		LogDir:          c.LogDir,
		TimestampReport: c.TimestampReport,
		ReservedSuffix:  c.ReservedSuffix,
	}
}

func readExternalData(path string) (json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading external data: %w", err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("external data file %s is not valid JSON", path)
	}
	return json.RawMessage(data), nil
}

func parseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("invalid test log level %q: %w", s, err)
	}
	return lvl, nil
}
