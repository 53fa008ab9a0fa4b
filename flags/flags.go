package flags

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	opservice "github.com/ethereum-optimism/optimism/op-service"
	opflags "github.com/ethereum-optimism/optimism/op-service/flags"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"
	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"
)

const (
	EnvVarPrefix = "OP_HWVAL"

	DefaultExecutionType = "Native"
)

var (
	TestDir = &cli.StringFlag{
		Name:    "testdir",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "TESTDIR"),
		Usage:   "Path to the test directory from which to discover test cases",
	}
	ConfigFile = &cli.StringFlag{
		Name:    "config",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "CONFIG"),
		Usage:   "Path to the INI configuration holding the [CommonData] section (eg. 'config.ini')",
	}
	LogDir = &cli.StringFlag{
		Name:    "logdir",
		Value:   "logs",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "LOGDIR"),
		Usage:   "Directory to store test logs and reports",
	}
	TimestampReport = &cli.BoolFlag{
		Name:    "timestamp-report",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "TIMESTAMP_REPORT"),
		Usage:   "Name the reports report_<timestamp>.json/.html instead of report.json/.html",
	}
	ExecutionType = &cli.StringFlag{
		Name:    "execution-type",
		Value:   DefaultExecutionType,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "EXECUTION_TYPE"),
		Usage:   "Execution type recorded in the result document",
	}
	ExternalData = &cli.StringFlag{
		Name:    "external-data",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "EXTERNAL_DATA"),
		Usage:   "Path to a JSON file copied verbatim into the result document",
	}
	ReservedSuffix = &cli.StringFlag{
		Name:    "reserved-suffix",
		Value:   "__",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "RESERVED_SUFFIX"),
		Usage:   "Directories whose name ends with this suffix are not searched for test cases",
	}
	TestLogLevel = &cli.StringFlag{
		Name:    "test-log-level",
		Value:   "debug",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "TEST_LOG_LEVEL"),
		Usage:   "Log level of the per-test-case log files",
	}
	ShowProgress = &cli.BoolFlag{
		Name:    "show-progress",
		Value:   true,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SHOW_PROGRESS"),
		Usage:   "Periodically log which test case is running",
	}
	ProgressInterval = &cli.DurationFlag{
		Name:    "progress-interval",
		Value:   30 * time.Second,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "PROGRESS_INTERVAL"),
		Usage:   "Interval between progress updates when --show-progress is enabled",
	}
	SSHDialTimeout = &cli.DurationFlag{
		Name:    "ssh.dial-timeout",
		Value:   30 * time.Second,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SSH_DIAL_TIMEOUT"),
		Usage:   "Timeout for establishing the SSH connection to the management controller",
	}
	PollInterval = &cli.DurationFlag{
		Name:    "sut.poll-interval",
		Value:   10 * time.Second,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SUT_POLL_INTERVAL"),
		Usage:   "Interval between POST readiness checks",
	}
)

var requiredFlags = []cli.Flag{
	TestDir,
	ConfigFile,
}

var optionalFlags = []cli.Flag{
	LogDir,
	TimestampReport,
	ExecutionType,
	ExternalData,
	ReservedSuffix,
	TestLogLevel,
	ShowProgress,
	ProgressInterval,
	SSHDialTimeout,
	PollInterval,
}

var Flags []cli.Flag

func init() {
	optionalFlags = append(optionalFlags, oplog.CLIFlags(EnvVarPrefix)...)
	optionalFlags = append(optionalFlags, opmetrics.CLIFlags(EnvVarPrefix)...)

	Flags = append(requiredFlags, optionalFlags...)
}

func CheckRequired(ctx *cli.Context) error {
	for _, f := range requiredFlags {
		if !ctx.IsSet(f.Names()[0]) {
			return fmt.Errorf("flag %s is required", f.Names()[0])
		}
	}
	return opflags.CheckRequiredXor(ctx)
}
