package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/honeycombio/otel-config-go/otelconfig"
	"github.com/urfave/cli/v2"

	hwval "github.com/ethereum-optimism/infra/op-hwval"
	"github.com/ethereum-optimism/infra/op-hwval/exitcodes"
	"github.com/ethereum-optimism/infra/op-hwval/flags"
	"github.com/ethereum-optimism/infra/op-hwval/service"
	"github.com/ethereum-optimism/optimism/devnet-sdk/telemetry"
	"github.com/ethereum-optimism/optimism/op-service/cliapp"
	"github.com/ethereum-optimism/optimism/op-service/ctxinterrupt"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"
)

var (
	Version   = "v0.1.0"
	GitCommit = ""
	GitDate   = ""
)

func main() {
	app := newApp()
	app.ExitErrHandler = func(c *cli.Context, err error) {
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			cli.HandleExitCoder(exitErr)
		} else if err != nil {
			if hwval.IsRuntimeError(err) {
				log.Error("Fatal run error, no report was written", "err", err)
			}
			cli.HandleExitCoder(cli.Exit(err.Error(), exitCode(err)))
		}
	}

	// Start telemetry
	ctx, shutdown, err := telemetry.SetupOpenTelemetry(
		context.Background(),
		otelconfig.WithServiceName(app.Name),
		otelconfig.WithServiceVersion(app.Version),
	)
	if err != nil {
		log.Crit("Failed to setup open telemetry", "message", err)
	}
	defer shutdown()

	// Start CLI
	ctx = ctxinterrupt.WithSignalWaiterMain(ctx)
	err = app.RunContext(ctx, os.Args)
	if err != nil {
		log.Crit("Application failed", "message", err)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Version = fmt.Sprintf("%s-%s-%s", Version, GitCommit, GitDate)
	app.Name = "op-hwval"
	app.Usage = "Hardware Validation Test Runner"
	app.Description = "op-hwval runs hardware validation test cases against a system under test and writes a JSON and HTML report"
	app.Flags = cliapp.ProtectFlags(flags.Flags)
	app.Action = cliapp.LifecycleCmd(run)
	return app
}

// exitCode maps a run error to the process exit code. A completed run exits
// with success even when test cases failed; any error is fatal.
func exitCode(err error) int {
	if err == nil {
		return exitcodes.Success
	}
	return exitcodes.RuntimeErr
}

func run(ctx *cli.Context, closeApp context.CancelCauseFunc) (cliapp.Lifecycle, error) {
	logCfg := oplog.ReadCLIConfig(ctx)
	log := oplog.NewLogger(oplog.AppOut(ctx), logCfg)
	oplog.SetGlobalLogHandler(log.Handler())
	oplog.SetupDefaults()

	cfg, err := hwval.NewConfig(ctx, log)
	if err != nil {
		return nil, hwval.NewRuntimeError(fmt.Errorf("failed to create config: %w", err))
	}

	cfg.Log.Debug("Config", "config", cfg)

	svcCfg := service.DefaultConfig()
	svcCfg.MetricsEnabled = cfg.Metrics.Enabled
	svcCfg.MetricsAddr = service.MetricsAddr(cfg.Metrics.ListenAddr, cfg.Metrics.ListenPort)
	svc := service.New(svcCfg)

	runService, err := hwval.New(cfg, Version, closeApp, hwval.WithService(svc))
	if err != nil {
		return nil, hwval.NewRuntimeError(fmt.Errorf("failed to create hwval: %w", err))
	}

	svc.Start(ctx.Context)
	return runService, nil
}
