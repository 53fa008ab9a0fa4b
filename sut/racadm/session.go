// Package racadm implements sut.Session by issuing racadm commands over SSH
// to an iDRAC-style management controller.
package racadm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum-optimism/optimism/op-service/retry"
	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-hwval/sut"
)

const (
	// DefaultPollInterval is the POST status poll interval used when none is configured
	DefaultPollInterval = 10 * time.Second

	cmdPowerStatus    = "serveraction powerstatus"
	cmdPowerUp        = "serveraction powerup"
	cmdPowerCycle     = "serveraction powercycle"
	cmdServicesStatus = "getremoteservicesstatus"
	cmdGetSEL         = "getsel"
	cmdBootDeviceBIOS = "set iDRAC.ServerBoot.FirstBootDevice BIOS"
	cmdBootOnce       = "set iDRAC.ServerBoot.BootOnce Enabled"
)

var errPOSTNotReady = errors.New("POST not complete")

// commander runs a single racadm command line and returns its raw output
type commander interface {
	Run(ctx context.Context, command string) (string, error)
	Close() error
}

var _ sut.Session = (*Session)(nil)

// Session is a racadm-backed sut.Session
type Session struct {
	cmd          commander
	log          log.Logger
	logRoot      string
	logFolder    string
	pollInterval time.Duration
}

func newSession(cmd commander, logger log.Logger, logRoot string, pollInterval time.Duration) *Session {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &Session{
		cmd:          cmd,
		log:          logger,
		logRoot:      logRoot,
		pollInterval: pollInterval,
	}
}

func (s *Session) run(ctx context.Context, command string) (string, error) {
	s.log.Debug("racadm", "command", command)
	out, err := s.cmd.Run(ctx, "racadm "+command)
	out = cleanOutput(out)
	if err != nil {
		return out, fmt.Errorf("racadm %s: %w", command, err)
	}
	return out, nil
}

// PowerStatus returns the cleaned "serveraction powerstatus" output
func (s *Session) PowerStatus(ctx context.Context) (string, error) {
	return s.run(ctx, cmdPowerStatus)
}

// PowerUp issues "serveraction powerup" without waiting for the host to boot
func (s *Session) PowerUp(ctx context.Context) error {
	_, err := s.run(ctx, cmdPowerUp)
	return err
}

// WaitPOSTReady polls the remote services status at a fixed interval until
// the controller reports the host is out of POST.
func (s *Session) WaitPOSTReady(ctx context.Context, timeout time.Duration) error {
	attempts := int(timeout/s.pollInterval) + 1
	err := retry.Do0(ctx, attempts, retry.Fixed(s.pollInterval), func() error {
		out, err := s.run(ctx, cmdServicesStatus)
		if err != nil {
			return err
		}
		if !postComplete(out) {
			s.log.Debug("Waiting for POST", "status", out)
			return errPOSTNotReady
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("waiting for POST ready (timeout %s): %w", timeout, err)
	}
	return nil
}

// InitLogFolder creates name under the session log root and makes it the
// destination for CaptureSEL.
func (s *Session) InitLogFolder(name string) (string, error) {
	dir := filepath.Join(s.logRoot, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create log folder %s: %w", dir, err)
	}
	s.logFolder = dir
	return dir, nil
}

// CaptureSEL saves the current system event log as filename in the log folder
func (s *Session) CaptureSEL(ctx context.Context, filename string) error {
	if s.logFolder == "" {
		return errors.New("log folder not initialized")
	}
	out, err := s.run(ctx, cmdGetSEL)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.logFolder, filename), []byte(out+"\n"), 0644)
}

// VerifySEL reports whether sel is free of critical entries
func (s *Session) VerifySEL(sel string) bool {
	return !hasCriticalEvents(sel)
}

// BootToBIOSSettingsMenu arms a one-time boot into the BIOS setup and power cycles the host
func (s *Session) BootToBIOSSettingsMenu(ctx context.Context) error {
	for _, c := range []string{cmdBootDeviceBIOS, cmdBootOnce, cmdPowerCycle} {
		if _, err := s.run(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

// Racadm runs an arbitrary racadm subcommand such as
// "get BIOS.SysInformation.UefiComplianceVersion"
func (s *Session) Racadm(ctx context.Context, command string) (string, error) {
	return s.run(ctx, command)
}

// Close tears down the underlying SSH connection
func (s *Session) Close() error {
	return s.cmd.Close()
}
