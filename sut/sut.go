// Package sut defines the contract between test cases and the system under test.
//
// The hardware automation behind a Session (power control, event log capture,
// firmware menu navigation, remote administration commands) is owned by the
// implementation; test cases only sequence these operations and judge their
// results.
package sut

import (
	"context"
	"time"

	"github.com/ethereum-optimism/infra/op-hwval/config"
)

// Session is an established connection to a system under test
type Session interface {
	// PowerStatus returns the raw power status response
	PowerStatus(ctx context.Context) (string, error)
	// PowerUp requests the SUT to power on. It does not wait for boot.
	PowerUp(ctx context.Context) error
	// WaitPOSTReady blocks until POST has completed or timeout elapses
	WaitPOSTReady(ctx context.Context, timeout time.Duration) error

	// InitLogFolder prepares a folder for captured logs and returns its path
	InitLogFolder(name string) (string, error)
	// CaptureSEL writes the system event log to filename inside the log folder
	CaptureSEL(ctx context.Context, filename string) error
	// VerifySEL reports whether the captured event log is free of critical events
	VerifySEL(sel string) bool

	// BootToBIOSSettingsMenu drives the SUT into the firmware settings menu
	BootToBIOSSettingsMenu(ctx context.Context) error
	// Racadm runs a remote administration command and returns its output
	Racadm(ctx context.Context, command string) (string, error)

	Close() error
}

// Connector establishes sessions to a SUT
type Connector interface {
	Connect(ctx context.Context, cd config.CommonData, logDir string) (Session, error)
}

// ConnectorFunc adapts a function to the Connector interface
type ConnectorFunc func(ctx context.Context, cd config.CommonData, logDir string) (Session, error)

// Connect implements Connector
func (f ConnectorFunc) Connect(ctx context.Context, cd config.CommonData, logDir string) (Session, error) {
	return f(ctx, cd, logDir)
}
