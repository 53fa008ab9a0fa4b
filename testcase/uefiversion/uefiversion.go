// Package uefiversion implements PBA-TC-102: boot the SUT into the BIOS
// settings menu and check the reported UEFI compliance version.
package uefiversion

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-hwval/config"
	"github.com/ethereum-optimism/infra/op-hwval/sut"
	"github.com/ethereum-optimism/infra/op-hwval/testcase"
	"github.com/ethereum-optimism/infra/op-hwval/types"
)

// Kind is the descriptor kind this package registers under
const Kind = "uefi-version"

const (
	sectionWinBoot = "WinBoot"
	sectionUEFI    = "UEFIVersion"

	keyCheckSEL        = "check_SEL"
	keyCheckLC         = "check_LC"
	keyBootWait        = "boot_wait"
	keyPostSettleWait  = "post_settle_wait"
	keyPostTimeout     = "post_timeout"
	keyExpectedVersion = "expected_uefi_version"

	DefaultBootWait       = 30 * time.Second
	DefaultPostSettleWait = 20 * time.Second
	DefaultPostTimeout    = 10 * time.Minute

	selLogFolder = "captureSEL"
	selFile      = "sel_before.log"

	uefiVersionCommand = "get BIOS.SysInformation.UefiComplianceVersion"
)

const (
	msgBadTestData       = "Unable to read valid test case data"
	msgDisplayOK         = "Succeed to display all test case data on console"
	msgConnectFailed     = "Failed to build SSH connection to SUT"
	msgConnectOK         = "Succeed to build SSH connection to SUT"
	msgPowerOnFailed     = "Failed to power on the SUT"
	msgPOSTNotReady      = "SUT did not reach POST ready"
	msgSELCaptureFailed  = "Failed to capture the SEL log"
	msgSELPreCheckFailed = "SEL pre-check -- FAIL"
	msgPowerOnOK         = "Succeed to power on SUT"
	msgBootMenuFailed    = "Unable to boot to BIOS settings menu"
	msgBootMenuOK        = "Succeed to boot to BIOS settings menu"
	msgCollectFailed     = "Fails to collect UEFI Version using racadm"
	msgVersionMismatch   = "UEFI Version is not expected"
	msgCollectOK         = "Succeed to collect UEFI version using racadm"
)

var powerOnPattern = regexp.MustCompile(`power status:\s+ON`)

// New is the catalog factory for this test case
func New(desc types.TestCaseDescriptor) (testcase.TestCase, error) {
	return &TestCase{desc: desc}, nil
}

// TestCase checks the UEFI compliance version reported by the SUT firmware
type TestCase struct {
	desc types.TestCaseDescriptor
}

// run holds the state shared between the steps of a single execution
type run struct {
	env            *testcase.Env
	log            log.Logger
	common         config.CommonData
	checkSEL       bool
	checkLC        bool
	bootWait       time.Duration
	postSettleWait time.Duration
	postTimeout    time.Duration
	session        sut.Session
}

// Run connects to the SUT, powers it on, boots it into the BIOS settings menu
// and compares the reported UEFI compliance version with expected_uefi_version.
// An error is returned only when env cannot run a test case at all.
func (tc *TestCase) Run(ctx context.Context, env *testcase.Env) (testcase.Outcome, error) {
	if env == nil || env.Config == nil || env.Connector == nil {
		return testcase.Outcome{}, fmt.Errorf("%s: incomplete environment", tc.desc.ID)
	}
	logger := env.Log
	if logger == nil {
		logger = log.NewLogger(log.DiscardHandler())
	}
	r := &run{env: env, log: logger}
	defer r.close()

	return testcase.RunSteps(ctx, r.log, []testcase.Step{
		{Name: "Display Test Config", Run: r.displayTestConfig},
		{Name: "SSH Connection", Run: r.connect},
		{Name: "Pre-Test", Run: r.preTest},
		{Name: "Boot to BIOS settings menu", Run: r.bootToBIOSMenu},
		{Name: "Collect UEFI Version using racadm", Run: r.collectUEFIVersion},
	}), nil
}

func (r *run) displayTestConfig(_ context.Context) testcase.StepOutcome {
	common, err := r.env.Config.CommonData()
	if err != nil {
		r.log.Error("Invalid common test data", "err", err)
		return testcase.Fail(msgBadTestData)
	}
	r.common = common
	r.log.Info("Common test data", common.LogValues()...)

	sec, ok := r.env.Config.Section(sectionWinBoot)
	if !ok || !sec.Has(keyCheckSEL) {
		r.log.Error("Missing test case data", "section", sectionWinBoot, "key", keyCheckSEL)
		return testcase.Fail(msgBadTestData)
	}
	if r.checkSEL, err = sec.Bool(keyCheckSEL, false); err != nil {
		r.log.Error("Invalid test case data", "err", err)
		return testcase.Fail(msgBadTestData)
	}
	if r.checkLC, err = sec.Bool(keyCheckLC, false); err != nil {
		r.log.Error("Invalid test case data", "err", err)
		return testcase.Fail(msgBadTestData)
	}
	if r.bootWait, err = sec.Duration(keyBootWait, DefaultBootWait); err != nil {
		r.log.Error("Invalid test case data", "err", err)
		return testcase.Fail(msgBadTestData)
	}
	if r.postSettleWait, err = sec.Duration(keyPostSettleWait, DefaultPostSettleWait); err != nil {
		r.log.Error("Invalid test case data", "err", err)
		return testcase.Fail(msgBadTestData)
	}
	if r.postTimeout, err = sec.Duration(keyPostTimeout, DefaultPostTimeout); err != nil {
		r.log.Error("Invalid test case data", "err", err)
		return testcase.Fail(msgBadTestData)
	}
	r.log.Info("Test case data",
		"check_SEL", r.checkSEL,
		"check_LC", r.checkLC,
		"boot_wait", r.bootWait,
		"post_settle_wait", r.postSettleWait,
		"post_timeout", r.postTimeout,
	)
	return testcase.Succeed(msgDisplayOK)
}

func (r *run) connect(ctx context.Context) testcase.StepOutcome {
	r.log.Info("Build connection to SUT", "idrac", r.common.IDRACIP)
	session, err := r.env.Connector.Connect(ctx, r.common, r.env.LogDir)
	if err != nil || session == nil {
		r.log.Error(msgConnectFailed, "err", err)
		return testcase.Fail(msgConnectFailed)
	}
	r.session = session
	return testcase.Succeed(msgConnectOK)
}

func (r *run) preTest(ctx context.Context) testcase.StepOutcome {
	status, err := r.session.PowerStatus(ctx)
	if err != nil {
		r.log.Warn("Power status query failed", "err", err)
	}
	if !powerOnPattern.MatchString(status) {
		r.log.Info("SUT is powered down, powering up")
		if err := r.session.PowerUp(ctx); err != nil {
			r.log.Error(msgPowerOnFailed, "err", err)
			return testcase.Fail(msgPowerOnFailed)
		}
		r.log.Info("Power up sent, waiting for system boot", "wait", r.bootWait)
		if err := r.env.Wait(ctx, r.bootWait); err != nil {
			return testcase.Fail("aborted: " + err.Error())
		}
		if err := r.session.WaitPOSTReady(ctx, r.postTimeout); err != nil {
			r.log.Error(msgPOSTNotReady, "err", err)
			return testcase.Fail(msgPOSTNotReady)
		}
		r.log.Info("POST exited, waiting for the system to settle", "wait", r.postSettleWait)
		if err := r.env.Wait(ctx, r.postSettleWait); err != nil {
			return testcase.Fail("aborted: " + err.Error())
		}
	} else {
		r.log.Info("SUT is powered up")
	}

	dir, err := r.session.InitLogFolder(selLogFolder)
	if err != nil {
		r.log.Error(msgSELCaptureFailed, "err", err)
		return testcase.Fail(msgSELCaptureFailed)
	}
	if err := r.session.CaptureSEL(ctx, selFile); err != nil {
		r.log.Error(msgSELCaptureFailed, "err", err)
		return testcase.Fail(msgSELCaptureFailed)
	}
	sel, err := os.ReadFile(filepath.Join(dir, selFile))
	if err != nil {
		r.log.Error(msgSELCaptureFailed, "err", err)
		return testcase.Fail(msgSELCaptureFailed)
	}

	switch {
	case !r.checkSEL:
		r.log.Info("SEL pre-check -- BYPASS")
	case !r.session.VerifySEL(string(sel)):
		r.log.Error(msgSELPreCheckFailed)
		return testcase.Fail(msgSELPreCheckFailed)
	default:
		r.log.Info("SEL pre-check -- PASS")
	}
	return testcase.Succeed(msgPowerOnOK)
}

func (r *run) bootToBIOSMenu(ctx context.Context) testcase.StepOutcome {
	if err := r.session.BootToBIOSSettingsMenu(ctx); err != nil {
		r.log.Error(msgBootMenuFailed, "err", err)
		return testcase.Fail(msgBootMenuFailed)
	}
	return testcase.Succeed(msgBootMenuOK)
}

func (r *run) collectUEFIVersion(ctx context.Context) testcase.StepOutcome {
	resp, err := r.session.Racadm(ctx, uefiVersionCommand)
	if err != nil {
		r.log.Error(msgCollectFailed, "err", err)
		return testcase.Fail(msgCollectFailed)
	}
	r.log.Info("racadm response", "command", uefiVersionCommand, "response", resp)

	sec, ok := r.env.Config.Section(sectionUEFI)
	if !ok || strings.TrimSpace(sec.String(keyExpectedVersion)) == "" {
		r.log.Error("Missing test case data", "section", sectionUEFI, "key", keyExpectedVersion)
		return testcase.Fail(msgBadTestData)
	}
	expected := strings.TrimSpace(sec.String(keyExpectedVersion))
	r.log.Info("Expected UEFI version", "UefiComplianceVersion", expected)

	if !strings.Contains(resp, expected) {
		r.log.Error(msgVersionMismatch, "expected", expected, "response", resp)
		return testcase.Fail(msgVersionMismatch)
	}
	return testcase.Succeed(msgCollectOK)
}

func (r *run) close() {
	if r.session == nil {
		return
	}
	r.log.Info("Closing SSH session")
	if err := r.session.Close(); err != nil {
		r.log.Warn("Failed to close SSH session", "err", err)
	}
}
