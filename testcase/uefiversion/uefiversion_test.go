package uefiversion

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum-optimism/optimism/op-service/testlog"
	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-hwval/config"
	"github.com/ethereum-optimism/infra/op-hwval/sut"
	"github.com/ethereum-optimism/infra/op-hwval/testcase"
	"github.com/ethereum-optimism/infra/op-hwval/types"
)

const baseConfig = `
[CommonData]
idrac_ip = 10.0.0.5
os_ip = 10.0.0.6
`

type fakeSession struct {
	dir string

	powerStatus    string
	powerUpErr     error
	postErr        error
	captureErr     error
	sel            string
	selOK          bool
	bootErr        error
	racadmResponse string
	racadmErr      error

	calls  []string
	closed int
}

var _ sut.Session = (*fakeSession)(nil)

func (f *fakeSession) PowerStatus(context.Context) (string, error) {
	f.calls = append(f.calls, "powerstatus")
	return f.powerStatus, nil
}

func (f *fakeSession) PowerUp(context.Context) error {
	f.calls = append(f.calls, "powerup")
	return f.powerUpErr
}

func (f *fakeSession) WaitPOSTReady(context.Context, time.Duration) error {
	f.calls = append(f.calls, "waitpost")
	return f.postErr
}

func (f *fakeSession) InitLogFolder(name string) (string, error) {
	f.calls = append(f.calls, "initlog")
	f.dir = filepath.Join(f.dir, name)
	return f.dir, os.MkdirAll(f.dir, 0755)
}

func (f *fakeSession) CaptureSEL(_ context.Context, filename string) error {
	f.calls = append(f.calls, "capturesel")
	if f.captureErr != nil {
		return f.captureErr
	}
	return os.WriteFile(filepath.Join(f.dir, filename), []byte(f.sel), 0644)
}

func (f *fakeSession) VerifySEL(string) bool {
	f.calls = append(f.calls, "verifysel")
	return f.selOK
}

func (f *fakeSession) BootToBIOSSettingsMenu(context.Context) error {
	f.calls = append(f.calls, "bootmenu")
	return f.bootErr
}

func (f *fakeSession) Racadm(_ context.Context, command string) (string, error) {
	f.calls = append(f.calls, "racadm "+command)
	return f.racadmResponse, f.racadmErr
}

func (f *fakeSession) Close() error {
	f.closed++
	return nil
}

func healthySession(t *testing.T) *fakeSession {
	return &fakeSession{
		dir:            t.TempDir(),
		powerStatus:    "Server power status: ON",
		sel:            "Severity: Ok",
		selOK:          true,
		racadmResponse: "UefiComplianceVersion = 1.2.3",
	}
}

func newEnv(t *testing.T, iniBody string, session *fakeSession, connectErr error) (*testcase.Env, *[]time.Duration) {
	path := filepath.Join(t.TempDir(), "config.ini")
	require.NoError(t, os.WriteFile(path, []byte(baseConfig+iniBody), 0644))
	cfg, err := config.Load(path)
	require.NoError(t, err)

	var waits []time.Duration
	env := &testcase.Env{
		Descriptor: types.TestCaseDescriptor{ID: "PBA-TC-102", Kind: Kind},
		Config:     cfg,
		Connector: sut.ConnectorFunc(func(context.Context, config.CommonData, string) (sut.Session, error) {
			if connectErr != nil {
				return nil, connectErr
			}
			return session, nil
		}),
		Log:    testlog.Logger(t, log.LevelInfo),
		LogDir: t.TempDir(),
		Sleep: func(_ context.Context, d time.Duration) error {
			waits = append(waits, d)
			return nil
		},
	}
	return env, &waits
}

const validTestData = `
[WinBoot]
check_SEL = true

[UEFIVersion]
expected_uefi_version = 1.2.3
`

func runCase(t *testing.T, env *testcase.Env) testcase.Outcome {
	tc, err := New(env.Descriptor)
	require.NoError(t, err)
	out, err := tc.Run(context.Background(), env)
	require.NoError(t, err)
	return out
}

func TestUEFIVersionPasses(t *testing.T) {
	session := healthySession(t)
	env, waits := newEnv(t, validTestData, session, nil)

	out := runCase(t, env)
	require.True(t, out.Passed(), out.Message())
	require.Len(t, out.Steps, 5)
	assert.Equal(t, msgCollectOK, out.Message())
	assert.Equal(t, "Display Test Config", out.Steps[0].Name)
	assert.Equal(t, msgDisplayOK, out.Steps[0].Message)
	assert.Equal(t, msgConnectOK, out.Steps[1].Message)
	assert.Equal(t, msgPowerOnOK, out.Steps[2].Message)
	assert.Equal(t, msgBootMenuOK, out.Steps[3].Message)

	assert.Equal(t, []string{
		"powerstatus", "initlog", "capturesel", "verifysel", "bootmenu",
		"racadm " + uefiVersionCommand,
	}, session.calls)
	assert.Empty(t, *waits, "no boot waits when already powered on")
	assert.Equal(t, 1, session.closed)
}

func TestUEFIVersionMismatch(t *testing.T) {
	session := healthySession(t)
	env, _ := newEnv(t, `
[WinBoot]
check_SEL = true

[UEFIVersion]
expected_uefi_version = 9.9.9
`, session, nil)

	out := runCase(t, env)
	assert.False(t, out.Passed())
	assert.Equal(t, msgVersionMismatch, out.Message())
	failed := out.Steps[len(out.Steps)-1]
	assert.Equal(t, "Collect UEFI Version using racadm", failed.Name)
	assert.Equal(t, 1, session.closed)
}

func TestUEFIVersionPowersUpWhenOff(t *testing.T) {
	session := healthySession(t)
	session.powerStatus = "Server power status: OFF"
	env, waits := newEnv(t, `
[WinBoot]
check_SEL = true
boot_wait = 5s
post_settle_wait = 2s

[UEFIVersion]
expected_uefi_version = 1.2.3
`, session, nil)

	out := runCase(t, env)
	require.True(t, out.Passed(), out.Message())
	assert.Equal(t, []string{"powerstatus", "powerup", "waitpost", "initlog"}, session.calls[:4])
	assert.Equal(t, []time.Duration{5 * time.Second, 2 * time.Second}, *waits)
}

func TestUEFIVersionDefaultWaits(t *testing.T) {
	session := healthySession(t)
	session.powerStatus = "Server power status: OFF"
	env, waits := newEnv(t, validTestData, session, nil)

	out := runCase(t, env)
	require.True(t, out.Passed(), out.Message())
	assert.Equal(t, []time.Duration{DefaultBootWait, DefaultPostSettleWait}, *waits)
}

func TestUEFIVersionFailures(t *testing.T) {
	tests := []struct {
		name       string
		testData   string
		setup      func(*fakeSession)
		connectErr error
		wantMsg    string
		wantSteps  int
		wantClosed int
	}{
		{
			name:     "missing check_SEL",
			testData: "[WinBoot]\nboot_wait = 1s\n[UEFIVersion]\nexpected_uefi_version = 1.2.3\n",
			wantMsg:  msgBadTestData, wantSteps: 1, wantClosed: 0,
		},
		{
			name:     "invalid check_LC",
			testData: "[WinBoot]\ncheck_SEL = true\ncheck_LC = maybe\n[UEFIVersion]\nexpected_uefi_version = 1.2.3\n",
			wantMsg:  msgBadTestData, wantSteps: 1, wantClosed: 0,
		},
		{
			name:     "missing WinBoot section",
			testData: "[UEFIVersion]\nexpected_uefi_version = 1.2.3\n",
			wantMsg:  msgBadTestData, wantSteps: 1, wantClosed: 0,
		},
		{
			name:       "connect failure",
			testData:   validTestData,
			connectErr: errors.New("connection refused"),
			wantMsg:    msgConnectFailed, wantSteps: 2, wantClosed: 0,
		},
		{
			name:     "power up failure",
			testData: validTestData,
			setup: func(f *fakeSession) {
				f.powerStatus = "Server power status: OFF"
				f.powerUpErr = errors.New("denied")
			},
			wantMsg: msgPowerOnFailed, wantSteps: 3, wantClosed: 1,
		},
		{
			name:     "POST never completes",
			testData: validTestData,
			setup: func(f *fakeSession) {
				f.powerStatus = "Server power status: OFF"
				f.postErr = errors.New("timeout")
			},
			wantMsg: msgPOSTNotReady, wantSteps: 3, wantClosed: 1,
		},
		{
			name:     "SEL capture failure",
			testData: validTestData,
			setup:    func(f *fakeSession) { f.captureErr = errors.New("getsel failed") },
			wantMsg:  msgSELCaptureFailed, wantSteps: 3, wantClosed: 1,
		},
		{
			name:     "SEL pre-check failure",
			testData: validTestData,
			setup:    func(f *fakeSession) { f.selOK = false },
			wantMsg:  msgSELPreCheckFailed, wantSteps: 3, wantClosed: 1,
		},
		{
			name:     "boot menu failure",
			testData: validTestData,
			setup:    func(f *fakeSession) { f.bootErr = errors.New("powercycle failed") },
			wantMsg:  msgBootMenuFailed, wantSteps: 4, wantClosed: 1,
		},
		{
			name:     "racadm failure",
			testData: validTestData,
			setup:    func(f *fakeSession) { f.racadmErr = errors.New("exit status 1") },
			wantMsg:  msgCollectFailed, wantSteps: 5, wantClosed: 1,
		},
		{
			name:     "missing expected version",
			testData: "[WinBoot]\ncheck_SEL = false\n",
			wantMsg:  msgBadTestData, wantSteps: 5, wantClosed: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := healthySession(t)
			if tt.setup != nil {
				tt.setup(session)
			}
			env, _ := newEnv(t, tt.testData, session, tt.connectErr)

			out := runCase(t, env)
			assert.False(t, out.Passed())
			assert.Equal(t, tt.wantMsg, out.Message())
			assert.Len(t, out.Steps, tt.wantSteps)
			assert.Equal(t, tt.wantClosed, session.closed)
		})
	}
}

func TestUEFIVersionLogsTestCaseData(t *testing.T) {
	logger, logs := testlog.CaptureLogger(t, log.LevelInfo)
	env, _ := newEnv(t, "[WinBoot]\ncheck_SEL = true\ncheck_LC = true\n[UEFIVersion]\nexpected_uefi_version = 1.2.3\n", healthySession(t), nil)
	env.Log = logger.New("testcase", env.Descriptor.ID)

	out := runCase(t, env)
	require.True(t, out.Passed(), out.Message())

	rec := logs.FindLog(testlog.NewMessageFilter("Test case data"))
	require.NotNil(t, rec)
	assert.Equal(t, true, rec.AttrValue("check_SEL"))
	assert.Equal(t, true, rec.AttrValue("check_LC"))

	for _, r := range logs.FindLogs() {
		n := 0
		r.Attrs(func(a slog.Attr) bool {
			if a.Key == "testcase" {
				n++
			}
			return true
		})
		assert.Equal(t, 1, n, "record %q carries testcase once", r.Message)
	}
}

func TestUEFIVersionCheckLCDefaultsOff(t *testing.T) {
	logger, logs := testlog.CaptureLogger(t, log.LevelInfo)
	env, _ := newEnv(t, validTestData, healthySession(t), nil)
	env.Log = logger

	out := runCase(t, env)
	require.True(t, out.Passed(), out.Message())
	rec := logs.FindLog(testlog.NewMessageFilter("Test case data"))
	require.NotNil(t, rec)
	assert.Equal(t, false, rec.AttrValue("check_LC"))
}

func TestUEFIVersionSELCheckBypassed(t *testing.T) {
	session := healthySession(t)
	session.selOK = false
	env, _ := newEnv(t, "[WinBoot]\ncheck_SEL = false\n[UEFIVersion]\nexpected_uefi_version = 1.2.3\n", session, nil)

	out := runCase(t, env)
	require.True(t, out.Passed(), out.Message())
	assert.NotContains(t, session.calls, "verifysel")
}

func TestUEFIVersionIncompleteEnv(t *testing.T) {
	tc, err := New(types.TestCaseDescriptor{ID: "PBA-TC-102"})
	require.NoError(t, err)
	_, err = tc.Run(context.Background(), &testcase.Env{})
	require.Error(t, err)
}
