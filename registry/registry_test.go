package registry

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/ethereum-optimism/optimism/op-service/testlog"
	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-hwval/types"
)

func writeDescriptor(t *testing.T, dir, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, types.DescriptorFile), []byte(body), 0644))
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	writeDescriptor(t, filepath.Join(root, "bios", "PBA-TC-102"), `
id: PBA-TC-102
name: UEFI version check
kind: uefi-version
config: testcase.ini
`)
	writeDescriptor(t, filepath.Join(root, "bios", "PBA-TC-101"), `
id: PBA-TC-101
kind: uefi-version
suite: firmware
`)
	writeDescriptor(t, filepath.Join(root, "common__", "PBA-TC-900"), "id: PBA-TC-900\nkind: uefi-version\n")
	writeDescriptor(t, filepath.Join(root, "bios", "helpers__"), "id: helper\nkind: uefi-version\n")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty", "nested"), 0755))

	found, err := Discover(root, DefaultReservedSuffix, testlog.Logger(t, log.LevelInfo))
	require.NoError(t, err)
	require.Len(t, found, 2)

	assert.Equal(t, "PBA-TC-101", found[0].ID, "lexical path order")
	assert.Equal(t, "firmware", found[0].Suite, "explicit suite wins")

	tc := found[1]
	assert.Equal(t, "PBA-TC-102", tc.ID)
	assert.Equal(t, "UEFI version check", tc.Name)
	assert.Equal(t, "uefi-version", tc.Kind)
	assert.Equal(t, "bios", tc.Suite)
	assert.Equal(t, "testcase.ini", tc.Config)
	assert.Equal(t, filepath.Join(root, "bios", "PBA-TC-102"), tc.Dir)
	assert.NoError(t, tc.LoadErr)
}

func TestDiscoverCustomReservedSuffix(t *testing.T) {
	root := t.TempDir()
	writeDescriptor(t, filepath.Join(root, "a__"), "id: A\nkind: k\n")
	writeDescriptor(t, filepath.Join(root, "b.skip"), "id: B\nkind: k\n")

	found, err := Discover(root, ".skip", nil)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "A", found[0].ID)
}

func TestDiscoverMalformedDescriptor(t *testing.T) {
	root := t.TempDir()
	writeDescriptor(t, filepath.Join(root, "bios", "PBA-TC-103"), "id: [unterminated\n")
	writeDescriptor(t, filepath.Join(root, "bios", "PBA-TC-104"), "id: PBA-TC-104\n")

	found, err := Discover(root, DefaultReservedSuffix, nil)
	require.NoError(t, err)
	require.Len(t, found, 2)

	assert.Equal(t, "PBA-TC-103", found[0].ID, "id falls back to the directory name")
	assert.Equal(t, "bios", found[0].Suite)
	require.Error(t, found[0].LoadErr)
	assert.Contains(t, found[0].LoadErr.Error(), "parsing")

	require.Error(t, found[1].LoadErr)
	assert.Contains(t, found[1].LoadErr.Error(), "kind is required")
}

func TestDiscoverRootErrors(t *testing.T) {
	_, err := Discover(filepath.Join(t.TempDir(), "missing"), DefaultReservedSuffix, nil)
	require.Error(t, err)

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0644))
	_, err = Discover(file, DefaultReservedSuffix, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestDiscoverSkipsUnreadableDirectories(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced")
	}
	root := t.TempDir()
	writeDescriptor(t, filepath.Join(root, "ok", "TC-1"), "id: TC-1\nkind: k\n")
	locked := filepath.Join(root, "locked")
	writeDescriptor(t, filepath.Join(locked, "TC-2"), "id: TC-2\nkind: k\n")
	require.NoError(t, os.Chmod(locked, 0000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0755) })

	found, err := Discover(root, DefaultReservedSuffix, nil)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "TC-1", found[0].ID)
}

func TestDiscoverEmptyTree(t *testing.T) {
	found, err := Discover(t.TempDir(), DefaultReservedSuffix, nil)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestRegistry(t *testing.T) {
	root := t.TempDir()
	writeDescriptor(t, filepath.Join(root, "bios", "TC-1"), "id: TC-1\nkind: k\n")
	writeDescriptor(t, filepath.Join(root, "memory", "TC-2"), "id: TC-2\nkind: k\n")

	t.Run("source loading", func(t *testing.T) {
		tests := []struct {
			name    string
			cfg     Config
			wantErr bool
		}{
			{name: "valid test directory", cfg: Config{TestDir: root}},
			{name: "missing test directory", cfg: Config{TestDir: filepath.Join(root, "nope")}, wantErr: true},
			{name: "empty test directory", cfg: Config{}, wantErr: true},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				tt.cfg.Log = testlog.Logger(t, log.LevelInfo)
				r, err := NewRegistry(tt.cfg)
				if tt.wantErr {
					require.Error(t, err)
					return
				}
				require.NoError(t, err)
				assert.Equal(t, DefaultReservedSuffix, r.config.ReservedSuffix)
			})
		}
	})

	t.Run("lookups", func(t *testing.T) {
		r, err := NewRegistry(Config{TestDir: root, Log: testlog.Logger(t, log.LevelInfo)})
		require.NoError(t, err)
		tcs := r.GetTestCases()
		require.Len(t, tcs, 2)
		assert.Equal(t, "TC-1", tcs[0].ID)
		assert.Equal(t, "bios", tcs[0].Suite)
		assert.Equal(t, "TC-2", tcs[1].ID)
		assert.Equal(t, "memory", tcs[1].Suite)
	})
}
