package testcase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-hwval/types"
)

type nopTestCase struct{}

func (nopTestCase) Run(context.Context, *Env) (Outcome, error) { return Outcome{}, nil }

func nopFactory(types.TestCaseDescriptor) (TestCase, error) { return nopTestCase{}, nil }

func TestCatalogRegister(t *testing.T) {
	c := NewCatalog()
	require.NoError(t, c.Register("b", nopFactory))
	require.NoError(t, c.Register("a", nopFactory))
	assert.Error(t, c.Register("a", nopFactory), "duplicate kind")
	assert.Error(t, c.Register("", nopFactory))
	assert.Error(t, c.Register("c", nil))
	assert.Equal(t, []string{"a", "b"}, c.Kinds())
}

func TestCatalogLoad(t *testing.T) {
	c := NewCatalog()
	require.NoError(t, c.Register("nop", nopFactory))
	require.NoError(t, c.Register("broken", func(types.TestCaseDescriptor) (TestCase, error) {
		return nil, errors.New("missing resource")
	}))
	require.NoError(t, c.Register("panics", func(types.TestCaseDescriptor) (TestCase, error) {
		panic("bad init")
	}))
	require.NoError(t, c.Register("nil", func(types.TestCaseDescriptor) (TestCase, error) {
		return nil, nil
	}))

	tests := []struct {
		name    string
		desc    types.TestCaseDescriptor
		wantErr string
	}{
		{name: "known kind", desc: types.TestCaseDescriptor{ID: "TC-1", Kind: "nop"}},
		{name: "unknown kind", desc: types.TestCaseDescriptor{ID: "TC-2", Kind: "nope"}, wantErr: "unknown test case kind"},
		{name: "missing id", desc: types.TestCaseDescriptor{Kind: "nop", Dir: "/tests/x"}, wantErr: "has no id"},
		{name: "descriptor error", desc: types.TestCaseDescriptor{ID: "TC-3", LoadErr: errors.New("yaml: bad")}, wantErr: "yaml: bad"},
		{name: "factory error", desc: types.TestCaseDescriptor{ID: "TC-4", Kind: "broken"}, wantErr: "missing resource"},
		{name: "factory panic", desc: types.TestCaseDescriptor{ID: "TC-5", Kind: "panics"}, wantErr: "panic: bad init"},
		{name: "factory returns nil", desc: types.TestCaseDescriptor{ID: "TC-6", Kind: "nil"}, wantErr: "factory returned nil"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc, err := c.Load(tt.desc)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Nil(t, tc)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, tc)
		})
	}
}
