package runner

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-hwval/types"
)

type syncBuffer struct {
	mu sync.Mutex
	b  strings.Builder
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

func TestConsoleProgressIndicator(t *testing.T) {
	var buf syncBuffer
	logger := log.NewLogger(log.NewTerminalHandlerWithLevel(&buf, log.LevelInfo, false))

	p := NewConsoleProgressIndicator(logger, 5*time.Millisecond)
	p.StartRun(2)
	p.StartTest("PBA-TC-102")
	require.Eventually(t, func() bool {
		return strings.Contains(buf.String(), "running=PBA-TC-102")
	}, time.Second, 5*time.Millisecond)
	p.UpdateTest("PBA-TC-102", types.TestStatusPassed)
	p.CompleteRun()

	out := buf.String()
	assert.Contains(t, out, "Starting test run")
	assert.Contains(t, out, "progress=1/2")
	assert.Contains(t, out, "Progress update")
	assert.Contains(t, out, "Completed test run")
}

func TestNoOpProgressIndicator(t *testing.T) {
	p := NewNoOpProgressIndicator()
	p.StartRun(1)
	p.StartTest("x")
	p.UpdateTest("x", types.TestStatusFailed)
	p.CompleteRun()
}
