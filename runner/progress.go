package runner

import (
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-hwval/types"
)

// ProgressIndicator interface for UI updates
type ProgressIndicator interface {
	StartRun(totalTests int)
	StartTest(testName string)
	UpdateTest(testName string, status types.TestStatus)
	CompleteRun()
}

// noOpProgressIndicator provides a no-op implementation of ProgressIndicator
type noOpProgressIndicator struct{}

// NewNoOpProgressIndicator creates a progress indicator that does nothing
func NewNoOpProgressIndicator() ProgressIndicator {
	return &noOpProgressIndicator{}
}

func (n *noOpProgressIndicator) StartRun(totalTests int)                             {}
func (n *noOpProgressIndicator) StartTest(testName string)                           {}
func (n *noOpProgressIndicator) UpdateTest(testName string, status types.TestStatus) {}
func (n *noOpProgressIndicator) CompleteRun()                                        {}

// consoleProgressIndicator periodically logs which test case is running and
// for how long. Hardware test cases can sit in boot waits for minutes.
type consoleProgressIndicator struct {
	logger   log.Logger
	interval time.Duration
	mu       sync.RWMutex

	completedTests int
	totalTests     int
	runStartTime   time.Time
	currentTest    string
	testStartTime  time.Time

	ticker *time.Ticker
	stopCh chan struct{}
}

// NewConsoleProgressIndicator creates a progress indicator that shows updates in the console
func NewConsoleProgressIndicator(logger log.Logger, updateInterval time.Duration) ProgressIndicator {
	if updateInterval == 0 {
		updateInterval = 30 * time.Second
	}
	return &consoleProgressIndicator{
		logger:   logger,
		interval: updateInterval,
	}
}

func (c *consoleProgressIndicator) StartRun(totalTests int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.totalTests = totalTests
	c.completedTests = 0
	c.runStartTime = time.Now()
	if c.ticker == nil {
		c.ticker = time.NewTicker(c.interval)
		c.stopCh = make(chan struct{})
		go c.progressReporter(c.ticker, c.stopCh)
	}
	c.logger.Info("Starting test run", "totalTests", totalTests)
}

func (c *consoleProgressIndicator) StartTest(testName string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.currentTest = testName
	c.testStartTime = time.Now()
	c.logger.Info("Running test case", "testcase", testName, "progress", fmt.Sprintf("%d/%d", c.completedTests+1, c.totalTests))
}

func (c *consoleProgressIndicator) UpdateTest(testName string, status types.TestStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.completedTests++
	c.currentTest = ""
	c.logger.Debug("Test case completed", "testcase", testName, "status", status, "completed", c.completedTests, "total", c.totalTests)
}

func (c *consoleProgressIndicator) CompleteRun() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ticker != nil {
		c.ticker.Stop()
		close(c.stopCh)
		c.ticker = nil
	}
	duration := time.Since(c.runStartTime).Truncate(time.Second)
	c.logger.Info("Completed test run", "completed", c.completedTests, "total", c.totalTests, "duration", duration)
}

func (c *consoleProgressIndicator) progressReporter(ticker *time.Ticker, stopCh <-chan struct{}) {
	for {
		select {
		case <-ticker.C:
			c.reportProgress()
		case <-stopCh:
			return
		}
	}
}

func (c *consoleProgressIndicator) reportProgress() {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var percentComplete float64
	if c.totalTests > 0 {
		percentComplete = float64(c.completedTests) * 100.0 / float64(c.totalTests)
	}
	fields := []interface{}{
		"completed", c.completedTests,
		"total", c.totalTests,
		"percent", fmt.Sprintf("%.1f%%", percentComplete),
	}
	if c.currentTest != "" {
		fields = append(fields,
			"running", c.currentTest,
			"runningFor", time.Since(c.testStartTime).Truncate(time.Second))
	}
	c.logger.Info("Progress update", fields...)
}
