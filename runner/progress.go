package runner

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ethereum-optimism/infra/op-harness/types"
	"github.com/ethereum/go-ethereum/log"
)

// ProgressIndicator interface for UI updates
type ProgressIndicator interface {
	StartPhase(phase Phase, total int)
	StartTest(title string)
	UpdateTest(title string, status types.TestStatus)
	CompletePhase(phase Phase)
}

// noOpProgressIndicator provides a no-op implementation of ProgressIndicator
type noOpProgressIndicator struct{}

// NewNoOpProgressIndicator creates a progress indicator that does nothing
func NewNoOpProgressIndicator() ProgressIndicator {
	return &noOpProgressIndicator{}
}

func (n *noOpProgressIndicator) StartPhase(phase Phase, total int)                 {}
func (n *noOpProgressIndicator) StartTest(title string)                            {}
func (n *noOpProgressIndicator) UpdateTest(title string, status types.TestStatus) {}
func (n *noOpProgressIndicator) CompletePhase(phase Phase)                         {}

// ConsoleProgressIndicator logs phase transitions and, on an interval,
// the tests that are still running
type ConsoleProgressIndicator struct {
	logger log.Logger
	ticker *time.Ticker
	stopCh chan struct{}
	once   sync.Once
	mu     sync.RWMutex

	currentPhase   Phase
	completedTests int
	totalTests     int
	phaseStartTime time.Time

	// test title -> start times; titles are not unique
	runningTests map[string][]time.Time
}

// NewConsoleProgressIndicator creates a progress indicator that shows updates in the console
func NewConsoleProgressIndicator(logger log.Logger, updateInterval time.Duration) *ConsoleProgressIndicator {
	if updateInterval == 0 {
		updateInterval = 30 * time.Second
	}

	indicator := &ConsoleProgressIndicator{
		logger:       logger,
		ticker:       time.NewTicker(updateInterval),
		stopCh:       make(chan struct{}),
		runningTests: make(map[string][]time.Time),
	}

	go indicator.progressReporter()

	return indicator
}

func (c *ConsoleProgressIndicator) StartPhase(phase Phase, total int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.currentPhase = phase
	c.phaseStartTime = time.Now()
	if phase == PhaseTests {
		c.totalTests = total
		c.completedTests = 0
		c.runningTests = make(map[string][]time.Time)
	}

	c.logger.Info("Starting phase", "phase", phase, "entries", total)
}

// StartTest tracks when a test starts running
func (c *ConsoleProgressIndicator) StartTest(title string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.runningTests[title] = append(c.runningTests[title], time.Now())
	c.logger.Debug("Test started", "test", title, "runningTests", c.numRunning())
}

func (c *ConsoleProgressIndicator) UpdateTest(title string, status types.TestStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// skipped tests complete without starting
	if starts := c.runningTests[title]; len(starts) > 1 {
		c.runningTests[title] = starts[1:]
	} else {
		delete(c.runningTests, title)
	}
	c.completedTests++

	c.logger.Debug("Test completed", "test", title, "status", status,
		"completed", c.completedTests, "total", c.totalTests, "runningTests", c.numRunning())
}

func (c *ConsoleProgressIndicator) CompletePhase(phase Phase) {
	c.mu.Lock()
	defer c.mu.Unlock()

	duration := time.Since(c.phaseStartTime).Truncate(time.Millisecond)
	c.logger.Info("Completed phase", "phase", phase, "duration", duration)
}

// Completed returns the number of tests reported as finished in the current run
func (c *ConsoleProgressIndicator) Completed() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.completedTests
}

// Running returns the number of tests started but not yet completed
func (c *ConsoleProgressIndicator) Running() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.numRunning()
}

func (c *ConsoleProgressIndicator) numRunning() int {
	n := 0
	for _, starts := range c.runningTests {
		n += len(starts)
	}
	return n
}

// progressReporter runs in a goroutine and periodically reports progress
func (c *ConsoleProgressIndicator) progressReporter() {
	for {
		select {
		case <-c.ticker.C:
			c.reportProgress()
		case <-c.stopCh:
			return
		}
	}
}

func (c *ConsoleProgressIndicator) reportProgress() {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.currentPhase != PhaseTests {
		return
	}

	var percentComplete float64
	if c.totalTests > 0 {
		percentComplete = float64(c.completedTests) * 100.0 / float64(c.totalTests)
	}

	c.logger.Info("Progress update",
		"completed", c.completedTests,
		"total", c.totalTests,
		"percent", fmt.Sprintf("%.1f%%", percentComplete),
		"numRunning", c.numRunning(),
		"longestRunning", formatRunningTests(c.runningTests, 3))
}

// Stop stops the periodic reporter. It is safe to call more than once.
func (c *ConsoleProgressIndicator) Stop() {
	c.once.Do(func() {
		c.ticker.Stop()
		close(c.stopCh)
	})
}

// formatRunningTests lists up to maxShow running tests, longest-running first
func formatRunningTests(runningTests map[string][]time.Time, maxShow int) string {
	if len(runningTests) == 0 {
		return ""
	}

	type runningTest struct {
		name     string
		duration time.Duration
	}

	var running []runningTest
	now := time.Now()
	for name, starts := range runningTests {
		for _, startTime := range starts {
			running = append(running, runningTest{
				name:     name,
				duration: now.Sub(startTime),
			})
		}
	}

	sort.Slice(running, func(i, j int) bool {
		return running[i].duration > running[j].duration
	})

	var runningStrs []string
	for i, test := range running {
		if i >= maxShow {
			break
		}
		runningStrs = append(runningStrs, fmt.Sprintf("%s (%v)", test.name, test.duration.Truncate(time.Second)))
	}

	if len(running) > maxShow {
		runningStrs = append(runningStrs, fmt.Sprintf("+%d more", len(running)-maxShow))
	}

	return strings.Join(runningStrs, ", ")
}
