// Package health runs named readiness checks concurrently and aggregates
// them into a report. The pipeline uses it as a preflight before a run.
package health

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"sync"
	"time"
)

type Status string

const (
	StatusUp      Status = "up"
	StatusDown    Status = "down"
	StatusSkipped Status = "skipped"
)

// Check probes one dependency or input.
type Check func(ctx context.Context) Result

type Result struct {
	Status  Status        `json:"status"`
	Message string        `json:"message,omitempty"`
	Latency time.Duration `json:"latency"`
}

// Component is a named result in a report.
type Component struct {
	Name string `json:"name"`
	Result
}

// Report lists components in name order. Status is down when any component
// is down.
type Report struct {
	Status     Status      `json:"status"`
	Components []Component `json:"components"`
}

// Failed returns the components that are down.
func (r Report) Failed() []Component {
	var out []Component
	for _, c := range r.Components {
		if c.Status == StatusDown {
			out = append(out, c)
		}
	}
	return out
}

type Checker struct {
	mu      sync.RWMutex
	checks  map[string]Check
	timeout time.Duration
}

// NewChecker returns an empty checker whose checks each get timeout.
func NewChecker(timeout time.Duration) *Checker {
	return &Checker{checks: make(map[string]Check), timeout: timeout}
}

func (c *Checker) Register(name string, check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// Run executes every registered check concurrently.
func (c *Checker) Run(ctx context.Context) Report {
	c.mu.RLock()
	checks := make(map[string]Check, len(c.checks))
	for name, check := range c.checks {
		checks[name] = check
	}
	c.mu.RUnlock()

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	report := Report{Status: StatusUp, Components: make([]Component, 0, len(checks))}
	for name, check := range checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()
			start := time.Now()
			result := check(cctx)
			result.Latency = time.Since(start).Round(time.Millisecond)
			mu.Lock()
			report.Components = append(report.Components, Component{Name: name, Result: result})
			mu.Unlock()
		}()
	}
	wg.Wait()

	sort.Slice(report.Components, func(i, j int) bool {
		return report.Components[i].Name < report.Components[j].Name
	})
	if len(report.Failed()) > 0 {
		report.Status = StatusDown
	}
	return report
}

// Up and Down build results.
func Up(format string, args ...any) Result {
	return Result{Status: StatusUp, Message: fmt.Sprintf(format, args...)}
}

func Down(err error) Result {
	return Result{Status: StatusDown, Message: err.Error()}
}

func Skipped(reason string) Result {
	return Result{Status: StatusSkipped, Message: reason}
}

// FileCheck reports whether path is an existing regular file.
func FileCheck(path string) Check {
	return func(context.Context) Result {
		info, err := os.Stat(path)
		if err != nil {
			return Down(statError(path, err))
		}
		if info.IsDir() {
			return Down(fmt.Errorf("%s is a directory", path))
		}
		return Up("%s (%d bytes)", path, info.Size())
	}
}

// DirCheck reports whether path is an existing directory.
func DirCheck(path string) Check {
	return func(context.Context) Result {
		info, err := os.Stat(path)
		if err != nil {
			return Down(statError(path, err))
		}
		if !info.IsDir() {
			return Down(fmt.Errorf("%s is not a directory", path))
		}
		return Up("%s", path)
	}
}

func statError(path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s does not exist", path)
	}
	return err
}
