package testutil

import (
	"context"
	"sync"

	"negma/internal/negma"
)

// Call is one command seen by a FakeExecutor.
type Call struct {
	Command negma.Command
	Capture bool
}

// FakeExecutor records commands and returns scripted results instead of
// running anything. Results are looked up by the full command line first,
// then by the program name; unscripted commands succeed with no output.
type FakeExecutor struct {
	mu      sync.Mutex
	calls   []Call
	results map[string]negma.Result
	errs    map[string]error
}

func NewFakeExecutor() *FakeExecutor {
	return &FakeExecutor{
		results: make(map[string]negma.Result),
		errs:    make(map[string]error),
	}
}

// SetResult scripts the result for a command line or program name.
func (f *FakeExecutor) SetResult(key string, res negma.Result) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[key] = res
}

// SetStdout scripts a successful run printing stdout.
func (f *FakeExecutor) SetStdout(key, stdout string) {
	f.SetResult(key, negma.Result{Stdout: stdout})
}

// SetError makes the command fail to start.
func (f *FakeExecutor) SetError(key string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[key] = err
}

func (f *FakeExecutor) Run(_ context.Context, cmd negma.Command, opts negma.RunOptions) (negma.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, Call{Command: cmd, Capture: opts.Capture})

	for _, key := range []string{cmd.String(), cmd.Name} {
		if err, ok := f.errs[key]; ok {
			return negma.Result{ExitCode: -1}, err
		}
		if res, ok := f.results[key]; ok {
			return res, nil
		}
	}
	return negma.Result{}, nil
}

// Calls returns every recorded call in order.
func (f *FakeExecutor) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// Commands returns the command lines of every recorded call in order.
func (f *FakeExecutor) Commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.Command.String()
	}
	return out
}
