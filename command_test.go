package setup

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCall struct {
	Dir  string
	Name string
	Args []string
}

// fakeCommander records every invocation and answers through an optional
// script function. Without a script every command succeeds with empty
// output.
type fakeCommander struct {
	mu     sync.Mutex
	calls  []fakeCall
	script func(name string, args []string) (CmdResult, error)
}

func (f *fakeCommander) Run(ctx context.Context, dir string, name string, args ...string) (CmdResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, fakeCall{Dir: dir, Name: name, Args: args})
	f.mu.Unlock()
	if f.script != nil {
		return f.script(name, args)
	}
	return CmdResult{}, nil
}

func (f *fakeCommander) callLines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	lines := make([]string, 0, len(f.calls))
	for _, call := range f.calls {
		line := call.Name
		for _, arg := range call.Args {
			line += " " + arg
		}
		lines = append(lines, line)
	}
	return lines
}

func TestSystemCommanderCapturesOutput(t *testing.T) {
	cmd := NewCommander()
	result, err := cmd.Run(context.Background(), "", "sh", "-c", "echo hello")
	require.NoError(t, err)
	assert.True(t, result.OK())
	assert.Equal(t, "hello", result.Output())
}

func TestSystemCommanderReportsExitCode(t *testing.T) {
	cmd := NewCommander()
	result, err := cmd.Run(context.Background(), "", "sh", "-c", "echo oops >&2; exit 3")
	require.NoError(t, err)
	assert.False(t, result.OK())
	assert.Equal(t, 3, result.ExitCode)
	assert.Contains(t, result.Stderr, "oops")
}

func TestSystemCommanderMissingBinary(t *testing.T) {
	cmd := NewCommander()
	_, err := cmd.Run(context.Background(), "", "definitely-not-a-command-xyz")
	assert.Error(t, err)
}
