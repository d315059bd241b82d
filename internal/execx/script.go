package execx

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
)

// Call is one recorded Runner invocation.
type Call struct {
	User    string
	Command string
}

// Outcome scripts the result of a matched command.
type Outcome struct {
	Output string
	Err    error
}

// ScriptRunner replays scripted outcomes instead of touching the host
// and records every command in order. A command matches the first
// scripted key it contains as a substring; unmatched commands succeed
// with empty output.
type ScriptRunner struct {
	mu       sync.Mutex
	keys     []string
	outcomes map[string]Outcome
	binaries map[string]bool
	Calls    []Call
}

func NewScriptRunner() *ScriptRunner {
	return &ScriptRunner{
		outcomes: make(map[string]Outcome),
		binaries: make(map[string]bool),
	}
}

// Script registers an outcome for commands containing key.
func (s *ScriptRunner) Script(key string, out Outcome) *ScriptRunner {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.outcomes[key]; !dup {
		s.keys = append(s.keys, key)
	}
	s.outcomes[key] = out
	return s
}

// Fail registers a failing outcome for commands containing key.
func (s *ScriptRunner) Fail(key, output string) *ScriptRunner {
	return s.Script(key, Outcome{Output: output, Err: errors.New("exit status 1")})
}

// Binary marks a binary as present or absent for Exists.
func (s *ScriptRunner) Binary(name string, present bool) *ScriptRunner {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.binaries[name] = present
	return s
}

func (s *ScriptRunner) Run(ctx context.Context, command string, stream io.Writer) (string, error) {
	return s.record("", command, stream)
}

func (s *ScriptRunner) RunAs(ctx context.Context, user, command string, stream io.Writer) (string, error) {
	return s.record(user, command, stream)
}

func (s *ScriptRunner) Exists(binary string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.binaries[binary]
}

func (s *ScriptRunner) record(user, command string, stream io.Writer) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls = append(s.Calls, Call{User: user, Command: command})
	for _, key := range s.keys {
		if strings.Contains(command, key) {
			out := s.outcomes[key]
			if stream != nil && out.Output != "" {
				io.WriteString(stream, out.Output)
			}
			if out.Err != nil {
				return out.Output, &CommandError{Command: command, Output: out.Output, Err: out.Err}
			}
			return out.Output, nil
		}
	}
	return "", nil
}

// Ran reports whether any recorded command contains key.
func (s *ScriptRunner) Ran(key string) bool {
	return s.Index(key) >= 0
}

// Index returns the position of the first recorded command containing
// key, or -1.
func (s *ScriptRunner) Index(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.Calls {
		if strings.Contains(c.Command, key) {
			return i
		}
	}
	return -1
}

// Count returns how many recorded commands contain key.
func (s *ScriptRunner) Count(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.Calls {
		if strings.Contains(c.Command, key) {
			n++
		}
	}
	return n
}
