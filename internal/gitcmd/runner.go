// Package gitcmd runs the local git binary as sequential blocking
// subprocesses behind a small runner abstraction, so call sequences can be
// tested with a scripted fake.
package gitcmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
)

// Output captures one finished git invocation.
type Output struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Runner executes one git command in a working directory. A non-zero exit
// status is reported through Output.ExitCode, not the error; the error is
// reserved for failures to run the binary at all.
type Runner interface {
	Run(ctx context.Context, dir string, args ...string) (Output, error)
}

// ExecRunner shells out to the git binary on PATH.
type ExecRunner struct{}

// NewExecRunner returns a runner backed by the local git binary.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run executes `git args...` in dir. Git is prevented from prompting for
// credentials interactively.
func (r *ExecRunner) Run(ctx context.Context, dir string, args ...string) (Output, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	out := Output{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			out.ExitCode = exitErr.ExitCode()
			return out, nil
		}
		out.ExitCode = -1
		return out, fmt.Errorf("run git %v: %w", args, err)
	}
	return out, nil
}
