// Package sandbox runs Python programs and checks their syntax with a local interpreter.
package sandbox

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"time"

	"github.com/pkg/errors"

	"github.com/jhoelito123/PyStart/core"
	"github.com/jhoelito123/PyStart/core/coderun"
)

// waitDelay bounds how long a killed program may keep its output pipes open.
const waitDelay = 500 * time.Millisecond

// Python runs programs with the configured interpreter from a temporary file.
type Python struct {
	bin string
}

var _ coderun.Sandbox = (*Python)(nil)

func NewPython(conf *core.Config) *Python {
	bin := conf.Sandbox.PythonBin
	if bin == "" {
		bin = "python3"
	}
	return &Python{bin: bin}
}

func (p *Python) Execute(ctx context.Context, src string, timeout time.Duration) (coderun.Execution, error) {
	var out coderun.Execution

	f, err := os.CreateTemp("", "tmp*.py")
	if err != nil {
		return out, errors.Wrap(err, "creating program file")
	}
	out.Path = f.Name()
	defer os.Remove(out.Path)

	if _, err = f.WriteString(src); err != nil {
		f.Close()
		return out, errors.Wrap(err, "writing program file")
	}
	if err = f.Close(); err != nil {
		return out, errors.Wrap(err, "closing program file")
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, p.bin, out.Path)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay
	cmd.Env = append(os.Environ(), "PYTHONIOENCODING=utf-8", "PYTHONDONTWRITEBYTECODE=1")

	err = cmd.Run()
	out.Stdout = stdout.String()
	out.Stderr = stderr.String()

	if runCtx.Err() == context.DeadlineExceeded {
		out.TimedOut = true
		return out, nil
	}
	if err != nil {
		var exitErr *exec.ExitError
		switch {
		case errors.As(err, &exitErr):
			out.ExitCode = exitErr.ExitCode()
		case errors.Is(err, exec.ErrNotFound):
			return out, coderun.ErrInterpreterNotFound
		default:
			return out, errors.Wrap(err, "running program")
		}
	}
	return out, nil
}
