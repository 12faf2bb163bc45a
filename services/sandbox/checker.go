package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/jhoelito123/PyStart/core"
	"github.com/jhoelito123/PyStart/core/analysis"
)

const checkTimeout = 5 * time.Second

// checkScript reads a program on stdin and prints the first syntax error as JSON, or null.
const checkScript = `import ast, json, sys
src = sys.stdin.read()
try:
    if sys.argv[1] == "compile":
        compile(src, "<string>", "exec")
    else:
        ast.parse(src)
    print("null")
except SyntaxError as e:
    print(json.dumps({"type": type(e).__name__, "msg": e.msg or "", "line": e.lineno or 0, "column": e.offset or 0}))
`

// Checker checks programs with the interpreter's own parser and compiler.
type Checker struct {
	bin string
}

var _ analysis.SyntaxChecker = (*Checker)(nil)

func NewChecker(conf *core.Config) *Checker {
	bin := conf.Sandbox.PythonBin
	if bin == "" {
		bin = "python3"
	}
	return &Checker{bin: bin}
}

func (c *Checker) Check(ctx context.Context, src string, mode analysis.Mode) (*analysis.SyntaxError, error) {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.bin, "-c", checkScript, string(mode))
	cmd.Stdin = strings.NewReader(src)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay
	if err := cmd.Run(); err != nil {
		return nil, errors.Wrapf(err, "running %s check: %s", mode, strings.TrimSpace(stderr.String()))
	}
	return parseCheckOutput(stdout.Bytes())
}

func parseCheckOutput(out []byte) (*analysis.SyntaxError, error) {
	var serr *analysis.SyntaxError
	if err := json.Unmarshal(bytes.TrimSpace(out), &serr); err != nil {
		return nil, errors.Wrap(err, "decoding check output")
	}
	return serr, nil
}
