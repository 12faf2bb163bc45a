// Package coderun runs student programs in a sandboxed interpreter.
package coderun

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/jhoelito123/PyStart/core"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusTimeout = "timeout"

	LanguagePython = "python"
)

var (
	SupportedLanguages = []string{LanguagePython}

	// ErrInterpreterNotFound is returned by a Sandbox whose interpreter is not installed.
	ErrInterpreterNotFound = errors.New("interpreter not found")

	tmpFrameRegex = regexp.MustCompile(`File ".*?tmp[a-zA-Z0-9_]+\.py", line (\d+), in <module>`)
	tmpFileRegex  = regexp.MustCompile(`File ".*?tmp[a-zA-Z0-9_]+\.py"`)
)

type Request struct {
	Code     string `json:"code" validate:"required"`
	Language string `json:"language" validate:"required,max=50"`
}

func (r *Request) Validate(validate *validator.Validate) error {
	r.Language = core.CleanString(r.Language, true)
	if err := validate.Struct(r); err != nil {
		return err
	}
	if r.Language != LanguagePython {
		return core.NewValidationError(nil, core.FieldError{
			Field: "language",
			Error: fmt.Sprintf("unsupported language, supported: %s", strings.Join(SupportedLanguages, ", ")),
		})
	}
	return nil
}

type Result struct {
	Output string `json:"output"`
	Status string `json:"status"`
}

// Execution is what a sandbox observed while running a program.
type Execution struct {
	Stdout   string
	Stderr   string
	ExitCode int
	TimedOut bool
	Path     string // file the program was run from
}

// Sandbox runs a program with a time limit.
// Path must be set on the returned Execution even when an error is returned after the file was created.
type Sandbox interface {
	Execute(ctx context.Context, src string, timeout time.Duration) (Execution, error)
}

type Service struct {
	sandbox  Sandbox
	validate *validator.Validate
	timeout  time.Duration
	logger   core.Logger
}

func NewService(sandbox Sandbox, validate *validator.Validate, timeout time.Duration, logger core.Logger) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(sandbox, "sandbox"),
		vala.IsNotNil(validate, "validate"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()

	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Service{sandbox: sandbox, validate: validate, timeout: timeout, logger: logger}
}

// Run executes req.Code. Only validation errors are returned: execution problems
// are reported in the result with StatusError.
func (svc *Service) Run(ctx context.Context, req Request) (Result, error) {
	if err := req.Validate(svc.validate); err != nil {
		return Result{}, err
	}

	out, err := svc.sandbox.Execute(ctx, req.Code, svc.timeout)
	if err != nil {
		if errors.Is(err, ErrInterpreterNotFound) {
			return Result{Output: "Error: the Python interpreter was not found.", Status: StatusError}, nil
		}
		svc.logger.Error(fmt.Sprintf("executing code: %v", err), err)
		return Result{Output: "Error: unexpected failure while running the code.", Status: StatusError}, nil
	}

	if out.TimedOut {
		return Result{
			Output: fmt.Sprintf("Error: the execution exceeded the time limit (%d seconds).", int(svc.timeout.Seconds())),
			Status: StatusTimeout,
		}, nil
	}

	output := out.Stdout
	if out.Stderr != "" {
		output += "\n" + out.Stderr
	}
	status := StatusSuccess
	if out.ExitCode != 0 {
		status = StatusError
	}
	return Result{Output: strings.TrimSpace(scrubPaths(output, out.Path)), Status: status}, nil
}

// scrubPaths hides the temporary file the program ran from, tracebacks show <string> instead.
func scrubPaths(output, path string) string {
	if path != "" {
		output = strings.ReplaceAll(output, `File "`+path+`"`, `File "<string>"`)
	}
	output = tmpFrameRegex.ReplaceAllString(output, `File "<string>", line $1, in <module>`)
	return tmpFileRegex.ReplaceAllString(output, `File "<string>"`)
}
