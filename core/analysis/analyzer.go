package analysis

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jhoelito123/PyStart/core"
)

// Mode selects how the Python toolchain checks a program.
type Mode string

const (
	ModeParse   Mode = "parse"   // ast.parse
	ModeCompile Mode = "compile" // compile(src, "<string>", "exec")
)

const (
	TypeSyntaxError   = "SyntaxError"
	TypeNameError     = "NameError"
	TypeInvalidSyntax = "InvalidSyntax"
)

// SyntaxError is the first error reported by the Python toolchain. Line and Column are 1-based, 0 when unknown.
type SyntaxError struct {
	Type   string `json:"type"`
	Msg    string `json:"msg"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// SyntaxChecker checks a program with the real Python parser or compiler.
// A nil *SyntaxError means the program is valid; an error means the check could not run.
type SyntaxChecker interface {
	Check(ctx context.Context, src string, mode Mode) (*SyntaxError, error)
}

type Finding struct {
	Type       string `json:"type"`
	Message    string `json:"message"`
	Line       int    `json:"line"`
	Column     int    `json:"column,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

type Report struct {
	Errors             []Finding `json:"errors"`
	Warnings           []Finding `json:"warnings"`
	HasIssues          bool      `json:"has_issues"`
	DefinedIdentifiers []string  `json:"defined_identifiers"`
}

type AnalyzeRequest struct {
	Code string `json:"code" validate:"required"`
}

// Analyzer produces advisory findings about a Python program: real syntax errors and names that are
// probably undefined. It has no notion of scope or execution order.
type Analyzer struct {
	checker SyntaxChecker
	logger  core.Logger
}

// NewAnalyzer returns an Analyzer. checker may be nil, syntax checks are skipped then.
func NewAnalyzer(checker SyntaxChecker, logger core.Logger) *Analyzer {
	return &Analyzer{checker: checker, logger: logger}
}

func (a *Analyzer) check(ctx context.Context, src string, mode Mode) (*SyntaxError, bool) {
	if a.checker == nil {
		return nil, false
	}
	serr, err := a.checker.Check(ctx, src, mode)
	if err != nil {
		a.logger.Warn(fmt.Sprintf("%s check skipped: %v", mode, err), err)
		return nil, false
	}
	return serr, true
}

func syntaxFinding(serr *SyntaxError) Finding {
	typ := serr.Type
	if typ == "" {
		typ = TypeSyntaxError
	}
	return Finding{
		Type:    typ,
		Message: fmt.Sprintf("syntax error: %s", serr.Msg),
		Line:    serr.Line,
		Column:  serr.Column,
	}
}

// Analyze runs every stage over src. It never fails: stages that cannot run are skipped.
func (a *Analyzer) Analyze(ctx context.Context, src string) Report {
	report := Report{Errors: []Finding{}, Warnings: []Finding{}}
	errorLines := make(map[int]bool)

	// 1. parser
	checked := false
	if serr, ok := a.check(ctx, src, ModeParse); ok {
		checked = true
		if serr != nil {
			report.Errors = append(report.Errors, syntaxFinding(serr))
			errorLines[serr.Line] = true
		}
	}

	// 2. names the program defines
	lines := sanitize(src)
	known, importLines := collect(lines)

	// 3. possibly undefined names, 4. stray words
	depth := 0
	for i, line := range lines {
		no := i + 1
		idents, next := scanIdents(line, depth)
		startDepth := depth
		depth = next
		if importLines[i] || errorLines[no] || strings.TrimSpace(line) == "" {
			continue
		}

		if word := strings.TrimSpace(line); startDepth == 0 && depth == 0 && bareRegex.MatchString(word) && !keywords[word] {
			report.Errors = append(report.Errors, Finding{
				Type:       TypeInvalidSyntax,
				Message:    fmt.Sprintf("'%s' on its own is not a valid statement", word),
				Line:       no,
				Column:     strings.Index(line, word) + 1,
				Suggestion: "remove the stray text or turn it into a comment",
			})
			errorLines[no] = true
			continue
		}

		seen := make(map[string]bool)
		for _, id := range idents {
			if seen[id.name] || known[id.name] || isReserved(id.name) || !usedAsName(line, id) {
				continue
			}
			seen[id.name] = true
			report.Warnings = append(report.Warnings, Finding{
				Type:       TypeNameError,
				Message:    fmt.Sprintf("name '%s' is not defined", id.name),
				Line:       no,
				Column:     id.col + 1,
				Suggestion: suggestionFor(id.name, known),
			})
		}
	}

	// 5. compiler
	if checked {
		if serr, ok := a.check(ctx, src, ModeCompile); ok && serr != nil && !errorLines[serr.Line] {
			report.Errors = append(report.Errors, syntaxFinding(serr))
		}
	}

	sort.SliceStable(report.Errors, func(i, j int) bool { return report.Errors[i].Line < report.Errors[j].Line })
	report.HasIssues = len(report.Errors) > 0 || len(report.Warnings) > 0
	report.DefinedIdentifiers = make([]string, 0, len(known))
	for name := range known {
		report.DefinedIdentifiers = append(report.DefinedIdentifiers, name)
	}
	sort.Strings(report.DefinedIdentifiers)
	return report
}

// usedAsName reports whether the identifier is a name lookup, as opposed to an attribute,
// a keyword argument or a string prefix.
func usedAsName(line string, id ident) bool {
	if prevNonSpace(line, id.col) == '.' {
		return false
	}
	if id.end() < len(line) && (line[id.end()] == '"' || line[id.end()] == '\'') && stringPrefixes[strings.ToLower(id.name)] {
		return false
	}
	rest := restAfter(line, id.end())
	if id.depth > 0 && strings.HasPrefix(rest, "=") && !strings.HasPrefix(rest, "==") {
		return false
	}
	return true
}
