package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoelito123/PyStart/testutil"
)

type fakeChecker struct {
	results map[Mode]*SyntaxError
	err     error
	calls   []Mode
}

func (c *fakeChecker) Check(_ context.Context, _ string, mode Mode) (*SyntaxError, error) {
	c.calls = append(c.calls, mode)
	if c.err != nil {
		return nil, c.err
	}
	return c.results[mode], nil
}

func warnedNames(r Report) []string {
	names := make([]string, 0, len(r.Warnings))
	for _, w := range r.Warnings {
		name := w.Message[len("name '"):]
		names = append(names, name[:len(name)-len("' is not defined")])
	}
	return names
}

func TestAnalyzer_Names(t *testing.T) {
	tests := []struct {
		name      string
		src       string
		wantNames []string
	}{
		{name: "defined vs undefined", src: "x = 1\nprint(y)", wantNames: []string{"y"}},
		{name: "methods", src: "nums = [1, 2]\nnums.append(3)\nprint(nums.count(3))", wantNames: []string{}},
		{name: "keyword arguments", src: "print(\"a\", end=\"\")\nprint(1, sep=\"-\")", wantNames: []string{}},
		{name: "string contents", src: "print(\"hello world\")\nprint('foo bar')", wantNames: []string{}},
		{name: "string prefixes", src: "print(f\"hola\", rb'x')", wantNames: []string{}},
		{name: "comments", src: "# foo bar\nx = 1  # baz\nprint(x)", wantNames: []string{}},
		{name: "function parameters", src: "def add(a, b=2):\n    return a + b\nprint(add(1, 2))", wantNames: []string{}},
		{name: "methods and self", src: "class Dog:\n    def bark(self, times):\n        return self.name * times\nDog().bark(2)", wantNames: []string{}},
		{name: "for targets", src: "for i, v in enumerate([1]):\n    print(i, v)", wantNames: []string{}},
		{name: "comprehension", src: "sq = [n * n for n in range(3)]", wantNames: []string{}},
		{name: "tuple assignment", src: "a, b = 1, 2\nprint(a + b)", wantNames: []string{}},
		{name: "augmented and annotated", src: "total: int = 0\ntotal += 1\ncount = 0\ncount >>= 1", wantNames: []string{}},
		{name: "chained assignment", src: "a = b = 0\nprint(a, b)", wantNames: []string{}},
		{name: "subscript target", src: "data = {}\ndata[key] = 1", wantNames: []string{"key"}},
		{name: "comparison is not assignment", src: "x = 1\nif x == y:\n    pass", wantNames: []string{"y"}},
		{name: "one line compound", src: "if True: z = 1\nprint(z)", wantNames: []string{}},
		{name: "imports", src: "import math\nimport os.path\nfrom json import dumps as d\nprint(math.pi, os.sep, d)", wantNames: []string{}},
		{name: "parenthesized import", src: "from os import (\n    path,\n    sep,\n)\nprint(path, sep)", wantNames: []string{}},
		{name: "with as", src: "with open(\"f\") as fh:\n    print(fh.read())", wantNames: []string{}},
		{name: "except as", src: "try:\n    pass\nexcept ValueError as exc:\n    print(exc)", wantNames: []string{}},
		{name: "lambda", src: "sq = lambda n, m=1: n * m\nprint(sq(2))", wantNames: []string{}},
		{name: "walrus", src: "if (n := len(\"ab\")) > 1:\n    print(n)", wantNames: []string{}},
		{name: "global", src: "def f():\n    global counter\n    counter = 1", wantNames: []string{}},
		{name: "numbers", src: "print(1e5 + 0x1f + 3.14j)", wantNames: []string{}},
		{name: "one warning per line and name", src: "print(w, w)\nprint(w)", wantNames: []string{"w", "w"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAnalyzer(nil, testutil.NewLogger())
			got := a.Analyze(context.Background(), tt.src)
			assert.Equal(t, tt.wantNames, warnedNames(got))
			assert.Equal(t, len(tt.wantNames) > 0 || len(got.Errors) > 0, got.HasIssues)
		})
	}
}

func TestAnalyzer_Warning(t *testing.T) {
	a := NewAnalyzer(nil, testutil.NewLogger())

	got := a.Analyze(context.Background(), "x = 1\nprint(y)")
	require.Len(t, got.Warnings, 1)
	assert.Equal(t, Finding{
		Type:       TypeNameError,
		Message:    "name 'y' is not defined",
		Line:       2,
		Column:     7,
		Suggestion: "check that the name is defined before it is used",
	}, got.Warnings[0])
	assert.Empty(t, got.Errors)
	assert.True(t, got.HasIssues)
	assert.Equal(t, []string{"x"}, got.DefinedIdentifiers)

	got = a.Analyze(context.Background(), "counter = 0\nprint(countr)")
	require.Len(t, got.Warnings, 1)
	assert.Equal(t, "did you mean 'counter'?", got.Warnings[0].Suggestion)

	got = a.Analyze(context.Background(), "prnt(1)")
	require.Len(t, got.Warnings, 1)
	assert.Equal(t, "did you mean 'print'?", got.Warnings[0].Suggestion)
}

func TestAnalyzer_DefinedIdentifiersSorted(t *testing.T) {
	a := NewAnalyzer(nil, testutil.NewLogger())
	got := a.Analyze(context.Background(), "b = 2\na = 1\ndef c(d):\n    pass")
	assert.Equal(t, []string{"a", "b", "c", "d"}, got.DefinedIdentifiers)
	assert.False(t, got.HasIssues)
	assert.NotNil(t, got.Errors)
	assert.NotNil(t, got.Warnings)
}

func TestAnalyzer_BareWord(t *testing.T) {
	a := NewAnalyzer(nil, testutil.NewLogger())

	got := a.Analyze(context.Background(), "x = 1\nhello\nprint(x)\npass")
	require.Len(t, got.Errors, 1)
	assert.Equal(t, TypeInvalidSyntax, got.Errors[0].Type)
	assert.Equal(t, 2, got.Errors[0].Line)
	assert.Empty(t, got.Warnings)
}

func TestAnalyzer_SyntaxStages(t *testing.T) {
	t.Run("parse error line is skipped", func(t *testing.T) {
		checker := &fakeChecker{results: map[Mode]*SyntaxError{
			ModeParse:   {Type: "SyntaxError", Msg: "invalid syntax", Line: 2, Column: 8},
			ModeCompile: {Type: "SyntaxError", Msg: "invalid syntax", Line: 2, Column: 8},
		}}
		a := NewAnalyzer(checker, testutil.NewLogger())

		got := a.Analyze(context.Background(), "x = 1\nif x = undefined_thing\n    pass")
		require.Len(t, got.Errors, 1)
		assert.Equal(t, "syntax error: invalid syntax", got.Errors[0].Message)
		assert.Equal(t, 2, got.Errors[0].Line)
		assert.Equal(t, 8, got.Errors[0].Column)
		assert.Empty(t, got.Warnings)
		assert.Equal(t, []Mode{ModeParse, ModeCompile}, checker.calls)
	})

	t.Run("compile only error", func(t *testing.T) {
		checker := &fakeChecker{results: map[Mode]*SyntaxError{
			ModeCompile: {Type: "SyntaxError", Msg: "'return' outside function", Line: 3, Column: 1},
		}}
		a := NewAnalyzer(checker, testutil.NewLogger())

		got := a.Analyze(context.Background(), "x = 1\nstray\nreturn x")
		require.Len(t, got.Errors, 2)
		assert.Equal(t, TypeInvalidSyntax, got.Errors[0].Type)
		assert.Equal(t, 2, got.Errors[0].Line)
		assert.Equal(t, TypeSyntaxError, got.Errors[1].Type)
		assert.Equal(t, 3, got.Errors[1].Line)
	})

	t.Run("checker unavailable", func(t *testing.T) {
		logger := testutil.NewLogger()
		checker := &fakeChecker{err: errors.New("python3: executable file not found")}
		a := NewAnalyzer(checker, logger)

		got := a.Analyze(context.Background(), "x = 1\nprint(x)")
		assert.Empty(t, got.Errors)
		assert.False(t, got.HasIssues)
		assert.Equal(t, 1, logger.Count("WARN"))
		assert.Equal(t, []Mode{ModeParse}, checker.calls)
	})
}
