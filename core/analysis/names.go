package analysis

import (
	"regexp"
	"strings"
)

var (
	keywords = toSet(
		"False", "None", "True", "and", "as", "assert", "async", "await", "break", "class",
		"continue", "def", "del", "elif", "else", "except", "finally", "for", "from", "global",
		"if", "import", "in", "is", "lambda", "nonlocal", "not", "or", "pass", "raise",
		"return", "try", "while", "with", "yield", "match", "case",
	)

	builtins = toSet(
		"abs", "aiter", "all", "anext", "any", "ascii", "bin", "bool", "breakpoint", "bytearray",
		"bytes", "callable", "chr", "classmethod", "compile", "complex", "delattr", "dict", "dir",
		"divmod", "enumerate", "eval", "exec", "exit", "filter", "float", "format", "frozenset",
		"getattr", "globals", "hasattr", "hash", "help", "hex", "id", "input", "int", "isinstance",
		"issubclass", "iter", "len", "list", "locals", "map", "max", "memoryview", "min", "next",
		"object", "oct", "open", "ord", "pow", "print", "property", "quit", "range", "repr",
		"reversed", "round", "set", "setattr", "slice", "sorted", "staticmethod", "str", "sum",
		"super", "tuple", "type", "vars", "zip", "self", "cls",
		"__import__", "__name__", "__file__", "__doc__", "__main__", "__init__",
		"NotImplemented", "Ellipsis",
		"BaseException", "Exception", "ArithmeticError", "AssertionError", "AttributeError",
		"EOFError", "FileExistsError", "FileNotFoundError", "FloatingPointError", "ImportError",
		"IndentationError", "IndexError", "IOError", "KeyError", "KeyboardInterrupt", "LookupError",
		"MemoryError", "ModuleNotFoundError", "NameError", "NotImplementedError", "OSError",
		"OverflowError", "PermissionError", "RecursionError", "RuntimeError", "StopIteration",
		"SyntaxError", "SystemExit", "TabError", "TimeoutError", "TypeError", "UnboundLocalError",
		"UnicodeError", "ValueError", "Warning", "ZeroDivisionError",
	)

	stringPrefixes = toSet("r", "u", "b", "f", "br", "rb", "fr", "rf")

	defRegex     = regexp.MustCompile(`\bdef\s+([A-Za-z_]\w*)\s*\(`)
	lambdaRegex  = regexp.MustCompile(`\blambda\b([^:]*):`)
	classRegex   = regexp.MustCompile(`\bclass\s+([A-Za-z_]\w*)`)
	forRegex     = regexp.MustCompile(`\bfor\s+(.+?)\s+in\b`)
	asRegex      = regexp.MustCompile(`\bas\s+([A-Za-z_]\w*)`)
	walrusRegex  = regexp.MustCompile(`([A-Za-z_]\w*)\s*:=`)
	scopeRegex   = regexp.MustCompile(`^\s*(?:global|nonlocal)\s+(.+)$`)
	importRegex  = regexp.MustCompile(`^\s*import\s+(.+)$`)
	fromRegex    = regexp.MustCompile(`^\s*from\s+\S+\s+import\s+(.+)$`)
	bareRegex    = regexp.MustCompile(`^[A-Za-z_]\w*$`)
	nameRegex    = regexp.MustCompile(`^\s*\**\s*([A-Za-z_]\w*)`)
	importsStart = regexp.MustCompile(`^\s*(?:import|from)\s`)
)

func toSet(words ...string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

func isReserved(name string) bool {
	return keywords[name] || builtins[name]
}

// collector gathers the identifiers a program defines, wherever they are in the text.
type collector struct {
	known map[string]bool
}

func (c *collector) add(name string) {
	if name != "" && !keywords[name] {
		c.known[name] = true
	}
}

func (c *collector) addAll(names []string) {
	for _, n := range names {
		c.add(n)
	}
}

// collect walks the sanitized program. importLines receives the lines that are part of an import statement.
func collect(lines []string) (known map[string]bool, importLines map[int]bool) {
	c := &collector{known: make(map[string]bool)}
	importLines = make(map[int]bool)
	text := strings.Join(lines, "\n")

	// function names and parameters, the leading self/cls excluded
	for _, m := range defRegex.FindAllStringSubmatchIndex(text, -1) {
		c.add(text[m[2]:m[3]])
		end := matchingParen(text, m[1])
		if end < 0 {
			continue
		}
		for i, p := range splitTopLevel(text[m[1]:end], ',') {
			name := paramName(p)
			if i == 0 && (name == "self" || name == "cls") {
				continue
			}
			c.add(name)
		}
	}
	for _, m := range lambdaRegex.FindAllStringSubmatch(text, -1) {
		for _, p := range splitTopLevel(m[1], ',') {
			c.add(paramName(p))
		}
	}
	for _, m := range classRegex.FindAllStringSubmatch(text, -1) {
		c.add(m[1])
	}

	depth := 0
	inImport := false
	for no, line := range lines {
		startDepth := depth
		_, depth = scanIdents(line, depth)

		if inImport || importsStart.MatchString(line) && startDepth == 0 {
			importLines[no] = true
			c.addAll(importedNames(line))
			inImport = depth > 0
			continue
		}

		for _, m := range forRegex.FindAllStringSubmatch(line, -1) {
			c.addAll(targetNames(m[1]))
		}
		for _, m := range asRegex.FindAllStringSubmatch(line, -1) {
			c.add(m[1])
		}
		for _, m := range walrusRegex.FindAllStringSubmatch(line, -1) {
			c.add(m[1])
		}
		if m := scopeRegex.FindStringSubmatch(line); m != nil {
			for _, n := range strings.Split(m[1], ",") {
				c.add(strings.TrimSpace(n))
			}
		}
		if startDepth == 0 {
			for _, stmt := range splitTopLevel(line, ';') {
				c.addAll(assignedNames(stmt))
			}
		}
	}
	return c.known, importLines
}

// paramName extracts the name of a parameter declaration such as `*args`, `x: int = 1` or `**kw`.
func paramName(p string) string {
	m := nameRegex.FindStringSubmatch(p)
	if m == nil {
		return ""
	}
	return m[1]
}

// importedNames returns the names an import line binds: aliases, or the first component of dotted modules.
func importedNames(line string) []string {
	var spec string
	dotted := false
	if m := fromRegex.FindStringSubmatch(line); m != nil {
		spec = m[1]
	} else if m := importRegex.FindStringSubmatch(line); m != nil {
		spec = m[1]
		dotted = true
	} else {
		spec = line // continuation of a parenthesized import
	}
	spec = strings.NewReplacer("(", " ", ")", " ", "\\", " ").Replace(spec)

	var names []string
	for _, part := range strings.Split(spec, ",") {
		fields := strings.Fields(part)
		switch {
		case len(fields) == 0 || fields[0] == "*":
		case len(fields) >= 3 && fields[1] == "as":
			names = append(names, fields[2])
		case dotted:
			names = append(names, strings.SplitN(fields[0], ".", 2)[0])
		default:
			names = append(names, fields[0])
		}
	}
	return names
}

// assignedNames returns the names bound by the assignment statement stmt, if it is one.
// Chained (a = b = 1), tuple (a, b = ...), augmented (a += 1) and annotated (a: int = 1)
// assignments are handled; attribute and subscript targets bind nothing.
func assignedNames(stmt string) []string {
	var (
		names  []string
		depth  int
		start  int
		annot  bool
		target = func(seg string) {
			if colon := topLevelIndex(seg, ':'); colon >= 0 {
				fields := strings.Fields(seg)
				if len(fields) > 0 && keywords[fields[0]] {
					seg = seg[strings.LastIndex(seg, ":")+1:] // one-line compound statement
				} else {
					seg = seg[:colon]
				}
			}
			names = append(names, targetNames(strings.TrimRight(seg, "+-*/%&|^@<>"))...)
		}
	)
	for i := 0; i < len(stmt); i++ {
		switch c := stmt[i]; c {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			if depth > 0 {
				depth--
			}
		case '=':
			if depth > 0 {
				continue
			}
			next := byte(0)
			if i+1 < len(stmt) {
				next = stmt[i+1]
			}
			prev := byte(0)
			if i > 0 {
				prev = stmt[i-1]
			}
			if next == '=' {
				i++ // ==
				continue
			}
			shift := i > 1 && (stmt[i-2:i] == ">>" || stmt[i-2:i] == "<<")
			if (prev == '!' || prev == '<' || prev == '>' || prev == ':') && !shift {
				continue // comparison or walrus
			}
			target(stmt[start:i])
			start = i + 1
			annot = true
		}
	}
	if !annot {
		return nil
	}
	return names
}

func topLevelIndex(s string, c byte) int {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			if depth > 0 {
				depth--
			}
		case c:
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// targetNames returns the plain names of an assignment target list. Names used inside calls or
// subscripts, or as attribute bases, are not targets.
func targetNames(seg string) []string {
	var (
		names []string
		stack []bool // true for grouping brackets, false for calls and subscripts
	)
	grouping := func() bool {
		for _, g := range stack {
			if !g {
				return false
			}
		}
		return true
	}
	for i := 0; i < len(seg); {
		c := seg[i]
		switch {
		case c == '(' || c == '[' || c == '{':
			prev := prevNonSpace(seg, i)
			stack = append(stack, !(isIdentChar(prev) || prev == ')' || prev == ']'))
			i++
		case c == ')' || c == ']' || c == '}':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			i++
		case isIdentStart(c):
			j := i + 1
			for j < len(seg) && isIdentChar(seg[j]) {
				j++
			}
			name := seg[i:j]
			next := restAfter(seg, j)
			attrBase := strings.HasPrefix(next, ".") || strings.HasPrefix(next, "[") || strings.HasPrefix(next, "(")
			if grouping() && prevNonSpace(seg, i) != '.' && !attrBase && !keywords[name] {
				names = append(names, name)
			}
			i = j
		case isDigit(c):
			j := i + 1
			for j < len(seg) && (isIdentChar(seg[j]) || seg[j] == '.') {
				j++
			}
			i = j
		default:
			i++
		}
	}
	return names
}
