package analysis

import "strings"

// sanitize blanks out comments and the contents of string literals, keeping quotes, line
// breaks and column positions, so that only code remains to be tokenized.
func sanitize(src string) []string {
	var (
		out   = []byte(src)
		quote string // delimiter of the open string literal
	)
	for i := 0; i < len(src); i++ {
		c := src[i]
		if quote != "" {
			switch {
			case c == '\\' && i+1 < len(src):
				out[i] = ' '
				if src[i+1] != '\n' {
					out[i+1] = ' '
				}
				i++
			case strings.HasPrefix(src[i:], quote):
				i += len(quote) - 1
				quote = ""
			case c == '\n':
				if len(quote) == 1 { // unterminated literal ends with the line
					quote = ""
				}
			default:
				out[i] = ' '
			}
			continue
		}

		switch c {
		case '#':
			for i < len(src) && src[i] != '\n' {
				out[i] = ' '
				i++
			}
			i-- // keep the line break
		case '"', '\'':
			quote = string(c)
			if strings.HasPrefix(src[i:], strings.Repeat(quote, 3)) {
				quote = strings.Repeat(quote, 3)
			}
			i += len(quote) - 1
		}
	}
	return strings.Split(string(out), "\n")
}

type ident struct {
	name  string
	col   int // byte offset in the line
	depth int // bracket nesting at the identifier
}

func (id ident) end() int { return id.col + len(id.name) }

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentChar(c byte) bool { return isIdentStart(c) || isDigit(c) }

// scanIdents returns the identifiers of a sanitized line, the line starting at bracket nesting depth.
// Numeric literals (1e5, 0x1f, 3.14j) are skipped whole.
func scanIdents(line string, depth int) ([]ident, int) {
	var idents []ident
	for i := 0; i < len(line); {
		c := line[i]
		switch {
		case c == '(' || c == '[' || c == '{':
			depth++
			i++
		case c == ')' || c == ']' || c == '}':
			if depth > 0 {
				depth--
			}
			i++
		case isIdentStart(c):
			j := i + 1
			for j < len(line) && isIdentChar(line[j]) {
				j++
			}
			idents = append(idents, ident{name: line[i:j], col: i, depth: depth})
			i = j
		case isDigit(c):
			j := i + 1
			for j < len(line) && (isIdentChar(line[j]) || line[j] == '.') {
				j++
			}
			i = j
		default:
			i++
		}
	}
	return idents, depth
}

// prevNonSpace returns the last non blank byte before col, or 0.
func prevNonSpace(line string, col int) byte {
	for i := col - 1; i >= 0; i-- {
		if line[i] != ' ' && line[i] != '\t' {
			return line[i]
		}
	}
	return 0
}

// restAfter returns the line after offset, leading blanks removed.
func restAfter(line string, offset int) string {
	if offset >= len(line) {
		return ""
	}
	return strings.TrimLeft(line[offset:], " \t")
}

// splitTopLevel splits s on sep where sep is not nested in brackets.
func splitTopLevel(s string, sep byte) []string {
	var (
		parts []string
		depth int
		start int
	)
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			if depth > 0 {
				depth--
			}
		case sep:
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

// matchingParen returns the index of the bracket closing the one opened just before start, or -1.
func matchingParen(s string, start int) int {
	depth := 1
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
