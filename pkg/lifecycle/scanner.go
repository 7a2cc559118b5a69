package lifecycle

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Sumatoshi-tech/esmport/pkg/textutil"
)

// Sentinel scan errors.
var (
	// ErrUnbalanced indicates a closing delimiter without a matching opener,
	// or input that ends inside an open delimiter.
	ErrUnbalanced = errors.New("unbalanced delimiters")
	// ErrNotDelimiter indicates MatchDelimiter was called on a byte that does
	// not open a block.
	ErrNotDelimiter = errors.New("not an opening delimiter")
)

// Function is one top-level named function declaration.
type Function struct {
	Name string

	// Start and End delimit the whole declaration, including a leading
	// `async` keyword.
	Start int
	End   int

	// NameStart is the offset of the function name.
	NameStart int

	// ParamsStart and BodyStart are the offsets of the opening `(` and `{`.
	ParamsStart int
	BodyStart   int

	Async     bool
	Generator bool
}

// closers maps each opening delimiter to its closing counterpart.
var closers = map[byte]byte{'{': '}', '(': ')', '[': ']'}

// expressionWords precede a `function` keyword that starts an expression
// rather than a declaration.
var expressionWords = map[string]bool{
	"return": true, "export": true, "default": true, "new": true,
	"typeof": true, "void": true, "await": true, "yield": true,
	"in": true, "of": true, "case": true, "delete": true,
}

// expressionPunct are the significant bytes after which `function` begins an
// expression.
const expressionPunct = "=(,:?!&|+-*/%<>~^[{"

// ScanFunctions returns every named function declared at nesting depth zero
// of src, in source order. Delimiters are tracked on an explicit stack over
// braces, parentheses and brackets; strings, template literals, comments and
// regular expression literals are skipped.
func ScanFunctions(src string) ([]Function, error) {
	var (
		functions []Function
		stack     []byte
		lastSig   byte
		lastWord  string
		asyncDecl bool
	)

	for pos := 0; pos < len(src); {
		next, skipped, err := skipOpaque(src, pos, lastSig, lastWord)
		if err != nil {
			return nil, err
		}

		if skipped {
			if !isCommentStart(src, pos) {
				lastSig, lastWord = '"', ""
			}

			pos = next

			continue
		}

		ch := src[pos]

		switch {
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
			pos++

			continue
		case closers[ch] != 0:
			stack = append(stack, closers[ch])
		case ch == '}' || ch == ')' || ch == ']':
			if len(stack) == 0 || stack[len(stack)-1] != ch {
				return nil, fmt.Errorf("%w: unexpected %q at line %d", ErrUnbalanced, ch, textutil.LineAt(src, pos))
			}

			stack = stack[:len(stack)-1]
		case textutil.IsIdentByte(ch):
			word := readWord(src, pos)

			if word == "function" && len(stack) == 0 && declarationContext(lastSig, lastWord, asyncDecl) {
				fn, ok, err := parseFunction(src, pos)
				if err != nil {
					return nil, err
				}

				if ok {
					if lastWord == "async" {
						fn.Async = true
						fn.Start = asyncStart(src, pos)
					}

					functions = append(functions, fn)
					pos = fn.End
					lastSig, lastWord = '}', ""

					continue
				}
			}

			if word == "async" {
				asyncDecl = startsDeclaration(lastSig, lastWord)
			}

			lastSig, lastWord = ch, word
			pos += len(word)

			continue
		}

		lastSig, lastWord = ch, ""
		pos++
	}

	if len(stack) > 0 {
		return nil, fmt.Errorf("%w: %d delimiter(s) left open", ErrUnbalanced, len(stack))
	}

	return functions, nil
}

// MatchDelimiter returns the offset of the delimiter closing the one at
// open. Nested delimiters of every kind are tracked on a stack.
func MatchDelimiter(src string, open int) (int, error) {
	if open < 0 || open >= len(src) || closers[src[open]] == 0 {
		return 0, ErrNotDelimiter
	}

	stack := []byte{closers[src[open]]}

	var (
		lastSig  = src[open]
		lastWord string
	)

	for pos := open + 1; pos < len(src); {
		next, skipped, err := skipOpaque(src, pos, lastSig, lastWord)
		if err != nil {
			return 0, err
		}

		if skipped {
			if !isCommentStart(src, pos) {
				lastSig, lastWord = '"', ""
			}

			pos = next

			continue
		}

		ch := src[pos]

		switch {
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
			pos++

			continue
		case closers[ch] != 0:
			stack = append(stack, closers[ch])
		case ch == '}' || ch == ')' || ch == ']':
			if stack[len(stack)-1] != ch {
				return 0, fmt.Errorf("%w: unexpected %q at line %d", ErrUnbalanced, ch, textutil.LineAt(src, pos))
			}

			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return pos, nil
			}
		case textutil.IsIdentByte(ch):
			word := readWord(src, pos)
			lastSig, lastWord = ch, word
			pos += len(word)

			continue
		}

		lastSig, lastWord = ch, ""
		pos++
	}

	return 0, fmt.Errorf("%w: %q at line %d is never closed", ErrUnbalanced, src[open], textutil.LineAt(src, open))
}

// IsCommentOnly reports whether s holds nothing but blanks and comments.
func IsCommentOnly(s string) bool {
	for pos := 0; pos < len(s); {
		switch {
		case s[pos] == ' ' || s[pos] == '\t' || s[pos] == '\n' || s[pos] == '\r':
			pos++
		case isCommentStart(s, pos):
			next, _, err := skipOpaque(s, pos, 0, "")
			if err != nil {
				return false
			}

			pos = next
		default:
			return false
		}
	}

	return true
}

// parseFunction reads `function [*] name (params) { body }` starting at the
// keyword. ok is false for anonymous function expressions.
func parseFunction(src string, keyword int) (Function, bool, error) {
	fn := Function{Start: keyword}

	pos := skipBlank(src, keyword+len("function"))
	if pos < len(src) && src[pos] == '*' {
		fn.Generator = true
		pos = skipBlank(src, pos+1)
	}

	name := readWord(src, pos)
	if name == "" {
		return Function{}, false, nil
	}

	fn.Name = name
	fn.NameStart = pos

	pos = skipBlank(src, pos+len(name))
	if pos >= len(src) || src[pos] != '(' {
		return Function{}, false, nil
	}

	fn.ParamsStart = pos

	closeParams, err := MatchDelimiter(src, pos)
	if err != nil {
		return Function{}, false, fmt.Errorf("function %s parameters: %w", name, err)
	}

	pos = skipBlank(src, closeParams+1)
	if pos >= len(src) || src[pos] != '{' {
		return Function{}, false, nil
	}

	fn.BodyStart = pos

	closeBody, err := MatchDelimiter(src, pos)
	if err != nil {
		return Function{}, false, fmt.Errorf("function %s body: %w", name, err)
	}

	fn.End = closeBody + 1

	return fn, true, nil
}

// skipOpaque skips a comment, string, template literal or regular
// expression literal starting at pos. skipped is false when pos starts none
// of them.
func skipOpaque(src string, pos int, lastSig byte, lastWord string) (int, bool, error) {
	ch := src[pos]

	switch {
	case strings.HasPrefix(src[pos:], "//"):
		end := strings.IndexByte(src[pos:], '\n')
		if end < 0 {
			return len(src), true, nil
		}

		return pos + end, true, nil
	case strings.HasPrefix(src[pos:], "/*"):
		end := strings.Index(src[pos+2:], "*/")
		if end < 0 {
			return 0, false, fmt.Errorf("%w: unterminated comment at line %d", ErrUnbalanced, textutil.LineAt(src, pos))
		}

		return pos + 2 + end + 2, true, nil
	case ch == '\'' || ch == '"':
		end, err := skipQuoted(src, pos)

		return end, true, err
	case ch == '`':
		end, err := skipTemplate(src, pos)

		return end, true, err
	case ch == '/' && regexAllowed(lastSig, lastWord):
		end, err := skipRegex(src, pos)

		return end, true, err
	}

	return pos, false, nil
}

func isCommentStart(src string, pos int) bool {
	return strings.HasPrefix(src[pos:], "//") || strings.HasPrefix(src[pos:], "/*")
}

func skipQuoted(src string, pos int) (int, error) {
	quote := src[pos]

	for i := pos + 1; i < len(src); i++ {
		switch src[i] {
		case '\\':
			i++
		case quote:
			return i + 1, nil
		case '\n':
			return 0, fmt.Errorf("%w: unterminated string at line %d", ErrUnbalanced, textutil.LineAt(src, pos))
		}
	}

	return 0, fmt.Errorf("%w: unterminated string at line %d", ErrUnbalanced, textutil.LineAt(src, pos))
}

func skipTemplate(src string, pos int) (int, error) {
	for i := pos + 1; i < len(src); i++ {
		switch {
		case src[i] == '\\':
			i++
		case src[i] == '`':
			return i + 1, nil
		case src[i] == '$' && i+1 < len(src) && src[i+1] == '{':
			closeAt, err := MatchDelimiter(src, i+1)
			if err != nil {
				return 0, err
			}

			i = closeAt
		}
	}

	return 0, fmt.Errorf("%w: unterminated template literal at line %d", ErrUnbalanced, textutil.LineAt(src, pos))
}

func skipRegex(src string, pos int) (int, error) {
	inClass := false

	for i := pos + 1; i < len(src); i++ {
		switch src[i] {
		case '\\':
			i++
		case '[':
			inClass = true
		case ']':
			inClass = false
		case '/':
			if inClass {
				continue
			}

			end := i + 1
			for end < len(src) && textutil.IsIdentByte(src[end]) {
				end++
			}

			return end, nil
		case '\n':
			return 0, fmt.Errorf("%w: unterminated regular expression at line %d", ErrUnbalanced, textutil.LineAt(src, pos))
		}
	}

	return 0, fmt.Errorf("%w: unterminated regular expression at line %d", ErrUnbalanced, textutil.LineAt(src, pos))
}

// regexAllowed reports whether a `/` after the given token starts a regular
// expression literal rather than a division.
func regexAllowed(lastSig byte, lastWord string) bool {
	if lastWord != "" {
		return expressionWords[lastWord]
	}

	return lastSig == 0 || strings.IndexByte(expressionPunct+";}", lastSig) >= 0
}

// startsDeclaration reports whether a statement can begin after the given
// token.
func startsDeclaration(lastSig byte, lastWord string) bool {
	if lastWord != "" {
		return !expressionWords[lastWord]
	}

	return strings.IndexByte(expressionPunct+".", lastSig) < 0
}

// declarationContext reports whether a `function` keyword after the given
// token declares a function. asyncDecl carries the verdict for the token in
// front of a preceding `async`.
func declarationContext(lastSig byte, lastWord string, asyncDecl bool) bool {
	if lastWord == "async" {
		return asyncDecl
	}

	return startsDeclaration(lastSig, lastWord)
}

func asyncStart(src string, keyword int) int {
	i := keyword - 1
	for i >= 0 && (src[i] == ' ' || src[i] == '\t' || src[i] == '\n' || src[i] == '\r') {
		i--
	}

	return i + 1 - len("async")
}

func readWord(src string, pos int) string {
	end := pos
	for end < len(src) && textutil.IsIdentByte(src[end]) {
		end++
	}

	return src[pos:end]
}

func skipBlank(src string, pos int) int {
	for pos < len(src) {
		switch {
		case src[pos] == ' ' || src[pos] == '\t' || src[pos] == '\n' || src[pos] == '\r':
			pos++
		case isCommentStart(src, pos):
			next, _, err := skipOpaque(src, pos, 0, "")
			if err != nil {
				return len(src)
			}

			pos = next
		default:
			return pos
		}
	}

	return pos
}
