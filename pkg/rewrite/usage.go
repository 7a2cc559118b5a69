package rewrite

import (
	"regexp"
	"strings"

	"github.com/Sumatoshi-tech/esmport/pkg/lifecycle"
	"github.com/Sumatoshi-tech/esmport/pkg/textutil"
)

// CallSite is one `<receiver>.<method>(<args>)` expression.
type CallSite struct {
	Receiver string
	Method   string
	Args     string

	// Text is the exact call text, spanning [Start, End) of the source.
	Text  string
	Start int
	End   int
	Line  int
}

// FindCallSites returns the method calls on receiver in src, in source order.
// Matches inside any of the skip spans are ignored, as are receivers that are
// themselves a property (`a.receiver.m()`) or part of a longer identifier.
func FindCallSites(src, receiver string, skip [][2]int) []CallSite {
	pattern := regexp.MustCompile(regexp.QuoteMeta(receiver) + `\.([\w$]+)[ \t]*\(`)

	var sites []CallSite

	for _, m := range pattern.FindAllStringSubmatchIndex(src, -1) {
		start := m[0]
		if start > 0 && (textutil.IsIdentByte(src[start-1]) || src[start-1] == '.') {
			continue
		}

		if inSpans(start, skip) {
			continue
		}

		paren := m[1] - 1

		closeAt, err := lifecycle.MatchDelimiter(src, paren)
		if err != nil {
			continue
		}

		sites = append(sites, CallSite{
			Receiver: receiver,
			Method:   src[m[2]:m[3]],
			Args:     src[paren+1 : closeAt],
			Text:     src[start : closeAt+1],
			Start:    start,
			End:      closeAt + 1,
			Line:     textutil.LineAt(src, start),
		})
	}

	return sites
}

// declarationPrefix matches `const name = ` up to the initializer.
var declarationPrefix = regexp.MustCompile(`^[ \t]*(?:const|let|var)[ \t]+([\w$]+)[ \t]*=[ \t]*$`)

// DeclarationOf reports whether site is the whole initializer of a one-line
// declaration. It returns the full line, including its line break, and the
// declared name.
func DeclarationOf(src string, site CallSite) (string, string, bool) {
	lineStart := strings.LastIndexByte(src[:site.Start], '\n') + 1

	lineEnd := len(src)
	if nl := strings.IndexByte(src[site.End:], '\n'); nl >= 0 {
		lineEnd = site.End + nl + 1
	}

	m := declarationPrefix.FindStringSubmatch(src[lineStart:site.Start])
	if m == nil {
		return "", "", false
	}

	rest := strings.TrimSpace(src[site.End:lineEnd])
	if rest != "" && rest != ";" {
		return "", "", false
	}

	return src[lineStart:lineEnd], m[1], true
}

func inSpans(off int, spans [][2]int) bool {
	for _, s := range spans {
		if off >= s[0] && off < s[1] {
			return true
		}
	}

	return false
}
