package report

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// diffContext is the number of unchanged lines kept around each change.
const diffContext = 3

type diffLine struct {
	op   byte
	text string

	// oldBefore and newBefore count the lines of each side consumed before
	// this one.
	oldBefore int
	newBefore int
}

// UnifiedDiff renders a line-level unified diff of before and after, or ""
// when they are equal.
func UnifiedDiff(path, before, after string) string {
	if before == after {
		return ""
	}

	lines := diffLines(before, after)

	var b strings.Builder

	fmt.Fprintf(&b, "--- a/%s\n+++ b/%s\n", path, path)

	for start := 0; start < len(lines); {
		first := nextChange(lines, start)
		if first < 0 {
			break
		}

		from, to := hunkBounds(lines, first)
		writeHunk(&b, lines[from:to])

		start = to
	}

	return b.String()
}

func diffLines(before, after string) []diffLine {
	dmp := diffmatchpatch.New()
	src, dst, table := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(src, dst, false), table)

	var (
		out      []diffLine
		old, cur int
	)

	for _, d := range diffs {
		for _, text := range splitLines(d.Text) {
			line := diffLine{text: text, oldBefore: old, newBefore: cur}

			switch d.Type {
			case diffmatchpatch.DiffEqual:
				line.op = ' '
				old++
				cur++
			case diffmatchpatch.DiffDelete:
				line.op = '-'
				old++
			case diffmatchpatch.DiffInsert:
				line.op = '+'
				cur++
			}

			out = append(out, line)
		}
	}

	return out
}

func splitLines(text string) []string {
	parts := strings.SplitAfter(text, "\n")
	if parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}

	for i, p := range parts {
		parts[i] = strings.TrimSuffix(p, "\n")
	}

	return parts
}

func nextChange(lines []diffLine, from int) int {
	for i := from; i < len(lines); i++ {
		if lines[i].op != ' ' {
			return i
		}
	}

	return -1
}

// hunkBounds returns the span of the hunk starting with the change at
// first, merging later changes closer than two contexts apart.
func hunkBounds(lines []diffLine, first int) (int, int) {
	last := first

	for j := first + 1; j < len(lines); j++ {
		if lines[j].op == ' ' {
			continue
		}

		if j-last > 2*diffContext {
			break
		}

		last = j
	}

	return max(first-diffContext, 0), min(last+diffContext+1, len(lines))
}

func writeHunk(b *strings.Builder, hunk []diffLine) {
	var oldCount, newCount int

	for _, l := range hunk {
		if l.op != '+' {
			oldCount++
		}

		if l.op != '-' {
			newCount++
		}
	}

	oldStart := hunk[0].oldBefore
	if oldCount > 0 {
		oldStart++
	}

	newStart := hunk[0].newBefore
	if newCount > 0 {
		newStart++
	}

	fmt.Fprintf(b, "@@ -%d,%d +%d,%d @@\n", oldStart, oldCount, newStart, newCount)

	for _, l := range hunk {
		b.WriteByte(l.op)
		b.WriteString(l.text)
		b.WriteByte('\n')
	}
}
