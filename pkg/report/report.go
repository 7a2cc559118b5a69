// Package report renders the outcome of a migration run for people and for
// machines.
package report

import (
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/Sumatoshi-tech/esmport/pkg/levenshtein"
	"github.com/Sumatoshi-tech/esmport/pkg/migrate"
)

// Format names an output format.
type Format string

// Supported formats.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Formats lists the supported formats.
var Formats = []Format{FormatText, FormatJSON, FormatYAML}

// maxFormatTypo bounds the edit distance of a format suggestion.
const maxFormatTypo = 2

// ErrUnknownFormat indicates a format outside Formats.
var ErrUnknownFormat = errors.New("unknown report format")

// Options controls rendering.
type Options struct {
	Format Format

	// Diff adds a unified diff of every rewritten file.
	Diff bool

	// NoColor disables ANSI colors in text output.
	NoColor bool

	// Verbose lists every change and skipped file in text output.
	Verbose bool
}

// ParseFormat validates s as a Format.
func ParseFormat(s string) (Format, error) {
	f := Format(s)
	if slices.Contains(Formats, f) {
		return f, nil
	}

	names := make([]string, 0, len(Formats))
	for _, known := range Formats {
		names = append(names, string(known))
	}

	if hint, ok := levenshtein.Closest(s, names, maxFormatTypo); ok {
		return "", fmt.Errorf("%w: %q (did you mean %q?)", ErrUnknownFormat, s, hint)
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Render writes rep to w in the requested format.
func Render(w io.Writer, rep *migrate.Report, opts Options) error {
	switch opts.Format {
	case FormatText, "":
		return renderText(w, rep, opts)
	case FormatJSON:
		return renderJSON(w, rep, opts)
	case FormatYAML:
		return renderYAML(w, rep, opts)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, opts.Format)
	}
}
