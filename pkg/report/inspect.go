package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/esmport/pkg/legacyimport"
)

// Inspection lists the legacy imports found in one file.
type Inspection struct {
	Path        string                    `json:"path"                  yaml:"path"`
	Occurrences []legacyimport.Occurrence `json:"-"                     yaml:"-"`
	Failure     string                    `json:"failure,omitempty"     yaml:"failure,omitempty"`
}

type occurrenceEntry struct {
	Line       int      `json:"line"              yaml:"line"`
	Class      string   `json:"class"             yaml:"class"`
	Names      []string `json:"names"             yaml:"names"`
	Expression string   `json:"expression"        yaml:"expression"`
	Target     string   `json:"target,omitempty"  yaml:"target,omitempty"`
	Invoked    bool     `json:"invoked,omitempty" yaml:"invoked,omitempty"`
}

type inspectionEntry struct {
	Path        string            `json:"path"              yaml:"path"`
	Failure     string            `json:"failure,omitempty" yaml:"failure,omitempty"`
	Occurrences []occurrenceEntry `json:"occurrences"       yaml:"occurrences"`
}

// classTarget describes what a class resolves to, e.g. "GLib" or "ui/main".
func classTarget(c legacyimport.Class) string {
	switch v := c.(type) {
	case legacyimport.NativeBinding:
		return v.Library
	case legacyimport.Submodule:
		parts := []string{v.Dir}

		for _, p := range []string{v.File, v.Member} {
			if p != "" {
				parts = append(parts, p)
			}
		}

		return strings.Join(parts, "/")
	case legacyimport.Generic:
		return v.Path
	default:
		return ""
	}
}

func inspectionEntries(items []Inspection) []inspectionEntry {
	out := make([]inspectionEntry, 0, len(items))

	for _, it := range items {
		entry := inspectionEntry{
			Path:        it.Path,
			Failure:     it.Failure,
			Occurrences: make([]occurrenceEntry, 0, len(it.Occurrences)),
		}

		for _, o := range it.Occurrences {
			entry.Occurrences = append(entry.Occurrences, occurrenceEntry{
				Line:       o.Line,
				Class:      o.Class.Name(),
				Names:      o.Names,
				Expression: o.Expression,
				Target:     classTarget(o.Class),
				Invoked:    o.Invoked(),
			})
		}

		out = append(out, entry)
	}

	return out
}

// RenderInspection writes the classified imports of items to w.
func RenderInspection(w io.Writer, items []Inspection, opts Options) error {
	entries := inspectionEntries(items)

	switch opts.Format {
	case FormatText, "":
		return renderInspectionText(w, entries, opts)
	case FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")

		err := encoder.Encode(entries)
		if err != nil {
			return fmt.Errorf("encode json inspection: %w", err)
		}

		return nil
	case FormatYAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(yamlIndent)

		err := encoder.Encode(entries)
		if err != nil {
			return fmt.Errorf("encode yaml inspection: %w", err)
		}

		err = encoder.Close()
		if err != nil {
			return fmt.Errorf("close yaml encoder: %w", err)
		}

		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, opts.Format)
	}
}

func renderInspectionText(w io.Writer, entries []inspectionEntry, opts Options) error {
	ew := &errWriter{w: w}
	p := newPalette(opts.NoColor)

	total := 0

	for _, e := range entries {
		fmt.Fprintf(ew, "%s\n", p.info.Sprint(e.Path))

		if e.Failure != "" {
			p.bad.Fprintf(ew, "  failed: %s\n\n", e.Failure)

			continue
		}

		if len(e.Occurrences) == 0 {
			p.faint.Fprintln(ew, "  no legacy imports")
			fmt.Fprintln(ew)

			continue
		}

		tbl := table.NewWriter()
		tbl.SetStyle(table.StyleLight)
		tbl.Style().Options.DrawBorder = false
		tbl.Style().Options.SeparateColumns = false
		tbl.Style().Options.SeparateRows = false

		tbl.AppendHeader(table.Row{"Line", "Class", "Names", "Target", "Expression"})

		for _, o := range e.Occurrences {
			expr := o.Expression
			if o.Invoked {
				expr += "(...)"
			}

			tbl.AppendRow(table.Row{o.Line, o.Class, strings.Join(o.Names, ", "), o.Target, expr})
		}

		tbl.SetColumnConfigs([]table.ColumnConfig{
			{Number: 1, Align: text.AlignRight},
			{Number: 5, WidthMax: maxCellWidth},
		})

		fmt.Fprintf(ew, "%s\n\n", tbl.Render())

		total += len(e.Occurrences)
	}

	fmt.Fprintf(ew, "%d files, %d legacy imports\n", len(entries), total)

	if ew.err != nil {
		return fmt.Errorf("write inspection: %w", ew.err)
	}

	return nil
}
