package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/Sumatoshi-tech/esmport/pkg/migrate"
	"github.com/Sumatoshi-tech/esmport/pkg/safeconv"
)

// maxCellWidth bounds the old/new columns of the change table.
const maxCellWidth = 60

type palette struct {
	ok, warn, bad, info, faint *color.Color
}

func newPalette(noColor bool) palette {
	p := palette{
		ok:    color.New(color.FgGreen),
		warn:  color.New(color.FgYellow),
		bad:   color.New(color.FgRed),
		info:  color.New(color.FgCyan),
		faint: color.New(color.Faint),
	}

	if noColor {
		for _, c := range []*color.Color{p.ok, p.warn, p.bad, p.info, p.faint} {
			c.DisableColor()
		}
	}

	return p
}

func (p palette) status(s migrate.Status) *color.Color {
	switch s {
	case migrate.StatusRewritten:
		return p.ok
	case migrate.StatusManual:
		return p.warn
	case migrate.StatusFailed:
		return p.bad
	default:
		return p.faint
	}
}

// errWriter remembers the first write error so the renderer can be written
// as a straight sequence of prints.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) Write(b []byte) (int, error) {
	if ew.err != nil {
		return 0, ew.err
	}

	n, err := ew.w.Write(b)
	ew.err = err

	return n, err
}

func renderText(w io.Writer, rep *migrate.Report, opts Options) error {
	ew := &errWriter{w: w}
	p := newPalette(opts.NoColor)

	writeHeader(ew, rep, p)
	fmt.Fprintln(ew, filesTable(rep, p))

	for _, f := range rep.Files {
		writeProblems(ew, f, p)
	}

	if opts.Verbose {
		writeChanges(ew, rep)
		writeSkipped(ew, rep, p)
	}

	writeActions(ew, rep, p)
	writeSummary(ew, rep, p)

	if opts.Diff {
		for _, f := range rep.Files {
			if f.Status == migrate.StatusRewritten {
				fmt.Fprintln(ew)
				fmt.Fprint(ew, UnifiedDiff(f.Path, f.Original, f.Content))
			}
		}
	}

	if ew.err != nil {
		return fmt.Errorf("write text report: %w", ew.err)
	}

	return nil
}

func writeHeader(w io.Writer, rep *migrate.Report, p palette) {
	target := rep.Output
	if target == "" {
		target = "in place"
	}

	mode := ""
	if rep.DryRun {
		mode = p.warn.Sprint(" (dry run)")
	}

	fmt.Fprintf(w, "%s -> %s%s\n", rep.Root, target, mode)
	fmt.Fprintf(w, "class %s, uuid %s\n\n", rep.ClassName, rep.UUID)
}

func filesTable(rep *migrate.Report, p palette) string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.SeparateColumns = false
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Options.SeparateHeader = true

	tbl.AppendHeader(table.Row{"File", "Status", "Changes", "Errors", "Size"})

	for _, f := range rep.Files {
		size := ""
		if f.BytesIn > 0 || f.BytesOut > 0 {
			size = fmt.Sprintf("%s -> %s", humanize.Bytes(safeconv.ClampToUint64(f.BytesIn)), humanize.Bytes(safeconv.ClampToUint64(f.BytesOut)))
		}

		errs := ""
		if len(f.Errors) > 0 {
			errs = p.bad.Sprint(len(f.Errors))
		}

		tbl.AppendRow(table.Row{f.Path, p.status(f.Status).Sprint(f.Status), len(f.Changes), errs, size})
	}

	tbl.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})

	return tbl.Render()
}

func writeProblems(w io.Writer, f migrate.FileReport, p palette) {
	if f.Failure == "" && len(f.Errors) == 0 {
		return
	}

	fmt.Fprintf(w, "\n%s:\n", f.Path)

	if f.Failure != "" {
		p.bad.Fprintf(w, "  failed: %s\n", f.Failure)
	}

	for _, e := range f.Errors {
		p.bad.Fprintf(w, "  - %s\n", e.Error())

		if e.Fragment != "" {
			p.faint.Fprintf(w, "    %s\n", firstLine(e.Fragment))
		}
	}
}

func writeChanges(w io.Writer, rep *migrate.Report) {
	for _, f := range rep.Files {
		if len(f.Changes) == 0 {
			continue
		}

		tbl := table.NewWriter()
		tbl.SetStyle(table.StyleLight)
		tbl.Style().Options.DrawBorder = false
		tbl.Style().Options.SeparateColumns = false
		tbl.Style().Options.SeparateRows = false

		tbl.AppendHeader(table.Row{"Line", "Class", "Old", "New"})

		for _, c := range f.Changes {
			line := ""
			if c.Line > 0 {
				line = fmt.Sprint(c.Line)
			}

			tbl.AppendRow(table.Row{line, c.Class, firstLine(c.Old), firstLine(c.New)})
		}

		tbl.SetColumnConfigs([]table.ColumnConfig{
			{Number: 1, Align: text.AlignRight},
			{Number: 3, WidthMax: maxCellWidth},
			{Number: 4, WidthMax: maxCellWidth},
		})

		fmt.Fprintf(w, "\n%s:\n%s\n", f.Path, tbl.Render())
	}
}

func writeSkipped(w io.Writer, rep *migrate.Report, p palette) {
	if len(rep.Skipped) == 0 {
		return
	}

	fmt.Fprintln(w, "\nSkipped:")

	for _, s := range rep.Skipped {
		p.faint.Fprintf(w, "  %s (%s)\n", s.Path, s.Reason)
	}
}

func writeActions(w io.Writer, rep *migrate.Report, p palette) {
	if len(rep.Actions) == 0 {
		return
	}

	fmt.Fprintln(w, "\nAction items:")

	for _, a := range rep.Actions {
		p.info.Fprintf(w, "  - %s\n", a)
	}
}

func writeSummary(w io.Writer, rep *migrate.Report, p palette) {
	s := rep.Summary()

	parts := []string{
		fmt.Sprintf("%d files", s.Files),
		p.ok.Sprintf("%d rewritten", s.Rewritten),
		fmt.Sprintf("%d unchanged", s.Unchanged),
	}

	if s.Manual > 0 {
		parts = append(parts, p.warn.Sprintf("%d manual", s.Manual))
	}

	if s.Failed > 0 {
		parts = append(parts, p.bad.Sprintf("%d failed", s.Failed))
	}

	if s.Skipped > 0 {
		parts = append(parts, fmt.Sprintf("%d skipped", s.Skipped))
	}

	parts = append(parts, fmt.Sprintf("%s changes", humanize.Comma(int64(s.Changes))))

	if s.Errors > 0 {
		parts = append(parts, p.bad.Sprintf("%d errors", s.Errors))
	}

	fmt.Fprintf(w, "\n%s\n", strings.Join(parts, ", "))
}

func firstLine(s string) string {
	line, rest, found := strings.Cut(s, "\n")
	if found && strings.TrimSpace(rest) != "" {
		return line + " ..."
	}

	return line
}
