package migrate

import (
	"slices"
	"time"

	"github.com/Sumatoshi-tech/esmport/pkg/rewrite"
)

// Status is the outcome of one file.
type Status string

// File statuses.
const (
	StatusRewritten Status = "rewritten"
	StatusUnchanged Status = "unchanged"
	StatusManual    Status = "manual"
	StatusFailed    Status = "failed"
)

// FileReport is the outcome of one file.
type FileReport struct {
	Path   string `json:"path"   yaml:"path"`
	Status Status `json:"status" yaml:"status"`

	// Output is where the rewritten content was written; empty on dry runs.
	Output string `json:"output,omitempty" yaml:"output,omitempty"`

	Entry   bool `json:"entry,omitempty"   yaml:"entry,omitempty"`
	Wrapped bool `json:"wrapped,omitempty" yaml:"wrapped,omitempty"`

	Changes []rewrite.Change `json:"changes,omitempty" yaml:"changes,omitempty"`
	Errors  []rewrite.Error  `json:"errors,omitempty"  yaml:"errors,omitempty"`
	Actions []string         `json:"actions,omitempty" yaml:"actions,omitempty"`

	// Failure is the I/O error that stopped this file.
	Failure string `json:"failure,omitempty" yaml:"failure,omitempty"`

	BytesIn  int64 `json:"bytes_in"  yaml:"bytes_in"`
	BytesOut int64 `json:"bytes_out" yaml:"bytes_out"`

	Duration time.Duration `json:"-" yaml:"-"`

	// Original and Content hold the text before and after the pass, for
	// diff rendering.
	Original string `json:"-" yaml:"-"`
	Content  string `json:"-" yaml:"-"`
}

// Report aggregates a migration run.
type Report struct {
	Root      string `json:"root"                yaml:"root"`
	Output    string `json:"output,omitempty"    yaml:"output,omitempty"`
	DryRun    bool   `json:"dry_run"             yaml:"dry_run"`
	UUID      string `json:"uuid"                yaml:"uuid"`
	ClassName string `json:"class_name"          yaml:"class_name"`

	Files   []FileReport `json:"files"             yaml:"files"`
	Skipped []Skipped    `json:"skipped,omitempty" yaml:"skipped,omitempty"`

	// Actions are the de-duplicated user action items of the whole run.
	Actions []string `json:"actions,omitempty" yaml:"actions,omitempty"`

	Duration time.Duration `json:"-" yaml:"-"`
}

// Summary holds the run totals.
type Summary struct {
	Files     int            `json:"files"     yaml:"files"`
	Rewritten int            `json:"rewritten" yaml:"rewritten"`
	Unchanged int            `json:"unchanged" yaml:"unchanged"`
	Manual    int            `json:"manual"    yaml:"manual"`
	Failed    int            `json:"failed"    yaml:"failed"`
	Skipped   int            `json:"skipped"   yaml:"skipped"`
	Changes   int            `json:"changes"   yaml:"changes"`
	Errors    int            `json:"errors"    yaml:"errors"`
	BytesIn   int64          `json:"bytes_in"  yaml:"bytes_in"`
	BytesOut  int64          `json:"bytes_out" yaml:"bytes_out"`
	ByClass   map[string]int `json:"by_class"  yaml:"by_class"`
}

// Summary totals the file reports.
func (r *Report) Summary() Summary {
	s := Summary{
		Files:   len(r.Files),
		Skipped: len(r.Skipped),
		ByClass: map[string]int{},
	}

	for _, f := range r.Files {
		switch f.Status {
		case StatusRewritten:
			s.Rewritten++
		case StatusUnchanged:
			s.Unchanged++
		case StatusManual:
			s.Manual++
		case StatusFailed:
			s.Failed++
		}

		s.Changes += len(f.Changes)
		s.Errors += len(f.Errors)
		s.BytesIn += f.BytesIn
		s.BytesOut += f.BytesOut

		for _, c := range f.Changes {
			s.ByClass[c.Class]++
		}
	}

	return s
}

// HasErrors reports whether any file failed or recorded a non-fatal error.
func (r *Report) HasErrors() bool {
	return slices.ContainsFunc(r.Files, func(f FileReport) bool {
		return f.Status == StatusFailed || len(f.Errors) > 0
	})
}

// addActions appends the items that are not yet listed.
func (r *Report) addActions(items ...string) {
	for _, item := range items {
		if !slices.Contains(r.Actions, item) {
			r.Actions = append(r.Actions, item)
		}
	}
}
