package report

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/esmport/pkg/migrate"
)

const yamlIndent = 2

// Document is the machine-readable form of a run, as written by the json
// and yaml formats.
type Document struct {
	Root      string            `json:"root"              yaml:"root"`
	Output    string            `json:"output,omitempty"  yaml:"output,omitempty"`
	DryRun    bool              `json:"dry_run"           yaml:"dry_run"`
	UUID      string            `json:"uuid"              yaml:"uuid"`
	ClassName string            `json:"class_name"        yaml:"class_name"`
	Summary   migrate.Summary   `json:"summary"           yaml:"summary"`
	Files     []FileEntry       `json:"files"             yaml:"files"`
	Skipped   []migrate.Skipped `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Actions   []string          `json:"actions,omitempty" yaml:"actions,omitempty"`
}

// FileEntry is one file of a Document.
type FileEntry struct {
	migrate.FileReport `yaml:",inline"`

	Diff string `json:"diff,omitempty" yaml:"diff,omitempty"`
}

// NewDocument builds the Document of rep.
func NewDocument(rep *migrate.Report, opts Options) Document {
	doc := Document{
		Root:      rep.Root,
		Output:    rep.Output,
		DryRun:    rep.DryRun,
		UUID:      rep.UUID,
		ClassName: rep.ClassName,
		Summary:   rep.Summary(),
		Files:     make([]FileEntry, 0, len(rep.Files)),
		Skipped:   rep.Skipped,
		Actions:   rep.Actions,
	}

	for _, f := range rep.Files {
		entry := FileEntry{FileReport: f}
		if opts.Diff && f.Status == migrate.StatusRewritten {
			entry.Diff = UnifiedDiff(f.Path, f.Original, f.Content)
		}

		doc.Files = append(doc.Files, entry)
	}

	return doc
}

func renderJSON(w io.Writer, rep *migrate.Report, opts Options) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	err := encoder.Encode(NewDocument(rep, opts))
	if err != nil {
		return fmt.Errorf("encode json report: %w", err)
	}

	return nil
}

func renderYAML(w io.Writer, rep *migrate.Report, opts Options) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(yamlIndent)

	err := encoder.Encode(NewDocument(rep, opts))
	if err != nil {
		return fmt.Errorf("encode yaml report: %w", err)
	}

	err = encoder.Close()
	if err != nil {
		return fmt.Errorf("close yaml encoder: %w", err)
	}

	return nil
}
