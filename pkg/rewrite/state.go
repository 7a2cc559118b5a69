package rewrite

import (
	"fmt"
	"slices"
)

// ErrorKind categorises a non-fatal per-file error.
type ErrorKind int

// Error kinds.
const (
	// ValidationError marks a recognised import form with the wrong number of
	// bound names.
	ValidationError ErrorKind = iota + 1
	// UnclassifiedImportError marks an import form that cannot be rewritten.
	UnclassifiedImportError
	// StructuralScanError marks an entry file whose functions could not be
	// located.
	StructuralScanError
)

var errorKindNames = map[ErrorKind]string{
	ValidationError:         "ValidationError",
	UnclassifiedImportError: "UnclassifiedImportError",
	StructuralScanError:     "StructuralScanError",
}

// String returns the kind name.
func (k ErrorKind) String() string {
	if name, ok := errorKindNames[k]; ok {
		return name
	}

	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// MarshalText encodes the kind by name.
func (k ErrorKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ClassRemap is the Change class of a usage-site or always-on remap.
const ClassRemap = "remap"

// ClassLifecycle is the Change class of the entry-file class synthesis.
const ClassLifecycle = "lifecycle"

// ClassExport is the Change class of a declaration that gained `export`.
const ClassExport = "export"

// Change is one audit-trail entry.
type Change struct {
	Line  int    `json:"line"  yaml:"line"`
	Class string `json:"class" yaml:"class"`
	Old   string `json:"old"   yaml:"old"`
	New   string `json:"new"   yaml:"new"`
}

// Error is one non-fatal error recorded while rewriting a file.
type Error struct {
	Kind     ErrorKind `json:"kind"     yaml:"kind"`
	Line     int       `json:"line"     yaml:"line"`
	Fragment string    `json:"fragment" yaml:"fragment"`
	Reason   string    `json:"reason"   yaml:"reason"`
}

func (e Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s at line %d: %s", e.Kind, e.Line, e.Reason)
	}

	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

// Remap is a deferred literal substitution applied to the whole file.
type Remap struct {
	Old string `json:"old" yaml:"old"`
	New string `json:"new" yaml:"new"`

	// Word restricts matches to occurrences not preceded by an identifier
	// character or a dot.
	Word bool `json:"word,omitempty" yaml:"word,omitempty"`
}

// State is the mutable rewrite state of one file pass.
type State struct {
	// SingletonImported and ExtensionImported guard the injected imports.
	// They never go back to false.
	SingletonImported bool
	ExtensionImported bool

	// SingletonAlias is the local name bound to the running extension
	// instance.
	SingletonAlias string

	Remaps  []Remap
	Changes []Change
	Errors  []Error
	Actions []string

	queued map[string]bool
}

// NewState returns an empty State.
func NewState() *State {
	return &State{queued: map[string]bool{}}
}

// QueueRemap appends r unless a remap with the same Old text is already
// queued. It reports whether r was added.
func (s *State) QueueRemap(r Remap) bool {
	if r.Old == "" || s.queued[r.Old] {
		return false
	}

	if s.queued == nil {
		s.queued = map[string]bool{}
	}

	s.queued[r.Old] = true
	s.Remaps = append(s.Remaps, r)

	return true
}

// AddAction records a user action item once.
func (s *State) AddAction(action string) {
	if !slices.Contains(s.Actions, action) {
		s.Actions = append(s.Actions, action)
	}
}

// AddError records a non-fatal error.
func (s *State) AddError(kind ErrorKind, line int, fragment, reason string) {
	s.Errors = append(s.Errors, Error{Kind: kind, Line: line, Fragment: fragment, Reason: reason})
}

// AddChange records an audit-trail entry.
func (s *State) AddChange(line int, class, old, replacement string) {
	s.Changes = append(s.Changes, Change{Line: line, Class: class, Old: old, New: replacement})
}

// MarkSingletonImported sets the singleton guard and records alias when no
// alias is known yet.
func (s *State) MarkSingletonImported(alias string) {
	s.SingletonImported = true

	if s.SingletonAlias == "" {
		s.SingletonAlias = alias
	}
}
