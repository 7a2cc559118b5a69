// Package metadata reads and validates an extension's metadata.json.
package metadata

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode"

	"github.com/xeipuuv/gojsonschema"

	"github.com/Sumatoshi-tech/esmport/pkg/textutil"
)

// FileName is the metadata file expected at the extension root.
const FileName = "metadata.json"

// TargetShellVersion is the shell release the migration targets.
const TargetShellVersion = "45"

// fallbackClassName names the class when neither name nor uuid yields an
// identifier.
const fallbackClassName = "MyExtension"

// baseClassName is the shell type the generated class extends.
const baseClassName = "Extension"

// Sentinel errors.
var (
	// ErrMissing indicates the metadata file does not exist.
	ErrMissing = errors.New("metadata.json not found")
	// ErrInvalid indicates the metadata file is unreadable or fails
	// validation.
	ErrInvalid = errors.New("invalid metadata.json")
)

//go:embed schema.json
var schema []byte

// Metadata is the subset of metadata.json the migration uses.
type Metadata struct {
	UUID           string   `json:"uuid"`
	Name           string   `json:"name"`
	Description    string   `json:"description,omitempty"`
	GettextDomain  string   `json:"gettext-domain,omitempty"`
	SettingsSchema string   `json:"settings-schema,omitempty"`
	ShellVersions  []string `json:"shell-version,omitempty"`
	URL            string   `json:"url,omitempty"`
}

// Load reads root/metadata.json.
func Load(root string) (*Metadata, error) {
	path := filepath.Join(root, FileName)

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrMissing, path)
	}

	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrInvalid, path, err)
	}

	return Parse(data)
}

// Parse validates data against the embedded schema and decodes it.
func Parse(data []byte) (*Metadata, error) {
	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schema), gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, verr := range result.Errors() {
			msgs = append(msgs, fmt.Sprintf("%s: %s", verr.Field(), verr.Description()))
		}

		return nil, fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
	}

	var md Metadata

	err = json.Unmarshal(data, &md)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	return &md, nil
}

// HasGettextDomain reports whether the text domain is declared.
func (m *Metadata) HasGettextDomain() bool {
	return m.GettextDomain != ""
}

// SupportsShell reports whether version is listed in shell-version. Minor
// releases such as "45.1" count for "45".
func (m *Metadata) SupportsShell(version string) bool {
	return slices.ContainsFunc(m.ShellVersions, func(v string) bool {
		return v == version || strings.HasPrefix(v, version+".")
	})
}

// ClassName derives the entry class name: the PascalCase of the display
// name's alphanumeric words, else the capitalised uuid prefix before '@'.
// A candidate equal to the base type name is skipped.
func (m *Metadata) ClassName() string {
	prefix, _, _ := strings.Cut(m.UUID, "@")

	for _, name := range []string{pascalCase(m.Name), identifier(textutil.Capitalize(prefix))} {
		if name != "" && name != baseClassName {
			return name
		}
	}

	return fallbackClassName
}

// InstanceName is the exported binding that holds the running instance.
func (m *Metadata) InstanceName() string {
	return m.ClassName() + "Instance"
}

func pascalCase(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool {
		return !isASCIIAlnum(r)
	})

	var b strings.Builder
	for _, w := range words {
		b.WriteString(textutil.UpperFirst(w))
	}

	return identifier(b.String())
}

// identifier drops characters that cannot appear in a class name and
// rejects names starting with a digit.
func identifier(s string) string {
	s = strings.Map(func(r rune) rune {
		if isASCIIAlnum(r) {
			return r
		}

		return -1
	}, s)

	if s == "" || unicode.IsDigit(rune(s[0])) {
		return ""
	}

	return s
}

func isASCIIAlnum(r rune) bool {
	return r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r))
}
