package legacyimport

import (
	"regexp"
	"strings"
)

// pragmaPattern matches `imports.gi.versions.Gtk = '3.0';`.
var pragmaPattern = regexp.MustCompile(
	`imports((?:\.[\w$]+)+)[ \t]*=[ \t]*['"]([\d.]+)['"][ \t]*;?[ \t]*\n?`,
)

// Pragma is one version-pinning statement.
type Pragma struct {
	Library string
	Version string

	// Statement is the exact statement text including its line break, if
	// any.
	Statement string
}

// VersionIndex maps a library short name to the last pragma that pinned it.
type VersionIndex map[string]Pragma

// IndexVersions scans src for version pragmas. It never fails; a source
// without pragmas yields an empty index.
func IndexVersions(src string) VersionIndex {
	index := VersionIndex{}

	for _, m := range pragmaPattern.FindAllStringSubmatch(src, -1) {
		segments := strings.Split(strings.TrimPrefix(m[1], "."), ".")
		library := segments[len(segments)-1]

		index[library] = Pragma{
			Library:   library,
			Version:   m[2],
			Statement: m[0],
		}
	}

	return index
}

// Lookup returns the pragma pinned for library.
func (vi VersionIndex) Lookup(library string) (Pragma, bool) {
	p, ok := vi[library]

	return p, ok
}
