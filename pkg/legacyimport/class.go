package legacyimport

// Class is the rewrite class assigned to an Occurrence. The set of
// implementations is closed; consumers switch over the concrete types.
type Class interface {
	// Name returns the stable identifier of the class, used in reports and
	// metrics.
	Name() string

	class()
}

// LocalRelative is an import of a sibling file through the extension's own
// accessor (Me.imports.foo).
type LocalRelative struct{}

// Singleton is an invoked current-extension accessor
// (imports.misc.extensionUtils.getCurrentExtension()).
type Singleton struct{}

// GettextDomain is an invoked text-domain accessor
// (imports.gettext.domain('x').gettext).
type GettextDomain struct{}

// NativeBinding is an import from the introspection root (imports.gi).
// Library is set when the path names the library directly
// (imports.gi.GLib); otherwise the bound names are the libraries.
type NativeBinding struct {
	Library string
}

// Submodule is an import below one of the shell's module directories.
// File is the explicit file segment (imports.ui.main) and Member a symbol
// read from that file (imports.ui.checkBox.CheckBox); both may be empty.
type Submodule struct {
	Dir    string
	File   string
	Member string
}

// Generic is any other import under the platform root. Path is the dotted
// import path translated to a slash-delimited file path.
type Generic struct {
	Path string
}

// Class names.
const (
	NameLocalRelative = "local-relative"
	NameSingleton     = "singleton"
	NameGettextDomain = "gettext-domain"
	NameNativeBinding = "native-binding"
	NameSubmodule     = "submodule"
	NameGeneric       = "generic"
)

// Names lists every class name in classification priority order.
var Names = []string{
	NameLocalRelative,
	NameSingleton,
	NameGettextDomain,
	NameNativeBinding,
	NameSubmodule,
	NameGeneric,
}

func (LocalRelative) Name() string { return NameLocalRelative }
func (Singleton) Name() string     { return NameSingleton }
func (GettextDomain) Name() string { return NameGettextDomain }
func (NativeBinding) Name() string { return NameNativeBinding }
func (Submodule) Name() string     { return NameSubmodule }
func (Generic) Name() string       { return NameGeneric }

func (LocalRelative) class() {}
func (Singleton) class()     {}
func (GettextDomain) class() {}
func (NativeBinding) class() {}
func (Submodule) class()     {}
func (Generic) class()       {}
