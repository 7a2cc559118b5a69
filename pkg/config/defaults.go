package config

import (
	"github.com/Sumatoshi-tech/esmport/pkg/legacyimport"
	"github.com/Sumatoshi-tech/esmport/pkg/lifecycle"
	"github.com/Sumatoshi-tech/esmport/pkg/rewrite"
)

// Migration defaults.
const (
	DefaultEntryFile          = "extension.js"
	DefaultPrefsFile          = "prefs.js"
	DefaultNativeBindingStyle = string(rewrite.NativeDefault)
	DefaultExtensionModule    = lifecycle.DefaultExtensionModule
	DefaultShellRoot          = rewrite.DefaultShellRoot
	DefaultSingletonAccessor  = legacyimport.DefaultSingletonAccessor
)

// Output defaults.
const (
	DefaultDirSuffix  = ".GNOME45"
	DefaultFileSuffix = ""
	DefaultFormat     = "text"
)

// Run defaults. Zero workers means one per CPU.
const (
	DefaultWorkers     = 0
	DefaultNoGitignore = false
)

// Logging defaults.
const (
	DefaultLogLevel = "info"
	DefaultLogJSON  = false
)

// Telemetry defaults.
const (
	DefaultOTLPEndpoint    = ""
	DefaultOTLPInsecure    = false
	DefaultMetricsTextfile = ""
	DefaultSampleRatio     = 0.0
)
