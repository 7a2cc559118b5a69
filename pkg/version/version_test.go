package version

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApply_FillsFromBuildInfo(t *testing.T) {
	oldVersion, oldCommit, oldDate := Version, Commit, Date

	t.Cleanup(func() { Version, Commit, Date = oldVersion, oldCommit, oldDate })

	Version, Commit, Date = "dev", unknown, unknown

	apply(&debug.BuildInfo{
		Main: debug.Module{Version: "v0.4.1"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef0123"},
			{Key: "vcs.time", Value: "2026-10-01T10:00:00Z"},
		},
	})

	assert.Equal(t, "v0.4.1", Version)
	assert.Equal(t, "0123456789ab", Commit)
	assert.Equal(t, "2026-10-01T10:00:00Z", Date)
	assert.Equal(t, "v0.4.1 (commit: 0123456789ab, built: 2026-10-01T10:00:00Z)", String())
}

func TestApply_KeepsLinkerValues(t *testing.T) {
	oldVersion, oldCommit, oldDate := Version, Commit, Date

	t.Cleanup(func() { Version, Commit, Date = oldVersion, oldCommit, oldDate })

	Version, Commit, Date = "v1.0.0", "abc", "yesterday"

	apply(&debug.BuildInfo{
		Main:     debug.Module{Version: "(devel)"},
		Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "fff"}},
	})

	assert.Equal(t, "v1.0.0", Version)
	assert.Equal(t, "abc", Commit)
	assert.Equal(t, "yesterday", Date)
}
