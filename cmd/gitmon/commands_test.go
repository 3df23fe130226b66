package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShortID(t *testing.T) {
	assert.Equal(t, "01234567", shortID("0123456789012345678901234567890123456789"))
	assert.Equal(t, "abc", shortID("abc"))
	assert.Empty(t, shortID(""))
}

func TestGlobalFlags(t *testing.T) {
	names := map[string]bool{}
	for _, f := range globalFlags() {
		for _, n := range f.Names() {
			names[n] = true
		}
	}
	for _, want := range []string{"repo", "r", "git-binary", "timeout", "debug-log", "config-file"} {
		assert.True(t, names[want], "missing global flag %q", want)
	}
}

func TestCommandsAreRegistered(t *testing.T) {
	wanted := []string{"status", "branches", "log", "annotate", "changes", "stashes", "monitor", "version"}
	defs := map[string]bool{
		statusCommand().Name:   true,
		branchesCommand().Name: true,
		logCommand().Name:      true,
		annotateCommand().Name: true,
		changesCommand().Name:  true,
		stashesCommand().Name:  true,
		monitorCommand().Name:  true,
		versionCommand().Name:  true,
	}
	for _, name := range wanted {
		require.True(t, defs[name], "missing command %q", name)
	}
}
