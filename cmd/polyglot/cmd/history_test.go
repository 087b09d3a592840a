package cmd

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/polyglot/internal/history"
	"github.com/MeKo-Tech/polyglot/internal/testutil"
)

func listEntries(t *testing.T, env *cliEnv, args ...string) []history.Entry {
	t.Helper()
	res := env.run(t, "", append([]string{"history"}, append(args, "--format", "json")...)...)
	require.NoError(t, res.err)
	var entries []history.Entry
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &entries))
	return entries
}

func TestHistoryCommand(t *testing.T) {
	env := newCLIEnv(t, testutil.ConfigOptions{})

	res := env.run(t, "", "history", "list")
	require.NoError(t, res.err)
	assert.Equal(t, "No entries\n", res.stdout)
	assert.Empty(t, listEntries(t, env, "list"))

	for _, text := range []string{"hola amigo", "namaste dost", "bonjour mon ami"} {
		require.NoError(t, env.run(t, "", "translate", "--to", "en", text).err)
	}
	require.NoError(t, env.run(t, "", "translate", "--from", "es", "--to", "de", "gracias").err)

	entries := listEntries(t, env, "list")
	require.Len(t, entries, 4)
	assert.Equal(t, "gracias", entries[0].SourceText)
	assert.False(t, entries[0].Detected)
	assert.Equal(t, "hola amigo", entries[3].SourceText)
	assert.True(t, entries[3].Detected)
	assert.Equal(t, "es", entries[3].SourceLang)

	assert.Len(t, listEntries(t, env, "list", "--limit", "2"), 2)

	res = env.run(t, "", "history", "list")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "LANGS")
	assert.Contains(t, res.stdout, "hi>en*")
	assert.Contains(t, res.stdout, "es>de ")

	found := listEntries(t, env, "search", "NAMASTE")
	require.Len(t, found, 1)
	assert.Equal(t, "[hi>en] namaste dost", found[0].TranslatedText)

	res = env.run(t, "", "history", "delete", found[0].ID)
	require.NoError(t, res.err)
	assert.Equal(t, "Deleted "+found[0].ID+"\n", res.stdout)
	assert.Empty(t, listEntries(t, env, "search", "namaste"))

	res = env.run(t, "", "history", "delete", found[0].ID)
	require.Error(t, res.err)
	assert.True(t, history.IsNotFound(res.err))

	res = env.run(t, "", "history", "clear")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "--yes")
	assert.Len(t, listEntries(t, env, "list"), 3)

	res = env.run(t, "", "history", "clear", "--yes")
	require.NoError(t, res.err)
	assert.Equal(t, "Deleted 3 entries\n", res.stdout)
	assert.Empty(t, listEntries(t, env, "list"))
}

func TestHistoryCommand_NoHistoryFlagAndFailures(t *testing.T) {
	env := newCLIEnv(t, testutil.ConfigOptions{})

	require.NoError(t, env.run(t, "", "translate", "--no-history", "--to", "en", "hola amigo").err)
	assert.Error(t, env.run(t, "", "translate", "--to", "en", "xyz123").err)
	assert.Empty(t, listEntries(t, env, "list"), "skipped and failed translations leave no entries")
}

func TestHistoryCommand_Disabled(t *testing.T) {
	env := newCLIEnv(t, testutil.ConfigOptions{HistoryDisabled: true})

	require.NoError(t, env.run(t, "", "translate", "--to", "en", "hola amigo").err)

	res := env.run(t, "", "history", "list")
	require.Error(t, res.err)
	assert.ErrorIs(t, res.err, errHistoryDisabled)
}

func TestClip(t *testing.T) {
	assert.Equal(t, "short", clip("short", 40))
	assert.Equal(t, "नमस…", clip("नमस्ते", 4))
}
