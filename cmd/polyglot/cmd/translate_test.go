package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/polyglot/internal/pipeline"
	"github.com/MeKo-Tech/polyglot/internal/resolve"
	"github.com/MeKo-Tech/polyglot/internal/testutil"
	"github.com/MeKo-Tech/polyglot/internal/translate"
)

func TestTranslateCommand(t *testing.T) {
	env := newCLIEnv(t, testutil.ConfigOptions{})

	res := env.run(t, "", "translate", "--to", "en", "hola amigo")
	require.NoError(t, res.err)
	assert.Equal(t, "[es>en] hola amigo\n", res.stdout)

	res = env.run(t, "", "translate", "--from", "hi", "--to", "de", "kya haal hai")
	require.NoError(t, res.err)
	assert.Equal(t, "[hi>de] kya haal hai\n", res.stdout)

	assert.Equal(t, 2, env.fake.TranslateCalls())
}

func TestTranslateCommand_JSON(t *testing.T) {
	env := newCLIEnv(t, testutil.ConfigOptions{Format: "json"})

	res := env.run(t, "namaste dost", "translate", "--to", "en", "-")
	require.NoError(t, res.err)

	var out pipeline.Result
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &out))
	assert.Equal(t, "[hi>en] namaste dost", out.TranslatedText)
	assert.Equal(t, "hi", out.Source.Code)
	assert.True(t, out.Detected)
	require.NotNil(t, out.Resolution)
	assert.Equal(t, resolve.MethodHeuristic, out.Resolution.Method)
	assert.NotEmpty(t, out.HistoryID)
}

func TestTranslateCommand_SameLanguage(t *testing.T) {
	env := newCLIEnv(t, testutil.ConfigOptions{})

	res := env.run(t, "", "translate", "--from", "fr", "--to", "fr", "bonjour")
	require.NoError(t, res.err)
	assert.Equal(t, "bonjour\n", res.stdout)
	assert.Zero(t, env.fake.TranslateCalls())
}

func TestTranslateCommand_AmbiguousHalts(t *testing.T) {
	env := newCLIEnv(t, testutil.ConfigOptions{})

	res := env.run(t, "", "translate", "--to", "fr", "xyz123")
	require.Error(t, res.err)
	assert.Equal(t, ExitAmbiguous, ExitCode(res.err))
	assert.Contains(t, res.stderr, "use --from")
	assert.Empty(t, res.stdout)
	assert.Zero(t, env.fake.TranslateCalls())

	// An explicit source skips detection entirely.
	res = env.run(t, "", "translate", "--from", "en", "--to", "fr", "xyz123")
	require.NoError(t, res.err)
	assert.Equal(t, "[en>fr] xyz123\n", res.stdout)
}

func TestTranslateCommand_Errors(t *testing.T) {
	env := newCLIEnv(t, testutil.ConfigOptions{})

	res := env.run(t, "", "translate", "hola")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), `required flag(s) "to" not set`)

	res = env.run(t, "", "translate", "--to", "auto", "hola")
	assert.ErrorIs(t, res.err, pipeline.ErrUnsupportedLanguage)

	res = env.run(t, "", "translate", "--to", "xx", "hola")
	assert.ErrorIs(t, res.err, pipeline.ErrUnsupportedLanguage)

	res = env.run(t, "   ", "translate", "--to", "en", "-")
	assert.ErrorIs(t, res.err, pipeline.ErrEmptyText)

	env.fake.SetFailing(true)
	res = env.run(t, "", "translate", "--to", "en", "hola amigo")
	require.Error(t, res.err)
	assert.True(t, translate.IsProviderError(res.err))
	assert.Equal(t, ExitError, ExitCode(res.err))
}

func TestTranslateCommand_NoProvider(t *testing.T) {
	env := &cliEnv{dir: t.TempDir()}
	path, err := testutil.WriteConfigFile(env.dir, testutil.ConfigOptions{})
	require.NoError(t, err)
	env.cfgPath = path

	res := env.run(t, "", "translate", "--to", "en", "hola amigo")
	assert.ErrorIs(t, res.err, pipeline.ErrNoTranslator)
}

func TestBatchCommand(t *testing.T) {
	env := newCLIEnv(t, testutil.ConfigOptions{})
	input := filepath.Join(env.dir, "phrases.txt")
	require.NoError(t, os.WriteFile(input, []byte("hola amigo\n\nnamaste dost\nbonjour mon ami\n"), 0o600))

	res := env.run(t, "", "batch", input, "--to", "en", "--quiet", "--format", "csv")
	require.NoError(t, res.err, res.stderr)

	lines := strings.Split(strings.TrimSpace(res.stdout), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[1], "[es>en] hola amigo")
	assert.Contains(t, lines[2], "[hi>en] namaste dost")
	assert.Contains(t, lines[3], "[fr>en] bonjour mon ami")
	assert.Equal(t, 3, env.fake.TranslateCalls())
}

func TestBatchCommand_OutputFileAndProgress(t *testing.T) {
	env := newCLIEnv(t, testutil.ConfigOptions{})
	a := filepath.Join(env.dir, "a.txt")
	b := filepath.Join(env.dir, "b.txt")
	require.NoError(t, os.WriteFile(a, []byte("hola amigo\n"), 0o600))
	require.NoError(t, os.WriteFile(b, []byte("Guten Tag, danke\n"), 0o600))
	out := filepath.Join(env.dir, "out.json")

	res := env.run(t, "", "batch", a, b, "--to", "fr", "--workers", "2", "--format", "json", "--output", out)
	require.NoError(t, res.err)
	assert.Empty(t, res.stdout)
	assert.Contains(t, res.stderr, "Translating ")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var parsed struct {
		Items []struct {
			Index  int              `json:"index"`
			Result *pipeline.Result `json:"result"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(data, &parsed))
	require.Len(t, parsed.Items, 2)
	assert.Equal(t, "[es>fr] hola amigo", parsed.Items[0].Result.TranslatedText)
	assert.Equal(t, "[de>fr] Guten Tag, danke", parsed.Items[1].Result.TranslatedText)
}

func TestBatchCommand_Failures(t *testing.T) {
	env := newCLIEnv(t, testutil.ConfigOptions{})
	input := filepath.Join(env.dir, "phrases.txt")
	require.NoError(t, os.WriteFile(input, []byte("hola amigo\nxyz123\n"), 0o600))

	// The ambiguous line fails the batch.
	res := env.run(t, "", "batch", input, "--to", "en", "--quiet", "--workers", "1")
	require.Error(t, res.err)
	assert.ErrorIs(t, res.err, resolve.ErrAmbiguous)

	res = env.run(t, "", "batch", input, "--to", "en", "--quiet", "--continue-on-error")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "[es>en] hola amigo")
	assert.Contains(t, res.stdout, "could not confidently detect language")

	res = env.run(t, "", "batch", filepath.Join(env.dir, "missing.txt"), "--to", "en")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "missing.txt")

	empty := filepath.Join(env.dir, "empty.txt")
	require.NoError(t, os.WriteFile(empty, []byte("\n  \n"), 0o600))
	res = env.run(t, "", "batch", empty, "--to", "en")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "no text found")

	res = env.run(t, "", "batch", input, "--to", "en", "--workers", "0")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "invalid workers")
}
