package cmd

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/polyglot/internal/resolve"
	"github.com/MeKo-Tech/polyglot/internal/testutil"
)

func TestDetectCommand(t *testing.T) {
	env := newCLIEnv(t, testutil.ConfigOptions{})

	tests := []struct {
		name  string
		stdin string
		args  []string
		want  string
	}{
		{name: "romanized hindi", args: []string{"namaste", "dost"}, want: "hi\n"},
		{name: "cyrillic", args: []string{"Привет"}, want: "ru\n"},
		{name: "kana", args: []string{"こんにちは"}, want: "ja\n"},
		{name: "spanish words", args: []string{"hola amigo"}, want: "es\n"},
		{name: "stdin dash", stdin: "Guten Tag, danke\n", args: []string{"-"}, want: "de\n"},
		{name: "stdin without args", stdin: "bonjour mon ami", want: "fr\n"},
		{name: "unknown falls back to english", args: []string{"xyz123"}, want: "en\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := env.run(t, tt.stdin, append([]string{"detect"}, tt.args...)...)
			require.NoError(t, res.err)
			assert.Equal(t, tt.want, res.stdout)
		})
	}
	assert.Zero(t, env.fake.DetectCalls(), "plain detect never calls the remote service")
}

func TestDetectCommand_Explain(t *testing.T) {
	env := newCLIEnv(t, testutil.ConfigOptions{})

	res := env.run(t, "", "detect", "--explain", "bonjour mon ami")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "French (fr)")
	assert.Contains(t, res.stdout, "latin")
	assert.Contains(t, res.stdout, "latin/fr")
}

func TestDetectCommand_JSON(t *testing.T) {
	env := newCLIEnv(t, testutil.ConfigOptions{})

	res := env.run(t, "", "detect", "--format", "json", "kya haal hai")
	require.NoError(t, res.err)

	var out struct {
		Language struct {
			Code string `json:"code"`
		} `json:"language"`
		Tier string `json:"tier"`
		Rule string `json:"rule"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &out))
	assert.Equal(t, "hi", out.Language.Code)
	assert.Equal(t, "transliteration", out.Tier)
	assert.Equal(t, "hi/vocabulary", out.Rule)
}

func TestDetectCommand_ResolveRemote(t *testing.T) {
	env := newCLIEnv(t, testutil.ConfigOptions{})
	env.fake.Detects("goedemorgen", "nl")

	res := env.run(t, "", "detect", "--resolve", "--explain", "goedemorgen")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Dutch (nl)")
	assert.Contains(t, res.stdout, "method:")
	assert.Contains(t, res.stdout, "remote")
	assert.Equal(t, 1, env.fake.DetectCalls())
}

func TestDetectCommand_ResolveSkipsRemoteWhenARuleFires(t *testing.T) {
	env := newCLIEnv(t, testutil.ConfigOptions{})

	res := env.run(t, "", "detect", "--resolve", "namaste dost")
	require.NoError(t, res.err)
	assert.Equal(t, "hi\n", res.stdout)

	res = env.run(t, "", "detect", "--resolve", "hello how are you")
	require.NoError(t, res.err)
	assert.Equal(t, "en\n", res.stdout)

	assert.Zero(t, env.fake.DetectCalls())
}

func TestDetectCommand_Ambiguous(t *testing.T) {
	env := newCLIEnv(t, testutil.ConfigOptions{})

	res := env.run(t, "", "detect", "--resolve", "xyz123")
	require.Error(t, res.err)
	assert.ErrorIs(t, res.err, resolve.ErrAmbiguous)
	assert.Equal(t, ExitAmbiguous, ExitCode(res.err))
	assert.Equal(t, "en (ambiguous)\n", res.stdout)
	assert.Equal(t, 1, env.fake.DetectCalls())

	res = env.run(t, "", "detect", "--resolve", "--format", "json", "xyz123")
	require.Error(t, res.err)
	assert.Contains(t, res.stdout, `"ambiguous": true`)
	assert.Contains(t, res.stdout, `"method": "fallback"`)
}

func TestDetectCommand_AmbiguousWithoutRemote(t *testing.T) {
	env := newCLIEnv(t, testutil.ConfigOptions{RemoteProvider: "none"})

	res := env.run(t, "", "detect", "--resolve", "xyz123")
	assert.ErrorIs(t, res.err, resolve.ErrAmbiguous)
	assert.Zero(t, env.fake.DetectCalls())
}

func TestDetectCommand_Rules(t *testing.T) {
	env := newCLIEnv(t, testutil.ConfigOptions{})

	res := env.run(t, "", "detect", "--rules")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "transliteration")
	assert.Contains(t, res.stdout, "script/devanagari")
	assert.Contains(t, res.stdout, "latin/es")
	assert.Contains(t, res.stdout, "default")
}

func TestDetectCommand_BadFormat(t *testing.T) {
	env := newCLIEnv(t, testutil.ConfigOptions{})

	res := env.run(t, "", "detect", "--format", "csv", "hola")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "unsupported format")
}
