package cmd

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/polyglot/internal/testutil"
)

// cliEnv is a temporary working setup: a config file, a history database
// and, unless disabled, a fake translation service.
type cliEnv struct {
	dir     string
	cfgPath string
	fake    *testutil.FakeTranslator
}

func newCLIEnv(t *testing.T, opts testutil.ConfigOptions) *cliEnv {
	t.Helper()
	env := &cliEnv{dir: t.TempDir()}
	if opts.TranslatorURL == "" {
		env.fake = testutil.NewFakeTranslator()
		t.Cleanup(env.fake.Close)
		opts.TranslatorURL = env.fake.URL()
	}
	path, err := testutil.WriteConfigFile(env.dir, opts)
	require.NoError(t, err)
	env.cfgPath = path
	return env
}

type cliResult struct {
	stdout string
	stderr string
	err    error
}

// run executes a fresh command tree in-process.
func (e *cliEnv) run(t *testing.T, stdin string, args ...string) cliResult {
	t.Helper()
	root := NewRootCommand()
	var stdout, stderr bytes.Buffer
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--config", e.cfgPath}, args...))

	err := root.ExecuteContext(context.Background())
	return cliResult{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func stringsReader(s string) *strings.Reader { return strings.NewReader(s) }
