package support

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/MeKo-Tech/polyglot/internal/testutil"
)

// TestContext holds the state for integration tests.
type TestContext struct {
	// Command execution state
	LastCommand  string
	LastStdout   string
	LastStderr   string
	LastOutput   string
	LastError    error
	LastExitCode int
	LastDuration time.Duration

	// Test environment
	TempDir    string
	ConfigPath string
	ConfigOpts testutil.ConfigOptions
	Translator *testutil.FakeTranslator
	// NoTranslator leaves the translator unconfigured.
	NoTranslator bool
	savedEnv     map[string]*string

	// Server state
	HTTPTestServer *HTTPTestServerWrapper

	// HTTP response state
	LastHTTPStatusCode int
	LastHTTPResponse   string
	LastHTTPHeaders    map[string]string

	// Test artifacts
	CreatedFiles []string
}

// NewTestContext creates a new test context with its own temporary directory.
func NewTestContext() (*TestContext, error) {
	tempDir, err := os.MkdirTemp("", "polyglot-test-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}

	return &TestContext{
		TempDir:         tempDir,
		savedEnv:        map[string]*string{},
		LastHTTPHeaders: map[string]string{},
	}, nil
}

// Cleanup stops servers, restores the environment and removes temporary files.
func (testCtx *TestContext) Cleanup() error {
	var errs []error

	if err := testCtx.StopServer(); err != nil {
		errs = append(errs, fmt.Errorf("failed to stop server: %w", err))
	}
	if testCtx.Translator != nil {
		testCtx.Translator.Close()
		testCtx.Translator = nil
	}

	for name, old := range testCtx.savedEnv {
		var err error
		if old == nil {
			err = os.Unsetenv(name)
		} else {
			err = os.Setenv(name, *old)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to restore %s: %w", name, err))
		}
	}
	testCtx.savedEnv = map[string]*string{}

	for _, file := range testCtx.CreatedFiles {
		if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("failed to remove file %s: %w", file, err))
		}
	}

	if err := os.RemoveAll(testCtx.TempDir); err != nil && !os.IsNotExist(err) {
		errs = append(errs, fmt.Errorf("failed to remove temp directory %s: %w", testCtx.TempDir, err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("cleanup errors: %v", errs)
	}
	return nil
}

// SetEnv sets an environment variable for the rest of the scenario. The
// previous value comes back in Cleanup.
func (testCtx *TestContext) SetEnv(name, value string) error {
	if _, saved := testCtx.savedEnv[name]; !saved {
		if old, ok := os.LookupEnv(name); ok {
			testCtx.savedEnv[name] = &old
		} else {
			testCtx.savedEnv[name] = nil
		}
	}
	return os.Setenv(name, value)
}

// TrackFile adds a file to be cleaned up after the scenario.
func (testCtx *TestContext) TrackFile(filename string) {
	testCtx.CreatedFiles = append(testCtx.CreatedFiles, filename)
}

// TempPath returns an absolute path inside the scenario's temp directory.
func (testCtx *TestContext) TempPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(testCtx.TempDir, name)
}

// ensureTranslator starts the fake translation service on first use.
func (testCtx *TestContext) ensureTranslator() *testutil.FakeTranslator {
	if testCtx.Translator == nil {
		testCtx.Translator = testutil.NewFakeTranslator()
		testCtx.ConfigOpts.TranslatorURL = testCtx.Translator.URL()
	}
	return testCtx.Translator
}

// writeConfig (re)writes the scenario's configuration file from ConfigOpts.
func (testCtx *TestContext) writeConfig() error {
	path, err := testutil.WriteConfigFile(testCtx.TempDir, testCtx.ConfigOpts)
	if err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	testCtx.ConfigPath = path
	return nil
}
