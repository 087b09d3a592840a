package support

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/polyglot/cmd/polyglot/cmd"
)

// substituteCommandVariables expands placeholders in a step's command line.
func (testCtx *TestContext) substituteCommandVariables(command string) string {
	return strings.ReplaceAll(command, "{tmp}", testCtx.TempDir)
}

// splitArgs splits a command line on spaces. Single quotes group words.
func splitArgs(command string) ([]string, error) {
	var (
		args    []string
		current strings.Builder
		inQuote bool
		started bool
	)
	for _, r := range command {
		switch {
		case r == '\'':
			inQuote = !inQuote
			started = true
		case r == ' ' && !inQuote:
			if started {
				args = append(args, current.String())
				current.Reset()
				started = false
			}
		default:
			current.WriteRune(r)
			started = true
		}
	}
	if inQuote {
		return nil, fmt.Errorf("unterminated quote in %q", command)
	}
	if started {
		args = append(args, current.String())
	}
	return args, nil
}

// iRunCommand runs a polyglot command line in-process.
func (testCtx *TestContext) iRunCommand(command string) error {
	return testCtx.iRunCommandWithInput(command, "")
}

// iRunCommandWithInput runs a polyglot command line with the given stdin.
func (testCtx *TestContext) iRunCommandWithInput(command, input string) error {
	command = testCtx.substituteCommandVariables(command)
	testCtx.LastCommand = command

	parts, err := splitArgs(command)
	if err != nil {
		return err
	}
	if len(parts) == 0 || parts[0] != "polyglot" {
		return fmt.Errorf("commands must start with polyglot: %q", command)
	}

	if !testCtx.NoTranslator {
		testCtx.ensureTranslator()
	}
	if err := testCtx.writeConfig(); err != nil {
		return err
	}

	args := parts[1:]
	if !contains(args, "--config") {
		args = append([]string{"--config", testCtx.ConfigPath}, args...)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	root := cmd.NewRootCommand()
	var stdout, stderr bytes.Buffer
	root.SetIn(strings.NewReader(input))
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)

	start := time.Now()
	runErr := root.ExecuteContext(ctx)
	testCtx.LastDuration = time.Since(start)
	if runErr != nil {
		fmt.Fprintln(&stderr, "Error:", runErr)
	}

	testCtx.LastStdout = stdout.String()
	testCtx.LastStderr = stderr.String()
	testCtx.LastOutput = testCtx.LastStdout + testCtx.LastStderr
	testCtx.LastError = runErr
	testCtx.LastExitCode = cmd.ExitCode(runErr)
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// theCommandShouldSucceed verifies the command succeeded.
func (testCtx *TestContext) theCommandShouldSucceed() error {
	if testCtx.LastExitCode != 0 {
		return fmt.Errorf("command failed with exit code %d: %w\nOutput: %s",
			testCtx.LastExitCode, testCtx.LastError, testCtx.LastOutput)
	}
	return nil
}

// theCommandShouldFail verifies the command failed.
func (testCtx *TestContext) theCommandShouldFail() error {
	if testCtx.LastExitCode == 0 {
		return fmt.Errorf("command succeeded when it should have failed\nOutput: %s", testCtx.LastOutput)
	}
	return nil
}

// theExitCodeShouldBe verifies the exit code the binary would return.
func (testCtx *TestContext) theExitCodeShouldBe(code int) error {
	if testCtx.LastExitCode != code {
		return fmt.Errorf("expected exit code %d, got %d\nOutput: %s", code, testCtx.LastExitCode, testCtx.LastOutput)
	}
	return nil
}

// theOutputShouldContain verifies the output contains specific text.
func (testCtx *TestContext) theOutputShouldContain(expectedText string) error {
	if !strings.Contains(testCtx.LastOutput, expectedText) {
		return fmt.Errorf("output does not contain '%s'\nActual output: %s", expectedText, testCtx.LastOutput)
	}
	return nil
}

// theOutputShouldNotContain verifies the output lacks specific text.
func (testCtx *TestContext) theOutputShouldNotContain(text string) error {
	if strings.Contains(testCtx.LastOutput, text) {
		return fmt.Errorf("output unexpectedly contains '%s'\nActual output: %s", text, testCtx.LastOutput)
	}
	return nil
}

// theOutputShouldBe compares stdout without surrounding whitespace.
func (testCtx *TestContext) theOutputShouldBe(expected string) error {
	if got := strings.TrimSpace(testCtx.LastStdout); got != expected {
		return fmt.Errorf("expected output %q, got %q", expected, got)
	}
	return nil
}

// theOutputShouldBeValidJSON verifies stdout is valid JSON.
func (testCtx *TestContext) theOutputShouldBeValidJSON() error {
	var js json.RawMessage
	if err := json.Unmarshal([]byte(testCtx.LastStdout), &js); err != nil {
		return fmt.Errorf("output is not valid JSON: %w\nOutput: %s", err, testCtx.LastStdout)
	}
	return nil
}

// theJSONShouldContain verifies the JSON output has a field.
func (testCtx *TestContext) theJSONShouldContain(field string) error {
	if err := testCtx.theOutputShouldBeValidJSON(); err != nil {
		return err
	}
	_, err := jsonField(testCtx.LastStdout, field)
	return err
}

// theJSONFieldShouldBe compares a JSON field's value rendered as text.
func (testCtx *TestContext) theJSONFieldShouldBe(field, expected string) error {
	return expectJSONField(testCtx.LastStdout, field, expected)
}

func expectJSONField(doc, field, expected string) error {
	v, err := jsonField(doc, field)
	if err != nil {
		return err
	}
	if got := renderJSONValue(v); got != expected {
		return fmt.Errorf("field '%s' is %q, expected %q", field, got, expected)
	}
	return nil
}

// jsonField resolves a dotted path such as "items.0.result.source.code".
func jsonField(doc, field string) (interface{}, error) {
	var current interface{}
	if err := json.Unmarshal([]byte(doc), &current); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	parts := strings.Split(field, ".")
	for i, part := range parts {
		path := strings.Join(parts[:i+1], ".")
		switch node := current.(type) {
		case map[string]interface{}:
			val, ok := node[part]
			if !ok {
				return nil, fmt.Errorf("field '%s' not found in JSON", path)
			}
			current = val
		case []interface{}:
			idx, err := strconv.Atoi(part)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, fmt.Errorf("field '%s' is not a valid array index", path)
			}
			current = node[idx]
		default:
			return nil, fmt.Errorf("cannot navigate deeper into non-object field '%s'", path)
		}
	}
	return current, nil
}

func renderJSONValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case nil:
		return "null"
	case map[string]interface{}, []interface{}:
		b, _ := json.Marshal(val)
		return string(b)
	default:
		return fmt.Sprint(val)
	}
}

// theErrorShouldMention verifies the error message contains specific text.
func (testCtx *TestContext) theErrorShouldMention(errorText string) error {
	if testCtx.LastError == nil {
		return fmt.Errorf("no error occurred, but expected error containing '%s'", errorText)
	}
	fullErrorText := testCtx.LastStderr + " " + testCtx.LastError.Error()
	if !strings.Contains(strings.ToLower(fullErrorText), strings.ToLower(errorText)) {
		return fmt.Errorf("error does not contain '%s'\nActual error: %s", errorText, fullErrorText)
	}
	return nil
}

// aTranslationServiceIsRunning starts the fake translation service.
func (testCtx *TestContext) aTranslationServiceIsRunning() error {
	testCtx.NoTranslator = false
	testCtx.ensureTranslator()
	return nil
}

// theTranslationServiceDetects registers a remote detection answer.
func (testCtx *TestContext) theTranslationServiceDetects(text, code string) error {
	testCtx.ensureTranslator().Detects(text, code)
	return nil
}

// theTranslationServiceIsFailing makes every translation fail.
func (testCtx *TestContext) theTranslationServiceIsFailing() error {
	testCtx.ensureTranslator().SetFailing(true)
	return nil
}

// noTranslationServiceIsConfigured configures provider "none".
func (testCtx *TestContext) noTranslationServiceIsConfigured() error {
	testCtx.NoTranslator = true
	testCtx.ConfigOpts.TranslatorURL = ""
	return nil
}

func (testCtx *TestContext) translationHistoryIsDisabled() error {
	testCtx.ConfigOpts.HistoryDisabled = true
	return nil
}

func (testCtx *TestContext) theRemoteDetectorIs(name string) error {
	testCtx.ConfigOpts.RemoteProvider = name
	return nil
}

func (testCtx *TestContext) theConfiguredOutputFormatIs(format string) error {
	testCtx.ConfigOpts.Format = format
	return nil
}

// theServiceShouldHaveReceived checks the fake service's call counters.
func (testCtx *TestContext) theServiceShouldHaveReceived(n int, kind string) error {
	if testCtx.Translator == nil {
		return errors.New("no translation service is running")
	}
	got := testCtx.Translator.TranslateCalls()
	if kind == "detection" {
		got = testCtx.Translator.DetectCalls()
	}
	if got != n {
		return fmt.Errorf("expected %d %s requests, got %d", n, kind, got)
	}
	return nil
}

// theEnvironmentVariableIsSetTo sets an environment variable for the scenario.
func (testCtx *TestContext) theEnvironmentVariableIsSetTo(name, value string) error {
	return testCtx.SetEnv(name, testCtx.substituteCommandVariables(value))
}

// aFileContaining writes a file into the scenario's temp directory.
func (testCtx *TestContext) aFileContaining(name string, content *godog.DocString) error {
	path := testCtx.TempPath(name)
	if err := os.WriteFile(path, []byte(content.Content+"\n"), 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	testCtx.TrackFile(path)
	return nil
}

// theFileShouldExist verifies a file exists.
func (testCtx *TestContext) theFileShouldExist(name string) error {
	path := testCtx.TempPath(testCtx.substituteCommandVariables(name))
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("file %s does not exist: %w", path, err)
	}
	return nil
}

// theFileShouldContain verifies a file's content.
func (testCtx *TestContext) theFileShouldContain(name, content string) error {
	path := testCtx.TempPath(testCtx.substituteCommandVariables(name))
	data, err := os.ReadFile(path) //nolint:gosec // G304: scenario temp file
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if !strings.Contains(string(data), content) {
		return fmt.Errorf("file %s does not contain '%s'\nContent: %s", path, content, data)
	}
	return nil
}

// RegisterCommonSteps registers the command and environment steps.
func (testCtx *TestContext) RegisterCommonSteps(sc *godog.ScenarioContext) {
	// Environment
	sc.Step(`^a translation service is running$`, testCtx.aTranslationServiceIsRunning)
	sc.Step(`^the translation service detects "([^"]*)" as "([^"]*)"$`, testCtx.theTranslationServiceDetects)
	sc.Step(`^the translation service is failing$`, testCtx.theTranslationServiceIsFailing)
	sc.Step(`^no translation service is configured$`, testCtx.noTranslationServiceIsConfigured)
	sc.Step(`^translation history is disabled$`, testCtx.translationHistoryIsDisabled)
	sc.Step(`^the remote detector is "([^"]*)"$`, testCtx.theRemoteDetectorIs)
	sc.Step(`^the configured output format is "([^"]*)"$`, testCtx.theConfiguredOutputFormatIs)
	sc.Step(`^the environment variable "([^"]*)" is set to "([^"]*)"$`, testCtx.theEnvironmentVariableIsSetTo)
	sc.Step(`^a file "([^"]*)" containing:$`, testCtx.aFileContaining)

	// Commands
	sc.Step(`^I run "([^"]*)"$`, testCtx.iRunCommand)
	sc.Step(`^I run "([^"]*)" with input "([^"]*)"$`, testCtx.iRunCommandWithInput)

	// Outcome
	sc.Step(`^the command should succeed$`, testCtx.theCommandShouldSucceed)
	sc.Step(`^the command should fail$`, testCtx.theCommandShouldFail)
	sc.Step(`^the exit code should be (\d+)$`, testCtx.theExitCodeShouldBe)
	sc.Step(`^the output should contain "([^"]*)"$`, testCtx.theOutputShouldContain)
	sc.Step(`^the output should not contain "([^"]*)"$`, testCtx.theOutputShouldNotContain)
	sc.Step(`^the output should be "([^"]*)"$`, testCtx.theOutputShouldBe)
	sc.Step(`^the output should be valid JSON$`, testCtx.theOutputShouldBeValidJSON)
	sc.Step(`^the JSON should contain "([^"]*)"$`, testCtx.theJSONShouldContain)
	sc.Step(`^the JSON field "([^"]*)" should be "([^"]*)"$`, testCtx.theJSONFieldShouldBe)
	sc.Step(`^the error should mention "([^"]*)"$`, testCtx.theErrorShouldMention)
	sc.Step(`^the translation service should have received (\d+) (translation|detection) requests?$`,
		testCtx.theServiceShouldHaveReceived)

	// Files
	sc.Step(`^the file "([^"]*)" should exist$`, testCtx.theFileShouldExist)
	sc.Step(`^the file "([^"]*)" should contain "([^"]*)"$`, testCtx.theFileShouldContain)
}
