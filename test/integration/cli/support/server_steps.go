package support

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cucumber/godog"
	"github.com/gorilla/websocket"

	"github.com/MeKo-Tech/polyglot/internal/server"
)

// theServerIsRunning starts the server with default settings.
func (testCtx *TestContext) theServerIsRunning() error {
	return testCtx.createTestHTTPServer(serverOptions{})
}

// theServerIsRunningWithARateLimitOf starts the server with a per-minute limit.
func (testCtx *TestContext) theServerIsRunningWithARateLimitOf(perMinute int) error {
	return testCtx.createTestHTTPServer(serverOptions{
		rateLimit: server.RateLimitConfig{Enabled: true, RequestsPerMinute: perMinute},
	})
}

// theServerIsRunningWithADailyQuotaOf starts the server with a daily character quota.
func (testCtx *TestContext) theServerIsRunningWithADailyQuotaOf(chars int) error {
	return testCtx.createTestHTTPServer(serverOptions{
		rateLimit: server.RateLimitConfig{Enabled: true, MaxCharsPerDay: int64(chars)},
	})
}

func (testCtx *TestContext) doRequest(method, path, body string) error {
	if testCtx.HTTPTestServer == nil {
		return errors.New("server is not running")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, testCtx.GetServerURL()+path, reader)
	if err != nil {
		return err
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	testCtx.LastHTTPStatusCode = resp.StatusCode
	testCtx.LastHTTPResponse = string(data)
	testCtx.LastHTTPHeaders = map[string]string{}
	for name := range resp.Header {
		testCtx.LastHTTPHeaders[name] = resp.Header.Get(name)
	}
	return nil
}

// iGET sends a GET request.
func (testCtx *TestContext) iGET(path string) error {
	return testCtx.doRequest(http.MethodGet, path, "")
}

// iDELETE sends a DELETE request.
func (testCtx *TestContext) iDELETE(path string) error {
	return testCtx.doRequest(http.MethodDelete, path, "")
}

// iPOSTJSON sends the doc string as a JSON body.
func (testCtx *TestContext) iPOSTJSON(path string, body *godog.DocString) error {
	return testCtx.doRequest(http.MethodPost, path, body.Content)
}

// iMakeAnOPTIONSRequestTo sends a CORS preflight request.
func (testCtx *TestContext) iMakeAnOPTIONSRequestTo(path string) error {
	return testCtx.doRequest(http.MethodOptions, path, "")
}

// theResponseStatusShouldBe verifies the status code of the last response.
func (testCtx *TestContext) theResponseStatusShouldBe(status int) error {
	if testCtx.LastHTTPStatusCode != status {
		return fmt.Errorf("expected status %d, got %d\nBody: %s", status, testCtx.LastHTTPStatusCode, testCtx.LastHTTPResponse)
	}
	return nil
}

// theResponseShouldContain verifies the response body contains text.
func (testCtx *TestContext) theResponseShouldContain(text string) error {
	if !strings.Contains(testCtx.LastHTTPResponse, text) {
		return fmt.Errorf("response does not contain '%s'\nBody: %s", text, testCtx.LastHTTPResponse)
	}
	return nil
}

// theResponseShouldBeValidJSON verifies the response body is JSON.
func (testCtx *TestContext) theResponseShouldBeValidJSON() error {
	var js json.RawMessage
	if err := json.Unmarshal([]byte(testCtx.LastHTTPResponse), &js); err != nil {
		return fmt.Errorf("response is not valid JSON: %w\nBody: %s", err, testCtx.LastHTTPResponse)
	}
	return nil
}

// theResponseJSONFieldShouldBe compares a field of the JSON response.
func (testCtx *TestContext) theResponseJSONFieldShouldBe(field, expected string) error {
	return expectJSONField(testCtx.LastHTTPResponse, field, expected)
}

// theResponseHeaderShouldBe verifies a response header.
func (testCtx *TestContext) theResponseHeaderShouldBe(name, expected string) error {
	got := testCtx.LastHTTPHeaders[http.CanonicalHeaderKey(name)]
	if got != expected {
		return fmt.Errorf("header %s is %q, expected %q", name, got, expected)
	}
	return nil
}

// iTypeLiveInto sends keystroke-style updates over the live WebSocket and
// waits for the translation of the last one.
func (testCtx *TestContext) iTypeLiveInto(target string, table *godog.Table) error {
	if testCtx.HTTPTestServer == nil {
		return errors.New("server is not running")
	}
	url := "ws" + strings.TrimPrefix(testCtx.GetServerURL(), "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return fmt.Errorf("failed to open websocket: %w", err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	defer func() { _ = conn.Close() }()

	for _, row := range table.Rows {
		text := row.Cells[0].Value
		if err := conn.WriteJSON(server.WebSocketTextRequest{Type: "text", Text: text, Source: "auto", Target: target}); err != nil {
			return fmt.Errorf("failed to send %q: %w", text, err)
		}
	}

	if err := conn.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
		return err
	}
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("no translation received: %w", err)
		}
		var msg server.WebSocketResponse
		if err := json.Unmarshal(data, &msg); err != nil {
			return fmt.Errorf("invalid websocket message: %w", err)
		}
		if msg.Type == "translation" && msg.Generation == uint64(len(table.Rows)) {
			testCtx.LastHTTPResponse = string(data)
			return nil
		}
	}
}

// RegisterServerSteps registers the HTTP server steps.
func (testCtx *TestContext) RegisterServerSteps(sc *godog.ScenarioContext) {
	// Server lifecycle
	sc.Step(`^the server is running$`, testCtx.theServerIsRunning)
	sc.Step(`^the server is running with a rate limit of (\d+) requests per minute$`,
		testCtx.theServerIsRunningWithARateLimitOf)
	sc.Step(`^the server is running with a daily quota of (\d+) characters$`,
		testCtx.theServerIsRunningWithADailyQuotaOf)

	// Requests
	sc.Step(`^I GET "([^"]*)"$`, testCtx.iGET)
	sc.Step(`^I DELETE "([^"]*)"$`, testCtx.iDELETE)
	sc.Step(`^I POST to "([^"]*)" with JSON:$`, testCtx.iPOSTJSON)
	sc.Step(`^I make an OPTIONS request to "([^"]*)"$`, testCtx.iMakeAnOPTIONSRequestTo)
	sc.Step(`^I type live into "([^"]*)":$`, testCtx.iTypeLiveInto)

	// Responses
	sc.Step(`^the response status should be (\d+)$`, testCtx.theResponseStatusShouldBe)
	sc.Step(`^the response should contain "([^"]*)"$`, testCtx.theResponseShouldContain)
	sc.Step(`^the response should be valid JSON$`, testCtx.theResponseShouldBeValidJSON)
	sc.Step(`^the response JSON field "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseJSONFieldShouldBe)
	sc.Step(`^the response header "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseHeaderShouldBe)
}
