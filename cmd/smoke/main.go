package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorPurple = "\033[35m"
	colorCyan   = "\033[36m"
)

var sampleProfile = map[string]any{
	"category":  "cafe",
	"franchise": false,
	"new_store": true,
	"size":      "small",
	"age_band":  "20s",
	"segment":   "students",
}

type SmokeClient struct {
	baseURL  string
	question string
	client   *http.Client
}

func NewSmokeClient(baseURL, question string) *SmokeClient {
	return &SmokeClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		question: question,
		client: &http.Client{
			Timeout: 90 * time.Second,
		},
	}
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "Base URL of the advisor")
	testType := flag.String("test", "all", "Test type: all, health, agent-card, session, stream, a2a")
	question := flag.String("question", "What discount should I run this month?", "Follow-up question to ask")
	flag.Parse()

	client := NewSmokeClient(*baseURL, *question)

	printHeader("Franchise Marketing Advisor - Smoke Tests")
	fmt.Printf("%sBase URL: %s%s\n\n", colorCyan, *baseURL, colorReset)

	var ok bool
	switch *testType {
	case "all":
		client.runAllTests()
		return
	case "health":
		ok = client.testHealthCheck()
	case "agent-card":
		ok = client.testAgentCard()
	case "session":
		ok = client.testSession()
	case "stream":
		ok = client.testStream()
	case "a2a":
		ok = client.testA2A()
	default:
		printError(fmt.Sprintf("Unknown test type: %s", *testType))
		fmt.Println("\nAvailable tests: all, health, agent-card, session, stream, a2a")
		os.Exit(1)
	}
	if !ok {
		os.Exit(1)
	}
}

func (sc *SmokeClient) runAllTests() {
	tests := []struct {
		name string
		fn   func() bool
	}{
		{"Health Check", sc.testHealthCheck},
		{"Agent Card", sc.testAgentCard},
		{"REST Session", sc.testSession},
		{"Streaming Answer", sc.testStream},
		{"A2A Conversation", sc.testA2A},
	}

	passed := 0
	failed := 0

	for _, test := range tests {
		if test.fn() {
			passed++
		} else {
			failed++
		}
		fmt.Println()
	}

	printHeader("Test Summary")
	fmt.Printf("%sPassed: %d%s\n", colorGreen, passed, colorReset)
	fmt.Printf("%sFailed: %d%s\n", colorRed, failed, colorReset)
	fmt.Printf("Total: %d\n", passed+failed)

	if failed > 0 {
		os.Exit(1)
	}
}

func (sc *SmokeClient) testHealthCheck() bool {
	printTestHeader("Testing Health Check Endpoint")

	var health map[string]any
	status, body, err := sc.do(http.MethodGet, "/health", nil, &health)
	if err != nil {
		printError(err.Error())
		return false
	}
	if status != http.StatusOK {
		printError(fmt.Sprintf("Expected status 200, got %d", status))
		return false
	}
	if health["status"] != "ok" {
		printError(fmt.Sprintf("Expected status 'ok', got %v", health["status"]))
		return false
	}

	printSuccess("Health check passed")
	printJSON(body)
	return true
}

func (sc *SmokeClient) testAgentCard() bool {
	printTestHeader("Testing Agent Card Endpoint")

	var card map[string]any
	status, body, err := sc.do(http.MethodGet, "/.well-known/agent.json", nil, &card)
	if err != nil {
		printError(err.Error())
		return false
	}
	if status != http.StatusOK {
		printError(fmt.Sprintf("Expected status 200, got %d", status))
		fmt.Printf("Response: %s\n", string(body))
		return false
	}

	requiredFields := []string{"name", "description", "url", "version", "capabilities", "skills"}
	for _, field := range requiredFields {
		if _, ok := card[field]; !ok {
			printError(fmt.Sprintf("Missing required field: %s", field))
			return false
		}
	}

	printSuccess("Agent card is valid")
	printJSON(body)
	return true
}

func (sc *SmokeClient) createSession() (string, bool) {
	var created struct {
		SessionID string         `json:"session_id"`
		Persona   map[string]any `json:"persona"`
		Exact     bool           `json:"exact"`
	}
	status, body, err := sc.do(http.MethodPost, "/api/sessions", sampleProfile, &created)
	if err != nil {
		printError(err.Error())
		return "", false
	}
	if status != http.StatusCreated {
		printError(fmt.Sprintf("Expected status 201, got %d", status))
		fmt.Printf("Response: %s\n", string(body))
		return "", false
	}
	if created.SessionID == "" {
		printError("Response has no session_id")
		return "", false
	}
	printSuccess(fmt.Sprintf("Session %s created (exact match: %v)", created.SessionID, created.Exact))
	if desc, ok := created.Persona["description"].(string); ok {
		fmt.Printf("%sPersona:%s %s\n", colorPurple, colorReset, desc)
	}
	return created.SessionID, true
}

func (sc *SmokeClient) testSession() bool {
	printTestHeader("Testing REST Session Lifecycle")

	id, ok := sc.createSession()
	if !ok {
		return false
	}
	defer sc.do(http.MethodDelete, "/api/sessions/"+id, nil, nil)

	for _, q := range []string{"", sc.question} {
		var answer struct {
			Answer    string `json:"answer"`
			Suggested string `json:"suggested"`
		}
		status, body, err := sc.do(http.MethodPost, "/api/sessions/"+id+"/ask", map[string]string{"question": q}, &answer)
		if err != nil {
			printError(err.Error())
			return false
		}
		if status != http.StatusOK {
			printError(fmt.Sprintf("Ask %q: expected status 200, got %d", q, status))
			fmt.Printf("Response: %s\n", string(body))
			return false
		}
		label := "Opening Strategy"
		if q != "" {
			label = "Answer to: " + q
		}
		printBlock(label, answer.Answer)
		if answer.Suggested != "" {
			fmt.Printf("Suggested follow-up: %s\n", answer.Suggested)
		}
	}

	var detail struct {
		History []map[string]any `json:"history"`
	}
	status, _, err := sc.do(http.MethodGet, "/api/sessions/"+id, nil, &detail)
	if err != nil || status != http.StatusOK {
		printError(fmt.Sprintf("Fetching session failed: status %d, %v", status, err))
		return false
	}
	if len(detail.History) != 2 {
		printError(fmt.Sprintf("Expected 2 exchanges in history, got %d", len(detail.History)))
		return false
	}

	printSuccess("Session answered and kept its history")
	return true
}

func (sc *SmokeClient) testStream() bool {
	printTestHeader("Testing Streaming Answer")

	id, ok := sc.createSession()
	if !ok {
		return false
	}
	defer sc.do(http.MethodDelete, "/api/sessions/"+id, nil, nil)

	payload, _ := json.Marshal(map[string]string{"question": sc.question})
	url := sc.baseURL + "/api/sessions/" + id + "/ask/stream"
	fmt.Printf("POST %s\n", url)

	resp, err := sc.client.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		printError(fmt.Sprintf("Request failed: %v", err))
		return false
	}
	defer resp.Body.Close()

	chunks := 0
	event := ""
	fmt.Println(strings.Repeat("=", 80))
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data := strings.TrimPrefix(line, "data:")
			switch event {
			case "chunk":
				chunks++
				fmt.Print(data)
			case "error":
				fmt.Println()
				printError("Stream ended with an error: " + data)
				return false
			}
		}
	}
	fmt.Println()
	fmt.Println(strings.Repeat("=", 80))
	if err := scanner.Err(); err != nil {
		printError(fmt.Sprintf("Reading stream failed: %v", err))
		return false
	}
	if event != "done" {
		printError(fmt.Sprintf("Expected a final 'done' event, last event was %q", event))
		return false
	}

	printSuccess(fmt.Sprintf("Received %d chunks", chunks))
	return true
}

func (sc *SmokeClient) testA2A() bool {
	printTestHeader("Testing A2A Conversation")

	profile, _ := json.Marshal(sampleProfile)

	first := []map[string]any{{"kind": "data", "data": json.RawMessage(profile)}}
	contextID, ok := sc.sendA2A("", first, "Opening Strategy")
	if !ok {
		return false
	}
	followUp := []map[string]any{{"kind": "text", "text": sc.question}}
	next, ok := sc.sendA2A(contextID, followUp, "Answer to: "+sc.question)
	if !ok {
		return false
	}
	if next != contextID {
		printError(fmt.Sprintf("Expected contextId %s, got %s", contextID, next))
		return false
	}

	printSuccess("A2A conversation completed on one context")
	return true
}

// sendA2A sends one message/send turn and returns the contextId the advisor answered on.
func (sc *SmokeClient) sendA2A(contextID string, parts []map[string]any, label string) (string, bool) {
	request := map[string]any{
		"jsonrpc": "2.0",
		"id":      fmt.Sprintf("smoke-%d", time.Now().UnixNano()),
		"method":  "message/send",
		"params": map[string]any{
			"message": map[string]any{
				"kind":      "message",
				"role":      "user",
				"messageId": uuid.NewString(),
				"contextId": contextID,
				"parts":     parts,
			},
			"configuration": map[string]any{
				"blocking":            true,
				"acceptedOutputModes": []string{"text/markdown"},
			},
		},
	}

	var response struct {
		Result *struct {
			ContextID string `json:"contextId"`
			Status    struct {
				State   string `json:"state"`
				Message *struct {
					Parts []struct {
						Text string `json:"text"`
					} `json:"parts"`
				} `json:"message"`
			} `json:"status"`
			Artifacts []map[string]any `json:"artifacts"`
		} `json:"result"`
		Error map[string]any `json:"error"`
	}
	status, body, err := sc.do(http.MethodPost, "/a2a/advisor", request, &response)
	if err != nil {
		printError(err.Error())
		return "", false
	}
	if status != http.StatusOK {
		printError(fmt.Sprintf("Expected status 200, got %d", status))
		fmt.Printf("Response: %s\n", string(body))
		return "", false
	}
	if response.Error != nil {
		printError("Request returned an error")
		errJSON, _ := json.MarshalIndent(response.Error, "", "  ")
		fmt.Println(string(errJSON))
		return "", false
	}
	if response.Result == nil {
		printError("Invalid result format")
		return "", false
	}
	if state := response.Result.Status.State; state != "completed" {
		printError(fmt.Sprintf("Expected state 'completed', got '%s'", state))
		printJSON(body)
		return "", false
	}
	if response.Result.ContextID == "" {
		printError("Response has no contextId")
		return "", false
	}

	var text strings.Builder
	if msg := response.Result.Status.Message; msg != nil {
		for _, p := range msg.Parts {
			text.WriteString(p.Text)
		}
	}
	printBlock(label, text.String())
	if len(response.Result.Artifacts) > 0 {
		fmt.Printf("%sArtifacts:%s %d\n", colorPurple, colorReset, len(response.Result.Artifacts))
	}
	return response.Result.ContextID, true
}

// do sends an optional JSON body and decodes a JSON response into out when out is non-nil.
func (sc *SmokeClient) do(method, path string, in, out any) (int, []byte, error) {
	url := sc.baseURL + path
	fmt.Printf("%s %s\n", method, url)

	var reader io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return 0, nil, fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		return 0, nil, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := sc.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("reading response: %w", err)
	}
	if out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return resp.StatusCode, body, fmt.Errorf("invalid JSON response: %w", err)
		}
	}
	return resp.StatusCode, body, nil
}

func printHeader(text string) {
	fmt.Printf("\n%s%s%s\n", colorBlue, strings.Repeat("=", len(text)+4), colorReset)
	fmt.Printf("%s= %s =%s\n", colorBlue, text, colorReset)
	fmt.Printf("%s%s%s\n\n", colorBlue, strings.Repeat("=", len(text)+4), colorReset)
}

func printTestHeader(text string) {
	fmt.Printf("%s[TEST] %s%s\n", colorCyan, text, colorReset)
	fmt.Println(strings.Repeat("-", 80))
}

func printBlock(label, text string) {
	fmt.Printf("\n%s%s:%s\n", colorGreen, label, colorReset)
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println(text)
	fmt.Println(strings.Repeat("=", 80))
}

func printSuccess(text string) {
	fmt.Printf("%s✓ %s%s\n", colorGreen, text, colorReset)
}

func printError(text string) {
	fmt.Printf("%s✗ %s%s\n", colorRed, text, colorReset)
}

func printJSON(data []byte) {
	var prettyJSON bytes.Buffer
	if err := json.Indent(&prettyJSON, data, "", "  "); err == nil {
		fmt.Printf("\n%sResponse:%s\n%s\n", colorYellow, colorReset, prettyJSON.String())
	}
}
