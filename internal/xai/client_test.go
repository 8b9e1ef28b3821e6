package xai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestParseResponse(t *testing.T) {
	body := []byte(`{"id":"x","choices":[{"message":{"role":"assistant","content":"## Profile\nCTO at Example."}}]}`)
	c, err := parseResponse(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Text != "## Profile\nCTO at Example." {
		t.Errorf("Text = %q", c.Text)
	}
	if c.Fallback {
		t.Error("Fallback should be false when content is present")
	}
	if string(c.Raw) != string(body) {
		t.Error("Raw should keep the response body")
	}
}

func TestParseResponse_NoChoicesFallsBack(t *testing.T) {
	body := []byte("{\n  \"id\": \"abc\",\n  \"object\": \"chat.completion\"\n}")
	c, err := parseResponse(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !c.Fallback {
		t.Error("expected Fallback")
	}
	if c.Text != `{"id":"abc","object":"chat.completion"}` {
		t.Errorf("Text = %q", c.Text)
	}
}

func TestParseResponse_EmptyContentFallsBack(t *testing.T) {
	body := []byte(`{"choices":[{"message":{"role":"assistant","content":""}}]}`)
	c, err := parseResponse(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !c.Fallback || c.Text != string(body) {
		t.Errorf("got Fallback=%v Text=%q", c.Fallback, c.Text)
	}
}

func TestParseResponse_UnexpectedShapesFallBack(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"choices is a string", `{"choices": "none"}`, `{"choices":"none"}`},
		{"top-level array", `[]`, `[]`},
		{"top-level string", `"done"`, `"done"`},
		{"choice is not an object", `{"choices":[1]}`, `{"choices":[1]}`},
		{"message missing", `{"choices":[{}]}`, `{"choices":[{}]}`},
		{"content parts array", `{"choices":[{"message":{"content":[{"type":"text","text":"hi"}]}}]}`,
			`{"choices":[{"message":{"content":[{"type":"text","text":"hi"}]}}]}`},
		{"content null", `{"choices":[{"message":{"content":null}}]}`, `{"choices":[{"message":{"content":null}}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := parseResponse([]byte(tt.body))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !c.Fallback || c.Text != tt.want {
				t.Errorf("got Fallback=%v Text=%q, want fallback %q", c.Fallback, c.Text, tt.want)
			}
		})
	}
}

func TestParseResponse_BadJSON(t *testing.T) {
	if _, err := parseResponse([]byte("not json at all")); err == nil {
		t.Fatal("expected error for bad JSON")
	}
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient("k", Options{})
	if c.baseURL != DefaultBaseURL {
		t.Errorf("baseURL = %q", c.baseURL)
	}
	if c.Model() != "grok-3-latest" {
		t.Errorf("model = %q", c.Model())
	}
	if c.searchMode != SearchOn {
		t.Errorf("searchMode = %q", c.searchMode)
	}
	if c.httpClient.Timeout != 0 {
		t.Errorf("timeout = %v, want none", c.httpClient.Timeout)
	}
}

func TestValidSearchMode(t *testing.T) {
	for mode, want := range map[string]bool{"on": true, "auto": true, "off": false, "": false, "ON": false} {
		if got := ValidSearchMode(mode); got != want {
			t.Errorf("ValidSearchMode(%q) = %v, want %v", mode, got, want)
		}
	}
}

func TestComplete_MockServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method: got %s, want POST", r.Method)
		}
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path: got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key-123" {
			t.Errorf("auth: got %q", r.Header.Get("Authorization"))
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("content-type: got %q", r.Header.Get("Content-Type"))
		}

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "grok-3-latest" {
			t.Errorf("model: got %q", req.Model)
		}
		if req.SearchParameters.Mode != "auto" {
			t.Errorf("search mode: got %q", req.SearchParameters.Mode)
		}
		if len(req.Messages) != 1 || req.Messages[0].Role != "user" || req.Messages[0].Content != "T\n企業名: Acme\ndomain: acme.com\n" {
			t.Errorf("messages: got %+v", req.Messages)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Acme makes anvils."}}]}`))
	}))
	defer server.Close()

	c := NewClient("test-key-123", Options{BaseURL: server.URL + "/v1/", SearchMode: SearchAuto})
	got, err := c.Complete(context.Background(), "T\n企業名: Acme\ndomain: acme.com\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Text != "Acme makes anvils." {
		t.Errorf("Text = %q", got.Text)
	}
}

func TestComplete_RawBodyShape(t *testing.T) {
	var raw map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&raw)
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer server.Close()

	c := NewClient("k", Options{BaseURL: server.URL})
	if _, err := c.Complete(context.Background(), "hi"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, key := range []string{"messages", "search_parameters", "model"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("request body missing %q: %v", key, raw)
		}
	}
	sp, _ := raw["search_parameters"].(map[string]any)
	if sp["mode"] != "on" {
		t.Errorf("search_parameters = %v", raw["search_parameters"])
	}
}

func TestComplete_Unauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid api key"}`))
	}))
	defer server.Close()

	c := NewClient("bad-key", Options{BaseURL: server.URL})
	_, err := c.Complete(context.Background(), "test")
	if err == nil {
		t.Fatal("expected error for 401")
	}
	if !strings.Contains(err.Error(), "401") {
		t.Errorf("error should mention status code: %v", err)
	}

	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StatusError, got %T", err)
	}
	if se.StatusCode != http.StatusUnauthorized || !strings.Contains(se.Body, "invalid api key") {
		t.Errorf("StatusError = %+v", se)
	}
}

func TestComplete_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	c := NewClient("k", Options{BaseURL: server.URL})
	_, err := c.Complete(context.Background(), "test")
	if err == nil || err.Error() != "request failed: status 429" {
		t.Errorf("got %v", err)
	}
}

func TestComplete_ContextCancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	c := NewClient("k", Options{BaseURL: server.URL})
	if _, err := c.Complete(ctx, "test"); err == nil {
		t.Fatal("expected timeout error")
	}
}
