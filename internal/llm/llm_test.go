package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pavelanni/survey/internal/llm/prompts"

	openai "github.com/sashabaranov/go-openai"
)

const table = "submitted_at,name,age\n2024-05-01 10:00:00,Kim,25\n"

// newTestServer serves the chat-completions endpoint with handle and records
// the last request body.
func newTestServer(t *testing.T, handle http.HandlerFunc) (*httptest.Server, *openai.ChatCompletionRequest) {
	t.Helper()
	var last openai.ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&last); err != nil {
			t.Errorf("decode request: %v", err)
		}
		handle(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &last
}

func writeCompletion(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
		ID:     "chatcmpl-test",
		Object: "chat.completion",
		Model:  "test-model",
		Choices: []openai.ChatCompletionChoice{{
			Index:        0,
			Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content},
			FinishReason: openai.FinishReasonStop,
		}},
	})
}

func TestSummarizeMissingKey(t *testing.T) {
	c := New("http://127.0.0.1:1", "", "m")
	if c.Enabled() {
		t.Fatal("client without key should be disabled")
	}
	got := c.Summarize(context.Background(), table, 1)
	if got.OK || got.Text != MissingKeyMessage {
		t.Errorf("Summarize() = %+v, want missing-key message", got)
	}
}

func TestSummarizeNoData(t *testing.T) {
	called := false
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
		writeCompletion(w, "x")
	})
	c := New(srv.URL, "key", "m")
	got := c.Summarize(context.Background(), "name\n", 0)
	if got.OK || got.Text != NoDataMessage {
		t.Errorf("Summarize() = %+v, want no-data message", got)
	}
	if called {
		t.Error("service should not be called for an empty store")
	}
}

func TestSummarizeSuccess(t *testing.T) {
	srv, last := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer key" {
			t.Errorf("Authorization = %q", got)
		}
		writeCompletion(w, "  One respondent, aged 25.  ")
	})

	c := New(srv.URL, "key", "test-model")
	got := c.Summarize(context.Background(), table, 1)
	if !got.OK {
		t.Fatalf("Summarize() failed: %s", got.Text)
	}
	if got.Text != "One respondent, aged 25." {
		t.Errorf("Text = %q", got.Text)
	}

	if last.Model != "test-model" {
		t.Errorf("model = %q", last.Model)
	}
	if len(last.Messages) != 2 {
		t.Fatalf("request has %d messages, want 2", len(last.Messages))
	}
	if last.Messages[0].Role != openai.ChatMessageRoleSystem || last.Messages[0].Content != prompts.SystemInstruction {
		t.Errorf("system message = %+v", last.Messages[0])
	}
	if last.Messages[1].Role != openai.ChatMessageRoleUser || !strings.Contains(last.Messages[1].Content, "Kim,25") {
		t.Errorf("user message should carry the data dump: %q", last.Messages[1].Content)
	}
}

func TestSummarizeServiceError(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"upstream exploded","type":"server_error"}}`))
	})

	c := New(srv.URL, "key", "m")
	got := c.Summarize(context.Background(), table, 1)
	if got.OK {
		t.Fatal("Summarize() should report failure")
	}
	if !strings.HasPrefix(got.Text, failurePrefix) {
		t.Errorf("Text = %q, want failure prefix", got.Text)
	}
	if !strings.Contains(got.Text, "upstream exploded") {
		t.Errorf("Text should include the error detail: %q", got.Text)
	}
}

func TestSummarizeNoChoices(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[]}`))
	})

	c := New(srv.URL, "key", "m")
	got := c.Summarize(context.Background(), table, 1)
	if got.OK || !strings.Contains(got.Text, "no choices") {
		t.Errorf("Summarize() = %+v, want no-choices failure", got)
	}
}

func TestSummarizeCanceledContext(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeCompletion(w, "late")
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := New(srv.URL, "key", "m").Summarize(ctx, table, 1)
	if got.OK {
		t.Error("canceled request should not succeed")
	}
}
