package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dooshek/duologue/internal/types"
)

// sseServer streams chunks as chat.completion.chunk events. A negative
// stallAfter never stalls; otherwise the stream hangs after that many chunks.
func sseServer(t *testing.T, chunks []string, stallAfter int, got *map[string]interface{}) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got != nil {
			json.NewDecoder(r.Body).Decode(got)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)

		for i, c := range chunks {
			if i == stallAfter {
				<-r.Context().Done()
				return
			}
			payload, _ := json.Marshal(map[string]interface{}{
				"id":      "chatcmpl-1",
				"object":  "chat.completion.chunk",
				"created": 1,
				"model":   "test-model",
				"choices": []map[string]interface{}{
					{"index": 0, "delta": map[string]string{"content": c}},
				},
			})
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
		flusher.Flush()
	}))
}

func testLLMConfig(url string) types.LLMConfig {
	return types.LLMConfig{
		APIKey:             "key",
		BaseURL:            url + "/v1",
		Model:              "test-model",
		Temperature:        0.7,
		IdleTimeoutSeconds: 5,
	}
}

func TestConvertStoryStreams(t *testing.T) {
	var req map[string]interface{}
	srv := sseServer(t, []string{"[Guest]Once", " upon a time.", "\n[Host]Go on!"}, -1, &req)
	defer srv.Close()

	cfg := testLLMConfig(srv.URL)
	s := NewScripter(NewOpenAIProvider(cfg), cfg)

	var chunks []string
	text, err := s.ConvertStory(context.Background(), "A story.", "", func(c string) { chunks = append(chunks, c) })
	if err != nil {
		t.Fatal(err)
	}
	if text != "[Guest]Once upon a time.\n[Host]Go on!" {
		t.Errorf("text = %q", text)
	}
	if len(chunks) != 3 {
		t.Errorf("got %d chunks, want 3", len(chunks))
	}
	if req["model"] != "test-model" || req["stream"] != true {
		t.Errorf("request = %v", req)
	}
	msgs, _ := req["messages"].([]interface{})
	if len(msgs) != 2 {
		t.Fatalf("messages = %v", req["messages"])
	}
	system := msgs[0].(map[string]interface{})["content"].(string)
	if !strings.Contains(system, "[Host]") {
		t.Errorf("system prompt does not describe the tag format")
	}
}

func TestStreamIdleTimeoutKeepsPartial(t *testing.T) {
	srv := sseServer(t, []string{"[Host]Part", "ial", "never sent"}, 2, nil)
	defer srv.Close()

	p := NewOpenAIProvider(testLLMConfig(srv.URL))
	p.SetIdleTimeout(200 * time.Millisecond)
	s := NewScripter(p, testLLMConfig(srv.URL))

	text, err := s.Translate(context.Background(), "[Host]Cześć", "English", nil)
	if !errors.Is(err, ErrIdleTimeout) {
		t.Fatalf("error = %v, want ErrIdleTimeout", err)
	}
	if text != "[Host]Partial" {
		t.Errorf("partial text = %q", text)
	}
}

func TestRunRejectsEmptyInput(t *testing.T) {
	s := NewScripter(NewOpenAIProvider(types.LLMConfig{APIKey: "k"}), types.LLMConfig{})
	if _, err := s.ConvertStory(context.Background(), "  ", "", nil); err == nil {
		t.Error("expected error for empty story")
	}
}

func TestNewProviderRequiresKey(t *testing.T) {
	if _, err := NewProvider(types.LLMConfig{}); err == nil {
		t.Error("expected error without API key")
	}
}
