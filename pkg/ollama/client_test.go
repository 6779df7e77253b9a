package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ollama/ollama/api"
)

func newTestServer(t *testing.T, reply string, seen *api.ChatRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		if seen != nil {
			if err := json.NewDecoder(r.Body).Decode(seen); err != nil {
				t.Errorf("decode request: %v", err)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(api.ChatResponse{
			Model:   "test",
			Message: api.Message{Role: "assistant", Content: reply},
			Done:    true,
		})
	}))
}

func TestNewClientInvalidURL(t *testing.T) {
	if _, err := NewClient("not a url"); err == nil {
		t.Error("expected error for URL without scheme and host")
	}
}

func TestLocateSubject(t *testing.T) {
	var seen api.ChatRequest
	server := newTestServer(t, `{"primary":{"label":"boat","confidence":0.8,"box":{"x":0.1,"y":0.5,"w":0.2,"h":0.2},"cx":0.2,"cy":0.6}}`, &seen)
	defer server.Close()

	c, err := NewClient(server.URL + "/api/chat")
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	s, err := c.LocateSubject(context.Background(), "minicpm-v", "where?", []byte{0xff, 0xd8})
	if err != nil {
		t.Fatalf("LocateSubject failed: %v", err)
	}
	if s.Label != "boat" || s.Cx != 0.2 || s.Cy != 0.6 {
		t.Errorf("unexpected subject %+v", s)
	}

	if seen.Model != "minicpm-v" || len(seen.Messages) != 1 || len(seen.Messages[0].Images) != 1 {
		t.Errorf("unexpected request %+v", seen)
	}
	if seen.Options["num_ctx"] != float64(4096) {
		t.Errorf("expected num_ctx option for minicpm-v, got %v", seen.Options["num_ctx"])
	}
}

func TestDescribe(t *testing.T) {
	server := newTestServer(t, "A quiet harbour at dusk.", nil)
	defer server.Close()

	c, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	got, err := c.Describe(context.Background(), "llava", "describe", nil)
	if err != nil {
		t.Fatalf("Describe failed: %v", err)
	}
	if got != "A quiet harbour at dusk." {
		t.Errorf("unexpected description %q", got)
	}
}

func TestLocateSubjectEmptyReply(t *testing.T) {
	server := newTestServer(t, "  ", nil)
	defer server.Close()

	c, _ := NewClient(server.URL)
	if _, err := c.LocateSubject(context.Background(), "llava", "where?", nil); err == nil {
		t.Error("expected error for empty reply")
	}
}
