package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

// fakeOpenAI answers every request with status and body and counts hits.
func fakeOpenAI(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestOpenAIGenerate(t *testing.T) {
	srv, hits := fakeOpenAI(t, http.StatusOK, `{"id":"c1","object":"chat.completion","created":1,"model":"m",
		"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"Try a student-hour discount"}}]}`)

	o, err := NewOpenAIClient("key", srv.URL, Options{Model: "m"})
	if err != nil {
		t.Fatal(err)
	}
	got, err := o.Generate(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "Try a student-hour discount" || hits.Load() != 1 {
		t.Fatalf("got %q after %d requests", got, hits.Load())
	}
}

func TestOpenAIFailuresAreNotRetried(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"service unavailable", http.StatusServiceUnavailable, ErrUnavailable},
		{"rate limited", http.StatusTooManyRequests, ErrRejected},
		{"bad key", http.StatusUnauthorized, ErrRejected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, hits := fakeOpenAI(t, tt.status, `{"error":{"message":"nope","type":"server_error"}}`)
			o, err := NewOpenAIClient("key", srv.URL, Options{Model: "m"})
			if err != nil {
				t.Fatal(err)
			}
			_, err = o.Generate(context.Background(), "hello")
			if !errors.Is(err, tt.want) {
				t.Fatalf("status %d: expected %v, got %v", tt.status, tt.want, err)
			}
			if n := hits.Load(); n != 1 {
				t.Fatalf("expected exactly one request, got %d", n)
			}
		})
	}
}

func TestOpenAIGenerateStream(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "text/event-stream")
		for _, piece := range []string{"Try a ", "student-hour ", "discount"} {
			fmt.Fprintf(w, "data: {\"id\":\"c1\",\"object\":\"chat.completion.chunk\",\"created\":1,\"model\":\"m\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", piece)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	t.Cleanup(srv.Close)

	o, err := NewOpenAIClient("key", srv.URL, Options{Model: "m"})
	if err != nil {
		t.Fatal(err)
	}
	var chunks []string
	full, err := o.GenerateStream(context.Background(), "hello", func(s string) error {
		chunks = append(chunks, s)
		return nil
	})
	if err != nil {
		t.Fatalf("GenerateStream: %v", err)
	}
	if full != "Try a student-hour discount" || len(chunks) != 3 || hits.Load() != 1 {
		t.Fatalf("full=%q chunks=%q hits=%d", full, chunks, hits.Load())
	}
}
