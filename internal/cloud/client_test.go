// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func staticKey(k string) KeyFunc {
	return func() string { return k }
}

// streamHandler writes the given SSE lines, flushing after each.
func streamHandler(t *testing.T, lines ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); !strings.HasPrefix(got, "Bearer ") {
			t.Errorf("missing bearer header: %q", got)
		}
		var body chatRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if !body.Stream {
			t.Error("request did not ask for streaming")
		}

		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, line := range lines {
			fmt.Fprint(w, line)
			flusher.Flush()
		}
	}
}

func TestStreamChat_HappyPath(t *testing.T) {
	srv := httptest.NewServer(streamHandler(t,
		event("Well "),
		event("done."),
		"\n",
		"data: [DONE]\n",
	))
	defer srv.Close()

	client := NewClient(staticKey("sk-test"), WithBaseURL(srv.URL))

	var chunks []string
	completed := 0
	client.StreamChat(
		[]ChatMessage{{Role: "user", Content: "hi"}},
		func(s string) { chunks = append(chunks, s) },
		func() { completed++ },
		func(err error) { t.Fatalf("unexpected error: %v", err) },
	)

	if got := strings.Join(chunks, ""); got != "Well done." {
		t.Errorf("content = %q, want %q", got, "Well done.")
	}
	if completed != 1 {
		t.Errorf("onComplete fired %d times, want exactly 1", completed)
	}
}

func TestStreamChat_NoKeyFailsFast(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("request reached the API without a credential")
	}))
	defer srv.Close()

	client := NewClient(staticKey(""), WithBaseURL(srv.URL))

	var gotErr error
	client.StreamChat(nil,
		func(string) { t.Error("chunk without credential") },
		func() { t.Error("completion without credential") },
		func(err error) { gotErr = err },
	)
	if !errors.Is(gotErr, ErrNoAPIKey) {
		t.Errorf("err = %v, want ErrNoAPIKey", gotErr)
	}
}

func TestStreamChat_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClient(staticKey("sk-wrong"), WithBaseURL(srv.URL))

	var gotErr error
	client.StreamChat(nil, func(string) {}, func() { t.Error("completed on 401") },
		func(err error) { gotErr = err })
	if !errors.Is(gotErr, ErrInvalidAPIKey) {
		t.Errorf("err = %v, want ErrInvalidAPIKey", gotErr)
	}
}

func TestStreamChat_ProtocolError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(staticKey("sk-test"), WithBaseURL(srv.URL))

	var gotErr error
	client.StreamChat(nil, func(string) {}, func() { t.Error("completed on 503") },
		func(err error) { gotErr = err })

	var statusErr *StatusError
	if !errors.As(gotErr, &statusErr) {
		t.Fatalf("err = %T, want *StatusError", gotErr)
	}
	if statusErr.Status != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", statusErr.Status)
	}
	if !strings.Contains(statusErr.Body, "overloaded") {
		t.Errorf("diagnostic body lost: %q", statusErr.Body)
	}
}

func TestStreamChat_TransportError(t *testing.T) {
	// Nothing listens here.
	client := NewClient(staticKey("sk-test"), WithBaseURL("http://127.0.0.1:1"))

	var gotErr error
	client.StreamChat(nil, func(string) {}, func() { t.Error("completed on dead host") },
		func(err error) { gotErr = err })

	var transportErr *TransportError
	if !errors.As(gotErr, &transportErr) {
		t.Fatalf("err = %T, want *TransportError", gotErr)
	}
	if !strings.Contains(gotErr.Error(), "CORS") {
		t.Error("transport guidance does not mention the same-origin case")
	}
}

func TestStreamChat_SupersedingCancelsSilently(t *testing.T) {
	release := make(chan struct{})
	firstStarted := make(chan struct{})
	var reqCount int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		if atomic.AddInt32(&reqCount, 1) == 1 {
			// First request: emit one chunk, then hang until the
			// test finishes.
			fmt.Fprint(w, event("first"))
			flusher.Flush()
			close(firstStarted)
			<-release
			return
		}
		fmt.Fprint(w, event("second")+"data: [DONE]\n")
		flusher.Flush()
	}))
	defer srv.Close()
	defer close(release)

	client := NewClient(staticKey("sk-test"), WithBaseURL(srv.URL))

	var mu sync.Mutex
	var firstChunks []string
	firstEnded := false

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		client.StreamChat(nil,
			func(s string) { mu.Lock(); firstChunks = append(firstChunks, s); mu.Unlock() },
			func() { mu.Lock(); firstEnded = true; mu.Unlock() },
			func(err error) { mu.Lock(); firstEnded = true; mu.Unlock() },
		)
	}()

	<-firstStarted

	// Second request supersedes the first.
	var secondContent string
	var secondDone bool
	client.StreamChat(nil,
		func(s string) { secondContent += s },
		func() { secondDone = true },
		func(err error) { t.Errorf("second stream error: %v", err) },
	)

	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if firstEnded {
		t.Error("superseded stream invoked onComplete or onError")
	}
	if len(firstChunks) > 1 {
		t.Errorf("superseded stream kept emitting: %v", firstChunks)
	}
	if !secondDone || secondContent != "second" {
		t.Errorf("second stream: done=%v content=%q", secondDone, secondContent)
	}
}

func TestAbort_Silent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		fmt.Fprint(w, event("partial"))
		flusher.Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	client := NewClient(staticKey("sk-test"), WithBaseURL(srv.URL))

	got := make(chan string, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		client.StreamChat(nil,
			func(s string) {
				select {
				case got <- s:
				default:
				}
			},
			func() { t.Error("onComplete after abort") },
			func(err error) { t.Errorf("onError after abort: %v", err) },
		)
	}()

	// Wait for the stream to start delivering, then abort.
	select {
	case <-got:
	case <-time.After(5 * time.Second):
		t.Fatal("stream never started")
	}
	client.Abort()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("aborted stream did not return")
	}
}

func TestStreamChatAccumulate(t *testing.T) {
	srv := httptest.NewServer(streamHandler(t,
		event("one "), event("two"), "data: [DONE]\n"))
	defer srv.Close()

	client := NewClient(staticKey("sk-test"), WithBaseURL(srv.URL))
	full, err := client.StreamChatAccumulate([]ChatMessage{{Role: "user", Content: "go"}}, nil)
	if err != nil {
		t.Fatalf("StreamChatAccumulate failed: %v", err)
	}
	if full != "one two" {
		t.Errorf("full = %q, want %q", full, "one two")
	}
}
