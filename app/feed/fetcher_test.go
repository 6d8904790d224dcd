package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestFetcherHeaders(t *testing.T) {
	var gotUserAgent, gotAccept string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserAgent = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		w.Write([]byte("<rss></rss>"))
	}))
	defer server.Close()

	fetcher := NewFetcher(server.Client(), "RegWatch/1.0")
	data, err := fetcher.Run(context.Background(), server.URL, 5*time.Second)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if string(data) != "<rss></rss>" {
		t.Errorf("Unexpected body: %s", data)
	}

	if gotUserAgent != "RegWatch/1.0" {
		t.Errorf("Expected User-Agent 'RegWatch/1.0', got %q", gotUserAgent)
	}
	if !strings.Contains(gotAccept, "application/rss+xml") || !strings.Contains(gotAccept, "application/atom+xml") {
		t.Errorf("Expected feed mime types in Accept header, got %q", gotAccept)
	}
}

func TestFetcherNonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	fetcher := NewFetcher(server.Client(), "RegWatch/1.0")
	_, err := fetcher.Run(context.Background(), server.URL, 5*time.Second)
	if err == nil {
		t.Fatal("Expected error for 404 response")
	}

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("Expected FetchError, got: %T", err)
	}
	if fetchErr.Status != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", fetchErr.Status)
	}
	if fetchErr.URL != server.URL {
		t.Errorf("Expected URL %q, got %q", server.URL, fetchErr.URL)
	}
}

func TestFetcherTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer server.Close()

	fetcher := NewFetcher(server.Client(), "RegWatch/1.0")
	_, err := fetcher.Run(context.Background(), server.URL, 50*time.Millisecond)
	if err == nil {
		t.Fatal("Expected timeout error")
	}

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("Expected FetchError, got: %T", err)
	}
}
