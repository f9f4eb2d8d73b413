package stt_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bmolabs/companion/pkg/stt"
)

func TestClient(t *testing.T) {
	ctx := context.Background()

	t.Run("requires a base URL", func(t *testing.T) {
		if _, err := stt.NewClient(""); !errors.Is(err, stt.ErrNoBaseURL) {
			t.Errorf("expected ErrNoBaseURL, got %v", err)
		}
	})

	t.Run("uploads audio and returns transcript", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/speech-to-text" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Errorf("expected multipart form: %v", err)
			}
			if _, _, err := r.FormFile("audio"); err != nil {
				t.Errorf("expected audio part: %v", err)
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"transcript": "افتح يوتيوب"}`))
		}))
		defer srv.Close()

		client, err := stt.NewClient(srv.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		text, err := client.Transcribe(ctx, []byte("webm-bytes"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if text != "افتح يوتيوب" {
			t.Errorf("unexpected transcript %q", text)
		}
	})

	t.Run("null transcript means no speech", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"transcript": null}`))
		}))
		defer srv.Close()

		client, _ := stt.NewClient(srv.URL)
		text, err := client.Transcribe(ctx, []byte("silence"))
		if err != nil {
			t.Fatalf("no-speech must not be an error, got %v", err)
		}
		if text != "" {
			t.Errorf("expected empty transcript, got %q", text)
		}
	})

	t.Run("empty payload is rejected", func(t *testing.T) {
		client, _ := stt.NewClient("http://localhost:1")
		if _, err := client.Transcribe(ctx, nil); !errors.Is(err, stt.ErrEmptyAudio) {
			t.Errorf("expected ErrEmptyAudio, got %v", err)
		}
	})

	t.Run("service failure surfaces as APIError", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "recognizer crashed", http.StatusInternalServerError)
		}))
		defer srv.Close()

		client, _ := stt.NewClient(srv.URL)
		_, err := client.Transcribe(ctx, []byte("audio"))

		var apiErr *stt.APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected APIError, got %v", err)
		}
		if !apiErr.IsServerError() {
			t.Errorf("expected server error, got %+v", apiErr)
		}
	})
}
