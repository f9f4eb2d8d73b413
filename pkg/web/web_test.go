package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/bmolabs/companion/pkg/avatar"
	"github.com/bmolabs/companion/pkg/capture"
	"github.com/bmolabs/companion/pkg/dialogue"
	"github.com/bmolabs/companion/pkg/hub"
	"github.com/bmolabs/companion/pkg/session"
	"github.com/bmolabs/companion/pkg/stt"
	"github.com/bmolabs/companion/pkg/turn"
)

func newTestServer(t *testing.T, provider dialogue.Provider) *Server {
	t.Helper()

	store := session.NewJSONStore(filepath.Join(t.TempDir(), "session.json"))
	sessions := session.NewManager(store, nil)
	face := avatar.NewState()
	orchestrator, err := turn.NewOrchestrator(sessions, provider, turn.WithAvatar(face))
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}

	syncHub := hub.New("sync", nil)
	go syncHub.Run()

	return NewServer("0", orchestrator, sessions, face, syncHub)
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.app.Test(req, int(5*time.Second/time.Millisecond))
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func TestChatEndpoint(t *testing.T) {
	t.Run("returns the assistant reply", func(t *testing.T) {
		s := newTestServer(t, dialogue.NewMock("أهلا بيك!"))

		resp := doJSON(t, s, "POST", "/api/chat", ChatRequest{Message: "hello"})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}

		var out TurnResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if out.Reply != "أهلا بيك!" {
			t.Errorf("reply = %q", out.Reply)
		}
		if out.Emotion == "" {
			t.Error("reply should carry a stamped emotion")
		}
	})

	t.Run("empty message is a bad request", func(t *testing.T) {
		s := newTestServer(t, dialogue.NewMock("ok"))
		resp := doJSON(t, s, "POST", "/api/chat", ChatRequest{Message: "  "})
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})

	t.Run("concurrent turn is a conflict", func(t *testing.T) {
		hold := make(chan struct{})
		provider := &dialogue.Mock{
			ConverseFunc: func(ctx context.Context, q dialogue.Query) (*dialogue.Reply, error) {
				<-hold
				return &dialogue.Reply{Text: "ok"}, nil
			},
		}
		s := newTestServer(t, provider)

		done := make(chan struct{})
		go func() {
			defer close(done)
			doJSON(t, s, "POST", "/api/chat", ChatRequest{Message: "first"})
		}()

		deadline := time.After(2 * time.Second)
		for s.orchestrator.State() != turn.AwaitingReply {
			select {
			case <-deadline:
				t.Fatal("first turn never started")
			case <-time.After(time.Millisecond):
			}
		}

		resp := doJSON(t, s, "POST", "/api/chat", ChatRequest{Message: "second"})
		if resp.StatusCode != http.StatusConflict {
			t.Errorf("status = %d, want 409", resp.StatusCode)
		}

		close(hold)
		<-done
	})
}

func TestSessionEndpoints(t *testing.T) {
	t.Run("onboarding greets and validates", func(t *testing.T) {
		s := newTestServer(t, dialogue.NewMock("ok"))

		resp := doJSON(t, s, "POST", "/api/name", NameRequest{Name: "Yasmine"})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		var out struct {
			Session  session.Session `json:"session"`
			Greeting string          `json:"greeting"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if out.Session.UserName != "Yasmine" {
			t.Errorf("name = %q", out.Session.UserName)
		}
		if out.Greeting == "" {
			t.Error("expected a greeting message")
		}

		resp = doJSON(t, s, "POST", "/api/name", NameRequest{Name: ""})
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("empty name status = %d, want 400", resp.StatusCode)
		}
	})

	t.Run("renaming without logout is a conflict", func(t *testing.T) {
		s := newTestServer(t, dialogue.NewMock("ok"))
		doJSON(t, s, "POST", "/api/name", NameRequest{Name: "Amira"})

		resp := doJSON(t, s, "POST", "/api/name", NameRequest{Name: "Karim"})
		if resp.StatusCode != http.StatusConflict {
			t.Errorf("status = %d, want 409", resp.StatusCode)
		}
		if s.sessions.Session().UserName != "Amira" {
			t.Errorf("name = %q, want Amira", s.sessions.Session().UserName)
		}

		doJSON(t, s, "POST", "/api/logout", nil)
		resp = doJSON(t, s, "POST", "/api/name", NameRequest{Name: "Karim"})
		if resp.StatusCode != http.StatusOK {
			t.Errorf("status after logout = %d, want 200", resp.StatusCode)
		}
	})

	t.Run("session state round trip", func(t *testing.T) {
		s := newTestServer(t, dialogue.NewMock("ok"))
		doJSON(t, s, "POST", "/api/chat", ChatRequest{Message: "hello"})

		resp := doJSON(t, s, "GET", "/api/session", nil)
		var state session.State
		if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(state.Messages) != 2 {
			t.Errorf("messages = %d, want 2", len(state.Messages))
		}
		if state.Session.ID == "" {
			t.Error("missing session id")
		}
	})

	t.Run("clear keeps identity, logout replaces it", func(t *testing.T) {
		s := newTestServer(t, dialogue.NewMock("ok"))
		doJSON(t, s, "POST", "/api/chat", ChatRequest{Message: "hello"})
		originalID := s.sessions.Session().ID

		resp := doJSON(t, s, "DELETE", "/api/history", nil)
		if resp.StatusCode != http.StatusNoContent {
			t.Errorf("clear status = %d", resp.StatusCode)
		}
		if s.sessions.MessageCount() != 0 {
			t.Error("history should be empty after clear")
		}
		if s.sessions.Session().ID != originalID {
			t.Error("clear must keep the session identity")
		}

		doJSON(t, s, "POST", "/api/logout", nil)
		if s.sessions.Session().ID == originalID {
			t.Error("logout must fabricate a new identity")
		}
	})
}

func TestCaptureEndpoints(t *testing.T) {
	store := session.NewJSONStore(filepath.Join(t.TempDir(), "session.json"))
	sessions := session.NewManager(store, nil)
	face := avatar.NewState()
	orchestrator, err := turn.NewOrchestrator(sessions, dialogue.NewMock("سمعتك!"),
		turn.WithAvatar(face),
		turn.WithTranscriber(stt.NewMock("افتح يوتيوب")),
	)
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}

	syncHub := hub.New("sync", nil)
	go syncHub.Run()

	device := capture.NewStreamDevice()
	s := NewServer("0", orchestrator, sessions, face, syncHub,
		WithCapture(capture.New(device, nil), device))

	t.Run("start chunk stop runs a voice turn", func(t *testing.T) {
		if resp := doJSON(t, s, "POST", "/api/capture/start", nil); resp.StatusCode != http.StatusNoContent {
			t.Fatalf("start status = %d", resp.StatusCode)
		}

		req := httptest.NewRequest("POST", "/api/capture/chunk", bytes.NewReader([]byte{1, 2, 3}))
		resp, err := s.app.Test(req, int(5*time.Second/time.Millisecond))
		if err != nil {
			t.Fatalf("chunk: %v", err)
		}
		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("chunk status = %d", resp.StatusCode)
		}

		resp = doJSON(t, s, "POST", "/api/capture/stop", nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("stop status = %d", resp.StatusCode)
		}
		var out TurnResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if out.Reply != "سمعتك!" {
			t.Errorf("reply = %q", out.Reply)
		}
	})

	t.Run("stop without start is a quiet no-op", func(t *testing.T) {
		resp := doJSON(t, s, "POST", "/api/capture/stop", nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		var out TurnResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if !out.NoSpeech {
			t.Error("expected a no-speech outcome")
		}
	})

	t.Run("chunk without capture is a conflict", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/capture/chunk", bytes.NewReader([]byte{1}))
		resp, err := s.app.Test(req, int(5*time.Second/time.Millisecond))
		if err != nil {
			t.Fatalf("chunk: %v", err)
		}
		if resp.StatusCode != http.StatusConflict {
			t.Errorf("status = %d, want 409", resp.StatusCode)
		}
	})
}

func TestAvatarEndpoint(t *testing.T) {
	s := newTestServer(t, dialogue.NewMock("that makes me feel sad"))
	doJSON(t, s, "POST", "/api/chat", ChatRequest{Message: "bad news"})

	resp := doJSON(t, s, "GET", "/api/avatar", nil)
	var out struct {
		Mood string `json:"mood"`
		Face string `json:"face"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Mood != "sad" {
		t.Errorf("mood = %q, want sad", out.Mood)
	}
	if out.Face == "" {
		t.Error("missing face asset")
	}
}
