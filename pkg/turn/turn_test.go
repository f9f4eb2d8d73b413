package turn

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/bmolabs/companion/pkg/avatar"
	"github.com/bmolabs/companion/pkg/dialogue"
	"github.com/bmolabs/companion/pkg/mood"
	"github.com/bmolabs/companion/pkg/session"
	"github.com/bmolabs/companion/pkg/stt"
)

func newSessions(t *testing.T) *session.Manager {
	t.Helper()
	store := session.NewJSONStore(filepath.Join(t.TempDir(), "session.json"))
	return session.NewManager(store, nil)
}

func TestSubmitText(t *testing.T) {
	t.Run("appends user then assistant in turn order", func(t *testing.T) {
		sessions := newSessions(t)
		o, err := NewOrchestrator(sessions, dialogue.NewMock("I am so happy for you!"))
		if err != nil {
			t.Fatalf("NewOrchestrator: %v", err)
		}

		if err := o.SubmitText(context.Background(), "hello"); err != nil {
			t.Fatalf("SubmitText: %v", err)
		}
		if err := o.SubmitText(context.Background(), "again"); err != nil {
			t.Fatalf("SubmitText: %v", err)
		}

		msgs := sessions.Messages()
		if len(msgs) != 4 {
			t.Fatalf("messages = %d, want 4", len(msgs))
		}
		wantRoles := []session.Role{session.RoleUser, session.RoleAssistant, session.RoleUser, session.RoleAssistant}
		for i, want := range wantRoles {
			if msgs[i].Role != want {
				t.Errorf("message %d role = %q, want %q", i, msgs[i].Role, want)
			}
		}
		if msgs[0].TurnID != 1 || msgs[1].TurnID != 1 || msgs[2].TurnID != 2 || msgs[3].TurnID != 2 {
			t.Errorf("turn ids = %d %d %d %d", msgs[0].TurnID, msgs[1].TurnID, msgs[2].TurnID, msgs[3].TurnID)
		}
	})

	t.Run("stamps reply emotion on reconcile", func(t *testing.T) {
		sessions := newSessions(t)
		face := avatar.NewState()
		o, _ := NewOrchestrator(sessions, dialogue.NewMock("that makes me feel sad honestly"), WithAvatar(face))

		if err := o.SubmitText(context.Background(), "bad news"); err != nil {
			t.Fatalf("SubmitText: %v", err)
		}

		msgs := sessions.Messages()
		if msgs[1].Emotion != mood.Sad {
			t.Errorf("emotion = %q, want sad", msgs[1].Emotion)
		}
		if face.Current() != mood.Sad {
			t.Errorf("avatar = %q, want sad", face.Current())
		}
	})

	t.Run("rejects while a turn is active without touching the store", func(t *testing.T) {
		sessions := newSessions(t)
		hold := make(chan struct{})
		provider := &dialogue.Mock{
			ConverseFunc: func(ctx context.Context, q dialogue.Query) (*dialogue.Reply, error) {
				<-hold
				return &dialogue.Reply{Text: "ok"}, nil
			},
		}
		o, _ := NewOrchestrator(sessions, provider)

		done := make(chan error, 1)
		go func() { done <- o.SubmitText(context.Background(), "first") }()

		// Wait for the first turn to reach the dialogue call.
		deadline := time.After(2 * time.Second)
		for o.State() != AwaitingReply {
			select {
			case <-deadline:
				t.Fatal("turn never reached awaiting_reply")
			case <-time.After(time.Millisecond):
			}
		}
		before := sessions.MessageCount()

		if err := o.SubmitText(context.Background(), "second"); !errors.Is(err, ErrTurnInProgress) {
			t.Fatalf("err = %v, want ErrTurnInProgress", err)
		}
		if sessions.MessageCount() != before {
			t.Error("rejected submission mutated the store")
		}

		close(hold)
		if err := <-done; err != nil {
			t.Fatalf("first turn: %v", err)
		}
		if o.State() != Idle {
			t.Errorf("state = %v, want idle", o.State())
		}
	})

	t.Run("dialogue failure appends fallback and returns nil", func(t *testing.T) {
		sessions := newSessions(t)
		face := avatar.NewState()
		provider := dialogue.NewMock("").WithError(errors.New("service down"))
		o, _ := NewOrchestrator(sessions, provider, WithAvatar(face))

		if err := o.SubmitText(context.Background(), "hello"); err != nil {
			t.Fatalf("SubmitText: %v", err)
		}

		msgs := sessions.Messages()
		if len(msgs) != 2 {
			t.Fatalf("messages = %d, want 2", len(msgs))
		}
		if msgs[0].Role != session.RoleUser || msgs[0].Content != "hello" {
			t.Errorf("user message = %+v", msgs[0])
		}
		if msgs[1].Content != fallbackReply {
			t.Errorf("fallback = %q", msgs[1].Content)
		}
		if msgs[1].Emotion != mood.Nervous {
			t.Errorf("emotion = %q, want nervous", msgs[1].Emotion)
		}
		if face.Current() != mood.Nervous {
			t.Errorf("avatar = %q, want nervous", face.Current())
		}
	})

	t.Run("hint used only without an analyzer", func(t *testing.T) {
		sessions := newSessions(t)
		provider := &dialogue.Mock{
			ConverseFunc: func(ctx context.Context, q dialogue.Query) (*dialogue.Reply, error) {
				return &dialogue.Reply{Text: "that makes me feel sad", EmotionHint: "tired"}, nil
			},
		}
		o, _ := NewOrchestrator(sessions, provider, WithAnalyzer(nil))

		if err := o.SubmitText(context.Background(), "hello"); err != nil {
			t.Fatalf("SubmitText: %v", err)
		}
		if got := sessions.Messages()[1].Emotion; got != mood.Tired {
			t.Errorf("emotion = %q, want tired (hint)", got)
		}
	})

	t.Run("blank input rejected", func(t *testing.T) {
		o, _ := NewOrchestrator(newSessions(t), dialogue.NewMock("ok"))
		if err := o.SubmitText(context.Background(), "   "); !errors.Is(err, ErrEmptyInput) {
			t.Errorf("err = %v, want ErrEmptyInput", err)
		}
	})

	t.Run("forwards session identity and history", func(t *testing.T) {
		sessions := newSessions(t)
		var got dialogue.Query
		provider := &dialogue.Mock{
			ConverseFunc: func(ctx context.Context, q dialogue.Query) (*dialogue.Reply, error) {
				got = q
				return &dialogue.Reply{Text: "ok"}, nil
			},
		}
		o, _ := NewOrchestrator(sessions, provider)
		if _, err := o.Onboard(context.Background(), "Yasmine"); err != nil {
			t.Fatalf("Onboard: %v", err)
		}

		if err := o.SubmitText(context.Background(), "hello"); err != nil {
			t.Fatalf("SubmitText: %v", err)
		}
		if got.UserName != "Yasmine" {
			t.Errorf("user name = %q", got.UserName)
		}
		if got.SessionID != sessions.Session().ID {
			t.Errorf("session id = %q", got.SessionID)
		}
		// The welcome greeting is prior history by the time the first
		// real turn runs.
		if len(got.History) != 1 {
			t.Errorf("history = %d, want 1", len(got.History))
		}
	})
}

func TestSubmitVoice(t *testing.T) {
	t.Run("transcript drives a full turn", func(t *testing.T) {
		sessions := newSessions(t)
		o, _ := NewOrchestrator(sessions, dialogue.NewMock("ok"),
			WithTranscriber(stt.NewMock("شنوة الطقس اليوم؟")))

		if err := o.SubmitVoice(context.Background(), []byte{1, 2, 3}); err != nil {
			t.Fatalf("SubmitVoice: %v", err)
		}
		msgs := sessions.Messages()
		if len(msgs) != 2 {
			t.Fatalf("messages = %d, want 2", len(msgs))
		}
		if msgs[0].Content != "شنوة الطقس اليوم؟" {
			t.Errorf("utterance = %q", msgs[0].Content)
		}
	})

	t.Run("no speech ends the turn silently", func(t *testing.T) {
		sessions := newSessions(t)
		o, _ := NewOrchestrator(sessions, dialogue.NewMock("ok"),
			WithTranscriber(stt.NewMock("")))

		if err := o.SubmitVoice(context.Background(), []byte{1}); err != nil {
			t.Fatalf("SubmitVoice: %v", err)
		}
		if sessions.MessageCount() != 0 {
			t.Errorf("messages = %d, want 0", sessions.MessageCount())
		}
	})

	t.Run("transcription failure surfaces without messages", func(t *testing.T) {
		sessions := newSessions(t)
		transcriber := &stt.Mock{
			TranscribeFunc: func(ctx context.Context, audio []byte) (string, error) {
				return "", errors.New("service down")
			},
		}
		o, _ := NewOrchestrator(sessions, dialogue.NewMock("ok"), WithTranscriber(transcriber))

		if err := o.SubmitVoice(context.Background(), []byte{1}); err == nil {
			t.Fatal("expected error")
		}
		if sessions.MessageCount() != 0 {
			t.Errorf("messages = %d, want 0", sessions.MessageCount())
		}
		if o.State() != Idle {
			t.Errorf("state = %v, want idle", o.State())
		}
	})

	t.Run("without transcriber", func(t *testing.T) {
		o, _ := NewOrchestrator(newSessions(t), dialogue.NewMock("ok"))
		if err := o.SubmitVoice(context.Background(), []byte{1}); !errors.Is(err, ErrNoTranscriber) {
			t.Errorf("err = %v, want ErrNoTranscriber", err)
		}
	})
}

func TestOnboard(t *testing.T) {
	t.Run("greets the new user", func(t *testing.T) {
		sessions := newSessions(t)
		o, _ := NewOrchestrator(sessions, dialogue.NewMock("ok"))

		sess, err := o.Onboard(context.Background(), "Yasmine")
		if err != nil {
			t.Fatalf("Onboard: %v", err)
		}
		if sess.UserName != "Yasmine" {
			t.Errorf("name = %q", sess.UserName)
		}

		msgs := sessions.Messages()
		if len(msgs) != 1 {
			t.Fatalf("messages = %d, want 1", len(msgs))
		}
		if msgs[0].Role != session.RoleAssistant || msgs[0].Emotion != mood.Happy {
			t.Errorf("greeting = %+v", msgs[0])
		}
	})

	t.Run("empty name rejected", func(t *testing.T) {
		sessions := newSessions(t)
		o, _ := NewOrchestrator(sessions, dialogue.NewMock("ok"))

		if _, err := o.Onboard(context.Background(), "  "); !errors.Is(err, session.ErrEmptyName) {
			t.Errorf("err = %v, want ErrEmptyName", err)
		}
		if sessions.MessageCount() != 0 {
			t.Error("failed onboarding should append nothing")
		}
	})
}

func TestStateString(t *testing.T) {
	states := map[State]string{
		Idle:          "idle",
		Dispatching:   "dispatching",
		AwaitingReply: "awaiting_reply",
		Narrating:     "narrating",
		Reconciling:   "reconciling",
		Failed:        "failed",
	}
	for s, want := range states {
		if s.String() != want {
			t.Errorf("%d.String() = %q, want %q", s, s.String(), want)
		}
	}
}
