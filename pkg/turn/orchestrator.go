package turn

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/bmolabs/companion/pkg/avatar"
	"github.com/bmolabs/companion/pkg/dialogue"
	"github.com/bmolabs/companion/pkg/intent"
	"github.com/bmolabs/companion/pkg/mood"
	"github.com/bmolabs/companion/pkg/playback"
	"github.com/bmolabs/companion/pkg/session"
	"github.com/bmolabs/companion/pkg/stt"
)

// Orchestrator drives conversational turns over its collaborators.
// Exactly one turn runs at a time; everything it persists goes through
// the session manager.
type Orchestrator struct {
	sessions    *session.Manager
	dialogue    dialogue.Provider
	transcriber stt.Transcriber
	speech      *playback.Controller
	intents     *intent.Dispatcher
	analyzer    mood.Analyzer
	face        *avatar.State
	logger      *slog.Logger

	mu        sync.Mutex
	busy      bool
	state     State
	listeners []func(State)
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithTranscriber enables voice submissions.
func WithTranscriber(t stt.Transcriber) Option {
	return func(o *Orchestrator) { o.transcriber = t }
}

// WithPlayback enables spoken narration of replies.
func WithPlayback(p *playback.Controller) Option {
	return func(o *Orchestrator) { o.speech = p }
}

// WithIntents enables app-intent scanning of user utterances.
func WithIntents(d *intent.Dispatcher) Option {
	return func(o *Orchestrator) { o.intents = d }
}

// WithAnalyzer replaces the default keyword-rule mood analyzer.
func WithAnalyzer(a mood.Analyzer) Option {
	return func(o *Orchestrator) { o.analyzer = a }
}

// WithAvatar wires the displayed face to turn progress.
func WithAvatar(s *avatar.State) Option {
	return func(o *Orchestrator) { o.face = s }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger.With("component", "turn") }
}

// NewOrchestrator creates an orchestrator. The session manager and
// dialogue provider are required; narration, transcription, intents
// and the avatar are optional surfaces.
func NewOrchestrator(sessions *session.Manager, provider dialogue.Provider, opts ...Option) (*Orchestrator, error) {
	if sessions == nil {
		return nil, ErrNoSession
	}
	if provider == nil {
		return nil, ErrNoDialogue
	}
	o := &Orchestrator{
		sessions: sessions,
		dialogue: provider,
		analyzer: mood.NewDefaultRules(),
		logger:   slog.Default().With("component", "turn"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// State returns the current turn state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// OnState registers a listener called with each state transition.
func (o *Orchestrator) OnState(fn func(State)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.listeners = append(o.listeners, fn)
}

// SubmitText runs a full turn for a typed utterance. It returns
// ErrTurnInProgress without touching the store when a turn is already
// active. Dialogue failures produce a fallback assistant message and
// a nil return; only validation and serialization errors surface.
func (o *Orchestrator) SubmitText(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyInput
	}
	if err := o.begin(); err != nil {
		return err
	}
	defer o.end()

	o.run(ctx, text)
	return nil
}

// SubmitVoice transcribes the captured audio and runs a turn on the
// result. An empty transcript means no speech was detected: the turn
// ends with no messages and no error.
func (o *Orchestrator) SubmitVoice(ctx context.Context, audio []byte) error {
	if o.transcriber == nil {
		return ErrNoTranscriber
	}
	if err := o.begin(); err != nil {
		return err
	}
	defer o.end()

	o.setState(Dispatching)
	o.setFace(mood.Thinking)

	text, err := o.transcriber.Transcribe(ctx, audio)
	if err != nil {
		o.logger.Error("transcription failed", "error", err)
		o.setState(Failed)
		o.setFace(mood.Nervous)
		return fmt.Errorf("turn: transcribe: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		o.logger.Debug("no speech detected")
		return nil
	}

	o.run(ctx, text)
	return nil
}

// Onboard stores the user's name and greets them with a welcome
// message. It shares the turn guard so the greeting cannot interleave
// with an active turn's messages.
func (o *Orchestrator) Onboard(ctx context.Context, name string) (session.Session, error) {
	if err := o.begin(); err != nil {
		return session.Session{}, err
	}
	defer o.end()

	sess, err := o.sessions.SetUserName(name)
	if err != nil {
		return session.Session{}, err
	}

	greeting := fmt.Sprintf(welcomeReply, sess.UserName)
	turnID := o.sessions.Snapshot().MaxTurnID() + 1
	o.sessions.AppendMessage(session.Message{
		Role:    session.RoleAssistant,
		Content: greeting,
		Emotion: mood.Happy,
		TurnID:  turnID,
	})
	o.setFace(mood.Happy)
	o.narrate(ctx, greeting, mood.Happy)

	return sess, nil
}

// run executes one turn with the guard already held.
func (o *Orchestrator) run(ctx context.Context, utterance string) {
	snapshot := o.sessions.Snapshot()
	turnID := snapshot.MaxTurnID() + 1

	o.setState(Dispatching)
	o.setFace(mood.Thinking)

	// The user message is visible immediately, even if everything
	// after this point fails.
	o.sessions.AppendMessage(session.Message{
		Role:    session.RoleUser,
		Content: utterance,
		TurnID:  turnID,
	})

	if o.intents != nil {
		o.intents.Dispatch(context.WithoutCancel(ctx), utterance)
	}

	o.setState(AwaitingReply)
	reply, err := o.dialogue.Converse(ctx, dialogue.Query{
		Utterance: utterance,
		SessionID: snapshot.Session.ID,
		UserName:  snapshot.Session.UserName,
		History:   historyFor(snapshot),
	})
	if err != nil {
		o.logger.Error("dialogue failed", "turn", turnID, "error", err)
		o.fail(turnID)
		return
	}

	o.sessions.AppendMessage(session.Message{
		Role:    session.RoleAssistant,
		Content: reply.Text,
		TurnID:  turnID,
	})

	o.setState(Narrating)
	o.setFace(mood.Talking)
	o.narrate(ctx, reply.Text, o.inferLabel(ctx, utterance))

	o.setState(Reconciling)
	label := o.reconcileLabel(ctx, reply)
	o.sessions.StampEmotion(turnID, label)
	o.setFace(label)

	o.logger.Info("turn complete", "turn", turnID, "emotion", label, "chars", len(reply.Text))
}

// fail records the fallback apology for a dead dialogue service. The
// user still gets a visible, emotionally coherent response.
func (o *Orchestrator) fail(turnID int) {
	o.setState(Failed)
	o.sessions.AppendMessage(session.Message{
		Role:    session.RoleAssistant,
		Content: fallbackReply,
		Emotion: mood.Nervous,
		TurnID:  turnID,
	})
	o.setFace(mood.Nervous)
}

// narrate speaks text when a playback controller is wired. Playback
// problems never fail the turn.
func (o *Orchestrator) narrate(ctx context.Context, text string, emotion mood.Label) {
	if o.speech == nil {
		return
	}
	if err := o.speech.Play(ctx, text, string(emotion)); err != nil {
		o.logger.Warn("narration failed", "error", err)
	}
}

// reconcileLabel decides the emotion stamped on the assistant reply.
// The analyzer owns the decision; the provider's hint is only used
// when no analyzer is configured.
func (o *Orchestrator) reconcileLabel(ctx context.Context, reply *dialogue.Reply) mood.Label {
	if o.analyzer == nil {
		if reply.EmotionHint != "" {
			return mood.Normalize(reply.EmotionHint)
		}
		return mood.Default
	}
	return o.inferLabel(ctx, reply.Text)
}

func (o *Orchestrator) inferLabel(ctx context.Context, text string) mood.Label {
	if o.analyzer == nil {
		return mood.Default
	}
	label, err := o.analyzer.Analyze(ctx, text)
	if err != nil {
		o.logger.Warn("mood analysis failed", "error", err)
	}
	if !mood.Valid(label) {
		return mood.Default
	}
	return label
}

func (o *Orchestrator) begin() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.busy {
		return ErrTurnInProgress
	}
	o.busy = true
	return nil
}

func (o *Orchestrator) end() {
	o.mu.Lock()
	o.busy = false
	o.mu.Unlock()
	o.setState(Idle)
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	if o.state == s {
		o.mu.Unlock()
		return
	}
	o.state = s
	listeners := make([]func(State), len(o.listeners))
	copy(listeners, o.listeners)
	o.mu.Unlock()

	for _, fn := range listeners {
		fn(s)
	}
}

func (o *Orchestrator) setFace(label mood.Label) {
	if o.face != nil {
		o.face.Set(label)
	}
}

// historyFor maps the newest stored messages into dialogue exchanges.
func historyFor(s *session.State) []dialogue.Exchange {
	msgs := s.Messages
	if len(msgs) > historyContext {
		msgs = msgs[len(msgs)-historyContext:]
	}
	out := make([]dialogue.Exchange, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, dialogue.Exchange{Role: string(m.Role), Content: m.Content})
	}
	return out
}
