package web

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/bmolabs/companion/pkg/avatar"
	"github.com/bmolabs/companion/pkg/capture"
	"github.com/bmolabs/companion/pkg/hub"
	"github.com/bmolabs/companion/pkg/mood"
	"github.com/bmolabs/companion/pkg/session"
	"github.com/bmolabs/companion/pkg/turn"
)

// ChatRequest is the body for a typed turn.
type ChatRequest struct {
	Message string `json:"message"`
}

// NameRequest is the body for onboarding.
type NameRequest struct {
	Name string `json:"name"`
}

// TurnResponse reports the outcome of a submitted turn.
type TurnResponse struct {
	Reply    string `json:"reply,omitempty"`
	Emotion  string `json:"emotion,omitempty"`
	NoSpeech bool   `json:"no_speech,omitempty"`
}

// handleChat runs a typed turn and returns the assistant's reply.
func (s *Server) handleChat(c *fiber.Ctx) error {
	var req ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	if err := s.orchestrator.SubmitText(c.Context(), req.Message); err != nil {
		return turnError(c, err)
	}
	return c.JSON(s.latestReply())
}

// handleVoice runs a voice turn on the raw audio body.
func (s *Server) handleVoice(c *fiber.Ctx) error {
	audio := c.Body()
	if len(audio) == 0 {
		return badRequest(c, "empty audio payload")
	}

	before := s.sessions.MessageCount()
	if err := s.orchestrator.SubmitVoice(c.Context(), audio); err != nil {
		return turnError(c, err)
	}
	if s.sessions.MessageCount() == before {
		// No speech detected; the turn ended without messages.
		return c.JSON(TurnResponse{NoSpeech: true})
	}
	return c.JSON(s.latestReply())
}

// handleName onboards the user and returns the updated session with
// the greeting already appended.
func (s *Server) handleName(c *fiber.Ctx) error {
	var req NameRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	sess, err := s.orchestrator.Onboard(c.Context(), req.Name)
	if err != nil {
		if errors.Is(err, session.ErrEmptyName) {
			return badRequest(c, "name required")
		}
		if errors.Is(err, session.ErrNameAlreadySet) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "already onboarded, log out first"})
		}
		return turnError(c, err)
	}
	return c.JSON(fiber.Map{
		"session":  sess,
		"greeting": s.latestReply().Reply,
	})
}

// handleClearHistory wipes the conversation, keeping identity.
func (s *Server) handleClearHistory(c *fiber.Ctx) error {
	s.sessions.Clear()
	return c.SendStatus(fiber.StatusNoContent)
}

// handleLogout discards the current identity and starts fresh.
func (s *Server) handleLogout(c *fiber.Ctx) error {
	sess := s.sessions.Reset()
	return c.JSON(fiber.Map{"session": sess})
}

// handleSession returns the full session state.
func (s *Server) handleSession(c *fiber.Ctx) error {
	return c.JSON(s.sessions.Snapshot())
}

// handleAvatar returns the currently displayed mood and its face
// asset.
func (s *Server) handleAvatar(c *fiber.Ctx) error {
	label := s.face.Current()
	return c.JSON(fiber.Map{
		"mood": label,
		"face": avatar.Face(label),
	})
}

// handleCaptureStart begins buffering uploaded recorder chunks.
func (s *Server) handleCaptureStart(c *fiber.Ctx) error {
	if err := s.captureCtrl.Start(c.Context()); err != nil {
		switch {
		case errors.Is(err, capture.ErrFinalizing), errors.Is(err, capture.ErrDeviceUnavailable):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, capture.ErrPermissionDenied):
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
		default:
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
		}
	}
	s.face.Set(mood.Excited)
	return c.SendStatus(fiber.StatusNoContent)
}

// handleCaptureChunk appends one uploaded audio chunk.
func (s *Server) handleCaptureChunk(c *fiber.Ctx) error {
	chunk := c.Body()
	if len(chunk) == 0 {
		return badRequest(c, "empty chunk")
	}
	if err := s.captureDev.Push(append([]byte(nil), chunk...)); err != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// handleCaptureStop seals the capture and runs a voice turn on the
// payload.
func (s *Server) handleCaptureStop(c *fiber.Ctx) error {
	payload, ok := s.captureCtrl.Stop()
	if !ok || len(payload) == 0 {
		s.face.Set(mood.Default)
		return c.JSON(TurnResponse{NoSpeech: true})
	}

	before := s.sessions.MessageCount()
	if err := s.orchestrator.SubmitVoice(c.Context(), payload); err != nil {
		return turnError(c, err)
	}
	if s.sessions.MessageCount() == before {
		return c.JSON(TurnResponse{NoSpeech: true})
	}
	return c.JSON(s.latestReply())
}

// handleSyncWS attaches a surface to the sync feed.
func (s *Server) handleSyncWS(c *websocket.Conn) {
	client := hub.NewClient(s.syncHub, c)
	client.Run()
}

// latestReply returns the newest assistant message as a turn outcome.
func (s *Server) latestReply() TurnResponse {
	msgs := s.sessions.Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == session.RoleAssistant {
			return TurnResponse{Reply: msgs[i].Content, Emotion: string(msgs[i].Emotion)}
		}
	}
	return TurnResponse{}
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

// turnError maps orchestrator errors onto HTTP statuses. A turn in
// flight is a conflict, bad input is the caller's fault, anything else
// is a dead collaborator.
func turnError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, turn.ErrTurnInProgress):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "turn already in progress"})
	case errors.Is(err, turn.ErrEmptyInput):
		return badRequest(c, "message required")
	case errors.Is(err, turn.ErrNoTranscriber):
		return c.Status(fiber.StatusNotImplemented).JSON(fiber.Map{"error": "voice input not configured"})
	default:
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	}
}
