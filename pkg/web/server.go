// Package web exposes the companion to its surfaces: a small JSON API
// for turn submission and session management, plus the websocket sync
// feed that keeps every open surface rendering the same conversation.
package web

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/bmolabs/companion/pkg/avatar"
	"github.com/bmolabs/companion/pkg/capture"
	"github.com/bmolabs/companion/pkg/hub"
	"github.com/bmolabs/companion/pkg/mood"
	"github.com/bmolabs/companion/pkg/session"
	"github.com/bmolabs/companion/pkg/turn"
)

// Server hosts the surface-facing API.
type Server struct {
	app    *fiber.App
	port   string
	logger *slog.Logger

	orchestrator *turn.Orchestrator
	sessions     *session.Manager
	face         *avatar.State
	syncHub      *hub.Hub
	notifier     session.Notifier

	captureCtrl *capture.Controller
	captureDev  *capture.StreamDevice

	cancelNotify context.CancelFunc
}

// Option configures a Server.
type Option func(*Server)

// WithNotifier rebroadcasts externally observed store changes, keeping
// two processes on one shared profile consistent.
func WithNotifier(n session.Notifier) Option {
	return func(s *Server) { s.notifier = n }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger.With("component", "web") }
}

// WithCapture exposes server-side capture endpoints: surfaces upload
// recorder chunks and the sealed payload runs a voice turn.
func WithCapture(ctrl *capture.Controller, dev *capture.StreamDevice) Option {
	return func(s *Server) {
		s.captureCtrl = ctrl
		s.captureDev = dev
	}
}

// NewServer creates the API server and wires local state changes onto
// the sync feed.
func NewServer(port string, orchestrator *turn.Orchestrator, sessions *session.Manager, face *avatar.State, syncHub *hub.Hub, opts ...Option) *Server {
	s := &Server{
		port:         port,
		logger:       slog.Default().With("component", "web"),
		orchestrator: orchestrator,
		sessions:     sessions,
		face:         face,
		syncHub:      syncHub,
	}
	for _, opt := range opts {
		opt(s)
	}

	sessions.OnChange(func(kind session.ChangeKind) {
		switch kind {
		case session.ChangeSession:
			syncHub.BroadcastEvent(hub.SessionEvent())
		case session.ChangeMessage:
			syncHub.BroadcastEvent(hub.MessageEvent())
		}
	})
	face.OnChange(func(label mood.Label) {
		syncHub.BroadcastEvent(hub.MoodEvent(string(label), avatar.Face(label)))
	})
	orchestrator.OnState(func(st turn.State) {
		syncHub.BroadcastEvent(hub.StateEvent(st.String()))
	})

	app := fiber.New(fiber.Config{
		AppName:               "Companion",
		DisableStartupMessage: true,
		BodyLimit:             8 * 1024 * 1024, // voice payloads
	})

	app.Use(cors.New())
	app.Static("/", "./web")

	api := app.Group("/api")
	api.Post("/chat", s.handleChat)
	api.Post("/voice", s.handleVoice)
	api.Post("/name", s.handleName)
	api.Delete("/history", s.handleClearHistory)
	api.Post("/logout", s.handleLogout)
	api.Get("/session", s.handleSession)
	api.Get("/avatar", s.handleAvatar)

	if s.captureCtrl != nil {
		api.Post("/capture/start", s.handleCaptureStart)
		api.Post("/capture/chunk", s.handleCaptureChunk)
		api.Post("/capture/stop", s.handleCaptureStop)
	}

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/sync", websocket.New(s.handleSyncWS))

	s.app = app
	return s
}

// Start runs the sync hub, the notifier watch when configured, and the
// HTTP listener. It blocks until the listener stops.
func (s *Server) Start() error {
	go s.syncHub.Run()

	if s.notifier != nil {
		ctx, cancel := context.WithCancel(context.Background())
		s.cancelNotify = cancel
		go s.watchNotifier(ctx)
	}

	s.logger.Info("listening", "port", s.port)
	return s.app.Listen(":" + s.port)
}

// watchNotifier re-reads the store whenever another process writes the
// shared profile, then lets the normal change fan-out rebroadcast.
func (s *Server) watchNotifier(ctx context.Context) {
	ch, err := s.notifier.Subscribe(ctx)
	if err != nil {
		s.logger.Error("notifier subscribe failed", "error", err)
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-ch:
			if !ok {
				return
			}
			s.sessions.Reload()
		}
	}
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	if s.cancelNotify != nil {
		s.cancelNotify()
	}
	return s.app.Shutdown()
}
