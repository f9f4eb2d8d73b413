// Companion server - hosts the conversational assistant behind an
// HTTP API and a websocket sync feed shared by every surface.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/bmolabs/companion/internal/config"
	clog "github.com/bmolabs/companion/internal/log"
	"github.com/bmolabs/companion/pkg/avatar"
	"github.com/bmolabs/companion/pkg/capture"
	"github.com/bmolabs/companion/pkg/dialogue"
	"github.com/bmolabs/companion/pkg/hub"
	"github.com/bmolabs/companion/pkg/intent"
	"github.com/bmolabs/companion/pkg/mood"
	"github.com/bmolabs/companion/pkg/playback"
	"github.com/bmolabs/companion/pkg/session"
	"github.com/bmolabs/companion/pkg/stt"
	"github.com/bmolabs/companion/pkg/tts"
	"github.com/bmolabs/companion/pkg/turn"
	"github.com/bmolabs/companion/pkg/web"
)

func main() {
	envFile := flag.String("env", ".env", "Environment file to load")
	mute := flag.Bool("mute", false, "Disable spoken narration")
	flag.Parse()

	// Missing .env is fine; real deployments set the environment.
	_ = godotenv.Load(*envFile)

	clog.Init(config.LogLevel())
	logger := clog.L()

	store, notifier, err := buildStore()
	if err != nil {
		log.Fatalf("store: %v", err)
	}
	sessions := session.NewManager(store, logger)
	defer sessions.Close()

	provider, err := dialogue.NewOllama(config.OllamaBaseURL(),
		dialogue.WithModel(config.OllamaModel()),
		dialogue.WithLogger(logger),
	)
	if err != nil {
		log.Fatalf("dialogue: %v", err)
	}

	transcriber, err := stt.NewClient(config.VoiceServiceURL(), stt.WithLogger(logger))
	if err != nil {
		log.Fatalf("stt: %v", err)
	}

	synth, err := tts.NewVoiceService(
		tts.WithBaseURL(config.VoiceServiceURL()),
		tts.WithLogger(logger),
	)
	if err != nil {
		log.Fatalf("tts: %v", err)
	}
	defer synth.Close()

	taskClient, err := intent.NewTaskClient(config.TaskServiceURL(), intent.WithTaskLogger(logger))
	if err != nil {
		log.Fatalf("task client: %v", err)
	}
	intents, err := intent.NewDispatcher(taskClient, intent.WithLogger(logger))
	if err != nil {
		log.Fatalf("intents: %v", err)
	}

	syncHub := hub.New("sync", logger)
	face := avatar.NewState()

	speech, err := playback.NewController(synth, playback.NewHubOutput(syncHub),
		playback.WithLogger(logger),
		playback.WithMuted(*mute || config.Muted()),
	)
	if err != nil {
		log.Fatalf("playback: %v", err)
	}

	orchestrator, err := turn.NewOrchestrator(sessions, provider,
		turn.WithTranscriber(transcriber),
		turn.WithPlayback(speech),
		turn.WithIntents(intents),
		turn.WithAnalyzer(buildAnalyzer(logger)),
		turn.WithAvatar(face),
		turn.WithLogger(logger),
	)
	if err != nil {
		log.Fatalf("orchestrator: %v", err)
	}

	captureDev := capture.NewStreamDevice()
	captureCtrl := capture.New(captureDev, logger)

	opts := []web.Option{
		web.WithLogger(logger),
		web.WithCapture(captureCtrl, captureDev),
	}
	if notifier != nil {
		opts = append(opts, web.WithNotifier(notifier))
	}
	server := web.NewServer(config.Port(), orchestrator, sessions, face, syncHub, opts...)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		if err := server.Shutdown(); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}()

	if err := server.Start(); err != nil {
		log.Fatalf("server: %v", err)
	}
}

// buildStore selects the session backend: Redis when configured, a
// JSON file under the data directory otherwise.
func buildStore() (session.Store, session.Notifier, error) {
	if url := config.RedisURL(); url != "" {
		store, err := session.NewRedisStore(url, config.Profile())
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	}

	path := filepath.Join(config.DataDir(), config.Profile()+".json")
	return session.NewJSONStore(path), nil, nil
}

// buildAnalyzer layers the remote emotion backend, when configured,
// over the local keyword rules.
func buildAnalyzer(logger *slog.Logger) mood.Analyzer {
	rules := mood.NewDefaultRules()

	url := config.EmotionServiceURL()
	if url == "" {
		return rules
	}

	remote, err := mood.NewRemote(url, mood.WithLogger(logger))
	if err != nil {
		logger.Warn("emotion backend disabled", "error", err)
		return rules
	}

	chain, err := mood.NewChain(remote, rules)
	if err != nil {
		return rules
	}
	return chain
}
