package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/redis/go-redis/v9"
	flag "github.com/spf13/pflag"

	"askme/config"
	"askme/internal/application"
	"askme/internal/infra/anthropic"
	"askme/internal/infra/audio"
	"askme/internal/infra/gemini"
	"askme/internal/infra/gtts"
	"askme/internal/infra/httpapi"
	"askme/internal/infra/openai"
	"askme/internal/infra/store"
	"askme/internal/infra/wikipedia"
)

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

func main() {
	configPath := flag.StringP("config", "c", "config.yaml", "path to config file")
	envFile := flag.StringP("env", "e", ".env", "path to env file")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !os.IsNotExist(err) {
		slog.Warn("loading env file", "path", *envFile, "error", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.Log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	exchanges, closeStore, err := openExchangeStore(ctx, cfg.Exchange)
	if err != nil {
		logger.Error("opening exchange store", "store", cfg.Exchange.Store, "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn("closing exchange store", "error", err)
		}
	}()

	orchestrator := application.NewOrchestrator(application.Session{
		Knowledge:    createKnowledge(cfg.Knowledge),
		Completer:    createCompleter(cfg.Completion),
		Capture:      audio.NewListener(createInputDevice(cfg.Audio, logger), logger),
		STT:          createSTT(cfg.Transcription, logger),
		Synthesizer:  createSynthesizer(cfg.Synthesis),
		Player:       audio.NewPlayer(createOutput(cfg.Audio)),
		Exchanges:    exchanges,
		ArtifactPath: cfg.ArtifactPath(),
	}, logger)

	server := httpapi.NewServer(cfg.Server.Addr, orchestrator, logger)

	logger.Info("starting askme",
		"completion", cfg.Completion.Provider,
		"exchange_store", cfg.Exchange.Store,
		"audio_input", cfg.Audio.Input,
		"audio_output", cfg.Audio.Output,
	)

	if err := server.Start(ctx); err != nil {
		logger.Error("starting server", "error", err)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("shutting down")

	if err := server.Stop(); err != nil {
		logger.Error("stopping server", "error", err)
	}
}

func createKnowledge(cfg config.KnowledgeConfig) application.KnowledgeSource {
	if cfg.BaseURL != "" {
		return wikipedia.NewClientWithURL(cfg.BaseURL, cfg.UserAgent)
	}
	return wikipedia.NewClient(cfg.Language, cfg.UserAgent)
}

func createCompleter(cfg config.CompletionConfig) application.Completer {
	switch cfg.Provider {
	case "openai":
		return openai.NewChatClientWithURL(cfg.APIKey, cfg.Model, cfg.BaseURL)
	case "anthropic":
		if cfg.BaseURL != "" {
			return anthropic.NewClientWithURL(cfg.APIKey, cfg.Model, cfg.BaseURL)
		}
		return anthropic.NewClient(cfg.APIKey, cfg.Model)
	default:
		if cfg.BaseURL != "" {
			return gemini.NewClientWithURL(cfg.APIKey, cfg.Model, cfg.BaseURL)
		}
		return gemini.NewClient(cfg.APIKey, cfg.Model)
	}
}

func createSTT(cfg config.TranscriptionConfig, logger *slog.Logger) application.SpeechToText {
	if cfg.APIKey == "" {
		logger.Warn("transcription.api_key not set, voice questions will fail")
		return &application.NoopSTT{}
	}
	if cfg.BaseURL != "" {
		return openai.NewWhisperClientWithURL(cfg.APIKey, cfg.Language, cfg.BaseURL)
	}
	return openai.NewWhisperClient(cfg.APIKey, cfg.Language)
}

func createSynthesizer(cfg config.SynthesisConfig) application.SpeechSynthesizer {
	if cfg.BaseURL != "" {
		return gtts.NewClientWithURL(cfg.BaseURL)
	}
	return gtts.NewClient()
}

func createInputDevice(cfg config.AudioConfig, logger *slog.Logger) audio.InputDevice {
	switch cfg.Input {
	case "file":
		return audio.NewFileDevice(cfg.FileDir)
	default:
		return audio.NewMicrophone(logger)
	}
}

func createOutput(cfg config.AudioConfig) audio.Output {
	switch cfg.Output {
	case "none":
		return audio.Discard{}
	default:
		return audio.NewSpeaker()
	}
}

func openExchangeStore(ctx context.Context, cfg config.ExchangeConfig) (application.ExchangeStore, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Store {
	case "file":
		return store.NewFile(cfg.Path), noop, nil
	case "sqlite":
		s, err := store.OpenSQLite(ctx, cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Redis.Addr, err)
		}
		s := store.NewRedis(client, cfg.Redis.Key)
		return s, s.Close, nil
	default:
		return store.NewMemory(), noop, nil
	}
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	level, ok := logLevels[cfg.Level]
	if !ok {
		level = slog.LevelInfo
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = tint.NewHandler(os.Stdout, &tint.Options{Level: level})
	}

	return slog.New(handler)
}
