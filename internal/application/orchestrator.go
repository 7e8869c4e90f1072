package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"askme/internal/domain"
)

// Session holds the collaborators one orchestrator drives, including the
// store that owns the single Exchange slot.
type Session struct {
	Knowledge   KnowledgeSource
	Completer   Completer
	Capture     SpeechCapture
	STT         SpeechToText
	Synthesizer SpeechSynthesizer
	Player      AudioPlayer
	Exchanges   ExchangeStore

	// ArtifactPath is where synthesized speech is written before playback.
	// It is overwritten on every run.
	ArtifactPath string
}

type Orchestrator struct {
	knowledge   KnowledgeSource
	completer   Completer
	capture     SpeechCapture
	stt         SpeechToText
	synthesizer SpeechSynthesizer
	player      AudioPlayer
	exchanges   ExchangeStore
	artifact    string
	logger      *slog.Logger
	now         func() time.Time

	// mu serialises pipeline runs: the exchange slot, the artifact file and
	// the audio devices are single-occupant.
	mu sync.Mutex
}

func NewOrchestrator(session Session, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		knowledge:   session.Knowledge,
		completer:   session.Completer,
		capture:     session.Capture,
		stt:         session.STT,
		synthesizer: session.Synthesizer,
		player:      session.Player,
		exchanges:   session.Exchanges,
		artifact:    session.ArtifactPath,
		logger:      logger,
		now:         time.Now,
	}
}

// Handle dispatches a query to the pipeline for its modality.
func (o *Orchestrator) Handle(ctx context.Context, q domain.Query) domain.Outcome {
	switch q.Modality {
	case domain.ModalityTopic:
		return o.HandleTopic(ctx, q.Text)
	case domain.ModalityTextQuestion:
		return o.HandleTextQuestion(ctx, q.Text)
	case domain.ModalityVoiceQuestion:
		return o.HandleVoiceQuestion(ctx)
	default:
		return domain.Fail(domain.ErrorKindInvalidInput, fmt.Sprintf("unknown modality: %q", q.Modality))
	}
}

func (o *Orchestrator) HandleTopic(ctx context.Context, topic string) domain.Outcome {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return domain.Fail(domain.ErrorKindInvalidInput, "topic is required")
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	ctx = context.WithoutCancel(ctx)
	logger := o.logger.With("modality", domain.ModalityTopic)

	result, err := o.knowledge.Lookup(ctx, topic)
	if err != nil {
		logger.Error("knowledge lookup failed", "stage", "lookup", "topic", topic, "error", err)
		return domain.Fail(domain.ErrorKindExternalService, failureDetail(err))
	}

	answer := domain.Answer{Text: domain.NotFoundAnswer, Source: domain.SourceEncyclopedia}
	if result.Found {
		answer.Text = Truncate(result.Text, MaxAnswerWords)
	}

	logger.Info("topic answered", "topic", topic, "found", result.Found, "words", len(strings.Fields(answer.Text)))

	o.speak(ctx, logger, answer.Text)
	return domain.Succeed(answer)
}

func (o *Orchestrator) HandleTextQuestion(ctx context.Context, question string) domain.Outcome {
	question = strings.TrimSpace(question)
	if question == "" {
		return domain.Fail(domain.ErrorKindInvalidInput, "question is required")
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	ctx = context.WithoutCancel(ctx)
	logger := o.logger.With("modality", domain.ModalityTextQuestion)

	return o.answerQuestion(ctx, logger, question)
}

func (o *Orchestrator) HandleVoiceQuestion(ctx context.Context) domain.Outcome {
	o.mu.Lock()
	defer o.mu.Unlock()
	ctx = context.WithoutCancel(ctx)
	logger := o.logger.With("modality", domain.ModalityVoiceQuestion)

	logger.Info("listening", "stage", "capture")
	audio, err := o.capture.Capture(ctx)
	if err != nil {
		kind := domain.ErrorKindCaptureDevice
		if errors.Is(err, domain.ErrNoSpeechDetected) {
			kind = domain.ErrorKindNoSpeechDetected
		}
		logger.Warn("capture failed", "stage", "capture", "kind", kind, "error", err)
		return domain.Fail(kind, err.Error())
	}

	logger.Info("captured audio", "stage", "capture", "bytes", len(audio))

	transcript, err := o.stt.Transcribe(ctx, audio)
	if err != nil {
		kind := domain.ErrorKindTranscriptionService
		if errors.Is(err, domain.ErrUnintelligible) {
			kind = domain.ErrorKindUnintelligible
		}
		logger.Warn("transcription failed", "stage", "transcribe", "kind", kind, "error", err)
		return domain.Fail(kind, failureDetail(err))
	}

	logger.Info("transcribed", "stage", "transcribe", "text", transcript)

	return o.answerQuestion(ctx, logger, transcript)
}

// LatestExchange returns the most recently recorded exchange, if any.
func (o *Orchestrator) LatestExchange(ctx context.Context) (domain.Exchange, bool, error) {
	return o.exchanges.Latest(ctx)
}

func (o *Orchestrator) answerQuestion(ctx context.Context, logger *slog.Logger, question string) domain.Outcome {
	text, err := o.completer.Complete(ctx, question)
	if err != nil {
		logger.Error("completion failed", "stage", "complete", "error", err)
		return domain.Fail(domain.ErrorKindExternalService, failureDetail(err))
	}

	answer := domain.Answer{Text: text, Source: domain.SourceCompletion}

	exchange := domain.Exchange{Question: question, Answer: text, RecordedAt: o.now()}
	if err := o.exchanges.Save(ctx, exchange); err != nil {
		logger.Error("recording exchange", "stage", "record", "error", err)
	}

	logger.Info("question answered", "question", question, "chars", len(text))

	o.speak(ctx, logger, answer.Text)
	return domain.Succeed(answer)
}

// speak synthesizes text and plays it to completion. Failures are logged only.
func (o *Orchestrator) speak(ctx context.Context, logger *slog.Logger, text string) {
	audio, err := o.synthesizer.Synthesize(ctx, text)
	if err != nil {
		logger.Warn("speech synthesis failed", "stage", "synthesize", "error", err)
		return
	}

	if err := writeArtifact(o.artifact, audio); err != nil {
		logger.Warn("writing speech artifact", "stage", "synthesize", "path", o.artifact, "error", err)
		return
	}

	start := time.Now()
	if err := o.player.PlayAndWait(ctx, o.artifact); err != nil {
		logger.Warn("playback failed", "stage", "playback", "error", err)
		return
	}

	logger.Debug("playback finished", "stage", "playback", "elapsed", time.Since(start))
}

func writeArtifact(path string, audio []byte) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating artifact dir: %w", err)
		}
	}
	if err := os.WriteFile(path, audio, 0o644); err != nil {
		return fmt.Errorf("writing artifact: %w", err)
	}
	return nil
}

func failureDetail(err error) string {
	var perr *domain.ProviderError
	if errors.As(err, &perr) {
		return perr.Message
	}
	return err.Error()
}
