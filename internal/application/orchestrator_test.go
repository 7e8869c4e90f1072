package application_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"askme/internal/application"
	"askme/internal/domain"
)

type mockKnowledge struct {
	result domain.LookupResult
	err    error
	topics []string
}

func (m *mockKnowledge) Lookup(_ context.Context, topic string) (domain.LookupResult, error) {
	m.topics = append(m.topics, topic)
	return m.result, m.err
}

type mockCompleter struct {
	answers   map[string]string
	err       error
	questions []string
}

func (m *mockCompleter) Complete(ctx context.Context, question string) (string, error) {
	m.questions = append(m.questions, question)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.err != nil {
		return "", m.err
	}
	return m.answers[question], nil
}

type mockCapture struct {
	audio []byte
	err   error
	calls int
}

func (m *mockCapture) Capture(_ context.Context) ([]byte, error) {
	m.calls++
	return m.audio, m.err
}

type mockSTT struct {
	text  string
	err   error
	calls int
}

func (m *mockSTT) Transcribe(_ context.Context, _ []byte) (string, error) {
	m.calls++
	return m.text, m.err
}

type mockSynthesizer struct {
	err   error
	texts []string
}

func (m *mockSynthesizer) Synthesize(_ context.Context, text string) ([]byte, error) {
	m.texts = append(m.texts, text)
	if m.err != nil {
		return nil, m.err
	}
	return []byte("mp3:" + text), nil
}

type mockPlayer struct {
	err    error
	played [][]byte
}

func (m *mockPlayer) PlayAndWait(_ context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	m.played = append(m.played, data)
	return m.err
}

type memoryExchanges struct {
	exchange *domain.Exchange
	saveErr  error
	saves    int
}

func (m *memoryExchanges) Save(_ context.Context, e domain.Exchange) error {
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.exchange = &e
	return nil
}

func (m *memoryExchanges) Latest(_ context.Context) (domain.Exchange, bool, error) {
	if m.exchange == nil {
		return domain.Exchange{}, false, nil
	}
	return *m.exchange, true, nil
}

type harness struct {
	knowledge *mockKnowledge
	completer *mockCompleter
	capture   *mockCapture
	stt       *mockSTT
	synth     *mockSynthesizer
	player    *mockPlayer
	exchanges *memoryExchanges
	orch      *application.Orchestrator
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		knowledge: &mockKnowledge{},
		completer: &mockCompleter{answers: map[string]string{}},
		capture:   &mockCapture{audio: []byte("RIFF")},
		stt:       &mockSTT{},
		synth:     &mockSynthesizer{},
		player:    &mockPlayer{},
		exchanges: &memoryExchanges{},
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h.orch = application.NewOrchestrator(application.Session{
		Knowledge:    h.knowledge,
		Completer:    h.completer,
		Capture:      h.capture,
		STT:          h.stt,
		Synthesizer:  h.synth,
		Player:       h.player,
		Exchanges:    h.exchanges,
		ArtifactPath: filepath.Join(t.TempDir(), "speech", "answer.mp3"),
	}, logger)

	return h
}

func words(n int) string {
	w := make([]string, n)
	for i := range w {
		w[i] = fmt.Sprintf("word%d", i)
	}
	return strings.Join(w, " ")
}

func TestOrchestrator_TopicTruncatesLongArticle(t *testing.T) {
	h := newHarness(t)
	h.knowledge.result = domain.LookupResult{Found: true, Text: words(300)}

	out := h.orch.HandleTopic(context.Background(), "Mount Everest")

	require.True(t, out.OK())
	assert.Equal(t, words(200), out.Answer.Text)
	assert.Equal(t, domain.SourceEncyclopedia, out.Answer.Source)
	assert.Equal(t, []string{"Mount Everest"}, h.knowledge.topics)
	assert.Equal(t, []string{words(200)}, h.synth.texts)
	require.Len(t, h.player.played, 1)
	assert.Equal(t, []byte("mp3:"+words(200)), h.player.played[0])
	assert.Zero(t, h.exchanges.saves, "topic lookups are not recorded")
}

func TestOrchestrator_TopicShortArticleUnchanged(t *testing.T) {
	h := newHarness(t)
	body := "Mount Everest is\n Earth's highest  mountain."
	h.knowledge.result = domain.LookupResult{Found: true, Text: body}

	out := h.orch.HandleTopic(context.Background(), "Mount Everest")

	require.True(t, out.OK())
	assert.Equal(t, body, out.Answer.Text)
}

func TestOrchestrator_TopicNotFoundIsSuccess(t *testing.T) {
	h := newHarness(t)
	h.knowledge.result = domain.LookupResult{Found: false}

	out := h.orch.HandleTopic(context.Background(), "Qwertyuiopasdf")

	require.True(t, out.OK())
	assert.Nil(t, out.Failure)
	assert.Equal(t, domain.NotFoundAnswer, out.Answer.Text)
	assert.Equal(t, domain.SourceEncyclopedia, out.Answer.Source)
	assert.Equal(t, []string{domain.NotFoundAnswer}, h.synth.texts)
}

func TestOrchestrator_TopicLookupErrorIsFailure(t *testing.T) {
	h := newHarness(t)
	h.knowledge.err = &domain.ProviderError{Provider: "wikipedia", StatusCode: 503, Message: "service unavailable"}

	out := h.orch.HandleTopic(context.Background(), "Mount Everest")

	require.False(t, out.OK())
	assert.Equal(t, domain.ErrorKindExternalService, out.Failure.Kind)
	assert.Equal(t, "service unavailable", out.Failure.Detail)
	assert.Empty(t, h.synth.texts)
}

func TestOrchestrator_TextQuestionRecordsExchange(t *testing.T) {
	h := newHarness(t)
	h.completer.answers["What is gravity?"] = "Gravity is a force..."

	out := h.orch.HandleTextQuestion(context.Background(), "What is gravity?")

	require.True(t, out.OK())
	assert.Equal(t, domain.Answer{Text: "Gravity is a force...", Source: domain.SourceCompletion}, out.Answer)

	got, ok, err := h.orch.LatestExchange(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "What is gravity?", got.Question)
	assert.Equal(t, "Gravity is a force...", got.Answer)
	assert.False(t, got.RecordedAt.IsZero())
	assert.Equal(t, []string{"Gravity is a force..."}, h.synth.texts)
}

func TestOrchestrator_OnlyLatestExchangeRetained(t *testing.T) {
	h := newHarness(t)
	h.completer.answers["What is gravity?"] = "Gravity is a force..."
	h.completer.answers["What is light?"] = "Light is electromagnetic radiation."

	require.True(t, h.orch.HandleTextQuestion(context.Background(), "What is gravity?").OK())
	require.True(t, h.orch.HandleTextQuestion(context.Background(), "What is light?").OK())

	got, ok, err := h.orch.LatestExchange(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "What is light?", got.Question)
	assert.Equal(t, "Light is electromagnetic radiation.", got.Answer)
}

func TestOrchestrator_CompletionFailureLeavesExchange(t *testing.T) {
	h := newHarness(t)
	h.completer.answers["What is gravity?"] = "Gravity is a force..."
	require.True(t, h.orch.HandleTextQuestion(context.Background(), "What is gravity?").OK())
	h.synth.texts = nil

	h.completer.err = errors.New("quota exceeded")
	out := h.orch.HandleTextQuestion(context.Background(), "What is light?")

	require.False(t, out.OK())
	assert.Equal(t, domain.ErrorKindExternalService, out.Failure.Kind)
	assert.Equal(t, "quota exceeded", out.Failure.Detail)
	assert.Empty(t, h.synth.texts, "synthesis must not run after a failed completion")
	assert.Len(t, h.player.played, 1)

	got, ok, err := h.orch.LatestExchange(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "What is gravity?", got.Question)
}

func TestOrchestrator_ProviderMessageIsDetail(t *testing.T) {
	h := newHarness(t)
	h.completer.err = fmt.Errorf("generating content: %w",
		&domain.ProviderError{Provider: "gemini", StatusCode: 429, Message: "quota exceeded"})

	out := h.orch.HandleTextQuestion(context.Background(), "What is gravity?")

	require.False(t, out.OK())
	assert.Equal(t, "quota exceeded", out.Failure.Detail)
}

func TestOrchestrator_PlaybackFailureKeepsAnswer(t *testing.T) {
	tests := []struct {
		name     string
		synthErr error
		playErr  error
	}{
		{name: "synthesis fails", synthErr: errors.New("tts down")},
		{name: "playback fails", playErr: errors.New("no output device")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.synth.err = tt.synthErr
			h.player.err = tt.playErr
			h.completer.answers["What is gravity?"] = "Gravity is a force..."

			out := h.orch.HandleTextQuestion(context.Background(), "What is gravity?")

			require.True(t, out.OK())
			assert.Equal(t, "Gravity is a force...", out.Answer.Text)
			assert.Len(t, h.synth.texts, 1, "synthesis is attempted exactly once")
		})
	}
}

func TestOrchestrator_ExchangeSaveFailureKeepsAnswer(t *testing.T) {
	h := newHarness(t)
	h.exchanges.saveErr = errors.New("disk full")
	h.completer.answers["What is gravity?"] = "Gravity is a force..."

	out := h.orch.HandleTextQuestion(context.Background(), "What is gravity?")

	require.True(t, out.OK())
	assert.Len(t, h.synth.texts, 1)
}

func TestOrchestrator_VoiceQuestion(t *testing.T) {
	h := newHarness(t)
	h.stt.text = "what is gravity"
	h.completer.answers["what is gravity"] = "Gravity is a force..."

	out := h.orch.HandleVoiceQuestion(context.Background())

	require.True(t, out.OK())
	assert.Equal(t, "Gravity is a force...", out.Answer.Text)
	assert.Equal(t, domain.SourceCompletion, out.Answer.Source)

	got, ok, err := h.orch.LatestExchange(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "what is gravity", got.Question)
	assert.Equal(t, "Gravity is a force...", got.Answer)
}

func TestOrchestrator_VoiceFailuresAreDistinct(t *testing.T) {
	tests := []struct {
		name       string
		captureErr error
		sttErr     error
		wantKind   domain.ErrorKind
		wantSTT    int
	}{
		{
			name:       "no speech",
			captureErr: fmt.Errorf("listening: %w", domain.ErrNoSpeechDetected),
			wantKind:   domain.ErrorKindNoSpeechDetected,
		},
		{
			name:       "device unavailable",
			captureErr: fmt.Errorf("%w: no default input", domain.ErrCaptureDevice),
			wantKind:   domain.ErrorKindCaptureDevice,
		},
		{
			name:     "unintelligible",
			sttErr:   domain.ErrUnintelligible,
			wantKind: domain.ErrorKindUnintelligible,
			wantSTT:  1,
		},
		{
			name:     "transcription service down",
			sttErr:   &domain.ProviderError{Provider: "whisper", Message: "connection refused"},
			wantKind: domain.ErrorKindTranscriptionService,
			wantSTT:  1,
		},
	}

	messages := map[string]string{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.exchanges.exchange = &domain.Exchange{Question: "earlier", Answer: "kept"}
			h.capture.err = tt.captureErr
			h.stt.err = tt.sttErr

			out := h.orch.HandleVoiceQuestion(context.Background())

			require.False(t, out.OK())
			assert.Equal(t, tt.wantKind, out.Failure.Kind)
			assert.Equal(t, tt.wantSTT, h.stt.calls)
			assert.Empty(t, h.completer.questions)
			assert.Empty(t, h.synth.texts)
			assert.Equal(t, "earlier", h.exchanges.exchange.Question)
			messages[tt.name] = out.Failure.Message()
		})
	}

	assert.NotEqual(t, messages["no speech"], messages["unintelligible"])
	assert.NotEqual(t, messages["unintelligible"], messages["transcription service down"])
}

func TestOrchestrator_EmptyInputRejected(t *testing.T) {
	h := newHarness(t)

	topic := h.orch.HandleTopic(context.Background(), "   ")
	question := h.orch.HandleTextQuestion(context.Background(), "")

	require.False(t, topic.OK())
	require.False(t, question.OK())
	assert.Equal(t, domain.ErrorKindInvalidInput, topic.Failure.Kind)
	assert.Equal(t, domain.ErrorKindInvalidInput, question.Failure.Kind)
	assert.Empty(t, h.knowledge.topics)
	assert.Empty(t, h.completer.questions)
}

func TestOrchestrator_HandleDispatchesByModality(t *testing.T) {
	h := newHarness(t)
	h.knowledge.result = domain.LookupResult{Found: true, Text: "Everest"}
	h.completer.answers["why?"] = "because"
	h.stt.text = "why?"

	topic := h.orch.Handle(context.Background(), domain.Query{Modality: domain.ModalityTopic, Text: "Everest"})
	text := h.orch.Handle(context.Background(), domain.Query{Modality: domain.ModalityTextQuestion, Text: "why?"})
	voice := h.orch.Handle(context.Background(), domain.Query{Modality: domain.ModalityVoiceQuestion})
	unknown := h.orch.Handle(context.Background(), domain.Query{Modality: "smell"})

	assert.Equal(t, "Everest", topic.Answer.Text)
	assert.Equal(t, "because", text.Answer.Text)
	assert.Equal(t, "because", voice.Answer.Text)
	require.False(t, unknown.OK())
	assert.Equal(t, domain.ErrorKindInvalidInput, unknown.Failure.Kind)
}

func TestOrchestrator_RunsDetachedFromCallerCancellation(t *testing.T) {
	h := newHarness(t)
	h.completer.answers["What is gravity?"] = "Gravity is a force..."

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	out := h.orch.HandleTextQuestion(ctx, "What is gravity?")

	require.True(t, out.OK())
}
