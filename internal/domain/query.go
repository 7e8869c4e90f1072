package domain

type Modality string

const (
	ModalityTopic         Modality = "topic"
	ModalityTextQuestion  Modality = "text_question"
	ModalityVoiceQuestion Modality = "voice_question"
)

// Query is one invocation of the pipeline. Text is set for the topic and
// text-question modalities; voice questions carry no input.
type Query struct {
	Modality Modality
	Text     string
}

type LookupResult struct {
	Found bool
	Text  string
}
