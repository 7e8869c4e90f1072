package domain

type ErrorKind string

const (
	ErrorKindExternalService      ErrorKind = "external_service_error"
	ErrorKindNoSpeechDetected     ErrorKind = "no_speech_detected"
	ErrorKindUnintelligible       ErrorKind = "unintelligible"
	ErrorKindTranscriptionService ErrorKind = "transcription_service_error"
	ErrorKindCaptureDevice        ErrorKind = "capture_device_error"
	ErrorKindInvalidInput         ErrorKind = "invalid_input"
)

var errorMessages = map[ErrorKind]string{
	ErrorKindExternalService:      "The answer service is unavailable right now. Please try again later.",
	ErrorKindNoSpeechDetected:     "No speech was detected. Please speak after pressing the button.",
	ErrorKindUnintelligible:       "Sorry, I could not understand what you said. Please say it again.",
	ErrorKindTranscriptionService: "The speech recognition service could not be reached. Please check your connection.",
	ErrorKindCaptureDevice:        "The microphone could not be opened. Please check your audio input device.",
	ErrorKindInvalidInput:         "Please enter something to ask about.",
}

// Message returns the user-facing text for the kind.
func (k ErrorKind) Message() string {
	if msg, ok := errorMessages[k]; ok {
		return msg
	}
	return "Something went wrong."
}

type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

type Failure struct {
	Kind   ErrorKind
	Detail string
}

func (f *Failure) Message() string {
	return f.Kind.Message()
}

// Outcome is the result of every orchestrator operation: exactly one of
// Answer (on success) or Failure (on failure) is meaningful.
type Outcome struct {
	Status  Status
	Answer  Answer
	Failure *Failure
}

func Succeed(answer Answer) Outcome {
	return Outcome{Status: StatusSuccess, Answer: answer}
}

func Fail(kind ErrorKind, detail string) Outcome {
	return Outcome{Status: StatusFailure, Failure: &Failure{Kind: kind, Detail: detail}}
}

func (o Outcome) OK() bool {
	return o.Status == StatusSuccess
}
