package domain

import "time"

type Source string

const (
	SourceEncyclopedia Source = "encyclopedia"
	SourceCompletion   Source = "completion"
)

// NotFoundAnswer is returned for topics without a matching encyclopedia page.
const NotFoundAnswer = "I couldn't find any information on that topic."

type Answer struct {
	Text   string
	Source Source
}

// Exchange is the single persisted question/answer record. Each successful
// question replaces it entirely.
type Exchange struct {
	Question   string    `json:"question" yaml:"question"`
	Answer     string    `json:"answer" yaml:"answer"`
	RecordedAt time.Time `json:"recorded_at" yaml:"recorded_at"`
}
