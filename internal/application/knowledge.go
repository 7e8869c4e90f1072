package application

import (
	"context"

	"askme/internal/domain"
)

type KnowledgeSource interface {
	Lookup(ctx context.Context, topic string) (domain.LookupResult, error)
}

// Completer answers a free-form question with generated text.
type Completer interface {
	Complete(ctx context.Context, question string) (string, error)
}
