package application

import (
	"context"

	"askme/internal/domain"
)

// ExchangeStore holds the single most recent exchange. Save replaces any
// previous record.
type ExchangeStore interface {
	Save(ctx context.Context, exchange domain.Exchange) error
	Latest(ctx context.Context) (domain.Exchange, bool, error)
}
