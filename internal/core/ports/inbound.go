package ports

import (
	"context"

	"github.com/cleanlight/instant-sme/internal/core/domain"
)

// AnswerService is the inbound contract for the ask orchestrator and the
// lower-level bundle entry point.
type AnswerService interface {
	Ask(ctx context.Context, req domain.AskRequest) (*domain.AnswerPack, error)
	Bundle(ctx context.Context, topic string, limits domain.BundleLimits) (*domain.Bundle, error)
}

// HintsService builds the self-describing hints envelope for agent callers.
type HintsService interface {
	BuildHints(ctx context.Context, question, docPattern string) (*domain.Hints, error)
}
