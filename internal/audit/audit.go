// Package audit records operator actions against the registry. Mutations to
// person records are irreversible from the client's point of view, so each
// one leaves a trail entry regardless of outcome.
package audit

import (
	"context"
	"log/slog"
	"time"
)

// Action identifies the kind of operator action being recorded.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Event is one operator action against the registry.
type Event struct {
	Action  Action
	TaxCode string // PII; identity key of the affected record
	Outcome string
	At      time.Time
}

// Publisher emits audit events. Implementations must never let a publish
// failure affect domain state; emitting is strictly best-effort.
type Publisher interface {
	Emit(ctx context.Context, e Event)
}

// LogPublisher writes audit events to a structured logger.
type LogPublisher struct {
	log *slog.Logger
}

// NewLogPublisher builds a Publisher backed by log.
func NewLogPublisher(log *slog.Logger) *LogPublisher {
	if log == nil {
		log = slog.Default()
	}
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Emit(ctx context.Context, e Event) {
	p.log.InfoContext(ctx, "audit",
		"action", string(e.Action),
		"tax_code", e.TaxCode,
		"outcome", e.Outcome,
		"at", e.At.UTC().Format(time.RFC3339),
	)
}

// Nop discards all events. Useful in tests.
type Nop struct{}

func (Nop) Emit(context.Context, Event) {}
