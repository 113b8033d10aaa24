package registry

import (
	"context"

	"anagrafe/internal/domain"
)

// API is the typed surface of the external person registry. Implementations
// perform exactly one external call per operation and never retry; local
// state transitions belong to the controller, based on operation outcomes.
//
// Ordering of List and the matching semantics of SearchByName are
// server-defined and must not be relied upon.
type API interface {
	Create(ctx context.Context, p domain.Person) error
	Get(ctx context.Context, taxCode string) (domain.Person, error)
	List(ctx context.Context) ([]domain.Person, error)
	Update(ctx context.Context, taxCode string, p domain.Person) error
	Delete(ctx context.Context, taxCode string) error
	SearchByName(ctx context.Context, query string) ([]domain.Person, error)
}
