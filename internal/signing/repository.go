// Package signing implements the client signing flow: token resolution,
// the unsigned to signed transition, and the promotion of a signed quote
// into the contract collection.
package signing

import (
	"context"

	"github.com/parafeur/parafeur/internal/core"
)

// Repository is the slice of document persistence the signing flow needs.
// *storage.DocumentStore satisfies it; tests substitute an in-memory fake.
type Repository interface {
	// FindOneByToken returns the single document in the collection whose
	// token slot equals value, or core.ErrDocumentNotFound.
	FindOneByToken(ctx context.Context, kind core.Kind, field core.TokenField, value string) (*core.Document, error)

	// Insert creates a document in the collection named by doc.Kind.
	// An id collision is reported as core.ErrDuplicateID.
	Insert(ctx context.Context, doc *core.Document) error

	// SignIfUnsigned persists doc's signed state only if the stored row is
	// still unsigned, returning core.ErrAlreadySigned otherwise.
	SignIfUnsigned(ctx context.Context, doc *core.Document) error

	// Delete removes a document. A missing row is not an error.
	Delete(ctx context.Context, kind core.Kind, id string) error
}

// Notifier receives best-effort signature events. Implementations must
// swallow their own failures.
type Notifier interface {
	Emit(ctx context.Context, documentID string, kind core.Kind, clientName string)
}
