package signing

import (
	"context"
	"errors"
	"fmt"

	"github.com/parafeur/parafeur/internal/core"
)

// probe is one (collection, token field) pair in the resolution order.
type probe struct {
	Kind  core.Kind
	Field core.TokenField
}

// probeOrder is the canonical token search order. Tokens were stamped under
// different field names over the system's history, so the same value can
// exist in several places; the first match in this order wins and later
// matches are never consulted. Changing the order changes which document a
// colliding token resolves to, so treat it as a compatibility contract.
var probeOrder = []probe{
	{core.KindContract, core.FieldTokenContract},
	{core.KindContract, core.FieldTokenQuote},
	{core.KindContract, core.FieldTokenLegacy},
	{core.KindQuote, core.FieldTokenContract},
	{core.KindQuote, core.FieldTokenQuote},
	{core.KindQuote, core.FieldTokenLegacy},
}

// Resolver locates the document a signing token belongs to and decides the
// semantic role the token occupies.
type Resolver struct {
	repo Repository
}

// NewResolver creates a resolver over a document repository
func NewResolver(repo Repository) *Resolver {
	return &Resolver{repo: repo}
}

// Resolve finds the single document carrying token. Probes run sequentially
// to keep the priority order deterministic. Returns core.ErrInvalidToken for
// an empty token and core.ErrDocumentNotFound when the search space is
// exhausted.
func (r *Resolver) Resolve(ctx context.Context, token string) (*core.Document, core.Role, error) {
	if token == "" {
		return nil, "", core.ErrInvalidToken
	}

	for _, p := range probeOrder {
		doc, err := r.repo.FindOneByToken(ctx, p.Kind, p.Field, token)
		if errors.Is(err, core.ErrDocumentNotFound) {
			continue
		}
		if err != nil {
			return nil, "", fmt.Errorf("probe %s/%s: %w", p.Kind, p.Field, err)
		}
		return doc, roleForMatch(doc, p.Field), nil
	}

	return nil, "", core.ErrDocumentNotFound
}

// roleForMatch derives the resolved role from the field the token matched,
// not from the collection holding the record: a quote-slot token on a row in
// the contracts table still signs in its quote role. Legacy tokens carry no
// role in their field name, so the id prefix decides, falling back to the
// home collection for unrecognized ids.
func roleForMatch(doc *core.Document, field core.TokenField) core.Role {
	switch field {
	case core.FieldTokenContract:
		return core.RoleContract
	case core.FieldTokenQuote:
		return core.RoleQuote
	default:
		if core.KindFromID(doc.ID, doc.Kind) == core.KindContract {
			return core.RoleContract
		}
		return core.RoleQuote
	}
}
