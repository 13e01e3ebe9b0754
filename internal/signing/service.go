package signing

import (
	"context"

	"github.com/parafeur/parafeur/internal/core"
	"github.com/parafeur/parafeur/internal/logging"
)

// Result of a successful signing request.
type Result struct {
	// Document is the record as it exists after the request: the new
	// contract when migration ran, otherwise the signed home record.
	Document *core.Document `json:"document"`

	// Role the token resolved to.
	Role core.Role `json:"role"`

	// Migrated reports that the quote was relocated into the contract
	// collection.
	Migrated bool `json:"migrated"`

	// Degraded reports that the document was signed in place because the
	// relocation failed. Callers treat this as success with a warning.
	Degraded bool `json:"degraded"`
}

// Service runs one signing request end to end:
// resolve -> sign -> (migrate) -> notify, strictly in that order.
type Service struct {
	repo     Repository
	resolver *Resolver
	machine  *StateMachine
	engine   *MigrationEngine
	notifier Notifier
}

// NewService creates a signing service. notifier may be nil.
func NewService(repo Repository, notifier Notifier) *Service {
	return &Service{
		repo:     repo,
		resolver: NewResolver(repo),
		machine:  NewStateMachine(),
		engine:   NewMigrationEngine(repo),
		notifier: notifier,
	}
}

// Resolve exposes token resolution for the preview/renderer surface: the
// document merged with its metadata plus the resolved role.
func (s *Service) Resolve(ctx context.Context, token string) (*core.Document, core.Role, error) {
	return s.resolver.Resolve(ctx, token)
}

// Sign executes the full signing flow for a token and signature payload.
//
// The conditional write on the home record is the concurrency gate: of two
// requests racing on one token exactly one passes it, and the loser gets
// core.ErrAlreadySigned before any relocation happens. Migration therefore
// only ever runs on the winner's behalf.
func (s *Service) Sign(ctx context.Context, token, signature string) (*Result, error) {
	doc, role, err := s.resolver.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}

	signed, err := s.machine.Sign(doc, role, token, signature)
	if err != nil {
		return nil, err
	}

	if err := s.repo.SignIfUnsigned(ctx, signed); err != nil {
		return nil, err
	}

	result := &Result{Document: signed, Role: role}

	if role == core.RoleQuote && signed.Kind == core.KindQuote {
		contract, err := s.engine.MigrateToContract(ctx, signed)
		if err != nil {
			// The quote is durably signed in place; the client keeps a
			// usable document even though it never reached the contract
			// collection.
			logging.WithField("quote_id", signed.ID).Warn("quote signed but not migrated: %v", err)
			result.Degraded = true
		} else {
			result.Document = contract
			result.Migrated = true
		}
	}

	// Best effort, after the durable transition. The notification names the
	// id the client signed, which for a migrated quote is the old D- id.
	if s.notifier != nil {
		s.notifier.Emit(ctx, doc.ID, kindForRole(role), signed.ClientName())
	}

	return result, nil
}

func kindForRole(role core.Role) core.Kind {
	if role == core.RoleContract {
		return core.KindContract
	}
	return core.KindQuote
}
