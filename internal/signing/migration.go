package signing

import (
	"context"
	"fmt"

	"github.com/parafeur/parafeur/internal/core"
	"github.com/parafeur/parafeur/internal/logging"
)

// MigrationEngine relocates an already-signed quote into the contract
// collection under a rewritten id. It never signs anything itself.
//
// The store offers no cross-table transaction, so the move is insert-then-
// delete. A failed insert aborts the move (the quote is already signed in
// place, so the caller reports degraded success). A failed delete leaves an
// orphaned quote next to the new contract; that inconsistency is logged for
// operator cleanup, never repaired automatically.
type MigrationEngine struct {
	repo Repository
}

// NewMigrationEngine creates a migration engine over a document repository
func NewMigrationEngine(repo Repository) *MigrationEngine {
	return &MigrationEngine{repo: repo}
}

// MigrateToContract builds and inserts the contract twin of signedQuote,
// then removes the original quote row. The returned contract keeps the full
// extra payload, the signature fields, the original creation time and the
// generic accessToken, so every previously issued link still resolves.
func (e *MigrationEngine) MigrateToContract(ctx context.Context, signedQuote *core.Document) (*core.Document, error) {
	contract := signedQuote.Clone()
	contract.ID = core.ContractID(signedQuote.ID)
	contract.Kind = core.KindContract
	contract.Status = core.StatusSigned
	contract.SetExtra(core.ExtraReference, contract.ID)

	// The signed flag carries the kind-specific name; on a contract row
	// that is contractSigned, whatever role the token was signed under.
	delete(contract.Extra, core.ExtraQuoteSigned)
	contract.SetExtra(core.ExtraContractSigned, true)

	if err := e.repo.Insert(ctx, contract); err != nil {
		return nil, fmt.Errorf("%w: insert %s: %v", core.ErrMigrationFailed, contract.ID, err)
	}

	if err := e.repo.Delete(ctx, core.KindQuote, signedQuote.ID); err != nil {
		logging.WithFields(map[string]interface{}{
			"quote_id":    signedQuote.ID,
			"contract_id": contract.ID,
		}).Warn("orphaned quote left behind after migration: %v", err)
	}

	return contract, nil
}
