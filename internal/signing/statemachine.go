package signing

import (
	"time"

	"github.com/parafeur/parafeur/internal/core"
)

// StateMachine applies the only transition a client can trigger:
// unsigned -> signed. Signed is terminal; there is no way back.
type StateMachine struct {
	now func() time.Time
}

// NewStateMachine creates a state machine using wall-clock time
func NewStateMachine() *StateMachine {
	return &StateMachine{now: time.Now}
}

// Sign validates the transition and returns a signed copy of doc. The input
// document is never mutated; persistence is the caller's job. The presented
// token is copied verbatim into the generic accessToken slot so the signed
// document keeps answering to the link the client used, whichever historical
// field the token was originally stamped under.
func (m *StateMachine) Sign(doc *core.Document, role core.Role, token, signature string) (*core.Document, error) {
	if signature == "" {
		return nil, core.ErrEmptySignature
	}
	if doc.IsSigned() {
		// Repeated attempts must fail loudly so double submissions surface
		// in the caller instead of silently re-accepting.
		return nil, core.ErrAlreadySigned
	}

	signed := doc.Clone()
	signed.Status = core.StatusSigned
	signed.SetExtra(core.ExtraSignatureData, signature)
	signed.SetExtra(core.ExtraSignedAt, m.now().UTC().Format(time.RFC3339))
	signed.SetExtra(core.ExtraAccessToken, token)

	if role == core.RoleContract {
		signed.SetExtra(core.ExtraContractSigned, true)
	} else {
		signed.SetExtra(core.ExtraQuoteSigned, true)
	}

	return signed, nil
}
