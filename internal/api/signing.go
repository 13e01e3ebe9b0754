package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/parafeur/parafeur/internal/core"
	"github.com/parafeur/parafeur/internal/logging"
	"github.com/parafeur/parafeur/internal/signing"
)

// invalidLinkMessage is the only thing a failed lookup reveals. Whether the
// token never existed or the document was cancelled, the client sees the
// same message.
const invalidLinkMessage = "invalid or expired link"

// SigningAPI handles the public signing endpoints
type SigningAPI struct {
	service *signing.Service
}

// NewSigningAPI creates a new signing API
func NewSigningAPI(service *signing.Service) *SigningAPI {
	return &SigningAPI{service: service}
}

// handleResolve returns the document behind a signing link, merged with its
// extra payload, plus the role the token resolved to. The renderer uses the
// role to pick the devis or contrat presentation.
func (api *SigningAPI) handleResolve(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	doc, role, err := api.service.Resolve(r.Context(), token)
	if err != nil {
		if errors.Is(err, core.ErrInvalidToken) || errors.Is(err, core.ErrDocumentNotFound) {
			respondError(w, http.StatusNotFound, invalidLinkMessage)
			return
		}
		logging.WithField("error", err.Error()).Error("token resolution failed")
		respondError(w, http.StatusServiceUnavailable, "service unavailable")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"document":      doc,
		"resolved_role": role,
	})
}

// handleSign accepts the signature payload and runs the signing flow.
//
// A document that is already signed responds 200 with the signed state
// rather than an error: the common cause is the client refreshing or
// double-clicking, and re-showing the confirmation is what they expect.
func (api *SigningAPI) handleSign(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	var input struct {
		Signature string `json:"signature"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	result, err := api.service.Sign(r.Context(), token, input.Signature)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrInvalidToken), errors.Is(err, core.ErrDocumentNotFound):
			respondError(w, http.StatusNotFound, invalidLinkMessage)
		case errors.Is(err, core.ErrEmptySignature):
			respondError(w, http.StatusBadRequest, "signature required")
		case errors.Is(err, core.ErrAlreadySigned):
			api.respondAlreadySigned(w, r, token)
		default:
			logging.WithField("error", err.Error()).Error("signing failed")
			respondError(w, http.StatusServiceUnavailable, "service unavailable")
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"document":      result.Document,
		"resolved_role": result.Role,
		"migrated":      result.Migrated,
		"degraded":      result.Degraded,
	})
}

// respondAlreadySigned re-resolves the token and shows the signed state.
func (api *SigningAPI) respondAlreadySigned(w http.ResponseWriter, r *http.Request, token string) {
	doc, role, err := api.service.Resolve(r.Context(), token)
	if err != nil {
		// Signed and relocated between our write attempt and this read;
		// the link still answers, so ask the client to retry.
		respondError(w, http.StatusServiceUnavailable, "service unavailable")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"document":       doc,
		"resolved_role":  role,
		"already_signed": true,
	})
}
