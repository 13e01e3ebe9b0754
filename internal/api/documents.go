package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/parafeur/parafeur/internal/core"
	"github.com/parafeur/parafeur/internal/storage"
)

// DocumentsAPI handles the operator document endpoints
type DocumentsAPI struct {
	store *storage.DocumentStore
}

// NewDocumentsAPI creates a new documents API
func NewDocumentsAPI(store *storage.DocumentStore) *DocumentsAPI {
	return &DocumentsAPI{store: store}
}

func parseKind(raw string) (core.Kind, error) {
	switch raw {
	case string(core.KindQuote):
		return core.KindQuote, nil
	case string(core.KindContract):
		return core.KindContract, nil
	default:
		return "", core.ErrUnknownKind
	}
}

// handleListDocuments lists one collection, newest first
func (api *DocumentsAPI) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	kind, err := parseKind(r.URL.Query().Get("kind"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "kind must be devis or contrat")
		return
	}

	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		limit, _ = strconv.Atoi(l)
	}

	docs, err := api.store.List(r.Context(), kind, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"documents": docs,
		"count":     len(docs),
	})
}

// handleGetDocument returns one document by collection and id
func (api *DocumentsAPI) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	kind, err := parseKind(chi.URLParam(r, "kind"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "kind must be devis or contrat")
		return
	}

	doc, err := api.store.GetByID(r.Context(), kind, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, core.ErrDocumentNotFound) {
			respondError(w, http.StatusNotFound, "document not found")
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, doc)
}
