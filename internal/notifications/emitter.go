package notifications

import (
	"context"
	"fmt"

	"github.com/parafeur/parafeur/internal/core"
	"github.com/parafeur/parafeur/internal/logging"
)

// Emitter appends signature notifications on a best-effort basis. By the
// time it runs the document is durably signed, so nothing that happens here
// may surface to the signing client: every error (and panic) is logged and
// discarded.
type Emitter struct {
	service *Service
}

// NewEmitter creates an emitter over a notification service
func NewEmitter(service *Service) *Emitter {
	return &Emitter{service: service}
}

// Emit records "<client> signed a <devis|contrat> (<id>)". The document id
// is the one the client actually signed: for a migrated quote that is the
// original D- id, not the new contract id.
func (e *Emitter) Emit(ctx context.Context, documentID string, kind core.Kind, clientName string) {
	defer func() {
		if r := recover(); r != nil {
			logging.WithField("document_id", documentID).Error("notification emitter panic: %v", r)
		}
	}()

	if e == nil || e.service == nil {
		return
	}

	if clientName == "" {
		clientName = "A client"
	}

	_, err := e.service.Create(ctx, CreateNotificationRequest{
		Type:         NotifySignature,
		Message:      fmt.Sprintf("%s signed a %s (%s)", clientName, kind, documentID),
		DocumentID:   documentID,
		DocumentKind: string(kind),
	})
	if err != nil {
		logging.WithFields(map[string]interface{}{
			"document_id":   documentID,
			"document_kind": kind,
		}).Error("failed to record signature notification: %v", err)
	}
}
