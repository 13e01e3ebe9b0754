package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/parafeur/parafeur/internal/core"
	"github.com/parafeur/parafeur/internal/notifications"
	"github.com/parafeur/parafeur/internal/signing"
	"github.com/parafeur/parafeur/internal/storage"
	"github.com/parafeur/parafeur/internal/testutil"
)

// testServer creates a server over an in-memory database
func testServer(t *testing.T) (*Server, *storage.DocumentStore) {
	t.Helper()

	db := testutil.TestDB(t)
	docs := storage.NewDocumentStore(db)
	notifService := notifications.NewService(db)
	emitter := notifications.NewEmitter(notifService)

	srv := New(Config{
		Host:                "localhost",
		Port:                0,
		Signing:             signing.NewService(docs, emitter),
		Documents:           docs,
		NotificationService: notifService,
	})

	return srv, docs
}


func doRequest(srv *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	rr := httptest.NewRecorder()
	srv.router.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	return resp
}

// --- Health ---

func TestAPI_Health(t *testing.T) {
	srv, _ := testServer(t)

	rr := doRequest(srv, "GET", "/api/v1/health", nil)
	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}
}

// --- Resolve ---

func TestAPI_Resolve(t *testing.T) {
	srv, docs := testServer(t)
	testutil.SeedQuote(t, docs, "D-20240115-JD", "tok-123")

	rr := doRequest(srv, "GET", "/api/v1/sign/tok-123", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	resp := decodeBody(t, rr)
	if resp["resolved_role"] != "devis" {
		t.Errorf("resolved_role = %v, want devis", resp["resolved_role"])
	}
	doc := resp["document"].(map[string]interface{})
	if doc["id"] != "D-20240115-JD" {
		t.Errorf("document id = %v", doc["id"])
	}
}

func TestAPI_Resolve_UnknownToken(t *testing.T) {
	srv, _ := testServer(t)

	rr := doRequest(srv, "GET", "/api/v1/sign/tok-ghost", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}

	resp := decodeBody(t, rr)
	if resp["error"] != "invalid or expired link" {
		t.Errorf("error = %v, the message must not say why the lookup failed", resp["error"])
	}
}

// --- Sign ---

func TestAPI_Sign_QuoteMigrates(t *testing.T) {
	srv, docs := testServer(t)
	testutil.SeedQuote(t, docs, "D-20240115-JD", "tok-123")

	rr := doRequest(srv, "POST", "/api/v1/sign/tok-123", map[string]string{"signature": "<png-data>"})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	resp := decodeBody(t, rr)
	if resp["migrated"] != true {
		t.Error("expected migrated=true for a quote-role signature")
	}
	if resp["degraded"] != false {
		t.Error("expected degraded=false")
	}
	doc := resp["document"].(map[string]interface{})
	if doc["id"] != "C-20240115-JD" {
		t.Errorf("document id = %v, want the contract twin", doc["id"])
	}

	// The quote row is gone; the contract row exists and is signed.
	if _, err := docs.GetByID(context.Background(), core.KindQuote, "D-20240115-JD"); err == nil {
		t.Error("quote must be deleted after migration")
	}
	contract, err := docs.GetByID(context.Background(), core.KindContract, "C-20240115-JD")
	if err != nil {
		t.Fatalf("contract missing: %v", err)
	}
	if !contract.IsSigned() {
		t.Error("contract not signed")
	}
}

func TestAPI_Sign_EmptySignature(t *testing.T) {
	srv, docs := testServer(t)
	testutil.SeedQuote(t, docs, "D-1", "tok-1")

	rr := doRequest(srv, "POST", "/api/v1/sign/tok-1", map[string]string{"signature": ""})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
}

func TestAPI_Sign_InvalidJSON(t *testing.T) {
	srv, _ := testServer(t)

	req := httptest.NewRequest("POST", "/api/v1/sign/tok-1", bytes.NewBufferString("{not json"))
	rr := httptest.NewRecorder()
	srv.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
}

func TestAPI_Sign_UnknownToken(t *testing.T) {
	srv, _ := testServer(t)

	rr := doRequest(srv, "POST", "/api/v1/sign/tok-ghost", map[string]string{"signature": "<png>"})
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rr.Code)
	}
}

func TestAPI_Sign_RepeatIsIdempotentShow(t *testing.T) {
	srv, docs := testServer(t)
	testutil.SeedQuote(t, docs, "D-20240115-JD", "tok-123")

	first := doRequest(srv, "POST", "/api/v1/sign/tok-123", map[string]string{"signature": "<png-1>"})
	if first.Code != http.StatusOK {
		t.Fatalf("first sign: expected status 200, got %d", first.Code)
	}

	// Refresh / double submit: 200 again, signed state, no second signature.
	second := doRequest(srv, "POST", "/api/v1/sign/tok-123", map[string]string{"signature": "<png-2>"})
	if second.Code != http.StatusOK {
		t.Fatalf("second sign: expected status 200, got %d: %s", second.Code, second.Body.String())
	}

	resp := decodeBody(t, second)
	if resp["already_signed"] != true {
		t.Error("expected already_signed=true on repeat submission")
	}
	doc := resp["document"].(map[string]interface{})
	extra := doc["extra"].(map[string]interface{})
	if extra["signatureData"] != "<png-1>" {
		t.Errorf("signatureData = %v, the first signature must survive", extra["signatureData"])
	}
}

// --- Documents ---

func TestAPI_ListDocuments(t *testing.T) {
	srv, docs := testServer(t)
	testutil.SeedQuote(t, docs, "D-1", "tok-1")
	testutil.SeedQuote(t, docs, "D-2", "tok-2")

	rr := doRequest(srv, "GET", "/api/v1/documents?kind=devis", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	resp := decodeBody(t, rr)
	if resp["count"] != float64(2) {
		t.Errorf("count = %v, want 2", resp["count"])
	}
}

func TestAPI_ListDocuments_BadKind(t *testing.T) {
	srv, _ := testServer(t)

	rr := doRequest(srv, "GET", "/api/v1/documents?kind=invoice", nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
}

func TestAPI_GetDocument(t *testing.T) {
	srv, docs := testServer(t)
	testutil.SeedQuote(t, docs, "D-1", "tok-1")

	rr := doRequest(srv, "GET", "/api/v1/documents/devis/D-1", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	rr = doRequest(srv, "GET", "/api/v1/documents/contrat/D-1", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("wrong collection: expected status 404, got %d", rr.Code)
	}
}

// --- Notifications ---

func TestAPI_Notifications_SignatureFlow(t *testing.T) {
	srv, docs := testServer(t)
	testutil.SeedQuote(t, docs, "D-20240115-JD", "tok-123")

	if rr := doRequest(srv, "POST", "/api/v1/sign/tok-123", map[string]string{"signature": "<png>"}); rr.Code != http.StatusOK {
		t.Fatalf("sign failed: %d", rr.Code)
	}

	// The emitter persists synchronously before Sign returns, but allow a
	// moment in case the store is briefly busy under -race.
	var resp map[string]interface{}
	deadline := time.Now().Add(2 * time.Second)
	for {
		rr := doRequest(srv, "GET", "/api/v1/notifications", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("list notifications: %d", rr.Code)
		}
		resp = decodeBody(t, rr)
		if resp["count"] == float64(1) || time.Now().After(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if resp["count"] != float64(1) {
		t.Fatalf("count = %v, want 1", resp["count"])
	}

	notifs := resp["notifications"].([]interface{})
	n := notifs[0].(map[string]interface{})
	if n["type"] != "signature" {
		t.Errorf("type = %v, want signature", n["type"])
	}
	if n["document_id"] != "D-20240115-JD" {
		t.Errorf("document_id = %v, want the original quote id", n["document_id"])
	}
	if n["document_kind"] != "devis" {
		t.Errorf("document_kind = %v, want devis", n["document_kind"])
	}

	// Unread count, mark read, count drops.
	rr := doRequest(srv, "GET", "/api/v1/notifications/unread-count", nil)
	if decodeBody(t, rr)["count"] != float64(1) {
		t.Errorf("unread count = %v, want 1", decodeBody(t, rr)["count"])
	}

	id := n["id"].(string)
	if rr := doRequest(srv, "POST", "/api/v1/notifications/"+id+"/read", nil); rr.Code != http.StatusOK {
		t.Fatalf("mark read: %d", rr.Code)
	}
	rr = doRequest(srv, "GET", "/api/v1/notifications/unread-count", nil)
	if decodeBody(t, rr)["count"] != float64(0) {
		t.Errorf("unread count after read = %v, want 0", decodeBody(t, rr)["count"])
	}
}

func TestAPI_CreateNotification_Validation(t *testing.T) {
	srv, _ := testServer(t)

	rr := doRequest(srv, "POST", "/api/v1/notifications", map[string]string{"message": ""})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}

	rr = doRequest(srv, "POST", "/api/v1/notifications", map[string]string{"message": "backup completed"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	resp := decodeBody(t, rr)
	if resp["type"] != "system" {
		t.Errorf("type = %v, want default system", resp["type"])
	}
}

func TestAPI_GetNotification_NotFound(t *testing.T) {
	srv, _ := testServer(t)

	rr := doRequest(srv, "GET", "/api/v1/notifications/nope", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rr.Code)
	}
}
