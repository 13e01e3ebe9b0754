package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/parafeur/parafeur/internal/core"
)

// DocumentStore handles quote and contract persistence. Both kinds share one
// row shape; the kind of a loaded document is assigned from the table it was
// read from.
type DocumentStore struct {
	db *DB
}

// NewDocumentStore creates a new document store
func NewDocumentStore(db *DB) *DocumentStore {
	return &DocumentStore{db: db}
}

const documentColumns = `id, display_name, total, status,
	access_token_quote, access_token_contract, access_token_legacy, access_token,
	extra, created_at, updated_at`

func tableFor(kind core.Kind) (string, error) {
	switch kind {
	case core.KindQuote:
		return "quotes", nil
	case core.KindContract:
		return "contracts", nil
	default:
		return "", fmt.Errorf("%w: %q", core.ErrUnknownKind, kind)
	}
}

func tokenColumnFor(field core.TokenField) (string, error) {
	switch field {
	case core.FieldTokenQuote:
		return "access_token_quote", nil
	case core.FieldTokenContract:
		return "access_token_contract", nil
	case core.FieldTokenLegacy:
		return "access_token_legacy", nil
	default:
		return "", fmt.Errorf("%w: %q", core.ErrUnknownField, field)
	}
}

// FindOneByToken returns the single document in the given collection whose
// token slot equals value, or core.ErrDocumentNotFound.
func (s *DocumentStore) FindOneByToken(ctx context.Context, kind core.Kind, field core.TokenField, value string) (*core.Document, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	column, err := tokenColumnFor(field)
	if err != nil {
		return nil, err
	}

	row := s.db.conn.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM `+table+` WHERE `+column+` = ? LIMIT 1`, value)
	return scanDocument(row, kind)
}

// FindOneByAccessToken looks a document up through the generic accessToken
// slot stamped at sign time. The renderer re-fetches signed documents here.
func (s *DocumentStore) FindOneByAccessToken(ctx context.Context, kind core.Kind, value string) (*core.Document, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	row := s.db.conn.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM `+table+` WHERE access_token = ? LIMIT 1`, value)
	return scanDocument(row, kind)
}

// GetByID returns a document by id, or core.ErrDocumentNotFound.
func (s *DocumentStore) GetByID(ctx context.Context, kind core.Kind, id string) (*core.Document, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	row := s.db.conn.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM `+table+` WHERE id = ?`, id)
	return scanDocument(row, kind)
}

// Insert creates a new document row in the collection named by doc.Kind.
// An id collision maps to core.ErrDuplicateID so callers can tell a lost
// migration race from a transport failure.
func (s *DocumentStore) Insert(ctx context.Context, doc *core.Document) error {
	table, err := tableFor(doc.Kind)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	cols := splitColumns(doc)
	_, err = s.db.conn.ExecContext(ctx, `
		INSERT INTO `+table+` (`+documentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		doc.ID, doc.Name, doc.Total, doc.Status,
		cols.tokenQuote, cols.tokenContract, cols.tokenLegacy, cols.token,
		cols.extraJSON, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return fmt.Errorf("%w: %s", core.ErrDuplicateID, doc.ID)
		}
		return err
	}
	return nil
}

// SignIfUnsigned persists the signed state of doc conditionally: the write
// succeeds only if the row is still unsigned at write time. A request that
// loses the race gets core.ErrAlreadySigned, never a silent overwrite.
func (s *DocumentStore) SignIfUnsigned(ctx context.Context, doc *core.Document) error {
	table, err := tableFor(doc.Kind)
	if err != nil {
		return err
	}

	doc.UpdatedAt = time.Now().UTC()
	cols := splitColumns(doc)

	res, err := s.db.conn.ExecContext(ctx, `
		UPDATE `+table+` SET status = ?, access_token = ?, extra = ?, updated_at = ?
		WHERE id = ? AND status != ?
	`, doc.Status, cols.token, cols.extraJSON, doc.UpdatedAt, doc.ID, core.StatusSigned)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// Row is gone (migrated away) or a concurrent signer got there first.
		return core.ErrAlreadySigned
	}
	return nil
}

// Update rewrites every mutable column of an existing row.
func (s *DocumentStore) Update(ctx context.Context, doc *core.Document) error {
	table, err := tableFor(doc.Kind)
	if err != nil {
		return err
	}

	doc.UpdatedAt = time.Now().UTC()
	cols := splitColumns(doc)

	res, err := s.db.conn.ExecContext(ctx, `
		UPDATE `+table+` SET display_name = ?, total = ?, status = ?,
			access_token_quote = ?, access_token_contract = ?, access_token_legacy = ?,
			access_token = ?, extra = ?, updated_at = ?
		WHERE id = ?
	`,
		doc.Name, doc.Total, doc.Status,
		cols.tokenQuote, cols.tokenContract, cols.tokenLegacy,
		cols.token, cols.extraJSON, doc.UpdatedAt, doc.ID,
	)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return core.ErrDocumentNotFound
	}
	return nil
}

// Delete removes a document row. Deleting an absent row is not an error.
func (s *DocumentStore) Delete(ctx context.Context, kind core.Kind, id string) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}

	_, err = s.db.conn.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id)
	return err
}

// List returns the newest documents of one kind.
func (s *DocumentStore) List(ctx context.Context, kind core.Kind, limit int) ([]*core.Document, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT `+documentColumns+` FROM `+table+` ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*core.Document
	for rows.Next() {
		doc, err := scanDocument(rows, kind)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// columnValues is the typed-column projection of a document's extra data.
// Token slots are stored as indexed columns so the resolver probes stay
// single-row lookups; everything else rides in the extra JSON blob.
type columnValues struct {
	tokenQuote    sql.NullString
	tokenContract sql.NullString
	tokenLegacy   sql.NullString
	token         sql.NullString
	extraJSON     string
}

func splitColumns(doc *core.Document) columnValues {
	cols := columnValues{extraJSON: "{}"}
	if doc.Extra == nil {
		return cols
	}

	rest := make(map[string]any, len(doc.Extra))
	for k, v := range doc.Extra {
		rest[k] = v
	}
	cols.tokenQuote = takeToken(rest, string(core.FieldTokenQuote))
	cols.tokenContract = takeToken(rest, string(core.FieldTokenContract))
	cols.tokenLegacy = takeToken(rest, string(core.FieldTokenLegacy))
	cols.token = takeToken(rest, core.ExtraAccessToken)

	if data, err := json.Marshal(rest); err == nil {
		cols.extraJSON = string(data)
	}
	return cols
}

func takeToken(extra map[string]any, key string) sql.NullString {
	v, ok := extra[key].(string)
	delete(extra, key)
	if !ok || v == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner, kind core.Kind) (*core.Document, error) {
	doc := &core.Document{Kind: kind}
	var cols columnValues

	err := row.Scan(
		&doc.ID, &doc.Name, &doc.Total, &doc.Status,
		&cols.tokenQuote, &cols.tokenContract, &cols.tokenLegacy, &cols.token,
		&cols.extraJSON, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, core.ErrDocumentNotFound
	}
	if err != nil {
		return nil, err
	}

	doc.Extra = make(map[string]any)
	if cols.extraJSON != "" {
		if err := json.Unmarshal([]byte(cols.extraJSON), &doc.Extra); err != nil {
			return nil, fmt.Errorf("corrupt extra data on %s: %w", doc.ID, err)
		}
	}
	putToken(doc, string(core.FieldTokenQuote), cols.tokenQuote)
	putToken(doc, string(core.FieldTokenContract), cols.tokenContract)
	putToken(doc, string(core.FieldTokenLegacy), cols.tokenLegacy)
	putToken(doc, core.ExtraAccessToken, cols.token)

	return doc, nil
}

func putToken(doc *core.Document, key string, v sql.NullString) {
	if v.Valid && v.String != "" {
		doc.SetExtra(key, v.String)
	}
}
