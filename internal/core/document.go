// Package core defines the fundamental types for Parafeur.
// A Document is the same business object at two lifecycle stages:
// a quote ("devis") before signature, a contract ("contrat") after.
package core

import (
	"strings"
	"time"
)

// Kind tells which collection a document was read from. It is assigned at
// read time by the store and is never persisted as a column of its own.
type Kind string

const (
	KindQuote    Kind = "devis"
	KindContract Kind = "contrat"
)

// Role is the semantic slot a matched token occupies. It is independent of
// the collection that currently holds the record: a legacy token stamped as
// accessTokenQuote can live on a row in the contracts table.
type Role string

const (
	RoleQuote    Role = "devis"
	RoleContract Role = "contrat"
)

// Document lifecycle states. The set is open (rows created elsewhere may
// carry other values); the core only ever distinguishes signed vs not.
const (
	StatusDraft     = "draft"
	StatusSent      = "sent"
	StatusSigned    = "signed"
	StatusCancelled = "cancelled"
	StatusRefused   = "refused"
)

// TokenField names one of the historical access-token slots.
type TokenField string

const (
	FieldTokenContract TokenField = "accessTokenContract"
	FieldTokenQuote    TokenField = "accessTokenQuote"
	FieldTokenLegacy   TokenField = "accessTokenLegacy"
)

// Well-known Extra keys. Everything not listed here is opaque pass-through
// owned by the authoring and rendering layers.
const (
	ExtraAccessToken    = "accessToken" // generic slot stamped at sign time
	ExtraQuoteSigned    = "quoteSigned"
	ExtraContractSigned = "contractSigned"
	ExtraSignatureData  = "signatureData"
	ExtraSignedAt       = "signedAt"
	ExtraReference      = "reference"
	ExtraClientName     = "clientName"
)

// Document is the canonical record, materialized identically whether it was
// read from the quotes or the contracts table.
type Document struct {
	ID        string         `json:"id"`
	Kind      Kind           `json:"kind"`
	Name      string         `json:"name"`
	Total     float64        `json:"total"`
	Status    string         `json:"status"`
	Extra     map[string]any `json:"extra,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// IsSigned reports whether the document reached its terminal state.
func (d *Document) IsSigned() bool {
	return d.Status == StatusSigned
}

// Token returns the value stored in one of the token slots, "" if unset.
func (d *Document) Token(field TokenField) string {
	return d.ExtraString(string(field))
}

// ExtraString reads a string-valued extra field, "" for missing or non-string.
func (d *Document) ExtraString(key string) string {
	if d.Extra == nil {
		return ""
	}
	s, _ := d.Extra[key].(string)
	return s
}

// ExtraBool reads a bool-valued extra field.
func (d *Document) ExtraBool(key string) bool {
	if d.Extra == nil {
		return false
	}
	b, _ := d.Extra[key].(bool)
	return b
}

// SetExtra writes an extra field, allocating the map on first use.
func (d *Document) SetExtra(key string, value any) {
	if d.Extra == nil {
		d.Extra = make(map[string]any)
	}
	d.Extra[key] = value
}

// ClientName returns the best display name for the signing client.
func (d *Document) ClientName() string {
	if name := d.ExtraString(ExtraClientName); name != "" {
		return name
	}
	return d.Name
}

// Clone returns a deep copy. Nested maps inside Extra are copied one level
// deep, which covers the JSON shapes the store produces.
func (d *Document) Clone() *Document {
	out := *d
	if d.Extra != nil {
		out.Extra = cloneExtra(d.Extra)
	}
	return &out
}

func cloneExtra(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		if nested, ok := v.(map[string]any); ok {
			out[k] = cloneExtra(nested)
			continue
		}
		out[k] = v
	}
	return out
}

// Id prefixes for the two kinds.
const (
	QuoteIDPrefix    = "D-"
	ContractIDPrefix = "C-"
)

// QuoteID mints a quote id: D-<yyyymmdd>-<client initials>.
func QuoteID(clientName string, at time.Time) string {
	return QuoteIDPrefix + at.Format("20060102") + "-" + Initials(clientName)
}

// ContractID derives the contract id for a migrating quote. The D- prefix is
// rewritten to C-; an unrecognized id keeps its full text behind a C- prefix.
func ContractID(quoteID string) string {
	if rest, ok := strings.CutPrefix(quoteID, QuoteIDPrefix); ok {
		return ContractIDPrefix + rest
	}
	return ContractIDPrefix + quoteID
}

// KindFromID infers a document's role from its id prefix. Used only for
// legacy tokens whose field name does not carry the role. Returns fallback
// when the prefix is unrecognized.
func KindFromID(id string, fallback Kind) Kind {
	switch {
	case strings.HasPrefix(id, QuoteIDPrefix):
		return KindQuote
	case strings.HasPrefix(id, ContractIDPrefix):
		return KindContract
	default:
		return fallback
	}
}

// Initials extracts uppercase initials from a client name ("Jane Doe" -> "JD").
func Initials(name string) string {
	var b strings.Builder
	for _, part := range strings.Fields(name) {
		r := []rune(part)[0]
		if r >= 'a' && r <= 'z' {
			r -= 'a' - 'A'
		}
		b.WriteRune(r)
	}
	if b.Len() == 0 {
		return "XX"
	}
	return b.String()
}
