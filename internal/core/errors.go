// Package core defines the fundamental types and errors for Parafeur.
package core

import "errors"

// Core errors that can occur across the system
var (
	// Resolution errors
	ErrInvalidToken     = errors.New("invalid token")
	ErrDocumentNotFound = errors.New("document not found")

	// Signature errors
	ErrEmptySignature = errors.New("empty signature payload")
	ErrAlreadySigned  = errors.New("document is already signed")

	// Migration errors
	ErrMigrationFailed = errors.New("quote migration failed")

	// Storage errors
	ErrDuplicateID      = errors.New("duplicate document id")
	ErrUnknownField     = errors.New("unknown token field")
	ErrUnknownKind      = errors.New("unknown document kind")
	ErrDatabaseNotFound = errors.New("database not found")

	// Notification errors
	ErrNotificationNotFound = errors.New("notification not found")

	// Validation errors
	ErrInvalidInput    = errors.New("invalid input")
	ErrMissingRequired = errors.New("missing required field")
)
