package notifications

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/parafeur/parafeur/internal/core"
	"github.com/parafeur/parafeur/internal/storage"
)

// Subscriber receives notifications in real-time
type Subscriber interface {
	Send(notification Notification) error
	ID() string
}

// Service manages notifications
type Service struct {
	db          *storage.DB
	subscribers map[string]Subscriber
	mu          sync.RWMutex
}

// NewService creates a new notification service
func NewService(db *storage.DB) *Service {
	return &Service{
		db:          db,
		subscribers: make(map[string]Subscriber),
	}
}

// Subscribe adds a subscriber for real-time notifications
func (s *Service) Subscribe(sub Subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers[sub.ID()] = sub
}

// Unsubscribe removes a subscriber
func (s *Service) Unsubscribe(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subscribers, id)
}

// Create creates and sends a new notification
func (s *Service) Create(ctx context.Context, req CreateNotificationRequest) (*Notification, error) {
	notification := &Notification{
		ID:           uuid.New().String(),
		Type:         req.Type,
		Message:      req.Message,
		DocumentID:   req.DocumentID,
		DocumentKind: req.DocumentKind,
		Read:         false,
		Dismissed:    false,
		CreatedAt:    time.Now().UTC(),
	}

	if notification.Type == "" {
		notification.Type = NotifySystem
	}

	// Persist to database
	if err := s.save(ctx, notification); err != nil {
		return nil, fmt.Errorf("save notification: %w", err)
	}

	// Broadcast to subscribers
	s.broadcast(*notification)

	return notification, nil
}

// save persists a notification to the database
func (s *Service) save(ctx context.Context, n *Notification) error {
	_, err := s.db.Conn().ExecContext(ctx, `
		INSERT INTO notifications (id, type, message, document_id, document_kind, read, dismissed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, n.ID, n.Type, n.Message, n.DocumentID, n.DocumentKind, n.Read, n.Dismissed, n.CreatedAt)

	return err
}

// broadcast sends notification to all subscribers
func (s *Service) broadcast(n Notification) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sub := range s.subscribers {
		go func(subscriber Subscriber) {
			subscriber.Send(n)
		}(sub)
	}
}

// Get retrieves a notification by ID
func (s *Service) Get(ctx context.Context, id string) (*Notification, error) {
	n := &Notification{}
	var documentID, documentKind sql.NullString
	var readAt, dismissedAt sql.NullTime

	err := s.db.Conn().QueryRowContext(ctx, `
		SELECT id, type, message, document_id, document_kind, read, dismissed, created_at, read_at, dismissed_at
		FROM notifications WHERE id = ?
	`, id).Scan(
		&n.ID, &n.Type, &n.Message, &documentID, &documentKind, &n.Read, &n.Dismissed, &n.CreatedAt, &readAt, &dismissedAt,
	)

	if err == sql.ErrNoRows {
		return nil, core.ErrNotificationNotFound
	}
	if err != nil {
		return nil, err
	}

	n.DocumentID = documentID.String
	n.DocumentKind = documentKind.String
	if readAt.Valid {
		n.ReadAt = &readAt.Time
	}
	if dismissedAt.Valid {
		n.DismissedAt = &dismissedAt.Time
	}

	return n, nil
}

// List retrieves notifications matching the filter, newest first
func (s *Service) List(ctx context.Context, filter NotificationFilter) ([]*Notification, error) {
	query := `
		SELECT id, type, message, document_id, document_kind, read, dismissed, created_at, read_at, dismissed_at
		FROM notifications WHERE 1=1`
	var args []any

	if filter.Type != "" {
		query += " AND type = ?"
		args = append(args, filter.Type)
	}
	if filter.DocumentID != "" {
		query += " AND document_id = ?"
		args = append(args, filter.DocumentID)
	}
	if filter.Read != nil {
		query += " AND read = ?"
		args = append(args, *filter.Read)
	}
	if filter.Dismissed != nil {
		query += " AND dismissed = ?"
		args = append(args, *filter.Dismissed)
	}

	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	} else {
		query += " LIMIT 50"
	}
	if filter.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := s.db.Conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []*Notification
	for rows.Next() {
		n := &Notification{}
		var documentID, documentKind sql.NullString
		var readAt, dismissedAt sql.NullTime

		err := rows.Scan(
			&n.ID, &n.Type, &n.Message, &documentID, &documentKind, &n.Read, &n.Dismissed, &n.CreatedAt, &readAt, &dismissedAt,
		)
		if err != nil {
			continue
		}

		n.DocumentID = documentID.String
		n.DocumentKind = documentKind.String
		if readAt.Valid {
			n.ReadAt = &readAt.Time
		}
		if dismissedAt.Valid {
			n.DismissedAt = &dismissedAt.Time
		}

		notifications = append(notifications, n)
	}

	return notifications, nil
}

// GetUnread retrieves all unread notifications
func (s *Service) GetUnread(ctx context.Context) ([]*Notification, error) {
	read := false
	dismissed := false
	return s.List(ctx, NotificationFilter{Read: &read, Dismissed: &dismissed, Limit: 100})
}

// MarkRead marks a notification as read
func (s *Service) MarkRead(ctx context.Context, id string) error {
	now := time.Now().UTC()
	_, err := s.db.Conn().ExecContext(ctx, `
		UPDATE notifications SET read = TRUE, read_at = ? WHERE id = ?
	`, now, id)
	return err
}

// MarkAllRead marks all notifications as read
func (s *Service) MarkAllRead(ctx context.Context) error {
	now := time.Now().UTC()
	_, err := s.db.Conn().ExecContext(ctx, `
		UPDATE notifications SET read = TRUE, read_at = ? WHERE read = FALSE
	`, now)
	return err
}

// Dismiss dismisses a notification
func (s *Service) Dismiss(ctx context.Context, id string) error {
	now := time.Now().UTC()
	_, err := s.db.Conn().ExecContext(ctx, `
		UPDATE notifications SET dismissed = TRUE, dismissed_at = ? WHERE id = ?
	`, now, id)
	return err
}

// UnreadCount returns the count of unread notifications
func (s *Service) UnreadCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.Conn().QueryRowContext(ctx, `
		SELECT COUNT(*) FROM notifications WHERE read = FALSE AND dismissed = FALSE
	`).Scan(&count)
	return count, err
}

// Cleanup removes old read or dismissed notifications
func (s *Service) Cleanup(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	result, err := s.db.Conn().ExecContext(ctx, `
		DELETE FROM notifications WHERE created_at < ? AND (read = TRUE OR dismissed = TRUE)
	`, cutoff)
	if err != nil {
		return 0, err
	}
	affected, _ := result.RowsAffected()
	return int(affected), nil
}
