package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apierrors "dealbase/internal/errors"
	"dealbase/pkg/contracts/domain"
)

// CreateDeal inserts a new deal and returns it with its assigned ID.
func (s *Store) CreateDeal(ctx context.Context, deal domain.Deal) (domain.Deal, error) {
	deal.CreatedAt = time.Now().UTC()
	if deal.Status == "" {
		deal.Status = "active"
	}
	err := s.withRetry(ctx, func() error {
		res, err := s.db.ExecContext(ctx,
			`INSERT INTO deals (name, property_type, status, created_at) VALUES (?, ?, ?, ?)`,
			deal.Name, deal.PropertyType, deal.Status, formatTime(deal.CreatedAt))
		if err != nil {
			return err
		}
		deal.ID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return domain.Deal{}, fmt.Errorf("failed to create deal: %w", err)
	}
	return deal, nil
}

// GetDeal loads one deal by ID.
func (s *Store) GetDeal(ctx context.Context, id int64) (domain.Deal, error) {
	var deal domain.Deal
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, property_type, status, created_at FROM deals WHERE id = ?`, id).
		Scan(&deal.ID, &deal.Name, &deal.PropertyType, &deal.Status, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Deal{}, apierrors.ErrDealNotFound
	}
	if err != nil {
		return domain.Deal{}, fmt.Errorf("failed to load deal %d: %w", id, err)
	}
	deal.CreatedAt = parseTime(createdAt)
	return deal, nil
}

// ListDeals returns all deals, newest first.
func (s *Store) ListDeals(ctx context.Context) ([]domain.Deal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, property_type, status, created_at FROM deals ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list deals: %w", err)
	}
	defer rows.Close()

	var deals []domain.Deal
	for rows.Next() {
		var deal domain.Deal
		var createdAt string
		if err := rows.Scan(&deal.ID, &deal.Name, &deal.PropertyType, &deal.Status, &createdAt); err != nil {
			return nil, err
		}
		deal.CreatedAt = parseTime(createdAt)
		deals = append(deals, deal)
	}
	return deals, rows.Err()
}

// CreateDocument registers an uploaded file in its initial state.
func (s *Store) CreateDocument(ctx context.Context, doc domain.Document) error {
	return s.withRetry(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO documents (id, deal_id, kind, original_filename, file_size, content_type, content_hash, status, error, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			doc.ID, doc.DealID, doc.Kind, doc.OriginalFilename, doc.FileSize,
			doc.ContentType, doc.ContentHash, doc.Status, doc.Error, formatTime(doc.CreatedAt))
		return err
	})
}

// UpdateDocumentStatus records the processing outcome of a document.
func (s *Store) UpdateDocumentStatus(ctx context.Context, id, status, errMsg string) error {
	return s.withRetry(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			`UPDATE documents SET status = ?, error = ? WHERE id = ?`, status, errMsg, id)
		return err
	})
}

// FindCompletedDocument looks up an already-processed document with the same
// content hash, for upload idempotency.
func (s *Store) FindCompletedDocument(ctx context.Context, dealID int64, kind, contentHash string) (*domain.Document, error) {
	doc, err := s.scanDocument(s.db.QueryRowContext(ctx,
		`SELECT id, deal_id, kind, original_filename, file_size, content_type, content_hash, status, error, created_at
		 FROM documents WHERE deal_id = ? AND kind = ? AND content_hash = ? AND status = ?
		 ORDER BY created_at DESC LIMIT 1`,
		dealID, kind, contentHash, domain.DocumentStatusCompleted))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up document: %w", err)
	}
	return &doc, nil
}

// ListDocuments returns a deal's documents, newest first.
func (s *Store) ListDocuments(ctx context.Context, dealID int64) ([]domain.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, deal_id, kind, original_filename, file_size, content_type, content_hash, status, error, created_at
		 FROM documents WHERE deal_id = ? ORDER BY created_at DESC`, dealID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		doc, err := s.scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (s *Store) scanDocument(row rowScanner) (domain.Document, error) {
	var doc domain.Document
	var createdAt string
	err := row.Scan(&doc.ID, &doc.DealID, &doc.Kind, &doc.OriginalFilename, &doc.FileSize,
		&doc.ContentType, &doc.ContentHash, &doc.Status, &doc.Error, &createdAt)
	if err != nil {
		return domain.Document{}, err
	}
	doc.CreatedAt = parseTime(createdAt)
	return doc, nil
}

// AppendAuditEvent records one mutation in the append-only audit log.
func (s *Store) AppendAuditEvent(ctx context.Context, event domain.AuditEvent) error {
	metadata := "{}"
	if len(event.Metadata) > 0 {
		data, err := json.Marshal(event.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode audit metadata: %w", err)
		}
		metadata = string(data)
	}
	return s.withRetry(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO audit_events (deal_id, event_type, description, metadata, created_at)
			 VALUES (?, ?, ?, ?, ?)`,
			event.DealID, event.EventType, event.Description, metadata, formatTime(time.Now()))
		return err
	})
}

// ListAuditEvents returns a deal's audit trail, newest first.
func (s *Store) ListAuditEvents(ctx context.Context, dealID int64) ([]domain.AuditEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, deal_id, event_type, description, metadata, created_at
		 FROM audit_events WHERE deal_id = ? ORDER BY id DESC`, dealID)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}
	defer rows.Close()

	var events []domain.AuditEvent
	for rows.Next() {
		var event domain.AuditEvent
		var metadata, createdAt string
		if err := rows.Scan(&event.ID, &event.DealID, &event.EventType, &event.Description, &metadata, &createdAt); err != nil {
			return nil, err
		}
		if metadata != "" && metadata != "{}" {
			if err := json.Unmarshal([]byte(metadata), &event.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode audit metadata: %w", err)
			}
		}
		event.CreatedAt = parseTime(createdAt)
		events = append(events, event)
	}
	return events, rows.Err()
}
