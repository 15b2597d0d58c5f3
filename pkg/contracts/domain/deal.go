package domain

import "time"

// Deal is the minimal deal registry entry uploads and valuations attach to.
type Deal struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	PropertyType string    `json:"property_type"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

// Dataset kinds a document upload may carry.
const (
	DocumentKindRentRoll = "rent_roll"
	DocumentKindT12      = "t12"
)

// Document processing states. A document never remains "pending" after its
// upload request finishes: it is marked completed or failed with the causal
// message attached.
const (
	DocumentStatusPending   = "pending"
	DocumentStatusCompleted = "completed"
	DocumentStatusFailed    = "failed"
)

// Document records one uploaded source file and its processing outcome.
// ContentHash is the md5 of the raw bytes and drives idempotency: a
// byte-identical re-upload of an already-completed document is a no-op.
type Document struct {
	ID               string    `json:"id"`
	DealID           int64     `json:"deal_id"`
	Kind             string    `json:"kind"`
	OriginalFilename string    `json:"original_filename"`
	FileSize         int64     `json:"file_size"`
	ContentType      string    `json:"content_type"`
	ContentHash      string    `json:"content_hash"`
	Status           string    `json:"status"`
	Error            string    `json:"error,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// AuditEvent is an append-only record of a significant mutation to a deal.
type AuditEvent struct {
	ID          int64             `json:"id"`
	DealID      int64             `json:"deal_id"`
	EventType   string            `json:"event_type"`
	Description string            `json:"description"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}
