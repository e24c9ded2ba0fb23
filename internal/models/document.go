package models

import "time"

// Document statuses. Independent from the loan enum; admin may set any
// member, no business rule drives it.
const (
	DocumentPending  = "Pending"
	DocumentApproved = "Approved"
	DocumentRejected = "Rejected"
)

// DocumentStatuses lists every valid document status.
var DocumentStatuses = []string{DocumentPending, DocumentApproved, DocumentRejected}

// Document represents an uploaded supporting document. StorageKey is the
// opaque object-store key; the bytes themselves never touch the database.
type Document struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	StorageKey  string    `json:"storage_key"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`

	// SignedURL is minted per response and never persisted.
	SignedURL string `json:"signed_url,omitempty"`

	// Populated on admin listings only.
	OwnerName  string `json:"owner_name,omitempty"`
	OwnerEmail string `json:"owner_email,omitempty"`
}

// ValidDocumentStatus reports whether s is a member of the document status enum.
func ValidDocumentStatus(s string) bool {
	for _, v := range DocumentStatuses {
		if v == s {
			return true
		}
	}
	return false
}
