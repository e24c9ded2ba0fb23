package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/msbfinance/loan-office/internal/apperr"
	"github.com/msbfinance/loan-office/internal/models"
)

// CreateDocument creates a new document metadata row
func (r *Repository) CreateDocument(ctx context.Context, doc *models.Document) error {
	query := `
		INSERT INTO loanoffice.documents
			(user_id, storage_key, file_name, content_type, size_bytes, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, CURRENT_TIMESTAMP)
		RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query,
		doc.UserID, doc.StorageKey, doc.FileName, doc.ContentType, doc.SizeBytes, doc.Status).
		Scan(&doc.ID, &doc.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

// FindDocumentByID retrieves a document by id
func (r *Repository) FindDocumentByID(ctx context.Context, id int64) (*models.Document, error) {
	doc := &models.Document{}
	query := `
		SELECT id, user_id, storage_key, file_name, content_type, size_bytes, status, created_at
		FROM loanoffice.documents
		WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&doc.ID, &doc.UserID, &doc.StorageKey, &doc.FileName,
		&doc.ContentType, &doc.SizeBytes, &doc.Status, &doc.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, apperr.New(apperr.NotFound, "document not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find document: %w", err)
	}
	return doc, nil
}

// ListDocumentsByUser retrieves all documents owned by a user.
func (r *Repository) ListDocumentsByUser(ctx context.Context, userID int64) ([]models.Document, error) {
	query := `
		SELECT id, user_id, storage_key, file_name, content_type, size_bytes, status, created_at
		FROM loanoffice.documents
		WHERE user_id = $1
		ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(&d.ID, &d.UserID, &d.StorageKey, &d.FileName,
			&d.ContentType, &d.SizeBytes, &d.Status, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read documents: %w", err)
	}
	return docs, nil
}

// ListDocuments retrieves all documents with owner name and email populated
// for the admin view. A deleted owner yields fallback display values.
func (r *Repository) ListDocuments(ctx context.Context) ([]models.Document, error) {
	query := `
		SELECT d.id, d.user_id, d.storage_key, d.file_name, d.content_type,
		       d.size_bytes, d.status, d.created_at,
		       COALESCE(u.name, 'unknown'), COALESCE(u.email, 'unknown')
		FROM loanoffice.documents d
		LEFT JOIN loanoffice.users u ON u.id = d.user_id
		ORDER BY d.created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(&d.ID, &d.UserID, &d.StorageKey, &d.FileName,
			&d.ContentType, &d.SizeBytes, &d.Status, &d.CreatedAt,
			&d.OwnerName, &d.OwnerEmail); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read documents: %w", err)
	}
	return docs, nil
}

// UpdateDocumentStatus writes the status field and returns the updated row.
func (r *Repository) UpdateDocumentStatus(ctx context.Context, id int64, status string) (*models.Document, error) {
	query := `
		UPDATE loanoffice.documents
		SET status = $1
		WHERE id = $2
		RETURNING id, user_id, storage_key, file_name, content_type, size_bytes, status, created_at`
	doc := &models.Document{}
	err := r.db.QueryRowContext(ctx, query, status, id).Scan(
		&doc.ID, &doc.UserID, &doc.StorageKey, &doc.FileName,
		&doc.ContentType, &doc.SizeBytes, &doc.Status, &doc.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, apperr.New(apperr.NotFound, "document not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update document status: %w", err)
	}
	return doc, nil
}

// DeleteDocument removes the metadata row. The object-store delete must
// have succeeded before this is called.
func (r *Repository) DeleteDocument(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM loanoffice.documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.New(apperr.NotFound, "document not found")
	}
	return nil
}
