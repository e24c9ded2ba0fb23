package service

import (
	"context"

	"github.com/msbfinance/loan-office/internal/apperr"
	"github.com/msbfinance/loan-office/internal/models"
	"github.com/msbfinance/loan-office/internal/utils"
)

// MaxDocumentBytes caps a single upload.
const MaxDocumentBytes = 10 << 20

// UploadDocument stores the file bytes under a generated key and then
// records the metadata row. The object write strictly precedes the
// metadata write: a failed put leaves no row behind, and a failed row
// write triggers a best-effort cleanup of the already-written object.
func (s *Service) UploadDocument(ctx context.Context, caller models.Identity, data []byte, fileName, contentType string) (*models.Document, error) {
	if len(data) == 0 {
		return nil, apperr.New(apperr.Validation, "no file uploaded")
	}
	if len(data) > MaxDocumentBytes {
		return nil, apperr.New(apperr.Validation, "file too large")
	}

	key := utils.NewStorageKey(fileName)
	if err := s.objects.Put(ctx, key, data, contentType); err != nil {
		return nil, apperr.Wrap(apperr.Transient, "document upload failed", err)
	}

	doc := &models.Document{
		UserID:      caller.ID,
		StorageKey:  key,
		FileName:    fileName,
		ContentType: contentType,
		SizeBytes:   int64(len(data)),
		Status:      models.DocumentPending,
	}
	if err := s.store.CreateDocument(ctx, doc); err != nil {
		// The object exists but the row does not; try to remove the
		// orphan, a leak here is tolerated.
		if cleanupErr := s.objects.Delete(ctx, key); cleanupErr != nil {
			s.log.Warnf("Failed to clean up orphaned object %s: %v", key, cleanupErr)
		}
		return nil, err
	}

	s.log.Infof("Document %d uploaded for user %d: %s", doc.ID, caller.ID, key)
	return doc, nil
}

// ListDocuments returns the caller's documents, each carrying a freshly
// signed access URL.
func (s *Service) ListDocuments(ctx context.Context, caller models.Identity) ([]models.Document, error) {
	docs, err := s.store.ListDocumentsByUser(ctx, caller.ID)
	if err != nil {
		return nil, err
	}
	if err := s.signAll(ctx, docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// AdminListDocuments returns every document with owner display fields and
// fresh signed URLs.
func (s *Service) AdminListDocuments(ctx context.Context) ([]models.Document, error) {
	docs, err := s.store.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.signAll(ctx, docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (s *Service) signAll(ctx context.Context, docs []models.Document) error {
	for i := range docs {
		url, err := s.objects.SignedURL(ctx, docs[i].StorageKey, s.config.SignedURLTTL)
		if err != nil {
			return apperr.Wrap(apperr.Transient, "failed to generate document link", err)
		}
		docs[i].SignedURL = url
	}
	return nil
}

// DocumentDownloadURL returns a fresh signed URL for one document. Only
// the owner or an admin may fetch it.
func (s *Service) DocumentDownloadURL(ctx context.Context, id int64, caller models.Identity) (*models.Document, error) {
	doc, err := s.store.FindDocumentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.CanAccess(doc.UserID) {
		return nil, apperr.New(apperr.Forbidden, "not allowed to access this document")
	}
	url, err := s.objects.SignedURL(ctx, doc.StorageKey, s.config.SignedURLTTL)
	if err != nil {
		return nil, apperr.Wrap(apperr.Transient, "failed to generate document link", err)
	}
	doc.SignedURL = url
	return doc, nil
}

// DeleteDocument removes the stored object and then the metadata row, in
// that order. If the object delete fails the row is kept so the pointer
// to the still-existing object is not lost.
func (s *Service) DeleteDocument(ctx context.Context, id int64, caller models.Identity) error {
	doc, err := s.store.FindDocumentByID(ctx, id)
	if err != nil {
		return err
	}
	if !caller.CanAccess(doc.UserID) {
		return apperr.New(apperr.Forbidden, "not allowed to delete this document")
	}

	if err := s.objects.Delete(ctx, doc.StorageKey); err != nil {
		return apperr.Wrap(apperr.Transient, "failed to delete document", err)
	}
	if err := s.store.DeleteDocument(ctx, id); err != nil {
		return err
	}
	s.log.Infof("Document %d deleted by user %d", id, caller.ID)
	return nil
}

// SetDocumentStatus moves a document within its status enum. No business
// rule constrains the order of document review states.
func (s *Service) SetDocumentStatus(ctx context.Context, id int64, newStatus string) (*models.Document, error) {
	if !models.ValidDocumentStatus(newStatus) {
		return nil, apperr.New(apperr.Validation, "invalid status")
	}
	return s.store.UpdateDocumentStatus(ctx, id, newStatus)
}
