package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/msbfinance/loan-office/internal/apperr"
	"github.com/msbfinance/loan-office/internal/middleware"
	"github.com/msbfinance/loan-office/internal/models"
	"github.com/msbfinance/loan-office/internal/service"
)

func (h *Handler) caller(w http.ResponseWriter, r *http.Request) (models.Identity, bool) {
	identity, ok := middleware.Identity(r.Context())
	if !ok {
		h.respondError(w, r, apperr.New(apperr.Unauthenticated, "unauthorized"))
	}
	return identity, ok
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return 0, apperr.New(apperr.Validation, "invalid id")
	}
	return id, nil
}

// Me returns the authenticated caller's identity.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.caller(w, r)
	if !ok {
		return
	}
	h.respondJSON(w, http.StatusOK, identity)
}

// UpdateDetails changes the caller's email and password.
func (h *Handler) UpdateDetails(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req service.UpdateDetailsInput
	if err := h.decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := h.svc.UpdateDetails(r.Context(), identity.ID, req); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"message": "details updated successfully"})
}

type applyLoanResponse struct {
	Success bool         `json:"success"`
	Loan    *models.Loan `json:"loan"`
	Message string       `json:"message"`
}

// ApplyLoan submits a loan application.
func (h *Handler) ApplyLoan(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req service.ApplyInput
	if err := h.decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	result, err := h.svc.Apply(r.Context(), identity, req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	msg := "loan applied and email notifications sent successfully"
	if !result.Notified {
		msg = "loan application submitted successfully, but confirmation email could not be sent; our team will contact you shortly"
	}
	h.respondJSON(w, http.StatusOK, applyLoanResponse{Success: true, Loan: result.Loan, Message: msg})
}

// ListLoans returns the caller's loans.
func (h *Handler) ListLoans(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.caller(w, r)
	if !ok {
		return
	}
	loans, err := h.svc.ListLoans(r.Context(), identity)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if loans == nil {
		loans = []models.Loan{}
	}
	h.respondJSON(w, http.StatusOK, loans)
}

// UploadDocument accepts a multipart upload under the "document" field.
func (h *Handler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.caller(w, r)
	if !ok {
		return
	}
	if err := r.ParseMultipartForm(service.MaxDocumentBytes); err != nil {
		h.respondError(w, r, apperr.New(apperr.Validation, "no file uploaded"))
		return
	}
	file, header, err := r.FormFile("document")
	if err != nil {
		h.respondError(w, r, apperr.New(apperr.Validation, "no file uploaded"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, service.MaxDocumentBytes+1))
	if err != nil {
		h.respondError(w, r, apperr.Wrap(apperr.Transient, "failed to read upload", err))
		return
	}

	doc, err := h.svc.UploadDocument(r.Context(), identity, data, header.Filename, header.Header.Get("Content-Type"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, doc)
}

// ListDocuments returns the caller's documents with signed URLs.
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.caller(w, r)
	if !ok {
		return
	}
	docs, err := h.svc.ListDocuments(r.Context(), identity)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if docs == nil {
		docs = []models.Document{}
	}
	h.respondJSON(w, http.StatusOK, docs)
}

// DownloadDocument returns a fresh signed URL for one document.
func (h *Handler) DownloadDocument(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	doc, err := h.svc.DocumentDownloadURL(r.Context(), id, identity)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{
		"url":      doc.SignedURL,
		"fileName": doc.FileName,
	})
}

// DeleteDocument removes a document's object and metadata.
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := h.svc.DeleteDocument(r.Context(), id, identity); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"message": "document deleted successfully"})
}
