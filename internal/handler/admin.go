package handler

import (
	"net/http"

	"github.com/msbfinance/loan-office/internal/models"
)

type statusRequest struct {
	Status string `json:"status"`
}

// AdminListUsers returns all non-admin users.
func (h *Handler) AdminListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.ListUsers(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if users == nil {
		users = []models.User{}
	}
	h.respondJSON(w, http.StatusOK, users)
}

// AdminListLoans returns every loan with owner details populated.
func (h *Handler) AdminListLoans(w http.ResponseWriter, r *http.Request) {
	loans, err := h.svc.AdminListLoans(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if loans == nil {
		loans = []models.Loan{}
	}
	h.respondJSON(w, http.StatusOK, loans)
}

// AdminSetLoanStatus moves a loan through the review workflow.
func (h *Handler) AdminSetLoanStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	var req statusRequest
	if err := h.decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	loan, err := h.svc.SetLoanStatus(r.Context(), id, req.Status)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, loan)
}

// AdminListDocuments returns every document with owner details populated.
func (h *Handler) AdminListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.svc.AdminListDocuments(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if docs == nil {
		docs = []models.Document{}
	}
	h.respondJSON(w, http.StatusOK, docs)
}

// AdminSetDocumentStatus updates a document's review status.
func (h *Handler) AdminSetDocumentStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	var req statusRequest
	if err := h.decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	doc, err := h.svc.SetDocumentStatus(r.Context(), id, req.Status)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, doc)
}
