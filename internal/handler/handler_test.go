package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msbfinance/loan-office/internal/apperr"
	"github.com/msbfinance/loan-office/internal/config"
	"github.com/msbfinance/loan-office/internal/middleware"
	"github.com/msbfinance/loan-office/internal/models"
	"github.com/msbfinance/loan-office/internal/service"
)

// stubStore embeds the Store interface so tests only override the methods
// a route exercises; anything else panics loudly.
type stubStore struct {
	service.Store
	createLoan   func(ctx context.Context, l *models.Loan) error
	findLoan     func(ctx context.Context, id int64) (*models.Loan, error)
	updateLoan   func(ctx context.Context, id int64, status string) (*models.Loan, error)
	findDocument func(ctx context.Context, id int64) (*models.Document, error)
}

func (s *stubStore) CreateLoan(ctx context.Context, l *models.Loan) error {
	return s.createLoan(ctx, l)
}

func (s *stubStore) FindLoanByID(ctx context.Context, id int64) (*models.Loan, error) {
	return s.findLoan(ctx, id)
}

func (s *stubStore) UpdateLoanStatus(ctx context.Context, id int64, status string) (*models.Loan, error) {
	return s.updateLoan(ctx, id, status)
}

func (s *stubStore) FindDocumentByID(ctx context.Context, id int64) (*models.Document, error) {
	return s.findDocument(ctx, id)
}

type stubObjects struct{ service.ObjectStore }

func (stubObjects) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return "https://example.com/signed/" + key, nil
}

type stubMailer struct{}

func (stubMailer) Send(ctx context.Context, to, subject, body string) error       { return nil }
func (stubMailer) BestEffort(ctx context.Context, to, subject, body string) bool { return true }

func newTestHandler(t *testing.T, store service.Store) *Handler {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	cfg := &config.Config{
		JWTSecret:           "secret",
		TokenTTL:            2 * time.Hour,
		SignedURLTTL:        15 * time.Minute,
		OperatorEmail:       "ops@msbfinance.co.za",
		DefaultInterestRate: 24.5,
		DefaultTermMonths:   12,
	}
	svc, err := service.NewService(store, stubObjects{}, stubMailer{}, cfg, log)
	require.NoError(t, err)
	return NewHandler(svc, log)
}

func authedRequest(method, target, body string, identity models.Identity) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	return req.WithContext(middleware.WithIdentity(req.Context(), identity))
}

var testUser = models.Identity{ID: 1, Name: "Thabo M", Email: "thabo@example.com", Role: models.RoleUser}

func TestApplyLoan_Success(t *testing.T) {
	store := &stubStore{
		createLoan: func(ctx context.Context, l *models.Loan) error {
			l.ID = 42
			return nil
		},
	}
	h := newTestHandler(t, store)

	body := `{"amount":500,"term":12,"bankDetails":{"bankName":"ABC","accountNumber":"123","branchCode":"001","accountHolder":"u1"}}`
	rec := httptest.NewRecorder()
	h.ApplyLoan(rec, authedRequest(http.MethodPost, "/user/apply-loan", body, testUser))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp applyLoanResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "Pending", resp.Loan.Status)
	assert.Equal(t, 500.0, resp.Loan.Amount)
	assert.Equal(t, 24.5, resp.Loan.InterestRate)
}

func TestApplyLoan_AmountOutOfRangeIs400(t *testing.T) {
	store := &stubStore{
		createLoan: func(ctx context.Context, l *models.Loan) error {
			t.Fatal("must not persist an invalid application")
			return nil
		},
	}
	h := newTestHandler(t, store)

	body := `{"amount":5000,"bankDetails":{"bankName":"ABC","accountNumber":"123","branchCode":"001","accountHolder":"u1"}}`
	rec := httptest.NewRecorder()
	h.ApplyLoan(rec, authedRequest(http.MethodPost, "/user/apply-loan", body, testUser))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestApplyLoan_MissingIdentityIs401(t *testing.T) {
	h := newTestHandler(t, &stubStore{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/user/apply-loan", strings.NewReader("{}"))
	h.ApplyLoan(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDownloadDocument_StrangerIs403(t *testing.T) {
	store := &stubStore{
		findDocument: func(ctx context.Context, id int64) (*models.Document, error) {
			return &models.Document{ID: id, UserID: 999, StorageKey: "k"}, nil
		},
	}
	h := newTestHandler(t, store)

	req := authedRequest(http.MethodGet, "/user/documents/10/download", "", testUser)
	req = mux.SetURLVars(req, map[string]string{"id": "10"})
	rec := httptest.NewRecorder()
	h.DownloadDocument(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDownloadDocument_OwnerGetsURL(t *testing.T) {
	store := &stubStore{
		findDocument: func(ctx context.Context, id int64) (*models.Document, error) {
			return &models.Document{ID: id, UserID: testUser.ID, StorageKey: "k", FileName: "payslip.pdf"}, nil
		},
	}
	h := newTestHandler(t, store)

	req := authedRequest(http.MethodGet, "/user/documents/10/download", "", testUser)
	req = mux.SetURLVars(req, map[string]string{"id": "10"})
	rec := httptest.NewRecorder()
	h.DownloadDocument(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "https://example.com/signed/k", resp["url"])
	assert.Equal(t, "payslip.pdf", resp["fileName"])
}

func TestAdminSetLoanStatus_InvalidTransitionIs400(t *testing.T) {
	store := &stubStore{
		findLoan: func(ctx context.Context, id int64) (*models.Loan, error) {
			return &models.Loan{ID: id, Status: models.LoanPending}, nil
		},
	}
	h := newTestHandler(t, store)

	req := authedRequest(http.MethodPatch, "/admin/loans/7", `{"status":"Closed"}`, models.Identity{ID: 99, Role: models.RoleAdmin})
	req = mux.SetURLVars(req, map[string]string{"id": "7"})
	rec := httptest.NewRecorder()
	h.AdminSetLoanStatus(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminSetLoanStatus_UnknownLoanIs404(t *testing.T) {
	store := &stubStore{
		findLoan: func(ctx context.Context, id int64) (*models.Loan, error) {
			return nil, apperr.New(apperr.NotFound, "loan not found")
		},
	}
	h := newTestHandler(t, store)

	req := authedRequest(http.MethodPatch, "/admin/loans/999", `{"status":"Approved"}`, models.Identity{ID: 99, Role: models.RoleAdmin})
	req = mux.SetURLVars(req, map[string]string{"id": "999"})
	rec := httptest.NewRecorder()
	h.AdminSetLoanStatus(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRespondError_HidesInternalDetail(t *testing.T) {
	store := &stubStore{
		findLoan: func(ctx context.Context, id int64) (*models.Loan, error) {
			return nil, io.ErrUnexpectedEOF
		},
	}
	h := newTestHandler(t, store)

	req := authedRequest(http.MethodPatch, "/admin/loans/7", `{"status":"Approved"}`, models.Identity{ID: 99, Role: models.RoleAdmin})
	req = mux.SetURLVars(req, map[string]string{"id": "7"})
	rec := httptest.NewRecorder()
	h.AdminSetLoanStatus(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "EOF")
	assert.Contains(t, rec.Body.String(), "internal server error")
}
