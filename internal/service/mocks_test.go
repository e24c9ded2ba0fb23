package service

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/msbfinance/loan-office/internal/config"
	"github.com/msbfinance/loan-office/internal/models"
)

// ----- test doubles -----

// mockStore implements Store with function fields; unset fields return a
// "not implemented" error so a test only wires what it exercises.
type mockStore struct {
	CreateUserFn      func(ctx context.Context, u *models.User) error
	FindUserByEmailFn func(ctx context.Context, email string) (*models.User, error)
	FindUserByIDFn    func(ctx context.Context, id int64) (*models.User, error)
	UpdateUserFn      func(ctx context.Context, u *models.User) error
	ListUsersByRoleFn func(ctx context.Context, role string) ([]models.User, error)

	CreateLoanFn         func(ctx context.Context, l *models.Loan) error
	FindLoanByIDFn       func(ctx context.Context, id int64) (*models.Loan, error)
	ListLoansByUserFn    func(ctx context.Context, userID int64) ([]models.Loan, error)
	ListLoansFn          func(ctx context.Context) ([]models.Loan, error)
	UpdateLoanStatusFn   func(ctx context.Context, id int64, status string) (*models.Loan, error)
	CountLoansByStatusFn func(ctx context.Context, status string) (int, error)

	CreateDocumentFn       func(ctx context.Context, d *models.Document) error
	FindDocumentByIDFn     func(ctx context.Context, id int64) (*models.Document, error)
	ListDocumentsByUserFn  func(ctx context.Context, userID int64) ([]models.Document, error)
	ListDocumentsFn        func(ctx context.Context) ([]models.Document, error)
	UpdateDocumentStatusFn func(ctx context.Context, id int64, status string) (*models.Document, error)
	DeleteDocumentFn       func(ctx context.Context, id int64) error
}

var errNotImplemented = errors.New("not implemented")

func (m *mockStore) CreateUser(ctx context.Context, u *models.User) error {
	if m.CreateUserFn != nil {
		return m.CreateUserFn(ctx, u)
	}
	return errNotImplemented
}

func (m *mockStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.FindUserByEmailFn != nil {
		return m.FindUserByEmailFn(ctx, email)
	}
	return nil, errNotImplemented
}

func (m *mockStore) FindUserByID(ctx context.Context, id int64) (*models.User, error) {
	if m.FindUserByIDFn != nil {
		return m.FindUserByIDFn(ctx, id)
	}
	return nil, errNotImplemented
}

func (m *mockStore) UpdateUser(ctx context.Context, u *models.User) error {
	if m.UpdateUserFn != nil {
		return m.UpdateUserFn(ctx, u)
	}
	return errNotImplemented
}

func (m *mockStore) ListUsersByRole(ctx context.Context, role string) ([]models.User, error) {
	if m.ListUsersByRoleFn != nil {
		return m.ListUsersByRoleFn(ctx, role)
	}
	return nil, errNotImplemented
}

func (m *mockStore) CreateLoan(ctx context.Context, l *models.Loan) error {
	if m.CreateLoanFn != nil {
		return m.CreateLoanFn(ctx, l)
	}
	return errNotImplemented
}

func (m *mockStore) FindLoanByID(ctx context.Context, id int64) (*models.Loan, error) {
	if m.FindLoanByIDFn != nil {
		return m.FindLoanByIDFn(ctx, id)
	}
	return nil, errNotImplemented
}

func (m *mockStore) ListLoansByUser(ctx context.Context, userID int64) ([]models.Loan, error) {
	if m.ListLoansByUserFn != nil {
		return m.ListLoansByUserFn(ctx, userID)
	}
	return nil, errNotImplemented
}

func (m *mockStore) ListLoans(ctx context.Context) ([]models.Loan, error) {
	if m.ListLoansFn != nil {
		return m.ListLoansFn(ctx)
	}
	return nil, errNotImplemented
}

func (m *mockStore) UpdateLoanStatus(ctx context.Context, id int64, status string) (*models.Loan, error) {
	if m.UpdateLoanStatusFn != nil {
		return m.UpdateLoanStatusFn(ctx, id, status)
	}
	return nil, errNotImplemented
}

func (m *mockStore) CountLoansByStatus(ctx context.Context, status string) (int, error) {
	if m.CountLoansByStatusFn != nil {
		return m.CountLoansByStatusFn(ctx, status)
	}
	return 0, errNotImplemented
}

func (m *mockStore) CreateDocument(ctx context.Context, d *models.Document) error {
	if m.CreateDocumentFn != nil {
		return m.CreateDocumentFn(ctx, d)
	}
	return errNotImplemented
}

func (m *mockStore) FindDocumentByID(ctx context.Context, id int64) (*models.Document, error) {
	if m.FindDocumentByIDFn != nil {
		return m.FindDocumentByIDFn(ctx, id)
	}
	return nil, errNotImplemented
}

func (m *mockStore) ListDocumentsByUser(ctx context.Context, userID int64) ([]models.Document, error) {
	if m.ListDocumentsByUserFn != nil {
		return m.ListDocumentsByUserFn(ctx, userID)
	}
	return nil, errNotImplemented
}

func (m *mockStore) ListDocuments(ctx context.Context) ([]models.Document, error) {
	if m.ListDocumentsFn != nil {
		return m.ListDocumentsFn(ctx)
	}
	return nil, errNotImplemented
}

func (m *mockStore) UpdateDocumentStatus(ctx context.Context, id int64, status string) (*models.Document, error) {
	if m.UpdateDocumentStatusFn != nil {
		return m.UpdateDocumentStatusFn(ctx, id, status)
	}
	return nil, errNotImplemented
}

func (m *mockStore) DeleteDocument(ctx context.Context, id int64) error {
	if m.DeleteDocumentFn != nil {
		return m.DeleteDocumentFn(ctx, id)
	}
	return errNotImplemented
}

// mockObjects implements ObjectStore.
type mockObjects struct {
	PutFn       func(ctx context.Context, key string, data []byte, contentType string) error
	SignedURLFn func(ctx context.Context, key string, ttl time.Duration) (string, error)
	DeleteFn    func(ctx context.Context, key string) error
}

func (m *mockObjects) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if m.PutFn != nil {
		return m.PutFn(ctx, key, data, contentType)
	}
	return nil
}

func (m *mockObjects) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if m.SignedURLFn != nil {
		return m.SignedURLFn(ctx, key, ttl)
	}
	return "https://example.com/signed/" + key, nil
}

func (m *mockObjects) Delete(ctx context.Context, key string) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, key)
	}
	return nil
}

// mockMailer records deliveries; Fail makes every send report failure.
type mockMailer struct {
	Fail  bool
	Sent  []string // recipients in order
	Bodys []string
}

func (m *mockMailer) Send(ctx context.Context, to, subject, body string) error {
	m.Sent = append(m.Sent, to)
	m.Bodys = append(m.Bodys, body)
	if m.Fail {
		return errors.New("transport down")
	}
	return nil
}

func (m *mockMailer) BestEffort(ctx context.Context, to, subject, body string) bool {
	return m.Send(ctx, to, subject, body) == nil
}

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:           "test-secret",
		TokenTTL:            2 * time.Hour,
		SignedURLTTL:        15 * time.Minute,
		OperatorEmail:       "ops@msbfinance.co.za",
		DefaultInterestRate: 24.5,
		DefaultTermMonths:   12,
	}
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestService(t interface{ Fatalf(string, ...any) }, store *mockStore, objects *mockObjects, mailer *mockMailer) *Service {
	svc, err := NewService(store, objects, mailer, testConfig(), quietLogger())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}
