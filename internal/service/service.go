package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/msbfinance/loan-office/internal/config"
	"github.com/msbfinance/loan-office/internal/models"
)

// Store is the persistence surface the service depends on. Implemented by
// repository.Repository.
type Store interface {
	CreateUser(ctx context.Context, user *models.User) error
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByID(ctx context.Context, id int64) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	ListUsersByRole(ctx context.Context, role string) ([]models.User, error)

	CreateLoan(ctx context.Context, loan *models.Loan) error
	FindLoanByID(ctx context.Context, id int64) (*models.Loan, error)
	ListLoansByUser(ctx context.Context, userID int64) ([]models.Loan, error)
	ListLoans(ctx context.Context) ([]models.Loan, error)
	UpdateLoanStatus(ctx context.Context, id int64, status string) (*models.Loan, error)
	CountLoansByStatus(ctx context.Context, status string) (int, error)

	CreateDocument(ctx context.Context, doc *models.Document) error
	FindDocumentByID(ctx context.Context, id int64) (*models.Document, error)
	ListDocumentsByUser(ctx context.Context, userID int64) ([]models.Document, error)
	ListDocuments(ctx context.Context) ([]models.Document, error)
	UpdateDocumentStatus(ctx context.Context, id int64, status string) (*models.Document, error)
	DeleteDocument(ctx context.Context, id int64) error
}

// ObjectStore is the document byte store. Implemented by objectstore.Client.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

// Mailer is the notification dispatcher surface. Implemented by
// notify.Dispatcher.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
	BestEffort(ctx context.Context, to, subject, body string) bool
}

// Service handles business logic
type Service struct {
	store       Store
	objects     ObjectStore
	mailer      Mailer
	config      *config.Config
	log         *logrus.Logger
	transitions models.TransitionTable

	// interestRate is the server-side rate applied to every application.
	// Seeded once at startup; never client-supplied.
	interestRate float64
}

// NewService initializes a new service
func NewService(store Store, objects ObjectStore, mailer Mailer, cfg *config.Config, log *logrus.Logger) (*Service, error) {
	transitions, err := models.ParseTransitionTable(cfg.LoanTransitions)
	if err != nil {
		return nil, err
	}
	return &Service{
		store:        store,
		objects:      objects,
		mailer:       mailer,
		config:       cfg,
		log:          log,
		transitions:  transitions,
		interestRate: cfg.DefaultInterestRate,
	}, nil
}

// SetInterestRate overrides the default rate, e.g. after a successful
// rate-feed fetch at startup.
func (s *Service) SetInterestRate(rate float64) {
	s.interestRate = rate
}
