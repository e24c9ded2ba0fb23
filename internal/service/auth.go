package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/msbfinance/loan-office/internal/apperr"
	"github.com/msbfinance/loan-office/internal/models"
)

var contactPattern = regexp.MustCompile(`^\+?\d{7,15}$`)

// Register creates a new user with hashed password and returns a session token.
func (s *Service) Register(ctx context.Context, name, email, contact, password string) (*models.User, string, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if len(name) < 2 || len(name) > 50 {
		return nil, "", apperr.New(apperr.Validation, "name must be 2-50 characters")
	}
	if !strings.Contains(email, "@") {
		return nil, "", apperr.New(apperr.Validation, "invalid email address")
	}
	if !contactPattern.MatchString(contact) {
		return nil, "", apperr.New(apperr.Validation, "invalid contact number")
	}
	if len(password) < 6 {
		return nil, "", apperr.New(apperr.Validation, "password must be at least 6 characters")
	}

	if _, err := s.store.FindUserByEmail(ctx, email); err == nil {
		return nil, "", apperr.New(apperr.Validation, "email already registered")
	} else if !apperr.IsKind(err, apperr.NotFound) {
		return nil, "", err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Name:         name,
		Email:        email,
		Contact:      contact,
		PasswordHash: string(hashedPassword),
		Role:         models.RoleUser,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, "", err
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, "", err
	}

	s.log.Infof("User registered: %s", user.Email)
	return user, token, nil
}

// Login authenticates a user and returns a JWT token
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	user, err := s.store.FindUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, "", apperr.New(apperr.Unauthenticated, "invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", apperr.New(apperr.Unauthenticated, "invalid credentials")
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, "", err
	}

	s.log.Infof("User logged in: %s", user.Email)
	return user, token, nil
}

func (s *Service) issueToken(user *models.User) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   fmt.Sprintf("%d", user.ID),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.config.TokenTTL)),
	})
	tokenString, err := token.SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return tokenString, nil
}

// UpdateDetailsInput carries a self-service account update. Role changes
// are not possible through this path.
type UpdateDetailsInput struct {
	Email              string `json:"email"`
	CurrentPassword    string `json:"currentPassword"`
	NewPassword        string `json:"newPassword"`
	ConfirmNewPassword string `json:"confirmNewPassword"`
}

// UpdateDetails changes the caller's email and, when requested, password.
// A password change requires the current password plus a matching
// confirmation.
func (s *Service) UpdateDetails(ctx context.Context, callerID int64, in UpdateDetailsInput) error {
	user, err := s.store.FindUserByID(ctx, callerID)
	if err != nil {
		return err
	}

	if in.Email != "" {
		email := strings.ToLower(strings.TrimSpace(in.Email))
		if !strings.Contains(email, "@") {
			return apperr.New(apperr.Validation, "invalid email address")
		}
		user.Email = email
	}

	if in.NewPassword != "" || in.ConfirmNewPassword != "" || in.CurrentPassword != "" {
		if in.CurrentPassword == "" {
			return apperr.New(apperr.Validation, "current password is required")
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.CurrentPassword)); err != nil {
			return apperr.New(apperr.Validation, "current password is incorrect")
		}
		if in.NewPassword == "" || in.ConfirmNewPassword == "" {
			return apperr.New(apperr.Validation, "new password and confirmation are required")
		}
		if in.NewPassword != in.ConfirmNewPassword {
			return apperr.New(apperr.Validation, "new password and confirmation do not match")
		}
		if len(in.NewPassword) < 6 {
			return apperr.New(apperr.Validation, "password must be at least 6 characters")
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		user.PasswordHash = string(hashed)
	}

	if err := s.store.UpdateUser(ctx, user); err != nil {
		return err
	}
	s.log.Infof("Details updated for user %d", user.ID)
	return nil
}

// ListUsers returns all non-admin users for the admin console.
func (s *Service) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.store.ListUsersByRole(ctx, models.RoleUser)
}
