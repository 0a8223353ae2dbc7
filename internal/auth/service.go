// Package auth handles account registration, login and token verification.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/rusl-cricket/attendance/internal/model"
	"github.com/rusl-cricket/attendance/internal/store"
)

// Config configures the auth service.
type Config struct {
	Tokens TokenConfig
	// StudentDomain is the email suffix required of student accounts,
	// for example "@tec.rjt.ac.lk".
	StudentDomain string
	BcryptCost    int
}

// RegisterRequest is a student self-registration.
type RegisterRequest struct {
	Email         string `json:"email" validate:"required,email"`
	Password      string `json:"password" validate:"required"`
	RegNo         string `json:"studentId" validate:"required"`
	Name          string `json:"name" validate:"required"`
	Faculty       string `json:"faculty" validate:"required"`
	Year          int    `json:"year" validate:"required"`
	ContactNumber string `json:"contactNumber"`
}

// LoginRequest carries user credentials.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is returned by Login and Refresh.
type LoginResponse struct {
	Token        string     `json:"token"`
	RefreshToken string     `json:"refreshToken"`
	ExpiresAt    int64      `json:"expiresAt"`
	ID           int64      `json:"id"`
	Email        string     `json:"email"`
	Role         model.Role `json:"role"`
}

var errInvalidCredentials = fmt.Errorf("%w: invalid email or password", model.ErrUnauthorized)

// Service registers students and authenticates users.
type Service struct {
	ledger store.Ledger
	cfg    Config
	log    *slog.Logger
	now    func() time.Time
}

// NewService creates an auth service backed by ledger.
func NewService(ledger store.Ledger, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	cfg.StudentDomain = strings.ToLower(cfg.StudentDomain)
	return &Service{
		ledger: ledger,
		cfg:    cfg,
		log:    logger.With(slog.String("component", "auth")),
		now:    time.Now,
	}
}

// TokenConfig returns the parameters used to sign and verify tokens.
func (s *Service) TokenConfig() TokenConfig { return s.cfg.Tokens }

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func (s *Service) inStudentDomain(email string) bool {
	return s.cfg.StudentDomain == "" || strings.HasSuffix(strings.ToLower(email), s.cfg.StudentDomain)
}

// Register creates a STUDENT account and its linked roster profile in one
// transaction.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*model.Student, error) {
	if err := model.Validate(req); err != nil {
		return nil, err
	}
	if !s.inStudentDomain(req.Email) {
		return nil, &model.ValidationError{
			Field:   "email",
			Message: "only " + s.cfg.StudentDomain + " addresses may register",
		}
	}
	hash, err := HashPassword(req.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	var student *model.Student
	err = s.ledger.Update(ctx, func(tx store.Tx) error {
		if _, err := tx.UserByEmail(ctx, req.Email); err == nil {
			return fmt.Errorf("%w: email already registered", model.ErrAlreadyExists)
		} else if !errors.Is(err, model.ErrNotFound) {
			return err
		}
		if _, err := tx.StudentByRegNo(ctx, req.RegNo); err == nil {
			return fmt.Errorf("%w: student id already exists", model.ErrAlreadyExists)
		} else if !errors.Is(err, model.ErrNotFound) {
			return err
		}

		user := &model.User{Email: req.Email, Role: model.RoleStudent, PasswordHash: hash, CreatedAt: now}
		if err := tx.CreateUser(ctx, user); err != nil {
			return err
		}
		student = &model.Student{
			RegNo:         req.RegNo,
			Name:          req.Name,
			Faculty:       req.Faculty,
			Year:          req.Year,
			ContactNumber: req.ContactNumber,
			UserID:        &user.ID,
			CreatedAt:     now,
		}
		return tx.CreateStudent(ctx, student)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("student registered", slog.Int64("student_id", student.ID), slog.String("reg_no", student.RegNo))
	return student, nil
}

// Login checks credentials and issues a token pair.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	if err := model.Validate(req); err != nil {
		return nil, err
	}

	var user *model.User
	err := s.ledger.View(ctx, func(r store.Reader) error {
		var err error
		user, err = r.UserByEmail(ctx, req.Email)
		return err
	})
	if errors.Is(err, model.ErrNotFound) {
		return nil, errInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		s.log.Warn("login rejected", slog.Int64("user_id", user.ID))
		return nil, errInvalidCredentials
	}
	if user.Role == model.RoleStudent && !s.inStudentDomain(user.Email) {
		return nil, fmt.Errorf("%w: student access is restricted to %s addresses", model.ErrUnauthorized, s.cfg.StudentDomain)
	}
	return s.respond(user)
}

// Refresh exchanges a valid refresh token for a new token pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*LoginResponse, error) {
	claims, err := Parse(refreshToken, TokenRefresh, s.cfg.Tokens)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrUnauthorized, err)
	}

	var user *model.User
	err = s.ledger.View(ctx, func(r store.Reader) error {
		var err error
		user, err = r.GetUser(ctx, claims.UserID)
		return err
	})
	if errors.Is(err, model.ErrNotFound) {
		return nil, fmt.Errorf("%w: account no longer exists", model.ErrUnauthorized)
	}
	if err != nil {
		return nil, err
	}
	return s.respond(user)
}

func (s *Service) respond(user *model.User) (*LoginResponse, error) {
	pair, err := Issue(user, s.cfg.Tokens, s.now())
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}
	return &LoginResponse{
		Token:        pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.AccessExp.Unix(),
		ID:           user.ID,
		Email:        user.Email,
		Role:         user.Role,
	}, nil
}
