package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/vulca/torneos/models"
	"github.com/vulca/torneos/repositories"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrAuthInvalidCredentials = errors.New("invalid email or password")
	ErrAuthEmailTaken         = errors.New("email is already taken")
)

const minPasswordLength = 8

type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*models.User, error)
	Login(ctx context.Context, input LoginInput) (*models.User, error)
	EnsureAdmin(ctx context.Context, input RegisterInput) (*models.User, error)
}

type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authService struct {
	userRepo repositories.UserRepository
	cost     int
}

func NewAuthService(userRepo repositories.UserRepository) AuthService {
	return &authService{
		userRepo: userRepo,
		cost:     bcrypt.DefaultCost,
	}
}

func (s *authService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	return s.create(ctx, input, models.RoleUser)
}

// EnsureAdmin создаёт администратора при первом запуске; существующий аккаунт не трогает.
func (s *authService) EnsureAdmin(ctx context.Context, input RegisterInput) (*models.User, error) {
	existing, err := s.userRepo.GetByEmail(ctx, strings.TrimSpace(input.Email))
	switch {
	case err == nil:
		existing.PasswordHash = ""
		return existing, nil
	case !errors.Is(err, repositories.ErrUserNotFound):
		return nil, fmt.Errorf("failed to look up admin account: %w", err)
	}
	return s.create(ctx, input, models.RoleAdmin)
}

func (s *authService) create(ctx context.Context, input RegisterInput, role models.UserRole) (*models.User, error) {
	v := NewValidationError()
	name := strings.TrimSpace(input.Name)
	email := strings.TrimSpace(input.Email)
	if name == "" {
		v.Add("name", "El nombre es obligatorio.")
	}
	if _, err := mail.ParseAddress(email); email == "" || err != nil {
		v.Add("email", "Introduce un correo electrónico válido.")
	}
	if len(input.Password) < minPasswordLength {
		v.Add("password", fmt.Sprintf("La contraseña debe tener al menos %d caracteres.", minPasswordLength))
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hashedPassword),
		Role:         role,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrUserEmailConflict) {
			v.Add("email", "Ese correo ya está registrado.")
			return nil, fmt.Errorf("%w: %w", ErrAuthEmailTaken, v)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	user.PasswordHash = ""
	return user, nil
}

func (s *authService) Login(ctx context.Context, input LoginInput) (*models.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.TrimSpace(input.Email))
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrAuthInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, ErrAuthInvalidCredentials
		}
		return nil, fmt.Errorf("failed to compare password hash: %w", err)
	}

	user.PasswordHash = ""
	return user, nil
}
