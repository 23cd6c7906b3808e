package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"verdant/cultivation-portal/cultivation-backend/internal/domain"
)

// ErrInvalidCredentials is returned for a bad email/password pair. Kept
// distinct from the domain taxonomy so handlers can answer 401.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Service issues and validates identity tokens
type Service struct {
	db            *gorm.DB
	logger        *zap.Logger
	jwtSecret     []byte
	tokenLifetime time.Duration
	bcryptCost    int
}

// NewService creates an auth service
func NewService(db *gorm.DB, logger *zap.Logger, jwtSecret string, tokenLifetime time.Duration, bcryptCost int) *Service {
	return &Service{
		db:            db,
		logger:        logger,
		jwtSecret:     []byte(jwtSecret),
		tokenLifetime: tokenLifetime,
		bcryptCost:    bcryptCost,
	}
}

// Register creates a new user account
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &User{
		ID:           uuid.New(),
		Email:        req.Email,
		PasswordHash: string(hash),
		DisplayName:  req.DisplayName,
		Role:         "operator",
		IsActive:     true,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("User registered",
		zap.String("user_id", user.ID.String()),
		zap.String("email", user.Email))
	return user, nil
}

// Login verifies credentials and issues a JWT
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*TokenResponse, error) {
	var user User
	err := s.db.WithContext(ctx).First(&user, "email = ? AND is_active = ?", req.Email, true).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return nil, ErrInvalidCredentials
	}

	expiresAt := time.Now().Add(s.tokenLifetime)
	claims := jwt.MapClaims{
		"sub":  user.ID.String(),
		"role": user.Role,
		"exp":  expiresAt.Unix(),
		"iat":  time.Now().Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &TokenResponse{Token: token, ExpiresAt: expiresAt, UserID: user.ID}, nil
}

// ParseToken validates a JWT and returns the actor's user ID
func (s *Service) ParseToken(tokenString string) (uuid.UUID, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, ErrInvalidCredentials
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, ErrInvalidCredentials
	}
	sub, _ := claims["sub"].(string)
	actorID, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, ErrInvalidCredentials
	}
	return actorID, nil
}

// GetUser retrieves a user by ID
func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	var user User
	err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}
