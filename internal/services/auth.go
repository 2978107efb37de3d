package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/wellslab/s4m-api/internal/logger"
	"github.com/wellslab/s4m-api/internal/repos"
	"github.com/wellslab/s4m-api/internal/types"
)

// ErrInvalidCredentials covers both unknown usernames and wrong passwords so
// login failures do not reveal which one it was.
var ErrInvalidCredentials = errors.New("Invalid username or password")

type authClaims struct {
	jwt.RegisteredClaims
}

type AuthService interface {
	Login(ctx context.Context, username, password string) (string, error)
	VerifyToken(tokenString string) (string, error)
	CreateUser(ctx context.Context, username, password string) error
}

type authService struct {
	userRepo  repos.UserRepo
	secretKey string
	tokenTTL  time.Duration
	log       *logger.Logger
}

func NewAuthService(userRepo repos.UserRepo, secretKey string, tokenTTL time.Duration, log *logger.Logger) AuthService {
	return &authService{
		userRepo:  userRepo,
		secretKey: secretKey,
		tokenTTL:  tokenTTL,
		log:       log.With("service", "AuthService"),
	}
}

// Login verifies the password against the stored bcrypt hash and mints a
// signed access token with the username as subject.
func (as *authService) Login(ctx context.Context, username, password string) (string, error) {
	user, err := as.userRepo.GetByUsername(ctx, nil, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("Failed to look up user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return as.generateToken(user.Username)
}

// VerifyToken parses and validates a token string and returns the username
// it was issued to.
func (as *authService) VerifyToken(tokenString string) (string, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &authClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("Unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(as.secretKey), nil
	})
	if err != nil {
		return "", fmt.Errorf("Failed to parse access token: %w", err)
	}
	claims, ok := parsed.Claims.(*authClaims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return "", fmt.Errorf("Invalid access token")
	}
	return claims.Subject, nil
}

// CreateUser hashes the password and stores a new user. Used by the startup
// bootstrap; there is no self-registration endpoint.
func (as *authService) CreateUser(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return fmt.Errorf("Username and password must not be empty")
	}
	exists, err := as.userRepo.UsernameExists(ctx, nil, username)
	if err != nil {
		return fmt.Errorf("Failed to check username: %w", err)
	}
	if exists {
		return fmt.Errorf("Username %q is already taken", username)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("Failed to hash password: %w", err)
	}
	if _, err := as.userRepo.Create(ctx, nil, []*types.User{{Username: username, Password: string(hash)}}); err != nil {
		return fmt.Errorf("Failed to create user: %w", err)
	}
	return nil
}

func (as *authService) generateToken(username string) (string, error) {
	now := time.Now()
	claims := authClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(now.Add(as.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(as.secretKey))
	if err != nil {
		return "", fmt.Errorf("Failed to sign access token: %w", err)
	}
	return signed, nil
}
