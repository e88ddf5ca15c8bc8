package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"
	"golang.org/x/crypto/bcrypt"

	"EcbBreaker/server/internal/pkg/helpers"
	"EcbBreaker/server/internal/protocol"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid token")
)

// Service implements operator authentication
type Service struct {
	jwtSecret string
	tokenTTL  time.Duration
	store     Store
	logger    *helpers.Logger
}

// Store defines the persistence interface
type Store interface {
	CreateOperator(username, hashedPassword string) (int64, error)
	GetOperatorByUsername(username string) (*protocol.Operator, error)
}

// Claims represents JWT claims
type Claims struct {
	OperatorID int64  `json:"operator_id"`
	Username   string `json:"username"`
	jwt.StandardClaims
}

// New creates a new auth service
func New(jwtSecret string, tokenTTL time.Duration, store Store) *Service {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &Service{
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		store:     store,
		logger:    helpers.NewLogger("Auth"),
	}
}

// EnsureOperator creates the operator account unless it already exists.
// An empty password disables seeding.
func (s *Service) EnsureOperator(username, password string) (bool, error) {
	if username == "" || password == "" {
		return false, nil
	}

	existing, err := s.store.GetOperatorByUsername(username)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}

	hashedPassword, err := hashPassword(password)
	if err != nil {
		return false, err
	}
	if _, err := s.store.CreateOperator(username, hashedPassword); err != nil {
		return false, err
	}
	s.logger.Info("operator created", "username", username)
	return true, nil
}

// Login authenticates an operator and returns a JWT token
func (s *Service) Login(username, password string) (string, error) {
	if username == "" || password == "" {
		return "", fmt.Errorf("username and password cannot be empty")
	}

	op, err := s.store.GetOperatorByUsername(username)
	if err != nil {
		return "", err
	}
	if op == nil || !verifyPassword(password, op.HashedPassword) {
		s.logger.Warn("login failed", "username", username)
		return "", ErrInvalidCredentials
	}

	return s.CreateToken(op.ID, op.Username)
}

// CreateToken creates a new JWT token for an operator
func (s *Service) CreateToken(operatorID int64, username string) (string, error) {
	now := time.Now()
	claims := &Claims{
		OperatorID: operatorID,
		Username:   username,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: now.Add(s.tokenTTL).Unix(),
			IssuedAt:  now.Unix(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

// ValidateToken validates and parses a JWT token
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// hashPassword hashes a password using bcrypt
func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// verifyPassword verifies a password against its bcrypt hash
func verifyPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
