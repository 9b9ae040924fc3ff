package auth

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	errors "github.com/frahmantamala/plant-operations/internal"
	"github.com/frahmantamala/plant-operations/internal/user"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// Credentials is the login row for one username.
type Credentials struct {
	UserID       int64
	PasswordHash string
	IsActive     bool
}

type CredentialRepository interface {
	// GetCredentials returns nil when the username does not exist.
	GetCredentials(ctx context.Context, username string) (*Credentials, error)
}

// UserLoader resolves a user with their effective permission matrix.
type UserLoader interface {
	GetWithPermissions(ctx context.Context, id int64) (*user.User, error)
}

type Service struct {
	credentials    CredentialRepository
	users          UserLoader
	tokenGenerator TokenGenerator
	logger         *slog.Logger
}

func NewService(credentials CredentialRepository, users UserLoader, tokenGen TokenGenerator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		credentials:    credentials,
		users:          users,
		tokenGenerator: tokenGen,
		logger:         logger,
	}
}

func NewJWTTokenGenerator(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *JWTTokenGenerator {
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &JWTTokenGenerator{
		AccessTokenSecret:  []byte(accessSecret),
		RefreshTokenSecret: []byte(refreshSecret),
		AccessTokenTTL:     accessTTL,
		RefreshTokenTTL:    refreshTTL,
		Issuer:             "plant-operations",
	}
}

// Authenticate checks the credentials and returns tokens plus the user with their matrix.
func (s *Service) Authenticate(ctx context.Context, dto LoginDTO) (*LoginResponse, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	creds, err := s.credentials.GetCredentials(ctx, dto.Username)
	if err != nil {
		return nil, errors.NewInternalError("failed to load credentials", err)
	}
	if creds == nil {
		s.logger.Info("login rejected", "username", dto.Username, "reason", "unknown user")
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(creds.PasswordHash), []byte(dto.Password)); err != nil {
		s.logger.Info("login rejected", "username", dto.Username, "reason", "bad password")
		return nil, ErrInvalidCredentials
	}
	if !creds.IsActive {
		return nil, ErrUserInactive
	}

	u, err := s.users.GetWithPermissions(ctx, creds.UserID)
	if err != nil {
		return nil, err
	}

	tokens, err := s.issue(u)
	if err != nil {
		return nil, err
	}

	s.logger.Info("login succeeded", "user_id", u.ID, "role", u.Role)
	return &LoginResponse{AuthTokens: tokens, User: u}, nil
}

// RefreshTokens exchanges a refresh token for a new pair. The user must still exist and be active.
func (s *Service) RefreshTokens(ctx context.Context, refreshToken string) (AuthTokens, error) {
	claims, err := s.tokenGenerator.ValidateRefreshToken(refreshToken)
	if err != nil {
		return AuthTokens{}, err
	}

	u, err := s.resolve(ctx, claims)
	if err != nil {
		return AuthTokens{}, err
	}
	return s.issue(u)
}

func (s *Service) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.tokenGenerator.ValidateAccessToken(tokenString)
}

// Authorize validates an access token and loads the active user it names.
func (s *Service) Authorize(ctx context.Context, tokenString string) (*user.User, error) {
	claims, err := s.tokenGenerator.ValidateAccessToken(tokenString)
	if err != nil {
		return nil, err
	}
	return s.resolve(ctx, claims)
}

func (s *Service) resolve(ctx context.Context, claims *Claims) (*user.User, error) {
	id, err := strconv.ParseInt(claims.UserID, 10, 64)
	if err != nil {
		return nil, ErrInvalidToken
	}
	u, err := s.users.GetWithPermissions(ctx, id)
	if err != nil {
		if stderrors.Is(err, errors.ErrUserNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if !u.IsActive {
		return nil, ErrUserInactive
	}
	return u, nil
}

func (s *Service) issue(u *user.User) (AuthTokens, error) {
	id := strconv.FormatInt(u.ID, 10)
	access, err := s.tokenGenerator.GenerateAccessToken(id, u.Username)
	if err != nil {
		return AuthTokens{}, errors.NewInternalError("failed to sign token", err)
	}
	refresh, err := s.tokenGenerator.GenerateRefreshToken(id, u.Username)
	if err != nil {
		return AuthTokens{}, errors.NewInternalError("failed to sign token", err)
	}

	var expiresIn int64
	if gen, ok := s.tokenGenerator.(*JWTTokenGenerator); ok {
		expiresIn = int64(gen.AccessTokenTTL.Seconds())
	}
	return AuthTokens{AccessToken: access, RefreshToken: refresh, ExpiresIn: expiresIn}, nil
}

func (j *JWTTokenGenerator) GenerateAccessToken(userID, username string) (string, error) {
	return j.sign(userID, username, TokenTypeAccess, j.AccessTokenTTL, j.AccessTokenSecret)
}

func (j *JWTTokenGenerator) GenerateRefreshToken(userID, username string) (string, error) {
	return j.sign(userID, username, TokenTypeRefresh, j.RefreshTokenTTL, j.RefreshTokenSecret)
}

func (j *JWTTokenGenerator) ValidateAccessToken(tokenString string) (*Claims, error) {
	return j.validate(tokenString, TokenTypeAccess, j.AccessTokenSecret)
}

func (j *JWTTokenGenerator) ValidateRefreshToken(tokenString string) (*Claims, error) {
	return j.validate(tokenString, TokenTypeRefresh, j.RefreshTokenSecret)
}

func (j *JWTTokenGenerator) sign(userID, username, tokenType string, ttl time.Duration, secret []byte) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:    userID,
		Username:  username,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   userID,
			Issuer:    j.Issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func (j *JWTTokenGenerator) validate(tokenString, tokenType string, secret []byte) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		if stderrors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.TokenType != tokenType {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
