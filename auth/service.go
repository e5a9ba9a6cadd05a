// Package auth is responsible for handling authentication and authorization
// logic: registration, login, token generation and validation. The role
// assigned at registration travels inside the JWT so authorization can be
// checked at the service boundary on every request.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/user/libris-go/apperror"
	"github.com/user/libris-go/config"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
	// pgUniqueViolation is the PostgreSQL error code for unique constraint violations.
	pgUniqueViolation = "23505"
)

// AuthService provides authentication-related services.
type AuthService struct {
	dbPool     *pgxpool.Pool
	authConfig config.AuthConfig
}

// NewAuthService creates a new AuthService.
func NewAuthService(dbPool *pgxpool.Pool, authConfig config.AuthConfig) *AuthService {
	return &AuthService{
		dbPool:     dbPool,
		authConfig: authConfig,
	}
}

// CustomClaims defines the JWT payload: the subject's profile id, their
// role, and whether this is an access or refresh token.
type CustomClaims struct {
	UserID    string `json:"user_id"`
	Role      string `json:"role"`
	TokenType string `json:"token_type"` // "access" or "refresh"
	jwt.RegisteredClaims
}

// Register creates a new account. The role is always RoleStudent; the role
// classifier is assigned once at creation and is not self-editable.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*Account, error) {
	if req.Name == "" || req.Email == "" || req.Registration == "" || req.Password == "" {
		return nil, apperror.NewValidationError("name, email, registration, and password are required", nil)
	}
	if len(req.Password) < 8 {
		return nil, apperror.NewValidationError("password must be at least 8 characters", nil)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	account := &Account{
		ID:             uuid.New(),
		Name:           strings.TrimSpace(req.Name),
		Email:          strings.ToLower(strings.TrimSpace(req.Email)),
		Registration:   strings.TrimSpace(req.Registration),
		Role:           RoleStudent,
		HashedPassword: string(hashedPassword),
	}

	created, err := s.createAccount(ctx, account)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			if strings.Contains(pgErr.ConstraintName, "email") {
				return nil, apperror.NewConflictError("email already registered", nil)
			}
			if strings.Contains(pgErr.ConstraintName, "registration") {
				return nil, apperror.NewConflictError("registration code already in use", nil)
			}
		}
		return nil, apperror.NewDatabaseError("failed to create account", err)
	}
	return created, nil
}

// Login authenticates an account and returns tokens. The login identifier
// may be the email address or the registration code.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	if req.Login == "" || req.Password == "" {
		return nil, apperror.NewValidationError("login and password are required", nil)
	}

	account, err := s.getAccountByLogin(ctx, req.Login)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Do not reveal whether the login or the password was wrong.
			return nil, apperror.NewAuthError("invalid credentials", nil)
		}
		log.Printf("database error looking up account at login: %v", err)
		return nil, apperror.NewDatabaseError("failed to get account", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.HashedPassword), []byte(req.Password)); err != nil {
		return nil, apperror.NewAuthError("invalid credentials", nil)
	}

	return s.generateTokens(account.ID, account.Role)
}

// RefreshToken generates a new access token based on a valid refresh token.
func (s *AuthService) RefreshToken(ctx context.Context, refreshTokenString string) (*TokenResponse, error) {
	claims, err := s.validateToken(refreshTokenString, tokenTypeRefresh)
	if err != nil {
		return nil, apperror.NewAuthError("invalid refresh token", err)
	}

	// Re-read the role so a role change since token issue takes effect.
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, apperror.NewAuthError("invalid refresh token subject", err)
	}
	var role string
	err = s.dbPool.QueryRow(ctx, `SELECT role FROM profiles WHERE id = $1`, userID).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewAuthError("account no longer exists", nil)
		}
		return nil, apperror.NewDatabaseError("failed to get account role", err)
	}

	newAccessToken, newAccessExpiresAt, err := s.generateSpecificToken(claims.UserID, role, tokenTypeAccess, s.authConfig.AccessTokenDuration)
	if err != nil {
		return nil, fmt.Errorf("failed to generate new access token: %w", err)
	}

	return &TokenResponse{
		AccessToken:  newAccessToken,
		RefreshToken: refreshTokenString,
		TokenType:    "Bearer",
		ExpiresIn:    newAccessExpiresAt.Unix(),
	}, nil
}

func (s *AuthService) generateTokens(userID uuid.UUID, role string) (*TokenResponse, error) {
	accessToken, accessExpiresAt, err := s.generateSpecificToken(userID.String(), role, tokenTypeAccess, s.authConfig.AccessTokenDuration)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, _, err := s.generateSpecificToken(userID.String(), role, tokenTypeRefresh, s.authConfig.RefreshTokenDuration)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    accessExpiresAt.Unix(),
	}, nil
}

func (s *AuthService) generateSpecificToken(userID string, role string, tokenType string, duration time.Duration) (string, time.Time, error) {
	expirationTime := time.Now().Add(duration)
	claims := &CustomClaims{
		UserID:    userID,
		Role:      role,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Issuer:    "libris",
			Subject:   userID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.authConfig.JWTSecret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, expirationTime, nil
}

// validateToken parses and validates a JWT string, checking the signature
// and the expected token type.
func (s *AuthService) validateToken(tokenString string, expectedTokenType string) (*CustomClaims, error) {
	claims := &CustomClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.authConfig.JWTSecret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("token is invalid")
	}
	if claims.TokenType != expectedTokenType {
		return nil, fmt.Errorf("invalid token type: expected %s, got %s", expectedTokenType, claims.TokenType)
	}
	return claims, nil
}

// --- database helpers ---

func (s *AuthService) createAccount(ctx context.Context, account *Account) (*Account, error) {
	query := `INSERT INTO profiles (id, name, email, registration, role, password)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          RETURNING created_at`
	err := s.dbPool.QueryRow(ctx, query,
		account.ID, account.Name, account.Email, account.Registration, account.Role, account.HashedPassword,
	).Scan(&account.CreatedAt)
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (s *AuthService) getAccountByLogin(ctx context.Context, login string) (*Account, error) {
	var account Account
	query := `SELECT id, name, email, registration, role, password, avatar_url, created_at
	          FROM profiles
	          WHERE email = $1 OR registration = $2`
	err := s.dbPool.QueryRow(ctx, query, strings.ToLower(login), login).Scan(
		&account.ID,
		&account.Name,
		&account.Email,
		&account.Registration,
		&account.Role,
		&account.HashedPassword,
		&account.AvatarURL,
		&account.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &account, nil
}
