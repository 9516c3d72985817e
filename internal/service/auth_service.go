package service

import (
	"alcyxob/learning-platform/internal/domain"
	"alcyxob/learning-platform/internal/repository"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/golang/glog"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

// --- Error Definitions ---
var (
	ErrUserAlreadyExists    = errors.New("user with this email already exists")
	ErrAuthenticationFailed = errors.New("authentication failed: invalid email or password")
	ErrAccountSuspended     = errors.New("account is suspended")
	ErrHashingFailed        = errors.New("failed to hash password")
	ErrTokenGeneration      = errors.New("failed to generate authentication token")
	ErrInvalidResetToken    = errors.New("password reset token is invalid or expired")
)

// Token purposes. Session tokens are accepted by the API middleware; reset
// tokens only by ResetPassword.
const (
	TokenPurposeSession       = "session"
	TokenPurposePasswordReset = "password_reset"
)

const (
	minPasswordLength = 8
	tokenIssuer       = "learning-platform"
)

// --- Service Interface ---
type AuthService interface {
	Register(ctx context.Context, name, email, password string, role domain.Role) (*domain.User, error)
	Login(ctx context.Context, email, password string) (token string, user *domain.User, err error)
	// RequestPasswordReset returns a short lived reset token, or an empty
	// token when no account uses email.
	RequestPasswordReset(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, token, newPassword string) error
	// CurrentUser reloads the account behind a session token so role changes
	// and suspensions apply to tokens that were already issued.
	CurrentUser(ctx context.Context, userID primitive.ObjectID) (*domain.User, error)
	GetJWTSecret() string
}

// --- Service Implementation ---

// authService implements the AuthService interface.
type authService struct {
	userRepo        repository.UserRepository
	jwtSecret       string
	jwtExpiration   time.Duration
	resetExpiration time.Duration
}

// NewAuthService creates a new instance of authService.
func NewAuthService(userRepo repository.UserRepository, jwtSecret string, jwtExpiration, resetExpiration time.Duration) AuthService {
	if jwtSecret == "" {
		panic("JWT secret cannot be empty") // Critical configuration
	}
	if jwtExpiration <= 0 {
		jwtExpiration = time.Hour
	}
	if resetExpiration <= 0 {
		resetExpiration = 30 * time.Minute
	}
	return &authService{
		userRepo:        userRepo,
		jwtSecret:       jwtSecret,
		jwtExpiration:   jwtExpiration,
		resetExpiration: resetExpiration,
	}
}

// Register handles self-registration. Only student and guest accounts can be
// self-registered, except that the very first account becomes the admin.
func (s *authService) Register(ctx context.Context, name, email, password string, role domain.Role) (*domain.User, error) {
	if role == "" {
		role = domain.RoleStudent
	}
	if role != domain.RoleStudent && role != domain.RoleGuest {
		return nil, invalidf("role %q cannot be self-registered", role)
	}

	count, err := s.userRepo.Count(ctx)
	if err != nil {
		return nil, err
	}
	claimAdmin := count == 0
	if claimAdmin {
		role = domain.RoleAdmin
	}
	user, err := createUser(ctx, s.userRepo, name, email, password, role)
	if err != nil || !claimAdmin {
		return user, err
	}
	return s.settleFirstAdmin(ctx, user)
}

// settleFirstAdmin resolves concurrent registrations on an empty store: every
// racer saw zero users and stored itself as admin, but only the earliest
// account keeps the role. The others step down to student.
func (s *authService) settleFirstAdmin(ctx context.Context, user *domain.User) (*domain.User, error) {
	admins, err := s.userRepo.List(ctx, domain.RoleAdmin)
	if err != nil {
		return nil, err
	}
	var first *domain.User
	for i := range admins {
		a := &admins[i]
		if first == nil || a.CreatedAt.Before(first.CreatedAt) ||
			(a.CreatedAt.Equal(first.CreatedAt) && a.ID.Hex() < first.ID.Hex()) {
			first = a
		}
	}
	if first != nil && first.ID != user.ID {
		if err := s.userRepo.SetRole(ctx, user.ID, domain.RoleStudent); err != nil {
			return nil, err
		}
		user.Role = domain.RoleStudent
		return user, nil
	}
	glog.Infof("First account %s registered, granted admin role", user.Email)
	return user, nil
}

// createUser validates input, hashes the password and stores the user. It is
// shared by self-registration and admin user creation.
func createUser(ctx context.Context, users repository.UserRepository, name, email, password string, role domain.Role) (*domain.User, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" || email == "" {
		return nil, invalidf("name and email are required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, invalidf("email %q is not valid", email)
	}
	if !role.Valid() {
		return nil, invalidf("unknown role %q", role)
	}
	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	if _, err := users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUserAlreadyExists
		}
		return nil, err
	}

	user.PasswordHash = ""
	return user, nil
}

func hashPassword(password string) (string, error) {
	if len(password) < minPasswordLength {
		return "", invalidf("password must be at least %d characters", minPasswordLength)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", ErrHashingFailed
	}
	return string(hashed), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Login handles user authentication and JWT generation.
func (s *authService) Login(ctx context.Context, email, password string) (token string, user *domain.User, err error) {
	if email == "" || password == "" {
		return "", nil, invalidf("email and password cannot be empty")
	}

	user, err = s.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil, ErrAuthenticationFailed
		}
		return "", nil, err
	}

	if err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrAuthenticationFailed
	}
	if user.Suspended {
		return "", nil, ErrAccountSuspended
	}

	token, err = s.signToken(user, TokenPurposeSession, s.jwtExpiration, "")
	if err != nil {
		glog.Errorf("Failed to sign session token for user %s: %v", user.ID.Hex(), err)
		return "", nil, ErrTokenGeneration
	}

	user.PasswordHash = ""
	return token, user, nil
}

func (s *authService) CurrentUser(ctx context.Context, userID primitive.ObjectID) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, ErrAuthenticationFailed)
	}
	if user.Suspended {
		return nil, ErrAccountSuspended
	}
	user.PasswordHash = ""
	return user, nil
}

// RequestPasswordReset issues a reset token bound to the current password
// hash, so it stops working once the password changes.
func (s *authService) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	token, err := s.signToken(user, TokenPurposePasswordReset, s.resetExpiration, passwordFingerprint(user.PasswordHash))
	if err != nil {
		return "", ErrTokenGeneration
	}
	glog.V(1).Infof("Password reset requested for user %s", user.ID.Hex())
	return token, nil
}

// ResetPassword sets a new password for the user named by a reset token.
func (s *authService) ResetPassword(ctx context.Context, token, newPassword string) error {
	claims, err := ParseToken(token, s.jwtSecret)
	if err != nil || claims.Purpose != TokenPurposePasswordReset {
		return ErrInvalidResetToken
	}
	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return ErrInvalidResetToken
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return notFound(err, ErrInvalidResetToken)
	}
	if claims.Fingerprint != passwordFingerprint(user.PasswordHash) {
		return ErrInvalidResetToken
	}

	hash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.userRepo.SetPassword(ctx, userID, hash); err != nil {
		return err
	}
	glog.Infof("Password reset for user %s", userID.Hex())
	return nil
}

// --- JWT Helper ---

// TokenClaims defines the structure of the JWT payload.
type TokenClaims struct {
	UserID      string      `json:"uid"`
	Role        domain.Role `json:"role"`
	Purpose     string      `json:"purpose"`
	Fingerprint string      `json:"phf,omitempty"` // password hash fingerprint, reset tokens only
	jwt.RegisteredClaims
}

func (s *authService) signToken(user *domain.User, purpose string, ttl time.Duration, fingerprint string) (string, error) {
	now := time.Now()
	claims := &TokenClaims{
		UserID:      user.ID.Hex(),
		Role:        user.Role,
		Purpose:     purpose,
		Fingerprint: fingerprint,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.Hex(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.jwtSecret))
}

// ParseToken verifies an HS256 token signed with secret and returns its claims.
func ParseToken(tokenString, secret string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.UserID == "" || claims.Role == "" {
		return nil, errors.New("invalid token or missing claims")
	}
	return claims, nil
}

func passwordFingerprint(hash string) string {
	sum := sha256.Sum256([]byte(hash))
	return hex.EncodeToString(sum[:8])
}

// GetJWTSecret returns the JWT secret for middleware authentication
func (s *authService) GetJWTSecret() string {
	return s.jwtSecret
}
