package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stemsi/student-registry/internal/config"
	"github.com/stemsi/student-registry/internal/model"
	"github.com/stemsi/student-registry/internal/repository"
	"github.com/stemsi/student-registry/internal/session"
	"golang.org/x/crypto/bcrypt"
)

// Claims is the payload of a session token. ID (jti) names the server-side
// session; the token carries no expiry of its own.
type Claims struct {
	jwt.RegisteredClaims
	Role model.Role `json:"role"`
}

// AuthService handles credentials, session tokens and role checks.
type AuthService struct {
	cfg      *config.Config
	accounts repository.AccountStore
	sessions session.Store

	// dummyHash is compared against when the username is unknown so both
	// failure paths cost one bcrypt comparison.
	dummyHash []byte
	now       func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config, accounts repository.AccountStore, sessions session.Store) (*AuthService, error) {
	dummy, err := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}
	return &AuthService{
		cfg:       cfg,
		accounts:  accounts,
		sessions:  sessions,
		dummyHash: dummy,
		now:       time.Now,
	}, nil
}

// HashPassword hashes a password with the configured bcrypt cost.
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	return string(hash), err
}

// CheckPassword compares a plaintext password against a bcrypt hash.
func (s *AuthService) CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// Login verifies the credentials and opens a new session.
// An unknown username and a wrong password both return ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, *model.Account, error) {
	account, err := s.accounts.GetAccountByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, fmt.Errorf("lookup account: %w", err)
	}
	if err := s.CheckPassword(account.PasswordHash, password); err != nil {
		return "", nil, err
	}

	id, err := session.GenerateID()
	if err != nil {
		return "", nil, err
	}
	now := s.now()
	sess := &model.Session{
		ID:        id,
		AccountID: account.ID,
		Username:  account.Username,
		Role:      account.Role,
		CreatedAt: now,
		LastSeen:  now,
	}

	token, err := s.signToken(sess)
	if err != nil {
		return "", nil, err
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return "", nil, fmt.Errorf("store session: %w", err)
	}
	return token, account, nil
}

func (s *AuthService) signToken(sess *model.Session) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       sess.ID,
			Subject:  strconv.FormatInt(sess.AccountID, 10),
			IssuedAt: jwt.NewNumericDate(sess.CreatedAt),
		},
		Role: sess.Role,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.SessionSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and verifies a session token, returning its claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.SessionSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.ID == "" {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// Resolve maps a token to its live session and records the activity.
// A session idle longer than the TTL is deleted and ErrSessionExpired returned.
func (s *AuthService) Resolve(ctx context.Context, token string) (*model.Session, error) {
	sess, err := s.lookup(ctx, token)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.sessions.Touch(ctx, sess.ID, now); err != nil {
		return nil, fmt.Errorf("touch session: %w", err)
	}
	sess.LastSeen = now
	return sess, nil
}

// Check is Resolve without recording activity. Long-lived connections use it
// to notice a logout or idle expiry without keeping the session alive.
func (s *AuthService) Check(ctx context.Context, token string) (*model.Session, error) {
	return s.lookup(ctx, token)
}

func (s *AuthService) lookup(ctx context.Context, token string) (*model.Session, error) {
	if token == "" {
		return nil, ErrSessionNotFound
	}
	claims, err := s.ValidateToken(token)
	if err != nil {
		return nil, ErrSessionNotFound
	}

	sess, err := s.sessions.Get(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if sess == nil || claims.Subject != strconv.FormatInt(sess.AccountID, 10) {
		return nil, ErrSessionNotFound
	}

	if sess.IdleExpired(s.now(), s.cfg.SessionTTL) {
		if err := s.sessions.Delete(ctx, sess.ID); err != nil {
			return nil, fmt.Errorf("delete expired session: %w", err)
		}
		return nil, ErrSessionExpired
	}
	return sess, nil
}

// Logout ends the session behind token. Tokens that do not resolve to a
// session are ignored.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	claims, err := s.ValidateToken(token)
	if err != nil {
		return nil
	}
	if err := s.sessions.Delete(ctx, claims.ID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Authorize reports whether sess holds role. An anonymous caller (nil
// session) and a wrong role both return ErrForbidden.
func (s *AuthService) Authorize(sess *model.Session, role model.Role) error {
	if sess == nil || sess.Role != role {
		return ErrForbidden
	}
	return nil
}

// CreateAccount hashes password and stores a new account with role.
func (s *AuthService) CreateAccount(ctx context.Context, username, password string, role model.Role) (*model.Account, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("unknown role %q", role)
	}
	hash, err := s.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	account := &model.Account{Username: username, PasswordHash: hash, Role: role}
	if err := s.accounts.CreateAccount(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// RegisterAccount is public self-registration; the account always gets RoleUser.
func (s *AuthService) RegisterAccount(ctx context.Context, username, password string) (*model.Account, error) {
	return s.CreateAccount(ctx, username, password, model.RoleUser)
}

// EnsureSeedAdmin creates the configured admin account unless the username
// is already taken. Reports whether an account was created.
func (s *AuthService) EnsureSeedAdmin(ctx context.Context) (bool, error) {
	if s.cfg.SeedAdminUsername == "" {
		return false, nil
	}
	_, err := s.CreateAccount(ctx, s.cfg.SeedAdminUsername, s.cfg.SeedAdminPassword, model.RoleAdmin)
	if errors.Is(err, repository.ErrDuplicateUsername) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("seed admin: %w", err)
	}
	return true, nil
}
