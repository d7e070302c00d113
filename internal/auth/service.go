// Package auth verifies identity tokens through the external identity
// collaborator and issues domain-scoped session credentials.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/blackcape/expense-reporter/internal/common"
)

// IdentityVerifier is the external identity collaborator: it validates an
// identity token and returns the verified email.
type IdentityVerifier interface {
	Verify(ctx context.Context, idToken string) (string, error)
}

// GoogleVerifier validates Google ID tokens against the tokeninfo endpoint.
type GoogleVerifier struct {
	httpClient *http.Client
	endpoint   string
	logger     *slog.Logger
}

func NewGoogleVerifier(logger *slog.Logger) *GoogleVerifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &GoogleVerifier{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		endpoint:   "https://oauth2.googleapis.com/tokeninfo",
		logger:     logger,
	}
}

func (v *GoogleVerifier) Verify(ctx context.Context, idToken string) (string, error) {
	u := fmt.Sprintf("%s?id_token=%s", v.endpoint, url.QueryEscape(idToken))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", common.WrapError(err, "build tokeninfo request")
	}
	resp, err := v.httpClient.Do(req)
	if err != nil {
		return "", common.WrapError(err, "tokeninfo request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", common.WrapError(err, "read tokeninfo response")
	}
	if resp.StatusCode != http.StatusOK {
		v.logger.Warn("identity token rejected", "status", resp.StatusCode)
		return "", common.ErrUnauthorized
	}

	var payload struct {
		Email         string `json:"email"`
		EmailVerified string `json:"email_verified"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", common.WrapError(err, "parse tokeninfo response")
	}
	if payload.Email == "" || payload.EmailVerified != "true" {
		return "", common.ErrUnauthorized
	}
	return payload.Email, nil
}

// Service ties identity verification, the allowed-domain policy, session
// issuance, and JWT signing together. Authorization failures are fatal to the
// session: nothing partial is recorded.
type Service struct {
	verifier      IdentityVerifier
	sessions      *SessionStore
	secret        []byte
	allowedDomain string
	ttl           time.Duration
	logger        *slog.Logger
}

func NewService(verifier IdentityVerifier, sessions *SessionStore, secret, allowedDomain string, ttl time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{
		verifier:      verifier,
		sessions:      sessions,
		secret:        []byte(secret),
		allowedDomain: allowedDomain,
		ttl:           ttl,
		logger:        logger,
	}
}

// Login verifies the identity token, enforces the allowed-domain policy, and
// returns a signed session token plus the verified email.
func (s *Service) Login(ctx context.Context, idToken string) (string, string, error) {
	email, err := s.verifier.Verify(ctx, idToken)
	if err != nil {
		return "", "", err
	}
	if s.allowedDomain != "" && !strings.HasSuffix(email, "@"+s.allowedDomain) {
		s.logger.Warn("login rejected: email domain not allowed", "email", email)
		return "", "", fmt.Errorf("%w: email domain not allowed, must be @%s", common.ErrUnauthorized, s.allowedDomain)
	}

	sess := s.sessions.Put(email)
	claims := jwt.RegisteredClaims{
		Subject:   email,
		IssuedAt:  jwt.NewNumericDate(sess.IssuedAt),
		ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		s.sessions.Delete(email)
		return "", "", common.WrapError(err, "sign session token")
	}
	s.logger.Info("session issued", "email", email, "expires_at", sess.ExpiresAt)
	return token, email, nil
}

// Authenticate validates a session token and returns the email it was
// issued to. The token must both verify and match a live session.
func (s *Service) Authenticate(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return "", common.ErrUnauthorized
	}
	if claims.Subject == "" {
		return "", common.ErrUnauthorized
	}
	if _, ok := s.sessions.Get(claims.Subject); !ok {
		return "", common.ErrUnauthorized
	}
	return claims.Subject, nil
}

// Logout drops the session for the given email.
func (s *Service) Logout(email string) {
	s.sessions.Delete(email)
}

var _ IdentityVerifier = (*GoogleVerifier)(nil)
