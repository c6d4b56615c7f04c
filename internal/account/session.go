package account

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "tsea"

// ErrInvalidSession is returned for a missing, expired or forged token.
var ErrInvalidSession = errors.New("invalid session")

// Session identifies a browser session. UserID is empty for anonymous
// visitors; progress is keyed by ID either way.
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
}

// Anonymous reports whether no user is logged in.
func (s Session) Anonymous() bool {
	return s.UserID == ""
}

// Sessions issues and verifies HS256-signed session tokens.
type Sessions struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessions creates a token issuer. The secret must not be empty.
func NewSessions(secret string, ttl time.Duration) (*Sessions, error) {
	if secret == "" {
		return nil, fmt.Errorf("session secret is empty")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("session ttl must be positive, got %s", ttl)
	}
	return &Sessions{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// TTL is the lifetime of issued tokens.
func (s *Sessions) TTL() time.Duration {
	return s.ttl
}

// Issue starts a new session for userID (empty for anonymous) and returns it
// with its signed token.
func (s *Sessions) Issue(userID string) (Session, string, error) {
	return s.issue(uuid.NewString(), userID)
}

// Upgrade re-issues a session for a user who just logged in, keeping the
// session id so progress made while anonymous is kept.
func (s *Sessions) Upgrade(sess Session, userID string) (Session, string, error) {
	id := sess.ID
	if id == "" {
		id = uuid.NewString()
	}
	return s.issue(id, userID)
}

func (s *Sessions) issue(id, userID string) (Session, string, error) {
	now := s.now()
	sess := Session{ID: id, UserID: userID, ExpiresAt: now.Add(s.ttl)}

	claims := jwt.RegisteredClaims{
		ID:        sess.ID,
		Subject:   userID,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return Session{}, "", fmt.Errorf("sign session: %w", err)
	}
	return sess, token, nil
}

// Parse verifies a token and returns its session.
func (s *Sessions) Parse(token string) (Session, error) {
	if token == "" {
		return Session{}, ErrInvalidSession
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %w", ErrInvalidSession, err)
	}
	if claims.ID == "" {
		return Session{}, fmt.Errorf("%w: missing session id", ErrInvalidSession)
	}

	return Session{
		ID:        claims.ID,
		UserID:    claims.Subject,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
