package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"pistore/internal/models"
)

const sessionKeyPrefix = "session:"

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidSession  = errors.New("invalid session token")
	ErrNoSessionSecret = errors.New("session secret not configured")
)

// SessionStore keeps sessions in the KV store with a TTL. The cookie carries
// a signed token naming the session, so forged ids never reach the store.
type SessionStore struct {
	kv     KV
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSessionStore(kv KV, secret string, ttl time.Duration) *SessionStore {
	return &SessionStore{kv: kv, secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (s *SessionStore) TTL() time.Duration {
	return s.ttl
}

// Issue creates a session for identity and returns the signed cookie value.
func (s *SessionStore) Issue(ctx context.Context, identity models.Identity) (string, models.Session, error) {
	if len(s.secret) == 0 {
		return "", models.Session{}, ErrNoSessionSecret
	}
	username := strings.ToLower(strings.TrimSpace(identity.Username))
	if username == "" {
		return "", models.Session{}, errors.New("identity has no username")
	}

	now := s.now().UTC()
	session := models.Session{
		ID:        uuid.NewString(),
		UID:       strings.TrimSpace(identity.UID),
		Username:  username,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	data, err := json.Marshal(session)
	if err != nil {
		return "", models.Session{}, err
	}
	if err := s.kv.Set(ctx, sessionKeyPrefix+session.ID, data, s.ttl); err != nil {
		return "", models.Session{}, fmt.Errorf("store session: %w", err)
	}

	claims := jwt.MapClaims{
		"sid": session.ID,
		"sub": session.Username,
		"iat": now.Unix(),
		"exp": session.ExpiresAt.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", models.Session{}, err
	}
	return signed, session, nil
}

// Verify resolves a cookie value to its live session.
func (s *SessionStore) Verify(ctx context.Context, token string) (models.Session, error) {
	id, err := s.sessionID(token)
	if err != nil {
		return models.Session{}, err
	}

	data, err := s.kv.Get(ctx, sessionKeyPrefix+id)
	if errors.Is(err, ErrNotFound) {
		return models.Session{}, ErrSessionNotFound
	}
	if err != nil {
		return models.Session{}, err
	}

	var session models.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return models.Session{}, ErrInvalidSession
	}
	if !session.ExpiresAt.IsZero() && s.now().After(session.ExpiresAt) {
		return models.Session{}, ErrSessionNotFound
	}
	return session, nil
}

// Revoke deletes the session behind token. Unknown sessions are ignored.
func (s *SessionStore) Revoke(ctx context.Context, token string) error {
	id, err := s.sessionID(token)
	if err != nil {
		return err
	}
	return s.kv.Del(ctx, sessionKeyPrefix+id)
}

func (s *SessionStore) sessionID(token string) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrNoSessionSecret
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrInvalidSession
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid {
		return "", ErrInvalidSession
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidSession
	}
	id, ok := claims["sid"].(string)
	if !ok || strings.TrimSpace(id) == "" {
		return "", ErrInvalidSession
	}
	return id, nil
}
