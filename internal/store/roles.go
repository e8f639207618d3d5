package store

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sort"
	"strings"
	"time"

	"pistore/internal/models"
)

const userKeyPrefix = "user:"

var ErrInvalidRole = errors.New("invalid role")

// NormalizeUsername lowercases and trims a username for use as a key.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// RoleStore maps usernames to role records.
type RoleStore struct {
	kv  KV
	now func() time.Time
}

func NewRoleStore(kv KV) *RoleStore {
	return &RoleStore{kv: kv, now: time.Now}
}

// Get returns the stored record, or a buyer record when none exists.
func (s *RoleStore) Get(ctx context.Context, username string) (models.User, error) {
	username = NormalizeUsername(username)
	data, err := s.kv.Get(ctx, userKeyPrefix+username)
	if errors.Is(err, ErrNotFound) {
		return models.User{Username: username, Role: models.RoleBuyer}, nil
	}
	if err != nil {
		return models.User{}, err
	}

	var user models.User
	if err := json.Unmarshal(data, &user); err != nil || !models.IsValidRole(user.Role) {
		return models.User{Username: username, Role: models.RoleBuyer}, nil
	}
	user.Username = username
	return user, nil
}

func (s *RoleStore) GetRole(ctx context.Context, username string) (string, error) {
	user, err := s.Get(ctx, username)
	if err != nil {
		return "", err
	}
	return user.Role, nil
}

// SetRole writes the role unconditionally. An empty wallet keeps the stored one.
func (s *RoleStore) SetRole(ctx context.Context, username, role, wallet string) (models.User, error) {
	username = NormalizeUsername(username)
	role = strings.ToLower(strings.TrimSpace(role))
	if username == "" {
		return models.User{}, errors.New("username is required")
	}
	if !models.IsValidRole(role) {
		return models.User{}, ErrInvalidRole
	}

	var saved models.User
	err := s.kv.Update(ctx, userKeyPrefix+username, func(current []byte) ([]byte, error) {
		var user models.User
		if len(current) > 0 {
			if err := json.Unmarshal(current, &user); err != nil {
				log.Printf("[STORE] [WARN] role record for %s is corrupt, rewriting it: %v", username, err)
				user = models.User{}
			}
		}
		user.Username = username
		user.Role = role
		if wallet = strings.TrimSpace(wallet); wallet != "" {
			user.WalletAddress = wallet
		}
		user.UpdatedAt = s.now().UTC()
		saved = user
		return json.Marshal(user)
	})
	if err != nil {
		return models.User{}, err
	}
	return saved, nil
}

// List returns every stored role record ordered by username.
func (s *RoleStore) List(ctx context.Context) ([]models.User, error) {
	keys, err := s.kv.List(ctx, userKeyPrefix)
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)

	users := make([]models.User, 0, len(keys))
	for _, key := range keys {
		user, err := s.Get(ctx, strings.TrimPrefix(key, userKeyPrefix))
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}
