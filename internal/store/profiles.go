package store

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"pistore/internal/models"
)

const (
	addressKeyPrefix = "address:"
	avatarKeyPrefix  = "avatar:"
)

// ProfileStore keeps per-user shipping addresses and avatar URLs.
type ProfileStore struct {
	kv  KV
	now func() time.Time
}

func NewProfileStore(kv KV) *ProfileStore {
	return &ProfileStore{kv: kv, now: time.Now}
}

// Address returns ErrNotFound when the user never saved one.
func (s *ProfileStore) Address(ctx context.Context, username string) (models.Address, error) {
	data, err := s.kv.Get(ctx, addressKeyPrefix+NormalizeUsername(username))
	if err != nil {
		return models.Address{}, err
	}
	var address models.Address
	if err := json.Unmarshal(data, &address); err != nil {
		return models.Address{}, ErrNotFound
	}
	return address, nil
}

func (s *ProfileStore) SaveAddress(ctx context.Context, username string, address models.Address) (models.Address, error) {
	address.Name = strings.TrimSpace(address.Name)
	address.Phone = strings.TrimSpace(address.Phone)
	address.Address = strings.TrimSpace(address.Address)
	address.Province = strings.TrimSpace(address.Province)
	address.Country = strings.TrimSpace(address.Country)
	address.UpdatedAt = s.now().UTC()

	data, err := json.Marshal(address)
	if err != nil {
		return models.Address{}, err
	}
	if err := s.kv.Set(ctx, addressKeyPrefix+NormalizeUsername(username), data, 0); err != nil {
		return models.Address{}, err
	}
	return address, nil
}

func (s *ProfileStore) Avatar(ctx context.Context, username string) (string, error) {
	data, err := s.kv.Get(ctx, avatarKeyPrefix+NormalizeUsername(username))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (s *ProfileStore) SaveAvatar(ctx context.Context, username, url string) error {
	return s.kv.Set(ctx, avatarKeyPrefix+NormalizeUsername(username), []byte(url), 0)
}
