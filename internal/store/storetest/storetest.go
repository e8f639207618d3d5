// Package storetest provides in-memory KV and blob stores for tests.
package storetest

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"pistore/internal/store"
)

type kvEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryKV is a goroutine-safe in-memory store.KV.
type MemoryKV struct {
	mu      sync.Mutex
	entries map[string]kvEntry
	// FailGet, when set, is returned by every Get and Update.
	FailGet error
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{entries: make(map[string]kvEntry)}
}

func (m *MemoryKV) lookup(key string) ([]byte, bool) {
	entry, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		delete(m.entries, key)
		return nil, false
	}
	return entry.value, true
}

func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailGet != nil {
		return nil, m.FailGet
	}
	value, ok := m.lookup(key)
	if !ok {
		return nil, store.ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

func (m *MemoryKV) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry := kvEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	m.entries[key] = entry
	return nil
}

func (m *MemoryKV) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.entries, key)
	}
	return nil
}

func (m *MemoryKV) List(_ context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0)
	for key := range m.entries {
		if _, ok := m.lookup(key); ok && strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *MemoryKV) Update(_ context.Context, key string, fn func(current []byte) ([]byte, error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailGet != nil {
		return m.FailGet
	}
	current, _ := m.lookup(key)
	next, err := fn(append([]byte(nil), current...))
	if err != nil || next == nil {
		return err
	}
	entry := m.entries[key]
	entry.value = append([]byte(nil), next...)
	m.entries[key] = entry
	return nil
}

// Raw returns the stored bytes for key, or nil.
func (m *MemoryKV) Raw(key string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, _ := m.lookup(key)
	return value
}

type blobEntry struct {
	data []byte
	info store.BlobInfo
}

// MemoryBlob is a goroutine-safe in-memory store.Blob.
type MemoryBlob struct {
	mu      sync.Mutex
	objects map[string]blobEntry
}

func NewMemoryBlob() *MemoryBlob {
	return &MemoryBlob{objects: make(map[string]blobEntry)}
}

func (m *MemoryBlob) Put(_ context.Context, name, contentType string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[name] = blobEntry{
		data: data,
		info: store.BlobInfo{Name: name, Size: int64(len(data)), ContentType: contentType, UploadedAt: time.Now()},
	}
	return nil
}

func (m *MemoryBlob) Open(_ context.Context, name string) (io.ReadCloser, store.BlobInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.objects[name]
	if !ok {
		return nil, store.BlobInfo{}, store.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(entry.data)), entry.info, nil
}

func (m *MemoryBlob) List(_ context.Context, prefix string) ([]store.BlobInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	infos := make([]store.BlobInfo, 0)
	for name, entry := range m.objects {
		if strings.HasPrefix(name, prefix) {
			infos = append(infos, entry.info)
		}
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

func (m *MemoryBlob) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, name)
	return nil
}
