package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"sync"
)

// Document is a single JSON value holding a whole collection.
type Document interface {
	Load(ctx context.Context) ([]byte, error)
	Update(ctx context.Context, fn func(current []byte) ([]byte, error)) error
	Delete(ctx context.Context) error
}

// KVDocument keeps the collection under one KV key.
type KVDocument struct {
	kv  KV
	key string
}

func NewKVDocument(kv KV, key string) *KVDocument {
	return &KVDocument{kv: kv, key: key}
}

func (d *KVDocument) Load(ctx context.Context) ([]byte, error) {
	return d.kv.Get(ctx, d.key)
}

func (d *KVDocument) Update(ctx context.Context, fn func(current []byte) ([]byte, error)) error {
	return d.kv.Update(ctx, d.key, fn)
}

func (d *KVDocument) Delete(ctx context.Context) error {
	return d.kv.Del(ctx, d.key)
}

// BlobDocument keeps the collection as one object in the blob store. The blob
// store has no compare-and-swap, so writers are serialized within this
// process only.
type BlobDocument struct {
	blob Blob
	name string
	mu   sync.Mutex
}

func NewBlobDocument(blob Blob, name string) *BlobDocument {
	return &BlobDocument{blob: blob, name: name}
}

func (d *BlobDocument) Load(ctx context.Context) ([]byte, error) {
	r, _, err := d.blob.Open(ctx, d.name)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (d *BlobDocument) Update(ctx context.Context, fn func(current []byte) ([]byte, error)) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	current, err := d.Load(ctx)
	if errors.Is(err, ErrNotFound) {
		current = nil
	} else if err != nil {
		return err
	}

	next, err := fn(current)
	if err != nil || next == nil {
		return err
	}
	return d.blob.Put(ctx, d.name, "application/json", bytes.NewReader(next))
}

func (d *BlobDocument) Delete(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.blob.Delete(ctx, d.name)
}

// decodeList never fails: a missing or corrupt document reads as empty, and
// elements that do not fit T are skipped. Skipped elements are returned raw so
// writers can carry them over.
func decodeList[T any](raw []byte, label string) ([]T, []json.RawMessage) {
	items := make([]T, 0)
	if len(bytes.TrimSpace(raw)) == 0 {
		return items, nil
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(raw, &elements); err != nil {
		log.Printf("[STORE] [WARN] %s document is not a JSON array, treating as empty: %v", label, err)
		return items, nil
	}

	var skipped []json.RawMessage
	for i, element := range elements {
		var item T
		if err := json.Unmarshal(element, &item); err != nil {
			log.Printf("[STORE] [WARN] %s element %d is unreadable, skipping: %v", label, i, err)
			skipped = append(skipped, element)
			continue
		}
		items = append(items, item)
	}
	return items, skipped
}

func loadList[T any](ctx context.Context, doc Document, label string) []T {
	raw, err := doc.Load(ctx)
	if errors.Is(err, ErrNotFound) {
		return make([]T, 0)
	}
	if err != nil {
		log.Printf("[STORE] [WARN] %s read failed, returning empty collection: %v", label, err)
		return make([]T, 0)
	}
	items, _ := decodeList[T](raw, label)
	return items
}

// mutateList decodes the document, applies fn and writes back only when fn
// reports a change. Unreadable elements are written back untouched.
func mutateList[T any](ctx context.Context, doc Document, label string, fn func(items []T) ([]T, bool, error)) error {
	return doc.Update(ctx, func(current []byte) ([]byte, error) {
		items, skipped := decodeList[T](current, label)
		next, changed, err := fn(items)
		if err != nil || !changed {
			return nil, err
		}

		out := make([]json.RawMessage, 0, len(next)+len(skipped))
		for _, item := range next {
			encoded, err := json.Marshal(item)
			if err != nil {
				return nil, err
			}
			out = append(out, encoded)
		}
		out = append(out, skipped...)
		return json.Marshal(out)
	})
}
