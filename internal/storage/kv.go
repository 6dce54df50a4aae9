// Package storage provides the durable key-value layer behind history and
// draft persistence.
package storage

import (
	"context"
	"errors"
)

// Keys used by the application.
const (
	HistoryKey = "repairHistory"
	DraftKey   = "problemDescriptionDraft"
)

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = errors.New("key not found")

// ErrQuotaExceeded is returned by Set when a value is larger than the store accepts.
var ErrQuotaExceeded = errors.New("storage quota exceeded")

// KV is a string key-value store. Values are replaced whole; there are no
// partial writes.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}
