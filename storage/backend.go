package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrObjectNotFound is returned by backends when the key does not exist.
var ErrObjectNotFound = errors.New("object not found")

// ErrInvalidKey is returned for keys that do not name an object inside the
// store, such as ones climbing out of it with "..".
var ErrInvalidKey = errors.New("invalid object key")

type ObjectInfo struct {
	Key     string
	ModTime time.Time
}

// Backend is the raw blob store the gateway coordinates. Keys are
// slash-separated and carry the namespace prefix.
type Backend interface {
	Put(ctx context.Context, key string, data io.Reader) error
	Rename(ctx context.Context, from, to string) error
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	URL(key string) string
	Close() error
}

var (
	_ Backend = (*FTPBackend)(nil)
	_ Backend = (*LocalBackend)(nil)
)
