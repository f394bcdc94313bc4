// Package storage provides the object store collaborator used for profile
// images.
package storage

import (
	"context"
	"errors"
)

// ErrObjectNotFound indicates no object exists under the requested prefix.
var ErrObjectNotFound = errors.New("object not found")

// Object is a stored blob's key and content.
type Object struct {
	Key  string
	Data []byte
}

// ObjectStore is the minimal blob contract the image feature needs:
// put, first-by-prefix, and delete-by-prefix.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte) error
	FirstByPrefix(ctx context.Context, prefix string) (*Object, error)
	DeleteByPrefix(ctx context.Context, prefix string) error
}
