package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/accountd/accountd/internal/model"
	"github.com/accountd/accountd/internal/storage"
)

// ErrImageNotFound indicates the account has no stored profile image.
var ErrImageNotFound = errors.New("image not found")

// ImageService stores at most one profile image per account in the object
// store, keyed under the "<account id>/" prefix.
type ImageService struct {
	store  storage.ObjectStore
	bucket string
	logger *slog.Logger
}

// NewImageService creates a new ImageService. bucket is only used to build
// the URL reported in responses.
func NewImageService(store storage.ObjectStore, bucket string, logger *slog.Logger) *ImageService {
	return &ImageService{
		store:  store,
		bucket: bucket,
		logger: logger,
	}
}

// Upload replaces the account's profile image with the given file.
func (s *ImageService) Upload(ctx context.Context, accountID, fileName string, data []byte) (*model.Image, error) {
	// A fresh upload supersedes any previous image under the prefix.
	if err := s.store.DeleteByPrefix(ctx, accountID+"/"); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
		return nil, fmt.Errorf("failed to clear previous image: %w", err)
	}

	key := accountID + "/" + fileName
	if err := s.store.Put(ctx, key, data); err != nil {
		return nil, fmt.Errorf("failed to store image: %w", err)
	}

	image := &model.Image{
		ID:         uuid.NewString(),
		FileName:   fileName,
		URL:        s.bucket + "/" + key,
		UploadDate: time.Now().UTC(),
		AccountID:  accountID,
	}

	s.logger.Info("profile image uploaded",
		slog.String("account_id", accountID),
		slog.String("key", key),
	)
	return image, nil
}

// Get returns metadata for the account's stored profile image.
func (s *ImageService) Get(ctx context.Context, accountID string) (*model.Image, error) {
	obj, err := s.store.FirstByPrefix(ctx, accountID+"/")
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, ErrImageNotFound
		}
		return nil, fmt.Errorf("failed to look up image: %w", err)
	}

	fileName := obj.Key
	if idx := strings.LastIndex(obj.Key, "/"); idx >= 0 {
		fileName = obj.Key[idx+1:]
	}

	return &model.Image{
		ID:         uuid.NewString(),
		FileName:   fileName,
		URL:        s.bucket + "/" + obj.Key,
		UploadDate: time.Now().UTC(),
		AccountID:  accountID,
	}, nil
}

// Delete removes the account's profile image.
func (s *ImageService) Delete(ctx context.Context, accountID string) error {
	err := s.store.DeleteByPrefix(ctx, accountID+"/")
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return ErrImageNotFound
		}
		return fmt.Errorf("failed to delete image: %w", err)
	}

	s.logger.Info("profile image deleted", slog.String("account_id", accountID))
	return nil
}
