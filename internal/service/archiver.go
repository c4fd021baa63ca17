package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/timmy/foodlens/internal/logger"
	"github.com/timmy/foodlens/internal/storage"
)

// Logical storage folders distinguishing how an asset entered the system.
const (
	FolderUploads = "food-uploads"
	FolderURLs    = "food-urls"
)

const archiveTimeout = 10 * time.Second

// Archiver durably uploads original image bytes to object storage. Archival
// is a best-effort enhancement: on any failure Archive returns fallbackURL
// instead of an error, so the pipeline never aborts on a storage outage.
type Archiver struct {
	storage storage.ObjectStorage
	log     *logger.Logger
}

// NewArchiver creates an archiver over the given storage backend. A nil
// backend produces an archiver that always returns the fallback.
func NewArchiver(st storage.ObjectStorage, log *logger.Logger) *Archiver {
	return &Archiver{storage: st, log: log}
}

// Archive uploads data under a fresh key in folder and returns its public
// URL. On failure the fallbackURL is returned (the original source URL for
// URL-mode analyses, empty for direct uploads).
func (a *Archiver) Archive(ctx context.Context, data []byte, folder, fallbackURL string) string {
	if a.storage == nil {
		a.log.Warn("Object storage not configured - using fallback URL")
		return fallbackURL
	}

	mime := mimetype.Detect(data)
	key := fmt.Sprintf("%s/%s%s", folder, uuid.New().String(), mime.Extension())

	uploadCtx, cancel := context.WithTimeout(ctx, archiveTimeout)
	defer cancel()

	err := a.storage.Upload(uploadCtx, key, bytes.NewReader(data), int64(len(data)), mime.String())
	if err != nil {
		a.log.WithFields(logger.Fields{
			"key":  key,
			"size": len(data),
		}).WithError(err).Error("Archive upload failed - using fallback URL")
		return fallbackURL
	}

	url := a.storage.GetURL(key)
	a.log.WithFields(logger.Fields{
		"key": key,
		"url": url,
	}).Info("Archive upload succeeded")
	return url
}
