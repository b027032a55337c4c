package usecase

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kolapodev-a11y/PropertyHub/internal/listing/domain"
	"github.com/kolapodev-a11y/PropertyHub/internal/platform/apperr"
	"github.com/kolapodev-a11y/PropertyHub/internal/platform/metrics"
)

const DefaultMediaFolder = "listings"

// MediaUploader stores a batch of files one at a time and returns their URLs in input order.
// A failed file aborts the batch; objects stored before it are left in place.
type MediaUploader struct {
	storage domain.ObjectStorage
	timeout time.Duration
	now     func() time.Time
	metrics *metrics.MetricsManager
	logger  *zap.Logger

	mu      sync.Mutex
	lastKey int64
}

func NewMediaUploader(storage domain.ObjectStorage, timeout time.Duration, m *metrics.MetricsManager, logger *zap.Logger) *MediaUploader {
	return &MediaUploader{
		storage: storage,
		timeout: timeout,
		now:     time.Now,
		metrics: m,
		logger:  logger.Named("MediaUploader"),
	}
}

func (u *MediaUploader) UploadBatch(ctx context.Context, files []domain.MediaFile, folder string) ([]string, error) {
	if folder == "" {
		folder = DefaultMediaFolder
	}
	urls := make([]string, 0, len(files))
	for i, f := range files {
		url, err := u.uploadOne(ctx, f, folder)
		if err != nil {
			u.logger.Error("upload batch aborted",
				zap.Int("index", i),
				zap.String("file", f.Name),
				zap.Int("stored_before_failure", len(urls)),
				zap.Error(err))
			if u.metrics != nil {
				u.metrics.UploadFailures.Inc()
			}
			return nil, apperr.Transport(fmt.Sprintf("Failed to upload %s", f.Name), err)
		}
		urls = append(urls, url)
		if u.metrics != nil {
			u.metrics.ImagesUploaded.Inc()
		}
	}
	return urls, nil
}

func (u *MediaUploader) uploadOne(ctx context.Context, f domain.MediaFile, folder string) (string, error) {
	if len(f.Data) == 0 {
		return "", domain.ErrEmptyFile
	}
	contentType := f.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(f.Data)
	}

	callCtx := ctx
	if u.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, u.timeout)
		defer cancel()
	}
	return u.storage.Upload(callCtx, u.objectKey(folder, f.Name), contentType, bytes.NewReader(f.Data), int64(len(f.Data)))
}

// objectKey returns "<folder>/<unix-millis>_<name>". The millisecond stamp is bumped
// when two keys would share one, so keys from this uploader never collide.
func (u *MediaUploader) objectKey(folder, name string) string {
	u.mu.Lock()
	stamp := u.now().UnixMilli()
	if stamp <= u.lastKey {
		stamp = u.lastKey + 1
	}
	u.lastKey = stamp
	u.mu.Unlock()

	return fmt.Sprintf("%s/%d_%s", strings.Trim(folder, "/"), stamp, cleanFileName(name))
}

func cleanFileName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "file"
	}
	return strings.ReplaceAll(name, " ", "_")
}
