package pipeline

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"photovault/domain/models"
	"photovault/domain/repositories"
	"photovault/pkg/errs"
	"photovault/pkg/logger"
)

// ObjectInfo describes a stored object as reported by the blob store.
type ObjectInfo struct {
	Size   int64
	Digest string
}

// BlobStore is the multipart upload contract the uploader drives.
type BlobStore interface {
	InitiateMultipart(ctx context.Context, key, contentType string) (uploadID string, err error)
	UploadPart(ctx context.Context, key, uploadID string, partNumber int, data []byte) (etag string, err error)
	// CompleteMultipart finishes the upload; Head afterwards reports
	// the digest the store computed from what it received.
	CompleteMultipart(ctx context.Context, key, uploadID string, etags []string) error
	AbortMultipart(ctx context.Context, key, uploadID string) error
	Head(ctx context.Context, key string) (*ObjectInfo, error)
	Delete(ctx context.Context, key string) error
}

// Rendition is one uploadable stream of an asset. Open must return a
// fresh reader on every call so a failed upload can be retried from
// the start.
type Rendition struct {
	Tag         models.VersionTag
	Ext         string
	ContentType string
	Width       *int
	Height      *int
	Open        func() (io.ReadCloser, error)
}

// Uploader performs integrity-checked multipart uploads and records
// the resulting Version rows.
type Uploader struct {
	store       BlobStore
	records     repositories.RecordRepository
	partSize    int64
	maxAttempts int
}

// NewUploader creates an Uploader. partSize below the store's 5 MiB
// multipart minimum is raised to 8 MiB.
func NewUploader(store BlobStore, records repositories.RecordRepository, partSize int64, maxAttempts int) *Uploader {
	if partSize < 5*1024*1024 {
		partSize = 8 * 1024 * 1024
	}
	if maxAttempts < 1 {
		maxAttempts = 3
	}
	return &Uploader{store: store, records: records, partSize: partSize, maxAttempts: maxAttempts}
}

// PredictMultipartDigest streams the content once and returns the
// digest the store will report for a multipart upload of it: the hash
// of the concatenated per-part hashes, suffixed with the part count
// (the S3 multipart ETag convention, which is md5-based).
func PredictMultipartDigest(r io.Reader, partSize int64) (digest string, parts int, size int64, err error) {
	outer := md5.New()
	buf := make([]byte, partSize)
	for {
		n, readErr := io.ReadFull(r, buf)
		if n > 0 {
			partHash := md5.Sum(buf[:n])
			outer.Write(partHash[:])
			parts++
			size += int64(n)
		}
		if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
			break
		}
		if readErr != nil {
			return "", 0, 0, readErr
		}
	}
	if parts == 0 {
		// empty object still counts as one empty part
		partHash := md5.Sum(nil)
		outer.Write(partHash[:])
		parts = 1
	}
	return fmt.Sprintf("%s-%d", hex.EncodeToString(outer.Sum(nil)), parts), parts, size, nil
}

// StorageKey builds the object key for a record's rendition, bucketed
// by capture year/month.
func StorageKey(recordUUID uuid.UUID, takenAt *time.Time, tag models.VersionTag, ext string) string {
	t := time.Now().UTC()
	if takenAt != nil {
		t = takenAt.UTC()
	}
	return path.Join("photos", recordUUID.String(), fmt.Sprintf("%04d/%02d", t.Year(), t.Month()), string(tag)+ext)
}

// Upload stores one rendition and upserts its Version row. The whole
// upload is retried with backoff and jitter on integrity mismatch or
// transport failure; after the attempt budget is spent the Version is
// written with a failed status and the error is returned so the caller
// can report it without aborting sibling renditions.
func (u *Uploader) Upload(ctx context.Context, record *models.PhotoRecord, r Rendition) (*models.Version, error) {
	reader, err := r.Open()
	if err != nil {
		return nil, errs.Wrap(errs.ErrSourceFetch, "open rendition", err)
	}
	predicted, parts, size, err := PredictMultipartDigest(reader, u.partSize)
	reader.Close()
	if err != nil {
		return nil, errs.Wrap(errs.ErrSourceFetch, "digest rendition", err)
	}

	key := StorageKey(record.UUID, record.TakenAt, r.Tag, r.Ext)

	backoff := retry.WithMaxRetries(uint64(u.maxAttempts-1), retry.WithJitter(500*time.Millisecond, retry.NewExponential(1*time.Second)))
	attempt := 0
	uploadErr := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := u.uploadOnce(ctx, key, r, predicted, parts); err != nil {
			logger.UploadError("attempt_failed", "upload attempt failed", err, map[string]interface{}{
				"key":     key,
				"attempt": attempt,
			})
			return retry.RetryableError(err)
		}
		return nil
	})

	version := &models.Version{
		PhotoUUID:   record.UUID,
		Tag:         r.Tag,
		StoragePath: key,
		ByteSize:    size,
		Width:       r.Width,
		Height:      r.Height,
		Digest:      predicted,
		Status:      models.VersionStatusStored,
	}
	if uploadErr != nil {
		msg := uploadErr.Error()
		version.Status = models.VersionStatusFailed
		version.UploadError = &msg
	}

	if err := u.records.UpsertVersion(ctx, version); err != nil {
		return nil, errs.Wrap(errs.ErrDatabase, "persist version", err)
	}
	if uploadErr != nil {
		return version, errs.Wrap(errs.ErrUploadIntegrity, fmt.Sprintf("upload %s exhausted %d attempts", key, u.maxAttempts), uploadErr)
	}

	logger.Upload("stored", "rendition stored and verified", map[string]interface{}{
		"key":    key,
		"digest": predicted,
		"parts":  parts,
		"bytes":  size,
	})
	return version, nil
}

// uploadOnce runs one full multipart upload and verifies the stored
// digest against the prediction.
func (u *Uploader) uploadOnce(ctx context.Context, key string, r Rendition, predicted string, parts int) error {
	reader, err := r.Open()
	if err != nil {
		return fmt.Errorf("open rendition: %w", err)
	}
	defer reader.Close()

	uploadID, err := u.store.InitiateMultipart(ctx, key, r.ContentType)
	if err != nil {
		return fmt.Errorf("initiate multipart: %w", err)
	}

	etags := make([]string, 0, parts)
	buf := make([]byte, u.partSize)
	partNumber := 0
	for {
		n, readErr := io.ReadFull(reader, buf)
		if n > 0 || partNumber == 0 {
			partNumber++
			etag, upErr := u.store.UploadPart(ctx, key, uploadID, partNumber, buf[:n])
			if upErr != nil {
				u.abort(ctx, key, uploadID)
				return fmt.Errorf("upload part %d: %w", partNumber, upErr)
			}
			etags = append(etags, etag)
		}
		if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
			break
		}
		if readErr != nil {
			u.abort(ctx, key, uploadID)
			return fmt.Errorf("read part %d: %w", partNumber+1, readErr)
		}
	}

	if err := u.store.CompleteMultipart(ctx, key, uploadID, etags); err != nil {
		u.abort(ctx, key, uploadID)
		return fmt.Errorf("complete multipart: %w", err)
	}

	info, err := u.store.Head(ctx, key)
	if err != nil {
		return fmt.Errorf("head after complete: %w", err)
	}
	if info.Digest != predicted {
		// remove the corrupt object before the retry re-uploads it
		if delErr := u.store.Delete(ctx, key); delErr != nil {
			logger.UploadError("cleanup_failed", "could not delete mismatched object", delErr, map[string]interface{}{"key": key})
		}
		return fmt.Errorf("digest mismatch: stored %s, predicted %s", info.Digest, predicted)
	}
	return nil
}

func (u *Uploader) abort(ctx context.Context, key, uploadID string) {
	if err := u.store.AbortMultipart(ctx, key, uploadID); err != nil {
		logger.UploadError("abort_failed", "could not abort multipart upload", err, map[string]interface{}{"key": key})
	}
}
