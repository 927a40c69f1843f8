package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"patorama/pkg/authz"
	"patorama/pkg/domain"
	"patorama/pkg/events"
	"patorama/pkg/storage"
)

const uploadConcurrency = 4

// UploadFile is one file of a multipart upload. Open is called once.
type UploadFile struct {
	Name        string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// Download is either a redirect to a presigned URL or a stream to copy.
type Download struct {
	Upload      domain.Upload
	RedirectURL string
	Body        io.ReadCloser
}

// UploadFiles stores files for a job and records them in one transaction.
// All files are validated before anything is written.
func (a *App) UploadFiles(ctx context.Context, actor domain.User, jobID int64, files []UploadFile) ([]domain.Upload, error) {
	if len(files) == 0 {
		return nil, validationError("No files uploaded")
	}
	if len(files) > a.maxFiles {
		return nil, validationError("Too many files (max %d)", a.maxFiles)
	}
	for _, f := range files {
		name := storage.SafeFilename(f.Name)
		switch {
		case f.Open == nil:
			return nil, validationError("File %s is unreadable", name)
		case f.Size > a.maxUploadBytes:
			return nil, validationError("File %s is too large", name)
		case !a.extensionAllowed(name):
			return nil, validationError("File type not allowed: %s", name)
		case !a.contentTypeAllowed(f.ContentType):
			return nil, validationError("Content type not allowed: %s", name)
		}
	}
	job, err := a.visibleJob(ctx, actor, jobID)
	if err != nil {
		return nil, err
	}

	rows := make([]domain.Upload, len(files))
	var (
		mu      sync.Mutex
		written []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uploadConcurrency)
	for i, f := range files {
		name := storage.SafeFilename(f.Name)
		key := fmt.Sprintf("jobs/%d/%s%s", jobID, uuid.NewString(), strings.ToLower(filepath.Ext(name)))
		rows[i] = domain.Upload{
			JobID:            jobID,
			UploadedByUserID: actor.ID,
			FileType:         domain.FileTypeFromContentType(f.ContentType),
			FileURL:          key,
			FileName:         name,
			FileSize:         f.Size,
			ContentType:      f.ContentType,
		}
		f := f
		g.Go(func() error {
			rc, err := f.Open()
			if err != nil {
				return fmt.Errorf("open %s: %w", name, err)
			}
			defer rc.Close()
			if err := a.objects.Put(gctx, key, rc, f.Size, f.ContentType); err != nil {
				return fmt.Errorf("store %s: %w", name, err)
			}
			mu.Lock()
			written = append(written, key)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		a.removeObjects(ctx, written)
		return nil, internal("Failed to upload files", err)
	}

	created, err := a.store.CreateUploads(ctx, rows)
	if err != nil {
		a.removeObjects(ctx, written)
		return nil, internal("Failed to upload files", err)
	}

	a.notify(ctx, domain.Notification{
		UserID:  job.CreatedByUserID,
		JobID:   &jobID,
		Message: fmt.Sprintf("New files uploaded by %s", actor.Name),
		Type:    domain.NotifyUpload,
	})
	a.publish(ctx, events.Event{
		Type:     events.UploadCreated,
		EntityID: jobID,
		ActorID:  actor.ID,
		Data:     map[string]any{"count": len(created)},
	})
	return created, nil
}

// ListUploads returns a job's uploads, newest first.
func (a *App) ListUploads(ctx context.Context, actor domain.User, jobID int64) ([]domain.Upload, error) {
	if _, err := a.visibleJob(ctx, actor, jobID); err != nil {
		return nil, err
	}
	list, err := a.store.ListUploads(ctx, jobID)
	if err != nil {
		return nil, internal("Failed to fetch uploads", err)
	}
	if list == nil {
		list = []domain.Upload{}
	}
	return list, nil
}

// MarkFinal flags an upload as a final deliverable.
func (a *App) MarkFinal(ctx context.Context, actor domain.User, uploadID int64, isFinal bool) error {
	u, err := a.getUpload(ctx, uploadID)
	if err != nil {
		return err
	}
	if u.UploadedByUserID != actor.ID && !a.policy.Can(actor.Role, authz.FinalizeAnyUpload) {
		return forbidden("Access denied")
	}
	ok, err := a.store.SetUploadFinal(ctx, uploadID, isFinal)
	if err != nil {
		return internal("Failed to update upload", err)
	}
	if !ok {
		return notFound("Upload not found")
	}
	return nil
}

// DeleteUpload removes the stored object, then the row. A storage failure is
// logged and does not keep the row.
func (a *App) DeleteUpload(ctx context.Context, actor domain.User, uploadID int64) error {
	u, err := a.getUpload(ctx, uploadID)
	if err != nil {
		return err
	}
	if u.UploadedByUserID != actor.ID && !a.policy.Can(actor.Role, authz.DeleteAnyUpload) {
		return forbidden("Access denied")
	}
	a.removeObject(ctx, u.FileURL)
	ok, err := a.store.DeleteUpload(ctx, uploadID)
	if err != nil {
		return internal("Failed to delete upload", err)
	}
	if !ok {
		return notFound("Upload not found")
	}
	return nil
}

// DownloadUpload resolves how the caller gets the file bytes.
func (a *App) DownloadUpload(ctx context.Context, actor domain.User, uploadID int64) (Download, error) {
	u, err := a.getUpload(ctx, uploadID)
	if err != nil {
		return Download{}, err
	}
	if _, err := a.visibleJob(ctx, actor, u.JobID); err != nil {
		return Download{}, err
	}
	url, err := a.objects.PresignGet(ctx, u.FileURL, a.presignExpiry)
	if err == nil {
		return Download{Upload: u, RedirectURL: url}, nil
	}
	if !errors.Is(err, storage.ErrPresignUnsupported) {
		return Download{}, internal("Failed to fetch file", err)
	}
	body, err := a.objects.Open(ctx, u.FileURL)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return Download{}, notFound("File not found")
		}
		return Download{}, internal("Failed to fetch file", err)
	}
	return Download{Upload: u, Body: body}, nil
}

func (a *App) getUpload(ctx context.Context, id int64) (domain.Upload, error) {
	u, ok, err := a.store.GetUpload(ctx, id)
	if err != nil {
		return domain.Upload{}, internal("Failed to fetch upload", err)
	}
	if !ok {
		return domain.Upload{}, notFound("Upload not found")
	}
	return u, nil
}

func (a *App) removeObjects(ctx context.Context, keys []string) {
	for _, key := range keys {
		a.removeObject(ctx, key)
	}
}

func (a *App) removeObject(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := a.objects.Delete(context.WithoutCancel(ctx), key); err != nil {
		logger(ctx).Warn("object delete failed", "key", key, "err", err)
	}
}
