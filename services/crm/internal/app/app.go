package app

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"patorama/internal/util"
	"patorama/pkg/authz"
	"patorama/pkg/domain"
	"patorama/pkg/events"
	"patorama/pkg/storage"
	"patorama/pkg/store"
)

// UploadLimits bounds a single upload request.
type UploadLimits struct {
	MaxBytes            int64
	MaxFiles            int
	AllowedExtensions   []string
	AllowedContentTypes []string
}

// Config wires the dependencies of the application core.
type Config struct {
	Store         store.Store
	Sessions      store.SessionStore
	Objects       storage.ObjectStore
	Policy        *authz.Policy
	Events        events.Publisher
	Uploads       UploadLimits
	PresignExpiry time.Duration
}

// App implements every CRM use case on top of the store.
type App struct {
	store    store.Store
	sessions store.SessionStore
	objects  storage.ObjectStore
	policy   *authz.Policy
	events   events.Publisher

	maxUploadBytes      int64
	maxFiles            int
	allowedExtensions   map[string]struct{}
	allowedContentTypes []string
	presignExpiry       time.Duration
}

const (
	defaultMaxUploadBytes = 100 << 20
	defaultMaxFiles       = 10
)

var (
	defaultExtensions   = []string{".jpeg", ".jpg", ".png", ".gif", ".mp4", ".mov", ".avi", ".pdf"}
	defaultContentTypes = []string{"image/", "video/", "application/pdf"}
)

// New constructs the application.
func New(cfg Config) (*App, error) {
	if cfg.Store == nil {
		return nil, errors.New("store is required")
	}
	if cfg.Sessions == nil {
		return nil, errors.New("session store is required")
	}
	if cfg.Objects == nil {
		return nil, errors.New("object store is required")
	}
	policy := cfg.Policy
	if policy == nil {
		policy = authz.DefaultPolicy()
	}
	publisher := cfg.Events
	if publisher == nil {
		publisher = events.Nop{}
	}
	limits := cfg.Uploads
	if limits.MaxBytes <= 0 {
		limits.MaxBytes = defaultMaxUploadBytes
	}
	if limits.MaxFiles <= 0 {
		limits.MaxFiles = defaultMaxFiles
	}
	if len(limits.AllowedExtensions) == 0 {
		limits.AllowedExtensions = defaultExtensions
	}
	if len(limits.AllowedContentTypes) == 0 {
		limits.AllowedContentTypes = defaultContentTypes
	}
	presign := cfg.PresignExpiry
	if presign <= 0 {
		presign = 15 * time.Minute
	}
	return &App{
		store:               cfg.Store,
		sessions:            cfg.Sessions,
		objects:             cfg.Objects,
		policy:              policy,
		events:              publisher,
		maxUploadBytes:      limits.MaxBytes,
		maxFiles:            limits.MaxFiles,
		allowedExtensions:   normalizeExtensions(limits.AllowedExtensions),
		allowedContentTypes: normalizeContentTypes(limits.AllowedContentTypes),
		presignExpiry:       presign,
	}, nil
}

// MaxUploadBytes is the per-file size limit.
func (a *App) MaxUploadBytes() int64 { return a.maxUploadBytes }

// MaxFilesPerUpload is the per-request file count limit.
func (a *App) MaxFilesPerUpload() int { return a.maxFiles }

func (a *App) authorize(actor domain.User, action authz.Action) error {
	if err := a.policy.Authorize(actor.Role, action); err != nil {
		return &Error{Kind: ErrForbidden, Msg: "Access denied - insufficient permissions", Cause: err}
	}
	return nil
}

// canSeeJob applies the ownership rule: creators and editors only reach jobs
// they are assigned to; roles with jobs.view_all reach every job.
func (a *App) canSeeJob(actor domain.User, job domain.Job) bool {
	if a.policy.Can(actor.Role, authz.ViewAllJobs) {
		return true
	}
	switch actor.Role {
	case domain.RoleContentCreator:
		return job.AssignedCreatorID != nil && *job.AssignedCreatorID == actor.ID
	case domain.RoleEditor:
		return job.AssignedEditorID != nil && *job.AssignedEditorID == actor.ID
	}
	return false
}

// notify writes a notification outside any transaction. Failures are logged
// and never reach the caller.
func (a *App) notify(ctx context.Context, n domain.Notification) {
	created, err := a.store.CreateNotification(ctx, n)
	if err != nil {
		util.LoggerFromContext(ctx).Warn("notification dropped", "user_id", n.UserID, "type", n.Type, "err", err)
		return
	}
	a.publish(ctx, events.Event{
		Type:     events.NotificationCreated,
		EntityID: created.ID,
		Data:     map[string]any{"user_id": created.UserID, "type": created.Type},
	})
}

func (a *App) publish(ctx context.Context, e events.Event) {
	if e.RequestID == "" {
		e.RequestID = util.RequestIDFromContext(ctx)
	}
	if err := a.events.Publish(ctx, e); err != nil {
		util.LoggerFromContext(ctx).Warn("event publish failed", "type", e.Type, "entity_id", e.EntityID, "err", err)
	}
}

func normalizeExtensions(exts []string) map[string]struct{} {
	out := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out[ext] = struct{}{}
	}
	return out
}

func normalizeContentTypes(types []string) []string {
	out := make([]string, 0, len(types))
	for _, t := range types {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func (a *App) extensionAllowed(filename string) bool {
	_, ok := a.allowedExtensions[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// contentTypeAllowed matches exact types, or prefixes ending in "/".
func (a *App) contentTypeAllowed(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	for _, allowed := range a.allowedContentTypes {
		if strings.HasSuffix(allowed, "/") {
			if strings.HasPrefix(ct, allowed) {
				return true
			}
			continue
		}
		if ct == allowed {
			return true
		}
	}
	return false
}

func logger(ctx context.Context) *slog.Logger {
	return util.LoggerFromContext(ctx)
}
