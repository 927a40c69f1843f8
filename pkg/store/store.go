package store

import (
	"context"
	"errors"
	"time"

	"patorama/pkg/domain"
)

// Errors returned by transactional operations whose outcome is not a plain
// found/not-found.
var (
	ErrEmailTaken         = errors.New("email already exists")
	ErrCustomerNotFound   = errors.New("customer not found")
	ErrCustomerHasJobs    = errors.New("customer has jobs")
	ErrProductNotFound    = errors.New("product not found")
	ErrVariantNotFound    = errors.New("product variant not found")
	ErrJobNotFound        = errors.New("job not found")
	ErrJobHasInvoice      = errors.New("job has an invoice")
	ErrInvoiceExists      = errors.New("invoice already exists for job")
	ErrInvalidSession     = errors.New("invalid session")
	ErrSessionUnavailable = errors.New("session store not configured")
)

// Store defines persistence operations for the CRM.
type Store interface {
	// users
	CreateUser(ctx context.Context, u domain.User) (domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (domain.User, bool, error)
	GetUserByID(ctx context.Context, id int64) (domain.User, bool, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	UserCount(ctx context.Context) (int64, error)

	// customers
	CreateCustomer(ctx context.Context, c domain.Customer) (domain.Customer, error)
	GetCustomer(ctx context.Context, id int64) (domain.Customer, bool, error)
	ListCustomers(ctx context.Context, f domain.CustomerFilter) ([]domain.Customer, int64, error)
	UpdateCustomer(ctx context.Context, id int64, patch domain.CustomerPatch) (bool, error)
	DeleteCustomer(ctx context.Context, id int64) error

	// catalog
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id int64) (domain.Product, bool, error)
	CreateProduct(ctx context.Context, p domain.Product) (domain.Product, error)
	CreateVariant(ctx context.Context, v domain.ProductVariant) (domain.ProductVariant, error)

	// jobs
	CreateJob(ctx context.Context, job domain.Job, lines []domain.JobProduct, notify *domain.Notification) (domain.Job, error)
	ListJobs(ctx context.Context, f domain.JobFilter) ([]domain.JobSummary, int64, error)
	ListRecentJobsByCustomer(ctx context.Context, customerID int64, limit int) ([]domain.JobSummary, error)
	GetJob(ctx context.Context, id int64) (domain.JobDetail, bool, error)
	ListJobProducts(ctx context.Context, jobID int64) ([]domain.JobProduct, error)
	UpdateJob(ctx context.Context, id int64, patch domain.JobPatch) (before, after domain.Job, found bool, err error)
	DeleteJob(ctx context.Context, id int64) ([]domain.Upload, error)

	// uploads
	CreateUploads(ctx context.Context, uploads []domain.Upload) ([]domain.Upload, error)
	ListUploads(ctx context.Context, jobID int64) ([]domain.Upload, error)
	GetUpload(ctx context.Context, id int64) (domain.Upload, bool, error)
	SetUploadFinal(ctx context.Context, id int64, isFinal bool) (bool, error)
	DeleteUpload(ctx context.Context, id int64) (bool, error)

	// notifications
	CreateNotification(ctx context.Context, n domain.Notification) (domain.Notification, error)
	ListNotifications(ctx context.Context, userID int64, limit int) ([]domain.Notification, error)
	MarkNotificationRead(ctx context.Context, id, userID int64) (bool, error)
	MarkAllNotificationsRead(ctx context.Context, userID int64) (int64, error)

	// invoices
	CreateInvoice(ctx context.Context, jobID int64) (domain.Invoice, error)
	GetInvoice(ctx context.Context, id int64) (domain.Invoice, bool, error)
	ListInvoices(ctx context.Context, f domain.InvoiceFilter) ([]domain.InvoiceSummary, int64, error)
	MarkInvoiceSent(ctx context.Context, id int64, externalID string) (bool, error)

	DashboardStats(ctx context.Context) (domain.DashboardStats, error)
}

// Session is the verified content of a session token.
type Session struct {
	UserID    int64
	Email     string
	Role      domain.UserRole
	TokenID   string
	ExpiresAt time.Time
}

// SessionStore issues, resolves and revokes session tokens.
type SessionStore interface {
	NewSession(u domain.User) (token string, expiresAt time.Time, err error)
	ResolveSession(ctx context.Context, token string) (Session, error)
	DeleteSession(ctx context.Context, token string) error
}
