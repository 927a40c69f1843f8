package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

type UserRole string

const (
	RoleSuperAdmin     UserRole = "super_admin"
	RoleTeamManager    UserRole = "team_manager"
	RoleContentCreator UserRole = "content_creator"
	RoleEditor         UserRole = "editor"
)

// Valid reports whether r is one of the known roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleTeamManager, RoleContentCreator, RoleEditor:
		return true
	}
	return false
}

type UserStatus string

const (
	StatusActive   UserStatus = "active"
	StatusInactive UserStatus = "inactive"
)

type PayoutType string

const (
	PayoutFixed      PayoutType = "fixed"
	PayoutPercentage PayoutType = "percentage"
)

func (p PayoutType) Valid() bool {
	return p == PayoutFixed || p == PayoutPercentage
}

type FileType string

const (
	FilePhoto FileType = "photo"
	FileVideo FileType = "video"
	FileOther FileType = "other"
)

// FileTypeFromContentType classifies an upload by its declared MIME type.
func FileTypeFromContentType(contentType string) FileType {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	switch {
	case strings.HasPrefix(ct, "image/"):
		return FilePhoto
	case strings.HasPrefix(ct, "video/"):
		return FileVideo
	default:
		return FileOther
	}
}

type InvoiceStatus string

const (
	InvoiceDraft InvoiceStatus = "draft"
	InvoiceSent  InvoiceStatus = "sent"
	InvoicePaid  InvoiceStatus = "paid"
)

// Job workflow states used by the dashboard. Job.Status itself is free-form.
const (
	JobScheduled  = "scheduled"
	JobInProgress = "in_progress"
	JobEditing    = "editing"
	JobCompleted  = "completed"
)

// Notification types.
const (
	NotifyAssignment = "assignment"
	NotifyUpdate     = "update"
	NotifyUpload     = "upload"
)

type User struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         UserRole   `json:"role"`
	Status       UserStatus `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// PublicUser is the projection returned on login. It never carries the hash.
type PublicUser struct {
	ID    int64    `json:"id"`
	Name  string   `json:"name"`
	Email string   `json:"email"`
	Role  UserRole `json:"role"`
}

func (u User) Public() PublicUser {
	return PublicUser{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

// SessionUser is what authenticated handlers see.
type SessionUser struct {
	ID     int64      `json:"id"`
	Name   string     `json:"name"`
	Email  string     `json:"email"`
	Role   UserRole   `json:"role"`
	Status UserStatus `json:"status"`
}

func (u User) Session() SessionUser {
	return SessionUser{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, Status: u.Status}
}

type Customer struct {
	ID               int64     `json:"id"`
	AgencyName       string    `json:"agency_name"`
	ContactName      string    `json:"contact_name"`
	Email            string    `json:"email"`
	Phone            string    `json:"phone"`
	BillingAddress   string    `json:"billing_address"`
	TeamLeaderUserID *int64    `json:"team_leader_user_id"`
	TeamLeaderName   string    `json:"team_leader_name,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type CustomerDetail struct {
	Customer
	RecentJobs []JobSummary `json:"recent_jobs"`
}

type Product struct {
	ID                 int64            `json:"id"`
	Title              string           `json:"title"`
	Description        string           `json:"description"`
	BasePrice          float64          `json:"base_price"`
	DefaultPayoutType  PayoutType       `json:"default_payout_type"`
	DefaultPayoutValue float64          `json:"default_payout_value"`
	VariantCount       int64            `json:"variant_count"`
	Variants           []ProductVariant `json:"variants,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
}

type ProductVariant struct {
	ID           int64   `json:"id"`
	ProductID    int64   `json:"product_id"`
	Name         string  `json:"name"`
	Price        float64 `json:"price"`
	Duration     int     `json:"duration"`
	PayoutAmount float64 `json:"payout_amount"`
}

type Job struct {
	ID                int64     `json:"id"`
	CustomerID        int64     `json:"customer_id"`
	Address           string    `json:"address"`
	Date              string    `json:"date"`
	Time              string    `json:"time"`
	Status            string    `json:"status"`
	AssignedCreatorID *int64    `json:"assigned_creator_id"`
	AssignedEditorID  *int64    `json:"assigned_editor_id"`
	Notes             string    `json:"notes"`
	CreatedByUserID   int64     `json:"created_by_user_id"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// JobSummary is a job row joined with display names.
type JobSummary struct {
	Job
	AgencyName  string `json:"agency_name"`
	ContactName string `json:"contact_name"`
	CreatorName string `json:"creator_name"`
	EditorName  string `json:"editor_name"`
}

type JobDetail struct {
	JobSummary
	CustomerEmail string       `json:"customer_email"`
	CreatedByName string       `json:"created_by_name"`
	Products      []JobProduct `json:"products"`
	Uploads       []Upload     `json:"uploads"`
}

// JobProduct is a priced line item snapshot taken when the job is booked.
type JobProduct struct {
	ID           int64   `json:"id"`
	JobID        int64   `json:"job_id"`
	ProductID    int64   `json:"product_id"`
	VariantID    *int64  `json:"variant_id"`
	PayoutAmount float64 `json:"payout_amount"`
	Price        float64 `json:"price"`
	Duration     int     `json:"duration"`
	Title        string  `json:"title,omitempty"`
	VariantName  string  `json:"variant_name,omitempty"`
}

type Upload struct {
	ID               int64     `json:"id"`
	JobID            int64     `json:"job_id"`
	UploadedByUserID int64     `json:"uploaded_by_user_id"`
	FileType         FileType  `json:"file_type"`
	FileURL          string    `json:"file_url"`
	FileName         string    `json:"file_name"`
	FileSize         int64     `json:"file_size"`
	ContentType      string    `json:"content_type"`
	IsFinal          bool      `json:"is_final"`
	UploadedByName   string    `json:"uploaded_by_name,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

type Notification struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	JobID      *int64    `json:"job_id"`
	Message    string    `json:"message"`
	Type       string    `json:"type"`
	IsRead     bool      `json:"is_read"`
	JobAddress string    `json:"job_address,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type Invoice struct {
	ID                    int64         `json:"id"`
	JobID                 int64         `json:"job_id"`
	CustomerID            int64         `json:"customer_id"`
	TotalAmount           float64       `json:"total_amount"`
	Status                InvoiceStatus `json:"status"`
	XeroInvoiceID         string        `json:"xero_invoice_id,omitempty"`
	StripePaymentIntentID string        `json:"stripe_payment_intent_id,omitempty"`
	StripePaymentStatus   string        `json:"stripe_payment_status,omitempty"`
	LineItems             []InvoiceLine `json:"line_items,omitempty"`
	CreatedAt             time.Time     `json:"created_at"`
	UpdatedAt             time.Time     `json:"updated_at"`
}

// InvoiceLine is the copy of a job line item an invoice total was summed from.
type InvoiceLine struct {
	ProductID    int64   `json:"product_id"`
	VariantID    *int64  `json:"variant_id,omitempty"`
	Price        float64 `json:"price"`
	PayoutAmount float64 `json:"payout_amount"`
	Duration     int     `json:"duration"`
}

type InvoiceSummary struct {
	Invoice
	Address    string `json:"address"`
	JobDate    string `json:"job_date"`
	AgencyName string `json:"agency_name"`
}

type PaymentStatus struct {
	Status        string `json:"status"`
	PaymentIntent string `json:"payment_intent"`
}

type DashboardStats struct {
	ActiveJobs     int64 `json:"active_jobs"`
	TotalCustomers int64 `json:"total_customers"`
	PendingUploads int64 `json:"pending_uploads"`
	UnpaidInvoices int64 `json:"unpaid_invoices"`
}

type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
}

func NewPagination(page, limit int, total int64) Pagination {
	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Pagination{Page: page, Limit: limit, Total: total, Pages: pages}
}

// Page is a normalized page/limit pair.
type Page struct {
	Page  int
	Limit int
}

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
	// MaxOffset bounds (page-1)*limit; pages past it are simply empty.
	MaxOffset = math.MaxInt32
)

// NormalizePage clamps page to 1..MaxOffset/limit+1 and limit to
// 1..MaxPageLimit.
func NormalizePage(page, limit int) Page {
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	if page < 1 {
		page = 1
	}
	if maxPage := MaxOffset/limit + 1; page > maxPage {
		page = maxPage
	}
	return Page{Page: page, Limit: limit}
}

func (p Page) Offset() int {
	return (p.Page - 1) * p.Limit
}

type JobFilter struct {
	Status     string
	DateFrom   string
	DateTo     string
	CustomerID int64
	// Scope restrictions derived from the acting user's role.
	CreatorID int64
	EditorID  int64
	Page
}

type CustomerFilter struct {
	Search string
	Page
}

type InvoiceFilter struct {
	Status     string
	CustomerID int64
	Page
}

// OptionalID distinguishes an absent JSON key from an explicit null.
// Numeric strings are accepted as well as numbers.
type OptionalID struct {
	Set   bool
	Value *int64
}

func (o *OptionalID) UnmarshalJSON(data []byte) error {
	o.Set = true
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		o.Value = nil
		return nil
	}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var id int64
	switch v := raw.(type) {
	case float64:
		if v != float64(int64(v)) {
			return fmt.Errorf("id must be an integer")
		}
		id = int64(v)
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			o.Value = nil
			return nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("id must be an integer")
		}
		id = n
	default:
		return fmt.Errorf("id must be an integer")
	}
	o.Value = &id
	return nil
}

func (o OptionalID) MarshalJSON() ([]byte, error) {
	if o.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*o.Value)
}

// SomeID is a convenience for building patches in code.
func SomeID(id int64) OptionalID {
	return OptionalID{Set: true, Value: &id}
}

// JobPatch lists the only job fields a PATCH may change.
type JobPatch struct {
	Address           *string    `json:"address"`
	Date              *string    `json:"date"`
	Time              *string    `json:"time"`
	Status            *string    `json:"status"`
	AssignedCreatorID OptionalID `json:"assigned_creator_id"`
	AssignedEditorID  OptionalID `json:"assigned_editor_id"`
	Notes             *string    `json:"notes"`
}

func (p JobPatch) Empty() bool {
	return p.Address == nil && p.Date == nil && p.Time == nil && p.Status == nil &&
		!p.AssignedCreatorID.Set && !p.AssignedEditorID.Set && p.Notes == nil
}

// CustomerPatch lists the only customer fields a PATCH may change.
type CustomerPatch struct {
	AgencyName       *string    `json:"agency_name"`
	ContactName      *string    `json:"contact_name"`
	Email            *string    `json:"email"`
	Phone            *string    `json:"phone"`
	BillingAddress   *string    `json:"billing_address"`
	TeamLeaderUserID OptionalID `json:"team_leader_user_id"`
}

func (p CustomerPatch) Empty() bool {
	return p.AgencyName == nil && p.ContactName == nil && p.Email == nil &&
		p.Phone == nil && p.BillingAddress == nil && !p.TeamLeaderUserID.Set
}
