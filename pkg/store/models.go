package store

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"patorama/pkg/domain"
)

// GORM models used for persistence.
type UserModel struct {
	ID           int64     `gorm:"primaryKey;autoIncrement"`
	Name         string    `gorm:"size:255;not null"`
	Email        string    `gorm:"size:255;uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	Role         string    `gorm:"size:32;not null;index"`
	Status       string    `gorm:"size:16;not null;default:active"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time
}

func (UserModel) TableName() string { return "users" }

type CustomerModel struct {
	ID               int64  `gorm:"primaryKey;autoIncrement"`
	AgencyName       string `gorm:"size:255;not null"`
	ContactName      string `gorm:"size:255;not null"`
	Email            string `gorm:"size:255;not null"`
	Phone            string `gorm:"size:64"`
	BillingAddress   string `gorm:"type:text"`
	TeamLeaderUserID *int64
	CreatedAt        time.Time `gorm:"not null;index"`
	UpdatedAt        time.Time
}

func (CustomerModel) TableName() string { return "customers" }

type ProductModel struct {
	ID                 int64   `gorm:"primaryKey;autoIncrement"`
	Title              string  `gorm:"size:255;not null;index"`
	Description        string  `gorm:"type:text"`
	BasePrice          float64 `gorm:"type:numeric(12,2);not null"`
	DefaultPayoutType  string  `gorm:"size:16;not null"`
	DefaultPayoutValue float64 `gorm:"type:numeric(12,2);not null"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (ProductModel) TableName() string { return "products" }

type ProductVariantModel struct {
	ID           int64   `gorm:"primaryKey;autoIncrement"`
	ProductID    int64   `gorm:"not null;index"`
	Name         string  `gorm:"size:255;not null"`
	Price        float64 `gorm:"type:numeric(12,2);not null"`
	Duration     int
	PayoutAmount float64 `gorm:"type:numeric(12,2);not null"`
	CreatedAt    time.Time
}

func (ProductVariantModel) TableName() string { return "product_variants" }

type JobModel struct {
	ID                int64  `gorm:"primaryKey;autoIncrement"`
	CustomerID        int64  `gorm:"not null;index"`
	Address           string `gorm:"type:text;not null"`
	Date              string `gorm:"size:10;not null;index"`
	Time              string `gorm:"size:5;not null"`
	Status            string `gorm:"size:32;not null;index"`
	AssignedCreatorID *int64 `gorm:"index"`
	AssignedEditorID  *int64 `gorm:"index"`
	Notes             string `gorm:"type:text"`
	CreatedByUserID   int64  `gorm:"not null"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (JobModel) TableName() string { return "jobs" }

type JobProductModel struct {
	ID           int64   `gorm:"primaryKey;autoIncrement"`
	JobID        int64   `gorm:"not null;index"`
	ProductID    int64   `gorm:"not null"`
	VariantID    *int64
	PayoutAmount float64 `gorm:"type:numeric(12,2);not null"`
	Price        float64 `gorm:"type:numeric(12,2);not null"`
	Duration     int
}

func (JobProductModel) TableName() string { return "job_products" }

type UploadModel struct {
	ID               int64  `gorm:"primaryKey;autoIncrement"`
	JobID            int64  `gorm:"not null;index"`
	UploadedByUserID int64  `gorm:"not null;index"`
	FileType         string `gorm:"size:16;not null"`
	FileURL          string `gorm:"size:1024;not null"`
	FileName         string `gorm:"size:255;not null"`
	FileSize         int64  `gorm:"not null"`
	ContentType      string `gorm:"size:128"`
	IsFinal          bool   `gorm:"not null;default:false;index"`
	CreatedAt        time.Time
}

func (UploadModel) TableName() string { return "uploads" }

type NotificationModel struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	UserID    int64  `gorm:"not null;index"`
	JobID     *int64 `gorm:"index"`
	Message   string `gorm:"type:text;not null"`
	Type      string `gorm:"size:32;not null"`
	IsRead    bool   `gorm:"not null;default:false"`
	CreatedAt time.Time
}

func (NotificationModel) TableName() string { return "notifications" }

type InvoiceModel struct {
	ID                    int64   `gorm:"primaryKey;autoIncrement"`
	JobID                 int64   `gorm:"uniqueIndex;not null"`
	CustomerID            int64   `gorm:"not null;index"`
	TotalAmount           float64 `gorm:"type:numeric(12,2);not null"`
	Status                string  `gorm:"size:32;not null;index"`
	XeroInvoiceID         string  `gorm:"size:128"`
	StripePaymentIntentID string  `gorm:"size:128"`
	StripePaymentStatus   string  `gorm:"size:64"`
	LineItems             datatypes.JSON
	CreatedAt             time.Time `gorm:"index"`
	UpdatedAt             time.Time
}

func (InvoiceModel) TableName() string { return "invoices" }

func allModels() []any {
	return []any{
		&UserModel{},
		&CustomerModel{},
		&ProductModel{},
		&ProductVariantModel{},
		&JobModel{},
		&JobProductModel{},
		&UploadModel{},
		&NotificationModel{},
		&InvoiceModel{},
	}
}

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		Status:       string(u.Status),
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		ID:           m.ID,
		Name:         m.Name,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		Role:         domain.UserRole(m.Role),
		Status:       domain.UserStatus(m.Status),
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func customerToModel(c domain.Customer) CustomerModel {
	return CustomerModel{
		ID:               c.ID,
		AgencyName:       c.AgencyName,
		ContactName:      c.ContactName,
		Email:            c.Email,
		Phone:            c.Phone,
		BillingAddress:   c.BillingAddress,
		TeamLeaderUserID: c.TeamLeaderUserID,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
}

func customerFromModel(m CustomerModel) domain.Customer {
	return domain.Customer{
		ID:               m.ID,
		AgencyName:       m.AgencyName,
		ContactName:      m.ContactName,
		Email:            m.Email,
		Phone:            m.Phone,
		BillingAddress:   m.BillingAddress,
		TeamLeaderUserID: m.TeamLeaderUserID,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

func productFromModel(m ProductModel) domain.Product {
	return domain.Product{
		ID:                 m.ID,
		Title:              m.Title,
		Description:        m.Description,
		BasePrice:          m.BasePrice,
		DefaultPayoutType:  domain.PayoutType(m.DefaultPayoutType),
		DefaultPayoutValue: m.DefaultPayoutValue,
		CreatedAt:          m.CreatedAt,
	}
}

func variantFromModel(m ProductVariantModel) domain.ProductVariant {
	return domain.ProductVariant{
		ID:           m.ID,
		ProductID:    m.ProductID,
		Name:         m.Name,
		Price:        m.Price,
		Duration:     m.Duration,
		PayoutAmount: m.PayoutAmount,
	}
}

func jobToModel(j domain.Job) JobModel {
	return JobModel{
		ID:                j.ID,
		CustomerID:        j.CustomerID,
		Address:           j.Address,
		Date:              j.Date,
		Time:              j.Time,
		Status:            j.Status,
		AssignedCreatorID: j.AssignedCreatorID,
		AssignedEditorID:  j.AssignedEditorID,
		Notes:             j.Notes,
		CreatedByUserID:   j.CreatedByUserID,
		CreatedAt:         j.CreatedAt,
		UpdatedAt:         j.UpdatedAt,
	}
}

func jobFromModel(m JobModel) domain.Job {
	return domain.Job{
		ID:                m.ID,
		CustomerID:        m.CustomerID,
		Address:           m.Address,
		Date:              m.Date,
		Time:              m.Time,
		Status:            m.Status,
		AssignedCreatorID: m.AssignedCreatorID,
		AssignedEditorID:  m.AssignedEditorID,
		Notes:             m.Notes,
		CreatedByUserID:   m.CreatedByUserID,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

func jobProductToModel(jobID int64, p domain.JobProduct) JobProductModel {
	return JobProductModel{
		JobID:        jobID,
		ProductID:    p.ProductID,
		VariantID:    p.VariantID,
		PayoutAmount: p.PayoutAmount,
		Price:        p.Price,
		Duration:     p.Duration,
	}
}

func uploadToModel(u domain.Upload) UploadModel {
	return UploadModel{
		ID:               u.ID,
		JobID:            u.JobID,
		UploadedByUserID: u.UploadedByUserID,
		FileType:         string(u.FileType),
		FileURL:          u.FileURL,
		FileName:         u.FileName,
		FileSize:         u.FileSize,
		ContentType:      u.ContentType,
		IsFinal:          u.IsFinal,
		CreatedAt:        u.CreatedAt,
	}
}

func uploadFromModel(m UploadModel) domain.Upload {
	return domain.Upload{
		ID:               m.ID,
		JobID:            m.JobID,
		UploadedByUserID: m.UploadedByUserID,
		FileType:         domain.FileType(m.FileType),
		FileURL:          m.FileURL,
		FileName:         m.FileName,
		FileSize:         m.FileSize,
		ContentType:      m.ContentType,
		IsFinal:          m.IsFinal,
		CreatedAt:        m.CreatedAt,
	}
}

func notificationToModel(n domain.Notification) NotificationModel {
	return NotificationModel{
		ID:        n.ID,
		UserID:    n.UserID,
		JobID:     n.JobID,
		Message:   n.Message,
		Type:      n.Type,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
	}
}

func notificationFromModel(m NotificationModel) domain.Notification {
	return domain.Notification{
		ID:        m.ID,
		UserID:    m.UserID,
		JobID:     m.JobID,
		Message:   m.Message,
		Type:      m.Type,
		IsRead:    m.IsRead,
		CreatedAt: m.CreatedAt,
	}
}

func invoiceFromModel(m InvoiceModel) domain.Invoice {
	inv := domain.Invoice{
		ID:                    m.ID,
		JobID:                 m.JobID,
		CustomerID:            m.CustomerID,
		TotalAmount:           m.TotalAmount,
		Status:                domain.InvoiceStatus(m.Status),
		XeroInvoiceID:         m.XeroInvoiceID,
		StripePaymentIntentID: m.StripePaymentIntentID,
		StripePaymentStatus:   m.StripePaymentStatus,
		CreatedAt:             m.CreatedAt,
		UpdatedAt:             m.UpdatedAt,
	}
	if len(m.LineItems) > 0 {
		_ = json.Unmarshal(m.LineItems, &inv.LineItems)
	}
	return inv
}
