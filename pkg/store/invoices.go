package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"patorama/pkg/domain"
)

type invoiceRow struct {
	InvoiceModel
	Address    string
	JobDate    string
	AgencyName string
}

// CreateInvoice drafts the single invoice of a job from its current line items.
func (s *GormStore) CreateInvoice(ctx context.Context, jobID int64) (domain.Invoice, error) {
	var model InvoiceModel
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var job JobModel
		if err := tx.Select("id", "customer_id").First(&job, "id = ?", jobID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrJobNotFound
			}
			return err
		}
		var existing int64
		if err := tx.Model(&InvoiceModel{}).Where("job_id = ?", jobID).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrInvoiceExists
		}
		var lines []JobProductModel
		if err := tx.Where("job_id = ?", jobID).Order("id ASC").Find(&lines).Error; err != nil {
			return err
		}
		total := 0.0
		items := make([]domain.InvoiceLine, 0, len(lines))
		for _, l := range lines {
			total += l.Price
			items = append(items, domain.InvoiceLine{
				ProductID:    l.ProductID,
				VariantID:    l.VariantID,
				Price:        l.Price,
				PayoutAmount: l.PayoutAmount,
				Duration:     l.Duration,
			})
		}
		raw, err := json.Marshal(items)
		if err != nil {
			return fmt.Errorf("encode line items: %w", err)
		}
		model = InvoiceModel{
			JobID:       jobID,
			CustomerID:  job.CustomerID,
			TotalAmount: math.Round(total*100) / 100,
			Status:      string(domain.InvoiceDraft),
			LineItems:   datatypes.JSON(raw),
		}
		if err := tx.Create(&model).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrInvoiceExists
			}
			return err
		}
		return nil
	})
	if err != nil {
		return domain.Invoice{}, err
	}
	return invoiceFromModel(model), nil
}

// GetInvoice returns one invoice.
func (s *GormStore) GetInvoice(ctx context.Context, id int64) (domain.Invoice, bool, error) {
	var model InvoiceModel
	if err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Invoice{}, false, nil
		}
		return domain.Invoice{}, false, err
	}
	return invoiceFromModel(model), true, nil
}

// ListInvoices returns a page of invoices, newest first, with job and customer details.
func (s *GormStore) ListInvoices(ctx context.Context, f domain.InvoiceFilter) ([]domain.InvoiceSummary, int64, error) {
	page := domain.NormalizePage(f.Page.Page, f.Page.Limit)
	filtered := func() *gorm.DB {
		q := s.db.WithContext(ctx).Table("invoices AS i")
		if status := strings.TrimSpace(f.Status); status != "" {
			q = q.Where("i.status = ?", status)
		}
		if f.CustomerID > 0 {
			q = q.Where("i.customer_id = ?", f.CustomerID)
		}
		return q
	}
	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []invoiceRow
	if err := filtered().
		Select("i.*, COALESCE(j.address, '') AS address, COALESCE(j.date, '') AS job_date, COALESCE(c.agency_name, '') AS agency_name").
		Joins("LEFT JOIN jobs j ON j.id = i.job_id").
		Joins("LEFT JOIN customers c ON c.id = i.customer_id").
		Order("i.created_at DESC").
		Order("i.id DESC").
		Limit(page.Limit).
		Offset(page.Offset()).
		Scan(&rows).Error; err != nil {
		return nil, 0, err
	}
	out := make([]domain.InvoiceSummary, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.InvoiceSummary{
			Invoice:    invoiceFromModel(r.InvoiceModel),
			Address:    r.Address,
			JobDate:    r.JobDate,
			AgencyName: r.AgencyName,
		})
	}
	return out, total, nil
}

// MarkInvoiceSent records the accounting system id and moves the invoice to sent.
func (s *GormStore) MarkInvoiceSent(ctx context.Context, id int64, externalID string) (bool, error) {
	res := s.db.WithContext(ctx).Model(&InvoiceModel{}).Where("id = ?", id).Updates(map[string]any{
		"status":          string(domain.InvoiceSent),
		"xero_invoice_id": externalID,
		"updated_at":      time.Now().UTC(),
	})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
