package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"patorama/pkg/domain"
)

type jobRow struct {
	JobModel
	AgencyName    string
	ContactName   string
	CustomerEmail string
	CreatorName   string
	EditorName    string
	CreatedByName string
}

func (r jobRow) summary() domain.JobSummary {
	return domain.JobSummary{
		Job:         jobFromModel(r.JobModel),
		AgencyName:  r.AgencyName,
		ContactName: r.ContactName,
		CreatorName: r.CreatorName,
		EditorName:  r.EditorName,
	}
}

const jobColumns = `j.*,
	COALESCE(c.agency_name, '') AS agency_name,
	COALESCE(c.contact_name, '') AS contact_name,
	COALESCE(c.email, '') AS customer_email,
	COALESCE(u1.name, '') AS creator_name,
	COALESCE(u2.name, '') AS editor_name,
	COALESCE(u3.name, '') AS created_by_name`

func (s *GormStore) jobQuery(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Table("jobs AS j")
}

func withJobJoins(q *gorm.DB) *gorm.DB {
	return q.Select(jobColumns).
		Joins("LEFT JOIN customers c ON c.id = j.customer_id").
		Joins("LEFT JOIN users u1 ON u1.id = j.assigned_creator_id").
		Joins("LEFT JOIN users u2 ON u2.id = j.assigned_editor_id").
		Joins("LEFT JOIN users u3 ON u3.id = j.created_by_user_id")
}

// CreateJob inserts the job, its line items and the optional assignment
// notification in one transaction. Nothing is written unless all succeed.
func (s *GormStore) CreateJob(ctx context.Context, job domain.Job, lines []domain.JobProduct, notify *domain.Notification) (domain.Job, error) {
	model := jobToModel(job)
	model.ID = 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var customers int64
		if err := tx.Model(&CustomerModel{}).Where("id = ?", model.CustomerID).Count(&customers).Error; err != nil {
			return err
		}
		if customers == 0 {
			return ErrCustomerNotFound
		}
		if err := tx.Create(&model).Error; err != nil {
			return fmt.Errorf("insert job: %w", err)
		}
		rows := make([]JobProductModel, 0, len(lines))
		for i, line := range lines {
			if err := checkLineItem(tx, line); err != nil {
				return fmt.Errorf("line item %d: %w", i+1, err)
			}
			rows = append(rows, jobProductToModel(model.ID, line))
		}
		if len(rows) > 0 {
			if err := tx.Create(&rows).Error; err != nil {
				return fmt.Errorf("insert line items: %w", err)
			}
		}
		if notify != nil {
			n := notificationToModel(*notify)
			n.ID = 0
			n.JobID = &model.ID
			if err := tx.Create(&n).Error; err != nil {
				return fmt.Errorf("insert notification: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return domain.Job{}, err
	}
	return jobFromModel(model), nil
}

func checkLineItem(tx *gorm.DB, line domain.JobProduct) error {
	var count int64
	if err := tx.Model(&ProductModel{}).Where("id = ?", line.ProductID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrProductNotFound
	}
	if line.VariantID == nil {
		return nil
	}
	if err := tx.Model(&ProductVariantModel{}).
		Where("id = ? AND product_id = ?", *line.VariantID, line.ProductID).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrVariantNotFound
	}
	return nil
}

// ListJobs returns one page of jobs matching f, newest date and time first,
// together with the total number of matching jobs.
func (s *GormStore) ListJobs(ctx context.Context, f domain.JobFilter) ([]domain.JobSummary, int64, error) {
	page := domain.NormalizePage(f.Page.Page, f.Page.Limit)
	filtered := func() *gorm.DB {
		q := s.jobQuery(ctx)
		if f.CreatorID > 0 {
			q = q.Where("j.assigned_creator_id = ?", f.CreatorID)
		}
		if f.EditorID > 0 {
			q = q.Where("j.assigned_editor_id = ?", f.EditorID)
		}
		if status := strings.TrimSpace(f.Status); status != "" {
			q = q.Where("j.status = ?", status)
		}
		if from := strings.TrimSpace(f.DateFrom); from != "" {
			q = q.Where("j.date >= ?", from)
		}
		if to := strings.TrimSpace(f.DateTo); to != "" {
			q = q.Where("j.date <= ?", to)
		}
		if f.CustomerID > 0 {
			q = q.Where("j.customer_id = ?", f.CustomerID)
		}
		return q
	}
	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []jobRow
	if err := withJobJoins(filtered()).
		Order("j.date DESC").
		Order("j.time DESC").
		Order("j.id DESC").
		Limit(page.Limit).
		Offset(page.Offset()).
		Scan(&rows).Error; err != nil {
		return nil, 0, err
	}
	out := make([]domain.JobSummary, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.summary())
	}
	return out, total, nil
}

// ListRecentJobsByCustomer returns the latest jobs booked for a customer.
func (s *GormStore) ListRecentJobsByCustomer(ctx context.Context, customerID int64, limit int) ([]domain.JobSummary, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows []jobRow
	if err := withJobJoins(s.jobQuery(ctx)).
		Where("j.customer_id = ?", customerID).
		Order("j.date DESC").
		Order("j.time DESC").
		Order("j.id DESC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.JobSummary, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.summary())
	}
	return out, nil
}

// GetJob returns a job with its display names. Line items and uploads are
// loaded separately.
func (s *GormStore) GetJob(ctx context.Context, id int64) (domain.JobDetail, bool, error) {
	var rows []jobRow
	if err := withJobJoins(s.jobQuery(ctx)).Where("j.id = ?", id).Limit(1).Scan(&rows).Error; err != nil {
		return domain.JobDetail{}, false, err
	}
	if len(rows) == 0 {
		return domain.JobDetail{}, false, nil
	}
	r := rows[0]
	return domain.JobDetail{
		JobSummary:    r.summary(),
		CustomerEmail: r.CustomerEmail,
		CreatedByName: r.CreatedByName,
	}, true, nil
}

type jobProductRow struct {
	JobProductModel
	Title       string
	VariantName string
}

// ListJobProducts returns a job's line items with product and variant names.
func (s *GormStore) ListJobProducts(ctx context.Context, jobID int64) ([]domain.JobProduct, error) {
	var rows []jobProductRow
	if err := s.db.WithContext(ctx).
		Table("job_products AS jp").
		Select("jp.*, COALESCE(p.title, '') AS title, COALESCE(pv.name, '') AS variant_name").
		Joins("LEFT JOIN products p ON p.id = jp.product_id").
		Joins("LEFT JOIN product_variants pv ON pv.id = jp.variant_id").
		Where("jp.job_id = ?", jobID).
		Order("jp.id ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.JobProduct, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.JobProduct{
			ID:           r.ID,
			JobID:        r.JobID,
			ProductID:    r.ProductID,
			VariantID:    r.VariantID,
			PayoutAmount: r.PayoutAmount,
			Price:        r.Price,
			Duration:     r.Duration,
			Title:        r.Title,
			VariantName:  r.VariantName,
		})
	}
	return out, nil
}

// UpdateJob applies patch and returns the job as it was before and after.
func (s *GormStore) UpdateJob(ctx context.Context, id int64, patch domain.JobPatch) (domain.Job, domain.Job, bool, error) {
	updates := jobUpdates(patch)
	if len(updates) == 0 {
		return domain.Job{}, domain.Job{}, false, errors.New("no fields to update")
	}
	updates["updated_at"] = time.Now().UTC()
	var before, after JobModel
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&before, "id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Model(&JobModel{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&after, "id = ?", id).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Job{}, domain.Job{}, false, nil
		}
		return domain.Job{}, domain.Job{}, false, err
	}
	return jobFromModel(before), jobFromModel(after), true, nil
}

func jobUpdates(patch domain.JobPatch) map[string]any {
	updates := map[string]any{}
	if patch.Address != nil {
		updates["address"] = strings.TrimSpace(*patch.Address)
	}
	if patch.Date != nil {
		updates["date"] = strings.TrimSpace(*patch.Date)
	}
	if patch.Time != nil {
		updates["time"] = strings.TrimSpace(*patch.Time)
	}
	if patch.Status != nil {
		updates["status"] = strings.TrimSpace(*patch.Status)
	}
	if patch.AssignedCreatorID.Set {
		updates["assigned_creator_id"] = patch.AssignedCreatorID.Value
	}
	if patch.AssignedEditorID.Set {
		updates["assigned_editor_id"] = patch.AssignedEditorID.Value
	}
	if patch.Notes != nil {
		updates["notes"] = *patch.Notes
	}
	return updates
}

// DeleteJob removes a job with its line items and upload records, detaches
// its notifications, and returns the removed uploads so their stored objects
// can be cleaned up. Jobs with an invoice are kept.
func (s *GormStore) DeleteJob(ctx context.Context, id int64) ([]domain.Upload, error) {
	var uploads []UploadModel
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var job JobModel
		if err := tx.Select("id").First(&job, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrJobNotFound
			}
			return err
		}
		var invoices int64
		if err := tx.Model(&InvoiceModel{}).Where("job_id = ?", id).Count(&invoices).Error; err != nil {
			return err
		}
		if invoices > 0 {
			return ErrJobHasInvoice
		}
		if err := tx.Where("job_id = ?", id).Find(&uploads).Error; err != nil {
			return err
		}
		if err := tx.Delete(&JobProductModel{}, "job_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&UploadModel{}, "job_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Model(&NotificationModel{}).Where("job_id = ?", id).Update("job_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&JobModel{}, "id = ?", id).Error
	})
	if err != nil {
		return nil, err
	}
	out := make([]domain.Upload, 0, len(uploads))
	for _, u := range uploads {
		out = append(out, uploadFromModel(u))
	}
	return out, nil
}
