package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"patorama/pkg/domain"
)

type customerRow struct {
	CustomerModel
	TeamLeaderName string
}

func (r customerRow) toDomain() domain.Customer {
	c := customerFromModel(r.CustomerModel)
	c.TeamLeaderName = r.TeamLeaderName
	return c
}

const customerColumns = "c.*, COALESCE(u.name, '') AS team_leader_name"

// CreateCustomer inserts a customer record.
func (s *GormStore) CreateCustomer(ctx context.Context, c domain.Customer) (domain.Customer, error) {
	model := customerToModel(c)
	model.Email = normalizeEmail(model.Email)
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.Customer{}, err
	}
	return customerFromModel(model), nil
}

// GetCustomer returns a customer with its team leader name.
func (s *GormStore) GetCustomer(ctx context.Context, id int64) (domain.Customer, bool, error) {
	var rows []customerRow
	if err := s.customerQuery(ctx).
		Select(customerColumns).
		Where("c.id = ?", id).
		Limit(1).
		Scan(&rows).Error; err != nil {
		return domain.Customer{}, false, err
	}
	if len(rows) == 0 {
		return domain.Customer{}, false, nil
	}
	return rows[0].toDomain(), true, nil
}

// ListCustomers returns a page of customers, newest first, and the filtered total.
func (s *GormStore) ListCustomers(ctx context.Context, f domain.CustomerFilter) ([]domain.Customer, int64, error) {
	page := domain.NormalizePage(f.Page.Page, f.Page.Limit)
	filtered := func() *gorm.DB {
		q := s.customerQuery(ctx)
		if search := strings.TrimSpace(f.Search); search != "" {
			pattern := likePattern(search)
			q = q.Where(`(LOWER(c.agency_name) LIKE ? ESCAPE '\' OR LOWER(c.contact_name) LIKE ? ESCAPE '\' OR LOWER(c.email) LIKE ? ESCAPE '\')`,
				pattern, pattern, pattern)
		}
		return q
	}
	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []customerRow
	if err := filtered().
		Select(customerColumns).
		Order("c.created_at DESC").
		Order("c.id DESC").
		Limit(page.Limit).
		Offset(page.Offset()).
		Scan(&rows).Error; err != nil {
		return nil, 0, err
	}
	out := make([]domain.Customer, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, total, nil
}

func (s *GormStore) customerQuery(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Table("customers AS c").
		Joins("LEFT JOIN users u ON u.id = c.team_leader_user_id")
}

// UpdateCustomer applies the non-empty fields of patch.
func (s *GormStore) UpdateCustomer(ctx context.Context, id int64, patch domain.CustomerPatch) (bool, error) {
	updates := map[string]any{}
	if patch.AgencyName != nil {
		updates["agency_name"] = strings.TrimSpace(*patch.AgencyName)
	}
	if patch.ContactName != nil {
		updates["contact_name"] = strings.TrimSpace(*patch.ContactName)
	}
	if patch.Email != nil {
		updates["email"] = normalizeEmail(*patch.Email)
	}
	if patch.Phone != nil {
		updates["phone"] = strings.TrimSpace(*patch.Phone)
	}
	if patch.BillingAddress != nil {
		updates["billing_address"] = strings.TrimSpace(*patch.BillingAddress)
	}
	if patch.TeamLeaderUserID.Set {
		updates["team_leader_user_id"] = patch.TeamLeaderUserID.Value
	}
	if len(updates) == 0 {
		return false, errors.New("no fields to update")
	}
	updates["updated_at"] = time.Now().UTC()
	res := s.db.WithContext(ctx).Model(&CustomerModel{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// DeleteCustomer removes a customer that no job references.
func (s *GormStore) DeleteCustomer(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var jobs int64
		if err := tx.Model(&JobModel{}).Where("customer_id = ?", id).Count(&jobs).Error; err != nil {
			return err
		}
		if jobs > 0 {
			return ErrCustomerHasJobs
		}
		res := tx.Delete(&CustomerModel{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrCustomerNotFound
		}
		return nil
	})
}
