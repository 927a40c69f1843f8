package store

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"patorama/pkg/domain"
)

type productRow struct {
	ProductModel
	VariantCount int64
}

// ListProducts returns every product ordered by title with its variant count.
func (s *GormStore) ListProducts(ctx context.Context) ([]domain.Product, error) {
	var rows []productRow
	if err := s.db.WithContext(ctx).
		Table("products AS p").
		Select("p.*, COUNT(pv.id) AS variant_count").
		Joins("LEFT JOIN product_variants pv ON pv.product_id = p.id").
		Group("p.id").
		Order("p.title ASC").
		Order("p.id ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Product, 0, len(rows))
	for _, r := range rows {
		p := productFromModel(r.ProductModel)
		p.VariantCount = r.VariantCount
		out = append(out, p)
	}
	return out, nil
}

// GetProduct returns a product with its variants.
func (s *GormStore) GetProduct(ctx context.Context, id int64) (domain.Product, bool, error) {
	db := s.db.WithContext(ctx)
	var model ProductModel
	if err := db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Product{}, false, nil
		}
		return domain.Product{}, false, err
	}
	var variants []ProductVariantModel
	if err := db.Where("product_id = ?", id).Order("id ASC").Find(&variants).Error; err != nil {
		return domain.Product{}, false, err
	}
	p := productFromModel(model)
	p.Variants = make([]domain.ProductVariant, 0, len(variants))
	for _, v := range variants {
		p.Variants = append(p.Variants, variantFromModel(v))
	}
	p.VariantCount = int64(len(p.Variants))
	return p, true, nil
}

// CreateProduct inserts a catalog product.
func (s *GormStore) CreateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	model := ProductModel{
		Title:              p.Title,
		Description:        p.Description,
		BasePrice:          p.BasePrice,
		DefaultPayoutType:  string(p.DefaultPayoutType),
		DefaultPayoutValue: p.DefaultPayoutValue,
	}
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.Product{}, err
	}
	return productFromModel(model), nil
}

// CreateVariant adds a variant to an existing product.
func (s *GormStore) CreateVariant(ctx context.Context, v domain.ProductVariant) (domain.ProductVariant, error) {
	model := ProductVariantModel{
		ProductID:    v.ProductID,
		Name:         v.Name,
		Price:        v.Price,
		Duration:     v.Duration,
		PayoutAmount: v.PayoutAmount,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&ProductModel{}).Where("id = ?", v.ProductID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrProductNotFound
		}
		return tx.Create(&model).Error
	})
	if err != nil {
		return domain.ProductVariant{}, err
	}
	return variantFromModel(model), nil
}
