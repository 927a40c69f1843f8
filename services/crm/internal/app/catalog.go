package app

import (
	"context"
	"errors"
	"strings"

	"patorama/pkg/authz"
	"patorama/pkg/domain"
	"patorama/pkg/store"
)

// ProductInput carries the fields accepted when creating a product.
type ProductInput struct {
	Title              string            `json:"title"`
	Description        string            `json:"description"`
	BasePrice          float64           `json:"base_price"`
	DefaultPayoutType  domain.PayoutType `json:"default_payout_type"`
	DefaultPayoutValue float64           `json:"default_payout_value"`
}

// VariantInput carries the fields accepted when adding a product variant.
type VariantInput struct {
	Name         string  `json:"name"`
	Price        float64 `json:"price"`
	Duration     int     `json:"duration"`
	PayoutAmount float64 `json:"payout_amount"`
}

func (a *App) ListProducts(ctx context.Context) ([]domain.Product, error) {
	products, err := a.store.ListProducts(ctx)
	if err != nil {
		return nil, internal("Failed to fetch products", err)
	}
	if products == nil {
		products = []domain.Product{}
	}
	return products, nil
}

func (a *App) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	p, ok, err := a.store.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, internal("Failed to fetch product", err)
	}
	if !ok {
		return domain.Product{}, notFound("Product not found")
	}
	if p.Variants == nil {
		p.Variants = []domain.ProductVariant{}
	}
	return p, nil
}

func (a *App) CreateProduct(ctx context.Context, actor domain.User, in ProductInput) (domain.Product, error) {
	if err := a.authorize(actor, authz.WriteProducts); err != nil {
		return domain.Product{}, err
	}
	p := domain.Product{
		Title:              strings.TrimSpace(in.Title),
		Description:        strings.TrimSpace(in.Description),
		BasePrice:          in.BasePrice,
		DefaultPayoutType:  in.DefaultPayoutType,
		DefaultPayoutValue: in.DefaultPayoutValue,
	}
	if p.DefaultPayoutType == "" {
		p.DefaultPayoutType = domain.PayoutFixed
	}
	switch {
	case p.Title == "":
		return domain.Product{}, validationError("Title is required")
	case p.BasePrice < 0:
		return domain.Product{}, validationError("Base price cannot be negative")
	case !p.DefaultPayoutType.Valid():
		return domain.Product{}, validationError("Payout type must be fixed or percentage")
	case p.DefaultPayoutValue < 0:
		return domain.Product{}, validationError("Payout value cannot be negative")
	}
	created, err := a.store.CreateProduct(ctx, p)
	if err != nil {
		return domain.Product{}, internal("Failed to create product", err)
	}
	return created, nil
}

func (a *App) AddVariant(ctx context.Context, actor domain.User, productID int64, in VariantInput) (domain.ProductVariant, error) {
	if err := a.authorize(actor, authz.WriteProducts); err != nil {
		return domain.ProductVariant{}, err
	}
	v := domain.ProductVariant{
		ProductID:    productID,
		Name:         strings.TrimSpace(in.Name),
		Price:        in.Price,
		Duration:     in.Duration,
		PayoutAmount: in.PayoutAmount,
	}
	switch {
	case v.Name == "":
		return domain.ProductVariant{}, validationError("Variant name is required")
	case v.Price < 0, v.PayoutAmount < 0, v.Duration < 0:
		return domain.ProductVariant{}, validationError("Price, payout and duration cannot be negative")
	}
	created, err := a.store.CreateVariant(ctx, v)
	if err != nil {
		if errors.Is(err, store.ErrProductNotFound) {
			return domain.ProductVariant{}, notFound("Product not found")
		}
		return domain.ProductVariant{}, internal("Failed to create variant", err)
	}
	return created, nil
}
