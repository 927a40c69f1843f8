package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"patorama/pkg/authz"
	"patorama/pkg/domain"
	"patorama/pkg/events"
	"patorama/pkg/store"
)

const defaultPaymentStatus = "pending"

// InvoiceQuery holds the list filters accepted from the query string.
type InvoiceQuery struct {
	Status     string
	CustomerID int64
	Page       int
	Limit      int
}

// InvoicePage is one page of invoices.
type InvoicePage struct {
	Invoices   []domain.InvoiceSummary `json:"invoices"`
	Pagination domain.Pagination       `json:"pagination"`
}

// CreateInvoice drafts the single invoice of a job from its line items.
func (a *App) CreateInvoice(ctx context.Context, actor domain.User, jobID int64) (domain.Invoice, error) {
	if err := a.authorize(actor, authz.WriteInvoices); err != nil {
		return domain.Invoice{}, err
	}
	if jobID <= 0 {
		return domain.Invoice{}, validationError("Job ID is required")
	}
	inv, err := a.store.CreateInvoice(ctx, jobID)
	switch {
	case errors.Is(err, store.ErrJobNotFound):
		return domain.Invoice{}, notFound("Job not found")
	case errors.Is(err, store.ErrInvoiceExists):
		return domain.Invoice{}, conflict("Invoice already exists for this job", err)
	case err != nil:
		return domain.Invoice{}, internal("Failed to create invoice", err)
	}
	a.publish(ctx, events.Event{
		Type:     events.InvoiceCreated,
		EntityID: inv.ID,
		ActorID:  actor.ID,
		Data:     map[string]any{"job_id": jobID, "total_amount": inv.TotalAmount},
	})
	return inv, nil
}

// ListInvoices returns one page of invoices, newest first.
func (a *App) ListInvoices(ctx context.Context, actor domain.User, q InvoiceQuery) (InvoicePage, error) {
	if err := a.authorize(actor, authz.WriteInvoices); err != nil {
		return InvoicePage{}, err
	}
	p := domain.NormalizePage(q.Page, q.Limit)
	list, total, err := a.store.ListInvoices(ctx, domain.InvoiceFilter{Status: q.Status, CustomerID: q.CustomerID, Page: p})
	if err != nil {
		return InvoicePage{}, internal("Failed to fetch invoices", err)
	}
	if list == nil {
		list = []domain.InvoiceSummary{}
	}
	return InvoicePage{Invoices: list, Pagination: domain.NewPagination(p.Page, p.Limit, total)}, nil
}

// SyncInvoice marks the invoice as sent to the accounting system. The
// external id is a placeholder until a real accounting client exists.
func (a *App) SyncInvoice(ctx context.Context, actor domain.User, id int64) (string, error) {
	if err := a.authorize(actor, authz.WriteInvoices); err != nil {
		return "", err
	}
	externalID := fmt.Sprintf("XERO-%d", time.Now().UnixMilli())
	ok, err := a.store.MarkInvoiceSent(ctx, id, externalID)
	if err != nil {
		return "", internal("Failed to sync invoice", err)
	}
	if !ok {
		return "", notFound("Invoice not found")
	}
	a.publish(ctx, events.Event{
		Type:     events.InvoiceSent,
		EntityID: id,
		ActorID:  actor.ID,
		Data:     map[string]any{"xero_invoice_id": externalID},
	})
	return externalID, nil
}

// PaymentStatus reports the card payment state; "pending" until one is recorded.
func (a *App) PaymentStatus(ctx context.Context, id int64) (domain.PaymentStatus, error) {
	inv, ok, err := a.store.GetInvoice(ctx, id)
	if err != nil {
		return domain.PaymentStatus{}, internal("Failed to fetch payment status", err)
	}
	if !ok {
		return domain.PaymentStatus{}, notFound("Invoice not found")
	}
	status := inv.StripePaymentStatus
	if status == "" {
		status = defaultPaymentStatus
	}
	return domain.PaymentStatus{Status: status, PaymentIntent: inv.StripePaymentIntentID}, nil
}
