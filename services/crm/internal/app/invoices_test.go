package app

import (
	"context"
	"strings"
	"testing"

	"patorama/pkg/domain"
)

func TestInvoiceLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	job := env.job(t, nil, nil)

	_, err := env.app.CreateInvoice(ctx, env.creator, job.ID)
	wantKind(t, err, ErrForbidden, "")
	_, err = env.app.CreateInvoice(ctx, env.manager, 9999)
	wantKind(t, err, ErrNotFound, "Job not found")

	inv, err := env.app.CreateInvoice(ctx, env.manager, job.ID)
	if err != nil {
		t.Fatalf("create invoice: %v", err)
	}
	if inv.TotalAmount != 250 || inv.Status != domain.InvoiceDraft {
		t.Fatalf("unexpected invoice: %+v", inv)
	}

	_, err = env.app.CreateInvoice(ctx, env.manager, job.ID)
	wantKind(t, err, ErrConflict, "Invoice already exists for this job")

	page, err := env.app.ListInvoices(ctx, env.manager, InvoiceQuery{})
	if err != nil {
		t.Fatalf("list invoices: %v", err)
	}
	if len(page.Invoices) != 1 || page.Invoices[0].ID != inv.ID || page.Invoices[0].TotalAmount != 250 {
		t.Fatalf("original invoice changed: %+v", page.Invoices)
	}

	status, err := env.app.PaymentStatus(ctx, inv.ID)
	if err != nil {
		t.Fatalf("payment status: %v", err)
	}
	if status.Status != "pending" || status.PaymentIntent != "" {
		t.Fatalf("unexpected payment status: %+v", status)
	}

	externalID, err := env.app.SyncInvoice(ctx, env.admin, inv.ID)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if !strings.HasPrefix(externalID, "XERO-") {
		t.Fatalf("external id = %q", externalID)
	}
	_, err = env.app.SyncInvoice(ctx, env.admin, 9999)
	wantKind(t, err, ErrNotFound, "Invoice not found")
	_, err = env.app.PaymentStatus(ctx, 9999)
	wantKind(t, err, ErrNotFound, "Invoice not found")
}
