package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"patorama/pkg/domain"
)

func TestCreateInvoiceSumsLinesOncePerJob(t *testing.T) {
	f := newJobFixture(t)
	ctx := context.Background()
	created, err := f.s.CreateJob(ctx, f.job("2024-06-01", "09:00"), []domain.JobProduct{
		{ProductID: f.product.ID, Price: 199.99, PayoutAmount: 80},
		{ProductID: f.product.ID, Price: 50.01, PayoutAmount: 20},
	}, nil)
	require.NoError(t, err)

	inv, err := f.s.CreateInvoice(ctx, created.ID)
	require.NoError(t, err)
	assert.InDelta(t, 250.0, inv.TotalAmount, 0.001)
	assert.Equal(t, domain.InvoiceDraft, inv.Status)
	assert.Equal(t, f.cust.ID, inv.CustomerID)
	require.Len(t, inv.LineItems, 2)

	_, err = f.s.CreateInvoice(ctx, created.ID)
	require.ErrorIs(t, err, ErrInvoiceExists)

	_, err = f.s.CreateInvoice(ctx, 9999)
	require.ErrorIs(t, err, ErrJobNotFound)
}

func TestInvoiceListAndSend(t *testing.T) {
	f := newJobFixture(t)
	ctx := context.Background()
	created, err := f.s.CreateJob(ctx, f.job("2024-06-01", "09:00"), []domain.JobProduct{{ProductID: f.product.ID, Price: 10}}, nil)
	require.NoError(t, err)
	inv, err := f.s.CreateInvoice(ctx, created.ID)
	require.NoError(t, err)

	ok, err := f.s.MarkInvoiceSent(ctx, inv.ID, "XERO-1")
	require.NoError(t, err)
	require.True(t, ok)

	got, found, err := f.s.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, domain.InvoiceSent, got.Status)
	assert.Equal(t, "XERO-1", got.XeroInvoiceID)

	list, total, err := f.s.ListInvoices(ctx, domain.InvoiceFilter{Status: string(domain.InvoiceSent)})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "12 Beach Rd", list[0].Address)
	assert.Equal(t, "acme", list[0].AgencyName)

	list, total, err = f.s.ListInvoices(ctx, domain.InvoiceFilter{Status: string(domain.InvoiceDraft)})
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.EqualValues(t, 0, total)

	ok, err = f.s.MarkInvoiceSent(ctx, 9999, "XERO-2")
	require.NoError(t, err)
	assert.False(t, ok)
}
