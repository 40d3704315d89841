package billing

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestInvoiceStatusIsTerminal(t *testing.T) {
	assert.True(t, InvoiceStatusPaid.IsTerminal())
	assert.True(t, InvoiceStatusVoid.IsTerminal())
	assert.False(t, InvoiceStatusDraft.IsTerminal())
	assert.False(t, InvoiceStatusOpen.IsTerminal())
	assert.False(t, InvoiceStatusAwaitingPaymentConfirmation.IsTerminal())
	assert.False(t, InvoiceStatusUncollectible.IsTerminal())
}

func TestInvoiceMarkPaid(t *testing.T) {
	invoice := NewInvoice(uuid.New(), uuid.New(), "INV-0001", "USD", true)
	assert.False(t, invoice.IsPaid())

	invoice.MarkPaid()
	assert.True(t, invoice.IsPaid())
	assert.Equal(t, InvoiceStatusPaid, invoice.Status)
}

func TestNewInvoiceLineItem(t *testing.T) {
	invoiceID := uuid.New()
	item := NewInvoiceLineItem(invoiceID, "Pro plan", 2, 4900, true)
	assert.Equal(t, invoiceID, item.InvoiceID)
	assert.Equal(t, int64(2), item.Quantity)
	assert.Equal(t, int64(4900), item.Price)
	assert.True(t, item.Livemode)
}
