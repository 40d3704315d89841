// Package receipt delivers receipts for paid invoices.
package receipt

import (
	"context"
	"time"

	"github.com/flowbill/backend/internal/domain/billing"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LoggingReceiptGenerator records receipt generation without an
// outbound mail integration. It resolves the invoice so delivery
// failures surface in logs with the invoice number rather than a bare
// id.
type LoggingReceiptGenerator struct {
	txManager billing.TransactionManager
	logger    *zap.Logger
}

// NewLoggingReceiptGenerator creates a new LoggingReceiptGenerator
func NewLoggingReceiptGenerator(txManager billing.TransactionManager, logger *zap.Logger) *LoggingReceiptGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoggingReceiptGenerator{txManager: txManager, logger: logger}
}

var _ billing.ReceiptGenerator = (*LoggingReceiptGenerator)(nil)

// GenerateReceipt resolves the invoice and logs the receipt. Invoked
// fire-and-forget, so it bounds its own deadline instead of inheriting
// the request context.
func (g *LoggingReceiptGenerator) GenerateReceipt(ctx context.Context, invoiceID uuid.UUID) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var invoice *billing.Invoice
	err := g.txManager.Do(ctx, func(ctx context.Context, repos *billing.Repositories) error {
		found, err := repos.Invoices.FindByID(ctx, invoiceID)
		if err != nil {
			return err
		}
		invoice = found
		return nil
	})
	if err != nil {
		g.logger.Warn("Receipt generation skipped, invoice lookup failed",
			zap.String("invoice_id", invoiceID.String()),
			zap.Error(err),
		)
		return
	}

	g.logger.Info("Receipt generated",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("customer_id", invoice.CustomerID.String()),
		zap.Bool("livemode", invoice.Livemode),
	)
}
