package persistence

import (
	"context"

	"github.com/flowbill/backend/internal/domain/billing"
	"github.com/flowbill/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormInvoiceRepository implements billing.InvoiceRepository
type GormInvoiceRepository struct {
	db *gorm.DB
}

var _ billing.InvoiceRepository = (*GormInvoiceRepository)(nil)

// FindByID retrieves an invoice by its id
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindByPurchaseID retrieves the invoice created for a purchase
func (r *GormInvoiceRepository) FindByPurchaseID(ctx context.Context, purchaseID uuid.UUID) (*billing.Invoice, error) {
	var model models.InvoiceModel
	err := r.db.WithContext(ctx).
		Where("purchase_id = ?", purchaseID).
		Order("created_at DESC").
		First(&model).Error
	if err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// Insert persists a new invoice
func (r *GormInvoiceRepository) Insert(ctx context.Context, invoice *billing.Invoice) error {
	var model models.InvoiceModel
	model.FromDomain(invoice)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return translateError(err)
	}
	return nil
}

// SaveWithLock updates the invoice guarded by its optimistic-lock
// version and bumps the in-memory version on success.
func (r *GormInvoiceRepository) SaveWithLock(ctx context.Context, invoice *billing.Invoice) error {
	err := updateWithVersionLock(ctx, r.db, &models.InvoiceModel{}, invoice.ID, invoice.Version, map[string]any{
		"status":         string(invoice.Status),
		"invoice_number": invoice.InvoiceNumber,
	})
	if err != nil {
		return err
	}
	invoice.IncrementVersion()
	return nil
}

// FindLineItems retrieves an invoice's line items
func (r *GormInvoiceRepository) FindLineItems(ctx context.Context, invoiceID uuid.UUID) ([]billing.InvoiceLineItem, error) {
	var rows []models.InvoiceLineItemModel
	err := r.db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, translateError(err)
	}
	items := make([]billing.InvoiceLineItem, 0, len(rows))
	for i := range rows {
		items = append(items, rows[i].ToDomain())
	}
	return items, nil
}

// InsertLineItems persists new invoice line items
func (r *GormInvoiceRepository) InsertLineItems(ctx context.Context, items []billing.InvoiceLineItem) error {
	if len(items) == 0 {
		return nil
	}
	rows := make([]models.InvoiceLineItemModel, len(items))
	for i := range items {
		rows[i].FromDomain(&items[i])
	}
	if err := r.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return translateError(err)
	}
	return nil
}

// UpdateLineItem persists changes to an existing line item
func (r *GormInvoiceRepository) UpdateLineItem(ctx context.Context, item *billing.InvoiceLineItem) error {
	var model models.InvoiceLineItemModel
	model.FromDomain(item)
	if err := r.db.WithContext(ctx).Save(&model).Error; err != nil {
		return translateError(err)
	}
	return nil
}

// DeleteLineItems removes line items by id
func (r *GormInvoiceRepository) DeleteLineItems(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Delete(&models.InvoiceLineItemModel{}, "id IN ?", ids).Error; err != nil {
		return translateError(err)
	}
	return nil
}
