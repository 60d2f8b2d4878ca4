package services

import (
	"github.com/diewo77/invoice-api/internal/models"
	"gorm.io/gorm"
)

// Totals recomputation for the invoice aggregate. These run as explicit
// calls inside the repository's transaction, item step before invoice step,
// rather than as store-level hooks.

// recalcItemTotal overwrites the item's derived total from its current
// quantity and unit price. Caller-supplied totals are discarded.
func recalcItemTotal(item *models.InvoiceItem) {
	item.Total = item.ComputeTotal()
}

// recalcInvoiceTotal rewrites total_amount from the post-change item set.
// An invoice with no items ends at 0.00, not null.
func recalcInvoiceTotal(tx *gorm.DB, invoiceID uint) error {
	var inv models.Invoice
	if err := tx.Where("invoice_id = ?", invoiceID).Order("id").Find(&inv.Items).Error; err != nil {
		return err
	}
	return tx.Model(&models.Invoice{}).
		Where("id = ?", invoiceID).
		Update("total_amount", inv.SumItemTotals()).Error
}
