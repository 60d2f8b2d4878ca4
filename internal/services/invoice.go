package services

import (
	"errors"
	"time"

	"github.com/diewo77/invoice-api/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InvoiceService is the transactional boundary around an invoice and its
// items. Every mutation runs inside one transaction: the item change, the
// totals recomputation, and (on create) the number allocation either all
// commit or none do.
type InvoiceService struct {
	db *gorm.DB
}

func NewInvoiceService(db *gorm.DB) *InvoiceService {
	return &InvoiceService{db: db}
}

// ItemInput carries the caller-settable fields of a line item. The item
// total is always derived, never taken from input.
type ItemInput struct {
	Description string
	Quantity    int
	UnitPrice   decimal.Decimal
}

func (in ItemInput) validate() error {
	if in.Quantity < 1 {
		return &Error{Kind: KindConstraintViolation, Entity: "item", Err: errors.New("quantity must be positive")}
	}
	if in.UnitPrice.IsNegative() {
		return &Error{Kind: KindConstraintViolation, Entity: "item", Err: errors.New("unit_price must not be negative")}
	}
	return nil
}

// allocRetries bounds how often CreateInvoice regenerates a number after
// losing the uniqueness race to a concurrent creation.
const allocRetries = 3

// CreateInvoice allocates the next invoice number for the user, creates the
// invoice in draft status with its items, and computes all totals, in one
// transaction.
func (s *InvoiceService) CreateInvoice(userID, clientID uint, issueDate, dueDate time.Time, items []ItemInput) (*models.Invoice, error) {
	var inv *models.Invoice
	var err error
	for attempt := 0; attempt < allocRetries; attempt++ {
		inv, err = s.createOnce(userID, clientID, issueDate, dueDate, items)
		if err == nil || !IsKind(err, KindDuplicateInvoiceNumber) {
			return inv, err
		}
	}
	return nil, err
}

func (s *InvoiceService) createOnce(userID, clientID uint, issueDate, dueDate time.Time, items []ItemInput) (*models.Invoice, error) {
	for _, in := range items {
		if err := in.validate(); err != nil {
			return nil, err
		}
	}
	var inv models.Invoice
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Client{}).
			Where("id = ? AND user_id = ?", clientID, userID).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return notFound("client", clientID)
		}

		number, err := NextInvoiceNumber(tx, userID)
		if err != nil {
			return err
		}
		if issueDate.IsZero() {
			issueDate = time.Now().UTC().Truncate(24 * time.Hour)
		}
		inv = models.Invoice{
			UserID:    userID,
			ClientID:  clientID,
			Number:    number,
			IssueDate: issueDate,
			DueDate:   dueDate,
			Status:    models.InvoiceStatusDraft,
		}
		if err := tx.Create(&inv).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return &Error{Kind: KindDuplicateInvoiceNumber, Entity: "invoice", Err: err}
			}
			return wrapDBError(err, "invoice", 0)
		}
		for _, in := range items {
			item := models.InvoiceItem{
				InvoiceID:   inv.ID,
				Description: in.Description,
				Quantity:    in.Quantity,
				UnitPrice:   in.UnitPrice,
			}
			recalcItemTotal(&item)
			if err := tx.Create(&item).Error; err != nil {
				return wrapDBError(err, "item", 0)
			}
		}
		return recalcInvoiceTotal(tx, inv.ID)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(userID, inv.ID)
}

// AddItem appends a line item and recomputes the invoice total.
func (s *InvoiceService) AddItem(userID, invoiceID uint, in ItemInput) (*models.Invoice, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.lookupInvoice(tx, userID, invoiceID); err != nil {
			return err
		}
		item := models.InvoiceItem{
			InvoiceID:   invoiceID,
			Description: in.Description,
			Quantity:    in.Quantity,
			UnitPrice:   in.UnitPrice,
		}
		recalcItemTotal(&item)
		if err := tx.Create(&item).Error; err != nil {
			return wrapDBError(err, "item", 0)
		}
		return recalcInvoiceTotal(tx, invoiceID)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(userID, invoiceID)
}

// UpdateItem rewrites a line item's fields, recomputes its derived total,
// and then the invoice total.
func (s *InvoiceService) UpdateItem(userID, invoiceID, itemID uint, in ItemInput) (*models.Invoice, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.lookupInvoice(tx, userID, invoiceID); err != nil {
			return err
		}
		var item models.InvoiceItem
		if err := tx.Where("id = ? AND invoice_id = ?", itemID, invoiceID).First(&item).Error; err != nil {
			return wrapDBError(err, "item", itemID)
		}
		item.Description = in.Description
		item.Quantity = in.Quantity
		item.UnitPrice = in.UnitPrice
		recalcItemTotal(&item)
		if err := tx.Save(&item).Error; err != nil {
			return wrapDBError(err, "item", itemID)
		}
		return recalcInvoiceTotal(tx, invoiceID)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(userID, invoiceID)
}

// RemoveItem deletes a line item; the recomputation sees the post-delete
// item set, so removing the last item leaves total_amount at 0.00.
func (s *InvoiceService) RemoveItem(userID, invoiceID, itemID uint) (*models.Invoice, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.lookupInvoice(tx, userID, invoiceID); err != nil {
			return err
		}
		res := tx.Where("id = ? AND invoice_id = ?", itemID, invoiceID).Delete(&models.InvoiceItem{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return notFound("item", itemID)
		}
		return recalcInvoiceTotal(tx, invoiceID)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(userID, invoiceID)
}

// TransitionStatus applies a lifecycle action (mark_sent, mark_paid,
// mark_overdue, mark_canceled). Illegal transitions fail without mutating
// anything.
func (s *InvoiceService) TransitionStatus(userID, invoiceID uint, action StatusAction) (*models.Invoice, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var inv models.Invoice
		if err := tx.Where("id = ? AND user_id = ?", invoiceID, userID).First(&inv).Error; err != nil {
			return wrapDBError(err, "invoice", invoiceID)
		}
		next, err := NextStatus(inv.Status, action)
		if err != nil {
			var ce *Error
			if errors.As(err, &ce) {
				ce.ID = invoiceID
			}
			return err
		}
		return tx.Model(&inv).Update("status", next).Error
	})
	if err != nil {
		return nil, err
	}
	return s.Get(userID, invoiceID)
}

// ExtendDueDate pushes the due date out by the given number of days
// (DefaultDueDateExtension when days is zero), regardless of status.
// Applying it twice extends twice.
func (s *InvoiceService) ExtendDueDate(userID, invoiceID uint, days int) (*models.Invoice, error) {
	if days == 0 {
		days = DefaultDueDateExtension
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var inv models.Invoice
		if err := tx.Where("id = ? AND user_id = ?", invoiceID, userID).First(&inv).Error; err != nil {
			return wrapDBError(err, "invoice", invoiceID)
		}
		return tx.Model(&inv).Update("due_date", inv.DueDate.AddDate(0, 0, days)).Error
	})
	if err != nil {
		return nil, err
	}
	return s.Get(userID, invoiceID)
}

// Get loads one invoice with its items, scoped to the owning user.
func (s *InvoiceService) Get(userID, invoiceID uint) (*models.Invoice, error) {
	var inv models.Invoice
	err := s.db.Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("invoice_items.id") }).
		Where("id = ? AND user_id = ?", invoiceID, userID).
		First(&inv).Error
	if err != nil {
		return nil, wrapDBError(err, "invoice", invoiceID)
	}
	return &inv, nil
}

// List returns a page of the user's invoices, newest first.
func (s *InvoiceService) List(userID uint, limit, offset int) ([]models.Invoice, int64, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	q := s.db.Model(&models.Invoice{}).Where("user_id = ?", userID)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var invs []models.Invoice
	err := q.Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("invoice_items.id") }).
		Order("id DESC").Limit(limit).Offset(offset).
		Find(&invs).Error
	if err != nil {
		return nil, 0, err
	}
	return invs, total, nil
}

// Delete removes an invoice and all of its items. The invoice's number is
// never reallocated: the per-user sequence row only moves forward, so a
// deleted number stays retired.
func (s *InvoiceService) Delete(userID, invoiceID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.lookupInvoice(tx, userID, invoiceID); err != nil {
			return err
		}
		// explicit cascade, so sqlite setups without FK enforcement behave
		// the same as the postgres schema's ON DELETE CASCADE
		if err := tx.Where("invoice_id = ?", invoiceID).Delete(&models.InvoiceItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Invoice{}, invoiceID).Error
	})
}

func (s *InvoiceService) lookupInvoice(tx *gorm.DB, userID, invoiceID uint) error {
	var count int64
	if err := tx.Model(&models.Invoice{}).
		Where("id = ? AND user_id = ?", invoiceID, userID).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return notFound("invoice", invoiceID)
	}
	return nil
}
