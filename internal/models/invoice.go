package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus represents the status of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusDraft    InvoiceStatus = "draft"
	InvoiceStatusSent     InvoiceStatus = "sent"
	InvoiceStatusPaid     InvoiceStatus = "paid"
	InvoiceStatusOverdue  InvoiceStatus = "overdue"
	InvoiceStatusCanceled InvoiceStatus = "canceled"
)

// Invoice is the aggregate root: it exclusively owns its items, and its
// total_amount is always the sum of the item totals (zero when empty).
type Invoice struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// UserID is the owner of this invoice (for multi-tenant isolation)
	UserID uint `gorm:"index;not null;uniqueIndex:uniq_user_invoice_number" json:"user_id"`
	User   User `gorm:"foreignKey:UserID" json:"-"`

	// Client relationship
	ClientID uint    `gorm:"index;not null" json:"client_id"`
	Client   *Client `gorm:"foreignKey:ClientID" json:"client,omitempty"`

	// Number is immutable once assigned (INV-00001, INV-00002, ... per user).
	// Numbering is per user, so uniqueness is scoped to (user_id, number):
	// two users can both hold INV-00001.
	Number string `gorm:"column:invoice_number;size:50;not null;uniqueIndex:uniq_user_invoice_number" json:"invoice_number"`

	IssueDate time.Time `gorm:"not null" json:"issue_date"`
	DueDate   time.Time `gorm:"not null" json:"due_date"`

	Status InvoiceStatus `gorm:"size:20;default:'draft';not null" json:"status"`

	// TotalAmount is derived; callers never write it directly.
	TotalAmount decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"total_amount"`

	Items []InvoiceItem `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

// IsDraft returns true if the invoice is in draft status.
func (i *Invoice) IsDraft() bool {
	return i.Status == InvoiceStatusDraft
}

// IsTerminal returns true when no further status transitions are allowed.
func (i *Invoice) IsTerminal() bool {
	return i.Status == InvoiceStatusCanceled
}

// SumItemTotals adds up the loaded items' totals. Missing totals count as zero.
func (i *Invoice) SumItemTotals() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range i.Items {
		sum = sum.Add(item.Total)
	}
	return sum.Round(2)
}

// GetUserID reports the owning user, for ownership checks in handlers.
func (i *Invoice) GetUserID() uint {
	return i.UserID
}

// InvoiceItem is a line on an invoice. Total is derived from quantity and
// unit price and is never trusted from input.
type InvoiceItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	InvoiceID uint     `gorm:"index;not null" json:"invoice_id"`
	Invoice   *Invoice `gorm:"foreignKey:InvoiceID" json:"-"`

	Description string          `gorm:"size:500;not null" json:"description"`
	Quantity    int             `gorm:"not null;default:1" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"unit_price"`
	Total       decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"total"`
}

// ComputeTotal returns quantity × unit price at scale 2.
func (item *InvoiceItem) ComputeTotal() decimal.Decimal {
	return item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))).Round(2)
}

// InvoiceSequence records the highest invoice number ever issued for a
// user. It only moves forward, so deleting an invoice never frees its
// number for reuse.
type InvoiceSequence struct {
	UserID    uint      `gorm:"primaryKey" json:"user_id"`
	LastSeq   int       `gorm:"not null;default:0" json:"last_seq"`
	UpdatedAt time.Time `json:"updated_at"`
}
