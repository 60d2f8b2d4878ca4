package models

import "time"

// Client represents a customer being billed.
type Client struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// UserID is the owner of this client (for multi-tenant isolation)
	UserID uint `gorm:"index;not null" json:"user_id"`
	User   User `gorm:"foreignKey:UserID" json:"-"`

	// Contact information
	Name    string `gorm:"size:250;not null" json:"name"`
	Company string `gorm:"size:250" json:"company_name,omitempty"`
	Email   string `gorm:"size:150;uniqueIndex;not null" json:"email"`
	Phone   string `gorm:"size:50" json:"phone,omitempty"`

	// Address
	AddressLine1 string `gorm:"size:250" json:"address_line1,omitempty"`
	AddressLine2 string `gorm:"size:150" json:"address_line2,omitempty"`
	City         string `gorm:"size:100" json:"city,omitempty"`
	State        string `gorm:"size:100" json:"state,omitempty"`
	PostalCode   string `gorm:"size:50" json:"postal_code,omitempty"`

	// Relations
	Invoices []Invoice `gorm:"foreignKey:ClientID" json:"invoices,omitempty"`
}
